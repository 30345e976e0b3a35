package speedb

import (
	"fmt"
	"sync"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/prometheus/client_golang/prometheus"
)

// maxPlanInputBytes bounds the histogram's value range; a plan larger
// than 1 TiB of input bytes would be a geometry bug, not a real workload.
const maxPlanInputBytes = 1 << 40

// Metrics holds the Prometheus collectors the picker updates whenever it
// reports LSM state, giving operators the same per-hyper-level size view
// PrintLsmState emits to the engine's text event sink, plus an
// hdrhistogram distribution of chosen plans' input byte sizes, mirroring
// how the tool package tracks per-file lifetime distributions offline.
type Metrics struct {
	hyperLevelBytes *prometheus.GaugeVec
	lastLevelBytes  prometheus.Gauge
	plansPicked     *prometheus.CounterVec

	mu         sync.Mutex
	inputBytes *hdrhistogram.Histogram
	histErrors int
}

// newMetrics constructs a Metrics registered under cfName as a constant
// label, so per-column-family series don't collide when multiple Pickers
// share a registry.
func newMetrics(cfName string) *Metrics {
	constLabels := prometheus.Labels{"cf": cfName}
	m := &Metrics{
		hyperLevelBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "hybridpicker",
			Name:        "hyper_level_bytes",
			Help:        "Total bytes across the physical levels of one hyper-level.",
			ConstLabels: constLabels,
		}, []string{"hyper_level"}),
		lastLevelBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "hybridpicker",
			Name:        "last_level_bytes",
			Help:        "Total bytes in the terminal database level.",
			ConstLabels: constLabels,
		}),
		plansPicked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "hybridpicker",
			Name:        "plans_picked_total",
			Help:        "Number of compaction plans returned by PickCompaction, by reason.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		inputBytes: hdrhistogram.New(0, maxPlanInputBytes, 2),
	}
	return m
}

// Collectors returns every collector the caller should register with a
// prometheus.Registerer.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.hyperLevelBytes, m.lastLevelBytes, m.plansPicked}
}

func (m *Metrics) recordPlan(plan *CompactionPlan) {
	if plan == nil {
		return
	}
	m.plansPicked.WithLabelValues(plan.Reason.String()).Inc()

	var inputBytes int64
	for _, f := range plan.InputFiles() {
		inputBytes += int64(f.Size)
	}
	m.mu.Lock()
	if err := m.inputBytes.RecordValue(inputBytes); err != nil {
		m.histErrors++
	}
	m.mu.Unlock()
}

// setLsmState pushes PrintLsmState's per-hyper-level and last-level byte
// sums (in MiB) into the gauges Collectors exposes, so a scrape reflects
// the same view PrintLsmState writes to the event sink and log.
func (m *Metrics) setLsmState(mibPerHyper []float64, lastMiB float64) {
	for h, mib := range mibPerHyper {
		m.hyperLevelBytes.WithLabelValues(fmt.Sprintf("%d", h)).Set(mib * (1 << 20))
	}
	m.lastLevelBytes.Set(lastMiB * (1 << 20))
}

// InputBytesPercentile reports the p-th percentile (0, 100] of chosen
// plans' total input byte sizes observed so far, to the histogram's
// two-significant-digit precision: the result is the highest value of the
// histogram bucket holding that percentile.
func (m *Metrics) InputBytesPercentile(p float64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inputBytes.ValueAtPercentile(p)
}
