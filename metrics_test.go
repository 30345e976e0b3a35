package speedb

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
	"github.com/wanghenshui/speedb/internal/manifest"
)

func TestMetricsRecordPlanTracksInputByteDistribution(t *testing.T) {
	m := newMetrics("cf")
	plan := &CompactionPlan{
		Inputs: []LevelInputs{
			{Level: 1, Files: []*manifest.File{file(1, "a", "b", 1 << 20)}},
		},
		Reason: ReasonLevelMaxLevelSize,
	}
	m.recordPlan(plan)
	m.recordPlan(plan)

	// With two significant digits, values near 1 MiB fall into 8192-wide
	// buckets, and the percentile reports the top of the bucket.
	require.EqualValues(t, 1<<20+1<<13-1, m.InputBytesPercentile(50))
	require.Zero(t, m.histErrors)
}

func TestMetricsRecordPlanNilIsNoop(t *testing.T) {
	m := newMetrics("cf")
	m.recordPlan(nil)
	require.EqualValues(t, 0, m.InputBytesPercentile(50))
}

func TestMetricsCollectorsNonEmpty(t *testing.T) {
	m := newMetrics("cf")
	require.Len(t, m.Collectors(), 3)
}

func TestMetricsSetLsmStatePopulatesGauges(t *testing.T) {
	m := newMetrics("cf")
	m.setLsmState([]float64{1, 2.5}, 4)

	gauge := &dto.Metric{}
	require.NoError(t, m.lastLevelBytes.Write(gauge))
	require.EqualValues(t, 4*(1<<20), gauge.GetGauge().GetValue())

	hyper1 := &dto.Metric{}
	require.NoError(t, m.hyperLevelBytes.WithLabelValues("1").Write(hyper1))
	require.EqualValues(t, 2.5*(1<<20), hyper1.GetGauge().GetValue())
}
