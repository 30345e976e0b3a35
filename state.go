package speedb

import (
	"sync"
	"sync/atomic"

	"github.com/wanghenshui/speedb/internal/manifest"
)

// PrevPlace is the per-hyper-level cursor recording where the previous
// partial sub-compaction into this hyper-level ended, per §3. While a
// sub-compaction for hyper-level h is in flight, it pins the lower bound
// of the next sub-compaction at the same hyper-level.
type PrevPlace struct {
	OutputLevel int
	LastKey     []byte
}

// clear resets the cursor to "nothing pending".
func (pp *PrevPlace) clear() {
	pp.OutputLevel = 0
	pp.LastKey = nil
}

// empty reports whether the cursor currently pins no pending range.
func (pp *PrevPlace) empty() bool {
	return len(pp.LastKey) == 0
}

// Picker is the Hybrid Compaction Picker decision engine for one column
// family. A Picker is created once per column family and lives for the
// life of that column family; unlike a per-version picker, its state
// (cur_num_hyper_levels, the size table, and the prev_sub_compaction
// cursors) persists across calls and is serialized by mu, per §3 and §5.
type Picker struct {
	mu sync.Mutex

	name string
	opts *Options

	initialized bool

	// curNumHyperLevels is read lock-free by NeedsCompaction (an
	// advisory probe) and mutated under mu by CheckDbSize, so it is
	// stored atomically rather than as a plain int.
	curNumHyperLevels atomic.Int64

	multiplier    [kHyperLevelsNumMax + 1]int
	sizeToCompact [kHyperLevelsNumMax + 1]uint64

	prevSubCompaction [kHyperLevelsNumMax + 1]PrevPlace

	spaceAmpFactor int
	maxOpenFiles   int

	// l0CompactionsInProgress is the engine-maintained L0 in-progress
	// counter (§4.2: "L0 compactions populate running[0].n_compactions
	// from a separately maintained counter").
	l0CompactionsInProgress int

	lowPriorityEnabled bool

	limiter *Limiter
	metrics *Metrics
}

// NewPicker constructs a Picker for one column family. opts is cloned via
// EnsureDefaults so the caller's Options is never mutated by the picker.
func NewPicker(cfName string, opts *Options, limiter *Limiter) *Picker {
	o := *opts
	o.EnsureDefaults()
	return &Picker{
		name:    cfName,
		opts:    &o,
		limiter: limiter,
		metrics: newMetrics(cfName),
	}
}

func (p *Picker) curHyperLevels() int {
	return int(p.curNumHyperLevels.Load())
}

func (p *Picker) setCurHyperLevels(h int) {
	p.curNumHyperLevels.Store(int64(h))
}

// initCf performs the one-time lazy initialization described in §3's
// Lifecycle paragraph: it inspects the snapshot, sets cur_num_hyper_levels,
// and seeds the size table. Must be called with mu held.
func (p *Picker) initCf(snapshot manifest.Snapshot) {
	p.spaceAmpFactor = p.opts.SpaceAmpFactor()
	p.maxOpenFiles = p.opts.MaxOpenFiles

	m := p.opts.MinMergeWidth
	if m < kLevelsToMergeMin || m > kLevelsToMergeMax {
		m = 8
	}
	for h := 0; h <= kHyperLevelsNumMax; h++ {
		p.multiplier[h] = m
	}

	lastNonEmpty := -1
	for level := 0; level < snapshot.NumLevels(); level++ {
		if len(snapshot.LevelFiles(level)) > 0 {
			lastNonEmpty = level
		}
	}

	hyperLevels := 1
	if lastNonEmpty-1 >= 0 {
		if h := hyperOf(lastNonEmpty - 1); h > hyperLevels {
			hyperLevels = h
		}
	}
	if hyperLevels > kHyperLevelsNumMax {
		hyperLevels = kHyperLevelsNumMax
	}
	p.setCurHyperLevels(hyperLevels)

	p.sizeToCompact[0] = p.opts.WriteBufferSize * uint64(p.multiplier[0])
	for h := 1; h <= kHyperLevelsNumMax; h++ {
		p.sizeToCompact[h] = p.sizeToCompact[h-1] * uint64(p.multiplier[h])
	}

	p.initialized = true
}
