package speedb

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/wanghenshui/speedb/internal/base"
)

// Options holds the subset of column-family configuration the compaction
// picker consumes. Unrecognized fields on the engine's larger Options type
// are ignored; the picker only looks at the ones enumerated here.
type Options struct {
	// Comparer orders user keys. Required.
	Comparer base.Compare

	// SpaceAmpPct is the maximum allowed ratio, in percent, of total
	// storage to live data. Clamped to [110, 200] by EnsureDefaults.
	SpaceAmpPct int

	// MinMergeWidth bounds the per-hyper-level fan-in multiplier. Clamped
	// into [kLevelsToMergeMin, kLevelsToMergeMax]; reset to 8 if the
	// supplied value falls outside [4, 8].
	MinMergeWidth int

	// WriteBufferSize is the size of a freshly flushed L0 file. Seeds the
	// geometric progression of hyper-level size thresholds.
	WriteBufferSize uint64

	// L0CompactionTrigger is the L0 file count that forces an L0
	// compaction.
	L0CompactionTrigger int

	// L0SlowdownTrigger and L0StopTrigger are the engine's write-pressure
	// triggers; the picker only consults them to keep
	// L0CompactionTrigger consistent (see EnsureDefaults).
	L0SlowdownTrigger int
	L0StopTrigger     int

	// MaxOpenFiles bounds the number of sstables the engine is willing to
	// hold open; the picker uses it only to decide when the last level
	// has accumulated too many small files.
	MaxOpenFiles int

	// TableGroupingPrefixSize is the number of leading key bytes the
	// FileReducer treats as a file's "prefix" for deciding whether two
	// adjacent small files can be coalesced.
	TableGroupingPrefixSize int

	// Logger receives diagnostic output. Defaults to base.DefaultLogger.
	Logger base.Logger

	// EventSink receives PrintLsmState's per-hyper-level size report.
	EventSink EventSink

	// CompressionFor and CompressionOptionsFor let the engine choose a
	// per-output-level compression policy; the picker only forwards the
	// output level, never bytes.
	CompressionFor        func(outputLevel int) string
	CompressionOptionsFor func(outputLevel int) string
}

// SpaceAmpFactor derives space_amp_factor = 100/(space_amp_pct-100),
// clamped to [1, 10], per §3.
func (o *Options) SpaceAmpFactor() int {
	factor := 100 / (o.SpaceAmpPct - 100)
	if factor < 1 {
		return 1
	}
	if factor > 10 {
		return 10
	}
	return factor
}

// EnsureDefaults fills in zero-valued fields and clamps out-of-range
// options, mirroring the engine's open-time option validation: the picker
// never rejects a column family, it silently corrects the configuration.
func (o *Options) EnsureDefaults() *Options {
	if o.Comparer == nil {
		o.Comparer = func(a, b []byte) int {
			switch {
			case string(a) < string(b):
				return -1
			case string(a) > string(b):
				return 1
			default:
				return 0
			}
		}
	}
	if o.SpaceAmpPct < 110 {
		o.SpaceAmpPct = 110
	}
	if o.SpaceAmpPct > 200 {
		o.SpaceAmpPct = 200
	}
	if o.MinMergeWidth < kLevelsToMergeMin || o.MinMergeWidth > kLevelsToMergeMax {
		o.MinMergeWidth = 8
	}
	if o.WriteBufferSize == 0 {
		o.WriteBufferSize = 64 << 20
	}
	if o.L0CompactionTrigger <= 0 {
		o.L0CompactionTrigger = 4
	}
	// If the compaction trigger falls below the clamped min-merge-width
	// but the slowdown/stop triggers remain above it, raise the
	// compaction trigger to min-merge-width so L0 never grows visibly
	// past the point where it's about to slow down writes without ever
	// having tried to compact.
	if o.L0CompactionTrigger < o.MinMergeWidth &&
		o.L0SlowdownTrigger > o.MinMergeWidth && o.L0StopTrigger > o.MinMergeWidth {
		o.L0CompactionTrigger = o.MinMergeWidth
	}
	if o.MaxOpenFiles <= 0 {
		o.MaxOpenFiles = 1000
	}
	if o.TableGroupingPrefixSize <= 0 {
		o.TableGroupingPrefixSize = 8
	}
	if o.Logger == nil {
		o.Logger = base.DefaultLogger{}
	}
	if o.CompressionFor == nil {
		o.CompressionFor = func(int) string { return "snappy" }
	}
	if o.CompressionOptionsFor == nil {
		o.CompressionOptionsFor = func(int) string { return "" }
	}
	return o
}

// Validate reports configuration combinations EnsureDefaults cannot
// silently repair. The picker is expected to run EnsureDefaults first;
// Validate exists for the engine's open-time diagnostics, matching the
// rest of the engine's pattern of collecting every violation into one
// error rather than failing on the first.
func (o *Options) Validate() error {
	var buf strings.Builder
	if o.Comparer == nil {
		buf.WriteString("Comparer must be set\n")
	}
	if o.SpaceAmpPct < 110 || o.SpaceAmpPct > 200 {
		buf.WriteString("SpaceAmpPct must be in [110, 200]\n")
	}
	if o.WriteBufferSize == 0 {
		buf.WriteString("WriteBufferSize must be > 0\n")
	}
	if o.L0CompactionTrigger <= 0 {
		buf.WriteString("L0CompactionTrigger must be > 0\n")
	}
	if buf.Len() == 0 {
		return nil
	}
	return errors.New(buf.String())
}

// LastLevelThreadsNum recommends how much of the database's concurrent
// compaction budget should be reserved for terminal-level work, derived
// from the configured space-amplification budget: a tighter budget forces
// more frequent terminal-level compactions, so it earns more headroom.
// Mirrors LastLevelThreadsNum in the engine's hybrid picker. PickCompaction
// passes it to Limiter.SetTerminalCapacity on every call; only the first
// call sizes the terminal reservation.
func (o *Options) LastLevelThreadsNum() int {
	switch {
	case o.SpaceAmpPct >= 200:
		return 2
	case o.SpaceAmpPct <= 110:
		return 10
	default:
		return 100 / (o.SpaceAmpPct - 100)
	}
}

// minNumLevels returns the smallest physical level count that can host
// minHyper hyper-levels plus the terminal last level, per the engine's
// open-time level-count requirement in §6.
func minNumLevels(minHyper int) int {
	return minHyper*kLevelsInHyperLevel + 2
}

// GrowNumLevels computes the physical level count the engine should
// allocate for a requested number of hyper-levels, capped at
// kHyperLevelsNumMax.
func GrowNumLevels(requestedHyperLevels int) int {
	if requestedHyperLevels > kHyperLevelsNumMax {
		requestedHyperLevels = kHyperLevelsNumMax
	}
	return minNumLevels(requestedHyperLevels)
}

// EventSink receives the picker's observability output (PrintLsmState).
type EventSink interface {
	// LevelSizes is called with one entry per hyper-level's total byte
	// sum (in MiB) followed by the last level's bytes, also in MiB.
	LevelSizes(hyperLevelMiB []float64, lastLevelMiB float64)
}
