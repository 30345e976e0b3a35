package speedb

import (
	"github.com/cockroachdb/redact"
	"github.com/wanghenshui/speedb/internal/manifest"
)

// CompactionReason is a tagged sum identifying why the picker chose a
// CompactionPlan, mirroring the engine's CompactionReason enum.
type CompactionReason int

const (
	// ReasonL0FilesNum is the Level0Picker's reason: L0 crossed its file
	// count trigger.
	ReasonL0FilesNum CompactionReason = iota
	// ReasonLevelMaxLevelSize is the LevelPicker's reason: a hyper-level
	// outgrew its budget.
	ReasonLevelMaxLevelSize
	// ReasonRearrange is the RearrangePicker's reason: a trivial move
	// closing a hole within a hyper-level, or promoting to a new
	// hyper-level.
	ReasonRearrange
	// ReasonReduceNumFiles is the FileReducer's reason: coalescing a run
	// of small adjacent files at the terminal level.
	ReasonReduceNumFiles
	// ReasonManual is set on compactions the engine started in response
	// to a user-triggered manual compaction request.
	ReasonManual
)

// String implements fmt.Stringer.
func (r CompactionReason) String() string {
	switch r {
	case ReasonL0FilesNum:
		return "L0FilesNum"
	case ReasonLevelMaxLevelSize:
		return "LevelMaxLevelSize"
	case ReasonRearrange:
		return "Rearrange"
	case ReasonReduceNumFiles:
		return "ReduceNumFiles"
	case ReasonManual:
		return "Manual"
	default:
		return "Unknown"
	}
}

// LevelInputs is the set of input files the plan draws from one physical
// level.
type LevelInputs struct {
	Level int
	Files []*manifest.File
}

// CompactionPlan is the picker's sole output: a description of the files
// to merge, where to write the result, and with what parallelism. The
// picker never executes a plan; it only describes one.
type CompactionPlan struct {
	// Inputs holds one entry per physical level contributing files,
	// ordered shallowest first.
	Inputs []LevelInputs
	// OutputLevel is the physical level the merged output is written to.
	OutputLevel int
	// MaxSubcompactions bounds how many sub-compactions may run in
	// parallel to produce OutputLevel's files.
	MaxSubcompactions int
	// MaxOutputFileSize bounds the size of any one output sstable.
	MaxOutputFileSize uint64
	// Grandparents are files at a level deeper than OutputLevel whose key
	// ranges overlap the plan's range; used by the engine to bound
	// output file sizes so they don't create excessive overlap with the
	// next level down.
	Grandparents []*manifest.File
	// Reason records why the picker chose this plan.
	Reason CompactionReason
	// IsTrivialMove is true when the plan can be satisfied by relabeling
	// file metadata without rewriting any file contents.
	IsTrivialMove bool
}

// InputFiles returns every file referenced by the plan across all input
// levels, in level order.
func (c *CompactionPlan) InputFiles() []*manifest.File {
	var out []*manifest.File
	for _, li := range c.Inputs {
		out = append(out, li.Files...)
	}
	return out
}

// AllInputsEmpty reports whether the plan has no input files at all.
func (c *CompactionPlan) AllInputsEmpty() bool {
	for _, li := range c.Inputs {
		if len(li.Files) > 0 {
			return false
		}
	}
	return true
}

// SafeFormat implements redact.SafeFormatter. User keys are arbitrary
// application data and must stay redactable in a log line; file numbers,
// level indices and counts are structural and marked safe.
func (c *CompactionPlan) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("reason=%s trivial=%v output_level=%d sub=%d",
		redact.Safe(c.Reason.String()), c.IsTrivialMove, c.OutputLevel, c.MaxSubcompactions)
	for _, li := range c.Inputs {
		w.Printf(" L%d{", li.Level)
		for i, f := range li.Files {
			if i > 0 {
				w.SafeString(",")
			}
			w.Printf("#%d[smallest=", redact.Safe(f.FileNum))
			w.Print(f.Smallest)
			w.SafeString(" largest=")
			w.Print(f.Largest)
			w.SafeString("]")
		}
		w.SafeString("}")
	}
}

// String implements fmt.Stringer, redacting user keys out of the
// formatted plan before rendering, matching the engine's own redacted
// error-reporting path.
func (c *CompactionPlan) String() string {
	return string(redact.Sprint(c).Redact())
}
