package speedb

import (
	"fmt"
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/wanghenshui/speedb/internal/manifest"
)

// byteCompare orders keys as raw byte strings, the simplest total order
// satisfying base.Compare, used throughout the picker's tests so cases can
// write keys as plain strings.
func byteCompare(a, b []byte) int {
	switch {
	case string(a) < string(b):
		return -1
	case string(a) > string(b):
		return 1
	default:
		return 0
	}
}

// file is a test-only constructor for a manifest.File spanning
// [smallest, largest] with the given size.
func file(num uint64, smallest, largest string, size uint64) *manifest.File {
	return &manifest.File{
		FileNum:      num,
		Smallest:     []byte(smallest),
		Largest:      []byte(largest),
		Size:         size,
		RawValueSize: size,
	}
}

// dumpPlan renders a plan's inputs and metadata in a stable, unredacted
// form so test failures can be diffed line by line.
func dumpPlan(p *CompactionPlan) string {
	if p == nil {
		return "<nil plan>\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "reason=%s trivial=%v output_level=%d sub=%d\n",
		p.Reason, p.IsTrivialMove, p.OutputLevel, p.MaxSubcompactions)
	for _, li := range p.Inputs {
		fmt.Fprintf(&b, "L%d:\n", li.Level)
		for _, f := range li.Files {
			fmt.Fprintf(&b, "  #%d [%s, %s] size=%d\n", f.FileNum, f.Smallest, f.Largest, f.Size)
		}
	}
	return b.String()
}

// requirePlansEqual fails t with a unified diff of the two plans' dumps
// when they differ, mirroring the engine's own testutil golden-file
// comparison helper.
func requirePlansEqual(t *testing.T, want, got *CompactionPlan) {
	t.Helper()
	wantDump, gotDump := dumpPlan(want), dumpPlan(got)
	if wantDump == gotDump {
		return
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(wantDump),
		B:        difflib.SplitLines(gotDump),
		FromFile: "want",
		ToFile:   "got",
		Context:  3,
	})
	t.Fatalf("plans differ:\n%s", diff)
}

func testOptions() *Options {
	o := &Options{Comparer: byteCompare}
	o.EnsureDefaults()
	return o
}

func snapshotWithLevels(levels map[int][]*manifest.File) *MemSnapshot {
	snap := &MemSnapshot{}
	max := 0
	for level := range levels {
		if level > max {
			max = level
		}
	}
	snap.EnsureLevels(max)
	for level, files := range levels {
		snap.Levels[level] = files
	}
	return snap
}
