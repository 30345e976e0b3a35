package speedb

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wanghenshui/speedb/internal/manifest"
)

// buildNonTerminalOversizeSnapshot matches the §8 "non-terminal oversize"
// scenario: every level from first_level_in_hyper(1)+3 through
// last_level_in_hyper(1) holds one wide-range file, and hyper-level 2
// exists (via a deep anchor file) but its first level is empty, so it
// supplies the receiving slot.
func buildNonTerminalOversizeSnapshot() *MemSnapshot {
	files := map[int][]*manifest.File{
		lastLevelInHyper(2): {file(1000, "a", "z", 10)},
	}
	for level := firstLevelInHyper(1) + 3; level <= lastLevelInHyper(1); level++ {
		files[level] = []*manifest.File{file(uint64(level), "a", "z", 1<<10)}
	}
	return snapshotWithLevels(files)
}

func TestPickLevelRangeSpansNonTerminalHyperLevel(t *testing.T) {
	p := NewPicker("cf", testOptions(), NewLimiter(0))
	snap := buildNonTerminalOversizeSnapshot()

	p.mu.Lock()
	p.initCf(snap)
	require.Equal(t, 2, p.curHyperLevels())
	plan := p.pickLevelRange(1, snap)
	p.mu.Unlock()

	require.NotNil(t, plan)
	require.Equal(t, ReasonLevelMaxLevelSize, plan.Reason)
	require.Equal(t, firstLevelInHyper(2), plan.OutputLevel)
	require.False(t, plan.IsTrivialMove)
	require.GreaterOrEqual(t, plan.MaxSubcompactions, 1)

	gotLevels := make(map[int]bool)
	for _, li := range plan.Inputs {
		gotLevels[li.Level] = true
	}
	for level := firstLevelInHyper(1) + 3; level <= lastLevelInHyper(1); level++ {
		require.True(t, gotLevels[level], "expected level %d among inputs", level)
	}
}

func TestPickLevelRangePanicsOnEmptyLastLevelPrecondition(t *testing.T) {
	p := NewPicker("cf", testOptions(), NewLimiter(0))
	snap := snapshotWithLevels(nil)
	p.mu.Lock()
	p.initCf(snap)
	defer p.mu.Unlock()

	require.Panics(t, func() {
		p.pickLevelRange(1, snap)
	})
}

func TestPickLevelRangeNilWhenFeedingCursorPastStartLevel(t *testing.T) {
	p := NewPicker("cf", testOptions(), NewLimiter(0))
	snap := snapshotWithLevels(map[int][]*manifest.File{
		lastLevelInHyper(1): {file(1, "a", "z", 10)},
		firstLevelInHyper(1): {file(2, "a", "z", 10)},
	})
	p.mu.Lock()
	p.initCf(snap)
	p.mu.Unlock()

	// Forge a feeding cursor whose output level lies past the start level
	// S (24), forcing the abort path in §4.7.3's last bullet.
	p.mu.Lock()
	p.prevSubCompaction[0].OutputLevel = lastLevelInHyper(1) + 5
	p.prevSubCompaction[0].LastKey = []byte("x")
	plan := p.pickLevelRange(1, snap)
	p.mu.Unlock()

	require.Nil(t, plan)
}

func TestComputeInitialBoundsLooksAheadNBuffersPastOverlap(t *testing.T) {
	tFiles := []*manifest.File{
		file(1, "a", "a", 10),
		file(2, "d", "d", 10), // the only file the seed range overlaps
		file(3, "f", "f", 10),
		file(4, "h", "h", 10),
		file(5, "j", "j", 10),
		file(6, "l", "l", 10),
	}
	sel := &nBufferSelection{
		cmp:      byteCompare,
		smallest: []byte("d"),
		largest:  []byte("d"),
		nBuffers: 3,
	}
	sel.computeInitialBounds(tFiles)

	// The overlap is tFiles[1] ("d"); walking forward 3 slots lands on
	// tFiles[4] ("j"), whose Largest key becomes the bound — not the
	// Smallest key of the file immediately after the overlap ("f"),
	// which would starve extendAcrossStartLevel of its n-buffers slack.
	require.Equal(t, "j", string(sel.upperBound))
}

func TestComputeInitialBoundsUnboundedWhenLookaheadRunsPastLastTFile(t *testing.T) {
	tFiles := []*manifest.File{
		file(1, "a", "a", 10),
		file(2, "d", "d", 10),
		file(3, "f", "f", 10),
	}
	sel := &nBufferSelection{
		cmp:      byteCompare,
		smallest: []byte("d"),
		largest:  []byte("d"),
		nBuffers: 10,
	}
	sel.computeInitialBounds(tFiles)
	require.Nil(t, sel.upperBound)
}

func TestFileIntersects(t *testing.T) {
	tFiles := []*manifest.File{file(1, "a", "c", 10), file(2, "d", "f", 10)}
	require.True(t, fileIntersects(byteCompare, tFiles, file(3, "b", "b", 1), nil))
	require.False(t, fileIntersects(byteCompare, tFiles, file(4, "x", "y", 1), nil))
}

func TestExtendForVersionTiesIncludesBoundaryNeighbors(t *testing.T) {
	a := file(1, "a", "m", 10)
	b := file(2, "m", "m", 10) // shares user-key "m" with a's largest
	c := file(3, "n", "p", 10)
	all := []*manifest.File{a, b, c}
	out := extendForVersionTies(byteCompare, all, []*manifest.File{b})
	require.Len(t, out, 2)
	require.Contains(t, out, a)
	require.Contains(t, out, b)
}
