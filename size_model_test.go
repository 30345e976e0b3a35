package speedb

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wanghenshui/speedb/internal/manifest"
)

func TestCheckDbSizePromotesWhenLastLevelOutgrowsBudget(t *testing.T) {
	opts := testOptions()
	opts.WriteBufferSize = 1 << 10
	opts.SpaceAmpPct = 150 // factor = 2
	p := NewPicker("cf", opts, NewLimiter(0))

	snap := snapshotWithLevels(map[int][]*manifest.File{
		lastLevel(1): {file(1, "a", "z", 10 << 20)},
		lastLevelInHyper(1): {file(2, "a", "b", 1 << 20)},
	})
	p.mu.Lock()
	p.initCf(snap)
	plan, promoted := p.checkDbSize(snap)
	cur := p.curHyperLevels()
	p.mu.Unlock()

	require.True(t, promoted)
	require.Equal(t, 2, cur)

	want := &CompactionPlan{
		Inputs: []LevelInputs{
			{Level: lastLevelInHyper(1), Files: []*manifest.File{file(2, "a", "b", 1<<20)}},
		},
		OutputLevel:       lastLevel(2),
		MaxSubcompactions: 1,
		Reason:            ReasonRearrange,
		IsTrivialMove:     true,
	}
	requirePlansEqual(t, want, plan)
}

func TestCheckDbSizeNoPromotionBelowThreshold(t *testing.T) {
	p := NewPicker("cf", testOptions(), NewLimiter(0))
	snap := snapshotWithLevels(map[int][]*manifest.File{
		lastLevel(1): {file(1, "a", "z", 10)},
	})
	p.mu.Lock()
	p.initCf(snap)
	_, promoted := p.checkDbSize(snap)
	p.mu.Unlock()
	require.False(t, promoted)
}

func TestCheckDbSizePromotesOnBacklogAtFirstLevelPlusOne(t *testing.T) {
	opts := testOptions()
	opts.MinMergeWidth = 4
	opts.WriteBufferSize = 1000
	opts.SpaceAmpPct = 150 // factor = 2
	p := NewPicker("cf", opts, NewLimiter(0))

	// lastBytes sits above threshold (32000) but not past the 1.2x margin
	// (38400), so exceedsByMargin is false; only a backlog at
	// firstLevelInHyper(1)+1 should trigger the promotion.
	snap := snapshotWithLevels(map[int][]*manifest.File{
		lastLevel(1):             {file(1, "a", "z", 35000)},
		firstLevelInHyper(1) + 1: {file(2, "a", "b", 10)},
	})
	p.mu.Lock()
	p.initCf(snap)
	plan, promoted := p.checkDbSize(snap)
	p.mu.Unlock()

	require.True(t, promoted)
	require.NotNil(t, plan)
}

func TestCheckDbSizePromotesOnLaggingHyperLevelWithBacklogAtFirstLevelPlusThree(t *testing.T) {
	opts := testOptions()
	opts.MinMergeWidth = 4
	opts.WriteBufferSize = 1000
	opts.SpaceAmpPct = 150 // factor = 2
	p := NewPicker("cf", opts, NewLimiter(0))

	// lastBytes again sits between threshold and the 1.2x margin. The
	// hyper-level's own bytes, scaled by spaceAmp, fall well short of
	// lastBytes, and firstLevelInHyper(1)+3 carries a backlog: the second
	// OR-branch should trigger even though neither the margin nor the
	// firstLevel+1 branch does.
	snap := snapshotWithLevels(map[int][]*manifest.File{
		lastLevel(1):             {file(1, "a", "z", 35000)},
		firstLevelInHyper(1) + 3: {file(2, "a", "b", 10)},
	})
	p.mu.Lock()
	p.initCf(snap)
	plan, promoted := p.checkDbSize(snap)
	p.mu.Unlock()

	require.True(t, promoted)
	require.NotNil(t, plan)
}

func TestCheckDbSizeNoPromotionWhenNeitherMarginNorBacklogHolds(t *testing.T) {
	opts := testOptions()
	opts.MinMergeWidth = 4
	opts.WriteBufferSize = 1000
	opts.SpaceAmpPct = 150 // factor = 2
	p := NewPicker("cf", opts, NewLimiter(0))

	// lastBytes is above threshold but not past the margin, and neither
	// firstLevel+1 nor firstLevel+3 carries a backlog: none of the three
	// OR-branches should fire.
	snap := snapshotWithLevels(map[int][]*manifest.File{
		lastLevel(1): {file(1, "a", "z", 35000)},
	})
	p.mu.Lock()
	p.initCf(snap)
	_, promoted := p.checkDbSize(snap)
	p.mu.Unlock()

	require.False(t, promoted)
}

func TestMoveSstToLastLevelNilWhenPreviousHyperEmpty(t *testing.T) {
	p := NewPicker("cf", testOptions(), NewLimiter(0))
	snap := snapshotWithLevels(map[int][]*manifest.File{
		lastLevel(1): {file(1, "a", "z", 10)},
	})
	p.mu.Lock()
	p.initCf(snap)
	plan := p.moveSstToLastLevel(snap)
	p.mu.Unlock()
	require.Nil(t, plan)
}

func TestSumHyperLevelBytes(t *testing.T) {
	snap := snapshotWithLevels(map[int][]*manifest.File{
		1: {file(1, "a", "b", 100)},
		2: {file(2, "c", "d", 200)},
		25: {file(3, "e", "f", 999)}, // hyper-level 2, should not count toward hyper 1
	})
	require.EqualValues(t, 300, sumHyperLevelBytes(snap, 1))
}
