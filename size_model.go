package speedb

import (
	"math"

	"github.com/wanghenshui/speedb/internal/manifest"
)

// sumHyperLevelBytes sums NumLevelBytes across every physical level in
// hyper-level h.
func sumHyperLevelBytes(snapshot manifest.Snapshot, h int) uint64 {
	var sum uint64
	for level := firstLevelInHyper(h); level <= lastLevelInHyper(h); level++ {
		sum += snapshot.NumLevelBytes(level)
	}
	return sum
}

// checkDbSize implements §4.4: when the terminal last level has outgrown
// its budget badly enough, promote the column family to a new
// hyper-level and schedule a trivial-move that drains the old terminal
// hyper-level's deepest files straight into the new terminal last level.
//
// Must be called with p.mu held. Returns (nil, false) if no promotion is
// warranted.
func (p *Picker) checkDbSize(snapshot manifest.Snapshot) (*CompactionPlan, bool) {
	cur := p.curHyperLevels()
	lastLvl := lastLevel(cur)
	lastBytes := snapshot.NumLevelBytes(lastLvl)

	spaceAmp := math.Max(float64(p.spaceAmpFactor), 1.3)
	threshold := float64(p.sizeToCompact[cur]) * spaceAmp
	if float64(lastBytes) <= threshold {
		return nil, false
	}

	// Three independent signals, any one of which is enough to promote:
	// the db has grown well past the threshold with margin to spare; the
	// current terminal hyper-level is itself falling behind the terminal
	// level's growth (scaled by spaceAmp) with a backlog building at
	// firstLevel+3; or a backlog has already reached firstLevel+1, the
	// shallowest level inside the hyper-level past the merge buffer.
	firstLevel := firstLevelInHyper(cur)
	exceedsByMargin := float64(lastBytes) > threshold*1.2
	hyperBytes := sumHyperLevelBytes(snapshot, cur)
	laggingWithBacklog := float64(hyperBytes)*spaceAmp < float64(lastBytes) &&
		len(snapshot.LevelFiles(firstLevel+3)) > 0
	backlogAtFirstLevel := len(snapshot.LevelFiles(firstLevel+1)) > 0
	if !exceedsByMargin && !laggingWithBacklog && !backlogAtFirstLevel {
		return nil, false
	}

	if cur >= kHyperLevelsNumMax {
		// Already at the maximum number of hyper-levels; nothing further
		// to promote to. The engine will keep running ordinary level
		// compactions against the oversized terminal level.
		return nil, false
	}

	const maxLevelsToMove = 2 * kLevelsToMergeMax // 16

	var inputs []LevelInputs
	levelsMoved := 0
	for level := lastLevelInHyper(cur); level >= firstLevelInHyper(cur) && levelsMoved < maxLevelsToMove; level-- {
		files := snapshot.LevelFiles(level)
		if len(files) == 0 {
			continue
		}
		inputs = append([]LevelInputs{{Level: level, Files: files}}, inputs...)
		levelsMoved++
	}
	if len(inputs) == 0 {
		return nil, false
	}

	newCur := cur + 1
	newLastLvl := lastLevel(newCur)

	plan := &CompactionPlan{
		Inputs:            inputs,
		OutputLevel:       newLastLvl,
		MaxSubcompactions: 1,
		Reason:            ReasonRearrange,
		IsTrivialMove:     true,
	}

	p.setCurHyperLevels(newCur)
	// The hyper-level that used to be terminal is now the
	// second-to-last; any cursor it held no longer means anything since
	// its output level geometry just changed.
	p.prevSubCompaction[cur].clear()

	return plan, true
}

// moveSstToLastLevel implements the fallback path in §4.9 step 4: when
// CheckDbSize cannot run (a compaction is already running in the terminal
// hyper-level, or a rearrange is running anywhere), but the hyper-level just
// above the terminal one has outgrown its expected share of the last
// level, trivially move its deepest level straight onto the terminal
// last level rather than waiting for an ordinary LevelPicker compaction
// to walk it down one hyper-level at a time.
func (p *Picker) moveSstToLastLevel(snapshot manifest.Snapshot) *CompactionPlan {
	cur := p.curHyperLevels()
	prev := cur - 1
	if prev <= 0 {
		return nil
	}

	level := lastLevelInHyper(prev)
	files := snapshot.LevelFiles(level)
	if len(files) == 0 {
		return nil
	}

	levelBytes := snapshot.NumLevelBytes(level)
	lastBytes := snapshot.NumLevelBytes(lastLevel(cur))
	if float64(levelBytes)*float64(p.multiplier[cur])*float64(p.spaceAmpFactor) <= float64(lastBytes) {
		return nil
	}

	return &CompactionPlan{
		Inputs:            []LevelInputs{{Level: level, Files: files}},
		OutputLevel:       lastLevel(cur),
		MaxSubcompactions: 1,
		Reason:            ReasonRearrange,
		IsTrivialMove:     true,
	}
}
