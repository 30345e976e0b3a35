package speedb

import (
	"math"

	"github.com/wanghenshui/speedb/internal/manifest"
)

// mayStartLevelCompaction implements §4.3's MayStartLevelCompaction(h).
func (p *Picker) mayStartLevelCompaction(h int, snapshot manifest.Snapshot, running *RunningSet) bool {
	if running.at(h).nCompactions != 0 {
		return false
	}
	if h < p.curHyperLevels() && p.prevSubCompaction[h].empty() {
		nextFirst := lastLevelInHyper(h) + 1
		if len(snapshot.LevelFiles(nextFirst)) > 0 {
			return false
		}
	}
	return true
}

// mayRunRearange implements §4.3's MayRunRearange(h).
func (p *Picker) mayRunRearange(h int, running *RunningSet) bool {
	return h > 0 && !running.rearrangeRunning && running.at(h).nCompactions == 0
}

// mayRunCompaction implements §4.3's MayRunCompaction(h).
func (p *Picker) mayRunCompaction(h int, running *RunningSet) bool {
	if running.at(h).nCompactions != 0 {
		return false
	}
	if h == p.curHyperLevels() {
		return true
	}
	return !running.at(h + 1).hasRearrange
}

// levelNeedsRearange implements §4.3's LevelNeedsRearange(h, first_level):
// scanning [firstLevel, lastLevelInH], it returns true iff after seeing a
// non-empty level we later see an empty one, i.e. an inner hole exists.
func levelNeedsRearange(snapshot manifest.Snapshot, firstLevel, lastLevelInH int) bool {
	seenNonEmpty := false
	for level := firstLevel; level <= lastLevelInH; level++ {
		if len(snapshot.LevelFiles(level)) > 0 {
			seenNonEmpty = true
		} else if seenNonEmpty {
			return true
		}
	}
	return false
}

// needToRunLevelCompaction implements §4.3's NeedToRunLevelCompaction(h).
func (p *Picker) needToRunLevelCompaction(h int, snapshot manifest.Snapshot) bool {
	if h == 0 {
		return len(snapshot.LevelFiles(0)) >= p.opts.L0CompactionTrigger
	}

	lastInH := lastLevelInHyper(h)
	if len(snapshot.LevelFiles(lastInH)) == 0 {
		return false
	}

	forceLevel := lastInH - p.multiplier[h] - 6
	if forceLevel >= 0 && len(snapshot.LevelFiles(forceLevel)) > 0 {
		return true
	}

	var sum uint64
	for level := firstLevelInHyper(h); level <= lastInH; level++ {
		sum += snapshot.NumLevelBytes(level)
	}

	lastLevelBytes := snapshot.NumLevelBytes(lastLevel(p.curHyperLevels()))
	denom := float64(p.spaceAmpFactor) * 1.1
	prod := 1.0
	for hh := h; hh <= p.curHyperLevels(); hh++ {
		prod *= float64(p.multiplier[hh])
	}
	projectedShare := float64(lastLevelBytes) / denom / prod
	threshold := math.Min(float64(p.sizeToCompact[h]), projectedShare)

	return float64(sum) > threshold
}

// NeedsCompaction is the cheap, lock-free probe the engine's scheduler
// uses to decide whether to invoke PickCompaction at all, per §4.3 and
// §5. It is advisory: it may race with concurrent updates, and
// correctness is established only once PickCompaction is actually
// invoked.
func (p *Picker) NeedsCompaction(snapshot manifest.Snapshot) bool {
	if !p.initialized {
		return true
	}
	if len(snapshot.LevelFiles(0)) >= p.opts.L0CompactionTrigger {
		return true
	}
	cur := p.curHyperLevels()
	for h := 1; h <= cur; h++ {
		if levelNeedsRearange(snapshot, firstLevelInHyper(h), lastLevelInHyper(h)) {
			return true
		}
		if p.needToRunLevelCompaction(h, snapshot) {
			return true
		}
	}
	if len(snapshot.LevelFiles(lastLevel(cur))) > p.maxOpenFiles/2 {
		return true
	}
	return false
}
