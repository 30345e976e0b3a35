package speedb

import "github.com/wanghenshui/speedb/internal/manifest"

// pickRearrange implements §4.5: given hyper-level h > 0, find the
// deepest empty level L within the hyper-level and collapse every
// non-empty level above it into L via a trivial move. Returns nil if the
// hyper-level has no empty slot to receive the move.
func (p *Picker) pickRearrange(h int, snapshot manifest.Snapshot) *CompactionPlan {
	lowerBound := firstLevelInHyper(h)
	if feeding := &p.prevSubCompaction[h-1]; !feeding.empty() {
		if feeding.OutputLevel+1 > lowerBound {
			lowerBound = feeding.OutputLevel + 1
		}
	}

	target := -1
	for level := lastLevelInHyper(h); level >= lowerBound; level-- {
		if len(snapshot.LevelFiles(level)) == 0 {
			target = level
			break
		}
	}
	if target == -1 {
		return nil
	}

	var inputs []LevelInputs
	for level := firstLevelInHyper(h); level < target; level++ {
		files := snapshot.LevelFiles(level)
		if len(files) == 0 {
			continue
		}
		inputs = append(inputs, LevelInputs{Level: level, Files: files})
	}
	if len(inputs) == 0 {
		return nil
	}

	return &CompactionPlan{
		Inputs:            inputs,
		OutputLevel:       target,
		MaxSubcompactions: 1,
		Reason:            ReasonRearrange,
		IsTrivialMove:     true,
		// Unbounded grandparent overlap: a trivial move never rewrites
		// bytes, so there's nothing to bound the output file size
		// against.
		Grandparents: nil,
	}
}
