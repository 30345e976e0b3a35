package speedb

import "github.com/wanghenshui/speedb/internal/manifest"

// pickLevel0 implements §4.6: select a bounded tail of L0 files and find
// an empty target in hyper-level 1.
func (p *Picker) pickLevel0(snapshot manifest.Snapshot) *CompactionPlan {
	l0 := snapshot.LevelFiles(0)
	mergeWidth := p.multiplier[0]
	if len(l0) < mergeWidth {
		return nil
	}

	firstOfHyper1 := firstLevelInHyper(1)
	if len(snapshot.LevelFiles(firstOfHyper1)) > 0 {
		return nil
	}

	outputLevel := firstOfHyper1
	for level := firstOfHyper1 + 1; level <= lastLevelInHyper(1); level++ {
		if len(snapshot.LevelFiles(level)) > 0 {
			break
		}
		outputLevel = level
	}

	n := len(l0)
	truncated := n > mergeWidth
	if truncated {
		n = mergeWidth
	}
	inputFiles := l0[len(l0)-n:]

	subCompactions := 1
	if truncated {
		subCompactions = 2
	}

	var grandparents []*manifest.File
	if p.curHyperLevels() <= 2 {
		grandparents = snapshot.LevelFiles(lastLevel(p.curHyperLevels()))
	}

	p.prevSubCompaction[0].OutputLevel = outputLevel

	return &CompactionPlan{
		Inputs:            []LevelInputs{{Level: 0, Files: append([]*manifest.File(nil), inputFiles...)}},
		OutputLevel:       outputLevel,
		MaxSubcompactions: subCompactions,
		Grandparents:      grandparents,
		Reason:            ReasonL0FilesNum,
		IsTrivialMove:     false,
	}
}
