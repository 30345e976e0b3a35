package speedb

import (
	"github.com/cockroachdb/errors"
	"github.com/wanghenshui/speedb/internal/base"
	"github.com/wanghenshui/speedb/internal/manifest"
)

const (
	// maxFreeAdditionBytes bounds how large the S-level side of a
	// selection may grow while absorbing files that don't intersect any
	// further output-level file, per §4.7.2 step 2.
	maxFreeAdditionBytes = 64 << 20
	// maxOutputToInputRatio bounds how much larger the accumulated
	// output-level (T) bytes may grow relative to the accumulated S-level
	// bytes while still absorbing a "free" file.
	maxOutputToInputRatio = 2
)

// nBufferSelection accumulates the state SelectNBuffers builds up while
// walking outward from the start level, per §4.7.2.
type nBufferSelection struct {
	cmp base.Compare

	smallest, largest []byte
	lowerBound        []byte // exclusive; nil means unbounded
	upperBound        []byte // exclusive; nil means unbounded

	sLevel      int
	sFiles      []*manifest.File // the files selected from level S
	sBytes      uint64
	tBytes      uint64
	outputLevel int
	tFiles      []*manifest.File

	// nBuffers bounds how far computeInitialBounds looks past the
	// overlap's last T-file when the seed range intersects the output
	// level, giving extendAcrossStartLevel room to grow the S-window by
	// up to this many files before the bound closes in.
	nBuffers int

	lastFileWasSelected bool
}

// pickLevelRange implements §4.7: LevelPicker / SelectNBuffers, the
// key-range selection core. Given a target hyper-level h, it expands a
// coherent set of files from the last non-empty level downward through
// the hyper-level and into the next hyper-level's output level.
func (p *Picker) pickLevelRange(h int, snapshot manifest.Snapshot) *CompactionPlan {
	// The orchestrator only calls pickLevelRange after
	// needToRunLevelCompaction(h) has confirmed the hyper-level's last
	// level is non-empty; if that no longer holds here, the caller and
	// the decision engine have fallen out of sync, which is a bug.
	if len(snapshot.LevelFiles(lastLevelInHyper(h))) == 0 {
		panic(errors.AssertionFailedf("pickLevelRange: hyper-level %d has an empty last level", h))
	}

	firstPlus3 := firstLevelInHyper(h) + 3

	S := -1
	for level := lastLevelInHyper(h); level >= firstPlus3; level-- {
		if len(snapshot.LevelFiles(level)) > 0 {
			S = level
			break
		}
	}
	if S < firstPlus3 {
		// Nothing to pick: the start level is below the receiving room
		// reserved for rearranges/L0 outputs, or the hyper-level is
		// entirely empty at and below that point.
		return nil
	}

	feeding := &p.prevSubCompaction[h-1]
	if !feeding.empty() && feeding.OutputLevel+1 > S {
		return nil
	}

	cmp := p.opts.Comparer
	sFilesAll := snapshot.LevelFiles(S)

	startIdx := 0
	if cursor := &p.prevSubCompaction[h]; !cursor.empty() {
		for startIdx < len(sFilesAll) && cmp(sFilesAll[startIdx].Smallest, cursor.LastKey) <= 0 {
			startIdx++
		}
	}
	if startIdx >= len(sFilesAll) {
		return nil
	}

	outputLevel := p.targetOutputLevel(h, S, snapshot)

	sel := &nBufferSelection{
		cmp:         cmp,
		sLevel:      S,
		outputLevel: outputLevel,
		smallest:    sFilesAll[startIdx].Smallest,
		largest:     sFilesAll[startIdx].Largest,
	}
	sel.sFiles = append(sel.sFiles, sFilesAll[startIdx])
	sel.sBytes += sFilesAll[startIdx].Size

	// Reuse the in-flight cursor's output level if our range starts past
	// it, per §4.7.1.
	if cursor := &p.prevSubCompaction[h]; !cursor.empty() && cmp(sel.smallest, cursor.LastKey) > 0 {
		sel.outputLevel = cursor.OutputLevel
	}

	tFilesAll := snapshot.LevelFiles(sel.outputLevel)
	nBuffers := p.multiplier[h] + 2
	sel.nBuffers = nBuffers

	sel.computeInitialBounds(tFilesAll)
	sel.extendAcrossStartLevel(sFilesAll, startIdx, tFilesAll, nBuffers)
	sel.stretchTies(sFilesAll, tFilesAll)
	sel.lastFileWasSelected = sel.sFiles[len(sel.sFiles)-1] == sFilesAll[len(sFilesAll)-1]

	expanded := p.expandSelection(h, S, sel, snapshot)
	sel.tFiles = manifest.Overlaps(manifest.Compare(cmp), tFilesAll, sel.smallest, sel.largest)
	sel.tFiles = extendForVersionTies(cmp, tFilesAll, sel.tFiles)

	isTrivial := len(sel.tFiles) == 0 && isAllOtherSlicesEmpty(expanded, S)

	var inputs []LevelInputs
	for level := firstPlus3; level < S; level++ {
		if files := expanded[level]; len(files) > 0 {
			inputs = append(inputs, LevelInputs{Level: level, Files: files})
		}
	}
	inputs = append(inputs, LevelInputs{Level: S, Files: sel.sFiles})
	if len(sel.tFiles) > 0 {
		inputs = append(inputs, LevelInputs{Level: sel.outputLevel, Files: sel.tFiles})
	}

	if !sel.lastFileWasSelected {
		p.prevSubCompaction[h].OutputLevel = sel.outputLevel
		p.prevSubCompaction[h].LastKey = append([]byte(nil), sel.upperBoundOrLargest()...)
	} else {
		p.prevSubCompaction[h].clear()
	}

	return &CompactionPlan{
		Inputs:            inputs,
		OutputLevel:       sel.outputLevel,
		MaxSubcompactions: p.subcompactionCount(h, snapshot),
		Grandparents:      p.grandparentsFor(h, sel, snapshot),
		Reason:            ReasonLevelMaxLevelSize,
		IsTrivialMove:     isTrivial,
	}
}

// targetOutputLevel implements the T selection rule of §4.7.1: for
// h < cur_num_hyper_levels, the deepest physical level in hyper-level h+1
// whose successor is empty; for the terminal hyper-level, the database's
// last level.
func (p *Picker) targetOutputLevel(h, s int, snapshot manifest.Snapshot) int {
	cur := p.curHyperLevels()
	if h == cur {
		return lastLevel(cur)
	}
	first := firstLevelInHyper(h + 1)
	last := lastLevelInHyper(h + 1)
	target := first
	for level := first; level <= last; level++ {
		if len(snapshot.LevelFiles(level)) == 0 {
			break
		}
		target = level
	}
	return target
}

// computeInitialBounds sets lowerBound/upperBound from the output level's
// files around the seed key range, per §4.7.2 step 1.
func (sel *nBufferSelection) computeInitialBounds(tFiles []*manifest.File) {
	overlap := manifest.Overlaps(manifest.Compare(sel.cmp), tFiles, sel.smallest, sel.largest)
	if len(overlap) == 0 {
		sel.lowerBound, sel.upperBound, sel.tBytes = nil, nil, 0
		var prevT, nextT *manifest.File
		for _, f := range tFiles {
			if sel.cmp(f.Largest, sel.smallest) < 0 {
				prevT = f
			} else if nextT == nil && sel.cmp(f.Smallest, sel.largest) > 0 {
				nextT = f
				break
			}
		}
		if prevT != nil {
			sel.lowerBound = prevT.Largest
		}
		if nextT != nil {
			sel.upperBound = nextT.Smallest
		}
		return
	}

	first, last := overlap[0], overlap[len(overlap)-1]
	for _, f := range tFiles {
		if f == first {
			break
		}
		sel.lowerBound = f.Largest
	}
	sel.tBytes = manifest.TotalSize(overlap)

	// An intersection exists, so expand the bound to give up to nBuffers
	// worth of T-files room: walk forward from last's position by
	// nBuffers slots (stopping early at the end of tFiles) and take that
	// far file's Largest key, rather than closing the bound in right at
	// the overlap's edge.
	lastIdx := -1
	for i, f := range tFiles {
		if f == last {
			lastIdx = i
			break
		}
	}
	endIdx := lastIdx + sel.nBuffers
	if endIdx < len(tFiles) {
		sel.upperBound = tFiles[endIdx].Largest
	} else {
		sel.upperBound = nil
	}
}

// extendAcrossStartLevel implements §4.7.2 step 2: greedily extend the
// S-level window one file at a time while write-amplification heuristics
// stay favourable.
func (sel *nBufferSelection) extendAcrossStartLevel(
	sFiles []*manifest.File, startIdx int, tFiles []*manifest.File, nBuffers int,
) {
	for i := startIdx + 1; i < len(sFiles); i++ {
		f := sFiles[i]
		if sel.upperBound != nil && sel.cmp(f.Largest, sel.upperBound) >= 0 {
			break
		}

		overlapsFurtherT := fileIntersects(sel.cmp, tFiles, f, sel.upperBound)
		if !overlapsFurtherT {
			fits := len(sel.sFiles)+1 <= nBuffers &&
				sel.sBytes+f.Size < maxFreeAdditionBytes &&
				sel.tBytes < maxOutputToInputRatio*(sel.sBytes+f.Size)
			if !fits {
				break
			}
		} else {
			if len(sel.sFiles) >= nBuffers {
				break
			}
			furthestT := furthestOverlapping(sel.cmp, tFiles, sel.smallest, f.Largest)
			if furthestT != nil && sel.cmp(f.Smallest, furthestT.Largest) > 0 {
				break
			}
		}

		sel.sFiles = append(sel.sFiles, f)
		sel.sBytes += f.Size
		if sel.cmp(f.Largest, sel.largest) > 0 {
			sel.largest = f.Largest
		}
		sel.computeInitialBounds(tFiles)
	}
}

// stretchTies implements §4.7.2 step 3: if the immediate successor of the
// S-window shares a user-key boundary with the window's current largest
// key, extend the window to include it, since the same key's multiple
// versions must compact together.
func (sel *nBufferSelection) stretchTies(sFiles []*manifest.File, tFiles []*manifest.File) {
	for {
		last := sel.sFiles[len(sel.sFiles)-1]
		idx := -1
		for i, f := range sFiles {
			if f == last {
				idx = i
				break
			}
		}
		if idx == -1 || idx+1 >= len(sFiles) {
			return
		}
		next := sFiles[idx+1]
		if sel.cmp(next.Smallest, sel.largest) != 0 {
			return
		}
		sel.sFiles = append(sel.sFiles, next)
		sel.sBytes += next.Size
		if sel.cmp(next.Largest, sel.largest) > 0 {
			sel.largest = next.Largest
		}
		sel.computeInitialBounds(tFiles)
	}
}

// upperBoundOrLargest returns the cursor value to record for the next
// sub-compaction: the computed upper bound, or the selection's own largest
// key when the upper bound is unbounded.
func (sel *nBufferSelection) upperBoundOrLargest() []byte {
	if sel.upperBound != nil {
		return sel.upperBound
	}
	return sel.largest
}

// expandSelection implements §4.7.2 step 5: for each level from S-1 down
// to first_level_in_hyper(h)+3, select files within the established
// bounds that intersect the key range, tightening upperBound whenever a
// blocking file is encountered, and skipping files that belong to the
// previous slice by a left-boundary version tie.
func (p *Picker) expandSelection(
	h, s int, sel *nBufferSelection, snapshot manifest.Snapshot,
) map[int][]*manifest.File {
	out := make(map[int][]*manifest.File)
	firstPlus3 := firstLevelInHyper(h) + 3
	for level := s - 1; level >= firstPlus3; level-- {
		files := snapshot.LevelFiles(level)
		var picked []*manifest.File
		for i, f := range files {
			if sel.lowerBound != nil && sel.cmp(f.Smallest, sel.lowerBound) < 0 {
				continue
			}
			if sel.upperBound != nil && sel.cmp(f.Largest, sel.upperBound) >= 0 {
				sel.upperBound = f.Smallest
				continue
			}
			if sel.cmp(f.Largest, sel.smallest) < 0 || sel.cmp(f.Smallest, sel.largest) > 0 {
				continue
			}
			if i > 0 && sel.cmp(files[i-1].Largest, f.Smallest) == 0 &&
				sel.lowerBound != nil && sel.cmp(files[i-1].Largest, sel.lowerBound) < 0 {
				// f shares a user-key with its predecessor, which falls
				// before our lower bound and therefore belongs to the
				// previous slice.
				continue
			}
			picked = append(picked, f)
		}
		if len(picked) > 0 {
			out[level] = picked
		}
	}
	return out
}

// fileIntersects reports whether f's key range intersects any file in
// tFiles bounded by upperBound.
func fileIntersects(cmp base.Compare, tFiles []*manifest.File, f *manifest.File, upperBound []byte) bool {
	for _, t := range tFiles {
		if upperBound != nil && cmp(t.Smallest, upperBound) >= 0 {
			break
		}
		if cmp(t.Largest, f.Smallest) >= 0 && cmp(t.Smallest, f.Largest) <= 0 {
			return true
		}
	}
	return false
}

// furthestOverlapping returns the deepest (by Smallest key) file in
// tFiles whose range intersects [lo, hi].
func furthestOverlapping(cmp base.Compare, tFiles []*manifest.File, lo, hi []byte) *manifest.File {
	var furthest *manifest.File
	for _, t := range tFiles {
		if cmp(t.Largest, lo) >= 0 && cmp(t.Smallest, hi) <= 0 {
			furthest = t
		}
	}
	return furthest
}

// extendForVersionTies implements §4.7.2 step 6's predecessor/successor
// version-tie extension: files sharing a user-key boundary with the first
// or last selected output-level file must be included too.
func extendForVersionTies(cmp base.Compare, all, selected []*manifest.File) []*manifest.File {
	if len(selected) == 0 {
		return selected
	}
	idxOf := func(target *manifest.File) int {
		for i, f := range all {
			if f == target {
				return i
			}
		}
		return -1
	}
	out := append([]*manifest.File(nil), selected...)
	if i := idxOf(selected[0]); i > 0 && manifest.SameUserKeyBoundary(manifest.Compare(cmp), all[i-1], all[i]) {
		out = append([]*manifest.File{all[i-1]}, out...)
	}
	if i := idxOf(selected[len(selected)-1]); i >= 0 && i+1 < len(all) &&
		manifest.SameUserKeyBoundary(manifest.Compare(cmp), all[i], all[i+1]) {
		out = append(out, all[i+1])
	}
	return out
}

// isAllOtherSlicesEmpty reports whether every intermediate level between
// the receiving room and the start level S (exclusive) is empty of
// selected files, used by the §4.7.2 step 7 trivial-move detection.
func isAllOtherSlicesEmpty(expanded map[int][]*manifest.File, s int) bool {
	for level, files := range expanded {
		if level != s && len(files) > 0 {
			return false
		}
	}
	return true
}

// subcompactionCount implements the final-revision sub-compaction count
// arithmetic adopted in §9: start with 1, add one per non-empty level in
// {first+2 .. first+5}; if h is the terminal hyper-level, further scale
// by how much the hyper-level exceeds its expected share, capped at 4.
func (p *Picker) subcompactionCount(h int, snapshot manifest.Snapshot) int {
	n := 1
	first := firstLevelInHyper(h)
	for level := first + 2; level <= first+5 && level <= lastLevelInHyper(h); level++ {
		if len(snapshot.LevelFiles(level)) > 0 {
			n++
		}
	}
	if h == p.curHyperLevels() {
		lastBytes := snapshot.NumLevelBytes(lastLevel(p.curHyperLevels()))
		hyperBytes := sumHyperLevelBytes(snapshot, h)
		if lastBytes > 0 {
			extra := float64(hyperBytes)*10/float64(lastBytes) - 10
			if extra > 0 {
				n += int(extra)
				if n > 4 {
					n = 4
				}
			}
		}
	}
	if n > 4 {
		n = 4
	}
	if n < 1 {
		n = 1
	}
	return n
}

// grandparentsFor builds the overlap hints the engine uses to bound
// output file size: every file at the level below the output level whose
// key range intersects the selection. The list is not trimmed against an
// output file size; no such size is consulted.
func (p *Picker) grandparentsFor(h int, sel *nBufferSelection, snapshot manifest.Snapshot) []*manifest.File {
	grandparentLevel := sel.outputLevel + 1
	if grandparentLevel >= snapshot.NumLevels() {
		return nil
	}
	return manifest.Overlaps(manifest.Compare(p.opts.Comparer), snapshot.LevelFiles(grandparentLevel), sel.smallest, sel.largest)
}
