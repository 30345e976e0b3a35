package speedb

import (
	"bytes"

	"github.com/wanghenshui/speedb/internal/manifest"
)

const (
	fileReducerMaxRunLen     = 200
	fileReducerMaxFileSize   = 256 << 20
	fileReducerMaxRunCumSize = 1 << 30
)

// pickFileReducer implements §4.8: at the terminal last level, find the
// longest contiguous run of small adjacent files sharing a common key
// prefix, and emit a single-level self-merge that coalesces them.
func (p *Picker) pickFileReducer(snapshot manifest.Snapshot) *CompactionPlan {
	last := lastLevel(p.curHyperLevels())
	files := snapshot.LevelFiles(last)
	if len(files) < 2 {
		return nil
	}

	lastBytes := snapshot.NumLevelBytes(last)
	maxFileSize := lastBytes / 1024
	if maxFileSize > fileReducerMaxFileSize {
		maxFileSize = fileReducerMaxFileSize
	}
	prefixLen := p.opts.TableGroupingPrefixSize

	bestStart, bestLen := -1, 0
	i := 0
	for i < len(files) {
		if files[i].RawValueSize >= maxFileSize {
			i++
			continue
		}
		j := i + 1
		cum := files[i].Size
		for j < len(files) && j-i < fileReducerMaxRunLen {
			f := files[j]
			if f.RawValueSize >= maxFileSize {
				break
			}
			if !sharesKeyPrefix(files[i].Smallest, f.Smallest, prefixLen) {
				break
			}
			if cum+f.Size > fileReducerMaxRunCumSize {
				break
			}
			cum += f.Size
			j++
		}
		if runLen := j - i; runLen > bestLen {
			bestLen, bestStart = runLen, i
		}
		i = j
	}

	if bestLen < 2 {
		return nil
	}

	run := append([]*manifest.File(nil), files[bestStart:bestStart+bestLen]...)
	return &CompactionPlan{
		Inputs:            []LevelInputs{{Level: last, Files: run}},
		OutputLevel:       last,
		MaxSubcompactions: 1,
		Reason:            ReasonReduceNumFiles,
		IsTrivialMove:     false,
	}
}

// sharesKeyPrefix reports whether a and b agree on their first n bytes
// (or all bytes, if either is shorter than n).
func sharesKeyPrefix(a, b []byte, n int) bool {
	if len(a) < n {
		n = len(a)
	}
	if len(b) < n {
		n = len(b)
	}
	return bytes.Equal(a[:n], b[:n])
}
