package speedb

// RunningCompaction is the minimal information the engine supplies about
// one in-flight compaction: enough for the picker to attribute it to a
// hyper-level and classify it, without knowing any of its internal
// bookkeeping.
type RunningCompaction struct {
	StartLevel int
	Reason     CompactionReason
}

// hyperLevelRunning is the per-hyper-level slice of a RunningSet, matching
// RunningDescriptor in §3.
type hyperLevelRunning struct {
	nCompactions int
	startLevel   int
	hasRearrange bool
}

// RunningSet is a snapshot of every compaction currently in flight for one
// column family, keyed by hyper-level, built fresh at the top of every
// PickCompaction call.
type RunningSet struct {
	levels                  []hyperLevelRunning // index 0..curNumHyperLevels
	rearrangeRunning        bool
	manualCompactionRunning bool
}

// buildRunningSet scans the engine-supplied list of in-flight compactions
// and the separately maintained L0 in-progress counter, and classifies
// each by hyper-level, per §4.2.
func buildRunningSet(
	curNumHyperLevels int, running []RunningCompaction, l0CompactionsInProgress int,
) *RunningSet {
	rs := &RunningSet{
		levels: make([]hyperLevelRunning, curNumHyperLevels+1),
	}
	rs.levels[0].nCompactions = l0CompactionsInProgress

	last := lastLevel(curNumHyperLevels)
	for _, c := range running {
		h := hyperOf(c.StartLevel)
		if c.StartLevel >= last {
			h = curNumHyperLevels
		}
		if h > curNumHyperLevels {
			h = curNumHyperLevels
		}
		if h < 0 {
			continue
		}
		if h != 0 { // L0's counter is tracked separately above.
			rs.levels[h].nCompactions++
		}
		rs.levels[h].startLevel = c.StartLevel
		if c.Reason == ReasonRearrange {
			rs.levels[h].hasRearrange = true
			rs.rearrangeRunning = true
		}
		if c.Reason == ReasonManual {
			rs.manualCompactionRunning = true
		}
	}
	return rs
}

// at returns the RunningDescriptor for hyper-level h, or a zero value if
// h is out of range (treated as "nothing running there").
func (rs *RunningSet) at(h int) hyperLevelRunning {
	if h < 0 || h >= len(rs.levels) {
		return hyperLevelRunning{}
	}
	return rs.levels[h]
}
