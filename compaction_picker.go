package speedb

import (
	"bytes"
	"fmt"

	"github.com/guptarohit/asciigraph"
	"github.com/olekukonko/tablewriter"
	"github.com/wanghenshui/speedb/internal/humanize"
	"github.com/wanghenshui/speedb/internal/manifest"
)

// CompactionPicker is the engine-facing decision surface described in
// §6. It never touches bytes on disk; it only inspects a LevelSnapshot
// and reports what to merge next, if anything.
type CompactionPicker interface {
	// NeedsCompaction is a cheap, lock-free probe the scheduler can poll
	// often.
	NeedsCompaction(snapshot manifest.Snapshot) bool
	// PickCompaction runs the full decision procedure and returns the
	// chosen plan, or nil if nothing should run right now.
	PickCompaction(snapshot manifest.Snapshot, running []RunningCompaction, l0CompactionsInProgress int) *CompactionPlan
	// PrintLsmState writes a human-readable report of per-hyper-level
	// byte sums to sink.
	PrintLsmState(snapshot manifest.Snapshot, sink EventSink)
	// EnableLowPriorityCompaction toggles the stubbed opportunistic
	// consolidation path described in §9's open question.
	EnableLowPriorityCompaction(enable bool)
}

var _ CompactionPicker = (*Picker)(nil)

// EnableLowPriorityCompaction implements CompactionPicker.
func (p *Picker) EnableLowPriorityCompaction(enable bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lowPriorityEnabled = enable
}

// PickCompaction implements §4.9: the mutex-serialised decision procedure
// composing every other component, in order, returning the first
// non-null plan.
func (p *Picker) PickCompaction(
	snapshot manifest.Snapshot, running []RunningCompaction, l0CompactionsInProgress int,
) *CompactionPlan {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		p.initCf(snapshot)
	}
	p.limiter.SetTerminalCapacity(p.opts.LastLevelThreadsNum())

	rs := buildRunningSet(p.curHyperLevels(), running, l0CompactionsInProgress)
	if rs.manualCompactionRunning {
		return nil
	}

	cur := p.curHyperLevels()

	for h := 1; h <= cur; h++ {
		if rs.at(h - 1).nCompactions == 0 {
			p.prevSubCompaction[h-1].clear()
		}
		if p.mayRunRearange(h, rs) && levelNeedsRearange(snapshot, firstLevelInHyper(h), lastLevelInHyper(h)) {
			if plan := p.pickRearrange(h, snapshot); plan != nil {
				return p.register(plan)
			}
		}
	}

	if p.mayRunCompaction(cur, rs) && !rs.rearrangeRunning {
		if plan, promoted := p.checkDbSize(snapshot); promoted {
			return p.register(plan)
		}
	} else if plan := p.moveSstToLastLevel(snapshot); plan != nil {
		return p.register(plan)
	}

	if p.mayStartLevelCompaction(0, snapshot, rs) && len(snapshot.LevelFiles(0)) >= p.opts.L0CompactionTrigger {
		if plan := p.pickLevel0(snapshot); plan != nil {
			return p.register(plan)
		}
	}

	for h := 1; h <= cur; h++ {
		if p.mayStartLevelCompaction(h, snapshot, rs) && p.needToRunLevelCompaction(h, snapshot) {
			if plan := p.pickLevelRange(h, snapshot); plan != nil {
				return p.register(plan)
			}
		}
	}

	if len(snapshot.LevelFiles(lastLevel(cur))) > p.maxOpenFiles/2 {
		if plan := p.pickFileReducer(snapshot); plan != nil {
			return p.register(plan)
		}
	}

	if p.lowPriorityEnabled {
		// The low-priority consolidation path is intentionally left
		// unimplemented: per §9, the upstream thresholds for it never
		// stabilized across revisions and the code path never ran in
		// production. EnableLowPriorityCompaction still flips the flag
		// so callers can observe it, but pickLowPriority always returns
		// nil until the semantics are finalized.
		if plan := p.pickLowPriority(snapshot); plan != nil {
			return p.register(plan)
		}
	}

	return nil
}

// register records a chosen plan with the picker's metrics and the
// database-wide admission-control Limiter before handing it back to the
// caller, matching §4.9's closing sentence: "Each successful plan is
// registered with the engine's in-progress set before returning." Plans
// targeting the terminal level draw from the Limiter's reserved
// terminal-level pool (sized by LastLevelThreadsNum) rather than the
// general pool, so frequent terminal-level work under a tight space-amp
// budget doesn't starve against every other hyper-level's compactions.
func (p *Picker) register(plan *CompactionPlan) *CompactionPlan {
	if plan == nil {
		return nil
	}
	acquire := p.limiter.TryAcquire
	if plan.OutputLevel == lastLevel(p.curHyperLevels()) {
		acquire = p.limiter.TryAcquireTerminal
	}
	if !acquire() {
		return nil
	}
	p.metrics.recordPlan(plan)
	return plan
}

// pickLowPriority is the stubbed opportunistic path from §9's open
// question: "the source includes a sorted-run-reduction path gated by
// if (0 && enableLow_ ...)", i.e. dead code in every revision. Left
// unimplemented pending finalized thresholds.
func (p *Picker) pickLowPriority(snapshot manifest.Snapshot) *CompactionPlan {
	return nil
}

// PrintLsmState implements §6: it writes an array of per-hyper-level byte
// sums (in MiB) followed by the last level's bytes, as both a plotted
// ASCII graph and a tabular breakdown, matching the textual diagnostics
// the rest of the engine emits to its event sink and log.
func (p *Picker) PrintLsmState(snapshot manifest.Snapshot, sink EventSink) {
	p.mu.Lock()
	cur := p.curHyperLevels()
	p.mu.Unlock()

	mibPerHyper := make([]float64, cur+1)
	for h := 0; h <= cur; h++ {
		mibPerHyper[h] = float64(sumHyperLevelBytes(snapshot, h)) / (1 << 20)
	}
	lastMiB := float64(snapshot.NumLevelBytes(lastLevel(cur))) / (1 << 20)

	if sink != nil {
		sink.LevelSizes(mibPerHyper, lastMiB)
	}
	p.metrics.setLsmState(mibPerHyper, lastMiB)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "column family %q: %d hyper-levels\n", p.name, cur)
	if len(mibPerHyper) >= 2 {
		fmt.Fprintln(&buf, asciigraph.Plot(mibPerHyper, asciigraph.Height(8)))
	}

	tbl := tablewriter.NewWriter(&buf)
	tbl.SetHeader([]string{"hyper-level", "bytes"})
	for h, mib := range mibPerHyper {
		tbl.Append([]string{fmt.Sprintf("%d", h), humanize.MiB(uint64(mib * (1 << 20)))})
	}
	tbl.Append([]string{"last", humanize.MiB(uint64(lastMiB * (1 << 20)))})
	tbl.Render()

	p.opts.Logger.Infof("%s", buf.String())
}
