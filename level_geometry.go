package speedb

// Constants governing the hyper-level geometry, per §2.
const (
	// kLevelsToMergeMin and kLevelsToMergeMax bound the configured
	// min-merge-width / per-hyper-level fan-in multiplier.
	kLevelsToMergeMin = 4
	kLevelsToMergeMax = 8

	// kLevelsInHyperLevel is the fixed number of physical levels a
	// hyper-level spans: (kLevelsToMergeMax+4)*2 = 24.
	kLevelsInHyperLevel = (kLevelsToMergeMax + 4) * 2

	// kHyperLevelsNumMax bounds how many hyper-levels a column family can
	// grow to.
	kHyperLevelsNumMax = 10
)

// firstLevelInHyper returns the shallowest physical level belonging to
// hyper-level h. Hyper-level 0 is exactly level 0.
func firstLevelInHyper(h int) int {
	if h == 0 {
		return 0
	}
	return (h-1)*kLevelsInHyperLevel + 1
}

// lastLevelInHyper returns the deepest physical level belonging to
// hyper-level h.
func lastLevelInHyper(h int) int {
	if h == 0 {
		return 0
	}
	return kLevelsInHyperLevel * h
}

// hyperOf returns the hyper-level a physical level belongs to.
func hyperOf(level int) int {
	if level == 0 {
		return 0
	}
	return ((level - 1) / kLevelsInHyperLevel) + 1
}

// lastLevel returns the terminal physical level holding the fully merged
// database, given the current hyper-level count.
func lastLevel(curNumHyperLevels int) int {
	return lastLevelInHyper(curNumHyperLevels) + 1
}
