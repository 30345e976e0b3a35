package manifest

// LevelMetadata is one physical level: files in ascending Smallest order,
// pairwise key-disjoint for any level above 0. Level 0 files may overlap
// arbitrarily and are kept in flush (oldest-first) order.
type LevelMetadata struct {
	Level int
	Files []*File
}

// TotalSize sums the byte size of every file in the level.
func (lm *LevelMetadata) TotalSize() uint64 {
	return TotalSize(lm.Files)
}

// Snapshot is the read-only view of a column family's on-disk state that
// the engine hands to the picker for the duration of one PickCompaction
// call. The picker never mutates it.
type Snapshot interface {
	// NumLevels returns the number of physical levels currently allocated,
	// including empty ones past the last non-empty level.
	NumLevels() int
	// LevelFiles returns the files of a physical level, in ascending
	// Smallest order (level 0 in flush order). May be empty.
	LevelFiles(level int) []*File
	// NumLevelBytes returns the total byte size of a physical level.
	// Equivalent to manifest.TotalSize(LevelFiles(level)) but may be
	// cheaper for the engine to serve from a running tally.
	NumLevelBytes(level int) uint64
}
