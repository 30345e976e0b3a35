package speedb

import "github.com/wanghenshui/speedb/internal/manifest"

// MemSnapshot is an in-memory manifest.Snapshot implementation, used by
// tests and the cmd/hybridpicker inspection tool to exercise the picker
// against a synthetic on-disk state without an actual engine.
type MemSnapshot struct {
	Levels [][]*manifest.File
}

// NumLevels implements manifest.Snapshot.
func (s *MemSnapshot) NumLevels() int {
	return len(s.Levels)
}

// LevelFiles implements manifest.Snapshot.
func (s *MemSnapshot) LevelFiles(level int) []*manifest.File {
	if level < 0 || level >= len(s.Levels) {
		return nil
	}
	return s.Levels[level]
}

// NumLevelBytes implements manifest.Snapshot.
func (s *MemSnapshot) NumLevelBytes(level int) uint64 {
	return manifest.TotalSize(s.LevelFiles(level))
}

// EnsureLevels grows s.Levels so that level n is addressable.
func (s *MemSnapshot) EnsureLevels(n int) {
	for len(s.Levels) <= n {
		s.Levels = append(s.Levels, nil)
	}
}

var _ manifest.Snapshot = (*MemSnapshot)(nil)
