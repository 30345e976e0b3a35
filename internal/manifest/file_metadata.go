// Package manifest holds the on-disk-state types the picker reads: the
// immutable File (sorted-string-table) descriptor and the per-level
// collections of them. The picker borrows these from the engine's
// LevelSnapshot for the lifetime of a single PickCompaction call; it never
// mutates them.
package manifest

import "fmt"

// File describes one immutable sorted-string table. Keys are opaque byte
// strings; FileNum is an engine-assigned identity used only so the picker
// can recognize "the same file" across levels and report it in plans.
type File struct {
	FileNum      uint64
	Smallest     []byte
	Largest      []byte
	Size         uint64
	RawValueSize uint64
}

// String implements fmt.Stringer, matching the terse %06d.sst-style file
// identifiers the engine uses in its own logging.
func (f *File) String() string {
	if f == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%06d", f.FileNum)
}

// Empty reports whether a level's file slice holds no files.
func Empty(files []*File) bool {
	return len(files) == 0
}

// TotalSize sums the Size of every file in files.
func TotalSize(files []*File) uint64 {
	var sum uint64
	for _, f := range files {
		sum += f.Size
	}
	return sum
}

// Compare is the comparator type shared with internal/base, redeclared
// here so that manifest stays usable standalone without importing it.
type Compare func(a, b []byte) int

// KeyRange returns the smallest and largest key bound across files,
// according to cmp. Returns nil, nil if files is empty.
func KeyRange(cmp Compare, files []*File) (smallest, largest []byte) {
	if len(files) == 0 {
		return nil, nil
	}
	smallest, largest = files[0].Smallest, files[0].Largest
	for _, f := range files[1:] {
		if cmp(f.Smallest, smallest) < 0 {
			smallest = f.Smallest
		}
		if cmp(f.Largest, largest) > 0 {
			largest = f.Largest
		}
	}
	return smallest, largest
}

// Overlaps returns the subset of files whose [Smallest, Largest] range
// intersects [start, end]. A nil/empty start or end bound is unbounded on
// that side.
func Overlaps(cmp Compare, files []*File, start, end []byte) []*File {
	var out []*File
	for _, f := range files {
		if start != nil && cmp(f.Largest, start) < 0 {
			continue
		}
		if end != nil && cmp(f.Smallest, end) > 0 {
			continue
		}
		out = append(out, f)
	}
	return out
}

// SameUserKeyBoundary reports whether the largest key of a and the
// smallest key of b are the same user key, meaning a and b hold different
// sequence-numbered versions of one key and must never be split across two
// compactions.
func SameUserKeyBoundary(cmp Compare, a, b *File) bool {
	if a == nil || b == nil {
		return false
	}
	return cmp(a.Largest, b.Smallest) == 0
}
