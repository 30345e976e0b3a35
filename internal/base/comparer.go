// Package base holds the types shared by the picker's public API and its
// internal components: the key comparator and the logger interface.
package base

// Compare returns -1, 0, or +1 depending on whether a is less than, equal
// to, or greater than b, according to the column family's user-supplied
// total order over opaque key bytes.
//
// All of the picker's range logic is expressed in terms of this single
// function; it never interprets key bytes itself.
type Compare func(a, b []byte) int

// Equal reports whether a and b compare equal under cmp. Defined in terms of
// Compare so callers don't need a separate equality function wired in.
func Equal(cmp Compare, a, b []byte) bool {
	return cmp(a, b) == 0
}

// Less reports whether a sorts strictly before b under cmp.
func Less(cmp Compare, a, b []byte) bool {
	return cmp(a, b) < 0
}
