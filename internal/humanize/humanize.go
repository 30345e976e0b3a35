// Package humanize formats byte counts for the picker's observability
// surface (PrintLsmState and log lines), the way the rest of the engine
// renders sizes for operators.
package humanize

import "fmt"

const mib = 1024 * 1024

// MiB renders n bytes as a fixed-point count of mebibytes, e.g. "42.5MiB".
func MiB(n uint64) string {
	return fmt.Sprintf("%.1fMiB", float64(n)/float64(mib))
}

// Bytes renders n bytes using the largest unit that keeps the mantissa
// under 1024, e.g. "512B", "3.4KiB", "2.1GiB".
func Bytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	units := "KMGTPE"
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), units[exp])
}
