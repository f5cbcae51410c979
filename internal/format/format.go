// Package format renders byte counts and durations the way the
// end-of-run report prints them to the operator.
package format

import (
	"fmt"
	"strings"
	"time"
)

// Size holds a human-scaled byte count alongside the unit name it was
// scaled to, e.g. {1.5, "kilobytes"}.
type Size struct {
	Value float64
	Unit  string
}

// String renders the size with two decimal places, e.g. "1.50 kilobytes".
func (s Size) String() string {
	return fmt.Sprintf("%.2f %s", s.Value, s.Unit)
}

var sizePrefixes = []string{"byte", "kilobyte", "megabyte"}

// FormatSize scales a byte count down to the largest unit under which it
// is smaller than 1000, falling through byte/kilobyte/megabyte/gigabyte.
func FormatSize(bytes uint64) Size {
	size := float64(bytes)
	prefix := "gigabyte"
	for _, p := range sizePrefixes {
		if size < 1000 {
			prefix = p
			break
		}
		size /= 1000
	}
	if size != 1 {
		prefix += "s"
	}
	return Size{Value: size, Unit: prefix}
}

// FormatDuration renders a duration as a compact "1h2m3s"-style string,
// omitting any zero-valued leading components. A duration under a
// second still prints "0s" rather than an empty string.
func FormatDuration(d time.Duration) string {
	secs := int64(d / time.Second)

	neg := secs < 0
	if neg {
		secs = -secs
	}

	hours := secs / 3600
	secs %= 3600
	mins := secs / 60
	secs %= 60

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	if hours != 0 {
		fmt.Fprintf(&b, "%dh", hours)
	}
	if mins != 0 {
		fmt.Fprintf(&b, "%dm", mins)
	}
	if secs != 0 || (hours == 0 && mins == 0) {
		fmt.Fprintf(&b, "%ds", secs)
	}
	return b.String()
}
