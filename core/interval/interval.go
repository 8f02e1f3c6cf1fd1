// Package interval implements the pure interval algebra the availability
// pipeline is built on: normalising raw interval lists and subtracting
// removal sets from addition sets.
package interval

import (
	"fmt"
	"sort"
	"time"
)

// DefaultMinDuration is the purge threshold applied by Merge when the caller
// passes zero: residual intervals shorter than this are dropped.
const DefaultMinDuration = time.Minute

// Interval is a half-open [Start, End) time range in UTC.
type Interval struct {
	Start time.Time
	End   time.Time
}

// New builds an interval with both endpoints normalised to UTC.
func New(start, end time.Time) Interval {
	return Interval{Start: start.UTC(), End: end.UTC()}
}

// Duration returns End - Start.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// IsValid reports whether the interval is non-empty.
func (iv Interval) IsValid() bool {
	return iv.End.After(iv.Start)
}

// Contains reports whether other lies entirely inside iv.
func (iv Interval) Contains(other Interval) bool {
	return !other.Start.Before(iv.Start) && !other.End.After(iv.End)
}

// Overlaps reports whether the two half-open intervals share any instant.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Clip returns the part of iv inside window, and whether anything remains.
func (iv Interval) Clip(window Interval) (Interval, bool) {
	out := iv
	if out.Start.Before(window.Start) {
		out.Start = window.Start
	}
	if out.End.After(window.End) {
		out.End = window.End
	}
	if !out.IsValid() {
		return Interval{}, false
	}
	return out, true
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%s, %s)", iv.Start.Format(time.RFC3339), iv.End.Format(time.RFC3339))
}

// Normalize sorts the intervals by start and merges every overlapping or
// touching pair, returning a disjoint ascending sequence. Empty intervals are
// dropped. The input slice is not modified; Normalize is idempotent.
func Normalize(ivs []Interval) []Interval {
	in := make([]Interval, 0, len(ivs))
	for _, iv := range ivs {
		if iv.IsValid() {
			in = append(in, New(iv.Start, iv.End))
		}
	}
	if len(in) == 0 {
		return nil
	}
	sort.Slice(in, func(i, j int) bool { return in[i].Start.Before(in[j].Start) })

	out := []Interval{in[0]}
	for _, iv := range in[1:] {
		last := &out[len(out)-1]
		// a.end >= b.start means the two intervals fuse.
		if !last.End.Before(iv.Start) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// Merge subtracts the remove set from the add set. Both inputs are
// normalised first, so callers may pass raw rule expansions. A remove
// interval strictly inside an add interval splits it in two; one covering it
// eliminates it; a partial overlap truncates one end. Residuals shorter than
// minDuration are purged (zero selects DefaultMinDuration; negative disables
// the purge).
func Merge(add, remove []Interval, minDuration time.Duration) []Interval {
	if minDuration == 0 {
		minDuration = DefaultMinDuration
	}
	adds := Normalize(add)
	removes := Normalize(remove)

	var out []Interval
	for _, a := range adds {
		residuals := subtract(a, removes)
		for _, r := range residuals {
			if minDuration > 0 && r.Duration() < minDuration {
				continue
			}
			out = append(out, r)
		}
	}
	return out
}

// subtract removes every overlapping interval in removes (disjoint,
// ascending) from a, returning the remaining pieces in order.
func subtract(a Interval, removes []Interval) []Interval {
	pieces := []Interval{a}
	for _, rm := range removes {
		if !rm.Start.Before(a.End) {
			break
		}
		var next []Interval
		for _, p := range pieces {
			if !p.Overlaps(rm) {
				next = append(next, p)
				continue
			}
			if left := New(p.Start, rm.Start); left.IsValid() {
				next = append(next, left)
			}
			if right := New(rm.End, p.End); right.IsValid() {
				next = append(next, right)
			}
		}
		pieces = next
	}
	return pieces
}

// Equal reports whether two interval sequences are identical element-wise.
func Equal(a, b []Interval) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Start.Equal(b[i].Start) || !a[i].End.Equal(b[i].End) {
			return false
		}
	}
	return true
}
