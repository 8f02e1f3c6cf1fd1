package interval

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

// iv builds an interval offset from t0 in minutes.
func iv(startMin, endMin int) Interval {
	return New(t0.Add(time.Duration(startMin)*time.Minute), t0.Add(time.Duration(endMin)*time.Minute))
}

func TestNormalizeMergesOverlapsAndSorts(t *testing.T) {
	got := Normalize([]Interval{iv(50, 70), iv(0, 10), iv(5, 20), iv(20, 30)})
	want := []Interval{iv(0, 30), iv(50, 70)}
	if !Equal(got, want) {
		t.Fatalf("Normalize = %v, want %v", got, want)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	once := Normalize([]Interval{iv(0, 10), iv(8, 20), iv(40, 50)})
	twice := Normalize(once)
	if !Equal(once, twice) {
		t.Fatalf("Normalize not idempotent: %v vs %v", once, twice)
	}
}

func TestNormalizeDropsEmptyIntervals(t *testing.T) {
	got := Normalize([]Interval{iv(10, 10), iv(20, 5), iv(0, 2)})
	want := []Interval{iv(0, 2)}
	if !Equal(got, want) {
		t.Fatalf("Normalize = %v, want %v", got, want)
	}
}

func TestMergeIdentityLaws(t *testing.T) {
	add := []Interval{iv(0, 30), iv(10, 40), iv(100, 200)}

	// merge(add, nil) == normalize(add)
	if got, want := Merge(add, nil, -1), Normalize(add); !Equal(got, want) {
		t.Fatalf("Merge(add, nil) = %v, want %v", got, want)
	}

	// merge(nil, remove) == nil
	if got := Merge(nil, add, -1); len(got) != 0 {
		t.Fatalf("Merge(nil, remove) = %v, want empty", got)
	}
}

func TestMergeSplitsOnInteriorRemove(t *testing.T) {
	got := Merge([]Interval{iv(0, 60)}, []Interval{iv(20, 30)}, -1)
	want := []Interval{iv(0, 20), iv(30, 60)}
	if !Equal(got, want) {
		t.Fatalf("Merge = %v, want %v", got, want)
	}
}

func TestMergeCoveringRemoveEliminates(t *testing.T) {
	got := Merge([]Interval{iv(10, 20)}, []Interval{iv(0, 30)}, -1)
	if len(got) != 0 {
		t.Fatalf("Merge = %v, want empty", got)
	}
}

func TestMergeTruncatesPartialOverlap(t *testing.T) {
	add := []Interval{iv(0, 60)}

	got := Merge(add, []Interval{iv(-10, 15)}, -1)
	if want := []Interval{iv(15, 60)}; !Equal(got, want) {
		t.Fatalf("left overlap: Merge = %v, want %v", got, want)
	}

	got = Merge(add, []Interval{iv(45, 90)}, -1)
	if want := []Interval{iv(0, 45)}; !Equal(got, want) {
		t.Fatalf("right overlap: Merge = %v, want %v", got, want)
	}
}

func TestMergePurgesShortResiduals(t *testing.T) {
	// Removing [10,60) from [0,60) leaves a 10-minute head; a 15-minute
	// purge threshold drops it.
	got := Merge([]Interval{iv(0, 60)}, []Interval{iv(10, 60)}, 15*time.Minute)
	if len(got) != 0 {
		t.Fatalf("Merge = %v, want empty after purge", got)
	}

	// Default threshold (1 minute) keeps it.
	got = Merge([]Interval{iv(0, 60)}, []Interval{iv(10, 60)}, 0)
	if want := []Interval{iv(0, 10)}; !Equal(got, want) {
		t.Fatalf("Merge = %v, want %v", got, want)
	}
}

func TestMergeMultipleRemovesAcrossAdds(t *testing.T) {
	add := []Interval{iv(0, 100), iv(200, 300)}
	remove := []Interval{iv(10, 20), iv(30, 40), iv(250, 400)}
	got := Merge(add, remove, -1)
	want := []Interval{iv(0, 10), iv(20, 30), iv(40, 100), iv(200, 250)}
	if !Equal(got, want) {
		t.Fatalf("Merge = %v, want %v", got, want)
	}
}

func TestClip(t *testing.T) {
	window := iv(10, 50)

	if got, ok := iv(0, 100).Clip(window); !ok || !got.Start.Equal(window.Start) || !got.End.Equal(window.End) {
		t.Fatalf("Clip covering = %v ok=%v, want window", got, ok)
	}
	if got, ok := iv(20, 30).Clip(window); !ok || !Equal([]Interval{got}, []Interval{iv(20, 30)}) {
		t.Fatalf("Clip inside = %v ok=%v, want unchanged", got, ok)
	}
	if _, ok := iv(60, 70).Clip(window); ok {
		t.Fatalf("Clip disjoint: ok = true, want false")
	}
	if _, ok := iv(50, 60).Clip(window); ok {
		t.Fatalf("Clip touching end: ok = true, want false (half-open)")
	}
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	add := []Interval{iv(30, 40), iv(0, 10)}
	remove := []Interval{iv(5, 8)}
	Merge(add, remove, -1)
	if !add[0].Start.Equal(t0.Add(30 * time.Minute)) {
		t.Fatalf("Merge reordered caller's add slice: %v", add)
	}
}
