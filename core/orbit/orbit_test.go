package orbit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/signalsfoundry/groundstation-scheduler/core/interval"
	"github.com/signalsfoundry/groundstation-scheduler/internal/logging"
	"github.com/signalsfoundry/groundstation-scheduler/model"
)

// ISS elements; the epoch only needs to be self-consistent, not current.
const (
	issTLE1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	issTLE2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
)

// windowStart is near the TLE epoch so propagation stays well-conditioned.
var windowStart = time.Date(2021, 10, 3, 0, 0, 0, 0, time.UTC)

func midLatSimulator(t *testing.T, maskDeg float64) *Simulator {
	t.Helper()
	sim := NewSimulator(Observer{
		LatitudeDeg:     44.4,
		LongitudeDeg:    11.3,
		AltitudeKm:      0.05,
		MinElevationDeg: maskDeg,
	}, logging.Noop())
	if err := sim.SetElements(issTLE1, issTLE2); err != nil {
		t.Fatalf("SetElements: %v", err)
	}
	return sim
}

func TestPassWindowsFindsPassesOverMidLatitudes(t *testing.T) {
	sim := midLatSimulator(t, 0)
	window := interval.New(windowStart, windowStart.Add(24*time.Hour))

	passes, err := sim.PassWindows(context.Background(), window, time.Minute)
	if err != nil {
		t.Fatalf("PassWindows: %v", err)
	}
	if len(passes) == 0 {
		t.Fatalf("no passes over a mid-latitude station in 24h")
	}

	var prevEnd time.Time
	for i, p := range passes {
		if !p.IsValid() {
			t.Fatalf("pass %d not a valid interval: %v", i, p)
		}
		if !window.Contains(p) {
			t.Fatalf("pass %d %v escapes the window %v", i, p, window)
		}
		if p.Duration() < time.Minute {
			t.Fatalf("pass %d shorter than min duration: %v", i, p.Duration())
		}
		if i > 0 && p.Start.Before(prevEnd) {
			t.Fatalf("pass %d overlaps previous (start %v < prev end %v)", i, p.Start, prevEnd)
		}
		prevEnd = p.End

		// The spacecraft must actually be up at mid-pass.
		mid := p.Start.Add(p.Duration() / 2)
		if el := sim.elevationDegAt(mid); el < 0 {
			t.Fatalf("pass %d midpoint elevation = %.2f deg, want >= 0", i, el)
		}
	}
}

func TestPassWindowsMinDurationFilters(t *testing.T) {
	sim := midLatSimulator(t, 0)
	window := interval.New(windowStart, windowStart.Add(24*time.Hour))

	all, err := sim.PassWindows(context.Background(), window, 0)
	if err != nil {
		t.Fatalf("PassWindows: %v", err)
	}
	long, err := sim.PassWindows(context.Background(), window, 8*time.Minute)
	if err != nil {
		t.Fatalf("PassWindows(8m): %v", err)
	}
	if len(long) > len(all) {
		t.Fatalf("min-duration filter grew the pass list: %d > %d", len(long), len(all))
	}
	for _, p := range long {
		if p.Duration() < 8*time.Minute {
			t.Fatalf("pass %v survived the 8m filter", p)
		}
	}
}

func TestNeverVisibleYieldsEmptyNotError(t *testing.T) {
	// An 85 degree mask at the pole is unreachable for a 51.6 degree
	// inclination orbit.
	sim := NewSimulator(Observer{
		LatitudeDeg:     89.0,
		LongitudeDeg:    0,
		MinElevationDeg: 85,
	}, logging.Noop())
	if err := sim.SetElements(issTLE1, issTLE2); err != nil {
		t.Fatalf("SetElements: %v", err)
	}

	passes, err := sim.PassWindows(context.Background(), interval.New(windowStart, windowStart.Add(6*time.Hour)), time.Minute)
	if err != nil {
		t.Fatalf("PassWindows = %v, want nil error for never-visible geometry", err)
	}
	if len(passes) != 0 {
		t.Fatalf("passes = %v, want empty", passes)
	}

	_, err = sim.NextPass(context.Background(), windowStart, windowStart.Add(6*time.Hour))
	if !errors.Is(err, ErrNeverVisible) {
		t.Fatalf("NextPass = %v, want ErrNeverVisible", err)
	}
}

func TestStepBudgetBoundsSearch(t *testing.T) {
	sim := midLatSimulator(t, 0)
	WithMaxSteps(10)(sim)

	// Ten 30-second samples cannot cover a day; the search must stop
	// cleanly rather than spin.
	passes, err := sim.PassWindows(context.Background(), interval.New(windowStart, windowStart.Add(24*time.Hour)), time.Minute)
	if err != nil {
		t.Fatalf("PassWindows = %v, want nil", err)
	}
	if len(passes) != 0 {
		t.Fatalf("passes = %v, want empty under exhausted budget", passes)
	}
}

func TestSimulatorRequiresElements(t *testing.T) {
	sim := NewSimulator(Observer{}, logging.Noop())
	if _, err := sim.PassWindows(context.Background(), interval.New(windowStart, windowStart.Add(time.Hour)), 0); !errors.Is(err, ErrNoElements) {
		t.Fatalf("PassWindows without TLE = %v, want ErrNoElements", err)
	}
	if err := sim.SetElements("", ""); !errors.Is(err, ErrNoElements) {
		t.Fatalf("SetElements(empty) = %v, want ErrNoElements", err)
	}
}

func TestStubReturnsWholeWindow(t *testing.T) {
	window := interval.New(windowStart, windowStart.Add(time.Hour))

	passes, err := Stub{}.PassWindows(context.Background(), window, time.Minute)
	if err != nil {
		t.Fatalf("Stub.PassWindows: %v", err)
	}
	if len(passes) != 1 || !passes[0].Start.Equal(window.Start) || !passes[0].End.Equal(window.End) {
		t.Fatalf("Stub passes = %v, want [window]", passes)
	}

	if _, err := (Stub{Fail: true}).PassWindows(context.Background(), window, 0); !errors.Is(err, ErrSimulationFailed) {
		t.Fatalf("forced-failure stub = %v, want ErrSimulationFailed", err)
	}
}

func TestPassesForAttachesProvenance(t *testing.T) {
	slots := []*model.AvailabilitySlot{
		{ID: "av-1", GroundStationID: "gs-1", Start: windowStart, End: windowStart.Add(time.Hour)},
		{ID: "av-2", GroundStationID: "gs-1", Start: windowStart.Add(2 * time.Hour), End: windowStart.Add(3 * time.Hour)},
	}

	got, err := PassesFor(context.Background(), Stub{}, slots, time.Minute)
	if err != nil {
		t.Fatalf("PassesFor: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("PassesFor returned %d entries, want 2", len(got))
	}
	for _, slot := range slots {
		passes, ok := got[slot.ID]
		if !ok || len(passes) != 1 {
			t.Fatalf("slot %s: passes = %v, want one pass", slot.ID, passes)
		}
		if !passes[0].Start.Equal(slot.Start) {
			t.Fatalf("slot %s pass %v does not match slot bounds", slot.ID, passes[0])
		}
	}
}

func TestGroundTrackSamples(t *testing.T) {
	sim := midLatSimulator(t, 0)
	track, err := sim.GroundTrack(context.Background(), interval.New(windowStart, windowStart.Add(30*time.Minute)), time.Minute)
	if err != nil {
		t.Fatalf("GroundTrack: %v", err)
	}
	if len(track) != 30 {
		t.Fatalf("track has %d points, want 30", len(track))
	}
	for _, p := range track {
		if p.LatitudeDeg < -90 || p.LatitudeDeg > 90 {
			t.Fatalf("latitude out of range: %+v", p)
		}
		// 51.6 degree inclination bounds the ground track latitude.
		if p.LatitudeDeg > 52.5 || p.LatitudeDeg < -52.5 {
			t.Fatalf("latitude exceeds inclination bound: %+v", p)
		}
	}
}

func TestFactoryBuildsIsolatedSimulators(t *testing.T) {
	factory := NewFactory(logging.Noop())

	gs := &model.GroundStation{ID: "gs-1", LatitudeDeg: 44.4, LongitudeDeg: 11.3, AltitudeM: 50, MinElevationDeg: 5}
	sc := &model.Spacecraft{ID: "sc-1", TLELine1: issTLE1, TLELine2: issTLE2}

	calc, err := factory(gs, sc)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	window := interval.New(windowStart, windowStart.Add(12*time.Hour))
	first, err := calc.PassWindows(context.Background(), window, time.Minute)
	if err != nil {
		t.Fatalf("PassWindows: %v", err)
	}

	// Second computation hits the shared cache and must agree.
	again, err := calc.PassWindows(context.Background(), window, time.Minute)
	if err != nil {
		t.Fatalf("cached PassWindows: %v", err)
	}
	if !interval.Equal(first, again) {
		t.Fatalf("cached result differs: %v vs %v", first, again)
	}

	noTLE := &model.Spacecraft{ID: "sc-2"}
	if _, err := factory(gs, noTLE); !errors.Is(err, ErrNoElements) {
		t.Fatalf("factory without TLE = %v, want ErrNoElements", err)
	}
}
