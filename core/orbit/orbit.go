// Package orbit computes concrete pass windows for one ground station and
// one spacecraft using SGP4 propagation. Each Simulator is an explicit
// simulation context holding its own observer and orbital element set, so
// independent ground stations can be simulated in parallel.
package orbit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
	gocache "github.com/patrickmn/go-cache"

	"github.com/signalsfoundry/groundstation-scheduler/core/interval"
	"github.com/signalsfoundry/groundstation-scheduler/internal/logging"
	"github.com/signalsfoundry/groundstation-scheduler/model"
)

var (
	// ErrNeverVisible indicates the spacecraft never rises above the
	// observer's mask inside the search horizon (circumpolar geometry or a
	// plain miss). Pass enumeration treats it as a normal stop condition.
	ErrNeverVisible = errors.New("spacecraft never visible in horizon")
	// ErrNoElements indicates the simulator has no TLE loaded.
	ErrNoElements = errors.New("no orbital elements set")
	// ErrSimulationFailed is returned by the forced-failure stub so failure
	// paths can be exercised deterministically.
	ErrSimulationFailed = errors.New("pass simulation failed")
)

const (
	deg2rad = math.Pi / 180.0
	rad2deg = 180.0 / math.Pi

	// defaultStep is the sampling resolution for rise/set detection.
	defaultStep = 30 * time.Second
	// defaultMaxSteps bounds one pass-search call so pathological geometry
	// terminates instead of spinning.
	defaultMaxSteps = 1 << 17
)

// PassCalculator is the pass-computation contract the booking layer
// consumes. Real simulators and test stubs both satisfy it.
type PassCalculator interface {
	// PassWindows returns the rise/set intervals inside window, clipped to
	// it, with passes shorter than minDuration discarded.
	PassWindows(ctx context.Context, window interval.Interval, minDuration time.Duration) ([]interval.Interval, error)
}

// Observer is a ground-station geodetic position plus its elevation mask.
type Observer struct {
	LatitudeDeg     float64
	LongitudeDeg    float64
	AltitudeKm      float64
	MinElevationDeg float64
}

// ObserverFromStation builds an Observer from a ground-station record.
func ObserverFromStation(gs *model.GroundStation) Observer {
	return Observer{
		LatitudeDeg:     gs.LatitudeDeg,
		LongitudeDeg:    gs.LongitudeDeg,
		AltitudeKm:      gs.AltitudeM / 1000.0,
		MinElevationDeg: gs.MinElevationDeg,
	}
}

// Simulator computes passes for one observer/spacecraft pairing. Observer
// and elements are settable independently; all returned times are UTC.
type Simulator struct {
	observer Observer
	sat      satellite.Satellite
	hasSat   bool

	step     time.Duration
	maxSteps int
	cache    *gocache.Cache
	cacheKey string
	log      logging.Logger
}

// Option customises Simulator construction.
type Option func(*Simulator)

// WithStep sets the sampling resolution for rise/set detection.
func WithStep(step time.Duration) Option {
	return func(s *Simulator) {
		if step > 0 {
			s.step = step
		}
	}
}

// WithMaxSteps caps the number of propagation samples per call.
func WithMaxSteps(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.maxSteps = n
		}
	}
}

// WithCache memoises PassWindows results in the given cache under keys
// prefixed by cacheKey (typically "gsID/scID").
func WithCache(c *gocache.Cache, cacheKey string) Option {
	return func(s *Simulator) {
		s.cache = c
		s.cacheKey = cacheKey
	}
}

// NewSimulator constructs a simulator for one observer.
func NewSimulator(obs Observer, log logging.Logger, opts ...Option) *Simulator {
	if log == nil {
		log = logging.Noop()
	}
	s := &Simulator{
		observer: obs,
		step:     defaultStep,
		maxSteps: defaultMaxSteps,
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetObserver replaces the ground-station geometry.
func (s *Simulator) SetObserver(obs Observer) {
	s.observer = obs
}

// SetElements loads a two-line element set.
func (s *Simulator) SetElements(line1, line2 string) error {
	if line1 == "" || line2 == "" {
		return fmt.Errorf("%w: empty TLE line", ErrNoElements)
	}
	s.sat = satellite.TLEToSat(line1, line2, satellite.GravityWGS72)
	s.hasSat = true
	return nil
}

// elevationDegAt returns the spacecraft's elevation above the observer's
// horizon at t, in degrees.
func (s *Simulator) elevationDegAt(t time.Time) float64 {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	posECI, _ := satellite.Propagate(s.sat, year, int(month), day, hour, min, sec)
	jd := satellite.JDay(year, int(month), day, hour, min, sec)

	obs := satellite.LatLong{
		Latitude:  s.observer.LatitudeDeg * deg2rad,
		Longitude: s.observer.LongitudeDeg * deg2rad,
	}
	angles := satellite.ECIToLookAngles(posECI, obs, s.observer.AltitudeKm, jd)
	return angles.El * rad2deg
}

// NextPass finds the next rise/set pair at or after from, bounded by
// horizon. The rise may be in progress at from, in which case the returned
// interval starts at from. ErrNeverVisible is returned when no pass begins
// before the horizon or the step budget runs out.
func (s *Simulator) NextPass(ctx context.Context, from, horizon time.Time) (interval.Interval, error) {
	if !s.hasSat {
		return interval.Interval{}, ErrNoElements
	}
	if !horizon.After(from) {
		return interval.Interval{}, ErrNeverVisible
	}

	mask := s.observer.MinElevationDeg
	steps := 0

	// Find the rise.
	var rise time.Time
	t := from.UTC()
	for {
		if err := ctx.Err(); err != nil {
			return interval.Interval{}, err
		}
		if steps++; steps > s.maxSteps {
			s.log.Warn(ctx, "pass search step budget exhausted",
				logging.Time("from", from),
				logging.Time("horizon", horizon),
			)
			return interval.Interval{}, ErrNeverVisible
		}
		if !t.Before(horizon) {
			return interval.Interval{}, ErrNeverVisible
		}
		if s.elevationDegAt(t) >= mask {
			rise = t
			break
		}
		t = t.Add(s.step)
	}

	// Find the set; an open pass at the horizon closes there.
	for t = rise.Add(s.step); t.Before(horizon); t = t.Add(s.step) {
		if steps++; steps > s.maxSteps {
			break
		}
		if s.elevationDegAt(t) < mask {
			break
		}
	}
	set := t
	if set.After(horizon) {
		set = horizon
	}
	return interval.New(rise, set), nil
}

// PassWindows enumerates passes inside window, advancing a cursor past each
// found set. Passes shorter than minDuration are discarded after clipping.
// A circumpolar or never-visible geometry yields an empty list, not an
// error.
func (s *Simulator) PassWindows(ctx context.Context, window interval.Interval, minDuration time.Duration) ([]interval.Interval, error) {
	if !s.hasSat {
		return nil, ErrNoElements
	}

	key := ""
	if s.cache != nil {
		key = fmt.Sprintf("%s|%d|%d|%d", s.cacheKey, window.Start.Unix(), window.End.Unix(), minDuration)
		if cached, ok := s.cache.Get(key); ok {
			return cached.([]interval.Interval), nil
		}
	}

	var passes []interval.Interval
	cursor := window.Start
	for cursor.Before(window.End) {
		pass, err := s.NextPass(ctx, cursor, window.End)
		if err != nil {
			if errors.Is(err, ErrNeverVisible) {
				break
			}
			return nil, err
		}
		cursor = pass.End.Add(s.step)

		clipped, ok := pass.Clip(window)
		if !ok || clipped.Duration() < minDuration {
			continue
		}
		passes = append(passes, clipped)
	}

	if s.cache != nil {
		s.cache.Set(key, passes, gocache.DefaultExpiration)
	}
	return passes, nil
}

// PassesFor computes passes for each availability slot and returns them
// keyed by slot ID, so callers can reattach provenance to the originating
// slot.
func PassesFor(ctx context.Context, calc PassCalculator, slots []*model.AvailabilitySlot, minDuration time.Duration) (map[string][]interval.Interval, error) {
	out := make(map[string][]interval.Interval, len(slots))
	for _, slot := range slots {
		passes, err := calc.PassWindows(ctx, interval.New(slot.Start, slot.End), minDuration)
		if err != nil {
			return nil, fmt.Errorf("passes for slot %s: %w", slot.ID, err)
		}
		out[slot.ID] = passes
	}
	return out, nil
}

// Factory builds a pass calculator for one (ground station, spacecraft)
// pairing. The booking layer holds a Factory rather than simulators so each
// computation gets an explicit, isolated context.
type Factory func(gs *model.GroundStation, sc *model.Spacecraft) (PassCalculator, error)

// NewFactory returns a Factory producing real SGP4 simulators that share a
// pass-window cache.
func NewFactory(log logging.Logger, opts ...Option) Factory {
	cache := gocache.New(5*time.Minute, 10*time.Minute)
	return func(gs *model.GroundStation, sc *model.Spacecraft) (PassCalculator, error) {
		all := append([]Option{WithCache(cache, gs.ID+"/"+sc.ID)}, opts...)
		sim := NewSimulator(ObserverFromStation(gs), log, all...)
		if err := sim.SetElements(sc.TLELine1, sc.TLELine2); err != nil {
			return nil, fmt.Errorf("spacecraft %s: %w", sc.ID, err)
		}
		return sim, nil
	}
}
