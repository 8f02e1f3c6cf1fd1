package orbit

import (
	"context"
	"time"

	"github.com/signalsfoundry/groundstation-scheduler/core/interval"
	"github.com/signalsfoundry/groundstation-scheduler/model"
)

// Stub is a deterministic PassCalculator for tests: the whole requested
// window is reported as a single pass, with no orbit propagation involved.
// With Fail set it returns ErrSimulationFailed instead, for failure-path
// testing.
type Stub struct {
	Fail bool
}

var _ PassCalculator = Stub{}

// PassWindows implements PassCalculator.
func (s Stub) PassWindows(_ context.Context, window interval.Interval, minDuration time.Duration) ([]interval.Interval, error) {
	if s.Fail {
		return nil, ErrSimulationFailed
	}
	if !window.IsValid() || window.Duration() < minDuration {
		return nil, nil
	}
	return []interval.Interval{window}, nil
}

// StubFactory returns a Factory producing Stub calculators.
func StubFactory(fail bool) Factory {
	return func(*model.GroundStation, *model.Spacecraft) (PassCalculator, error) {
		return Stub{Fail: fail}, nil
	}
}
