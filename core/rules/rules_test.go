package rules

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/signalsfoundry/groundstation-scheduler/core/interval"
	"github.com/signalsfoundry/groundstation-scheduler/internal/logging"
	"github.com/signalsfoundry/groundstation-scheduler/model"
)

var base = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func newEngine() *Engine {
	return NewEngine(logging.Noop())
}

func onceRule(start, end time.Time) *model.AvailabilityRule {
	return &model.AvailabilityRule{
		ID:              "r-once",
		GroundStationID: "gs-1",
		Operation:       model.OperationAdd,
		Periodicity:     model.PeriodicityOnce,
		Once:            &model.OncePayload{Start: start, End: end},
	}
}

func dailyRule(validFrom, validTo time.Time, startOfDay, endOfDay time.Duration) *model.AvailabilityRule {
	return &model.AvailabilityRule{
		ID:              "r-daily",
		GroundStationID: "gs-1",
		Operation:       model.OperationAdd,
		Periodicity:     model.PeriodicityDaily,
		Start:           validFrom,
		End:             validTo,
		Daily:           &model.DailyPayload{StartOfDay: startOfDay, EndOfDay: endOfDay},
	}
}

func TestValidateRejectsReversedTimes(t *testing.T) {
	e := newEngine()

	if err := e.Validate(onceRule(base.Add(2*time.Hour), base.Add(time.Hour))); !errors.Is(err, ErrInvalidRule) {
		t.Fatalf("Validate(reversed ONCE) = %v, want ErrInvalidRule", err)
	}

	r := dailyRule(base, base.AddDate(0, 0, 10), 10*time.Hour, 9*time.Hour)
	if err := e.Validate(r); !errors.Is(err, ErrInvalidRule) {
		t.Fatalf("Validate(reversed DAILY) = %v, want ErrInvalidRule", err)
	}
}

func TestValidateRejectsInconsistentTimezones(t *testing.T) {
	e := newEngine()
	est := time.FixedZone("EST", -5*3600)
	r := onceRule(base.In(est), base.Add(time.Hour)) // one EST, one UTC
	if err := e.Validate(r); !errors.Is(err, ErrInvalidRule) {
		t.Fatalf("Validate(mixed zones) = %v, want ErrInvalidRule", err)
	}
}

func TestValidateNormalizesToUTC(t *testing.T) {
	e := newEngine()
	est := time.FixedZone("EST", -5*3600)
	r := onceRule(base.In(est), base.Add(time.Hour).In(est))
	if err := e.Validate(r); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if r.Once.Start.Location() != time.UTC || r.Start.Location() != time.UTC {
		t.Fatalf("Validate left non-UTC times: %v / %v", r.Once.Start, r.Start)
	}
	if !r.Once.Start.Equal(base) {
		t.Fatalf("Validate changed the instant: %v != %v", r.Once.Start, base)
	}
}

func TestValidateWeeklyIsStoredButUnsupported(t *testing.T) {
	e := newEngine()
	r := &model.AvailabilityRule{
		ID:              "r-weekly",
		GroundStationID: "gs-1",
		Operation:       model.OperationAdd,
		Periodicity:     model.PeriodicityWeekly,
		Start:           base,
		End:             base.AddDate(0, 1, 0),
		Weekly: &model.WeeklyPayload{Ranges: map[time.Weekday]model.DailyPayload{
			time.Monday: {StartOfDay: 8 * time.Hour, EndOfDay: 12 * time.Hour},
		}},
	}
	if err := e.Validate(r); !errors.Is(err, ErrUnsupportedPeriodicity) {
		t.Fatalf("Validate(WEEKLY) = %v, want ErrUnsupportedPeriodicity", err)
	}
}

func TestApplicableDirectionSentinels(t *testing.T) {
	e := newEngine()
	window := interval.New(base, base.AddDate(0, 0, 7))

	past := onceRule(base.AddDate(0, 0, -3), base.AddDate(0, 0, -2))
	if err := e.Applicable(past, window); !errors.Is(err, ErrNotApplicable) || !errors.Is(err, ErrRuleInPast) {
		t.Fatalf("Applicable(past) = %v, want ErrNotApplicable+ErrRuleInPast", err)
	}

	future := onceRule(base.AddDate(0, 0, 10), base.AddDate(0, 0, 11))
	if err := e.Applicable(future, window); !errors.Is(err, ErrNotApplicable) || !errors.Is(err, ErrRuleInFuture) {
		t.Fatalf("Applicable(future) = %v, want ErrNotApplicable+ErrRuleInFuture", err)
	}

	inside := onceRule(base.Add(time.Hour), base.Add(2*time.Hour))
	if err := e.Applicable(inside, window); err != nil {
		t.Fatalf("Applicable(inside) = %v, want nil", err)
	}
}

func TestExpandOnceClipsToWindow(t *testing.T) {
	e := newEngine()
	window := interval.New(base.Add(time.Hour), base.Add(3*time.Hour))

	got, err := e.Expand(context.Background(), onceRule(base, base.Add(10*time.Hour)), window)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expand returned %d intervals, want 1", len(got))
	}
	if !got[0].Start.Equal(window.Start) || !got[0].End.Equal(window.End) {
		t.Fatalf("Expand = %v, want clipped to %v", got[0], window)
	}
}

func TestExpandDailyOneIntervalPerDay(t *testing.T) {
	e := newEngine()
	const n = 5
	r := dailyRule(base, base.AddDate(0, 0, n-1), 8*time.Hour, 11*time.Hour)
	window := interval.New(base, base.AddDate(0, 0, 30))

	got, err := e.Expand(context.Background(), r, window)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got) != n {
		t.Fatalf("Expand returned %d intervals, want %d", len(got), n)
	}
	for i, iv := range got {
		wantStart := base.AddDate(0, 0, i).Add(8 * time.Hour)
		wantEnd := base.AddDate(0, 0, i).Add(11 * time.Hour)
		if !iv.Start.Equal(wantStart) || !iv.End.Equal(wantEnd) {
			t.Fatalf("interval %d = %v, want [%v, %v)", i, iv, wantStart, wantEnd)
		}
		if i > 0 && got[i].Start.Sub(got[i-1].Start) != 24*time.Hour {
			t.Fatalf("interval %d not shifted one day from previous", i)
		}
	}
}

func TestExpandDailyTruncatesInProgressFirstDay(t *testing.T) {
	e := newEngine()
	r := dailyRule(base, base.AddDate(0, 0, 2), 8*time.Hour, 11*time.Hour)

	// Window opens mid-way through the first day's range.
	window := interval.New(base.Add(9*time.Hour), base.AddDate(0, 0, 30))
	got, err := e.Expand(context.Background(), r, window)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expand returned %d intervals, want 3", len(got))
	}
	if !got[0].Start.Equal(window.Start) {
		t.Fatalf("first interval start = %v, want truncated to %v", got[0].Start, window.Start)
	}
}

func TestExpandDailySkipsDayAlreadyOver(t *testing.T) {
	e := newEngine()
	r := dailyRule(base, base.AddDate(0, 0, 2), 8*time.Hour, 11*time.Hour)

	// Window opens after the first day's range has ended: only days 2 and 3.
	window := interval.New(base.Add(12*time.Hour), base.AddDate(0, 0, 30))
	got, err := e.Expand(context.Background(), r, window)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expand returned %d intervals, want 2", len(got))
	}
	if !got[0].Start.Equal(base.AddDate(0, 0, 1).Add(8 * time.Hour)) {
		t.Fatalf("first interval = %v, want day 2 start", got[0])
	}
}

func TestExpandWeeklyYieldsNothing(t *testing.T) {
	e := newEngine()
	r := &model.AvailabilityRule{
		ID:              "r-weekly",
		GroundStationID: "gs-1",
		Operation:       model.OperationAdd,
		Periodicity:     model.PeriodicityWeekly,
		Start:           base,
		End:             base.AddDate(0, 1, 0),
		Weekly:          &model.WeeklyPayload{},
	}
	got, err := e.Expand(context.Background(), r, interval.New(base, base.AddDate(0, 0, 7)))
	if !errors.Is(err, ErrUnsupportedPeriodicity) {
		t.Fatalf("Expand(WEEKLY) err = %v, want ErrUnsupportedPeriodicity", err)
	}
	if len(got) != 0 {
		t.Fatalf("Expand(WEEKLY) = %v, want empty", got)
	}
}
