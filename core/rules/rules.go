// Package rules validates availability rules and expands them into raw
// intervals within a computation window.
package rules

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/signalsfoundry/groundstation-scheduler/core/interval"
	"github.com/signalsfoundry/groundstation-scheduler/internal/logging"
	"github.com/signalsfoundry/groundstation-scheduler/model"
)

var (
	// ErrInvalidRule indicates a malformed rule: bad time ordering, unknown
	// periodicity, missing payload, or inconsistent timezones. Invalid rules
	// are rejected at creation and never persisted.
	ErrInvalidRule = errors.New("invalid availability rule")
	// ErrNotApplicable indicates a rule lies entirely outside the requested
	// window. It always wraps ErrRuleInFuture or ErrRuleInPast.
	ErrNotApplicable = errors.New("rule not applicable to window")
	// ErrRuleInFuture indicates the rule starts after the window ends.
	ErrRuleInFuture = errors.New("rule starts after window")
	// ErrRuleInPast indicates the rule ended before the window starts.
	ErrRuleInPast = errors.New("rule ended before window")
	// ErrUnsupportedPeriodicity indicates a stored-but-unexpandable
	// periodicity. Weekly rules are accepted into storage but generate no
	// intervals.
	ErrUnsupportedPeriodicity = errors.New("unsupported rule periodicity")
)

const day = 24 * time.Hour

// Engine expands persisted availability rules.
type Engine struct {
	log logging.Logger
}

// NewEngine constructs a rule engine. A nil logger is replaced by Noop.
func NewEngine(log logging.Logger) *Engine {
	if log == nil {
		log = logging.Noop()
	}
	return &Engine{log: log}
}

// Validate checks a rule at creation time and normalises its times to UTC in
// place. All failures wrap ErrInvalidRule except the weekly gap, which is
// reported as ErrUnsupportedPeriodicity after shape checks pass.
func (e *Engine) Validate(rule *model.AvailabilityRule) error {
	if rule == nil {
		return fmt.Errorf("%w: nil rule", ErrInvalidRule)
	}
	if rule.GroundStationID == "" {
		return fmt.Errorf("%w: missing ground station", ErrInvalidRule)
	}
	switch rule.Operation {
	case model.OperationAdd, model.OperationRemove:
	default:
		return fmt.Errorf("%w: unknown operation %q", ErrInvalidRule, rule.Operation)
	}

	switch rule.Periodicity {
	case model.PeriodicityOnce:
		return e.validateOnce(rule)
	case model.PeriodicityDaily:
		return e.validateDaily(rule)
	case model.PeriodicityWeekly:
		if rule.Weekly == nil {
			return fmt.Errorf("%w: missing WEEKLY payload", ErrInvalidRule)
		}
		normalizeValidity(rule)
		return ErrUnsupportedPeriodicity
	default:
		return fmt.Errorf("%w: unknown periodicity %q", ErrInvalidRule, rule.Periodicity)
	}
}

func (e *Engine) validateOnce(rule *model.AvailabilityRule) error {
	p := rule.Once
	if p == nil {
		return fmt.Errorf("%w: missing ONCE payload", ErrInvalidRule)
	}
	if !p.End.After(p.Start) {
		return fmt.Errorf("%w: ending time %s not after starting time %s",
			ErrInvalidRule, p.End.Format(time.RFC3339), p.Start.Format(time.RFC3339))
	}
	_, startOff := p.Start.Zone()
	_, endOff := p.End.Zone()
	if startOff != endOff {
		return fmt.Errorf("%w: inconsistent timezones on start and end", ErrInvalidRule)
	}
	p.Start = p.Start.UTC()
	p.End = p.End.UTC()
	// The validity window of a ONCE rule is the payload itself.
	rule.Start = p.Start
	rule.End = p.End
	return nil
}

func (e *Engine) validateDaily(rule *model.AvailabilityRule) error {
	p := rule.Daily
	if p == nil {
		return fmt.Errorf("%w: missing DAILY payload", ErrInvalidRule)
	}
	if p.StartOfDay < 0 || p.EndOfDay > day {
		return fmt.Errorf("%w: time of day outside [0, 24h]", ErrInvalidRule)
	}
	if p.EndOfDay <= p.StartOfDay {
		return fmt.Errorf("%w: daily ending time not after starting time", ErrInvalidRule)
	}
	if p.EndOfDay-p.StartOfDay > day {
		return fmt.Errorf("%w: daily range exceeds 24h", ErrInvalidRule)
	}
	if !rule.End.After(rule.Start) {
		return fmt.Errorf("%w: validity window end not after start", ErrInvalidRule)
	}
	normalizeValidity(rule)
	return nil
}

func normalizeValidity(rule *model.AvailabilityRule) {
	rule.Start = rule.Start.UTC()
	rule.End = rule.End.UTC()
}

// Applicable reports whether the rule can contribute intervals to the
// window. A rule is applicable iff its first instant is not after the window
// end and its last instant is not before the window start; otherwise the
// returned error wraps ErrNotApplicable plus the direction sentinel.
func (e *Engine) Applicable(rule *model.AvailabilityRule, window interval.Interval) error {
	first, last, err := ruleBounds(rule)
	if err != nil {
		return err
	}
	if first.After(window.End) {
		return fmt.Errorf("%w: %w", ErrNotApplicable, ErrRuleInFuture)
	}
	if last.Before(window.Start) {
		return fmt.Errorf("%w: %w", ErrNotApplicable, ErrRuleInPast)
	}
	return nil
}

// ruleBounds returns the first and last instants the rule could ever cover.
func ruleBounds(rule *model.AvailabilityRule) (time.Time, time.Time, error) {
	switch rule.Periodicity {
	case model.PeriodicityOnce:
		if rule.Once == nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: missing ONCE payload", ErrInvalidRule)
		}
		return rule.Once.Start, rule.Once.End, nil
	case model.PeriodicityDaily:
		if rule.Daily == nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: missing DAILY payload", ErrInvalidRule)
		}
		first := midnightUTC(rule.Start).Add(rule.Daily.StartOfDay)
		last := midnightUTC(rule.End).Add(rule.Daily.EndOfDay)
		return first, last, nil
	case model.PeriodicityWeekly:
		return time.Time{}, time.Time{}, ErrUnsupportedPeriodicity
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: unknown periodicity %q", ErrInvalidRule, rule.Periodicity)
	}
}

// Expand produces the raw intervals the rule contributes inside window. The
// result is not normalised; callers feed it through the interval package.
// Non-applicable rules return ErrNotApplicable, weekly rules
// ErrUnsupportedPeriodicity; both are recoverable skip conditions for the
// availability recompute.
func (e *Engine) Expand(ctx context.Context, rule *model.AvailabilityRule, window interval.Interval) ([]interval.Interval, error) {
	if err := e.Applicable(rule, window); err != nil {
		if errors.Is(err, ErrUnsupportedPeriodicity) {
			e.log.Warn(ctx, "weekly rule skipped: periodicity not implemented",
				logging.String("rule_id", rule.ID),
				logging.String("groundstation_id", rule.GroundStationID),
			)
		}
		return nil, err
	}

	switch rule.Periodicity {
	case model.PeriodicityOnce:
		return expandOnce(rule, window), nil
	case model.PeriodicityDaily:
		return expandDaily(rule, window), nil
	default:
		// Applicable already rejected everything else.
		return nil, fmt.Errorf("%w: unknown periodicity %q", ErrInvalidRule, rule.Periodicity)
	}
}

// expandOnce yields the single payload interval clipped to the window.
func expandOnce(rule *model.AvailabilityRule, window interval.Interval) []interval.Interval {
	iv, ok := interval.New(rule.Once.Start, rule.Once.End).Clip(window)
	if !ok {
		return nil
	}
	return []interval.Interval{iv}
}

// expandDaily yields one interval per UTC calendar day from
// max(rule.Start, window.Start) up to the sooner of the validity end and the
// window end. A day whose interval ended before the window start is skipped;
// one already in progress at the window start is truncated to it.
func expandDaily(rule *model.AvailabilityRule, window interval.Interval) []interval.Interval {
	p := rule.Daily

	from := rule.Start
	if window.Start.After(from) {
		from = window.Start
	}
	lastDay := midnightUTC(rule.End)
	if hiDay := midnightUTC(window.End); hiDay.Before(lastDay) {
		lastDay = hiDay
	}

	var out []interval.Interval
	for d := midnightUTC(from); !d.After(lastDay); d = d.Add(day) {
		iv := interval.New(d.Add(p.StartOfDay), d.Add(p.EndOfDay))
		clipped, ok := iv.Clip(window)
		if !ok {
			continue
		}
		out = append(out, clipped)
	}
	return out
}

// midnightUTC truncates t to the start of its UTC calendar day.
func midnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
