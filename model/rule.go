package model

import "time"

// RuleOperation says whether a rule contributes or withdraws availability.
type RuleOperation string

const (
	OperationAdd    RuleOperation = "ADD"
	OperationRemove RuleOperation = "REMOVE"
)

// Periodicity is the recurrence class of an availability rule.
type Periodicity string

const (
	PeriodicityOnce   Periodicity = "ONCE"
	PeriodicityDaily  Periodicity = "DAILY"
	PeriodicityWeekly Periodicity = "WEEKLY"
)

// OncePayload carries the absolute interval of a ONCE rule.
type OncePayload struct {
	Start time.Time
	End   time.Time
}

// DailyPayload carries the fixed time-of-day range of a DAILY rule, expressed
// as offsets from midnight UTC.
type DailyPayload struct {
	StartOfDay time.Duration
	EndOfDay   time.Duration
}

// WeeklyPayload would carry one time-of-day range per weekday. Weekly rules
// are accepted into storage but never expanded; see the rules package.
type WeeklyPayload struct {
	Ranges map[time.Weekday]DailyPayload
}

// AvailabilityRule is an operator-declared recurring policy that adds or
// removes availability for one ground station. It is a tagged union: exactly
// the payload matching Periodicity is set.
type AvailabilityRule struct {
	ID              string
	GroundStationID string

	Operation   RuleOperation
	Periodicity Periodicity

	// Validity window for the recurrence, in UTC. For ONCE rules the window
	// and the payload coincide.
	Start time.Time
	End   time.Time

	Once   *OncePayload
	Daily  *DailyPayload
	Weekly *WeeklyPayload
}
