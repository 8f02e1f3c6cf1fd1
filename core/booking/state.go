package booking

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/groundstation-scheduler/model"
)

var (
	// ErrIllegalTransition indicates a booking operation that the state
	// machine forbids. The record is left untouched and the error message
	// carries the slot's actual state so callers can react without
	// re-querying.
	ErrIllegalTransition = errors.New("illegal slot state transition")
	// ErrNoChanges indicates a changes query with nothing pending. It is
	// caller-visible information, not a fault.
	ErrNoChanges = errors.New("no changes to report")
)

// Party identifies which side of a contact is acting or being notified.
type Party int

const (
	PartyGroundStation Party = iota
	PartySpacecraft
)

func (p Party) String() string {
	switch p {
	case PartyGroundStation:
		return "groundstation"
	case PartySpacecraft:
		return "spacecraft"
	default:
		return fmt.Sprintf("party(%d)", int(p))
	}
}

// allowedTransitions is the booking state machine. REMOVED is absorbing.
var allowedTransitions = map[model.SlotState]map[model.SlotState]bool{
	model.StateFree: {
		model.StateFree:     true,
		model.StateSelected: true,
		model.StateRemoved:  true,
	},
	model.StateSelected: {
		model.StateFree:     true,
		model.StateSelected: true,
		model.StateReserved: true,
		model.StateDenied:   true,
		model.StateRemoved:  true,
	},
	model.StateReserved: {
		model.StateFree:     true,
		model.StateReserved: true,
		model.StateCanceled: true,
		model.StateRemoved:  true,
	},
	model.StateDenied: {
		model.StateFree:     true,
		model.StateSelected: true,
		model.StateDenied:   true,
		model.StateRemoved:  true,
	},
	model.StateCanceled: {
		model.StateFree:     true,
		model.StateSelected: true,
		model.StateCanceled: true,
		model.StateRemoved:  true,
	},
	model.StateRemoved: {
		model.StateRemoved: true,
	},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to model.SlotState) bool {
	return allowedTransitions[from][to]
}

// transition moves the slot to the target state, or fails without mutating
// it. The error reports the slot's current state.
func transition(slot *model.OperationalSlot, to model.SlotState) error {
	if !CanTransition(slot.State, to) {
		return fmt.Errorf("%w: slot %s is %s, cannot become %s",
			ErrIllegalTransition, slot.ID, slot.State, to)
	}
	slot.State = to
	return nil
}
