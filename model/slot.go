package model

import (
	"fmt"
	"time"
)

// AvailabilitySlot is a concrete, already-merged interval during which a
// ground station is available, independent of any spacecraft. Slots are only
// ever created and deleted by the availability diff step, never mutated.
type AvailabilitySlot struct {
	ID              string
	GroundStationID string
	Start           time.Time
	End             time.Time
}

// AvailabilitySlotID derives the natural identifier of an availability slot
// from its ground station and start instant.
func AvailabilitySlotID(groundStationID string, start time.Time) string {
	return fmt.Sprintf("%s:%s", groundStationID, start.UTC().Format("20060102T150405Z"))
}

// SlotState is the booking state of an operational slot.
type SlotState string

const (
	StateFree     SlotState = "FREE"
	StateSelected SlotState = "SELECTED"
	StateReserved SlotState = "RESERVED"
	StateDenied   SlotState = "DENIED"
	StateCanceled SlotState = "CANCELED"
	// StateRemoved is terminal: the slot's availability or compatibility
	// disappeared. Removed slots are kept for audit, never deleted.
	StateRemoved SlotState = "REMOVED"
)

// OperationalSlot is a bookable contact opportunity: the intersection of one
// availability slot and one orbital pass for one compatible channel pair.
type OperationalSlot struct {
	ID string

	GroundStationChannelID string
	SpacecraftChannelID    string
	AvailabilitySlotID     string

	Start time.Time
	End   time.Time

	State SlotState

	// Notification flags. False means the corresponding party has not yet
	// been told about the latest state change.
	GSNotified bool
	SCNotified bool
}
