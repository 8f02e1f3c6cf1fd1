// Package kb defines the persistence contracts of the scheduling engine and
// provides a thread-safe in-memory implementation. The engine only ever
// creates, filters, and deletes records; derived sets (availability slots,
// compatibilities) are maintained exclusively through diff-and-apply.
package kb

import (
	"context"
	"errors"

	"github.com/signalsfoundry/groundstation-scheduler/model"
)

var (
	// ErrNotFound indicates a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrExists indicates a record with the same ID already exists.
	ErrExists = errors.New("record already exists")
)

// CompatibilityFilter selects compatibility rows. Zero fields match
// everything.
type CompatibilityFilter struct {
	SpacecraftChannelID    string
	GroundStationChannelID string
	GroundStationID        string
	SpacecraftID           string
}

// OperationalSlotFilter selects operational slots. Zero fields match
// everything; States empty matches every state.
type OperationalSlotFilter struct {
	IDs                    []string
	AvailabilitySlotID     string
	SpacecraftChannelID    string
	GroundStationChannelID string
	States                 []model.SlotState
}

// Matches reports whether the slot satisfies the filter.
func (f OperationalSlotFilter) Matches(s *model.OperationalSlot) bool {
	if len(f.IDs) > 0 {
		found := false
		for _, id := range f.IDs {
			if s.ID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.AvailabilitySlotID != "" && s.AvailabilitySlotID != f.AvailabilitySlotID {
		return false
	}
	if f.SpacecraftChannelID != "" && s.SpacecraftChannelID != f.SpacecraftChannelID {
		return false
	}
	if f.GroundStationChannelID != "" && s.GroundStationChannelID != f.GroundStationChannelID {
		return false
	}
	if len(f.States) > 0 {
		found := false
		for _, st := range f.States {
			if s.State == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// SegmentStore persists ground stations and spacecraft.
type SegmentStore interface {
	CreateGroundStation(ctx context.Context, gs *model.GroundStation) error
	GetGroundStation(ctx context.Context, id string) (*model.GroundStation, error)
	ListGroundStations(ctx context.Context) ([]*model.GroundStation, error)

	CreateSpacecraft(ctx context.Context, sc *model.Spacecraft) error
	GetSpacecraft(ctx context.Context, id string) (*model.Spacecraft, error)
	ListSpacecraft(ctx context.Context) ([]*model.Spacecraft, error)
}

// ChannelStore persists the radio channels on both segments.
type ChannelStore interface {
	CreateGroundStationChannel(ctx context.Context, ch *model.GroundStationChannel) error
	GetGroundStationChannel(ctx context.Context, id string) (*model.GroundStationChannel, error)
	UpdateGroundStationChannel(ctx context.Context, ch *model.GroundStationChannel) error
	DeleteGroundStationChannel(ctx context.Context, id string) error
	// ListGroundStationChannels returns the channels of one ground station,
	// or all channels when groundStationID is empty.
	ListGroundStationChannels(ctx context.Context, groundStationID string) ([]*model.GroundStationChannel, error)

	CreateSpacecraftChannel(ctx context.Context, ch *model.SpacecraftChannel) error
	GetSpacecraftChannel(ctx context.Context, id string) (*model.SpacecraftChannel, error)
	UpdateSpacecraftChannel(ctx context.Context, ch *model.SpacecraftChannel) error
	DeleteSpacecraftChannel(ctx context.Context, id string) error
	ListSpacecraftChannels(ctx context.Context, spacecraftID string) ([]*model.SpacecraftChannel, error)
}

// RuleStore persists availability rules.
type RuleStore interface {
	CreateRule(ctx context.Context, rule *model.AvailabilityRule) error
	GetRule(ctx context.Context, id string) (*model.AvailabilityRule, error)
	ListRules(ctx context.Context, groundStationID string) ([]*model.AvailabilityRule, error)
	DeleteRule(ctx context.Context, id string) error
}

// AvailabilityStore persists the derived availability slots.
type AvailabilityStore interface {
	CreateAvailabilitySlot(ctx context.Context, slot *model.AvailabilitySlot) error
	GetAvailabilitySlot(ctx context.Context, id string) (*model.AvailabilitySlot, error)
	ListAvailabilitySlots(ctx context.Context, groundStationID string) ([]*model.AvailabilitySlot, error)
	DeleteAvailabilitySlot(ctx context.Context, id string) error
}

// CompatibilityStore persists the derived channel compatibility pairs.
type CompatibilityStore interface {
	CreateCompatibility(ctx context.Context, c *model.ChannelCompatibility) error
	DeleteCompatibility(ctx context.Context, id string) error
	ListCompatibilities(ctx context.Context, f CompatibilityFilter) ([]*model.ChannelCompatibility, error)
}

// OperationalSlotStore persists operational slots. Update is only used by
// the booking state machine; slots are never hard-deleted.
type OperationalSlotStore interface {
	CreateOperationalSlot(ctx context.Context, slot *model.OperationalSlot) error
	GetOperationalSlot(ctx context.Context, id string) (*model.OperationalSlot, error)
	UpdateOperationalSlot(ctx context.Context, slot *model.OperationalSlot) error
	ListOperationalSlots(ctx context.Context, f OperationalSlotFilter) ([]*model.OperationalSlot, error)
}

// Store aggregates every persistence contract the engine needs.
type Store interface {
	SegmentStore
	ChannelStore
	RuleStore
	AvailabilityStore
	CompatibilityStore
	OperationalSlotStore
}
