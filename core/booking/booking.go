package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/signalsfoundry/groundstation-scheduler/internal/logging"
	"github.com/signalsfoundry/groundstation-scheduler/kb"
	"github.com/signalsfoundry/groundstation-scheduler/model"
)

// Select moves FREE slots to SELECTED on behalf of the spacecraft operator.
// Either every slot transitions or none does.
func (m *Manager) Select(ctx context.Context, slotIDs []string) ([]*model.OperationalSlot, error) {
	ctx, span := m.tracer.Start(ctx, "booking.Select")
	defer span.End()

	return m.transitionAll(ctx, slotIDs, model.StateSelected, PartySpacecraft)
}

// Confirm moves SELECTED slots to RESERVED on behalf of the ground station
// operator.
func (m *Manager) Confirm(ctx context.Context, slotIDs []string) ([]*model.OperationalSlot, error) {
	ctx, span := m.tracer.Start(ctx, "booking.Confirm")
	defer span.End()

	return m.transitionAll(ctx, slotIDs, model.StateReserved, PartyGroundStation)
}

// Deny moves SELECTED slots to DENIED on behalf of the ground station
// operator.
func (m *Manager) Deny(ctx context.Context, slotIDs []string) ([]*model.OperationalSlot, error) {
	ctx, span := m.tracer.Start(ctx, "booking.Deny")
	defer span.End()

	return m.transitionAll(ctx, slotIDs, model.StateDenied, PartyGroundStation)
}

// CancelReservation breaks RESERVED slots. A ground station cancellation
// produces CANCELED, which the spacecraft side later observes; a spacecraft
// cancellation releases the slot straight back to FREE for the ground
// station side to observe.
func (m *Manager) CancelReservation(ctx context.Context, party Party, slotIDs []string) ([]*model.OperationalSlot, error) {
	ctx, span := m.tracer.Start(ctx, "booking.CancelReservation")
	defer span.End()

	target := model.StateCanceled
	if party == PartySpacecraft {
		target = model.StateFree
	}
	return m.transitionAll(ctx, slotIDs, target, party)
}

// transitionAll applies one state transition to a batch of slots. The batch
// is validated in full before the first write, so an illegal transition
// leaves every slot untouched. The acting party's counterpart is flagged
// for notification.
func (m *Manager) transitionAll(ctx context.Context, slotIDs []string, target model.SlotState, actor Party) ([]*model.OperationalSlot, error) {
	if len(slotIDs) == 0 {
		return nil, nil
	}

	slots := make([]*model.OperationalSlot, 0, len(slotIDs))
	for _, id := range slotIDs {
		slot, err := m.store.GetOperationalSlot(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("slot %s: %w", id, err)
		}
		if !CanTransition(slot.State, target) {
			return nil, fmt.Errorf("%w: slot %s is %s, cannot become %s",
				ErrIllegalTransition, slot.ID, slot.State, target)
		}
		slots = append(slots, slot)
	}

	for _, slot := range slots {
		slot.State = target
		switch actor {
		case PartyGroundStation:
			slot.GSNotified = true
			slot.SCNotified = false
		case PartySpacecraft:
			slot.SCNotified = true
			slot.GSNotified = false
		}
		if err := m.store.UpdateOperationalSlot(ctx, slot); err != nil {
			return nil, fmt.Errorf("slot %s: %w", slot.ID, err)
		}
	}

	m.log.Info(ctx, "booking transition applied",
		logging.String("target_state", string(target)),
		logging.String("actor", actor.String()),
		logging.Int("count", len(slots)),
	)
	m.notifier.Notify(ctx, otherParty(actor), slots)
	return slots, nil
}

func otherParty(p Party) Party {
	if p == PartyGroundStation {
		return PartySpacecraft
	}
	return PartyGroundStation
}

// Changes reports the operational slots the given segment has not yet been
// told about and marks them as delivered. Observed CANCELED and DENIED
// slots return to circulation as FREE; the caller still sees the state
// that was reported to them. ErrNoChanges means nothing was pending.
func (m *Manager) Changes(ctx context.Context, party Party, segmentID string) ([]*model.OperationalSlot, error) {
	ctx, span := m.tracer.Start(ctx, "booking.Changes")
	defer span.End()

	slots, err := m.segmentSlots(ctx, party, segmentID)
	if err != nil {
		return nil, err
	}

	var pending []*model.OperationalSlot
	for _, slot := range slots {
		notified := slot.GSNotified
		if party == PartySpacecraft {
			notified = slot.SCNotified
		}
		if notified {
			continue
		}

		reported := *slot

		if party == PartySpacecraft {
			slot.SCNotified = true
		} else {
			slot.GSNotified = true
		}
		// A delivered cancellation or denial frees the slot again.
		if slot.State == model.StateCanceled || slot.State == model.StateDenied {
			slot.State = model.StateFree
		}
		if err := m.store.UpdateOperationalSlot(ctx, slot); err != nil {
			return nil, fmt.Errorf("slot %s: %w", slot.ID, err)
		}
		pending = append(pending, &reported)
	}

	if len(pending) == 0 {
		return nil, ErrNoChanges
	}
	m.log.Info(ctx, "changes delivered",
		logging.String("segment_id", segmentID),
		logging.String("party", party.String()),
		logging.Int("count", len(pending)),
	)
	return pending, nil
}

// OperationalSlots lists every operational slot touching the given segment,
// regardless of state or notification flags.
func (m *Manager) OperationalSlots(ctx context.Context, party Party, segmentID string) ([]*model.OperationalSlot, error) {
	ctx, span := m.tracer.Start(ctx, "booking.OperationalSlots")
	defer span.End()

	return m.segmentSlots(ctx, party, segmentID)
}

// segmentSlots collects the slots reachable through the segment's channels.
func (m *Manager) segmentSlots(ctx context.Context, party Party, segmentID string) ([]*model.OperationalSlot, error) {
	var filters []kb.OperationalSlotFilter
	switch party {
	case PartyGroundStation:
		if _, err := m.store.GetGroundStation(ctx, segmentID); err != nil {
			return nil, err
		}
		channels, err := m.store.ListGroundStationChannels(ctx, segmentID)
		if err != nil {
			return nil, err
		}
		for _, ch := range channels {
			filters = append(filters, kb.OperationalSlotFilter{GroundStationChannelID: ch.ID})
		}
	case PartySpacecraft:
		if _, err := m.store.GetSpacecraft(ctx, segmentID); err != nil {
			return nil, err
		}
		channels, err := m.store.ListSpacecraftChannels(ctx, segmentID)
		if err != nil {
			return nil, err
		}
		for _, ch := range channels {
			filters = append(filters, kb.OperationalSlotFilter{SpacecraftChannelID: ch.ID})
		}
	default:
		return nil, errors.New("unknown party")
	}

	var out []*model.OperationalSlot
	for _, f := range filters {
		slots, err := m.store.ListOperationalSlots(ctx, f)
		if err != nil {
			return nil, err
		}
		out = append(out, slots...)
	}
	return out, nil
}
