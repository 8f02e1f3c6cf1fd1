// Package availability owns the canonical set of availability slots per
// ground station. The set is always recomputed from the rules and reconciled
// against storage with a minimal add/remove delta, so repeated recomputation
// with unchanged rules is a no-op.
package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/signalsfoundry/groundstation-scheduler/core/interval"
	"github.com/signalsfoundry/groundstation-scheduler/core/rules"
	"github.com/signalsfoundry/groundstation-scheduler/internal/logging"
	"github.com/signalsfoundry/groundstation-scheduler/kb"
	"github.com/signalsfoundry/groundstation-scheduler/model"
)

// ChangeHandler observes applied availability deltas. Handlers run after the
// delta has been fully applied to storage, in registration order.
type ChangeHandler func(ctx context.Context, added, removed []*model.AvailabilitySlot)

// Manager recomputes and reconciles availability slots.
type Manager struct {
	store       kb.Store
	rules       *rules.Engine
	minDuration time.Duration
	log         logging.Logger

	mu       sync.Mutex
	handlers []ChangeHandler
}

// Option customises Manager construction.
type Option func(*Manager)

// WithMinDuration sets the purge threshold for residual intervals produced
// by the merge step.
func WithMinDuration(d time.Duration) Option {
	return func(m *Manager) { m.minDuration = d }
}

// NewManager constructs an availability manager.
func NewManager(store kb.Store, engine *rules.Engine, log logging.Logger, opts ...Option) *Manager {
	if log == nil {
		log = logging.Noop()
	}
	m := &Manager{
		store:       store,
		rules:       engine,
		minDuration: interval.DefaultMinDuration,
		log:         log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnChange registers a handler for applied deltas.
func (m *Manager) OnChange(h ChangeHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, h)
}

// Recompute derives the target interval set for a ground station over the
// window: expand every applicable rule, normalise ADD and REMOVE classes
// separately, then subtract. Rules outside the window or with unsupported
// periodicity are skipped, not fatal.
func (m *Manager) Recompute(ctx context.Context, groundStationID string, window interval.Interval) ([]interval.Interval, error) {
	ruleSet, err := m.store.ListRules(ctx, groundStationID)
	if err != nil {
		return nil, fmt.Errorf("list rules for %s: %w", groundStationID, err)
	}

	var add, remove []interval.Interval
	for _, rule := range ruleSet {
		expanded, err := m.rules.Expand(ctx, rule, window)
		if err != nil {
			if errors.Is(err, rules.ErrNotApplicable) || errors.Is(err, rules.ErrUnsupportedPeriodicity) {
				continue
			}
			m.log.Warn(ctx, "rule expansion failed, skipping rule",
				logging.String("rule_id", rule.ID),
				logging.String("groundstation_id", groundStationID),
				logging.Err(err),
			)
			continue
		}
		switch rule.Operation {
		case model.OperationAdd:
			add = append(add, expanded...)
		case model.OperationRemove:
			remove = append(remove, expanded...)
		}
	}

	return interval.Merge(add, remove, m.minDuration), nil
}

// DiffAndApply reconciles the stored slot set of a ground station against
// the target intervals: stored slots absent from the target are deleted,
// target intervals absent from storage are created. Returns the applied
// delta. Identity is the (start, end) pair, except that a stored slot whose
// target counterpart shares its end but starts later is the in-progress
// interval clipped at the rolling window edge; it is retained unchanged so
// bookings inside it survive the periodic window roll.
func (m *Manager) DiffAndApply(ctx context.Context, groundStationID string, target []interval.Interval) (added, removed []*model.AvailabilitySlot, err error) {
	stored, err := m.store.ListAvailabilitySlots(ctx, groundStationID)
	if err != nil {
		return nil, nil, fmt.Errorf("list availability slots for %s: %w", groundStationID, err)
	}

	targetKeys := make(map[string]interval.Interval, len(target))
	targetByEnd := make(map[int64]string, len(target))
	for _, iv := range target {
		key := slotKey(iv.Start, iv.End)
		targetKeys[key] = iv
		targetByEnd[iv.End.UnixNano()] = key
	}
	storedKeys := make(map[string]*model.AvailabilitySlot, len(stored))
	for _, slot := range stored {
		storedKeys[slotKey(slot.Start, slot.End)] = slot
	}

	retained := make(map[string]bool)
	for key, slot := range storedKeys {
		if _, ok := targetKeys[key]; ok {
			continue
		}
		if endKey, ok := targetByEnd[slot.End.UnixNano()]; ok {
			if iv := targetKeys[endKey]; iv.Start.After(slot.Start) {
				retained[endKey] = true
				continue
			}
		}
		if err := m.store.DeleteAvailabilitySlot(ctx, slot.ID); err != nil {
			return nil, nil, fmt.Errorf("delete availability slot %s: %w", slot.ID, err)
		}
		removed = append(removed, slot)
	}

	for key, iv := range targetKeys {
		if _, ok := storedKeys[key]; ok {
			continue
		}
		if retained[key] {
			continue
		}
		slot := &model.AvailabilitySlot{
			ID:              model.AvailabilitySlotID(groundStationID, iv.Start),
			GroundStationID: groundStationID,
			Start:           iv.Start,
			End:             iv.End,
		}
		if err := m.store.CreateAvailabilitySlot(ctx, slot); err != nil {
			return nil, nil, fmt.Errorf("create availability slot %s: %w", slot.ID, err)
		}
		added = append(added, slot)
	}

	sortSlots(added)
	sortSlots(removed)
	return added, removed, nil
}

// Update recomputes the target set, applies the delta, and notifies change
// handlers. It must be called on every rule mutation and on the periodic
// window roll.
func (m *Manager) Update(ctx context.Context, groundStationID string, window interval.Interval) (added, removed []*model.AvailabilitySlot, err error) {
	target, err := m.Recompute(ctx, groundStationID, window)
	if err != nil {
		return nil, nil, err
	}
	added, removed, err = m.DiffAndApply(ctx, groundStationID, target)
	if err != nil {
		return nil, nil, err
	}

	if len(added) > 0 || len(removed) > 0 {
		m.log.Info(ctx, "availability updated",
			logging.String("groundstation_id", groundStationID),
			logging.Int("added", len(added)),
			logging.Int("removed", len(removed)),
		)
		m.notify(ctx, added, removed)
	}
	return added, removed, nil
}

// GetApplicable returns stored slots intersecting the window, each truncated
// to it. Storage is not modified.
func (m *Manager) GetApplicable(ctx context.Context, groundStationID string, window interval.Interval) ([]*model.AvailabilitySlot, error) {
	stored, err := m.store.ListAvailabilitySlots(ctx, groundStationID)
	if err != nil {
		return nil, fmt.Errorf("list availability slots for %s: %w", groundStationID, err)
	}
	var out []*model.AvailabilitySlot
	for _, slot := range stored {
		clipped, ok := interval.New(slot.Start, slot.End).Clip(window)
		if !ok {
			continue
		}
		cp := *slot
		cp.Start = clipped.Start
		cp.End = clipped.End
		out = append(out, &cp)
	}
	return out, nil
}

func (m *Manager) notify(ctx context.Context, added, removed []*model.AvailabilitySlot) {
	m.mu.Lock()
	handlers := append([]ChangeHandler(nil), m.handlers...)
	m.mu.Unlock()
	for _, h := range handlers {
		h(ctx, added, removed)
	}
}

func sortSlots(slots []*model.AvailabilitySlot) {
	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
}

func slotKey(start, end time.Time) string {
	return start.UTC().Format(time.RFC3339) + "/" + end.UTC().Format(time.RFC3339)
}
