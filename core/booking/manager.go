// Package booking orchestrates the scheduling engine: it subscribes to
// availability and compatibility deltas, turns them into operational slots
// via pass simulation, and enforces the booking state machine over those
// slots.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/groundstation-scheduler/core/availability"
	"github.com/signalsfoundry/groundstation-scheduler/core/compat"
	"github.com/signalsfoundry/groundstation-scheduler/core/interval"
	"github.com/signalsfoundry/groundstation-scheduler/core/orbit"
	"github.com/signalsfoundry/groundstation-scheduler/core/rules"
	"github.com/signalsfoundry/groundstation-scheduler/internal/clock"
	"github.com/signalsfoundry/groundstation-scheduler/internal/logging"
	"github.com/signalsfoundry/groundstation-scheduler/kb"
	"github.com/signalsfoundry/groundstation-scheduler/model"
)

const (
	// defaultWindow is the forward rolling simulation window.
	defaultWindow = 48 * time.Hour
	// defaultMinPass drops passes too short to be operationally useful.
	defaultMinPass = time.Minute
)

// Recorder receives engine-level measurements. The observability package
// provides the Prometheus implementation.
type Recorder interface {
	RecomputeObserved(groundStationID string, d time.Duration)
	SlotsCreated(n int)
	SlotsRetired(n int)
	SetInventory(availabilitySlots, compatibilityPairs int)
}

type noopRecorder struct{}

func (noopRecorder) RecomputeObserved(string, time.Duration) {}
func (noopRecorder) SlotsCreated(int)                        {}
func (noopRecorder) SlotsRetired(int)                        {}
func (noopRecorder) SetInventory(int, int)                   {}

// Notifier is the fire-and-forget notification sink. The engine only
// decides when a party needs to hear about slots; delivery is external.
type Notifier interface {
	Notify(ctx context.Context, party Party, slots []*model.OperationalSlot)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, Party, []*model.OperationalSlot) {}

// Manager is the operational-slot manager and engine entry point.
type Manager struct {
	store      kb.Store
	rules      *rules.Engine
	avail      *availability.Manager
	index      *compat.Index
	simFactory orbit.Factory
	clk        clock.Clock
	log        logging.Logger
	rec        Recorder
	notifier   Notifier
	tracer     trace.Tracer

	window  time.Duration
	minPass time.Duration
	locks   *stationLocks
}

// Option customises Manager construction.
type Option func(*Manager)

// WithWindow sets the forward rolling simulation window.
func WithWindow(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.window = d
		}
	}
}

// WithMinPassDuration sets the minimum useful pass length.
func WithMinPassDuration(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.minPass = d
		}
	}
}

// WithRecorder attaches an engine metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.rec = r
		}
	}
}

// WithNotifier attaches a notification sink.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// NewManager wires the engine together and subscribes to availability and
// compatibility deltas. Subscription happens here, before any trigger can
// run, so delta application always happens-before slot generation.
func NewManager(
	store kb.Store,
	ruleEngine *rules.Engine,
	avail *availability.Manager,
	index *compat.Index,
	simFactory orbit.Factory,
	clk clock.Clock,
	log logging.Logger,
	opts ...Option,
) *Manager {
	if log == nil {
		log = logging.Noop()
	}
	if clk == nil {
		clk = clock.System()
	}
	m := &Manager{
		store:      store,
		rules:      ruleEngine,
		avail:      avail,
		index:      index,
		simFactory: simFactory,
		clk:        clk,
		log:        log,
		rec:        noopRecorder{},
		notifier:   noopNotifier{},
		tracer:     otel.Tracer("groundstation-scheduler/booking"),
		window:     defaultWindow,
		minPass:    defaultMinPass,
		locks:      newStationLocks(),
	}
	for _, opt := range opts {
		opt(m)
	}

	avail.OnChange(m.onAvailabilityChanged)
	index.OnChange(m.onCompatibilityChanged)
	return m
}

// currentWindow is the forward simulation window starting now.
func (m *Manager) currentWindow() interval.Interval {
	now := m.clk.Now()
	return interval.New(now, now.Add(m.window))
}

// ---- trigger surface: rules ----

// AddRule validates and persists an availability rule, then recomputes the
// station's availability. Weekly rules are stored but produce no slots; the
// ErrUnsupportedPeriodicity sentinel is surfaced alongside the new ID.
func (m *Manager) AddRule(ctx context.Context, rule *model.AvailabilityRule) (string, error) {
	ctx, span := m.tracer.Start(ctx, "booking.AddRule")
	defer span.End()

	if rule != nil && rule.ID == "" {
		rule.ID = uuid.NewString()
	}

	weekly := false
	if err := m.rules.Validate(rule); err != nil {
		if !errors.Is(err, rules.ErrUnsupportedPeriodicity) {
			return "", err
		}
		weekly = true
	}

	if err := m.store.CreateRule(ctx, rule); err != nil {
		return "", err
	}

	if err := m.recomputeStation(ctx, rule.GroundStationID); err != nil {
		return "", err
	}
	if weekly {
		return rule.ID, rules.ErrUnsupportedPeriodicity
	}
	return rule.ID, nil
}

// RemoveRule deletes a rule and recomputes the station's availability,
// retracting exactly the intervals the rule contributed.
func (m *Manager) RemoveRule(ctx context.Context, ruleID string) error {
	ctx, span := m.tracer.Start(ctx, "booking.RemoveRule")
	defer span.End()

	rule, err := m.store.GetRule(ctx, ruleID)
	if err != nil {
		return err
	}
	if err := m.store.DeleteRule(ctx, ruleID); err != nil {
		return err
	}
	return m.recomputeStation(ctx, rule.GroundStationID)
}

// recomputeStation serialises availability recomputation per station.
func (m *Manager) recomputeStation(ctx context.Context, groundStationID string) error {
	unlock := m.locks.acquire(groundStationID)
	defer unlock()

	started := m.clk.Now()
	_, _, err := m.avail.Update(ctx, groundStationID, m.currentWindow())
	m.rec.RecomputeObserved(groundStationID, m.clk.Now().Sub(started))
	if err == nil {
		m.publishInventory(ctx)
	}
	return err
}

// publishInventory pushes current availability and pair counts to the
// recorder. Failures only cost gauge freshness, so they are logged and
// swallowed.
func (m *Manager) publishInventory(ctx context.Context) {
	stations, err := m.store.ListGroundStations(ctx)
	if err != nil {
		m.log.Warn(ctx, "inventory gauge update failed", logging.Err(err))
		return
	}
	availCount := 0
	for _, gs := range stations {
		slots, err := m.store.ListAvailabilitySlots(ctx, gs.ID)
		if err != nil {
			m.log.Warn(ctx, "inventory gauge update failed",
				logging.String("groundstation_id", gs.ID),
				logging.Err(err),
			)
			return
		}
		availCount += len(slots)
	}
	pairs, err := m.store.ListCompatibilities(ctx, kb.CompatibilityFilter{})
	if err != nil {
		m.log.Warn(ctx, "inventory gauge update failed", logging.Err(err))
		return
	}
	m.rec.SetInventory(availCount, len(pairs))
}

// ---- trigger surface: channels ----

// CreateGroundStationChannel persists the channel and patches the
// compatibility index, which in turn generates slots for new pairs.
func (m *Manager) CreateGroundStationChannel(ctx context.Context, ch *model.GroundStationChannel) error {
	ctx, span := m.tracer.Start(ctx, "booking.CreateGroundStationChannel")
	defer span.End()

	if _, err := m.store.GetGroundStation(ctx, ch.GroundStationID); err != nil {
		return err
	}
	if err := m.store.CreateGroundStationChannel(ctx, ch); err != nil {
		return err
	}
	_, _, err := m.index.GroundStationChannelChanged(ctx, ch)
	return err
}

// UpdateGroundStationChannel persists new channel parameters and applies
// the compatibility delta.
func (m *Manager) UpdateGroundStationChannel(ctx context.Context, ch *model.GroundStationChannel) error {
	ctx, span := m.tracer.Start(ctx, "booking.UpdateGroundStationChannel")
	defer span.End()

	if err := m.store.UpdateGroundStationChannel(ctx, ch); err != nil {
		return err
	}
	_, _, err := m.index.GroundStationChannelChanged(ctx, ch)
	return err
}

// DeleteGroundStationChannel removes the channel; all its pairs disappear
// and their slots are retired.
func (m *Manager) DeleteGroundStationChannel(ctx context.Context, channelID string) error {
	ctx, span := m.tracer.Start(ctx, "booking.DeleteGroundStationChannel")
	defer span.End()

	if err := m.store.DeleteGroundStationChannel(ctx, channelID); err != nil {
		return err
	}
	_, err := m.index.GroundStationChannelDeleted(ctx, channelID)
	return err
}

// CreateSpacecraftChannel persists the channel and patches the
// compatibility index.
func (m *Manager) CreateSpacecraftChannel(ctx context.Context, ch *model.SpacecraftChannel) error {
	ctx, span := m.tracer.Start(ctx, "booking.CreateSpacecraftChannel")
	defer span.End()

	if _, err := m.store.GetSpacecraft(ctx, ch.SpacecraftID); err != nil {
		return err
	}
	if err := m.store.CreateSpacecraftChannel(ctx, ch); err != nil {
		return err
	}
	_, _, err := m.index.SpacecraftChannelChanged(ctx, ch)
	return err
}

// UpdateSpacecraftChannel persists new channel parameters and applies the
// compatibility delta.
func (m *Manager) UpdateSpacecraftChannel(ctx context.Context, ch *model.SpacecraftChannel) error {
	ctx, span := m.tracer.Start(ctx, "booking.UpdateSpacecraftChannel")
	defer span.End()

	if err := m.store.UpdateSpacecraftChannel(ctx, ch); err != nil {
		return err
	}
	_, _, err := m.index.SpacecraftChannelChanged(ctx, ch)
	return err
}

// DeleteSpacecraftChannel removes the channel; all its pairs disappear and
// their slots are retired.
func (m *Manager) DeleteSpacecraftChannel(ctx context.Context, channelID string) error {
	ctx, span := m.tracer.Start(ctx, "booking.DeleteSpacecraftChannel")
	defer span.End()

	if err := m.store.DeleteSpacecraftChannel(ctx, channelID); err != nil {
		return err
	}
	_, err := m.index.SpacecraftChannelDeleted(ctx, channelID)
	return err
}

// PropagateWindow rolls the simulation window forward for every ground
// station: new availability propagates into new slots, past availability is
// retired. Invoked periodically and exposed as an explicit trigger.
func (m *Manager) PropagateWindow(ctx context.Context) error {
	ctx, span := m.tracer.Start(ctx, "booking.PropagateWindow")
	defer span.End()

	stations, err := m.store.ListGroundStations(ctx)
	if err != nil {
		return err
	}
	var firstErr error
	for _, gs := range stations {
		if err := m.recomputeStation(ctx, gs.ID); err != nil {
			m.log.Error(ctx, "window propagation failed for station",
				logging.String("groundstation_id", gs.ID),
				logging.Err(err),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// ---- delta reactions ----

// onAvailabilityChanged reacts to applied availability deltas: removed
// slots retire their operational slots, added slots generate new ones for
// every compatible pair of that station.
func (m *Manager) onAvailabilityChanged(ctx context.Context, added, removed []*model.AvailabilitySlot) {
	for _, slot := range removed {
		if err := m.retireSlots(ctx, kb.OperationalSlotFilter{AvailabilitySlotID: slot.ID}); err != nil {
			m.log.Error(ctx, "retiring slots for removed availability failed",
				logging.String("availability_slot_id", slot.ID),
				logging.Err(err),
			)
		}
	}

	for _, slot := range added {
		pairs, err := m.index.Pairs(ctx, kb.CompatibilityFilter{GroundStationID: slot.GroundStationID})
		if err != nil {
			m.log.Error(ctx, "listing pairs for new availability failed",
				logging.String("groundstation_id", slot.GroundStationID),
				logging.Err(err),
			)
			continue
		}
		for _, pair := range pairs {
			// One pair failing must not starve the others.
			if err := m.generateSlots(ctx, pair, []*model.AvailabilitySlot{slot}); err != nil {
				m.log.Warn(ctx, "slot generation failed for pair",
					logging.String("pair", pair.ID),
					logging.String("availability_slot_id", slot.ID),
					logging.Err(err),
				)
			}
		}
	}
}

// onCompatibilityChanged reacts to applied compatibility deltas: removed
// pairs retire their slots, added pairs generate slots over the station's
// availability inside the rolling window. A spacecraft channel change can
// touch many stations, so work is grouped and serialised per station.
func (m *Manager) onCompatibilityChanged(ctx context.Context, added, removed []*model.ChannelCompatibility) {
	type stationDelta struct {
		added, removed []*model.ChannelCompatibility
	}
	byStation := make(map[string]*stationDelta)
	get := func(id string) *stationDelta {
		d, ok := byStation[id]
		if !ok {
			d = &stationDelta{}
			byStation[id] = d
		}
		return d
	}
	for _, pair := range removed {
		d := get(pair.GroundStationID)
		d.removed = append(d.removed, pair)
	}
	for _, pair := range added {
		d := get(pair.GroundStationID)
		d.added = append(d.added, pair)
	}

	for stationID, delta := range byStation {
		m.applyStationDelta(ctx, stationID, delta.added, delta.removed)
	}
}

func (m *Manager) applyStationDelta(ctx context.Context, stationID string, added, removed []*model.ChannelCompatibility) {
	unlock := m.locks.acquire(stationID)
	defer unlock()

	for _, pair := range removed {
		err := m.retireSlots(ctx, kb.OperationalSlotFilter{
			SpacecraftChannelID:    pair.SpacecraftChannelID,
			GroundStationChannelID: pair.GroundStationChannelID,
		})
		if err != nil {
			m.log.Error(ctx, "retiring slots for revoked pair failed",
				logging.String("pair", pair.ID),
				logging.Err(err),
			)
		}
	}

	for _, pair := range added {
		slots, err := m.avail.GetApplicable(ctx, stationID, m.currentWindow())
		if err != nil {
			m.log.Error(ctx, "listing availability for new pair failed",
				logging.String("pair", pair.ID),
				logging.Err(err),
			)
			continue
		}
		if err := m.generateSlots(ctx, pair, slots); err != nil {
			m.log.Warn(ctx, "slot generation failed for pair",
				logging.String("pair", pair.ID),
				logging.Err(err),
			)
		}
	}

	m.publishInventory(ctx)
}

// generateSlots simulates passes for one pair over the given availability
// slots and creates FREE operational slots for each pass found. Every
// created interval is contained in its parent availability slot.
func (m *Manager) generateSlots(ctx context.Context, pair *model.ChannelCompatibility, slots []*model.AvailabilitySlot) error {
	if len(slots) == 0 {
		return nil
	}
	gs, err := m.store.GetGroundStation(ctx, pair.GroundStationID)
	if err != nil {
		return err
	}
	sc, err := m.store.GetSpacecraft(ctx, pair.SpacecraftID)
	if err != nil {
		return err
	}
	calc, err := m.simFactory(gs, sc)
	if err != nil {
		return err
	}

	passesBySlot, err := orbit.PassesFor(ctx, calc, slots, m.minPass)
	if err != nil {
		return err
	}

	created := 0
	for _, slot := range slots {
		for _, pass := range passesBySlot[slot.ID] {
			op := &model.OperationalSlot{
				ID:                     uuid.NewString(),
				GroundStationChannelID: pair.GroundStationChannelID,
				SpacecraftChannelID:    pair.SpacecraftChannelID,
				AvailabilitySlotID:     slot.ID,
				Start:                  pass.Start,
				End:                    pass.End,
				State:                  model.StateFree,
			}
			if err := m.store.CreateOperationalSlot(ctx, op); err != nil {
				return fmt.Errorf("create operational slot: %w", err)
			}
			created++
		}
	}

	if created > 0 {
		m.rec.SlotsCreated(created)
		m.log.Info(ctx, "operational slots created",
			logging.String("pair", pair.ID),
			logging.Int("count", created),
		)
	}
	return nil
}

// retireSlots forces every matching non-removed slot to REMOVED. Slots are
// never hard-deleted; both parties are flagged for notification.
func (m *Manager) retireSlots(ctx context.Context, f kb.OperationalSlotFilter) error {
	slots, err := m.store.ListOperationalSlots(ctx, f)
	if err != nil {
		return err
	}
	retired := 0
	for _, slot := range slots {
		if slot.State == model.StateRemoved {
			continue
		}
		slot.State = model.StateRemoved
		slot.GSNotified = false
		slot.SCNotified = false
		if err := m.store.UpdateOperationalSlot(ctx, slot); err != nil {
			return err
		}
		retired++
	}
	if retired > 0 {
		m.rec.SlotsRetired(retired)
	}
	return nil
}
