package kb

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/signalsfoundry/groundstation-scheduler/model"
)

// Memory is an in-memory, thread-safe Store. Records are copied on the way
// in and out so callers can never alias stored state.
type Memory struct {
	mu sync.RWMutex

	groundStations map[string]*model.GroundStation
	spacecraft     map[string]*model.Spacecraft
	gsChannels     map[string]*model.GroundStationChannel
	scChannels     map[string]*model.SpacecraftChannel
	rules          map[string]*model.AvailabilityRule
	availability   map[string]*model.AvailabilitySlot
	compatibility  map[string]*model.ChannelCompatibility
	operational    map[string]*model.OperationalSlot
}

var _ Store = (*Memory)(nil)

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		groundStations: make(map[string]*model.GroundStation),
		spacecraft:     make(map[string]*model.Spacecraft),
		gsChannels:     make(map[string]*model.GroundStationChannel),
		scChannels:     make(map[string]*model.SpacecraftChannel),
		rules:          make(map[string]*model.AvailabilityRule),
		availability:   make(map[string]*model.AvailabilitySlot),
		compatibility:  make(map[string]*model.ChannelCompatibility),
		operational:    make(map[string]*model.OperationalSlot),
	}
}

// ---- segments ----

func (m *Memory) CreateGroundStation(_ context.Context, gs *model.GroundStation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groundStations[gs.ID]; ok {
		return fmt.Errorf("ground station %q: %w", gs.ID, ErrExists)
	}
	cp := *gs
	m.groundStations[gs.ID] = &cp
	return nil
}

func (m *Memory) GetGroundStation(_ context.Context, id string) (*model.GroundStation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	gs, ok := m.groundStations[id]
	if !ok {
		return nil, fmt.Errorf("ground station %q: %w", id, ErrNotFound)
	}
	cp := *gs
	return &cp, nil
}

func (m *Memory) ListGroundStations(_ context.Context) ([]*model.GroundStation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.GroundStation, 0, len(m.groundStations))
	for _, gs := range m.groundStations {
		cp := *gs
		out = append(out, &cp)
	}
	sortByID(out, func(gs *model.GroundStation) string { return gs.ID })
	return out, nil
}

func (m *Memory) CreateSpacecraft(_ context.Context, sc *model.Spacecraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.spacecraft[sc.ID]; ok {
		return fmt.Errorf("spacecraft %q: %w", sc.ID, ErrExists)
	}
	cp := *sc
	m.spacecraft[sc.ID] = &cp
	return nil
}

func (m *Memory) GetSpacecraft(_ context.Context, id string) (*model.Spacecraft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sc, ok := m.spacecraft[id]
	if !ok {
		return nil, fmt.Errorf("spacecraft %q: %w", id, ErrNotFound)
	}
	cp := *sc
	return &cp, nil
}

func (m *Memory) ListSpacecraft(_ context.Context) ([]*model.Spacecraft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Spacecraft, 0, len(m.spacecraft))
	for _, sc := range m.spacecraft {
		cp := *sc
		out = append(out, &cp)
	}
	sortByID(out, func(sc *model.Spacecraft) string { return sc.ID })
	return out, nil
}

// ---- channels ----

func (m *Memory) CreateGroundStationChannel(_ context.Context, ch *model.GroundStationChannel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.gsChannels[ch.ID]; ok {
		return fmt.Errorf("groundstation channel %q: %w", ch.ID, ErrExists)
	}
	m.gsChannels[ch.ID] = copyGSChannel(ch)
	return nil
}

func (m *Memory) GetGroundStationChannel(_ context.Context, id string) (*model.GroundStationChannel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.gsChannels[id]
	if !ok {
		return nil, fmt.Errorf("groundstation channel %q: %w", id, ErrNotFound)
	}
	return copyGSChannel(ch), nil
}

func (m *Memory) UpdateGroundStationChannel(_ context.Context, ch *model.GroundStationChannel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.gsChannels[ch.ID]; !ok {
		return fmt.Errorf("groundstation channel %q: %w", ch.ID, ErrNotFound)
	}
	m.gsChannels[ch.ID] = copyGSChannel(ch)
	return nil
}

func (m *Memory) DeleteGroundStationChannel(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.gsChannels[id]; !ok {
		return fmt.Errorf("groundstation channel %q: %w", id, ErrNotFound)
	}
	delete(m.gsChannels, id)
	return nil
}

func (m *Memory) ListGroundStationChannels(_ context.Context, groundStationID string) ([]*model.GroundStationChannel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.GroundStationChannel
	for _, ch := range m.gsChannels {
		if groundStationID != "" && ch.GroundStationID != groundStationID {
			continue
		}
		out = append(out, copyGSChannel(ch))
	}
	sortByID(out, func(ch *model.GroundStationChannel) string { return ch.ID })
	return out, nil
}

func (m *Memory) CreateSpacecraftChannel(_ context.Context, ch *model.SpacecraftChannel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scChannels[ch.ID]; ok {
		return fmt.Errorf("spacecraft channel %q: %w", ch.ID, ErrExists)
	}
	cp := *ch
	m.scChannels[ch.ID] = &cp
	return nil
}

func (m *Memory) GetSpacecraftChannel(_ context.Context, id string) (*model.SpacecraftChannel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.scChannels[id]
	if !ok {
		return nil, fmt.Errorf("spacecraft channel %q: %w", id, ErrNotFound)
	}
	cp := *ch
	return &cp, nil
}

func (m *Memory) UpdateSpacecraftChannel(_ context.Context, ch *model.SpacecraftChannel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scChannels[ch.ID]; !ok {
		return fmt.Errorf("spacecraft channel %q: %w", ch.ID, ErrNotFound)
	}
	cp := *ch
	m.scChannels[ch.ID] = &cp
	return nil
}

func (m *Memory) DeleteSpacecraftChannel(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scChannels[id]; !ok {
		return fmt.Errorf("spacecraft channel %q: %w", id, ErrNotFound)
	}
	delete(m.scChannels, id)
	return nil
}

func (m *Memory) ListSpacecraftChannels(_ context.Context, spacecraftID string) ([]*model.SpacecraftChannel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.SpacecraftChannel
	for _, ch := range m.scChannels {
		if spacecraftID != "" && ch.SpacecraftID != spacecraftID {
			continue
		}
		cp := *ch
		out = append(out, &cp)
	}
	sortByID(out, func(ch *model.SpacecraftChannel) string { return ch.ID })
	return out, nil
}

// ---- rules ----

func (m *Memory) CreateRule(_ context.Context, rule *model.AvailabilityRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[rule.ID]; ok {
		return fmt.Errorf("rule %q: %w", rule.ID, ErrExists)
	}
	m.rules[rule.ID] = copyRule(rule)
	return nil
}

func (m *Memory) GetRule(_ context.Context, id string) (*model.AvailabilityRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rule, ok := m.rules[id]
	if !ok {
		return nil, fmt.Errorf("rule %q: %w", id, ErrNotFound)
	}
	return copyRule(rule), nil
}

func (m *Memory) ListRules(_ context.Context, groundStationID string) ([]*model.AvailabilityRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.AvailabilityRule
	for _, rule := range m.rules {
		if groundStationID != "" && rule.GroundStationID != groundStationID {
			continue
		}
		out = append(out, copyRule(rule))
	}
	sortByID(out, func(r *model.AvailabilityRule) string { return r.ID })
	return out, nil
}

func (m *Memory) DeleteRule(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[id]; !ok {
		return fmt.Errorf("rule %q: %w", id, ErrNotFound)
	}
	delete(m.rules, id)
	return nil
}

// ---- availability slots ----

func (m *Memory) CreateAvailabilitySlot(_ context.Context, slot *model.AvailabilitySlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.availability[slot.ID]; ok {
		return fmt.Errorf("availability slot %q: %w", slot.ID, ErrExists)
	}
	cp := *slot
	m.availability[slot.ID] = &cp
	return nil
}

func (m *Memory) GetAvailabilitySlot(_ context.Context, id string) (*model.AvailabilitySlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	slot, ok := m.availability[id]
	if !ok {
		return nil, fmt.Errorf("availability slot %q: %w", id, ErrNotFound)
	}
	cp := *slot
	return &cp, nil
}

func (m *Memory) ListAvailabilitySlots(_ context.Context, groundStationID string) ([]*model.AvailabilitySlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.AvailabilitySlot
	for _, slot := range m.availability {
		if groundStationID != "" && slot.GroundStationID != groundStationID {
			continue
		}
		cp := *slot
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (m *Memory) DeleteAvailabilitySlot(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.availability[id]; !ok {
		return fmt.Errorf("availability slot %q: %w", id, ErrNotFound)
	}
	delete(m.availability, id)
	return nil
}

// ---- compatibilities ----

func (m *Memory) CreateCompatibility(_ context.Context, c *model.ChannelCompatibility) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.compatibility[c.ID]; ok {
		return fmt.Errorf("compatibility %q: %w", c.ID, ErrExists)
	}
	cp := *c
	m.compatibility[c.ID] = &cp
	return nil
}

func (m *Memory) DeleteCompatibility(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.compatibility[id]; !ok {
		return fmt.Errorf("compatibility %q: %w", id, ErrNotFound)
	}
	delete(m.compatibility, id)
	return nil
}

func (m *Memory) ListCompatibilities(_ context.Context, f CompatibilityFilter) ([]*model.ChannelCompatibility, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.ChannelCompatibility
	for _, c := range m.compatibility {
		if f.SpacecraftChannelID != "" && c.SpacecraftChannelID != f.SpacecraftChannelID {
			continue
		}
		if f.GroundStationChannelID != "" && c.GroundStationChannelID != f.GroundStationChannelID {
			continue
		}
		if f.GroundStationID != "" && c.GroundStationID != f.GroundStationID {
			continue
		}
		if f.SpacecraftID != "" && c.SpacecraftID != f.SpacecraftID {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sortByID(out, func(c *model.ChannelCompatibility) string { return c.ID })
	return out, nil
}

// ---- operational slots ----

func (m *Memory) CreateOperationalSlot(_ context.Context, slot *model.OperationalSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.operational[slot.ID]; ok {
		return fmt.Errorf("operational slot %q: %w", slot.ID, ErrExists)
	}
	cp := *slot
	m.operational[slot.ID] = &cp
	return nil
}

func (m *Memory) GetOperationalSlot(_ context.Context, id string) (*model.OperationalSlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	slot, ok := m.operational[id]
	if !ok {
		return nil, fmt.Errorf("operational slot %q: %w", id, ErrNotFound)
	}
	cp := *slot
	return &cp, nil
}

func (m *Memory) UpdateOperationalSlot(_ context.Context, slot *model.OperationalSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.operational[slot.ID]; !ok {
		return fmt.Errorf("operational slot %q: %w", slot.ID, ErrNotFound)
	}
	cp := *slot
	m.operational[slot.ID] = &cp
	return nil
}

func (m *Memory) ListOperationalSlots(_ context.Context, f OperationalSlotFilter) ([]*model.OperationalSlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.OperationalSlot
	for _, slot := range m.operational {
		if !f.Matches(slot) {
			continue
		}
		cp := *slot
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

// ---- copy helpers ----

func copyGSChannel(ch *model.GroundStationChannel) *model.GroundStationChannel {
	cp := *ch
	cp.Modulations = append([]string(nil), ch.Modulations...)
	cp.BitratesBps = append([]int64(nil), ch.BitratesBps...)
	cp.BandwidthsHz = append([]float64(nil), ch.BandwidthsHz...)
	cp.Polarizations = append([]string(nil), ch.Polarizations...)
	return &cp
}

func copyRule(rule *model.AvailabilityRule) *model.AvailabilityRule {
	cp := *rule
	if rule.Once != nil {
		once := *rule.Once
		cp.Once = &once
	}
	if rule.Daily != nil {
		daily := *rule.Daily
		cp.Daily = &daily
	}
	if rule.Weekly != nil {
		weekly := model.WeeklyPayload{Ranges: make(map[time.Weekday]model.DailyPayload, len(rule.Weekly.Ranges))}
		for d, r := range rule.Weekly.Ranges {
			weekly.Ranges[d] = r
		}
		cp.Weekly = &weekly
	}
	return &cp
}

func sortByID[T any](items []*T, id func(*T) string) {
	sort.Slice(items, func(i, j int) bool { return id(items[i]) < id(items[j]) })
}
