package kb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/signalsfoundry/groundstation-scheduler/model"
)

func TestMemoryGroundStationLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	gs := &model.GroundStation{ID: "gs-1", Name: "Equator", LatitudeDeg: 0, LongitudeDeg: -78.5}
	if err := m.CreateGroundStation(ctx, gs); err != nil {
		t.Fatalf("CreateGroundStation: %v", err)
	}
	if err := m.CreateGroundStation(ctx, gs); !errors.Is(err, ErrExists) {
		t.Fatalf("duplicate CreateGroundStation = %v, want ErrExists", err)
	}

	got, err := m.GetGroundStation(ctx, "gs-1")
	if err != nil {
		t.Fatalf("GetGroundStation: %v", err)
	}
	// Returned value must be a copy.
	got.Name = "mutated"
	again, _ := m.GetGroundStation(ctx, "gs-1")
	if again.Name != "Equator" {
		t.Fatalf("stored record aliased by caller mutation: %q", again.Name)
	}

	if _, err := m.GetGroundStation(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetGroundStation(unknown) = %v, want ErrNotFound", err)
	}
}

func TestMemoryChannelCopySemantics(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	ch := &model.GroundStationChannel{
		ID:              "gc-1",
		GroundStationID: "gs-1",
		Band:            model.Band{MinHz: 435e6, MaxHz: 438e6},
		Modulations:     []string{"FM", "BPSK"},
		BitratesBps:     []int64{1200, 9600},
		Enabled:         true,
	}
	if err := m.CreateGroundStationChannel(ctx, ch); err != nil {
		t.Fatalf("CreateGroundStationChannel: %v", err)
	}

	// Mutating the caller's slice after create must not leak into the store.
	ch.Modulations[0] = "QPSK"
	got, err := m.GetGroundStationChannel(ctx, "gc-1")
	if err != nil {
		t.Fatalf("GetGroundStationChannel: %v", err)
	}
	if got.Modulations[0] != "FM" {
		t.Fatalf("stored channel aliased caller slice: %v", got.Modulations)
	}
}

func TestMemoryRuleListFiltersByGroundStation(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	for _, r := range []*model.AvailabilityRule{
		{ID: "r1", GroundStationID: "gs-1", Operation: model.OperationAdd, Periodicity: model.PeriodicityOnce,
			Once: &model.OncePayload{Start: now, End: now.Add(time.Hour)}},
		{ID: "r2", GroundStationID: "gs-2", Operation: model.OperationAdd, Periodicity: model.PeriodicityOnce,
			Once: &model.OncePayload{Start: now, End: now.Add(time.Hour)}},
	} {
		if err := m.CreateRule(ctx, r); err != nil {
			t.Fatalf("CreateRule(%s): %v", r.ID, err)
		}
	}

	rules, err := m.ListRules(ctx, "gs-1")
	if err != nil {
		t.Fatalf("ListRules: %v", err)
	}
	if len(rules) != 1 || rules[0].ID != "r1" {
		t.Fatalf("ListRules(gs-1) = %+v, want [r1]", rules)
	}

	if err := m.DeleteRule(ctx, "r1"); err != nil {
		t.Fatalf("DeleteRule: %v", err)
	}
	if err := m.DeleteRule(ctx, "r1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("DeleteRule(gone) = %v, want ErrNotFound", err)
	}
}

func TestMemoryOperationalSlotFilter(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

	slots := []*model.OperationalSlot{
		{ID: "o1", SpacecraftChannelID: "sc-a", GroundStationChannelID: "gc-1", AvailabilitySlotID: "av-1", State: model.StateFree, Start: now},
		{ID: "o2", SpacecraftChannelID: "sc-a", GroundStationChannelID: "gc-1", AvailabilitySlotID: "av-2", State: model.StateRemoved, Start: now.Add(time.Hour)},
		{ID: "o3", SpacecraftChannelID: "sc-b", GroundStationChannelID: "gc-2", AvailabilitySlotID: "av-1", State: model.StateFree, Start: now.Add(2 * time.Hour)},
	}
	for _, s := range slots {
		if err := m.CreateOperationalSlot(ctx, s); err != nil {
			t.Fatalf("CreateOperationalSlot(%s): %v", s.ID, err)
		}
	}

	got, err := m.ListOperationalSlots(ctx, OperationalSlotFilter{SpacecraftChannelID: "sc-a", States: []model.SlotState{model.StateFree}})
	if err != nil {
		t.Fatalf("ListOperationalSlots: %v", err)
	}
	if len(got) != 1 || got[0].ID != "o1" {
		t.Fatalf("filtered slots = %+v, want [o1]", got)
	}

	got, err = m.ListOperationalSlots(ctx, OperationalSlotFilter{AvailabilitySlotID: "av-1"})
	if err != nil {
		t.Fatalf("ListOperationalSlots: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("filtered by availability slot = %d rows, want 2", len(got))
	}

	// Results come back ordered by start time.
	if !got[0].Start.Before(got[1].Start) {
		t.Fatalf("slots not ordered by start: %v, %v", got[0].Start, got[1].Start)
	}
}

func TestMemoryCompatibilityFilter(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	pairs := []*model.ChannelCompatibility{
		{ID: "c1", SpacecraftID: "sc", SpacecraftChannelID: "sc-a", GroundStationID: "gs-1", GroundStationChannelID: "gc-1"},
		{ID: "c2", SpacecraftID: "sc", SpacecraftChannelID: "sc-b", GroundStationID: "gs-2", GroundStationChannelID: "gc-2"},
	}
	for _, c := range pairs {
		if err := m.CreateCompatibility(ctx, c); err != nil {
			t.Fatalf("CreateCompatibility(%s): %v", c.ID, err)
		}
	}

	got, err := m.ListCompatibilities(ctx, CompatibilityFilter{GroundStationID: "gs-1"})
	if err != nil {
		t.Fatalf("ListCompatibilities: %v", err)
	}
	if len(got) != 1 || got[0].ID != "c1" {
		t.Fatalf("ListCompatibilities(gs-1) = %+v, want [c1]", got)
	}

	if err := m.DeleteCompatibility(ctx, "c1"); err != nil {
		t.Fatalf("DeleteCompatibility: %v", err)
	}
	got, _ = m.ListCompatibilities(ctx, CompatibilityFilter{})
	if len(got) != 1 || got[0].ID != "c2" {
		t.Fatalf("after delete = %+v, want [c2]", got)
	}
}
