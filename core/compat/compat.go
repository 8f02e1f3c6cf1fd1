// Package compat maintains the channel compatibility index: the set of
// (spacecraft channel, ground-station channel) pairs that can close an RF
// link. The index is the sole source of truth for which pairs may generate
// operational slots, and is patched incrementally on every channel change.
package compat

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/groundstation-scheduler/internal/logging"
	"github.com/signalsfoundry/groundstation-scheduler/kb"
	"github.com/signalsfoundry/groundstation-scheduler/model"
)

// ChangeHandler observes applied compatibility deltas. Handlers run after
// the delta is fully in storage, in registration order.
type ChangeHandler func(ctx context.Context, added, removed []*model.ChannelCompatibility)

// Index maintains the compatibility relation.
type Index struct {
	store kb.Store
	log   logging.Logger

	mu       sync.Mutex
	handlers []ChangeHandler
}

// NewIndex constructs a compatibility index over the given store.
func NewIndex(store kb.Store, log logging.Logger) *Index {
	if log == nil {
		log = logging.Noop()
	}
	return &Index{store: store, log: log}
}

// OnChange registers a handler for applied deltas.
func (x *Index) OnChange(h ChangeHandler) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.handlers = append(x.handlers, h)
}

// Compatible evaluates the RF predicate between a spacecraft channel and a
// ground-station channel: frequency strictly inside the band and every
// discrete parameter supported, with both channels enabled.
func Compatible(s *model.SpacecraftChannel, g *model.GroundStationChannel) bool {
	if s == nil || g == nil || !s.Enabled || !g.Enabled {
		return false
	}
	if !g.Band.Contains(s.FrequencyHz) {
		return false
	}
	if !containsString(g.Modulations, s.Modulation) {
		return false
	}
	if !containsInt64(g.BitratesBps, s.BitrateBps) {
		return false
	}
	if !containsFloat64(g.BandwidthsHz, s.BandwidthHz) {
		return false
	}
	return containsString(g.Polarizations, s.Polarization)
}

// SpacecraftChannelChanged reconciles the index rows of one spacecraft
// channel against the current ground-station channel population. It covers
// both creation (no existing rows) and parameter updates (diff against the
// existing rows); only the delta touches storage.
func (x *Index) SpacecraftChannelChanged(ctx context.Context, ch *model.SpacecraftChannel) (added, removed []*model.ChannelCompatibility, err error) {
	gsChannels, err := x.store.ListGroundStationChannels(ctx, "")
	if err != nil {
		return nil, nil, fmt.Errorf("list groundstation channels: %w", err)
	}

	target := make(map[string]*model.ChannelCompatibility)
	for _, g := range gsChannels {
		if !Compatible(ch, g) {
			continue
		}
		pair := newPair(ch, g)
		target[pair.ID] = pair
	}

	current, err := x.store.ListCompatibilities(ctx, kb.CompatibilityFilter{SpacecraftChannelID: ch.ID})
	if err != nil {
		return nil, nil, fmt.Errorf("list compatibilities for %s: %w", ch.ID, err)
	}

	return x.applyDiff(ctx, target, current)
}

// GroundStationChannelChanged is the mirror of SpacecraftChannelChanged for
// the ground side.
func (x *Index) GroundStationChannelChanged(ctx context.Context, ch *model.GroundStationChannel) (added, removed []*model.ChannelCompatibility, err error) {
	scChannels, err := x.store.ListSpacecraftChannels(ctx, "")
	if err != nil {
		return nil, nil, fmt.Errorf("list spacecraft channels: %w", err)
	}

	target := make(map[string]*model.ChannelCompatibility)
	for _, s := range scChannels {
		if !Compatible(s, ch) {
			continue
		}
		pair := newPair(s, ch)
		target[pair.ID] = pair
	}

	current, err := x.store.ListCompatibilities(ctx, kb.CompatibilityFilter{GroundStationChannelID: ch.ID})
	if err != nil {
		return nil, nil, fmt.Errorf("list compatibilities for %s: %w", ch.ID, err)
	}

	return x.applyDiff(ctx, target, current)
}

// SpacecraftChannelDeleted drops every pair referencing the channel.
func (x *Index) SpacecraftChannelDeleted(ctx context.Context, channelID string) ([]*model.ChannelCompatibility, error) {
	current, err := x.store.ListCompatibilities(ctx, kb.CompatibilityFilter{SpacecraftChannelID: channelID})
	if err != nil {
		return nil, fmt.Errorf("list compatibilities for %s: %w", channelID, err)
	}
	_, removed, err := x.applyDiff(ctx, nil, current)
	return removed, err
}

// GroundStationChannelDeleted drops every pair referencing the channel.
func (x *Index) GroundStationChannelDeleted(ctx context.Context, channelID string) ([]*model.ChannelCompatibility, error) {
	current, err := x.store.ListCompatibilities(ctx, kb.CompatibilityFilter{GroundStationChannelID: channelID})
	if err != nil {
		return nil, fmt.Errorf("list compatibilities for %s: %w", channelID, err)
	}
	_, removed, err := x.applyDiff(ctx, nil, current)
	return removed, err
}

// Pairs returns the current rows matching the filter.
func (x *Index) Pairs(ctx context.Context, f kb.CompatibilityFilter) ([]*model.ChannelCompatibility, error) {
	return x.store.ListCompatibilities(ctx, f)
}

func (x *Index) applyDiff(ctx context.Context, target map[string]*model.ChannelCompatibility, current []*model.ChannelCompatibility) (added, removed []*model.ChannelCompatibility, err error) {
	currentByID := make(map[string]*model.ChannelCompatibility, len(current))
	for _, c := range current {
		currentByID[c.ID] = c
	}

	for id, c := range currentByID {
		if _, ok := target[id]; ok {
			continue
		}
		if err := x.store.DeleteCompatibility(ctx, id); err != nil {
			return nil, nil, fmt.Errorf("delete compatibility %s: %w", id, err)
		}
		removed = append(removed, c)
	}

	for id, pair := range target {
		if _, ok := currentByID[id]; ok {
			continue
		}
		if err := x.store.CreateCompatibility(ctx, pair); err != nil {
			return nil, nil, fmt.Errorf("create compatibility %s: %w", id, err)
		}
		added = append(added, pair)
	}

	sortPairs(added)
	sortPairs(removed)

	if len(added) > 0 || len(removed) > 0 {
		x.log.Info(ctx, "compatibility index patched",
			logging.Int("added", len(added)),
			logging.Int("removed", len(removed)),
		)
		x.notify(ctx, added, removed)
	}
	return added, removed, nil
}

func (x *Index) notify(ctx context.Context, added, removed []*model.ChannelCompatibility) {
	x.mu.Lock()
	handlers := append([]ChangeHandler(nil), x.handlers...)
	x.mu.Unlock()
	for _, h := range handlers {
		h(ctx, added, removed)
	}
}

func newPair(s *model.SpacecraftChannel, g *model.GroundStationChannel) *model.ChannelCompatibility {
	pair := &model.ChannelCompatibility{
		SpacecraftID:           s.SpacecraftID,
		SpacecraftChannelID:    s.ID,
		GroundStationID:        g.GroundStationID,
		GroundStationChannelID: g.ID,
	}
	pair.ID = pair.PairKey()
	return pair
}

func sortPairs(pairs []*model.ChannelCompatibility) {
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].ID < pairs[j].ID })
}

func containsString(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

func containsInt64(haystack []int64, needle int64) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

func containsFloat64(haystack []float64, needle float64) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}
