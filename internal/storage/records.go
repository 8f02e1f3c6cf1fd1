package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/signalsfoundry/groundstation-scheduler/model"
)

// Record types mirror the domain model with storage-friendly columns.
// Slice-valued channel parameters and rule payloads are kept as JSON text so
// the schema stays identical across SQLite and PostgreSQL.

type groundStationRecord struct {
	ID              string `gorm:"primaryKey;size:64"`
	Name            string `gorm:"size:256;not null"`
	LatitudeDeg     float64
	LongitudeDeg    float64
	AltitudeM       float64
	MinElevationDeg float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (groundStationRecord) TableName() string { return "ground_stations" }

type spacecraftRecord struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"size:256;not null"`
	Callsign  string `gorm:"size:32"`
	TLELine1  string `gorm:"size:80"`
	TLELine2  string `gorm:"size:80"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (spacecraftRecord) TableName() string { return "spacecraft" }

type groundStationChannelRecord struct {
	ID              string `gorm:"primaryKey;size:64"`
	GroundStationID string `gorm:"index;size:64;not null"`
	MinHz           float64
	MaxHz           float64
	Modulations     string `gorm:"type:text"`
	BitratesBps     string `gorm:"type:text"`
	BandwidthsHz    string `gorm:"type:text"`
	Polarizations   string `gorm:"type:text"`
	Enabled         bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (groundStationChannelRecord) TableName() string { return "ground_station_channels" }

type spacecraftChannelRecord struct {
	ID           string `gorm:"primaryKey;size:64"`
	SpacecraftID string `gorm:"index;size:64;not null"`
	FrequencyHz  float64
	Modulation   string `gorm:"size:64"`
	BitrateBps   int64
	BandwidthHz  float64
	Polarization string `gorm:"size:32"`
	Enabled      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (spacecraftChannelRecord) TableName() string { return "spacecraft_channels" }

type ruleRecord struct {
	ID              string `gorm:"primaryKey;size:64"`
	GroundStationID string `gorm:"index;size:64;not null"`
	Operation       string `gorm:"size:16;not null"`
	Periodicity     string `gorm:"size:16;not null"`
	Start           time.Time
	End             time.Time
	Payload         string `gorm:"type:text"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (ruleRecord) TableName() string { return "availability_rules" }

type availabilitySlotRecord struct {
	ID              string    `gorm:"primaryKey;size:128"`
	GroundStationID string    `gorm:"index;size:64;not null"`
	Start           time.Time `gorm:"index"`
	End             time.Time
	CreatedAt       time.Time
}

func (availabilitySlotRecord) TableName() string { return "availability_slots" }

type compatibilityRecord struct {
	ID                     string `gorm:"primaryKey;size:160"`
	SpacecraftID           string `gorm:"index;size:64;not null"`
	SpacecraftChannelID    string `gorm:"index;size:64;not null"`
	GroundStationID        string `gorm:"index;size:64;not null"`
	GroundStationChannelID string `gorm:"index;size:64;not null"`
	CreatedAt              time.Time
}

func (compatibilityRecord) TableName() string { return "channel_compatibilities" }

type operationalSlotRecord struct {
	ID                     string    `gorm:"primaryKey;size:64"`
	GroundStationChannelID string    `gorm:"index;size:64;not null"`
	SpacecraftChannelID    string    `gorm:"index;size:64;not null"`
	AvailabilitySlotID     string    `gorm:"index;size:128;not null"`
	Start                  time.Time `gorm:"index"`
	End                    time.Time
	State                  string    `gorm:"size:16;not null"`
	GSNotified             bool
	SCNotified             bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (operationalSlotRecord) TableName() string { return "operational_slots" }

// ---- conversions ----

func toGroundStationRecord(gs *model.GroundStation) *groundStationRecord {
	return &groundStationRecord{
		ID:              gs.ID,
		Name:            gs.Name,
		LatitudeDeg:     gs.LatitudeDeg,
		LongitudeDeg:    gs.LongitudeDeg,
		AltitudeM:       gs.AltitudeM,
		MinElevationDeg: gs.MinElevationDeg,
	}
}

func (r *groundStationRecord) toModel() *model.GroundStation {
	return &model.GroundStation{
		ID:              r.ID,
		Name:            r.Name,
		LatitudeDeg:     r.LatitudeDeg,
		LongitudeDeg:    r.LongitudeDeg,
		AltitudeM:       r.AltitudeM,
		MinElevationDeg: r.MinElevationDeg,
	}
}

func toSpacecraftRecord(sc *model.Spacecraft) *spacecraftRecord {
	return &spacecraftRecord{
		ID: sc.ID, Name: sc.Name, Callsign: sc.Callsign,
		TLELine1: sc.TLELine1, TLELine2: sc.TLELine2,
	}
}

func (r *spacecraftRecord) toModel() *model.Spacecraft {
	return &model.Spacecraft{
		ID: r.ID, Name: r.Name, Callsign: r.Callsign,
		TLELine1: r.TLELine1, TLELine2: r.TLELine2,
	}
}

func toGSChannelRecord(ch *model.GroundStationChannel) (*groundStationChannelRecord, error) {
	modulations, err := encodeJSON(ch.Modulations)
	if err != nil {
		return nil, err
	}
	bitrates, err := encodeJSON(ch.BitratesBps)
	if err != nil {
		return nil, err
	}
	bandwidths, err := encodeJSON(ch.BandwidthsHz)
	if err != nil {
		return nil, err
	}
	polarizations, err := encodeJSON(ch.Polarizations)
	if err != nil {
		return nil, err
	}
	return &groundStationChannelRecord{
		ID:              ch.ID,
		GroundStationID: ch.GroundStationID,
		MinHz:           ch.Band.MinHz,
		MaxHz:           ch.Band.MaxHz,
		Modulations:     modulations,
		BitratesBps:     bitrates,
		BandwidthsHz:    bandwidths,
		Polarizations:   polarizations,
		Enabled:         ch.Enabled,
	}, nil
}

func (r *groundStationChannelRecord) toModel() (*model.GroundStationChannel, error) {
	ch := &model.GroundStationChannel{
		ID:              r.ID,
		GroundStationID: r.GroundStationID,
		Band:            model.Band{MinHz: r.MinHz, MaxHz: r.MaxHz},
		Enabled:         r.Enabled,
	}
	if err := decodeJSON(r.Modulations, &ch.Modulations); err != nil {
		return nil, fmt.Errorf("channel %s modulations: %w", r.ID, err)
	}
	if err := decodeJSON(r.BitratesBps, &ch.BitratesBps); err != nil {
		return nil, fmt.Errorf("channel %s bitrates: %w", r.ID, err)
	}
	if err := decodeJSON(r.BandwidthsHz, &ch.BandwidthsHz); err != nil {
		return nil, fmt.Errorf("channel %s bandwidths: %w", r.ID, err)
	}
	if err := decodeJSON(r.Polarizations, &ch.Polarizations); err != nil {
		return nil, fmt.Errorf("channel %s polarizations: %w", r.ID, err)
	}
	return ch, nil
}

func toSCChannelRecord(ch *model.SpacecraftChannel) *spacecraftChannelRecord {
	return &spacecraftChannelRecord{
		ID:           ch.ID,
		SpacecraftID: ch.SpacecraftID,
		FrequencyHz:  ch.FrequencyHz,
		Modulation:   ch.Modulation,
		BitrateBps:   ch.BitrateBps,
		BandwidthHz:  ch.BandwidthHz,
		Polarization: ch.Polarization,
		Enabled:      ch.Enabled,
	}
}

func (r *spacecraftChannelRecord) toModel() *model.SpacecraftChannel {
	return &model.SpacecraftChannel{
		ID:           r.ID,
		SpacecraftID: r.SpacecraftID,
		FrequencyHz:  r.FrequencyHz,
		Modulation:   r.Modulation,
		BitrateBps:   r.BitrateBps,
		BandwidthHz:  r.BandwidthHz,
		Polarization: r.Polarization,
		Enabled:      r.Enabled,
	}
}

// rulePayload is the JSON envelope for the periodicity-specific payload.
type rulePayload struct {
	Once   *model.OncePayload   `json:"once,omitempty"`
	Daily  *model.DailyPayload  `json:"daily,omitempty"`
	Weekly *model.WeeklyPayload `json:"weekly,omitempty"`
}

func toRuleRecord(rule *model.AvailabilityRule) (*ruleRecord, error) {
	payload, err := encodeJSON(rulePayload{Once: rule.Once, Daily: rule.Daily, Weekly: rule.Weekly})
	if err != nil {
		return nil, err
	}
	return &ruleRecord{
		ID:              rule.ID,
		GroundStationID: rule.GroundStationID,
		Operation:       string(rule.Operation),
		Periodicity:     string(rule.Periodicity),
		Start:           rule.Start.UTC(),
		End:             rule.End.UTC(),
		Payload:         payload,
	}, nil
}

func (r *ruleRecord) toModel() (*model.AvailabilityRule, error) {
	var payload rulePayload
	if err := decodeJSON(r.Payload, &payload); err != nil {
		return nil, fmt.Errorf("rule %s payload: %w", r.ID, err)
	}
	return &model.AvailabilityRule{
		ID:              r.ID,
		GroundStationID: r.GroundStationID,
		Operation:       model.RuleOperation(r.Operation),
		Periodicity:     model.Periodicity(r.Periodicity),
		Start:           r.Start.UTC(),
		End:             r.End.UTC(),
		Once:            payload.Once,
		Daily:           payload.Daily,
		Weekly:          payload.Weekly,
	}, nil
}

func toAvailabilitySlotRecord(slot *model.AvailabilitySlot) *availabilitySlotRecord {
	return &availabilitySlotRecord{
		ID:              slot.ID,
		GroundStationID: slot.GroundStationID,
		Start:           slot.Start.UTC(),
		End:             slot.End.UTC(),
	}
}

func (r *availabilitySlotRecord) toModel() *model.AvailabilitySlot {
	return &model.AvailabilitySlot{
		ID:              r.ID,
		GroundStationID: r.GroundStationID,
		Start:           r.Start.UTC(),
		End:             r.End.UTC(),
	}
}

func toCompatibilityRecord(c *model.ChannelCompatibility) *compatibilityRecord {
	return &compatibilityRecord{
		ID:                     c.ID,
		SpacecraftID:           c.SpacecraftID,
		SpacecraftChannelID:    c.SpacecraftChannelID,
		GroundStationID:        c.GroundStationID,
		GroundStationChannelID: c.GroundStationChannelID,
	}
}

func (r *compatibilityRecord) toModel() *model.ChannelCompatibility {
	return &model.ChannelCompatibility{
		ID:                     r.ID,
		SpacecraftID:           r.SpacecraftID,
		SpacecraftChannelID:    r.SpacecraftChannelID,
		GroundStationID:        r.GroundStationID,
		GroundStationChannelID: r.GroundStationChannelID,
	}
}

func toOperationalSlotRecord(slot *model.OperationalSlot) *operationalSlotRecord {
	return &operationalSlotRecord{
		ID:                     slot.ID,
		GroundStationChannelID: slot.GroundStationChannelID,
		SpacecraftChannelID:    slot.SpacecraftChannelID,
		AvailabilitySlotID:     slot.AvailabilitySlotID,
		Start:                  slot.Start.UTC(),
		End:                    slot.End.UTC(),
		State:                  string(slot.State),
		GSNotified:             slot.GSNotified,
		SCNotified:             slot.SCNotified,
	}
}

func (r *operationalSlotRecord) toModel() *model.OperationalSlot {
	return &model.OperationalSlot{
		ID:                     r.ID,
		GroundStationChannelID: r.GroundStationChannelID,
		SpacecraftChannelID:    r.SpacecraftChannelID,
		AvailabilitySlotID:     r.AvailabilitySlotID,
		Start:                  r.Start.UTC(),
		End:                    r.End.UTC(),
		State:                  model.SlotState(r.State),
		GSNotified:             r.GSNotified,
		SCNotified:             r.SCNotified,
	}
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeJSON(s string, v any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}
