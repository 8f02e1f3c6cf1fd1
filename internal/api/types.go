package api

import (
	"fmt"
	"time"

	"github.com/signalsfoundry/groundstation-scheduler/model"
)

type GroundStationRequest struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	LatitudeDeg     float64 `json:"latitude_deg"`
	LongitudeDeg    float64 `json:"longitude_deg"`
	AltitudeM       float64 `json:"altitude_m"`
	MinElevationDeg float64 `json:"min_elevation_deg"`
}

type SpacecraftRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Callsign string `json:"callsign"`
	TLELine1 string `json:"tle_line1"`
	TLELine2 string `json:"tle_line2"`
}

type GroundStationChannelRequest struct {
	ID              string    `json:"id"`
	GroundStationID string    `json:"ground_station_id"`
	MinHz           float64   `json:"min_hz"`
	MaxHz           float64   `json:"max_hz"`
	Modulations     []string  `json:"modulations"`
	BitratesBps     []int64   `json:"bitrates_bps"`
	BandwidthsHz    []float64 `json:"bandwidths_hz"`
	Polarizations   []string  `json:"polarizations"`
	Enabled         bool      `json:"enabled"`
}

func (r GroundStationChannelRequest) toModel() *model.GroundStationChannel {
	return &model.GroundStationChannel{
		ID:              r.ID,
		GroundStationID: r.GroundStationID,
		Band:            model.Band{MinHz: r.MinHz, MaxHz: r.MaxHz},
		Modulations:     r.Modulations,
		BitratesBps:     r.BitratesBps,
		BandwidthsHz:    r.BandwidthsHz,
		Polarizations:   r.Polarizations,
		Enabled:         r.Enabled,
	}
}

type SpacecraftChannelRequest struct {
	ID           string  `json:"id"`
	SpacecraftID string  `json:"spacecraft_id"`
	FrequencyHz  float64 `json:"frequency_hz"`
	Modulation   string  `json:"modulation"`
	BitrateBps   int64   `json:"bitrate_bps"`
	BandwidthHz  float64 `json:"bandwidth_hz"`
	Polarization string  `json:"polarization"`
	Enabled      bool    `json:"enabled"`
}

func (r SpacecraftChannelRequest) toModel() *model.SpacecraftChannel {
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

type DailyRangeRequest struct {
	StartOfDaySeconds int `json:"start_of_day_seconds"`
	EndOfDaySeconds   int `json:"end_of_day_seconds"`
}

type RuleRequest struct {
	GroundStationID string `json:"ground_station_id"`
	Operation       string `json:"operation"`   // ADD | REMOVE
	Periodicity     string `json:"periodicity"` // ONCE | DAILY | WEEKLY

	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	Once   *struct{}                 `json:"once,omitempty"`
	Daily  *DailyRangeRequest        `json:"daily,omitempty"`
	Weekly map[int]DailyRangeRequest `json:"weekly,omitempty"` // keyed by weekday, 0 = Sunday
}

func (r RuleRequest) toModel() (*model.AvailabilityRule, error) {
	rule := &model.AvailabilityRule{
		GroundStationID: r.GroundStationID,
		Operation:       model.RuleOperation(r.Operation),
		Periodicity:     model.Periodicity(r.Periodicity),
		Start:           r.Start,
		End:             r.End,
	}
	switch rule.Periodicity {
	case model.PeriodicityOnce:
		rule.Once = &model.OncePayload{Start: r.Start, End: r.End}
	case model.PeriodicityDaily:
		if r.Daily == nil {
			return nil, fmt.Errorf("daily rule requires a daily payload")
		}
		rule.Daily = &model.DailyPayload{
			StartOfDay: time.Duration(r.Daily.StartOfDaySeconds) * time.Second,
			EndOfDay:   time.Duration(r.Daily.EndOfDaySeconds) * time.Second,
		}
	case model.PeriodicityWeekly:
		if len(r.Weekly) == 0 {
			return nil, fmt.Errorf("weekly rule requires a weekly payload")
		}
		ranges := make(map[time.Weekday]model.DailyPayload, len(r.Weekly))
		for day, dr := range r.Weekly {
			if day < 0 || day > 6 {
				return nil, fmt.Errorf("weekday %d out of range", day)
			}
			ranges[time.Weekday(day)] = model.DailyPayload{
				StartOfDay: time.Duration(dr.StartOfDaySeconds) * time.Second,
				EndOfDay:   time.Duration(dr.EndOfDaySeconds) * time.Second,
			}
		}
		rule.Weekly = &model.WeeklyPayload{Ranges: ranges}
	}
	return rule, nil
}

type RuleResponse struct {
	ID      string `json:"id"`
	Warning string `json:"warning,omitempty"`
}

type AvailabilitySlotResponse struct {
	ID              string    `json:"id"`
	GroundStationID string    `json:"ground_station_id"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
}

type OperationalSlotResponse struct {
	ID                     string    `json:"id"`
	GroundStationChannelID string    `json:"ground_station_channel_id"`
	SpacecraftChannelID    string    `json:"spacecraft_channel_id"`
	AvailabilitySlotID     string    `json:"availability_slot_id"`
	Start                  time.Time `json:"start"`
	End                    time.Time `json:"end"`
	State                  string    `json:"state"`
}

func toOperationalSlotResponse(s *model.OperationalSlot) OperationalSlotResponse {
	return OperationalSlotResponse{
		ID:                     s.ID,
		GroundStationChannelID: s.GroundStationChannelID,
		SpacecraftChannelID:    s.SpacecraftChannelID,
		AvailabilitySlotID:     s.AvailabilitySlotID,
		Start:                  s.Start,
		End:                    s.End,
		State:                  string(s.State),
	}
}

type SlotBatchRequest struct {
	SlotIDs []string `json:"slot_ids"`
}

type CancelRequest struct {
	Party   string   `json:"party"` // groundstation | spacecraft
	SlotIDs []string `json:"slot_ids"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
