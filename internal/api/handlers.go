package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/signalsfoundry/groundstation-scheduler/core/booking"
	"github.com/signalsfoundry/groundstation-scheduler/core/interval"
	"github.com/signalsfoundry/groundstation-scheduler/core/rules"
	"github.com/signalsfoundry/groundstation-scheduler/model"
)

func (s *Server) createGroundStation(w http.ResponseWriter, r *http.Request) {
	var req GroundStationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "missing_id", "ground station id is required")
		return
	}
	gs := &model.GroundStation{
		ID:              req.ID,
		Name:            req.Name,
		LatitudeDeg:     req.LatitudeDeg,
		LongitudeDeg:    req.LongitudeDeg,
		AltitudeM:       req.AltitudeM,
		MinElevationDeg: req.MinElevationDeg,
	}
	if err := s.store.CreateGroundStation(r.Context(), gs); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, gs)
}

func (s *Server) listGroundStations(w http.ResponseWriter, r *http.Request) {
	stations, err := s.store.ListGroundStations(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stations)
}

func (s *Server) createSpacecraft(w http.ResponseWriter, r *http.Request) {
	var req SpacecraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "missing_id", "spacecraft id is required")
		return
	}
	sc := &model.Spacecraft{
		ID:       req.ID,
		Name:     req.Name,
		Callsign: req.Callsign,
		TLELine1: req.TLELine1,
		TLELine2: req.TLELine2,
	}
	if err := s.store.CreateSpacecraft(r.Context(), sc); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}

func (s *Server) listSpacecraft(w http.ResponseWriter, r *http.Request) {
	spacecraft, err := s.store.ListSpacecraft(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, spacecraft)
}

// ---- rules ----

func (s *Server) addRule(w http.ResponseWriter, r *http.Request) {
	var req RuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	rule, err := req.toModel()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_rule", err.Error())
		return
	}

	id, err := s.engine.AddRule(r.Context(), rule)
	if err != nil {
		// Weekly rules are accepted and stored but produce no availability
		// yet. The caller gets the ID plus an explicit warning.
		if errors.Is(err, rules.ErrUnsupportedPeriodicity) {
			writeJSON(w, http.StatusCreated, RuleResponse{ID: id, Warning: err.Error()})
			return
		}
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, RuleResponse{ID: id})
}

func (s *Server) removeRule(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.RemoveRule(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- channels ----

func (s *Server) createGroundStationChannel(w http.ResponseWriter, r *http.Request) {
	var req GroundStationChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if req.ID == "" || req.GroundStationID == "" {
		writeError(w, http.StatusBadRequest, "missing_id", "channel id and ground_station_id are required")
		return
	}
	if err := s.engine.CreateGroundStationChannel(r.Context(), req.toModel()); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": req.ID})
}

func (s *Server) updateGroundStationChannel(w http.ResponseWriter, r *http.Request) {
	var req GroundStationChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	req.ID = chi.URLParam(r, "id")
	if err := s.engine.UpdateGroundStationChannel(r.Context(), req.toModel()); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteGroundStationChannel(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteGroundStationChannel(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createSpacecraftChannel(w http.ResponseWriter, r *http.Request) {
	var req SpacecraftChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if req.ID == "" || req.SpacecraftID == "" {
		writeError(w, http.StatusBadRequest, "missing_id", "channel id and spacecraft_id are required")
		return
	}
	if err := s.engine.CreateSpacecraftChannel(r.Context(), req.toModel()); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": req.ID})
}

func (s *Server) updateSpacecraftChannel(w http.ResponseWriter, r *http.Request) {
	var req SpacecraftChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	req.ID = chi.URLParam(r, "id")
	if err := s.engine.UpdateSpacecraftChannel(r.Context(), req.toModel()); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteSpacecraftChannel(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteSpacecraftChannel(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- availability and slots ----

func (s *Server) groundStationAvailability(w http.ResponseWriter, r *http.Request) {
	window, err := windowFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_window", err.Error())
		return
	}
	slots, err := s.avail.GetApplicable(r.Context(), chi.URLParam(r, "id"), window)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	out := make([]AvailabilitySlotResponse, 0, len(slots))
	for _, slot := range slots {
		out = append(out, AvailabilitySlotResponse{
			ID:              slot.ID,
			GroundStationID: slot.GroundStationID,
			Start:           slot.Start,
			End:             slot.End,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func windowFromQuery(r *http.Request) (interval.Interval, error) {
	q := r.URL.Query()
	start, err := time.Parse(time.RFC3339, q.Get("start"))
	if err != nil {
		return interval.Interval{}, errors.New("start must be RFC3339")
	}
	end, err := time.Parse(time.RFC3339, q.Get("end"))
	if err != nil {
		return interval.Interval{}, errors.New("end must be RFC3339")
	}
	w := interval.New(start, end)
	if !w.IsValid() {
		return interval.Interval{}, errors.New("end must be after start")
	}
	return w, nil
}

func (s *Server) operationalSlots(party booking.Party) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slots, err := s.engine.OperationalSlots(r.Context(), party, chi.URLParam(r, "id"))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		out := make([]OperationalSlotResponse, 0, len(slots))
		for _, slot := range slots {
			out = append(out, toOperationalSlotResponse(slot))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) changes(party booking.Party) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slots, err := s.engine.Changes(r.Context(), party, chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, booking.ErrNoChanges) {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			writeEngineError(w, err)
			return
		}
		out := make([]OperationalSlotResponse, 0, len(slots))
		for _, slot := range slots {
			out = append(out, toOperationalSlotResponse(slot))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// ---- booking ----

func (s *Server) batchTransition(apply func(r *http.Request, ids []string) ([]*model.OperationalSlot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SlotBatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if len(req.SlotIDs) == 0 {
			writeError(w, http.StatusBadRequest, "missing_slot_ids", "slot_ids is required")
			return
		}
		slots, err := apply(r, req.SlotIDs)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		out := make([]OperationalSlotResponse, 0, len(slots))
		for _, slot := range slots {
			out = append(out, toOperationalSlotResponse(slot))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if len(req.SlotIDs) == 0 {
		writeError(w, http.StatusBadRequest, "missing_slot_ids", "slot_ids is required")
		return
	}
	var party booking.Party
	switch req.Party {
	case "groundstation":
		party = booking.PartyGroundStation
	case "spacecraft":
		party = booking.PartySpacecraft
	default:
		writeError(w, http.StatusBadRequest, "invalid_party", "party must be groundstation or spacecraft")
		return
	}
	slots, err := s.engine.CancelReservation(r.Context(), party, req.SlotIDs)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	out := make([]OperationalSlotResponse, 0, len(slots))
	for _, slot := range slots {
		out = append(out, toOperationalSlotResponse(slot))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) propagate(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.PropagateWindow(r.Context()); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
