package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/signalsfoundry/groundstation-scheduler/core/booking"
	"github.com/signalsfoundry/groundstation-scheduler/core/orbit"
	"github.com/signalsfoundry/groundstation-scheduler/core/rules"
	"github.com/signalsfoundry/groundstation-scheduler/kb"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeEngineError maps engine sentinels onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, kb.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, kb.ErrExists):
		writeError(w, http.StatusConflict, "already_exists", err.Error())
	case errors.Is(err, rules.ErrInvalidRule):
		writeError(w, http.StatusBadRequest, "invalid_rule", err.Error())
	case errors.Is(err, rules.ErrNotApplicable):
		writeError(w, http.StatusUnprocessableEntity, "rule_not_applicable", err.Error())
	case errors.Is(err, booking.ErrIllegalTransition):
		writeError(w, http.StatusConflict, "illegal_transition", err.Error())
	case errors.Is(err, orbit.ErrSimulationFailed):
		writeError(w, http.StatusBadGateway, "simulation_failed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
