package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/signalsfoundry/groundstation-scheduler/core/availability"
	"github.com/signalsfoundry/groundstation-scheduler/core/booking"
	"github.com/signalsfoundry/groundstation-scheduler/core/compat"
	"github.com/signalsfoundry/groundstation-scheduler/core/orbit"
	"github.com/signalsfoundry/groundstation-scheduler/core/rules"
	"github.com/signalsfoundry/groundstation-scheduler/internal/clock"
	"github.com/signalsfoundry/groundstation-scheduler/internal/logging"
	"github.com/signalsfoundry/groundstation-scheduler/kb"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	store := kb.NewMemory()
	log := logging.Noop()
	engine := rules.NewEngine(log)
	avail := availability.NewManager(store, engine, log)
	index := compat.NewIndex(store, log)
	clk := clock.NewManual(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	mgr := booking.NewManager(store, engine, avail, index, orbit.StubFactory(false), clk, log,
		booking.WithWindow(48*time.Hour),
	)
	return NewRouter(Config{
		Engine:       mgr,
		Availability: avail,
		Store:        store,
		Log:          log,
	})
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return v
}

func seedScenario(t *testing.T, h http.Handler) {
	t.Helper()

	if rr := doJSON(t, h, http.MethodPost, "/v1/groundstations", GroundStationRequest{
		ID: "gs-1", Name: "Kiruna", LatitudeDeg: 67.86, LongitudeDeg: 20.96,
		AltitudeM: 390, MinElevationDeg: 5,
	}); rr.Code != http.StatusCreated {
		t.Fatalf("create ground station: %d %s", rr.Code, rr.Body.String())
	}
	if rr := doJSON(t, h, http.MethodPost, "/v1/spacecraft", SpacecraftRequest{
		ID: "sc-1", Name: "EO-Demo", Callsign: "EODEM",
	}); rr.Code != http.StatusCreated {
		t.Fatalf("create spacecraft: %d %s", rr.Code, rr.Body.String())
	}
	if rr := doJSON(t, h, http.MethodPost, "/v1/groundstation-channels", GroundStationChannelRequest{
		ID: "gsch-1", GroundStationID: "gs-1",
		MinHz: 2.0e9, MaxHz: 2.3e9,
		Modulations: []string{"QPSK"}, BitratesBps: []int64{9600},
		BandwidthsHz: []float64{25000}, Polarizations: []string{"RHCP"},
		Enabled: true,
	}); rr.Code != http.StatusCreated {
		t.Fatalf("create ground station channel: %d %s", rr.Code, rr.Body.String())
	}
	if rr := doJSON(t, h, http.MethodPost, "/v1/spacecraft-channels", SpacecraftChannelRequest{
		ID: "scch-1", SpacecraftID: "sc-1",
		FrequencyHz: 2.2e9, Modulation: "QPSK", BitrateBps: 9600,
		BandwidthHz: 25000, Polarization: "RHCP", Enabled: true,
	}); rr.Code != http.StatusCreated {
		t.Fatalf("create spacecraft channel: %d %s", rr.Code, rr.Body.String())
	}
	if rr := doJSON(t, h, http.MethodPost, "/v1/rules", RuleRequest{
		GroundStationID: "gs-1",
		Operation:       "ADD",
		Periodicity:     "DAILY",
		Start:           time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		End:             time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Daily:           &DailyRangeRequest{StartOfDaySeconds: 8 * 3600, EndOfDaySeconds: 23*3600 + 55*60},
	}); rr.Code != http.StatusCreated {
		t.Fatalf("add rule: %d %s", rr.Code, rr.Body.String())
	}
}

func TestEndToEndBookingOverHTTP(t *testing.T) {
	h := newTestRouter(t)
	seedScenario(t, h)

	rr := doJSON(t, h, http.MethodGet, "/v1/spacecraft/sc-1/slots", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list slots: %d %s", rr.Code, rr.Body.String())
	}
	slots := decodeBody[[]OperationalSlotResponse](t, rr)
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	for _, s := range slots {
		if s.State != "FREE" {
			t.Fatalf("slot %s state %s, want FREE", s.ID, s.State)
		}
	}

	rr = doJSON(t, h, http.MethodPost, "/v1/slots/select", SlotBatchRequest{SlotIDs: []string{slots[0].ID}})
	if rr.Code != http.StatusOK {
		t.Fatalf("select: %d %s", rr.Code, rr.Body.String())
	}
	selected := decodeBody[[]OperationalSlotResponse](t, rr)
	if len(selected) != 1 || selected[0].State != "SELECTED" {
		t.Fatalf("unexpected select response: %+v", selected)
	}

	// Ground station drains its pending changes, then sees none.
	rr = doJSON(t, h, http.MethodGet, "/v1/groundstations/gs-1/changes", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("changes: %d %s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, h, http.MethodGet, "/v1/groundstations/gs-1/changes", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("drained changes: %d, want 204", rr.Code)
	}

	rr = doJSON(t, h, http.MethodPost, "/v1/slots/confirm", SlotBatchRequest{SlotIDs: []string{slots[0].ID}})
	if rr.Code != http.StatusOK {
		t.Fatalf("confirm: %d %s", rr.Code, rr.Body.String())
	}

	// Confirming an already reserved slot again is allowed by the state
	// machine; confirming a FREE one is not.
	rr = doJSON(t, h, http.MethodPost, "/v1/slots/confirm", SlotBatchRequest{SlotIDs: []string{slots[1].ID}})
	if rr.Code != http.StatusConflict {
		t.Fatalf("illegal confirm: %d, want 409", rr.Code)
	}
	errResp := decodeBody[ErrorResponse](t, rr)
	if errResp.Error != "illegal_transition" {
		t.Fatalf("error code %q, want illegal_transition", errResp.Error)
	}

	rr = doJSON(t, h, http.MethodPost, "/v1/slots/cancel", CancelRequest{Party: "spacecraft", SlotIDs: []string{slots[0].ID}})
	if rr.Code != http.StatusOK {
		t.Fatalf("cancel: %d %s", rr.Code, rr.Body.String())
	}
	canceled := decodeBody[[]OperationalSlotResponse](t, rr)
	if canceled[0].State != "FREE" {
		t.Fatalf("spacecraft cancel state %s, want FREE", canceled[0].State)
	}
}

func TestAvailabilityEndpoint(t *testing.T) {
	h := newTestRouter(t)
	seedScenario(t, h)

	path := fmt.Sprintf("/v1/groundstations/gs-1/availability?start=%s&end=%s",
		"2026-03-01T00:00:00Z", "2026-03-02T00:00:00Z")
	rr := doJSON(t, h, http.MethodGet, path, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("availability: %d %s", rr.Code, rr.Body.String())
	}
	slots := decodeBody[[]AvailabilitySlotResponse](t, rr)
	if len(slots) != 1 {
		t.Fatalf("expected 1 availability slot, got %d", len(slots))
	}
	want := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	if !slots[0].Start.Equal(want) {
		t.Fatalf("slot start %v, want %v", slots[0].Start, want)
	}

	rr = doJSON(t, h, http.MethodGet, "/v1/groundstations/gs-1/availability?start=bogus&end=2026-03-02T00:00:00Z", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bogus window: %d, want 400", rr.Code)
	}
}

func TestWeeklyRuleReturnsWarning(t *testing.T) {
	h := newTestRouter(t)
	seedScenario(t, h)

	rr := doJSON(t, h, http.MethodPost, "/v1/rules", RuleRequest{
		GroundStationID: "gs-1",
		Operation:       "ADD",
		Periodicity:     "WEEKLY",
		Start:           time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		End:             time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Weekly: map[int]DailyRangeRequest{
			1: {StartOfDaySeconds: 8 * 3600, EndOfDaySeconds: 12 * 3600},
		},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("weekly rule: %d %s", rr.Code, rr.Body.String())
	}
	resp := decodeBody[RuleResponse](t, rr)
	if resp.ID == "" || resp.Warning == "" {
		t.Fatalf("expected id and warning, got %+v", resp)
	}
}

func TestErrorMapping(t *testing.T) {
	h := newTestRouter(t)

	rr := doJSON(t, h, http.MethodDelete, "/v1/rules/nope", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("delete missing rule: %d, want 404", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/rules", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: %d, want 400", rec.Code)
	}

	rr = doJSON(t, h, http.MethodGet, "/v1/groundstations/nope/changes", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("changes for unknown segment: %d, want 404", rr.Code)
	}

	rr = doJSON(t, h, http.MethodPost, "/v1/rules", RuleRequest{
		GroundStationID: "gs-1",
		Operation:       "ADD",
		Periodicity:     "ONCE",
		Start:           time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		End:             time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("reversed once rule: %d, want 400: %s", rr.Code, rr.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	store := kb.NewMemory()
	log := logging.Noop()
	engine := rules.NewEngine(log)
	avail := availability.NewManager(store, engine, log)
	index := compat.NewIndex(store, log)
	clk := clock.NewManual(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	mgr := booking.NewManager(store, engine, avail, index, orbit.StubFactory(false), clk, log)
	h := NewRouter(Config{
		Engine:          mgr,
		Availability:    avail,
		Store:           store,
		Log:             log,
		RateLimitPerSec: 1,
		RateLimitBurst:  1,
	})

	first := doJSON(t, h, http.MethodGet, "/health", nil)
	if first.Code != http.StatusOK {
		t.Fatalf("first request: %d", first.Code)
	}
	second := doJSON(t, h, http.MethodGet, "/health", nil)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: %d, want 429", second.Code)
	}
}
