package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"opsched/internal/service/scheduling"
)

func newTestRouter(t *testing.T, opts Options) (http.Handler, *scheduling.Service) {
	t.Helper()
	svc := scheduling.NewService(nil, scheduling.Options{MaxSearchDays: 10})
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return NewRouter(svc, opts), svc
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealthz(t *testing.T) {
	h, _ := newTestRouter(t, Options{})

	rec := do(t, h, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("missing X-Request-Id header")
	}
}

func TestReadyzReportsFailure(t *testing.T) {
	h, _ := newTestRouter(t, Options{Ready: func(ctx context.Context) error {
		return errors.New("db down")
	}})

	rec := do(t, h, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestProviderLifecycle(t *testing.T) {
	h, _ := newTestRouter(t, Options{})

	rec := do(t, h, http.MethodPost, "/v1/providers", `{"identity":"Asha","profession":"gp"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = do(t, h, http.MethodPost, "/v1/providers", `{"identity":"Asha"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want %d", rec.Code, http.StatusConflict)
	}
	rec = do(t, h, http.MethodPost, "/v1/providers", `{"identity":"  "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = do(t, h, http.MethodPut, "/v1/providers/Asha", `{"identity":"Asha K","profession":"surgeon"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("edit status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/v1/providers", "")
	var list struct {
		Providers []providerBody `json:"providers"`
	}
	decodeBody(t, rec, &list)
	if len(list.Providers) != 1 || list.Providers[0].Identity != "Asha K" {
		t.Fatalf("providers = %+v", list.Providers)
	}

	rec = do(t, h, http.MethodDelete, "/v1/providers/Asha%20K", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("remove status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = do(t, h, http.MethodDelete, "/v1/providers/Asha%20K", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second remove status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestScheduleAndSearch(t *testing.T) {
	h, _ := newTestRouter(t, Options{})
	for _, id := range []string{"asha", "ben"} {
		if rec := do(t, h, http.MethodPost, "/v1/providers", `{"identity":"`+id+`"}`); rec.Code != http.StatusCreated {
			t.Fatalf("add %s status = %d", id, rec.Code)
		}
	}

	booking := `{"start_time":"2026-03-02T09:00:00Z","end_time":"2026-03-02T10:00:00Z","patient_id":"P1","treatment_type":"checkup","participants":["asha","ben"]}`
	rec := do(t, h, http.MethodPost, "/v1/appointments", booking)
	if rec.Code != http.StatusCreated {
		t.Fatalf("schedule status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = do(t, h, http.MethodPost, "/v1/appointments", booking)
	if rec.Code != http.StatusConflict {
		t.Fatalf("overlap status = %d, want %d", rec.Code, http.StatusConflict)
	}

	rec = do(t, h, http.MethodGet, "/v1/providers/ben/diary", "")
	var diary struct {
		Appointments []appointmentBody `json:"appointments"`
	}
	decodeBody(t, rec, &diary)
	if len(diary.Appointments) != 1 || diary.Appointments[0].PatientID != "P1" {
		t.Fatalf("diary = %+v", diary.Appointments)
	}

	rec = do(t, h, http.MethodGet, "/v1/availability?participants=asha,ben&from=2026-03-02&to=2026-03-02&duration=60", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("availability status = %d, body %s", rec.Code, rec.Body.String())
	}
	var slots struct {
		Slots []slotBody `json:"slots"`
	}
	decodeBody(t, rec, &slots)
	if len(slots.Slots) != 13 {
		t.Fatalf("slots = %d, want 13", len(slots.Slots))
	}
}

func TestAvailabilityRejectsBadQuery(t *testing.T) {
	h, _ := newTestRouter(t, Options{})

	tests := []string{
		"/v1/availability?from=2026-03-02&to=2026-03-02",
		"/v1/availability?from=yesterday&to=2026-03-02&duration=30",
		"/v1/availability?from=2026-03-02&to=2026-03-02&duration=0",
	}
	for _, target := range tests {
		if rec := do(t, h, http.MethodGet, target, ""); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s status = %d, want %d", target, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestUndoEndpoint(t *testing.T) {
	h, svc := newTestRouter(t, Options{})
	do(t, h, http.MethodPost, "/v1/providers", `{"identity":"asha"}`)

	rec := do(t, h, http.MethodPost, "/v1/undo", "")
	var resp struct {
		Undone    bool `json:"undone"`
		Remaining int  `json:"remaining"`
	}
	decodeBody(t, rec, &resp)
	if !resp.Undone || resp.Remaining != 0 {
		t.Fatalf("undo = %+v, want undone with 0 remaining", resp)
	}
	if n := len(svc.ListProviders(context.Background())); n != 0 {
		t.Fatalf("providers = %d, want 0", n)
	}

	rec = do(t, h, http.MethodPost, "/v1/undo", "")
	decodeBody(t, rec, &resp)
	if resp.Undone {
		t.Fatalf("undo on empty log reported true")
	}
}

func TestLoadStateWithoutSnapshot(t *testing.T) {
	h, _ := newTestRouter(t, Options{})

	rec := do(t, h, http.MethodPost, "/v1/state/load", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp map[string]bool
	decodeBody(t, rec, &resp)
	if resp["restored"] {
		t.Fatalf("restored = true, want false")
	}
}

func TestBadJSON(t *testing.T) {
	h, _ := newTestRouter(t, Options{})

	rec := do(t, h, http.MethodPost, "/v1/appointments", `{"start_time":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	var body errorBody
	decodeBody(t, rec, &body)
	if body.Error == "" {
		t.Fatalf("empty error message")
	}
}

func TestBodyRules(t *testing.T) {
	h, _ := newTestRouter(t, Options{})

	rec := do(t, h, http.MethodPost, "/v1/providers", `{"identity":"`+strings.Repeat("x", 201)+`"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	var body errorBody
	decodeBody(t, rec, &body)
	if body.Error != "identity must be at most 200 characters" {
		t.Fatalf("error = %q", body.Error)
	}
}

func TestIdentityWithEscapes(t *testing.T) {
	h, _ := newTestRouter(t, Options{})

	if rec := do(t, h, http.MethodPost, "/v1/providers", `{"identity":"50%off"}`); rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, h, http.MethodPost, "/v1/providers", `{"identity":"a/b"}`); rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d, body %s", rec.Code, rec.Body.String())
	}

	if rec := do(t, h, http.MethodGet, "/v1/providers/50%25off/diary", ""); rec.Code != http.StatusOK {
		t.Fatalf("diary 50%%off status = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, h, http.MethodGet, "/v1/providers/a%2Fb/diary", ""); rec.Code != http.StatusOK {
		t.Fatalf("diary a/b status = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, h, http.MethodDelete, "/v1/providers/50%25off", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("remove 50%%off status = %d, body %s", rec.Code, rec.Body.String())
	}
}

type failingUndoService struct {
	*scheduling.Service
}

func (failingUndoService) Undo(ctx context.Context) (bool, error) {
	return true, errors.New("provider gone")
}

func TestUndoPartialFailure(t *testing.T) {
	svc := scheduling.NewService(nil, scheduling.Options{})
	h := NewRouter(failingUndoService{svc}, Options{Logger: slog.Default()})

	rec := do(t, h, http.MethodPost, "/v1/undo", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body undoBody
	decodeBody(t, rec, &body)
	if !body.Undone || body.Warning == "" {
		t.Fatalf("body = %+v, want undone with a warning", body)
	}
}
