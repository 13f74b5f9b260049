package http

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"opsched/internal/domain"
	"opsched/internal/engine"
	"opsched/internal/service/scheduling"
)

const dateLayout = "2006-01-02"

type providerBody struct {
	Identity   string `json:"identity" validate:"max=200"`
	Profession string `json:"profession,omitempty" validate:"max=200"`
	Location   string `json:"location,omitempty" validate:"max=200"`
}

type appointmentBody struct {
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	PatientID     string    `json:"patient_id" validate:"max=100"`
	TreatmentType string    `json:"treatment_type" validate:"max=200"`
	Participants  []string  `json:"participants" validate:"max=50,dive,max=200"`
}

type slotBody struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type undoBody struct {
	Undone    bool   `json:"undone"`
	Remaining int    `json:"remaining"`
	Warning   string `json:"warning,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			h.log.Warn("readiness check failed", slog.Any("err", err))
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) listProviders(w http.ResponseWriter, r *http.Request) {
	providers := h.svc.ListProviders(r.Context())
	out := make([]providerBody, 0, len(providers))
	for _, p := range providers {
		out = append(out, toProviderBody(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": out})
}

func (h *Handler) addProvider(w http.ResponseWriter, r *http.Request) {
	var body providerBody
	if !h.decode(w, r, &body) {
		return
	}

	p, err := h.svc.AddProvider(r.Context(), providerInput(body))
	if err != nil {
		h.fail(w, "provider add failed", err, slog.String("identity", body.Identity))
		return
	}

	h.log.Info("provider added", slog.String("identity", p.Identity))
	writeJSON(w, http.StatusCreated, map[string]any{"provider": toProviderBody(p)})
}

func (h *Handler) editProvider(w http.ResponseWriter, r *http.Request) {
	identity, ok := pathIdentity(w, r)
	if !ok {
		return
	}
	var body providerBody
	if !h.decode(w, r, &body) {
		return
	}

	p, err := h.svc.EditProvider(r.Context(), identity, providerInput(body))
	if err != nil {
		h.fail(w, "provider edit failed", err, slog.String("identity", identity), slog.String("new_identity", body.Identity))
		return
	}

	h.log.Info("provider edited", slog.String("identity", identity), slog.String("new_identity", p.Identity))
	writeJSON(w, http.StatusOK, map[string]any{"provider": toProviderBody(p)})
}

func (h *Handler) removeProvider(w http.ResponseWriter, r *http.Request) {
	identity, ok := pathIdentity(w, r)
	if !ok {
		return
	}

	if err := h.svc.RemoveProvider(r.Context(), identity); err != nil {
		h.fail(w, "provider remove failed", err, slog.String("identity", identity))
		return
	}

	h.log.Info("provider removed", slog.String("identity", identity))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) diary(w http.ResponseWriter, r *http.Request) {
	identity, ok := pathIdentity(w, r)
	if !ok {
		return
	}

	appts, err := h.svc.Diary(r.Context(), identity)
	if err != nil {
		h.fail(w, "diary read failed", err, slog.String("identity", identity))
		return
	}

	out := make([]appointmentBody, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentBody(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": out})
}

func (h *Handler) schedule(w http.ResponseWriter, r *http.Request) {
	var body appointmentBody
	if !h.decode(w, r, &body) {
		return
	}

	appt, err := h.svc.Schedule(r.Context(), scheduling.ScheduleInput{
		StartTime:     body.StartTime,
		EndTime:       body.EndTime,
		PatientID:     body.PatientID,
		TreatmentType: body.TreatmentType,
		Participants:  body.Participants,
	})
	if err != nil {
		h.fail(w, "appointment schedule failed", err,
			slog.String("patient_id", body.PatientID),
			slog.Time("start_time", body.StartTime),
			slog.Time("end_time", body.EndTime),
		)
		return
	}

	h.log.Info(
		"appointment scheduled",
		slog.String("patient_id", appt.PatientID),
		slog.Time("start_time", appt.Start),
		slog.Time("end_time", appt.End),
		slog.Int("participants", len(appt.Participants)),
	)
	writeJSON(w, http.StatusCreated, map[string]any{"appointment": toAppointmentBody(appt)})
}

// availability takes participants as a comma separated list, from/to as
// dates and duration in minutes.
func (h *Handler) availability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, err := time.Parse(dateLayout, q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "from must be a date (YYYY-MM-DD)")
		return
	}
	to, err := time.Parse(dateLayout, q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "to must be a date (YYYY-MM-DD)")
		return
	}
	minutes, err := strconv.Atoi(q.Get("duration"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "duration must be a whole number of minutes")
		return
	}

	var participants []string
	for _, v := range q["participants"] {
		participants = append(participants, strings.Split(v, ",")...)
	}

	slots, err := h.svc.FindSlots(r.Context(), scheduling.SearchInput{
		Participants: participants,
		RangeStart:   from,
		RangeEnd:     to,
		Duration:     time.Duration(minutes) * time.Minute,
	})
	if err != nil {
		h.fail(w, "slot search failed", err)
		return
	}

	out := make([]slotBody, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotBody{StartTime: s.Start, EndTime: s.End})
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": out})
}

func (h *Handler) undo(w http.ResponseWriter, r *http.Request) {
	undone, err := h.svc.Undo(r.Context())
	if err != nil && !undone {
		h.log.Error("undo failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	body := undoBody{Undone: undone, Remaining: h.svc.UndoDepth()}
	if err != nil {
		h.log.Error("undo partially applied", slog.Any("err", err), slog.Int("remaining", body.Remaining))
		body.Warning = "last change was discarded but could not be fully reverted"
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) saveState(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Save(r.Context()); err != nil {
		h.log.Error("state save failed", slog.Any("err", err))
		writeError(w, http.StatusServiceUnavailable, "snapshot store unavailable")
		return
	}
	h.log.Info("state saved")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) loadState(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Load(r.Context())
	if errors.Is(err, scheduling.ErrSnapshotUnavailable) {
		h.log.Info("no usable snapshot; started empty", slog.Any("err", err))
		writeJSON(w, http.StatusOK, map[string]bool{"restored": false})
		return
	}
	if err != nil {
		h.log.Error("state load failed", slog.Any("err", err))
		writeError(w, http.StatusServiceUnavailable, "snapshot store unavailable")
		return
	}
	h.log.Info("state loaded")
	writeJSON(w, http.StatusOK, map[string]bool{"restored": true})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.log.Warn("invalid request", slog.String("reason", "bad_json"), slog.Any("err", err))
		writeError(w, http.StatusBadRequest, "request body must be valid JSON")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		h.log.Warn("invalid request", slog.String("reason", "body_rules"), slog.Any("err", err))
		writeError(w, http.StatusBadRequest, bodyError(err))
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error, attrs ...any) {
	attrs = append([]any{slog.Any("err", err)}, attrs...)

	var vErr *scheduling.ValidationError
	switch {
	case errors.As(err, &vErr):
		h.log.Warn("invalid request", attrs...)
		writeError(w, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, engine.ErrInvalidProvider):
		h.log.Warn("invalid request", attrs...)
		writeError(w, http.StatusBadRequest, "provider identity is required")
	case errors.Is(err, engine.ErrInvalidSlot):
		h.log.Warn("invalid request", attrs...)
		writeError(w, http.StatusBadRequest, "end_time must be after start_time on the same day")
	case errors.Is(err, engine.ErrProviderNotFound):
		h.log.Info(msg, attrs...)
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrProviderExists):
		h.log.Info(msg, attrs...)
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrNoParticipants):
		h.log.Info(msg, attrs...)
		writeError(w, http.StatusUnprocessableEntity, "at least one participant is required")
	case errors.Is(err, engine.ErrConflict):
		h.log.Info(msg, attrs...)
		writeError(w, http.StatusConflict, "A participant already has an appointment during that time. Pick a different slot.")
	default:
		h.log.Error(msg, attrs...)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// pathIdentity reads {identity}. chi matches on RawPath when it is set, and
// only then is the segment still escaped.
func pathIdentity(w http.ResponseWriter, r *http.Request) (string, bool) {
	identity := chi.URLParam(r, "identity")
	if r.URL.RawPath == "" {
		return identity, true
	}
	identity, err := url.PathUnescape(identity)
	if err != nil {
		writeError(w, http.StatusBadRequest, "identity is not a valid path segment")
		return "", false
	}
	return identity, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func providerInput(b providerBody) scheduling.ProviderInput {
	return scheduling.ProviderInput{
		Identity:   b.Identity,
		Profession: b.Profession,
		Location:   b.Location,
	}
}

func toProviderBody(p domain.Provider) providerBody {
	return providerBody{
		Identity:   p.Identity,
		Profession: p.Profession,
		Location:   p.Location,
	}
}

func toAppointmentBody(a domain.Appointment) appointmentBody {
	return appointmentBody{
		StartTime:     a.Start,
		EndTime:       a.End,
		PatientID:     a.PatientID,
		TreatmentType: a.TreatmentType,
		Participants:  append([]string(nil), a.Participants...),
	}
}
