package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"opsched/internal/domain"
	"opsched/internal/engine"
	"opsched/internal/snapshot"
	"opsched/internal/store"
)

var ErrSnapshotUnavailable = errors.New("snapshot unavailable")

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

const maxAppointmentLength = 24 * time.Hour

type Options struct {
	WorkingHours  engine.WorkingHours
	MaxSearchDays int
	SaveOnChange  bool
	Logger        *slog.Logger
}

// Service owns an Engine and serializes every call into it. It also moves
// whole-engine snapshots to and from a SnapshotStore.
type Service struct {
	mu  sync.Mutex
	eng *engine.Engine

	snapshots     store.SnapshotStore
	engineOpts    []engine.Option
	maxSearchDays int
	saveOnChange  bool
	log           *slog.Logger
}

func NewService(snapshots store.SnapshotStore, opts Options) *Service {
	if snapshots == nil {
		snapshots = store.Discard{}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	var engineOpts []engine.Option
	if opts.WorkingHours != (engine.WorkingHours{}) {
		engineOpts = append(engineOpts, engine.WithWorkingHours(opts.WorkingHours))
	}
	return &Service{
		eng:           engine.New(engineOpts...),
		snapshots:     snapshots,
		engineOpts:    engineOpts,
		maxSearchDays: opts.MaxSearchDays,
		saveOnChange:  opts.SaveOnChange,
		log:           log.With(slog.String("component", "service.scheduling")),
	}
}

type ProviderInput struct {
	Identity   string
	Profession string
	Location   string
}

func (in ProviderInput) provider() domain.Provider {
	return domain.Provider{
		Identity:   strings.TrimSpace(in.Identity),
		Profession: strings.TrimSpace(in.Profession),
		Location:   strings.TrimSpace(in.Location),
	}
}

func (s *Service) AddProvider(ctx context.Context, in ProviderInput) (domain.Provider, error) {
	p := in.provider()
	if p.Identity == "" {
		return domain.Provider{}, validationError("identity is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.eng.AddProvider(p); err != nil {
		return domain.Provider{}, err
	}
	s.changedLocked(ctx)
	return p, nil
}

func (s *Service) RemoveProvider(ctx context.Context, identity string) error {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return validationError("identity is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.eng.RemoveProvider(identity); err != nil {
		return err
	}
	s.changedLocked(ctx)
	return nil
}

func (s *Service) EditProvider(ctx context.Context, oldIdentity string, in ProviderInput) (domain.Provider, error) {
	oldIdentity = strings.TrimSpace(oldIdentity)
	if oldIdentity == "" {
		return domain.Provider{}, validationError("old identity is required")
	}
	p := in.provider()
	if p.Identity == "" {
		return domain.Provider{}, validationError("identity is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.eng.EditProvider(oldIdentity, p); err != nil {
		return domain.Provider{}, err
	}
	s.changedLocked(ctx)
	return p, nil
}

func (s *Service) ListProviders(ctx context.Context) []domain.Provider {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.ListProviders()
}

func (s *Service) Diary(ctx context.Context, identity string) ([]domain.Appointment, error) {
	identity = strings.TrimSpace(identity)

	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.eng.Diary(identity)
	if !ok {
		return nil, engine.ErrProviderNotFound
	}
	return d.Appointments(), nil
}

type ScheduleInput struct {
	StartTime     time.Time
	EndTime       time.Time
	PatientID     string
	TreatmentType string
	Participants  []string
}

func (s *Service) Schedule(ctx context.Context, in ScheduleInput) (domain.Appointment, error) {
	if in.StartTime.IsZero() || in.EndTime.IsZero() {
		return domain.Appointment{}, validationError("start_time and end_time are required")
	}
	patientID := strings.TrimSpace(in.PatientID)
	if patientID == "" {
		return domain.Appointment{}, validationError("patient_id is required")
	}
	treatment := strings.TrimSpace(in.TreatmentType)
	if treatment == "" {
		return domain.Appointment{}, validationError("treatment_type is required")
	}
	slot := domain.NewTimeSlot(in.StartTime.UTC(), in.EndTime.UTC())
	if slot.Duration() > maxAppointmentLength {
		return domain.Appointment{}, validationError("duration too long")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	appt, err := s.eng.ScheduleAppointment(slot, patientID, treatment, trimIdentities(in.Participants))
	if err != nil {
		return domain.Appointment{}, err
	}
	s.changedLocked(ctx)
	return appt, nil
}

type SearchInput struct {
	Participants []string
	RangeStart   time.Time
	RangeEnd     time.Time
	Duration     time.Duration
}

// FindSlots searches the grid for slots every participant can attend. A
// range wider than MaxSearchDays is shortened to that many days after
// RangeStart.
func (s *Service) FindSlots(ctx context.Context, in SearchInput) ([]domain.TimeSlot, error) {
	if in.Duration <= 0 {
		return nil, validationError("duration must be positive")
	}
	if in.Duration > maxAppointmentLength {
		return nil, validationError("duration too long")
	}
	if in.RangeStart.IsZero() || in.RangeEnd.IsZero() {
		return nil, validationError("range_start and range_end are required")
	}

	start := domain.DateOf(in.RangeStart.UTC())
	end := domain.DateOf(in.RangeEnd.UTC())
	if s.maxSearchDays > 0 {
		limit := start.AddDate(0, 0, s.maxSearchDays)
		if end.After(limit) {
			s.log.Debug("search range shortened",
				slog.Time("range_start", start),
				slog.Time("requested_end", end),
				slog.Time("range_end", limit),
			)
			end = limit
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.FindAvailableSlots(normalizeIdentities(in.Participants), start, end, in.Duration), nil
}

func (s *Service) Undo(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	undone, err := s.eng.Undo()
	if undone {
		s.changedLocked(ctx)
	}
	return undone, err
}

func (s *Service) UndoDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.UndoDepth()
}

func (s *Service) Save(ctx context.Context) error {
	s.mu.Lock()
	payload, err := snapshot.Encode(s.eng)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.snapshots.Save(ctx, payload)
}

// Load replaces the engine with the stored snapshot. When no snapshot exists
// or it cannot be decoded, a fresh empty engine is installed and the cause is
// returned wrapped in ErrSnapshotUnavailable. Other store failures leave the
// current engine in place.
func (s *Service) Load(ctx context.Context) error {
	payload, err := s.snapshots.Load(ctx)
	if err != nil && !errors.Is(err, store.ErrNotFound) && !errors.Is(err, store.ErrEmpty) {
		return fmt.Errorf("load snapshot: %w", err)
	}

	var restored *engine.Engine
	if err == nil {
		restored, err = snapshot.Decode(payload, s.engineOpts...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.eng = engine.New(s.engineOpts...)
		return fmt.Errorf("%w: %w", ErrSnapshotUnavailable, err)
	}
	s.eng = restored
	return nil
}

func (s *Service) changedLocked(ctx context.Context) {
	if !s.saveOnChange {
		return
	}
	payload, err := snapshot.Encode(s.eng)
	if err == nil {
		err = s.snapshots.Save(ctx, payload)
	}
	if err != nil {
		s.log.Warn("snapshot save failed", slog.Any("err", err))
	}
}

// trimIdentities keeps blank entries so the engine rejects them as unknown.
func trimIdentities(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, strings.TrimSpace(id))
	}
	return out
}

func normalizeIdentities(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
