// Package engine implements the in-memory scheduling core: the provider
// registry, per-provider diaries, availability search and the undo log.
//
// An Engine is not safe for concurrent use. Callers serialize access.
package engine

import (
	"fmt"
	"slices"
	"time"

	"opsched/internal/domain"
)

type Engine struct {
	registry *Registry
	log      CommandLog
	hours    WorkingHours
}

type Option func(*Engine)

func WithWorkingHours(h WorkingHours) Option {
	return func(e *Engine) {
		if h.valid() {
			e.hours = h
		}
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{
		registry: NewRegistry(),
		hours:    DefaultWorkingHours(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) WorkingHours() WorkingHours {
	return e.hours
}

func (e *Engine) AddProvider(p domain.Provider) error {
	if err := e.registry.Add(p); err != nil {
		return err
	}
	e.log.Push(ProviderAdded{Identity: p.Identity})
	return nil
}

func (e *Engine) RemoveProvider(identity string) error {
	p, d, err := e.registry.Remove(identity)
	if err != nil {
		return err
	}
	e.log.Push(ProviderRemoved{Provider: p, Diary: d})
	return nil
}

func (e *Engine) EditProvider(oldIdentity string, p domain.Provider) error {
	prev, err := e.registry.Edit(oldIdentity, p)
	if err != nil {
		return err
	}
	e.log.Push(ProviderEdited{OldIdentity: oldIdentity, OldProvider: prev, NewProvider: p})
	return nil
}

// ScheduleAppointment books slot into the diary of every participant or into
// none of them. All diaries are resolved and checked before any is written.
func (e *Engine) ScheduleAppointment(slot domain.TimeSlot, patientID, treatmentType string, identities []string) (domain.Appointment, error) {
	if !slot.Valid() || !domain.SameDate(slot.Start, slot.End) {
		return domain.Appointment{}, ErrInvalidSlot
	}
	if len(identities) == 0 {
		return domain.Appointment{}, ErrNoParticipants
	}

	involved := make([]*domain.Diary, 0, len(identities))
	for _, id := range identities {
		d, ok := e.registry.Diary(id)
		if !ok {
			return domain.Appointment{}, fmt.Errorf("%w: %s", ErrProviderNotFound, id)
		}
		involved = append(involved, d)
	}

	candidate := domain.NewAppointment(slot, patientID, "", nil)
	for i, d := range involved {
		if d.IsOverlapping(candidate) {
			return domain.Appointment{}, fmt.Errorf("%w: %s", ErrConflict, identities[i])
		}
	}

	appt := domain.NewAppointment(slot, patientID, treatmentType, identities)
	for _, d := range uniqueDiaries(involved) {
		d.AddAppointment(appt)
	}
	e.log.Push(AppointmentScheduled{Appointment: appt, Participants: slices.Clone(identities)})
	return appt, nil
}

// uniqueDiaries drops repeats so a provider listed twice is booked once.
func uniqueDiaries(ds []*domain.Diary) []*domain.Diary {
	out := make([]*domain.Diary, 0, len(ds))
	for _, d := range ds {
		if !slices.Contains(out, d) {
			out = append(out, d)
		}
	}
	return out
}

func (e *Engine) FindAvailableSlots(identities []string, rangeStart, rangeEnd time.Time, duration time.Duration) []domain.TimeSlot {
	return findSlots(e.registry, e.hours, identities, rangeStart, rangeEnd, duration)
}

// Undo pops and inverts the most recent command. It reports false when the
// log is empty. The popped command is discarded even if inverting it fails.
func (e *Engine) Undo() (bool, error) {
	c, ok := e.log.Pop()
	if !ok {
		return false, nil
	}
	if err := invert(e.registry, c); err != nil {
		return true, fmt.Errorf("undo %T: %w", c, err)
	}
	return true, nil
}

func (e *Engine) UndoDepth() int {
	return e.log.Len()
}

func (e *Engine) ListProviders() []domain.Provider {
	return e.registry.List()
}

func (e *Engine) Provider(identity string) (domain.Provider, bool) {
	return e.registry.Get(identity)
}

// Diary returns the live diary owned by identity. Callers must treat it as
// read-only.
func (e *Engine) Diary(identity string) (*domain.Diary, bool) {
	return e.registry.Diary(identity)
}
