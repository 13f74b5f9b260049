package engine

import (
	"opsched/internal/domain"
)

// State is a plain-data copy of everything an Engine holds: providers, their
// diaries and the undo log (oldest command first).
type State struct {
	Providers []domain.Provider
	Diaries   map[string][]domain.Appointment
	Commands  []Command
}

func (e *Engine) State() State {
	s := State{
		Providers: e.registry.List(),
		Diaries:   make(map[string][]domain.Appointment, e.registry.Len()),
		Commands:  make([]Command, 0, e.log.Len()),
	}
	for _, p := range s.Providers {
		d, _ := e.registry.Diary(p.Identity)
		s.Diaries[p.Identity] = d.Appointments()
	}
	for _, c := range e.log.Commands() {
		s.Commands = append(s.Commands, cloneCommand(c))
	}
	return s
}

// FromState rebuilds an Engine. Providers without a diary entry get an empty
// one; diary entries for unknown providers are ignored.
func FromState(s State, opts ...Option) (*Engine, error) {
	e := New(opts...)
	for _, p := range s.Providers {
		if err := e.registry.Add(p); err != nil {
			return nil, err
		}
		d, _ := e.registry.Diary(p.Identity)
		for _, a := range s.Diaries[p.Identity] {
			d.AddAppointment(a)
		}
	}
	for _, c := range s.Commands {
		e.log.Push(cloneCommand(c))
	}
	return e, nil
}

func cloneCommand(c Command) Command {
	switch c := c.(type) {
	case ProviderRemoved:
		if c.Diary != nil {
			c.Diary = c.Diary.Clone()
		}
		return c
	case AppointmentScheduled:
		c.Appointment = domain.NewAppointment(c.Appointment.Slot(), c.Appointment.PatientID, c.Appointment.TreatmentType, c.Appointment.Participants)
		c.Participants = append([]string(nil), c.Participants...)
		return c
	default:
		return c
	}
}
