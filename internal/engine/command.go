package engine

import (
	"fmt"
	"slices"

	"opsched/internal/domain"
)

// Command records what is needed to invert one completed mutation. The set
// of implementations is closed; invert is the only interpreter.
type Command interface {
	isCommand()
}

type ProviderAdded struct {
	Identity string
}

type ProviderRemoved struct {
	Provider domain.Provider
	Diary    *domain.Diary
}

type ProviderEdited struct {
	OldIdentity string
	OldProvider domain.Provider
	NewProvider domain.Provider
}

// AppointmentScheduled keeps identities rather than diaries so that undo
// resolves whatever diary each participant owns at undo time.
type AppointmentScheduled struct {
	Appointment  domain.Appointment
	Participants []string
}

func (ProviderAdded) isCommand()        {}
func (ProviderRemoved) isCommand()      {}
func (ProviderEdited) isCommand()       {}
func (AppointmentScheduled) isCommand() {}

// CommandLog is a LIFO of completed commands.
type CommandLog struct {
	stack []Command
}

func (l *CommandLog) Push(c Command) {
	l.stack = append(l.stack, c)
}

func (l *CommandLog) Pop() (Command, bool) {
	if len(l.stack) == 0 {
		return nil, false
	}
	c := l.stack[len(l.stack)-1]
	l.stack[len(l.stack)-1] = nil
	l.stack = l.stack[:len(l.stack)-1]
	return c, true
}

func (l *CommandLog) Len() int {
	return len(l.stack)
}

// Commands lists the log oldest first.
func (l *CommandLog) Commands() []Command {
	return slices.Clone(l.stack)
}

// invert applies the inverse of c directly to the registry. It records
// nothing on the log.
func invert(r *Registry, c Command) error {
	switch c := c.(type) {
	case ProviderAdded:
		_, _, err := r.Remove(c.Identity)
		return err
	case ProviderRemoved:
		r.Restore(c.Provider, c.Diary)
		return nil
	case ProviderEdited:
		_, err := r.Edit(c.NewProvider.Identity, c.OldProvider)
		return err
	case AppointmentScheduled:
		for _, id := range c.Participants {
			if d, ok := r.Diary(id); ok {
				d.RemoveAppointment(c.Appointment)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown command %T", c)
	}
}
