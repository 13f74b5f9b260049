// Package snapshot converts a whole Engine to and from bytes. The encoding is
// a versioned msgpack document; callers treat the bytes as opaque.
package snapshot

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"opsched/internal/domain"
	"opsched/internal/engine"
)

const formatVersion = 1

var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

type document struct {
	Version   int                             `msgpack:"version"`
	Providers []domain.Provider               `msgpack:"providers"`
	Diaries   map[string][]domain.Appointment `msgpack:"diaries"`
	Commands  []commandRecord                 `msgpack:"commands"`
}

type commandKind string

const (
	kindProviderAdded        commandKind = "provider_added"
	kindProviderRemoved      commandKind = "provider_removed"
	kindProviderEdited       commandKind = "provider_edited"
	kindAppointmentScheduled commandKind = "appointment_scheduled"
)

type commandRecord struct {
	Kind         commandKind          `msgpack:"kind"`
	Identity     string               `msgpack:"identity,omitempty"`
	Provider     *domain.Provider     `msgpack:"provider,omitempty"`
	Diary        []domain.Appointment `msgpack:"diary,omitempty"`
	OldIdentity  string               `msgpack:"old_identity,omitempty"`
	OldProvider  *domain.Provider     `msgpack:"old_provider,omitempty"`
	NewProvider  *domain.Provider     `msgpack:"new_provider,omitempty"`
	Appointment  *domain.Appointment  `msgpack:"appointment,omitempty"`
	Participants []string             `msgpack:"participants,omitempty"`
}

func Encode(e *engine.Engine) ([]byte, error) {
	state := e.State()
	doc := document{
		Version:   formatVersion,
		Providers: state.Providers,
		Diaries:   state.Diaries,
		Commands:  make([]commandRecord, 0, len(state.Commands)),
	}
	for _, c := range state.Commands {
		rec, err := toRecord(c)
		if err != nil {
			return nil, err
		}
		doc.Commands = append(doc.Commands, rec)
	}

	b, err := msgpack.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

func Decode(b []byte, opts ...engine.Option) (*engine.Engine, error) {
	var doc document
	if err := msgpack.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if doc.Version != formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}

	state := engine.State{
		Providers: doc.Providers,
		Diaries:   make(map[string][]domain.Appointment, len(doc.Diaries)),
		Commands:  make([]engine.Command, 0, len(doc.Commands)),
	}
	for id, appts := range doc.Diaries {
		state.Diaries[id] = normalizeAll(appts)
	}
	for i, rec := range doc.Commands {
		c, err := fromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("decode snapshot: command %d: %w", i, err)
		}
		state.Commands = append(state.Commands, c)
	}

	e, err := engine.FromState(state, opts...)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return e, nil
}

func toRecord(c engine.Command) (commandRecord, error) {
	switch c := c.(type) {
	case engine.ProviderAdded:
		return commandRecord{Kind: kindProviderAdded, Identity: c.Identity}, nil
	case engine.ProviderRemoved:
		rec := commandRecord{Kind: kindProviderRemoved, Provider: &c.Provider}
		if c.Diary != nil {
			rec.Diary = c.Diary.Appointments()
		}
		return rec, nil
	case engine.ProviderEdited:
		return commandRecord{
			Kind:        kindProviderEdited,
			OldIdentity: c.OldIdentity,
			OldProvider: &c.OldProvider,
			NewProvider: &c.NewProvider,
		}, nil
	case engine.AppointmentScheduled:
		return commandRecord{
			Kind:         kindAppointmentScheduled,
			Appointment:  &c.Appointment,
			Participants: c.Participants,
		}, nil
	default:
		return commandRecord{}, fmt.Errorf("unknown command %T", c)
	}
}

func fromRecord(rec commandRecord) (engine.Command, error) {
	switch rec.Kind {
	case kindProviderAdded:
		return engine.ProviderAdded{Identity: rec.Identity}, nil
	case kindProviderRemoved:
		if rec.Provider == nil {
			return nil, errors.New("provider_removed without provider")
		}
		return engine.ProviderRemoved{
			Provider: *rec.Provider,
			Diary:    domain.NewDiary(normalizeAll(rec.Diary)...),
		}, nil
	case kindProviderEdited:
		if rec.OldProvider == nil || rec.NewProvider == nil {
			return nil, errors.New("provider_edited without providers")
		}
		return engine.ProviderEdited{
			OldIdentity: rec.OldIdentity,
			OldProvider: *rec.OldProvider,
			NewProvider: *rec.NewProvider,
		}, nil
	case kindAppointmentScheduled:
		if rec.Appointment == nil {
			return nil, errors.New("appointment_scheduled without appointment")
		}
		return engine.AppointmentScheduled{
			Appointment:  normalize(*rec.Appointment),
			Participants: rec.Participants,
		}, nil
	default:
		return nil, fmt.Errorf("unknown command kind %q", rec.Kind)
	}
}

// msgpack decodes timestamps in the local zone; the engine works in UTC.
func normalize(a domain.Appointment) domain.Appointment {
	a.Start = a.Start.UTC()
	a.End = a.End.UTC()
	return a
}

func normalizeAll(appts []domain.Appointment) []domain.Appointment {
	out := make([]domain.Appointment, 0, len(appts))
	for _, a := range appts {
		out = append(out, normalize(a))
	}
	return out
}
