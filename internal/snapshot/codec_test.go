package snapshot

import (
	"errors"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"opsched/internal/domain"
	"opsched/internal/engine"
)

func seeded(t *testing.T) *engine.Engine {
	t.Helper()
	e := engine.New()
	for _, id := range []string{"asha", "ben", "chen"} {
		if err := e.AddProvider(domain.Provider{Identity: id, Profession: "surgeon", Location: "ward 1"}); err != nil {
			t.Fatalf("AddProvider error: %v", err)
		}
	}
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if _, err := e.ScheduleAppointment(domain.NewTimeSlot(start, start.Add(time.Hour)), "P1", "surgery", []string{"asha", "ben"}); err != nil {
		t.Fatalf("ScheduleAppointment error: %v", err)
	}
	if err := e.EditProvider("chen", domain.Provider{Identity: "chen-l", Profession: "nurse"}); err != nil {
		t.Fatalf("EditProvider error: %v", err)
	}
	if err := e.RemoveProvider("ben"); err != nil {
		t.Fatalf("RemoveProvider error: %v", err)
	}
	return e
}

func TestEncodeDecodeKeepsStateAndUndoLog(t *testing.T) {
	e := seeded(t)

	b, err := Encode(e)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	got, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}

	if got.UndoDepth() != e.UndoDepth() {
		t.Fatalf("undo depth = %d, want %d", got.UndoDepth(), e.UndoDepth())
	}
	d, ok := got.Diary("asha")
	if !ok || d.Len() != 1 {
		t.Fatalf("asha diary missing or wrong size")
	}
	if loc := d.Appointments()[0].Start.Location(); loc != time.UTC {
		t.Fatalf("appointment location = %v, want UTC", loc)
	}

	// Unwind everything recorded after the providers were added.
	for i := 0; i < 3; i++ {
		if _, err := got.Undo(); err != nil {
			t.Fatalf("Undo %d error: %v", i, err)
		}
	}
	for _, id := range []string{"asha", "ben", "chen"} {
		d, ok := got.Diary(id)
		if !ok {
			t.Fatalf("%s missing after undo", id)
		}
		if d.Len() != 0 {
			t.Fatalf("%s diary len = %d, want 0", id, d.Len())
		}
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("not a snapshot")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	b, err := msgpack.Marshal(&document{Version: 99})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if _, err := Decode(b); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("error = %v, want %v", err, ErrUnsupportedVersion)
	}
}

func TestDecodeRejectsUnknownCommand(t *testing.T) {
	b, err := msgpack.Marshal(&document{Version: formatVersion, Commands: []commandRecord{{Kind: "redo"}}})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if _, err := Decode(b); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDecodeEmptyEngine(t *testing.T) {
	b, err := Encode(engine.New())
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	got, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if len(got.ListProviders()) != 0 || got.UndoDepth() != 0 {
		t.Fatalf("decoded engine not empty")
	}
}
