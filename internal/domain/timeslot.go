package domain

import "time"

// TimeSlot is a half-open [Start, End) range.
type TimeSlot struct {
	Start time.Time `msgpack:"start"`
	End   time.Time `msgpack:"end"`
}

func NewTimeSlot(start, end time.Time) TimeSlot {
	return TimeSlot{Start: start, End: end}
}

func (s TimeSlot) Valid() bool {
	return s.Start.Before(s.End)
}

func (s TimeSlot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

func (s TimeSlot) Equal(o TimeSlot) bool {
	return s.Start.Equal(o.Start) && s.End.Equal(o.End)
}

func (s TimeSlot) String() string {
	return s.Start.Format("2006-01-02T15:04") + " to " + s.End.Format("2006-01-02T15:04")
}

// DateOf truncates t to midnight of its calendar day, keeping the location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
