package engine

import (
	"time"

	"opsched/internal/domain"
)

// WorkingHours measures DayStart and DayEnd from midnight.
type WorkingHours struct {
	DayStart time.Duration
	DayEnd   time.Duration
	Step     time.Duration
}

func DefaultWorkingHours() WorkingHours {
	return WorkingHours{
		DayStart: 8 * time.Hour,
		DayEnd:   17 * time.Hour,
		Step:     30 * time.Minute,
	}
}

func (w WorkingHours) valid() bool {
	return w.Step > 0 && w.DayStart >= 0 && w.DayEnd > w.DayStart && w.DayEnd <= 24*time.Hour
}

type diaryLookup interface {
	Diary(identity string) (*domain.Diary, bool)
}

// findSlots treats both range dates as inclusive. A start is tried only while
// start+duration is strictly before the end of the day.
func findSlots(lookup diaryLookup, hours WorkingHours, identities []string, rangeStart, rangeEnd time.Time, duration time.Duration) []domain.TimeSlot {
	if len(identities) == 0 || duration <= 0 || !hours.valid() {
		return nil
	}
	first := domain.DateOf(rangeStart)
	last := domain.DateOf(rangeEnd)
	if first.After(last) {
		return nil
	}

	diaries := make([]*domain.Diary, 0, len(identities))
	for _, id := range identities {
		if d, ok := lookup.Diary(id); ok {
			diaries = append(diaries, d)
		}
	}

	var out []domain.TimeSlot
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		closing := day.Add(hours.DayEnd)
		for start := day.Add(hours.DayStart); start.Add(duration).Before(closing); start = start.Add(hours.Step) {
			candidate := domain.Appointment{Start: start, End: start.Add(duration), PatientID: "candidate"}
			if freeInAll(diaries, candidate) {
				out = append(out, candidate.Slot())
			}
		}
	}
	return out
}

func freeInAll(diaries []*domain.Diary, candidate domain.Appointment) bool {
	for _, d := range diaries {
		if d.IsOverlapping(candidate) {
			return false
		}
	}
	return true
}
