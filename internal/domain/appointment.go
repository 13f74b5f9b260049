package domain

import (
	"slices"
	"time"
)

// Appointment is a booked interval. Participants holds provider identities
// in the order they were requested; an empty TreatmentType marks a candidate slot.
type Appointment struct {
	Start         time.Time `msgpack:"start"`
	End           time.Time `msgpack:"end"`
	TreatmentType string    `msgpack:"treatment_type"`
	Participants  []string  `msgpack:"participants"`
	PatientID     string    `msgpack:"patient_id"`
}

func NewAppointment(slot TimeSlot, patientID, treatmentType string, participants []string) Appointment {
	return Appointment{
		Start:         slot.Start,
		End:           slot.End,
		TreatmentType: treatmentType,
		Participants:  slices.Clone(participants),
		PatientID:     patientID,
	}
}

func (a Appointment) Date() time.Time {
	return DateOf(a.Start)
}

func (a Appointment) Slot() TimeSlot {
	return TimeSlot{Start: a.Start, End: a.End}
}

// Overlaps reports whether a and o fall on the same date and their half-open
// ranges intersect. Ranges that only share a boundary instant do not overlap.
func (a Appointment) Overlaps(o Appointment) bool {
	if !SameDate(a.Start, o.Start) {
		return false
	}
	return a.Start.Before(o.End) && o.Start.Before(a.End)
}

func (a Appointment) Equal(o Appointment) bool {
	return a.Start.Equal(o.Start) &&
		a.End.Equal(o.End) &&
		a.TreatmentType == o.TreatmentType &&
		a.PatientID == o.PatientID &&
		slices.Equal(a.Participants, o.Participants)
}

func (a Appointment) clone() Appointment {
	a.Participants = slices.Clone(a.Participants)
	return a
}
