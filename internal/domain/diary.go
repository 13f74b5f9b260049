package domain

import "sort"

// Diary holds one provider's appointments ordered by start time. It answers
// overlap queries but never validates on insert; callers check first.
type Diary struct {
	appointments []Appointment
}

func NewDiary(appts ...Appointment) *Diary {
	d := &Diary{}
	for _, a := range appts {
		d.AddAppointment(a)
	}
	return d
}

func (d *Diary) IsOverlapping(candidate Appointment) bool {
	for _, existing := range d.appointments {
		if existing.Overlaps(candidate) {
			return true
		}
	}
	return false
}

func (d *Diary) AddAppointment(a Appointment) {
	a = a.clone()
	i := sort.Search(len(d.appointments), func(i int) bool {
		return a.Start.Before(d.appointments[i].Start)
	})
	d.appointments = append(d.appointments, Appointment{})
	copy(d.appointments[i+1:], d.appointments[i:])
	d.appointments[i] = a
}

// RemoveAppointment drops the first entry structurally equal to a and
// reports whether one was found.
func (d *Diary) RemoveAppointment(a Appointment) bool {
	for i, existing := range d.appointments {
		if existing.Equal(a) {
			d.appointments = append(d.appointments[:i], d.appointments[i+1:]...)
			return true
		}
	}
	return false
}

func (d *Diary) Appointments() []Appointment {
	out := make([]Appointment, 0, len(d.appointments))
	for _, a := range d.appointments {
		out = append(out, a.clone())
	}
	return out
}

func (d *Diary) Len() int {
	return len(d.appointments)
}

func (d *Diary) Clone() *Diary {
	return &Diary{appointments: d.Appointments()}
}
