package grpc

import "time"

// Dates in search requests are calendar days in UTC.
const dateLayout = "2006-01-02"

type Provider struct {
	Identity   string `json:"identity"`
	Profession string `json:"profession,omitempty"`
	Location   string `json:"location,omitempty"`
}

type Appointment struct {
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	PatientID     string    `json:"patient_id"`
	TreatmentType string    `json:"treatment_type"`
	Participants  []string  `json:"participants"`
}

type TimeSlot struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type AddProviderRequest struct {
	Provider *Provider `json:"provider"`
}

type AddProviderResponse struct {
	Provider *Provider `json:"provider"`
}

type RemoveProviderRequest struct {
	Identity string `json:"identity"`
}

type RemoveProviderResponse struct{}

type EditProviderRequest struct {
	Identity string    `json:"identity"`
	Provider *Provider `json:"provider"`
}

type EditProviderResponse struct {
	Provider *Provider `json:"provider"`
}

type ListProvidersRequest struct{}

type ListProvidersResponse struct {
	Providers []*Provider `json:"providers"`
}

type GetDiaryRequest struct {
	Identity string `json:"identity"`
}

type GetDiaryResponse struct {
	Appointments []*Appointment `json:"appointments"`
}

type ScheduleAppointmentRequest struct {
	StartTime     *time.Time `json:"start_time"`
	EndTime       *time.Time `json:"end_time"`
	PatientID     string     `json:"patient_id"`
	TreatmentType string     `json:"treatment_type"`
	Participants  []string   `json:"participants"`
}

type ScheduleAppointmentResponse struct {
	Appointment *Appointment `json:"appointment"`
}

type FindAvailableSlotsRequest struct {
	Participants    []string `json:"participants"`
	RangeStart      string   `json:"range_start"`
	RangeEnd        string   `json:"range_end"`
	DurationMinutes int32    `json:"duration_minutes"`
}

type FindAvailableSlotsResponse struct {
	Slots []*TimeSlot `json:"slots"`
}

type UndoRequest struct{}

// Warning is set when the command was popped but could not be fully
// reverted. The command is gone either way.
type UndoResponse struct {
	Undone    bool   `json:"undone"`
	Remaining int    `json:"remaining"`
	Warning   string `json:"warning,omitempty"`
}

type SaveStateRequest struct{}

type SaveStateResponse struct{}

type LoadStateRequest struct{}

type LoadStateResponse struct {
	Restored bool `json:"restored"`
}
