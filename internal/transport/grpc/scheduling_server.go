package grpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"opsched/internal/domain"
	"opsched/internal/engine"
	"opsched/internal/service/scheduling"
)

type SchedulingServer struct {
	svc schedulingService
	log *slog.Logger
}

type schedulingService interface {
	AddProvider(ctx context.Context, in scheduling.ProviderInput) (domain.Provider, error)
	RemoveProvider(ctx context.Context, identity string) error
	EditProvider(ctx context.Context, oldIdentity string, in scheduling.ProviderInput) (domain.Provider, error)
	ListProviders(ctx context.Context) []domain.Provider
	Diary(ctx context.Context, identity string) ([]domain.Appointment, error)
	Schedule(ctx context.Context, in scheduling.ScheduleInput) (domain.Appointment, error)
	FindSlots(ctx context.Context, in scheduling.SearchInput) ([]domain.TimeSlot, error)
	Undo(ctx context.Context) (bool, error)
	UndoDepth() int
	Save(ctx context.Context) error
	Load(ctx context.Context) error
}

var _ SchedulingServiceServer = (*SchedulingServer)(nil)

func NewSchedulingServer(svc schedulingService, log *slog.Logger) *SchedulingServer {
	if log == nil {
		log = slog.Default()
	}
	return &SchedulingServer{
		svc: svc,
		log: log.With(slog.String("component", "grpc.scheduling")),
	}
}

func (s *SchedulingServer) rpcLog(ctx context.Context, rpc string) *slog.Logger {
	log := s.log.With(slog.String("rpc", rpc))
	if id := RequestIDFromContext(ctx); id != "" {
		log = log.With(slog.String("request_id", id))
	}
	return log
}

func (s *SchedulingServer) AddProvider(ctx context.Context, req *AddProviderRequest) (*AddProviderResponse, error) {
	log := s.rpcLog(ctx, "AddProvider")

	if req == nil || req.Provider == nil {
		log.Warn("invalid request", slog.String("reason", "missing_provider"))
		return nil, status.Error(codes.InvalidArgument, "provider is required")
	}

	p, err := s.svc.AddProvider(ctx, providerInput(req.Provider))
	if err != nil {
		return nil, toStatus(log, "provider add failed", err, slog.String("identity", req.Provider.Identity))
	}

	log.Info("provider added", slog.String("identity", p.Identity))
	return &AddProviderResponse{Provider: toWireProvider(p)}, nil
}

func (s *SchedulingServer) RemoveProvider(ctx context.Context, req *RemoveProviderRequest) (*RemoveProviderResponse, error) {
	log := s.rpcLog(ctx, "RemoveProvider")

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	if err := s.svc.RemoveProvider(ctx, req.Identity); err != nil {
		return nil, toStatus(log, "provider remove failed", err, slog.String("identity", req.Identity))
	}

	log.Info("provider removed", slog.String("identity", req.Identity))
	return &RemoveProviderResponse{}, nil
}

func (s *SchedulingServer) EditProvider(ctx context.Context, req *EditProviderRequest) (*EditProviderResponse, error) {
	log := s.rpcLog(ctx, "EditProvider")

	if req == nil || req.Provider == nil {
		log.Warn("invalid request", slog.String("reason", "missing_provider"))
		return nil, status.Error(codes.InvalidArgument, "provider is required")
	}

	p, err := s.svc.EditProvider(ctx, req.Identity, providerInput(req.Provider))
	if err != nil {
		return nil, toStatus(log, "provider edit failed", err,
			slog.String("identity", req.Identity),
			slog.String("new_identity", req.Provider.Identity),
		)
	}

	log.Info("provider edited", slog.String("identity", req.Identity), slog.String("new_identity", p.Identity))
	return &EditProviderResponse{Provider: toWireProvider(p)}, nil
}

func (s *SchedulingServer) ListProviders(ctx context.Context, req *ListProvidersRequest) (*ListProvidersResponse, error) {
	log := s.rpcLog(ctx, "ListProviders")

	providers := s.svc.ListProviders(ctx)
	out := make([]*Provider, 0, len(providers))
	for _, p := range providers {
		out = append(out, toWireProvider(p))
	}

	log.Debug("providers listed", slog.Int("count", len(out)))
	return &ListProvidersResponse{Providers: out}, nil
}

func (s *SchedulingServer) GetDiary(ctx context.Context, req *GetDiaryRequest) (*GetDiaryResponse, error) {
	log := s.rpcLog(ctx, "GetDiary")

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	appts, err := s.svc.Diary(ctx, req.Identity)
	if err != nil {
		return nil, toStatus(log, "diary read failed", err, slog.String("identity", req.Identity))
	}

	out := make([]*Appointment, 0, len(appts))
	for _, a := range appts {
		out = append(out, toWireAppointment(a))
	}

	log.Debug("diary listed", slog.String("identity", req.Identity), slog.Int("count", len(out)))
	return &GetDiaryResponse{Appointments: out}, nil
}

func (s *SchedulingServer) ScheduleAppointment(ctx context.Context, req *ScheduleAppointmentRequest) (*ScheduleAppointmentResponse, error) {
	log := s.rpcLog(ctx, "ScheduleAppointment")

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if req.StartTime == nil || req.EndTime == nil {
		log.Warn("invalid request", slog.String("reason", "missing_times"), slog.String("patient_id", req.PatientID))
		return nil, status.Error(codes.InvalidArgument, "start_time and end_time are required")
	}

	appt, err := s.svc.Schedule(ctx, scheduling.ScheduleInput{
		StartTime:     *req.StartTime,
		EndTime:       *req.EndTime,
		PatientID:     req.PatientID,
		TreatmentType: req.TreatmentType,
		Participants:  req.Participants,
	})
	if err != nil {
		return nil, toStatus(log, "appointment schedule failed", err,
			slog.String("patient_id", req.PatientID),
			slog.Time("start_time", *req.StartTime),
			slog.Time("end_time", *req.EndTime),
		)
	}

	log.Info(
		"appointment scheduled",
		slog.String("patient_id", appt.PatientID),
		slog.Time("start_time", appt.Start),
		slog.Time("end_time", appt.End),
		slog.Int("participants", len(appt.Participants)),
	)
	return &ScheduleAppointmentResponse{Appointment: toWireAppointment(appt)}, nil
}

func (s *SchedulingServer) FindAvailableSlots(ctx context.Context, req *FindAvailableSlotsRequest) (*FindAvailableSlotsResponse, error) {
	log := s.rpcLog(ctx, "FindAvailableSlots")

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	rangeStart, err := time.Parse(dateLayout, req.RangeStart)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_range_start"))
		return nil, status.Error(codes.InvalidArgument, "range_start must be a date (YYYY-MM-DD)")
	}
	rangeEnd, err := time.Parse(dateLayout, req.RangeEnd)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_range_end"))
		return nil, status.Error(codes.InvalidArgument, "range_end must be a date (YYYY-MM-DD)")
	}

	slots, err := s.svc.FindSlots(ctx, scheduling.SearchInput{
		Participants: req.Participants,
		RangeStart:   rangeStart,
		RangeEnd:     rangeEnd,
		Duration:     time.Duration(req.DurationMinutes) * time.Minute,
	})
	if err != nil {
		return nil, toStatus(log, "slot search failed", err)
	}

	out := make([]*TimeSlot, 0, len(slots))
	for _, sl := range slots {
		out = append(out, &TimeSlot{StartTime: sl.Start, EndTime: sl.End})
	}

	log.Debug(
		"slots found",
		slog.Int("participants", len(req.Participants)),
		slog.String("range_start", req.RangeStart),
		slog.String("range_end", req.RangeEnd),
		slog.Int("count", len(out)),
	)
	return &FindAvailableSlotsResponse{Slots: out}, nil
}

func (s *SchedulingServer) Undo(ctx context.Context, req *UndoRequest) (*UndoResponse, error) {
	log := s.rpcLog(ctx, "Undo")

	undone, err := s.svc.Undo(ctx)
	if err != nil && !undone {
		log.Error("undo failed", slog.Any("err", err))
		return nil, status.Error(codes.Internal, "internal error")
	}

	resp := &UndoResponse{Undone: undone, Remaining: s.svc.UndoDepth()}
	if err != nil {
		log.Error("undo partially applied", slog.Any("err", err), slog.Int("remaining", resp.Remaining))
		resp.Warning = undoWarning
		return resp, nil
	}

	log.Info("undo", slog.Bool("undone", undone), slog.Int("remaining", resp.Remaining))
	return resp, nil
}

func (s *SchedulingServer) SaveState(ctx context.Context, req *SaveStateRequest) (*SaveStateResponse, error) {
	log := s.rpcLog(ctx, "SaveState")

	if err := s.svc.Save(ctx); err != nil {
		log.Error("state save failed", slog.Any("err", err))
		return nil, status.Error(codes.Unavailable, "snapshot store unavailable")
	}

	log.Info("state saved")
	return &SaveStateResponse{}, nil
}

func (s *SchedulingServer) LoadState(ctx context.Context, req *LoadStateRequest) (*LoadStateResponse, error) {
	log := s.rpcLog(ctx, "LoadState")

	err := s.svc.Load(ctx)
	if errors.Is(err, scheduling.ErrSnapshotUnavailable) {
		log.Info("no usable snapshot; started empty", slog.Any("err", err))
		return &LoadStateResponse{Restored: false}, nil
	}
	if err != nil {
		log.Error("state load failed", slog.Any("err", err))
		return nil, status.Error(codes.Unavailable, "snapshot store unavailable")
	}

	log.Info("state loaded")
	return &LoadStateResponse{Restored: true}, nil
}

const undoWarning = "last change was discarded but could not be fully reverted"

// toStatus logs err at a level matching its class and converts it to a gRPC
// status. Client mistakes log at warn/info, everything else at error.
func toStatus(log *slog.Logger, msg string, err error, attrs ...any) error {
	attrs = append([]any{slog.Any("err", err)}, attrs...)

	var vErr *scheduling.ValidationError
	switch {
	case errors.As(err, &vErr):
		log.Warn("invalid request", attrs...)
		return status.Error(codes.InvalidArgument, vErr.Error())
	case errors.Is(err, engine.ErrInvalidProvider):
		log.Warn("invalid request", attrs...)
		return status.Error(codes.InvalidArgument, "provider identity is required")
	case errors.Is(err, engine.ErrInvalidSlot):
		log.Warn("invalid request", attrs...)
		return status.Error(codes.InvalidArgument, "end_time must be after start_time on the same day")
	case errors.Is(err, engine.ErrProviderNotFound):
		log.Info(msg, attrs...)
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, engine.ErrProviderExists):
		log.Info(msg, attrs...)
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, engine.ErrNoParticipants):
		log.Info(msg, attrs...)
		return status.Error(codes.FailedPrecondition, "at least one participant is required")
	case errors.Is(err, engine.ErrConflict):
		log.Info(msg, attrs...)
		return status.Error(codes.FailedPrecondition, "A participant already has an appointment during that time. Pick a different slot.")
	default:
		log.Error(msg, attrs...)
		return status.Error(codes.Internal, "internal error")
	}
}

func providerInput(p *Provider) scheduling.ProviderInput {
	return scheduling.ProviderInput{
		Identity:   p.Identity,
		Profession: p.Profession,
		Location:   p.Location,
	}
}

func toWireProvider(p domain.Provider) *Provider {
	return &Provider{
		Identity:   p.Identity,
		Profession: p.Profession,
		Location:   p.Location,
	}
}

func toWireAppointment(a domain.Appointment) *Appointment {
	return &Appointment{
		StartTime:     a.Start,
		EndTime:       a.End,
		PatientID:     a.PatientID,
		TreatmentType: a.TreatmentType,
		Participants:  append([]string(nil), a.Participants...),
	}
}
