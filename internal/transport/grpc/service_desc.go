package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const serviceName = "opsched.v1.SchedulingService"

type SchedulingServiceServer interface {
	AddProvider(context.Context, *AddProviderRequest) (*AddProviderResponse, error)
	RemoveProvider(context.Context, *RemoveProviderRequest) (*RemoveProviderResponse, error)
	EditProvider(context.Context, *EditProviderRequest) (*EditProviderResponse, error)
	ListProviders(context.Context, *ListProvidersRequest) (*ListProvidersResponse, error)
	GetDiary(context.Context, *GetDiaryRequest) (*GetDiaryResponse, error)
	ScheduleAppointment(context.Context, *ScheduleAppointmentRequest) (*ScheduleAppointmentResponse, error)
	FindAvailableSlots(context.Context, *FindAvailableSlotsRequest) (*FindAvailableSlotsResponse, error)
	Undo(context.Context, *UndoRequest) (*UndoResponse, error)
	SaveState(context.Context, *SaveStateRequest) (*SaveStateResponse, error)
	LoadState(context.Context, *LoadStateRequest) (*LoadStateResponse, error)
}

func RegisterSchedulingServiceServer(s grpc.ServiceRegistrar, srv SchedulingServiceServer) {
	s.RegisterService(&SchedulingServiceDesc, srv)
}

var SchedulingServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*SchedulingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AddProvider", Handler: unaryHandler("AddProvider", SchedulingServiceServer.AddProvider)},
		{MethodName: "RemoveProvider", Handler: unaryHandler("RemoveProvider", SchedulingServiceServer.RemoveProvider)},
		{MethodName: "EditProvider", Handler: unaryHandler("EditProvider", SchedulingServiceServer.EditProvider)},
		{MethodName: "ListProviders", Handler: unaryHandler("ListProviders", SchedulingServiceServer.ListProviders)},
		{MethodName: "GetDiary", Handler: unaryHandler("GetDiary", SchedulingServiceServer.GetDiary)},
		{MethodName: "ScheduleAppointment", Handler: unaryHandler("ScheduleAppointment", SchedulingServiceServer.ScheduleAppointment)},
		{MethodName: "FindAvailableSlots", Handler: unaryHandler("FindAvailableSlots", SchedulingServiceServer.FindAvailableSlots)},
		{MethodName: "Undo", Handler: unaryHandler("Undo", SchedulingServiceServer.Undo)},
		{MethodName: "SaveState", Handler: unaryHandler("SaveState", SchedulingServiceServer.SaveState)},
		{MethodName: "LoadState", Handler: unaryHandler("LoadState", SchedulingServiceServer.LoadState)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "opsched/v1/scheduling",
}

func fullMethod(method string) string {
	return "/" + serviceName + "/" + method
}

type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)

func unaryHandler[Req, Resp any](method string, call func(SchedulingServiceServer, context.Context, *Req) (*Resp, error)) methodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SchedulingServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod(method),
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SchedulingServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// SchedulingServiceClient calls the service with the JSON codec.
type SchedulingServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSchedulingServiceClient(cc grpc.ClientConnInterface) *SchedulingServiceClient {
	return &SchedulingServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SchedulingServiceClient) AddProvider(ctx context.Context, in *AddProviderRequest, opts ...grpc.CallOption) (*AddProviderResponse, error) {
	return invoke[AddProviderResponse](ctx, c.cc, "AddProvider", in, opts)
}

func (c *SchedulingServiceClient) RemoveProvider(ctx context.Context, in *RemoveProviderRequest, opts ...grpc.CallOption) (*RemoveProviderResponse, error) {
	return invoke[RemoveProviderResponse](ctx, c.cc, "RemoveProvider", in, opts)
}

func (c *SchedulingServiceClient) EditProvider(ctx context.Context, in *EditProviderRequest, opts ...grpc.CallOption) (*EditProviderResponse, error) {
	return invoke[EditProviderResponse](ctx, c.cc, "EditProvider", in, opts)
}

func (c *SchedulingServiceClient) ListProviders(ctx context.Context, in *ListProvidersRequest, opts ...grpc.CallOption) (*ListProvidersResponse, error) {
	return invoke[ListProvidersResponse](ctx, c.cc, "ListProviders", in, opts)
}

func (c *SchedulingServiceClient) GetDiary(ctx context.Context, in *GetDiaryRequest, opts ...grpc.CallOption) (*GetDiaryResponse, error) {
	return invoke[GetDiaryResponse](ctx, c.cc, "GetDiary", in, opts)
}

func (c *SchedulingServiceClient) ScheduleAppointment(ctx context.Context, in *ScheduleAppointmentRequest, opts ...grpc.CallOption) (*ScheduleAppointmentResponse, error) {
	return invoke[ScheduleAppointmentResponse](ctx, c.cc, "ScheduleAppointment", in, opts)
}

func (c *SchedulingServiceClient) FindAvailableSlots(ctx context.Context, in *FindAvailableSlotsRequest, opts ...grpc.CallOption) (*FindAvailableSlotsResponse, error) {
	return invoke[FindAvailableSlotsResponse](ctx, c.cc, "FindAvailableSlots", in, opts)
}

func (c *SchedulingServiceClient) Undo(ctx context.Context, in *UndoRequest, opts ...grpc.CallOption) (*UndoResponse, error) {
	return invoke[UndoResponse](ctx, c.cc, "Undo", in, opts)
}

func (c *SchedulingServiceClient) SaveState(ctx context.Context, in *SaveStateRequest, opts ...grpc.CallOption) (*SaveStateResponse, error) {
	return invoke[SaveStateResponse](ctx, c.cc, "SaveState", in, opts)
}

func (c *SchedulingServiceClient) LoadState(ctx context.Context, in *LoadStateRequest, opts ...grpc.CallOption) (*LoadStateResponse, error) {
	return invoke[LoadStateResponse](ctx, c.cc, "LoadState", in, opts)
}
