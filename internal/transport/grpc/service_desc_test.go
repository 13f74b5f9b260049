package grpc

import (
	"context"
	"log/slog"
	"testing"

	"google.golang.org/grpc"

	"opsched/internal/domain"
)

func TestServiceDesc_ListsEveryMethod(t *testing.T) {
	want := []string{
		"AddProvider", "RemoveProvider", "EditProvider", "ListProviders", "GetDiary",
		"ScheduleAppointment", "FindAvailableSlots", "Undo", "SaveState", "LoadState",
	}
	if len(SchedulingServiceDesc.Methods) != len(want) {
		t.Fatalf("methods = %d, want %d", len(SchedulingServiceDesc.Methods), len(want))
	}
	for i, m := range SchedulingServiceDesc.Methods {
		if m.MethodName != want[i] {
			t.Fatalf("method %d = %q, want %q", i, m.MethodName, want[i])
		}
		if m.Handler == nil {
			t.Fatalf("method %q has no handler", m.MethodName)
		}
	}
}

func listProvidersHandler(t *testing.T) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	t.Helper()
	for _, m := range SchedulingServiceDesc.Methods {
		if m.MethodName == "ListProviders" {
			return m.Handler
		}
	}
	t.Fatalf("ListProviders not registered")
	return nil
}

func TestServiceDesc_HandlerDecodesAndCalls(t *testing.T) {
	srv := NewSchedulingServer(&fakeSchedulingService{
		listProvidersFn: func(ctx context.Context) []domain.Provider {
			return []domain.Provider{{Identity: "asha"}}
		},
	}, slog.Default())
	handler := listProvidersHandler(t)

	decoded := false
	dec := func(v any) error {
		if _, ok := v.(*ListProvidersRequest); !ok {
			t.Fatalf("decode target = %T, want *ListProvidersRequest", v)
		}
		decoded = true
		return nil
	}

	resp, err := handler(srv, context.Background(), dec, nil)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !decoded {
		t.Fatalf("request was not decoded")
	}
	out, ok := resp.(*ListProvidersResponse)
	if !ok || len(out.Providers) != 1 || out.Providers[0].Identity != "asha" {
		t.Fatalf("resp = %#v", resp)
	}
}

func TestServiceDesc_HandlerRunsInterceptor(t *testing.T) {
	srv := NewSchedulingServer(&fakeSchedulingService{
		listProvidersFn: func(ctx context.Context) []domain.Provider { return nil },
	}, slog.Default())
	handler := listProvidersHandler(t)

	var method string
	interceptor := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		method = info.FullMethod
		return next(ctx, req)
	}

	if _, err := handler(srv, context.Background(), func(any) error { return nil }, interceptor); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if method != "/opsched.v1.SchedulingService/ListProviders" {
		t.Fatalf("full method = %q", method)
	}
}
