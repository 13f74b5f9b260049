// Package http exposes the scheduling service as a JSON API over chi.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"opsched/internal/domain"
	"opsched/internal/service/scheduling"
)

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

type Options struct {
	Logger *slog.Logger
	// RateLimit is requests per second per client IP. Zero disables it.
	RateLimit int
	// Ready backs /readyz. Nil means always ready.
	Ready func(ctx context.Context) error
}

type Handler struct {
	svc   schedulingService
	log   *slog.Logger
	ready func(ctx context.Context) error
}

func NewRouter(svc schedulingService, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{
		svc:   svc,
		log:   log.With(slog.String("component", "http.scheduling")),
		ready: opts.Ready,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(log.With(slog.String("component", "http.access"))))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	if opts.RateLimit > 0 {
		r.Use(httprate.LimitByIP(opts.RateLimit, time.Second))
	}

	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/providers", func(r chi.Router) {
			r.Get("/", h.listProviders)
			r.Post("/", h.addProvider)
			r.Put("/{identity}", h.editProvider)
			r.Delete("/{identity}", h.removeProvider)
			r.Get("/{identity}/diary", h.diary)
		})
		r.Post("/appointments", h.schedule)
		r.Get("/availability", h.availability)
		r.Post("/undo", h.undo)
		r.Post("/state/save", h.saveState)
		r.Post("/state/load", h.loadState)
	})

	return r
}

func accessLog(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			ww.Header().Set("X-Request-Id", middleware.GetReqID(r.Context()))

			next.ServeHTTP(ww, r)

			log.Debug(
				"request finished",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.Duration("elapsed", time.Since(start)),
			)
		})
	}
}
