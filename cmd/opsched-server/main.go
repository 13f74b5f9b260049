package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"opsched/internal/config"
	"opsched/internal/engine"
	"opsched/internal/service/scheduling"
	"opsched/internal/store"
	"opsched/internal/store/file"
	"opsched/internal/store/postgres"
	redisstore "opsched/internal/store/redis"
	grpcTransport "opsched/internal/transport/grpc"
	httpTransport "opsched/internal/transport/http"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "opsched-server"),
	)
	slog.SetDefault(log)

	if err := godotenv.Load(); err == nil {
		log.Info("loaded environment from .env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "opsched-server"),
	)
	slog.SetDefault(log)

	log.Info(
		"starting",
		slog.String("grpc_addr", cfg.GRPCAddr()),
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("snapshot_backend", cfg.SnapshotBackend),
		slog.String("log_level", cfg.LogLevel),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snapshots, ready, closeStore, err := openSnapshotStore(ctx, log, cfg)
	if err != nil {
		log.Error("snapshot store open failed", slog.Any("err", err), slog.String("snapshot_backend", cfg.SnapshotBackend))
		os.Exit(1)
	}
	defer closeStore()

	svc := scheduling.NewService(snapshots, scheduling.Options{
		WorkingHours: engine.WorkingHours{
			DayStart: cfg.DayStart,
			DayEnd:   cfg.DayEnd,
			Step:     cfg.SlotStep,
		},
		MaxSearchDays: cfg.MaxSearchDays,
		SaveOnChange:  cfg.SaveOnChange,
		Logger:        log,
	})
	if cfg.SnapshotLoadOnStart {
		if err := svc.Load(ctx); err != nil {
			log.Warn("snapshot not restored; starting empty", slog.Any("err", err))
		} else {
			log.Info("snapshot restored", slog.Int("providers", len(svc.ListProviders(ctx))))
		}
	}

	interceptors := []grpc.UnaryServerInterceptor{
		grpcTransport.RequestIDInterceptor(log),
		grpcTransport.RequestTimeoutInterceptor(cfg.GRPCRequestTimeout),
	}
	if cfg.GRPCRateLimit > 0 {
		interceptors = append(interceptors, grpcTransport.RateLimitInterceptor(
			grpcTransport.NewRateLimiter(cfg.GRPCRateLimit, cfg.GRPCRateBurst),
		))
	}

	healthServer := health.NewServer()
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))
	grpcTransport.RegisterSchedulingServiceServer(grpcServer, grpcTransport.NewSchedulingServer(svc, log))
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr()))
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpTransport.NewRouter(svc, httpTransport.Options{
			Logger:    log,
			RateLimit: cfg.HTTPRateLimit,
			Ready:     ready,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- grpcServer.Serve(lis)
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Info("servers started", slog.String("grpc_addr", cfg.GRPCAddr()), slog.String("http_addr", cfg.HTTPAddr))

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		healthServer.Shutdown()
		shutdown(log, grpcServer, httpServer, cfg.ShutdownTimeout)
		if cfg.SnapshotBackend != config.SnapshotBackendNone {
			saveCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			if err := svc.Save(saveCtx); err != nil {
				log.Warn("final snapshot save failed", slog.Any("err", err))
			}
			cancel()
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error("server stopped with error", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

// openSnapshotStore returns the configured store, its readiness check
// and a close func that is always safe to call.
func openSnapshotStore(ctx context.Context, log *slog.Logger, cfg config.Config) (store.SnapshotStore, func(context.Context) error, func(), error) {
	noop := func() {}

	switch cfg.SnapshotBackend {
	case config.SnapshotBackendNone:
		return store.Discard{}, nil, noop, nil

	case config.SnapshotBackendFile:
		fs := file.New(cfg.SnapshotPath)
		log.Info("using file snapshots", slog.String("path", fs.Path()))
		return fs, nil, noop, nil

	case config.SnapshotBackendPostgres:
		log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
		db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
			ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
			ApplicationName: cfg.DBApplicationName,
		})
		if err != nil {
			return nil, nil, noop, err
		}
		closeDB := func() {
			if err := postgres.Close(db); err != nil {
				log.Warn("database close failed", slog.Any("err", err))
			}
		}
		repo := postgres.NewSnapshotRepo(db, cfg.SnapshotKeep)
		if err := repo.EnsureSchema(ctx); err != nil {
			closeDB()
			return nil, nil, noop, err
		}
		return repo, postgres.ReadyCheck(db), closeDB, nil

	case config.SnapshotBackendRedis:
		log.Info("connecting to redis", slog.String("redis_addr", cfg.RedisAddr), slog.Int("redis_db", cfg.RedisDB))
		rdb, err := redisstore.Open(ctx, redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, noop, err
		}
		closeRedis := func() {
			if err := rdb.Close(); err != nil {
				log.Warn("redis close failed", slog.Any("err", err))
			}
		}
		ready := func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}
		return redisstore.New(rdb, cfg.RedisKey, cfg.RedisTTL), ready, closeRedis, nil
	}

	return nil, nil, noop, errors.New("unknown snapshot backend " + cfg.SnapshotBackend)
}

func shutdown(log *slog.Logger, s *grpc.Server, hs *http.Server, timeout time.Duration) {
	log.Info("shutting down servers", slog.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := hs.Shutdown(ctx); err != nil {
		log.Warn("http shutdown failed", slog.Any("err", err))
	}

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-ctx.Done():
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		s.Stop()
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
