package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/shiftproof/shiftproof/internal/platform/httpx"
	"github.com/shiftproof/shiftproof/internal/platform/timeouts"
	attendanceapi "github.com/shiftproof/shiftproof/internal/services/attendance/api/http/attendance"
	"github.com/shiftproof/shiftproof/internal/services/attendance/service"
	attendancesqlite "github.com/shiftproof/shiftproof/internal/services/attendance/storage/sqlite"
	"github.com/shiftproof/shiftproof/internal/services/attendance/telemetry"
)

// HealthService is the name the gRPC health server reports for the API.
const HealthService = "shiftproof.attendance.v1.AttendanceService"

// Config describes one attendance server process.
type Config struct {
	HTTPAddr   string
	HealthAddr string
	DBPath     string
	// DefaultTimezone applies to projects without a timezone.
	DefaultTimezone     string
	DefaultRadiusMeters float64
	Auth                attendanceapi.AuthConfig
	// Clock overrides time.Now for the service and token checks.
	Clock func() time.Time
}

// Server hosts the attendance HTTP API and the gRPC health endpoint.
type Server struct {
	httpListener   net.Listener
	healthListener net.Listener
	httpServer     *http.Server
	grpcServer     *grpc.Server
	health         *health.Server
	store          *attendancesqlite.Store
}

// New opens storage and binds both listeners.
func New(cfg Config) (*Server, error) {
	loc, err := loadLocation(cfg.DefaultTimezone)
	if err != nil {
		return nil, err
	}
	verifier, err := attendanceapi.NewVerifier(authConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("configure auth: %w", err)
	}
	store, err := openStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	svc, err := service.New(
		service.Stores{Events: store, Challenges: store, Registry: store},
		service.Config{
			DefaultLocation:     loc,
			DefaultRadiusMeters: cfg.DefaultRadiusMeters,
			Metrics:             telemetry.NewMetrics(registry),
			Clock:               cfg.Clock,
		},
	)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build attendance service: %w", err)
	}
	api, err := attendanceapi.NewHandler(svc, verifier, cfg.Clock)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build attendance api: %w", err)
	}

	httpListener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
	}
	healthListener, err := net.Listen("tcp", cfg.HealthAddr)
	if err != nil {
		_ = httpListener.Close()
		_ = store.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.HealthAddr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/v1/", http.TimeoutHandler(api, timeouts.Request, `{"error":"request timed out"}`))
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	mux.HandleFunc("GET /healthz", healthzHandler(store))
	root := httpx.Chain(mux, httpx.RequestID(), httpx.RecoverPanic(), httpx.AccessLog())

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(HealthService, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		httpListener:   httpListener,
		healthListener: healthListener,
		httpServer: &http.Server{
			Handler:           otelhttp.NewHandler(root, "attendance"),
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		grpcServer: grpcServer,
		health:     healthServer,
		store:      store,
	}, nil
}

// Run creates and serves an attendance server until context cancellation.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Addr returns the HTTP listener address.
func (s *Server) Addr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// HealthAddr returns the gRPC health listener address.
func (s *Server) HealthAddr() string {
	if s == nil || s.healthListener == nil {
		return ""
	}
	return s.healthListener.Addr().String()
}

// Serve runs both servers until ctx ends or either fails, then drains them.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("attendance http listening at %v, health at %v", s.httpListener.Addr(), s.healthListener.Addr())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.httpServer.Serve(s.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.grpcServer.Serve(s.healthListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC health: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.health.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("http shutdown: %v", err)
		}
		s.grpcServer.GracefulStop()
		return nil
	})
	return g.Wait()
}

// Close releases listeners and storage.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.httpListener != nil {
		_ = s.httpListener.Close()
	}
	if s.healthListener != nil {
		_ = s.healthListener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close attendance store: %v", err)
		}
	}
}

func healthzHandler(store *attendancesqlite.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			log.Printf("healthz storage ping: %v", err)
			_ = httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func authConfig(cfg Config) attendanceapi.AuthConfig {
	auth := cfg.Auth
	if auth.Now == nil {
		auth.Now = cfg.Clock
	}
	return auth
}

func loadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load default timezone %q: %w", name, err)
	}
	return loc, nil
}

func openStore(path string) (*attendancesqlite.Store, error) {
	if strings.TrimSpace(path) == "" {
		path = filepath.Join("data", "attendance.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := attendancesqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open attendance sqlite store: %w", err)
	}
	return store, nil
}
