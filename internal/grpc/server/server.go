package server

import (
	"context"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"gmaps-scraper/internal/config"
	"gmaps-scraper/internal/grpc/interceptors"
	"gmaps-scraper/internal/logging"
	"gmaps-scraper/internal/session"
)

// ServiceName is the name reported through the gRPC health service
const ServiceName = "gmaps.Scraper"

// healthCheckInterval is how often dependency health is re-evaluated
const healthCheckInterval = 15 * time.Second

type Server struct {
	cfg    *config.Config
	store  session.Store
	logger logging.Logger

	grpcServer *grpc.Server
	health     *health.Server

	stopOnce sync.Once
	stop     chan struct{}
}

func NewServer(cfg *config.Config, store session.Store) *Server {
	s := &Server{
		cfg:    cfg,
		store:  store,
		logger: logging.GetGlobalLogger().WithField(logging.FieldComponent, "grpc"),
		health: health.NewServer(),
		stop:   make(chan struct{}),
	}

	s.grpcServer = grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 5 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.ChainUnaryInterceptor(
			interceptors.RecoveryInterceptor(),
			interceptors.LoggingInterceptor(),
		),
		grpc.ChainStreamInterceptor(
			interceptors.StreamRecoveryInterceptor(),
			interceptors.StreamLoggingInterceptor(),
		),
	)

	healthpb.RegisterHealthServer(s.grpcServer, s.health)

	// Enable reflection for debugging
	reflection.Register(s.grpcServer)

	s.refreshHealth(context.Background())

	return s
}

// Start serves gRPC on lis until Stop is called
func (s *Server) Start(lis net.Listener) error {
	go s.healthRoutine()

	s.logger.Info("Starting gRPC server", map[string]interface{}{
		"address": lis.Addr().String(),
	})

	return s.grpcServer.Serve(lis)
}

// Stop marks the service as not serving and stops the server gracefully
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.logger.Info("Shutting down gRPC server...")
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
	})
}

// Health returns the health service, mainly for tests
func (s *Server) Health() *health.Server {
	return s.health
}

func (s *Server) healthRoutine() {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			s.refreshHealth(ctx)
			cancel()
		case <-s.stop:
			return
		}
	}
}

// refreshHealth reports SERVING when the API token is set and the session
// store answers
func (s *Server) refreshHealth(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING

	if !s.cfg.HasAPIToken() {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	} else if err := s.store.Ping(ctx); err != nil {
		s.logger.WithError(err).Warn("Session store ping failed")
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
