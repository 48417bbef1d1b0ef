package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"Go2NetModel/internal/config"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server runs the HTTP API and the gRPC health service.
type Server struct {
	http   *http.Server
	grpc   *grpc.Server
	health *health.Server

	grpcAddr string
	grpcLis  net.Listener
	httpLis  net.Listener
}

// NewServer creates a server for cfg. Either listener is skipped when its
// address is empty.
func NewServer(cfg config.APIConfig, handler http.Handler) *Server {
	s := &Server{grpcAddr: cfg.GRPCListenAddr}
	if cfg.ListenAddr != "" {
		s.http = &http.Server{Addr: cfg.ListenAddr, Handler: handler}
	}
	if cfg.GRPCListenAddr != "" {
		s.health = health.NewServer()
		s.grpc = grpc.NewServer()
		healthpb.RegisterHealthServer(s.grpc, s.health)
	}
	return s
}

// Start binds both listeners and serves in the background.
func (s *Server) Start() error {
	if s.http != nil {
		lis, err := net.Listen("tcp", s.http.Addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
		}
		s.httpLis = lis
		go func() {
			log.Printf("API server starting on %s", lis.Addr())
			if err := s.http.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("API server on %s failed: %v", lis.Addr(), err)
			}
		}()
	}

	if s.grpc != nil {
		lis, err := net.Listen("tcp", s.grpcAddr)
		if err != nil {
			if s.httpLis != nil {
				s.httpLis.Close()
			}
			return fmt.Errorf("failed to listen on %s: %w", s.grpcAddr, err)
		}
		s.grpcLis = lis
		s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		go func() {
			log.Printf("gRPC health server starting on %s", lis.Addr())
			if err := s.grpc.Serve(lis); err != nil {
				log.Errorf("gRPC health server on %s failed: %v", lis.Addr(), err)
			}
		}()
	}
	return nil
}

// HTTPAddr returns the bound HTTP address, or nil before Start.
func (s *Server) HTTPAddr() net.Addr {
	if s.httpLis == nil {
		return nil
	}
	return s.httpLis.Addr()
}

// GRPCAddr returns the bound gRPC address, or nil before Start.
func (s *Server) GRPCAddr() net.Addr {
	if s.grpcLis == nil {
		return nil
	}
	return s.grpcLis.Addr()
}

// Shutdown marks the service NOT_SERVING and stops both servers.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.grpc != nil {
		s.health.Shutdown()
		s.grpc.GracefulStop()
	}
	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
	}
	log.Println("API server exited.")
	return nil
}
