package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/matheus3301/chatbox/internal/api"
	"github.com/matheus3301/chatbox/internal/relay"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	grpcstatus "google.golang.org/grpc/status"
)

// Server manages the relay's gRPC (directory) and HTTP (websocket, metrics)
// listeners.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	httpServer *http.Server
	grpcAddr   string
	httpAddr   string
	grpcLis    net.Listener
	httpLis    net.Listener
	logger     *zap.Logger
}

// NewServer creates the relay servers. Nothing is bound until Listen.
func NewServer(p Params, logger *zap.Logger, dir *api.DirectoryService, hub *relay.Hub) *Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(logUnary(logger.Named("grpc"))))
	api.RegisterDirectoryServer(srv, dir)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	return &Server{
		grpcServer: srv,
		health:     hs,
		httpServer: &http.Server{
			Handler:           relay.NewRouter(hub, logger),
			ReadHeaderTimeout: 10 * time.Second,
		},
		grpcAddr: p.Config.GRPCAddr,
		httpAddr: p.Config.HTTPAddr,
		logger:   logger,
	}
}

// Listen binds both listeners. A gRPC address of the form unix:///path
// listens on a Unix domain socket.
func (s *Server) Listen() error {
	grpcLis, err := listen(s.grpcAddr)
	if err != nil {
		return fmt.Errorf("listen grpc %s: %w", s.grpcAddr, err)
	}
	httpLis, err := net.Listen("tcp", s.httpAddr)
	if err != nil {
		_ = grpcLis.Close()
		return fmt.Errorf("listen http %s: %w", s.httpAddr, err)
	}
	s.grpcLis, s.httpLis = grpcLis, httpLis
	return nil
}

func listen(addr string) (net.Listener, error) {
	socketPath, ok := strings.CutPrefix(addr, "unix://")
	if !ok {
		return net.Listen("tcp", addr)
	}
	// Clean stale socket if it exists.
	if _, err := os.Stat(socketPath); err == nil {
		_ = os.Remove(socketPath)
	}
	lis, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = lis.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}
	return lis, nil
}

// Serve starts both servers in the background.
func (s *Server) Serve() {
	go func() {
		s.logger.Info("gRPC server starting", zap.String("addr", s.GRPCAddr()))
		if err := s.grpcServer.Serve(s.grpcLis); err != nil {
			s.logger.Error("gRPC server error", zap.Error(err))
		}
	}()
	go func() {
		s.logger.Info("HTTP server starting", zap.String("addr", s.HTTPAddr()))
		if err := s.httpServer.Serve(s.httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
}

// GRPCAddr returns the bound gRPC address, or the configured one before Listen.
func (s *Server) GRPCAddr() string {
	if s.grpcLis == nil {
		return s.grpcAddr
	}
	if s.grpcLis.Addr().Network() == "unix" {
		return "unix://" + s.grpcLis.Addr().String()
	}
	return s.grpcLis.Addr().String()
}

// HTTPAddr returns the bound HTTP address, or the configured one before Listen.
func (s *Server) HTTPAddr() string {
	if s.httpLis == nil {
		return s.httpAddr
	}
	return s.httpLis.Addr().String()
}

// Stop performs a graceful shutdown of both servers.
func (s *Server) Stop(ctx context.Context) {
	s.logger.Info("servers stopping")
	s.health.Shutdown()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("HTTP shutdown", zap.Error(err))
	}
	s.grpcServer.GracefulStop()
	if path, ok := strings.CutPrefix(s.GRPCAddr(), "unix://"); ok {
		_ = os.Remove(path)
	}
}

func logUnary(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Debug("call",
			zap.String("method", info.FullMethod),
			zap.Stringer("code", grpcstatus.Code(err)),
			zap.Duration("duration", time.Since(start)))
		return resp, err
	}
}
