package gameserver

import (
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/cory-johannsen/arena/internal/arena"
	"github.com/cory-johannsen/arena/internal/config"
)

// Server hosts ArenaService. It satisfies server.Service.
type Server struct {
	cfg    config.GRPCConfig
	grpc   *grpc.Server
	logger *zap.Logger
}

// NewServer builds a gRPC server with ArenaService registered.
//
// Precondition: svc and logger must be non-nil.
func NewServer(cfg config.GRPCConfig, svc *arena.Service, logger *zap.Logger) *Server {
	gs := grpc.NewServer(
		grpc.ChainUnaryInterceptor(UnaryInterceptor(svc.Tokens(), logger)),
		grpc.ChainStreamInterceptor(StreamInterceptor(svc.Tokens())),
	)
	gs.RegisterService(&ArenaServiceDesc, NewService(svc, logger))
	return &Server{cfg: cfg, grpc: gs, logger: logger}
}

// Start listens on the configured address and serves until Stop.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(lis)
}

// Serve accepts connections on lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
	return s.grpc.Serve(lis)
}

// Stop drains in-flight calls. Watch streams end when their battles do.
func (s *Server) Stop() {
	s.grpc.GracefulStop()
}
