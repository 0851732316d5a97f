package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/stealthdetect/internal/logging"
	"github.com/dmitrijs2005/stealthdetect/internal/services"
	"google.golang.org/grpc"
)

type GRPCServer struct {
	address   string
	core      *services.Core
	logger    logging.Logger
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewGRPCServer(address string, l logging.Logger, core *services.Core, secretKey []byte, tokenTTL time.Duration) *GRPCServer {
	return &GRPCServer{
		address:   address,
		core:      core,
		logger:    l.With("module", "grpc_server"),
		jwtSecret: secretKey,
		tokenTTL:  tokenTTL,
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve serves on lis and stops gracefully when ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.sessionTokenInterceptor))
	srv.RegisterService(&AuthServiceDesc, s)

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Stopping gRPC server...")
			srv.GracefulStop()
		case <-stopped:
		}
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())
	return srv.Serve(lis)
}
