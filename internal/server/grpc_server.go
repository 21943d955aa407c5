package server

import (
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/oggyb/cardlink/internal/config"
)

// NewGRPCServer builds the ops gRPC server: standard health checking plus
// reflection for grpcurl.
func NewGRPCServer() (*grpc.Server, *health.Server) {
	grpcServer := grpc.NewServer()

	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)

	// enable reflection for easier debugging with grpcurl
	reflection.Register(grpcServer)

	return grpcServer, hs
}

// StartGRPCServer listens on the configured address and blocks serving.
func StartGRPCServer(cfg *config.Config, grpcServer *grpc.Server) error {
	addr := cfg.GRPC.Addr()
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return grpcServer.Serve(lis)
}
