package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"tvcompare/internal/catalog"
	"tvcompare/internal/cloud"
	"tvcompare/internal/grpcserver"
	"tvcompare/internal/localstore"
	"tvcompare/pkg/database"
	"tvcompare/pkg/logger"
	"tvcompare/pkg/utils"
)

func main() {
	log := logger.Must(utils.LoadLogConfig())
	defer func() { _ = log.Sync() }()

	cfg := database.DefaultConfig()
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("open local store", zap.Error(err))
	}
	defer db.Close()

	srvCfg := utils.LoadServerConfig()
	local := localstore.New(db, log)
	remote := cloud.New(local, log, cloud.WithTimeout(srvCfg.RemoteTimeout()))
	if err := remote.Restore(context.Background()); err != nil {
		log.Warn("restore remote config", zap.Error(err))
	}
	defer remote.Close()

	// Read-only surface: no notifier, writes go through the HTTP API.
	svc := catalog.NewService(local, remote, nil, log)

	grpcCfg := utils.LoadGrpcConfig()
	listener, err := net.Listen("tcp", grpcCfg.Addr)
	if err != nil {
		log.Fatal("grpc listen", zap.String("addr", grpcCfg.Addr), zap.Error(err))
	}

	grpcServer := grpc.NewServer()
	grpcserver.RegisterCatalogServiceServer(grpcServer, grpcserver.NewServer(svc))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		grpcServer.GracefulStop()
	}()

	log.Info("gRPC server listening", zap.String("addr", grpcCfg.Addr))
	if err := grpcServer.Serve(listener); err != nil {
		log.Error("grpc server stopped", zap.Error(err))
	}
}
