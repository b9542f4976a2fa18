package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpc_adapter "github.com/JoeShih716/go-mem-bank/internal/app/core/adapter/in/grpc"
	memory_adapter "github.com/JoeShih716/go-mem-bank/internal/app/core/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-mem-bank/internal/app/core/adapter/out/mysql"
	"github.com/JoeShih716/go-mem-bank/internal/app/core/usecase"
	"github.com/JoeShih716/go-mem-bank/internal/config"
	"github.com/JoeShih716/go-mem-bank/pkg/logger"
	"github.com/JoeShih716/go-mem-bank/pkg/mysql"
	"github.com/JoeShih716/go-mem-bank/pkg/wal"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// 1. 載入設定
	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()
	audit, err := logger.NewAudit(cfg.Log)
	if err != nil {
		return err
	}
	defer audit.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. 選擇 Ledger
	ledger, closeLedger, err := newLedger(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeLedger()

	// 3. 初始化 UseCase
	limits, err := cfg.Bank.Limits()
	if err != nil {
		return err
	}
	coreUseCase := usecase.NewCoreUseCase(ledger,
		usecase.WithBranch(cfg.Bank.Branch),
		usecase.WithLimits(limits),
	)

	// 4. 初始化 gRPC Adapter (Driving Adapter)
	grpcServer := grpc_adapter.NewGrpcServer(coreUseCase, log)

	lis, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr, err)
	}

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(grpc_adapter.AuditUnaryInterceptor(audit)),
		grpc.ChainStreamInterceptor(grpc_adapter.AuditStreamInterceptor(audit)),
	)
	grpc_adapter.RegisterBankServiceServer(s, grpcServer)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus(grpc_adapter.ServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(s)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting gRPC server",
			zap.String("addr", cfg.Server.Addr),
			zap.String("ledger", string(cfg.Ledger.Type)),
		)
		serveErr <- s.Serve(lis)
	}()

	// Graceful Shutdown
	select {
	case err := <-serveErr:
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}
	log.Info("shutting down server")
	healthServer.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(cfg.Server.ShutdownTimeout):
		log.Warn("graceful stop timed out, forcing stop", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
		s.Stop()
	}
	log.Info("server exited")
	return nil
}

// newLedger 依設定建立 Ledger 並回傳清理函式
func newLedger(ctx context.Context, cfg config.Config, log *zap.Logger) (usecase.Ledger, func(), error) {
	switch cfg.Ledger.Type {
	case config.LedgerTypeMySQL:
		dbClient, err := mysql.NewClient(ctx, cfg.MySQL, log)
		if err != nil {
			return nil, nil, err
		}
		log.Info("connected to mysql", zap.String("host", cfg.MySQL.Host))

		ledger := mysql_adapter.NewMySQLLedger(dbClient, log)
		if err := ledger.Migrate(ctx); err != nil {
			dbClient.Close()
			return nil, nil, fmt.Errorf("failed to migrate: %w", err)
		}
		return ledger, func() { dbClient.Close() }, nil

	case config.LedgerTypeMemoryMutex, config.LedgerTypeMemoryLMAX:
		var opts []memory_adapter.Option
		closeWAL := func() {}
		if cfg.Ledger.WALPath != "" {
			walFile, err := wal.NewWAL(cfg.Ledger.WALPath)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to init WAL: %w", err)
			}
			opts = append(opts, memory_adapter.WithWAL(walFile))
			closeWAL = func() {
				if err := walFile.Close(); err != nil {
					log.Error("failed to close WAL", zap.Error(err))
				}
			}
		}

		if cfg.Ledger.Type == config.LedgerTypeMemoryMutex {
			ledger, err := memory_adapter.NewMutexLedger(opts...)
			if err != nil {
				closeWAL()
				return nil, nil, err
			}
			return ledger, closeWAL, nil
		}

		ledger, err := memory_adapter.NewLMAXLedger(opts...)
		if err != nil {
			closeWAL()
			return nil, nil, err
		}
		// LMAX 迴圈在 server 停止後才結束，WAL 要等迴圈 drain 完再關
		loopCtx, cancel := context.WithCancel(context.Background())
		ledger.Start(loopCtx)
		return ledger, func() {
			cancel()
			<-ledger.Done()
			closeWAL()
		}, nil
	}
	return nil, nil, errors.New("unknown ledger type: " + string(cfg.Ledger.Type))
}
