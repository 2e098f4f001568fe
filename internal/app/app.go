package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	pb "github.com/godilite/ticket-triage/api/v1"
	"github.com/godilite/ticket-triage/internal/config"
	handler "github.com/godilite/ticket-triage/internal/grpc"
	"github.com/godilite/ticket-triage/internal/httpapi"
	"github.com/godilite/ticket-triage/internal/publisher"
	"github.com/godilite/ticket-triage/internal/repository"
	"github.com/godilite/ticket-triage/internal/service"
	"github.com/godilite/ticket-triage/pkg/cache"
	dbbuilder "github.com/godilite/ticket-triage/pkg/database"
	grpcsrv "github.com/godilite/ticket-triage/pkg/grpc/server"
	httpsrv "github.com/godilite/ticket-triage/pkg/http/server"

	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const (
	shutdownTimeout     = 10 * time.Second
	healthProbeInterval = 15 * time.Second
)

type App struct {
	logger     *zap.Logger
	dbPool     *sql.DB
	cache      cache.Cacher
	publisher  *publisher.KafkaPublisher
	pipeline   *Pipeline
	grpcServer *grpcsrv.Server
	httpServer *httpsrv.Server
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{logger: logger}
	if err := a.init(ctx, cfg); err != nil {
		a.closeResources()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context, cfg *config.Config) error {
	logger := a.logger

	if cfg.DBDriver == "sqlite3" && cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}
	dbPool, err := dbbuilder.New(ctx,
		dbbuilder.WithDriver(cfg.DBDriver),
		dbbuilder.WithDataSource(cfg.DBPath),
		dbbuilder.WithSchema(repository.Schema...),
	)
	if err != nil {
		return fmt.Errorf("database init failed: %w", err)
	}
	a.dbPool = dbPool
	logger.Info("Database pool initialized", zap.String("driver", cfg.DBDriver))

	if cfg.RedisAddr != "" {
		cacheClient, err := cache.New(ctx,
			cache.WithAddress(cfg.RedisAddr),
			cache.WithPassword(cfg.RedisPassword),
			cache.WithDB(cfg.RedisDB),
			cache.WithKeyPrefix("triage:"),
		)
		if err != nil {
			return fmt.Errorf("cache init failed: %w", err)
		}
		a.cache = cacheClient
		logger.Info("Cache client initialized", zap.String("addr", cfg.RedisAddr))
	} else {
		a.cache = cache.Noop{}
		logger.Info("Cache disabled")
	}

	opts := []service.Option{
		service.WithRepository(repository.NewTicketRepository(dbPool, repository.WithDriver(cfg.DBDriver))),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		a.publisher = publisher.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		opts = append(opts, service.WithPublisher(a.publisher))
		logger.Info("Ticket publishing enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	a.pipeline = NewPipeline(cfg, logger, opts...)
	triage := service.NewCachedTriageService(a.pipeline.Service,
		cache.NewReadThrough(a.cache, logger), cfg.CacheRecordTTL, cfg.CacheListTTL)

	grpcServer, err := grpcsrv.New(
		grpcsrv.WithPort(cfg.GRPCPort),
		grpcsrv.WithLogger(logger),
		grpcsrv.WithReflection(cfg.GRPCReflectionEnabled),
		grpcsrv.WithLogging(true),
		grpcsrv.WithHealthProbe(healthProbeInterval, a.dbPool.PingContext),
	)
	if err != nil {
		return fmt.Errorf("failed to create gRPC server: %w", err)
	}
	a.grpcServer = grpcServer

	grpcHandlers := handler.NewGRPCHandlers(triage, logger, cfg.LLM.Timeout+15*time.Second)
	grpcServer.RegisterServiceWithHealth(pb.TicketTriage_ServiceName, func(s *grpc.Server) {
		pb.RegisterTicketTriageServer(s, grpcHandlers)
	})

	httpServer, err := httpsrv.New(
		httpsrv.WithPort(cfg.HTTPPort),
		httpsrv.WithLogger(logger),
		httpsrv.WithLogging(true),
		httpsrv.WithTimeouts(15*time.Second, cfg.LLM.Timeout+30*time.Second),
		httpsrv.WithHandler(httpapi.NewHandlers(triage, logger).Routes()),
	)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}
	a.httpServer = httpServer

	return nil
}

// GRPCAddr returns the gRPC listening address.
func (a *App) GRPCAddr() net.Addr {
	return a.grpcServer.Addr()
}

// HTTPAddr returns the HTTP listening address.
func (a *App) HTTPAddr() net.Addr {
	return a.httpServer.Addr()
}

// Run starts the application and blocks until a shutdown signal is received.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return a.Serve(ctx)
}

// Serve starts both servers and shuts them down when ctx is done.
func (a *App) Serve(ctx context.Context) error {
	a.logger.Info("application starting")

	a.grpcServer.Start()
	a.httpServer.Start()

	<-ctx.Done()
	a.logger.Info("application shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := a.grpcServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("grpc shutdown: %w", err))
	}
	a.closeResources()

	if shutdownCtx.Err() == context.DeadlineExceeded {
		a.logger.Warn("shutdown completed but deadline exceeded")
	} else {
		a.logger.Info("graceful shutdown completed successfully")
	}

	_ = a.logger.Sync()
	return errors.Join(errs...)
}

func (a *App) closeResources() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Error("publisher shutdown error", zap.Error(err))
		}
	}
	if a.pipeline != nil {
		if err := a.pipeline.Close(); err != nil {
			a.logger.Error("model shutdown error", zap.Error(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("cache shutdown error", zap.Error(err))
		}
	}
	if a.dbPool != nil {
		if err := a.dbPool.Close(); err != nil {
			a.logger.Error("database shutdown error", zap.Error(err))
		}
	}
}
