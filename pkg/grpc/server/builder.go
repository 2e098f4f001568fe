package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	health "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Probe reports whether the dependencies behind the registered services are usable.
type Probe func(ctx context.Context) error

type Option func(*options)

type options struct {
	port              int
	logger            *zap.Logger
	reflection        bool
	unaryInterceptors []grpc.UnaryServerInterceptor
	enableLogging     bool
	enableRecovery    bool
	maxRecvMsgSize    int
	probe             Probe
	probeInterval     time.Duration
}

func WithPort(port int) Option {
	return func(o *options) { o.port = port }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithReflection(enabled bool) Option {
	return func(o *options) { o.reflection = enabled }
}

func WithUnaryInterceptors(interceptors ...grpc.UnaryServerInterceptor) Option {
	return func(o *options) {
		o.unaryInterceptors = append(o.unaryInterceptors, interceptors...)
	}
}

func WithLogging(enabled bool) Option {
	return func(o *options) { o.enableLogging = enabled }
}

// WithRecovery converts handler panics into codes.Internal errors.
func WithRecovery(enabled bool) Option {
	return func(o *options) { o.enableRecovery = enabled }
}

// WithMaxRecvMsgSize caps the size of a single request. Defaults to 8 MiB.
func WithMaxRecvMsgSize(n int) Option {
	return func(o *options) { o.maxRecvMsgSize = n }
}

// WithHealthProbe runs probe every interval once the server starts and flips
// every registered service between SERVING and NOT_SERVING accordingly.
func WithHealthProbe(interval time.Duration, probe Probe) Option {
	return func(o *options) {
		o.probe = probe
		o.probeInterval = interval
	}
}

type Server struct {
	grpcServer *grpc.Server
	lis        net.Listener
	logger     *zap.Logger
	health     *health.Server

	probe         Probe
	probeInterval time.Duration
	stopProbe     context.CancelFunc
	probeDone     chan struct{}

	mu       sync.Mutex
	services []string
	serving  bool
}

// New listens on the configured port and builds the gRPC server with its
// interceptor chain and health service.
func New(opts ...Option) (*Server, error) {
	o := &options{
		port:           50051,
		enableRecovery: true,
		maxRecvMsgSize: 8 << 20,
		probeInterval:  15 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}

	// Port 0 picks a free port.
	if o.port < 0 || o.port > 65535 {
		return nil, fmt.Errorf("invalid port %d: must be between 0 and 65535", o.port)
	}
	if o.probe != nil && o.probeInterval <= 0 {
		return nil, fmt.Errorf("invalid health probe interval %s", o.probeInterval)
	}

	logger := o.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", o.port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d: %w", o.port, err)
	}

	var chain []grpc.UnaryServerInterceptor
	if o.enableRecovery {
		chain = append(chain, RecoveryInterceptor(logger))
	}
	if o.enableLogging {
		chain = append(chain, LoggingInterceptor(logger))
	}
	chain = append(chain, o.unaryInterceptors...)

	serverOpts := []grpc.ServerOption{grpc.MaxRecvMsgSize(o.maxRecvMsgSize)}
	if len(chain) > 0 {
		serverOpts = append(serverOpts, grpc.ChainUnaryInterceptor(chain...))
	}
	grpcServer := grpc.NewServer(serverOpts...)

	if o.reflection {
		reflection.Register(grpcServer)
	}

	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)

	return &Server{
		grpcServer:    grpcServer,
		lis:           lis,
		logger:        logger.Named("grpc-server"),
		health:        hs,
		probe:         o.probe,
		probeInterval: o.probeInterval,
		services:      []string{""},
		serving:       true,
	}, nil
}

// RegisterServiceWithHealth registers a service and reports it through the
// health service under serviceName.
func (s *Server) RegisterServiceWithHealth(serviceName string, registerFunc func(s *grpc.Server)) {
	registerFunc(s.grpcServer)
	if serviceName == "" {
		return
	}

	s.mu.Lock()
	s.services = append(s.services, serviceName)
	s.mu.Unlock()

	s.logger.Info("registered service with health check", zap.String("service", serviceName))
}

func (s *Server) setServing(serving bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	for _, name := range s.services {
		s.health.SetServingStatus(name, st)
	}
	if serving != s.serving {
		s.logger.Info("health status changed", zap.String("status", st.String()))
	}
	s.serving = serving
}

func (s *Server) runProbe(ctx context.Context) {
	defer close(s.probeDone)

	check := func() {
		probeCtx, cancel := context.WithTimeout(ctx, s.probeInterval)
		defer cancel()
		err := s.probe(probeCtx)
		if err != nil && ctx.Err() == nil {
			s.logger.Warn("health probe failed", zap.Error(err))
		}
		if ctx.Err() == nil {
			s.setServing(err == nil)
		}
	}

	check()
	ticker := time.NewTicker(s.probeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

// Start serves in the background and returns immediately.
func (s *Server) Start() {
	s.setServing(true)
	if s.probe != nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.stopProbe = cancel
		s.probeDone = make(chan struct{})
		go s.runProbe(ctx)
	}

	s.logger.Info("gRPC server started", zap.String("addr", s.lis.Addr().String()))
	go func() {
		if err := s.grpcServer.Serve(s.lis); err != nil {
			s.logger.Error("gRPC server failed", zap.Error(err))
		}
	}()
}

// Shutdown marks every service NOT_SERVING, then drains in-flight calls until
// ctx expires and stops hard after that.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("gRPC server shutting down")

	if s.stopProbe != nil {
		s.stopProbe()
		<-s.probeDone
	}
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("gRPC server stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("forced shutdown due to timeout")
		s.grpcServer.Stop()
		return ctx.Err()
	}
}

// Addr returns the listening address.
func (s *Server) Addr() net.Addr {
	return s.lis.Addr()
}
