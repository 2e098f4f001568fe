package server

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const probedService = "triage.v1.TicketTriage"

func waitForStatus(t *testing.T, client healthpb.HealthClient, want healthpb.HealthCheckResponse_ServingStatus) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	var last healthpb.HealthCheckResponse_ServingStatus
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: probedService})
		cancel()
		if err == nil {
			last = resp.Status
			if last == want {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Expected %v for %s, last saw %v", want, probedService, last)
}

func TestHealthProbe(t *testing.T) {
	var failing atomic.Bool
	probe := func(ctx context.Context) error {
		if failing.Load() {
			return errors.New("database is locked")
		}
		return nil
	}

	server, err := New(
		WithPort(0),
		WithLogger(zaptest.NewLogger(t)),
		WithHealthProbe(20*time.Millisecond, probe),
	)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	server.RegisterServiceWithHealth(probedService, func(*grpc.Server) {})
	server.Start()
	defer func() {
		if err := server.Shutdown(context.Background()); err != nil {
			t.Logf("Server shutdown error: %v", err)
		}
	}()

	conn, err := grpc.NewClient(server.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("Failed to dial server: %v", err)
	}
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	waitForStatus(t, client, healthpb.HealthCheckResponse_SERVING)

	failing.Store(true)
	waitForStatus(t, client, healthpb.HealthCheckResponse_NOT_SERVING)

	failing.Store(false)
	waitForStatus(t, client, healthpb.HealthCheckResponse_SERVING)
}

func TestNewRejectsInvalidProbeInterval(t *testing.T) {
	_, err := New(WithPort(0), WithHealthProbe(0, func(context.Context) error { return nil }))
	if err == nil {
		t.Error("Expected error for zero probe interval")
	}
}
