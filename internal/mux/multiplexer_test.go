package mux

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"gmaps-scraper/internal/config"
	"gmaps-scraper/internal/grpc/server"
	"gmaps-scraper/internal/session"
)

func TestMultiplexer_ServesHTTPAndGRPC(t *testing.T) {
	cfg := config.Default()
	cfg.Apify.APIToken = "apify_api_test"

	store := session.NewInMemoryStore()
	grpcServer := server.NewServer(cfg, store)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "ok")
	})

	m := NewMultiplexer(cfg, grpcServer, handler)
	if err := m.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		m.Stop(ctx)
	}()

	resp, err := http.Get("http://" + m.Address() + "/")
	if err != nil {
		t.Fatalf("HTTP GET error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("HTTP response = %d %q", resp.StatusCode, body)
	}

	conn, err := grpc.NewClient(m.Address(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient() error = %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	check, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: server.ServiceName})
	if err != nil {
		t.Fatalf("health Check() error = %v", err)
	}
	if check.Status != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("health status = %v, want SERVING", check.Status)
	}
}

func TestServer_NotServingWithoutToken(t *testing.T) {
	cfg := config.Default()
	cfg.Apify.APIToken = ""

	s := server.NewServer(cfg, session.NewInMemoryStore())
	defer s.Stop()

	resp, err := s.Health().Check(context.Background(), &healthpb.HealthCheckRequest{Service: server.ServiceName})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status = %v, want NOT_SERVING", resp.Status)
	}
}
