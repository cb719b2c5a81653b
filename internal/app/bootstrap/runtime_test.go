package bootstrap

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"

	appconfig "github.com/wolfman30/clinic-portal/internal/config"
	"github.com/wolfman30/clinic-portal/internal/feedback"
	"github.com/wolfman30/clinic-portal/internal/session"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

func TestBuildRedisClientDisabled(t *testing.T) {
	if client := BuildRedisClient(context.Background(), &appconfig.Config{}, logging.New("error"), true); client != nil {
		t.Fatalf("expected nil client without REDIS_ADDR")
	}
	if client := BuildRedisClient(context.Background(), nil, nil, false); client != nil {
		t.Fatalf("expected nil client for nil config")
	}
}

func TestBuildRedisClientUnreachableReturnsNil(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := &appconfig.Config{RedisAddr: addr}
	if client := BuildRedisClient(context.Background(), cfg, logging.New("error"), true); client != nil {
		t.Fatalf("expected nil client when ping fails")
	}
}

func TestBuildTokenStore(t *testing.T) {
	cfg := &appconfig.Config{APIBaseURL: "https://clinic.example.com/api"}
	if _, ok := BuildTokenStore(nil, cfg).(*session.MemoryStore); !ok {
		t.Fatalf("expected memory store without redis")
	}

	mr := miniredis.RunT(t)
	cfg.RedisAddr = mr.Addr()
	client := BuildRedisClient(context.Background(), cfg, logging.New("error"), true)
	if client == nil {
		t.Fatalf("expected redis client")
	}
	defer client.Close()
	if _, ok := BuildTokenStore(client, cfg).(*session.RedisStore); !ok {
		t.Fatalf("expected redis store")
	}
}

func TestSessionNamespace(t *testing.T) {
	ns := SessionNamespace(&appconfig.Config{APIBaseURL: "https://clinic.example.com/api", OrgID: "org-7"})
	if !strings.HasPrefix(ns, "clinic.example.com/api|") {
		t.Fatalf("unexpected namespace %q", ns)
	}
	if !strings.HasSuffix(ns, "|org-7") {
		t.Fatalf("namespace should end with org id, got %q", ns)
	}
}

func TestBuildMetricsDisabled(t *testing.T) {
	if m := BuildMetrics(&appconfig.Config{MetricsEnabled: false}, prometheus.NewRegistry()); m != nil {
		t.Fatalf("expected nil metrics when disabled")
	}
	if m := BuildMetrics(&appconfig.Config{MetricsEnabled: true}, prometheus.NewRegistry()); m == nil {
		t.Fatalf("expected metrics when enabled")
	}
}

func TestBuildAPIClient(t *testing.T) {
	if _, err := BuildAPIClient(nil, nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
	if _, err := BuildAPIClient(&appconfig.Config{}, nil, nil); err == nil {
		t.Fatalf("expected error for empty base URL")
	}
	client, err := BuildAPIClient(&appconfig.Config{APIBaseURL: "http://localhost:8000/api", APIToken: "tok"}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Token() != "tok" {
		t.Fatalf("expected configured token, got %q", client.Token())
	}
}

func TestBuildMessages(t *testing.T) {
	msgs := BuildMessages(&appconfig.Config{GenericErrorMessage: "A apărut o eroare"})
	if msgs.Generic != "A apărut o eroare" {
		t.Fatalf("unexpected generic message %q", msgs.Generic)
	}
	if got := BuildMessages(nil); got != feedback.DefaultMessages {
		t.Fatalf("expected defaults for nil config, got %+v", got)
	}
}
