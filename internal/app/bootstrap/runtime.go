package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"os/user"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-portal/internal/api"
	appconfig "github.com/wolfman30/clinic-portal/internal/config"
	"github.com/wolfman30/clinic-portal/internal/feedback"
	"github.com/wolfman30/clinic-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-portal/internal/session"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available, session will not persist", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildTokenStore keeps the session token in redis when available so
// separate invocations share a login. Without redis the token lives only
// for the current process.
func BuildTokenStore(redisClient *redis.Client, cfg *appconfig.Config) session.TokenStore {
	if redisClient == nil {
		return session.NewMemoryStore()
	}
	return session.NewRedisStore(redisClient, SessionNamespace(cfg))
}

// SessionNamespace scopes stored sessions by API endpoint, organization and
// OS user.
func SessionNamespace(cfg *appconfig.Config) string {
	owner := "default"
	if u, err := user.Current(); err == nil && u.Username != "" {
		owner = u.Username
	}
	parts := []string{strings.TrimPrefix(strings.TrimPrefix(cfg.APIBaseURL, "https://"), "http://"), owner}
	if cfg.OrgID != "" {
		parts = append(parts, cfg.OrgID)
	}
	return strings.Join(parts, "|")
}

// BuildMetrics returns client metrics registered on reg, or nil when
// metrics are disabled.
func BuildMetrics(cfg *appconfig.Config, reg prometheus.Registerer) *metrics.ClientMetrics {
	if cfg == nil || !cfg.MetricsEnabled {
		return nil
	}
	return metrics.NewClientMetrics(reg)
}

// BuildAPIClient wires the REST client from config.
func BuildAPIClient(cfg *appconfig.Config, logger *logging.Logger, m *metrics.ClientMetrics) (*api.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	client, err := api.New(api.Config{
		BaseURL:      cfg.APIBaseURL,
		Timeout:      cfg.HTTPTimeout,
		RateLimitRPS: cfg.RateLimitRPS,
		Burst:        cfg.RateLimitBurst,
		Token:        cfg.APIToken,
		Logger:       logger,
		Metrics:      m,
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return client, nil
}

// BuildMessages returns the configured fallback texts.
func BuildMessages(cfg *appconfig.Config) feedback.Messages {
	if cfg == nil {
		return feedback.DefaultMessages
	}
	return feedback.Messages{
		Generic:            cfg.GenericErrorMessage,
		Network:            cfg.NetworkErrorMessage,
		InvalidCredentials: cfg.InvalidCredentialsMessage,
	}
}
