package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tanmvo/skate-ai-2-sub002/internal/circuitbreaker"
)

// PostgresChecker pings the database.
type PostgresChecker struct {
	db *sqlx.DB
}

func NewPostgresChecker(db *sqlx.DB) *PostgresChecker {
	return &PostgresChecker{db: db}
}

func (c *PostgresChecker) Name() string           { return "postgres" }
func (c *PostgresChecker) IsCritical() bool       { return true }
func (c *PostgresChecker) Timeout() time.Duration { return 5 * time.Second }

func (c *PostgresChecker) Check(ctx context.Context) CheckResult {
	if err := c.db.PingContext(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// RedisChecker pings the cache through its circuit breaker.
type RedisChecker struct {
	cli *circuitbreaker.RedisWrapper
}

func NewRedisChecker(cli *circuitbreaker.RedisWrapper) *RedisChecker {
	return &RedisChecker{cli: cli}
}

func (c *RedisChecker) Name() string           { return "redis" }
func (c *RedisChecker) IsCritical() bool       { return false }
func (c *RedisChecker) Timeout() time.Duration { return 3 * time.Second }

func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	if c.cli.IsOpen() {
		return CheckResult{Status: StatusDegraded, Error: "circuit breaker open"}
	}
	if err := c.cli.Ping(ctx).Err(); err != nil {
		return CheckResult{Status: StatusDegraded, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// SearchChecker probes the similarity search service's health endpoint.
// Search being down degrades citation recomputation but the service can
// still render persisted messages, so it is non-critical.
type SearchChecker struct {
	base string
	http *http.Client
}

func NewSearchChecker(baseURL string) *SearchChecker {
	return &SearchChecker{base: baseURL, http: &http.Client{Timeout: 3 * time.Second}}
}

func (c *SearchChecker) Name() string           { return "search" }
func (c *SearchChecker) IsCritical() bool       { return false }
func (c *SearchChecker) Timeout() time.Duration { return 3 * time.Second }

func (c *SearchChecker) Check(ctx context.Context) CheckResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/health", nil)
	if err != nil {
		return CheckResult{Status: StatusUnknown, Error: err.Error()}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return CheckResult{Status: StatusDegraded, Error: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return CheckResult{Status: StatusDegraded, Error: fmt.Sprintf("status %d", resp.StatusCode)}
	}
	return CheckResult{Status: StatusHealthy}
}
