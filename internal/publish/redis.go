package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"example.com/ticketsales/internal/domain"
)

const redisTimeout = 3 * time.Second

// NewRedisClient connects and pings with a short timeout.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

type setter interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// VenueSummary is the JSON document stored per venue.
type VenueSummary struct {
	RunID       string        `json:"run_id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Venue       *domain.Venue `json:"venue"`
}

// SummaryStore writes the latest summary of each venue under
// <prefix>summary:<venue>, plus <prefix>latest_run.
type SummaryStore struct {
	client setter
	prefix string
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewSummaryStore(client *redis.Client, prefix string, ttl time.Duration, logger *slog.Logger) *SummaryStore {
	return newSummaryStore(client, prefix, ttl, logger)
}

func newSummaryStore(client setter, prefix string, ttl time.Duration, logger *slog.Logger) *SummaryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SummaryStore{client: client, prefix: prefix, ttl: ttl, logger: logger, now: time.Now}
}

func (s *SummaryStore) SummaryKey(venue string) string {
	return s.prefix + "summary:" + venue
}

// Store writes v's summary for runID.
func (s *SummaryStore) Store(ctx context.Context, runID string, v *domain.Venue) error {
	data, err := json.Marshal(VenueSummary{RunID: runID, GeneratedAt: s.now().UTC(), Venue: v})
	if err != nil {
		return fmt.Errorf("json encode failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	key := s.SummaryKey(v.Name())
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.logger.ErrorContext(ctx, "redis set failed", "key", key, "error", err)
		return fmt.Errorf("redis set failed: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+"latest_run", runID, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}
