package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	types "github.com/yungbote/interestgraph-backend/internal/domain"
	"github.com/yungbote/interestgraph-backend/internal/platform/logger"
)

// ResultsBus fans computed recommendation lists out to whoever cares
// (websocket gateways, caches). Publishing is fire-and-forget from the
// engine's point of view.
type ResultsBus interface {
	Publish(ctx context.Context, res types.RecommendationResult) error
	Close() error
}

type resultsBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewResultsBus(log *logger.Logger) (ResultsBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(os.Getenv("REDIS_CHANNEL"))
	if ch == "" {
		ch = "recommendations"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &resultsBus{
		log:     log.With("service", "RedisResultsBus"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (b *resultsBus) Publish(ctx context.Context, res types.RecommendationResult) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("results bus not initialized")
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *resultsBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
