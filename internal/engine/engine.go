// Package engine serves the two derived queries of the interest graph:
// similar users and recommended posts. It is read-only over the Store; the
// only side effect is publishing results onto the bus when one is wired.
package engine

import (
	"context"
	"fmt"

	redisclient "github.com/yungbote/interestgraph-backend/internal/clients/redis"
	"github.com/yungbote/interestgraph-backend/internal/data/graph"
	types "github.com/yungbote/interestgraph-backend/internal/domain"
	"github.com/yungbote/interestgraph-backend/internal/platform/logger"
)

// A request without an explicit limit gets 10 results, whichever query type
// it asks for.
const (
	defaultPostLimit = 10
	defaultUserLimit = 10
)

type Service interface {
	RecommendPosts(ctx context.Context, userID string, limit int) ([]types.RankedPost, error)
	SimilarUsers(ctx context.Context, userID string, limit int) ([]types.SimilarUser, error)
}

type service struct {
	log   *logger.Logger
	store graph.Store
	bus   redisclient.ResultsBus
}

// NewService wires the engine. bus may be nil, in which case results are
// only logged.
func NewService(log *logger.Logger, store graph.Store, bus redisclient.ResultsBus) (Service, error) {
	if log == nil {
		return nil, fmt.Errorf("engine: logger required")
	}
	if store == nil {
		return nil, fmt.Errorf("engine: graph store required")
	}
	return &service{log: log.With("service", "RecommendationEngine"), store: store, bus: bus}, nil
}

func (s *service) RecommendPosts(ctx context.Context, userID string, limit int) ([]types.RankedPost, error) {
	if limit <= 0 {
		limit = defaultPostLimit
	}
	posts, err := s.store.RecommendPosts(ctx, userID, limit)
	if err != nil {
		s.log.Error("recommend posts failed", "user_id", userID, "error", err)
		return nil, err
	}
	s.log.Info("recommended posts", "user_id", userID, "count", len(posts))
	s.publish(ctx, types.RecommendationResult{UserID: userID, Type: types.RecommendPosts, Posts: posts})
	return posts, nil
}

func (s *service) SimilarUsers(ctx context.Context, userID string, limit int) ([]types.SimilarUser, error) {
	if limit <= 0 {
		limit = defaultUserLimit
	}
	users, err := s.store.SimilarUsers(ctx, userID, limit)
	if err != nil {
		s.log.Error("recommend similar users failed", "user_id", userID, "error", err)
		return nil, err
	}
	s.log.Info("recommended similar users", "user_id", userID, "count", len(users))
	s.publish(ctx, types.RecommendationResult{UserID: userID, Type: types.RecommendUsers, Users: users})
	return users, nil
}

func (s *service) publish(ctx context.Context, res types.RecommendationResult) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, res); err != nil {
		s.log.Warn("publish recommendation result failed", "user_id", res.UserID, "error", err)
	}
}
