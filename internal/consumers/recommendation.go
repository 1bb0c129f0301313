package consumers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	types "github.com/yungbote/interestgraph-backend/internal/domain"
	"github.com/yungbote/interestgraph-backend/internal/engine"
	"github.com/yungbote/interestgraph-backend/internal/platform/errs"
	"github.com/yungbote/interestgraph-backend/internal/platform/logger"
)

// recommendationHandler dispatches recommendation requests to the engine.
// Requests with an unknown type are logged and ignored rather than dropped as
// invalid, so a newer producer doesn't flood the error log.
type recommendationHandler struct {
	log    *logger.Logger
	engine engine.Service
}

func NewRecommendationConsumer(cfg Config, log *logger.Logger, eng engine.Service) *Consumer {
	h := &recommendationHandler{
		log:    log.With("consumer", "Recommendation"),
		engine: eng,
	}
	cfg.Topic = TopicRecommendationRequest
	return newConsumer("recommendation-request", cfg, h.log, h.handle)
}

func (h *recommendationHandler) handle(ctx context.Context, value []byte) error {
	const op = "recommendation.handle"

	var req types.RecommendationRequest
	if err := json.Unmarshal(value, &req); err != nil {
		return errs.Validation(op, fmt.Errorf("decode: %w", err))
	}
	if strings.TrimSpace(req.UserID) == "" {
		return errs.Validation(op, fmt.Errorf("request requires userId"))
	}

	switch req.Type {
	case types.RecommendPosts:
		_, err := h.engine.RecommendPosts(ctx, req.UserID, req.Limit)
		return err
	case types.RecommendUsers:
		_, err := h.engine.SimilarUsers(ctx, req.UserID, req.Limit)
		return err
	default:
		h.log.Warn("ignoring recommendation request with unknown type",
			"user_id", req.UserID,
			"type", string(req.Type),
		)
		return nil
	}
}
