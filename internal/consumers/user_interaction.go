package consumers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/interestgraph-backend/internal/data/graph"
	types "github.com/yungbote/interestgraph-backend/internal/domain"
	"github.com/yungbote/interestgraph-backend/internal/platform/errs"
	"github.com/yungbote/interestgraph-backend/internal/platform/logger"
	"github.com/yungbote/interestgraph-backend/internal/policy"
)

// userInteractionHandler applies one interaction event to the interest graph.
// Order matters: stale events decay the user's entire vector before the fresh
// delta lands, so old signal never outweighs the new interaction, and the
// vector is re-normalized last.
type userInteractionHandler struct {
	log   *logger.Logger
	store graph.Store
	now   func() time.Time
}

func NewUserInteractionConsumer(cfg Config, log *logger.Logger, store graph.Store) *Consumer {
	h := &userInteractionHandler{
		log:   log.With("consumer", "UserInteraction"),
		store: store,
		now:   time.Now,
	}
	cfg.Topic = TopicUserInteraction
	return newConsumer("user-interaction", cfg, h.log, h.handle)
}

func (h *userInteractionHandler) handle(ctx context.Context, value []byte) error {
	const op = "userInteraction.handle"

	var ev types.UserInteractionEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		return errs.Validation(op, fmt.Errorf("decode: %w", err))
	}
	if err := validateInteraction(ev); err != nil {
		return errs.Validation(op, err)
	}

	delta, err := policy.DeltaFor(ev.InteractionType)
	if err != nil {
		return errs.Validation(op, err)
	}

	if factor, stale := policy.DecayFactor(ev.EventTime(), h.now()); stale {
		h.log.Info("decaying interests for stale event",
			"user_id", ev.UserID,
			"factor", factor,
		)
		if err := h.store.ApplyDecay(ctx, ev.UserID, factor); err != nil {
			return err
		}
	}

	for _, tag := range ev.Tags {
		if err := h.store.UpsertInterest(ctx, ev.UserID, tag, delta); err != nil {
			return err
		}
	}

	if ev.PostID != "" {
		if err := h.store.RecordInteraction(ctx, ev.UserID, ev.PostID, ev.InteractionType, delta); err != nil {
			return err
		}
	}

	if err := h.store.Normalize(ctx, ev.UserID); err != nil {
		return err
	}

	h.log.Info("interaction applied",
		"user_id", ev.UserID,
		"type", string(ev.InteractionType),
		"tags", len(ev.Tags),
	)
	return nil
}

func validateInteraction(ev types.UserInteractionEvent) error {
	if strings.TrimSpace(ev.UserID) == "" {
		return fmt.Errorf("event requires userId")
	}
	if len(ev.Tags) == 0 {
		return fmt.Errorf("event requires at least one tag")
	}
	for _, tag := range ev.Tags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("event carries an empty tag")
		}
	}
	if !ev.InteractionType.Valid() {
		return fmt.Errorf("unknown interaction type %q", ev.InteractionType)
	}
	if ev.Timestamp <= 0 {
		return fmt.Errorf("event requires a positive timestamp")
	}
	return nil
}
