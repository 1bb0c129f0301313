package consumers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/interestgraph-backend/internal/clients/gcp"
	"github.com/yungbote/interestgraph-backend/internal/data/graph"
	"github.com/yungbote/interestgraph-backend/internal/data/repos/posts"
	types "github.com/yungbote/interestgraph-backend/internal/domain"
	"github.com/yungbote/interestgraph-backend/internal/platform/errs"
	"github.com/yungbote/interestgraph-backend/internal/platform/logger"
	"github.com/yungbote/interestgraph-backend/internal/policy"
)

// photoUploadHandler turns an uploaded photo into interest signal: classify
// the image, credit every label as a POST interaction, link the post into
// the graph with its tags, and persist the analysis record. A collaborator
// failure fails the message.
type photoUploadHandler struct {
	log    *logger.Logger
	store  graph.Store
	vision gcp.Vision
	images gcp.ImageStore
	meta   posts.MetadataRepo
}

// NewPhotoUploadConsumer wires the photo-upload topic. images and meta may be
// nil: without an image store only data URLs are processable, and without the
// metadata repo analysis results are not persisted.
func NewPhotoUploadConsumer(cfg Config, log *logger.Logger, store graph.Store, vision gcp.Vision, images gcp.ImageStore, meta posts.MetadataRepo) *Consumer {
	h := &photoUploadHandler{
		log:    log.With("consumer", "PhotoUpload"),
		store:  store,
		vision: vision,
		images: images,
		meta:   meta,
	}
	cfg.Topic = TopicPhotoUpload
	return newConsumer("photo-upload", cfg, h.log, h.handle)
}

func (h *photoUploadHandler) handle(ctx context.Context, value []byte) error {
	const op = "photoUpload.handle"

	var ev types.PhotoUploadEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		return errs.Validation(op, fmt.Errorf("decode: %w", err))
	}
	if strings.TrimSpace(ev.UserID) == "" || strings.TrimSpace(ev.PhotoID) == "" || strings.TrimSpace(ev.ImageURL) == "" {
		return errs.Validation(op, fmt.Errorf("event requires userId, photoId and imageUrl"))
	}

	img, err := h.fetchImage(ctx, ev.ImageURL)
	if err != nil {
		return err
	}

	res, err := h.vision.AnnotateImage(ctx, img)
	if err != nil {
		return errs.TransientStore(op, fmt.Errorf("annotate photo %s: %w", ev.PhotoID, err))
	}
	if len(res.Labels) == 0 {
		h.log.Warn("photo produced no labels", "photo_id", ev.PhotoID, "user_id", ev.UserID)
		return nil
	}
	h.log.Info("photo analyzed", "photo_id", ev.PhotoID, "labels", len(res.Labels))

	delta, err := policy.DeltaFor(types.InteractionPost)
	if err != nil {
		return errs.Validation(op, err)
	}
	if err := h.store.UpsertInterestBatch(ctx, ev.UserID, res.Labels, delta); err != nil {
		return err
	}
	if err := h.store.RecordInteraction(ctx, ev.UserID, ev.PhotoID, types.InteractionPost, delta); err != nil {
		return err
	}
	if err := h.store.LinkPost(ctx, ev.UserID, ev.PhotoID, res.Labels); err != nil {
		return err
	}

	if h.meta != nil {
		if err := h.meta.UpsertAnalysis(ctx, ev.PhotoID, res.Labels, res.Hashtags); err != nil {
			return errs.TransientStore(op, fmt.Errorf("persist metadata for photo %s: %w", ev.PhotoID, err))
		}
	}
	return nil
}

// fetchImage resolves the event's imageUrl to raw bytes: data URLs are
// decoded inline, everything else goes through the image store.
func (h *photoUploadHandler) fetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	const op = "photoUpload.fetchImage"

	if strings.HasPrefix(imageURL, "data:") {
		idx := strings.Index(imageURL, ",")
		if idx < 0 {
			return nil, errs.Validation(op, fmt.Errorf("malformed data url"))
		}
		data, err := base64.StdEncoding.DecodeString(imageURL[idx+1:])
		if err != nil {
			return nil, errs.Validation(op, fmt.Errorf("decode data url: %w", err))
		}
		return data, nil
	}

	if h.images == nil {
		return nil, errs.Validation(op, fmt.Errorf("no image store configured for url %q", imageURL))
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	blob, err := h.images.DownloadImage(ctx, imageURL)
	if err != nil {
		return nil, errs.TransientStore(op, err)
	}
	return blob.Data, nil
}
