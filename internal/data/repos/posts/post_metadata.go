// Package posts persists the document-metadata record written after image
// analysis. The pipeline treats this as an opaque collaborator: one upsert
// per analyzed photo, keyed by photo id.
package posts

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/interestgraph-backend/internal/domain"
	"github.com/yungbote/interestgraph-backend/internal/platform/logger"
)

type MetadataRepo interface {
	UpsertAnalysis(ctx context.Context, photoID string, keywords, hashtags []string) error
	GetByPhotoID(ctx context.Context, photoID string) (*types.PostMetadata, error)
}

type metadataRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMetadataRepo(db *gorm.DB, baseLog *logger.Logger) MetadataRepo {
	return &metadataRepo{db: db, log: baseLog.With("repo", "PostMetadataRepo")}
}

func (r *metadataRepo) UpsertAnalysis(ctx context.Context, photoID string, keywords, hashtags []string) error {
	kw, err := json.Marshal(keywords)
	if err != nil {
		return err
	}
	ht, err := json.Marshal(hashtags)
	if err != nil {
		return err
	}
	row := &types.PostMetadata{
		ID:         uuid.New(),
		PhotoID:    photoID,
		Keywords:   kw,
		Hashtags:   ht,
		AnalyzedAt: time.Now().UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "photo_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"keywords", "hashtags", "analyzed_at", "updated_at"}),
		}).
		Create(row).Error
}

func (r *metadataRepo) GetByPhotoID(ctx context.Context, photoID string) (*types.PostMetadata, error) {
	var out types.PostMetadata
	if err := r.db.WithContext(ctx).Where("photo_id = ?", photoID).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}
