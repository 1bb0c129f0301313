package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// InteractionType is the closed set of behaviors that move interest weights.
// Adding a member requires touching policy.DeltaFor, which is deliberate.
type InteractionType string

const (
	InteractionLike    InteractionType = "LIKE"
	InteractionComment InteractionType = "COMMENT"
	InteractionDislike InteractionType = "DISLIKE"
	InteractionHide    InteractionType = "HIDE"
	InteractionPost    InteractionType = "POST"
)

func (t InteractionType) Valid() bool {
	switch t {
	case InteractionLike, InteractionComment, InteractionDislike, InteractionHide, InteractionPost:
		return true
	default:
		return false
	}
}

type RecommendationType string

const (
	RecommendPosts RecommendationType = "POSTS"
	RecommendUsers RecommendationType = "USERS"
)

// PhotoUploadEvent arrives on the photo-upload topic. ImageURL is either a
// data URL with inline base64 bytes or a storage URL resolvable by the image
// store.
type PhotoUploadEvent struct {
	UserID   string `json:"userId"`
	PhotoID  string `json:"photoId"`
	ImageURL string `json:"imageUrl"`
}

// UserInteractionEvent arrives on the user-interaction topic. Timestamp is
// epoch milliseconds, producer-assigned.
type UserInteractionEvent struct {
	UserID          string          `json:"userId"`
	PostID          string          `json:"postId"`
	Tags            []string        `json:"tag"`
	InteractionType InteractionType `json:"interactionType"`
	Timestamp       int64           `json:"timestamp"`
}

func (e UserInteractionEvent) EventTime() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// RecommendationRequest arrives on the recommendation-request topic.
type RecommendationRequest struct {
	UserID string             `json:"userId"`
	Type   RecommendationType `json:"type"`
	Limit  int                `json:"limit,omitempty"`
}

type SimilarUser struct {
	UserID     string  `json:"userId"`
	Similarity float64 `json:"similarity"`
}

type RankedPost struct {
	PostID string  `json:"postId"`
	Score  float64 `json:"score"`
}

// RecommendationResult is what the engine publishes onto the results bus.
type RecommendationResult struct {
	UserID string             `json:"userId"`
	Type   RecommendationType `json:"type"`
	Users  []SimilarUser      `json:"users,omitempty"`
	Posts  []RankedPost       `json:"posts,omitempty"`
}

// PostMetadata is the document record persisted per analyzed photo.
type PostMetadata struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	PhotoID    string         `gorm:"uniqueIndex;not null" json:"photo_id"`
	Keywords   datatypes.JSON `gorm:"type:jsonb" json:"keywords"`
	Hashtags   datatypes.JSON `gorm:"type:jsonb" json:"hashtags"`
	AnalyzedAt time.Time      `json:"analyzed_at"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
