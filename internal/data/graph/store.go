// Package graph is the affinity model: User, Tag and Post nodes joined by
// weighted edges, with merge-on-write semantics. The Store interface isolates
// the algorithmic contract from the storage engine; the Neo4j implementation
// is the production backend and MemoryStore keeps the engine testable.
package graph

import (
	"context"

	types "github.com/yungbote/interestgraph-backend/internal/domain"
)

// Store is the transactional surface of the interest graph. Every call runs
// as a single transaction against the backing engine: a multi-tag batch
// either lands entirely or not at all.
type Store interface {
	// UpsertInterest creates the (user, tag) interest edge with weight=delta,
	// or accumulates delta into the existing edge. User and Tag nodes are
	// created implicitly.
	UpsertInterest(ctx context.Context, userID, tag string, delta float64) error

	// UpsertInterestBatch applies the same delta to every tag, atomically.
	UpsertInterestBatch(ctx context.Context, userID string, tags []string, delta float64) error

	// RecordInteraction creates or accumulates the (user, post, type)
	// interaction edge. User and Post nodes are created implicitly.
	RecordInteraction(ctx context.Context, userID, postID string, typ types.InteractionType, weight float64) error

	// LinkPost idempotently establishes CREATED and HAS_TAG provenance edges.
	// Unlike the interest upserts it requires the user to already exist and
	// returns a not-found error otherwise.
	LinkPost(ctx context.Context, userID, postID string, tags []string) error

	// ApplyDecay multiplies every interest weight of the user by factor.
	ApplyDecay(ctx context.Context, userID string, factor float64) error

	// Normalize scales the user's interest vector to unit L2 norm. A zero
	// vector is left untouched.
	Normalize(ctx context.Context, userID string) error

	// SimilarUsers ranks other users by cosine similarity over the shared-tag
	// subspace, descending, ties broken by user id ascending. Users whose
	// restricted vector has zero norm are excluded.
	SimilarUsers(ctx context.Context, userID string, limit int) ([]types.SimilarUser, error)

	// RecommendPosts ranks posts carrying tags the user has interest in,
	// strictly excluding posts the user has any interaction edge with.
	RecommendPosts(ctx context.Context, userID string, limit int) ([]types.RankedPost, error)
}
