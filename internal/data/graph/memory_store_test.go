package graph

import (
	"context"
	"math"
	"testing"

	types "github.com/yungbote/interestgraph-backend/internal/domain"
	"github.com/yungbote/interestgraph-backend/internal/platform/errs"
)

func TestUpsertInterestAccumulates(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.UpsertInterest(ctx, "u1", "hiking", 2.0); err != nil {
		t.Fatalf("UpsertInterest: %v", err)
	}
	if err := s.UpsertInterest(ctx, "u1", "hiking", 0.5); err != nil {
		t.Fatalf("UpsertInterest: %v", err)
	}

	v := s.InterestVector("u1")
	if got := v["hiking"]; math.Abs(got-2.5) > 1e-12 {
		t.Fatalf("hiking weight = %v, want 2.5", got)
	}
}

func TestUpsertInterestBatch(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.UpsertInterestBatch(ctx, "u1", []string{"dog", "park", "grass"}, 2.0); err != nil {
		t.Fatalf("UpsertInterestBatch: %v", err)
	}
	v := s.InterestVector("u1")
	if len(v) != 3 {
		t.Fatalf("vector size = %d, want 3", len(v))
	}
	for tag, w := range v {
		if w != 2.0 {
			t.Fatalf("tag %q weight = %v, want 2.0", tag, w)
		}
	}
}

func TestRecordInteractionAccumulatesPerType(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.RecordInteraction(ctx, "u1", "p1", types.InteractionLike, 0.5); err != nil {
		t.Fatalf("RecordInteraction: %v", err)
	}
	if err := s.RecordInteraction(ctx, "u1", "p1", types.InteractionLike, 0.5); err != nil {
		t.Fatalf("RecordInteraction: %v", err)
	}
	if err := s.RecordInteraction(ctx, "u1", "p1", types.InteractionComment, 1.0); err != nil {
		t.Fatalf("RecordInteraction: %v", err)
	}

	w := s.InteractionWeights("u1", "p1")
	if got := w[types.InteractionLike]; got != 1.0 {
		t.Fatalf("LIKE weight = %v, want 1.0", got)
	}
	if got := w[types.InteractionComment]; got != 1.0 {
		t.Fatalf("COMMENT weight = %v, want 1.0", got)
	}
}

func TestLinkPostRequiresUser(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	err := s.LinkPost(ctx, "ghost", "p1", []string{"sunset"})
	if !errs.IsNotFound(err) {
		t.Fatalf("LinkPost for missing user: got %v, want not_found", err)
	}

	if err := s.UpsertInterest(ctx, "u1", "sunset", 0.5); err != nil {
		t.Fatalf("UpsertInterest: %v", err)
	}
	if err := s.LinkPost(ctx, "u1", "p1", []string{"sunset", "beach"}); err != nil {
		t.Fatalf("LinkPost: %v", err)
	}
	// Idempotent.
	if err := s.LinkPost(ctx, "u1", "p1", []string{"sunset", "beach"}); err != nil {
		t.Fatalf("LinkPost repeat: %v", err)
	}
	if !s.HasCreated("u1", "p1") {
		t.Fatal("CREATED edge missing")
	}
	tags := s.PostTags("p1")
	if len(tags) != 2 || tags[0] != "beach" || tags[1] != "sunset" {
		t.Fatalf("post tags = %v, want [beach sunset]", tags)
	}
}

func TestApplyDecayScalesAllEdges(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.UpsertInterest(ctx, "u1", "a", 2.0)
	_ = s.UpsertInterest(ctx, "u1", "b", -1.0)
	_ = s.UpsertInterest(ctx, "u2", "a", 3.0)

	if err := s.ApplyDecay(ctx, "u1", 0.95); err != nil {
		t.Fatalf("ApplyDecay: %v", err)
	}

	v := s.InterestVector("u1")
	if math.Abs(v["a"]-1.9) > 1e-12 || math.Abs(v["b"]+0.95) > 1e-12 {
		t.Fatalf("decayed vector = %v, want a=1.9 b=-0.95", v)
	}
	// Other users untouched.
	if got := s.InterestVector("u2")["a"]; got != 3.0 {
		t.Fatalf("u2 weight = %v, want 3.0", got)
	}
}

func TestApplyDecayComposes(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.UpsertInterest(ctx, "u1", "a", 1.0)
	_ = s.ApplyDecay(ctx, "u1", 0.95)
	_ = s.ApplyDecay(ctx, "u1", 0.9)

	if got := s.InterestVector("u1")["a"]; math.Abs(got-0.95*0.9) > 1e-12 {
		t.Fatalf("composed decay = %v, want %v", got, 0.95*0.9)
	}
}

func TestNormalizeUnitNorm(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.UpsertInterest(ctx, "u1", "a", 3.0)
	_ = s.UpsertInterest(ctx, "u1", "b", 4.0)

	if err := s.Normalize(ctx, "u1"); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	v := s.InterestVector("u1")
	if math.Abs(v["a"]-0.6) > 1e-12 || math.Abs(v["b"]-0.8) > 1e-12 {
		t.Fatalf("normalized vector = %v, want a=0.6 b=0.8", v)
	}
	var norm float64
	for _, w := range v {
		norm += w * w
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-12 {
		t.Fatalf("L2 norm = %v, want 1", math.Sqrt(norm))
	}
}

func TestNormalizeZeroVectorNoop(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.UpsertInterest(ctx, "u1", "a", 1.0)
	_ = s.UpsertInterest(ctx, "u1", "a", -1.0)

	if err := s.Normalize(ctx, "u1"); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got := s.InterestVector("u1")["a"]; got != 0 {
		t.Fatalf("zero vector changed: a = %v", got)
	}
	// No edges at all is also fine.
	if err := s.Normalize(ctx, "nobody"); err != nil {
		t.Fatalf("Normalize unknown user: %v", err)
	}
}

func TestSimilarUsersRankingAndTies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.UpsertInterest(ctx, "me", "a", 1.0)
	_ = s.UpsertInterest(ctx, "me", "b", 1.0)

	// Identical direction over shared tags: similarity 1.
	_ = s.UpsertInterest(ctx, "twin", "a", 2.0)
	_ = s.UpsertInterest(ctx, "twin", "b", 2.0)

	// Shares only tag "a": restricted vectors are parallel, so also 1.
	_ = s.UpsertInterest(ctx, "acquaintance", "a", 5.0)

	// Opposite direction.
	_ = s.UpsertInterest(ctx, "opposite", "a", -1.0)
	_ = s.UpsertInterest(ctx, "opposite", "b", -1.0)

	// No shared tags.
	_ = s.UpsertInterest(ctx, "stranger", "z", 1.0)

	got, err := s.SimilarUsers(ctx, "me", 10)
	if err != nil {
		t.Fatalf("SimilarUsers: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("result count = %d, want 3 (%v)", len(got), got)
	}
	// Ties broken by user id ascending.
	if got[0].UserID != "acquaintance" || got[1].UserID != "twin" {
		t.Fatalf("tie order = [%s %s], want [acquaintance twin]", got[0].UserID, got[1].UserID)
	}
	if math.Abs(got[0].Similarity-1) > 1e-12 || math.Abs(got[1].Similarity-1) > 1e-12 {
		t.Fatalf("top similarities = %v %v, want 1 1", got[0].Similarity, got[1].Similarity)
	}
	if got[2].UserID != "opposite" || math.Abs(got[2].Similarity+1) > 1e-12 {
		t.Fatalf("last = %+v, want opposite with similarity -1", got[2])
	}
}

func TestSimilarUsersLimitAndEmpty(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	got, err := s.SimilarUsers(ctx, "nobody", 5)
	if err != nil {
		t.Fatalf("SimilarUsers: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("unknown user: got %v, want empty", got)
	}

	_ = s.UpsertInterest(ctx, "me", "a", 1.0)
	for _, u := range []string{"u1", "u2", "u3"} {
		_ = s.UpsertInterest(ctx, u, "a", 1.0)
	}
	got, err = s.SimilarUsers(ctx, "me", 2)
	if err != nil {
		t.Fatalf("SimilarUsers: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("limit ignored: got %d results", len(got))
	}
}

func TestRecommendPostsExcludesInteracted(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.UpsertInterest(ctx, "me", "dog", 0.8)
	_ = s.UpsertInterest(ctx, "me", "park", 0.6)

	_ = s.UpsertInterest(ctx, "author", "dog", 1.0)
	_ = s.LinkPost(ctx, "author", "p-dog-park", []string{"dog", "park"})
	_ = s.LinkPost(ctx, "author", "p-dog", []string{"dog"})
	_ = s.LinkPost(ctx, "author", "p-cat", []string{"cat"})

	// Already liked: must never come back.
	_ = s.RecordInteraction(ctx, "me", "p-dog", types.InteractionLike, 0.5)

	got, err := s.RecommendPosts(ctx, "me", 10)
	if err != nil {
		t.Fatalf("RecommendPosts: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("result = %v, want only p-dog-park", got)
	}
	if got[0].PostID != "p-dog-park" {
		t.Fatalf("post = %s, want p-dog-park", got[0].PostID)
	}
	if math.Abs(got[0].Score-1.4) > 1e-12 {
		t.Fatalf("score = %v, want 1.4", got[0].Score)
	}
}

func TestRecommendPostsOrderingAndLimit(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.UpsertInterest(ctx, "me", "a", 1.0)
	_ = s.UpsertInterest(ctx, "me", "b", 0.5)

	_ = s.UpsertInterest(ctx, "author", "a", 1.0)
	_ = s.LinkPost(ctx, "author", "p-high", []string{"a", "b"})
	_ = s.LinkPost(ctx, "author", "p2", []string{"a"})
	_ = s.LinkPost(ctx, "author", "p1", []string{"a"})

	got, err := s.RecommendPosts(ctx, "me", 10)
	if err != nil {
		t.Fatalf("RecommendPosts: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("result count = %d, want 3", len(got))
	}
	// Score descending, ties by post id ascending.
	if got[0].PostID != "p-high" || got[1].PostID != "p1" || got[2].PostID != "p2" {
		t.Fatalf("order = [%s %s %s], want [p-high p1 p2]", got[0].PostID, got[1].PostID, got[2].PostID)
	}

	got, err = s.RecommendPosts(ctx, "me", 2)
	if err != nil {
		t.Fatalf("RecommendPosts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("limit ignored: got %d results", len(got))
	}
}

// A POST interaction accumulates on top of prior tag interest while both
// interaction edges stay distinct, matching the photo-then-like flow.
func TestPostThenLikeAccumulation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.UpsertInterestBatch(ctx, "u1", []string{"sunset"}, 2.0)
	_ = s.RecordInteraction(ctx, "u1", "photo1", types.InteractionPost, 2.0)
	_ = s.LinkPost(ctx, "u1", "photo1", []string{"sunset"})

	_ = s.UpsertInterest(ctx, "u1", "sunset", 0.5)
	_ = s.RecordInteraction(ctx, "u1", "photo1", types.InteractionLike, 0.5)

	if got := s.InterestVector("u1")["sunset"]; math.Abs(got-2.5) > 1e-12 {
		t.Fatalf("sunset weight = %v, want 2.5", got)
	}
	w := s.InteractionWeights("u1", "photo1")
	if w[types.InteractionPost] != 2.0 || w[types.InteractionLike] != 0.5 {
		t.Fatalf("interaction weights = %v, want POST=2.0 LIKE=0.5", w)
	}
}

func TestValidationErrors(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.UpsertInterest(ctx, "", "tag", 1); !errs.IsValidation(err) {
		t.Fatalf("empty user: got %v, want validation", err)
	}
	if err := s.UpsertInterest(ctx, "u1", " ", 1); !errs.IsValidation(err) {
		t.Fatalf("blank tag: got %v, want validation", err)
	}
	if err := s.RecordInteraction(ctx, "u1", "p1", types.InteractionType("SHARE"), 1); !errs.IsValidation(err) {
		t.Fatalf("unknown type: got %v, want validation", err)
	}
}
