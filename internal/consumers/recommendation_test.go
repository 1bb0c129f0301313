package consumers

import (
	"context"
	"testing"

	types "github.com/yungbote/interestgraph-backend/internal/domain"
	"github.com/yungbote/interestgraph-backend/internal/platform/errs"
)

type fakeEngine struct {
	postsCalls []engineCall
	usersCalls []engineCall
	err        error
}

type engineCall struct {
	userID string
	limit  int
}

func (f *fakeEngine) RecommendPosts(ctx context.Context, userID string, limit int) ([]types.RankedPost, error) {
	f.postsCalls = append(f.postsCalls, engineCall{userID, limit})
	return nil, f.err
}

func (f *fakeEngine) SimilarUsers(ctx context.Context, userID string, limit int) ([]types.SimilarUser, error) {
	f.usersCalls = append(f.usersCalls, engineCall{userID, limit})
	return nil, f.err
}

func TestRecommendationDispatch(t *testing.T) {
	eng := &fakeEngine{}
	h := &recommendationHandler{log: testLogger(t), engine: eng}

	if err := h.handle(context.Background(), []byte(`{"userId":"u1","type":"POSTS","limit":3}`)); err != nil {
		t.Fatalf("posts request: %v", err)
	}
	if len(eng.postsCalls) != 1 || eng.postsCalls[0] != (engineCall{"u1", 3}) {
		t.Fatalf("posts calls = %v", eng.postsCalls)
	}

	if err := h.handle(context.Background(), []byte(`{"userId":"u2","type":"USERS"}`)); err != nil {
		t.Fatalf("users request: %v", err)
	}
	if len(eng.usersCalls) != 1 || eng.usersCalls[0] != (engineCall{"u2", 0}) {
		t.Fatalf("users calls = %v", eng.usersCalls)
	}
}

func TestRecommendationUnknownTypeIgnored(t *testing.T) {
	eng := &fakeEngine{}
	h := &recommendationHandler{log: testLogger(t), engine: eng}

	if err := h.handle(context.Background(), []byte(`{"userId":"u1","type":"TAGS"}`)); err != nil {
		t.Fatalf("unknown type should be ignored, got %v", err)
	}
	if len(eng.postsCalls) != 0 || len(eng.usersCalls) != 0 {
		t.Fatal("engine called for unknown request type")
	}
}

func TestRecommendationInvalidRequests(t *testing.T) {
	eng := &fakeEngine{}
	h := &recommendationHandler{log: testLogger(t), engine: eng}

	for name, msg := range map[string]string{
		"not json": `{"userId"`,
		"no user":  `{"type":"POSTS"}`,
	} {
		if err := h.handle(context.Background(), []byte(msg)); !errs.IsValidation(err) {
			t.Fatalf("%s: got %v, want validation error", name, err)
		}
	}
	if len(eng.postsCalls) != 0 || len(eng.usersCalls) != 0 {
		t.Fatal("engine called for invalid request")
	}
}
