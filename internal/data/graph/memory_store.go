package graph

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	types "github.com/yungbote/interestgraph-backend/internal/domain"
	"github.com/yungbote/interestgraph-backend/internal/platform/errs"
)

// MemoryStore is a map-backed Store with the same merge-on-write semantics as
// the Neo4j implementation. It backs the engine and pipeline tests and is
// safe for concurrent use.
type MemoryStore struct {
	mu           sync.RWMutex
	users        map[string]bool
	interests    map[string]map[string]*memEdge
	interactions map[string]map[string]map[types.InteractionType]*memEdge
	created      map[string]map[string]bool
	postTags     map[string]map[string]bool
	now          func() time.Time
}

type memEdge struct {
	weight      float64
	lastUpdated time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        map[string]bool{},
		interests:    map[string]map[string]*memEdge{},
		interactions: map[string]map[string]map[types.InteractionType]*memEdge{},
		created:      map[string]map[string]bool{},
		postTags:     map[string]map[string]bool{},
		now:          time.Now,
	}
}

func (s *MemoryStore) UpsertInterest(ctx context.Context, userID, tag string, delta float64) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(tag) == "" {
		return errs.Validation("graph.UpsertInterest", fmt.Errorf("userID and tag required"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertInterestLocked(userID, tag, delta)
	return nil
}

func (s *MemoryStore) UpsertInterestBatch(ctx context.Context, userID string, tags []string, delta float64) error {
	if strings.TrimSpace(userID) == "" {
		return errs.Validation("graph.UpsertInterestBatch", fmt.Errorf("userID required"))
	}
	if len(tags) == 0 {
		return nil
	}
	// Single critical section = the batch is atomic, matching the one-write-
	// transaction guarantee of the Neo4j store.
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tag := range tags {
		s.upsertInterestLocked(userID, tag, delta)
	}
	return nil
}

func (s *MemoryStore) upsertInterestLocked(userID, tag string, delta float64) {
	s.users[userID] = true
	edges := s.interests[userID]
	if edges == nil {
		edges = map[string]*memEdge{}
		s.interests[userID] = edges
	}
	e := edges[tag]
	if e == nil {
		e = &memEdge{}
		edges[tag] = e
	}
	e.weight += delta
	e.lastUpdated = s.now()
}

func (s *MemoryStore) RecordInteraction(ctx context.Context, userID, postID string, typ types.InteractionType, weight float64) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(postID) == "" {
		return errs.Validation("graph.RecordInteraction", fmt.Errorf("userID and postID required"))
	}
	if !typ.Valid() {
		return errs.Validation("graph.RecordInteraction", fmt.Errorf("unknown interaction type %q", typ))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = true
	if s.postTags[postID] == nil {
		s.postTags[postID] = map[string]bool{}
	}
	byPost := s.interactions[userID]
	if byPost == nil {
		byPost = map[string]map[types.InteractionType]*memEdge{}
		s.interactions[userID] = byPost
	}
	byType := byPost[postID]
	if byType == nil {
		byType = map[types.InteractionType]*memEdge{}
		byPost[postID] = byType
	}
	e := byType[typ]
	if e == nil {
		e = &memEdge{}
		byType[typ] = e
	}
	e.weight += weight
	e.lastUpdated = s.now()
	return nil
}

func (s *MemoryStore) LinkPost(ctx context.Context, userID, postID string, tags []string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(postID) == "" {
		return errs.Validation("graph.LinkPost", fmt.Errorf("userID and postID required"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.users[userID] {
		return errs.NotFound("graph.LinkPost", fmt.Errorf("user %q does not exist", userID))
	}
	if s.created[userID] == nil {
		s.created[userID] = map[string]bool{}
	}
	s.created[userID][postID] = true
	if s.postTags[postID] == nil {
		s.postTags[postID] = map[string]bool{}
	}
	for _, tag := range tags {
		s.postTags[postID][tag] = true
	}
	return nil
}

func (s *MemoryStore) ApplyDecay(ctx context.Context, userID string, factor float64) error {
	if strings.TrimSpace(userID) == "" {
		return errs.Validation("graph.ApplyDecay", fmt.Errorf("userID required"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.interests[userID] {
		e.weight *= factor
	}
	return nil
}

func (s *MemoryStore) Normalize(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return errs.Validation("graph.Normalize", fmt.Errorf("userID required"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var sumSq float64
	for _, e := range s.interests[userID] {
		sumSq += e.weight * e.weight
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return nil
	}
	for _, e := range s.interests[userID] {
		e.weight /= norm
	}
	return nil
}

func (s *MemoryStore) SimilarUsers(ctx context.Context, userID string, limit int) ([]types.SimilarUser, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errs.Validation("graph.SimilarUsers", fmt.Errorf("userID required"))
	}
	if limit <= 0 {
		limit = 5
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	mine := s.interests[userID]
	out := []types.SimilarUser{}
	if len(mine) == 0 {
		return out, nil
	}

	for other, theirs := range s.interests {
		if other == userID || len(theirs) == 0 {
			continue
		}
		var dot, sumSq1, sumSq2 float64
		shared := false
		for tag, e1 := range mine {
			e2, ok := theirs[tag]
			if !ok {
				continue
			}
			shared = true
			dot += e1.weight * e2.weight
			sumSq1 += e1.weight * e1.weight
			sumSq2 += e2.weight * e2.weight
		}
		if !shared {
			continue
		}
		n1, n2 := math.Sqrt(sumSq1), math.Sqrt(sumSq2)
		if n1 == 0 || n2 == 0 {
			continue
		}
		out = append(out, types.SimilarUser{UserID: other, Similarity: dot / (n1 * n2)})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) RecommendPosts(ctx context.Context, userID string, limit int) ([]types.RankedPost, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errs.Validation("graph.RecommendPosts", fmt.Errorf("userID required"))
	}
	if limit <= 0 {
		limit = 10
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	mine := s.interests[userID]
	out := []types.RankedPost{}
	if len(mine) == 0 {
		return out, nil
	}

	for postID, tags := range s.postTags {
		if len(s.interactions[userID][postID]) > 0 {
			continue
		}
		var score float64
		matched := false
		for tag := range tags {
			if e, ok := mine[tag]; ok {
				matched = true
				score += e.weight
			}
		}
		if !matched {
			continue
		}
		out = append(out, types.RankedPost{PostID: postID, Score: score})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].PostID < out[j].PostID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Inspection helpers for tests.

func (s *MemoryStore) InterestVector(userID string) map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[string]float64{}
	for tag, e := range s.interests[userID] {
		out[tag] = e.weight
	}
	return out
}

func (s *MemoryStore) InteractionWeights(userID, postID string) map[types.InteractionType]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[types.InteractionType]float64{}
	for typ, e := range s.interactions[userID][postID] {
		out[typ] = e.weight
	}
	return out
}

func (s *MemoryStore) HasCreated(userID, postID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.created[userID][postID]
}

func (s *MemoryStore) PostTags(postID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.postTags[postID]))
	for tag := range s.postTags[postID] {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
