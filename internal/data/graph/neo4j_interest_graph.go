package graph

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/yungbote/interestgraph-backend/internal/domain"
	"github.com/yungbote/interestgraph-backend/internal/platform/errs"
	"github.com/yungbote/interestgraph-backend/internal/platform/logger"
	"github.com/yungbote/interestgraph-backend/internal/platform/neo4jdb"
)

type Neo4jStore struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewNeo4jStore(client *neo4jdb.Client, log *logger.Logger) (*Neo4jStore, error) {
	if client == nil || client.Driver == nil {
		return nil, fmt.Errorf("graph: neo4j client required")
	}
	if log == nil {
		return nil, fmt.Errorf("graph: logger required")
	}
	s := &Neo4jStore{client: client, log: log.With("store", "Neo4jInterestGraph")}
	s.initSchema(context.Background())
	return s, nil
}

// Best-effort schema init; may fail for restricted users.
func (s *Neo4jStore) initSchema(ctx context.Context) {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	constraints := []string{
		`CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE`,
		`CREATE CONSTRAINT tag_name_unique IF NOT EXISTS FOR (t:Tag) REQUIRE t.name IS UNIQUE`,
		`CREATE CONSTRAINT post_id_unique IF NOT EXISTS FOR (p:Post) REQUIRE p.id IS UNIQUE`,
	}
	for _, stmt := range constraints {
		if res, err := session.Run(ctx, stmt, nil); err != nil {
			s.log.Warn("neo4j schema init failed (continuing)", "error", err)
		} else {
			_, _ = res.Consume(ctx)
		}
	}
}

func (s *Neo4jStore) writeSession(ctx context.Context) neo4j.SessionWithContext {
	return s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.client.Database,
	})
}

func (s *Neo4jStore) readSession(ctx context.Context) neo4j.SessionWithContext {
	return s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.client.Database,
	})
}

func (s *Neo4jStore) UpsertInterest(ctx context.Context, userID, tag string, delta float64) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(tag) == "" {
		return errs.Validation("graph.UpsertInterest", fmt.Errorf("userID and tag required"))
	}

	session := s.writeSession(ctx)
	defer session.Close(ctx)

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (u:User {id: $user_id})
MERGE (t:Tag {name: $tag})
MERGE (u)-[r:INTERESTED_IN]->(t)
ON CREATE SET r.weight = $delta, r.lastUpdated = $now
ON MATCH SET r.weight = r.weight + $delta, r.lastUpdated = $now
`, map[string]any{"user_id": userID, "tag": tag, "delta": delta, "now": now})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return errs.TransientStore("graph.UpsertInterest", err)
	}
	return nil
}

func (s *Neo4jStore) UpsertInterestBatch(ctx context.Context, userID string, tags []string, delta float64) error {
	if strings.TrimSpace(userID) == "" {
		return errs.Validation("graph.UpsertInterestBatch", fmt.Errorf("userID required"))
	}
	if len(tags) == 0 {
		return nil
	}

	session := s.writeSession(ctx)
	defer session.Close(ctx)

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (u:User {id: $user_id})
WITH u
UNWIND $tags AS tag
MERGE (t:Tag {name: tag})
MERGE (u)-[r:INTERESTED_IN]->(t)
ON CREATE SET r.weight = $delta, r.lastUpdated = $now
ON MATCH SET r.weight = r.weight + $delta, r.lastUpdated = $now
`, map[string]any{"user_id": userID, "tags": tags, "delta": delta, "now": now})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return errs.TransientStore("graph.UpsertInterestBatch", err)
	}
	return nil
}

func (s *Neo4jStore) RecordInteraction(ctx context.Context, userID, postID string, typ types.InteractionType, weight float64) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(postID) == "" {
		return errs.Validation("graph.RecordInteraction", fmt.Errorf("userID and postID required"))
	}
	if !typ.Valid() {
		return errs.Validation("graph.RecordInteraction", fmt.Errorf("unknown interaction type %q", typ))
	}

	session := s.writeSession(ctx)
	defer session.Close(ctx)

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (u:User {id: $user_id})
MERGE (p:Post {id: $post_id})
MERGE (u)-[r:INTERACTED_WITH {type: $type}]->(p)
ON CREATE SET r.weight = $weight, r.timestamp = $now
ON MATCH SET r.weight = r.weight + $weight, r.timestamp = $now
`, map[string]any{"user_id": userID, "post_id": postID, "type": string(typ), "weight": weight, "now": now})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return errs.TransientStore("graph.RecordInteraction", err)
	}
	return nil
}

func (s *Neo4jStore) LinkPost(ctx context.Context, userID, postID string, tags []string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(postID) == "" {
		return errs.Validation("graph.LinkPost", fmt.Errorf("userID and postID required"))
	}

	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		// Linking never creates the user: a post from an unknown user means
		// the streams are out of order and the message is abandoned.
		res, err := tx.Run(ctx, `MATCH (u:User {id: $user_id}) RETURN u.id AS id`, map[string]any{"user_id": userID})
		if err != nil {
			return nil, err
		}
		recs, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(recs) == 0 {
			return nil, errs.NotFound("graph.LinkPost", fmt.Errorf("user %q does not exist", userID))
		}

		res, err = tx.Run(ctx, `
MATCH (u:User {id: $user_id})
MERGE (p:Post {id: $post_id})
MERGE (u)-[:CREATED]->(p)
WITH p
UNWIND $tags AS tag
MERGE (t:Tag {name: tag})
MERGE (p)-[:HAS_TAG]->(t)
`, map[string]any{"user_id": userID, "post_id": postID, "tags": tags})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	if err != nil {
		if errs.IsNotFound(err) {
			return err
		}
		return errs.TransientStore("graph.LinkPost", err)
	}
	return nil
}

func (s *Neo4jStore) ApplyDecay(ctx context.Context, userID string, factor float64) error {
	if strings.TrimSpace(userID) == "" {
		return errs.Validation("graph.ApplyDecay", fmt.Errorf("userID required"))
	}

	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (u:User {id: $user_id})-[r:INTERESTED_IN]->(:Tag)
SET r.weight = r.weight * $factor
`, map[string]any{"user_id": userID, "factor": factor})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return errs.TransientStore("graph.ApplyDecay", err)
	}
	return nil
}

func (s *Neo4jStore) Normalize(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return errs.Validation("graph.Normalize", fmt.Errorf("userID required"))
	}

	session := s.writeSession(ctx)
	defer session.Close(ctx)

	// Read and rescale inside one write transaction so a concurrent upsert
	// cannot slip between the norm computation and the division.
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (u:User {id: $user_id})-[r:INTERESTED_IN]->(:Tag)
RETURN collect(r.weight) AS weights
`, map[string]any{"user_id": userID})
		if err != nil {
			return nil, err
		}
		recs, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(recs) == 0 {
			return nil, nil
		}
		raw, _ := recs[0].Get("weights")
		var sumSq float64
		if vals, ok := raw.([]any); ok {
			for _, v := range vals {
				w := asFloat(v)
				sumSq += w * w
			}
		}
		norm := math.Sqrt(sumSq)
		if norm == 0 {
			return nil, nil
		}

		res, err = tx.Run(ctx, `
MATCH (u:User {id: $user_id})-[r:INTERESTED_IN]->(:Tag)
SET r.weight = r.weight / $norm
`, map[string]any{"user_id": userID, "norm": norm})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return errs.TransientStore("graph.Normalize", err)
	}
	return nil
}

func (s *Neo4jStore) SimilarUsers(ctx context.Context, userID string, limit int) ([]types.SimilarUser, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errs.Validation("graph.SimilarUsers", fmt.Errorf("userID required"))
	}
	if limit <= 0 {
		limit = 5
	}

	session := s.readSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (u1:User {id: $user_id})-[r1:INTERESTED_IN]->(t:Tag)<-[r2:INTERESTED_IN]-(u2:User)
WHERE u1.id <> u2.id
WITH u2.id AS similarUserId,
     sum(r1.weight * r2.weight) AS dot,
     sqrt(sum(r1.weight * r1.weight)) AS norm1,
     sqrt(sum(r2.weight * r2.weight)) AS norm2
WHERE norm1 > 0 AND norm2 > 0
WITH similarUserId, dot / (norm1 * norm2) AS similarity
RETURN similarUserId, similarity
ORDER BY similarity DESC, similarUserId ASC
LIMIT $limit
`, map[string]any{"user_id": userID, "limit": int64(limit)})
		if err != nil {
			return nil, err
		}
		recs, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		users := make([]types.SimilarUser, 0, len(recs))
		for _, rec := range recs {
			id, _ := rec.Get("similarUserId")
			sim, _ := rec.Get("similarity")
			users = append(users, types.SimilarUser{
				UserID:     asString(id),
				Similarity: asFloat(sim),
			})
		}
		return users, nil
	})
	if err != nil {
		return nil, errs.TransientStore("graph.SimilarUsers", err)
	}
	return out.([]types.SimilarUser), nil
}

func (s *Neo4jStore) RecommendPosts(ctx context.Context, userID string, limit int) ([]types.RankedPost, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errs.Validation("graph.RecommendPosts", fmt.Errorf("userID required"))
	}
	if limit <= 0 {
		limit = 10
	}

	session := s.readSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (u:User {id: $user_id})-[r:INTERESTED_IN]->(t:Tag)<-[:HAS_TAG]-(p:Post)
WHERE NOT (u)-[:INTERACTED_WITH]->(p)
WITH p.id AS postId, sum(r.weight) AS score
RETURN postId, score
ORDER BY score DESC, postId ASC
LIMIT $limit
`, map[string]any{"user_id": userID, "limit": int64(limit)})
		if err != nil {
			return nil, err
		}
		recs, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		posts := make([]types.RankedPost, 0, len(recs))
		for _, rec := range recs {
			id, _ := rec.Get("postId")
			score, _ := rec.Get("score")
			posts = append(posts, types.RankedPost{
				PostID: asString(id),
				Score:  asFloat(score),
			})
		}
		return posts, nil
	})
	if err != nil {
		return nil, errs.TransientStore("graph.RecommendPosts", err)
	}
	return out.([]types.RankedPost), nil
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int64:
		return float64(t)
	case int:
		return float64(t)
	default:
		return 0
	}
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
