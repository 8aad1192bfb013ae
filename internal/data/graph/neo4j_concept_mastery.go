package graph

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/yungbote/neurobridge-coach/internal/domain"
	"github.com/yungbote/neurobridge-coach/internal/normalization"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
	"github.com/yungbote/neurobridge-coach/internal/platform/neo4jdb"
)

const (
	MasteryStateMastered      = "mastered"
	MasteryStateMisunderstood = "misunderstood"
)

// MasterySchema is registered on the client at startup.
var MasterySchema = []string{
	`CREATE CONSTRAINT learner_id_unique IF NOT EXISTS FOR (l:Learner) REQUIRE l.id IS UNIQUE`,
	`CREATE CONSTRAINT concept_key_unique IF NOT EXISTS FOR (c:Concept) REQUIRE c.key IS UNIQUE`,
}

// UpsertCourseConceptMastery mirrors a course profile's concept lists as
// (:Learner)-[:MASTERY {course_id}]->(:Concept) edges. Edges for concepts that
// left both lists are removed. A nil client is a no-op.
func UpsertCourseConceptMastery(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, profile *types.CourseUserProfile) error {
	if client == nil || client.Driver == nil || profile == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	rows := masteryRows(profile, now)
	keys := make([]string, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, r["concept_key"].(string))
	}

	params := map[string]any{
		"learner_id": profile.LearnerID.String(),
		"course_id":  profile.CourseID.String(),
		"synced_at":  now,
		"rows":       rows,
		"keys":       keys,
	}
	_, err := client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (l:Learner {id: $learner_id})
SET l.synced_at = $synced_at
WITH l
OPTIONAL MATCH (l)-[m:MASTERY {course_id: $course_id}]->(c:Concept)
WHERE NOT c.key IN $keys
DELETE m
`, params)
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, nil
		}

		res, err = tx.Run(ctx, `
UNWIND $rows AS r
MATCH (l:Learner {id: $learner_id})
MERGE (c:Concept {key: r.concept_key})
ON CREATE SET c.name = r.concept_name
MERGE (l)-[m:MASTERY {course_id: $course_id}]->(c)
SET m.state = r.state,
    m.level = r.level,
    m.notes = r.notes,
    m.synced_at = $synced_at
`, params)
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	if err == nil && log != nil {
		log.Debug("Concept mastery mirrored", "course_id", profile.CourseID, "concepts", len(rows))
	}
	return err
}

func masteryRows(profile *types.CourseUserProfile, syncedAt string) []map[string]any {
	out := []map[string]any{}
	seen := map[string]bool{}
	add := func(list []types.ConceptMastery, state string) {
		for _, c := range list {
			key := normalization.Key(c.ConceptName)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, map[string]any{
				"concept_key":  key,
				"concept_name": c.ConceptName,
				"state":        state,
				"level":        int64(c.Level),
				"notes":        c.Notes,
				"synced_at":    syncedAt,
			})
		}
	}
	add(types.DecodeJSON[[]types.ConceptMastery](profile.MasteredConcepts), MasteryStateMastered)
	add(types.DecodeJSON[[]types.ConceptMastery](profile.MisunderstoodConcepts), MasteryStateMisunderstood)
	return out
}
