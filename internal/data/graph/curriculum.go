package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/mouaalim/mouaalim-backend/internal/domain"
	"github.com/mouaalim/mouaalim-backend/internal/platform/logger"
	"github.com/mouaalim/mouaalim-backend/internal/platform/neo4jdb"
)

// Curriculum reads the knowledge graph:
// (b:Branch)-[:HAS_TOPIC]->(t:Topic)-[:HAS_LESSON]->(l:Lesson)-[:HAS_IMAGE]->(img:Image)
// All queries are read-only; ingestion writes the graph out of band.
type Curriculum struct {
	db  *neo4jdb.Client
	log *logger.Logger
}

func NewCurriculum(db *neo4jdb.Client, log *logger.Logger) *Curriculum {
	return &Curriculum{db: db, log: log}
}

// queryTimeout bounds every graph read so a slow Neo4j cannot hang a
// tutoring request.
const queryTimeout = 15 * time.Second

func queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, queryTimeout)
}

const lessonsForTopicQuery = `
MATCH (t:Topic {name: $topic_name})-[:HAS_LESSON]->(l:Lesson)
RETURN l.title AS title, l.start_page AS start_page, l.end_page AS end_page
ORDER BY l.title`

func (c *Curriculum) LessonsForTopic(ctx context.Context, topic string) ([]domain.Lesson, error) {
	ctx, cancel := queryCtx(ctx)
	defer cancel()

	session := c.db.ReadSession(ctx)
	defer session.Close(ctx)

	res, err := session.Run(ctx, lessonsForTopicQuery, map[string]any{"topic_name": topic})
	if err != nil {
		return nil, fmt.Errorf("lessons for topic %q: %w", topic, err)
	}

	var lessons []domain.Lesson
	for res.Next(ctx) {
		rec := res.Record()
		lessons = append(lessons, domain.Lesson{
			Title:     stringValue(rec, "title"),
			StartPage: intValue(rec, "start_page"),
			EndPage:   intValue(rec, "end_page"),
		})
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("lessons for topic %q: %w", topic, err)
	}
	return lessons, nil
}

const branchForTopicQuery = `
MATCH (b:Branch)-[:HAS_TOPIC]->(t:Topic {name: $topic_name})
RETURN b.name AS branch_name`

// BranchForTopic returns the parent branch of a topic; ok is false when the
// topic is not in the graph.
func (c *Curriculum) BranchForTopic(ctx context.Context, topic string) (string, bool, error) {
	ctx, cancel := queryCtx(ctx)
	defer cancel()

	session := c.db.ReadSession(ctx)
	defer session.Close(ctx)

	res, err := session.Run(ctx, branchForTopicQuery, map[string]any{"topic_name": topic})
	if err != nil {
		return "", false, fmt.Errorf("branch for topic %q: %w", topic, err)
	}
	if !res.Next(ctx) {
		if err := res.Err(); err != nil {
			return "", false, fmt.Errorf("branch for topic %q: %w", topic, err)
		}
		return "", false, nil
	}
	return stringValue(res.Record(), "branch_name"), true, nil
}

const allTopicsQuery = `MATCH (t:Topic) RETURN t.name AS name ORDER BY t.name`

func (c *Curriculum) AllTopics(ctx context.Context) ([]string, error) {
	ctx, cancel := queryCtx(ctx)
	defer cancel()

	session := c.db.ReadSession(ctx)
	defer session.Close(ctx)

	res, err := session.Run(ctx, allTopicsQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	var topics []string
	for res.Next(ctx) {
		topics = append(topics, stringValue(res.Record(), "name"))
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return topics, nil
}

const lessonEmbeddingsQuery = `
MATCH (t:Topic)-[:HAS_LESSON]->(l:Lesson)
WHERE l.vector_embedding IS NOT NULL
RETURN t.name AS topic, l.title AS lesson, l.vector_embedding AS embedding`

func (c *Curriculum) AllLessonEmbeddings(ctx context.Context) ([]domain.LessonEmbedding, error) {
	ctx, cancel := queryCtx(ctx)
	defer cancel()

	session := c.db.ReadSession(ctx)
	defer session.Close(ctx)

	res, err := session.Run(ctx, lessonEmbeddingsQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("lesson embeddings: %w", err)
	}
	var out []domain.LessonEmbedding
	for res.Next(ctx) {
		rec := res.Record()
		out = append(out, domain.LessonEmbedding{
			Topic:  stringValue(rec, "topic"),
			Lesson: stringValue(rec, "lesson"),
			Vector: floatSliceValue(rec, "embedding"),
		})
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("lesson embeddings: %w", err)
	}
	c.log.Debug("fetched lesson embeddings", "count", len(out))
	return out, nil
}

const lessonImagesQuery = `
MATCH (l:Lesson {title: $title})-[:HAS_IMAGE]->(img:Image)
RETURN img.name AS name, img.caption AS caption, img.page AS page
ORDER BY img.page`

func (c *Curriculum) ImagesForLesson(ctx context.Context, lessonTitle string) ([]domain.ImageRef, error) {
	ctx, cancel := queryCtx(ctx)
	defer cancel()

	session := c.db.ReadSession(ctx)
	defer session.Close(ctx)

	res, err := session.Run(ctx, lessonImagesQuery, map[string]any{"title": lessonTitle})
	if err != nil {
		return nil, fmt.Errorf("images for lesson %q: %w", lessonTitle, err)
	}
	var images []domain.ImageRef
	for res.Next(ctx) {
		rec := res.Record()
		images = append(images, domain.ImageRef{
			Name:    stringValue(rec, "name"),
			Caption: stringValue(rec, "caption"),
			Page:    intValue(rec, "page"),
		})
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("images for lesson %q: %w", lessonTitle, err)
	}
	return images, nil
}

// Record value coercion. The driver hands back int64 for Neo4j integers and
// []any for lists.

func stringValue(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func intValue(rec *neo4j.Record, key string) int {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func floatSliceValue(rec *neo4j.Record, key string) []float64 {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(raw))
	for _, item := range raw {
		switch f := item.(type) {
		case float64:
			out = append(out, f)
		case int64:
			out = append(out, float64(f))
		}
	}
	return out
}
