package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mouaalim/mouaalim-backend/internal/domain"
)

// ErrTopicNotFound reports a topic that is absent from the knowledge graph or
// has no lessons attached.
var ErrTopicNotFound = errors.New("topic not found in knowledge graph")

// NoImagesPlaceholder stands in for the images block when no lesson carries
// pictures.
const NoImagesPlaceholder = "ما ثـمّـة حتى تصاور."

// CurriculumReader is the read surface of the knowledge graph gateway.
type CurriculumReader interface {
	LessonsForTopic(ctx context.Context, topic string) ([]domain.Lesson, error)
	BranchForTopic(ctx context.Context, topic string) (string, bool, error)
	AllTopics(ctx context.Context) ([]string, error)
	AllLessonEmbeddings(ctx context.Context) ([]domain.LessonEmbedding, error)
	ImagesForLesson(ctx context.Context, lessonTitle string) ([]domain.ImageRef, error)
}

// ChunkRetriever returns reranked text chunks for a lesson title or question.
type ChunkRetriever interface {
	Retrieve(ctx context.Context, query string) ([]string, error)
}

// Context is the bounded textual grounding handed to prompt construction.
type Context struct {
	Text           string
	ImagesMarkdown string
	Lessons        []domain.Lesson
}

type ContextAssembler struct {
	graph     CurriculumReader
	retriever ChunkRetriever
}

func NewContextAssembler(graph CurriculumReader, retriever ChunkRetriever) *ContextAssembler {
	return &ContextAssembler{graph: graph, retriever: retriever}
}

// Assemble gathers chunks and image references for every lesson of a topic,
// in lesson order, then hard-caps the chunk sequence at chunkCap before
// joining. Chunks past the cap are dropped silently in retrieval order.
func (a *ContextAssembler) Assemble(ctx context.Context, topic string, chunkCap int) (Context, error) {
	lessons, err := a.graph.LessonsForTopic(ctx, topic)
	if err != nil {
		return Context{}, fmt.Errorf("lessons for topic %q: %w", topic, err)
	}
	if len(lessons) == 0 {
		return Context{}, fmt.Errorf("topic %q: %w", topic, ErrTopicNotFound)
	}

	var chunks []string
	var imageBlocks []string
	for _, lesson := range lessons {
		got, err := a.retriever.Retrieve(ctx, lesson.Title)
		if err != nil {
			return Context{}, fmt.Errorf("retrieve chunks for %q: %w", lesson.Title, err)
		}
		chunks = append(chunks, got...)

		pics, err := a.graph.ImagesForLesson(ctx, lesson.Title)
		if err != nil {
			return Context{}, fmt.Errorf("images for %q: %w", lesson.Title, err)
		}
		if len(pics) > 0 {
			var md []string
			for _, p := range pics {
				md = append(md, fmt.Sprintf("* [%s](%s)", p.Caption, p.Name))
			}
			imageBlocks = append(imageBlocks,
				fmt.Sprintf("درس «%s» – التصاور:\n%s\n", lesson.Title, strings.Join(md, "\n")))
		}
	}

	if chunkCap > 0 && len(chunks) > chunkCap {
		chunks = chunks[:chunkCap]
	}

	images := NoImagesPlaceholder
	if len(imageBlocks) > 0 {
		images = strings.Join(imageBlocks, "\n")
	}

	return Context{
		Text:           strings.Join(chunks, "\n"),
		ImagesMarkdown: images,
		Lessons:        lessons,
	}, nil
}
