package tutor

import (
	"sort"

	"github.com/mouaalim/mouaalim-backend/internal/domain"
)

// DefaultResolverThreshold is the minimum cosine similarity accepted before
// the resolver reports Unresolved and the caller falls back to manual topic
// selection.
const DefaultResolverThreshold = 0.25

type Resolution struct {
	Topic  string
	Lesson string
	Score  float64
}

// ResolveTopic maps a question embedding to the best-matching (topic, lesson)
// pair by linear cosine scan over every indexed lesson. ok is false when no
// lesson embeddings exist or the best score falls below threshold.
//
// Entries are ordered by (topic, lesson) before scanning so the
// first-seen-wins tie-break is stable regardless of how the graph happened to
// return them. Strictly-greater comparison keeps the first seen on exact
// ties.
func ResolveTopic(q []float64, entries []domain.LessonEmbedding, threshold float64) (Resolution, bool) {
	if len(entries) == 0 {
		return Resolution{}, false
	}

	ordered := make([]domain.LessonEmbedding, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Topic != ordered[j].Topic {
			return ordered[i].Topic < ordered[j].Topic
		}
		return ordered[i].Lesson < ordered[j].Lesson
	})

	best := Resolution{Score: -1}
	for _, e := range ordered {
		score := Cosine(q, e.Vector)
		if score > best.Score {
			best = Resolution{Topic: e.Topic, Lesson: e.Lesson, Score: score}
		}
	}

	if best.Score < threshold {
		return Resolution{}, false
	}
	return best, true
}
