package tutor

import (
	"strings"

	"github.com/mouaalim/mouaalim-backend/internal/domain"
)

// Grader drives one grading pass over a validated quiz:
// Presenting(i) -> AwaitingAnswer(i) -> Graded(i) -> Presenting(i+1) ... ->
// Complete. An answer outside the allowed set leaves the state untouched so
// the caller re-prompts; retries are bounded only by the caller.
type Grader struct {
	questions []domain.QuizQuestion
	index     int
	results   domain.QuizResults
	log       []domain.QuizRecord
}

// SubmitOutcome reports what one Submit call did.
type SubmitOutcome struct {
	Accepted  bool
	IsCorrect bool
	Correct   string
	Record    domain.QuizRecord
	Done      bool
}

func NewGrader(questions []domain.QuizQuestion) *Grader {
	qs := make([]domain.QuizQuestion, len(questions))
	copy(qs, questions)
	return &Grader{questions: qs}
}

func (g *Grader) Done() bool {
	return g.index >= len(g.questions)
}

// Current returns the question awaiting an answer.
func (g *Grader) Current() (domain.QuizQuestion, bool) {
	if g.Done() {
		return domain.QuizQuestion{}, false
	}
	return g.questions[g.index], true
}

// AllowedAnswers lists the inputs Submit will accept for the current
// question, lowercased.
func (g *Grader) AllowedAnswers() []string {
	q, ok := g.Current()
	if !ok {
		return nil
	}
	var allowed []string
	for _, opt := range q.Options {
		allowed = append(allowed, strings.ToLower(strings.TrimSpace(opt)))
	}
	if q.Type == domain.QuestionTypeTF {
		for _, syn := range []string{TrueToken, FalseToken, "true", "false", "t", "f"} {
			allowed = append(allowed, syn)
		}
	}
	return allowed
}

// Submit grades one answer against the current question. Invalid input is
// rejected without advancing state, mutating counters, or logging.
func (g *Grader) Submit(answer string) SubmitOutcome {
	q, ok := g.Current()
	if !ok {
		return SubmitOutcome{Done: true}
	}

	normalized := strings.ToLower(strings.TrimSpace(answer))
	if !g.isAllowed(normalized) {
		return SubmitOutcome{Accepted: false, Done: false}
	}

	childAns := normalized
	correctAns := strings.ToLower(strings.TrimSpace(q.A))
	if q.Type == domain.QuestionTypeTF {
		childAns = NormalizeTF(normalized)
		correctAns = NormalizeTF(q.A)
	}

	isCorrect := childAns == correctAns
	if isCorrect {
		g.results.Correct++
	} else {
		g.results.Incorrect++
	}

	record := domain.QuizRecord{
		Q:         q.Q,
		Type:      q.Type,
		Options:   q.Options,
		Child:     childAns,
		Correct:   correctAns,
		IsCorrect: isCorrect,
	}
	g.log = append(g.log, record)
	g.index++

	return SubmitOutcome{
		Accepted:  true,
		IsCorrect: isCorrect,
		Correct:   correctAns,
		Record:    record,
		Done:      g.Done(),
	}
}

func (g *Grader) isAllowed(normalized string) bool {
	for _, a := range g.AllowedAnswers() {
		if a == normalized {
			return true
		}
	}
	return false
}

func (g *Grader) Results() domain.QuizResults {
	return g.results
}

func (g *Grader) Log() []domain.QuizRecord {
	out := make([]domain.QuizRecord, len(g.log))
	copy(out, g.log)
	return out
}

// Ratio is correct/(correct+incorrect) on the 0..1 scale, 0 when nothing has
// been graded yet.
func (g *Grader) Ratio() float64 {
	total := g.results.Correct + g.results.Incorrect
	if total == 0 {
		return 0
	}
	return float64(g.results.Correct) / float64(total)
}

// Verdict maps the final ratio onto the configured tier messages: perfect
// score, at-or-above passRatio, or below.
func Verdict(ratio, passRatio float64, perfect, pass, encourage string) string {
	switch {
	case ratio == 1.0:
		return perfect
	case ratio >= passRatio:
		return pass
	default:
		return encourage
	}
}
