package tutor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mouaalim/mouaalim-backend/internal/domain"
	"github.com/mouaalim/mouaalim-backend/internal/textutil"
)

// ErrMalformedQuiz reports generation output that could not be parsed or
// validated into a usable quiz. There is no automatic re-generation; the
// caller surfaces it.
var ErrMalformedQuiz = errors.New("malformed quiz generation output")

const (
	// TrueToken and FalseToken are the canonical true/false answers after
	// normalization.
	TrueToken  = "صح"
	FalseToken = "خطأ"

	mcOptionCount = 4
)

var tfSynonyms = map[string]bool{
	"صح": true, "خطأ": true, "true": true, "false": true, "t": true, "f": true,
}

// NormalizeTF folds any accepted true/false spelling onto the canonical
// token pair: {"t","صح","true"} (case-insensitive) become صح, every other
// accepted spelling becomes خطأ.
func NormalizeTF(answer string) string {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "t", "true", TrueToken:
		return TrueToken
	default:
		return FalseToken
	}
}

// ParseQuiz decodes generation output into a validated quiz. An mc question
// must carry exactly four options and a correct answer matching one of them
// (case-insensitive); a tf answer must be a recognized true/false spelling.
// Any violation is malformed output, not a gradable quiz.
func ParseQuiz(raw string) (domain.Quiz, error) {
	var quiz domain.Quiz
	if !textutil.ParseLooseJSON(raw, &quiz) {
		return domain.Quiz{}, fmt.Errorf("%w: no JSON object found", ErrMalformedQuiz)
	}
	if len(quiz.Questions) == 0 {
		return domain.Quiz{}, fmt.Errorf("%w: empty question list", ErrMalformedQuiz)
	}
	for i, q := range quiz.Questions {
		if err := validateQuestion(q); err != nil {
			return domain.Quiz{}, fmt.Errorf("%w: question %d: %v", ErrMalformedQuiz, i+1, err)
		}
	}
	return quiz, nil
}

func validateQuestion(q domain.QuizQuestion) error {
	if strings.TrimSpace(q.Q) == "" {
		return errors.New("empty question text")
	}
	switch q.Type {
	case domain.QuestionTypeMC:
		if len(q.Options) != mcOptionCount {
			return fmt.Errorf("mc question needs %d options, got %d", mcOptionCount, len(q.Options))
		}
		want := strings.ToLower(strings.TrimSpace(q.A))
		for _, opt := range q.Options {
			if strings.ToLower(strings.TrimSpace(opt)) == want {
				return nil
			}
		}
		return fmt.Errorf("correct answer %q is not among the options", q.A)
	case domain.QuestionTypeTF:
		if !tfSynonyms[strings.ToLower(strings.TrimSpace(q.A))] {
			return fmt.Errorf("tf answer %q is not a recognized true/false value", q.A)
		}
		return nil
	default:
		return fmt.Errorf("unknown question type %q", q.Type)
	}
}
