package tutor

import (
	"errors"
	"testing"

	"github.com/mouaalim/mouaalim-backend/internal/domain"
)

func TestParseQuizFencedJSON(t *testing.T) {
	raw := "```json\n" + `{"questions":[
		{"type":"mc","q":"أين تعيش الأسماك؟","options":["البحر","الجبل","الصحراء","الغابة"],"a":"البحر"},
		{"type":"tf","q":"الشمس نجم.","a":"صح"}
	]}` + "\n```"

	quiz, err := ParseQuiz(raw)
	if err != nil {
		t.Fatalf("ParseQuiz: %v", err)
	}
	if len(quiz.Questions) != 2 {
		t.Fatalf("questions: want=2 got=%d", len(quiz.Questions))
	}
	if quiz.Questions[0].Type != domain.QuestionTypeMC || quiz.Questions[1].Type != domain.QuestionTypeTF {
		t.Fatalf("types: %+v", quiz.Questions)
	}
}

func TestParseQuizRepairsSingleQuotes(t *testing.T) {
	raw := `{'questions':[{'type':'tf','q':'سؤال','a':'خطأ'}]}`
	quiz, err := ParseQuiz(raw)
	if err != nil {
		t.Fatalf("ParseQuiz: %v", err)
	}
	if quiz.Questions[0].A != "خطأ" {
		t.Fatalf("answer: %q", quiz.Questions[0].A)
	}
}

func TestParseQuizRejectsMCAnswerNotAmongOptions(t *testing.T) {
	raw := `{"questions":[{"type":"mc","q":"q","options":["أ","ب","ج","د"],"a":"هـ"}]}`
	if _, err := ParseQuiz(raw); !errors.Is(err, ErrMalformedQuiz) {
		t.Fatalf("want ErrMalformedQuiz, got %v", err)
	}
}

func TestParseQuizRejectsWrongOptionCount(t *testing.T) {
	raw := `{"questions":[{"type":"mc","q":"q","options":["أ","ب"],"a":"أ"}]}`
	if _, err := ParseQuiz(raw); !errors.Is(err, ErrMalformedQuiz) {
		t.Fatalf("want ErrMalformedQuiz, got %v", err)
	}
}

func TestParseQuizRejectsUnknownType(t *testing.T) {
	raw := `{"questions":[{"type":"essay","q":"q","a":"x"}]}`
	if _, err := ParseQuiz(raw); !errors.Is(err, ErrMalformedQuiz) {
		t.Fatalf("want ErrMalformedQuiz, got %v", err)
	}
}

func TestParseQuizRejectsBadTFAnswer(t *testing.T) {
	raw := `{"questions":[{"type":"tf","q":"q","a":"ربما"}]}`
	if _, err := ParseQuiz(raw); !errors.Is(err, ErrMalformedQuiz) {
		t.Fatalf("want ErrMalformedQuiz, got %v", err)
	}
}

func TestParseQuizRejectsUnparsableText(t *testing.T) {
	if _, err := ParseQuiz("عذرا، لا يمكنني توليد اختبار."); !errors.Is(err, ErrMalformedQuiz) {
		t.Fatalf("want ErrMalformedQuiz, got %v", err)
	}
}

func TestParseQuizRejectsEmptyQuestionList(t *testing.T) {
	if _, err := ParseQuiz(`{"questions":[]}`); !errors.Is(err, ErrMalformedQuiz) {
		t.Fatalf("want ErrMalformedQuiz, got %v", err)
	}
}
