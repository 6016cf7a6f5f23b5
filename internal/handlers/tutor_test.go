package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mouaalim/mouaalim-backend/internal/domain"
	"github.com/mouaalim/mouaalim-backend/internal/platform/apierr"
	"github.com/mouaalim/mouaalim-backend/internal/platform/logger"
	"github.com/mouaalim/mouaalim-backend/internal/services"
	"github.com/mouaalim/mouaalim-backend/internal/tutor"
)

type fakeTutorAPI struct {
	summaryErr error
	answer     services.AnswerResult
	quiz       domain.Quiz
	quizErr    error
	outcome    tutor.SubmitOutcome
	finish     services.FinishResult
}

func (f *fakeTutorAPI) Summary(_ context.Context, _ *tutor.Session, topic string) (services.SummaryResult, error) {
	if f.summaryErr != nil {
		return services.SummaryResult{}, f.summaryErr
	}
	return services.SummaryResult{
		Deck: domain.SlideDeck{Slides: []domain.Slide{{Number: "1", Text: "الشمس نجمة."}}},
		Path: "/lessons/deck.json",
	}, nil
}

func (f *fakeTutorAPI) Answer(_ context.Context, s *tutor.Session, question string) (services.AnswerResult, error) {
	s.RecordQA(question, f.answer.Answer)
	return f.answer, nil
}

func (f *fakeTutorAPI) StartQuiz(_ context.Context, _ *tutor.Session, _ string, _, _ int) (domain.Quiz, error) {
	if f.quizErr != nil {
		return domain.Quiz{}, f.quizErr
	}
	return f.quiz, nil
}

func (f *fakeTutorAPI) SubmitAnswer(_ context.Context, _ *tutor.Session, _ string) (tutor.SubmitOutcome, error) {
	return f.outcome, nil
}

func (f *fakeTutorAPI) Finish(_ context.Context, _ *tutor.Session) (services.FinishResult, error) {
	return f.finish, nil
}

type fakeTopics struct{ topics []string }

func (f *fakeTopics) AllTopics(_ context.Context) ([]string, error) {
	return f.topics, nil
}

func newTestRouter(t *testing.T, api *fakeTutorAPI, sessions *tutor.SessionStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(func() { log.Sync() })

	h := NewTutorHandler(log, api, sessions, &fakeTopics{topics: []string{"المجموعة الشمسية", "النباتات"}})
	r := gin.New()
	r.GET("/api/topics", h.ListTopics)
	r.POST("/api/summary", h.Summarize)
	r.POST("/api/qa", h.Ask)
	r.POST("/api/quiz", h.StartQuiz)
	r.POST("/api/quiz/answer", h.SubmitQuizAnswer)
	r.POST("/api/finish", h.Finish)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestListTopics(t *testing.T) {
	r := newTestRouter(t, &fakeTutorAPI{}, tutor.NewSessionStore())
	w := doJSON(t, r, http.MethodGet, "/api/topics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	topics, _ := body["topics"].([]any)
	if len(topics) != 2 {
		t.Fatalf("topics = %v", body["topics"])
	}
}

func TestSummarizeOpensSession(t *testing.T) {
	sessions := tutor.NewSessionStore()
	r := newTestRouter(t, &fakeTutorAPI{}, sessions)

	w := doJSON(t, r, http.MethodPost, "/api/summary", `{"module":"المجموعة الشمسية"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["session_id"] == "" || body["session_id"] == nil {
		t.Fatal("response must carry a session_id")
	}
	if sessions.Len() != 1 {
		t.Fatalf("sessions = %d, want 1", sessions.Len())
	}
}

func TestSummarizeMissingTopic(t *testing.T) {
	r := newTestRouter(t, &fakeTutorAPI{}, tutor.NewSessionStore())
	w := doJSON(t, r, http.MethodPost, "/api/summary", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	envelope, _ := body["error"].(map[string]any)
	if envelope == nil || envelope["code"] != "validation_error" {
		t.Fatalf("error envelope = %v", body)
	}
}

func TestSummarizeServiceErrorEnvelope(t *testing.T) {
	api := &fakeTutorAPI{summaryErr: apierr.TopicNotFound(fmt.Errorf("topic %q is not in the knowledge graph", "الديناصورات"))}
	r := newTestRouter(t, api, tutor.NewSessionStore())

	w := doJSON(t, r, http.MethodPost, "/api/summary", `{"module":"الديناصورات"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	envelope, _ := body["error"].(map[string]any)
	if envelope == nil || envelope["code"] != "topic_not_found" {
		t.Fatalf("error envelope = %v", body)
	}
}

func TestAskReusesSession(t *testing.T) {
	sessions := tutor.NewSessionStore()
	existing := sessions.Create()
	api := &fakeTutorAPI{answer: services.AnswerResult{Answer: "الشمس نجمة.", Resolved: false}}
	r := newTestRouter(t, api, sessions)

	w := doJSON(t, r, http.MethodPost, "/api/qa",
		fmt.Sprintf(`{"session_id":%q,"question":"شنية الشمس؟"}`, existing.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	if sessions.Len() != 1 {
		t.Fatalf("sessions = %d, want the existing one reused", sessions.Len())
	}
	if len(existing.QAHistory) != 1 {
		t.Fatalf("QA history = %d, want 1", len(existing.QAHistory))
	}
}

func TestAskRejectsMalformedSessionID(t *testing.T) {
	r := newTestRouter(t, &fakeTutorAPI{}, tutor.NewSessionStore())
	w := doJSON(t, r, http.MethodPost, "/api/qa", `{"session_id":"not-a-uuid","question":"سؤال"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestStartQuizHidesAnswers(t *testing.T) {
	api := &fakeTutorAPI{quiz: domain.Quiz{Questions: []domain.QuizQuestion{
		{Type: "mc", Q: "شكون أقرب كوكب للشمس؟", Options: []string{"عطارد", "الزهرة"}, A: "عطارد"},
	}}}
	r := newTestRouter(t, api, tutor.NewSessionStore())

	w := doJSON(t, r, http.MethodPost, "/api/quiz", `{"module":"المجموعة الشمسية"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	questions, _ := body["questions"].([]any)
	if len(questions) != 1 {
		t.Fatalf("questions = %v", body["questions"])
	}
	first, _ := questions[0].(map[string]any)
	if _, leaked := first["a"]; leaked {
		t.Fatal("question payload must not include the answer key")
	}
}

func TestSubmitQuizAnswerUnknownSession(t *testing.T) {
	r := newTestRouter(t, &fakeTutorAPI{}, tutor.NewSessionStore())
	w := doJSON(t, r, http.MethodPost, "/api/quiz/answer",
		`{"session_id":"6fa459ea-ee8a-3ca4-894e-db77e160355e","answer":"عطارد"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	envelope, _ := body["error"].(map[string]any)
	if envelope == nil || envelope["code"] != "session_not_found" {
		t.Fatalf("error envelope = %v", body)
	}
}

func TestSubmitQuizAnswerDoneCarriesResults(t *testing.T) {
	sessions := tutor.NewSessionStore()
	existing := sessions.Create()
	existing.QuizResults = domain.QuizResults{Correct: 2, Incorrect: 0}
	existing.SessionPassed = true
	api := &fakeTutorAPI{outcome: tutor.SubmitOutcome{Accepted: true, IsCorrect: true, Correct: "عطارد", Done: true}}
	r := newTestRouter(t, api, sessions)

	w := doJSON(t, r, http.MethodPost, "/api/quiz/answer",
		fmt.Sprintf(`{"session_id":%q,"answer":"عطارد"}`, existing.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["done"] != true || body["passed"] != true {
		t.Fatalf("body = %v", body)
	}
	if _, ok := body["results"]; !ok {
		t.Fatal("final grading response must carry results")
	}
}

func TestFinishRequiresExistingSession(t *testing.T) {
	sessions := tutor.NewSessionStore()
	existing := sessions.Create()
	api := &fakeTutorAPI{finish: services.FinishResult{
		Report:     domain.SessionReport{Encouragement: "برافو عليك!"},
		ReportPath: "/reports/session_report.pdf",
	}}
	r := newTestRouter(t, api, sessions)

	w := doJSON(t, r, http.MethodPost, "/api/finish", fmt.Sprintf(`{"session_id":%q}`, existing.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["report_path"] != "/reports/session_report.pdf" {
		t.Fatalf("body = %v", body)
	}

	w = doJSON(t, r, http.MethodPost, "/api/finish", `{"session_id":"6fa459ea-ee8a-3ca4-894e-db77e160355e"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d for unknown session", w.Code)
	}
}
