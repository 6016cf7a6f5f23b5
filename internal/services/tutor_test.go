package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/mouaalim/mouaalim-backend/internal/config"
	"github.com/mouaalim/mouaalim-backend/internal/domain"
	"github.com/mouaalim/mouaalim-backend/internal/platform/apierr"
	"github.com/mouaalim/mouaalim-backend/internal/platform/logger"
	"github.com/mouaalim/mouaalim-backend/internal/tutor"
)

type fakeGraph struct {
	branches   map[string]string
	lessons    map[string][]domain.Lesson
	embeddings []domain.LessonEmbedding
}

func (f *fakeGraph) LessonsForTopic(_ context.Context, topic string) ([]domain.Lesson, error) {
	return f.lessons[topic], nil
}

func (f *fakeGraph) BranchForTopic(_ context.Context, topic string) (string, bool, error) {
	b, ok := f.branches[topic]
	return b, ok, nil
}

func (f *fakeGraph) AllTopics(_ context.Context) ([]string, error) {
	var out []string
	for t := range f.branches {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeGraph) AllLessonEmbeddings(_ context.Context) ([]domain.LessonEmbedding, error) {
	return f.embeddings, nil
}

func (f *fakeGraph) ImagesForLesson(_ context.Context, string2 string) ([]domain.ImageRef, error) {
	return nil, nil
}

type fakeRetriever struct{ chunks []string }

func (f *fakeRetriever) Retrieve(_ context.Context, _ string) ([]string, error) {
	return f.chunks, nil
}

type fakeEmbedder struct {
	vec   []float64
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float64, error) {
	f.calls++
	return f.vec, nil
}

// scriptedGenerator returns canned outputs in call order.
type scriptedGenerator struct {
	outputs []string
	prompts []string
}

func (g *scriptedGenerator) GenerateText(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if len(g.outputs) == 0 {
		return "", fmt.Errorf("no scripted output left")
	}
	out := g.outputs[0]
	g.outputs = g.outputs[1:]
	return out, nil
}

type fakeRenderer struct {
	path string
	seen *tutor.Session
}

func (f *fakeRenderer) Render(s *tutor.Session, filename string) (string, error) {
	f.seen = s
	if f.path != "" {
		return f.path, nil
	}
	return "/reports/" + filename, nil
}

type fakeArchiver struct {
	sessionID uuid.UUID
	report    domain.SessionReport
	quizLog   []domain.QuizRecord
	calls     int
}

func (f *fakeArchiver) Archive(_ context.Context, sessionID uuid.UUID, report domain.SessionReport, quizLog []domain.QuizRecord, _ string) error {
	f.calls++
	f.sessionID = sessionID
	f.report = report
	f.quizLog = quizLog
	return nil
}

func newTestService(t *testing.T, graph *fakeGraph, gen *scriptedGenerator) (*TutorService, *fakeArchiver) {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(func() { log.Sync() })

	cfg := config.Default()
	cfg.Report.LessonsDir = t.TempDir()
	cfg.Report.ReportsDir = t.TempDir()

	archiver := &fakeArchiver{}
	svc := NewTutorService(
		cfg,
		graph,
		tutor.NewContextAssembler(graph, &fakeRetriever{chunks: []string{"المجموعة الشمسية فيها ثمانية كواكب."}}),
		&fakeEmbedder{vec: []float64{1, 0}},
		gen,
		tutor.NewSessionStore(),
		&fakeRenderer{},
		archiver,
		log,
	)
	return svc, archiver
}

func solarGraph() *fakeGraph {
	return &fakeGraph{
		branches: map[string]string{"المجموعة الشمسية": "الإيقاظ العلمي"},
		lessons: map[string][]domain.Lesson{
			"المجموعة الشمسية": {{Title: "الكواكب", StartPage: 10, EndPage: 14}},
		},
		embeddings: []domain.LessonEmbedding{
			{Topic: "المجموعة الشمسية", Lesson: "الكواكب", Vector: []float64{1, 0}},
			{Topic: "النباتات", Lesson: "التمثيل الضوئي", Vector: []float64{0, 1}},
		},
	}
}

func TestSummaryPersistsDeckAndFillsSession(t *testing.T) {
	deck := domain.SlideDeck{Slides: []domain.Slide{
		{Number: "1", Text: "الشمس نجمة."},
		{Number: "2", Text: "الأرض كوكب."},
	}}
	raw, _ := json.Marshal(deck)
	gen := &scriptedGenerator{outputs: []string{"```json\n" + string(raw) + "\n```"}}

	svc, _ := newTestService(t, solarGraph(), gen)
	session := svc.Sessions().Create()

	got, err := svc.Summary(context.Background(), session, "المجموعة الشمسية")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(got.Deck.Slides) != 2 {
		t.Fatalf("slides = %d, want 2", len(got.Deck.Slides))
	}
	if !strings.HasPrefix(got.Path, "/lessons/") || strings.Contains(got.Path, " ") {
		t.Fatalf("deck path %q should be under /lessons/ with no spaces", got.Path)
	}

	onDisk := filepath.Join(svc.cfg.Report.LessonsDir, strings.TrimPrefix(got.Path, "/lessons/"))
	if _, err := os.Stat(onDisk); err != nil {
		t.Fatalf("deck file not written: %v", err)
	}

	if session.Topic != "المجموعة الشمسية" || session.Branch != "الإيقاظ العلمي" {
		t.Fatalf("session topic/branch = %q/%q", session.Topic, session.Branch)
	}
	if !session.HasSummary() {
		t.Fatal("session should have a summary after Summary")
	}
}

func TestSummaryUnknownTopic(t *testing.T) {
	gen := &scriptedGenerator{}
	svc, _ := newTestService(t, solarGraph(), gen)
	session := svc.Sessions().Create()

	_, err := svc.Summary(context.Background(), session, "الديناصورات")
	if got := apierr.From(err); got.Code != "topic_not_found" {
		t.Fatalf("err = %v, want topic_not_found", err)
	}
	if len(gen.prompts) != 0 {
		t.Fatal("generator should not be called for an unknown topic")
	}
}

func TestSummaryMalformedDeck(t *testing.T) {
	gen := &scriptedGenerator{outputs: []string{"آسف، لا أستطيع."}}
	svc, _ := newTestService(t, solarGraph(), gen)
	session := svc.Sessions().Create()

	_, err := svc.Summary(context.Background(), session, "المجموعة الشمسية")
	if got := apierr.From(err); got.Code != "malformed_generation" {
		t.Fatalf("err = %v, want malformed_generation", err)
	}
}

func TestAnswerResolvedGroundsPromptAndRecordsQA(t *testing.T) {
	gen := &scriptedGenerator{outputs: []string{"الشمس نجمة كبيرة تعطينا الضوء والسخانة."}}
	svc, _ := newTestService(t, solarGraph(), gen)
	session := svc.Sessions().Create()

	got, err := svc.Answer(context.Background(), session, "  شنية الشمس؟  ")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !got.Resolved || got.Topic != "المجموعة الشمسية" || got.Lesson != "الكواكب" {
		t.Fatalf("resolution = %+v", got)
	}
	if !strings.Contains(gen.prompts[0], "الدرس الأنسب") {
		t.Fatal("resolved prompt should name the inferred lesson")
	}
	if len(session.QAHistory) != 1 || session.QAHistory[0].Answer != got.Answer {
		t.Fatalf("QA history = %+v", session.QAHistory)
	}
	if session.Lesson != "الكواكب" {
		t.Fatalf("session lesson = %q", session.Lesson)
	}
}

func TestAnswerBelowThresholdFallsBack(t *testing.T) {
	graph := solarGraph()
	// Orthogonal-ish embeddings so the best cosine stays under the threshold.
	graph.embeddings = []domain.LessonEmbedding{
		{Topic: "المجموعة الشمسية", Lesson: "الكواكب", Vector: []float64{0.1, 1}},
	}
	gen := &scriptedGenerator{outputs: []string{"إجابة عامة."}}
	svc, _ := newTestService(t, graph, gen)
	session := svc.Sessions().Create()

	got, err := svc.Answer(context.Background(), session, "كيفاش نطيب الكسكسي؟")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got.Resolved || got.Topic != "" {
		t.Fatalf("resolution = %+v, want unresolved", got)
	}
	if strings.Contains(gen.prompts[0], "الدرس الأنسب") {
		t.Fatal("unresolved prompt must not name a lesson")
	}
	if session.Topic != "" {
		t.Fatalf("unresolved answer must not set session topic, got %q", session.Topic)
	}
}

func quizJSON() string {
	quiz := domain.Quiz{Questions: []domain.QuizQuestion{
		{Type: "mc", Q: "شكون أقرب كوكب للشمس؟", Options: []string{"عطارد", "الزهرة", "الأرض"}, A: "عطارد"},
		{Type: "tf", Q: "الشمس كوكب.", A: "خطأ"},
	}}
	raw, _ := json.Marshal(quiz)
	return string(raw)
}

func TestQuizLifecycle(t *testing.T) {
	report := domain.SessionReport{
		Summary:       "حصة باهية.",
		QuizRating:    0.5,
		SessionPassed: false,
		Encouragement: "زيد حاول!",
	}
	reportRaw, _ := json.Marshal(report)
	gen := &scriptedGenerator{outputs: []string{quizJSON(), string(reportRaw)}}

	svc, archiver := newTestService(t, solarGraph(), gen)
	session := svc.Sessions().Create()
	ctx := context.Background()

	quiz, err := svc.StartQuiz(ctx, session, "المجموعة الشمسية", 0, 0)
	if err != nil {
		t.Fatalf("StartQuiz: %v", err)
	}
	if len(quiz.Questions) != 2 {
		t.Fatalf("questions = %d, want 2", len(quiz.Questions))
	}
	if session.PendingQuiz == nil {
		t.Fatal("StartQuiz must arm the grader")
	}

	// Wrong mc answer, correct tf answer.
	out, err := svc.SubmitAnswer(ctx, session, "الزهرة")
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if !out.Accepted || out.IsCorrect || out.Done {
		t.Fatalf("first outcome = %+v", out)
	}
	out, err = svc.SubmitAnswer(ctx, session, "خطأ")
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if !out.Done || !out.IsCorrect {
		t.Fatalf("second outcome = %+v", out)
	}

	if session.PendingQuiz != nil {
		t.Fatal("grader must be cleared once the quiz is done")
	}
	if session.QuizResults.Correct != 1 || session.QuizResults.Incorrect != 1 {
		t.Fatalf("results = %+v", session.QuizResults)
	}
	if session.QuizRating != 0.5 || session.SessionPassed {
		t.Fatalf("rating=%v passed=%v", session.QuizRating, session.SessionPassed)
	}

	id := session.ID
	got, err := svc.Finish(ctx, session)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if got.Report.Encouragement != "زيد حاول!" {
		t.Fatalf("report = %+v", got.Report)
	}
	if !strings.HasSuffix(got.ReportPath, fmt.Sprintf("session_report_%s.pdf", id)) {
		t.Fatalf("report path = %q", got.ReportPath)
	}
	if archiver.calls != 1 || archiver.sessionID != id || len(archiver.quizLog) != 2 {
		t.Fatalf("archive calls=%d session=%s log=%d", archiver.calls, archiver.sessionID, len(archiver.quizLog))
	}
	if _, ok := svc.Sessions().Get(id); ok {
		t.Fatal("session must be deleted after Finish")
	}
}

func TestSubmitAnswerWithoutQuiz(t *testing.T) {
	gen := &scriptedGenerator{}
	svc, _ := newTestService(t, solarGraph(), gen)
	session := svc.Sessions().Create()

	_, err := svc.SubmitAnswer(context.Background(), session, "عطارد")
	if got := apierr.From(err); got.Code != "validation_error" {
		t.Fatalf("err = %v, want validation_error", err)
	}
}

func TestSubmitAnswerRejectedKeepsGrader(t *testing.T) {
	gen := &scriptedGenerator{outputs: []string{quizJSON()}}
	svc, _ := newTestService(t, solarGraph(), gen)
	session := svc.Sessions().Create()
	ctx := context.Background()

	if _, err := svc.StartQuiz(ctx, session, "المجموعة الشمسية", 0, 0); err != nil {
		t.Fatalf("StartQuiz: %v", err)
	}

	out, err := svc.SubmitAnswer(ctx, session, "المريخ")
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if out.Accepted {
		t.Fatal("an answer outside the options must be rejected")
	}
	if session.PendingQuiz == nil {
		t.Fatal("a rejected answer must not clear the grader")
	}
}

func TestStartQuizMalformedOutput(t *testing.T) {
	gen := &scriptedGenerator{outputs: []string{`{"questions": []}`}}
	svc, _ := newTestService(t, solarGraph(), gen)
	session := svc.Sessions().Create()

	_, err := svc.StartQuiz(context.Background(), session, "المجموعة الشمسية", 0, 0)
	if got := apierr.From(err); got.Code != "malformed_generation" {
		t.Fatalf("err = %v, want malformed_generation", err)
	}
	if session.PendingQuiz != nil {
		t.Fatal("a malformed quiz must not arm the grader")
	}
}
