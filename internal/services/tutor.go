package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mouaalim/mouaalim-backend/internal/clients/gemini"
	"github.com/mouaalim/mouaalim-backend/internal/config"
	"github.com/mouaalim/mouaalim-backend/internal/domain"
	"github.com/mouaalim/mouaalim-backend/internal/embedding"
	"github.com/mouaalim/mouaalim-backend/internal/platform/apierr"
	"github.com/mouaalim/mouaalim-backend/internal/platform/logger"
	"github.com/mouaalim/mouaalim-backend/internal/textutil"
	"github.com/mouaalim/mouaalim-backend/internal/tutor"
)

// ReportRenderer writes the end-of-session PDF.
type ReportRenderer interface {
	Render(s *tutor.Session, filename string) (string, error)
}

// SessionArchiver persists a finished session.
type SessionArchiver interface {
	Archive(ctx context.Context, sessionID uuid.UUID, report domain.SessionReport, quizLog []domain.QuizRecord, reportPath string) error
}

// SummaryResult is the outcome of a chapter summary request.
type SummaryResult struct {
	Deck domain.SlideDeck `json:"data"`
	Path string           `json:"path"`
}

// AnswerResult carries the tutoring answer plus topic-inference detail.
type AnswerResult struct {
	Answer   string  `json:"answer"`
	Topic    string  `json:"topic,omitempty"`
	Lesson   string  `json:"lesson,omitempty"`
	Score    float64 `json:"score,omitempty"`
	Resolved bool    `json:"resolved"`
}

// FinishResult is what closing a session produces.
type FinishResult struct {
	Report     domain.SessionReport `json:"report"`
	ReportPath string               `json:"report_path"`
}

// TutorService drives one child's tutoring flow: chapter summaries,
// question answering, quizzes, and the closing report.
type TutorService struct {
	cfg       config.Config
	graph     tutor.CurriculumReader
	assembler *tutor.ContextAssembler
	embedder  embedding.Embedder
	generator gemini.Generator
	sessions  *tutor.SessionStore
	renderer  ReportRenderer
	archive   SessionArchiver
	log       *logger.Logger
}

func NewTutorService(
	cfg config.Config,
	graph tutor.CurriculumReader,
	assembler *tutor.ContextAssembler,
	embedder embedding.Embedder,
	generator gemini.Generator,
	sessions *tutor.SessionStore,
	renderer ReportRenderer,
	archive SessionArchiver,
	log *logger.Logger,
) *TutorService {
	return &TutorService{
		cfg:       cfg,
		graph:     graph,
		assembler: assembler,
		embedder:  embedder,
		generator: generator,
		sessions:  sessions,
		renderer:  renderer,
		archive:   archive,
		log:       log.With("service", "TutorService"),
	}
}

func (s *TutorService) Sessions() *tutor.SessionStore {
	return s.sessions
}

// Summary produces the slide-deck summary for a topic, stores it in the
// session, and persists the deck JSON for the frontend.
func (s *TutorService) Summary(ctx context.Context, session *tutor.Session, topic string) (SummaryResult, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return SummaryResult{}, apierr.Validation(fmt.Errorf("topic is required"))
	}

	branch, ok, err := s.graph.BranchForTopic(ctx, topic)
	if err != nil {
		return SummaryResult{}, apierr.Internal(err)
	}
	if !ok {
		return SummaryResult{}, apierr.TopicNotFound(fmt.Errorf("topic %q is not in the knowledge graph", topic))
	}

	assembled, err := s.assembler.Assemble(ctx, topic, s.cfg.Context.SummaryChunkCap)
	if err != nil {
		return SummaryResult{}, s.classifyAssembleError(err)
	}

	prompt := tutor.SummaryPrompt(topic, branch, assembled.Lessons, assembled)
	raw, err := s.generator.GenerateText(ctx, prompt)
	if err != nil {
		return SummaryResult{}, apierr.Internal(fmt.Errorf("generate summary: %w", err))
	}

	var deck domain.SlideDeck
	if !textutil.ParseLooseJSON(raw, &deck) || len(deck.Slides) == 0 {
		return SummaryResult{}, apierr.MalformedGeneration(fmt.Errorf("summary output is not a slide deck"))
	}

	path, err := s.persistDeck(branch, topic, deck)
	if err != nil {
		return SummaryResult{}, apierr.Internal(err)
	}

	session.Branch = branch
	session.Topic = topic
	session.Slides = deck.Slides
	session.ChapterSummary = deckText(deck)
	s.log.Info("summary generated", "session_id", session.ID, "topic", topic, "slides", len(deck.Slides))

	return SummaryResult{Deck: deck, Path: path}, nil
}

// Answer handles a free-form question: infer the closest lesson from the
// stored embeddings, ground the answer in its chunks when the match is
// confident, and fall back to general knowledge otherwise.
func (s *TutorService) Answer(ctx context.Context, session *tutor.Session, rawQuestion string) (AnswerResult, error) {
	question := textutil.CleanQuestion(rawQuestion)
	if strings.TrimSpace(question) == "" {
		return AnswerResult{}, apierr.Validation(fmt.Errorf("question is required"))
	}

	qVec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return AnswerResult{}, apierr.Internal(fmt.Errorf("embed question: %w", err))
	}
	entries, err := s.graph.AllLessonEmbeddings(ctx)
	if err != nil {
		return AnswerResult{}, apierr.Internal(err)
	}

	res, resolved := tutor.ResolveTopic(qVec, entries, s.cfg.Resolver.Threshold)

	var assembled tutor.Context
	if resolved {
		assembled, err = s.assembler.Assemble(ctx, res.Topic, s.cfg.Context.SummaryChunkCap)
		if err != nil {
			// A resolved topic that fails assembly degrades to the
			// ungrounded path rather than failing the question.
			s.log.Warn("context assembly failed, answering ungrounded", "topic", res.Topic, "error", err)
			resolved = false
		}
	}

	prompt := tutor.AnswerPrompt(question, res, resolved, assembled.Lessons, assembled)
	answer, err := s.generator.GenerateText(ctx, prompt)
	if err != nil {
		return AnswerResult{}, apierr.Internal(fmt.Errorf("generate answer: %w", err))
	}

	session.RecordQA(question, answer)
	if resolved {
		session.Topic = res.Topic
		session.Lesson = res.Lesson
		s.log.Info("question answered", "session_id", session.ID, "topic", res.Topic, "score", res.Score)
		return AnswerResult{Answer: answer, Topic: res.Topic, Lesson: res.Lesson, Score: res.Score, Resolved: true}, nil
	}
	s.log.Info("question answered without topic", "session_id", session.ID)
	return AnswerResult{Answer: answer, Resolved: false}, nil
}

// ResolveQuestion infers the closest (topic, lesson) for a question without
// generating anything. Interactive callers use it to decide whether to ask
// the child for the topic.
func (s *TutorService) ResolveQuestion(ctx context.Context, rawQuestion string) (tutor.Resolution, bool, error) {
	question := textutil.CleanQuestion(rawQuestion)
	qVec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return tutor.Resolution{}, false, apierr.Internal(fmt.Errorf("embed question: %w", err))
	}
	entries, err := s.graph.AllLessonEmbeddings(ctx)
	if err != nil {
		return tutor.Resolution{}, false, apierr.Internal(err)
	}
	res, ok := tutor.ResolveTopic(qVec, entries, s.cfg.Resolver.Threshold)
	return res, ok, nil
}

// AnswerForTopic answers a question grounded in an explicitly chosen topic,
// skipping embedding inference. lesson may equal the topic when the child
// picked a topic without a specific lesson.
func (s *TutorService) AnswerForTopic(ctx context.Context, session *tutor.Session, rawQuestion, topic, lesson string) (AnswerResult, error) {
	question := textutil.CleanQuestion(rawQuestion)
	assembled, err := s.assembler.Assemble(ctx, topic, s.cfg.Context.SummaryChunkCap)
	if err != nil {
		return AnswerResult{}, s.classifyAssembleError(err)
	}

	res := tutor.Resolution{Topic: topic, Lesson: lesson}
	prompt := tutor.AnswerPrompt(question, res, true, assembled.Lessons, assembled)
	answer, err := s.generator.GenerateText(ctx, prompt)
	if err != nil {
		return AnswerResult{}, apierr.Internal(fmt.Errorf("generate answer: %w", err))
	}

	session.RecordQA(question, answer)
	session.Topic = topic
	session.Lesson = lesson
	return AnswerResult{Answer: answer, Topic: topic, Lesson: lesson, Resolved: true}, nil
}

// StartQuiz generates a quiz for the topic and arms the session's grader.
// numMC and numTF fall back to the configured defaults when zero.
func (s *TutorService) StartQuiz(ctx context.Context, session *tutor.Session, topic string, numMC, numTF int) (domain.Quiz, error) {
	topic = strings.TrimSpace(topic)
	if numMC <= 0 {
		numMC = s.cfg.Quiz.DefaultMC
	}
	if numTF <= 0 {
		numTF = s.cfg.Quiz.DefaultTF
	}
	if topic == "" {
		return domain.Quiz{}, apierr.Validation(fmt.Errorf("topic is required"))
	}

	branch, ok, err := s.graph.BranchForTopic(ctx, topic)
	if err != nil {
		return domain.Quiz{}, apierr.Internal(err)
	}
	if !ok {
		return domain.Quiz{}, apierr.TopicNotFound(fmt.Errorf("topic %q is not in the knowledge graph", topic))
	}

	assembled, err := s.assembler.Assemble(ctx, topic, s.cfg.Context.QuizChunkCap)
	if err != nil {
		return domain.Quiz{}, s.classifyAssembleError(err)
	}

	prompt := tutor.QuizPrompt(topic, branch, assembled.Lessons, assembled, numMC, numTF)
	raw, err := s.generator.GenerateText(ctx, prompt)
	if err != nil {
		return domain.Quiz{}, apierr.Internal(fmt.Errorf("generate quiz: %w", err))
	}

	quiz, err := tutor.ParseQuiz(raw)
	if err != nil {
		return domain.Quiz{}, apierr.MalformedGeneration(err)
	}

	session.Branch = branch
	session.Topic = topic
	session.PendingQuiz = tutor.NewGrader(quiz.Questions)
	s.log.Info("quiz started", "session_id", session.ID, "topic", topic, "questions", len(quiz.Questions))
	return quiz, nil
}

// SubmitAnswer grades one quiz answer. When the last question is graded the
// session's quiz outcome is sealed.
func (s *TutorService) SubmitAnswer(ctx context.Context, session *tutor.Session, answer string) (tutor.SubmitOutcome, error) {
	grader := session.PendingQuiz
	if grader == nil {
		return tutor.SubmitOutcome{}, apierr.Validation(fmt.Errorf("no quiz in progress"))
	}

	outcome := grader.Submit(answer)
	if !outcome.Accepted && !grader.Done() {
		q, _ := grader.Current()
		s.log.Debug("quiz answer rejected", "session_id", session.ID, "question", q.Q)
		return outcome, nil
	}

	if outcome.Done {
		s.sealQuiz(session, grader)
	}
	return outcome, nil
}

func (s *TutorService) sealQuiz(session *tutor.Session, grader *tutor.Grader) {
	session.QuizResults = grader.Results()
	session.QuizLog = grader.Log()
	session.QuizRating = grader.Ratio()
	session.SessionPassed = grader.Ratio() >= s.cfg.Quiz.PassRatio
	session.FeedbackNote = tutor.Verdict(
		grader.Ratio(),
		s.cfg.Quiz.PassRatio,
		s.cfg.Quiz.PerfectNote,
		s.cfg.Quiz.PassNote,
		s.cfg.Quiz.EncourageNote,
	)
	session.PendingQuiz = nil
	s.log.Info("quiz finished",
		"session_id", session.ID,
		"correct", session.QuizResults.Correct,
		"incorrect", session.QuizResults.Incorrect,
		"passed", session.SessionPassed,
	)
}

// Finish closes a session: generate the structured report, render the PDF,
// archive the outcome, and drop the session.
func (s *TutorService) Finish(ctx context.Context, session *tutor.Session) (FinishResult, error) {
	prompt := tutor.FeedbackPrompt(session)
	raw, err := s.generator.GenerateText(ctx, prompt)
	if err != nil {
		return FinishResult{}, apierr.Internal(fmt.Errorf("generate session report: %w", err))
	}

	var report domain.SessionReport
	if !textutil.ParseLooseJSON(raw, &report) {
		return FinishResult{}, apierr.MalformedGeneration(fmt.Errorf("session report output is not valid JSON"))
	}
	if report.Encouragement != "" {
		session.FeedbackNote = report.Encouragement
	}

	filename := fmt.Sprintf("session_report_%s.pdf", session.ID)
	reportPath, err := s.renderer.Render(session, filename)
	if err != nil {
		return FinishResult{}, apierr.Internal(fmt.Errorf("render report: %w", err))
	}

	if s.archive != nil {
		archiveCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := s.archive.Archive(archiveCtx, session.ID, report, session.QuizLog, reportPath); err != nil {
			// Archival is telemetry for the teacher, not part of the
			// child-facing flow; the report still goes out.
			s.log.Error("session archive failed", "session_id", session.ID, "error", err)
		}
	}

	s.sessions.Delete(session.ID)
	s.log.Info("session finished", "session_id", session.ID, "report", reportPath)
	return FinishResult{Report: report, ReportPath: reportPath}, nil
}

func (s *TutorService) classifyAssembleError(err error) error {
	if errors.Is(err, tutor.ErrTopicNotFound) {
		return apierr.TopicNotFound(err)
	}
	return apierr.Internal(err)
}

// persistDeck writes the slide deck under the lessons dir as
// {branch}_{topic}.json with spaces replaced by underscores, and returns
// the public path.
func (s *TutorService) persistDeck(branch, topic string, deck domain.SlideDeck) (string, error) {
	if err := os.MkdirAll(s.cfg.Report.LessonsDir, 0o755); err != nil {
		return "", fmt.Errorf("create lessons dir: %w", err)
	}
	filename := strings.ReplaceAll(fmt.Sprintf("%s_%s.json", branch, topic), " ", "_")
	raw, err := json.MarshalIndent(deck, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal slide deck: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.cfg.Report.LessonsDir, filename), raw, 0o644); err != nil {
		return "", fmt.Errorf("write slide deck: %w", err)
	}
	return "/lessons/" + filename, nil
}

func deckText(deck domain.SlideDeck) string {
	var b strings.Builder
	for _, slide := range deck.Slides {
		b.WriteString(slide.Text)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
