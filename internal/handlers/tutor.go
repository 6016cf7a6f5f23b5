package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mouaalim/mouaalim-backend/internal/domain"
	"github.com/mouaalim/mouaalim-backend/internal/platform/logger"
	"github.com/mouaalim/mouaalim-backend/internal/services"
	"github.com/mouaalim/mouaalim-backend/internal/tutor"
)

// TutorAPI is the slice of the tutoring service the HTTP layer needs.
type TutorAPI interface {
	Summary(ctx context.Context, session *tutor.Session, topic string) (services.SummaryResult, error)
	Answer(ctx context.Context, session *tutor.Session, question string) (services.AnswerResult, error)
	StartQuiz(ctx context.Context, session *tutor.Session, topic string, numMC, numTF int) (domain.Quiz, error)
	SubmitAnswer(ctx context.Context, session *tutor.Session, answer string) (tutor.SubmitOutcome, error)
	Finish(ctx context.Context, session *tutor.Session) (services.FinishResult, error)
}

type TutorHandler struct {
	log      *logger.Logger
	svc      TutorAPI
	sessions *tutor.SessionStore
	topics   TopicLister
}

// TopicLister exposes the curriculum's topic list for the frontend picker.
type TopicLister interface {
	AllTopics(ctx context.Context) ([]string, error)
}

func NewTutorHandler(log *logger.Logger, svc TutorAPI, sessions *tutor.SessionStore, topics TopicLister) *TutorHandler {
	return &TutorHandler{
		log:      log.With("handler", "TutorHandler"),
		svc:      svc,
		sessions: sessions,
		topics:   topics,
	}
}

type summaryRequest struct {
	SessionID string `json:"session_id"`
	Module    string `json:"module" binding:"required"`
}

type questionRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question" binding:"required"`
}

type quizRequest struct {
	SessionID string `json:"session_id"`
	Module    string `json:"module" binding:"required"`
	NumMC     int    `json:"num_mc"`
	NumTF     int    `json:"num_tf"`
}

type quizAnswerRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Answer    string `json:"answer" binding:"required"`
}

type finishRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// session resolves the request's session: a blank ID opens a new session,
// a well-formed ID reattaches to the existing one (or recreates it after a
// restart), and a malformed ID is a client error.
func (h *TutorHandler) session(c *gin.Context, raw string) (*tutor.Session, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return h.sessions.Create(), true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", fmt.Errorf("session_id %q is not a UUID", raw))
		return nil, false
	}
	return h.sessions.GetOrCreate(id), true
}

// existingSession is the strict variant for operations that only make sense
// mid-session (grading, finishing).
func (h *TutorHandler) existingSession(c *gin.Context, raw string) (*tutor.Session, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", fmt.Errorf("session_id %q is not a UUID", raw))
		return nil, false
	}
	s, ok := h.sessions.Get(id)
	if !ok {
		RespondError(c, http.StatusNotFound, "session_not_found", fmt.Errorf("session %s not found", id))
		return nil, false
	}
	return s, true
}

// GET /api/topics
func (h *TutorHandler) ListTopics(c *gin.Context) {
	topics, err := h.topics.AllTopics(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"topics": topics})
}

// POST /api/summary
func (h *TutorHandler) Summarize(c *gin.Context) {
	var req summaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	session, ok := h.session(c, req.SessionID)
	if !ok {
		return
	}
	res, err := h.svc.Summary(c.Request.Context(), session, req.Module)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"session_id": session.ID,
		"deck":       res.Deck,
		"path":       res.Path,
	})
}

// POST /api/qa
func (h *TutorHandler) Ask(c *gin.Context) {
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	session, ok := h.session(c, req.SessionID)
	if !ok {
		return
	}
	res, err := h.svc.Answer(c.Request.Context(), session, req.Question)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"session_id": session.ID,
		"answer":     res.Answer,
		"topic":      res.Topic,
		"lesson":     res.Lesson,
		"resolved":   res.Resolved,
	})
}

// POST /api/quiz
func (h *TutorHandler) StartQuiz(c *gin.Context) {
	var req quizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	session, ok := h.session(c, req.SessionID)
	if !ok {
		return
	}
	quiz, err := h.svc.StartQuiz(c.Request.Context(), session, req.Module, req.NumMC, req.NumTF)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	// Answers stay server-side; the client only sees the questions.
	questions := make([]gin.H, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		questions = append(questions, gin.H{
			"type":    q.Type,
			"q":       q.Q,
			"options": q.Options,
		})
	}
	RespondOK(c, gin.H{
		"session_id": session.ID,
		"questions":  questions,
	})
}

// POST /api/quiz/answer
func (h *TutorHandler) SubmitQuizAnswer(c *gin.Context) {
	var req quizAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	session, ok := h.existingSession(c, req.SessionID)
	if !ok {
		return
	}
	outcome, err := h.svc.SubmitAnswer(c.Request.Context(), session, req.Answer)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	resp := gin.H{
		"session_id": session.ID,
		"accepted":   outcome.Accepted,
		"done":       outcome.Done,
	}
	if outcome.Accepted {
		resp["is_correct"] = outcome.IsCorrect
		resp["correct"] = outcome.Correct
	}
	if outcome.Done {
		resp["results"] = session.QuizResults
		resp["passed"] = session.SessionPassed
	}
	RespondOK(c, resp)
}

// POST /api/finish
func (h *TutorHandler) Finish(c *gin.Context) {
	var req finishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	session, ok := h.existingSession(c, req.SessionID)
	if !ok {
		return
	}
	res, err := h.svc.Finish(c.Request.Context(), session)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"session_id":  session.ID,
		"report":      res.Report,
		"report_path": res.ReportPath,
	})
}
