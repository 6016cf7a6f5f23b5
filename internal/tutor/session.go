package tutor

import (
	"sync"

	"github.com/google/uuid"

	"github.com/mouaalim/mouaalim-backend/internal/domain"
)

// Session carries everything accumulated over one child's tutoring run:
// the resolved lesson, the generated summary, the question/answer trail,
// and the quiz in flight. Each session is owned by exactly one caller and
// is looked up by its ID; nothing here is shared across sessions.
type Session struct {
	ID     uuid.UUID
	Branch string
	Topic  string
	Lesson string

	ChapterSummary string
	Slides         []domain.Slide
	QAHistory      []domain.QAExchange

	PendingQuiz   *Grader
	QuizLog       []domain.QuizRecord
	QuizResults   domain.QuizResults
	QuizRating    float64
	SessionPassed bool
	FeedbackNote  string
}

// HasSummary reports whether a chapter summary was produced this session.
func (s *Session) HasSummary() bool {
	return s.ChapterSummary != "" || len(s.Slides) > 0
}

// HasQuizOutcome reports whether a quiz ran to completion this session.
func (s *Session) HasQuizOutcome() bool {
	return s.QuizResults.Correct+s.QuizResults.Incorrect > 0
}

// RecordQA appends one question/answer exchange.
func (s *Session) RecordQA(question, answer string) {
	s.QAHistory = append(s.QAHistory, domain.QAExchange{Question: question, Answer: answer})
}

// SessionStore holds live sessions keyed by ID. It is safe for concurrent
// use by the HTTP handlers.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[uuid.UUID]*Session)}
}

// Create registers a fresh session and returns it.
func (st *SessionStore) Create() *Session {
	s := &Session{ID: uuid.New()}
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// Get returns the session with the given ID, or false if it does not exist
// or was already finished.
func (st *SessionStore) Get(id uuid.UUID) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	return s, ok
}

// GetOrCreate returns the session with the given ID, creating it first when
// absent. The CLI uses this with a fixed ID for its single run.
func (st *SessionStore) GetOrCreate(id uuid.UUID) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[id]; ok {
		return s
	}
	s := &Session{ID: id}
	st.sessions[id] = s
	return s
}

// Delete drops a finished session.
func (st *SessionStore) Delete(id uuid.UUID) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// Len reports the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
