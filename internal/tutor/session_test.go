package tutor

import (
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestSessionStoreIsolatesSessions(t *testing.T) {
	st := NewSessionStore()

	a := st.Create()
	b := st.Create()
	if a.ID == b.ID {
		t.Fatalf("sessions must get distinct IDs")
	}

	a.ChapterSummary = "ملخص أ"
	b.RecordQA("سؤال", "جواب")

	gotA, ok := st.Get(a.ID)
	if !ok || gotA.ChapterSummary != "ملخص أ" || len(gotA.QAHistory) != 0 {
		t.Fatalf("session a leaked state: %+v", gotA)
	}
	gotB, ok := st.Get(b.ID)
	if !ok || gotB.ChapterSummary != "" || len(gotB.QAHistory) != 1 {
		t.Fatalf("session b leaked state: %+v", gotB)
	}
}

func TestSessionStoreDelete(t *testing.T) {
	st := NewSessionStore()
	s := st.Create()
	st.Delete(s.ID)
	if _, ok := st.Get(s.ID); ok {
		t.Fatalf("deleted session still resolvable")
	}
	if st.Len() != 0 {
		t.Fatalf("store not empty after delete")
	}
}

func TestSessionStoreGetOrCreate(t *testing.T) {
	st := NewSessionStore()
	id := uuid.New()
	first := st.GetOrCreate(id)
	second := st.GetOrCreate(id)
	if first != second {
		t.Fatalf("GetOrCreate must return the same session for the same ID")
	}
}

func TestSessionStoreConcurrentCreate(t *testing.T) {
	st := NewSessionStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.Create()
		}()
	}
	wg.Wait()
	if st.Len() != 50 {
		t.Fatalf("want 50 sessions, got %d", st.Len())
	}
}

func TestSessionFlags(t *testing.T) {
	var s Session
	if s.HasSummary() || s.HasQuizOutcome() {
		t.Fatalf("fresh session reports prior activity")
	}
	s.ChapterSummary = "نص"
	if !s.HasSummary() {
		t.Fatalf("summary flag")
	}
	s.QuizResults.Correct = 1
	if !s.HasQuizOutcome() {
		t.Fatalf("quiz flag")
	}
}
