package domain

// Curriculum graph rows. The knowledge graph is the source of truth:
// (b:Branch)-[:HAS_TOPIC]->(t:Topic)-[:HAS_LESSON]->(l:Lesson)-[:HAS_IMAGE]->(img:Image)

type Lesson struct {
	Title     string `json:"title"`
	StartPage int    `json:"start_page"`
	EndPage   int    `json:"end_page"`
}

type ImageRef struct {
	Name    string `json:"name"`
	Caption string `json:"caption"`
	Page    int    `json:"page"`
}

// LessonEmbedding is one (topic, lesson, vector) triple. Vectors are stored
// on indexed lessons only and share one dimensionality across the set.
type LessonEmbedding struct {
	Topic  string
	Lesson string
	Vector []float64
}

const (
	QuestionTypeMC = "mc"
	QuestionTypeTF = "tf"
)

type QuizQuestion struct {
	Type    string   `json:"type"`
	Q       string   `json:"q"`
	Options []string `json:"options,omitempty"`
	A       string   `json:"a"`
}

type Quiz struct {
	Questions []QuizQuestion `json:"questions"`
}

// QuizRecord is the graded trace of one answered question.
type QuizRecord struct {
	Q         string   `json:"q"`
	Type      string   `json:"type"`
	Options   []string `json:"options,omitempty"`
	Child     string   `json:"child"`
	Correct   string   `json:"correct"`
	IsCorrect bool     `json:"is_correct"`
}

type QuizResults struct {
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
}

type QAExchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Slide struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

type SlideDeck struct {
	Title  string  `json:"title"`
	Slides []Slide `json:"slides"`
}

// SessionReport is the structured summary the feedback generation returns
// when a session closes.
type SessionReport struct {
	Branch        string   `json:"branch"`
	Topic         string   `json:"topic"`
	Lesson        string   `json:"lesson"`
	Summary       string   `json:"summary"`
	Steps         []string `json:"steps"`
	QuizRating    float64  `json:"quiz_rating"`
	SessionPassed bool     `json:"session_passed"`
	Feedback      string   `json:"feedback"`
	Encouragement string   `json:"encouragement"`
}
