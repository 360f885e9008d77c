package domain

import (
	"strings"
	"time"
)

// QuestionKind distinguishes how an answer is graded.
type QuestionKind string

const (
	// KindMultipleChoice answers must equal the single accepted option exactly.
	KindMultipleChoice QuestionKind = "mcq"
	// KindFreeText answers are normalized before comparison against every accepted variant.
	KindFreeText QuestionKind = "text"
)

// Question is the full scoring view of a question, accepted answers included.
type Question struct {
	ID              int          `json:"id"`
	Round           int          `json:"roundNumber"`
	Prompt          string       `json:"question"`
	Kind            QuestionKind `json:"type"`
	Options         []string     `json:"options"`
	Marks           int          `json:"marks"`
	AcceptedAnswers []string     `json:"acceptedAnswers"`
}

// PublicQuestion is the only question shape ever sent to a competing team.
type PublicQuestion struct {
	ID      int          `json:"id"`
	Prompt  string       `json:"question"`
	Kind    QuestionKind `json:"type"`
	Options []string     `json:"options"`
	Marks   int          `json:"marks"`
}

// Catalog is the immutable question bank plus per-round timers (minutes).
type Catalog struct {
	Questions []Question  `json:"questions"`
	Timers    map[int]int `json:"timers"`
}

// Team is a registered participant. Key is the case/whitespace-folded lookup key.
type Team struct {
	Key          string    `json:"-"`
	Name         string    `json:"teamName"`
	RegisteredAt time.Time `json:"registeredAt"`
	IPAddress    string    `json:"ipAddress,omitempty"`
}

// Submission is the one-time record of a team's answers for a round.
type Submission struct {
	TeamKey          string         `json:"-"`
	TeamName         string         `json:"teamName"`
	Round            int            `json:"roundNumber"`
	Answers          map[int]string `json:"answers"`
	Score            int            `json:"score"`
	SubmittedAt      time.Time      `json:"submittedAt"`
	TimeTakenSeconds int            `json:"timeTaken"`
	IPAddress        string         `json:"ipAddress,omitempty"`
}

// TeamKey folds a display name into the unique lookup key.
func TeamKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
