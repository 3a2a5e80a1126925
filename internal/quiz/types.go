package quiz

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a quiz doesn't exist or the caller does not
// own it.
var ErrNotFound = errors.New("quiz not found")

// Level is one of the three fixed difficulty tiers, played in ascending order.
type Level string

const (
	LevelEasy   Level = "easy"
	LevelMedium Level = "medium"
	LevelHard   Level = "hard"
)

// levelOrder is the single source of truth for level progression.
var levelOrder = [...]Level{LevelEasy, LevelMedium, LevelHard}

// Levels returns all levels in play order.
func Levels() []Level {
	return levelOrder[:]
}

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	for _, lvl := range levelOrder {
		if l == lvl {
			return true
		}
	}
	return false
}

// Next returns the level after l, or false when l is the last level.
func (l Level) Next() (Level, bool) {
	for i, lvl := range levelOrder {
		if l == lvl && i+1 < len(levelOrder) {
			return levelOrder[i+1], true
		}
	}
	return "", false
}

// PerLevel maps a value to each difficulty tier.
type PerLevel struct {
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
}

// Get returns the value configured for the given level.
func (p PerLevel) Get(level Level) int {
	switch level {
	case LevelEasy:
		return p.Easy
	case LevelMedium:
		return p.Medium
	default:
		return p.Hard
	}
}

// Total sums the per-level values.
func (p PerLevel) Total() int {
	return p.Easy + p.Medium + p.Hard
}

// Question is one trivia item, scoped to a level and owned by exactly one team.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Level         Level    `json:"level"`
	TeamID        string   `json:"team_id"`
}

// AnsweredQuestion is one team's response to one question. SelectedOption is
// nil when the question timed out without a selection.
type AnsweredQuestion struct {
	QuestionID     string `json:"question_id"`
	Correct        bool   `json:"correct"`
	SelectedOption *int   `json:"selected_option,omitempty"`
}

// Team is a named competing unit within one quiz.
type Team struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Score             int                `json:"score"`
	AnsweredQuestions []AnsweredQuestion `json:"answered_questions"`
}

// HasAnswered reports whether the team already has a record for the question.
func (t *Team) HasAnswered(questionID string) bool {
	for _, a := range t.AnsweredQuestions {
		if a.QuestionID == questionID {
			return true
		}
	}
	return false
}

// Quiz is a created quiz definition plus its live/completed session data.
type Quiz struct {
	ID                uuid.UUID  `json:"id"`
	OwnerID           uuid.UUID  `json:"owner_id"`
	Title             string     `json:"title"`
	Topics            []string   `json:"topics"`
	CategoryIDs       []int      `json:"category_ids"`
	Teams             []Team     `json:"teams"`
	Questions         []Question `json:"questions"`
	QuestionsPerLevel PerLevel   `json:"questions_per_level"`
	TimeoutsInSeconds PerLevel   `json:"timeouts_in_seconds"`
	ShowAnswersAtEnd  bool       `json:"show_answers_at_end"`
	CreatedAt         time.Time  `json:"created_at"`
}

// TeamByID returns a pointer into the quiz's team list, or nil.
func (q *Quiz) TeamByID(teamID string) *Team {
	for i := range q.Teams {
		if q.Teams[i].ID == teamID {
			return &q.Teams[i]
		}
	}
	return nil
}

// QuestionByID returns the question with the given id, or nil.
func (q *Quiz) QuestionByID(questionID string) *Question {
	for i := range q.Questions {
		if q.Questions[i].ID == questionID {
			return &q.Questions[i]
		}
	}
	return nil
}

// QuestionsFor returns the questions owned by one team at one level, in order.
func (q *Quiz) QuestionsFor(level Level, teamID string) []Question {
	var out []Question
	for _, question := range q.Questions {
		if question.Level == level && question.TeamID == teamID {
			out = append(out, question)
		}
	}
	return out
}

// Clone returns a deep copy. Readers holding a clone are isolated from any
// further mutation of the original's teams, questions and answer histories.
func (q *Quiz) Clone() *Quiz {
	if q == nil {
		return nil
	}
	out := *q
	out.Topics = append([]string(nil), q.Topics...)
	out.CategoryIDs = append([]int(nil), q.CategoryIDs...)

	out.Questions = append([]Question(nil), q.Questions...)
	for i := range out.Questions {
		out.Questions[i].Options = append([]string(nil), out.Questions[i].Options...)
	}

	out.Teams = make([]Team, len(q.Teams))
	for i, team := range q.Teams {
		team.AnsweredQuestions = append([]AnsweredQuestion(nil), team.AnsweredQuestions...)
		for j := range team.AnsweredQuestions {
			if sel := team.AnsweredQuestions[j].SelectedOption; sel != nil {
				v := *sel
				team.AnsweredQuestions[j].SelectedOption = &v
			}
		}
		out.Teams[i] = team
	}
	return &out
}

// ReplaceLevelQuestions swaps out every question tagged with the given level.
// Loading a level twice replaces its subset rather than appending to it.
func (q *Quiz) ReplaceLevelQuestions(level Level, questions []Question) {
	kept := q.Questions[:0]
	for _, question := range q.Questions {
		if question.Level != level {
			kept = append(kept, question)
		}
	}
	q.Questions = append(kept, questions...)
}
