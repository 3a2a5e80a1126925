package session

import (
	"sort"

	"github.com/quizdeck/quiz-host/internal/quiz"
)

// Ranking places one team in the final standings. Teams with equal scores
// share a position and keep their original roster order.
type Ranking struct {
	Position int       `json:"position"`
	Team     quiz.Team `json:"team"`
	Correct  int       `json:"correct"`
	Accuracy float64   `json:"accuracy"`
}

// Summary is the results-view payload, computed on demand and never stored.
type Summary struct {
	QuizID           string     `json:"quiz_id"`
	Title            string     `json:"title"`
	Rankings         []Ranking  `json:"rankings"`
	Winner           *quiz.Team `json:"winner,omitempty"`
	TeamCount        int        `json:"team_count"`
	QuestionsPerTeam int        `json:"questions_per_team"`
	CategoryCount    int        `json:"category_count"`
	ShowAnswersAtEnd bool       `json:"show_answers_at_end"`
}

// Summarize builds the final rankings and statistics for a quiz.
func Summarize(q *quiz.Quiz) *Summary {
	rankings := Rankings(q.Teams, q.QuestionsPerLevel.Total())

	summary := &Summary{
		QuizID:           q.ID.String(),
		Title:            q.Title,
		Rankings:         rankings,
		TeamCount:        len(q.Teams),
		QuestionsPerTeam: q.QuestionsPerLevel.Total(),
		CategoryCount:    len(q.CategoryIDs),
		ShowAnswersAtEnd: q.ShowAnswersAtEnd,
	}
	if len(rankings) > 0 {
		winner := rankings[0].Team
		summary.Winner = &winner
	}
	return summary
}

// Rankings orders teams by score descending; roster order is the stable
// secondary key and ties share a position.
func Rankings(teams []quiz.Team, questionsPerTeam int) []Ranking {
	sorted := make([]quiz.Team, len(teams))
	copy(sorted, teams)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	rankings := make([]Ranking, 0, len(sorted))
	position := 0
	lastScore := -1
	for i, team := range sorted {
		if team.Score != lastScore {
			position = i + 1
			lastScore = team.Score
		}
		correct := 0
		for _, a := range team.AnsweredQuestions {
			if a.Correct {
				correct++
			}
		}
		accuracy := 0.0
		if questionsPerTeam > 0 {
			accuracy = float64(correct) / float64(questionsPerTeam)
		}
		rankings = append(rankings, Ranking{
			Position: position,
			Team:     team,
			Correct:  correct,
			Accuracy: accuracy,
		})
	}
	return rankings
}
