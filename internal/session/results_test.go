package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/quizdeck/quiz-host/internal/quiz"
)

func answered(correct int, wrong int) []quiz.AnsweredQuestion {
	var out []quiz.AnsweredQuestion
	for i := 0; i < correct; i++ {
		out = append(out, quiz.AnsweredQuestion{QuestionID: uuid.NewString(), Correct: true})
	}
	for i := 0; i < wrong; i++ {
		out = append(out, quiz.AnsweredQuestion{QuestionID: uuid.NewString(), Correct: false})
	}
	return out
}

func TestRankingsOrderAndAccuracy(t *testing.T) {
	teams := []quiz.Team{
		{ID: "t1", Name: "Alpha", Score: 1, AnsweredQuestions: answered(1, 3)},
		{ID: "t2", Name: "Bravo", Score: 3, AnsweredQuestions: answered(3, 1)},
		{ID: "t3", Name: "Charlie", Score: 2, AnsweredQuestions: answered(2, 2)},
	}

	rankings := Rankings(teams, 4)

	assert.Equal(t, "Bravo", rankings[0].Team.Name)
	assert.Equal(t, 1, rankings[0].Position)
	assert.Equal(t, "Charlie", rankings[1].Team.Name)
	assert.Equal(t, 2, rankings[1].Position)
	assert.Equal(t, "Alpha", rankings[2].Team.Name)
	assert.Equal(t, 3, rankings[2].Position)

	assert.InDelta(t, 0.75, rankings[0].Accuracy, 1e-9)
	assert.InDelta(t, 0.25, rankings[2].Accuracy, 1e-9)
}

func TestRankingsTiedTeamsSharePosition(t *testing.T) {
	teams := []quiz.Team{
		{ID: "t1", Name: "Alpha", Score: 2},
		{ID: "t2", Name: "Bravo", Score: 5},
		{ID: "t3", Name: "Charlie", Score: 5},
		{ID: "t4", Name: "Delta", Score: 1},
	}

	rankings := Rankings(teams, 5)

	assert.Equal(t, 1, rankings[0].Position)
	assert.Equal(t, 1, rankings[1].Position)
	// Tied teams keep roster order.
	assert.Equal(t, "Bravo", rankings[0].Team.Name)
	assert.Equal(t, "Charlie", rankings[1].Team.Name)
	assert.Equal(t, 3, rankings[2].Position)
	assert.Equal(t, 4, rankings[3].Position)
}

func TestRankingsZeroQuestionsPerTeam(t *testing.T) {
	rankings := Rankings([]quiz.Team{{ID: "t1", Name: "Alpha"}}, 0)
	assert.Equal(t, 0.0, rankings[0].Accuracy)
}

func TestSummarizePicksWinner(t *testing.T) {
	q := &quiz.Quiz{
		ID:    uuid.New(),
		Title: "Friday Trivia",
		Teams: []quiz.Team{
			{ID: "t1", Name: "Alpha", Score: 1},
			{ID: "t2", Name: "Bravo", Score: 4},
		},
		CategoryIDs:       []int{9, 18},
		QuestionsPerLevel: quiz.PerLevel{Easy: 2, Hard: 3},
	}

	summary := Summarize(q)

	assert.Equal(t, "Friday Trivia", summary.Title)
	assert.Equal(t, 2, summary.TeamCount)
	assert.Equal(t, 5, summary.QuestionsPerTeam)
	assert.Equal(t, 2, summary.CategoryCount)
	assert.NotNil(t, summary.Winner)
	assert.Equal(t, "Bravo", summary.Winner.Name)
}
