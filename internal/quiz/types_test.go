package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelProgression(t *testing.T) {
	next, ok := LevelEasy.Next()
	assert.True(t, ok)
	assert.Equal(t, LevelMedium, next)

	next, ok = LevelMedium.Next()
	assert.True(t, ok)
	assert.Equal(t, LevelHard, next)

	_, ok = LevelHard.Next()
	assert.False(t, ok)

	assert.Equal(t, []Level{LevelEasy, LevelMedium, LevelHard}, Levels())
	assert.False(t, Level("expert").Valid())
}

func TestPerLevelGetAndTotal(t *testing.T) {
	p := PerLevel{Easy: 2, Medium: 3, Hard: 5}
	assert.Equal(t, 2, p.Get(LevelEasy))
	assert.Equal(t, 3, p.Get(LevelMedium))
	assert.Equal(t, 5, p.Get(LevelHard))
	assert.Equal(t, 10, p.Total())
}

func TestReplaceLevelQuestionsIsIdempotent(t *testing.T) {
	q := &Quiz{Questions: []Question{
		{ID: "e1", Level: LevelEasy},
		{ID: "m1", Level: LevelMedium},
		{ID: "m2", Level: LevelMedium},
	}}

	q.ReplaceLevelQuestions(LevelMedium, []Question{{ID: "m3", Level: LevelMedium}})
	assert.Len(t, q.Questions, 2)
	assert.Nil(t, q.QuestionByID("m1"))
	assert.NotNil(t, q.QuestionByID("m3"))
	assert.NotNil(t, q.QuestionByID("e1"))

	// A second replacement for the same level swaps, never appends.
	q.ReplaceLevelQuestions(LevelMedium, []Question{{ID: "m4", Level: LevelMedium}})
	assert.Len(t, q.Questions, 2)
	assert.Nil(t, q.QuestionByID("m3"))
}

func TestCloneIsolatesTeamsAndQuestions(t *testing.T) {
	selected := 1
	original := &Quiz{
		Topics:      []string{"history"},
		CategoryIDs: []int{9},
		Teams: []Team{{ID: "t1", Name: "Alpha", Score: 1, AnsweredQuestions: []AnsweredQuestion{
			{QuestionID: "q1", Correct: true, SelectedOption: &selected},
		}}},
		Questions: []Question{{ID: "q1", Options: []string{"a", "b"}, Level: LevelEasy, TeamID: "t1"}},
	}

	clone := original.Clone()
	assert.Equal(t, original, clone)

	original.Teams[0].Score = 9
	original.Teams[0].AnsweredQuestions = append(original.Teams[0].AnsweredQuestions,
		AnsweredQuestion{QuestionID: "q2"})
	*original.Teams[0].AnsweredQuestions[0].SelectedOption = 3
	original.Questions[0].Options[0] = "mutated"
	original.ReplaceLevelQuestions(LevelEasy, nil)

	assert.Equal(t, 1, clone.Teams[0].Score)
	assert.Len(t, clone.Teams[0].AnsweredQuestions, 1)
	assert.Equal(t, 1, *clone.Teams[0].AnsweredQuestions[0].SelectedOption)
	assert.Equal(t, "a", clone.Questions[0].Options[0])
	assert.Len(t, clone.Questions, 1)
}

func TestCloneNil(t *testing.T) {
	var q *Quiz
	assert.Nil(t, q.Clone())
}

func TestQuestionsForFiltersByLevelAndTeam(t *testing.T) {
	q := &Quiz{Questions: []Question{
		{ID: "a", Level: LevelEasy, TeamID: "t1"},
		{ID: "b", Level: LevelEasy, TeamID: "t2"},
		{ID: "c", Level: LevelHard, TeamID: "t1"},
		{ID: "d", Level: LevelEasy, TeamID: "t1"},
	}}

	got := q.QuestionsFor(LevelEasy, "t1")
	assert.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "d", got[1].ID)
}

func TestTeamHasAnswered(t *testing.T) {
	team := &Team{AnsweredQuestions: []AnsweredQuestion{{QuestionID: "q1", Correct: true}}}
	assert.True(t, team.HasAnswered("q1"))
	assert.False(t, team.HasAnswered("q2"))
}
