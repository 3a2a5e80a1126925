package session

import "github.com/quizdeck/quiz-host/internal/quiz"

// The scoring ledger only ever touches the acting team. The machine guards
// against double submission; these assume one invocation per (team, question).

// recordAnswer appends the team's response and bumps the score on a correct
// selection. Returns whether the selection was correct.
func recordAnswer(team *quiz.Team, question *quiz.Question, selectedOption int) bool {
	correct := selectedOption == question.CorrectAnswer
	selected := selectedOption
	team.AnsweredQuestions = append(team.AnsweredQuestions, quiz.AnsweredQuestion{
		QuestionID:     question.ID,
		Correct:        correct,
		SelectedOption: &selected,
	})
	if correct {
		team.Score++
	}
	return correct
}

// recordTimeout appends an unanswered record. No score change.
func recordTimeout(team *quiz.Team, question *quiz.Question) {
	team.AnsweredQuestions = append(team.AnsweredQuestions, quiz.AnsweredQuestion{
		QuestionID: question.ID,
		Correct:    false,
	})
}
