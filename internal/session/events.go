package session

import "github.com/quizdeck/quiz-host/internal/quiz"

// EventType identifies a session feed event.
type EventType string

const (
	EventState    EventType = "state"
	EventTick     EventType = "tick"
	EventComplete EventType = "complete"
)

// Snapshot is the observable session state pushed to the shared screen.
type Snapshot struct {
	State           State          `json:"state"`
	Level           quiz.Level     `json:"level,omitempty"`
	TeamIndex       int            `json:"team_index"`
	QuestionIndex   int            `json:"question_index"`
	TimeLeft        int            `json:"time_left"`
	SelectedOption  *int           `json:"selected_option,omitempty"`
	AnswersRevealed bool           `json:"answers_revealed"`
	CurrentTeam     *quiz.Team     `json:"current_team,omitempty"`
	CurrentQuestion *quiz.Question `json:"current_question,omitempty"`
	Teams           []quiz.Team    `json:"teams,omitempty"`
}

// Event is one message on the session feed.
type Event struct {
	Type     EventType `json:"type"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Summary  *Summary  `json:"summary,omitempty"`
}

// Sink receives session events. Implementations must not block: events are
// published while the machine lock is held.
type Sink interface {
	Publish(event Event)
}

func (m *Machine) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:           m.state,
		TeamIndex:       m.teamIdx,
		QuestionIndex:   m.questionIdx,
		TimeLeft:        m.timeLeft,
		AnswersRevealed: m.revealed,
	}
	if m.selected != nil {
		selected := *m.selected
		snap.SelectedOption = &selected
	}
	if m.quiz == nil {
		return snap
	}

	snap.Level = m.level
	snap.Teams = append([]quiz.Team(nil), m.quiz.Teams...)
	if m.teamIdx < len(m.quiz.Teams) {
		team := m.quiz.Teams[m.teamIdx]
		snap.CurrentTeam = &team
	}
	snap.CurrentQuestion = m.currentQuestionLocked()
	return snap
}

func (m *Machine) publishLocked(eventType EventType) {
	if m.sink == nil {
		return
	}
	event := Event{Type: eventType}
	switch eventType {
	case EventComplete:
		event.Summary = Summarize(m.quiz)
		snap := m.snapshotLocked()
		event.Snapshot = &snap
	default:
		snap := m.snapshotLocked()
		event.Snapshot = &snap
	}
	m.sink.Publish(event)
}
