package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/quizdeck/quiz-host/internal/quiz"
)

// State of the live session.
type State string

const (
	StateIdle           State = "idle"
	StateLoadingLevel   State = "loading_level"
	StateAwaitingAnswer State = "awaiting_answer"
	StateAnswerRevealed State = "answer_revealed"
	StateComplete       State = "complete"
)

// ErrSessionActive is returned when a start is attempted over a running session.
var ErrSessionActive = errors.New("session already active")

// Store persists the final quiz snapshot when the session ends.
type Store interface {
	Update(ctx context.Context, q *quiz.Quiz) error
}

// Distributor produces the team-assigned question set for one level.
type Distributor interface {
	Distribute(ctx context.Context, level quiz.Level, categoryIDs []int, perTeam int, teams []quiz.Team) []quiz.Question
}

// Machine owns all live-session state. Every mutation happens under mu, so a
// timer tick and a user submission racing out of AwaitingAnswer serialize:
// whichever takes the lock first wins and the loser's guard makes it a no-op.
type Machine struct {
	distributor Distributor
	store       Store
	sink        Sink
	logger      zerolog.Logger
	tickEvery   time.Duration
	loadTimeout time.Duration
	defaultSecs int

	mu          sync.Mutex
	state       State
	quiz        *quiz.Quiz
	level       quiz.Level
	teamIdx     int
	questionIdx int
	selected    *int
	revealed    bool
	timeLeft    int
	timerGen    uint64
	timerStop   chan struct{}
	epoch       uint64
}

// Options tunes machine behavior.
type Options struct {
	// TickInterval defaults to one second; tests shorten it.
	TickInterval time.Duration
	// LevelLoadTimeout bounds each level's distribution fetch. Defaults to
	// ten seconds.
	LevelLoadTimeout time.Duration
	// DefaultTimeoutSeconds is the countdown used when a quiz configures no
	// timeout for a played level. Defaults to twenty seconds.
	DefaultTimeoutSeconds int
}

// NewMachine builds an idle session machine. sink may be nil.
func NewMachine(distributor Distributor, store Store, sink Sink, opts Options, logger zerolog.Logger) *Machine {
	tick := opts.TickInterval
	if tick <= 0 {
		tick = time.Second
	}
	loadTimeout := opts.LevelLoadTimeout
	if loadTimeout <= 0 {
		loadTimeout = 10 * time.Second
	}
	defaultSecs := opts.DefaultTimeoutSeconds
	if defaultSecs <= 0 {
		defaultSecs = 20
	}
	return &Machine{
		distributor: distributor,
		store:       store,
		sink:        sink,
		logger:      logger,
		tickEvery:   tick,
		loadTimeout: loadTimeout,
		defaultSecs: defaultSecs,
		state:       StateIdle,
	}
}

// Start activates the quiz and loads the first level. It blocks until the
// level's questions are distributed and the countdown is running.
func (m *Machine) Start(ctx context.Context, q *quiz.Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateIdle {
		return ErrSessionActive
	}
	if len(q.Teams) == 0 {
		return fmt.Errorf("quiz %s has no teams", q.ID)
	}

	m.quiz = q
	m.level = quiz.LevelEasy
	m.teamIdx = 0
	m.questionIdx = 0
	m.selected = nil
	m.revealed = false

	m.logger.Info().
		Str("quiz_id", q.ID.String()).
		Int("teams", len(q.Teams)).
		Msg("session started")

	m.loadLevelLocked(ctx, quiz.LevelEasy)
	return nil
}

// loadLevelLocked distributes questions for the given level and resumes play,
// skipping levels configured with a zero question count. Called and returns
// with mu held; the lock is released around the network-bound distribution.
func (m *Machine) loadLevelLocked(ctx context.Context, level quiz.Level) {
	for {
		perTeam := m.quiz.QuestionsPerLevel.Get(level)
		if perTeam == 0 {
			next, ok := level.Next()
			if !ok {
				m.completeLocked()
				return
			}
			level = next
			continue
		}

		m.state = StateLoadingLevel
		m.level = level
		epoch := m.epoch
		q := m.quiz
		m.publishLocked(EventState)

		m.mu.Unlock()
		fetchCtx, cancel := context.WithTimeout(ctx, m.loadTimeout)
		questions := m.distributor.Distribute(fetchCtx, level, q.CategoryIDs, perTeam, q.Teams)
		cancel()
		m.mu.Lock()

		// The session may have ended while the fetch was in flight.
		if m.epoch != epoch || m.state != StateLoadingLevel {
			return
		}

		m.quiz.ReplaceLevelQuestions(level, questions)
		m.teamIdx = 0
		m.questionIdx = 0
		m.selected = nil
		m.revealed = false
		m.state = StateAwaitingAnswer
		m.startCountdownLocked()
		m.publishLocked(EventState)
		return
	}
}

// SubmitAnswer records the current team's selection. Anything out of turn
// (wrong state, wrong question, a second answer, an option out of range) is a
// silent no-op: these are timing races, not domain errors.
func (m *Machine) SubmitAnswer(questionID string, optionIndex int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateAwaitingAnswer || m.selected != nil {
		return
	}

	current := m.currentQuestionLocked()
	if current == nil || current.ID != questionID {
		return
	}
	if optionIndex < 0 || optionIndex >= len(current.Options) {
		return
	}

	team := &m.quiz.Teams[m.teamIdx]
	if team.HasAnswered(current.ID) {
		return
	}

	selected := optionIndex
	m.selected = &selected
	correct := recordAnswer(team, current, optionIndex)
	m.stopCountdownLocked()

	m.logger.Info().
		Str("team", team.Name).
		Str("question_id", current.ID).
		Bool("correct", correct).
		Msg("answer recorded")

	if !m.quiz.ShowAnswersAtEnd {
		m.revealed = true
		m.state = StateAnswerRevealed
	}
	m.publishLocked(EventState)
}

// Advance is the single forward transition: reveal the current answer, move
// to the next team, the next question, the next level, or complete the quiz.
func (m *Machine) Advance(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateAwaitingAnswer:
		if !m.quiz.ShowAnswersAtEnd && !m.revealed {
			// Immediate-reveal mode: first advance shows the answer and
			// stays on the question.
			m.stopCountdownLocked()
			m.revealed = true
			m.state = StateAnswerRevealed
			m.publishLocked(EventState)
			return
		}
		if m.selected == nil {
			// Deferred mode gates advancing on a recorded selection.
			return
		}
	case StateAnswerRevealed:
	default:
		return
	}

	m.advanceCursorLocked(ctx)
}

func (m *Machine) advanceCursorLocked(ctx context.Context) {
	perTeam := m.quiz.QuestionsPerLevel.Get(m.level)
	lastTeam := m.teamIdx >= len(m.quiz.Teams)-1
	lastQuestion := m.questionIdx >= perTeam-1

	switch {
	case !lastTeam:
		m.teamIdx++
		m.resumeQuestionLocked()
	case !lastQuestion:
		m.teamIdx = 0
		m.questionIdx++
		m.resumeQuestionLocked()
	default:
		next, ok := m.level.Next()
		if !ok {
			m.completeLocked()
			return
		}
		m.loadLevelLocked(ctx, next)
	}
}

func (m *Machine) resumeQuestionLocked() {
	m.selected = nil
	m.revealed = false
	m.state = StateAwaitingAnswer
	m.startCountdownLocked()
	m.publishLocked(EventState)
}

func (m *Machine) completeLocked() {
	m.stopCountdownLocked()
	m.selected = nil
	m.revealed = false
	m.state = StateComplete
	m.logger.Info().Str("quiz_id", m.quiz.ID.String()).Msg("session complete")
	m.publishLocked(EventComplete)
}

// End persists the final quiz snapshot and returns the machine to idle. On a
// persistence failure the session state is kept so the caller can retry.
func (m *Machine) End(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateIdle {
		m.mu.Unlock()
		return nil
	}
	m.stopCountdownLocked()
	// Persist a deep copy: timer ticks and late submissions may still mutate
	// the live quiz while the store marshals.
	snapshot := m.quiz.Clone()
	m.mu.Unlock()

	if err := m.store.Update(ctx, snapshot); err != nil {
		return fmt.Errorf("persist quiz: %w", err)
	}

	m.mu.Lock()
	m.epoch++
	m.quiz = nil
	m.level = quiz.LevelEasy
	m.teamIdx = 0
	m.questionIdx = 0
	m.selected = nil
	m.revealed = false
	m.timeLeft = 0
	m.state = StateIdle
	m.publishLocked(EventState)
	m.mu.Unlock()

	m.logger.Info().Str("quiz_id", snapshot.ID.String()).Msg("session ended")
	return nil
}

// currentQuestionLocked returns a copy of the in-flight question, or nil when
// the cursor points past the loaded set.
func (m *Machine) currentQuestionLocked() *quiz.Question {
	if m.quiz == nil || m.teamIdx >= len(m.quiz.Teams) {
		return nil
	}
	team := m.quiz.Teams[m.teamIdx]
	questions := m.quiz.QuestionsFor(m.level, team.ID)
	if m.questionIdx >= len(questions) {
		return nil
	}
	q := questions[m.questionIdx]
	return &q
}

// Snapshot returns a copy of the observable session state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Results computes the final summary for the active quiz.
func (m *Machine) Results() (*Summary, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quiz == nil {
		return nil, false
	}
	return Summarize(m.quiz), true
}
