package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/quizdeck/quiz-host/internal/quiz"
)

type stubDistributor struct {
	mu        sync.Mutex
	calls     []quiz.Level
	deadlines []time.Time
	delay     time.Duration
}

func (d *stubDistributor) Distribute(ctx context.Context, level quiz.Level, _ []int, perTeam int, teams []quiz.Team) []quiz.Question {
	d.mu.Lock()
	d.calls = append(d.calls, level)
	if deadline, ok := ctx.Deadline(); ok {
		d.deadlines = append(d.deadlines, deadline)
	}
	d.mu.Unlock()
	if d.delay > 0 {
		time.Sleep(d.delay)
	}

	total := perTeam * len(teams)
	questions := make([]quiz.Question, 0, total)
	for i := 0; i < total; i++ {
		questions = append(questions, quiz.Question{
			ID:            fmt.Sprintf("%s-q%d", level, i),
			Text:          fmt.Sprintf("%s question %d", level, i),
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: 1,
			Level:         level,
			TeamID:        teams[i/perTeam].ID,
		})
	}
	return questions
}

func (d *stubDistributor) levels() []quiz.Level {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]quiz.Level(nil), d.calls...)
}

type stubStore struct {
	mu      sync.Mutex
	updates int
	err     error
}

func (s *stubStore) Update(_ context.Context, _ *quiz.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	return s.err
}

func (s *stubStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Publish(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) types() []EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

func testQuiz(teams int, perLevel quiz.PerLevel) *quiz.Quiz {
	q := &quiz.Quiz{
		ID:                uuid.New(),
		OwnerID:           uuid.New(),
		Title:             "Friday Trivia",
		QuestionsPerLevel: perLevel,
		TimeoutsInSeconds: quiz.PerLevel{Easy: 30, Medium: 30, Hard: 30},
	}
	for i := 0; i < teams; i++ {
		q.Teams = append(q.Teams, quiz.Team{ID: fmt.Sprintf("team-%d", i), Name: fmt.Sprintf("Team %d", i)})
	}
	return q
}

func newTestMachine(store Store) (*Machine, *stubDistributor) {
	dist := &stubDistributor{}
	if store == nil {
		store = &stubStore{}
	}
	m := NewMachine(dist, store, nil, Options{TickInterval: time.Hour}, zerolog.New(io.Discard))
	return m, dist
}

func TestStartLoadsFirstPlayableLevel(t *testing.T) {
	m, dist := newTestMachine(nil)
	q := testQuiz(2, quiz.PerLevel{Easy: 0, Medium: 2, Hard: 1})

	assert.NoError(t, m.Start(context.Background(), q))

	snap := m.Snapshot()
	assert.Equal(t, StateAwaitingAnswer, snap.State)
	assert.Equal(t, quiz.LevelMedium, snap.Level)
	assert.Equal(t, 30, snap.TimeLeft)
	assert.Equal(t, []quiz.Level{quiz.LevelMedium}, dist.levels())
	assert.NotNil(t, snap.CurrentQuestion)
	assert.Equal(t, "team-0", snap.CurrentQuestion.TeamID)
}

func TestLevelLoadFetchIsDeadlineBound(t *testing.T) {
	dist := &stubDistributor{}
	m := NewMachine(dist, &stubStore{}, nil, Options{
		TickInterval:     time.Hour,
		LevelLoadTimeout: 3 * time.Second,
	}, zerolog.New(io.Discard))

	before := time.Now()
	assert.NoError(t, m.Start(context.Background(), testQuiz(1, quiz.PerLevel{Easy: 1})))

	dist.mu.Lock()
	defer dist.mu.Unlock()
	assert.Len(t, dist.deadlines, 1, "fetch context must carry a deadline")
	assert.WithinDuration(t, before.Add(3*time.Second), dist.deadlines[0], time.Second)
}

func TestCountdownFallsBackToDefaultTimeout(t *testing.T) {
	m, _ := newTestMachine(nil)
	m.defaultSecs = 25
	q := testQuiz(1, quiz.PerLevel{Easy: 1})
	q.TimeoutsInSeconds = quiz.PerLevel{}

	assert.NoError(t, m.Start(context.Background(), q))
	assert.Equal(t, 25, m.Snapshot().TimeLeft)
}

func TestStartRejectsActiveSession(t *testing.T) {
	m, _ := newTestMachine(nil)
	assert.NoError(t, m.Start(context.Background(), testQuiz(1, quiz.PerLevel{Easy: 1})))
	assert.ErrorIs(t, m.Start(context.Background(), testQuiz(1, quiz.PerLevel{Easy: 1})), ErrSessionActive)
}

func TestStartRejectsQuizWithoutTeams(t *testing.T) {
	m, _ := newTestMachine(nil)
	assert.Error(t, m.Start(context.Background(), testQuiz(0, quiz.PerLevel{Easy: 1})))
	assert.Equal(t, StateIdle, m.Snapshot().State)
}

func TestAllZeroLevelsCompletesImmediately(t *testing.T) {
	m, dist := newTestMachine(nil)

	assert.NoError(t, m.Start(context.Background(), testQuiz(2, quiz.PerLevel{})))
	assert.Equal(t, StateComplete, m.Snapshot().State)
	assert.Empty(t, dist.levels())
}

func TestSubmitCorrectAnswerScoresAndReveals(t *testing.T) {
	m, _ := newTestMachine(nil)
	assert.NoError(t, m.Start(context.Background(), testQuiz(1, quiz.PerLevel{Easy: 1})))

	snap := m.Snapshot()
	m.SubmitAnswer(snap.CurrentQuestion.ID, 1)

	snap = m.Snapshot()
	assert.Equal(t, StateAnswerRevealed, snap.State)
	assert.True(t, snap.AnswersRevealed)
	assert.Equal(t, 1, snap.Teams[0].Score)
	assert.Len(t, snap.Teams[0].AnsweredQuestions, 1)
	assert.True(t, snap.Teams[0].AnsweredQuestions[0].Correct)
}

func TestSubmitIgnoresOutOfTurnInput(t *testing.T) {
	m, _ := newTestMachine(nil)
	assert.NoError(t, m.Start(context.Background(), testQuiz(1, quiz.PerLevel{Easy: 2})))

	current := m.Snapshot().CurrentQuestion

	m.SubmitAnswer("not-the-current-question", 1)
	assert.Equal(t, StateAwaitingAnswer, m.Snapshot().State)

	m.SubmitAnswer(current.ID, 9)
	assert.Equal(t, StateAwaitingAnswer, m.Snapshot().State)

	m.SubmitAnswer(current.ID, -1)
	assert.Equal(t, StateAwaitingAnswer, m.Snapshot().State)
}

func TestSubmitTwiceRecordsOnce(t *testing.T) {
	m, _ := newTestMachine(nil)
	assert.NoError(t, m.Start(context.Background(), testQuiz(1, quiz.PerLevel{Easy: 1})))

	current := m.Snapshot().CurrentQuestion
	m.SubmitAnswer(current.ID, 1)
	m.SubmitAnswer(current.ID, 1)

	snap := m.Snapshot()
	assert.Equal(t, 1, snap.Teams[0].Score)
	assert.Len(t, snap.Teams[0].AnsweredQuestions, 1)
}

func TestAdvanceRotatesTeamsBeforeQuestions(t *testing.T) {
	m, _ := newTestMachine(nil)
	assert.NoError(t, m.Start(context.Background(), testQuiz(2, quiz.PerLevel{Easy: 2})))

	// Team 0 answers, host advances: same question index, next team.
	m.SubmitAnswer(m.Snapshot().CurrentQuestion.ID, 0)
	m.Advance(context.Background())
	snap := m.Snapshot()
	assert.Equal(t, 1, snap.TeamIndex)
	assert.Equal(t, 0, snap.QuestionIndex)
	assert.Equal(t, StateAwaitingAnswer, snap.State)

	// Team 1 answers, host advances: back to team 0, next question.
	m.SubmitAnswer(snap.CurrentQuestion.ID, 0)
	m.Advance(context.Background())
	snap = m.Snapshot()
	assert.Equal(t, 0, snap.TeamIndex)
	assert.Equal(t, 1, snap.QuestionIndex)
}

func TestAdvanceCrossesLevelsAndCompletes(t *testing.T) {
	m, dist := newTestMachine(nil)
	assert.NoError(t, m.Start(context.Background(), testQuiz(1, quiz.PerLevel{Easy: 1, Hard: 1})))

	m.SubmitAnswer(m.Snapshot().CurrentQuestion.ID, 1)
	m.Advance(context.Background())

	snap := m.Snapshot()
	assert.Equal(t, quiz.LevelHard, snap.Level)
	assert.Equal(t, []quiz.Level{quiz.LevelEasy, quiz.LevelHard}, dist.levels())

	m.SubmitAnswer(snap.CurrentQuestion.ID, 1)
	m.Advance(context.Background())
	assert.Equal(t, StateComplete, m.Snapshot().State)

	// Advancing a complete session changes nothing.
	m.Advance(context.Background())
	assert.Equal(t, StateComplete, m.Snapshot().State)
}

func TestAdvanceWithoutSubmissionRevealsFirst(t *testing.T) {
	m, _ := newTestMachine(nil)
	assert.NoError(t, m.Start(context.Background(), testQuiz(1, quiz.PerLevel{Easy: 2})))

	// Immediate-reveal mode: first advance only uncovers the answer.
	m.Advance(context.Background())
	snap := m.Snapshot()
	assert.Equal(t, StateAnswerRevealed, snap.State)
	assert.Equal(t, 0, snap.QuestionIndex)

	// Second advance moves on.
	m.Advance(context.Background())
	snap = m.Snapshot()
	assert.Equal(t, StateAwaitingAnswer, snap.State)
	assert.Equal(t, 1, snap.QuestionIndex)

	// No record was written for the skipped question.
	assert.Empty(t, snap.Teams[0].AnsweredQuestions)
}

func TestDeferredModeGatesAdvanceOnSelection(t *testing.T) {
	m, _ := newTestMachine(nil)
	q := testQuiz(1, quiz.PerLevel{Easy: 2})
	q.ShowAnswersAtEnd = true
	assert.NoError(t, m.Start(context.Background(), q))

	// Without a selection the host cannot move on.
	m.Advance(context.Background())
	snap := m.Snapshot()
	assert.Equal(t, StateAwaitingAnswer, snap.State)
	assert.Equal(t, 0, snap.QuestionIndex)

	// A submission stays unrevealed but unlocks the advance.
	m.SubmitAnswer(snap.CurrentQuestion.ID, 2)
	snap = m.Snapshot()
	assert.Equal(t, StateAwaitingAnswer, snap.State)
	assert.False(t, snap.AnswersRevealed)

	m.Advance(context.Background())
	assert.Equal(t, 1, m.Snapshot().QuestionIndex)
}

func TestTimeoutRecordsUnansweredAndReveals(t *testing.T) {
	m, _ := newTestMachine(nil)
	q := testQuiz(1, quiz.PerLevel{Easy: 1})
	q.TimeoutsInSeconds = quiz.PerLevel{Easy: 1}
	assert.NoError(t, m.Start(context.Background(), q))

	gen := m.timerGen
	assert.False(t, m.tick(gen))

	snap := m.Snapshot()
	assert.Equal(t, StateAnswerRevealed, snap.State)
	assert.Equal(t, 0, snap.Teams[0].Score)
	assert.Len(t, snap.Teams[0].AnsweredQuestions, 1)
	assert.False(t, snap.Teams[0].AnsweredQuestions[0].Correct)
	assert.Nil(t, snap.Teams[0].AnsweredQuestions[0].SelectedOption)
}

func TestStaleTickAfterAnswerIsSuppressed(t *testing.T) {
	m, _ := newTestMachine(nil)
	q := testQuiz(1, quiz.PerLevel{Easy: 1})
	q.TimeoutsInSeconds = quiz.PerLevel{Easy: 1}
	assert.NoError(t, m.Start(context.Background(), q))

	// The tick was scheduled, then the answer took the lock first.
	gen := m.timerGen
	m.SubmitAnswer(m.Snapshot().CurrentQuestion.ID, 1)
	assert.False(t, m.tick(gen))

	// Exactly one record: the submission, not the timeout.
	snap := m.Snapshot()
	assert.Len(t, snap.Teams[0].AnsweredQuestions, 1)
	assert.NotNil(t, snap.Teams[0].AnsweredQuestions[0].SelectedOption)
	assert.Equal(t, 1, snap.Teams[0].Score)
}

func TestTickCountsDownAndPublishes(t *testing.T) {
	m, _ := newTestMachine(nil)
	sink := &recordingSink{}
	m.sink = sink
	q := testQuiz(1, quiz.PerLevel{Easy: 1})
	q.TimeoutsInSeconds = quiz.PerLevel{Easy: 3}
	assert.NoError(t, m.Start(context.Background(), q))

	gen := m.timerGen
	assert.True(t, m.tick(gen))
	assert.Equal(t, 2, m.Snapshot().TimeLeft)
	assert.True(t, m.tick(gen))
	assert.False(t, m.tick(gen))
	assert.Equal(t, StateAnswerRevealed, m.Snapshot().State)

	types := sink.types()
	assert.Contains(t, types, EventTick)
}

func TestEndPersistsAndResets(t *testing.T) {
	store := &stubStore{}
	m, _ := newTestMachine(store)
	assert.NoError(t, m.Start(context.Background(), testQuiz(1, quiz.PerLevel{Easy: 1})))

	assert.NoError(t, m.End(context.Background()))
	assert.Equal(t, 1, store.count())
	assert.Equal(t, StateIdle, m.Snapshot().State)

	// Ending an idle machine does not touch the store.
	assert.NoError(t, m.End(context.Background()))
	assert.Equal(t, 1, store.count())
}

func TestEndKeepsSessionOnPersistFailure(t *testing.T) {
	store := &stubStore{err: errors.New("connection refused")}
	m, _ := newTestMachine(store)
	assert.NoError(t, m.Start(context.Background(), testQuiz(1, quiz.PerLevel{Easy: 1})))

	assert.Error(t, m.End(context.Background()))
	assert.NotEqual(t, StateIdle, m.Snapshot().State)

	// Retry succeeds once the store recovers.
	store.mu.Lock()
	store.err = nil
	store.mu.Unlock()
	assert.NoError(t, m.End(context.Background()))
	assert.Equal(t, StateIdle, m.Snapshot().State)
	assert.Equal(t, 2, store.count())
}

// marshalingStore serializes the snapshot twice around a pause, the way the
// real repository's JSON marshal overlaps in-flight submissions.
type marshalingStore struct {
	first  []byte
	second []byte
}

func (s *marshalingStore) Update(_ context.Context, q *quiz.Quiz) error {
	var err error
	if s.first, err = json.Marshal(q); err != nil {
		return err
	}
	time.Sleep(30 * time.Millisecond)
	s.second, err = json.Marshal(q)
	return err
}

func TestEndSnapshotIsolatedFromConcurrentSubmits(t *testing.T) {
	store := &marshalingStore{}
	dist := &stubDistributor{}
	m := NewMachine(dist, store, nil, Options{TickInterval: time.Hour}, zerolog.New(io.Discard))
	assert.NoError(t, m.Start(context.Background(), testQuiz(1, quiz.PerLevel{Easy: 5})))

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := m.Snapshot()
			if snap.CurrentQuestion != nil {
				m.SubmitAnswer(snap.CurrentQuestion.ID, 1)
			}
			m.Advance(context.Background())
		}
	}()

	assert.NoError(t, m.End(context.Background()))
	close(stop)
	wg.Wait()

	// The persisted snapshot must not change underneath the store's marshal.
	assert.Equal(t, string(store.first), string(store.second))
}

func TestEndDuringLevelLoadDiscardsLateQuestions(t *testing.T) {
	dist := &stubDistributor{delay: 50 * time.Millisecond}
	store := &stubStore{}
	m := NewMachine(dist, store, nil, Options{TickInterval: time.Hour}, zerolog.New(io.Discard))

	done := make(chan error, 1)
	go func() {
		done <- m.Start(context.Background(), testQuiz(1, quiz.PerLevel{Easy: 1}))
	}()

	// Wait for the load to begin, then end the session underneath it.
	assert.Eventually(t, func() bool {
		return m.Snapshot().State == StateLoadingLevel
	}, time.Second, time.Millisecond)
	assert.NoError(t, m.End(context.Background()))

	assert.NoError(t, <-done)
	assert.Equal(t, StateIdle, m.Snapshot().State)
	assert.Nil(t, m.Snapshot().CurrentQuestion)
}

func TestCompleteSessionPublishesSummary(t *testing.T) {
	m, _ := newTestMachine(nil)
	sink := &recordingSink{}
	m.sink = sink
	assert.NoError(t, m.Start(context.Background(), testQuiz(1, quiz.PerLevel{Easy: 1})))

	m.SubmitAnswer(m.Snapshot().CurrentQuestion.ID, 1)
	m.Advance(context.Background())

	summary, ok := m.Results()
	assert.True(t, ok)
	assert.Equal(t, 1, summary.Rankings[0].Team.Score)

	sink.mu.Lock()
	last := sink.events[len(sink.events)-1]
	sink.mu.Unlock()
	assert.Equal(t, EventComplete, last.Type)
	assert.NotNil(t, last.Summary)
}

func TestResultsWithoutSession(t *testing.T) {
	m, _ := newTestMachine(nil)
	_, ok := m.Results()
	assert.False(t, ok)
}
