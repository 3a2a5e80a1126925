package session

import "time"

// The countdown is a goroutine ticking once per interval against the machine
// lock. Cancellation bumps timerGen under the lock, so a tick that was already
// scheduled when the state moved on fails its generation check and is
// suppressed. Restarting always begins from the level's configured timeout.

func (m *Machine) startCountdownLocked() {
	m.stopCountdownLocked()
	m.timeLeft = m.quiz.TimeoutsInSeconds.Get(m.level)
	if m.timeLeft <= 0 {
		m.timeLeft = m.defaultSecs
	}

	stop := make(chan struct{})
	m.timerStop = stop
	m.timerGen++
	go m.runCountdown(m.timerGen, stop)
}

func (m *Machine) stopCountdownLocked() {
	if m.timerStop != nil {
		close(m.timerStop)
		m.timerStop = nil
	}
	m.timerGen++
}

func (m *Machine) runCountdown(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(m.tickEvery)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !m.tick(gen) {
				return
			}
		}
	}
}

// tick decrements the countdown and reports whether the timer should keep
// running. On expiry it forces the reveal and, when no option was selected,
// records a timeout for the current team.
func (m *Machine) tick(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.timerGen || m.state != StateAwaitingAnswer || m.revealed {
		return false
	}

	m.timeLeft--
	if m.timeLeft > 0 {
		m.publishLocked(EventTick)
		return true
	}
	m.timeLeft = 0

	if m.selected == nil {
		if current := m.currentQuestionLocked(); current != nil {
			team := &m.quiz.Teams[m.teamIdx]
			if !team.HasAnswered(current.ID) {
				recordTimeout(team, current)
				m.logger.Info().
					Str("team", team.Name).
					Str("question_id", current.ID).
					Msg("question timed out")
			}
		}
	}

	m.revealed = true
	m.state = StateAnswerRevealed
	m.timerStop = nil
	m.timerGen++
	m.publishLocked(EventState)
	return false
}
