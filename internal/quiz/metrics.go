package quiz

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	providerShortfall = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quizhost_provider_shortfall_total",
		Help: "Level loads where the question bank returned fewer items than requested.",
	}, []string{"level"})

	fallbackQuestions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quizhost_fallback_questions_total",
		Help: "Placeholder questions synthesized to cover provider shortfall.",
	}, []string{"level"})
)
