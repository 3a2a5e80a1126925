package quiz

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quizdeck/quiz-host/internal/trivia"
)

// Distributor turns raw provider items into a finalized, shuffled,
// team-assigned question set for one difficulty level. Provider shortfall is
// padded with placeholder questions so a session never stalls on thin data.
type Distributor struct {
	source trivia.Source
	logger zerolog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewDistributor builds a distributor. rng is injectable so tests can pin the
// shuffle order; nil falls back to a time-seeded source.
func NewDistributor(source trivia.Source, rng *rand.Rand, logger zerolog.Logger) *Distributor {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Distributor{
		source: source,
		logger: logger,
		rng:    rng,
	}
}

// Distribute produces exactly perTeam*len(teams) questions for the level,
// each tagged with its owning team. Teams receive contiguous blocks of the
// shuffled pool, in roster order.
func (d *Distributor) Distribute(ctx context.Context, level Level, categoryIDs []int, perTeam int, teams []Team) []Question {
	total := perTeam * len(teams)
	if total == 0 {
		return nil
	}

	pool := d.fetchPool(ctx, level, categoryIDs, total)

	d.mu.Lock()
	shuffleQuestionPool(d.rng, pool)
	if len(pool) > total {
		pool = pool[:total]
	}

	built := make([]Question, 0, total)
	for _, raw := range pool {
		built = append(built, d.buildQuestion(raw, level))
	}
	d.mu.Unlock()

	if missing := total - len(built); missing > 0 {
		providerShortfall.WithLabelValues(string(level)).Inc()
		fallbackQuestions.WithLabelValues(string(level)).Add(float64(missing))
		d.logger.Warn().
			Str("level", string(level)).
			Int("requested", total).
			Int("fetched", len(built)).
			Msg("provider shortfall, padding with placeholders")
		for i := len(built); i < total; i++ {
			built = append(built, placeholderQuestion(level, i+1))
		}
	}

	// Contiguous per-team blocks, roster order.
	for i := range built {
		built[i].TeamID = teams[i/perTeam].ID
	}
	return built
}

// fetchPool gathers raw items across the selected categories, splitting the
// total need evenly (ceiling division). Fetch errors degrade to whatever was
// accumulated; the caller pads the difference.
func (d *Distributor) fetchPool(ctx context.Context, level Level, categoryIDs []int, total int) []trivia.RawQuestion {
	if len(categoryIDs) == 0 {
		pool, err := d.source.FetchQuestions(ctx, 0, string(level), total)
		if err != nil {
			d.logger.Warn().Err(err).Str("level", string(level)).Msg("uncategorized fetch degraded")
		}
		return pool
	}

	perCategory := (total + len(categoryIDs) - 1) / len(categoryIDs)
	var pool []trivia.RawQuestion
	for _, categoryID := range categoryIDs {
		batch, err := d.source.FetchQuestions(ctx, categoryID, string(level), perCategory)
		if err != nil {
			d.logger.Warn().Err(err).
				Int("category_id", categoryID).
				Str("level", string(level)).
				Msg("category fetch degraded")
		}
		pool = append(pool, batch...)
	}
	return pool
}

// buildQuestion shuffles the correct answer in with the incorrect ones and
// re-derives the correct index from the post-shuffle position. Caller holds
// d.mu.
func (d *Distributor) buildQuestion(raw trivia.RawQuestion, level Level) Question {
	options := make([]string, 0, len(raw.IncorrectAnswers)+1)
	options = append(options, raw.CorrectAnswer)
	options = append(options, raw.IncorrectAnswers...)
	shuffleStrings(d.rng, options)

	correct := 0
	for i, opt := range options {
		if opt == raw.CorrectAnswer {
			correct = i
			break
		}
	}

	return Question{
		ID:            uuid.NewString(),
		Text:          raw.Question,
		Options:       options,
		CorrectAnswer: correct,
		Level:         level,
	}
}

// placeholderQuestion synthesizes an inert question identifying its level and
// position, so shortfall is visible on screen but the session keeps moving.
func placeholderQuestion(level Level, position int) Question {
	return Question{
		ID:            fmt.Sprintf("fallback_%s_%d_%s", level, position, uuid.NewString()),
		Text:          fmt.Sprintf("Sample %s question %d", level, position),
		Options:       []string{"Option A", "Option B", "Option C", "Option D"},
		CorrectAnswer: 0,
		Level:         level,
	}
}

// Fisher-Yates, uniform over permutations.
func shuffleQuestionPool(rng *rand.Rand, items []trivia.RawQuestion) {
	for i := len(items) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

func shuffleStrings(rng *rand.Rand, items []string) {
	for i := len(items) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}
