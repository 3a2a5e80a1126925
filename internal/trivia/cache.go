package trivia

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	defaultCatalogTTL   = 12 * time.Hour
	defaultQuestionsTTL = 5 * time.Minute

	catalogKey = "trivia:catalog"
)

// Cache keeps provider responses in Redis so repeated quiz setups and level
// loads don't hammer the question bank.
type Cache struct {
	client       *redis.Client
	catalogTTL   time.Duration
	questionsTTL time.Duration
}

func NewCache(client *redis.Client, catalogTTL, questionsTTL time.Duration) *Cache {
	if catalogTTL <= 0 {
		catalogTTL = defaultCatalogTTL
	}
	if questionsTTL <= 0 {
		questionsTTL = defaultQuestionsTTL
	}
	return &Cache{client: client, catalogTTL: catalogTTL, questionsTTL: questionsTTL}
}

func questionsKey(categoryID int, difficulty string, amount int) string {
	return fmt.Sprintf("trivia:questions:%d:%s:%d", categoryID, difficulty, amount)
}

// GetCatalog returns the cached category taxonomy, or nil on a miss.
func (c *Cache) GetCatalog(ctx context.Context) ([]Category, error) {
	data, err := c.client.Get(ctx, catalogKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var cats []Category
	if err := json.Unmarshal(data, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

// SetCatalog stores the category taxonomy.
func (c *Cache) SetCatalog(ctx context.Context, cats []Category) error {
	data, err := json.Marshal(cats)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, catalogKey, data, c.catalogTTL).Err()
}

// GetQuestions returns a cached question batch, or nil on a miss.
func (c *Cache) GetQuestions(ctx context.Context, categoryID int, difficulty string, amount int) ([]RawQuestion, error) {
	data, err := c.client.Get(ctx, questionsKey(categoryID, difficulty, amount)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var qs []RawQuestion
	if err := json.Unmarshal(data, &qs); err != nil {
		return nil, err
	}
	return qs, nil
}

// SetQuestions stores a question batch under its request shape.
func (c *Cache) SetQuestions(ctx context.Context, categoryID int, difficulty string, amount int, qs []RawQuestion) error {
	data, err := json.Marshal(qs)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, questionsKey(categoryID, difficulty, amount), data, c.questionsTTL).Err()
}

// Source is the provider surface consumed by question distribution.
type Source interface {
	FetchQuestions(ctx context.Context, categoryID int, difficulty string, amount int) ([]RawQuestion, error)
}

// CatalogSource is the provider surface consumed at quiz-creation time.
type CatalogSource interface {
	Categories(ctx context.Context) ([]Category, error)
}

// CachedSource layers the Redis cache in front of a provider client. Cache
// failures degrade to direct fetches.
type CachedSource struct {
	client *Client
	cache  *Cache
	logger zerolog.Logger
}

var (
	_ Source        = (*CachedSource)(nil)
	_ CatalogSource = (*CachedSource)(nil)
)

func NewCachedSource(client *Client, cache *Cache, logger zerolog.Logger) *CachedSource {
	return &CachedSource{client: client, cache: cache, logger: logger}
}

// FetchQuestions serves a batch from cache when possible; a full batch fetched
// from the provider is stored for the next request of the same shape.
func (s *CachedSource) FetchQuestions(ctx context.Context, categoryID int, difficulty string, amount int) ([]RawQuestion, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetQuestions(ctx, categoryID, difficulty, amount); err != nil {
			s.logger.Warn().Err(err).Msg("question cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	qs, err := s.client.FetchQuestions(ctx, categoryID, difficulty, amount)
	if err != nil {
		return qs, err
	}
	// Partial batches are not cached: a later retry may do better.
	if s.cache != nil && len(qs) >= amount {
		if cacheErr := s.cache.SetQuestions(ctx, categoryID, difficulty, amount, qs); cacheErr != nil {
			s.logger.Warn().Err(cacheErr).Msg("question cache write failed")
		}
	}
	return qs, nil
}

// Categories serves the taxonomy from cache when possible.
func (s *CachedSource) Categories(ctx context.Context) ([]Category, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetCatalog(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("catalog cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	cats, err := s.client.Categories(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if cacheErr := s.cache.SetCatalog(ctx, cats); cacheErr != nil {
			s.logger.Warn().Err(cacheErr).Msg("catalog cache write failed")
		}
	}
	return cats, nil
}
