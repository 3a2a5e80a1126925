package trivia

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// maxPerRequest is the provider's hard cap on a single request.
const maxPerRequest = 50

// Client fetches questions from the Open Trivia DB (no API key).
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewClient(baseURL string, httpClient *http.Client, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://opentdb.com"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// RawQuestion is a provider item with HTML entities already decoded.
type RawQuestion struct {
	Category         string   `json:"category"`
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

type questionsResponse struct {
	ResponseCode int           `json:"response_code"`
	Results      []RawQuestion `json:"results"`
}

// Category is one entry of the provider's category taxonomy.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type categoriesResponse struct {
	TriviaCategories []Category `json:"trivia_categories"`
}

// FetchQuestions accumulates up to amount multiple-choice questions, paging
// below the provider's 50-item cap. It always returns what it managed to
// collect: a transport error, a non-success response code, or an empty page
// ends the loop early and the partial result ships with the error so the
// caller can pad the shortfall.
func (c *Client) FetchQuestions(ctx context.Context, categoryID int, difficulty string, amount int) ([]RawQuestion, error) {
	var collected []RawQuestion
	for len(collected) < amount {
		batch := amount - len(collected)
		if batch > maxPerRequest {
			batch = maxPerRequest
		}

		payload, err := c.fetchPage(ctx, categoryID, difficulty, batch)
		if err != nil {
			c.logDegraded(err, categoryID, difficulty, len(collected), amount)
			return collected, err
		}
		if payload.ResponseCode != 0 {
			err := fmt.Errorf("trivia response code %d", payload.ResponseCode)
			c.logDegraded(err, categoryID, difficulty, len(collected), amount)
			return collected, err
		}
		if len(payload.Results) == 0 {
			return collected, nil
		}

		for _, item := range payload.Results {
			collected = append(collected, decodeQuestion(item))
		}
	}
	return collected, nil
}

func (c *Client) logDegraded(err error, categoryID int, difficulty string, collected, requested int) {
	c.logger.Warn().Err(err).
		Int("category_id", categoryID).
		Str("difficulty", difficulty).
		Int("collected", collected).
		Int("requested", requested).
		Msg("question fetch degraded to partial result")
}

func (c *Client) fetchPage(ctx context.Context, categoryID int, difficulty string, amount int) (*questionsResponse, error) {
	values := url.Values{}
	values.Set("amount", fmt.Sprint(amount))
	values.Set("type", "multiple")
	if categoryID > 0 {
		values.Set("category", fmt.Sprint(categoryID))
	}
	if difficulty != "" {
		values.Set("difficulty", difficulty)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api.php?%s", c.baseURL, values.Encode()), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("trivia non-200: %d", resp.StatusCode)
	}

	var payload questionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Categories fetches the provider's category taxonomy.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api_category.php", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("trivia non-200: %d", resp.StatusCode)
	}

	var payload categoriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return payload.TriviaCategories, nil
}

// decodeQuestion unescapes the HTML entities the provider ships in every
// text field.
func decodeQuestion(q RawQuestion) RawQuestion {
	decoded := RawQuestion{
		Category:      html.UnescapeString(q.Category),
		Type:          q.Type,
		Difficulty:    q.Difficulty,
		Question:      html.UnescapeString(q.Question),
		CorrectAnswer: html.UnescapeString(q.CorrectAnswer),
	}
	for _, inc := range q.IncorrectAnswers {
		decoded.IncorrectAnswers = append(decoded.IncorrectAnswers, html.UnescapeString(inc))
	}
	return decoded
}
