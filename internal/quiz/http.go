package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quizdeck/quiz-host/internal/auth"
	"github.com/quizdeck/quiz-host/internal/trivia"
	httperrors "github.com/quizdeck/quiz-host/pkg/http/errors"
)

// Store is the persistence surface the handlers need.
type Store interface {
	Insert(ctx context.Context, q *Quiz) error
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Quiz, error)
	Delete(ctx context.Context, quizID, ownerID uuid.UUID) error
}

// HTTPHandlers serves quiz CRUD and the provider's category catalog.
type HTTPHandlers struct {
	store   Store
	catalog trivia.CatalogSource
	logger  zerolog.Logger
}

func NewHTTPHandlers(store Store, catalog trivia.CatalogSource, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{store: store, catalog: catalog, logger: logger}
}

// CreateQuizRequest is the creation payload.
type CreateQuizRequest struct {
	Title             string   `json:"title"`
	Topics            []string `json:"topics"`
	CategoryIDs       []int    `json:"category_ids"`
	Teams             []string `json:"teams"`
	QuestionsPerLevel PerLevel `json:"questions_per_level"`
	TimeoutsInSeconds PerLevel `json:"timeouts_in_seconds"`
	ShowAnswersAtEnd  bool     `json:"show_answers_at_end"`
}

// Create handles POST /v1/quizzes.
func (h *HTTPHandlers) Create(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.UserID(r.Context())

	var req CreateQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	if req.Title == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "Title is required", "title")
		return
	}
	if len(req.Teams) == 0 {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "At least one team is required", "teams")
		return
	}
	if req.QuestionsPerLevel.Total() <= 0 {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "At least one question per quiz is required", "questions_per_level")
		return
	}
	for _, level := range Levels() {
		if req.QuestionsPerLevel.Get(level) < 0 {
			httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "Question counts cannot be negative", "questions_per_level")
			return
		}
		if req.QuestionsPerLevel.Get(level) > 0 && req.TimeoutsInSeconds.Get(level) <= 0 {
			httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "Played levels need a positive timeout", "timeouts_in_seconds")
			return
		}
	}

	teams := make([]Team, 0, len(req.Teams))
	for _, name := range req.Teams {
		if name == "" {
			httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "Team names cannot be empty", "teams")
			return
		}
		teams = append(teams, Team{ID: uuid.NewString(), Name: name})
	}

	q := &Quiz{
		ID:                uuid.New(),
		OwnerID:           ownerID,
		Title:             req.Title,
		Topics:            req.Topics,
		CategoryIDs:       req.CategoryIDs,
		Teams:             teams,
		QuestionsPerLevel: req.QuestionsPerLevel,
		TimeoutsInSeconds: req.TimeoutsInSeconds,
		ShowAnswersAtEnd:  req.ShowAnswersAtEnd,
		CreatedAt:         time.Now().UTC(),
	}

	if err := h.store.Insert(r.Context(), q); err != nil {
		h.logger.Error().Err(err).Str("owner_id", ownerID.String()).Msg("quiz insert failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeQuizCreateFailed, "Failed to create quiz")
		return
	}

	h.logger.Info().
		Str("quiz_id", q.ID.String()).
		Str("owner_id", ownerID.String()).
		Int("teams", len(q.Teams)).
		Msg("quiz created")

	respondJSON(w, http.StatusCreated, q)
}

// List handles GET /v1/quizzes.
func (h *HTTPHandlers) List(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.UserID(r.Context())

	quizzes, err := h.store.ListByOwner(r.Context(), ownerID)
	if err != nil {
		h.logger.Error().Err(err).Str("owner_id", ownerID.String()).Msg("quiz list failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeQuizListFailed, "Failed to list quizzes")
		return
	}
	if quizzes == nil {
		quizzes = []Quiz{}
	}
	respondJSON(w, http.StatusOK, quizzes)
}

// Delete handles DELETE /v1/quizzes/{id}.
func (h *HTTPHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.UserID(r.Context())

	quizID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid quiz id")
		return
	}

	if err := h.store.Delete(r.Context(), quizID, ownerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "Quiz not found")
			return
		}
		h.logger.Error().Err(err).Str("quiz_id", quizID.String()).Msg("quiz delete failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeQuizDeleteFailed, "Failed to delete quiz")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Categories handles GET /v1/categories.
func (h *HTTPHandlers) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalog.Categories(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("category catalog unavailable")
		httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeCatalogUnavailable, "Category catalog unavailable")
		return
	}
	respondJSON(w, http.StatusOK, cats)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
