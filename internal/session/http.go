package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/quizdeck/quiz-host/internal/auth"
	"github.com/quizdeck/quiz-host/internal/quiz"
	httperrors "github.com/quizdeck/quiz-host/pkg/http/errors"
	"github.com/quizdeck/quiz-host/pkg/http/ws"
)

// QuizLoader fetches a quiz for the session to run.
type QuizLoader interface {
	Get(ctx context.Context, quizID, ownerID uuid.UUID) (*quiz.Quiz, error)
}

// HTTPHandlers exposes the host's session controls and the live feed.
type HTTPHandlers struct {
	machine  *Machine
	quizzes  QuizLoader
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewHTTPHandlers(machine *Machine, quizzes QuizLoader, hub *ws.Hub, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		machine: machine,
		quizzes: quizzes,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

type startRequest struct {
	QuizID string `json:"quiz_id"`
}

type answerRequest struct {
	QuestionID  string `json:"question_id"`
	OptionIndex int    `json:"option_index"`
}

// Start handles POST /v1/session/start.
func (h *HTTPHandlers) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}
	quizID, err := uuid.Parse(req.QuizID)
	if err != nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidRequest, "Invalid quiz id", "quiz_id")
		return
	}

	q, err := h.quizzes.Get(r.Context(), quizID, auth.UserID(r.Context()))
	if err != nil {
		if errors.Is(err, quiz.ErrNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "Quiz not found")
			return
		}
		h.logger.Error().Err(err).Str("quiz_id", quizID.String()).Msg("quiz load failed")
		httperrors.RespondInternalError(w, "Failed to load quiz")
		return
	}

	if err := h.machine.Start(r.Context(), q); err != nil {
		if errors.Is(err, ErrSessionActive) {
			httperrors.RespondError(w, http.StatusConflict, httperrors.ErrCodeSessionBusy, "A session is already running")
			return
		}
		h.logger.Error().Err(err).Str("quiz_id", quizID.String()).Msg("session start failed")
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, h.machine.Snapshot())
}

// Answer handles POST /v1/session/answer.
func (h *HTTPHandlers) Answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}
	if req.QuestionID == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "Question id is required", "question_id")
		return
	}

	h.machine.SubmitAnswer(req.QuestionID, req.OptionIndex)
	respondJSON(w, http.StatusOK, h.machine.Snapshot())
}

// Advance handles POST /v1/session/advance.
func (h *HTTPHandlers) Advance(w http.ResponseWriter, r *http.Request) {
	h.machine.Advance(r.Context())
	respondJSON(w, http.StatusOK, h.machine.Snapshot())
}

// End handles POST /v1/session/end.
func (h *HTTPHandlers) End(w http.ResponseWriter, r *http.Request) {
	if err := h.machine.End(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("session end failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeSessionEndFailed, "Failed to save session results, try again")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// State handles GET /v1/session.
func (h *HTTPHandlers) State(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.machine.Snapshot())
}

// Results handles GET /v1/session/results.
func (h *HTTPHandlers) Results(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.machine.Results()
	if !ok {
		httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "No session is running")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// Feed handles GET /ws/session. The connection receives every session event
// plus an initial state frame so late joiners render immediately.
func (h *HTTPHandlers) Feed(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	wsConn := ws.NewConnection(conn, h.logger)
	h.hub.Register(wsConn)

	snap := h.machine.Snapshot()
	_ = wsConn.Send(ws.Message{Type: string(EventState), Payload: Event{Type: EventState, Snapshot: &snap}})

	go func() {
		defer h.hub.Unregister(wsConn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
