package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/quizdeck/quiz-host/internal/quiz"
)

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuizRepository persists quiz definitions and their session outcomes. Teams
// and questions travel as JSONB snapshots; every read and write is scoped to
// the owning user.
type QuizRepository struct {
	db DB
}

func NewQuizRepository(db DB) *QuizRepository {
	return &QuizRepository{db: db}
}

const quizColumns = `quiz_id, owner_id, title, topics, category_ids, teams, questions,
	questions_per_level, timeouts_in_seconds, show_answers_at_end, created_at`

// Insert stores a newly created quiz.
func (r *QuizRepository) Insert(ctx context.Context, q *quiz.Quiz) error {
	teams, questions, perLevel, timeouts, err := marshalQuizFields(q)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO quizzes (`+quizColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		q.ID, q.OwnerID, q.Title, q.Topics, q.CategoryIDs,
		teams, questions, perLevel, timeouts, q.ShowAnswersAtEnd, q.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	return nil
}

// ListByOwner returns the owner's quizzes, newest first.
func (r *QuizRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]quiz.Quiz, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+quizColumns+`
		FROM quizzes
		WHERE owner_id = $1
		ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []quiz.Quiz
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, *q)
	}
	return quizzes, rows.Err()
}

// Get fetches one quiz owned by the caller.
func (r *QuizRepository) Get(ctx context.Context, quizID, ownerID uuid.UUID) (*quiz.Quiz, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+quizColumns+`
		FROM quizzes
		WHERE quiz_id = $1 AND owner_id = $2`,
		quizID, ownerID,
	)
	q, err := scanQuiz(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, quiz.ErrNotFound
		}
		return nil, err
	}
	return q, nil
}

// Delete removes a quiz owned by the caller.
func (r *QuizRepository) Delete(ctx context.Context, quizID, ownerID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM quizzes
		WHERE quiz_id = $1 AND owner_id = $2`,
		quizID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return quiz.ErrNotFound
	}
	return nil
}

// Update persists the final session snapshot (questions, scores, answer
// histories) back onto the quiz record.
func (r *QuizRepository) Update(ctx context.Context, q *quiz.Quiz) error {
	teams, questions, perLevel, timeouts, err := marshalQuizFields(q)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE quizzes
		SET title = $3, topics = $4, category_ids = $5, teams = $6, questions = $7,
		    questions_per_level = $8, timeouts_in_seconds = $9, show_answers_at_end = $10
		WHERE quiz_id = $1 AND owner_id = $2`,
		q.ID, q.OwnerID, q.Title, q.Topics, q.CategoryIDs,
		teams, questions, perLevel, timeouts, q.ShowAnswersAtEnd,
	)
	if err != nil {
		return fmt.Errorf("update quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return quiz.ErrNotFound
	}
	return nil
}

func marshalQuizFields(q *quiz.Quiz) (teams, questions, perLevel, timeouts []byte, err error) {
	if teams, err = json.Marshal(q.Teams); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal teams: %w", err)
	}
	if questions, err = json.Marshal(q.Questions); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal questions: %w", err)
	}
	if perLevel, err = json.Marshal(q.QuestionsPerLevel); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal questions per level: %w", err)
	}
	if timeouts, err = json.Marshal(q.TimeoutsInSeconds); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal timeouts: %w", err)
	}
	return teams, questions, perLevel, timeouts, nil
}

func scanQuiz(row pgx.Row) (*quiz.Quiz, error) {
	var (
		q         quiz.Quiz
		teams     []byte
		questions []byte
		perLevel  []byte
		timeouts  []byte
	)
	err := row.Scan(
		&q.ID, &q.OwnerID, &q.Title, &q.Topics, &q.CategoryIDs,
		&teams, &questions, &perLevel, &timeouts, &q.ShowAnswersAtEnd, &q.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(teams, &q.Teams); err != nil {
		return nil, fmt.Errorf("unmarshal teams: %w", err)
	}
	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &q.Questions); err != nil {
			return nil, fmt.Errorf("unmarshal questions: %w", err)
		}
	}
	if err := json.Unmarshal(perLevel, &q.QuestionsPerLevel); err != nil {
		return nil, fmt.Errorf("unmarshal questions per level: %w", err)
	}
	if err := json.Unmarshal(timeouts, &q.TimeoutsInSeconds); err != nil {
		return nil, fmt.Errorf("unmarshal timeouts: %w", err)
	}
	return &q, nil
}
