package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/phrazzld/qbank-api/internal/domain"
	"github.com/phrazzld/qbank-api/internal/platform/logger"
	"github.com/phrazzld/qbank-api/internal/store"
)

// maxBatchRows keeps a multi-row insert below PostgreSQL's bind parameter limit.
const maxBatchRows = 1000

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var responseColumns = []string{
	"user_id",
	"question_id",
	"section_id",
	"subsection_id",
	"selected_answer",
	"correct_answer",
	"is_correct",
	"answered_at_ms",
}

// Rows are only replaced by an answer that is at least as recent.
const responseUpsertSuffix = `
	ON CONFLICT (user_id, question_id) DO UPDATE SET
		section_id      = EXCLUDED.section_id,
		subsection_id   = EXCLUDED.subsection_id,
		selected_answer = EXCLUDED.selected_answer,
		correct_answer  = EXCLUDED.correct_answer,
		is_correct      = EXCLUDED.is_correct,
		answered_at_ms  = EXCLUDED.answered_at_ms,
		updated_at      = NOW()
	WHERE question_responses.answered_at_ms <= EXCLUDED.answered_at_ms`

// PostgresResponseStore implements the store.ResponseStore interface
// using a PostgreSQL database as the storage backend.
type PostgresResponseStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresResponseStore creates a new PostgreSQL implementation of the ResponseStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresResponseStore(db store.DBTX, logger *slog.Logger) *PostgresResponseStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresResponseStore{
		db:     db,
		logger: logger.With(slog.String("component", "response_store")),
	}
}

// Ensure PostgresResponseStore implements store.ResponseStore interface
var _ store.ResponseStore = (*PostgresResponseStore)(nil)

// WithTx implements store.ResponseStore.WithTx
func (s *PostgresResponseStore) WithTx(tx *sql.Tx) store.ResponseStore {
	return &PostgresResponseStore{db: tx, logger: s.logger}
}

func scanResponse(row interface{ Scan(...any) error }) (*domain.QuestionResponse, error) {
	var r domain.QuestionResponse
	err := row.Scan(
		&r.QuestionID,
		&r.SectionID,
		&r.SubsectionID,
		&r.SelectedAnswer,
		&r.CorrectAnswer,
		&r.IsCorrect,
		&r.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

const selectResponse = `
	SELECT question_id, section_id, subsection_id, selected_answer, correct_answer, is_correct, answered_at_ms
	FROM question_responses`

// ListByUser implements store.ResponseStore.ListByUser
func (s *PostgresResponseStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.QuestionResponse, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, selectResponse+` WHERE user_id = $1 ORDER BY question_id`, userID)
	if err != nil {
		log.Error("failed to list responses",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var responses []*domain.QuestionResponse
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan response: %w", err)
		}
		responses = append(responses, r)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	log.Debug("listed responses",
		slog.String("user_id", userID.String()),
		slog.Int("count", len(responses)))
	return responses, nil
}

// Get implements store.ResponseStore.Get
func (s *PostgresResponseStore) Get(
	ctx context.Context,
	userID uuid.UUID,
	questionID string,
) (*domain.QuestionResponse, error) {
	row := s.db.QueryRowContext(ctx, selectResponse+` WHERE user_id = $1 AND question_id = $2`, userID, questionID)
	r, err := scanResponse(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrResponseNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get response",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("question_id", questionID))
		return nil, MapError(err)
	}
	return r, nil
}

// Upsert implements store.ResponseStore.Upsert
func (s *PostgresResponseStore) Upsert(
	ctx context.Context,
	userID uuid.UUID,
	response *domain.QuestionResponse,
) error {
	return s.UpsertBatch(ctx, userID, []*domain.QuestionResponse{response})
}

// UpsertBatch implements store.ResponseStore.UpsertBatch
// Duplicate question IDs inside the batch collapse to the newest entry,
// since one statement cannot update the same row twice.
func (s *PostgresResponseStore) UpsertBatch(
	ctx context.Context,
	userID uuid.UUID,
	responses []*domain.QuestionResponse,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(responses) == 0 {
		return nil
	}

	latest := make(map[string]*domain.QuestionResponse, len(responses))
	for _, r := range responses {
		if r == nil {
			return invalidEntity(domain.ErrEmptyQuestionID)
		}
		if err := r.Validate(); err != nil {
			log.Warn("response validation failed during upsert",
				slog.String("error", err.Error()),
				slog.String("question_id", r.QuestionID))
			return invalidEntity(err)
		}
		if prev, ok := latest[r.QuestionID]; !ok || prev.Timestamp <= r.Timestamp {
			latest[r.QuestionID] = r
		}
	}

	ids := make([]string, 0, len(latest))
	for id := range latest {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for start := 0; start < len(ids); start += maxBatchRows {
		end := min(start+maxBatchRows, len(ids))

		builder := psql.Insert("question_responses").Columns(responseColumns...)
		for _, id := range ids[start:end] {
			r := latest[id]
			builder = builder.Values(
				userID,
				r.QuestionID,
				r.SectionID,
				r.SubsectionID,
				r.SelectedAnswer,
				r.CorrectAnswer,
				r.IsCorrect,
				r.Timestamp,
			)
		}

		query, args, err := builder.Suffix(responseUpsertSuffix).ToSql()
		if err != nil {
			return fmt.Errorf("failed to build response upsert: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			log.Error("failed to upsert responses",
				slog.String("error", err.Error()),
				slog.String("user_id", userID.String()),
				slog.Int("count", end-start))
			return MapError(err)
		}
	}

	log.Debug("upserted responses",
		slog.String("user_id", userID.String()),
		slog.Int("count", len(ids)))
	return nil
}

// DeleteBySubsection implements store.ResponseStore.DeleteBySubsection
func (s *PostgresResponseStore) DeleteBySubsection(
	ctx context.Context,
	userID uuid.UUID,
	sectionID, subsectionID string,
) (int64, error) {
	query, args, err := psql.Delete("question_responses").
		Where(sq.Eq{"user_id": userID, "section_id": sectionID, "subsection_id": subsectionID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build subsection delete: %w", err)
	}
	return s.execDelete(ctx, userID, query, args...)
}

// DeleteAllForUser implements store.ResponseStore.DeleteAllForUser
func (s *PostgresResponseStore) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.execDelete(ctx, userID, `DELETE FROM question_responses WHERE user_id = $1`, userID)
}

func (s *PostgresResponseStore) execDelete(
	ctx context.Context,
	userID uuid.UUID,
	query string,
	args ...any,
) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to delete responses",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return 0, MapError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	log.Info("deleted responses",
		slog.String("user_id", userID.String()),
		slog.Int64("count", n))
	return n, nil
}
