package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/qbank-api/internal/domain"
	"github.com/phrazzld/qbank-api/internal/platform/logger"
	"github.com/phrazzld/qbank-api/internal/store"
)

const selectReviewState = `
	SELECT question_id, section_id, subsection_id, repetition_count, ease_factor, interval_days,
	       last_reviewed_at, next_review_at, created_at, updated_at
	FROM review_states`

// PostgresReviewStateStore implements the store.ReviewStateStore interface
// using a PostgreSQL database as the storage backend.
type PostgresReviewStateStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReviewStateStore creates a new PostgreSQL implementation of the ReviewStateStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresReviewStateStore(db store.DBTX, logger *slog.Logger) *PostgresReviewStateStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresReviewStateStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_state_store")),
	}
}

// Ensure PostgresReviewStateStore implements store.ReviewStateStore interface
var _ store.ReviewStateStore = (*PostgresReviewStateStore)(nil)

// WithTx implements store.ReviewStateStore.WithTx
func (s *PostgresReviewStateStore) WithTx(tx *sql.Tx) store.ReviewStateStore {
	return &PostgresReviewStateStore{db: tx, logger: s.logger}
}

func scanReviewState(row interface{ Scan(...any) error }) (*domain.ReviewState, error) {
	var st domain.ReviewState
	err := row.Scan(
		&st.QuestionID,
		&st.SectionID,
		&st.SubsectionID,
		&st.RepetitionCount,
		&st.EaseFactor,
		&st.IntervalDays,
		&st.LastReviewedAt,
		&st.NextReviewAt,
		&st.CreatedAt,
		&st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// Get implements store.ReviewStateStore.Get
func (s *PostgresReviewStateStore) Get(
	ctx context.Context,
	userID uuid.UUID,
	questionID string,
) (*domain.ReviewState, error) {
	return s.getOne(ctx, userID, questionID, "")
}

// GetForUpdate implements store.ReviewStateStore.GetForUpdate
func (s *PostgresReviewStateStore) GetForUpdate(
	ctx context.Context,
	userID uuid.UUID,
	questionID string,
) (*domain.ReviewState, error) {
	return s.getOne(ctx, userID, questionID, " FOR UPDATE")
}

func (s *PostgresReviewStateStore) getOne(
	ctx context.Context,
	userID uuid.UUID,
	questionID string,
	lock string,
) (*domain.ReviewState, error) {
	query := selectReviewState + ` WHERE user_id = $1 AND question_id = $2` + lock
	st, err := scanReviewState(s.db.QueryRowContext(ctx, query, userID, questionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrReviewStateNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get review state",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("question_id", questionID))
		return nil, MapError(err)
	}
	return st, nil
}

// Upsert implements store.ReviewStateStore.Upsert
func (s *PostgresReviewStateStore) Upsert(
	ctx context.Context,
	userID uuid.UUID,
	state *domain.ReviewState,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if state == nil {
		return invalidEntity(domain.ErrEmptyQuestionID)
	}
	if err := state.Validate(); err != nil {
		log.Warn("review state validation failed during upsert",
			slog.String("error", err.Error()),
			slog.String("question_id", state.QuestionID))
		return invalidEntity(err)
	}

	now := time.Now().UTC()
	createdAt := state.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	query := `
		INSERT INTO review_states (
			user_id, question_id, section_id, subsection_id, repetition_count, ease_factor,
			interval_days, last_reviewed_at, next_review_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, question_id) DO UPDATE SET
			section_id       = EXCLUDED.section_id,
			subsection_id    = EXCLUDED.subsection_id,
			repetition_count = EXCLUDED.repetition_count,
			ease_factor      = EXCLUDED.ease_factor,
			interval_days    = EXCLUDED.interval_days,
			last_reviewed_at = EXCLUDED.last_reviewed_at,
			next_review_at   = EXCLUDED.next_review_at,
			updated_at       = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		userID,
		state.QuestionID,
		state.SectionID,
		state.SubsectionID,
		state.RepetitionCount,
		state.EaseFactor,
		state.IntervalDays,
		state.LastReviewedAt.UTC(),
		state.NextReviewAt.UTC(),
		createdAt,
		now,
	)
	if err != nil {
		log.Error("failed to upsert review state",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("question_id", state.QuestionID))
		return MapError(err)
	}

	state.CreatedAt = createdAt
	state.UpdatedAt = now
	log.Debug("review state saved",
		slog.String("user_id", userID.String()),
		slog.String("question_id", state.QuestionID),
		slog.Int("interval_days", state.IntervalDays))
	return nil
}

// ListByUser implements store.ReviewStateStore.ListByUser
func (s *PostgresReviewStateStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.ReviewState, error) {
	return s.list(ctx, userID, selectReviewState+` WHERE user_id = $1 ORDER BY question_id`, userID)
}

// ListDue implements store.ReviewStateStore.ListDue
func (s *PostgresReviewStateStore) ListDue(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
) ([]*domain.ReviewState, error) {
	query := selectReviewState + ` WHERE user_id = $1 AND next_review_at <= $2 ORDER BY next_review_at, question_id`
	return s.list(ctx, userID, query, userID, now.UTC())
}

func (s *PostgresReviewStateStore) list(
	ctx context.Context,
	userID uuid.UUID,
	query string,
	args ...any,
) ([]*domain.ReviewState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list review states",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var states []*domain.ReviewState
	for rows.Next() {
		st, err := scanReviewState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review state: %w", err)
		}
		states = append(states, st)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return states, nil
}
