package review

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/qbank-api/internal/domain"
	"github.com/phrazzld/qbank-api/internal/domain/srs"
	"github.com/phrazzld/qbank-api/internal/platform/logger"
	"github.com/phrazzld/qbank-api/internal/store"
)

// Verify interface compliance at compile time
var _ ReviewService = (*reviewServiceImpl)(nil)

type reviewServiceImpl struct {
	states     store.ReviewStateStore
	db         *sql.DB
	srsService srs.Service
	logger     *slog.Logger
	now        func() time.Time
}

// NewReviewService creates a new ReviewService implementation.
// db opens the transactions states joins through WithTx.
// A nil clock means time.Now.
func NewReviewService(
	states store.ReviewStateStore,
	db *sql.DB,
	srsService srs.Service,
	logger *slog.Logger,
	clock func() time.Time,
) ReviewService {
	if states == nil {
		panic("states cannot be nil")
	}
	if db == nil {
		panic("db cannot be nil")
	}
	if srsService == nil {
		panic("srsService cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = time.Now
	}
	return &reviewServiceImpl{
		states:     states,
		db:         db,
		srsService: srsService,
		logger:     logger.With(slog.String("component", "review_service")),
		now:        clock,
	}
}

// UpdateSchedule implements ReviewService.UpdateSchedule.
func (s *reviewServiceImpl) UpdateSchedule(
	ctx context.Context,
	userID uuid.UUID,
	in UpdateInput,
) (*domain.ReviewState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	ref, err := domain.NewQuestionRef(in.QuestionID, in.SectionID, in.SubsectionID)
	if err != nil {
		return nil, err
	}
	if !in.Quality.Valid() {
		return nil, domain.ErrInvalidQuality
	}

	now := s.now().UTC()
	var updated *domain.ReviewState

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		states := s.states.WithTx(tx)

		current, err := states.GetForUpdate(ctx, userID, ref.QuestionID)
		switch {
		case errors.Is(err, store.ErrReviewStateNotFound):
			current = s.srsService.InitialState(ref)
		case err != nil:
			return newUpdateScheduleError("failed to load review state", err)
		default:
			// a question moved between subsections keeps its history
			current.QuestionRef = ref
		}

		next, err := s.srsService.CalculateNextReview(current, in.Quality, now)
		if err != nil {
			return err
		}
		if err := states.Upsert(ctx, userID, next); err != nil {
			return newUpdateScheduleError("failed to save review state", err)
		}
		updated = next
		return nil
	})
	if err != nil {
		log.Error("failed to update review schedule",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("question_id", ref.QuestionID))
		var svcErr *ServiceError
		if errors.As(err, &svcErr) || domain.IsValidationError(err) {
			return nil, err
		}
		return nil, newUpdateScheduleError("transaction failed", err)
	}

	log.Info("review scheduled",
		slog.String("user_id", userID.String()),
		slog.String("question_id", ref.QuestionID),
		slog.Int("quality", int(in.Quality)),
		slog.Int("repetitions", updated.RepetitionCount),
		slog.Int("interval_days", updated.IntervalDays),
		slog.Time("next_review_at", updated.NextReviewAt))
	return updated, nil
}

// GetDueQuestions implements ReviewService.GetDueQuestions.
func (s *reviewServiceImpl) GetDueQuestions(
	ctx context.Context,
	userID uuid.UUID,
	incorrect IncorrectSource,
) (*DueQuestions, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	due, err := s.states.ListDue(ctx, userID, s.now().UTC())
	if err != nil {
		return nil, newGetDueError("failed to list due states", err)
	}
	all, err := s.states.ListByUser(ctx, userID)
	if err != nil {
		return nil, newGetDueError("failed to list review states", err)
	}

	out := &DueQuestions{
		Due:                  make([]*domain.ReviewState, 0, len(due)),
		ReviewedQuestionIDs:  make([]string, 0, len(all)),
		IncorrectQuestionIDs: []string{},
	}
	out.Due = append(out.Due, due...)
	for _, st := range all {
		out.ReviewedQuestionIDs = append(out.ReviewedQuestionIDs, st.QuestionID)
	}

	if incorrect != nil {
		ids, err := incorrect.AllIncorrectIDs(ctx)
		if err != nil {
			log.Warn("incorrect answers unavailable", slog.String("error", err.Error()))
		} else if ids != nil {
			out.IncorrectQuestionIDs = ids
		}
	}

	log.Debug("due questions assembled",
		slog.String("user_id", userID.String()),
		slog.Int("due", len(out.Due)),
		slog.Int("reviewed", len(out.ReviewedQuestionIDs)),
		slog.Int("incorrect", len(out.IncorrectQuestionIDs)))
	return out, nil
}
