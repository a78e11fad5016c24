package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/qbank-api/internal/domain"
	"github.com/phrazzld/qbank-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	ledger  *Ledger
	local   *LocalRepository
	remotes map[uuid.UUID]*memRepo
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newFixture builds a ledger with inline remote writes and a ticking clock.
func newFixture(t *testing.T, tasks task.TaskQueueWriter) *fixture {
	t.Helper()
	f := &fixture{
		local:   NewLocalRepository(newMemBlobs(), "session", quietLogger()),
		remotes: map[uuid.UUID]*memRepo{},
	}
	var tick atomic.Int64
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	f.ledger = New(Deps{
		Local: f.local,
		Remote: func(userID uuid.UUID) Repository {
			r, ok := f.remotes[userID]
			if !ok {
				r = newMemRepo()
				f.remotes[userID] = r
			}
			return r
		},
		Tasks:  tasks,
		Logger: quietLogger(),
		Clock:  func() time.Time { return base.Add(time.Duration(tick.Add(1)) * time.Second) },
	})
	return f
}

func (f *fixture) remote(userID uuid.UUID) *memRepo {
	r, ok := f.remotes[userID]
	if !ok {
		r = newMemRepo()
		f.remotes[userID] = r
	}
	return r
}

func record(t *testing.T, l *Ledger, id, section, sub, selected, correct string) *domain.QuestionResponse {
	t.Helper()
	r, err := l.RecordResponse(context.Background(), RecordInput{
		QuestionID:     id,
		SectionID:      section,
		SubsectionID:   sub,
		SelectedAnswer: selected,
		CorrectAnswer:  correct,
	})
	require.NoError(t, err)
	return r
}

func TestNew_RequiresDeps(t *testing.T) {
	assert.Panics(t, func() { New(Deps{Remote: func(uuid.UUID) Repository { return newMemRepo() }}) })
	assert.Panics(t, func() { New(Deps{Local: newMemRepo()}) })
}

func TestRecordResponse_Correctness(t *testing.T) {
	tests := []struct {
		selected, correct string
		want              bool
	}{
		{"B", "B", true},
		{"b", "B", true},
		{"B", "b", true},
		{" c ", "C", true},
		{"A", "C", false},
		{"f", "e", false},
	}
	for _, tt := range tests {
		t.Run(tt.selected+"_"+tt.correct, func(t *testing.T) {
			f := newFixture(t, nil)
			r := record(t, f.ledger, "q1", "s", "a", tt.selected, tt.correct)
			assert.Equal(t, tt.want, r.IsCorrect)
			assert.Positive(t, r.Timestamp)
		})
	}
}

func TestRecordResponse_ValidationBeforePersistence(t *testing.T) {
	tests := []struct {
		name  string
		input RecordInput
		want  error
	}{
		{"empty question", RecordInput{SectionID: "s", SubsectionID: "a", SelectedAnswer: "A", CorrectAnswer: "A"}, domain.ErrEmptyQuestionID},
		{"blank section", RecordInput{QuestionID: "q", SectionID: "  ", SubsectionID: "a", SelectedAnswer: "A", CorrectAnswer: "A"}, domain.ErrEmptySectionID},
		{"empty subsection", RecordInput{QuestionID: "q", SectionID: "s", SelectedAnswer: "A", CorrectAnswer: "A"}, domain.ErrEmptySubsectionID},
		{"bad selected letter", RecordInput{QuestionID: "q", SectionID: "s", SubsectionID: "a", SelectedAnswer: "G", CorrectAnswer: "A"}, domain.ErrInvalidAnswer},
		{"missing correct answer", RecordInput{QuestionID: "q", SectionID: "s", SubsectionID: "a", SelectedAnswer: "A"}, domain.ErrInvalidAnswer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			_, err := f.ledger.RecordResponse(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, domain.IsValidationError(err))

			list, err := f.local.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestRecordResponse_MostRecentWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	record(t, f.ledger, "q1", "s", "a", "A", "B")
	record(t, f.ledger, "q1", "s", "a", "B", "B")

	list, err := f.local.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "B", list[0].SelectedAnswer)
	assert.True(t, list[0].IsCorrect)

	got, ok, err := f.ledger.GetResponse(ctx, "q1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "B", got.SelectedAnswer)
}

func TestGetResponse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, ok, err := f.ledger.GetResponse(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = f.ledger.GetResponse(ctx, " ")
	assert.ErrorIs(t, err, domain.ErrEmptyQuestionID)
}

func TestGetStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	st, err := f.ledger.GetStats(ctx, "s", "a", 40)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 40}, st)

	record(t, f.ledger, "q1", "s", "a", "A", "A")
	record(t, f.ledger, "q2", "s", "a", "B", "A")
	record(t, f.ledger, "q3", "s", "a", "C", "C")
	record(t, f.ledger, "q4", "s", "b", "C", "A")

	st, err = f.ledger.GetStats(ctx, "s", "a", 40)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 40, Answered: 3, Correct: 2, Incorrect: 1}, st)

	_, err = f.ledger.GetStats(ctx, "s", "a", -1)
	assert.ErrorIs(t, err, domain.ErrNegativeTotal)
	_, err = f.ledger.GetStats(ctx, "", "a", 1)
	assert.ErrorIs(t, err, domain.ErrEmptySectionID)
}

func TestIncorrectAndUnansweredIDs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	record(t, f.ledger, "q3", "s", "a", "B", "A")
	record(t, f.ledger, "q1", "s", "a", "C", "A")
	record(t, f.ledger, "q2", "s", "a", "A", "A")
	record(t, f.ledger, "q9", "s", "b", "D", "A")

	ids, err := f.ledger.GetIncorrectIDs(ctx, "s", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "q3"}, ids)

	all, err := f.ledger.AllIncorrectIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "q3", "q9"}, all)

	unanswered, err := f.ledger.GetUnansweredIDs(ctx, "s", "a", []string{"q5", "q1", "q4", "q2", "q9"})
	require.NoError(t, err)
	assert.Equal(t, []string{"q5", "q4", "q9"}, unanswered)

	empty, err := f.ledger.GetIncorrectIDs(ctx, "other", "x")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestSummaries(t *testing.T) {
	f := newFixture(t, nil)
	record(t, f.ledger, "q1", "s2", "a", "A", "A")
	record(t, f.ledger, "q2", "s1", "b", "A", "B")
	record(t, f.ledger, "q3", "s1", "a", "A", "A")
	record(t, f.ledger, "q4", "s1", "a", "C", "A")

	got, err := f.ledger.Summaries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []SubsectionSummary{
		{SectionID: "s1", SubsectionID: "a", Answered: 2, Correct: 1, Incorrect: 1},
		{SectionID: "s1", SubsectionID: "b", Answered: 1, Correct: 0, Incorrect: 1},
		{SectionID: "s2", SubsectionID: "a", Answered: 1, Correct: 1, Incorrect: 0},
	}, got)
}

func TestAnonymousAnswerThenLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	user := uuid.New()

	record(t, f.ledger, "q1", "s", "a", "B", "B")

	local, err := f.local.List(ctx)
	require.NoError(t, err)
	require.Len(t, local, 1)
	assert.True(t, local[0].IsCorrect)
	assert.Equal(t, SyncNotStarted, f.ledger.SyncState())

	res := f.ledger.Authenticate(ctx, user)
	assert.True(t, res.Ran)
	assert.NoError(t, res.Err)
	assert.Equal(t, 1, res.Uploaded)
	assert.Equal(t, SyncDone, f.ledger.SyncState())

	remoteCopy, err := f.remote(user).Get(ctx, "q1")
	require.NoError(t, err)
	assert.True(t, remoteCopy.IsCorrect)

	got, ok, err := f.ledger.GetResponse(ctx, "q1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.IsCorrect)

	_, source := f.ledger.Responses(ctx)
	assert.Equal(t, SourceRemote, source)
}

func TestReconcile_UploadsOnlyMissingInOneBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	user := uuid.New()

	record(t, f.ledger, "q1", "s", "a", "A", "A")
	record(t, f.ledger, "q2", "s", "a", "B", "A")
	record(t, f.ledger, "q3", "s", "a", "C", "A")

	// remote already knows q2 with a different answer; it stays authoritative
	remote := f.remote(user)
	remote.items["q2"] = resp("q2", "s", "a", "A", "A", 1)

	res := f.ledger.Authenticate(ctx, user)
	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.Uploaded)
	assert.Equal(t, 1, remote.batchCalls)
	assert.Equal(t, []int{2}, remote.batchSizes)

	r, err := remote.Get(ctx, "q2")
	require.NoError(t, err)
	assert.Equal(t, "A", r.SelectedAnswer)
}

func TestReconcile_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	user := uuid.New()

	record(t, f.ledger, "q1", "s", "a", "A", "A")
	record(t, f.ledger, "q2", "s", "a", "B", "A")

	first := f.ledger.Authenticate(ctx, user)
	require.Equal(t, 2, first.Uploaded)

	// same user again: nothing happens at all
	again := f.ledger.Authenticate(ctx, user)
	assert.False(t, again.Ran)

	// a fresh pass with unchanged data uploads nothing
	f.ledger.Logout(ctx)
	assert.Equal(t, SyncNotStarted, f.ledger.SyncState())
	second := f.ledger.Authenticate(ctx, user)
	assert.True(t, second.Ran)
	assert.Zero(t, second.Uploaded)

	remote := f.remote(user)
	assert.Equal(t, 1, remote.batchCalls)
	assert.Equal(t, 2, remote.len())
}

func TestReconcile_FailureStillCompletes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	user := uuid.New()
	remote := f.remote(user)
	remote.listErr = errors.New("remote unavailable")

	record(t, f.ledger, "q1", "s", "a", "A", "A")

	res := f.ledger.Authenticate(ctx, user)
	assert.True(t, res.Ran)
	assert.Error(t, res.Err)
	assert.Equal(t, SyncDone, f.ledger.SyncState())

	// no retry within the session
	assert.False(t, f.ledger.Reconcile(ctx).Ran)
	assert.Zero(t, remote.batchCalls)

	// reads fall back to local when the remote read fails
	got, ok, err := f.ledger.GetResponse(ctx, "q1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A", got.SelectedAnswer)
}

func TestAuthenticate_DifferentUserResetsState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	alice, bob := uuid.New(), uuid.New()

	f.ledger.Authenticate(ctx, alice)
	record(t, f.ledger, "q1", "s", "a", "A", "A")

	res := f.ledger.Authenticate(ctx, bob)
	assert.True(t, res.Ran)
	assert.Equal(t, SyncDone, f.ledger.SyncState())

	st := f.ledger.Status()
	assert.True(t, st.Authenticated)
	assert.Equal(t, bob.String(), st.UserID)

	id, err := f.ledger.UserID()
	require.NoError(t, err)
	assert.Equal(t, bob, id)

	f.ledger.Logout(ctx)
	_, err = f.ledger.UserID()
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.False(t, f.ledger.Status().Authenticated)
}

func TestAuthenticate_DifferentUserDoesNotInheritAnswers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	alice, bob := uuid.New(), uuid.New()

	f.ledger.Authenticate(ctx, alice)
	record(t, f.ledger, "q1", "s", "a", "C", "A")
	require.Equal(t, 1, f.remote(alice).len())

	res := f.ledger.Authenticate(ctx, bob)
	require.NoError(t, res.Err)
	assert.Zero(t, res.Uploaded)

	bobRemote := f.remote(bob)
	assert.Zero(t, bobRemote.len())
	assert.Zero(t, bobRemote.batchCalls)

	_, ok, err := f.ledger.GetResponse(ctx, "q1")
	require.NoError(t, err)
	assert.False(t, ok)

	ids, err := f.ledger.AllIncorrectIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	local, err := f.local.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, local)

	// alice's own copy is untouched
	assert.Equal(t, 1, f.remote(alice).len())
}

func TestLogout_ClearsSignedInAnswers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	alice, bob := uuid.New(), uuid.New()

	f.ledger.Authenticate(ctx, alice)
	record(t, f.ledger, "q1", "s", "a", "B", "B")
	f.ledger.Logout(ctx)

	list, source := f.ledger.Responses(ctx)
	assert.Equal(t, SourceLocal, source)
	assert.Empty(t, list)

	// answers given anonymously after logout still belong to whoever signs in next
	record(t, f.ledger, "q2", "s", "a", "A", "A")
	res := f.ledger.Authenticate(ctx, bob)
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Uploaded)

	_, err := f.remote(bob).Get(ctx, "q1")
	assert.Error(t, err)
	got, err := f.remote(bob).Get(ctx, "q2")
	require.NoError(t, err)
	assert.True(t, got.IsCorrect)
}

func TestScopedOperations_TrimIdentifiers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	record(t, f.ledger, "q1", "sA", "subA", "A", "A")
	record(t, f.ledger, "q2", "sA", "subA", "B", "A")

	st, err := f.ledger.GetStats(ctx, " sA ", "\tsubA ", 5)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 5, Answered: 2, Correct: 1, Incorrect: 1}, st)

	ids, err := f.ledger.GetIncorrectIDs(ctx, " sA", "subA ")
	require.NoError(t, err)
	assert.Equal(t, []string{"q2"}, ids)

	unanswered, err := f.ledger.GetUnansweredIDs(ctx, "sA ", " subA", []string{"q1", "q3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"q3"}, unanswered)

	require.NoError(t, f.ledger.ResetSubsection(ctx, " sA ", " subA "))
	_, ok, err := f.ledger.GetResponse(ctx, "q1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.ledger.GetStats(ctx, "  ", "subA", 1)
	assert.ErrorIs(t, err, domain.ErrEmptySectionID)
}

func TestReads_PreferRemoteOnlyWhenNonEmpty(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	user := uuid.New()
	remote := f.remote(user)
	// remote rejects the upload, so it stays empty after reconciliation
	remote.batchErr = errors.New("write rejected")

	record(t, f.ledger, "q1", "s", "a", "A", "A")
	f.ledger.Authenticate(ctx, user)

	_, source := f.ledger.Responses(ctx)
	assert.Equal(t, SourceLocal, source)

	remote.items["q7"] = resp("q7", "s", "a", "B", "A", 1)
	list, source := f.ledger.Responses(ctx)
	assert.Equal(t, SourceRemote, source)
	// the session overlay keeps q1 visible on top of the remote copy
	require.Len(t, list, 2)
	assert.Equal(t, "q1", list[0].QuestionID)
}

func TestRemoteWriteFailure_StaysVisible(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	user := uuid.New()
	remote := f.remote(user)
	remote.items["q0"] = resp("q0", "s", "a", "A", "A", 1)

	f.ledger.Authenticate(ctx, user)
	remote.putErr = errors.New("network down")

	r, err := f.ledger.RecordResponse(ctx, RecordInput{
		QuestionID: "q5", SectionID: "s", SubsectionID: "a", SelectedAnswer: "D", CorrectAnswer: "D",
	})
	require.NoError(t, err)
	assert.True(t, r.IsCorrect)

	got, ok, err := f.ledger.GetResponse(ctx, "q5")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "D", got.SelectedAnswer)

	_, err = remote.Get(ctx, "q5")
	assert.Error(t, err)
}

func TestResetSubsection_LeavesOtherSubsections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	user := uuid.New()
	f.ledger.Authenticate(ctx, user)

	record(t, f.ledger, "q1", "sectionA", "subA", "A", "A")
	record(t, f.ledger, "q2", "sectionA", "subA", "B", "A")
	record(t, f.ledger, "q3", "sectionA", "subB", "C", "A")

	require.NoError(t, f.ledger.ResetSubsection(ctx, "sectionA", "subA"))

	for _, id := range []string{"q1", "q2"} {
		_, ok, err := f.ledger.GetResponse(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok, id)
	}
	_, ok, err := f.ledger.GetResponse(ctx, "q3")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, 1, f.remote(user).len())
	local, err := f.local.List(ctx)
	require.NoError(t, err)
	require.Len(t, local, 1)
	assert.Equal(t, "q3", local[0].QuestionID)

	assert.ErrorIs(t, f.ledger.ResetSubsection(ctx, "sectionA", ""), domain.ErrEmptySubsectionID)
}

func TestResetAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	user := uuid.New()

	record(t, f.ledger, "q1", "s", "a", "A", "A")
	f.ledger.Authenticate(ctx, user)
	record(t, f.ledger, "q2", "s", "b", "A", "A")

	require.NoError(t, f.ledger.ResetAll(ctx))

	list, _ := f.ledger.Responses(ctx)
	assert.Empty(t, list)
	assert.Zero(t, f.remote(user).len())
}

func TestBackgroundWrites_ResetWaitsForInflight(t *testing.T) {
	ctx := context.Background()
	queue := task.NewTaskQueue(10, quietLogger())
	pool := task.NewWorkerPool(queue, task.WorkerPoolConfig{WorkerCount: 1}, quietLogger())
	pool.Start()
	t.Cleanup(pool.Stop)

	f := newFixture(t, queue)
	user := uuid.New()
	f.ledger.Authenticate(ctx, user)

	remote := f.remote(user)
	gate := make(chan struct{})
	remote.mu.Lock()
	remote.putGate = gate
	remote.mu.Unlock()

	record(t, f.ledger, "q1", "s", "a", "A", "A")

	resetDone := make(chan error, 1)
	go func() { resetDone <- f.ledger.ResetAll(ctx) }()

	select {
	case <-resetDone:
		t.Fatal("reset finished before the pending write")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate)
	select {
	case err := <-resetDone:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reset did not finish after the write completed")
	}

	assert.Equal(t, []string{"put:q1", "delete_all"}, remote.Ops())
	assert.Zero(t, remote.len())
}

func TestBackgroundWrites_QueueFullDropsRemoteWrite(t *testing.T) {
	ctx := context.Background()
	queue := task.NewTaskQueue(1, quietLogger())
	// no workers: the first task fills the queue
	f := newFixture(t, queue)
	user := uuid.New()
	f.ledger.Authenticate(ctx, user)

	record(t, f.ledger, "q1", "s", "a", "A", "A")
	record(t, f.ledger, "q2", "s", "a", "A", "A")

	// q2 was dropped, so only one write is pending
	queue.Close()
	pool := task.NewWorkerPool(queue, task.WorkerPoolConfig{WorkerCount: 1}, quietLogger())
	pool.Start()
	drainCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(drainCtx))
	require.NoError(t, f.ledger.Flush(drainCtx))

	remote := f.remote(user)
	_, err := remote.Get(ctx, "q1")
	assert.NoError(t, err)
	_, err = remote.Get(ctx, "q2")
	assert.Error(t, err)

	// the dropped answer is still served for the session
	_, ok, err := f.ledger.GetResponse(ctx, "q2")
	require.NoError(t, err)
	assert.True(t, ok)
}
