package ledger

import (
	"context"
	"testing"

	"github.com/phrazzld/qbank-api/internal/domain"
	"github.com/phrazzld/qbank-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resp(id, section, sub, selected, correct string, ts int64) *domain.QuestionResponse {
	return &domain.QuestionResponse{
		QuestionRef:    domain.QuestionRef{QuestionID: id, SectionID: section, SubsectionID: sub},
		SelectedAnswer: selected,
		CorrectAnswer:  correct,
		IsCorrect:      selected == correct,
		Timestamp:      ts,
	}
}

func TestLocalRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	blobs := newMemBlobs()
	repo := NewLocalRepository(blobs, "session-1", nil)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, repo.PutBatch(ctx, []*domain.QuestionResponse{
		resp("q2", "s", "a", "A", "B", 2),
		resp("q1", "s", "a", "B", "B", 1),
	}))
	require.NoError(t, repo.Put(ctx, resp("q1", "s", "a", "C", "B", 3)))

	list, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "q1", list[0].QuestionID)
	assert.Equal(t, "C", list[0].SelectedAnswer)

	got, err := repo.Get(ctx, "q2")
	require.NoError(t, err)
	assert.False(t, got.IsCorrect)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrResponseNotFound)

	// other namespaces are untouched by this session
	other := NewLocalRepository(blobs, "session-2", nil)
	list, err = other.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestLocalRepository_RejectsInvalid(t *testing.T) {
	repo := NewLocalRepository(newMemBlobs(), "s", nil)
	err := repo.Put(context.Background(), resp("", "s", "a", "A", "A", 1))
	assert.ErrorIs(t, err, domain.ErrEmptyQuestionID)
}

func TestLocalRepository_DropsCorruptEntries(t *testing.T) {
	ctx := context.Background()
	blobs := newMemBlobs()
	require.NoError(t, blobs.Set(ctx, "s", ResponsesKey, []byte(`{
		"q1": {"question_id":"q1","section_id":"s","subsection_id":"a","selected_answer":"B","correct_answer":"B","is_correct":true,"timestamp":5},
		"q2": {"question_id":"q2","section_id":"s","subsection_id":"a","selected_answer":"Q","correct_answer":"B","is_correct":false,"timestamp":5},
		"q3": {"question_id":"other","section_id":"s","subsection_id":"a","selected_answer":"A","correct_answer":"B","is_correct":false,"timestamp":5}
	}`)))

	list, err := NewLocalRepository(blobs, "s", nil).List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "q1", list[0].QuestionID)

	require.NoError(t, blobs.Set(ctx, "broken", ResponsesKey, []byte(`not json`)))
	list, err = NewLocalRepository(blobs, "broken", nil).List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestLocalRepository_Deletes(t *testing.T) {
	ctx := context.Background()
	repo := NewLocalRepository(newMemBlobs(), "s", nil)
	require.NoError(t, repo.PutBatch(ctx, []*domain.QuestionResponse{
		resp("q1", "sectionA", "subA", "A", "A", 1),
		resp("q2", "sectionA", "subB", "A", "A", 1),
		resp("q3", "sectionB", "subA", "A", "A", 1),
	}))

	require.NoError(t, repo.DeleteSubsection(ctx, "sectionA", "subA"))
	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []string{"q2", "q3"}, []string{list[0].QuestionID, list[1].QuestionID})

	require.NoError(t, repo.DeleteAll(ctx))
	list, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
