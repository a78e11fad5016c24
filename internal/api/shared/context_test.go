package shared

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	traced := SetTraceID(ctx)
	id := GetTraceID(traced)
	assert.Len(t, id, TraceIDLength)
	_, err := hex.DecodeString(id)
	require.NoError(t, err)

	assert.Empty(t, GetTraceID(ctx), "parent context is unchanged")
	assert.NotEqual(t, id, GetTraceID(SetTraceID(ctx)))

	wrongType := context.WithValue(ctx, TraceIDKey, 123)
	assert.Empty(t, GetTraceID(wrongType))
}

func TestUserAndSession(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, uuid.Nil, GetUserID(ctx))
	assert.Empty(t, GetSessionID(ctx))
	assert.Nil(t, GetLedger(ctx))

	userID := uuid.New()
	ctx = WithSessionID(WithUserID(ctx, userID), "s1")
	assert.Equal(t, userID, GetUserID(ctx))
	assert.Equal(t, "s1", GetSessionID(ctx))
}
