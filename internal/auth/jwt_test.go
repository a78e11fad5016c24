package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/qbank-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret  = "test-secret-that-is-long-enough-for-testing"
	wrongSecret = "wrong-secret-that-is-long-enough-for-testing"
)

var fixedTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func fixedService(t *testing.T, secret string, at time.Time) *JWTService {
	t.Helper()
	svc, err := newJWTService(secret, time.Hour, func() time.Time { return at })
	require.NoError(t, err)
	return svc
}

func TestNewJWTService(t *testing.T) {
	t.Parallel()

	_, err := NewJWTService(config.AuthConfig{JWTSecret: "short", TokenLifetimeMinutes: 60})
	assert.Error(t, err)

	_, err = NewJWTService(config.AuthConfig{JWTSecret: testSecret, TokenLifetimeMinutes: 0})
	assert.Error(t, err)

	svc, err := NewJWTService(config.AuthConfig{JWTSecret: testSecret, TokenLifetimeMinutes: 60})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, svc.tokenLifetime)
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()
	svc := fixedService(t, testSecret, fixedTime)
	userID := uuid.New()

	token, err := svc.GenerateToken(context.Background(), userID)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, fixedTime.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, fixedTime.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)

	_, err = svc.GenerateToken(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, ErrMissingSubject)
}

func signRaw(t *testing.T, claims jwt.Claims, method jwt.SigningMethod, key interface{}) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestValidateToken(t *testing.T) {
	t.Parallel()
	userID := uuid.New()
	issuer := fixedService(t, testSecret, fixedTime)
	valid, err := issuer.GenerateToken(context.Background(), userID)
	require.NoError(t, err)

	subjectOnly := signRaw(t, jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
	}, jwt.SigningMethodHS256, []byte(testSecret))

	noUser := signRaw(t, jwt.RegisteredClaims{
		Subject:   "not-a-uuid",
		ExpiresAt: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
	}, jwt.SigningMethodHS256, []byte(testSecret))

	noExpiry := signRaw(t, jwt.RegisteredClaims{
		Subject: userID.String(),
	}, jwt.SigningMethodHS256, []byte(testSecret))

	future := signRaw(t, jwt.RegisteredClaims{
		Subject:   userID.String(),
		NotBefore: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
		ExpiresAt: jwt.NewNumericDate(fixedTime.Add(2 * time.Hour)),
	}, jwt.SigningMethodHS256, []byte(testSecret))

	hs512 := signRaw(t, jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
	}, jwt.SigningMethodHS512, []byte(testSecret))

	tests := []struct {
		name     string
		svc      *JWTService
		token    string
		wantErr  error
		wantUser uuid.UUID
	}{
		{"valid", issuer, valid, nil, userID},
		{"subject fallback", issuer, subjectOnly, nil, userID},
		{"within clock skew", fixedService(t, testSecret, fixedTime.Add(time.Hour+time.Minute)), valid, nil, userID},
		{"expired", fixedService(t, testSecret, fixedTime.Add(2*time.Hour)), valid, ErrExpiredToken, uuid.Nil},
		{"not yet valid", issuer, future, ErrTokenNotYetValid, uuid.Nil},
		{"wrong secret", fixedService(t, wrongSecret, fixedTime), valid, ErrInvalidToken, uuid.Nil},
		{"malformed", issuer, "not.a.token", ErrInvalidToken, uuid.Nil},
		{"empty", issuer, "", ErrInvalidToken, uuid.Nil},
		{"no user", issuer, noUser, ErrMissingSubject, uuid.Nil},
		{"no expiry", issuer, noExpiry, ErrInvalidToken, uuid.Nil},
		{"other algorithm", issuer, hs512, ErrInvalidToken, uuid.Nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			claims, err := tc.svc.ValidateToken(context.Background(), tc.token)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantUser, claims.UserID)
		})
	}
}
