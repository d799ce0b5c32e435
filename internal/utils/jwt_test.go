package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractUserID(t *testing.T) {
	svc := NewJWTService("secret")
	userID := uuid.New()

	token, err := svc.GenerateToken(userID)
	require.NoError(t, err)

	got, err := svc.ExtractUserID(token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestExtractUserIDRejectsForeignSignature(t *testing.T) {
	token, err := NewJWTService("other").GenerateToken(uuid.New())
	require.NoError(t, err)

	_, err = NewJWTService("secret").ExtractUserID(token)
	assert.Error(t, err)
}

func TestExtractUserIDRejectsExpired(t *testing.T) {
	claims := jwt.MapClaims{
		"user_id": uuid.New().String(),
		"exp":     time.Now().Add(-time.Minute).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewJWTService("secret").ExtractUserID(token)
	assert.Error(t, err)
}

func TestExtractUserIDRejectsNonUUID(t *testing.T) {
	claims := jwt.MapClaims{"user_id": "42", "exp": time.Now().Add(time.Hour).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewJWTService("secret").ExtractUserID(token)
	assert.Error(t, err)
}
