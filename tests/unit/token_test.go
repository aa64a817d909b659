package unit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"library-lending-backend/internal/domain"
	"library-lending-backend/internal/security"
)

const testSecret = "unit-test-secret-that-is-long-enough-32"

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := security.NewTokenManager(testSecret)

	token, err := tm.GenerateToken(42, domain.RoleLibrarian, time.Hour)
	assert.NoError(t, err)

	caller, err := tm.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, int32(42), caller.UserID)
	assert.Equal(t, domain.RoleLibrarian, caller.Role)
	assert.True(t, caller.Role.IsOverseer())
}

func TestTokenManager_Expired(t *testing.T) {
	tm := security.NewTokenManager(testSecret)

	token, err := tm.GenerateToken(42, domain.RoleStudent, -time.Minute)
	assert.NoError(t, err)

	caller, err := tm.ValidateToken(token)
	assert.ErrorIs(t, err, security.ErrExpiredToken)
	assert.Nil(t, caller)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	tm := security.NewTokenManager(testSecret)
	other := security.NewTokenManager("a-different-secret-that-is-also-32-chars")

	token, err := other.GenerateToken(42, domain.RoleStudent, time.Hour)
	assert.NoError(t, err)

	caller, err := tm.ValidateToken(token)
	assert.ErrorIs(t, err, security.ErrInvalidToken)
	assert.Nil(t, caller)
}

func TestTokenManager_Garbage(t *testing.T) {
	tm := security.NewTokenManager(testSecret)

	caller, err := tm.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, security.ErrInvalidToken)
	assert.Nil(t, caller)
}
