package auth

import (
	"testing"
	"time"

	"careshare-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestIssueAndParse(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	user := &models.User{ID: 42, Email: "asha@example.com", IsAdmin: true}

	tok, err := m.Issue(user)
	require.NoError(t, err)
	assert.NotEmpty(t, tok.Token)

	claims, err := m.Parse(tok.Token)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)
	assert.Greater(t, claims.Remaining(), 59*time.Minute)

	identity, err := claims.Identity()
	require.NoError(t, err)
	assert.Equal(t, models.Identity{UserID: 42, Email: "asha@example.com", IsAdmin: true}, identity)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	tok, err := NewTokenManager("one", time.Hour).Issue(&models.User{ID: 1})
	require.NoError(t, err)

	_, err = NewTokenManager("two", time.Hour).Parse(tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpired(t *testing.T) {
	m := NewTokenManager("secret", time.Minute)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	tok, err := m.Issue(&models.User{ID: 1})
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Parse(tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "s3cret!"))
	assert.False(t, VerifyPassword(hash, "wrong"))
}
