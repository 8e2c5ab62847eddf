package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAdminOrStaff(t *testing.T) {
	testCases := []struct {
		name string
		id   *Identity
		want bool
	}{
		{name: "anonymous", id: nil, want: false},
		{name: "plain user", id: &Identity{Subject: "u1"}, want: false},
		{name: "staff", id: &Identity{Subject: "u2", IsStaff: true}, want: true},
		{name: "superuser", id: &Identity{Subject: "u3", IsSuperuser: true}, want: true},
		{name: "both", id: &Identity{Subject: "u4", IsSuperuser: true, IsStaff: true}, want: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsAdminOrStaff(tc.id))
		})
	}
}

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)

	token, err := m.Issue("alice", false, true)
	require.NoError(t, err)

	id, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", id.Subject)
	assert.True(t, id.IsStaff)
	assert.False(t, id.IsSuperuser)
}

func TestTokenManager_Parse_Missing(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)

	_, err := m.Parse("")
	assert.True(t, errors.Is(err, ErrMissingToken))
}

func TestTokenManager_Parse_WrongSecret(t *testing.T) {
	token, err := NewTokenManager("other", time.Hour).Issue("mallory", true, true)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", time.Hour).Parse(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestTokenManager_Parse_Expired(t *testing.T) {
	m := NewTokenManager("secret", time.Minute)
	m.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := m.Issue("bob", true, false)
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Parse(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestTokenManager_Parse_RejectsNoneAlgorithm(t *testing.T) {
	claims := Claims{IsSuperuser: true, RegisteredClaims: jwt.RegisteredClaims{Subject: "eve"}}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", time.Hour).Parse(unsigned)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}
