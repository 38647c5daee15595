package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier("0123456789abcdef0123456789abcdef", "adaptlearn")
	require.NoError(t, err)
	return v
}

func TestNewVerifier_EmptySecret(t *testing.T) {
	_, err := NewVerifier("", "x")
	assert.Error(t, err)
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	v := newTestVerifier(t)

	for _, role := range []string{RoleStudent, RoleInstructor, RoleAdmin} {
		tok, err := v.Issue("user-1", role)
		require.NoError(t, err)

		id, err := v.Verify(tok)
		require.NoError(t, err)
		assert.Equal(t, Identity{UserID: "user-1", Role: role}, id)
	}
}

func TestIssue_Rejects(t *testing.T) {
	v := newTestVerifier(t)

	_, err := v.Issue("", RoleStudent)
	assert.Error(t, err)
	_, err = v.Issue("u", "superuser")
	assert.Error(t, err)
}

func TestVerify_Failures(t *testing.T) {
	v := newTestVerifier(t)
	good, err := v.Issue("user-1", RoleStudent)
	require.NoError(t, err)

	other, err := NewVerifier("another-secret-another-secret-xx", "adaptlearn")
	require.NoError(t, err)
	foreign, err := other.Issue("user-1", RoleAdmin)
	require.NoError(t, err)

	wrongIssuer, err := NewVerifier("0123456789abcdef0123456789abcdef", "someone-else")
	require.NoError(t, err)
	misissued, err := wrongIssuer.Issue("user-1", RoleAdmin)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		Role:             RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", Issuer: "adaptlearn"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"tampered", good + "x"},
		{"wrong secret", foreign},
		{"wrong issuer", misissued},
		{"alg none", none},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			assert.ErrorIs(t, err, ErrUnauthenticated)
		})
	}
}

func TestVerify_Expired(t *testing.T) {
	v := newTestVerifier(t)
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	v.now = func() time.Time { return issued }

	tok, err := v.Issue("user-1", RoleStudent)
	require.NoError(t, err)

	v.now = func() time.Time { return issued.Add(DefaultTTL + time.Minute) }
	_, err = v.Verify(tok)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestIdentity_IsStaff(t *testing.T) {
	assert.False(t, Identity{Role: RoleStudent}.IsStaff())
	assert.True(t, Identity{Role: RoleInstructor}.IsStaff())
	assert.True(t, Identity{Role: RoleAdmin}.IsStaff())
}
