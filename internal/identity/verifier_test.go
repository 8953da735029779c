package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestVerifyRoundTrip(t *testing.T) {
	tok, err := Sign(secret, Identity{UserID: "user-1", Email: "a@example.com", Role: "customer"}, "idp", "", time.Minute)
	require.NoError(t, err)

	id, err := NewVerifier(secret, "idp", "").Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "user-1", Email: "a@example.com", Role: "customer"}, id)
}

func TestVerifyRejects(t *testing.T) {
	good, err := Sign(secret, Identity{UserID: "user-1"}, "idp", "", time.Minute)
	require.NoError(t, err)
	expired, err := Sign(secret, Identity{UserID: "user-1"}, "idp", "", -time.Hour)
	require.NoError(t, err)
	noSubject, err := Sign(secret, Identity{}, "idp", "", time.Minute)
	require.NoError(t, err)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"}).SignedString([]byte(secret))
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]struct {
		verifier *Verifier
		token    string
	}{
		"garbage":        {NewVerifier(secret, "", ""), "not-a-token"},
		"wrong secret":   {NewVerifier("other", "", ""), good},
		"expired":        {NewVerifier(secret, "", ""), expired},
		"missing sub":    {NewVerifier(secret, "", ""), noSubject},
		"missing exp":    {NewVerifier(secret, "", ""), noExpiry},
		"alg none":       {NewVerifier(secret, "", ""), none},
		"wrong issuer":   {NewVerifier(secret, "someone-else", ""), good},
		"wrong audience": {NewVerifier(secret, "", "wallet-api"), good},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := tc.verifier.Verify(tc.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestVerifyAudience(t *testing.T) {
	tok, err := Sign(secret, Identity{UserID: "user-1"}, "idp", "wallet-api", time.Minute)
	require.NoError(t, err)

	id, err := NewVerifier(secret, "idp", "wallet-api").Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.UserID)

	_, err = NewVerifier(secret, "idp", "billing-api").Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestContextRoundTrip(t *testing.T) {
	ctx := WithContext(context.Background(), Identity{UserID: "u"})
	assert.Equal(t, "u", FromContext(ctx).UserID)
	assert.True(t, FromContext(context.Background()).IsZero())
}
