package auth

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maplewind/maplewind-api/pkg/utilities"
)

func newTestIssuer(t *testing.T, clock *fakeClock) *TokenIssuer {
	t.Helper()
	ids, err := utilities.NewIDGenerator(1)
	require.NoError(t, err)
	iss, err := NewTokenIssuer(IssuerConfig{SecretKey: []byte("test-secret"), Algorithm: "HS256", AccessTTL: 30 * time.Minute}, ids)
	require.NoError(t, err)
	iss.now = clock.Now
	return iss
}

func TestNewTokenIssuerRejectsBadConfig(t *testing.T) {
	_, err := NewTokenIssuer(IssuerConfig{Algorithm: "HS256", AccessTTL: time.Minute}, nil)
	assert.ErrorIs(t, err, ErrMisconfigured)

	_, err = NewTokenIssuer(IssuerConfig{SecretKey: []byte("k"), Algorithm: "RS256", AccessTTL: time.Minute}, nil)
	assert.ErrorIs(t, err, ErrMisconfigured)

	_, err = NewTokenIssuer(IssuerConfig{SecretKey: []byte("k"), Algorithm: "hs512", AccessTTL: time.Minute}, nil)
	assert.NoError(t, err)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	iss := newTestIssuer(t, &fakeClock{now: testStart})

	tok, err := iss.IssueAccessToken("alice")
	require.NoError(t, err)
	sub, err := iss.ParseAccessToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)

	var claims jwt.RegisteredClaims
	_, _, err = jwt.NewParser().ParseUnverified(tok, &claims)
	require.NoError(t, err)
	assert.Equal(t, testStart.Add(30*time.Minute).Unix(), claims.ExpiresAt.Unix())
	assert.Equal(t, testStart.Unix(), claims.IssuedAt.Unix())
	assert.NotEmpty(t, claims.ID)
}

func TestAccessTokensDifferWithinOneSecond(t *testing.T) {
	iss := newTestIssuer(t, &fakeClock{now: testStart})
	a, err := iss.IssueAccessToken("alice")
	require.NoError(t, err)
	b, err := iss.IssueAccessToken("alice")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestAccessTokenExpiry(t *testing.T) {
	clock := &fakeClock{now: testStart}
	iss := newTestIssuer(t, clock)
	tok, err := iss.IssueAccessToken("alice")
	require.NoError(t, err)

	clock.Advance(30*time.Minute - time.Second)
	_, err = iss.ParseAccessToken(tok)
	assert.NoError(t, err)

	clock.Advance(time.Second)
	_, err = iss.ParseAccessToken(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestAccessTokenRejectsForeignTokens(t *testing.T) {
	clock := &fakeClock{now: testStart}
	iss := newTestIssuer(t, clock)

	other, err := NewTokenIssuer(IssuerConfig{SecretKey: []byte("other"), AccessTTL: time.Minute}, nil)
	require.NoError(t, err)
	other.now = clock.Now
	forged, err := other.IssueAccessToken("alice")
	require.NoError(t, err)
	_, err = iss.ParseAccessToken(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(testStart.Add(time.Hour)),
	})
	s, err := hs512.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = iss.ParseAccessToken(s)
	assert.ErrorIs(t, err, ErrInvalidToken)

	for _, bad := range []string{"", "garbage", "a.b.c"} {
		_, err = iss.ParseAccessToken(bad)
		assert.ErrorIs(t, err, ErrInvalidToken, bad)
	}
}

func TestRegisterTokenIsNotAnAccessToken(t *testing.T) {
	iss := newTestIssuer(t, &fakeClock{now: testStart})

	reg, err := iss.IssueRegisterToken(RegisterClaims{KakaoID: 42, Name: "Kim"})
	require.NoError(t, err)
	_, err = iss.ParseAccessToken(reg)
	assert.ErrorIs(t, err, ErrInvalidToken)

	access, err := iss.IssueAccessToken("alice")
	require.NoError(t, err)
	_, err = iss.ParseRegisterToken(access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRegisterTokenLifetime(t *testing.T) {
	clock := &fakeClock{now: testStart}
	iss := newTestIssuer(t, clock)

	reg, err := iss.IssueRegisterToken(RegisterClaims{KakaoID: 42, Name: "Kim", PhoneNumber: "010-1234-5678"})
	require.NoError(t, err)

	c, err := iss.ParseRegisterToken(reg)
	require.NoError(t, err)
	assert.True(t, c.IsRegister)
	assert.Equal(t, int64(42), c.KakaoID)
	assert.Equal(t, "010-1234-5678", c.PhoneNumber)

	clock.Advance(RegisterTokenTTL)
	_, err = iss.ParseRegisterToken(reg)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefreshTokenShape(t *testing.T) {
	iss := newTestIssuer(t, &fakeClock{now: testStart})
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		rt, err := iss.IssueRefreshToken()
		require.NoError(t, err)
		raw, err := base64.RawURLEncoding.DecodeString(rt)
		require.NoError(t, err)
		assert.Len(t, raw, 32)
		assert.False(t, seen[rt])
		seen[rt] = true
	}
}

func TestDigest(t *testing.T) {
	assert.Equal(t, Digest("abc"), Digest("abc"))
	assert.NotEqual(t, Digest("abc"), Digest("abd"))
	assert.Len(t, Digest("abc"), 64)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", Digest("abc"))
}
