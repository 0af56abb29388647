package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/taskboard/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var (
	accessSecret  = []byte("access-secret-access-secret-0123456789")
	refreshSecret = []byte("refresh-secret-refresh-secret-0123456789")
)

func newCodec(t *testing.T, now time.Time) *jwtx.Codec {
	t.Helper()
	c, err := jwtx.NewCodec(jwtx.Config{
		AccessSecret:  accessSecret,
		RefreshSecret: refreshSecret,
	})
	require.NoError(t, err)
	c.Now = func() time.Time { return now }
	return c
}

func TestNewCodec(t *testing.T) {
	t.Parallel()

	t.Run("rejects short secrets", func(t *testing.T) {
		_, err := jwtx.NewCodec(jwtx.Config{AccessSecret: []byte("short"), RefreshSecret: refreshSecret})
		require.ErrorIs(t, err, jwtx.ErrWeakSecret)
	})

	t.Run("rejects shared secret", func(t *testing.T) {
		_, err := jwtx.NewCodec(jwtx.Config{AccessSecret: accessSecret, RefreshSecret: accessSecret})
		require.ErrorIs(t, err, jwtx.ErrSameSecret)
	})

	t.Run("applies default lifetimes", func(t *testing.T) {
		c := newCodec(t, time.Now())
		require.Equal(t, jwtx.DefaultAccessTokenTTL, c.TTL(jwtx.Access))
		require.Equal(t, jwtx.DefaultRefreshTokenTTL, c.TTL(jwtx.Refresh))
	})
}

func TestIssueAndVerify(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := newCodec(t, now)

	for _, kind := range []jwtx.Kind{jwtx.Access, jwtx.Refresh} {
		t.Run(kind.String(), func(t *testing.T) {
			token, exp, err := c.Issue(kind, "user-1")
			require.NoError(t, err)
			require.True(t, now.Add(c.TTL(kind)).Equal(exp))

			claims, err := c.Verify(kind, token)
			require.NoError(t, err)
			require.Equal(t, "user-1", claims.Subject)
			require.True(t, exp.Equal(claims.Expiry()))
			require.NotEmpty(t, claims.ID)
		})
	}
}

func TestTokensAreUniqueWithinTheSameSecond(t *testing.T) {
	t.Parallel()

	c := newCodec(t, time.Now())
	a, _, err := c.Issue(jwtx.Refresh, "user-1")
	require.NoError(t, err)
	b, _, err := c.Issue(jwtx.Refresh, "user-1")
	require.NoError(t, err)

	require.NotEqual(t, a, b)
}

func TestKindsUseDistinctSecrets(t *testing.T) {
	t.Parallel()

	c := newCodec(t, time.Now())

	access, _, err := c.Issue(jwtx.Access, "user-1")
	require.NoError(t, err)
	refresh, _, err := c.Issue(jwtx.Refresh, "user-1")
	require.NoError(t, err)

	_, err = c.Verify(jwtx.Refresh, access)
	require.ErrorIs(t, err, jwtx.ErrInvalid)
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)

	_, err = c.Verify(jwtx.Access, refresh)
	require.ErrorIs(t, err, jwtx.ErrInvalid)
}

func TestVerifyExpired(t *testing.T) {
	t.Parallel()

	issuedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := newCodec(t, issuedAt)

	token, _, err := c.Issue(jwtx.Access, "user-1")
	require.NoError(t, err)

	c.Now = func() time.Time { return issuedAt.Add(jwtx.DefaultAccessTokenTTL + time.Second) }

	_, err = c.Verify(jwtx.Access, token)
	require.ErrorIs(t, err, jwtx.ErrExpired)
	require.NotErrorIs(t, err, jwtx.ErrInvalid)
}

func TestVerifyRejectsTampering(t *testing.T) {
	t.Parallel()

	c := newCodec(t, time.Now())
	token, _, err := c.Issue(jwtx.Access, "user-1")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	other, _, err := c.Issue(jwtx.Access, "user-2")
	require.NoError(t, err)
	swapped := parts[0] + "." + strings.Split(other, ".")[1] + "." + parts[2]

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"two segments", parts[0] + "." + parts[1]},
		{"swapped payload", swapped},
		{"truncated signature", token[:len(token)-4]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Verify(jwtx.Access, tt.token)
			require.ErrorIs(t, err, jwtx.ErrInvalid)
		})
	}
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	c := newCodec(t, time.Now())
	claims := jwtx.NewClaims("user-1", time.Minute, time.Now())

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = c.Verify(jwtx.Access, unsigned)
	require.ErrorIs(t, err, jwtx.ErrInvalid)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(accessSecret)
	require.NoError(t, err)
	_, err = c.Verify(jwtx.Access, hs512)
	require.ErrorIs(t, err, jwtx.ErrInvalid)
}

func TestVerifyRequiresSubject(t *testing.T) {
	t.Parallel()

	c := newCodec(t, time.Now())
	claims := jwtx.NewClaims("", time.Minute, time.Now())
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(accessSecret)
	require.NoError(t, err)

	_, err = c.Verify(jwtx.Access, token)
	require.ErrorIs(t, err, jwtx.ErrMalformed)
}
