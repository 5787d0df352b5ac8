package auth

import (
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSessionCookie(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(time.Hour).Unix()
	raw := fmt.Sprintf("alice|%d|tok123|hmac456", exp)

	sc, ok := ParseSessionCookie(raw)
	require.True(t, ok)
	assert.Equal(t, "alice", sc.Login)
	assert.Equal(t, time.Unix(exp, 0), sc.Expires)
	assert.Equal(t, "tok123", sc.Token)
	assert.Equal(t, "hmac456", sc.HMAC)
	assert.False(t, sc.Expired(time.Now()))
}

func TestParseSessionCookieURLEncoded(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(time.Hour).Unix()
	raw := url.QueryEscape(fmt.Sprintf("bob|%d|tok|hmac", exp))

	sc, ok := ParseSessionCookie(raw)
	require.True(t, ok)
	assert.Equal(t, "bob", sc.Login)
}

func TestParseSessionCookieExtraSegments(t *testing.T) {
	t.Parallel()

	// Extra trailing segments are tolerated; only the first four matter.
	sc, ok := ParseSessionCookie("carol|1700000000|tok|hmac|extra")
	require.True(t, ok)
	assert.Equal(t, "carol", sc.Login)
	assert.Equal(t, "tok", sc.Token)
}

func TestParseSessionCookieMalformed(t *testing.T) {
	t.Parallel()

	cases := []string{
		"",
		"alice",
		"alice|123",
		"alice|123|tok",
		"alice|notanumber|tok|hmac",
	}
	for _, raw := range cases {
		_, ok := ParseSessionCookie(raw)
		assert.False(t, ok, "raw=%q", raw)
	}
}

func TestSessionCookieExpired(t *testing.T) {
	t.Parallel()

	now := time.Now()
	past := SessionCookie{Expires: now.Add(-time.Minute)}
	assert.True(t, past.Expired(now))

	boundary := SessionCookie{Expires: now}
	assert.True(t, boundary.Expired(now))

	future := SessionCookie{Expires: now.Add(time.Minute)}
	assert.False(t, future.Expired(now))
}
