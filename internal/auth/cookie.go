package auth

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SessionCookiePrefix is the name prefix of the legacy session cookie. The
// full cookie name carries a site hash suffix, so resolution matches on the
// prefix only.
const SessionCookiePrefix = "crux_logged_in_"

// SessionCookie is the parsed form of the legacy session cookie value:
// login|expiry|token|hmac. The integrity tag is carried but not verified
// here; the session-token registry is the server-side check.
type SessionCookie struct {
	Login   string
	Expires time.Time
	Token   string
	HMAC    string
}

// ParseSessionCookie decodes a raw (possibly URL-encoded) session cookie
// value. It returns ok=false when the value does not have at least four
// pipe-delimited segments or the expiry is not a unix timestamp.
func ParseSessionCookie(raw string) (SessionCookie, bool) {
	if decoded, err := url.QueryUnescape(raw); err == nil {
		raw = decoded
	}
	parts := strings.Split(raw, "|")
	if len(parts) < 4 {
		return SessionCookie{}, false
	}
	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return SessionCookie{}, false
	}
	return SessionCookie{
		Login:   parts[0],
		Expires: time.Unix(exp, 0),
		Token:   parts[2],
		HMAC:    parts[3],
	}, true
}

// Expired reports whether the cookie's expiry is in the past.
func (s SessionCookie) Expired(now time.Time) bool {
	return !s.Expires.After(now)
}
