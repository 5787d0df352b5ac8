package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cruxgym/crux-api/internal/auth"
	"github.com/cruxgym/crux-api/internal/model"
	"github.com/cruxgym/crux-api/internal/repository"
)

const testSecret = "test-secret"

type fakeUsers struct {
	users map[string]model.User
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (model.User, error) {
	u, ok := f.users[username]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

type fakeSessions struct {
	valid map[string]bool // rawToken -> valid; missing key means no row
	err   error
}

func (f *fakeSessions) Validate(_ context.Context, _ uint64, rawToken string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	v, ok := f.valid[rawToken]
	if !ok {
		return false, repository.ErrNotFound
	}
	return v, nil
}

// echoRequest runs a request through the Identity middleware and an inspect
// handler that records the resolved user.
func echoRequest(t *testing.T, users *fakeUsers, sessions *fakeSessions, mutate func(*http.Request)) (uint64, bool) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	mutate(req)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var gotID uint64
	var gotOK bool
	h := Identity(testSecret, users, sessions)(func(c echo.Context) error {
		gotID, gotOK = CurrentUserID(c)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return gotID, gotOK
}

func TestIdentityBearerToken(t *testing.T) {
	t.Parallel()

	token, err := auth.IssueToken(testSecret, 7, time.Hour)
	require.NoError(t, err)

	uid, ok := echoRequest(t, &fakeUsers{}, &fakeSessions{}, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	require.True(t, ok)
	assert.Equal(t, uint64(7), uid)
}

func TestIdentityXAuthTokenHeader(t *testing.T) {
	t.Parallel()

	token, err := auth.IssueToken(testSecret, 9, time.Hour)
	require.NoError(t, err)

	uid, ok := echoRequest(t, &fakeUsers{}, &fakeSessions{}, func(r *http.Request) {
		r.Header.Set("X-Auth-Token", token)
	})
	require.True(t, ok)
	assert.Equal(t, uint64(9), uid)
}

func TestIdentityInvalidTokenResolvesNothing(t *testing.T) {
	t.Parallel()

	_, ok := echoRequest(t, &fakeUsers{}, &fakeSessions{}, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer garbage")
	})
	assert.False(t, ok)
}

func TestIdentityStaleTokenFallsBackToCookie(t *testing.T) {
	t.Parallel()

	expired, err := auth.IssueToken(testSecret, 3, -time.Hour)
	require.NoError(t, err)

	users := &fakeUsers{users: map[string]model.User{"alice": {ID: 11, Username: "alice"}}}
	sessions := &fakeSessions{valid: map[string]bool{"ctok": true}}

	uid, ok := echoRequest(t, users, sessions, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+expired)
		r.AddCookie(sessionCookie("alice", "ctok", time.Hour))
	})
	require.True(t, ok, "an unverifiable token is no match, the cookie still counts")
	assert.Equal(t, uint64(11), uid)
}

func TestIdentityTokenBeatsCookie(t *testing.T) {
	t.Parallel()

	token, err := auth.IssueToken(testSecret, 3, time.Hour)
	require.NoError(t, err)

	users := &fakeUsers{users: map[string]model.User{"alice": {ID: 11, Username: "alice"}}}
	sessions := &fakeSessions{valid: map[string]bool{"ctok": true}}

	uid, ok := echoRequest(t, users, sessions, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
		r.AddCookie(sessionCookie("alice", "ctok", time.Hour))
	})
	require.True(t, ok)
	assert.Equal(t, uint64(3), uid, "token identity wins over cookie identity")
}

func sessionCookie(login, token string, ttl time.Duration) *http.Cookie {
	exp := time.Now().Add(ttl).Unix()
	return &http.Cookie{
		Name:  auth.SessionCookiePrefix + "abc123",
		Value: fmt.Sprintf("%s|%d|%s|hmac", login, exp, token),
	}
}

func TestIdentityCookieValidatedByRegistry(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{users: map[string]model.User{"alice": {ID: 11, Username: "alice"}}}
	sessions := &fakeSessions{valid: map[string]bool{"ctok": true}}

	uid, ok := echoRequest(t, users, sessions, func(r *http.Request) {
		r.AddCookie(sessionCookie("alice", "ctok", time.Hour))
	})
	require.True(t, ok)
	assert.Equal(t, uint64(11), uid)
}

func TestIdentityCookieRevokedByRegistry(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{users: map[string]model.User{"alice": {ID: 11, Username: "alice"}}}
	sessions := &fakeSessions{valid: map[string]bool{"ctok": false}}

	_, ok := echoRequest(t, users, sessions, func(r *http.Request) {
		r.AddCookie(sessionCookie("alice", "ctok", time.Hour))
	})
	assert.False(t, ok, "a known-revoked session must not resolve")
}

func TestIdentityCookieRegistryInconclusiveTrusts(t *testing.T) {
	t.Parallel()

	// No registry row at all: the cookie is trusted as long as the user
	// exists and the expiry holds.
	users := &fakeUsers{users: map[string]model.User{"alice": {ID: 11, Username: "alice"}}}
	sessions := &fakeSessions{valid: map[string]bool{}}

	uid, ok := echoRequest(t, users, sessions, func(r *http.Request) {
		r.AddCookie(sessionCookie("alice", "unregistered", time.Hour))
	})
	require.True(t, ok)
	assert.Equal(t, uint64(11), uid)
}

func TestIdentityCookieRegistryErrorRejects(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{users: map[string]model.User{"alice": {ID: 11, Username: "alice"}}}
	sessions := &fakeSessions{err: errors.New("connection refused")}

	_, ok := echoRequest(t, users, sessions, func(r *http.Request) {
		r.AddCookie(sessionCookie("alice", "ctok", time.Hour))
	})
	assert.False(t, ok)
}

func TestIdentityExpiredCookie(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{users: map[string]model.User{"alice": {ID: 11, Username: "alice"}}}
	sessions := &fakeSessions{valid: map[string]bool{"ctok": true}}

	_, ok := echoRequest(t, users, sessions, func(r *http.Request) {
		r.AddCookie(sessionCookie("alice", "ctok", -time.Hour))
	})
	assert.False(t, ok)
}

func TestIdentityCookieUnknownUser(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{}
	sessions := &fakeSessions{valid: map[string]bool{"ctok": true}}

	_, ok := echoRequest(t, users, sessions, func(r *http.Request) {
		r.AddCookie(sessionCookie("ghost", "ctok", time.Hour))
	})
	assert.False(t, ok)
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	e := echo.New()

	// No identity: 401 before the handler runs.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	called := false
	h := RequireAuth()(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)

	// With identity: passes through.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.Set("user_id", uint64(5))
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

type fakeRoles struct {
	manage map[uint64]bool
	admin  map[uint64]bool
}

func (f *fakeRoles) CanManageRoutes(_ context.Context, uid uint64) (bool, error) {
	return f.manage[uid], nil
}

func (f *fakeRoles) CanAdminister(_ context.Context, uid uint64) (bool, error) {
	return f.admin[uid], nil
}

func TestRoleGates(t *testing.T) {
	t.Parallel()

	roles := &fakeRoles{
		manage: map[uint64]bool{1: true, 2: true},
		admin:  map[uint64]bool{1: true},
	}
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	run := func(mw echo.MiddlewareFunc, uid uint64) int {
		e := echo.New()
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if uid != 0 {
			c.Set("user_id", uid)
		}
		require.NoError(t, mw(ok)(c))
		return rec.Code
	}

	// Missing identity is always 401, never 403.
	assert.Equal(t, http.StatusUnauthorized, run(RequireRouteManager(roles), 0))
	assert.Equal(t, http.StatusUnauthorized, run(RequireAdmin(roles), 0))

	// Admin passes both gates, setter only the manager gate, member neither.
	assert.Equal(t, http.StatusOK, run(RequireRouteManager(roles), 1))
	assert.Equal(t, http.StatusOK, run(RequireAdmin(roles), 1))
	assert.Equal(t, http.StatusOK, run(RequireRouteManager(roles), 2))
	assert.Equal(t, http.StatusForbidden, run(RequireAdmin(roles), 2))
	assert.Equal(t, http.StatusForbidden, run(RequireRouteManager(roles), 3))
}
