package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/labstack/echo/v4"

	"github.com/cruxgym/crux-api/internal/auth"
	"github.com/cruxgym/crux-api/internal/config"
	"github.com/cruxgym/crux-api/internal/middleware"
	"github.com/cruxgym/crux-api/internal/model"
	"github.com/cruxgym/crux-api/internal/repository"
	"github.com/cruxgym/crux-api/internal/utils"
)

// IdentityStore is the slice of the user repository the auth endpoints use.
// Declared here so tests can substitute an in-memory fake.
type IdentityStore interface {
	Create(ctx context.Context, username, email, password string, cost int) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByLogin(ctx context.Context, login string) (model.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	VerifyPassword(u model.User, plain string) bool
}

// RoleStore resolves role and capability questions for the auth endpoints.
type RoleStore interface {
	PrimaryRole(ctx context.Context, userID uint64) (string, error)
	EnsureDefaultRole(ctx context.Context, userID uint64) error
	CanManageRoutes(ctx context.Context, userID uint64) (bool, error)
	CanAdminister(ctx context.Context, userID uint64) (bool, error)
}

// NicknameStore reads and writes display nicknames.
type NicknameStore interface {
	Set(ctx context.Context, userID uint64, nickname string) error
	Display(ctx context.Context, userID uint64, fallback string) string
}

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg       config.Config
	Users     IdentityStore
	Roles     RoleStore
	Nicknames NicknameStore
}

func NewAuthHandler(cfg config.Config, u IdentityStore, r RoleStore, n NicknameStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Roles: r, Nicknames: n}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

func (r registerReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Username, validation.Required, validation.Length(3, 60)),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
	)
}

type loginReq struct {
	Username string `json:"username"` // login name or email
	Password string `json:"password"`
}

func (r loginReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// userView is the public shape of a user returned by auth endpoints.
type userView struct {
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	Nickname  string    `json:"nickname"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	IsActive  bool      `json:"is_active"`
	Role      string    `json:"role"`
}

type authResp struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

func (h *AuthHandler) userViewOf(ctx context.Context, u model.User, role string) userView {
	return userView{
		ID:        u.ID,
		Username:  u.Username,
		Nickname:  h.Nicknames.Display(ctx, u.ID, u.Username),
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		IsActive:  u.IsActive,
		Role:      role,
	}
}

// Register creates an account, assigns the default member role and a
// nickname, and returns a fresh token alongside the public user view.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if err := req.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	nickname := strings.TrimSpace(req.Nickname)
	if nickname == "" {
		nickname = req.Username
	}
	if err := utils.ValidateNickname(nickname); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nickname: " + err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if taken, err := h.Users.UsernameExists(ctx, req.Username); err != nil {
		return storageError(c, "register", err)
	} else if taken {
		return c.JSON(http.StatusConflict, echo.Map{"error": "username already exists"})
	}
	if taken, err := h.Users.EmailExists(ctx, req.Email); err != nil {
		return storageError(c, "register", err)
	} else if taken {
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	}

	uid, err := h.Users.Create(ctx, req.Username, req.Email, req.Password, h.Cfg.BcryptCost)
	if err != nil {
		// The uniqueness pre-checks race with concurrent registrations; the
		// unique keys are the real arbiter.
		if errors.Is(err, repository.ErrUsernameExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "username already exists"})
		}
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return storageError(c, "create user", err)
	}

	if err := h.Nicknames.Set(ctx, uid, nickname); err != nil {
		return storageError(c, "set nickname", err)
	}
	if err := h.Roles.EnsureDefaultRole(ctx, uid); err != nil {
		return storageError(c, "assign role", err)
	}

	token, err := auth.IssueToken(h.Cfg.JWTSecret, uid, h.tokenTTL())
	if err != nil {
		return storageError(c, "issue token", err)
	}

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return storageError(c, "load user", err)
	}
	return c.JSON(http.StatusCreated, authResp{
		Token: token,
		User:  h.userViewOf(ctx, u, repository.RoleMember),
	})
}

// Login verifies credentials by username or email and returns a fresh token.
// Unknown user and wrong password produce the same generic error so login
// cannot be used to enumerate accounts.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := req.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByLogin(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return storageError(c, "login query", err)
	}
	if !h.Users.VerifyPassword(u, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	// Self-healing: accounts created before role tracking get member here.
	if err := h.Roles.EnsureDefaultRole(ctx, u.ID); err != nil {
		return storageError(c, "ensure role", err)
	}
	role, err := h.Roles.PrimaryRole(ctx, u.ID)
	if err != nil {
		return storageError(c, "resolve role", err)
	}

	token, err := auth.IssueToken(h.Cfg.JWTSecret, u.ID, h.tokenTTL())
	if err != nil {
		return storageError(c, "issue token", err)
	}
	return c.JSON(http.StatusOK, authResp{Token: token, User: h.userViewOf(ctx, u, role)})
}

// Validate decodes the presented bearer token and returns the public user
// view. Unlike Me, only token transport counts here (no cookie fallback)
// and no new token is issued.
func (h *AuthHandler) Validate(c echo.Context) error {
	raw := ""
	if hd := c.Request().Header.Get("Authorization"); strings.HasPrefix(hd, "Bearer ") {
		raw = strings.TrimPrefix(hd, "Bearer ")
	} else {
		raw = c.Request().Header.Get("X-Auth-Token")
	}
	if raw == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "no authentication token provided"})
	}
	uid, ok := auth.DecodeToken(h.Cfg.JWTSecret, raw)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return storageError(c, "load user", err)
	}
	role, err := h.Roles.PrimaryRole(ctx, uid)
	if err != nil {
		return storageError(c, "resolve role", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": h.userViewOf(ctx, u, role)})
}

// Me returns the acting user resolved through the full identity chain
// (token or session cookie).
func (h *AuthHandler) Me(c echo.Context) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return storageError(c, "load user", err)
	}
	role, err := h.Roles.PrimaryRole(ctx, uid)
	if err != nil {
		return storageError(c, "resolve role", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": h.userViewOf(ctx, u, role)})
}

// Permissions reports the acting user's coarse-grained permission flags.
func (h *AuthHandler) Permissions(c echo.Context) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	manage, err := h.Roles.CanManageRoutes(ctx, uid)
	if err != nil {
		return storageError(c, "resolve permissions", err)
	}
	admin, err := h.Roles.CanAdminister(ctx, uid)
	if err != nil {
		return storageError(c, "resolve permissions", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"can_manage_routes": manage,
		"can_create_routes": manage,
		"can_edit_routes":   admin,
		"can_delete_routes": admin,
		"is_admin":          admin,
	})
}

func (h *AuthHandler) tokenTTL() time.Duration {
	if h.Cfg.TokenTTLDays > 0 {
		return time.Duration(h.Cfg.TokenTTLDays) * 24 * time.Hour
	}
	return auth.TokenTTL
}

// storageError logs the underlying failure server-side and returns an opaque
// 500 so internals never leak to clients.
func storageError(c echo.Context, op string, err error) error {
	c.Logger().Errorf("%s failed: %v", op, err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": op + " failed"})
}
