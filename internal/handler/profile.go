package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cruxgym/crux-api/internal/middleware"
	"github.com/cruxgym/crux-api/internal/model"
	"github.com/cruxgym/crux-api/internal/repository"
	"github.com/cruxgym/crux-api/internal/utils"
)

// ProfileNicknameStore extends the nickname reads/writes with the raw Get so
// the profile endpoint can distinguish "unset" from "set to the username".
type ProfileNicknameStore interface {
	Get(ctx context.Context, userID uint64) (string, error)
	Set(ctx context.Context, userID uint64, nickname string) error
}

// TickLister lists a user's ticks for the profile surface.
type TickLister interface {
	ListForUser(ctx context.Context, userID uint64) ([]model.Tick, error)
}

// LikeLister lists a user's likes for the profile surface.
type LikeLister interface {
	ListForUser(ctx context.Context, userID uint64) ([]model.Like, error)
}

// ProjectLister lists a user's projects for the profile surface.
type ProjectLister interface {
	ListForUser(ctx context.Context, userID uint64) ([]repository.ProjectView, error)
}

// StatsSource computes the aggregate climbing profile.
type StatsSource interface {
	ForUser(ctx context.Context, userID uint64) (repository.UserStats, error)
}

// ProfileHandler serves the authenticated /user surface: nickname, tick
// history, likes, projects and aggregate stats.
type ProfileHandler struct {
	Nicknames ProfileNicknameStore
	Ticks     TickLister
	Likes     LikeLister
	Projects  ProjectLister
	Stats     StatsSource
}

func NewProfileHandler(n ProfileNicknameStore, t TickLister, l LikeLister, p ProjectLister, s StatsSource) *ProfileHandler {
	return &ProfileHandler{Nicknames: n, Ticks: t, Likes: l, Projects: p, Stats: s}
}

type nicknameReq struct {
	Nickname string `json:"nickname"`
}

// GetNickname returns the stored nickname, empty when none is set.
func (h *ProfileHandler) GetNickname(c echo.Context) error {
	uid, _ := middleware.CurrentUserID(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	nick, err := h.Nicknames.Get(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusOK, echo.Map{"nickname": ""})
		}
		return storageError(c, "load nickname", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"nickname": nick})
}

// SetNickname validates and stores the user's display nickname.
func (h *ProfileHandler) SetNickname(c echo.Context) error {
	var req nicknameReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Nickname = strings.TrimSpace(req.Nickname)
	if err := utils.ValidateNickname(req.Nickname); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	uid, _ := middleware.CurrentUserID(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Nicknames.Set(ctx, uid, req.Nickname); err != nil {
		return storageError(c, "set nickname", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"nickname": req.Nickname})
}

// MyTicks returns the user's tick history, newest first.
func (h *ProfileHandler) MyTicks(c echo.Context) error {
	uid, _ := middleware.CurrentUserID(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	ticks, err := h.Ticks.ListForUser(ctx, uid)
	if err != nil {
		return storageError(c, "list ticks", err)
	}
	views := make([]tickView, 0, len(ticks))
	for _, t := range ticks {
		views = append(views, viewOfTick(t))
	}
	return c.JSON(http.StatusOK, echo.Map{"ticks": views})
}

// MyLikes returns the user's liked routes, newest first.
func (h *ProfileHandler) MyLikes(c echo.Context) error {
	uid, _ := middleware.CurrentUserID(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	likes, err := h.Likes.ListForUser(ctx, uid)
	if err != nil {
		return storageError(c, "list likes", err)
	}
	if likes == nil {
		likes = []model.Like{}
	}
	return c.JSON(http.StatusOK, echo.Map{"likes": likes})
}

// MyProjects returns the user's projects with route context joined in.
func (h *ProfileHandler) MyProjects(c echo.Context) error {
	uid, _ := middleware.CurrentUserID(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	projects, err := h.Projects.ListForUser(ctx, uid)
	if err != nil {
		return storageError(c, "list projects", err)
	}
	if projects == nil {
		projects = []repository.ProjectView{}
	}
	return c.JSON(http.StatusOK, echo.Map{"projects": projects})
}

// MyStats returns the aggregate climbing profile.
func (h *ProfileHandler) MyStats(c echo.Context) error {
	uid, _ := middleware.CurrentUserID(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	stats, err := h.Stats.ForUser(ctx, uid)
	if err != nil {
		return storageError(c, "compute stats", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"stats": stats})
}
