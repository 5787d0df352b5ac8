package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/labstack/echo/v4"

	"github.com/cruxgym/crux-api/internal/middleware"
	"github.com/cruxgym/crux-api/internal/model"
	"github.com/cruxgym/crux-api/internal/queue"
	"github.com/cruxgym/crux-api/internal/repository"
	queue_publisher "github.com/cruxgym/crux-api/internal/service"
)

// LikeStore is the slice of the like repository the social endpoints use.
type LikeStore interface {
	Like(ctx context.Context, userID, routeID uint64) error
	Unlike(ctx context.Context, userID, routeID uint64) error
	Liked(ctx context.Context, userID, routeID uint64) (bool, error)
}

// ProjectStore manages the routes a user is working toward sending.
type ProjectStore interface {
	Add(ctx context.Context, userID, routeID uint64, notes string) (model.Project, error)
	Remove(ctx context.Context, userID, routeID uint64) error
	Exists(ctx context.Context, userID, routeID uint64) (bool, error)
}

// FeedbackStore covers comments, safety warnings and grade proposals.
type FeedbackStore interface {
	AddComment(ctx context.Context, userID, routeID uint64, content string) (uint64, error)
	ListComments(ctx context.Context, routeID uint64) ([]repository.CommentView, error)
	AddWarning(ctx context.Context, userID, routeID uint64, warningType, description string) (uint64, error)
	ProposeGrade(ctx context.Context, userID, routeID, gradeID uint64, reasoning string) error
	GetProposal(ctx context.Context, userID, routeID uint64) (model.GradeProposal, error)
	ProposalsForUser(ctx context.Context, userID uint64) ([]repository.ProposalView, error)
}

// GradeResolver maps client grade names to rows.
type GradeResolver interface {
	GradeByName(ctx context.Context, name string) (model.Grade, error)
}

// SocialHandler serves likes, projects, comments, warnings and grade
// proposals. PublishWarning is swappable so tests can capture events.
type SocialHandler struct {
	Likes          LikeStore
	Projects       ProjectStore
	Feedback       FeedbackStore
	Grades         GradeResolver
	Routes         RouteReader
	PublishWarning func(ctx context.Context, ev queue.RouteWarningEvent) error
}

func NewSocialHandler(likes LikeStore, projects ProjectStore, feedback FeedbackStore, grades GradeResolver, routes RouteReader) *SocialHandler {
	return &SocialHandler{
		Likes:          likes,
		Projects:       projects,
		Feedback:       feedback,
		Grades:         grades,
		Routes:         routes,
		PublishWarning: queue_publisher.PublishRouteWarning,
	}
}

type projectReq struct {
	Notes string `json:"notes"`
}

type commentReq struct {
	Content string `json:"content"`
}

func (r commentReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required, validation.Length(1, 2000)),
	)
}

type warningReq struct {
	Type        string `json:"warning_type"`
	Description string `json:"description"`
}

func (r warningReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Type, validation.Required, validation.In("spinning_hold", "broken_hold", "loose_bolt", "worn_rope", "other")),
		validation.Field(&r.Description, validation.Required, validation.Length(1, 2000)),
	)
}

type proposalReq struct {
	Grade     string `json:"proposed_grade"`
	Reasoning string `json:"reasoning"`
}

func (r proposalReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Grade, validation.Required),
	)
}

// requireRoute mirrors the tick handler's guard: unknown routes 404 before
// any interaction row is written.
func (h *SocialHandler) requireRoute(ctx context.Context, c echo.Context) (model.Route, uint64, error) {
	uid, _ := middleware.CurrentUserID(c)
	id, err := routeParam(c)
	if err != nil {
		return model.Route{}, 0, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid route id"})
	}
	rt, err := h.Routes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Route{}, 0, c.JSON(http.StatusNotFound, echo.Map{"error": "route not found"})
		}
		return model.Route{}, 0, storageError(c, "load route", err)
	}
	return rt, uid, nil
}

// Like adds a like; liking twice is a no-op success.
func (h *SocialHandler) Like(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rt, uid, err := h.requireRoute(ctx, c)
	if err != nil {
		return err
	}
	if err := h.Likes.Like(ctx, uid, rt.ID); err != nil {
		return storageError(c, "like route", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"liked": true})
}

// Unlike removes a like; removing an absent like still succeeds.
func (h *SocialHandler) Unlike(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rt, uid, err := h.requireRoute(ctx, c)
	if err != nil {
		return err
	}
	if err := h.Likes.Unlike(ctx, uid, rt.ID); err != nil {
		return storageError(c, "unlike route", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"liked": false})
}

// LikeStatus reports whether the acting user has liked the route.
func (h *SocialHandler) LikeStatus(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rt, uid, err := h.requireRoute(ctx, c)
	if err != nil {
		return err
	}
	liked, err := h.Likes.Liked(ctx, uid, rt.ID)
	if err != nil {
		return storageError(c, "like status", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"liked": liked})
}

// AddProject marks the route as a project. Re-adding keeps the stored notes
// and returns current state rather than erroring.
func (h *SocialHandler) AddProject(c echo.Context) error {
	var req projectReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rt, uid, err := h.requireRoute(ctx, c)
	if err != nil {
		return err
	}
	p, err := h.Projects.Add(ctx, uid, rt.ID, req.Notes)
	if err != nil {
		return storageError(c, "add project", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"project": p})
}

// RemoveProject drops the route from the user's projects; removing a
// non-project succeeds.
func (h *SocialHandler) RemoveProject(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rt, uid, err := h.requireRoute(ctx, c)
	if err != nil {
		return err
	}
	if err := h.Projects.Remove(ctx, uid, rt.ID); err != nil {
		return storageError(c, "remove project", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"project": false})
}

// AddComment appends a comment to the route.
func (h *SocialHandler) AddComment(c echo.Context) error {
	var req commentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Content = strings.TrimSpace(req.Content)
	if err := req.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rt, uid, err := h.requireRoute(ctx, c)
	if err != nil {
		return err
	}
	id, err := h.Feedback.AddComment(ctx, uid, rt.ID, req.Content)
	if err != nil {
		return storageError(c, "add comment", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"comment_id": id})
}

// ListComments returns a route's comments newest first.
func (h *SocialHandler) ListComments(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rt, _, err := h.requireRoute(ctx, c)
	if err != nil {
		return err
	}
	comments, err := h.Feedback.ListComments(ctx, rt.ID)
	if err != nil {
		return storageError(c, "list comments", err)
	}
	if comments == nil {
		comments = []repository.CommentView{}
	}
	return c.JSON(http.StatusOK, echo.Map{"comments": comments})
}

// AddWarning reports a safety problem and publishes a route.warning event for
// staff tooling. The publish is fire-and-forget.
func (h *SocialHandler) AddWarning(c echo.Context) error {
	var req warningReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Description = strings.TrimSpace(req.Description)
	if err := req.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rt, uid, err := h.requireRoute(ctx, c)
	if err != nil {
		return err
	}
	id, err := h.Feedback.AddWarning(ctx, uid, rt.ID, req.Type, req.Description)
	if err != nil {
		return storageError(c, "add warning", err)
	}

	if h.PublishWarning != nil {
		ev := queue.RouteWarningEvent{
			WarningID:   id,
			UserID:      uid,
			RouteID:     rt.ID,
			RouteName:   rt.Name,
			WallSection: rt.WallSection,
			Description: req.Description,
			ReportedAt:  time.Now().UTC().Format(time.RFC3339),
		}
		logger := c.Logger()
		go func() {
			bg, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.PublishWarning(bg, ev); err != nil {
				logger.Warnf("route.warning publish failed: %v", err)
			}
		}()
	}

	return c.JSON(http.StatusCreated, echo.Map{"warning_id": id})
}

// ProposeGrade records the user's opinion of the route's grade. Re-proposing
// replaces the earlier proposal. Unknown grade names are a 400, not a 500:
// the client sent a grade outside the gym's scale.
func (h *SocialHandler) ProposeGrade(c echo.Context) error {
	var req proposalReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := req.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rt, uid, err := h.requireRoute(ctx, c)
	if err != nil {
		return err
	}
	g, err := h.Grades.GradeByName(ctx, req.Grade)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidGrade) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown grade"})
		}
		return storageError(c, "resolve grade", err)
	}
	if err := h.Feedback.ProposeGrade(ctx, uid, rt.ID, g.ID, req.Reasoning); err != nil {
		return storageError(c, "propose grade", err)
	}
	p, err := h.Feedback.GetProposal(ctx, uid, rt.ID)
	if err != nil {
		return storageError(c, "load proposal", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"proposal": p})
}

// MyProposalForRoute returns the acting user's proposal for one route, 404
// when they have not proposed anything.
func (h *SocialHandler) MyProposalForRoute(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rt, uid, err := h.requireRoute(ctx, c)
	if err != nil {
		return err
	}
	p, err := h.Feedback.GetProposal(ctx, uid, rt.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no proposal for this route"})
		}
		return storageError(c, "load proposal", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"proposal": p})
}

// MyProposals lists the acting user's grade proposals across all routes.
func (h *SocialHandler) MyProposals(c echo.Context) error {
	uid, _ := middleware.CurrentUserID(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	proposals, err := h.Feedback.ProposalsForUser(ctx, uid)
	if err != nil {
		return storageError(c, "list proposals", err)
	}
	if proposals == nil {
		proposals = []repository.ProposalView{}
	}
	return c.JSON(http.StatusOK, echo.Map{"proposals": proposals})
}
