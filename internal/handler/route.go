package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/labstack/echo/v4"

	"github.com/cruxgym/crux-api/internal/middleware"
	"github.com/cruxgym/crux-api/internal/model"
	"github.com/cruxgym/crux-api/internal/repository"
)

// RouteStore is the slice of the route repository the route endpoints use.
type RouteStore interface {
	List(ctx context.Context, f repository.RouteFilter) ([]model.Route, error)
	GetByID(ctx context.Context, id uint64) (model.Route, error)
	Create(ctx context.Context, rt model.Route) (uint64, error)
	Delete(ctx context.Context, id uint64) error
	Stats(ctx context.Context, routeID uint64) (model.RouteStats, error)
	UserFlags(ctx context.Context, userID, routeID uint64) (liked, ticked, project bool, err error)
}

// ReferenceStore reads the staff-maintained reference tables.
type ReferenceStore interface {
	Grades(ctx context.Context) ([]model.Grade, error)
	GradeColors(ctx context.Context) (map[string]string, error)
	Lanes(ctx context.Context) ([]model.Lane, error)
	HoldColors(ctx context.Context) ([]model.HoldColor, error)
	WallSections(ctx context.Context) ([]string, error)
}

// RouteHandler serves route CRUD and the reference-data reads.
type RouteHandler struct {
	Routes RouteStore
	Refs   ReferenceStore
}

func NewRouteHandler(routes RouteStore, refs ReferenceStore) *RouteHandler {
	return &RouteHandler{Routes: routes, Refs: refs}
}

// routeView is a route enriched with aggregate counts and, when the viewer is
// authenticated, their own relationship to the route.
type routeView struct {
	model.Route
	Stats     model.RouteStats `json:"stats"`
	Liked     *bool            `json:"liked,omitempty"`
	Sent      *bool            `json:"ticked,omitempty"`
	InProject *bool            `json:"project,omitempty"`
}

type createRouteReq struct {
	Name        string  `json:"name"`
	GradeID     uint64  `json:"grade_id"`
	RouteSetter string  `json:"route_setter"`
	WallSection string  `json:"wall_section"`
	LaneID      *uint64 `json:"lane_id"`
	HoldColorID *uint64 `json:"hold_color_id"`
	Description string  `json:"description"`
}

func (r createRouteReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.GradeID, validation.Required),
		validation.Field(&r.WallSection, validation.Length(0, 100)),
	)
}

func (h *RouteHandler) view(ctx context.Context, c echo.Context, rt model.Route) (routeView, error) {
	v := routeView{Route: rt}
	stats, err := h.Routes.Stats(ctx, rt.ID)
	if err != nil {
		return v, err
	}
	v.Stats = stats
	if uid, ok := middleware.CurrentUserID(c); ok {
		liked, ticked, project, err := h.Routes.UserFlags(ctx, uid, rt.ID)
		if err != nil {
			return v, err
		}
		v.Liked, v.Sent, v.InProject = &liked, &ticked, &project
	}
	return v, nil
}

// List returns active routes, newest first, with per-route aggregates and the
// viewer's flags when authenticated. Filters: wall_section, grade_id, lane_id.
func (h *RouteHandler) List(c echo.Context) error {
	var f repository.RouteFilter
	f.WallSection = c.QueryParam("wall_section")
	if s := c.QueryParam("grade_id"); s != "" {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid grade_id"})
		}
		f.GradeID = n
	}
	if s := c.QueryParam("lane_id"); s != "" {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lane_id"})
		}
		f.LaneID = n
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	routes, err := h.Routes.List(ctx, f)
	if err != nil {
		return storageError(c, "list routes", err)
	}
	views := make([]routeView, 0, len(routes))
	for _, rt := range routes {
		v, err := h.view(ctx, c, rt)
		if err != nil {
			return storageError(c, "route aggregates", err)
		}
		views = append(views, v)
	}
	return c.JSON(http.StatusOK, echo.Map{"routes": views})
}

// Get returns one route with its aggregates.
func (h *RouteHandler) Get(c echo.Context) error {
	id, err := routeParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid route id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rt, err := h.Routes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "route not found"})
		}
		return storageError(c, "load route", err)
	}
	v, err := h.view(ctx, c, rt)
	if err != nil {
		return storageError(c, "route aggregates", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"route": v})
}

// Create inserts a new active route. Gated upstream on the route-manager role.
func (h *RouteHandler) Create(c echo.Context) error {
	var req createRouteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := req.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Routes.Create(ctx, model.Route{
		Name:        req.Name,
		GradeID:     req.GradeID,
		RouteSetter: req.RouteSetter,
		WallSection: req.WallSection,
		LaneID:      req.LaneID,
		HoldColorID: req.HoldColorID,
		Description: req.Description,
	})
	if err != nil {
		return storageError(c, "create route", err)
	}
	rt, err := h.Routes.GetByID(ctx, id)
	if err != nil {
		return storageError(c, "load route", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"route": rt})
}

// Delete removes a route and all its interaction rows. Gated upstream on the
// admin role.
func (h *RouteHandler) Delete(c echo.Context) error {
	id, err := routeParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid route id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.Routes.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "route not found"})
		}
		return storageError(c, "delete route", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": true})
}

// ----- reference data -----

func (h *RouteHandler) WallSections(c echo.Context) error {
	sections, err := h.Refs.WallSections(c.Request().Context())
	if err != nil {
		return storageError(c, "list wall sections", err)
	}
	if sections == nil {
		sections = []string{}
	}
	return c.JSON(http.StatusOK, echo.Map{"wall_sections": sections})
}

// Grades returns the grade names in scale order. The full rows are served by
// GradeDefinitions; most clients only need the names for pickers.
func (h *RouteHandler) Grades(c echo.Context) error {
	grades, err := h.Refs.Grades(c.Request().Context())
	if err != nil {
		return storageError(c, "list grades", err)
	}
	names := make([]string, 0, len(grades))
	for _, g := range grades {
		names = append(names, g.Name)
	}
	return c.JSON(http.StatusOK, echo.Map{"grades": names})
}

func (h *RouteHandler) GradeDefinitions(c echo.Context) error {
	grades, err := h.Refs.Grades(c.Request().Context())
	if err != nil {
		return storageError(c, "list grades", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"grades": grades})
}

func (h *RouteHandler) GradeColors(c echo.Context) error {
	colors, err := h.Refs.GradeColors(c.Request().Context())
	if err != nil {
		return storageError(c, "list grade colors", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"grade_colors": colors})
}

func (h *RouteHandler) Lanes(c echo.Context) error {
	lanes, err := h.Refs.Lanes(c.Request().Context())
	if err != nil {
		return storageError(c, "list lanes", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"lanes": lanes})
}

func (h *RouteHandler) HoldColors(c echo.Context) error {
	colors, err := h.Refs.HoldColors(c.Request().Context())
	if err != nil {
		return storageError(c, "list hold colors", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"hold_colors": colors})
}

// routeParam parses the :id path parameter.
func routeParam(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}
