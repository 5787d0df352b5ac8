package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cruxgym/crux-api/internal/middleware"
	"github.com/cruxgym/crux-api/internal/model"
	"github.com/cruxgym/crux-api/internal/queue"
	"github.com/cruxgym/crux-api/internal/repository"
	queue_publisher "github.com/cruxgym/crux-api/internal/service"
)

// TickStore is the slice of the tick repository the tick endpoints use.
type TickStore interface {
	Get(ctx context.Context, userID, routeID uint64) (model.Tick, error)
	AddAttempts(ctx context.Context, userID, routeID uint64, style model.Style, count uint32, notes string) (model.Tick, error)
	MarkSend(ctx context.Context, userID, routeID uint64, st model.SendType, notes string) (model.Tick, error)
	UnmarkSend(ctx context.Context, userID, routeID uint64, style model.Style) (model.Tick, error)
	UpdateNotes(ctx context.Context, userID, routeID uint64, notes string) (model.Tick, error)
	Delete(ctx context.Context, userID, routeID uint64) error
}

// RouteReader is the read-only slice of the route repository interaction
// handlers use to 404 on unknown routes and enrich published events.
type RouteReader interface {
	GetByID(ctx context.Context, id uint64) (model.Route, error)
}

// GradeReader resolves grade ids to rows for event enrichment.
type GradeReader interface {
	GradeByID(ctx context.Context, id uint64) (model.Grade, error)
}

// UserReader loads users for event enrichment.
type UserReader interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TickHandler serves the attempt/send/notes endpoints. PublishSent is
// swappable so tests can capture events instead of dialing a broker.
type TickHandler struct {
	Ticks       TickStore
	Routes      RouteReader
	Grades      GradeReader
	Users       UserReader
	PublishSent func(ctx context.Context, ev queue.RouteSentEvent) error
}

func NewTickHandler(ticks TickStore, routes RouteReader, grades GradeReader, users UserReader) *TickHandler {
	return &TickHandler{
		Ticks:       ticks,
		Routes:      routes,
		Grades:      grades,
		Users:       users,
		PublishSent: queue_publisher.PublishRouteSent,
	}
}

type attemptsReq struct {
	Style    string `json:"attempt_type"`
	Attempts uint32 `json:"attempts"`
	Notes    string `json:"notes"`
}

type sendReq struct {
	SendType string `json:"send_type"`
	Notes    string `json:"notes"`
}

type unsendReq struct {
	SendType string `json:"send_type"`
}

type notesReq struct {
	Notes string `json:"notes"`
}

// tickView is the wire shape of a tick row.
type tickView struct {
	RouteID         uint64    `json:"route_id"`
	TopRopeAttempts uint32    `json:"top_rope_attempts"`
	LeadAttempts    uint32    `json:"lead_attempts"`
	TopRopeSend     bool      `json:"top_rope_send"`
	TopRopeFlash    bool      `json:"top_rope_flash"`
	LeadSend        bool      `json:"lead_send"`
	LeadFlash       bool      `json:"lead_flash"`
	Notes           string    `json:"notes"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func viewOfTick(t model.Tick) tickView {
	return tickView{
		RouteID:         t.RouteID,
		TopRopeAttempts: t.TopRopeAttempts,
		LeadAttempts:    t.LeadAttempts,
		TopRopeSend:     t.TopRopeSend,
		TopRopeFlash:    t.TopRopeFlash,
		LeadSend:        t.LeadSend,
		LeadFlash:       t.LeadFlash,
		Notes:           t.Notes,
		UpdatedAt:       t.UpdatedAt,
	}
}

// requireRoute resolves the :id parameter and 404s unknown routes before any
// interaction row is written.
func (h *TickHandler) requireRoute(ctx context.Context, c echo.Context) (model.Route, uint64, error) {
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

// AddAttempts increments one style's attempt counter. An omitted attempts
// field counts as 1; zero or negative counts are rejected rather than treated
// as no-ops.
func (h *TickHandler) AddAttempts(c echo.Context) error {
	var req attemptsReq
	req.Attempts = 1
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	style, ok := model.ParseStyle(req.Style)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "attempt_type must be top_rope or lead"})
	}
	if req.Attempts < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "attempts must be at least 1"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	_, uid, err := h.requireRoute(ctx, c)
	if err != nil {
		return err
	}
	t, err := h.Ticks.AddAttempts(ctx, uid, routeID(c), style, req.Attempts, req.Notes)
	if err != nil {
		return storageError(c, "record attempts", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tick": viewOfTick(t)})
}

// MarkSend records a send and publishes a route.sent event. The event is
// fire-and-forget: broker trouble never fails the climber's request.
func (h *TickHandler) MarkSend(c echo.Context) error {
	var req sendReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	st, ok := model.ParseSendType(req.SendType)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "send_type must be top_rope, lead, flash or lead_flash"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rt, uid, err := h.requireRoute(ctx, c)
	if err != nil {
		return err
	}
	t, err := h.Ticks.MarkSend(ctx, uid, rt.ID, st, req.Notes)
	if err != nil {
		return storageError(c, "record send", err)
	}

	h.publishSent(c, uid, rt, st)

	return c.JSON(http.StatusOK, echo.Map{"tick": viewOfTick(t)})
}

func (h *TickHandler) publishSent(c echo.Context, uid uint64, rt model.Route, st model.SendType) {
	if h.PublishSent == nil {
		return
	}
	ev := queue.RouteSentEvent{
		UserID:      uid,
		RouteID:     rt.ID,
		RouteName:   rt.Name,
		WallSection: rt.WallSection,
		SendType:    string(st),
		Flash:       st == model.SendFlash || st == model.SendLeadFlash,
		SentAt:      time.Now().UTC().Format(time.RFC3339),
	}
	// Enrichment is best effort; the event stays useful without it.
	bg, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if u, err := h.Users.GetByID(bg, uid); err == nil {
		ev.Username = u.Username
	}
	if g, err := h.Grades.GradeByID(bg, rt.GradeID); err == nil {
		ev.Grade = g.Name
	}
	logger := c.Logger()
	go func() {
		defer cancel()
		if err := h.PublishSent(bg, ev); err != nil {
			logger.Warnf("route.sent publish failed: %v", err)
		}
	}()
}

// UnmarkSend clears only the send flag for one style. Attempts and flash
// survive. A pair with no tick row at all is a 404. The flash send types are
// accepted and resolve to their underlying style, since an unsend addresses
// the style regardless of how the send was recorded.
func (h *TickHandler) UnmarkSend(c echo.Context) error {
	var req unsendReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	st, ok := model.ParseSendType(req.SendType)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "send_type must be top_rope, lead, flash or lead_flash"})
	}
	style := st.Style()

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	_, uid, err := h.requireRoute(ctx, c)
	if err != nil {
		return err
	}
	t, err := h.Ticks.UnmarkSend(ctx, uid, routeID(c), style)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no tick recorded for this route"})
		}
		return storageError(c, "clear send", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tick": viewOfTick(t)})
}

// MyTick returns the acting user's tick row for a route, or an empty zeroed
// view when nothing has been recorded yet.
func (h *TickHandler) MyTick(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rt, uid, err := h.requireRoute(ctx, c)
	if err != nil {
		return err
	}
	t, err := h.Ticks.Get(ctx, uid, rt.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusOK, echo.Map{"tick": viewOfTick(model.Tick{RouteID: rt.ID})})
		}
		return storageError(c, "load tick", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tick": viewOfTick(t)})
}

// UpdateNotes overwrites the notes on the pair's tick row, creating a zeroed
// row when none exists. This is the one path where an empty value clears
// stored notes.
func (h *TickHandler) UpdateNotes(c echo.Context) error {
	var req notesReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	_, uid, err := h.requireRoute(ctx, c)
	if err != nil {
		return err
	}
	t, err := h.Ticks.UpdateNotes(ctx, uid, routeID(c), req.Notes)
	if err != nil {
		return storageError(c, "update notes", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tick": viewOfTick(t)})
}

// DeleteTick removes the acting user's tick row for a route. Deleting a row
// that never existed still succeeds.
func (h *TickHandler) DeleteTick(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	_, uid, err := h.requireRoute(ctx, c)
	if err != nil {
		return err
	}
	if err := h.Ticks.Delete(ctx, uid, routeID(c)); err != nil {
		return storageError(c, "delete tick", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": true})
}

// routeID re-parses the :id parameter after requireRoute validated it.
func routeID(c echo.Context) uint64 {
	id, _ := routeParam(c)
	return id
}
