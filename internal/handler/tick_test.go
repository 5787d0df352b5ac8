package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cruxgym/crux-api/internal/model"
	"github.com/cruxgym/crux-api/internal/queue"
	"github.com/cruxgym/crux-api/internal/repository"
)

type pairKey struct{ userID, routeID uint64 }

type memRoutes struct {
	byID map[uint64]model.Route
}

func newMemRoutes(routes ...model.Route) *memRoutes {
	m := &memRoutes{byID: map[uint64]model.Route{}}
	for _, rt := range routes {
		m.byID[rt.ID] = rt
	}
	return m
}

func (m *memRoutes) GetByID(_ context.Context, id uint64) (model.Route, error) {
	rt, ok := m.byID[id]
	if !ok {
		return model.Route{}, repository.ErrNotFound
	}
	return rt, nil
}

type memGrades struct {
	byID   map[uint64]model.Grade
	byName map[string]model.Grade
}

func newMemGrades(grades ...model.Grade) *memGrades {
	m := &memGrades{byID: map[uint64]model.Grade{}, byName: map[string]model.Grade{}}
	for _, g := range grades {
		m.byID[g.ID] = g
		m.byName[g.Name] = g
	}
	return m
}

func (m *memGrades) GradeByID(_ context.Context, id uint64) (model.Grade, error) {
	g, ok := m.byID[id]
	if !ok {
		return model.Grade{}, repository.ErrInvalidGrade
	}
	return g, nil
}

func (m *memGrades) GradeByName(_ context.Context, name string) (model.Grade, error) {
	g, ok := m.byName[name]
	if !ok {
		return model.Grade{}, repository.ErrInvalidGrade
	}
	return g, nil
}

type memProjects struct {
	rows map[pairKey]model.Project
}

func newMemProjects() *memProjects { return &memProjects{rows: map[pairKey]model.Project{}} }

func (m *memProjects) Add(_ context.Context, uid, rid uint64, notes string) (model.Project, error) {
	k := pairKey{uid, rid}
	if p, ok := m.rows[k]; ok {
		return p, nil
	}
	p := model.Project{ID: uint64(len(m.rows) + 1), UserID: uid, RouteID: rid, Notes: notes}
	m.rows[k] = p
	return p, nil
}

func (m *memProjects) Remove(_ context.Context, uid, rid uint64) error {
	delete(m.rows, pairKey{uid, rid})
	return nil
}

func (m *memProjects) Exists(_ context.Context, uid, rid uint64) (bool, error) {
	_, ok := m.rows[pairKey{uid, rid}]
	return ok, nil
}

// memTicks applies the same transitions as the SQL upserts, via the model
// methods, and mirrors the send-removes-project coupling.
type memTicks struct {
	rows     map[pairKey]*model.Tick
	projects *memProjects
}

func newMemTicks(projects *memProjects) *memTicks {
	return &memTicks{rows: map[pairKey]*model.Tick{}, projects: projects}
}

func (m *memTicks) row(uid, rid uint64) *model.Tick {
	k := pairKey{uid, rid}
	if t, ok := m.rows[k]; ok {
		return t
	}
	t := &model.Tick{ID: uint64(len(m.rows) + 1), UserID: uid, RouteID: rid}
	m.rows[k] = t
	return t
}

func (m *memTicks) Get(_ context.Context, uid, rid uint64) (model.Tick, error) {
	t, ok := m.rows[pairKey{uid, rid}]
	if !ok {
		return model.Tick{}, repository.ErrNotFound
	}
	return *t, nil
}

func (m *memTicks) AddAttempts(_ context.Context, uid, rid uint64, style model.Style, count uint32, notes string) (model.Tick, error) {
	t := m.row(uid, rid)
	t.AddAttempts(style, count, notes)
	return *t, nil
}

func (m *memTicks) MarkSend(_ context.Context, uid, rid uint64, st model.SendType, notes string) (model.Tick, error) {
	t := m.row(uid, rid)
	t.MarkSend(st, notes)
	if m.projects != nil {
		delete(m.projects.rows, pairKey{uid, rid})
	}
	return *t, nil
}

func (m *memTicks) UnmarkSend(_ context.Context, uid, rid uint64, style model.Style) (model.Tick, error) {
	t, ok := m.rows[pairKey{uid, rid}]
	if !ok {
		return model.Tick{}, repository.ErrNotFound
	}
	t.ClearSend(style)
	return *t, nil
}

func (m *memTicks) UpdateNotes(_ context.Context, uid, rid uint64, notes string) (model.Tick, error) {
	t := m.row(uid, rid)
	t.Notes = notes
	return *t, nil
}

func (m *memTicks) Delete(_ context.Context, uid, rid uint64) error {
	delete(m.rows, pairKey{uid, rid})
	return nil
}

// sentRecorder captures published send events instead of dialing a broker.
type sentRecorder struct {
	mu     sync.Mutex
	events []queue.RouteSentEvent
	done   chan struct{}
}

func newSentRecorder() *sentRecorder {
	return &sentRecorder{done: make(chan struct{}, 16)}
}

func (r *sentRecorder) publish(_ context.Context, ev queue.RouteSentEvent) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func (r *sentRecorder) wait(t *testing.T) queue.RouteSentEvent {
	t.Helper()
	<-r.done
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.events)
	return r.events[len(r.events)-1]
}

func newTickFixture() (*TickHandler, *memTicks, *memProjects, *sentRecorder) {
	routes := newMemRoutes(model.Route{ID: 10, Name: "Moonboard Madness", GradeID: 3, WallSection: "overhang"})
	grades := newMemGrades(model.Grade{ID: 3, Name: "6b+", Value: 24})
	users := newMemUsers()
	_, _ = users.Create(context.Background(), "alice", "a@b.com", "pw1234", 4)
	projects := newMemProjects()
	ticks := newMemTicks(projects)
	rec := newSentRecorder()

	h := NewTickHandler(ticks, routes, grades, users)
	h.PublishSent = rec.publish
	return h, ticks, projects, rec
}

func doTick(t *testing.T, h echo.HandlerFunc, method, body string, routeID string, uid uint64) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(routeID)
	if uid != 0 {
		c.Set("user_id", uid)
	}
	require.NoError(t, h(c))
	return rec
}

func decodeTick(t *testing.T, rec *httptest.ResponseRecorder) tickView {
	t.Helper()
	var resp struct {
		Tick tickView `json:"tick"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Tick
}

func TestAddAttemptsAccumulates(t *testing.T) {
	t.Parallel()

	h, _, _, _ := newTickFixture()

	rec := doTick(t, h.AddAttempts, http.MethodPost, `{"attempt_type":"top_rope","attempts":2}`, "10", 1)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tick := decodeTick(t, rec)
	assert.Equal(t, uint32(2), tick.TopRopeAttempts)

	rec = doTick(t, h.AddAttempts, http.MethodPost, `{"attempt_type":"top_rope"}`, "10", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	tick = decodeTick(t, rec)
	assert.Equal(t, uint32(3), tick.TopRopeAttempts, "attempts defaults to 1")
	assert.Equal(t, uint32(0), tick.LeadAttempts)
}

func TestAddAttemptsValidation(t *testing.T) {
	t.Parallel()

	h, _, _, _ := newTickFixture()

	rec := doTick(t, h.AddAttempts, http.MethodPost, `{"attempt_type":"boulder"}`, "10", 1)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doTick(t, h.AddAttempts, http.MethodPost, `{"attempt_type":"lead","attempts":0}`, "10", 1)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAttemptsUnknownRoute(t *testing.T) {
	t.Parallel()

	h, _, _, _ := newTickFixture()

	rec := doTick(t, h.AddAttempts, http.MethodPost, `{"attempt_type":"lead"}`, "999", 1)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doTick(t, h.AddAttempts, http.MethodPost, `{"attempt_type":"lead"}`, "abc", 1)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkSendFlashPublishesEvent(t *testing.T) {
	t.Parallel()

	h, _, _, events := newTickFixture()

	rec := doTick(t, h.MarkSend, http.MethodPost, `{"send_type":"flash","notes":"walked it"}`, "10", 1)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tick := decodeTick(t, rec)
	assert.True(t, tick.TopRopeSend)
	assert.True(t, tick.TopRopeFlash)
	assert.Equal(t, uint32(1), tick.TopRopeAttempts)
	assert.Equal(t, "walked it", tick.Notes)

	ev := events.wait(t)
	assert.Equal(t, uint64(1), ev.UserID)
	assert.Equal(t, "alice", ev.Username)
	assert.Equal(t, uint64(10), ev.RouteID)
	assert.Equal(t, "Moonboard Madness", ev.RouteName)
	assert.Equal(t, "6b+", ev.Grade)
	assert.Equal(t, "flash", ev.SendType)
	assert.True(t, ev.Flash)
}

func TestMarkSendRemovesProject(t *testing.T) {
	t.Parallel()

	h, _, projects, _ := newTickFixture()
	_, err := projects.Add(context.Background(), 1, 10, "winter goal")
	require.NoError(t, err)

	rec := doTick(t, h.MarkSend, http.MethodPost, `{"send_type":"lead"}`, "10", 1)
	require.Equal(t, http.StatusOK, rec.Code)

	exists, err := projects.Exists(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.False(t, exists, "a sent route is no longer a project")
}

func TestMarkSendInvalidType(t *testing.T) {
	t.Parallel()

	h, _, _, _ := newTickFixture()
	rec := doTick(t, h.MarkSend, http.MethodPost, `{"send_type":"onsight"}`, "10", 1)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnmarkSend(t *testing.T) {
	t.Parallel()

	h, _, _, _ := newTickFixture()

	// No tick row yet: nothing to unsend.
	rec := doTick(t, h.UnmarkSend, http.MethodPost, `{"send_type":"lead"}`, "10", 1)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	doTick(t, h.MarkSend, http.MethodPost, `{"send_type":"lead_flash"}`, "10", 1)
	rec = doTick(t, h.UnmarkSend, http.MethodPost, `{"send_type":"lead"}`, "10", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	tick := decodeTick(t, rec)
	assert.False(t, tick.LeadSend)
	assert.True(t, tick.LeadFlash, "flash history survives an unsend")
	assert.Equal(t, uint32(1), tick.LeadAttempts)
}

func TestAttemptFieldNames(t *testing.T) {
	t.Parallel()

	h, _, _, _ := newTickFixture()

	rec := doTick(t, h.AddAttempts, http.MethodPost, `{"attempts":3,"attempt_type":"lead"}`, "10", 1)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tick := decodeTick(t, rec)
	assert.Equal(t, uint32(3), tick.LeadAttempts)
	assert.Equal(t, uint32(0), tick.TopRopeAttempts)
}

func TestUnmarkSendAcceptsFlashType(t *testing.T) {
	t.Parallel()

	h, _, _, _ := newTickFixture()

	doTick(t, h.MarkSend, http.MethodPost, `{"send_type":"flash"}`, "10", 1)
	rec := doTick(t, h.UnmarkSend, http.MethodPost, `{"send_type":"flash"}`, "10", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	tick := decodeTick(t, rec)
	assert.False(t, tick.TopRopeSend, "flash resolves to the top-rope style")
	assert.True(t, tick.TopRopeFlash)
}

func TestMyTickEmpty(t *testing.T) {
	t.Parallel()

	h, _, _, _ := newTickFixture()
	rec := doTick(t, h.MyTick, http.MethodGet, "", "10", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	tick := decodeTick(t, rec)
	assert.Equal(t, uint64(10), tick.RouteID)
	assert.Equal(t, uint32(0), tick.TopRopeAttempts)
	assert.False(t, tick.TopRopeSend)
}

func TestUpdateNotesOverwrites(t *testing.T) {
	t.Parallel()

	h, _, _, _ := newTickFixture()

	doTick(t, h.AddAttempts, http.MethodPost, `{"attempt_type":"top_rope","notes":"first go"}`, "10", 1)
	rec := doTick(t, h.UpdateNotes, http.MethodPut, `{"notes":""}`, "10", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	tick := decodeTick(t, rec)
	assert.Equal(t, "", tick.Notes, "the explicit notes write may clear")
	assert.Equal(t, uint32(1), tick.TopRopeAttempts, "counters untouched")
}

func TestDeleteTickIdempotent(t *testing.T) {
	t.Parallel()

	h, ticks, _, _ := newTickFixture()
	doTick(t, h.AddAttempts, http.MethodPost, `{"attempt_type":"top_rope"}`, "10", 1)

	rec := doTick(t, h.DeleteTick, http.MethodDelete, "", "10", 1)
	assert.Equal(t, http.StatusOK, rec.Code)
	_, err := ticks.Get(context.Background(), 1, 10)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// Deleting again still succeeds.
	rec = doTick(t, h.DeleteTick, http.MethodDelete, "", "10", 1)
	assert.Equal(t, http.StatusOK, rec.Code)
}
