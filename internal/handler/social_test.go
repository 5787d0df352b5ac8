package handler

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cruxgym/crux-api/internal/model"
	"github.com/cruxgym/crux-api/internal/queue"
	"github.com/cruxgym/crux-api/internal/repository"
)

type memLikes struct {
	rows map[pairKey]bool
}

func newMemLikes() *memLikes { return &memLikes{rows: map[pairKey]bool{}} }

func (m *memLikes) Like(_ context.Context, uid, rid uint64) error {
	m.rows[pairKey{uid, rid}] = true
	return nil
}

func (m *memLikes) Unlike(_ context.Context, uid, rid uint64) error {
	delete(m.rows, pairKey{uid, rid})
	return nil
}

func (m *memLikes) Liked(_ context.Context, uid, rid uint64) (bool, error) {
	return m.rows[pairKey{uid, rid}], nil
}

type memFeedback struct {
	nextID    uint64
	comments  []repository.CommentView
	warnings  map[uint64]string
	proposals map[pairKey]model.GradeProposal
}

func newMemFeedback() *memFeedback {
	return &memFeedback{
		nextID:    1,
		warnings:  map[uint64]string{},
		proposals: map[pairKey]model.GradeProposal{},
	}
}

func (m *memFeedback) AddComment(_ context.Context, uid, rid uint64, content string) (uint64, error) {
	id := m.nextID
	m.nextID++
	m.comments = append(m.comments, repository.CommentView{
		ID: id, UserID: uid, RouteID: rid, Content: content, CreatedAt: time.Now(),
	})
	return id, nil
}

func (m *memFeedback) ListComments(_ context.Context, rid uint64) ([]repository.CommentView, error) {
	var out []repository.CommentView
	for _, c := range m.comments {
		if c.RouteID == rid {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memFeedback) AddWarning(_ context.Context, _, _ uint64, _, description string) (uint64, error) {
	id := m.nextID
	m.nextID++
	m.warnings[id] = description
	return id, nil
}

func (m *memFeedback) ProposeGrade(_ context.Context, uid, rid, gradeID uint64, reasoning string) error {
	k := pairKey{uid, rid}
	p, ok := m.proposals[k]
	if !ok {
		p = model.GradeProposal{ID: m.nextID, UserID: uid, RouteID: rid}
		m.nextID++
	}
	p.ProposedGradeID = gradeID
	p.Reasoning = reasoning
	m.proposals[k] = p
	return nil
}

func (m *memFeedback) GetProposal(_ context.Context, uid, rid uint64) (model.GradeProposal, error) {
	p, ok := m.proposals[pairKey{uid, rid}]
	if !ok {
		return model.GradeProposal{}, repository.ErrNotFound
	}
	return p, nil
}

func (m *memFeedback) ProposalsForUser(_ context.Context, uid uint64) ([]repository.ProposalView, error) {
	var out []repository.ProposalView
	for _, p := range m.proposals {
		if p.UserID == uid {
			out = append(out, repository.ProposalView{ID: p.ID, RouteID: p.RouteID, Reasoning: p.Reasoning})
		}
	}
	return out, nil
}

type warningRecorder struct {
	mu     sync.Mutex
	events []queue.RouteWarningEvent
	done   chan struct{}
}

func newWarningRecorder() *warningRecorder {
	return &warningRecorder{done: make(chan struct{}, 16)}
}

func (r *warningRecorder) publish(_ context.Context, ev queue.RouteWarningEvent) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func newSocialFixture() (*SocialHandler, *memLikes, *memProjects, *memFeedback, *warningRecorder) {
	routes := newMemRoutes(model.Route{ID: 10, Name: "Moonboard Madness", GradeID: 3, WallSection: "overhang"})
	grades := newMemGrades(
		model.Grade{ID: 3, Name: "6b+", Value: 24},
		model.Grade{ID: 4, Name: "6c", Value: 25},
	)
	likes := newMemLikes()
	projects := newMemProjects()
	feedback := newMemFeedback()
	rec := newWarningRecorder()

	h := NewSocialHandler(likes, projects, feedback, grades, routes)
	h.PublishWarning = rec.publish
	return h, likes, projects, feedback, rec
}

func TestLikeIdempotent(t *testing.T) {
	t.Parallel()

	h, likes, _, _, _ := newSocialFixture()

	rec := doTick(t, h.Like, http.MethodPost, "", "10", 1)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Liking an already-liked route is still a success.
	rec = doTick(t, h.Like, http.MethodPost, "", "10", 1)
	assert.Equal(t, http.StatusOK, rec.Code)

	liked, err := likes.Liked(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.True(t, liked)

	rec = doTick(t, h.Unlike, http.MethodDelete, "", "10", 1)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Unliking twice succeeds too.
	rec = doTick(t, h.Unlike, http.MethodDelete, "", "10", 1)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLikeStatus(t *testing.T) {
	t.Parallel()

	h, _, _, _, _ := newSocialFixture()

	rec := doTick(t, h.LikeStatus, http.MethodGet, "", "10", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"liked":false`)

	doTick(t, h.Like, http.MethodPost, "", "10", 1)
	rec = doTick(t, h.LikeStatus, http.MethodGet, "", "10", 1)
	assert.Contains(t, rec.Body.String(), `"liked":true`)
}

func TestLikeUnknownRoute(t *testing.T) {
	t.Parallel()

	h, _, _, _, _ := newSocialFixture()
	rec := doTick(t, h.Like, http.MethodPost, "", "999", 1)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddProjectKeepsExisting(t *testing.T) {
	t.Parallel()

	h, _, projects, _, _ := newSocialFixture()

	rec := doTick(t, h.AddProject, http.MethodPost, `{"notes":"winter goal"}`, "10", 1)
	require.Equal(t, http.StatusOK, rec.Code)

	// Re-adding does not clobber the stored notes.
	rec = doTick(t, h.AddProject, http.MethodPost, `{"notes":"changed my mind"}`, "10", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "winter goal")

	exists, err := projects.Exists(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.True(t, exists)

	rec = doTick(t, h.RemoveProject, http.MethodDelete, "", "10", 1)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doTick(t, h.RemoveProject, http.MethodDelete, "", "10", 1)
	assert.Equal(t, http.StatusOK, rec.Code, "removing a non-project succeeds")
}

func TestAddComment(t *testing.T) {
	t.Parallel()

	h, _, _, _, _ := newSocialFixture()

	rec := doTick(t, h.AddComment, http.MethodPost, `{"content":"   "}`, "10", 1)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "whitespace-only comments rejected")

	rec = doTick(t, h.AddComment, http.MethodPost, `{"content":"sandbagged for sure"}`, "10", 1)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doTick(t, h.ListComments, http.MethodGet, "", "10", 0)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sandbagged for sure")
}

func TestAddWarningPublishesEvent(t *testing.T) {
	t.Parallel()

	h, _, _, _, events := newSocialFixture()

	rec := doTick(t, h.AddWarning, http.MethodPost,
		`{"warning_type":"spinning_hold","description":"third hold spins"}`, "10", 1)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	<-events.done
	events.mu.Lock()
	defer events.mu.Unlock()
	require.Len(t, events.events, 1)
	ev := events.events[0]
	assert.Equal(t, uint64(1), ev.UserID)
	assert.Equal(t, uint64(10), ev.RouteID)
	assert.Equal(t, "Moonboard Madness", ev.RouteName)
	assert.Equal(t, "third hold spins", ev.Description)
}

func TestAddWarningValidation(t *testing.T) {
	t.Parallel()

	h, _, _, _, _ := newSocialFixture()

	rec := doTick(t, h.AddWarning, http.MethodPost,
		`{"warning_type":"bad_vibes","description":"nope"}`, "10", 1)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doTick(t, h.AddWarning, http.MethodPost,
		`{"warning_type":"spinning_hold","description":""}`, "10", 1)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProposeGradeUpserts(t *testing.T) {
	t.Parallel()

	h, _, _, feedback, _ := newSocialFixture()

	rec := doTick(t, h.ProposeGrade, http.MethodPost,
		`{"proposed_grade":"9c+","reasoning":"hard"}`, "10", 1)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "grades outside the gym scale are rejected")

	rec = doTick(t, h.ProposeGrade, http.MethodPost,
		`{"proposed_grade":"6c","reasoning":"reachy crux"}`, "10", 1)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// A second proposal replaces the first.
	rec = doTick(t, h.ProposeGrade, http.MethodPost,
		`{"proposed_grade":"6b+","reasoning":"found a kneebar"}`, "10", 1)
	require.Equal(t, http.StatusOK, rec.Code)

	p, err := feedback.GetProposal(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), p.ProposedGradeID)
	assert.Equal(t, "found a kneebar", p.Reasoning)

	rec = doTick(t, h.MyProposals, http.MethodGet, "", "10", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "found a kneebar")
}
