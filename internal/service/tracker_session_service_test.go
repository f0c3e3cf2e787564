package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/noah-isme/fms-tracker-api/internal/dto"
	"github.com/noah-isme/fms-tracker-api/internal/models"
	appErrors "github.com/noah-isme/fms-tracker-api/pkg/errors"
)

type projectStoreStub struct {
	trackerWriterStub

	mu      sync.Mutex
	project *models.Project
	findErr error
	finds   atomic.Int32
	delay   time.Duration
}

func newProjectStoreStub(documentSections string) *projectStoreStub {
	return &projectStoreStub{project: &models.Project{
		ID:               "p1",
		Name:             "Acme",
		DocumentSections: sql.NullString{String: documentSections, Valid: documentSections != ""},
	}}
}

func (s *projectStoreStub) FindByID(ctx context.Context, id string, kinds ...models.TrackerKind) (*models.Project, error) {
	s.finds.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.project == nil || s.project.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *s.project
	return &copied, nil
}

func (s *projectStoreStub) setRemote(payload string) {
	s.mu.Lock()
	s.project.DocumentSections = sql.NullString{String: payload, Valid: true}
	s.mu.Unlock()
}

func (s *projectStoreStub) setFindErr(err error) {
	s.mu.Lock()
	s.findErr = err
	s.mu.Unlock()
}

const seedPayload = `{"2025":[{"id":"sec-1","name":"Payroll","documents":[{"id":"doc-1","name":"Payslips"}]}]}`

func newTestSessionService(t *testing.T, projects *projectStoreStub, backup snapshotStore) *TrackerSessionService {
	t.Helper()
	svc := NewTrackerSessionService(projects, backup, nil, nil, SessionConfig{
		DebounceWindow:     testWindow,
		DeletionCooldown:   40 * time.Millisecond,
		DeletionQueueDelay: time.Millisecond,
	})
	svc.now = func() time.Time { return time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC) }
	// Cleanups run last-in first-out: sessions close before the leak check.
	t.Cleanup(func() { goleak.VerifyNone(t) })
	t.Cleanup(func() { _ = svc.CloseAll(context.Background()) })
	return svc
}

func TestSessionOpenLoadsAndSharesConcurrentOpens(t *testing.T) {
	projects := newProjectStoreStub(seedPayload)
	projects.delay = 20 * time.Millisecond
	svc := newTestSessionService(t, projects, newSnapshotStoreStub())

	var wg sync.WaitGroup
	sessions := make([]*TrackerSession, 5)
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := svc.Open(context.Background(), "p1", models.TrackerDocumentSections)
			assert.NoError(t, err)
			sessions[i] = s
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), projects.finds.Load())
	for _, s := range sessions[1:] {
		assert.Same(t, sessions[0], s)
	}

	view, err := sessions[0].View("")
	require.NoError(t, err)
	assert.Equal(t, "2025", view.Year)
	require.Len(t, view.Sections, 1)
	assert.Equal(t, "Payroll", view.Sections[0].Name)
	assert.Equal(t, models.TrackerDocumentSections.Statuses(), view.Statuses)

	require.NoError(t, svc.CloseAll(context.Background()))
	assert.Empty(t, projects.calls(), "unchanged tracker must not be written on close")
}

func TestSessionOpenErrors(t *testing.T) {
	projects := newProjectStoreStub(seedPayload)
	svc := newTestSessionService(t, projects, newSnapshotStoreStub())

	_, err := svc.Open(context.Background(), "missing", models.TrackerDocumentSections)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Open(context.Background(), "p1", models.TrackerKind("bogus"))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	projects.setFindErr(errors.New("connection refused"))
	_, err = svc.Open(context.Background(), "p1", models.TrackerDocumentSections)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestSessionOpenFallsBackToBackup(t *testing.T) {
	projects := newProjectStoreStub(seedPayload)
	projects.setFindErr(errors.New("connection refused"))
	backup := newSnapshotStoreStub()
	require.NoError(t, backup.Save(context.Background(), models.TrackerDocumentSections, "p1",
		`{"2025":[{"id":"sec-9","name":"From backup","documents":[]}]}`))
	svc := newTestSessionService(t, projects, backup)

	session, err := svc.Open(context.Background(), "p1", models.TrackerDocumentSections)
	require.NoError(t, err)
	view, err := session.View("2025")
	require.NoError(t, err)
	require.Len(t, view.Sections, 1)
	assert.Equal(t, "sec-9", view.Sections[0].ID)

	projects.setFindErr(nil)
	persisted, err := session.Flush(context.Background())
	require.NoError(t, err)
	assert.True(t, persisted)
	assert.Contains(t, projects.last(), "sec-9")
}

func TestSessionCellEditsPersistImmediately(t *testing.T) {
	projects := newProjectStoreStub(seedPayload)
	svc := newTestSessionService(t, projects, newSnapshotStoreStub())
	session, err := svc.Open(context.Background(), "p1", models.TrackerDocumentSections)
	require.NoError(t, err)

	cell := models.CellRef{SectionID: "sec-1", DocumentID: "doc-1", MonthKey: "2025-03"}
	result, err := session.SetStatus(context.Background(), dto.SetStatusRequest{Year: "2025", CellRef: cell, Status: models.StatusCollected})
	require.NoError(t, err)
	assert.True(t, result.Persisted)
	assert.Contains(t, projects.last(), `"2025-03":"collected"`)

	comment, result, err := session.AddComment(context.Background(), dto.AddCommentRequest{Year: "2025", CellRef: cell, Text: "received"}, testActor("u1", models.RoleStaff))
	require.NoError(t, err)
	assert.True(t, result.Persisted)
	assert.Contains(t, projects.last(), comment.ID)

	_, err = session.DeleteComment(context.Background(), "2025", cell, comment.ID, testActor("u2", models.RoleStaff))
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	writes := len(projects.calls())

	result, err = session.DeleteComment(context.Background(), "2025", cell, comment.ID, testActor("u1", models.RoleStaff))
	require.NoError(t, err)
	assert.True(t, result.Persisted)
	assert.Len(t, projects.calls(), writes+1)
	assert.NotContains(t, projects.last(), comment.ID)
}

func TestSessionCellEditReportsFailedPersist(t *testing.T) {
	projects := newProjectStoreStub(seedPayload)
	svc := newTestSessionService(t, projects, newSnapshotStoreStub())
	session, err := svc.Open(context.Background(), "p1", models.TrackerDocumentSections)
	require.NoError(t, err)

	projects.setErr(errors.New("remote down"))
	result, err := session.ApplyStatus(context.Background(), dto.BulkStatusRequest{
		Year:   "2025",
		Cells:  []models.CellRef{{SectionID: "sec-1", DocumentID: "doc-1", MonthKey: "2025-01"}, {SectionID: "sec-1", DocumentID: "doc-1", MonthKey: "2025-02"}},
		Status: models.StatusOngoing,
	})
	require.NoError(t, err)
	assert.False(t, result.Persisted)

	status, err := session.Store().Status("sec-1", "doc-1", "2025-02")
	require.NoError(t, err)
	assert.Equal(t, models.StatusOngoing, status)
	projects.setErr(nil)
}

func TestSessionStructuralEditsAreDebounced(t *testing.T) {
	projects := newProjectStoreStub(seedPayload)
	svc := newTestSessionService(t, projects, newSnapshotStoreStub())
	session, err := svc.Open(context.Background(), "p1", models.TrackerDocumentSections)
	require.NoError(t, err)

	section, err := session.AddSection(dto.SectionInput{Year: "2026", Name: "Next year"})
	require.NoError(t, err)
	_, err = session.AddDocument(section.ID, dto.DocumentInput{Year: "2026", Name: "Contracts"})
	require.NoError(t, err)
	assert.Empty(t, projects.calls())

	require.Eventually(t, func() bool { return len(projects.calls()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, projects.last(), `"2026"`)
	assert.Contains(t, projects.last(), "Contracts")

	view, err := session.View("")
	require.NoError(t, err)
	assert.Equal(t, "2026", view.Year)
	assert.Equal(t, []string{"2025", "2026"}, view.Years)
}

func TestSessionDeleteDocumentAndRefreshGuard(t *testing.T) {
	projects := newProjectStoreStub(seedPayload)
	svc := newTestSessionService(t, projects, newSnapshotStoreStub())
	session, err := svc.Open(context.Background(), "p1", models.TrackerDocumentSections)
	require.NoError(t, err)

	require.NoError(t, session.DeleteDocument(context.Background(), "2025", "sec-1", "doc-1"))
	assert.NotContains(t, projects.last(), "doc-1")
	assert.True(t, session.InProgress())

	// A stale remote copy must not resurrect the document during the cooldown.
	projects.setRemote(seedPayload)
	refreshed, err := session.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, refreshed)
	view, err := session.View("2025")
	require.NoError(t, err)
	assert.Empty(t, view.Sections[0].Documents)

	require.Eventually(t, func() bool {
		ok, err := session.Refresh(context.Background())
		return err == nil && ok
	}, time.Second, 5*time.Millisecond)
	view, err = session.View("2025")
	require.NoError(t, err)
	require.Len(t, view.Sections[0].Documents, 1)
}

func TestSessionDeleteDocumentValidatesYear(t *testing.T) {
	projects := newProjectStoreStub(seedPayload)
	svc := newTestSessionService(t, projects, newSnapshotStoreStub())
	session, err := svc.Open(context.Background(), "p1", models.TrackerDocumentSections)
	require.NoError(t, err)

	err = session.DeleteDocument(context.Background(), "25", "sec-1", "doc-1")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	// Another client's year selection never becomes the delete target.
	require.NoError(t, session.Store().SelectYear("2025"))
	err = session.DeleteDocument(context.Background(), "", "sec-1", "doc-1")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Len(t, session.Store().Sections("2025")[0].Documents, 1)
	assert.Empty(t, projects.calls())
}

func TestSessionRefreshSkipsDirtyState(t *testing.T) {
	defer goleak.VerifyNone(t)

	projects := newProjectStoreStub(seedPayload)
	svc := NewTrackerSessionService(projects, newSnapshotStoreStub(), nil, nil, SessionConfig{DebounceWindow: time.Hour})
	svc.now = func() time.Time { return time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC) }
	session, err := svc.Open(context.Background(), "p1", models.TrackerDocumentSections)
	require.NoError(t, err)

	_, err = session.AddSection(dto.SectionInput{Year: "2025", Name: "Local only"})
	require.NoError(t, err)

	refreshed, err := session.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, refreshed)
	assert.Len(t, session.Store().Sections("2025"), 2)

	require.NoError(t, svc.Close(context.Background(), "p1", models.TrackerDocumentSections))
	assert.Contains(t, projects.last(), "Local only")
	_, ok := svc.Get("p1", models.TrackerDocumentSections)
	assert.False(t, ok)
}

func TestSessionCloseWritesBackupWhenRemoteFails(t *testing.T) {
	defer goleak.VerifyNone(t)

	projects := newProjectStoreStub(seedPayload)
	backup := newSnapshotStoreStub()
	svc := NewTrackerSessionService(projects, backup, nil, nil, SessionConfig{DebounceWindow: time.Hour})
	session, err := svc.Open(context.Background(), "p1", models.TrackerDocumentSections)
	require.NoError(t, err)

	_, err = session.AddSection(dto.SectionInput{Year: "2025", Name: "Unsaved"})
	require.NoError(t, err)
	projects.setErr(errors.New("remote down"))

	err = svc.CloseAll(context.Background())
	assert.True(t, errors.Is(err, appErrors.ErrPersistFailed))
	assert.Contains(t, backup.get(models.TrackerDocumentSections, "p1"), "Unsaved")
}

func TestSessionResolveDeepLinkSelectsYear(t *testing.T) {
	projects := newProjectStoreStub(`{"2024":[{"id":"sec-1","name":"Old","documents":[{"id":"doc-1","name":"Ledger"}]}],"2025":[]}`)
	svc := newTestSessionService(t, projects, newSnapshotStoreStub())
	session, err := svc.Open(context.Background(), "p1", models.TrackerDocumentSections)
	require.NoError(t, err)

	resolver := NewDeepLinkService(nil, DeepLinkConfig{Attempts: 1})
	loc, err := session.ResolveDeepLink(context.Background(), resolver, models.DeepLinkTarget{SectionID: "sec-1", DocumentID: "doc-1", MonthKey: "2024-05"})
	require.NoError(t, err)
	assert.Equal(t, "2024", loc.Year)
	assert.Equal(t, "2024", session.Store().SelectedYear())
}

func TestSessionRefreshLoopStopsOnClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	projects := newProjectStoreStub(seedPayload)
	svc := NewTrackerSessionService(projects, nil, nil, nil, SessionConfig{
		DebounceWindow:  testWindow,
		RefreshInterval: 5 * time.Millisecond,
	})
	session, err := svc.Open(context.Background(), "p1", models.TrackerDocumentSections)
	require.NoError(t, err)

	projects.setRemote(`{"2025":[{"id":"sec-7","name":"Remote edit","documents":[]}]}`)
	require.Eventually(t, func() bool {
		sections := session.Store().Sections("2025")
		return len(sections) == 1 && sections[0].ID == "sec-7"
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, svc.CloseAll(context.Background()))
}
