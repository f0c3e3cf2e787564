package service

import (
	"context"
	"errors"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fms-tracker-api/internal/models"
	appErrors "github.com/noah-isme/fms-tracker-api/pkg/errors"
)

func TestParseDeepLink(t *testing.T) {
	cases := []struct {
		name string
		url  string
		want models.DeepLinkTarget
	}{
		{
			name: "query string",
			url:  "https://crm.example.com/projects/7?docSectionId=s1&docDocumentId=d1&docMonth=2025-03&commentId=c1",
			want: models.DeepLinkTarget{SectionID: "s1", DocumentID: "d1", MonthKey: "2025-03", CommentID: "c1"},
		},
		{
			name: "hash router",
			url:  "https://crm.example.com/#/projects/7?docSectionId=s1&docDocumentId=d1&docMonth=2025-03",
			want: models.DeepLinkTarget{SectionID: "s1", DocumentID: "d1", MonthKey: "2025-03"},
		},
		{
			name: "no month",
			url:  "/projects/7?docSectionId=s1&docDocumentId=d1",
			want: models.DeepLinkTarget{SectionID: "s1", DocumentID: "d1"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseDeepLink(tc.url)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseDeepLinkRejects(t *testing.T) {
	for _, raw := range []string{
		"https://crm.example.com/projects/7",
		"https://crm.example.com/#/projects/7?docSectionId=s1",
		"/p?docSectionId=s1&docDocumentId=d1&docMonth=March",
		"%zz",
	} {
		_, err := ParseDeepLink(raw)
		assert.True(t, errors.Is(err, appErrors.ErrValidation), raw)
	}
}

func TestTargetFromQuery(t *testing.T) {
	_, ok, err := TargetFromQuery(url.Values{})
	assert.False(t, ok)
	assert.NoError(t, err)

	target, ok, err := TargetFromQuery(url.Values{ParamSectionID: {"s"}, ParamDocumentID: {"d"}})
	assert.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, "s", target.SectionID)
}

type delayedLocator struct {
	store      *TrackerStore
	readyAfter int32
	calls      atomic.Int32
}

func (l *delayedLocator) Loaded() bool {
	return l.calls.Add(1) > l.readyAfter
}

func (l *delayedLocator) Locate(target models.DeepLinkTarget, preferredYear string) (*models.CellLocation, bool) {
	return l.store.Locate(target, preferredYear)
}

func TestDeepLinkResolveRetriesUntilLoaded(t *testing.T) {
	store := NewTrackerStore(models.TrackerDocumentSections, seedPartition(), "2025")
	comment, err := store.AddComment(models.CellRef{SectionID: "sec-1", DocumentID: "doc-1", MonthKey: "2025-02"}, "check", testActor("u1", models.RoleStaff))
	require.NoError(t, err)

	svc := NewDeepLinkService(nil, DeepLinkConfig{Attempts: 5, Backoff: time.Millisecond})
	locator := &delayedLocator{store: store, readyAfter: 2}

	loc, err := svc.Resolve(context.Background(), locator, models.DeepLinkTarget{
		SectionID: "sec-1", DocumentID: "doc-1", MonthKey: "2025-02", CommentID: comment.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, loc.Attempts)
	assert.Equal(t, "2025", loc.Year)
	assert.Equal(t, "Payslips", loc.DocumentName)
	assert.Equal(t, 0, loc.HighlightIndex)
	assert.Equal(t, comment.ID, loc.HighlightComment)
}

func TestDeepLinkResolveMissingComment(t *testing.T) {
	store := NewTrackerStore(models.TrackerDocumentSections, seedPartition(), "2025")
	svc := NewDeepLinkService(nil, DeepLinkConfig{Attempts: 3})

	loc, err := svc.Resolve(context.Background(), store, models.DeepLinkTarget{SectionID: "sec-2", DocumentID: "doc-3", CommentID: "gone"})
	require.NoError(t, err)
	assert.Equal(t, -1, loc.HighlightIndex)
	assert.Empty(t, loc.HighlightComment)
	assert.Equal(t, 3, loc.Attempts)
}

func TestDeepLinkResolveNotFound(t *testing.T) {
	store := NewTrackerStore(models.TrackerDocumentSections, seedPartition(), "2025")
	svc := NewDeepLinkService(nil, DeepLinkConfig{Attempts: 2, Backoff: time.Millisecond})

	_, err := svc.Resolve(context.Background(), store, models.DeepLinkTarget{SectionID: "x", DocumentID: "y"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestDeepLinkResolveHonoursContext(t *testing.T) {
	store := NewPendingTrackerStore(models.TrackerDocumentSections, "2025")
	svc := NewDeepLinkService(nil, DeepLinkConfig{Attempts: 100, Backoff: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Resolve(ctx, store, models.DeepLinkTarget{SectionID: "sec-1", DocumentID: "doc-1"})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestPlacePopup(t *testing.T) {
	viewport := models.Size{Width: 1000, Height: 800}
	popup := models.Size{Width: 300, Height: 200}

	below := PlacePopup(models.Rect{Top: 100, Left: 50, Width: 80, Height: 20}, popup, viewport, 8)
	assert.Equal(t, models.PopupPlacement{Top: 128, Left: 50}, below)

	above := PlacePopup(models.Rect{Top: 700, Left: 50, Width: 80, Height: 20}, popup, viewport, 8)
	assert.True(t, above.Above)
	assert.Equal(t, float64(492), above.Top)

	clamped := PlacePopup(models.Rect{Top: 100, Left: 900, Width: 80, Height: 20}, popup, viewport, 8)
	assert.Equal(t, float64(692), clamped.Left)

	left := PlacePopup(models.Rect{Top: 100, Left: -40, Width: 80, Height: 20}, popup, viewport, 8)
	assert.Equal(t, float64(8), left.Left)

	cramped := PlacePopup(models.Rect{Top: 150, Left: 0, Width: 80, Height: 20}, models.Size{Width: 100, Height: 700}, models.Size{Width: 400, Height: 300}, 8)
	assert.True(t, cramped.Above)
	assert.Equal(t, float64(8), cramped.Top)
}
