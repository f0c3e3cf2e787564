package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fms-tracker-api/internal/models"
	appErrors "github.com/noah-isme/fms-tracker-api/pkg/errors"
	"github.com/noah-isme/fms-tracker-api/pkg/export"
)

func TestBuildTrackerDataset(t *testing.T) {
	store := NewTrackerStore(models.TrackerWeeklyFMSReviewSections, seedPartition(), "2025")
	require.NoError(t, store.SetStatus("sec-1", "doc-2", "2025-02", models.StatusIssue))
	_, err := store.AddComment(models.CellRef{SectionID: "sec-1", DocumentID: "doc-2", MonthKey: "2025-02"}, "late", testActor("u1", models.RoleStaff))
	require.NoError(t, err)

	data := BuildTrackerDataset(models.TrackerWeeklyFMSReviewSections, 2025, store.Sections("2025"))

	assert.Equal(t, "Weekly FMS Review 2025", data.Title)
	require.Len(t, data.Headers, 2+24)
	assert.Equal(t, "Jan 2025 Status", data.Headers[2])
	assert.Equal(t, "Jan 2025 Comments", data.Headers[3])
	assert.Equal(t, "Dec 2025 Comments", data.Headers[25])

	assert.Equal(t, []int{0, 3}, data.GroupRows)
	require.Len(t, data.Rows, 5)
	assert.Equal(t, "Payroll", data.Rows[0]["Section"])
	assert.Equal(t, "issue", data.Rows[2]["Feb 2025 Status"])
	assert.Equal(t, "User u1: late", data.Rows[2]["Feb 2025 Comments"])
	assert.Empty(t, data.Rows[1]["Feb 2025 Status"])
}

func TestTrackerExportDoesNotMutateStore(t *testing.T) {
	store := NewTrackerStore(models.TrackerDocumentSections, seedPartition(), "2025")
	before := store.Snapshot()
	svc := NewTrackerExportService(nil)

	for _, format := range []ExportFormat{ExportXLSX, ExportCSV, ExportPDF} {
		file, err := svc.Export("p1", store.Kind(), "2025", store.Sections("2025"), format)
		require.NoError(t, err, format)
		assert.NotEmpty(t, file.Payload)
		assert.True(t, strings.HasPrefix(file.Filename, "documentSections-p1-2025-"))
		assert.True(t, strings.HasSuffix(file.Filename, "."+string(format)))
	}
	assert.Empty(t, cmp.Diff(before, store.Snapshot()))
}

type failingRenderer struct{}

func (failingRenderer) Render(export.Dataset) ([]byte, error) {
	return nil, errors.New("disk full")
}

func TestTrackerExportRenderFailure(t *testing.T) {
	store := NewTrackerStore(models.TrackerDocumentSections, seedPartition(), "2025")
	before := store.Snapshot()
	svc := NewTrackerExportService(nil)
	svc.renderers[ExportCSV] = failingRenderer{}

	_, err := svc.Export("p1", store.Kind(), "2025", store.Sections("2025"), ExportCSV)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
	assert.Empty(t, cmp.Diff(before, store.Snapshot()))

	_, err = svc.Export("p1", store.Kind(), "20x5", nil, ExportXLSX)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestParseExportFormat(t *testing.T) {
	format, err := ParseExportFormat("")
	require.NoError(t, err)
	assert.Equal(t, ExportXLSX, format)

	format, err = ParseExportFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, ExportCSV, format)

	_, err = ParseExportFormat("docx")
	assert.True(t, errors.Is(err, appErrors.ErrUnsupportedFormat))
}
