package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/fms-tracker-api/internal/models"
	appErrors "github.com/noah-isme/fms-tracker-api/pkg/errors"
	"github.com/noah-isme/fms-tracker-api/pkg/export"
)

// ExportFormat names a rendered export type.
type ExportFormat string

const (
	ExportXLSX ExportFormat = "xlsx"
	ExportCSV  ExportFormat = "csv"
	ExportPDF  ExportFormat = "pdf"
)

var exportContentTypes = map[ExportFormat]string{
	ExportXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	ExportCSV:  "text/csv",
	ExportPDF:  "application/pdf",
}

// statusFills colours status cells in spreadsheets.
var statusFills = map[string]string{
	string(models.StatusCollected):    "#C6EFCE",
	string(models.StatusChecked):      "#C6EFCE",
	string(models.StatusOngoing):      "#FFEB9C",
	string(models.StatusNotCollected): "#FFC7CE",
	string(models.StatusNotChecked):   "#FFC7CE",
	string(models.StatusIssue):        "#F4B084",
	string(models.StatusUnavailable):  "#D9D9D9",
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportFile is a rendered export ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// TrackerExportService renders one year of a tracker as a grid: sections as
// row groups, months as paired status and comment columns.
type TrackerExportService struct {
	renderers map[ExportFormat]datasetRenderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewTrackerExportService constructs the service with the default renderers.
func NewTrackerExportService(logger *zap.Logger) *TrackerExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackerExportService{
		renderers: map[ExportFormat]datasetRenderer{
			ExportXLSX: export.NewXLSXExporter(statusFills),
			ExportCSV:  export.NewCSVExporter(),
			ExportPDF:  export.NewPDFExporter(),
		},
		logger: logger,
		now:    time.Now,
	}
}

// ParseExportFormat validates a requested format; empty means xlsx.
func ParseExportFormat(raw string) (ExportFormat, error) {
	format := ExportFormat(strings.ToLower(strings.TrimSpace(raw)))
	if format == "" {
		return ExportXLSX, nil
	}
	if _, ok := exportContentTypes[format]; !ok {
		return "", appErrors.Clone(appErrors.ErrUnsupportedFormat, fmt.Sprintf("unsupported export format %q", raw))
	}
	return format, nil
}

// Export renders sections, which the caller must not mutate concurrently.
func (s *TrackerExportService) Export(projectID string, kind models.TrackerKind, year string, sections []models.Section, format ExportFormat) (*ExportFile, error) {
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, fmt.Sprintf("unsupported export format %q", format))
	}
	y, err := parseYear(year)
	if err != nil {
		return nil, err
	}
	dataset := BuildTrackerDataset(kind, y, sections)
	payload, err := renderer.Render(dataset)
	if err != nil {
		s.logger.Error("tracker export failed",
			zap.String("project_id", projectID),
			zap.String("tracker", string(kind)),
			zap.String("format", string(format)),
			zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("%s-%s-%s-%s.%s", kind, projectID, year, s.now().UTC().Format("20060102"), format),
		ContentType: exportContentTypes[format],
		Payload:     payload,
	}, nil
}

// BuildTrackerDataset lays out one year as a grid.
func BuildTrackerDataset(kind models.TrackerKind, year int, sections []models.Section) export.Dataset {
	months := models.YearMonths(year)
	headers := []string{"Section", "Document"}
	statusCols := make([]string, len(months))
	commentCols := make([]string, len(months))
	for i, month := range months {
		_, y, m, _ := models.ParseMonthKey(string(month))
		label := fmt.Sprintf("%s %d", m.String()[:3], y)
		statusCols[i] = label + " Status"
		commentCols[i] = label + " Comments"
		headers = append(headers, statusCols[i], commentCols[i])
	}

	data := export.Dataset{
		Title:   fmt.Sprintf("%s %d", kindTitle(kind), year),
		Headers: headers,
	}
	for _, section := range sections {
		data.GroupRows = append(data.GroupRows, len(data.Rows))
		data.Rows = append(data.Rows, map[string]string{"Section": section.Name})
		for _, doc := range section.Documents {
			row := map[string]string{"Section": section.Name, "Document": doc.Name}
			for i, month := range months {
				if status := doc.CollectionStatus[month]; status != models.StatusUnset {
					row[statusCols[i]] = string(status)
				}
				if comments := doc.Comments[month]; len(comments) > 0 {
					row[commentCols[i]] = formatComments(comments)
				}
			}
			data.Rows = append(data.Rows, row)
		}
	}
	return data
}

func formatComments(comments []models.Comment) string {
	lines := make([]string, 0, len(comments))
	for _, c := range comments {
		author := c.Author
		if author == "" {
			author = c.AuthorEmail
		}
		if author == "" {
			lines = append(lines, c.Text)
			continue
		}
		lines = append(lines, author+": "+c.Text)
	}
	return strings.Join(lines, "\n")
}

func kindTitle(kind models.TrackerKind) string {
	switch kind {
	case models.TrackerWeeklyFMSReviewSections:
		return "Weekly FMS Review"
	case models.TrackerMonthlyFMSReviewSections:
		return "Monthly FMS Review"
	default:
		return "Document Collection"
	}
}

func parseYear(year string) (int, error) {
	if !models.IsYearKey(year) {
		return 0, appErrors.Clone(appErrors.ErrValidation, "year must be a four digit year")
	}
	return strconv.Atoi(year)
}
