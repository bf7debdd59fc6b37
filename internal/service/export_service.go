package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/reportdesk/report-desk-api/internal/dto"
	appErrors "github.com/reportdesk/report-desk-api/pkg/errors"
	"github.com/reportdesk/report-desk-api/pkg/export"
)

// ExportFormat identifies the roster export encoding.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

var exportHeaders = []string{
	"ID", "Reporter", "Email", "Institution", "Status",
	"Assigned To", "Assigned At", "Completed At", "Created At",
}

type reportLister interface {
	ListAll(ctx context.Context) ([]dto.ReportResponse, error)
}

// ExportService renders the full report roster as CSV or PDF for
// moderators who want an offline snapshot.
type ExportService struct {
	reports reportLister
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
}

// NewExportService constructs the exporter over the workflow's listing.
func NewExportService(reports reportLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		reports: reports,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
	}
}

// ExportResult carries the rendered document and its response metadata.
type ExportResult struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Export renders the roster in the requested format.
func (s *ExportService) Export(ctx context.Context, format ExportFormat) (*ExportResult, error) {
	reports, err := s.reports.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	dataset := buildRosterDataset(reports)

	switch ExportFormat(strings.ToLower(string(format))) {
	case ExportFormatCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			s.logger.Error("csv export failed", zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportResult{Data: data, ContentType: "text/csv", Filename: "reports.csv"}, nil
	case ExportFormatPDF:
		data, err := s.pdf.Render(dataset, "Report Roster")
		if err != nil {
			s.logger.Error("pdf export failed", zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportResult{Data: data, ContentType: "application/pdf", Filename: "reports.pdf"}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format, use csv or pdf")
	}
}

func buildRosterDataset(reports []dto.ReportResponse) export.Dataset {
	rows := make([]map[string]string, 0, len(reports))
	for _, report := range reports {
		institution := report.InstitutionName
		if institution == "" {
			institution = report.ReportedInstitution
		}
		rows = append(rows, map[string]string{
			"ID":           report.ID,
			"Reporter":     report.ReporterName,
			"Email":        report.ReporterEmail,
			"Institution":  institution,
			"Status":       report.Status,
			"Assigned To":  report.AssignedTo,
			"Assigned At":  report.AssignedAt,
			"Completed At": report.CompletedAt,
			"Created At":   report.CreatedAt,
		})
	}
	return export.Dataset{Headers: exportHeaders, Rows: rows}
}
