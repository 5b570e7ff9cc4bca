package exporter

import (
	"context"
	"log/slog"

	"leadpulse/internal/config"
	"leadpulse/internal/errors"
	"leadpulse/internal/infrastructure"
	"leadpulse/pkg/contracts/domain"
)

// Artifact is a rendered export ready to be written or streamed.
type Artifact struct {
	Name        string
	ContentType string
	Format      Format
	Data        []byte
}

// Save writes the artifact to path.
func (a *Artifact) Save(path string) error {
	return WriteFile(path, a.Data)
}

// Exporter renders query results in every supported format.
type Exporter struct {
	baseName string
	csv      *CSVWriter
	workbook *WorkbookWriter
	pdf      *PDFWriter
	logger   *slog.Logger
}

// New creates an exporter from configuration.
func New(cfg config.ExportConfig, logger *slog.Logger) *Exporter {
	baseName := cfg.FileBaseName
	if baseName == "" {
		baseName = "filtered_campaign_data"
	}
	return &Exporter{
		baseName: baseName,
		csv:      NewCSVWriter(cfg.BOM),
		workbook: NewWorkbookWriter(cfg.DetailSheet, cfg.SummarySheet),
		pdf:      NewPDFWriter(""),
		logger:   infrastructure.WithComponent(logger, "exporter"),
	}
}

// Export renders result as format. CSV holds the filtered detail table only;
// the workbook holds detail and summary sheets; the PDF holds the summary.
func (e *Exporter) Export(ctx context.Context, result *domain.Result, format Format) (*Artifact, error) {
	if result == nil {
		return nil, errors.NewAppValidationError("nothing to export")
	}

	var (
		data []byte
		err  error
	)
	switch format {
	case FormatCSV:
		data, err = e.csv.Bytes(result.Filtered)
	case FormatXLSX:
		data, err = e.workbook.Bytes(result)
	case FormatPDF:
		data, err = e.pdf.Bytes(result)
	default:
		return nil, errors.NewAppValidationError("unsupported export format: " + string(format))
	}
	if err != nil {
		e.logger.ErrorContext(ctx, "export failed",
			slog.String("format", string(format)),
			slog.String("error", err.Error()))
		return nil, err
	}

	artifact := &Artifact{
		Name:        e.baseName + "." + string(format),
		ContentType: format.ContentType(),
		Format:      format,
		Data:        data,
	}

	e.logger.InfoContext(ctx, "export rendered",
		slog.String("format", string(format)),
		slog.String("name", artifact.Name),
		slog.Int("records", result.Filtered.Len()),
		slog.Int("bytes", len(data)))

	return artifact, nil
}
