package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"leadpulse/internal/config"
	"leadpulse/internal/dataprocessing"
	apierrors "leadpulse/internal/errors"
	"leadpulse/internal/exporter"
	"leadpulse/internal/infrastructure"
	"leadpulse/internal/validation"
	"leadpulse/pkg/contracts/domain"
)

// Dataset is a normalized lead table together with what ingestion learned
// about it.
type Dataset struct {
	Name    string                        `json:"name"`
	Table   *domain.LeadTable             `json:"-"`
	Stats   dataprocessing.NormalizeStats `json:"stats"`
	Options domain.FilterOptions          `json:"options"`
}

// QueryRequest is a report or export query as received from a client. Empty
// lists select everything; missing deposit bounds default to the table's
// full range.
type QueryRequest struct {
	Sources        []string `json:"source" validate:"dive,required"`
	Campaigns      []string `json:"campaign" validate:"dive,required"`
	Dates          []string `json:"date" validate:"dive,datetime=2006-01-02"`
	DepositMin     *float64 `json:"deposit_min" validate:"omitempty,gte=0"`
	DepositMax     *float64 `json:"deposit_max" validate:"omitempty,gte=0"`
	GroupBy        string   `json:"group_by" validate:"omitempty,groupspec"`
	IncludeRecords bool     `json:"include_records"`
}

// LeadService wires ingestion, querying and export together with tracing
// and metrics.
type LeadService struct {
	normalizer    *dataprocessing.Normalizer
	summarizer    *dataprocessing.Summarizer
	exporter      *exporter.Exporter
	files         *validation.FileValidator
	validate      *validator.Validate
	defaultFormat string
	tracer        trace.Tracer
	metrics       *infrastructure.BusinessMetrics
	logger        *slog.Logger
}

// NewLeadService creates the lead service. A nil telemetry falls back to
// no-op providers.
func NewLeadService(cfg *config.Config, telemetry *infrastructure.OTelProviders, logger *slog.Logger) (*LeadService, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if telemetry == nil {
		telemetry = infrastructure.NoopProviders(logger)
	}

	if err := cfg.Schema.Validate(); err != nil {
		return nil, apierrors.NewConfigError("invalid schema configuration", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(telemetry.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create lead metrics: %w", err)
	}

	logger = logger.With(slog.String("service", "lead"))
	logger.Info("LeadService initialized",
		slog.String("attribution_column", cfg.Schema.AttributionColumn),
		slog.String("deposit_column", cfg.Schema.DepositColumn),
		slog.String("join_column", cfg.Schema.JoinColumn))

	return &LeadService{
		normalizer:    dataprocessing.NewNormalizer(dataprocessing.SchemaFromConfig(cfg.Schema), logger),
		summarizer:    dataprocessing.NewSummarizer(logger),
		exporter:      exporter.New(cfg.Export, logger),
		files:         validation.NewFileValidator(logger),
		validate:      newQueryValidator(),
		defaultFormat: cfg.Export.DefaultFormat,
		tracer:        telemetry.Tracer,
		metrics:       metrics,
		logger:        logger,
	}, nil
}

// Files returns the validator used for uploads and local paths.
func (s *LeadService) Files() *validation.FileValidator {
	return s.files
}

// ValidateUpload checks an uploaded file's name and size against limit.
func (s *LeadService) ValidateUpload(name string, size, limit int64) error {
	return s.files.ValidateUpload(name, size, limit)
}

// Load reads and normalizes a lead export. Only a file that cannot be read
// as a table fails; malformed cells are counted in the dataset stats.
func (s *LeadService) Load(ctx context.Context, name string, r io.Reader) (*Dataset, error) {
	ctx, span := s.tracer.Start(ctx, "lead.load",
		trace.WithAttributes(attribute.String("lead.file", name)))
	defer span.End()

	raw, err := dataprocessing.ReadTable(name, r)
	if err != nil {
		s.metrics.IngestFailures.Add(ctx, 1)
		infrastructure.RecordError(ctx, err)
		s.logger.WarnContext(ctx, "lead file rejected",
			slog.String("file", name),
			slog.String("error", err.Error()))
		return nil, err
	}

	table, stats := s.normalizer.Normalize(ctx, raw)
	ds := &Dataset{
		Name:    name,
		Table:   table,
		Stats:   stats,
		Options: dataprocessing.Options(table),
	}

	s.metrics.LeadsIngested.Add(ctx, int64(stats.Rows))
	if degraded := stats.Degraded(); degraded > 0 {
		s.metrics.CellsDegraded.Add(ctx, int64(degraded))
	}
	span.SetAttributes(
		attribute.Int("lead.rows", stats.Rows),
		attribute.Int("lead.cells_degraded", stats.Degraded()),
	)

	s.logger.InfoContext(ctx, "lead file loaded",
		slog.String("file", name),
		slog.Int("rows", stats.Rows),
		slog.Int("columns", len(table.Columns)),
		slog.Int("sources", len(ds.Options.Sources)),
		slog.Int("campaigns", len(ds.Options.Campaigns)),
		slog.Int("cells_degraded", stats.Degraded()))

	return ds, nil
}

// LoadFile validates path and loads it.
func (s *LeadService) LoadFile(ctx context.Context, path string) (*Dataset, error) {
	if err := s.files.ValidateFile(path); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, apierrors.NewStorageError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()

	return s.Load(ctx, filepath.Base(path), f)
}

// Selection validates req and resolves it against table into a filter
// selection and group spec.
func (s *LeadService) Selection(table *domain.LeadTable, req QueryRequest) (domain.FilterSelection, domain.GroupSpec, error) {
	if err := validateStruct(s.validate, req); err != nil {
		return domain.FilterSelection{}, nil, err
	}

	spec, err := domain.ParseGroupSpec(req.GroupBy)
	if err != nil {
		return domain.FilterSelection{}, nil, apierrors.ErrValidation("group_by", err.Error())
	}

	bounds := []struct {
		field string
		value *float64
	}{{"deposit_min", req.DepositMin}, {"deposit_max", req.DepositMax}}
	for _, b := range bounds {
		if b.value != nil && (math.IsInf(*b.value, 0) || math.IsNaN(*b.value)) {
			return domain.FilterSelection{}, nil, apierrors.ErrValidation(b.field, ErrDepositNotFinite.Error())
		}
	}

	sel := dataprocessing.DefaultSelection(table)
	if req.DepositMin != nil {
		sel.DepositMin = *req.DepositMin
	}
	if req.DepositMax != nil {
		sel.DepositMax = *req.DepositMax
	}
	if sel.DepositMin > sel.DepositMax {
		return domain.FilterSelection{}, nil, apierrors.ErrValidation("deposit_min", ErrDepositRangeInverse.Error())
	}

	sel.Sources = req.Sources
	sel.Campaigns = req.Campaigns
	for _, d := range req.Dates {
		// validated by the datetime tag above
		day, _ := time.Parse(domain.DateLayout, d)
		sel.Dates = append(sel.Dates, day)
	}

	return sel, spec, nil
}

// Query filters and summarizes table.
func (s *LeadService) Query(ctx context.Context, table *domain.LeadTable, req QueryRequest) (*domain.Result, error) {
	sel, spec, err := s.Selection(table, req)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, table, sel, spec), nil
}

// Run computes a report for an already resolved selection.
func (s *LeadService) Run(ctx context.Context, table *domain.LeadTable, sel domain.FilterSelection, spec domain.GroupSpec) *domain.Result {
	ctx, span := s.tracer.Start(ctx, "lead.report",
		trace.WithAttributes(attribute.String("lead.group_by", spec.String())))
	defer span.End()

	start := time.Now()
	result := s.summarizer.Run(ctx, table, sel, spec)

	attrs := []attribute.KeyValue{attribute.String("group_by", spec.String())}
	s.metrics.ReportsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	infrastructure.RecordDuration(ctx, s.metrics.ReportDuration, start, attrs...)

	span.SetAttributes(
		attribute.Int("lead.filtered_rows", result.Filtered.Len()),
		attribute.Int("lead.groups", len(result.Summary)-1),
	)
	return result
}

// Export renders result in the named format. An empty name uses the
// configured default format.
func (s *LeadService) Export(ctx context.Context, result *domain.Result, format string) (*exporter.Artifact, error) {
	if format == "" {
		format = s.defaultFormat
	}
	f, err := exporter.ParseFormat(format)
	if err != nil {
		return nil, apierrors.ErrValidation("format", fmt.Sprintf("%s: %q", ErrUnsupportedFormat, format))
	}

	ctx, span := s.tracer.Start(ctx, "lead.export",
		trace.WithAttributes(attribute.String("lead.format", string(f))))
	defer span.End()

	artifact, err := s.exporter.Export(ctx, result, f)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	attrs := metric.WithAttributes(attribute.String("format", string(f)))
	s.metrics.ExportsTotal.Add(ctx, 1, attrs)
	s.metrics.ExportBytes.Add(ctx, int64(len(artifact.Data)), attrs)
	span.SetAttributes(attribute.Int("lead.export_bytes", len(artifact.Data)))

	return artifact, nil
}
