package http

import (
	"context"
	"io"

	"leadpulse/internal/exporter"
	"leadpulse/internal/services"
	"leadpulse/pkg/contracts/domain"
)

// LeadServiceInterface defines the lead operations the handlers need
type LeadServiceInterface interface {
	ValidateUpload(name string, size, limit int64) error
	Load(ctx context.Context, name string, r io.Reader) (*services.Dataset, error)
	Query(ctx context.Context, table *domain.LeadTable, req services.QueryRequest) (*domain.Result, error)
	Export(ctx context.Context, result *domain.Result, format string) (*exporter.Artifact, error)
}
