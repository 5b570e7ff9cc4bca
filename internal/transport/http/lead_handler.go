package http

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "leadpulse/internal/errors"
	"leadpulse/internal/infrastructure"
	"leadpulse/internal/middleware"
	"leadpulse/internal/services"
	"leadpulse/pkg/contracts/domain"
)

// uploadMemory is how much of a multipart upload is buffered in memory
// before spilling to temporary files.
const uploadMemory = 8 << 20

// LeadHandler serves the lead options, report and export endpoints. Every
// request carries the exported user table as the multipart field "file";
// nothing is kept between requests.
type LeadHandler struct {
	service      LeadServiceInterface
	maxUpload    int64
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewLeadHandler creates a lead handler accepting uploads up to maxUpload bytes
func NewLeadHandler(service LeadServiceInterface, maxUpload int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *LeadHandler {
	return &LeadHandler{
		service:      service,
		maxUpload:    maxUpload,
		logger:       infrastructure.WithComponent(logger, "lead_handler"),
		errorHandler: errorHandler,
	}
}

// Routes returns the lead routes
func (h *LeadHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.UploadLimit(h.maxUpload, h.logger))
	r.Use(middleware.ContentTypeValidator("multipart/form-data"))

	r.Post("/options", h.Options)
	r.Post("/report", h.Report)
	r.Post("/export", h.Export)

	return r
}

// OptionsResponse lists what a client can filter the uploaded file by.
type OptionsResponse struct {
	File    string                 `json:"file"`
	Rows    int                    `json:"rows"`
	Columns []string               `json:"columns"`
	Options domain.FilterOptions   `json:"options"`
	Stats   map[string]interface{} `json:"stats"`
}

// ReportResponse is the JSON body of a report.
type ReportResponse struct {
	Summary   []domain.SummaryRow    `json:"summary"`
	GroupBy   domain.GroupSpec       `json:"group_by"`
	Selection domain.FilterSelection `json:"selection"`
	Columns   []string               `json:"columns"`
	Records   [][]string             `json:"records,omitempty"`
	Matched   int                    `json:"matched"`
	Options   domain.FilterOptions   `json:"options"`
}

// Options handles POST /api/leads/options
func (h *LeadHandler) Options(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.load(w, r)
	if !ok {
		return
	}

	render.JSON(w, r, OptionsResponse{
		File:    ds.Name,
		Rows:    ds.Table.Len(),
		Columns: ds.Table.Columns,
		Options: ds.Options,
		Stats:   statsBody(ds),
	})
}

// Report handles POST /api/leads/report
func (h *LeadHandler) Report(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.load(w, r)
	if !ok {
		return
	}

	req, err := parseQueryRequest(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.service.Query(r.Context(), ds.Table, req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp := ReportResponse{
		Summary:   result.Summary,
		GroupBy:   result.GroupSpec,
		Selection: result.Selection,
		Columns:   result.Filtered.Columns,
		Matched:   result.Filtered.Len(),
		Options:   ds.Options,
	}
	if req.IncludeRecords {
		resp.Records = make([][]string, result.Filtered.Len())
		for i := range resp.Records {
			resp.Records[i] = result.Filtered.Row(i)
		}
	}

	render.JSON(w, r, resp)
}

// Export handles POST /api/leads/export?format=csv|xlsx|pdf
func (h *LeadHandler) Export(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.load(w, r)
	if !ok {
		return
	}

	req, err := parseQueryRequest(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.service.Query(r.Context(), ds.Table, req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	artifact, err := h.service.Export(r.Context(), result, r.FormValue("format"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": artifact.Name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(artifact.Data); err != nil {
		h.logger.WarnContext(r.Context(), "export download interrupted",
			slog.String("file", artifact.Name),
			slog.String("error", err.Error()))
	}
}

// load parses the multipart form and ingests its file. On failure the error
// response has already been written.
func (h *LeadHandler) load(w http.ResponseWriter, r *http.Request) (*services.Dataset, bool) {
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
			return nil, false
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return nil, false
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "a lead export must be uploaded as the 'file' field"))
		return nil, false
	}
	defer file.Close()

	if h.maxUpload > 0 && header.Size > h.maxUpload {
		h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
		return nil, false
	}
	if err := h.service.ValidateUpload(header.Filename, header.Size, h.maxUpload); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return nil, false
	}

	ds, err := h.service.Load(r.Context(), header.Filename, file)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return nil, false
	}

	h.logger.DebugContext(r.Context(), "upload ingested",
		slog.String("request_id", middleware.GetRequestID(r.Context())),
		slog.String("file", header.Filename),
		slog.Int64("size", header.Size),
		slog.Int("rows", ds.Table.Len()))
	return ds, true
}

// parseQueryRequest reads the filter fields of a form. List fields are
// repeated, one value per field.
func parseQueryRequest(r *http.Request) (services.QueryRequest, error) {
	req := services.QueryRequest{
		Sources:   formList(r, "source"),
		Campaigns: formList(r, "campaign"),
		Dates:     formList(r, "date"),
		GroupBy:   strings.TrimSpace(r.FormValue("group_by")),
	}

	var err error
	if req.DepositMin, err = formFloat(r, "deposit_min"); err != nil {
		return req, err
	}
	if req.DepositMax, err = formFloat(r, "deposit_max"); err != nil {
		return req, err
	}

	if v := strings.TrimSpace(r.FormValue("include_records")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, apierrors.ErrValidation("include_records", "include_records must be a boolean")
		}
		req.IncludeRecords = b
	}

	return req, nil
}

func formList(r *http.Request, key string) []string {
	var values []string
	for _, v := range r.Form[key] {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func formFloat(r *http.Request, key string) (*float64, error) {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, apierrors.ErrValidation(key, fmt.Sprintf("%s must be a finite number", key))
	}
	return &f, nil
}

func statsBody(ds *services.Dataset) map[string]interface{} {
	return map[string]interface{}{
		"rows":                 ds.Stats.Rows,
		"cells_degraded":       ds.Stats.Degraded(),
		"attribution_degraded": ds.Stats.AttributionDegraded,
		"deposits_coerced":     ds.Stats.DepositsCoerced,
		"dates_dropped":        ds.Stats.DatesDropped,
		"sources_defaulted":    ds.Stats.SourcesDefaulted,
		"campaigns_defaulted":  ds.Stats.CampaignsDefaulted,
		"synthesized_columns":  ds.Stats.SynthesizedColumns,
	}
}
