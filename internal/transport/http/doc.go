// Package http implements the HTTP handlers of the lead report service.
// Handlers are a thin layer over the services package: they parse the
// multipart upload and form fields, call the service, and render JSON or a
// file attachment.
//
// # Endpoints
//
//	POST /api/leads/options   file → selectable sources, campaigns, dates, deposit range
//	POST /api/leads/report    file + filters → summary with grand total
//	POST /api/leads/export    file + filters + format → csv, xlsx or pdf attachment
//	GET  /api/health          service health
//	GET  /api/health/live     liveness with runtime details
//	GET  /api/version         build information
//
// Filter fields are source, campaign and date (each repeatable),
// deposit_min, deposit_max, group_by (for example "date,source,campaign")
// and include_records.
//
// # Error Handling
//
// All errors are RFC 7807 problem documents written by
// errors.ErrorHandler:
//
//	{
//	    "type": "/errors/data/unreadable",
//	    "title": "Unreadable Input File",
//	    "status": 422,
//	    "detail": "...",
//	    "instance": "/api/leads/report"
//	}
//
// Validation failures are 400, uploads above the configured limit are 413
// and files that cannot be read as a table are 422.
package http
