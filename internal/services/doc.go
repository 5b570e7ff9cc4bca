// Package services implements the business logic layer shared by the CLI and
// the HTTP front end.
//
// LeadService is the single entry point for lead reports:
//
//	table, err := svc.Load(ctx, "leads.xlsx", file)
//	result, err := svc.Query(ctx, table, services.QueryRequest{Sources: []string{"fb"}})
//	artifact, err := svc.Export(ctx, result, "xlsx")
//
// Every call is a full recomputation from the uploaded table; the service
// keeps no per-request state. Errors are *errors.AppError values: PARSING for
// an unreadable file, VALIDATION for a malformed request.
//
// HealthService reports liveness and build information.
package services
