// Package app wires the lead report server together: configuration,
// logging, OpenTelemetry, the lead and health services, the chi router and
// the HTTP server.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, file and environment
//	2. Initialize logging and OpenTelemetry
//	3. Create services
//	4. Set up middleware and routes
//	5. Create the HTTP server
//
// # Usage
//
//	app, err := app.NewApplication(cfg, nil)
//	if err != nil {
//	    return err
//	}
//	return app.Run(ctx)
//
// Run returns after SIGINT, SIGTERM or cancellation of ctx, once in-flight
// requests have finished or the shutdown timeout has passed. The package
// never calls os.Exit.
package app
