// Package app wires the SimDash server together and manages its lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, the optional YAML file and SIMDASH_* variables
//	2. Initialize logging and OpenTelemetry (tracing, Prometheus metrics)
//	3. Build the source resolver (data directory, HTTP(S), Google Drive)
//	4. Create the actions and health services
//	5. Set up the chi router, middleware chain and handlers
//	6. Configure and start the HTTP server
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// Run serves until SIGINT or SIGTERM. In-flight requests and websocket
// sessions get up to Server.ShutdownTimeout to finish before telemetry
// providers are flushed and closed.
//
// Initialization errors are returned to the caller; the package never calls
// os.Exit.
package app
