// Package app provides application initialization and lifecycle management
// for the volgrid server. It wires configuration, logging, observability,
// services and HTTP routing together at startup and handles graceful
// shutdown.
//
// # Initialization Flow
//
// The typical initialization sequence:
//
//	1. Load configuration from defaults, file and environment
//	2. Initialize logging and OpenTelemetry
//	3. Initialize services with their dependencies
//	4. Set up HTTP handlers and middleware
//	5. Configure the HTTP server
//
// # Usage
//
// The main entry point is typically:
//
//	application, err := app.NewApplication(configPath)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// The package handles SIGINT and SIGTERM signals to ensure:
//
//	- Active requests are completed within the shutdown timeout
//	- Background collectors are stopped
//	- Final telemetry is flushed
//
// # Error Handling
//
// All initialization errors are returned to the caller for proper
// handling. The app does not call os.Exit() directly, allowing
// the main function to control the exit process.
package app
