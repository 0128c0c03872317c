// Package app wires the feeddiff HTTP service together and manages its
// lifecycle.
//
// NewApplication builds, in order: paths, OpenTelemetry providers and
// metrics, the run store, report writer and services, the chi router with
// its middleware chain, and the http.Server.
//
//	cfg, err := config.Load()
//	...
//	application, err := app.NewApplication(cfg, nil)
//	...
//	if err := application.Run(ctx); err != nil {
//	    return err
//	}
//
// Run serves until the context is cancelled or SIGINT/SIGTERM arrives and
// then drains in-flight requests within Server.ShutdownTimeout. The package
// never calls os.Exit.
package app
