// Package bootstrap runs prefetchkit commands with a uniform lifecycle.
//
// A command builds its typed config, registers its pipelines as components
// and hands its work to RunTask:
//
//	app, err := bootstrap.NewApp(&cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	app.RegisterComponent(prefetch.AsComponent("records", start, it))
//	app.OnStop(flushTelemetry)
//	if err := app.RunTask(ctx, run); err != nil {
//	    log.Fatal(err)
//	}
//
// RunTask starts the components in registration order, runs the hooks,
// prints a startup summary, runs the task with signal-based cancellation
// and stops the components in reverse order.
package bootstrap
