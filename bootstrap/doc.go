// Package bootstrap runs a modelkit process: it applies config defaults,
// validates, initializes logging, starts registered components in order,
// prints a startup summary and shuts down on SIGINT/SIGTERM.
//
//	app, err := bootstrap.NewApp(&cfg)
//	_ = app.RegisterComponent(catalogComponent)
//	_ = app.RegisterComponent(httpComponent)
//	return app.Run(ctx)
//
// RunTask is the same lifecycle for finite jobs such as batch generation.
package bootstrap
