// Package httpserver runs the HTTP surface of a service with graceful
// shutdown and serves health probes.
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server failed", logger.Error(err))
//	}
//
// Run returns once ctx is canceled and in-flight requests have finished or
// the shutdown timeout has passed. HealthHandler turns named dependency
// checks, such as pg.Healthcheck, into a readiness endpoint.
package httpserver
