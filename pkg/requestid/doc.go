// Package requestid correlates work with the request that caused it.
//
// Middleware attaches an id to every HTTP request, reusing a valid
// X-Request-ID header or generating a UUID. Publish handlers copy the id
// into message headers with Headers, and MessageMiddleware restores it on
// the consuming side, so log records written while handling an event carry
// the id of the request that published it:
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
//	r.Use(requestid.Middleware)
//	pub.Publish(ctx, "topic", payload, requestid.Headers(ctx))
//	h := messaging.Chain(handler, requestid.MessageMiddleware())
package requestid
