// Package messaging carries the tenant across asynchronous message
// processing.
//
// A message travels as an Envelope: string headers plus an opaque JSON
// payload. Publishers stamp the ambient tenant id into the TenantIDHeader
// header; consumers wrap their handlers with TenantMiddleware, which opens a
// fresh tenant scope per message, resolves the token from the headers and
// populates the scope before the handler runs.
//
//	pub := messaging.NewPublisher(transport)
//	_ = pub.Publish(ctx, "invoices.created", payload)
//
//	handler := messaging.Chain(
//		messaging.HandlerFunc(handleInvoice),
//		messaging.TenantMiddleware(messaging.NewTenantHeaderResolver(""), identifier),
//	)
//	_ = transport.Subscribe(ctx, "invoices.created", handler)
//
// NoopTransport discards everything and is the default when no broker is
// configured. MemoryTransport delivers in process and is meant for tests and
// single-binary deployments.
package messaging
