package notes

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/tenantkit/pkg/messaging"
	"github.com/dmitrymomot/tenantkit/pkg/requestid"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// ActionCreated is the activity action recorded for TopicNoteCreated.
const ActionCreated = "created"

// ActivityHandler records an activity entry for every NoteCreated event.
// Events without a tenant fail with tenant.ErrNoTenantInContext, see Subscribe.
func ActivityHandler(svc *Service) messaging.Handler {
	return messaging.NewTypedHandler(func(ctx context.Context, ev NoteCreated) error {
		if _, ok := tenant.FromContext(ctx); !ok {
			return tenant.ErrNoTenantInContext
		}
		return svc.RecordActivity(ctx, ev.NoteID, ActionCreated)
	})
}

// Subscribe registers ActivityHandler on TopicNoteCreated. Each message is
// handled in the scope of the tenant named by its tenant header, with the
// request id of the publishing request restored.
func Subscribe(ctx context.Context, transport messaging.Transport, identifier *tenant.Identifier, svc *Service, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	h := messaging.Chain(
		ActivityHandler(svc),
		requestid.MessageMiddleware(),
		messaging.TenantMiddleware(messaging.NewTenantHeaderResolver(""), identifier, messaging.WithLogger(log)),
	)
	return transport.Subscribe(ctx, TopicNoteCreated, h)
}
