package messaging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/messaging"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newIdentifier() *tenant.Identifier {
	return tenant.NewIdentifier(tenant.NewIDProvider(), tenant.WithIdentifierLogger(discard()))
}

func TestTenantHeaderResolver(t *testing.T) {
	t.Parallel()

	msg := &messaging.Message{Envelope: messaging.Envelope{Headers: map[string]string{
		"test token key": "test token value",
	}}}

	t.Run("resolves header value", func(t *testing.T) {
		t.Parallel()

		token, err := messaging.NewTenantHeaderResolver("test token key")(msg)
		require.NoError(t, err)
		assert.Equal(t, "test token value", token)
	})

	t.Run("missing key resolves to absent", func(t *testing.T) {
		t.Parallel()

		token, err := messaging.NewTenantHeaderResolver("bad token key")(msg)
		require.NoError(t, err)
		assert.Empty(t, token)
	})

	t.Run("default key", func(t *testing.T) {
		t.Parallel()

		id := uuid.NewString()
		m := &messaging.Message{Envelope: messaging.Envelope{Headers: map[string]string{messaging.TenantIDHeader: id}}}
		token, err := messaging.NewTenantHeaderResolver("")(m)
		require.NoError(t, err)
		assert.Equal(t, id, token)
	})

	t.Run("nil message and headers", func(t *testing.T) {
		t.Parallel()

		r := messaging.NewTenantHeaderResolver("")
		token, err := r(nil)
		require.NoError(t, err)
		assert.Empty(t, token)

		token, err = r(&messaging.Message{})
		require.NoError(t, err)
		assert.Empty(t, token)
	})
}

func TestTenantMiddleware(t *testing.T) {
	t.Parallel()

	mw := messaging.TenantMiddleware(messaging.NewTenantHeaderResolver(""), newIdentifier(),
		messaging.WithLogger(discard()))

	t.Run("populates a fresh scope", func(t *testing.T) {
		t.Parallel()

		id := uuid.New()
		var got uuid.UUID
		var sawMessage bool
		h := mw(messaging.HandlerFunc(func(ctx context.Context, msg *messaging.Message) error {
			got, _ = tenant.IDFromContext(ctx)
			_, sawMessage = messaging.MessageFromContext(ctx)
			return nil
		}))

		// The caller's own scope is not touched.
		outer, accessor := tenant.NewScope(context.Background())
		err := h.Handle(outer, &messaging.Message{Envelope: messaging.Envelope{
			Headers: map[string]string{messaging.TenantIDHeader: id.String()},
		}})
		require.NoError(t, err)
		assert.Equal(t, id, got)
		assert.True(t, sawMessage)

		_, ok := accessor.Get()
		assert.False(t, ok)
	})

	t.Run("no header runs without tenant", func(t *testing.T) {
		t.Parallel()

		called := false
		h := mw(messaging.HandlerFunc(func(ctx context.Context, _ *messaging.Message) error {
			called = true
			_, ok := tenant.FromContext(ctx)
			assert.False(t, ok)
			return nil
		}))

		require.NoError(t, h.Handle(context.Background(), &messaging.Message{}))
		assert.True(t, called)
	})

	t.Run("invalid token fails before the handler", func(t *testing.T) {
		t.Parallel()

		h := mw(messaging.HandlerFunc(func(context.Context, *messaging.Message) error {
			t.Fatal("handler must not run")
			return nil
		}))

		err := h.Handle(context.Background(), &messaging.Message{Envelope: messaging.Envelope{
			Headers: map[string]string{messaging.TenantIDHeader: "not-a-uuid"},
		}})
		assert.ErrorIs(t, err, tenant.ErrInvalidIdentifier)
	})

	t.Run("resolver error", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		h := messaging.TenantMiddleware(
			func(*messaging.Message) (string, error) { return "", boom },
			newIdentifier(), messaging.WithLogger(discard()),
		)(messaging.HandlerFunc(func(context.Context, *messaging.Message) error { return nil }))

		assert.ErrorIs(t, h.Handle(context.Background(), &messaging.Message{}), boom)
	})

	t.Run("logs failures with standard attributes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := slog.New(slog.NewJSONHandler(&buf, nil))
		h := messaging.TenantMiddleware(messaging.NewTenantHeaderResolver(""), newIdentifier(),
			messaging.WithLogger(log))(messaging.NoopHandler())

		err := h.Handle(context.Background(), &messaging.Message{Topic: "invoices", Envelope: messaging.Envelope{
			Headers: map[string]string{messaging.TenantIDHeader: "not-a-uuid"},
		}})
		require.Error(t, err)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "invoices", entry["topic"])
		assert.Equal(t, "not-a-uuid", entry["tenant_token"])
		assert.Contains(t, entry["error"], tenant.ErrInvalidIdentifier.Error())
	})
}

func TestChain(t *testing.T) {
	t.Parallel()

	var order []string
	mark := func(name string) messaging.Middleware {
		return func(next messaging.Handler) messaging.Handler {
			return messaging.HandlerFunc(func(ctx context.Context, msg *messaging.Message) error {
				order = append(order, name)
				return next.Handle(ctx, msg)
			})
		}
	}

	h := messaging.Chain(messaging.HandlerFunc(func(context.Context, *messaging.Message) error {
		order = append(order, "handler")
		return nil
	}), mark("outer"), mark("inner"))

	require.NoError(t, h.Handle(context.Background(), &messaging.Message{}))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

type invoiceCreated struct {
	Number string `json:"number"`
}

func TestPublisher_PropagatesTenant(t *testing.T) {
	t.Parallel()

	transport := messaging.NewMemoryTransport(4, discard())
	t.Cleanup(func() { _ = transport.Close() })

	type received struct {
		tenant  uuid.UUID
		payload invoiceCreated
		trace   string
	}
	got := make(chan received, 1)

	handler := messaging.Chain(
		messaging.HandlerFunc(func(ctx context.Context, msg *messaging.Message) error {
			var p invoiceCreated
			if err := msg.Envelope.Decode(&p); err != nil {
				return err
			}
			id, _ := tenant.IDFromContext(ctx)
			got <- received{tenant: id, payload: p, trace: msg.Envelope.Header("trace-id")}
			return nil
		}),
		messaging.TenantMiddleware(messaging.NewTenantHeaderResolver(""), newIdentifier(), messaging.WithLogger(discard())),
	)
	require.NoError(t, transport.Subscribe(context.Background(), "invoices", handler))

	pub := messaging.NewPublisher(transport, messaging.WithDefaultHeaders(map[string]string{"trace-id": "default"}))
	id := uuid.New()
	require.NoError(t, tenant.WithScope(context.Background(), tenant.New(id, ""), func(ctx context.Context) error {
		return pub.Publish(ctx, "invoices", invoiceCreated{Number: "INV-1"},
			map[string]string{"trace-id": "abc", messaging.TenantIDHeader: uuid.NewString()})
	}))

	select {
	case r := <-got:
		assert.Equal(t, id, r.tenant, "ambient tenant wins over caller header")
		assert.Equal(t, "INV-1", r.payload.Number)
		assert.Equal(t, "abc", r.trace)
	case <-time.After(5 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestPublisher_Errors(t *testing.T) {
	t.Parallel()

	pub := messaging.NewPublisher(nil)
	assert.ErrorIs(t, pub.Publish(context.Background(), "", 1), messaging.ErrEmptyTopic)
	assert.ErrorIs(t, pub.Publish(context.Background(), "t", make(chan int)), messaging.ErrInvalidPayload)
	assert.NoError(t, pub.Publish(context.Background(), "t", 1), "noop transport accepts everything")
}

func TestNoopTransport(t *testing.T) {
	t.Parallel()

	var tr messaging.Transport = messaging.NoopTransport{}
	assert.NoError(t, tr.Subscribe(context.Background(), "t", messaging.HandlerFunc(func(context.Context, *messaging.Message) error {
		t.Fatal("noop transport must not deliver")
		return nil
	})))
	assert.NoError(t, tr.Publish(context.Background(), "t", messaging.Envelope{}))
	assert.NoError(t, tr.Close())
}

func TestMemoryTransport(t *testing.T) {
	t.Parallel()

	t.Run("delivers to every subscriber of the topic", func(t *testing.T) {
		t.Parallel()

		tr := messaging.NewMemoryTransport(8, discard())
		var (
			mu    sync.Mutex
			count int
			wg    sync.WaitGroup
		)
		wg.Add(2)
		h := messaging.HandlerFunc(func(context.Context, *messaging.Message) error {
			mu.Lock()
			count++
			mu.Unlock()
			wg.Done()
			return nil
		})
		require.NoError(t, tr.Subscribe(context.Background(), "a", h))
		require.NoError(t, tr.Subscribe(context.Background(), "a", h))
		require.NoError(t, tr.Subscribe(context.Background(), "b", messaging.HandlerFunc(func(context.Context, *messaging.Message) error {
			t.Error("wrong topic")
			return nil
		})))

		require.NoError(t, tr.Publish(context.Background(), "a", messaging.Envelope{}))
		wg.Wait()
		require.NoError(t, tr.Close())

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 2, count)
	})

	t.Run("subscribers get their own headers", func(t *testing.T) {
		t.Parallel()

		tr := messaging.NewMemoryTransport(4, discard())
		var wg sync.WaitGroup
		wg.Add(2)
		seen := make(chan string, 2)
		for _, name := range []string{"first", "second"} {
			require.NoError(t, tr.Subscribe(context.Background(), "a", messaging.HandlerFunc(func(_ context.Context, msg *messaging.Message) error {
				defer wg.Done()
				msg.Envelope.SetHeader("handled-by", name)
				seen <- msg.Envelope.Header("trace-id") + "/" + msg.Envelope.Header("handled-by")
				return nil
			})))
		}

		env := messaging.Envelope{Headers: map[string]string{"trace-id": "abc"}}
		require.NoError(t, tr.Publish(context.Background(), "a", env))
		wg.Wait()
		require.NoError(t, tr.Close())
		close(seen)

		var got []string
		for v := range seen {
			got = append(got, v)
		}
		assert.ElementsMatch(t, []string{"abc/first", "abc/second"}, got)
		assert.Equal(t, map[string]string{"trace-id": "abc"}, env.Headers)
	})

	t.Run("canceled subscription stops delivery", func(t *testing.T) {
		t.Parallel()

		tr := messaging.NewMemoryTransport(1, discard())
		t.Cleanup(func() { _ = tr.Close() })

		ctx, cancel := context.WithCancel(context.Background())
		require.NoError(t, tr.Subscribe(ctx, "a", messaging.HandlerFunc(func(context.Context, *messaging.Message) error {
			return nil
		})))
		cancel()

		assert.Eventually(t, func() bool {
			return tr.Publish(context.Background(), "a", messaging.Envelope{}) == nil
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("validation and close", func(t *testing.T) {
		t.Parallel()

		tr := messaging.NewMemoryTransport(0, nil)
		assert.ErrorIs(t, tr.Publish(context.Background(), "", messaging.Envelope{}), messaging.ErrEmptyTopic)
		assert.ErrorIs(t, tr.Subscribe(context.Background(), "a", nil), messaging.ErrNilHandler)
		assert.ErrorIs(t, tr.Subscribe(context.Background(), "", messaging.NoopHandler()), messaging.ErrEmptyTopic)

		require.NoError(t, tr.Close())
		require.NoError(t, tr.Close())
		assert.ErrorIs(t, tr.Publish(context.Background(), "a", messaging.Envelope{}), messaging.ErrTransportClosed)
		assert.ErrorIs(t, tr.Subscribe(context.Background(), "a", messaging.NoopHandler()), messaging.ErrTransportClosed)
	})
}

func TestNewTypedHandler(t *testing.T) {
	t.Parallel()

	var got invoiceCreated
	h := messaging.NewTypedHandler(func(_ context.Context, p invoiceCreated) error {
		got = p
		return nil
	})

	env, err := messaging.NewEnvelope(invoiceCreated{Number: "7"}, nil)
	require.NoError(t, err)
	require.NoError(t, h.Handle(context.Background(), &messaging.Message{Envelope: env}))
	assert.Equal(t, "7", got.Number)

	err = h.Handle(context.Background(), &messaging.Message{Envelope: messaging.Envelope{Payload: []byte("{")}})
	assert.ErrorIs(t, err, messaging.ErrInvalidPayload)
}
