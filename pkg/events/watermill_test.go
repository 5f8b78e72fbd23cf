package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/ghuser/stockledger/pkg/logger"
)

const testTopic = "inventory.reserved"

var fastRetry = RetryPolicy{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}

// startRouter runs a router over an in-memory pub/sub and returns the pub/sub
// together with a channel of parked messages.
func startRouter(t *testing.T, h Handler) (*gochannel.GoChannel, <-chan *message.Message) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	wlog := watermill.NopLogger{}
	ps := gochannel.NewGoChannel(gochannel.Config{}, wlog)
	parked, err := ps.Subscribe(ctx, PoisonTopic)
	if err != nil {
		t.Fatalf("subscribe poison: %v", err)
	}

	r, err := newRouter(logger.NewNop(), wlog, ps, fastRetry)
	if err != nil {
		t.Fatalf("newRouter: %v", err)
	}
	addHandler(r, "test/"+testTopic, testTopic, ps, h)

	go func() { _ = r.Run(ctx) }()
	<-r.Running()

	t.Cleanup(func() {
		_ = r.Close()
		cancel()
		_ = ps.Close()
	})
	return ps, parked
}

func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}
	var zero T
	return zero
}

func TestRouter_RetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	done := make(chan struct{})
	ps, _ := startRouter(t, func(context.Context, *message.Message) error {
		if calls.Add(1) < 3 {
			return errors.New("redis unavailable")
		}
		close(done)
		return nil
	})

	if err := ps.Publish(testTopic, message.NewMessage(watermill.NewUUID(), []byte(`{}`))); err != nil {
		t.Fatalf("publish: %v", err)
	}
	waitFor(t, done)

	if got := calls.Load(); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestRouter_ParksMessageAfterRetries(t *testing.T) {
	var calls atomic.Int32
	ps, parked := startRouter(t, func(context.Context, *message.Message) error {
		calls.Add(1)
		return errors.New("permanent")
	})

	msg := message.NewMessage(watermill.NewUUID(), []byte(`{"productId":1}`))
	if err := ps.Publish(testTopic, msg); err != nil {
		t.Fatalf("publish: %v", err)
	}

	got := waitFor(t, parked)
	got.Ack()
	if got.UUID != msg.UUID {
		t.Errorf("parked %s, want %s", got.UUID, msg.UUID)
	}
	if got.Metadata.Get(middleware.ReasonForPoisonedKey) == "" {
		t.Error("expected a poison reason in metadata")
	}
	if n := calls.Load(); n != int32(fastRetry.MaxRetries+1) {
		t.Errorf("calls = %d, want %d", n, fastRetry.MaxRetries+1)
	}
}

func TestRouter_RecoversPanics(t *testing.T) {
	ps, parked := startRouter(t, func(context.Context, *message.Message) error {
		panic("nil cache")
	})

	if err := ps.Publish(testTopic, message.NewMessage(watermill.NewUUID(), nil)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	waitFor(t, parked).Ack()
}

func TestRouter_RestoresPublisherTrace(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background()) //nolint:errcheck
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	seen := make(chan trace.TraceID, 1)
	ps, _ := startRouter(t, func(ctx context.Context, _ *message.Message) error {
		seen <- trace.SpanContextFromContext(ctx).TraceID()
		return nil
	})

	ctx, span := otel.Tracer("test").Start(context.Background(), "reserve")
	defer span.End()

	msg := message.NewMessage(watermill.NewUUID(), nil)
	InjectTrace(ctx, msg)
	if err := ps.Publish(testTopic, msg); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if got, want := waitFor(t, seen), span.SpanContext().TraceID(); got != want {
		t.Fatalf("trace id = %s, want %s", got, want)
	}
}

func TestInjectTrace_NoSpan(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	msg := message.NewMessage("id", nil)
	InjectTrace(context.Background(), msg)
	if got := msg.Metadata.Get("traceparent"); got != "" {
		t.Fatalf("unexpected traceparent %q without an active span", got)
	}
}

func TestStartForwarder_RequiresOutbox(t *testing.T) {
	bus := &EventBus{}
	if err := bus.StartForwarder(context.Background()); err == nil {
		t.Fatal("expected error for a bus without outbox")
	}
}

func TestStart_RequiresHandlers(t *testing.T) {
	bus := &EventBus{}
	if err := bus.Start(context.Background()); err == nil {
		t.Fatal("expected error when no handler is registered")
	}
}

func TestWithConsumerGroup(t *testing.T) {
	o := subscribeOptions{group: "stockledger-consumer"}
	WithConsumerGroup("stockledger-cache-warmer")(&o)
	if o.group != "stockledger-cache-warmer" {
		t.Errorf("expected group override, got %q", o.group)
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		ProductID int64 `json:"productId"`
		Quantity  int   `json:"quantity"`
	}

	got, err := DecodeJSON[payload](message.NewMessage("id", []byte(`{"productId":7,"quantity":3}`)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ProductID != 7 || got.Quantity != 3 {
		t.Errorf("unexpected payload: %+v", got)
	}

	if _, err := DecodeJSON[payload](message.NewMessage("bad", []byte(`{not json`))); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

func TestLogAdapter_With(t *testing.T) {
	a := newLogAdapter(logger.NewNop())
	child := a.With(watermill.LogFields{"topic": testTopic})
	if _, ok := child.(*logAdapter); !ok {
		t.Fatalf("With returned %T", child)
	}
	if got := args(watermill.LogFields{"a": 1, "b": "x"}); len(got) != 2 {
		t.Fatalf("args produced %d attrs, want 2", len(got))
	}
}
