package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/ghuser/stockledger/pkg/logger"
)

// RetryPolicy controls redelivery of a failing message before it is parked.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy retries three times, waiting 1s, 2s then 4s.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:      3,
	InitialInterval: time.Second,
	MaxInterval:     10 * time.Second,
}

const routerCloseTimeout = 30 * time.Second

// newRouter builds a router whose handlers share one middleware stack,
// outermost first: poison queue, trace restore, failure log, retry, panic
// recovery.
func newRouter(log logger.Logger, wlog watermill.LoggerAdapter, poison message.Publisher, retry RetryPolicy) (*message.Router, error) {
	r, err := message.NewRouter(message.RouterConfig{CloseTimeout: routerCloseTimeout}, wlog)
	if err != nil {
		return nil, fmt.Errorf("events: new router: %w", err)
	}

	poisonQueue, err := middleware.PoisonQueue(poison, PoisonTopic)
	if err != nil {
		return nil, fmt.Errorf("events: poison queue: %w", err)
	}

	r.AddMiddleware(
		poisonQueue,
		restoreTrace,
		logFailures(log),
		middleware.Retry{
			MaxRetries:      retry.MaxRetries,
			InitialInterval: retry.InitialInterval,
			MaxInterval:     retry.MaxInterval,
			Multiplier:      2,
			Logger:          wlog,
		}.Middleware,
		middleware.Recoverer,
	)
	return r, nil
}

// restoreTrace puts the publisher's span context from the message metadata
// onto the message context.
func restoreTrace(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		carrier := propagation.MapCarrier{}
		for k, v := range msg.Metadata {
			carrier[k] = v
		}
		msg.SetContext(otel.GetTextMapPropagator().Extract(msg.Context(), carrier))
		return h(msg)
	}
}

func logFailures(log logger.Logger) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			produced, err := h(msg)
			if err != nil {
				log.ErrorContext(msg.Context(), "events: handler gave up, parking message",
					"message_uuid", msg.UUID,
					"handler", message.HandlerNameFromCtx(msg.Context()),
					"topic", message.SubscribeTopicFromCtx(msg.Context()),
					"error", err,
				)
			}
			return produced, err
		}
	}
}

// Handle registers h for topic under a handler name derived from the group
// and topic. Handlers start consuming when Start is called.
func (b *EventBus) Handle(topic string, h Handler, opts ...SubscribeOption) error {
	o := subscribeOptions{group: b.defaultGroup}
	for _, opt := range opts {
		opt(&o)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.router == nil {
		poison, err := b.newPublisher()
		if err != nil {
			return err
		}
		r, err := newRouter(b.log, b.wlog, poison, DefaultRetryPolicy)
		if err != nil {
			_ = poison.Close()
			return err
		}
		b.router, b.poisonPub = r, poison
	}

	sub, ok := b.subscribers[o.group]
	if !ok {
		var err error
		if sub, err = b.newSubscriber(o.group); err != nil {
			return err
		}
		b.subscribers[o.group] = sub
	}

	addHandler(b.router, o.group+"/"+topic, topic, sub, h)
	return nil
}

func addHandler(r *message.Router, name, topic string, sub message.Subscriber, h Handler) {
	r.AddNoPublisherHandler(name, topic, sub, func(msg *message.Message) error {
		return h(msg.Context(), msg)
	})
}

// Start runs the registered handlers until ctx is done or Close is called.
// It returns once the router is consuming.
func (b *EventBus) Start(ctx context.Context) error {
	b.mu.Lock()
	r := b.router
	b.mu.Unlock()
	if r == nil {
		return fmt.Errorf("events: Start called with no handlers")
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := r.Run(ctx); err != nil {
			b.log.ErrorContext(ctx, "events: router stopped", "error", err)
		}
	}()

	select {
	case <-r.Running():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("events: waiting for router: %w", ctx.Err())
	}
}
