// Package events is the inventory event bus: a PostgreSQL transport built on
// Watermill's SQL pub/sub.
//
// Producers publish inside their own database transaction with PublishTx, so
// an event row and its bus message commit together. With the outbox enabled
// the message first lands on an internal queue that the forwarder daemon
// relays to the real topic.
//
// Consumers register with Handle and start with Start. Each consumer group
// sees every message once; instances sharing a group split the load. A
// handler error is retried with exponential backoff, and a message that still
// fails is parked on PoisonTopic instead of being redelivered forever.
package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	watermillsql "github.com/ThreeDotsLabs/watermill-sql/v3/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/ghuser/stockledger/pkg/config"
	"github.com/ghuser/stockledger/pkg/logger"
)

// Internal topics.
const (
	OutboxTopic = "_outbox"
	PoisonTopic = "_poison"
)

var schema = watermillsql.DefaultPostgreSQLSchema{}

// EventBus publishes and consumes messages over PostgreSQL.
type EventBus struct {
	db   *sql.DB
	log  logger.Logger
	wlog *logAdapter

	outbox       bool
	defaultGroup string
	fwdGroup     string

	mu          sync.Mutex
	fwd         *forwarder.Forwarder
	router      *message.Router
	poisonPub   message.Publisher
	subscribers map[string]*watermillsql.Subscriber
	wg          sync.WaitGroup
}

// Handler processes one message. ctx carries the publisher's trace.
// Returning an error triggers a retry.
type Handler func(ctx context.Context, msg *message.Message) error

type subscribeOptions struct {
	group string
}

// SubscribeOption customizes a Handle call.
type SubscribeOption func(*subscribeOptions)

// WithConsumerGroup consumes under group instead of the service default.
func WithConsumerGroup(group string) SubscribeOption {
	return func(o *subscribeOptions) { o.group = group }
}

// NewEventBus returns a bus that publishes straight to the target topics.
func NewEventBus(cfg *config.Config, log logger.Logger) (*EventBus, error) {
	return open(cfg, log, false)
}

// NewEventBusWithForwarder returns a bus whose PublishTx writes to the outbox
// queue. Call StartForwarder to relay the queue to the target topics.
func NewEventBusWithForwarder(cfg *config.Config, log logger.Logger) (*EventBus, error) {
	return open(cfg, log, true)
}

func open(cfg *config.Config, log logger.Logger, outbox bool) (*EventBus, error) {
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("events: open db: %w", err)
	}
	return &EventBus{
		db:           db,
		log:          log,
		wlog:         newLogAdapter(log),
		outbox:       outbox,
		defaultGroup: cfg.ServiceName + "-consumer",
		fwdGroup:     cfg.ServiceName + "-forwarder",
		subscribers:  make(map[string]*watermillsql.Subscriber),
	}, nil
}

// EnsureTopics creates the message and offset tables for topics. Transactional
// publishers cannot create tables, so producers call this at startup. The
// outbox topic is included when the bus runs in outbox mode.
func (b *EventBus) EnsureTopics(topics ...string) error {
	if b.outbox {
		topics = append([]string{OutboxTopic}, topics...)
	}
	sub, err := b.newSubscriber(b.defaultGroup)
	if err != nil {
		return err
	}
	defer sub.Close() //nolint:errcheck

	for _, topic := range topics {
		if err := sub.SubscribeInitialize(topic); err != nil {
			return fmt.Errorf("events: initialize %s: %w", topic, err)
		}
	}
	return nil
}

// PublishTx publishes msgs on topic inside tx. The trace context of ctx is
// copied into each message's metadata.
func (b *EventBus) PublishTx(ctx context.Context, tx *sql.Tx, topic string, msgs ...*message.Message) error {
	pub, err := watermillsql.NewPublisher(tx, watermillsql.PublisherConfig{SchemaAdapter: schema}, b.wlog)
	if err != nil {
		return fmt.Errorf("events: tx publisher: %w", err)
	}

	var p message.Publisher = pub
	if b.outbox {
		p = forwarder.NewPublisher(pub, forwarder.PublisherConfig{ForwarderTopic: OutboxTopic})
	}

	InjectTrace(ctx, msgs...)
	if err := p.Publish(topic, msgs...); err != nil { //nolint:contextcheck
		return fmt.Errorf("events: publish to %s: %w", topic, err)
	}
	return nil
}

// InjectTrace copies the W3C trace context of ctx into the metadata of msgs.
func InjectTrace(ctx context.Context, msgs ...*message.Message) {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for _, msg := range msgs {
		for k, v := range carrier {
			msg.Metadata.Set(k, v)
		}
	}
}

// StartForwarder runs the outbox relay until ctx is done or Close is called.
// It returns once the relay is consuming.
func (b *EventBus) StartForwarder(ctx context.Context) error {
	if !b.outbox {
		return errors.New("events: StartForwarder requires an outbox bus")
	}

	b.mu.Lock()
	if b.fwd != nil {
		b.mu.Unlock()
		return errors.New("events: forwarder already started")
	}
	sub, err := b.newSubscriber(b.fwdGroup)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	target, err := b.newPublisher()
	if err != nil {
		b.mu.Unlock()
		_ = sub.Close()
		return err
	}
	fwd, err := forwarder.NewForwarder(sub, target, b.wlog, forwarder.Config{ForwarderTopic: OutboxTopic})
	if err != nil {
		b.mu.Unlock()
		_ = target.Close()
		_ = sub.Close()
		return fmt.Errorf("events: create forwarder: %w", err)
	}
	b.fwd = fwd
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := fwd.Run(ctx); err != nil {
			b.log.ErrorContext(ctx, "events: forwarder stopped", "error", err)
			return
		}
		b.log.InfoContext(ctx, "events: forwarder stopped")
	}()

	select {
	case <-fwd.Running():
		b.log.InfoContext(ctx, "events: forwarder running", "group", b.fwdGroup)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("events: waiting for forwarder: %w", ctx.Err())
	}
}

// DecodeJSON unmarshals a message payload into T.
func DecodeJSON[T any](msg *message.Message) (T, error) {
	var v T
	if err := json.Unmarshal(msg.Payload, &v); err != nil {
		return v, fmt.Errorf("events: decode message %s: %w", msg.UUID, err)
	}
	return v, nil
}

// Ping checks the bus database connection.
func (b *EventBus) Ping(ctx context.Context) error {
	if err := b.db.PingContext(ctx); err != nil {
		return fmt.Errorf("events: ping db: %w", err)
	}
	return nil
}

// Close stops the consumers, waits for in-flight handlers and the forwarder,
// then closes the database handle.
func (b *EventBus) Close() error {
	b.mu.Lock()
	router, fwd, poison := b.router, b.fwd, b.poisonPub
	subs := make([]*watermillsql.Subscriber, 0, len(b.subscribers))
	for _, s := range b.subscribers {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	var errs []error
	if router != nil {
		errs = append(errs, router.Close())
	}
	if fwd != nil {
		errs = append(errs, fwd.Close())
	}
	for _, s := range subs {
		errs = append(errs, s.Close())
	}
	b.wg.Wait()
	if poison != nil {
		errs = append(errs, poison.Close())
	}
	errs = append(errs, b.db.Close())

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("events: close: %w", err)
	}
	return nil
}

func (b *EventBus) newPublisher() (*watermillsql.Publisher, error) {
	pub, err := watermillsql.NewPublisher(b.db, watermillsql.PublisherConfig{
		SchemaAdapter:        schema,
		AutoInitializeSchema: true,
	}, b.wlog)
	if err != nil {
		return nil, fmt.Errorf("events: new publisher: %w", err)
	}
	return pub, nil
}

func (b *EventBus) newSubscriber(group string) (*watermillsql.Subscriber, error) {
	sub, err := watermillsql.NewSubscriber(b.db, watermillsql.SubscriberConfig{
		SchemaAdapter:    schema,
		OffsetsAdapter:   watermillsql.DefaultPostgreSQLOffsetsAdapter{},
		InitializeSchema: true,
		ConsumerGroup:    group,
	}, b.wlog)
	if err != nil {
		return nil, fmt.Errorf("events: new subscriber for %s: %w", group, err)
	}
	return sub, nil
}
