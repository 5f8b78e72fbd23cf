// Package cache holds the Redis client and the inventory read cache.
package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ghuser/stockledger/pkg/config"
)

const instrumentationName = "github.com/ghuser/stockledger/pkg/cache"

// RedisClient is the shared Redis connection pool.
type RedisClient struct {
	client *redis.Client
	gauge  metric.Registration
}

// NewRedisClient connects to cfg.RedisURL and returns (nil, nil) when the URL
// is empty. Timeouts are short: the cache sits on the request path and every
// caller falls back to the store on error.
func NewRedisClient(ctx context.Context, cfg *config.Config) (*RedisClient, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.RedisPoolSize > 0 {
		opts.PoolSize = cfg.RedisPoolSize
	}
	opts.MinIdleConns = 2
	opts.MaxRetries = 1
	opts.DialTimeout = 2 * time.Second
	opts.ReadTimeout = 500 * time.Millisecond
	opts.WriteTimeout = 500 * time.Millisecond
	opts.PoolTimeout = time.Second

	rdb := redis.NewClient(opts)
	rdb.AddHook(tracingHook{tracer: otel.Tracer(instrumentationName), addr: opts.Addr})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	rc := &RedisClient{client: rdb}
	if rc.gauge, err = observePool(rdb); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rc, nil
}

// observePool exports redis.pool.connections{state=total|idle|stale}.
func observePool(rdb *redis.Client) (metric.Registration, error) {
	meter := otel.Meter(instrumentationName)
	conns, err := meter.Int64ObservableGauge("redis.pool.connections",
		metric.WithDescription("Redis pool connections by state"),
	)
	if err != nil {
		return nil, fmt.Errorf("redis pool gauge: %w", err)
	}
	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := rdb.PoolStats()
		o.ObserveInt64(conns, int64(s.TotalConns), metric.WithAttributes(attribute.String("state", "total")))
		o.ObserveInt64(conns, int64(s.IdleConns), metric.WithAttributes(attribute.String("state", "idle")))
		o.ObserveInt64(conns, int64(s.StaleConns), metric.WithAttributes(attribute.String("state", "stale")))
		return nil
	}, conns)
	if err != nil {
		return nil, fmt.Errorf("redis pool callback: %w", err)
	}
	return reg, nil
}

// Ping checks the Redis connection health.
func (r *RedisClient) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close shuts down the connection pool. Safe on a nil client.
func (r *RedisClient) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	var errs []error
	if r.gauge != nil {
		errs = append(errs, r.gauge.Unregister())
	}
	errs = append(errs, r.client.Close())
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}

// Client returns the underlying redis.Client for direct use.
func (r *RedisClient) Client() *redis.Client {
	return r.client
}

// tracingHook opens a client span per command or pipeline. A cache miss
// (redis.Nil) is not an error.
type tracingHook struct {
	tracer trace.Tracer
	addr   string
}

func (h tracingHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		ctx, span := h.start(ctx, "redis.dial")
		defer span.End()
		conn, err := next(ctx, network, addr)
		recordErr(span, err)
		return conn, err
	}
}

func (h tracingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		ctx, span := h.start(ctx, "redis."+cmd.Name())
		defer span.End()
		err := next(ctx, cmd)
		recordErr(span, err)
		return err
	}
}

func (h tracingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		ctx, span := h.start(ctx, "redis.pipeline",
			attribute.Int("db.redis.pipeline_length", len(cmds)))
		defer span.End()
		err := next(ctx, cmds)
		recordErr(span, err)
		return err
	}
}

func (h tracingHook) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("db.system", "redis"),
		attribute.String("server.address", h.addr),
	)
	return h.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}

func recordErr(span trace.Span, err error) {
	if err == nil || errors.Is(err, redis.Nil) {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
