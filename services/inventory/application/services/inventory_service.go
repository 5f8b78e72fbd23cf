package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	pkgcache "github.com/ghuser/stockledger/pkg/cache"
	"github.com/ghuser/stockledger/pkg/keylock"
	"github.com/ghuser/stockledger/pkg/logger"
	"github.com/ghuser/stockledger/pkg/telemetry"
	invdomain "github.com/ghuser/stockledger/services/inventory/domain"
	"github.com/ghuser/stockledger/services/inventory/domain/models"
	"github.com/ghuser/stockledger/services/inventory/domain/repositories"
	domainsvcs "github.com/ghuser/stockledger/services/inventory/domain/services"
)

const instrumentationName = "github.com/ghuser/stockledger/services/inventory"

// Operation names used for spans, metrics and log lines.
const (
	OpGetAll       = "get_all"
	OpGetByProduct = "get_by_product"
	OpUpsert       = "upsert"
	OpReserve      = "reserve"
	OpRelease      = "release"
	OpLowStock     = "low_stock"
	OpEvents       = "events"
)

// Outcome messages returned in ReservationOutcome.Message.
const (
	msgReserved = "Stock reserved successfully"
	msgReleased = "Stock released successfully. Released: "
)

// ReservationOutcome is the result of a successful Reserve or Release.
type ReservationOutcome struct {
	ProductID         int64
	Reserved          bool
	AvailableQuantity int
	Message           string
}

// InventoryCache is the read cache the service keeps in step with the store.
type InventoryCache interface {
	Get(ctx context.Context, productID int64) (*pkgcache.CachedInventory, error)
	Set(ctx context.Context, inv *pkgcache.CachedInventory) (bool, error)
	Delete(ctx context.Context, productID int64) error
}

// InventoryService applies the stock rules to stored records.
//
// Mutations on one product are serialized by a per-product lock held across
// read, rule check, store write and event appends, so a product's event
// history is in causal order. Different products never contend. Across
// processes the store's version check turns a lost race into
// ErrConcurrentUpdate; the service does not retry.
type InventoryService struct {
	repo   repositories.InventoryRepository
	events repositories.EventRepository
	cache  InventoryCache
	locks  *keylock.Arena[int64]
	log    logger.Logger
	now    func() time.Time

	defaultReorderLevel int

	tracer trace.Tracer
	ops    metric.Int64Counter
}

// Option configures an InventoryService.
type Option func(*InventoryService)

// WithCache enables read-through caching for GetByProduct. c must be non-nil.
func WithCache(c InventoryCache) Option {
	return func(s *InventoryService) { s.cache = c }
}

// WithClock overrides the time source used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(s *InventoryService) { s.now = now }
}

// WithDefaultReorderLevel sets the reorder level given to new records when
// the request carries none.
func WithDefaultReorderLevel(level int) Option {
	return func(s *InventoryService) { s.defaultReorderLevel = level }
}

// NewInventoryService returns an InventoryService over the given stores.
func NewInventoryService(repo repositories.InventoryRepository, events repositories.EventRepository, log logger.Logger, opts ...Option) *InventoryService {
	s := &InventoryService{
		repo:                repo,
		events:              events,
		locks:               keylock.New[int64](),
		log:                 log,
		now:                 func() time.Time { return time.Now().UTC() },
		defaultReorderLevel: models.DefaultReorderLevel,
		tracer:              otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}

	ops, err := otel.Meter(instrumentationName).Int64Counter("inventory.operations",
		metric.WithDescription("Inventory operations by outcome"),
	)
	if err != nil {
		log.Warn("inventory: operations counter unavailable", "error", err)
	}
	s.ops = ops
	return s
}

// GetAll returns every record ordered by product ID.
func (s *InventoryService) GetAll(ctx context.Context) (records []*models.Inventory, err error) {
	ctx, end := s.start(ctx, OpGetAll)
	defer func() { end(err) }()

	records, err = s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	return records, nil
}

// GetByProduct returns the product's record, serving from the cache when
// possible. Cache failures fall back to the store.
func (s *InventoryService) GetByProduct(ctx context.Context, productID int64) (inv *models.Inventory, err error) {
	ctx, end := s.start(ctx, OpGetByProduct, attribute.Int64("product_id", productID))
	defer func() { end(err) }()

	if s.cache != nil {
		cached, cerr := s.cache.Get(ctx, productID)
		if cerr == nil {
			trace.SpanFromContext(ctx).SetAttributes(attribute.Bool("cache_hit", true))
			return fromCached(cached), nil
		}
		if !errors.Is(cerr, redis.Nil) {
			s.log.WarnContext(ctx, "inventory: cache read failed", "product_id", productID, "error", cerr)
		}
	}

	inv, err = s.repo.GetByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	s.writeCache(ctx, inv)
	return inv, nil
}

// GetFresh reads the product's record from the store, never from the cache,
// and offers the result to the cache.
func (s *InventoryService) GetFresh(ctx context.Context, productID int64) (inv *models.Inventory, err error) {
	ctx, end := s.start(ctx, OpGetByProduct, attribute.Int64("product_id", productID), attribute.Bool("fresh", true))
	defer func() { end(err) }()

	inv, err = s.repo.GetByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	s.writeCache(ctx, inv)
	return inv, nil
}

// Upsert creates the product's record or replaces its quantity, and its
// reorder level when one is given. Reserved stock is never changed.
func (s *InventoryService) Upsert(ctx context.Context, productID int64, quantity int, reorderLevel *int) (inv *models.Inventory, err error) {
	ctx, end := s.start(ctx, OpUpsert,
		attribute.Int64("product_id", productID),
		attribute.Int("quantity", quantity),
	)
	defer func() { end(err) }()

	inv, err = s.mutate(ctx, OpUpsert, productID, true, func(inv *models.Inventory, at time.Time) ([]*models.InventoryEvent, error) {
		return domainsvcs.ApplyStockUpdate(inv, quantity, reorderLevel, at)
	})
	if err != nil {
		return nil, fmt.Errorf("update stock: %w", err)
	}
	return inv, nil
}

// Reserve holds quantity units of the product. It fails with
// ErrInsufficientStock, leaving the record untouched, when less is available.
func (s *InventoryService) Reserve(ctx context.Context, productID int64, quantity int) (out *ReservationOutcome, err error) {
	ctx, end := s.start(ctx, OpReserve,
		attribute.Int64("product_id", productID),
		attribute.Int("quantity", quantity),
	)
	defer func() { end(err) }()

	inv, err := s.mutate(ctx, OpReserve, productID, false, func(inv *models.Inventory, at time.Time) ([]*models.InventoryEvent, error) {
		return domainsvcs.ApplyReservation(inv, quantity, at)
	})
	if err != nil {
		return nil, fmt.Errorf("reserve stock: %w", err)
	}
	return &ReservationOutcome{
		ProductID:         productID,
		Reserved:          true,
		AvailableQuantity: inv.AvailableQuantity(),
		Message:           msgReserved,
	}, nil
}

// Release returns up to quantity reserved units to availability. Requests
// above the reserved amount release everything reserved.
func (s *InventoryService) Release(ctx context.Context, productID int64, quantity int) (out *ReservationOutcome, err error) {
	ctx, end := s.start(ctx, OpRelease,
		attribute.Int64("product_id", productID),
		attribute.Int("quantity", quantity),
	)
	defer func() { end(err) }()

	var released int
	inv, err := s.mutate(ctx, OpRelease, productID, false, func(inv *models.Inventory, at time.Time) ([]*models.InventoryEvent, error) {
		n, evts, err := domainsvcs.ApplyRelease(inv, quantity, at)
		released = n
		return evts, err
	})
	if err != nil {
		return nil, fmt.Errorf("release stock: %w", err)
	}
	return &ReservationOutcome{
		ProductID:         productID,
		Reserved:          true,
		AvailableQuantity: inv.AvailableQuantity(),
		Message:           msgReleased + strconv.Itoa(released),
	}, nil
}

// LowStock returns every record whose available quantity is at or below its
// reorder level.
func (s *InventoryService) LowStock(ctx context.Context) (records []*models.Inventory, err error) {
	ctx, end := s.start(ctx, OpLowStock)
	defer func() { end(err) }()

	records, err = s.repo.ListLowStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	return records, nil
}

// Events returns the product's event history, oldest first. A product with
// no history yields an empty slice.
func (s *InventoryService) Events(ctx context.Context, productID int64) (events []*models.InventoryEvent, err error) {
	ctx, end := s.start(ctx, OpEvents, attribute.Int64("product_id", productID))
	defer func() { end(err) }()

	events, err = s.events.ListByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// RefreshCache re-reads the product from the store and offers it to the
// cache, which keeps whichever version is newer. It is a no-op without a cache.
func (s *InventoryService) RefreshCache(ctx context.Context, productID int64) error {
	if s.cache == nil {
		return nil
	}
	inv, err := s.repo.GetByProductID(ctx, productID)
	if err != nil {
		return fmt.Errorf("refresh cache: %w", err)
	}
	s.writeCache(ctx, inv)
	return nil
}

// mutate runs one read-modify-write on productID under its lock. When create
// is set a missing record starts as an empty one; otherwise it is
// ErrInventoryNotFound. apply must leave inv unchanged when it fails.
func (s *InventoryService) mutate(
	ctx context.Context,
	op string,
	productID int64,
	create bool,
	apply func(inv *models.Inventory, at time.Time) ([]*models.InventoryEvent, error),
) (*models.Inventory, error) {
	unlock := s.locks.Lock(productID)
	defer unlock()

	inv, err := s.repo.GetByProductID(ctx, productID)
	switch {
	case create && errors.Is(err, invdomain.ErrInventoryNotFound):
		inv = models.NewInventory(productID, 0, s.defaultReorderLevel)
	case err != nil:
		return nil, err
	}

	evts, err := apply(inv, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, inv); err != nil {
		return nil, fmt.Errorf("save inventory: %w", err)
	}
	s.writeCache(ctx, inv)
	s.appendEvents(ctx, op, productID, evts)

	s.log.InfoContext(ctx, "inventory: "+op,
		"product_id", productID,
		"quantity", inv.Quantity,
		"reserved_quantity", inv.ReservedQuantity,
		"available_quantity", inv.AvailableQuantity(),
		"version", inv.Version,
	)
	return inv, nil
}

// appendEvents records the events of a committed mutation. A failure here
// does not undo the mutation; the gap is logged and reported instead.
func (s *InventoryService) appendEvents(ctx context.Context, op string, productID int64, evts []*models.InventoryEvent) {
	if len(evts) == 0 {
		return
	}
	if err := s.events.Append(ctx, evts...); err != nil {
		types := make([]string, len(evts))
		for i, e := range evts {
			types[i] = e.Type.String()
		}
		s.log.ErrorContext(ctx, "inventory: event append failed after commit",
			"operation", op,
			"product_id", productID,
			"event_types", types,
			"error", err,
		)
		telemetry.CaptureError(ctx, fmt.Errorf("append inventory events: %w", err), map[string]string{
			"operation":  op,
			"product_id": strconv.FormatInt(productID, 10),
		})
		return
	}
	for _, e := range evts {
		if e.Type == models.EventLowStockAlert {
			s.log.WarnContext(ctx, "inventory: low stock", "product_id", productID, "level", e.Quantity)
		}
	}
}

// writeCache pushes a freshly read or written record to the cache. If the
// write fails the entry is evicted so readers fall back to the store.
func (s *InventoryService) writeCache(ctx context.Context, inv *models.Inventory) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Set(ctx, toCached(inv)); err != nil {
		s.log.WarnContext(ctx, "inventory: cache write failed", "product_id", inv.ProductID, "error", err)
		if err := s.cache.Delete(ctx, inv.ProductID); err != nil {
			s.log.ErrorContext(ctx, "inventory: cache evict failed", "product_id", inv.ProductID, "error", err)
		}
	}
}

// start opens the operation span and returns a func that closes it and
// records the outcome.
func (s *InventoryService) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := s.tracer.Start(ctx, "inventory."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		outcome := Outcome(err)
		if err != nil {
			span.RecordError(err)
			if outcome == "error" {
				span.SetStatus(codes.Error, err.Error())
			}
		}
		span.SetAttributes(attribute.String("outcome", outcome))
		span.End()

		if s.ops != nil {
			s.ops.Add(ctx, 1, metric.WithAttributes(
				attribute.String("operation", op),
				attribute.String("outcome", outcome),
			))
		}
	}
}

// Outcome classifies an operation result for metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, invdomain.ErrInventoryNotFound):
		return "not_found"
	case errors.Is(err, invdomain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, invdomain.ErrQuantityBelowReserved):
		return "below_reserved"
	case errors.Is(err, invdomain.ErrConcurrentUpdate):
		return "conflict"
	case errors.Is(err, invdomain.ErrInvalidQuantity):
		return "invalid"
	default:
		return "error"
	}
}

func toCached(inv *models.Inventory) *pkgcache.CachedInventory {
	return &pkgcache.CachedInventory{
		ID:               inv.ID,
		ProductID:        inv.ProductID,
		Quantity:         inv.Quantity,
		ReservedQuantity: inv.ReservedQuantity,
		ReorderLevel:     inv.ReorderLevel,
		Version:          inv.Version,
		LastUpdated:      inv.LastUpdated,
	}
}

func fromCached(c *pkgcache.CachedInventory) *models.Inventory {
	return &models.Inventory{
		ID:               c.ID,
		ProductID:        c.ProductID,
		Quantity:         c.Quantity,
		ReservedQuantity: c.ReservedQuantity,
		ReorderLevel:     c.ReorderLevel,
		Version:          c.Version,
		LastUpdated:      c.LastUpdated,
	}
}
