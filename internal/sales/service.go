package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Event streams and types published by the services.
const (
	SellerStream      = "seller.events"
	TransactionStream = "transaction.events"

	EventSellerCreated      = "seller.created"
	EventSellerUpdated      = "seller.updated"
	EventSellerDeleted      = "seller.deleted"
	EventTransactionCreated = "transaction.created"
	EventTransactionUpdated = "transaction.updated"
	EventTransactionDeleted = "transaction.deleted"
)

// DeletedEvent is the payload of a *.deleted event.
type DeletedEvent struct {
	ID   int64  `json:"id"`
	Hard bool   `json:"hard"`
	Kind string `json:"kind"`
}

// Publisher emits domain events after a unit of work commits.
type Publisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// SellerCache is a read-through cache of seller views keyed by seller id.
// Writes are ordered by seller version: Store and Tombstone are dropped when
// the cache already holds the same or a newer version.
type SellerCache interface {
	Get(ctx context.Context, id int64) (*SellerView, bool)
	Store(ctx context.Context, view *SellerView)
	Tombstone(ctx context.Context, id, version int64)
}

// Option configures optional collaborators of the services.
type Option func(*options)

type options struct {
	publisher Publisher
	cache     SellerCache
	now       func() time.Time
}

// WithPublisher makes the service publish events after successful writes.
func WithPublisher(p Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithSellerCache enables the seller view cache.
func WithSellerCache(c SellerCache) Option {
	return func(o *options) { o.cache = c }
}

// WithClock overrides the source of server-assigned timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func newOptions(opts []Option) options {
	o := options{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func defaultLogger(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

// fatalError marks a failure that is returned to the caller as an error
// instead of being folded into a result value.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

func fatal(err error) error {
	return &fatalError{err: err}
}

// asFatal extracts the underlying error when err was marked fatal.
func asFatal(err error) (error, bool) {
	var fe *fatalError
	if errors.As(err, &fe) {
		return fe.err, true
	}
	return nil, false
}

// detach keeps an operation running to completion even if the caller goes away.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func staleVersionMessage(expected *int64, found int64) string {
	exp := "null"
	if expected != nil {
		exp = fmt.Sprintf("%d", *expected)
	}
	return fmt.Sprintf("Data is stale, please refresh and try again. Expected version: %s, but found: %d", exp, found)
}

func versionMatches(expected *int64, found int64) bool {
	return expected != nil && *expected == found
}

// validRange reports whether both bounds are present and start is not after end.
func validRange(start, end *time.Time) bool {
	return start != nil && end != nil && !start.After(*end)
}

func publish(ctx context.Context, logger *zap.Logger, p Publisher, stream, eventType string, data any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, stream, eventType, data); err != nil {
		logger.Warn("failed to publish event", zap.String("stream", stream), zap.String("event_type", eventType), zap.Error(err))
	}
}
