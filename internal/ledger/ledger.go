// Package ledger owns the clients, products, invoices and payments of the
// business. It applies the side effects that keep them consistent (stock
// deduction and restoration) and persists every mutation before it becomes
// visible.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/facturier/facturier/internal/billing"
	"github.com/facturier/facturier/internal/seed"
	"github.com/facturier/facturier/internal/storage"
)

// Recorder receives operational events. The observability package provides
// a Prometheus implementation.
type Recorder interface {
	ObserveOperation(op string, err error)
	StockClamped(productID string, shortfall int)
	LoadFallback(key string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, error) {}
func (nopRecorder) StockClamped(string, int)       {}
func (nopRecorder) LoadFallback(string)            {}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger used for storage fallbacks and stock clamps.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithIDGenerator overrides the UUID generator.
func WithIDGenerator(next func() string) Option {
	return func(l *Ledger) {
		if next != nil {
			l.newID = next
		}
	}
}

// WithRecorder installs an event recorder.
func WithRecorder(rec Recorder) Option {
	return func(l *Ledger) {
		if rec != nil {
			l.recorder = rec
		}
	}
}

// WithKeys overrides the document keys.
func WithKeys(keys storage.Keys) Option {
	return func(l *Ledger) {
		l.keys = keys
	}
}

// state is replaced wholesale on every successful mutation. Slices held by a
// state are never written to after it is published.
type state struct {
	clients  []billing.Client
	products []billing.Product
	invoices []billing.Invoice
	payments []billing.Payment
}

// Ledger is the single source of truth for the four collections. All
// methods are safe for concurrent use; mutations are serialised.
type Ledger struct {
	mu    sync.RWMutex
	state state

	store    storage.Store
	keys     storage.Keys
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time
	newID    func() string
}

// Open loads the ledger from store. Missing or undecodable documents fall
// back to the seed (clients, products) or to empty collections (invoices,
// payments); the fallback is logged and not written back until the next
// mutation. Store transport errors are returned.
func Open(ctx context.Context, store storage.Store, data seed.Data, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("ledger: store is required")
	}
	l := &Ledger{
		store:    store,
		keys:     storage.NewKeys(""),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		recorder: nopRecorder{},
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}

	var next state
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loadDocument(gctx, l, l.keys.Clients, &next.clients, cloneSlice(data.Clients))
	})
	g.Go(func() error {
		return loadDocument(gctx, l, l.keys.Products, &next.products, cloneSlice(data.Products))
	})
	g.Go(func() error {
		return loadDocument(gctx, l, l.keys.Invoices, &next.invoices, []billing.Invoice{})
	})
	g.Go(func() error {
		return loadDocument(gctx, l, l.keys.Payments, &next.payments, []billing.Payment{})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	l.state = next
	return l, nil
}

func loadDocument[T any](ctx context.Context, l *Ledger, key string, dest *[]T, fallback []T) error {
	body, err := l.store.Load(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		l.logger.Info("ledger document missing, using default", slog.String("key", key))
		*dest = fallback
		return nil
	}
	if err != nil {
		return fmt.Errorf("ledger: load %s: %w", key, err)
	}
	var decoded []T
	if err := json.Unmarshal(body, &decoded); err != nil {
		l.logger.Warn("ledger document corrupt, using default", slog.String("key", key), slog.Any("error", err))
		l.recorder.LoadFallback(key)
		*dest = fallback
		return nil
	}
	if decoded == nil {
		decoded = []T{}
	}
	*dest = decoded
	return nil
}

// commit persists the collections named by keys from next and publishes next
// on success. The caller holds l.mu.
func (l *Ledger) commit(ctx context.Context, next state, keys ...string) error {
	docs := make([]storage.Document, 0, len(keys))
	for _, key := range keys {
		var (
			body []byte
			err  error
		)
		switch key {
		case l.keys.Clients:
			body, err = json.Marshal(next.clients)
		case l.keys.Products:
			body, err = json.Marshal(next.products)
		case l.keys.Invoices:
			body, err = json.Marshal(next.invoices)
		case l.keys.Payments:
			body, err = json.Marshal(next.payments)
		default:
			err = fmt.Errorf("unknown document %q", key)
		}
		if err != nil {
			return fmt.Errorf("%w: encode %s: %w", ErrPersist, key, err)
		}
		docs = append(docs, storage.Document{Key: key, Body: body})
	}
	if err := l.store.Save(ctx, docs...); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	l.state = next
	return nil
}

// Reset replaces every collection with data and empty invoice and payment
// lists.
func (l *Ledger) Reset(ctx context.Context, data seed.Data) (err error) {
	defer func() { l.recorder.ObserveOperation("reset", err) }()
	l.mu.Lock()
	defer l.mu.Unlock()

	next := state{
		clients:  cloneSlice(data.Clients),
		products: cloneSlice(data.Products),
		invoices: []billing.Invoice{},
		payments: []billing.Payment{},
	}
	return l.commit(ctx, next, l.keys.All()...)
}

func (l *Ledger) today() string {
	return l.now().Format(billing.DateLayout)
}

func cloneSlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func cloneInvoices(in []billing.Invoice) []billing.Invoice {
	out := make([]billing.Invoice, len(in))
	for i, inv := range in {
		out[i] = inv.Clone()
	}
	return out
}
