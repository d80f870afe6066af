// Package terminal wires the order-capture and settlement components
// into one explicitly owned object with a defined lifecycle: constructed
// at terminal startup, started once, closed at shutdown. Nothing in this
// module lives in package-level state, so tests build fresh terminals
// per case.
package terminal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PoalNinh/poscore/internal/config"
	"github.com/PoalNinh/poscore/internal/connectivity"
	"github.com/PoalNinh/poscore/internal/orders"
	"github.com/PoalNinh/poscore/internal/pos"
	"github.com/PoalNinh/poscore/internal/queue"
	"github.com/PoalNinh/poscore/internal/receipt"
	"github.com/PoalNinh/poscore/internal/refcache"
	"github.com/PoalNinh/poscore/internal/remote"
	"github.com/PoalNinh/poscore/internal/settle"
	"github.com/PoalNinh/poscore/internal/storage"
)

// Terminal owns one terminal session's components.
type Terminal struct {
	cfg      config.Config
	store    *storage.Store
	monitor  *connectivity.Monitor
	cache    *refcache.Cache
	orders   *orders.Store
	queue    *queue.Queue
	settle   *settle.Workflow
	receipts *receipt.Renderer
	logger   *slog.Logger
}

// Option configures a Terminal at construction.
type Option func(*options)

type options struct {
	logger        *slog.Logger
	remote        remote.Requester
	printer       settle.Printer
	ids           pos.InvoiceIDGenerator
	now           func() time.Time
	initialOnline bool
}

// WithLogger sets the logger shared by all components.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithRemote overrides the remote store client (tests use a stub).
func WithRemote(r remote.Requester) Option { return func(o *options) { o.remote = r } }

// WithPrinter sets the receipt printing collaborator.
func WithPrinter(p settle.Printer) Option { return func(o *options) { o.printer = p } }

// WithIDGenerator overrides invoice ID generation.
func WithIDGenerator(g pos.InvoiceIDGenerator) Option { return func(o *options) { o.ids = g } }

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// WithInitialOnline sets the connectivity state the terminal starts in.
func WithInitialOnline(online bool) Option { return func(o *options) { o.initialOnline = online } }

// New constructs a terminal from configuration. Call Start before use
// and Close at shutdown.
func New(cfg config.Config, opts ...Option) (*Terminal, error) {
	o := &options{
		logger:        slog.Default(),
		now:           time.Now,
		initialOnline: true,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.remote == nil {
		o.remote = remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.APIKey, cfg.Remote.Timeout.Std(), o.logger)
	}

	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open terminal storage: %w", err)
	}

	monitor := connectivity.NewMonitor(o.initialOnline, o.logger)

	cache := refcache.New(store, o.remote, monitor, map[string]string{
		refcache.EntityProducts: cfg.Remote.Entities.Products,
		refcache.EntityTables:   cfg.Remote.Entities.Tables,
	}, cfg.CacheTTL.Std(), o.now, o.logger)

	ord := orders.New(store, cache, cfg.TakeawayTable, o.logger)

	q := queue.New(store, o.remote, monitor,
		cfg.Remote.Entities.Invoices, cfg.Remote.Entities.InvoiceLines,
		cfg.Remote.Properties, cfg.QueueRetention.Std(), o.now, o.logger)

	wf := settle.New(ord, q, monitor, o.printer, o.ids, o.now, o.logger)

	return &Terminal{
		cfg:      cfg,
		store:    store,
		monitor:  monitor,
		cache:    cache,
		orders:   ord,
		queue:    q,
		settle:   wf,
		receipts: receipt.NewRenderer(cfg.ShopName),
		logger:   o.logger,
	}, nil
}

// Start restores persisted state and brings the terminal to a usable
// condition: tables loaded into the order store, previous selection and
// carts recovered, the takeaway table selected when nothing was, the
// queue subscribed to reconnects, and an opportunistic flush if online.
//
// A cache miss on tables or products while offline with no prior cache
// is fatal: the terminal cannot operate without reference data.
func (t *Terminal) Start(ctx context.Context) error {
	tables, stale, err := t.cache.Tables(ctx)
	if err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}
	if stale {
		t.logger.Warn("serving stale table data")
	}
	if _, _, err := t.cache.Products(ctx); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}

	if err := t.orders.Restore(ctx); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}
	t.orders.LoadTables(tables)

	if t.orders.SelectedTable() == "" {
		if takeaway, ok := t.orders.TableByName(t.cfg.TakeawayTable); ok {
			if err := t.orders.SelectTable(ctx, takeaway.ID); err != nil {
				return fmt.Errorf("start terminal: %w", err)
			}
		}
	}

	t.monitor.OnReconnect(func() {
		if err := t.queue.Flush(context.Background()); err != nil {
			t.logger.Error("reconnect flush failed", "error", err)
		}
	})

	if t.monitor.IsOnline() {
		if err := t.queue.Flush(ctx); err != nil {
			t.logger.Error("startup flush failed", "error", err)
		}
	}

	t.logger.Info("terminal started", "selected_table", t.orders.SelectedTable())
	return nil
}

// Close releases the terminal's resources.
func (t *Terminal) Close() error {
	return t.store.Close()
}

// Settle finalizes the visible cart. See settle.Workflow.Settle.
func (t *Terminal) Settle(ctx context.Context, req settle.Request) (settle.Result, error) {
	return t.settle.Settle(ctx, req)
}

// FlushNow runs a reconciliation cycle on demand.
func (t *Terminal) FlushNow(ctx context.Context) error {
	return t.queue.Flush(ctx)
}

// Orders exposes the active order store.
func (t *Terminal) Orders() *orders.Store { return t.orders }

// Queue exposes the offline transaction queue.
func (t *Terminal) Queue() *queue.Queue { return t.queue }

// Cache exposes the reference cache.
func (t *Terminal) Cache() *refcache.Cache { return t.cache }

// Receipts exposes the receipt renderer, configured with the shop name.
// The UI renders settled invoices through it when no printer collaborator
// is wired.
func (t *Terminal) Receipts() *receipt.Renderer { return t.receipts }

// Monitor exposes the connectivity monitor.
func (t *Terminal) Monitor() *connectivity.Monitor { return t.monitor }
