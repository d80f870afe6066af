// Package orders implements the active order store: the per-table carts
// a terminal is working on, the current table selection, and the local
// table status that follows them.
//
// Every mutating operation persists the updated cart and selection to
// durable storage synchronously before returning. A terminal crash
// therefore loses at most the in-flight UI render, never committed cart
// state: reopen the store and Restore picks up exactly where it left
// off.
//
// The visible cart is always a fresh copy, never a shared reference, so
// later mutation of one table's cart cannot leak into another's.
package orders

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/PoalNinh/poscore/internal/pos"
	"github.com/PoalNinh/poscore/internal/storage"
)

// ProductResolver looks up a product snapshot for add-to-cart.
// Implemented by refcache.Cache.
type ProductResolver interface {
	Product(ctx context.Context, productID string) (pos.Product, error)
}

// Store owns the terminal's active orders. Constructed at terminal
// startup and torn down at shutdown; tests get fresh instances.
type Store struct {
	mu           sync.Mutex
	db           *storage.Store
	products     ProductResolver
	takeawayName string
	tables       map[string]pos.Table
	orders       map[string][]pos.CartLine
	selected     string
	cart         []pos.CartLine
	logger       *slog.Logger
}

// New creates an active order store. Call LoadTables with reference data
// and Restore before use.
func New(db *storage.Store, products ProductResolver, takeawayName string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:           db,
		products:     products,
		takeawayName: takeawayName,
		tables:       make(map[string]pos.Table),
		orders:       make(map[string][]pos.CartLine),
		logger:       logger,
	}
}

// LoadTables replaces the table directory with fresh reference data.
// Tables that currently hold an active order are marked occupied
// regardless of the status the remote store reported, since the local
// cart is the authority on occupancy between settlements.
func (s *Store) LoadTables(tables []pos.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tables = make(map[string]pos.Table, len(tables))
	for _, t := range tables {
		if len(s.orders[t.ID]) > 0 && !s.isTakeaway(t) {
			t.Status = pos.TableOccupied
		}
		s.tables[t.ID] = t
	}
}

// Restore loads the persisted selection and carts from durable storage.
// Called once at startup, after a crash or a normal restart.
func (s *Store) Restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	selected, err := s.db.SelectedTable(ctx)
	if err != nil {
		return fmt.Errorf("restore orders: %w", err)
	}
	orders, err := s.db.ActiveOrders(ctx)
	if err != nil {
		return fmt.Errorf("restore orders: %w", err)
	}

	s.selected = selected
	s.orders = orders
	s.cart = copyLines(orders[selected])
	return nil
}

// SelectTable switches the visible cart to the given table.
//
// The current cart, if non-empty, is parked under the current table
// first. The new table's status flips from available to occupied unless
// it is the takeaway table.
func (s *Store) SelectTable(ctx context.Context, tableID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, ok := s.tables[tableID]
	if !ok {
		return fmt.Errorf("%s: %w", tableID, pos.ErrUnknownTable)
	}

	if s.selected != "" && len(s.cart) > 0 {
		s.orders[s.selected] = copyLines(s.cart)
		if err := s.db.SaveCart(ctx, s.selected, s.cart); err != nil {
			return err
		}
	}

	if err := s.db.SetSelectedTable(ctx, tableID); err != nil {
		return err
	}
	s.selected = tableID
	s.cart = copyLines(s.orders[tableID])

	if !s.isTakeaway(table) && table.Status == pos.TableAvailable {
		table.Status = pos.TableOccupied
		s.tables[tableID] = table
	}

	s.logger.Info("table selected", "table", tableID)
	return nil
}

// Add is the tap-to-add entry point: it appends a new line with quantity
// one, or increments an existing line by one. Distinct from SetQuantity,
// which the quantity-control path uses; the two flows deliberately keep
// different semantics.
func (s *Store) Add(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == "" {
		return pos.ErrNoTableSelected
	}

	if i := s.lineIndex(productID); i >= 0 {
		s.cart[i].Quantity++
		return s.persistCart(ctx)
	}

	p, err := s.products.Product(ctx, productID)
	if err != nil {
		return err
	}
	s.cart = append(s.cart, pos.CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  1,
	})
	return s.persistCart(ctx)
}

// SetQuantity is the quantity-control entry point: it sets an existing
// line's quantity to an absolute value, creating the line when absent.
// A quantity of zero or below removes the line.
func (s *Store) SetQuantity(ctx context.Context, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == "" {
		return pos.ErrNoTableSelected
	}

	if quantity <= 0 {
		s.removeLineLocked(productID)
		return s.persistCart(ctx)
	}

	if i := s.lineIndex(productID); i >= 0 {
		s.cart[i].Quantity = quantity
		return s.persistCart(ctx)
	}

	p, err := s.products.Product(ctx, productID)
	if err != nil {
		return err
	}
	s.cart = append(s.cart, pos.CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  quantity,
	})
	return s.persistCart(ctx)
}

// AdjustQuantity changes an existing line's quantity by delta. Reaching
// zero or below removes the line. Adjusting a product not in the cart is
// a no-op.
func (s *Store) AdjustQuantity(ctx context.Context, productID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == "" {
		return pos.ErrNoTableSelected
	}

	i := s.lineIndex(productID)
	if i < 0 {
		return nil
	}

	s.cart[i].Quantity += delta
	if s.cart[i].Quantity <= 0 {
		s.removeLineLocked(productID)
	}
	return s.persistCart(ctx)
}

// RemoveLine deletes a product's line from the visible cart.
func (s *Store) RemoveLine(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == "" {
		return pos.ErrNoTableSelected
	}

	s.removeLineLocked(productID)
	return s.persistCart(ctx)
}

// ClearCart empties the visible cart and removes the table's active
// order entry. Table status is left untouched; only settlement resets
// it.
func (s *Store) ClearCart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == "" {
		return pos.ErrNoTableSelected
	}

	s.cart = nil
	return s.persistCart(ctx)
}

// TransferTable moves the entire cart from one table to another and
// re-selects the destination.
//
// Only legal when the source is the currently selected table and not the
// takeaway table, and the destination has no active order. The source
// becomes available, the destination occupied.
func (s *Store) TransferTable(ctx context.Context, fromID, toID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fromID != s.selected {
		return fmt.Errorf("transfer from %s: %w", fromID, pos.ErrNoTableSelected)
	}
	source, ok := s.tables[fromID]
	if !ok {
		return fmt.Errorf("%s: %w", fromID, pos.ErrUnknownTable)
	}
	target, ok := s.tables[toID]
	if !ok {
		return fmt.Errorf("%s: %w", toID, pos.ErrUnknownTable)
	}
	if s.isTakeaway(source) {
		return fmt.Errorf("source is the takeaway table: %w", pos.ErrTransferNotAllowed)
	}
	if len(s.orders[toID]) > 0 {
		return fmt.Errorf("destination %s has an active order: %w", toID, pos.ErrTransferNotAllowed)
	}

	// Durable writes first, in-memory state after, so a failure midway
	// never leaves memory ahead of disk.
	if err := s.db.SaveCart(ctx, toID, s.cart); err != nil {
		return err
	}
	if err := s.db.DeleteCart(ctx, fromID); err != nil {
		return err
	}
	if err := s.db.SetSelectedTable(ctx, toID); err != nil {
		return err
	}

	s.orders[toID] = copyLines(s.cart)
	delete(s.orders, fromID)
	s.selected = toID

	source.Status = pos.TableAvailable
	s.tables[fromID] = source
	if !s.isTakeaway(target) {
		target.Status = pos.TableOccupied
		s.tables[toID] = target
	}

	s.logger.Info("table transferred", "from", fromID, "to", toID)
	return nil
}

// FinalizeSettlement clears a settled table: its active order entry is
// removed, its status reset to available (takeaway exempt), and the
// selection and visible cart cleared if they pointed at it.
func (s *Store) FinalizeSettlement(ctx context.Context, tableID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteCart(ctx, tableID); err != nil {
		return err
	}
	delete(s.orders, tableID)

	if table, ok := s.tables[tableID]; ok && !s.isTakeaway(table) {
		table.Status = pos.TableAvailable
		s.tables[tableID] = table
	}

	if s.selected == tableID {
		if err := s.db.ClearSelectedTable(ctx); err != nil {
			return err
		}
		s.selected = ""
		s.cart = nil
	}
	return nil
}

// Cart returns a copy of the visible cart in display order.
func (s *Store) Cart() []pos.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyLines(s.cart)
}

// SelectedTable returns the id of the selected table, or "" if none.
func (s *Store) SelectedTable() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Table returns a table from the directory.
func (s *Store) Table(tableID string) (pos.Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[tableID]
	return t, ok
}

// Tables returns the table directory sorted by id.
func (s *Store) Tables() []pos.Table {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := make([]pos.Table, 0, len(s.tables))
	for _, t := range s.tables {
		tables = append(tables, t)
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].ID < tables[j].ID })
	return tables
}

// TableByName returns the first table with the given display name.
func (s *Store) TableByName(name string) (pos.Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tables {
		if t.Name == name {
			return t, true
		}
	}
	return pos.Table{}, false
}

// HasOrder reports whether a table has a non-empty active order.
func (s *Store) HasOrder(tableID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders[tableID]) > 0
}

// ActiveOrders returns a copy of every active order keyed by table id.
func (s *Store) ActiveOrders() map[string][]pos.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]pos.CartLine, len(s.orders))
	for id, lines := range s.orders {
		out[id] = copyLines(lines)
	}
	return out
}

// persistCart mirrors the visible cart into the active orders map and
// durable storage. Callers hold the lock.
func (s *Store) persistCart(ctx context.Context) error {
	if len(s.cart) == 0 {
		delete(s.orders, s.selected)
	} else {
		s.orders[s.selected] = copyLines(s.cart)
	}
	return s.db.SaveCart(ctx, s.selected, s.cart)
}

// lineIndex returns the cart index of a product, or -1. Callers hold the
// lock.
func (s *Store) lineIndex(productID string) int {
	for i, l := range s.cart {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

// removeLineLocked drops a product's line, preserving display order of
// the rest. Callers hold the lock.
func (s *Store) removeLineLocked(productID string) {
	kept := s.cart[:0]
	for _, l := range s.cart {
		if l.ProductID != productID {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		s.cart = nil
	} else {
		s.cart = kept
	}
}

func (s *Store) isTakeaway(t pos.Table) bool {
	return t.Name == s.takeawayName
}

func copyLines(lines []pos.CartLine) []pos.CartLine {
	if len(lines) == 0 {
		return nil
	}
	out := make([]pos.CartLine, len(lines))
	copy(out, lines)
	return out
}
