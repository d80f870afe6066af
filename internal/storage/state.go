package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/PoalNinh/poscore/internal/pos"
)

const keySelectedTable = "selected_table"

// SelectedTable returns the persisted table selection, or "" if no table
// is selected.
func (s *Store) SelectedTable(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM terminal_state WHERE key = ?`, keySelectedTable,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read selected table: %w", err)
	}
	return id, nil
}

// SetSelectedTable persists the table selection.
func (s *Store) SetSelectedTable(ctx context.Context, tableID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO terminal_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, keySelectedTable, tableID)
	if err != nil {
		return fmt.Errorf("set selected table: %w", err)
	}
	return nil
}

// ClearSelectedTable removes the persisted table selection.
func (s *Store) ClearSelectedTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM terminal_state WHERE key = ?`, keySelectedTable)
	if err != nil {
		return fmt.Errorf("clear selected table: %w", err)
	}
	return nil
}

// SaveCart persists the cart for a table. An empty cart deletes the row:
// an active order entry exists exactly while the cart is non-empty.
func (s *Store) SaveCart(ctx context.Context, tableID string, lines []pos.CartLine) error {
	if len(lines) == 0 {
		return s.DeleteCart(ctx, tableID)
	}

	payload, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("save cart: marshal: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO carts (table_id, lines) VALUES (?, ?)
		ON CONFLICT(table_id) DO UPDATE SET lines = excluded.lines
	`, tableID, string(payload))
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// DeleteCart removes the cart row for a table. Not an error if absent.
func (s *Store) DeleteCart(ctx context.Context, tableID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM carts WHERE table_id = ?`, tableID)
	if err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

// Cart returns the persisted cart for a table. ok is false when no cart
// row exists.
func (s *Store) Cart(ctx context.Context, tableID string) (lines []pos.CartLine, ok bool, err error) {
	var payload string
	err = s.db.QueryRowContext(ctx,
		`SELECT lines FROM carts WHERE table_id = ?`, tableID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cart: %w", err)
	}

	if err := json.Unmarshal([]byte(payload), &lines); err != nil {
		return nil, false, fmt.Errorf("read cart: unmarshal: %w", err)
	}
	return lines, true, nil
}

// ActiveOrders returns every persisted cart keyed by table id.
func (s *Store) ActiveOrders(ctx context.Context) (map[string][]pos.CartLine, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT table_id, lines FROM carts`)
	if err != nil {
		return nil, fmt.Errorf("read active orders: %w", err)
	}
	defer rows.Close()

	orders := make(map[string][]pos.CartLine)
	for rows.Next() {
		var tableID, payload string
		if err := rows.Scan(&tableID, &payload); err != nil {
			return nil, fmt.Errorf("read active orders: scan: %w", err)
		}
		var lines []pos.CartLine
		if err := json.Unmarshal([]byte(payload), &lines); err != nil {
			return nil, fmt.Errorf("read active orders: unmarshal %s: %w", tableID, err)
		}
		orders[tableID] = lines
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read active orders: iterate: %w", err)
	}
	return orders, nil
}
