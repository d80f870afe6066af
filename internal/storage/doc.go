// Package storage provides SQLite-backed durable storage for the
// terminal's local state:
//
//   - Selected table (key/value terminal state)
//   - Active orders (one cart row per table)
//   - Offline transaction queue (ordered, idempotent by invoice id)
//   - Reference data caches (payload + fetch timestamp per entity)
//
// Every cart mutation is persisted synchronously before the mutating
// operation returns, so a terminal crash loses at most the in-flight UI
// render, never committed cart state.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON
//
// The queue table orders strictly by an AUTOINCREMENT seq column, never
// by timestamps, so replay order is exactly enqueue order.
package storage
