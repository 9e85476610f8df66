// Package store provides SQLite-backed durable storage for the pantry
// forecasting engine.
//
// The schema mirrors the canonical restaurant dataset:
//   - ingredients: catalog with reorder/safety/par thresholds
//   - purchases: vendor purchase history (costs as decimal TEXT)
//   - shipments: vendor shipments with status and lead time
//   - usage: per-day menu-item consumption (append-only)
//   - sales: per-day menu-item revenue
//   - recipe: menu-item to ingredient quantity mappings
//   - files: ingestion metadata for uploaded datasets
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// All query failures are wrapped in *DataStoreError so callers can
// recognize a data-availability problem and degrade to synthetic
// responses instead of failing hard.
//
// Invariant enforced by the schema: a shipment carries lead_time_days
// if and only if its status is 'delivered'.
package store
