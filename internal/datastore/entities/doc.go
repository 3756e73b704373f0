// Package entities defines the GORM models persisted by the reconciliation engine.
//
// Tables:
//   - sku_aliases: alias registry, one row per known code
//   - shopify_transactions, qbo_transactions: ingested rows per source
//   - resolution_ledger: append-only duplicate resolution history
//   - settings: key/value settings store
//   - source_loads: last load per source
package entities
