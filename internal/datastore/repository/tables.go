package repository

// Table name constants.
const (
	tableAliases     = "sku_aliases"
	tableLedger      = "resolution_ledger"
	tableSettings    = "settings"
	tableSourceLoads = "source_loads"
)

// Batch sizes. SQLite limits a statement to 999 bound parameters.
const (
	insertBatchSize = 200
	pairChunkSize   = 400
)
