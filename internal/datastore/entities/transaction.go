package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Source identifies one of the two commerce systems feeding the dashboard.
type Source string

const (
	// SourceA is the e-commerce platform export.
	SourceA Source = "shopify"
	// SourceB is the accounting system export.
	SourceB Source = "qbo"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	return s == SourceA || s == SourceB
}

// Other returns the opposite source.
func (s Source) Other() Source {
	if s == SourceA {
		return SourceB
	}
	return SourceA
}

// TransactionRow is one ingested sales line. Row ids are never reused, so a
// ledger entry keeps addressing the same physical row.
type TransactionRow struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"`
	OccurredAt  time.Time       `gorm:"not null;index"`
	Code        string          `gorm:"size:191;index"`
	Description string          `gorm:"size:512"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Price       decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Total       decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	CreatedAt   time.Time       `gorm:"autoCreateTime"`
}

// SourceATransaction is the migration model for the source A table.
type SourceATransaction struct {
	TransactionRow
}

// TableName returns the table name for GORM.
func (SourceATransaction) TableName() string {
	return TransactionTable(SourceA)
}

// SourceBTransaction is the migration model for the source B table.
type SourceBTransaction struct {
	TransactionRow
}

// TableName returns the table name for GORM.
func (SourceBTransaction) TableName() string {
	return TransactionTable(SourceB)
}

// TransactionTable returns the table holding rows of the given source.
func TransactionTable(s Source) string {
	return string(s) + "_transactions"
}
