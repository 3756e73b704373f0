package ingest

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/alexknuckles/ultrasuite/internal/datastore/entities"
	"github.com/alexknuckles/ultrasuite/internal/datastore/repository"
	"github.com/alexknuckles/ultrasuite/internal/errors"
	"github.com/alexknuckles/ultrasuite/internal/resolution"
)

// Mode selects how a batch is stored.
type Mode string

const (
	// ModeAppend adds rows to the source table.
	ModeAppend Mode = "append"
	// ModeReplace swaps the whole source table for the batch.
	ModeReplace Mode = "replace"
)

// Loader stores batches and then runs the hook.
type Loader struct {
	transactions repository.TransactionRepository
	hook         *Hook
}

// NewLoader creates a Loader.
func NewLoader(transactions repository.TransactionRepository, hook *Hook) *Loader {
	return &Loader{transactions: transactions, hook: hook}
}

// Load stores b with mode and runs OnIngested once the rows are committed.
func (l *Loader) Load(ctx context.Context, b Batch, mode Mode) (Result, error) {
	var err error
	switch mode {
	case ModeAppend, "":
		err = l.transactions.Insert(ctx, b.Source, b.Rows)
	case ModeReplace:
		err = l.transactions.Replace(ctx, b.Source, b.Rows)
	default:
		return Result{}, errors.InvalidInput("unknown load mode %q", mode).
			Component("ingest").
			Build()
	}
	if err != nil {
		return Result{}, err
	}
	return l.hook.OnIngested(ctx, b)
}

// LoadFile reads a YAML batch file and loads it.
func (l *Loader) LoadFile(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, errors.New(err).
			Component("ingest").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer f.Close()

	b, mode, err := DecodeBatch(f)
	if err != nil {
		return Result{}, err
	}
	return l.Load(ctx, b, mode)
}

// BatchFile is the YAML layout of a batch file.
type BatchFile struct {
	Source entities.Source `yaml:"source"`
	Mode   Mode            `yaml:"mode"`
	Policy string          `yaml:"policy"`
	Rows   []RowFile       `yaml:"rows"`
}

// RowFile is one row of a batch file. A missing price is derived from
// total and quantity.
type RowFile struct {
	OccurredAt  time.Time        `yaml:"occurred_at"`
	Code        string           `yaml:"code"`
	Description string           `yaml:"description"`
	Quantity    decimal.Decimal  `yaml:"quantity"`
	Price       *decimal.Decimal `yaml:"price"`
	Total       decimal.Decimal  `yaml:"total"`
}

// DecodeBatch parses a YAML batch.
func DecodeBatch(r io.Reader) (Batch, Mode, error) {
	var file BatchFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return Batch{}, "", errors.New(err).
			Component("ingest").
			Category(errors.CategoryFileParsing).
			Build()
	}

	if !file.Source.Valid() {
		return Batch{}, "", errors.InvalidInput("batch source must be %q or %q, got %q", entities.SourceA, entities.SourceB, file.Source).
			Component("ingest").
			Build()
	}

	b := Batch{Source: file.Source, Rows: make([]entities.TransactionRow, len(file.Rows))}
	if file.Policy != "" {
		p, err := resolution.ParsePolicy(file.Policy)
		if err != nil {
			return Batch{}, "", err
		}
		b.Policy = p
	}

	for i, row := range file.Rows {
		if row.OccurredAt.IsZero() {
			return Batch{}, "", errors.InvalidInput("row %d has no occurred_at", i+1).
				Component("ingest").
				Build()
		}
		price := row.Total
		switch {
		case row.Price != nil:
			price = *row.Price
		case !row.Quantity.IsZero():
			price = row.Total.Div(row.Quantity)
		}
		b.Rows[i] = entities.TransactionRow{
			OccurredAt:  row.OccurredAt,
			Code:        row.Code,
			Description: row.Description,
			Quantity:    row.Quantity,
			Price:       price,
			Total:       row.Total,
		}
	}
	return b, file.Mode, nil
}
