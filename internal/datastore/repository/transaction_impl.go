package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/alexknuckles/ultrasuite/internal/datastore/entities"
)

// transactionRepository implements TransactionRepository.
type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

// tableName returns the table of a source, rejecting unknown sources.
func (r *transactionRepository) tableName(source entities.Source) (string, error) {
	if !source.Valid() {
		return "", validationError(ErrInvalidSource, "source", source)
	}
	return entities.TransactionTable(source), nil
}

func (r *transactionRepository) Insert(ctx context.Context, source entities.Source, rows []entities.TransactionRow) error {
	table, err := r.tableName(source)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	for i := range rows {
		rows[i].OccurredAt = rows[i].OccurredAt.UTC()
	}

	if err := r.db.WithContext(ctx).Table(table).CreateInBatches(&rows, insertBatchSize).Error; err != nil {
		return dbError(err, "insert_transactions", "source", string(source), "count", len(rows))
	}
	return nil
}

func (r *transactionRepository) Replace(ctx context.Context, source entities.Source, rows []entities.TransactionRow) error {
	table, err := r.tableName(source)
	if err != nil {
		return err
	}

	if err := r.db.WithContext(ctx).Table(table).Where("1 = 1").Delete(&entities.TransactionRow{}).Error; err != nil {
		return dbError(err, "clear_transactions", "source", string(source))
	}
	return r.Insert(ctx, source, rows)
}

func (r *transactionRepository) Get(ctx context.Context, source entities.Source, id uint) (*entities.TransactionRow, error) {
	table, err := r.tableName(source)
	if err != nil {
		return nil, err
	}

	var row entities.TransactionRow
	err = r.db.WithContext(ctx).Table(table).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(ErrTransactionNotFound, id)
	}
	if err != nil {
		return nil, dbError(err, "get_transaction", "source", string(source), "id", id)
	}
	return &row, nil
}

func (r *transactionRepository) Delete(ctx context.Context, source entities.Source, id uint) (bool, error) {
	table, err := r.tableName(source)
	if err != nil {
		return false, err
	}

	result := r.db.WithContext(ctx).Table(table).Where("id = ?", id).Delete(&entities.TransactionRow{})
	if result.Error != nil {
		return false, dbError(result.Error, "delete_transaction", "source", string(source), "id", id)
	}
	return result.RowsAffected > 0, nil
}

func (r *transactionRepository) List(ctx context.Context, source entities.Source, filter TransactionFilter) ([]entities.TransactionRow, error) {
	table, err := r.tableName(source)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).Table(table)
	if filter.Start != nil {
		query = query.Where("occurred_at >= ?", filter.Start.UTC())
	}
	if filter.End != nil {
		query = query.Where("occurred_at <= ?", filter.End.UTC())
	}

	var rows []entities.TransactionRow
	if err := query.Order("occurred_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, dbError(err, "list_transactions", "source", string(source))
	}
	return rows, nil
}

func (r *transactionRepository) Count(ctx context.Context, source entities.Source) (int64, error) {
	table, err := r.tableName(source)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := r.db.WithContext(ctx).Table(table).Count(&count).Error; err != nil {
		return 0, dbError(err, "count_transactions", "source", string(source))
	}
	return count, nil
}
