package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/nimasrn/session-ledger/internal/model"
	"github.com/nimasrn/session-ledger/pkg/pg"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when no transaction matches both id and session.
	ErrNotFound = errors.New("transaction not found")
)

type TransactionRepository struct {
	*pg.DB
}

func NewTransactionRepository(db *pg.DB) *TransactionRepository {
	return &TransactionRepository{
		db,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	entity := toTransactionEntity(txn)

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toTransactionModel(entity), nil
}

// ListBySession returns the session's rows in store order.
func (r *TransactionRepository) ListBySession(ctx context.Context, sessionID string) ([]*model.Transaction, error) {
	var entities []*TransactionEntity
	err := r.Read(ctx).
		Where("session_id = ?", sessionID).
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toTransactionModels(entities), nil
}

// GetBySession never reveals rows of another session: both keys must match.
func (r *TransactionRepository) GetBySession(ctx context.Context, sessionID string, id uuid.UUID) (*model.Transaction, error) {
	var entity TransactionEntity
	err := r.Read(ctx).
		Where("session_id = ? AND id = ?", sessionID, id).
		Take(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toTransactionModel(&entity), nil
}

// SumBySession aggregates the signed amounts; an empty session sums to zero.
// sqlite keeps NUMERIC values as REAL and would sum them in floating point,
// so there the amounts are added as decimals instead.
func (r *TransactionRepository) SumBySession(ctx context.Context, sessionID string) (decimal.Decimal, error) {
	db := r.Read(ctx)
	if db.Dialector.Name() == "sqlite" {
		rows, err := db.Model(&TransactionEntity{}).
			Select("amount").
			Where("session_id = ?", sessionID).
			Rows()
		if err != nil {
			return decimal.Zero, err
		}
		defer rows.Close()

		total := decimal.Zero
		for rows.Next() {
			var amount decimal.Decimal
			if err := rows.Scan(&amount); err != nil {
				return decimal.Zero, err
			}
			total = total.Add(amount)
		}
		return total, rows.Err()
	}

	var total decimal.Decimal
	err := db.Model(&TransactionEntity{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("session_id = ?", sessionID).
		Row().
		Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
