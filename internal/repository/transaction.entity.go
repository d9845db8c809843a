package repository

import (
	"github.com/nimasrn/session-ledger/internal/model"
	"github.com/nimasrn/session-ledger/pkg/pg"
	"github.com/shopspring/decimal"
)

type TransactionEntity struct {
	pg.Model
	SessionID string          `db:"session_id" gorm:"column:session_id;type:text;not null;index:idx_transactions_session_id"`
	Title     string          `db:"title"      gorm:"column:title;type:text;not null"`
	Amount    decimal.Decimal `db:"amount"     gorm:"column:amount;type:numeric;not null"`
}

func (TransactionEntity) TableName() string {
	return "transactions"
}

func toTransactionEntity(m *model.Transaction) *TransactionEntity {
	if m == nil {
		return nil
	}
	return &TransactionEntity{
		Model:     pg.Model{ID: m.ID, CreatedAt: m.CreatedAt},
		SessionID: m.SessionID,
		Title:     m.Title,
		Amount:    m.Amount,
	}
}

func toTransactionModel(e *TransactionEntity) *model.Transaction {
	if e == nil {
		return nil
	}
	return &model.Transaction{
		ID:        e.ID,
		SessionID: e.SessionID,
		Title:     e.Title,
		Amount:    e.Amount,
		CreatedAt: e.CreatedAt,
	}
}

// toTransactionModels never returns nil so lists encode as [].
func toTransactionModels(entities []*TransactionEntity) []*model.Transaction {
	models := make([]*model.Transaction, len(entities))
	for i, e := range entities {
		models[i] = toTransactionModel(e)
	}
	return models
}
