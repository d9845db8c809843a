package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/session-ledger/internal/model"
	"github.com/nimasrn/session-ledger/internal/repository"
	"github.com/nimasrn/session-ledger/pkg/logger"
	"github.com/nimasrn/session-ledger/pkg/prom"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrMissingSession = errors.Wrap(model.ErrValidation, "session id is required")
	// ErrDuplicateRequest reports a create replayed under an idempotency key
	// that is still reserved. Nothing was written.
	ErrDuplicateRequest = errors.New("duplicate request")
)

type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	ListBySession(ctx context.Context, sessionID string) ([]*model.Transaction, error)
	GetBySession(ctx context.Context, sessionID string, id uuid.UUID) (*model.Transaction, error)
	SumBySession(ctx context.Context, sessionID string) (decimal.Decimal, error)
}

type IdempotencyStore interface {
	Reserve(ctx context.Context, scope, key string) (bool, error)
	Release(ctx context.Context, scope, key string) error
}

type TransactionService struct {
	repo        TransactionRepository
	idempotency IdempotencyStore
}

// NewTransactionService builds the service. idem may be nil, in which case
// Idempotency-Key headers are ignored.
func NewTransactionService(repo TransactionRepository, idem IdempotencyStore) *TransactionService {
	return &TransactionService{
		repo:        repo,
		idempotency: idem,
	}
}

func (s *TransactionService) List(ctx context.Context, sessionID string) ([]*model.Transaction, error) {
	start := time.Now()
	items, err := s.repo.ListBySession(ctx, sessionID)
	prom.ObserveStore("list", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, errors.Wrap(err, "list transactions")
	}
	if items == nil {
		items = []*model.Transaction{}
	}
	return items, nil
}

// Get returns nil without error when the id is unknown or owned by another
// session; callers cannot tell the two apart.
func (s *TransactionService) Get(ctx context.Context, sessionID, id string) (*model.Transaction, error) {
	txID, err := model.ParseTransactionID(id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	txn, err := s.repo.GetBySession(ctx, sessionID, txID)
	if errors.Is(err, repository.ErrNotFound) {
		err = nil
	}
	prom.ObserveStore("get", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, errors.Wrap(err, "get transaction")
	}
	return txn, nil
}

func (s *TransactionService) Summarize(ctx context.Context, sessionID string) (*model.Summary, error) {
	start := time.Now()
	total, err := s.repo.SumBySession(ctx, sessionID)
	prom.ObserveStore("summary", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, errors.Wrap(err, "summarize transactions")
	}
	return &model.Summary{Amount: total}, nil
}

func (s *TransactionService) Create(ctx context.Context, p model.TransactionCreateRequest) (*model.Transaction, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.SessionID == "" {
		return nil, ErrMissingSession
	}

	reserved := false
	if s.idempotency != nil && p.IdempotencyKey != "" {
		ok, err := s.idempotency.Reserve(ctx, p.SessionID, p.IdempotencyKey)
		switch {
		case err != nil:
			// a lost reservation only risks a duplicate row
			logger.Warn("idempotency reservation failed, continuing", "session_id", p.SessionID, "error", err)
		case !ok:
			prom.IncTransactionReplayed()
			return nil, ErrDuplicateRequest
		default:
			reserved = true
		}
	}

	txn := &model.Transaction{
		ID:        uuid.New(),
		SessionID: p.SessionID,
		Title:     p.Title,
		Amount:    p.SignedAmount(),
	}

	start := time.Now()
	created, err := s.repo.Create(ctx, txn)
	prom.ObserveStore("create", time.Since(start).Seconds(), err)
	if err != nil {
		if reserved {
			if rerr := s.idempotency.Release(ctx, p.SessionID, p.IdempotencyKey); rerr != nil {
				logger.Error("failed to release idempotency key", "session_id", p.SessionID, "error", rerr)
			}
		}
		return nil, errors.Wrap(err, "create transaction")
	}

	prom.IncTransactionCreated(string(p.Type))
	return created, nil
}
