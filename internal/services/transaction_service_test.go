package services

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/nimasrn/session-ledger/internal/idempotency"
	"github.com/nimasrn/session-ledger/internal/model"
	"github.com/nimasrn/session-ledger/internal/repository"
	"github.com/nimasrn/session-ledger/pkg/redis"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	args := m.Called(ctx, txn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListBySession(ctx context.Context, sessionID string) ([]*model.Transaction, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetBySession(ctx context.Context, sessionID string, id uuid.UUID) (*model.Transaction, error) {
	args := m.Called(ctx, sessionID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) SumBySession(ctx context.Context, sessionID string) (decimal.Decimal, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) Reserve(ctx context.Context, scope, key string) (bool, error) {
	args := m.Called(ctx, scope, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, scope, key string) error {
	args := m.Called(ctx, scope, key)
	return args.Error(0)
}

func amount(v float64) *float64 { return &v }

func TestTransactionService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("credit is stored positive", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		svc := NewTransactionService(repo, nil)

		repo.On("Create", ctx, mock.MatchedBy(func(txn *model.Transaction) bool {
			return txn.SessionID == "s1" && txn.Title == "Salary" &&
				txn.Amount.Equal(decimal.NewFromInt(5000)) && txn.ID != uuid.Nil
		})).Return(&model.Transaction{Title: "Salary"}, nil)

		txn, err := svc.Create(ctx, model.TransactionCreateRequest{
			Title: "Salary", Amount: amount(5000), Type: model.TransactionCredit, SessionID: "s1",
		})
		require.NoError(t, err)
		assert.Equal(t, "Salary", txn.Title)
		repo.AssertExpectations(t)
	})

	t.Run("debit is stored negated", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		svc := NewTransactionService(repo, nil)

		repo.On("Create", ctx, mock.MatchedBy(func(txn *model.Transaction) bool {
			return txn.Amount.Equal(decimal.NewFromInt(-1200))
		})).Return(&model.Transaction{}, nil)

		_, err := svc.Create(ctx, model.TransactionCreateRequest{
			Title: "Rent", Amount: amount(1200), Type: model.TransactionDebit, SessionID: "s1",
		})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("each create gets a fresh id", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		svc := NewTransactionService(repo, nil)

		var ids []uuid.UUID
		repo.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
			ids = append(ids, args.Get(1).(*model.Transaction).ID)
		}).Return(&model.Transaction{}, nil)

		req := model.TransactionCreateRequest{Title: "x", Amount: amount(1), Type: model.TransactionCredit, SessionID: "s1"}
		_, err := svc.Create(ctx, req)
		require.NoError(t, err)
		_, err = svc.Create(ctx, req)
		require.NoError(t, err)

		require.Len(t, ids, 2)
		assert.NotEqual(t, ids[0], ids[1])
	})

	t.Run("invalid requests never reach the store", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		svc := NewTransactionService(repo, nil)

		cases := []model.TransactionCreateRequest{
			{Title: "", Amount: amount(10), Type: model.TransactionCredit, SessionID: "s1"},
			{Title: "x", Amount: nil, Type: model.TransactionCredit, SessionID: "s1"},
			{Title: "x", Amount: amount(10), Type: "refund", SessionID: "s1"},
			{Title: "x", Amount: amount(10), Type: model.TransactionCredit},
		}
		for _, c := range cases {
			_, err := svc.Create(ctx, c)
			assert.ErrorIs(t, err, model.ErrValidation)
		}
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		svc := NewTransactionService(repo, nil)
		boom := errors.New("connection reset")

		repo.On("Create", ctx, mock.Anything).Return(nil, boom)

		_, err := svc.Create(ctx, model.TransactionCreateRequest{
			Title: "x", Amount: amount(1), Type: model.TransactionCredit, SessionID: "s1",
		})
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, model.ErrValidation)
	})
}

func TestTransactionService_CreateIdempotent(t *testing.T) {
	ctx := context.Background()
	req := model.TransactionCreateRequest{
		Title: "Salary", Amount: amount(5000), Type: model.TransactionCredit,
		SessionID: "s1", IdempotencyKey: "k1",
	}

	t.Run("replay is rejected without insert", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		idem := new(MockIdempotencyStore)
		svc := NewTransactionService(repo, idem)

		idem.On("Reserve", ctx, "s1", "k1").Return(false, nil)

		_, err := svc.Create(ctx, req)
		assert.ErrorIs(t, err, ErrDuplicateRequest)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("failed insert releases the key", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		idem := new(MockIdempotencyStore)
		svc := NewTransactionService(repo, idem)

		idem.On("Reserve", ctx, "s1", "k1").Return(true, nil)
		idem.On("Release", ctx, "s1", "k1").Return(nil)
		repo.On("Create", ctx, mock.Anything).Return(nil, errors.New("disk full"))

		_, err := svc.Create(ctx, req)
		require.Error(t, err)
		idem.AssertExpectations(t)
	})

	t.Run("redis outage does not block writes", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		idem := new(MockIdempotencyStore)
		svc := NewTransactionService(repo, idem)

		idem.On("Reserve", ctx, "s1", "k1").Return(false, errors.New("dial tcp: refused"))
		repo.On("Create", ctx, mock.Anything).Return(&model.Transaction{}, nil)

		_, err := svc.Create(ctx, req)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("no header skips the store", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		idem := new(MockIdempotencyStore)
		svc := NewTransactionService(repo, idem)

		repo.On("Create", ctx, mock.Anything).Return(&model.Transaction{}, nil)

		plain := req
		plain.IdempotencyKey = ""
		_, err := svc.Create(ctx, plain)
		require.NoError(t, err)
		idem.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestTransactionService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("malformed id is a validation error", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		svc := NewTransactionService(repo, nil)

		_, err := svc.Get(ctx, "s1", "not-a-uuid")
		assert.ErrorIs(t, err, model.ErrValidation)
		repo.AssertNotCalled(t, "GetBySession", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("not found is nil", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		svc := NewTransactionService(repo, nil)
		id := uuid.New()

		repo.On("GetBySession", ctx, "s1", id).Return(nil, repository.ErrNotFound)

		txn, err := svc.Get(ctx, "s1", id.String())
		require.NoError(t, err)
		assert.Nil(t, txn)
	})

	t.Run("found", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		svc := NewTransactionService(repo, nil)
		id := uuid.New()
		want := &model.Transaction{ID: id, SessionID: "s1", Title: "Rent"}

		repo.On("GetBySession", ctx, "s1", id).Return(want, nil)

		txn, err := svc.Get(ctx, "s1", id.String())
		require.NoError(t, err)
		assert.Equal(t, want, txn)
	})
}

func TestTransactionService_ListAndSummarize(t *testing.T) {
	ctx := context.Background()

	t.Run("empty list is never nil", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		svc := NewTransactionService(repo, nil)

		repo.On("ListBySession", ctx, "s1").Return(nil, nil)

		items, err := svc.List(ctx, "s1")
		require.NoError(t, err)
		assert.NotNil(t, items)
		assert.Empty(t, items)
	})

	t.Run("list error propagates", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		svc := NewTransactionService(repo, nil)

		repo.On("ListBySession", ctx, "s1").Return(nil, errors.New("timeout"))

		_, err := svc.List(ctx, "s1")
		assert.ErrorContains(t, err, "list transactions")
	})

	t.Run("summary wraps the sum", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		svc := NewTransactionService(repo, nil)

		repo.On("SumBySession", ctx, "s1").Return(decimal.NewFromInt(3800), nil)

		sum, err := svc.Summarize(ctx, "s1")
		require.NoError(t, err)
		assert.True(t, sum.Amount.Equal(decimal.NewFromInt(3800)))
	})
}

// Runs the service against sqlite and miniredis instead of mocks.
func TestTransactionService_Store(t *testing.T) {
	ctx := context.Background()
	db := repository.SetupTestDB(t)

	mr := miniredis.RunT(t)
	adapter, err := redis.NewRedisAdapter(uuid.NewString(), "test:", &redis.Options{Addrs: []string{mr.Addr()}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = adapter.Close() })

	svc := NewTransactionService(
		repository.NewTransactionRepository(db),
		idempotency.NewService(adapter, idempotency.DefaultConfig()),
	)

	salary := model.TransactionCreateRequest{Title: "Salary", Amount: amount(5000), Type: model.TransactionCredit, SessionID: "s1", IdempotencyKey: "pay-1"}
	rent := model.TransactionCreateRequest{Title: "Rent", Amount: amount(1200), Type: model.TransactionDebit, SessionID: "s1"}
	other := model.TransactionCreateRequest{Title: "Coffee", Amount: amount(4.5), Type: model.TransactionDebit, SessionID: "s2"}

	created, err := svc.Create(ctx, salary)
	require.NoError(t, err)
	_, err = svc.Create(ctx, salary)
	require.ErrorIs(t, err, ErrDuplicateRequest)
	_, err = svc.Create(ctx, rent)
	require.NoError(t, err)
	_, err = svc.Create(ctx, other)
	require.NoError(t, err)

	items, err := svc.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, items, 2)

	listed := decimal.Zero
	for _, it := range items {
		listed = listed.Add(it.Amount)
	}
	sum, err := svc.Summarize(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, sum.Amount.Equal(decimal.NewFromInt(3800)), "got %s", sum.Amount)
	assert.True(t, sum.Amount.Equal(listed))

	got, err := svc.Get(ctx, "s1", created.ID.String())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Salary", got.Title)

	foreign, err := svc.Get(ctx, "s2", created.ID.String())
	require.NoError(t, err)
	assert.Nil(t, foreign)

	empty, err := svc.Summarize(ctx, "nobody")
	require.NoError(t, err)
	assert.True(t, empty.Amount.IsZero())
}
