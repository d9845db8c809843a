package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrValidation marks every request-shape failure; callers match it with errors.Is.
var ErrValidation = errors.New("validation failed")

func init() {
	// amounts are JSON numbers on the wire
	decimal.MarshalJSONWithoutQuotes = true
}

type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// Sign returns the amount as it is stored: debits are negated.
func (t TransactionType) Sign(amount decimal.Decimal) decimal.Decimal {
	if t == TransactionDebit {
		return amount.Neg()
	}
	return amount
}

type Transaction struct {
	ID        uuid.UUID       `json:"id"         db:"id"`
	SessionID string          `json:"session_id" db:"session_id"`
	Title     string          `json:"title"      db:"title"`
	Amount    decimal.Decimal `json:"amount"     db:"amount"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

func (Transaction) TableName() string { return "transactions" }

// Summary is the running balance of a session.
type Summary struct {
	Amount decimal.Decimal `json:"amount"`
}

// TransactionCreateRequest is the input for creating a transaction.
// SessionID and IdempotencyKey come from the request cookie and headers.
type TransactionCreateRequest struct {
	Title          string          `json:"title"  validate:"required"`
	Amount         *float64        `json:"amount" validate:"required"`
	Type           TransactionType `json:"type"   validate:"required,oneof=credit debit"`
	SessionID      string          `json:"-"`
	IdempotencyKey string          `json:"-"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (p TransactionCreateRequest) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fe.Field() + " must be one of [" + fe.Param() + "]"
	}
	return fe.Field() + " is invalid"
}

// SignedAmount converts the requested magnitude into the stored amount.
func (p TransactionCreateRequest) SignedAmount() decimal.Decimal {
	if p.Amount == nil {
		return decimal.Zero
	}
	return p.Type.Sign(decimal.NewFromFloat(*p.Amount))
}

// ParseTransactionID validates a path identifier before any store access.
func ParseTransactionID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: id must be a uuid", ErrValidation)
	}
	return id, nil
}
