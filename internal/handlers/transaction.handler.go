package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/fasthttp/router"
	"github.com/nimasrn/session-ledger/internal/model"
	"github.com/nimasrn/session-ledger/internal/services"
	"github.com/nimasrn/session-ledger/internal/session"
	xhttp "github.com/nimasrn/session-ledger/pkg/http"
	"github.com/nimasrn/session-ledger/pkg/logger"
)

const (
	HeaderIdempotencyKey     = "Idempotency-Key"
	HeaderIdempotentReplayed = "Idempotent-Replayed"
)

type TransactionService interface {
	List(ctx context.Context, sessionID string) ([]*model.Transaction, error)
	Get(ctx context.Context, sessionID, id string) (*model.Transaction, error)
	Summarize(ctx context.Context, sessionID string) (*model.Summary, error)
	Create(ctx context.Context, p model.TransactionCreateRequest) (*model.Transaction, error)
}

type TransactionHandler struct {
	svc   TransactionService
	guard *session.Guard
}

// RegisterTransactionRoutes mounts the ledger under base. Reads need an
// existing session; the create route mints one on first use. The collection
// answers with and without the trailing slash.
func RegisterTransactionRoutes(r *router.Router, base string, h *TransactionHandler) {
	prefix := strings.TrimRight(base, "/")
	list := h.guard.Require(h.ListTransactions)

	if prefix != "" {
		r.GET(prefix, list)
		r.POST(prefix, h.CreateTransaction)
	}
	r.GET(prefix+"/", list)
	r.GET(prefix+"/summary", h.guard.Require(h.GetSummary))
	r.GET(prefix+"/{id}", h.guard.Require(h.GetTransaction))
	r.POST(prefix+"/", h.CreateTransaction)
}

func NewTransactionHandler(svc TransactionService, guard *session.Guard) *TransactionHandler {
	return &TransactionHandler{
		svc:   svc,
		guard: guard,
	}
}

type listResponse struct {
	Transactions []*model.Transaction `json:"transactions"`
}

// an unknown id renders as {}
type getResponse struct {
	Transactions *model.Transaction `json:"transactions,omitempty"`
}

type summaryResponse struct {
	Summary *model.Summary `json:"summary"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *TransactionHandler) ListTransactions(ctx *xhttp.RequestCtx) {
	items, err := h.svc.List(ctx, session.ID(ctx))
	if err != nil {
		h.fail(ctx, "list transactions", err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, listResponse{Transactions: items})
}

func (h *TransactionHandler) GetTransaction(ctx *xhttp.RequestCtx) {
	id, _ := ctx.UserValue("id").(string)
	txn, err := h.svc.Get(ctx, session.ID(ctx), id)
	if err != nil {
		h.fail(ctx, "get transaction", err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, getResponse{Transactions: txn})
}

func (h *TransactionHandler) GetSummary(ctx *xhttp.RequestCtx) {
	sum, err := h.svc.Summarize(ctx, session.ID(ctx))
	if err != nil {
		h.fail(ctx, "summarize transactions", err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, summaryResponse{Summary: sum})
}

// CreateTransaction validates the body before touching the session, so a
// rejected request never mints a cookie.
func (h *TransactionHandler) CreateTransaction(ctx *xhttp.RequestCtx) {
	var p model.TransactionCreateRequest
	if err := xhttp.ReadJSON(ctx, &p); err != nil {
		xhttp.WriteError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := p.Validate(); err != nil {
		xhttp.WriteError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}

	p.SessionID = h.guard.Ensure(ctx)
	p.IdempotencyKey = string(ctx.Request.Header.Peek(HeaderIdempotencyKey))

	_, err := h.svc.Create(ctx, p)
	if errors.Is(err, services.ErrDuplicateRequest) {
		ctx.Response.Header.Set(HeaderIdempotentReplayed, "true")
		ctx.SetStatusCode(xhttp.StatusCreated)
		return
	}
	if err != nil {
		h.fail(ctx, "create transaction", err)
		return
	}
	ctx.SetStatusCode(xhttp.StatusCreated)
}

func (h *TransactionHandler) fail(ctx *xhttp.RequestCtx, op string, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		xhttp.WriteError(ctx, xhttp.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrUnauthenticated):
		xhttp.WriteError(ctx, xhttp.StatusUnauthorized, session.UnauthorizedMessage)
	default:
		logger.Error("failed to "+op, "error", err, "session_id", session.ID(ctx))
		xhttp.WriteError(ctx, xhttp.StatusInternalServerError, "internal server error")
	}
}
