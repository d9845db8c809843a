package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
	xhttp "github.com/nimasrn/session-ledger/pkg/http"
	"github.com/nimasrn/session-ledger/pkg/logger"
	"github.com/nimasrn/session-ledger/pkg/prom"
	"github.com/valyala/fasthttp"
)

const (
	CookieName    = "sessionId"
	DefaultPath   = "/"
	DefaultMaxAge = 7 * 24 * time.Hour

	userValueKey = "session_id"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// UnauthorizedMessage is the error body sent for ErrUnauthenticated.
const UnauthorizedMessage = "Unauthorized."

type Options struct {
	Path   string
	MaxAge time.Duration
}

// Guard scopes requests to the anonymous session carried by the sessionId
// cookie. Holding the cookie is the whole identity: it is neither signed nor
// looked up anywhere.
type Guard struct {
	path   string
	maxAge time.Duration
}

func NewGuard(opts Options) *Guard {
	g := &Guard{path: opts.Path, maxAge: opts.MaxAge}
	if g.path == "" {
		g.path = DefaultPath
	}
	if g.maxAge <= 0 {
		g.maxAge = DefaultMaxAge
	}
	return g
}

// FromRequest returns the session id of the request or ErrUnauthenticated.
func (g *Guard) FromRequest(ctx *xhttp.RequestCtx) (string, error) {
	id := string(ctx.Request.Header.Cookie(CookieName))
	if id == "" {
		return "", ErrUnauthenticated
	}
	return id, nil
}

// Require rejects requests without a session before next runs.
func (g *Guard) Require(next xhttp.RequestHandler) xhttp.RequestHandler {
	return func(ctx *xhttp.RequestCtx) {
		id, err := g.FromRequest(ctx)
		if err != nil {
			prom.IncSessionRejected()
			logger.Debug("request rejected without session", "path", string(ctx.Path()))
			xhttp.WriteError(ctx, xhttp.StatusUnauthorized, UnauthorizedMessage)
			return
		}
		ctx.SetUserValue(userValueKey, id)
		next(ctx)
	}
}

// Ensure returns the request's session id, minting one and setting the
// cookie on the response when the request has none.
func (g *Guard) Ensure(ctx *xhttp.RequestCtx) string {
	if id, err := g.FromRequest(ctx); err == nil {
		ctx.SetUserValue(userValueKey, id)
		return id
	}

	id := uuid.NewString()
	c := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(c)
	c.SetKey(CookieName)
	c.SetValue(id)
	c.SetPath(g.path)
	c.SetMaxAge(int(g.maxAge / time.Second))
	ctx.Response.Header.SetCookie(c)

	ctx.SetUserValue(userValueKey, id)
	prom.IncSessionMinted()
	return id
}

// ID returns the session id stored by Require or Ensure.
func ID(ctx *xhttp.RequestCtx) string {
	id, _ := ctx.UserValue(userValueKey).(string)
	return id
}
