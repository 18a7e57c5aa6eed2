package web

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/usfbank/surveyweb/internal/domain"
	"github.com/usfbank/surveyweb/internal/session"
	"github.com/usfbank/surveyweb/internal/usfapi"
)

const visitKey = "web.visit"

// visit is the per-request view of a browser session.
type visit struct {
	id        string
	conn      *usfapi.Conn
	identity  domain.Identity
	persisted bool
}

func visitOf(c *gin.Context) (*visit, bool) {
	v, ok := c.Get(visitKey)
	if !ok {
		return nil, false
	}
	vv, ok := v.(*visit)
	return vv, ok
}

// session resolves the browser session from the signed cookie, starting a new one when the cookie is
// missing or tampered with, and binds the external API credentials of that session to the request.
func (h *Handler) session(c *gin.Context) {
	ctx := c.Request.Context()

	var id string
	if tok, err := c.Cookie(h.cookie); err == nil {
		if sid, err := h.tokens.Parse(tok); err == nil {
			id = sid
		}
	}

	if id == "" {
		var err error
		if id, err = h.sessions.NewID(); err != nil {
			_ = c.AbortWithError(http.StatusInternalServerError, err)
			return
		}

		tok, err := h.tokens.Issue(id)
		if err != nil {
			_ = c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(h.cookie, tok, 0, "/", "", h.secure, true)
	}

	var cred usfapi.Credentials
	if _, err := h.sessions.Get(ctx, id, session.FieldUpstream, &cred); err != nil {
		slog.ErrorContext(ctx, "web: load session credentials failed", "error", err)
	}
	if err := h.sessions.Touch(ctx, id); err != nil {
		slog.ErrorContext(ctx, "web: extend session failed", "error", err)
	}

	v := &visit{id: id, conn: h.api.Conn(cred)}
	c.Set(visitKey, v)

	c.Next()

	h.persist(c, v)
}

// persist saves the credentials when the external API changed them. Handlers that redirect right after
// logging in call it before responding so the next request sees the new session.
func (h *Handler) persist(c *gin.Context, v *visit) {
	if v.persisted || !v.conn.Changed() {
		return
	}

	ctx := c.Request.Context()
	if err := h.sessions.Set(ctx, v.id, session.FieldUpstream, v.conn.Credentials()); err != nil {
		slog.ErrorContext(ctx, "web: save session credentials failed", "error", err)
		return
	}
	v.persisted = true
}

func (h *Handler) setFlash(c *gin.Context, v *visit, msg string) {
	ctx := c.Request.Context()
	if err := h.sessions.Set(ctx, v.id, session.FieldFlash, msg); err != nil {
		slog.ErrorContext(ctx, "web: save flash failed", "error", err)
	}
}

func (h *Handler) takeFlash(c *gin.Context, v *visit) string {
	ctx := c.Request.Context()

	var msg string
	if _, err := h.sessions.Take(ctx, v.id, session.FieldFlash, &msg); err != nil {
		slog.ErrorContext(ctx, "web: load flash failed", "error", err)
	}
	return msg
}

// requireLogin asks the external API who owns the session and sends anonymous visitors, or any
// failure to find out, to the login page.
func (h *Handler) requireLogin(c *gin.Context) {
	v, ok := visitOf(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
		return
	}

	id, err := v.conn.Me(c.Request.Context())
	if err != nil || !id.LoggedIn {
		if err != nil {
			slog.WarnContext(c.Request.Context(), "web: session check failed", "error", err)
		}
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
		return
	}

	v.identity = id
	c.Next()
}
