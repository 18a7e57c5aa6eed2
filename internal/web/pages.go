package web

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/usfbank/surveyweb/internal/errors"
	"github.com/usfbank/surveyweb/internal/session"
)

const (
	msgNavLoginFailed  = "Login failed: check your credentials"
	msgLoginFailed     = "Login failed"
	msgLoginError      = "Login error. Please try again."
	msgRegisterFailed  = "Registration failed"
	msgRegisterError   = "Registration error. Please try again."
	msgRegisterLogin   = "Login after registration failed."
	msgMissingLogin    = "Please enter your user ID and password"
	msgMissingRegister = "Please enter your user ID, email and password"
)

// home is also where a survey run ends, so it tears down the runners of the session.
func (h *Handler) home(c *gin.Context) {
	v, _ := visitOf(c)
	h.runners.DropSession(v.id)
	h.render(c, http.StatusOK, "home.html", nil)
}

func (h *Handler) loginPage(c *gin.Context) {
	h.render(c, http.StatusOK, "login.html", nil)
}

func (h *Handler) login(c *gin.Context) {
	v, _ := visitOf(c)
	ctx := c.Request.Context()
	id, pw := strings.TrimSpace(c.PostForm("id")), c.PostForm("pw")

	fail := func(msg string) {
		h.render(c, http.StatusOK, "login.html", gin.H{"ID": id, "Error": msg})
	}

	if id == "" || pw == "" {
		fail(msgMissingLogin)
		return
	}

	if err := v.conn.Login(ctx, id, pw); err != nil {
		fail(loginMessage(err, msgLoginFailed, msgLoginError))
		return
	}

	h.landAfterLogin(c, v)
}

// landAfterLogin sends administrators to the workspace and everyone else to the survey entry.
func (h *Handler) landAfterLogin(c *gin.Context, v *visit) {
	ctx := c.Request.Context()
	h.persist(c, v)

	me, err := v.conn.Me(ctx)
	if err != nil {
		slog.WarnContext(ctx, "web: session check after login failed", "error", err)
	}

	if me.IsAdmin() {
		c.Redirect(http.StatusSeeOther, "/admin")
		return
	}
	c.Redirect(http.StatusSeeOther, "/associateSurvey")
}

func (h *Handler) registerPage(c *gin.Context) {
	h.render(c, http.StatusOK, "register.html", nil)
}

func (h *Handler) register(c *gin.Context) {
	v, _ := visitOf(c)
	ctx := c.Request.Context()
	id, pw, email := strings.TrimSpace(c.PostForm("id")), c.PostForm("pw"), strings.TrimSpace(c.PostForm("email"))

	fail := func(msg string) {
		h.render(c, http.StatusOK, "register.html", gin.H{"ID": id, "Email": email, "Error": msg})
	}

	if id == "" || pw == "" || email == "" {
		fail(msgMissingRegister)
		return
	}

	if err := v.conn.Register(ctx, id, pw, email); err != nil {
		fail(loginMessage(err, msgRegisterFailed, msgRegisterError))
		return
	}

	if err := v.conn.Login(ctx, id, pw); err != nil {
		slog.WarnContext(ctx, "web: login after registration failed", "error", err)
		fail(msgRegisterLogin)
		return
	}

	h.landAfterLogin(c, v)
}

// navLogin is the inline form of the navigation bar. It always lands on the admin workspace.
func (h *Handler) navLogin(c *gin.Context) {
	v, _ := visitOf(c)
	ctx := c.Request.Context()

	err := v.conn.Login(ctx, strings.TrimSpace(c.PostForm("id")), c.PostForm("pw"))
	if err != nil {
		slog.InfoContext(ctx, "web: navigation login failed", "error", err)
		h.setFlash(c, v, msgNavLoginFailed)
		c.Redirect(http.StatusSeeOther, localPath(c.PostForm("from")))
		return
	}

	h.persist(c, v)
	c.Redirect(http.StatusSeeOther, "/admin")
}

func (h *Handler) logout(c *gin.Context) {
	v, _ := visitOf(c)
	ctx := c.Request.Context()

	if err := v.conn.Logout(ctx); err != nil {
		slog.WarnContext(ctx, "web: logout failed", "error", err)
	}
	h.persist(c, v)

	if err := h.sessions.Del(ctx, v.id, session.FieldAdmin); err != nil {
		slog.ErrorContext(ctx, "web: clear admin workspace failed", "error", err)
	}
	h.runners.DropSession(v.id)

	c.Redirect(http.StatusSeeOther, "/")
}

// loginMessage shows the API's own message for rejected credentials and a generic one otherwise.
func loginMessage(err error, fallback, generic string) string {
	e := errors.Convert(err)
	switch e.Code {
	case errors.CodeUnauthenticated, errors.CodeInvalidArgument, errors.CodeAlreadyExists:
		if e.Message != "" {
			return e.Message
		}
		return fallback
	}
	return generic
}

// localPath keeps redirects on this site.
func localPath(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return "/"
	}
	return p
}
