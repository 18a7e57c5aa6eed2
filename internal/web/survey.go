package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/usfbank/surveyweb/internal/runner"
)

// viewportCookie carries window.innerWidth, written by a script in the page header.
const viewportCookie = "vw"

func viewport(c *gin.Context) runner.Mode {
	s, err := c.Cookie(viewportCookie)
	if err != nil {
		return runner.ModeDesktop
	}
	w, _ := strconv.Atoi(s)
	return runner.ModeFor(w)
}

func surveyLocation(surveyID string) string {
	return "/survey/" + url.PathEscape(surveyID)
}

// legacySurvey is the old survey entry without a survey ID; the survey is picked in the workspace.
func (h *Handler) legacySurvey(c *gin.Context) {
	c.Redirect(http.StatusFound, "/admin")
}

func (h *Handler) surveyPage(c *gin.Context) {
	v, _ := visitOf(c)
	surveyID := c.Param("surveyId")
	if surveyID == "" {
		c.Redirect(http.StatusFound, "/admin")
		return
	}

	mode := viewport(c)
	r := h.runners.Get(v.id, surveyID, mode)
	r.SetMode(mode)

	if err := r.Load(c.Request.Context(), v.conn); err != nil {
		slog.WarnContext(c.Request.Context(), "web: survey unavailable", "survey_id", surveyID, "error", err)
	}

	view := r.View()
	if view.Redirect != "" {
		c.Redirect(http.StatusFound, view.Redirect)
		return
	}

	data := gin.H{
		"V":       view,
		"IsAdmin": v.identity.IsAdmin(),
	}
	switch {
	case view.State == runner.StateSubmitted:
		data["Refresh"] = fmt.Sprintf("%d;url=/", int(runner.RedirectAfter.Seconds()))
	case view.Fading:
		// Meta refresh only takes whole seconds, so the page script reloads once the fade is over.
		data["ReloadAfterMs"] = runner.FadeDuration.Milliseconds()
	}

	h.render(c, http.StatusOK, "survey.html", data)
}

// liveRunner returns the live runner for the request, or sends the browser back to the survey page
// to start one.
func (h *Handler) liveRunner(c *gin.Context) (*runner.Runner, bool) {
	v, _ := visitOf(c)
	surveyID := c.Param("surveyId")

	r, ok := h.runners.Lookup(v.id, surveyID)
	if !ok {
		c.Redirect(http.StatusSeeOther, surveyLocation(surveyID))
		return nil, false
	}
	return r, true
}

func (h *Handler) startSurvey(c *gin.Context) {
	r, ok := h.liveRunner(c)
	if !ok {
		return
	}

	if err := r.Start(); err != nil {
		slog.InfoContext(c.Request.Context(), "web: start survey ignored", "error", err)
	}
	c.Redirect(http.StatusSeeOther, surveyLocation(c.Param("surveyId")))
}

// stepSurvey handles the one-question-at-a-time form: it records the chosen answer, if any, and then
// moves as asked.
func (h *Handler) stepSurvey(c *gin.Context) {
	r, ok := h.liveRunner(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if qid, value := c.PostForm("question_id"), c.PostForm("value"); qid != "" && value != "" {
		id, _ := strconv.ParseInt(qid, 10, 64)
		a, _ := strconv.Atoi(value)
		if err := r.Answer(id, a); err != nil {
			slog.InfoContext(ctx, "web: answer rejected", "question_id", qid, "error", err)
		}
	}

	switch c.PostForm("action") {
	case "next":
		r.Next()
	case "prev":
		r.Prev()
	case "submit":
		h.submit(c, r)
		return
	}
	c.Redirect(http.StatusSeeOther, surveyLocation(c.Param("surveyId")))
}

// submitSurvey handles the desktop table, which posts every answer at once as q-<question id> fields.
func (h *Handler) submitSurvey(c *gin.Context) {
	r, ok := h.liveRunner(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if err := c.Request.ParseForm(); err == nil {
		for name, values := range c.Request.PostForm {
			qid, found := strings.CutPrefix(name, "q-")
			if !found || len(values) == 0 {
				continue
			}
			id, _ := strconv.ParseInt(qid, 10, 64)
			a, _ := strconv.Atoi(values[0])
			if err := r.Answer(id, a); err != nil {
				slog.InfoContext(ctx, "web: answer rejected", "question_id", qid, "error", err)
			}
		}
	}

	h.submit(c, r)
}

func (h *Handler) submit(c *gin.Context, r *runner.Runner) {
	v, _ := visitOf(c)
	if err := r.Submit(c.Request.Context(), v.conn, v.identity.User); err != nil {
		slog.InfoContext(c.Request.Context(), "web: submit survey failed", "error", err)
	}
	c.Redirect(http.StatusSeeOther, surveyLocation(c.Param("surveyId")))
}

func (h *Handler) returnHome(c *gin.Context) {
	v, _ := visitOf(c)
	if r, ok := h.runners.Lookup(v.id, c.Param("surveyId")); ok {
		r.ReturnHome()
	}
	c.Redirect(http.StatusSeeOther, "/")
}
