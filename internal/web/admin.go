package web

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/usfbank/surveyweb/internal/admin"
	"github.com/usfbank/surveyweb/internal/domain"
	"github.com/usfbank/surveyweb/internal/session"
)

// workspace restores the admin workspace of the session.
func (h *Handler) workspace(c *gin.Context, v *visit) *admin.Workspace {
	ctx := c.Request.Context()

	st := admin.NewState("")
	if _, err := h.sessions.Get(ctx, v.id, session.FieldAdmin, &st); err != nil {
		slog.ErrorContext(ctx, "web: load admin workspace failed", "error", err)
		st = admin.NewState("")
	}

	return admin.New(admin.Config{
		API:       v.conn,
		Ledger:    h.ledger,
		Publisher: h.eb,
	}, st)
}

func (h *Handler) saveWorkspace(c *gin.Context, v *visit, w *admin.Workspace) {
	ctx := c.Request.Context()
	if err := h.sessions.Set(ctx, v.id, session.FieldAdmin, w.State); err != nil {
		slog.ErrorContext(ctx, "web: save admin workspace failed", "error", err)
	}
}

func (h *Handler) adminPage(c *gin.Context) {
	v, _ := visitOf(c)
	w := h.workspace(c, v)

	// The location decides the selection, so bookmarks and the back button work.
	if id := c.Param("surveyId"); id != w.Selected {
		w.State = admin.State{
			Selected:    id,
			NewSurvey:   w.NewSurvey,
			NewQuestion: domain.Question{SurveyID: id, Weight: 1},
			Drafts:      map[int64]*domain.Question{},
			Error:       w.Error,
		}
	}

	w.Load(c.Request.Context())

	// Errors are shown once.
	msg := w.Error
	w.Error = ""
	h.saveWorkspace(c, v, w)

	h.render(c, http.StatusOK, "admin.html", gin.H{
		"W":       w,
		"Error":   msg,
		"IsAdmin": v.identity.IsAdmin(),
	})
}

// act runs one workspace action, saves the workspace and sends the browser back to it.
func (h *Handler) act(c *gin.Context, f func(w *admin.Workspace) error) {
	v, _ := visitOf(c)
	w := h.workspace(c, v)

	if err := f(w); err != nil {
		slog.InfoContext(c.Request.Context(), "web: admin action failed", "path", c.FullPath(), "error", err)
	}

	h.saveWorkspace(c, v, w)
	c.Redirect(http.StatusSeeOther, w.Location())
}

func (h *Handler) createSurvey(c *gin.Context) {
	h.act(c, func(w *admin.Workspace) error {
		return w.CreateSurvey(c.Request.Context(), domain.Survey{
			SurveyID:          c.PostForm("survey_id"),
			SurveyDescription: c.PostForm("survey_description"),
		})
	})
}

func (h *Handler) deleteSurvey(c *gin.Context) {
	h.act(c, func(w *admin.Workspace) error {
		return w.DeleteSurvey(c.Request.Context(), c.Param("surveyId"))
	})
}

func (h *Handler) selectSurvey(c *gin.Context) {
	h.act(c, func(w *admin.Workspace) error {
		return w.Select(c.Request.Context(), strings.TrimSpace(c.PostForm("survey_id")))
	})
}

func (h *Handler) createQuestion(c *gin.Context) {
	h.act(c, func(w *admin.Workspace) error {
		return w.CreateQuestion(c.Request.Context(), domain.Question{
			SurveyDescription: c.PostForm("survey_description"),
			Category:          c.PostForm("category"),
			Description:       c.PostForm("description"),
			Weight:            formInt(c, "weight"),
		})
	})
}

func (h *Handler) beginEdit(c *gin.Context) {
	h.act(c, func(w *admin.Workspace) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		// Reload the rows so the draft starts from the current question.
		if err := w.Select(c.Request.Context(), w.Selected); err != nil {
			return err
		}
		return w.BeginEdit(id)
	})
}

func (h *Handler) saveEdit(c *gin.Context) {
	h.act(c, func(w *admin.Workspace) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		if err := w.EditDraft(id, c.PostForm("category"), c.PostForm("description"), formInt(c, "weight")); err != nil {
			return err
		}
		return w.SaveEdit(c.Request.Context(), id)
	})
}

func (h *Handler) cancelEdit(c *gin.Context) {
	h.act(c, func(w *admin.Workspace) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		w.CancelEdit(id)
		return nil
	})
}

func (h *Handler) deleteQuestion(c *gin.Context) {
	h.act(c, func(w *admin.Workspace) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		return w.DeleteQuestion(c.Request.Context(), id)
	})
}

func paramID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

// formInt reads an integer form field; anything unparsable reads as 0.
func formInt(c *gin.Context, name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.PostForm(name)))
	if err != nil {
		return 0
	}
	return n
}
