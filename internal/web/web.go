// Package web serves the survey pages. It renders HTML on the server and calls the external
// survey API on behalf of each browser session.
package web

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/usfbank/surveyweb/internal/admin"
	"github.com/usfbank/surveyweb/internal/domain"
	"github.com/usfbank/surveyweb/internal/event"
	"github.com/usfbank/surveyweb/internal/runner"
	"github.com/usfbank/surveyweb/internal/session"
	"github.com/usfbank/surveyweb/internal/usfapi"
)

const defaultCookieName = "usf_session"

//go:embed templates/*.html
var templates embed.FS

type Config struct {
	Engine   *gin.Engine
	API      *usfapi.Client
	Sessions *session.Store
	Tokens   *session.Tokens
	Runners  *runner.Registry
	EventBus *event.Bus

	// Ledger is optional; when set the admin workspace lists recorded scores.
	Ledger admin.Ledger

	CookieName   string
	SecureCookie bool
}

type Handler struct {
	api      *usfapi.Client
	sessions *session.Store
	tokens   *session.Tokens
	runners  *runner.Registry
	eb       *event.Bus
	ledger   admin.Ledger
	cookie   string
	secure   bool
}

// New registers the pages on c.Engine.
func New(c Config) *Handler {
	h := &Handler{
		api:      c.API,
		sessions: c.Sessions,
		tokens:   c.Tokens,
		runners:  c.Runners,
		eb:       c.EventBus,
		ledger:   c.Ledger,
		cookie:   c.CookieName,
		secure:   c.SecureCookie,
	}
	if h.cookie == "" {
		h.cookie = defaultCookieName
	}

	e := c.Engine
	e.SetHTMLTemplate(template.Must(template.New("").Funcs(funcs).ParseFS(templates, "templates/*.html")))

	e.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	g := e.Group("/", h.session)
	g.GET("/", h.home)
	g.GET("/login", h.loginPage)
	g.POST("/login", h.login)
	g.GET("/register", h.registerPage)
	g.POST("/register", h.register)
	g.POST("/nav/login", h.navLogin)
	g.POST("/logout", h.logout)

	p := g.Group("/", h.requireLogin)
	p.GET("/admin", h.adminPage)
	p.GET("/admin/:surveyId", h.adminPage)
	p.POST("/admin/surveys", h.createSurvey)
	p.POST("/admin/surveys/:surveyId/delete", h.deleteSurvey)
	p.POST("/admin/select", h.selectSurvey)
	p.POST("/admin/questions", h.createQuestion)
	p.POST("/admin/questions/:id/edit", h.beginEdit)
	p.POST("/admin/questions/:id/save", h.saveEdit)
	p.POST("/admin/questions/:id/cancel", h.cancelEdit)
	p.POST("/admin/questions/:id/delete", h.deleteQuestion)

	p.GET("/associateSurvey", h.legacySurvey)
	p.GET("/survey/:surveyId", h.surveyPage)
	p.POST("/survey/:surveyId/start", h.startSurvey)
	p.POST("/survey/:surveyId/step", h.stepSurvey)
	p.POST("/survey/:surveyId/submit", h.submitSurvey)
	p.POST("/survey/:surveyId/home", h.returnHome)

	return h
}

var funcs = template.FuncMap{
	"answerValues": func() []int {
		return []int{domain.AnswerRarely, domain.AnswerSometimes, domain.AnswerFrequently}
	},
	"answerLabel": func(v int) string {
		if !domain.ValidAnswer(v) {
			return ""
		}
		return domain.AnswerLabels[v-1]
	},
}

// render adds the data every page needs: the flash message and the current path.
func (h *Handler) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Path"] = c.Request.URL.Path
	if v, ok := visitOf(c); ok {
		data["Flash"] = h.takeFlash(c, v)
		data["LoggedIn"] = v.identity.LoggedIn
	}
	c.HTML(status, name, data)
}
