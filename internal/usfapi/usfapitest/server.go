// Package usfapitest provides an in-memory stand-in for the external survey API, for tests.
package usfapitest

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/usfbank/surveyweb/internal/domain"
)

const SessionCookie = "session"

// Server mimics the /usf endpoints: cookie sessions, ADMIN-only mutations, surveys, questions and responses.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	users     map[string]string
	sessions  map[string]string
	surveys   map[string]domain.Survey
	questions map[int64]domain.Question
	nextID    int64
	responses map[string]map[string]int
	requests  map[string]int
	failing   map[string]int
}

func NewServer() *Server {
	gin.SetMode(gin.TestMode)

	s := &Server{
		users:     map[string]string{},
		sessions:  map[string]string{},
		surveys:   map[string]domain.Survey{},
		questions: map[int64]domain.Question{},
		nextID:    1,
		responses: map[string]map[string]int{},
		requests:  map[string]int{},
		failing:   map[string]int{},
	}

	e := gin.New()
	e.Use(s.count)
	e.POST("/usf/register", s.register)
	e.POST("/usf/login", s.login)
	e.POST("/usf/logout", s.requireLogin, s.logout)
	e.GET("/usf/me", s.me)
	e.GET("/usf/surveys", s.requireLogin, s.listSurveys)
	e.POST("/usf/surveys", s.requireAdmin, s.createSurvey)
	e.GET("/usf/surveys/:id", s.requireLogin, s.getSurvey)
	e.DELETE("/usf/surveys/:id", s.requireAdmin, s.deleteSurvey)
	e.GET("/usf/questions", s.requireLogin, s.listQuestions)
	e.POST("/usf/questions", s.requireAdmin, s.createQuestion)
	e.PUT("/usf/questions/:id", s.requireAdmin, s.updateQuestion)
	e.DELETE("/usf/questions/:id", s.requireAdmin, s.deleteQuestion)
	e.POST("/usf/responses", s.requireLogin, s.submitResponses)

	s.Server = httptest.NewServer(e)
	return s
}

// AddUser registers a user directly. Ids are upper-cased like the real API.
func (s *Server) AddUser(id, pw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[strings.ToUpper(id)] = pw
}

func (s *Server) AddSurvey(sv domain.Survey, questions ...domain.Question) []domain.Question {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.surveys[sv.SurveyID] = sv
	out := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		q.ID = s.nextID
		q.SurveyID = sv.SurveyID
		s.nextID++
		s.questions[q.ID] = q
		out = append(out, q)
	}
	return out
}

// Requests returns how many requests were received for "METHOD /path" (path without the id part).
func (s *Server) Requests(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[route]
}

// Fail makes the next n requests to route answer 500.
func (s *Server) Fail(route string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[route] = n
}

// Responses returns the last stored responses of user for a survey.
func (s *Server) Responses(surveyID, user string) map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.responses[surveyID+"/"+strings.ToUpper(user)]
}

func (s *Server) Questions(surveyID string) []domain.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questionsOf(surveyID)
}

func (s *Server) questionsOf(surveyID string) []domain.Question {
	out := []domain.Question{}
	for _, q := range s.questions {
		if q.SurveyID == surveyID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) count(c *gin.Context) {
	route := c.Request.Method + " " + c.FullPath()

	s.mu.Lock()
	s.requests[route]++
	fail := s.failing[route] > 0
	if fail {
		s.failing[route]--
	}
	s.mu.Unlock()

	if fail {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	c.Next()
}

func (s *Server) user(c *gin.Context) string {
	sid, err := c.Cookie(SessionCookie)
	if err != nil {
		return ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[sid]
}

func (s *Server) requireLogin(c *gin.Context) {
	if s.user(c) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
}

func (s *Server) requireAdmin(c *gin.Context) {
	if s.user(c) != domain.RoleAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	}
}

type credentials struct {
	ID    string `json:"id"`
	PW    string `json:"pw"`
	Email string `json:"email"`
}

func (s *Server) register(c *gin.Context) {
	var req credentials
	_ = c.ShouldBindJSON(&req)
	id := strings.ToUpper(strings.TrimSpace(req.ID))
	if id == "" || req.PW == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing credentials"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; ok {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "User already exists"})
		return
	}
	s.users[id] = req.PW
	c.JSON(http.StatusCreated, gin.H{"success": true})
}

func (s *Server) login(c *gin.Context) {
	var req credentials
	_ = c.ShouldBindJSON(&req)
	id := strings.ToUpper(strings.TrimSpace(req.ID))

	s.mu.Lock()
	pw, ok := s.users[id]
	if !ok || pw != req.PW {
		s.mu.Unlock()
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid credentials"})
		return
	}
	sid := uuid.NewString()
	s.sessions[sid] = id
	s.mu.Unlock()

	c.SetCookie(SessionCookie, sid, 0, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) logout(c *gin.Context) {
	sid, _ := c.Cookie(SessionCookie)

	s.mu.Lock()
	delete(s.sessions, sid)
	s.mu.Unlock()

	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) me(c *gin.Context) {
	u := s.user(c)
	if u == "" {
		c.JSON(http.StatusOK, gin.H{"logged_in": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logged_in": true, "user": u})
}

func (s *Server) listSurveys(c *gin.Context) {
	s.mu.Lock()
	out := make([]domain.Survey, 0, len(s.surveys))
	for _, sv := range s.surveys {
		out = append(out, sv)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].SurveyID < out[j].SurveyID })
	c.JSON(http.StatusOK, gin.H{"surveys": out})
}

func (s *Server) createSurvey(c *gin.Context) {
	var req domain.Survey
	_ = c.ShouldBindJSON(&req)
	req.SurveyID = strings.TrimSpace(req.SurveyID)
	req.SurveyDescription = strings.TrimSpace(req.SurveyDescription)
	if req.SurveyID == "" || req.SurveyDescription == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing survey_id or survey_description"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.surveys[req.SurveyID]; ok {
		c.JSON(http.StatusConflict, gin.H{"error": "Survey ID already exists"})
		return
	}
	s.surveys[req.SurveyID] = req
	c.JSON(http.StatusCreated, gin.H{"success": true})
}

func (s *Server) getSurvey(c *gin.Context) {
	s.mu.Lock()
	sv, ok := s.surveys[c.Param("id")]
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Survey not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"survey": sv})
}

func (s *Server) deleteSurvey(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	for qid, q := range s.questions {
		if q.SurveyID == id {
			delete(s.questions, qid)
		}
	}
	delete(s.surveys, id)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) listQuestions(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"questions": s.questionsOf(c.Query("survey_id"))})
}

func (s *Server) createQuestion(c *gin.Context) {
	var q domain.Question
	if err := c.ShouldBindJSON(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing fields"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.surveys[q.SurveyID]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Survey does not exist"})
		return
	}
	q.ID = s.nextID
	s.nextID++
	s.questions[q.ID] = q
	c.JSON(http.StatusCreated, gin.H{"success": true})
}

func (s *Server) updateQuestion(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
		return
	}

	var q domain.Question
	if err := c.ShouldBindJSON(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing fields"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; ok {
		q.ID = id
		s.questions[id] = q
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) deleteQuestion(c *gin.Context) {
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)

	s.mu.Lock()
	delete(s.questions, id)
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) submitResponses(c *gin.Context) {
	var req domain.Submission
	_ = c.ShouldBindJSON(&req)
	if req.SurveyID == "" || len(req.Responses) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing survey_id or responses"})
		return
	}

	u := s.user(c)

	s.mu.Lock()
	s.responses[req.SurveyID+"/"+u] = req.Responses
	s.mu.Unlock()

	c.JSON(http.StatusCreated, gin.H{"success": true})
}
