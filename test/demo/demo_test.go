//go:build integration_test

package demo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const (
	addr        = "http://localhost:8080"
	redisAddr   = "localhost:6379"
	redisPrefix = "local"
)

var questionRow = regexp.MustCompile(`name="q-(\d+)"`)

// TestSurvey drives a running server: an admin builds a survey, then a few users answer it concurrently.
func TestSurvey(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	surveyID := "DEMO" + strings.ToUpper(uuid.NewString()[:8])
	admin := newBrowser(t)

	// Build the survey
	{
		admin.login(envOr("DEMO_ADMIN_ID", "admin"), envOr("DEMO_ADMIN_PW", "admin"))
		admin.mustPost("/admin/surveys", url.Values{"survey_id": {surveyID}, "survey_description": {"Demo " + surveyID}})
		admin.mustPost("/admin/select", url.Values{"survey_id": {surveyID}})

		for i, c := range []string{"Coaching", "Ownership", "Teamwork"} {
			admin.mustPost("/admin/questions", url.Values{
				"category":    {c},
				"description": {fmt.Sprintf("Question %d about %s", i+1, c)},
				"weight":      {fmt.Sprint(i + 1)},
			})
		}
		t.Cleanup(func() { admin.mustPost("/admin/surveys/"+surveyID+"/delete", nil) })
	}

	// Every user registers and answers every question concurrently
	var eg errgroup.Group
	for i := 0; i < 3; i++ {
		u := fmt.Sprintf("demo%s%d", strings.ToLower(surveyID[4:]), i)
		eg.Go(func() error {
			b := newBrowser(t)
			status, err := b.post("/register", url.Values{"id": {u}, "pw": {"pw"}, "email": {u + "@example.com"}})
			if err != nil || status != http.StatusSeeOther {
				return fmt.Errorf("user %q register: status %d: %v", u, status, err)
			}

			page, err := b.get("/survey/" + surveyID)
			if err != nil {
				return fmt.Errorf("user %q open survey: %w", u, err)
			}
			form := url.Values{}
			for _, m := range questionRow.FindAllStringSubmatch(page, -1) {
				form.Set("q-"+m[1], "3")
			}
			if len(form) == 0 {
				return fmt.Errorf("user %q: no questions on the survey page", u)
			}

			if _, err := b.post("/survey/"+surveyID+"/submit", form); err != nil {
				return fmt.Errorf("user %q submit: %w", u, err)
			}
			if page, err = b.get("/survey/" + surveyID); err != nil || !strings.Contains(page, "Thank you for your submission!") {
				return fmt.Errorf("user %q: submission not confirmed", u)
			}

			t.Logf("User %q submitted %d answers", u, len(form))
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	// Browser sessions live in Redis
	keys, err := makeRedis(t).Keys(ctx, redisPrefix+":session:*").Result()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(keys), 4)
}

type browser struct {
	t      *testing.T
	client *http.Client
}

func newBrowser(t *testing.T) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &browser{
		t: t,
		client: &http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) login(id, pw string) {
	status, err := b.post("/login", url.Values{"id": {id}, "pw": {pw}})
	require.NoError(b.t, err)
	require.Equal(b.t, http.StatusSeeOther, status, "login as %s", id)
}

// get and post only report errors, they are also called from worker goroutines.
func (b *browser) get(path string) (string, error) {
	resp, err := b.client.Get(addr + path)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	return string(body), err
}

func (b *browser) post(path string, form url.Values) (int, error) {
	resp, err := b.client.PostForm(addr+path, form)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (b *browser) mustPost(path string, form url.Values) {
	_, err := b.post(path, form)
	require.NoError(b.t, err)
}

func makeRedis(t *testing.T) redis.UniversalClient {
	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{redisAddr},
	})
	t.Cleanup(func() { r.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.Ping(ctx).Err(); err != nil {
		t.Fatal(err)
	}

	return r
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
