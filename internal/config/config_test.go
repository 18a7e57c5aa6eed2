package config_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/usfbank/surveyweb/internal/config"
)

type testConfig struct {
	API struct {
		BaseURL string
		Timeout time.Duration
	}

	Session struct {
		CookieName string
	}
}

func (c *testConfig) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.baseurl is required")
	}
	return nil
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad(t *testing.T) {
	p := writeConfig(t, `
api:
  baseurl: http://localhost:5001
  timeout: 3s
`)

	var c testConfig
	c.Session.CookieName = "usf_sid"

	require.NoError(t, config.Load(p, &c))
	require.Equal(t, "http://localhost:5001", c.API.BaseURL)
	require.Equal(t, 3*time.Second, c.API.Timeout)
	require.Equal(t, "usf_sid", c.Session.CookieName, "defaults from the struct should survive")
}

func TestLoad_EnvOverride(t *testing.T) {
	p := writeConfig(t, `
api:
  baseurl: http://localhost:5001
`)
	t.Setenv("API_BASEURL", "http://api.internal:5001")

	var c testConfig
	require.NoError(t, config.Load(p, &c))
	require.Equal(t, "http://api.internal:5001", c.API.BaseURL)
}

func TestLoad_Validate(t *testing.T) {
	p := writeConfig(t, `
api:
  timeout: 3s
`)

	var c testConfig
	require.ErrorContains(t, config.Load(p, &c), "api.baseurl is required")
}

func TestLoad_MissingFile(t *testing.T) {
	var c testConfig
	require.Error(t, config.Load(filepath.Join(t.TempDir(), "nope.yaml"), &c))
}
