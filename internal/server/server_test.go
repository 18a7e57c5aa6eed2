package server

import (
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usfbank/surveyweb/internal/runner"
)

func TestStart_ReturnsWhenHTTPFails(t *testing.T) {
	lis, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer lis.Close()

	var c Config
	c.HTTP.Port = int32(lis.Addr().(*net.TCPAddr).Port)

	s := newServer(c)
	s.service.runners = runner.NewRegistry(runner.RegistryConfig{})
	s.http = &http.Server{Addr: fmt.Sprintf(":%d", c.HTTP.Port), Handler: http.NotFoundHandler()}

	done := make(chan struct{})
	go func() {
		s.Start()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Start should return once the HTTP server fails to listen")
	}

	s.Shutdown()
}

func TestShutdown_StopsWorkersBeforeStart(t *testing.T) {
	s := newServer(Config{})
	s.service.runners = runner.NewRegistry(runner.RegistryConfig{})

	s.Shutdown()
	require.Error(t, s.ctx.Err())

	done := make(chan struct{})
	go func() {
		assert.NoError(t, s.service.runners.Run(s.ctx))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("the runner janitor should not outlive Shutdown")
	}
}
