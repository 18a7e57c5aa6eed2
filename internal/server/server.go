package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/usfbank/surveyweb/internal/event"
	"github.com/usfbank/surveyweb/internal/ledger"
	"github.com/usfbank/surveyweb/internal/runner"
	"github.com/usfbank/surveyweb/internal/session"
	"github.com/usfbank/surveyweb/internal/telemetry"
	"github.com/usfbank/surveyweb/internal/usfapi"
	"github.com/usfbank/surveyweb/internal/web"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	API struct {
		BaseURL string
		Timeout time.Duration
	}

	Session struct {
		Secret     string
		TTL        time.Duration
		CookieName string
		Secure     bool
	}

	Redis struct {
		Session struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	Postgres struct {
		// Ledger is optional, an empty Addr disables it.
		Ledger struct {
			Addr string
			User string
			Pass string
			Name string
		}
	}

	Runner struct {
		IdleTimeout time.Duration
	}
}

func (c *Config) Validate() error {
	switch {
	case c.API.BaseURL == "":
		return fmt.Errorf("api.baseurl is required")
	case c.Session.Secret == "":
		return fmt.Errorf("session.secret is required")
	case len(c.Redis.Session.Addrs) == 0:
		return fmt.Errorf("redis.session.addrs is required")
	}
	return nil
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis struct {
			session redis.UniversalClient
		}

		postgres struct {
			ledger *pgxpool.Pool
		}
	}

	service struct {
		api      *usfapi.Client
		sessions *session.Store
		tokens   *session.Tokens
		runners  *runner.Registry
		ledger   *ledger.Service
	}

	http *http.Server

	// ctx bounds the background workers, stop cancels it on shutdown.
	ctx  context.Context
	stop context.CancelFunc
}

func Init(c Config) (*Server, error) {
	s := newServer(c)

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	if err := s.initService(); err != nil {
		return nil, fmt.Errorf("server: init service: %w", err)
	}

	s.initAPI()
	return s, nil
}

func newServer(c Config) *Server {
	s := &Server{c: c}
	s.ctx, s.stop = context.WithCancel(context.Background())
	s.eb = event.NewBus()
	return s
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    s.c.Redis.Session.Addrs,
		Password: s.c.Redis.Session.Pass,
	})

	if err := telemetry.MonitorRedis(r, "session"); err != nil {
		return fmt.Errorf("session: %w", err)
	}

	if err := r.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("session: %w", err)
	}

	s.infra.redis.session = r
	return nil
}

func (s *Server) initPostgres() error {
	lc := s.c.Postgres.Ledger
	if lc.Addr == "" {
		slog.Info("server: score ledger disabled")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", lc.User, lc.Pass, lc.Addr, lc.Name))
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("ledger: %w", err)
	}

	s.infra.postgres.ledger = db
	return nil
}

func (s *Server) initService() error {
	telemetry.SubscribeEvents(s.eb)

	if db := s.infra.postgres.ledger; db != nil {
		s.service.ledger = ledger.NewService(ledger.Config{
			EventBus: s.eb,
			DB:       db,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.service.ledger.Migrate(ctx); err != nil {
			return fmt.Errorf("ledger: %w", err)
		}
	}

	s.service.api = usfapi.NewClient(usfapi.Config{
		BaseURL: s.c.API.BaseURL,
		Timeout: s.c.API.Timeout,
	})

	s.service.sessions = session.NewStore(session.Config{
		Redis:  s.infra.redis.session,
		Prefix: s.c.Redis.Session.Prefix,
		TTL:    s.c.Session.TTL,
	})
	s.service.tokens = session.NewTokens(s.c.Session.Secret)

	s.service.runners = runner.NewRegistry(runner.RegistryConfig{
		IdleTimeout: s.c.Runner.IdleTimeout,
		Publisher:   s.eb,
	})

	return nil
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery(), telemetry.AccessLog(), telemetry.SecureHeaders())

	wc := web.Config{
		Engine:       e,
		API:          s.service.api,
		Sessions:     s.service.sessions,
		Tokens:       s.service.tokens,
		Runners:      s.service.runners,
		EventBus:     s.eb,
		CookieName:   s.c.Session.CookieName,
		SecureCookie: s.c.Session.Secure,
	}
	// A nil *ledger.Service must not end up in the interface.
	if s.service.ledger != nil {
		wc.Ledger = s.service.ledger
	}
	web.New(wc)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

// Start serves HTTP and runs the runner janitor until Shutdown, or until one of them fails.
func (s *Server) Start() {
	eg, ctx := errgroup.WithContext(s.ctx)
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		return s.service.runners.Run(ctx)
	})

	if err := eg.Wait(); err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
		}
	}

	s.stop()
	s.eb.Stop()

	if r := s.infra.redis.session; r != nil {
		if err := r.Close(); err != nil {
			slog.ErrorContext(ctx, "server: close redis failed", "error", err)
		}
	}
	if db := s.infra.postgres.ledger; db != nil {
		db.Close()
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
