package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"math-challenge-service/internal/config"
	"math-challenge-service/internal/domain"
	"math-challenge-service/internal/flag"
	"math-challenge-service/internal/infra/memory"
	pgloader "math-challenge-service/internal/infra/postgres"
	redisrepo "math-challenge-service/internal/infra/redis"
	"math-challenge-service/internal/monitor"
	"math-challenge-service/internal/server"
	transport "math-challenge-service/internal/transport/http"
)

const defaultWelcome = "Welcome to the math challenge! Say HELLO <name> to begin."

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the challenge server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "load config failed")
	}
	logger := configureLogger(cfg.Server.LogLevel)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return errors.Wrap(err, "run migrations failed")
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8888"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return errors.Wrap(err, "connect postgres failed")
		}
		defer pool.Close()
	}

	var loader memory.ProblemSetLoader = memory.NewStaticLoader(defaultProblemSets(cfg.Server.ProblemCount))
	if pool != nil {
		loader = pgloader.NewProblemSetLoader(pool)
	}

	setTTL := config.Duration(cfg.Problems.TTL, 10*time.Minute)
	var source server.ProblemSource
	if redisClient != nil {
		source = redisrepo.NewProblemSetRepository(redisClient, loader, setTTL)
	} else {
		source = memory.NewProblemSetRepository(loader, setTTL)
	}

	setID := cfg.Problems.Set
	if setID == "" {
		setID = "standard"
	}
	welcome := cfg.Server.Welcome
	if welcome == "" {
		welcome = defaultWelcome
	}

	var hub *monitor.Hub
	var monitorSrv *http.Server
	if cfg.Monitor.Addr != "" {
		hub = monitor.NewHub()
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("ok"))
		})
		mux.HandleFunc("/monitor", transport.NewMonitorHandler(hub, logger).ServeWS)
		monitorSrv = &http.Server{
			Addr:        cfg.Monitor.Addr,
			Handler:     mux,
			ReadTimeout: 15 * time.Second,
		}
		go func() {
			logger.WithField("addr", cfg.Monitor.Addr).Info("monitor endpoint up")
			if err := monitorSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Error("monitor server failed")
			}
		}()
	}

	listener, err := server.New(server.Config{
		Addr:           ":" + finalPort,
		ConnectTimeout: config.Duration(cfg.Server.ConnectTimeout, time.Minute),
		ReadTimeout:    config.Duration(cfg.Server.ReadTimeout, 30*time.Second),
		Welcome:        welcome,
		SetID:          setID,
		ProblemCount:   cfg.Server.ProblemCount,
		Source:         source,
		Issuer:         flag.NewIssuer(cfg.Server.FlagSecret),
		Events:         hub,
		Logger:         logger,
	})
	if err != nil {
		return errors.Wrap(err, "new listener failed")
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := listener.Serve(runCtx)

	if monitorSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = monitorSrv.Shutdown(shutdownCtx)
	}

	if errors.Is(serveErr, domain.ErrConnectTimeout) {
		// Whole-process lifetime policy: nobody ever connected, shut down
		// with a status a supervisor can tell apart from a crash.
		logger.Error("no client connected within the connect timeout, exiting")
		return serveErr
	}
	return errors.Wrap(serveErr, "serve failed")
}

// defaultProblemSets is the built-in content used when no Postgres backing
// store is configured; swap in the DB loader for externally managed sets.
func defaultProblemSets(count int) map[string]domain.ProblemSet {
	if count <= 0 {
		count = 3
	}
	return map[string]domain.ProblemSet{
		"standard": {
			ID:         "standard",
			Operators:  []string{"+", "-", "*", "/"},
			MinOperand: 1,
			MaxOperand: 12,
			Count:      count,
		},
		"hard": {
			ID:         "hard",
			Operators:  []string{"*", "/"},
			MinOperand: 10,
			MaxOperand: 99,
			Count:      count,
		},
	}
}
