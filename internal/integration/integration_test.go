package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"math-challenge-service/internal/client"
	"math-challenge-service/internal/domain"
	"math-challenge-service/internal/flag"
	pgloader "math-challenge-service/internal/infra/postgres"
	pgmigrations "math-challenge-service/internal/infra/postgres/migrations"
	infraredis "math-challenge-service/internal/infra/redis"
	"math-challenge-service/internal/server"
)

func TestChallengeEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedProblemSet(t, ctx, pgURL, sampleSet())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	loader := pgloader.NewProblemSetLoader(pool)
	source := infraredis.NewProblemSetRepository(redisClient, loader, 5*time.Minute)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	issuer := flag.NewIssuer("integration-secret")
	listener, err := server.New(server.Config{
		Addr:           "127.0.0.1:0",
		ConnectTimeout: 30 * time.Second,
		ReadTimeout:    5 * time.Second,
		Welcome:        "Welcome!",
		SetID:          "standard",
		Source:         source,
		Issuer:         issuer,
		Logger:         logger,
	})
	if err != nil {
		t.Fatalf("new listener: %v", err)
	}
	if err := listener.Listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- listener.Serve(serveCtx) }()
	defer func() {
		cancel()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Errorf("listener did not shut down")
		}
	}()

	solver := &client.Solver{Addr: listener.Addr().String(), Name: "Rex", Timeout: 5 * time.Second, Logger: logger}
	got, err := solver.Run(ctx)
	if err != nil {
		t.Fatalf("solver run: %v", err)
	}
	if got != issuer.Issue("Rex") {
		t.Fatalf("flag mismatch: got %q want %q", got, issuer.Issue("Rex"))
	}

	// The problem set came through Postgres once and is now cached in Redis.
	if exists, err := redisClient.Exists(ctx, "problemset:standard").Result(); err != nil || exists != 1 {
		t.Fatalf("expected cached problem set in redis, exists=%d err=%v", exists, err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "challenge", "POSTGRES_PASSWORD": "challengepass", "POSTGRES_DB": "challengedb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://challenge:challengepass@%s:%s/challengedb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedProblemSet(t *testing.T, ctx context.Context, dsn string, set domain.ProblemSet) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal set: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO problem_sets (id, data) VALUES (? , ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, set.ID, string(data)); err != nil {
		t.Fatalf("insert set: %v", err)
	}
}

func sampleSet() domain.ProblemSet {
	return domain.ProblemSet{
		ID:         "standard",
		Operators:  []string{"+", "-", "*", "/"},
		MinOperand: 1,
		MaxOperand: 12,
		Count:      3,
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
