//go:build integration

package integration

import (
	"context"
	"log"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/statuspulse/statuspulse/internal/app"
	"github.com/statuspulse/statuspulse/internal/config"
	"github.com/statuspulse/statuspulse/internal/testutil"
)

var (
	testServer *httptest.Server
	testApp    *app.App
	testDB     *pgxpool.Pool

	// Mailpit for E2E email testing
	mailpitContainer *testutil.MailpitContainer
	mailpitClient    *MailpitClient
)

func newTestClient() *testutil.Client {
	return testutil.NewClient(testServer.URL)
}

func TestMain(m *testing.M) {
	ctx := context.Background()

	pgContainer, err := testutil.NewPostgresContainer(ctx)
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	mailpitContainer, err = testutil.NewMailpitContainer(ctx)
	if err != nil {
		log.Fatalf("start mailpit: %v", err)
	}
	defer func() {
		if err := mailpitContainer.Terminate(ctx); err != nil {
			log.Printf("terminate mailpit: %v", err)
		}
	}()

	mailpitClient = NewMailpitClient(mailpitContainer.APIHost, mailpitContainer.APIPort)

	migrator, err := migrate.New(
		"file://../../migrations",
		pgContainer.ConnectionString,
	)
	if err != nil {
		log.Fatalf("create migrator: %v", err)
	}
	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatalf("run migrations: %v", err)
	}

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         "0",
			MetricsPort:  "0",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Database: config.DatabaseConfig{
			URL:             pgContainer.ConnectionString,
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 3,
			// Migrations already applied above.
			MigrationsPath: "",
		},
		Log: config.LogConfig{
			Level:  "error",
			Format: "text",
		},
		JWT: config.JWTConfig{
			SecretKey:           "test-secret-key",
			AccessTokenDuration: 15 * time.Minute,
		},
		// The periodic scheduler is disabled so probes run only when a
		// test triggers them; background sweeps would race the
		// assertions on check counts.
		Uptime: config.UptimeConfig{
			Enabled:             false,
			ProbeInterval:       time.Minute,
			ProbeTimeout:        5 * time.Second,
			MaxConcurrentProbes: 4,
			ProbesPerSecond:     100,
		},
		Notifications: config.NotificationsConfig{
			Enabled:      true,
			SMTPHost:     mailpitContainer.SMTPHost,
			SMTPPort:     mailpitContainer.SMTPPort,
			FromAddress:  "status@example.com",
			PollInterval: 200 * time.Millisecond,
			BatchSize:    50,
			MaxAttempts:  3,
		},
	}

	testApp, err = app.New(cfg)
	if err != nil {
		log.Fatalf("init app: %v", err)
	}

	testDB, err = pgxpool.New(ctx, pgContainer.ConnectionString)
	if err != nil {
		log.Fatalf("connect test db: %v", err)
	}

	testServer = httptest.NewServer(testApp.Router())

	code := m.Run()

	testServer.Close()
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := testApp.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown app: %v", err)
	}
	cancel()
	testDB.Close()

	os.Exit(code)
}
