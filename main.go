// Package main is the entry point for the Tally treasury server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"

	"gitlab.com/sgtreasury/tally/internal/api"
	"gitlab.com/sgtreasury/tally/internal/config"
	"gitlab.com/sgtreasury/tally/internal/database"
	"gitlab.com/sgtreasury/tally/internal/gemini"
	"gitlab.com/sgtreasury/tally/internal/logger"
	"gitlab.com/sgtreasury/tally/internal/mailer"
	"gitlab.com/sgtreasury/tally/internal/notify"
	"gitlab.com/sgtreasury/tally/internal/repository"
	"gitlab.com/sgtreasury/tally/internal/service"
	"gitlab.com/sgtreasury/tally/internal/storage"
	"gitlab.com/sgtreasury/tally/internal/telemetry"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 60 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 120 * time.Second
)

func main() {
	app := &cli.App{
		Name:    "tally",
		Usage:   "student government reimbursement tracker",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "create or update the database schema",
				Action: migrate,
			},
			{
				Name:  "token",
				Usage: "sign a session token for local testing",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Usage: "user id (token subject)", Required: true},
					&cli.StringFlag{Name: "email", Usage: "user email"},
					&cli.DurationFlag{Name: "ttl", Value: time.Hour, Usage: "token lifetime"},
				},
				Action: signToken,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("Exited with error")
	}
}

func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.Configure(cfg.LogLevel, cfg.LogFormat)
	if err := logger.InitHashSalt(); err != nil {
		logger.Log.Warn().Err(err).Msg("Log pseudonymization uses a weak salt")
	}
	return cfg, nil
}

func migrate(c *cli.Context) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	pool, err := database.Connect(c.Context, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(c.Context, pool); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Log.Info().Msg("Database schema is up to date")
	return nil
}

func signToken(c *cli.Context) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	token, err := api.NewTokenVerifier(cfg.AuthJWTSecret, cfg.AuthJWTIssuer).Sign(service.Actor{
		UserID: c.String("user"),
		Email:  c.String("email"),
	}, c.Duration("ttl"))
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func serve(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := setup()
	if err != nil {
		return err
	}

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Settings{
		Exporter: cfg.OTelExporter,
		Endpoint: cfg.OTelEndpoint,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Log.Error().Err(err).Msg("Failed to flush telemetry")
		}
	}()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Log.Info().Msg("Database initialized successfully")

	svc, err := buildServices(ctx, cfg, pool)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	handler := api.NewRouter(svc, api.Options{
		Verifier:       api.NewTokenVerifier(cfg.AuthJWTSecret, cfg.AuthJWTIssuer),
		AllowedOrigins: cfg.AllowedOrigins,
		TrustProxy:     cfg.TrustProxy,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		MaxUploadBytes: cfg.MaxUploadBytes,
		StaticDir:      cfg.StaticDir,
		Registry:       registry,
		Health: func(r *http.Request) error {
			return pool.Ping(r.Context())
		},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	go service.RunInviteSweeper(ctx, svc.Invites, cfg.InviteSweepInterval)

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info().Str("addr", cfg.HTTPAddr).Str("version", version).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Log.Info().Msg("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Log.Info().Msg("Server stopped")
	return nil
}

// buildServices wires repositories and optional integrations. Integrations
// without configuration fall back to disabled or logging implementations.
func buildServices(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (api.Services, error) {
	users := repository.NewUserRepository(pool)
	clubs := repository.NewClubRepository(pool)
	memberships := repository.NewMembershipRepository(pool)
	invites := repository.NewInviteRepository(pool)
	sections := repository.NewBudgetSectionRepository(pool)
	items := repository.NewBudgetItemRepository(pool)
	reimbursements := repository.NewReimbursementRepository(pool)

	var files *storage.Service
	if cfg.StorageEndpoint != "" {
		store, err := storage.NewMinioStore(cfg.StorageEndpoint, cfg.StorageAccessKey, cfg.StorageSecretKey, cfg.StorageUseSSL)
		if err != nil {
			return api.Services{}, fmt.Errorf("failed to create storage client: %w", err)
		}
		if err := store.EnsureBucket(ctx, cfg.StorageBucket); err != nil {
			return api.Services{}, fmt.Errorf("failed to prepare bucket: %w", err)
		}
		files = storage.NewService(store, cfg.StorageBucket)
	} else {
		logger.Log.Warn().Msg("STORAGE_ENDPOINT not set, file uploads are disabled")
	}

	var sender mailer.Sender = mailer.LogSender{}
	if cfg.MailAPIKey != "" {
		sender = mailer.NewHTTPSender(cfg.MailAPIURL, cfg.MailAPIKey, cfg.MailFrom, cfg.MailTimeout)
	} else {
		logger.Log.Warn().Msg("MAIL_API_KEY not set, invite emails are only logged")
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.TelegramBotToken != "" && cfg.TelegramTreasuryChatID != 0 {
		tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramTreasuryChatID)
		if err != nil {
			return api.Services{}, fmt.Errorf("failed to create telegram notifier: %w", err)
		}
		notifier = tg
	}

	var scanner service.ReceiptScanner
	if cfg.GeminiAPIKey != "" {
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return api.Services{}, fmt.Errorf("failed to create gemini client: %w", err)
		}
		scanner = client
	} else {
		logger.Log.Info().Msg("GEMINI_API_KEY not set, receipt scanning is disabled")
	}

	return api.Services{
		Users:          service.NewUserService(users),
		Clubs:          service.NewClubService(clubs),
		Memberships:    service.NewMembershipService(memberships, clubs),
		Invites:        service.NewInviteService(invites, clubs, memberships, sender, cfg.PublicBaseURL),
		Budget:         service.NewBudgetService(sections, items, clubs),
		Reimbursements: service.NewReimbursementService(reimbursements, clubs, users, items, files, notifier),
		Receipts:       service.NewReceiptService(scanner),
	}, nil
}
