package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/drumtrack/drumtrack/cmd/drumtrack/cli"
	"github.com/drumtrack/drumtrack/internal/app"
	"github.com/drumtrack/drumtrack/internal/auth"
	"github.com/drumtrack/drumtrack/internal/drums"
	"github.com/drumtrack/drumtrack/internal/masterdata/companies"
	"github.com/drumtrack/drumtrack/internal/observability"
	"github.com/drumtrack/drumtrack/internal/platform/cache"
	"github.com/drumtrack/drumtrack/internal/platform/db"
	"github.com/drumtrack/drumtrack/internal/rbac"
	"github.com/drumtrack/drumtrack/internal/returnperiod"
	"github.com/drumtrack/drumtrack/internal/returns"
	"github.com/drumtrack/drumtrack/internal/shared"
	"github.com/drumtrack/drumtrack/jobs"
)

const usage = `usage: drumtrack [command]

commands:
  serve                     run the HTTP API (default)
  jobs scan [-company NIP]  enqueue an overdue scan
  jobs queue [-json]        print default queue statistics
  hash-password             read a password from stdin and print its bcrypt hash
`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	args := os.Args[1:]
	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	switch command {
	case "serve":
		if err := serve(ctx); err != nil {
			slog.Default().Error("drumtrack", slog.Any("error", err))
			os.Exit(1)
		}
	case "jobs":
		os.Exit(runJobs(ctx, args))
	case "hash-password":
		os.Exit(cli.HashPasswordCommand(cli.HashPasswordOptions{Stdin: os.Stdin}))
	default:
		_, _ = fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func serve(ctx context.Context) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	audit := shared.NewAuditLogger(pool)

	companyService := companies.NewService(companies.NewRepository(pool))
	periodStore := returnperiod.NewPGStore(pool)
	resolver := returnperiod.NewResolver(periodStore, cfg.DefaultReturnPeriodDays)
	periodService := returnperiod.NewService(periodStore, resolver, companyService, audit, logger)
	drumRepo := drums.NewRepository(pool)
	drumService := drums.NewService(drumRepo, resolver, companyService, audit, logger)
	returnService := returns.NewService(returns.NewRepository(pool), drumRepo, resolver, audit, logger, returns.WithMetrics(metrics))

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL, auth.NewRedisRevocationStore(redisClient, ""))
	authMiddleware := auth.Middleware{Guard: tokens, Logger: logger}
	authHandler := auth.NewHandler(logger, auth.NewService(auth.NewRepository(pool), tokens), authMiddleware)

	inspector := asynq.NewInspector(redisOpts(cfg))
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		AuthMiddleware:      authMiddleware,
		RBACMiddleware:      rbac.Middleware{Logger: logger},
		AuthHandler:         authHandler,
		CompaniesHandler:    companies.NewHandler(logger, companyService),
		ReturnPeriodHandler: returnperiod.NewHandler(logger, periodService),
		DrumsHandler:        drums.NewHandler(logger, drumService),
		ReturnsHandler:      returns.NewHandler(logger, returnService),
		JobHandler:          jobs.NewHandler(inspector, logger),
		Metrics:             metrics,
		Database:            pool,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.Int("default_return_days", resolver.DefaultDays()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runJobs(ctx context.Context, args []string) int {
	if len(args) == 0 {
		_, _ = fmt.Fprint(os.Stderr, usage)
		return 2
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}

	switch args[0] {
	case "scan":
		fs := flag.NewFlagSet("jobs scan", flag.ContinueOnError)
		company := fs.String("company", "", "limit the scan to one company tax id")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		client, err := jobs.NewClient(redisOpts(cfg))
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "jobs scan: %v\n", err)
			return 1
		}
		defer func() { _ = client.Close() }()
		jobsCLI, err := cli.NewJobsCLI(client, nil)
		if err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return jobsCLI.ScanCommand(ctx, cli.ScanOptions{CompanyTaxID: *company})
	case "queue":
		fs := flag.NewFlagSet("jobs queue", flag.ContinueOnError)
		asJSON := fs.Bool("json", false, "print JSON")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		inspector := asynq.NewInspector(redisOpts(cfg))
		defer func() { _ = inspector.Close() }()
		jobsCLI, err := cli.NewJobsCLI(nil, inspector)
		if err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return jobsCLI.QueueCommand(cli.QueueOptions{JSONOutput: *asJSON})
	default:
		_, _ = fmt.Fprint(os.Stderr, usage)
		return 2
	}
}

func redisOpts(cfg *app.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
}
