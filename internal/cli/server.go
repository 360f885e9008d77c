package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/config"
	"timed-quiz-service/internal/infra/memory"
	"timed-quiz-service/internal/infra/postgres"
	infraredis "timed-quiz-service/internal/infra/redis"
	"timed-quiz-service/internal/seed"
	transport "timed-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the competition server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
		if cfg.Postgres.Seed {
			if err := runSeedWithConfig(ctx, cfg, logger); err != nil {
				return err
			}
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	sessionTTL := config.TTLDuration(cfg.Competition.SessionTTL, config.TTLDuration(cfg.Redis.TTL, 6*time.Hour))

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.CatalogLoader = memory.NewStaticCatalogLoader(seed.Catalog())
	if pool != nil {
		loader = postgres.NewCatalogLoader(pool)
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var catalog app.CatalogRepository
	if redisClient != nil {
		catalog = infraredis.NewCatalogRepository(redisClient, loader, catalogTTL)
	} else {
		catalog = memory.NewCatalogRepository(loader, catalogTTL)
	}

	// Postgres is the durable store when configured; Redis alone also persists across restarts.
	var store app.Store
	switch {
	case cfg.Postgres.URL != "":
		db := postgres.OpenDB(cfg.Postgres.URL)
		defer db.Close()
		store = postgres.NewStore(db)
	case redisClient != nil:
		store = infraredis.NewStore(redisClient)
	default:
		logger.Warn("no postgres or redis configured, results are kept in memory only")
		store = memory.NewStore()
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = infraredis.NewSessionStore(redisClient, sessionTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	bank := app.NewQuestionBank(catalog, cfg.Competition.Rounds, cfg.Competition.FallbackTimerMinutes)
	admin := app.NewAdminView(bank, store)
	scoreboard := app.NewScoreboard(admin, logger.Named("scoreboard"))
	ledger := app.NewSubmissionLedger(bank, store, scoreboard, logger.Named("ledger"))
	registry := app.NewTeamRegistry(store, logger.Named("registry"))
	budget := config.TTLDuration(cfg.Competition.Budget, app.DefaultCompetitionBudget)
	sessionService := app.NewSessionService(bank, ledger, sessions, budget, logger.Named("session"))

	checkOrigin := originChecker(cfg.Server.AllowedOrigins)
	tick := config.TTLDuration(cfg.Competition.Tick, time.Second)
	router := transport.NewRouter(transport.Handlers{
		API:            transport.NewAPIHandler(registry, bank, ledger, sessionService, admin, logger.Named("http")),
		Round:          transport.NewRoundWSHandler(sessionService, tick, checkOrigin, logger.Named("ws")),
		Admin:          transport.NewAdminWSHandler(scoreboard, checkOrigin, logger.Named("ws")),
		RequestTimeout: config.TTLDuration(cfg.Server.RequestTimeout, 15*time.Second),
	})

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
	}

	logger.Info("starting competition server",
		zap.String("addr", server.Addr),
		zap.Int("rounds", bank.Rounds()),
		zap.Duration("budget", budget),
	)
	return serve(ctx, server, logger)
}

// serve runs server until a signal arrives, ctx is done or the listener fails.
func serve(ctx context.Context, server *http.Server, logger *zap.Logger) error {
	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-serveErr:
		logger.Error("failed to start server", zap.Error(err))
		return fmt.Errorf("listen on %s: %w", server.Addr, err)
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
