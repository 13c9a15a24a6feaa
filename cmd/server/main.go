package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/osanyin/herbal/internal/advisory"
	"github.com/osanyin/herbal/internal/api"
	"github.com/osanyin/herbal/internal/app"
	"github.com/osanyin/herbal/internal/app/maintenance"
	"github.com/osanyin/herbal/internal/cache"
	"github.com/osanyin/herbal/internal/database"
	"github.com/osanyin/herbal/internal/events"
	"github.com/osanyin/herbal/internal/herbs"
	"github.com/osanyin/herbal/internal/middleware"
	"github.com/osanyin/herbal/internal/services"
	"github.com/osanyin/herbal/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("osanyin-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	dbStore := cache.NewDatabaseStore(db)
	datasetCache, err := cache.NewDatasetCache(dbStore, cache.WithTTL(cfg.Dataset.CacheTTL))
	if err != nil {
		return fmt.Errorf("initialise dataset cache: %w", err)
	}

	fetcher, err := herbs.NewFetcher(cfg.Dataset.SourceURLs,
		herbs.WithRequestTimeout(cfg.Dataset.RequestTimeout),
		herbs.WithUserAgent(cfg.Dataset.UserAgent),
	)
	if err != nil {
		return fmt.Errorf("initialise dataset fetcher: %w", err)
	}

	var hub *events.Hub
	if cfg.Features.Events.Enabled {
		hub = events.NewHub()
	}

	repoOpts := []herbs.RepositoryOption{}
	if hub != nil {
		repoOpts = append(repoOpts, herbs.WithEventSink(hub))
	}
	repo, err := herbs.NewRepository(fetcher, datasetCache, repoOpts...)
	if err != nil {
		return fmt.Errorf("initialise dataset repository: %w", err)
	}

	favoriteOpts := []services.FavoriteOption{}
	if hub != nil {
		favoriteOpts = append(favoriteOpts, services.WithEventSink(hub))
	}
	favoriteSvc, err := services.NewFavoriteService(db, favoriteOpts...)
	if err != nil {
		return fmt.Errorf("initialise favorite service: %w", err)
	}

	analyzer, err := buildAnalyzer(cfg, log)
	if err != nil {
		return err
	}

	interactionSvc, err := services.NewInteractionService(db, analyzer)
	if err != nil {
		return fmt.Errorf("initialise interaction service: %w", err)
	}

	cleaner := maintenance.NewCleaner(dbStore, interactionSvc,
		maintenance.WithCheckRetentionDays(cfg.Advisory.RetentionDays))
	if err := cleaner.Start(); err != nil {
		return fmt.Errorf("start maintenance jobs: %w", err)
	}
	defer func() {
		// Stop's context is done once running jobs drain; the final
		// cleanup pass needs its own deadline after that.
		<-cleaner.Stop().Done()
		cleanupCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := cleaner.RunOnce(cleanupCtx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}()

	// Warm the dataset before accepting traffic; a failed warm-up is
	// tolerated since sources may recover while the server runs.
	if err := repo.Fetch(ctx); err != nil {
		log.Warn("initial dataset fetch failed", zap.Error(err))
	} else {
		log.Info("dataset loaded", zap.Int("records", len(repo.Records())))
	}

	router, err := api.NewRouter(api.Dependencies{
		DB:           db,
		Config:       cfg,
		Repository:   repo,
		Favorites:    favoriteSvc,
		Interactions: interactionSvc,
		Hub:          hub,
		RateStore:    middleware.NewDatabaseRateStore(dbStore),
	})
	if err != nil {
		return fmt.Errorf("build api router: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

// buildAnalyzer picks the advisory provider: OpenAI when a key is configured
// (or explicitly requested), the built-in table otherwise.
func buildAnalyzer(cfg *app.Config, log *zap.Logger) (advisory.Analyzer, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Advisory.Provider))
	hasKey := strings.TrimSpace(cfg.Advisory.APIKey) != ""

	switch {
	case provider == "openai", provider == "" && hasKey:
		analyzer, err := advisory.NewOpenAIAnalyzer(advisory.OpenAIConfig{
			APIKey:  cfg.Advisory.APIKey,
			Model:   cfg.Advisory.Model,
			BaseURL: cfg.Advisory.BaseURL,
			Timeout: cfg.Advisory.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("initialise openai analyzer: %w", err)
		}
		log.Info("interaction advisory enabled", zap.String("provider", "openai"), zap.String("model", cfg.Advisory.Model))
		return analyzer, nil
	default:
		log.Info("interaction advisory enabled", zap.String("provider", "fallback"))
		return advisory.NewFallbackAnalyzer(), nil
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = cfg.Database.Postgres.Password
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = cfg.Database.MySQL.Password
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("database handle unavailable on shutdown", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("database close failed", zap.Error(err))
	}
}
