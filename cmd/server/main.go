package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/logview/backend/internal/api"
	"github.com/logview/backend/internal/config"
	"github.com/logview/backend/internal/docstore"
	"github.com/logview/backend/internal/ingest"
	"github.com/logview/backend/internal/logentries"
	"github.com/logview/backend/internal/logger"
	"github.com/logview/backend/internal/sources"
	"github.com/logview/backend/internal/storage"
	"github.com/rs/zerolog"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := os.Getenv("LOGVIEW_CONFIG")
	if configPath == "" {
		// Get the executable's directory for config resolution
		exePath, err := os.Executable()
		if err != nil {
			fmt.Printf("Failed to get executable path: %v\n", err)
			os.Exit(1)
		}
		configPath = filepath.Join(filepath.Dir(exePath), "LogView.config")
	}

	// Load XML configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Advanced.LogLevel, cfg.Advanced.LogFormat)
	log := logger.Get("server")

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatal().Err(err).Msg("failed to create directories")
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("failed to open store")
	}
	defer store.Close()

	provider, err := loadSources(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.Logs.SourcesFile).Msg("failed to load sources")
	}

	domain := logentries.NewDomain(store, provider, logentries.Options{
		PageSize:                cfg.Logs.PageSize,
		SummaryTopEntryKeys:     cfg.Logs.SummaryTopEntryKeys,
		MaxConcurrentHighlights: cfg.Logs.MaxConcurrentHighlights,
		MaxSummaryBuckets:       cfg.Logs.MaxSummaryBuckets,
	}, logger.Get("domain"))

	uploads, err := storage.NewLocalStore(cfg.GetUploadDir())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize upload storage")
	}

	ingestMgr := ingest.NewManager(store, nil, logger.Get("ingest"))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api.SetupMiddleware(e, api.MiddlewareOptions{
		EnableCORS:     cfg.Server.EnableCORS,
		AllowOrigins:   cfg.Server.AllowOrigins,
		BodyLimit:      cfg.Server.BodyLimit,
		RequestLogging: cfg.Advanced.EnableRequestLogging,
		ShowDetails:    logger.ParseLevel(cfg.Advanced.LogLevel) <= zerolog.DebugLevel,
		Logger:         logger.Get("http"),
	})
	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Domain:    domain,
		Sources:   provider,
		Store:     store,
		Ingest:    ingestMgr,
		Uploads:   uploads,
		ImportDir: cfg.GetImportDir(),
		Version:   Version,
	}))

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Log View Server                                 ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Storage:    %-45s║\n", cfg.Storage.Backend)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Data Dir:  %-46s║\n", cfg.Storage.DataDirectory)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
	ingestMgr.Wait()
}

func openStore(cfg *config.AppConfig) (docstore.Store, error) {
	if cfg.Storage.Backend == "memory" {
		return docstore.NewMemStore(), nil
	}
	return docstore.OpenDuckStore(docstore.DuckOptions{
		Path:                 cfg.GetDatabasePath(),
		MemoryLimit:          cfg.Storage.DuckDBMemoryLimit,
		Threads:              cfg.Storage.DuckDBThreads,
		MaxConcurrentQueries: cfg.Storage.MaxConcurrentReads,
	}, logger.Get("docstore"))
}

func loadSources(cfg *config.AppConfig) (*sources.Provider, error) {
	if cfg.Logs.SourcesFile == "" {
		return sources.NewDefaultProvider(), nil
	}
	return sources.LoadFile(cfg.Logs.SourcesFile)
}
