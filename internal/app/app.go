package app

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/webscoutlabs/webscout/configs"
	"github.com/webscoutlabs/webscout/internal/browser"
	"github.com/webscoutlabs/webscout/internal/logger"
	"github.com/webscoutlabs/webscout/internal/repository"
	"github.com/webscoutlabs/webscout/internal/rulestore"
	"github.com/webscoutlabs/webscout/internal/service"
)

// hookable functions for dependency injection
var (
	LoadConfig = configs.Load
	NewDB      = repository.NewDB
	MigrateDB  = repository.Migrate
	NewDriver  = func(opts browser.Options, log zerolog.Logger) (browser.Driver, error) {
		return browser.NewRodDriver(opts, log)
	}
)

// App holds the wired application graph.
type App struct {
	Cfg      *configs.Config
	Log      zerolog.Logger
	Driver   browser.Driver
	Crawls   service.CrawlService
	Sessions service.SessionService
}

// New loads config and wires logger, optional database, browser driver and
// services. A browser launch failure is fatal here; everything downstream
// assumes a working driver.
func New() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("config load error: %w", err)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFile)

	var crawlRepo repository.CrawlRepository
	var sessionRepo repository.SessionRepository
	if cfg.DatabaseURL != "" {
		db, err := NewDB(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		if err := MigrateDB(db); err != nil {
			return nil, fmt.Errorf("migration error: %w", err)
		}
		crawlRepo = repository.NewCrawlRepo(db)
		sessionRepo = repository.NewSessionRepo(db)
	} else {
		log.Info().Msg("no database configured, artifacts go to disk only")
	}

	driver, err := NewDriver(browser.Options{
		Headless:       cfg.Headless,
		ViewportWidth:  cfg.ViewportWidth,
		ViewportHeight: cfg.ViewportHeight,
		UserAgent:      cfg.UserAgent,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("browser launch error: %w", err)
	}

	store, err := rulestore.New(cfg.RulesDir, log)
	if err != nil {
		_ = driver.Cleanup()
		return nil, fmt.Errorf("rule store error: %w", err)
	}

	return &App{
		Cfg:      cfg,
		Log:      log,
		Driver:   driver,
		Crawls:   service.NewCrawlService(driver, crawlRepo, cfg.ArtifactsDir, log),
		Sessions: service.NewSessionService(driver, store, sessionRepo, cfg.ArtifactsDir, log),
	}, nil
}

// Close releases the browser process.
func (a *App) Close() {
	if err := a.Driver.Cleanup(); err != nil {
		a.Log.Debug().Err(err).Msg("browser cleanup")
	}
}
