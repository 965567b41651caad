package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/webscoutlabs/webscout/internal/browser"
	"github.com/webscoutlabs/webscout/internal/crawler"
	"github.com/webscoutlabs/webscout/internal/model"
	"github.com/webscoutlabs/webscout/internal/repository"
)

// CrawlService runs crawl and scrape jobs and persists their results.
type CrawlService interface {
	Start(ctx context.Context, cfg model.CrawlConfig) (*model.CrawlResult, error)
	Stop()
	SetProgressCallback(fn func(model.CrawlProgress))
}

type crawlService struct {
	driver       browser.Driver
	repo         repository.CrawlRepository // nil = file artifacts only
	artifactsDir string
	log          zerolog.Logger

	mu       sync.Mutex
	orc      *crawler.Orchestrator
	progress func(model.CrawlProgress)
}

// NewCrawlService wires the crawl surface. repo may be nil.
func NewCrawlService(driver browser.Driver, repo repository.CrawlRepository, artifactsDir string, log zerolog.Logger) CrawlService {
	return &crawlService{
		driver:       driver,
		repo:         repo,
		artifactsDir: artifactsDir,
		log:          log.With().Str("component", "crawl-service").Logger(),
	}
}

// SetProgressCallback registers the consumer for runs started afterwards; a
// run already in flight picks it up too.
func (s *crawlService) SetProgressCallback(fn func(model.CrawlProgress)) {
	s.mu.Lock()
	s.progress = fn
	if s.orc != nil {
		s.orc.SetProgressCallback(fn)
	}
	s.mu.Unlock()
}

// Start runs one crawl to completion. The result document is always written
// to the artifacts directory; database persistence is best-effort.
func (s *crawlService) Start(ctx context.Context, cfg model.CrawlConfig) (*model.CrawlResult, error) {
	// Record mode hands page control to a live session, not to the crawl
	// pipeline; routing it here would silently crawl instead.
	if cfg.Mode == model.ModeRecord {
		return nil, fmt.Errorf("record mode runs as a live session, not a crawl")
	}
	if cfg.TrainingMode {
		return nil, fmt.Errorf("training mode requires a live session")
	}

	s.mu.Lock()
	if s.orc != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("a crawl is already running")
	}
	orc := crawler.New(cfg, s.driver, s.artifactsDir, s.log)
	if s.progress != nil {
		orc.SetProgressCallback(s.progress)
	}
	s.orc = orc
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.orc = nil
		s.mu.Unlock()
	}()

	result, err := orc.Start(ctx)
	if err != nil {
		return nil, err
	}

	if path, werr := s.writeArtifact(result); werr != nil {
		s.log.Error().Err(werr).Msg("writing result artifact failed")
	} else {
		s.log.Info().Str("path", path).Msg("result artifact written")
	}

	if s.repo != nil {
		if perr := s.repo.SaveResult(result); perr != nil {
			s.log.Error().Err(perr).Msg("persisting result failed")
		}
	}
	return result, nil
}

// Stop requests cooperative shutdown of the running crawl, if any.
func (s *crawlService) Stop() {
	s.mu.Lock()
	orc := s.orc
	s.mu.Unlock()
	if orc != nil {
		orc.Stop()
	}
}

// writeArtifact stores the full result document as pretty JSON.
func (s *crawlService) writeArtifact(result *model.CrawlResult) (string, error) {
	if err := os.MkdirAll(s.artifactsDir, 0o755); err != nil {
		return "", fmt.Errorf("create artifacts dir: %w", err)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	path := filepath.Join(s.artifactsDir, "crawl_"+result.Metadata.CrawlID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write result: %w", err)
	}
	return path, nil
}
