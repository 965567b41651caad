package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/webscoutlabs/webscout/internal/browser"
	"github.com/webscoutlabs/webscout/internal/modal"
	"github.com/webscoutlabs/webscout/internal/model"
	"github.com/webscoutlabs/webscout/internal/repository"
	"github.com/webscoutlabs/webscout/internal/rulestore"
)

// SessionService owns live recording sessions and the trained site rules.
type SessionService interface {
	StartLiveSession(ctx context.Context, startURL string) (string, error)
	StopLiveSession(sessionID string) (*model.RecordingSession, error)
	EnableTrainingMode(sessionID string) error
	DisableTrainingMode(sessionID string) error
	IsInTrainingMode(sessionID string) (bool, error)
	ManualCapture(sessionID, selector string) (string, error)
	SessionModals(sessionID string) ([]model.DetectedModal, error)
	ActiveSessions() []string
	GetSiteParsingRules(domain string) (*model.SiteRules, error)
	DeleteTrainedComponent(domain, componentID string) (bool, error)
}

type sessionService struct {
	driver       browser.Driver
	store        *rulestore.Store
	repo         repository.SessionRepository // nil = file artifacts only
	registry     *modal.Registry
	artifactsDir string
	log          zerolog.Logger
	shotSeq      atomic.Int64
}

// NewSessionService wires the recording surface. repo may be nil.
func NewSessionService(driver browser.Driver, store *rulestore.Store, repo repository.SessionRepository, artifactsDir string, log zerolog.Logger) SessionService {
	return &sessionService{
		driver:       driver,
		store:        store,
		repo:         repo,
		registry:     modal.NewRegistry(),
		artifactsDir: artifactsDir,
		log:          log.With().Str("component", "session-service").Logger(),
	}
}

func (s *sessionService) StartLiveSession(ctx context.Context, startURL string) (string, error) {
	sess := modal.NewLiveSession(s.driver, s.store, s.screenshotSink(), s.log)
	if err := sess.Start(ctx, startURL); err != nil {
		return "", err
	}
	s.registry.Put(sess)
	return sess.ID(), nil
}

// StopLiveSession finishes the session, removes it from the registry and
// persists the document. Persistence failures are logged; the document is
// still returned.
func (s *sessionService) StopLiveSession(sessionID string) (*model.RecordingSession, error) {
	sess, err := s.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}
	doc := sess.Stop()
	s.registry.Remove(sessionID)

	if path, werr := s.writeArtifact(doc); werr != nil {
		s.log.Error().Err(werr).Msg("writing session artifact failed")
	} else {
		s.log.Info().Str("path", path).Msg("session artifact written")
	}
	if s.repo != nil {
		if perr := s.repo.SaveSession(doc); perr != nil {
			s.log.Error().Err(perr).Msg("persisting session failed")
		}
	}
	return doc, nil
}

func (s *sessionService) EnableTrainingMode(sessionID string) error {
	sess, err := s.registry.Get(sessionID)
	if err != nil {
		return err
	}
	return sess.EnableTraining()
}

func (s *sessionService) DisableTrainingMode(sessionID string) error {
	sess, err := s.registry.Get(sessionID)
	if err != nil {
		return err
	}
	return sess.DisableTraining()
}

func (s *sessionService) IsInTrainingMode(sessionID string) (bool, error) {
	sess, err := s.registry.Get(sessionID)
	if err != nil {
		return false, err
	}
	return sess.InTraining(), nil
}

// ManualCapture shoots the viewport, or just the selector's bounding box
// when one is given.
func (s *sessionService) ManualCapture(sessionID, selector string) (string, error) {
	sess, err := s.registry.Get(sessionID)
	if err != nil {
		return "", err
	}
	return sess.ManualCapture(selector)
}

func (s *sessionService) SessionModals(sessionID string) ([]model.DetectedModal, error) {
	sess, err := s.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Modals(), nil
}

func (s *sessionService) ActiveSessions() []string {
	return s.registry.IDs()
}

func (s *sessionService) GetSiteParsingRules(domain string) (*model.SiteRules, error) {
	return s.store.Load(domain)
}

func (s *sessionService) DeleteTrainedComponent(domain, componentID string) (bool, error) {
	return s.store.Delete(domain, componentID)
}

// screenshotSink stores session captures under the artifacts directory.
func (s *sessionService) screenshotSink() modal.ScreenshotSink {
	return func(prefix string, data []byte) (string, error) {
		dir := filepath.Join(s.artifactsDir, "screenshots")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("screenshot dir: %w", err)
		}
		name := fmt.Sprintf("%s_%04d.png", prefix, s.shotSeq.Add(1))
		full := filepath.Join(dir, name)
		if err := os.WriteFile(full, data, 0o644); err != nil {
			return "", fmt.Errorf("write screenshot: %w", err)
		}
		return full, nil
	}
}

// writeArtifact stores the session document as pretty JSON.
func (s *sessionService) writeArtifact(doc *model.RecordingSession) (string, error) {
	if err := os.MkdirAll(s.artifactsDir, 0o755); err != nil {
		return "", fmt.Errorf("create artifacts dir: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	path := filepath.Join(s.artifactsDir, "session_"+doc.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write session: %w", err)
	}
	return path, nil
}
