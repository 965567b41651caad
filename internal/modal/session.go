package modal

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/webscoutlabs/webscout/internal/browser"
	"github.com/webscoutlabs/webscout/internal/crawler"
	"github.com/webscoutlabs/webscout/internal/model"
	"github.com/webscoutlabs/webscout/internal/rulestore"
)

// LiveSession is one interactive recording session: a visible page with the
// in-page agent installed, a detector watching it, and the action stream
// relayed through the typed bridge.
type LiveSession struct {
	driver  browser.Driver
	store   *rulestore.Store
	trainer *Trainer
	sink    ScreenshotSink
	log     zerolog.Logger

	page     browser.Page
	detector *Detector
	domain   string

	mu       sync.Mutex
	session  *model.RecordingSession
	training bool
	lastURL  string
	stopped  bool
}

// NewLiveSession builds a session; Start must be called before any other
// method.
func NewLiveSession(driver browser.Driver, store *rulestore.Store, sink ScreenshotSink, log zerolog.Logger) *LiveSession {
	l := log.With().Str("component", "session").Logger()
	return &LiveSession{
		driver:  driver,
		store:   store,
		trainer: NewTrainer(store, log),
		sink:    sink,
		log:     l,
	}
}

// Start opens the page, installs the agent and bridge, navigates to the
// start URL and begins detection.
func (s *LiveSession) Start(ctx context.Context, startURL string) error {
	u, err := url.Parse(startURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid start url %q", startURL)
	}
	s.domain = u.Host

	page, err := s.driver.NewPage(ctx)
	if err != nil {
		return fmt.Errorf("open session page: %w", err)
	}
	s.page = page

	// The agent source is a function expression; as an init script it must
	// be self-invoked so it runs on every new document.
	if err := page.AddInitScript("(" + agentJS + ")()"); err != nil {
		_ = page.Close()
		return fmt.Errorf("install agent: %w", err)
	}
	if err := page.Expose(bridgeAction, s.onAction); err != nil {
		_ = page.Close()
		return fmt.Errorf("expose action bridge: %w", err)
	}
	if err := page.Expose(bridgeTrainSelect, s.onTrainSelect); err != nil {
		_ = page.Close()
		return fmt.Errorf("expose training bridge: %w", err)
	}

	if _, err := page.Goto(ctx, startURL, 30*time.Second); err != nil {
		_ = page.Close()
		return fmt.Errorf("open %s: %w", startURL, err)
	}

	rules, err := s.store.Load(s.domain)
	if err != nil {
		s.log.Warn().Err(err).Str("domain", s.domain).Msg("loading site rules failed, starting untrained")
		rules = &model.SiteRules{Domain: s.domain}
	}

	s.detector = NewDetector(page, s.sink, s.log)
	s.detector.SetRules(rules)
	s.detector.Start()

	s.mu.Lock()
	s.session = &model.RecordingSession{
		ID:        uuid.NewString(),
		StartURL:  startURL,
		StartTime: time.Now(),
	}
	s.lastURL = startURL
	s.mu.Unlock()

	s.log.Info().Str("url", startURL).Str("domain", s.domain).
		Int("trained", len(rules.TrainedComponents)).Msg("recording session started")
	return nil
}

// ID returns the session id, or "" before Start.
func (s *LiveSession) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return ""
	}
	return s.session.ID
}

// onAction receives click and key events from the page. While training mode
// is active interactions label elements instead of driving the site, so
// they are not recorded as actions.
func (s *LiveSession) onAction(payload string) {
	v := gjson.Parse(payload)
	if !v.IsObject() {
		return
	}
	cur := v.Get("url").String()

	s.mu.Lock()
	navigated := cur != "" && cur != s.lastURL && s.session != nil && !s.stopped && !s.training
	s.mu.Unlock()

	// Link discovery reads page content, so it runs outside the lock.
	var links []string
	if navigated {
		links = s.collectLinks()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil || s.stopped || s.training {
		return
	}

	action := model.RecordedAction{
		Type:      v.Get("type").String(),
		Selector:  v.Get("selector").String(),
		Text:      v.Get("text").String(),
		X:         v.Get("x").Float(),
		Y:         v.Get("y").Float(),
		Timestamp: time.Now(),
	}
	if cur != "" && cur != s.lastURL {
		action.FromURL = s.lastURL
		action.ToURL = cur
		action.DiscoveredLinks = links
		s.lastURL = cur
	}
	switch action.Type {
	case "click":
		action.Description = fmt.Sprintf("clicked %s", describeTarget(action.Selector, action.Text))
	case "key":
		action.Description = fmt.Sprintf("pressed %s", action.Text)
	default:
		action.Description = action.Type
	}
	s.session.Actions = append(s.session.Actions, action)
}

// onTrainSelect receives a labeled element, persists it and hot-reloads the
// detector with the new rules.
func (s *LiveSession) onTrainSelect(payload string) {
	sel, err := decodeSelection(payload)
	if err != nil {
		s.log.Warn().Err(err).Msg("bad training selection")
		return
	}

	name := sel.Snapshot.Text
	if len(name) > 40 {
		name = name[:40]
	}
	if name == "" {
		name = DeriveSelector(sel.Snapshot)
	}

	rules, tc, err := s.trainer.Train(s.domain, "modal", name, sel)
	if err != nil {
		s.log.Error().Err(err).Msg("training failed")
		return
	}
	s.detector.SetRules(rules)

	s.mu.Lock()
	if s.session != nil && !s.stopped {
		s.session.Actions = append(s.session.Actions, model.RecordedAction{
			Type:        "train",
			Selector:    tc.Selector,
			Text:        tc.Name,
			Description: fmt.Sprintf("trained component %s (%s)", tc.ID, tc.Selector),
			Training:    true,
			Timestamp:   time.Now(),
		})
	}
	s.mu.Unlock()
}

// EnableTraining switches the page into labeling mode.
func (s *LiveSession) EnableTraining() error {
	if _, err := s.page.Eval(`() => window.__wsEnableTraining && window.__wsEnableTraining()`); err != nil {
		return fmt.Errorf("enable training: %w", err)
	}
	s.mu.Lock()
	s.training = true
	s.mu.Unlock()
	s.log.Info().Msg("training mode on")
	return nil
}

// DisableTraining returns the page to recording mode.
func (s *LiveSession) DisableTraining() error {
	if _, err := s.page.Eval(`() => window.__wsDisableTraining && window.__wsDisableTraining()`); err != nil {
		return fmt.Errorf("disable training: %w", err)
	}
	s.mu.Lock()
	s.training = false
	s.mu.Unlock()
	s.log.Info().Msg("training mode off")
	return nil
}

// InTraining reports whether labeling mode is active.
func (s *LiveSession) InTraining() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.training
}

// ManualCapture takes a screenshot on demand and records it on the session.
// A non-empty selector scopes the capture to that element's bounding box,
// falling back to the viewport when the element cannot be shot.
func (s *LiveSession) ManualCapture(selector string) (string, error) {
	var data []byte
	var err error
	if selector != "" {
		data, err = s.page.ElementScreenshot(selector)
		if err != nil {
			s.log.Debug().Err(err).Str("selector", selector).Msg("element capture failed, using viewport")
		}
	}
	if data == nil {
		data, err = s.page.Screenshot(false)
		if err != nil {
			return "", fmt.Errorf("manual capture: %w", err)
		}
	}
	ref, err := s.sink("capture", data)
	if err != nil {
		return "", fmt.Errorf("store capture: %w", err)
	}
	s.mu.Lock()
	if s.session != nil && !s.stopped {
		s.session.Screenshots = append(s.session.Screenshots, ref)
		s.session.Actions = append(s.session.Actions, model.RecordedAction{
			Type:        "capture",
			Description: "manual screenshot",
			Selector:    selector,
			Screenshot:  ref,
			Timestamp:   time.Now(),
		})
	}
	s.mu.Unlock()
	return ref, nil
}

// Modals returns the modals detected so far.
func (s *LiveSession) Modals() []model.DetectedModal {
	if s.detector == nil {
		return nil
	}
	return s.detector.Modals()
}

// Stop ends detection, closes the page and returns the finished session
// document. It is idempotent.
func (s *LiveSession) Stop() *model.RecordingSession {
	s.mu.Lock()
	if s.stopped || s.session == nil {
		sess := s.session
		s.mu.Unlock()
		return sess
	}
	s.stopped = true
	s.mu.Unlock()

	s.detector.Stop()

	s.mu.Lock()
	now := time.Now()
	s.session.EndTime = &now
	s.session.Modals = s.detector.Modals()
	sess := s.session
	s.mu.Unlock()

	if err := s.page.Close(); err != nil {
		s.log.Debug().Err(err).Msg("closing session page")
	}
	s.log.Info().Str("session", sess.ID).Int("actions", len(sess.Actions)).
		Int("modals", len(sess.Modals)).Msg("recording session stopped")
	return sess
}

// collectLinks lists the outbound link targets on the current page so
// navigation actions carry what was discoverable from them.
func (s *LiveSession) collectLinks() []string {
	rendered, err := s.page.Content()
	if err != nil || rendered == "" {
		return nil
	}
	base, err := url.Parse(s.page.URL())
	if err != nil {
		return nil
	}
	_, _, discovered, err := crawler.ExtractPage(base, rendered, model.ModeCrawl, nil)
	if err != nil {
		return nil
	}
	links := make([]string, 0, len(discovered))
	for _, d := range discovered {
		links = append(links, d.URL)
	}
	return links
}

func describeTarget(selector, text string) string {
	if text != "" {
		return fmt.Sprintf("%q (%s)", text, selector)
	}
	return selector
}
