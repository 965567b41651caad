package modal

import (
	"fmt"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/webscoutlabs/webscout/internal/browser"
	"github.com/webscoutlabs/webscout/internal/model"
)

const (
	fastPollInterval = 200 * time.Millisecond
	slowPollInterval = 2 * time.Second

	stabilityChecks   = 10
	stabilityInterval = 150 * time.Millisecond

	// Minimum gap between captures of the same logical trigger; a random
	// component keeps animation frames from aligning with the ticker.
	captureGapMin    = 1500 * time.Millisecond
	captureGapJitter = 1500 // extra ms
)

// ScreenshotSink stores screenshot bytes and returns a reference.
type ScreenshotSink func(prefix string, data []byte) (string, error)

// Detector watches one live page for modal-like overlays. A fast poll reacts
// to the in-page mutation flag; a slow fallback poll re-runs the same scan
// for mutations the observer missed.
type Detector struct {
	page browser.Page
	sink ScreenshotSink
	log  zerolog.Logger

	mu    sync.Mutex
	rules *model.SiteRules

	// scanMu serializes the fast and slow loops so deduplication never
	// races between them.
	scanMu      sync.Mutex
	seen        map[string]*model.DetectedModal
	order       []string
	lastCapture map[string]time.Time

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewDetector builds a detector for one page. sink must not be nil.
func NewDetector(page browser.Page, sink ScreenshotSink, log zerolog.Logger) *Detector {
	return &Detector{
		page:        page,
		sink:        sink,
		log:         log.With().Str("component", "modal-detector").Logger(),
		seen:        make(map[string]*model.DetectedModal),
		lastCapture: make(map[string]time.Time),
		stop:        make(chan struct{}),
	}
}

// SetRules swaps the trained rules applied to subsequent scans.
func (d *Detector) SetRules(rules *model.SiteRules) {
	d.mu.Lock()
	d.rules = rules
	d.mu.Unlock()
}

// Start launches both polling loops.
func (d *Detector) Start() {
	d.wg.Add(2)
	go d.loop(fastPollInterval, true)
	go d.loop(slowPollInterval, false)
}

// Stop tears down both timers; it must be called before the page closes so
// no poll fires against a dead page.
func (d *Detector) Stop() {
	select {
	case <-d.stop:
	default:
		close(d.stop)
	}
	d.wg.Wait()
}

// Modals returns the detected modals in detection order.
func (d *Detector) Modals() []model.DetectedModal {
	d.scanMu.Lock()
	defer d.scanMu.Unlock()
	out := make([]model.DetectedModal, 0, len(d.order))
	for _, key := range d.order {
		out = append(out, *d.seen[key])
	}
	return out
}

func (d *Detector) loop(interval time.Duration, mutationGated bool) {
	defer d.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			if mutationGated && !d.consumeMutated() {
				continue
			}
			d.scan()
		}
	}
}

// consumeMutated reads and clears the agent's mutation flag.
func (d *Detector) consumeMutated() bool {
	res, err := d.page.Eval(`() => window.__wsConsumeMutated ? window.__wsConsumeMutated() : false`)
	if err != nil {
		return false
	}
	return res == "true"
}

// candidate is one detection before dedup/capture.
type candidate struct {
	selector    string
	content     string
	width       float64
	height      float64
	score       int
	reasons     []string
	triggeredBy string
}

// scan evaluates the current DOM. Trained rules for the page path are
// applied directly with a fixed high-confidence score and bypass the
// heuristic; otherwise the highest-scoring snapshot above the threshold
// wins, first-found on ties. Any scoring or capture error is logged and
// skipped, never fatal to the session.
func (d *Detector) scan() {
	d.scanMu.Lock()
	defer d.scanMu.Unlock()

	path := pagePath(d.page.URL())

	d.mu.Lock()
	trained := d.rules.ComponentsForPath(path)
	d.mu.Unlock()

	for _, tc := range trained {
		st := d.elementState(tc.Selector)
		if !st.Found || st.Width <= 0 || st.Height <= 0 {
			continue
		}
		d.handle(path, candidate{
			selector:    tc.Selector,
			content:     st.Text,
			width:       st.Width,
			height:      st.Height,
			score:       TrainedScore,
			reasons:     []string{"trained:" + tc.ID},
			triggeredBy: "trained:" + tc.ID,
		})
	}

	payload, err := d.page.Eval(`() => window.__wsCollectSnapshots ? window.__wsCollectSnapshots() : []`)
	if err != nil {
		d.log.Debug().Err(err).Msg("snapshot collection failed")
		return
	}
	snaps := decodeSnapshots(payload)

	var best *model.ElementSnapshot
	bestScore := Result{}
	for i := range snaps {
		res := Score(snaps[i], nil)
		if res.Score >= DetectionThreshold && res.Score > bestScore.Score {
			best = &snaps[i]
			bestScore = res
		}
	}
	d.refreshVisibility(path)
	if best == nil {
		return
	}
	d.handle(path, candidate{
		selector:    best.Selector,
		content:     best.Text,
		width:       best.Width,
		height:      best.Height,
		score:       bestScore.Score,
		reasons:     bestScore.Reasons,
		triggeredBy: "heuristic",
	})
}

// handle deduplicates by (page path, selector, content prefix) and either
// records a new modal or tracks a state change on an existing one.
func (d *Detector) handle(path string, c candidate) {
	key := dedupKey(path, c.selector, c.content)
	if existing, ok := d.seen[key]; ok {
		existing.Visible = true
		if existing.Content != c.content {
			d.trackStateChange(key, existing, c)
		}
		return
	}

	st := d.waitStable(c.selector)
	if st.Found {
		c.content = st.Text
		c.width, c.height = st.Width, st.Height
	}

	shot := d.capture(c.selector)
	m := &model.DetectedModal{
		ID:          uuid.NewString(),
		TriggeredBy: c.triggeredBy,
		Selector:    c.selector,
		PagePath:    path,
		Content:     contentSnippet(c.content),
		Screenshot:  shot,
		Width:       c.width,
		Height:      c.height,
		Score:       c.score,
		Reasons:     c.reasons,
		Visible:     true,
		DetectedAt:  time.Now(),
	}
	d.seen[key] = m
	d.order = append(d.order, key)
	d.lastCapture[key] = time.Now()
	d.log.Info().Str("selector", c.selector).Int("score", c.score).
		Str("trigger", c.triggeredBy).Msg("modal detected")
}

// trackStateChange appends a content mutation, rate-limited per trigger so
// animation frames don't produce screenshot storms.
func (d *Detector) trackStateChange(key string, m *model.DetectedModal, c candidate) {
	last := d.lastCapture[key]
	gap := captureGapMin + time.Duration(rand.Intn(captureGapJitter))*time.Millisecond
	if time.Since(last) < gap {
		return
	}
	diff := firstDivergence(m.Content, c.content)
	shot := d.capture(c.selector)
	m.StateChanges = append(m.StateChanges, model.ModalStateChange{
		At:         time.Now(),
		Diff:       diff,
		Content:    contentSnippet(c.content),
		Screenshot: shot,
	})
	m.Content = contentSnippet(c.content)
	d.lastCapture[key] = time.Now()
	d.log.Debug().Str("selector", m.Selector).Msg("modal state change")
}

// refreshVisibility invalidates modals on this path whose element is gone.
func (d *Detector) refreshVisibility(path string) {
	for _, key := range d.order {
		m := d.seen[key]
		if m.PagePath != path || !m.Visible {
			continue
		}
		if st := d.elementState(m.Selector); !st.Found {
			m.Visible = false
		}
	}
}

// waitStable polls the element until its bounding box and content hold
// still across consecutive checks and no loading indicator is present.
func (d *Detector) waitStable(selector string) elementState {
	prev := d.elementState(selector)
	stable := 0
	for i := 0; i < stabilityChecks; i++ {
		time.Sleep(stabilityInterval)
		cur := d.elementState(selector)
		if cur.sameLayout(prev) && !cur.Loading {
			stable++
			if stable >= 2 {
				return cur
			}
		} else {
			stable = 0
		}
		prev = cur
	}
	return prev
}

// elementState probes one selector through the agent.
func (d *Detector) elementState(selector string) elementState {
	js := fmt.Sprintf(`() => window.__wsElementState ? window.__wsElementState(%q) : null`, selector)
	res, err := d.page.Eval(js)
	if err != nil {
		return elementState{}
	}
	return decodeElementState(res)
}

// capture screenshots the element, falling back to the viewport when the
// element cannot be located.
func (d *Detector) capture(selector string) string {
	data, err := d.page.ElementScreenshot(selector)
	if err != nil || len(data) == 0 {
		data, err = d.page.Screenshot(false)
		if err != nil || len(data) == 0 {
			d.log.Debug().Err(err).Str("selector", selector).Msg("modal capture failed")
			return ""
		}
	}
	ref, err := d.sink("modal", data)
	if err != nil {
		d.log.Debug().Err(err).Msg("modal screenshot store failed")
		return ""
	}
	return ref
}

// dedupKey scopes modal identity to the page path plus selector and a
// content prefix.
func dedupKey(path, selector, content string) string {
	return path + "|" + selector + "|" + prefix(content, 40)
}

// firstDivergence returns a window around the first point where old and new
// content differ.
func firstDivergence(oldC, newC string) string {
	i := 0
	for i < len(oldC) && i < len(newC) && oldC[i] == newC[i] {
		i++
	}
	if i == len(oldC) && i == len(newC) {
		return ""
	}
	return fmt.Sprintf("@%d: %q -> %q", i, window(oldC, i, 40), window(newC, i, 40))
}

func window(s string, at, span int) string {
	if at > len(s) {
		at = len(s)
	}
	end := at + span
	if end > len(s) {
		end = len(s)
	}
	return s[at:end]
}

func prefix(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func contentSnippet(s string) string {
	return prefix(s, 300)
}

// pagePath extracts the path component used to scope rules and dedup.
func pagePath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}
