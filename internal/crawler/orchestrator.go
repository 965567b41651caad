package crawler

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/webscoutlabs/webscout/internal/browser"
	"github.com/webscoutlabs/webscout/internal/frontier"
	"github.com/webscoutlabs/webscout/internal/model"
)

const (
	defaultNavigationTimeout = 30 * time.Second
	settleIdleTimeout        = 10 * time.Second
	retryBackoff             = 2 * time.Second
)

// Orchestrator drives one crawl or scrape run: it normalizes and filters
// candidate URLs, honors robots.txt and domain scope, fetches pages through
// the browser driver and schedules discovered children on the frontier.
type Orchestrator struct {
	cfg          model.CrawlConfig
	driver       browser.Driver
	front        *frontier.Frontier
	artifactsDir string
	log          zerolog.Logger

	mu       sync.Mutex
	visited  map[string]struct{}
	pages    []model.PageData
	links    []model.LinkRelationship
	errs     []model.CrawlError
	events   []model.CrawlEvent
	meta     model.CrawlMetadata
	current  string
	progress func(model.CrawlProgress)

	actions *model.ActionRing

	robots    *robotsGate
	startHost string
	stopped   atomic.Bool
	shotSeq   atomic.Int64
}

// New builds an orchestrator for one run. The driver must already be
// launched; a driver that cannot launch fails the run before this point.
func New(cfg model.CrawlConfig, driver browser.Driver, artifactsDir string, log zerolog.Logger) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavigationTimeout
	}
	if cfg.Mode == "" {
		cfg.Mode = model.ModeCrawl
	}
	return &Orchestrator{
		cfg:          cfg,
		driver:       driver,
		front:        frontier.New(cfg.Concurrency, cfg.RateLimit, time.Minute, log),
		artifactsDir: artifactsDir,
		log:          log.With().Str("component", "crawler").Logger(),
		visited:      make(map[string]struct{}),
		actions:      model.NewActionRing(),
	}
}

// SetProgressCallback registers the progress consumer. Snapshots are
// delivered after every scheduling decision and page completion.
func (o *Orchestrator) SetProgressCallback(fn func(model.CrawlProgress)) {
	o.mu.Lock()
	o.progress = fn
	o.mu.Unlock()
}

// Start runs the crawl to completion and returns the result document.
func (o *Orchestrator) Start(ctx context.Context) (*model.CrawlResult, error) {
	startNorm, err := Normalize(o.cfg.StartURL)
	if err != nil {
		return nil, fmt.Errorf("invalid start url: %w", err)
	}
	startURL, err := url.Parse(startNorm)
	if err != nil {
		return nil, fmt.Errorf("invalid start url: %w", err)
	}
	o.startHost = startURL.Hostname()
	o.robots = fetchRobots(ctx, startURL, o.robotsAgent(), o.log)

	o.mu.Lock()
	o.meta = model.CrawlMetadata{
		CrawlID:   uuid.NewString(),
		StartURL:  startNorm,
		StartTime: time.Now(),
		MaxDepth:  o.cfg.MaxDepth,
	}
	o.mu.Unlock()

	o.log.Info().Str("start_url", startNorm).Int("max_depth", o.cfg.MaxDepth).
		Str("mode", string(o.cfg.Mode)).Msg("crawl starting")

	o.front.Start(ctx)
	o.schedule(startNorm, 0, "", nil)
	o.front.OnIdle()
	o.front.Stop()

	o.mu.Lock()
	o.meta.EndTime = time.Now()
	result := &model.CrawlResult{
		Metadata: o.meta,
		Pages:    append([]model.PageData(nil), o.pages...),
		Links:    append([]model.LinkRelationship(nil), o.links...),
		Errors:   append([]model.CrawlError(nil), o.errs...),
		Events:   append([]model.CrawlEvent(nil), o.events...),
	}
	o.mu.Unlock()

	o.emitProgress(true)
	o.log.Info().Int("pages", len(result.Pages)).Int("errors", len(result.Errors)).
		Msg("crawl finished")
	return result, nil
}

// Stop requests cooperative shutdown: not-yet-started work is discarded,
// new starts are halted, and in-flight navigations run to their own timeout.
func (o *Orchestrator) Stop() {
	if o.stopped.Swap(true) {
		return
	}
	o.front.Clear()
	o.front.Pause()
	o.appendEvent("stopped", "", "stop requested")
	o.log.Info().Msg("crawl stop requested")
}

// robotsAgent returns the fixed user agent evaluated against robots.txt.
func (o *Orchestrator) robotsAgent() string {
	return "WebScout-Bot"
}

// schedule applies steps 1-4 of the per-URL algorithm: normalize, depth,
// scope and robots filtering, visited-set insertion, then enqueues the page
// task. path is the ordered parent chain through which the URL was reached.
func (o *Orchestrator) schedule(raw string, depth int, parent string, path []string) {
	if o.stopped.Load() {
		return
	}
	norm, err := Normalize(raw)
	if err != nil {
		o.log.Debug().Str("url", raw).Err(err).Msg("rejected: unparseable")
		return
	}
	if depth > o.cfg.MaxDepth {
		return
	}
	u, err := url.Parse(norm)
	if err != nil {
		return
	}
	if !InScope(u, o.startHost, o.cfg.DomainRestrictions) {
		o.log.Debug().Str("url", norm).Msg("rejected: out of scope")
		return
	}
	if !o.robots.allowed(u) {
		o.appendEvent("robots_blocked", norm, "disallowed by robots.txt")
		return
	}

	o.mu.Lock()
	if _, ok := o.visited[norm]; ok {
		o.mu.Unlock()
		return
	}
	o.visited[norm] = struct{}{}
	o.mu.Unlock()

	o.appendEvent("queued", norm, fmt.Sprintf("depth %d", depth))
	o.emitProgress(false)

	ownPath := append([]string(nil), path...)
	o.front.Enqueue(func(ctx context.Context) {
		o.processPage(ctx, norm, depth, parent, ownPath)
	})
}

// processPage is the frontier task body for one URL, including the retry
// policy: timeout-class failures get one retry after a short backoff.
func (o *Orchestrator) processPage(ctx context.Context, pageURL string, depth int, parent string, path []string) {
	if o.stopped.Load() {
		return
	}
	o.mu.Lock()
	o.current = pageURL
	o.mu.Unlock()

	retries := 0
	for {
		status, pd, discovered, err := o.visit(ctx, pageURL, depth, parent, path)
		if err == nil {
			o.recordSuccess(pd, discovered, depth, pageURL, path)
			return
		}
		etype := ClassifyError(err, status)
		if retries == 0 && retryable(etype) && !o.stopped.Load() {
			retries++
			o.appendEvent("retry", pageURL, err.Error())
			o.log.Warn().Str("url", pageURL).Err(err).Msg("timeout, retrying once")
			time.Sleep(retryBackoff)
			continue
		}
		o.recordFailure(pageURL, etype, err, retries)
		return
	}
}

// visit opens a page, navigates and extracts. The page is always closed,
// regardless of outcome.
func (o *Orchestrator) visit(ctx context.Context, pageURL string, depth int, parent string, path []string) (status int, pd model.PageData, discovered []DiscoveredLink, err error) {
	page, err := o.driver.NewPage(ctx)
	if err != nil {
		return 0, pd, nil, fmt.Errorf("open page: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			o.log.Debug().Err(cerr).Msg("page close failed")
		}
	}()

	if err := page.SetHeaders(o.cfg.CustomHeaders); err != nil {
		o.log.Debug().Err(err).Msg("set headers failed")
	}

	navCtx, cancel := context.WithTimeout(ctx, o.cfg.NavigationTimeout)
	defer cancel()
	status, err = page.Goto(navCtx, pageURL, o.cfg.NavigationTimeout)
	if err != nil {
		return status, pd, nil, err
	}
	if status >= 400 {
		return status, pd, nil, fmt.Errorf("navigation returned status %d", status)
	}
	o.recordAction("navigate", pageURL, "navigated")

	o.updatePreview(page)
	shot := o.captureWithBreadcrumb(page, pageURL, path)

	if depth == 0 && o.cfg.LoginCredentials != nil {
		o.tryLogin(ctx, page)
	}

	page.WaitSettled(ctx, settleIdleTimeout)
	if o.cfg.SettleDelay > 0 {
		time.Sleep(o.cfg.SettleDelay)
	}
	o.simulateReading(page)

	rendered, err := page.Content()
	if err != nil {
		return status, pd, nil, fmt.Errorf("read content: %w", err)
	}
	base, err := url.Parse(page.URL())
	if err != nil || base.Host == "" {
		base, _ = url.Parse(pageURL)
	}

	title, content, discovered, err := ExtractPage(base, rendered, o.cfg.Mode, o.cfg.FollowLinkTags)
	if err != nil {
		return status, pd, nil, fmt.Errorf("extract: %w", err)
	}

	pd = model.PageData{
		URL:           pageURL,
		Title:         title,
		StatusCode:    status,
		Depth:         depth,
		ParentURL:     parent,
		DiscoveryPath: append([]string(nil), path...),
		Content:       content,
		Technical: model.TechnicalData{
			HTMLVersion:   DetectHTMLVersion(rendered),
			ContentLength: len(rendered),
			Screenshot:    shot,
			LoadState:     "settled",
		},
		FetchedAt: time.Now(),
	}
	return status, pd, discovered, nil
}

// recordSuccess appends the page, its link relationships, and schedules the
// discovered children at depth+1 (one child only in sample mode).
func (o *Orchestrator) recordSuccess(pd model.PageData, discovered []DiscoveredLink, depth int, pageURL string, path []string) {
	now := time.Now()
	o.mu.Lock()
	o.pages = append(o.pages, pd)
	o.meta.TotalPages++
	o.meta.SuccessfulCrawls++
	for _, d := range discovered {
		o.links = append(o.links, model.LinkRelationship{
			From:        pageURL,
			To:          d.URL,
			Label:       d.Label,
			Selector:    d.Selector,
			ElementType: d.ElementType,
			Position:    d.Position,
			Timestamp:   now,
		})
	}
	o.mu.Unlock()

	o.appendEvent("page_complete", pageURL, fmt.Sprintf("title %q, %d links", pd.Title, len(discovered)))
	o.emitProgress(false)

	children := discovered
	if o.cfg.SampleMode && len(children) > 1 {
		children = children[:1]
	}
	childPath := append(append([]string(nil), path...), pageURL)
	for _, d := range children {
		o.schedule(d.URL, depth+1, pageURL, childPath)
	}
}

// recordFailure classifies and stores a terminal page failure; the failed
// page still counts toward total_pages.
func (o *Orchestrator) recordFailure(pageURL string, etype model.ErrorType, err error, retries int) {
	o.mu.Lock()
	o.errs = append(o.errs, model.CrawlError{
		URL:           pageURL,
		Type:          etype,
		Message:       err.Error(),
		RetryAttempts: retries,
		Timestamp:     time.Now(),
	})
	o.meta.TotalPages++
	o.meta.FailedCrawls++
	o.mu.Unlock()

	o.appendEvent("page_failed", pageURL, string(etype)+": "+err.Error())
	o.emitProgress(false)
	o.log.Warn().Str("url", pageURL).Str("type", string(etype)).Err(err).Msg("page failed")
}

// tryLogin runs the two-phase login heuristic; failures are logged, never
// fatal to the run.
func (o *Orchestrator) tryLogin(ctx context.Context, page browser.Page) {
	rendered, err := page.Content()
	if err != nil {
		o.log.Debug().Err(err).Msg("login scan: content unavailable")
		return
	}
	candidate := FindLoginLink(rendered)
	if candidate == nil {
		o.log.Debug().Msg("no login affordance found")
		return
	}
	o.recordAction("login_attempt", page.URL(), "clicking "+candidate.Selector)
	if err := page.Click(candidate.Selector); err != nil {
		o.log.Debug().Err(err).Str("selector", candidate.Selector).Msg("login click failed")
		return
	}
	page.WaitSettled(ctx, settleIdleTimeout)
	if err := PerformLogin(ctx, page, o.cfg.LoginCredentials, o.log); err != nil {
		o.log.Info().Err(err).Msg("login attempt unsuccessful")
		return
	}
	o.appendEvent("login", page.URL(), "login flow executed")
}

// simulateReading scrolls through part of the page and hovers a link, the
// way a human skims. Errors here never matter.
func (o *Orchestrator) simulateReading(page browser.Page) {
	_ = page.Scroll(400)
	time.Sleep(250 * time.Millisecond)
	_ = page.Scroll(-200)
	_ = page.Hover("a")
}

// updatePreview overwrites the single live-preview screenshot for this run.
func (o *Orchestrator) updatePreview(page browser.Page) {
	data, err := page.Screenshot(false)
	if err != nil || len(data) == 0 {
		return
	}
	o.writeShot("live_preview.png", data)
}

// breadcrumbJS renders a transient banner stamping the screenshot with URL
// and discovery context, and returns a cleanup expression.
func breadcrumbJS(pageURL string, path []string) string {
	crumb := pageURL
	if len(path) > 0 {
		crumb = fmt.Sprintf("%s (via %d hops)", pageURL, len(path))
	}
	return fmt.Sprintf(`() => {
		const b = document.createElement('div');
		b.id = '__ws_breadcrumb';
		b.textContent = %q + ' — ' + new Date().toISOString();
		b.style.cssText = 'position:fixed;top:0;left:0;right:0;z-index:2147483647;' +
			'background:rgba(20,20,30,.85);color:#fff;font:12px monospace;padding:6px 10px;';
		document.documentElement.appendChild(b);
		return true;
	}`, crumb)
}

const removeBreadcrumbJS = `() => {
	const b = document.getElementById('__ws_breadcrumb');
	if (b) b.remove();
	return true;
}`

// captureWithBreadcrumb takes the full-page screenshot overlaid with the
// breadcrumb banner. Returns the stored filename, or "" on failure.
func (o *Orchestrator) captureWithBreadcrumb(page browser.Page, pageURL string, path []string) string {
	if _, err := page.Eval(breadcrumbJS(pageURL, path)); err != nil {
		o.log.Debug().Err(err).Msg("breadcrumb inject failed")
	}
	data, err := page.Screenshot(true)
	if _, rerr := page.Eval(removeBreadcrumbJS); rerr != nil {
		o.log.Debug().Err(rerr).Msg("breadcrumb remove failed")
	}
	if err != nil || len(data) == 0 {
		return ""
	}
	name := fmt.Sprintf("page_%04d.png", o.shotSeq.Add(1))
	return o.writeShot(name, data)
}

// writeShot stores screenshot bytes under the artifacts directory.
func (o *Orchestrator) writeShot(name string, data []byte) string {
	if o.artifactsDir == "" {
		return ""
	}
	dir := filepath.Join(o.artifactsDir, "screenshots")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		o.log.Debug().Err(err).Msg("screenshot dir")
		return ""
	}
	full := filepath.Join(dir, name)
	if err := os.WriteFile(full, data, 0o644); err != nil {
		o.log.Debug().Err(err).Msg("screenshot write")
		return ""
	}
	return full
}

// appendEvent adds to the audit trail and the bounded action ring.
func (o *Orchestrator) appendEvent(typ, u, msg string) {
	o.mu.Lock()
	o.events = append(o.events, model.CrawlEvent{
		Type: typ, URL: u, Message: msg, Timestamp: time.Now(),
	})
	o.mu.Unlock()
	o.actions.Add(model.BrowserAction{Type: typ, URL: u, Message: msg})
}

// recordAction appends to the replayable interaction log only.
func (o *Orchestrator) recordAction(typ, u, msg string) {
	o.actions.Add(model.BrowserAction{Type: typ, URL: u, Message: msg})
}

// emitProgress delivers a snapshot to the registered callback, if any.
// After Stop, no further snapshots are emitted.
func (o *Orchestrator) emitProgress(done bool) {
	if o.stopped.Load() && !done {
		return
	}
	o.mu.Lock()
	fn := o.progress
	snap := model.CrawlProgress{
		CrawlID:       o.meta.CrawlID,
		CurrentURL:    o.current,
		Visited:       len(o.visited),
		Queued:        o.front.QueueLen(),
		Successful:    o.meta.SuccessfulCrawls,
		Failed:        o.meta.FailedCrawls,
		Done:          done,
		RecentActions: o.actions.Snapshot(),
	}
	o.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}
