package service_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webscoutlabs/webscout/internal/browser"
	"github.com/webscoutlabs/webscout/internal/logger"
	"github.com/webscoutlabs/webscout/internal/model"
	"github.com/webscoutlabs/webscout/internal/rulestore"
	"github.com/webscoutlabs/webscout/internal/service"
)

// stubDriver hands out stubPages over a canned HTML map.
type stubDriver struct {
	mu    sync.Mutex
	site  map[string]string
	pages []*stubPage
}

func (d *stubDriver) NewPage(ctx context.Context) (browser.Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := &stubPage{d: d, exposed: make(map[string]func(string))}
	d.pages = append(d.pages, p)
	return p, nil
}

func (d *stubDriver) Cleanup() error { return nil }

type stubPage struct {
	d            *stubDriver
	mu           sync.Mutex
	url          string
	exposed      map[string]func(string)
	elementShots []string
	closed       bool
}

func (p *stubPage) Goto(ctx context.Context, url string, timeout time.Duration) (int, error) {
	p.mu.Lock()
	p.url = url
	p.mu.Unlock()
	return 200, nil
}

func (p *stubPage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *stubPage) Content() (string, error) {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()
	return p.d.site[p.URL()], nil
}

// Eval answers the probes the session and detector issue against a page with
// no modal activity.
func (p *stubPage) Eval(js string) (string, error) {
	switch {
	case strings.Contains(js, "__wsConsumeMutated"):
		return "false", nil
	case strings.Contains(js, "__wsCollectSnapshots"):
		return "[]", nil
	case strings.Contains(js, "__wsElementState"):
		return "null", nil
	}
	return "true", nil
}

func (p *stubPage) AddInitScript(js string) error { return nil }

func (p *stubPage) Expose(name string, fn func(payload string)) error {
	p.mu.Lock()
	p.exposed[name] = fn
	p.mu.Unlock()
	return nil
}

// fire simulates the page calling an exposed bridge function.
func (p *stubPage) fire(name, payload string) {
	p.mu.Lock()
	fn := p.exposed[name]
	p.mu.Unlock()
	if fn != nil {
		fn(payload)
	}
}

func (p *stubPage) Screenshot(fullPage bool) ([]byte, error) { return []byte("png"), nil }

func (p *stubPage) ElementScreenshot(selector string) ([]byte, error) {
	p.mu.Lock()
	p.elementShots = append(p.elementShots, selector)
	p.mu.Unlock()
	return []byte("png"), nil
}
func (p *stubPage) WaitSettled(ctx context.Context, timeout time.Duration) {}
func (p *stubPage) SetHeaders(h map[string]string) error              { return nil }
func (p *stubPage) Click(selector string) error                       { return nil }
func (p *stubPage) Type(selector, text string) error                  { return nil }
func (p *stubPage) Hover(selector string) error                       { return nil }
func (p *stubPage) Scroll(dy float64) error                           { return nil }

func (p *stubPage) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func TestCrawlServiceWritesArtifact(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	driver := &stubDriver{site: map[string]string{
		srv.URL + "/": `<html><head><title>Home</title></head><body>done</body></html>`,
	}}
	dir := t.TempDir()
	svc := service.NewCrawlService(driver, nil, dir, logger.Nop())

	result, err := svc.Start(context.Background(), model.CrawlConfig{
		StartURL:           srv.URL,
		DomainRestrictions: model.DomainRestrictions{StayWithinDomain: true},
	})
	require.NoError(t, err)
	require.Len(t, result.Pages, 1)

	data, err := os.ReadFile(filepath.Join(dir, "crawl_"+result.Metadata.CrawlID+".json"))
	require.NoError(t, err)

	var stored model.CrawlResult
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, result.Metadata.CrawlID, stored.Metadata.CrawlID)
	assert.Equal(t, "Home", stored.Pages[0].Title)
}

func TestCrawlServiceRejectsConcurrentRuns(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	driver := &stubDriver{site: map[string]string{
		srv.URL + "/": `<html><body>slow</body></html>`,
	}}
	svc := service.NewCrawlService(driver, nil, t.TempDir(), logger.Nop())

	cfg := model.CrawlConfig{
		StartURL:           srv.URL,
		SettleDelay:        300 * time.Millisecond,
		DomainRestrictions: model.DomainRestrictions{StayWithinDomain: true},
	}

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		_, err := svc.Start(context.Background(), cfg)
		done <- err
	}()
	<-started
	time.Sleep(50 * time.Millisecond)

	_, err := svc.Start(context.Background(), cfg)
	assert.Error(t, err)
	require.NoError(t, <-done)
}

func TestCrawlServiceRejectsRecordConfigs(t *testing.T) {
	svc := service.NewCrawlService(&stubDriver{}, nil, t.TempDir(), logger.Nop())

	_, err := svc.Start(context.Background(), model.CrawlConfig{
		StartURL: "https://site.test", Mode: model.ModeRecord,
	})
	assert.ErrorContains(t, err, "live session")

	_, err = svc.Start(context.Background(), model.CrawlConfig{
		StartURL: "https://site.test", TrainingMode: true,
	})
	assert.ErrorContains(t, err, "live session")
}

func newSessionService(t *testing.T, driver *stubDriver) service.SessionService {
	t.Helper()
	store, err := rulestore.New(t.TempDir(), logger.Nop())
	require.NoError(t, err)
	return service.NewSessionService(driver, store, nil, t.TempDir(), logger.Nop())
}

func TestSessionLifecycle(t *testing.T) {
	driver := &stubDriver{site: map[string]string{
		"https://shop.test/checkout": `<html><body>
			<a href="/cart">Cart</a>
			<a href="https://shop.test/help">Help</a>
		</body></html>`,
	}}
	svc := newSessionService(t, driver)

	id, err := svc.StartLiveSession(context.Background(), "https://shop.test/checkout")
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Contains(t, svc.ActiveSessions(), id)

	// the bridge functions are exposed on the page
	require.Len(t, driver.pages, 1)
	page := driver.pages[0]
	page.mu.Lock()
	_, hasAction := page.exposed["wsAction"]
	_, hasTrain := page.exposed["wsTrainSelect"]
	page.mu.Unlock()
	assert.True(t, hasAction)
	assert.True(t, hasTrain)

	// a user click arrives over the bridge and is recorded
	page.fire("wsAction", `{"type":"click","selector":"a.nav","text":"Cart","x":10,"y":20,"url":"https://shop.test/cart"}`)

	// training mode suppresses action recording
	require.NoError(t, svc.EnableTrainingMode(id))
	training, err := svc.IsInTrainingMode(id)
	require.NoError(t, err)
	assert.True(t, training)
	page.fire("wsAction", `{"type":"click","selector":"div.consent","url":"https://shop.test/cart"}`)
	require.NoError(t, svc.DisableTrainingMode(id))

	ref, err := svc.ManualCapture(id, "")
	require.NoError(t, err)
	assert.FileExists(t, ref)

	// a selector scopes the capture to the element's bounding box
	ref, err = svc.ManualCapture(id, "div.modal")
	require.NoError(t, err)
	assert.FileExists(t, ref)
	page.mu.Lock()
	elementShots := append([]string(nil), page.elementShots...)
	page.mu.Unlock()
	assert.Equal(t, []string{"div.modal"}, elementShots)

	doc, err := svc.StopLiveSession(id)
	require.NoError(t, err)
	require.NotNil(t, doc.EndTime)
	assert.NotContains(t, svc.ActiveSessions(), id)
	assert.True(t, page.closed)

	var clicks, captures int
	for _, a := range doc.Actions {
		switch a.Type {
		case "click":
			clicks++
			// the navigation click carries the links discoverable from the
			// page it left
			assert.Equal(t, "https://shop.test/checkout", a.FromURL)
			assert.Equal(t, "https://shop.test/cart", a.ToURL)
			assert.ElementsMatch(t,
				[]string{"https://shop.test/cart", "https://shop.test/help"},
				a.DiscoveredLinks)
		case "capture":
			captures++
		}
	}
	assert.Equal(t, 1, clicks, "training-mode click must not be recorded")
	assert.Equal(t, 2, captures)

	_, err = svc.StopLiveSession(id)
	assert.Error(t, err, "stopped session is no longer addressable")
}

func TestSessionTrainingPersistsRule(t *testing.T) {
	driver := &stubDriver{site: map[string]string{}}
	store, err := rulestore.New(t.TempDir(), logger.Nop())
	require.NoError(t, err)
	svc := service.NewSessionService(driver, store, nil, t.TempDir(), logger.Nop())

	id, err := svc.StartLiveSession(context.Background(), "https://shop.test/checkout")
	require.NoError(t, err)
	page := driver.pages[0]

	page.fire("wsTrainSelect", `{
		"page_url": "https://shop.test/checkout",
		"snapshot": {"tag":"div","classes":["consent"],"selector":"div.consent",
			"position":"fixed","z_index":1200,"width":300,"height":200,
			"viewport_width":1366,"viewport_height":768,"visible":true},
		"ancestors": [], "siblings": [], "quick_score": 55
	}`)

	rules, err := svc.GetSiteParsingRules("shop.test")
	require.NoError(t, err)
	assert.Equal(t, 1, rules.Version)
	require.Len(t, rules.TrainedComponents, 1)
	tc := rules.TrainedComponents[0]
	assert.Equal(t, "div.consent", tc.Selector)
	assert.Equal(t, "/checkout", tc.PagePath)

	removed, err := svc.DeleteTrainedComponent("shop.test", tc.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	doc, err := svc.StopLiveSession(id)
	require.NoError(t, err)

	var trainActions int
	for _, a := range doc.Actions {
		if a.Training {
			trainActions++
		}
	}
	assert.Equal(t, 1, trainActions)
}
