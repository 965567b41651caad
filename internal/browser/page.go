package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
	"github.com/ysmood/gson"
)

// rodPage implements Page over a rod tab.
type rodPage struct {
	page *rod.Page
	log  zerolog.Logger
}

// Goto navigates with a bounded timeout and reports the main document's
// status code. A navigation that loads without a document response event is
// treated as 200.
func (p *rodPage) Goto(ctx context.Context, url string, timeout time.Duration) (int, error) {
	pg := p.page.Context(ctx).Timeout(timeout)

	status := 0
	wait := pg.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type == proto.NetworkResourceTypeDocument {
			status = e.Response.Status
			return true
		}
		return false
	})

	if err := pg.Navigate(url); err != nil {
		return 0, fmt.Errorf("navigate %s: %w", url, err)
	}
	wait()
	if err := pg.WaitLoad(); err != nil {
		return status, fmt.Errorf("wait load %s: %w", url, err)
	}
	if status == 0 {
		status = 200
	}
	return status, nil
}

// URL returns the page's current URL.
func (p *rodPage) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Content returns the rendered HTML.
func (p *rodPage) Content() (string, error) {
	return p.page.HTML()
}

// Eval runs a function expression in the page and returns its result as
// JSON text.
func (p *rodPage) Eval(js string) (string, error) {
	res, err := p.page.Eval(js)
	if err != nil {
		return "", fmt.Errorf("eval: %w", err)
	}
	return res.Value.JSON("", ""), nil
}

// AddInitScript registers a script re-run on every navigation.
func (p *rodPage) AddInitScript(js string) error {
	_, err := p.page.EvalOnNewDocument(js)
	return err
}

// Expose publishes a host function callable from page scripts. The page side
// passes a single string payload; this is the typed bridge the in-page agent
// uses instead of console-message relaying.
func (p *rodPage) Expose(name string, fn func(payload string)) error {
	_, err := p.page.Expose(name, func(v gson.JSON) (interface{}, error) {
		fn(v.Str())
		return nil, nil
	})
	return err
}

// Screenshot captures the viewport or the full page as PNG.
func (p *rodPage) Screenshot(fullPage bool) ([]byte, error) {
	return p.page.Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

// ElementScreenshot captures a single element; the caller is expected to
// fall back to a viewport screenshot when the element cannot be located.
func (p *rodPage) ElementScreenshot(selector string) ([]byte, error) {
	el, err := p.page.Timeout(2 * time.Second).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element %q: %w", selector, err)
	}
	return el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
}

// WaitSettled waits for network idle with a hard timeout; persistent
// connections (websockets, polling) must not hang the crawl.
func (p *rodPage) WaitSettled(ctx context.Context, timeout time.Duration) {
	pg := p.page.Context(ctx).Timeout(timeout)
	pg.WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()
}

// SetHeaders applies custom headers to every request from this page.
func (p *rodPage) SetHeaders(h map[string]string) error {
	if len(h) == 0 {
		return nil
	}
	pairs := make([]string, 0, len(h)*2)
	for k, v := range h {
		pairs = append(pairs, k, v)
	}
	_, err := p.page.SetExtraHeaders(pairs)
	return err
}

// Close closes the tab.
func (p *rodPage) Close() error {
	return p.page.Close()
}
