package browser

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

// Driver owns one browser process and hands out pages. The crawler and the
// modal engine depend on this boundary only, never on rod directly.
type Driver interface {
	NewPage(ctx context.Context) (Page, error)
	Cleanup() error
}

// Page is one browser tab. Eval returns the result serialized as JSON text
// so callers stay free of driver-specific value types.
type Page interface {
	Goto(ctx context.Context, url string, timeout time.Duration) (int, error)
	URL() string
	Content() (string, error)
	Eval(js string) (string, error)
	AddInitScript(js string) error
	Expose(name string, fn func(payload string)) error
	Screenshot(fullPage bool) ([]byte, error)
	ElementScreenshot(selector string) ([]byte, error)
	WaitSettled(ctx context.Context, timeout time.Duration)
	SetHeaders(h map[string]string) error

	// Humanized interaction primitives: randomized delays, curved pointer
	// paths, occasional typo-and-correct while typing.
	Click(selector string) error
	Type(selector, text string) error
	Hover(selector string) error
	Scroll(dy float64) error

	Close() error
}

// Options configures the rod-backed driver.
type Options struct {
	Headless       bool
	ViewportWidth  int
	ViewportHeight int
	UserAgent      string
}

// userAgents is the rotation pool used when no user agent is configured.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
}

// RodDriver drives a headless Chromium via go-rod.
type RodDriver struct {
	browser *rod.Browser
	opts    Options
	log     zerolog.Logger
}

// NewRodDriver launches the browser. A launch failure fails the run
// immediately; it is the one non-degradable error in the system.
func NewRodDriver(opts Options, log zerolog.Logger) (*RodDriver, error) {
	if opts.ViewportWidth <= 0 {
		opts.ViewportWidth = 1366
	}
	if opts.ViewportHeight <= 0 {
		opts.ViewportHeight = 768
	}

	path, _ := launcher.LookPath()
	u, err := launcher.New().Bin(path).Headless(opts.Headless).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	return &RodDriver{
		browser: b,
		opts:    opts,
		log:     log.With().Str("component", "browser").Logger(),
	}, nil
}

// NewPage opens a blank tab with a lightly randomized viewport and a user
// agent from the rotation pool.
func (d *RodDriver) NewPage(ctx context.Context) (Page, error) {
	p, err := d.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	p = p.Context(ctx)

	// Jitter the viewport so sessions don't share an exact fingerprint.
	w := d.opts.ViewportWidth + rand.Intn(48)
	h := d.opts.ViewportHeight + rand.Intn(32)
	if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width: w, Height: h, DeviceScaleFactor: 1,
	}); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	ua := d.opts.UserAgent
	if ua == "" {
		ua = userAgents[rand.Intn(len(userAgents))]
	}
	if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("set user agent: %w", err)
	}

	if err := (proto.NetworkEnable{}).Call(p); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("enable network events: %w", err)
	}

	return &rodPage{page: p, log: d.log}, nil
}

// Cleanup closes the browser process.
func (d *RodDriver) Cleanup() error {
	if d.browser == nil {
		return nil
	}
	return d.browser.Close()
}
