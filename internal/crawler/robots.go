package crawler

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/temoto/robotstxt"
)

// robotsGate holds the robots.txt ruleset fetched once per run against the
// start URL's host. A fetch or parse failure leaves data nil, which means
// crawling is allowed (fail-open).
type robotsGate struct {
	data  *robotstxt.RobotsData
	agent string
}

// fetchRobots retrieves and parses robots.txt for the start URL's host.
func fetchRobots(ctx context.Context, start *url.URL, agent string, log zerolog.Logger) *robotsGate {
	g := &robotsGate{agent: agent}

	robotsURL := start.Scheme + "://" + start.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return g
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("url", robotsURL).Msg("robots.txt fetch failed, crawling allowed")
		return g
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		log.Warn().Err(err).Str("url", robotsURL).Msg("robots.txt parse failed, crawling allowed")
		return g
	}
	g.data = data
	return g
}

// allowed evaluates the cached ruleset for the fixed user agent.
func (g *robotsGate) allowed(u *url.URL) bool {
	if g == nil || g.data == nil {
		return true
	}
	path := u.Path
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return g.data.TestAgent(path, g.agent)
}
