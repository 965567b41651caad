package crawler_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webscoutlabs/webscout/internal/crawler"
	"github.com/webscoutlabs/webscout/internal/model"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>  Welcome   Page </title></head>
<body>
  <h1>Main Heading</h1>
  <h2>  Sub   heading </h2>
  <a href="/about" class="nav-link">About Us</a>
  <a href="/about">About duplicate</a>
  <a href="https://other.example.net/ext">External</a>
  <a href="#top">Anchor only</a>
  <a href="javascript:void(0)">JS link</a>
  <a href="mailto:hi@site.test">Mail</a>
  <button onclick="window.location.href='/pricing'">See pricing</button>
  <div data-href="/docs" id="docs-tile">Docs</div>
  <form action="/login" method="post" id="login-form">
    <input name="email" type="email">
    <input name="password" type="password">
  </form>
  <img src="/logo.png" alt="logo">
  <p>Body text here.</p>
</body>
</html>`

func TestExtractPage(t *testing.T) {
	base, err := url.Parse("https://site.test/")
	require.NoError(t, err)

	t.Run("CrawlMode", func(t *testing.T) {
		title, content, discovered, err := crawler.ExtractPage(base, samplePage, model.ModeCrawl, nil)
		require.NoError(t, err)

		assert.Equal(t, "Welcome Page", title)

		require.Len(t, content.Headings, 2)
		assert.Equal(t, 1, content.Headings[0].Level)
		assert.Equal(t, "Sub heading", content.Headings[1].Text)

		// discovered: /about (deduped), external, /pricing via onclick, /docs via data-href
		urls := make(map[string]crawler.DiscoveredLink)
		for _, d := range discovered {
			urls[d.URL] = d
		}
		require.Len(t, urls, 4)
		assert.Contains(t, urls, "https://site.test/about")
		assert.Contains(t, urls, "https://other.example.net/ext")
		assert.Contains(t, urls, "https://site.test/pricing")
		assert.Contains(t, urls, "https://site.test/docs")

		about := urls["https://site.test/about"]
		assert.Equal(t, "About Us", about.Label)
		assert.Equal(t, "a.nav-link", about.Selector)
		assert.Equal(t, "a", about.ElementType)

		docs := urls["https://site.test/docs"]
		assert.Equal(t, "#docs-tile", docs.Selector)
		assert.Equal(t, "div", docs.ElementType)

		// positions are assigned in discovery order without gaps
		seen := make(map[int]bool)
		for _, d := range discovered {
			assert.False(t, seen[d.Position], "duplicate position %d", d.Position)
			seen[d.Position] = true
			assert.Less(t, d.Position, len(discovered))
		}

		// link info keeps everything, including external, flagged
		var external int
		for _, l := range content.Links {
			if l.External {
				external++
			}
		}
		assert.Equal(t, 1, external)

		require.Len(t, content.Clickables, 2)
		require.Len(t, content.Forms, 1)
		assert.True(t, content.Forms[0].HasPassword)
		assert.Equal(t, "#login-form", content.Forms[0].Selector)
		assert.ElementsMatch(t, []string{"email", "password"}, content.Forms[0].Inputs)

		// crawl mode leaves the heavy fields empty
		assert.Empty(t, content.Text)
		assert.Empty(t, content.Images)
	})

	t.Run("ScrapeModeAddsTextAndImages", func(t *testing.T) {
		_, content, _, err := crawler.ExtractPage(base, samplePage, model.ModeScrape, nil)
		require.NoError(t, err)

		assert.Contains(t, content.Text, "Body text here.")
		require.Len(t, content.Images, 1)
		assert.Equal(t, "https://site.test/logo.png", content.Images[0].Src)
		assert.Equal(t, "logo", content.Images[0].Alt)
	})

	t.Run("FollowTagsRestrictsDiscovery", func(t *testing.T) {
		_, content, discovered, err := crawler.ExtractPage(base, samplePage, model.ModeCrawl, []string{"a"})
		require.NoError(t, err)

		for _, d := range discovered {
			assert.Equal(t, "a", d.ElementType)
		}
		// clickables are still reported in content, just not followed
		assert.Len(t, content.Clickables, 2)
	})
}

func TestDetectHTMLVersion(t *testing.T) {
	assert.Equal(t, "HTML 5", crawler.DetectHTMLVersion(samplePage))
	assert.Equal(t, "unknown", crawler.DetectHTMLVersion("<div>no doctype</div>"))
}
