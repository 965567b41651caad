package crawler

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/webscoutlabs/webscout/internal/model"
)

// DiscoveredLink is an outbound edge found during extraction, before
// normalization and scope filtering.
type DiscoveredLink struct {
	URL         string
	Label       string
	Selector    string
	ElementType string
	Position    int
}

// onclickURL pulls a destination out of inline navigation handlers.
var onclickURL = regexp.MustCompile(`(?:window\.open|location\.href\s*=|window\.location(?:\.href)?\s*=)\s*\(?['"]([^'"]+)['"]`)

const maxTextLength = 20000

// ExtractPage parses rendered HTML and returns the mode-dependent content
// plus every discovered outbound link. Crawl mode extracts only
// navigation-relevant fields; scrape mode extracts full text and images.
func ExtractPage(base *url.URL, rendered string, mode model.CrawlMode, followTags []string) (string, model.PageContent, []DiscoveredLink, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rendered))
	if err != nil {
		return "", model.PageContent{}, nil, err
	}

	title := squeeze(doc.Find("title").First().Text())
	content := model.PageContent{}
	var discovered []DiscoveredLink

	doc.Find("h1,h2,h3,h4,h5,h6").Each(func(_ int, s *goquery.Selection) {
		level := int(goquery.NodeName(s)[1] - '0')
		text := squeeze(s.Text())
		if text != "" {
			content.Headings = append(content.Headings, model.Heading{Level: level, Text: text})
		}
	})

	seen := make(map[string]struct{})
	pos := 0
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		abs := resolve(base, href)
		if abs == "" {
			return
		}
		label := squeeze(a.Text())
		sel := cssSelector(a, "a")
		content.Links = append(content.Links, model.LinkInfo{
			Href:     abs,
			Text:     label,
			Selector: sel,
			External: !sameHost(base, abs),
		})
		if !tagFollowed("a", followTags) {
			return
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		discovered = append(discovered, DiscoveredLink{
			URL: abs, Label: label, Selector: sel, ElementType: "a", Position: pos,
		})
		pos++
	})

	// Non-anchor elements that navigate via onclick or data attributes.
	doc.Find("[onclick],[data-href],[data-url]").Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		if tag == "a" {
			return
		}
		target, trigger := clickTarget(s)
		if target == "" {
			return
		}
		abs := resolve(base, target)
		if abs == "" {
			return
		}
		sel := cssSelector(s, tag)
		content.Clickables = append(content.Clickables, model.ClickableInfo{
			Selector: sel, Tag: tag, Text: squeeze(s.Text()), Target: abs, Trigger: trigger,
		})
		if !tagFollowed(tag, followTags) {
			return
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		discovered = append(discovered, DiscoveredLink{
			URL: abs, Label: squeeze(s.Text()), Selector: sel, ElementType: tag, Position: pos,
		})
		pos++
	})

	doc.Find("form").Each(func(i int, f *goquery.Selection) {
		info := model.FormInfo{Selector: cssSelector(f, "form")}
		info.Action, _ = f.Attr("action")
		info.Method, _ = f.Attr("method")
		f.Find("input,textarea,select").Each(func(_ int, in *goquery.Selection) {
			if name, ok := in.Attr("name"); ok && name != "" {
				info.Inputs = append(info.Inputs, name)
			}
			if t, _ := in.Attr("type"); strings.EqualFold(t, "password") {
				info.HasPassword = true
			}
		})
		content.Forms = append(content.Forms, info)
	})

	if mode == model.ModeScrape {
		text := squeeze(doc.Find("body").Text())
		if len(text) > maxTextLength {
			text = text[:maxTextLength]
		}
		content.Text = text

		doc.Find("img[src]").Each(func(_ int, img *goquery.Selection) {
			src, _ := img.Attr("src")
			abs := resolve(base, src)
			if abs == "" {
				return
			}
			alt, _ := img.Attr("alt")
			content.Images = append(content.Images, model.ImageInfo{Src: abs, Alt: alt})
		})
	}

	return title, content, discovered, nil
}

// DetectHTMLVersion checks the doctype of the document.
func DetectHTMLVersion(rendered string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rendered))
	if err != nil || len(doc.Nodes) == 0 {
		return "unknown"
	}
	for n := doc.Nodes[0].FirstChild; n != nil; n = n.NextSibling {
		if n.Type == html.DoctypeNode {
			d := strings.ToLower(strings.TrimSpace(n.Data))
			if strings.HasPrefix(d, "html") {
				return "HTML 5"
			}
			return d
		}
	}
	return "unknown"
}

// clickTarget extracts the destination of a non-anchor clickable.
func clickTarget(s *goquery.Selection) (string, string) {
	if v, ok := s.Attr("data-href"); ok && v != "" {
		return v, "data-href"
	}
	if v, ok := s.Attr("data-url"); ok && v != "" {
		return v, "data-url"
	}
	if v, ok := s.Attr("onclick"); ok {
		if m := onclickURL.FindStringSubmatch(v); m != nil {
			return m[1], "onclick"
		}
	}
	return "", ""
}

// cssSelector builds a stable selector for an extracted element.
func cssSelector(s *goquery.Selection, tag string) string {
	if id, ok := s.Attr("id"); ok && id != "" {
		return "#" + id
	}
	if class, ok := s.Attr("class"); ok {
		fields := strings.Fields(class)
		if len(fields) > 0 {
			return tag + "." + fields[0]
		}
	}
	if tag == "a" {
		if href, ok := s.Attr("href"); ok {
			return `a[href="` + href + `"]`
		}
	}
	return tag
}

// tagFollowed reports whether links from this element type are scheduled.
// An empty followTags list follows everything.
func tagFollowed(tag string, followTags []string) bool {
	if len(followTags) == 0 {
		return true
	}
	for _, t := range followTags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// resolve resolves a candidate href against the base URL, returning "" for
// non-navigational schemes.
func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") || strings.HasPrefix(href, "data:") {
		return ""
	}
	p, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(p)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}

// sameHost checks if the given raw URL has the same hostname as the base URL.
func sameHost(base *url.URL, raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && base.Hostname() == u.Hostname()
}

// squeeze trims and collapses internal whitespace runs.
func squeeze(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
