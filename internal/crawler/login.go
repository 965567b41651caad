package crawler

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/webscoutlabs/webscout/internal/browser"
	"github.com/webscoutlabs/webscout/internal/model"
)

// Login detection is a two-phase heuristic. Phase one finds the most
// login-like clickable on the page; phase two fills and submits the form on
// the page it leads to. The outcome check is best-effort and only logged.

var loginPhrases = []string{"log in", "login", "sign in", "signin", "my account", "member login"}

var loginWordRe = regexp.MustCompile(`(?i)\b(log\s?in|sign\s?in|account|auth)\b`)

var usernameSelectors = []string{
	`input[type="email"]`,
	`input[name="username"]`,
	`input[name="email"]`,
	`input[name*="user"]`,
	`input[id*="user"]`,
	`input[id*="email"]`,
	`input[autocomplete="username"]`,
}

var passwordSelectors = []string{
	`input[type="password"]`,
	`input[name="password"]`,
	`input[id*="pass"]`,
}

var submitSelectors = []string{
	`button[type="submit"]`,
	`input[type="submit"]`,
	`form button`,
	`button[id*="login"]`,
	`button[class*="login"]`,
}

var successMarkers = []string{"logout", "log out", "sign out", "dashboard", "my profile", "welcome back"}
var failureMarkers = []string{"invalid password", "incorrect password", "login failed", "invalid credentials", "try again"}

// LoginCandidate is the best-scoring login affordance found on a page.
type LoginCandidate struct {
	Selector string
	Href     string
	Score    int
}

// FindLoginLink runs phase one: score every clickable-like element against
// the login-phrase patterns across text, class, id, href and aria-label.
func FindLoginLink(rendered string) *LoginCandidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rendered))
	if err != nil {
		return nil
	}
	var best *LoginCandidate
	doc.Find("a,button,[role=button],[onclick]").Each(func(_ int, s *goquery.Selection) {
		score := loginScore(s)
		if score <= 0 {
			return
		}
		if best == nil || score > best.Score {
			href, _ := s.Attr("href")
			best = &LoginCandidate{
				Selector: cssSelector(s, goquery.NodeName(s)),
				Href:     href,
				Score:    score,
			}
		}
	})
	return best
}

// loginScore computes the composite phrase match for one element.
func loginScore(s *goquery.Selection) int {
	score := 0
	text := strings.ToLower(squeeze(s.Text()))
	class, _ := s.Attr("class")
	id, _ := s.Attr("id")
	href, _ := s.Attr("href")
	aria, _ := s.Attr("aria-label")

	// a slice, not a map keyed by value: class and id often carry the same
	// text and each attribute still counts
	fields := []struct {
		value  string
		weight int
	}{
		{text, 5}, // visible text weighs most
		{strings.ToLower(class), 2},
		{strings.ToLower(id), 3},
		{strings.ToLower(href), 3},
		{strings.ToLower(aria), 4},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		for _, phrase := range loginPhrases {
			if strings.Contains(f.value, phrase) {
				score += f.weight * 2
				break
			}
		}
		if loginWordRe.MatchString(f.value) {
			score += f.weight
		}
	}
	return score
}

// PerformLogin runs phase two against the current page: locate username,
// password and submit controls from the enumerated selector lists, fill them
// with humanized typing, submit, and inspect the resulting DOM.
func PerformLogin(ctx context.Context, page browser.Page, creds *model.LoginCredentials, log zerolog.Logger) error {
	if creds == nil {
		return fmt.Errorf("no credentials configured")
	}

	userSel, err := firstPresent(page, usernameSelectors)
	if err != nil {
		return fmt.Errorf("username field: %w", err)
	}
	passSel, err := firstPresent(page, passwordSelectors)
	if err != nil {
		return fmt.Errorf("password field: %w", err)
	}

	if err := page.Type(userSel, creds.Username); err != nil {
		return fmt.Errorf("fill username: %w", err)
	}
	if err := page.Type(passSel, creds.Password); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}

	submitSel, err := firstPresent(page, submitSelectors)
	if err != nil {
		return fmt.Errorf("submit control: %w", err)
	}
	if err := page.Click(submitSel); err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	page.WaitSettled(ctx, 10*time.Second)
	time.Sleep(1 * time.Second)

	rendered, err := page.Content()
	if err != nil {
		return fmt.Errorf("post-login content: %w", err)
	}
	switch CheckLoginOutcome(rendered) {
	case "success":
		log.Info().Msg("login appears successful")
	case "failure":
		log.Warn().Msg("login appears to have failed")
	default:
		log.Info().Msg("login outcome inconclusive")
	}
	return nil
}

// CheckLoginOutcome inspects rendered HTML for success or error indicators.
func CheckLoginOutcome(rendered string) string {
	lower := strings.ToLower(rendered)
	for _, m := range failureMarkers {
		if strings.Contains(lower, m) {
			return "failure"
		}
	}
	for _, m := range successMarkers {
		if strings.Contains(lower, m) {
			return "success"
		}
	}
	return "unknown"
}

// firstPresent returns the first selector from the list that matches an
// element on the page.
func firstPresent(page browser.Page, selectors []string) (string, error) {
	for _, sel := range selectors {
		js := fmt.Sprintf(`() => document.querySelector(%q) !== null`, sel)
		res, err := page.Eval(js)
		if err != nil {
			continue
		}
		if strings.TrimSpace(res) == "true" {
			return sel, nil
		}
	}
	return "", fmt.Errorf("no selector matched (%d tried)", len(selectors))
}
