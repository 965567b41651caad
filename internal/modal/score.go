package modal

import (
	"fmt"
	"strings"

	"github.com/webscoutlabs/webscout/internal/model"
)

// Modal scoring is a single pure function over element snapshots so it can
// be unit-tested outside a browser. Trained rules short-circuit the
// heuristic with a fixed high-confidence score.

const (
	// DetectionThreshold is the minimum score for a modal candidate.
	DetectionThreshold = 50
	// TrainedScore is assigned when a trained selector matches.
	TrainedScore = 95

	minModalWidth  = 100.0
	minModalHeight = 60.0
	backdropCover  = 0.95
)

// keywordWeights scores auth/action phrases found in the element text.
var keywordWeights = []struct {
	word   string
	weight int
}{
	{"password", 15},
	{"log in", 12},
	{"login", 12},
	{"sign in", 12},
	{"sign up", 10},
	{"subscribe", 10},
	{"confirm", 10},
	{"accept", 8},
	{"cookie", 8},
	{"save", 8},
	{"continue", 5},
	{"cancel", 5},
}

// classWeights scores modal-ish class-name substrings; only the strongest
// match counts.
var classWeights = []struct {
	substr string
	weight int
}{
	{"modal", 30},
	{"dialog", 25},
	{"popup", 25},
	{"lightbox", 20},
	{"overlay", 15},
	{"drawer", 10},
	{"toast", 10},
}

// Result is the outcome of scoring one snapshot.
type Result struct {
	Score   int
	Reasons []string
}

// Score evaluates one element snapshot against the heuristic, or against the
// trained rules for the page when one of them matches the snapshot selector.
// Trained matches return TrainedScore regardless of the heuristic value.
func Score(s model.ElementSnapshot, trained []model.TrainedComponent) Result {
	for _, tc := range trained {
		if tc.Selector != "" && tc.Selector == s.Selector {
			return Result{Score: TrainedScore, Reasons: []string{"trained:" + tc.ID}}
		}
	}
	return heuristic(s)
}

func heuristic(s model.ElementSnapshot) Result {
	if !s.Visible {
		return Result{}
	}

	score := 0
	var reasons []string
	add := func(points int, reason string) {
		score += points
		reasons = append(reasons, fmt.Sprintf("%s (+%d)", reason, points))
	}

	switch s.Position {
	case "fixed":
		add(30, "position fixed")
	case "absolute":
		add(20, "position absolute")
	}

	if s.ZIndex > 1000 {
		add(25, fmt.Sprintf("z-index %d", s.ZIndex))
	} else if s.ZIndex > 100 {
		add(15, fmt.Sprintf("z-index %d", s.ZIndex))
	}

	if s.ViewportWidth > 0 && s.ViewportHeight > 0 {
		cover := (s.Width * s.Height) / (s.ViewportWidth * s.ViewportHeight)
		if cover >= backdropCover {
			return Result{Reasons: []string{"rejected: covers viewport (backdrop)"}}
		}
		if s.Width < minModalWidth || s.Height < minModalHeight {
			return Result{Reasons: []string{"rejected: below minimum size"}}
		}
		wRatio := s.Width / s.ViewportWidth
		hRatio := s.Height / s.ViewportHeight
		if wRatio >= 0.15 && wRatio <= 0.9 && hRatio >= 0.1 && hRatio <= 0.9 {
			add(25, "modal-sized relative to viewport")
		}
	}

	text := strings.ToLower(s.Text)
	for _, kw := range keywordWeights {
		if strings.Contains(text, kw.word) {
			add(kw.weight, "keyword "+kw.word)
		}
	}

	if best, substr := bestClassMatch(s.Classes, s.ID); best > 0 {
		add(best, "class hint "+substr)
	}

	if s.HasForm {
		add(15, "contains form")
	}
	if s.HasInput {
		add(10, "contains input")
	}
	if s.HasButton {
		add(10, "contains button")
	}

	if s.New {
		add(20, "newly appeared")
	}

	return Result{Score: score, Reasons: reasons}
}

// bestClassMatch returns the strongest class-name hint across classes and id.
func bestClassMatch(classes []string, id string) (int, string) {
	best, bestSub := 0, ""
	check := func(v string) {
		v = strings.ToLower(v)
		for _, cw := range classWeights {
			if strings.Contains(v, cw.substr) && cw.weight > best {
				best, bestSub = cw.weight, cw.substr
			}
		}
	}
	for _, c := range classes {
		check(c)
	}
	check(id)
	return best, bestSub
}
