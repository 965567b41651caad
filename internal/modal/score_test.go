package modal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webscoutlabs/webscout/internal/model"
)

// loginModalSnapshot is a centered fixed-position login dialog the heuristic
// must flag.
func loginModalSnapshot() model.ElementSnapshot {
	return model.ElementSnapshot{
		Tag:            "div",
		Classes:        []string{"modal", "login-overlay"},
		Selector:       "div.modal",
		Position:       "fixed",
		ZIndex:         2000,
		X:              433,
		Y:              184,
		Width:          500,
		Height:         400,
		ViewportWidth:  1366,
		ViewportHeight: 768,
		Text:           "Log in to continue. Password required.",
		HasInput:       true,
		HasButton:      true,
		HasForm:        true,
		Visible:        true,
		New:            true,
	}
}

func TestScoreLoginModal(t *testing.T) {
	res := Score(loginModalSnapshot(), nil)
	assert.GreaterOrEqual(t, res.Score, DetectionThreshold)
	assert.NotEmpty(t, res.Reasons)
}

func TestScoreInvisibleIsZero(t *testing.T) {
	s := loginModalSnapshot()
	s.Visible = false
	res := Score(s, nil)
	assert.Zero(t, res.Score)
}

func TestScoreBackdropRejected(t *testing.T) {
	s := loginModalSnapshot()
	s.X, s.Y = 0, 0
	s.Width, s.Height = s.ViewportWidth, s.ViewportHeight
	res := Score(s, nil)
	assert.Zero(t, res.Score)
	require.NotEmpty(t, res.Reasons)
	assert.Contains(t, res.Reasons[0], "backdrop")
}

func TestScoreTinyElementRejected(t *testing.T) {
	s := loginModalSnapshot()
	s.Width, s.Height = 40, 20
	res := Score(s, nil)
	assert.Zero(t, res.Score)
}

func TestScoreTrainedShortCircuit(t *testing.T) {
	s := loginModalSnapshot()
	s.Visible = false // even an invisible snapshot matches a trained selector
	trained := []model.TrainedComponent{{ID: "cookie-banner-a1b2c3d4", Selector: "div.modal"}}
	res := Score(s, trained)
	assert.Equal(t, TrainedScore, res.Score)
	require.Len(t, res.Reasons, 1)
	assert.Equal(t, "trained:cookie-banner-a1b2c3d4", res.Reasons[0])
}

func TestScoreTrainedSelectorMismatchFallsThrough(t *testing.T) {
	s := loginModalSnapshot()
	trained := []model.TrainedComponent{{ID: "x", Selector: "#unrelated"}}
	res := Score(s, trained)
	assert.NotEqual(t, TrainedScore, res.Score)
	assert.GreaterOrEqual(t, res.Score, DetectionThreshold)
}

// Adding positive evidence must never lower the score.
func TestScoreMonotonicity(t *testing.T) {
	base := model.ElementSnapshot{
		Tag:            "div",
		Selector:       "div",
		Position:       "absolute",
		ZIndex:         150,
		X:              400,
		Y:              200,
		Width:          400,
		Height:         300,
		ViewportWidth:  1366,
		ViewportHeight: 768,
		Visible:        true,
	}
	prev := Score(base, nil).Score

	richer := base
	richer.Text = "please confirm your password"
	s := Score(richer, nil).Score
	assert.GreaterOrEqual(t, s, prev)
	prev = s

	richer.Classes = []string{"popup"}
	s = Score(richer, nil).Score
	assert.GreaterOrEqual(t, s, prev)
	prev = s

	richer.Classes = []string{"popup", "modal"} // stronger hint replaces weaker
	s = Score(richer, nil).Score
	assert.GreaterOrEqual(t, s, prev)
	prev = s

	richer.HasForm = true
	richer.HasInput = true
	richer.HasButton = true
	s = Score(richer, nil).Score
	assert.GreaterOrEqual(t, s, prev)
	prev = s

	richer.New = true
	s = Score(richer, nil).Score
	assert.GreaterOrEqual(t, s, prev)
}

func TestScoreClassHintUsesStrongestOnly(t *testing.T) {
	s := loginModalSnapshot()
	s.Text = ""
	s.HasForm, s.HasInput, s.HasButton, s.New = false, false, false, false

	single := s
	single.Classes = []string{"modal"}
	multi := s
	multi.Classes = []string{"modal", "overlay", "popup"}

	assert.Equal(t, Score(single, nil).Score, Score(multi, nil).Score)
}
