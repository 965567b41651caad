package browser

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// Humanized pointer/keyboard primitives. Pointer paths follow an eased curve
// with jitter, typing uses a randomized per-character delay and occasionally
// mistypes a character and corrects it.

const (
	moveSteps     = 18
	typoChance    = 0.04
	minKeyDelay   = 40 * time.Millisecond
	keyDelaySpan  = 90 // extra ms, randomized
	postMoveDelay = 120 * time.Millisecond
)

// Click moves the pointer to the element along a curved path, then clicks.
func (p *rodPage) Click(selector string) error {
	el, x, y, err := p.locate(selector)
	if err != nil {
		return err
	}
	if err := p.moveCursor(x, y); err != nil {
		return err
	}
	time.Sleep(postMoveDelay + time.Duration(rand.Intn(180))*time.Millisecond)
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// Hover moves the pointer onto the element and triggers its hover state.
func (p *rodPage) Hover(selector string) error {
	el, x, y, err := p.locate(selector)
	if err != nil {
		return err
	}
	if err := p.moveCursor(x, y); err != nil {
		return err
	}
	return el.Hover()
}

// Type focuses the element and types text character by character.
func (p *rodPage) Type(selector, text string) error {
	if err := p.Click(selector); err != nil {
		return err
	}
	for _, r := range text {
		if rand.Float64() < typoChance {
			if wrong := neighborKey(r); wrong != 0 {
				if err := p.page.Keyboard.Type(input.Key(wrong)); err != nil {
					return err
				}
				keyPause()
				if err := p.page.Keyboard.Type(input.Backspace); err != nil {
					return err
				}
				keyPause()
			}
		}
		if err := p.page.Keyboard.Type(input.Key(r)); err != nil {
			return err
		}
		keyPause()
	}
	return nil
}

// Scroll wheels the page vertically in small randomized increments.
func (p *rodPage) Scroll(dy float64) error {
	steps := 6 + rand.Intn(5)
	per := dy / float64(steps)
	for i := 0; i < steps; i++ {
		if err := p.page.Mouse.Scroll(0, per+float64(rand.Intn(9)-4), 1); err != nil {
			return err
		}
		time.Sleep(time.Duration(30+rand.Intn(60)) * time.Millisecond)
	}
	return nil
}

// locate resolves the element and its center point.
func (p *rodPage) locate(selector string) (*rod.Element, float64, float64, error) {
	el, err := p.page.Timeout(3 * time.Second).Element(selector)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("element %q: %w", selector, err)
	}
	shape, err := el.Shape()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("element shape %q: %w", selector, err)
	}
	if len(shape.Quads) == 0 {
		return nil, 0, 0, fmt.Errorf("element %q has no shape", selector)
	}
	q := shape.Quads[0]
	x := (q[0] + q[2] + q[4] + q[6]) / 4
	y := (q[1] + q[3] + q[5] + q[7]) / 4
	return el, x, y, nil
}

// moveCursor walks the mouse to (x, y) along an eased curve with per-step
// jitter so the path never repeats exactly.
func (p *rodPage) moveCursor(x, y float64) error {
	// Start from a plausible previous position rather than (0,0).
	fromX := x - 200 - rand.Float64()*300
	fromY := y - 100 - rand.Float64()*200
	if fromX < 0 {
		fromX = rand.Float64() * 50
	}
	if fromY < 0 {
		fromY = rand.Float64() * 50
	}
	for i := 1; i <= moveSteps; i++ {
		t := easeInOutQuad(float64(i) / float64(moveSteps))
		jx := (rand.Float64() - 0.5) * 4
		jy := (rand.Float64() - 0.5) * 4
		// Slight arc perpendicular to the path.
		arc := math.Sin(t*math.Pi) * 12
		px := fromX + t*(x-fromX) + jx
		py := fromY + t*(y-fromY) + jy - arc
		if i == moveSteps {
			px, py = x, y
		}
		if err := p.page.Mouse.MoveTo(proto.Point{X: px, Y: py}); err != nil {
			return err
		}
		time.Sleep(time.Duration(4+rand.Intn(10)) * time.Millisecond)
	}
	return nil
}

func keyPause() {
	time.Sleep(minKeyDelay + time.Duration(rand.Intn(keyDelaySpan))*time.Millisecond)
}

// easeInOutQuad provides smooth acceleration and deceleration.
func easeInOutQuad(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return 1 - (-2*t+2)*(-2*t+2)/2
}

// neighborKey returns a plausible adjacent key for a lowercase letter, or 0.
func neighborKey(r rune) rune {
	neighbors := map[rune]string{
		'a': "sq", 'b': "vn", 'c': "xv", 'd': "sf", 'e': "wr", 'f': "dg",
		'g': "fh", 'h': "gj", 'i': "uo", 'j': "hk", 'k': "jl", 'l': "k",
		'm': "n", 'n': "bm", 'o': "ip", 'p': "o", 'q': "wa", 'r': "et",
		's': "ad", 't': "ry", 'u': "yi", 'v': "cb", 'w': "qe", 'x': "zc",
		'y': "tu", 'z': "x",
	}
	opts, ok := neighbors[r]
	if !ok || len(opts) == 0 {
		return 0
	}
	return rune(opts[rand.Intn(len(opts))])
}
