package modal

import (
	"github.com/tidwall/gjson"

	"github.com/webscoutlabs/webscout/internal/model"
)

// decodeSnapshots parses the JSON array produced by __wsCollectSnapshots.
// Malformed entries are skipped rather than failing the scan.
func decodeSnapshots(payload string) []model.ElementSnapshot {
	parsed := gjson.Parse(payload)
	if !parsed.IsArray() {
		return nil
	}
	var out []model.ElementSnapshot
	parsed.ForEach(func(_, v gjson.Result) bool {
		out = append(out, decodeSnapshot(v))
		return true
	})
	return out
}

// decodeSnapshot maps one JSON object to an ElementSnapshot.
func decodeSnapshot(v gjson.Result) model.ElementSnapshot {
	var classes []string
	v.Get("classes").ForEach(func(_, c gjson.Result) bool {
		classes = append(classes, c.String())
		return true
	})
	return model.ElementSnapshot{
		Tag:            v.Get("tag").String(),
		ID:             v.Get("id").String(),
		Classes:        classes,
		Selector:       v.Get("selector").String(),
		Position:       v.Get("position").String(),
		ZIndex:         int(v.Get("z_index").Int()),
		X:              v.Get("x").Float(),
		Y:              v.Get("y").Float(),
		Width:          v.Get("width").Float(),
		Height:         v.Get("height").Float(),
		ViewportWidth:  v.Get("viewport_width").Float(),
		ViewportHeight: v.Get("viewport_height").Float(),
		Text:           v.Get("text").String(),
		HasInput:       v.Get("has_input").Bool(),
		HasButton:      v.Get("has_button").Bool(),
		HasForm:        v.Get("has_form").Bool(),
		Visible:        v.Get("visible").Bool(),
		Signature:      v.Get("signature").String(),
		New:            v.Get("new").Bool(),
	}
}

// elementState is the stability probe returned by __wsElementState.
type elementState struct {
	X, Y, Width, Height float64
	ContentLength       int
	Text                string
	Loading             bool
	Found               bool
}

// decodeElementState parses the __wsElementState result; a JSON null means
// the element is gone.
func decodeElementState(payload string) elementState {
	v := gjson.Parse(payload)
	if !v.IsObject() {
		return elementState{}
	}
	return elementState{
		X:             v.Get("x").Float(),
		Y:             v.Get("y").Float(),
		Width:         v.Get("width").Float(),
		Height:        v.Get("height").Float(),
		ContentLength: int(v.Get("content_length").Int()),
		Text:          v.Get("text").String(),
		Loading:       v.Get("loading").Bool(),
		Found:         true,
	}
}

func (s elementState) sameLayout(o elementState) bool {
	return s.Found && o.Found &&
		s.X == o.X && s.Y == o.Y && s.Width == o.Width && s.Height == o.Height &&
		s.ContentLength == o.ContentLength
}
