package model

// ElementSnapshot is a serializable view of one DOM element, collected by the
// in-page agent. Scoring operates on snapshots only, never on live handles.
type ElementSnapshot struct {
	Tag      string   `json:"tag"`
	ID       string   `json:"id,omitempty"`
	Classes  []string `json:"classes,omitempty"`
	Selector string   `json:"selector"`

	Position string `json:"position"` // computed style: static/fixed/absolute/...
	ZIndex   int    `json:"z_index"`

	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	ViewportWidth  float64 `json:"viewport_width"`
	ViewportHeight float64 `json:"viewport_height"`

	Text      string `json:"text,omitempty"` // bounded preview
	HasInput  bool   `json:"has_input"`
	HasButton bool   `json:"has_button"`
	HasForm   bool   `json:"has_form"`
	Visible   bool   `json:"visible"`

	// Signature identifies the element across scans; New marks elements not
	// present in the previous mutation snapshot.
	Signature string `json:"signature"`
	New       bool   `json:"new"`
}

// PrimaryClass returns the first class of the element, or "".
func (s ElementSnapshot) PrimaryClass() string {
	if len(s.Classes) == 0 {
		return ""
	}
	return s.Classes[0]
}
