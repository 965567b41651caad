package model

import "time"

// RecordingSession is the document of one manual or record-mode session.
// It is mutated throughout the session and persisted on stop.
type RecordingSession struct {
	ID          string           `json:"id"`
	StartURL    string           `json:"start_url"`
	StartTime   time.Time        `json:"start_time"`
	EndTime     *time.Time       `json:"end_time,omitempty"`
	Actions     []RecordedAction `json:"actions"`
	Screenshots []string         `json:"screenshots"`
	Modals      []DetectedModal  `json:"modals"`
}

// RecordedAction is one user or system interaction captured during a session.
type RecordedAction struct {
	Type            string    `json:"type"`
	FromURL         string    `json:"from_url,omitempty"`
	ToURL           string    `json:"to_url,omitempty"`
	Description     string    `json:"description"`
	Screenshot      string    `json:"screenshot,omitempty"`
	Selector        string    `json:"selector,omitempty"`
	Text            string    `json:"text,omitempty"`
	X               float64   `json:"x,omitempty"`
	Y               float64   `json:"y,omitempty"`
	DiscoveredLinks []string  `json:"discovered_links,omitempty"`
	Training        bool      `json:"training,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// DetectedModal is an overlay that scored above the detection threshold.
// It is updated with state changes while the same element persists and
// marked invisible once it no longer matches.
type DetectedModal struct {
	ID           string             `json:"id"`
	TriggeredBy  string             `json:"triggered_by"` // "heuristic" or "trained:<component id>"
	Selector     string             `json:"selector"`
	PagePath     string             `json:"page_path"`
	Content      string             `json:"content"` // bounded snippet
	Screenshot   string             `json:"screenshot,omitempty"`
	Width        float64            `json:"width"`
	Height       float64            `json:"height"`
	Score        int                `json:"score"`
	Reasons      []string           `json:"reasons,omitempty"`
	Visible      bool               `json:"visible"`
	DetectedAt   time.Time          `json:"detected_at"`
	StateChanges []ModalStateChange `json:"state_changes,omitempty"`
}

// ModalStateChange records a content mutation of an already-detected modal.
type ModalStateChange struct {
	At         time.Time `json:"at"`
	Diff       string    `json:"diff"` // window around the first divergence point
	Content    string    `json:"content"`
	Screenshot string    `json:"screenshot,omitempty"`
}
