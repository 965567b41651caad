package model

import "time"

// SiteRules is the per-domain collection of trained components. The version
// strictly increases on every persisted mutation.
type SiteRules struct {
	Domain            string             `json:"domain"`
	Version           int                `json:"version"`
	LastUpdated       time.Time          `json:"last_updated"`
	TrainedComponents []TrainedComponent `json:"trained_components"`
}

// ComponentsForPath returns the trained components whose page path matches.
func (r *SiteRules) ComponentsForPath(path string) []TrainedComponent {
	if r == nil {
		return nil
	}
	var out []TrainedComponent
	for _, tc := range r.TrainedComponents {
		if tc.PagePath == path {
			out = append(out, tc)
		}
	}
	return out
}

// TrainedComponent is a persisted, user-labeled selector rule. It is uniquely
// identified by (domain, id, page URL).
type TrainedComponent struct {
	ID          string       `json:"id"`
	PageURL     string       `json:"page_url"`
	PagePath    string       `json:"page_path"`
	Type        string       `json:"type"`
	Name        string       `json:"name"`
	Selector    string       `json:"selector"`
	Training    TrainingData `json:"training_data"`
	CreatedAt   time.Time    `json:"created_at"`
	LastUpdated time.Time    `json:"last_updated"`
}

// TrainingData is the feature snapshot captured when the operator labeled
// the element, plus its surrounding context.
type TrainingData struct {
	Snapshot  ElementSnapshot   `json:"snapshot"`
	Ancestors []AncestorContext `json:"ancestors,omitempty"` // up to 3 levels
	Siblings  []string          `json:"siblings,omitempty"`  // tag names
	Score     int               `json:"score"`               // heuristic score at labeling time
}

// AncestorContext describes one containing element.
type AncestorContext struct {
	Tag     string   `json:"tag"`
	ID      string   `json:"id,omitempty"`
	Classes []string `json:"classes,omitempty"`
}
