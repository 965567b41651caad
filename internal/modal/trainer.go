package modal

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/webscoutlabs/webscout/internal/model"
	"github.com/webscoutlabs/webscout/internal/rulestore"
)

// Trainer converts operator selections made in training mode into persisted
// site rules.
type Trainer struct {
	store *rulestore.Store
	log   zerolog.Logger
}

// NewTrainer wires a trainer to the rule store.
func NewTrainer(store *rulestore.Store, log zerolog.Logger) *Trainer {
	return &Trainer{store: store, log: log.With().Str("component", "trainer").Logger()}
}

// Selection is one labeled element as relayed by the training bridge.
type Selection struct {
	PageURL    string
	Snapshot   model.ElementSnapshot
	Ancestors  []model.AncestorContext
	Siblings   []string
	QuickScore int
}

// decodeSelection parses the wsTrainSelect bridge payload.
func decodeSelection(payload string) (Selection, error) {
	v := gjson.Parse(payload)
	if !v.IsObject() {
		return Selection{}, fmt.Errorf("malformed training selection: %.80s", payload)
	}
	sel := Selection{
		PageURL:    v.Get("page_url").String(),
		Snapshot:   decodeSnapshot(v.Get("snapshot")),
		QuickScore: int(v.Get("quick_score").Int()),
	}
	v.Get("ancestors").ForEach(func(_, a gjson.Result) bool {
		var classes []string
		a.Get("classes").ForEach(func(_, c gjson.Result) bool {
			classes = append(classes, c.String())
			return true
		})
		sel.Ancestors = append(sel.Ancestors, model.AncestorContext{
			Tag:     a.Get("tag").String(),
			ID:      a.Get("id").String(),
			Classes: classes,
		})
		return true
	})
	v.Get("siblings").ForEach(func(_, s gjson.Result) bool {
		sel.Siblings = append(sel.Siblings, s.String())
		return true
	})
	return sel, nil
}

// Train persists the selection as a trained component and returns the
// updated rules document along with the stored component.
func (t *Trainer) Train(domain, componentType, name string, sel Selection) (*model.SiteRules, model.TrainedComponent, error) {
	selector := DeriveSelector(sel.Snapshot)
	tc := model.TrainedComponent{
		ID:       componentID(name, selector),
		PageURL:  sel.PageURL,
		PagePath: pagePath(sel.PageURL),
		Type:     componentType,
		Name:     name,
		Selector: selector,
		Training: model.TrainingData{
			Snapshot:  sel.Snapshot,
			Ancestors: sel.Ancestors,
			Siblings:  sel.Siblings,
			Score:     sel.QuickScore,
		},
	}
	rules, err := t.store.Upsert(domain, tc)
	if err != nil {
		return nil, model.TrainedComponent{}, fmt.Errorf("persist trained component: %w", err)
	}
	t.log.Info().Str("domain", domain).Str("selector", selector).
		Str("component", tc.ID).Msg("component trained")
	return rules, tc, nil
}

// DeriveSelector picks the selector for the snapshot. The primary class wins:
// a generated-looking class is unique to the element and used verbatim, a
// stable one is combined with the tag. Without classes the tag is next, then
// the id, then a generic fallback.
func DeriveSelector(s model.ElementSnapshot) string {
	if cls := s.PrimaryClass(); cls != "" {
		if looksGenerated(cls) {
			return "." + cls
		}
		return s.Tag + "." + cls
	}
	if s.Tag != "" {
		return s.Tag
	}
	if s.ID != "" {
		return "#" + s.ID
	}
	return "div"
}

var (
	generatedPrefixRe = regexp.MustCompile(`^(css|sc|jss|emotion|svelte|chakra)-`)
	hashChunkRe       = regexp.MustCompile(`[0-9a-f]{6,}|[A-Za-z0-9_]{2}[0-9]{4,}`)
)

// looksGenerated reports whether an id or class appears build-generated and
// therefore unstable across deployments.
func looksGenerated(v string) bool {
	lower := strings.ToLower(v)
	if generatedPrefixRe.MatchString(lower) || hashChunkRe.MatchString(lower) {
		return true
	}
	digits := 0
	for _, r := range v {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return len(v) > 0 && float64(digits)/float64(len(v)) > 0.3
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// componentID builds a readable id from the name or selector plus a short
// content hash. The id must be deterministic: retraining the same element on
// the same page has to produce the same id so the store updates in place.
func componentID(name, selector string) string {
	base := name
	if base == "" {
		base = selector
	}
	base = slugRe.ReplaceAllString(strings.ToLower(base), "-")
	base = strings.Trim(base, "-")
	if base == "" {
		base = "component"
	}
	h := fnv.New32a()
	h.Write([]byte(name + "|" + selector))
	return fmt.Sprintf("%s-%08x", base, h.Sum32())
}
