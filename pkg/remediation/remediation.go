// Package remediation maps answers to recommended corrective actions.
//
// Recommendations come from a catalog keyed by question id and selected
// option. Compliant answers normally have no entry; an answer without an
// entry simply yields no recommendation.
package remediation

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cyberph/posture/pkg/assessment"
	"github.com/cyberph/posture/pkg/questionbank"
)

//go:embed remediations.yaml
var defaultCatalog []byte

// Priority orders recommendations.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityStandard Priority = "standard"
)

// Entry is one catalog action.
type Entry struct {
	Action     string   `yaml:"action"`
	Timeline   string   `yaml:"timeline"`
	References []string `yaml:"references"`
}

// Recommendation is an action for one answered question.
type Recommendation struct {
	QuestionID     string   `json:"question_id"`
	Prompt         string   `json:"prompt"`
	Category       string   `json:"category"`
	SelectedOption string   `json:"selected_option"`
	Priority       Priority `json:"priority"`
	Action         string   `json:"action"`
	Timeline       string   `json:"timeline,omitempty"`
	Control        string   `json:"control,omitempty"`
	References     []string `json:"references,omitempty"`
}

// Catalog is an immutable remediation lookup table.
type Catalog struct {
	Version string
	// entries[question id][lower-cased option label]
	entries map[string]map[string]Entry
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("remediation: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var raw struct {
		Version string                      `yaml:"version"`
		Entries map[string]map[string]Entry `yaml:"entries"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	c := &Catalog{Version: raw.Version, entries: make(map[string]map[string]Entry, len(raw.Entries))}
	for qid, byOption := range raw.Entries {
		opts := make(map[string]Entry, len(byOption))
		for label, e := range byOption {
			key := normalize(label)
			if key == "" {
				return nil, fmt.Errorf("%w: %s has an empty option label", ErrInvalidCatalog, qid)
			}
			if _, dup := opts[key]; dup {
				return nil, fmt.Errorf("%w: %s lists option %q twice", ErrInvalidCatalog, qid, label)
			}
			if strings.TrimSpace(e.Action) == "" {
				return nil, fmt.Errorf("%w: %s/%s has no action", ErrInvalidCatalog, qid, label)
			}
			e.Action = strings.TrimSpace(e.Action)
			opts[key] = e
		}
		c.entries[qid] = opts
	}
	return c, nil
}

func normalize(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// Lookup returns the entry for a question and option label.
func (c *Catalog) Lookup(questionID, option string) (Entry, bool) {
	e, ok := c.entries[questionID][normalize(option)]
	return e, ok
}

// Len returns the number of (question, option) entries.
func (c *Catalog) Len() int {
	n := 0
	for _, opts := range c.entries {
		n += len(opts)
	}
	return n
}

// Validate checks every entry against the question bank.
func (c *Catalog) Validate(questions []questionbank.Question) error {
	byID := make(map[string]questionbank.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		q, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: unknown question %q", ErrInvalidCatalog, id)
		}
		for label := range c.entries[id] {
			if _, ok := q.Option(label); !ok {
				// N/A entries are kept when N/A is switched off
				if label == normalize(questionbank.LabelNA) {
					continue
				}
				return fmt.Errorf("%w: %s has no option %q", ErrInvalidCatalog, id, label)
			}
		}
	}
	return nil
}

// RecommendationsFor returns recommendations for answers, critical
// priority first, then bank order. It is pure: equal inputs give equal output.
func (c *Catalog) RecommendationsFor(questions []questionbank.Question, answers []assessment.Answer) []Recommendation {
	selected := make(map[string]string, len(answers))
	for _, a := range answers {
		selected[a.QuestionID] = a.Option
	}

	var critical, standard []Recommendation
	for _, q := range questions {
		label, ok := selected[q.ID]
		if !ok {
			continue
		}
		opt, ok := q.Option(label)
		if !ok {
			continue
		}
		e, ok := c.Lookup(q.ID, opt.Label)
		if !ok {
			continue
		}

		r := Recommendation{
			QuestionID:     q.ID,
			Prompt:         q.Prompt,
			Category:       q.Category,
			SelectedOption: opt.Label,
			Priority:       PriorityStandard,
			Action:         e.Action,
			Timeline:       e.Timeline,
			Control:        q.Control,
			References:     mergeRefs(q.References, e.References),
		}
		if q.Critical && opt.Kind == questionbank.NonCompliant {
			r.Priority = PriorityCritical
			critical = append(critical, r)
			continue
		}
		standard = append(standard, r)
	}
	return append(critical, standard...)
}

func mergeRefs(a, b []string) []string {
	if len(a)+len(b) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, r := range append(append([]string(nil), a...), b...) {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}
