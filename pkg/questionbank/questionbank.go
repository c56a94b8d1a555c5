// Package questionbank provides the fixed, ordered set of compliance questions
// used by an assessment.
//
// The bundled bank targets the Philippine Data Privacy Act (R.A. 10173) and is
// embedded in the binary. A bank file with the same YAML shape can be supplied
// at runtime to replace question texts and weights without touching scoring.
//
// Usage:
//
//	bank, err := questionbank.Default(questionbank.Options{CriticalMultiplier: 1.3, AllowNA: true})
//	for _, q := range bank.ListQuestions() {
//	    fmt.Println(q.ID, q.Prompt)
//	}
package questionbank

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed questions_ph.yaml
var defaultBank []byte

// Answer labels used when a question does not list explicit options.
const (
	LabelYes = "Yes"
	LabelNo  = "No"
	LabelNA  = "N/A"
)

// Kind classifies what an option means for compliance.
type Kind string

const (
	// Compliant means the control is in place.
	Compliant Kind = "compliant"

	// NonCompliant means the control is missing. Counts as a critical
	// failure on critical questions.
	NonCompliant Kind = "non_compliant"

	// NotApplicable excludes the question from compliance percentages.
	NotApplicable Kind = "not_applicable"
)

// IsValid reports whether k is a recognized option kind.
func (k Kind) IsValid() bool {
	switch k {
	case Compliant, NonCompliant, NotApplicable:
		return true
	}
	return false
}

// Option is one allowed answer to a question.
type Option struct {
	Label  string  `json:"label" yaml:"label"`
	Weight float64 `json:"weight" yaml:"weight"`
	Kind   Kind    `json:"kind" yaml:"kind"`
}

// Question is a single immutable questionnaire entry.
type Question struct {
	ID                  string   `json:"id"`
	Prompt              string   `json:"prompt"`
	Category            string   `json:"category"`
	CategoryDescription string   `json:"category_description,omitempty"`
	Weight              float64  `json:"weight"`
	Critical            bool     `json:"critical"`
	Tip                 string   `json:"tip,omitempty"`
	Control             string   `json:"control,omitempty"`
	References          []string `json:"references,omitempty"`
	Options             []Option `json:"options"`
}

// Option returns the option matching label, ignoring case and surrounding space.
func (q Question) Option(label string) (Option, bool) {
	label = strings.TrimSpace(label)
	for _, o := range q.Options {
		if strings.EqualFold(o.Label, label) {
			return o, true
		}
	}
	return Option{}, false
}

// MaxWeight returns the highest option weight, the risk carried by the worst answer.
func (q Question) MaxWeight() float64 {
	worst := 0.0
	for _, o := range q.Options {
		if o.Weight > worst {
			worst = o.Weight
		}
	}
	return worst
}

// Labels returns the option labels in display order.
func (q Question) Labels() []string {
	labels := make([]string, len(q.Options))
	for i, o := range q.Options {
		labels[i] = o.Label
	}
	return labels
}

func (q Question) clone() Question {
	c := q
	c.Options = append([]Option(nil), q.Options...)
	c.References = append([]string(nil), q.References...)
	return c
}

// Category is a question domain in bank order.
type Category struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Options controls how default answer options are materialized.
type Options struct {
	// CriticalMultiplier scales the "No" weight of critical questions (default 1.0).
	CriticalMultiplier float64
	// AllowNA adds an N/A option to questions without explicit options.
	AllowNA bool
}

// Bank is a validated, ordered question set.
type Bank struct {
	Version    string
	questions  []Question
	index      map[string]int
	categories []Category
}

// file mirrors the on-disk YAML layout.
type file struct {
	Version string `yaml:"version"`
	Domains []struct {
		Name      string `yaml:"name"`
		Desc      string `yaml:"desc"`
		Questions []struct {
			ID       string   `yaml:"id"`
			Text     string   `yaml:"text"`
			Weight   *float64 `yaml:"weight"`
			Critical bool     `yaml:"critical"`
			Tip      string   `yaml:"tip"`
			Control  string   `yaml:"control"`
			Ref      []string `yaml:"ref"`
			Options  []Option `yaml:"options"`
		} `yaml:"questions"`
	} `yaml:"domains"`
}

// Default returns the embedded bank.
func Default(opts Options) (*Bank, error) {
	return Parse(defaultBank, opts)
}

// Load reads a bank from a YAML file.
func Load(path string, opts Options) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("questionbank: read %s: %w", path, err)
	}
	return Parse(data, opts)
}

// Parse decodes and validates YAML bank data.
func Parse(data []byte, opts Options) (*Bank, error) {
	if opts.CriticalMultiplier <= 0 {
		opts.CriticalMultiplier = 1.0
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBank, err)
	}

	var questions []Question
	var categories []Category
	for _, d := range f.Domains {
		categories = append(categories, Category{Name: d.Name, Description: d.Desc})
		for _, raw := range d.Questions {
			weight := 1.0
			if raw.Weight != nil {
				weight = *raw.Weight
			}
			q := Question{
				ID:                  strings.TrimSpace(raw.ID),
				Prompt:              strings.TrimSpace(raw.Text),
				Category:            d.Name,
				CategoryDescription: d.Desc,
				Weight:              weight,
				Critical:            raw.Critical,
				Tip:                 raw.Tip,
				Control:             raw.Control,
				References:          raw.Ref,
				Options:             raw.Options,
			}
			if len(q.Options) == 0 {
				q.Options = defaultOptions(q, opts)
			}
			questions = append(questions, q)
		}
	}

	if err := Validate(questions); err != nil {
		return nil, err
	}

	b := &Bank{
		Version:    f.Version,
		questions:  questions,
		index:      make(map[string]int, len(questions)),
		categories: categories,
	}
	for i, q := range questions {
		b.index[q.ID] = i
	}
	return b, nil
}

// defaultOptions builds Yes / No (/ N/A) for a question.
func defaultOptions(q Question, opts Options) []Option {
	risk := q.Weight
	if q.Critical {
		risk *= opts.CriticalMultiplier
	}
	options := []Option{
		{Label: LabelYes, Weight: 0, Kind: Compliant},
		{Label: LabelNo, Weight: risk, Kind: NonCompliant},
	}
	if opts.AllowNA {
		options = append(options, Option{Label: LabelNA, Weight: 0, Kind: NotApplicable})
	}
	return options
}

// Validate checks structural invariants of a question list.
func Validate(questions []Question) error {
	if len(questions) == 0 {
		return fmt.Errorf("%w: no questions", ErrInvalidBank)
	}
	seen := make(map[string]bool, len(questions))
	for i, q := range questions {
		if q.ID == "" {
			return fmt.Errorf("%w: question %d has no id", ErrInvalidBank, i+1)
		}
		if seen[q.ID] {
			return fmt.Errorf("%w: duplicate question id %q", ErrInvalidBank, q.ID)
		}
		seen[q.ID] = true
		if q.Prompt == "" {
			return fmt.Errorf("%w: question %q has no prompt", ErrInvalidBank, q.ID)
		}
		if q.Category == "" {
			return fmt.Errorf("%w: question %q has no category", ErrInvalidBank, q.ID)
		}
		if q.Weight < 0 {
			return fmt.Errorf("%w: question %q has negative weight", ErrInvalidBank, q.ID)
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: question %q needs at least 2 options, has %d", ErrInvalidBank, q.ID, len(q.Options))
		}
		labels := make(map[string]bool, len(q.Options))
		for _, o := range q.Options {
			key := strings.ToLower(strings.TrimSpace(o.Label))
			if key == "" {
				return fmt.Errorf("%w: question %q has an option without label", ErrInvalidBank, q.ID)
			}
			if labels[key] {
				return fmt.Errorf("%w: question %q repeats option %q", ErrInvalidBank, q.ID, o.Label)
			}
			labels[key] = true
			if o.Weight < 0 {
				return fmt.Errorf("%w: question %q option %q has negative weight", ErrInvalidBank, q.ID, o.Label)
			}
			if !o.Kind.IsValid() {
				return fmt.Errorf("%w: question %q option %q has unknown kind %q", ErrInvalidBank, q.ID, o.Label, o.Kind)
			}
		}
	}
	return nil
}

// ListQuestions returns the questions in bank order. The slice is a copy.
func (b *Bank) ListQuestions() []Question {
	out := make([]Question, len(b.questions))
	for i, q := range b.questions {
		out[i] = q.clone()
	}
	return out
}

// Lookup returns the question with the given id.
func (b *Bank) Lookup(id string) (Question, bool) {
	i, ok := b.index[id]
	if !ok {
		return Question{}, false
	}
	return b.questions[i].clone(), true
}

// Position returns the zero-based bank position of id, or -1.
func (b *Bank) Position(id string) int {
	if i, ok := b.index[id]; ok {
		return i
	}
	return -1
}

// Len returns the number of questions.
func (b *Bank) Len() int {
	return len(b.questions)
}

// Categories returns the question domains in bank order.
func (b *Bank) Categories() []Category {
	return append([]Category(nil), b.categories...)
}
