package questionbank

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultOpts() Options {
	return Options{CriticalMultiplier: 1.3, AllowNA: true}
}

// TestDefaultBank_Valid is the build-time guard for the embedded bank.
func TestDefaultBank_Valid(t *testing.T) {
	t.Parallel()

	bank, err := Default(defaultOpts())
	require.NoError(t, err)

	qs := bank.ListQuestions()
	assert.Len(t, qs, 17)
	assert.Equal(t, 17, bank.Len())
	assert.Equal(t, "1.0", bank.Version)
	require.NoError(t, Validate(qs))

	cats := bank.Categories()
	require.Len(t, cats, 7)
	assert.Equal(t, "Governance & Compliance", cats[0].Name)
	assert.Equal(t, "Cybersecurity", cats[6].Name)

	critical := 0
	for _, q := range qs {
		if q.Critical {
			critical++
		}
		assert.NotEmpty(t, q.Tip, q.ID)
		assert.NotEmpty(t, q.Control, q.ID)
		assert.NotEmpty(t, q.References, q.ID)
	}
	assert.Equal(t, 8, critical)
}

func TestDefaultBank_OrderIsStable(t *testing.T) {
	t.Parallel()

	a, err := Default(defaultOpts())
	require.NoError(t, err)
	b, err := Default(defaultOpts())
	require.NoError(t, err)

	assert.Equal(t, a.ListQuestions(), b.ListQuestions())
	assert.Equal(t, "gov_dpo", a.ListQuestions()[0].ID)
	assert.Equal(t, "cyber_vuln", a.ListQuestions()[16].ID)
}

func TestDefaultOptions_CriticalMultiplier(t *testing.T) {
	t.Parallel()

	bank, err := Default(defaultOpts())
	require.NoError(t, err)

	q, ok := bank.Lookup("gov_dpo")
	require.True(t, ok)
	assert.Equal(t, []string{LabelYes, LabelNo, LabelNA}, q.Labels())

	no, ok := q.Option("no")
	require.True(t, ok)
	assert.InDelta(t, 1.3, no.Weight, 1e-9)
	assert.Equal(t, NonCompliant, no.Kind)
	assert.InDelta(t, 1.3, q.MaxWeight(), 1e-9)

	q, ok = bank.Lookup("org_thirdparty")
	require.True(t, ok)
	assert.InDelta(t, 1.5, q.MaxWeight(), 1e-9)

	na, ok := q.Option(" N/A ")
	require.True(t, ok)
	assert.Equal(t, NotApplicable, na.Kind)
	assert.Zero(t, na.Weight)
}

func TestDefaultOptions_NADisabled(t *testing.T) {
	t.Parallel()

	bank, err := Default(Options{CriticalMultiplier: 1.3, AllowNA: false})
	require.NoError(t, err)

	for _, q := range bank.ListQuestions() {
		_, ok := q.Option(LabelNA)
		assert.False(t, ok, q.ID)
		assert.Len(t, q.Options, 2)
	}
}

func TestParse_ZeroMultiplierDefaultsToOne(t *testing.T) {
	t.Parallel()

	bank, err := Default(Options{})
	require.NoError(t, err)

	q, _ := bank.Lookup("gov_dpo")
	assert.InDelta(t, 1.0, q.MaxWeight(), 1e-9)
}

func TestListQuestions_ReturnsCopy(t *testing.T) {
	t.Parallel()

	bank, err := Default(defaultOpts())
	require.NoError(t, err)

	qs := bank.ListQuestions()
	qs[0].Prompt = "mutated"
	qs[0].Options[0].Label = "mutated"

	fresh, _ := bank.Lookup(qs[0].ID)
	assert.NotEqual(t, "mutated", fresh.Prompt)
	assert.Equal(t, LabelYes, fresh.Options[0].Label)
}

func TestLookup_Unknown(t *testing.T) {
	t.Parallel()

	bank, err := Default(defaultOpts())
	require.NoError(t, err)

	_, ok := bank.Lookup("nope")
	assert.False(t, ok)
	assert.Equal(t, -1, bank.Position("nope"))
	assert.Equal(t, 0, bank.Position("gov_dpo"))
}

func TestParse_ExplicitOptions(t *testing.T) {
	t.Parallel()

	data := []byte(`
version: "1.0"
domains:
  - name: Custom
    questions:
      - id: q1
        text: Is there a policy?
        options:
          - {label: Fully, weight: 0, kind: compliant}
          - {label: Partially, weight: 2, kind: non_compliant}
          - {label: Not at all, weight: 5, kind: non_compliant}
`)
	bank, err := Parse(data, defaultOpts())
	require.NoError(t, err)

	q, ok := bank.Lookup("q1")
	require.True(t, ok)
	assert.Equal(t, []string{"Fully", "Partially", "Not at all"}, q.Labels())
	assert.InDelta(t, 5, q.MaxWeight(), 1e-9)
	assert.Equal(t, 1.0, q.Weight)
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{"empty", `domains: []`},
		{"not yaml", `domains: [`},
		{"missing id", `
domains:
  - name: A
    questions:
      - text: hello`},
		{"duplicate id", `
domains:
  - name: A
    questions:
      - {id: a, text: one}
      - {id: a, text: two}`},
		{"missing prompt", `
domains:
  - name: A
    questions:
      - {id: a}`},
		{"missing category", `
domains:
  - questions:
      - {id: a, text: one}`},
		{"negative weight", `
domains:
  - name: A
    questions:
      - {id: a, text: one, weight: -1}`},
		{"single option", `
domains:
  - name: A
    questions:
      - id: a
        text: one
        options: [{label: Only, weight: 0, kind: compliant}]`},
		{"duplicate label", `
domains:
  - name: A
    questions:
      - id: a
        text: one
        options: [{label: Yes, weight: 0, kind: compliant}, {label: yes, weight: 1, kind: non_compliant}]`},
		{"unknown kind", `
domains:
  - name: A
    questions:
      - id: a
        text: one
        options: [{label: Yes, weight: 0, kind: compliant}, {label: No, weight: 1, kind: maybe}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.data), defaultOpts())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidBank)
		})
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bank.yaml")
	require.NoError(t, os.WriteFile(path, defaultBank, 0o644))

	bank, err := Load(path, defaultOpts())
	require.NoError(t, err)
	assert.Equal(t, 17, bank.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), defaultOpts())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidBank)
}
