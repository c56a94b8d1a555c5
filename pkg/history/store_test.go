package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberph/posture/pkg/assessment"
	"github.com/cyberph/posture/pkg/scoring"
)

var t0 = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

func rec(id, org string, at time.Time, pct, total float64, critical int, risk string) *Record {
	return &Record{
		ID:               id,
		Organization:     org,
		AssessedAt:       at,
		CompliancePct:    pct,
		TotalScore:       total,
		CriticalFailures: critical,
		RiskCategory:     risk,
		CategoryScores:   map[string]float64{"Security Measures": pct, "Breach Management": pct / 2},
	}
}

func TestStore_SaveGetPersist(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save(rec("a", "Acme", t0, 70, 6, 1, "medium")))

	got, err := store.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Organization)

	got.CategoryScores["Security Measures"] = 0
	again, _ := store.Get("a")
	assert.Equal(t, 70.0, again.CategoryScores["Security Measures"], "Get returns a copy")

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	got, err = reopened.Get("a")
	require.NoError(t, err)
	assert.True(t, got.AssessedAt.Equal(t0))

	_, err = store.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListLatestTrend(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(rec("q1", "Acme", t0, 50, 10, 3, "high")))
	require.NoError(t, store.Save(rec("q2", "acme", t0.AddDate(0, 3, 0), 75, 5, 1, "medium")))
	require.NoError(t, store.Save(rec("q3", "Acme", t0.AddDate(0, 6, 0), 90, 1, 0, "low")))
	require.NoError(t, store.Save(rec("z1", "Other Co", t0.AddDate(0, 1, 0), 40, 12, 4, "high")))

	all, err := store.List("", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	acme, err := store.List("ACME", 0)
	require.NoError(t, err)
	require.Len(t, acme, 3)
	assert.Equal(t, []string{"q3", "q2", "q1"}, []string{acme[0].ID, acme[1].ID, acme[2].ID})

	limited, err := store.List("acme", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	latest, err := store.Latest("Acme")
	require.NoError(t, err)
	assert.Equal(t, "q3", latest.ID)

	_, err = store.Latest("Nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	trend, err := store.Trend("acme", 2)
	require.NoError(t, err)
	require.Len(t, trend, 2)
	assert.Equal(t, 75.0, trend[0].CompliancePct)
	assert.Equal(t, 90.0, trend[1].CompliancePct)

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalAssessments)
	assert.Equal(t, 2, stats.UniqueOrganizations)
	assert.True(t, stats.Oldest.Equal(t0))
	assert.Positive(t, stats.StorageSizeBytes)
}

func TestStore_Compare(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Save(rec("before", "Acme", t0, 50, 10, 3, "high")))
	require.NoError(t, store.Save(rec("after", "Acme", t0.AddDate(1, 0, 0), 80, 4, 1, "medium")))

	cmp, err := store.Compare("before", "after")
	require.NoError(t, err)
	assert.InDelta(t, 30, cmp.ComplianceDelta, 1e-9)
	assert.InDelta(t, -6, cmp.TotalScoreDelta, 1e-9)
	assert.Equal(t, -2, cmp.CriticalFailuresDelta)
	assert.Equal(t, -1, cmp.RiskChange)
	assert.InDelta(t, 30, cmp.CategoryDeltas["Security Measures"], 1e-9)
	assert.InDelta(t, 15, cmp.CategoryDeltas["Breach Management"], 1e-9)
	assert.True(t, cmp.Improved)
	assert.False(t, cmp.Regressed)

	back, err := store.Compare("after", "before")
	require.NoError(t, err)
	assert.False(t, back.Improved)
	assert.True(t, back.Regressed)

	_, err = store.Compare("before", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_DeleteAndPrune(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Save(rec("old", "Acme", t0, 50, 10, 3, "high")))
	require.NoError(t, store.Save(rec("new", "Acme", t0.AddDate(1, 0, 0), 80, 4, 1, "medium")))

	require.NoError(t, store.Delete("new"))
	assert.ErrorIs(t, store.Delete("new"), ErrNotFound)

	n, err := store.Prune(t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all, err := store.List("", 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestNewStore_InvalidPath(t *testing.T) {
	t.Parallel()

	_, err := NewStore(filepath.Join(os.DevNull, "sub", "history"))
	assert.Error(t, err)
}

func TestNewStore_CorruptIndex(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.json"), []byte("{not json"), 0o644))
	_, err := NewStore(dir)
	assert.Error(t, err)
}

func TestRecordFrom(t *testing.T) {
	t.Parallel()

	s, err := assessment.NewSession("Acme", "Ana", "2026-02-01", t0)
	require.NoError(t, err)
	res := scoring.Result{
		CompliancePct: 64.2,
		TotalScore:    5.6,
		RiskCategory:  "medium",
		Verdict:       scoring.VerdictImprove,
		Answered:      17,
		Categories: []scoring.CategoryScore{
			{Category: "Cybersecurity", CompliancePct: 0, Answered: 1, Applicable: true},
			{Category: "Breach Management", CompliancePct: 100, Answered: 2, Applicable: false},
			{Category: "Data Subject Rights", Answered: 0},
		},
	}

	r := RecordFrom(s, res, "abc123")
	assert.Equal(t, s.ID, r.ID)
	assert.Equal(t, "Acme", r.Organization)
	assert.True(t, r.AssessedAt.Equal(s.LastModifiedAt))
	assert.Equal(t, map[string]float64{"Cybersecurity": 0}, r.CategoryScores)
	assert.Equal(t, "abc123", r.Fingerprint)
	assert.NotEmpty(t, r.Version)
}
