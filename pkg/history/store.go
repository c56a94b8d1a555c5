// Package history provides file-based storage of finalized assessments.
// Historical records enable trend analysis and comparison of an
// organization's privacy posture across assessment cycles.
//
// Data is stored in a single JSON index for portability and simplicity.
package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cyberph/posture/pkg/assessment"
	"github.com/cyberph/posture/pkg/defaults"
	"github.com/cyberph/posture/pkg/jsonutil"
	"github.com/cyberph/posture/pkg/retry"
	"github.com/cyberph/posture/pkg/scoring"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("history: record not found")

// Store manages historical assessment records using JSON file storage.
type Store struct {
	mu       sync.RWMutex
	basePath string
	index    *storeIndex
}

// storeIndex tracks all stored assessments for quick lookup.
type storeIndex struct {
	Version     string             `json:"version"`
	Assessments map[string]*Record `json:"assessments"`
}

// Record is a finalized assessment.
type Record struct {
	// ID is the session id of the assessment
	ID string `json:"id"`

	Organization   string `json:"organization"`
	Assessor       string `json:"assessor"`
	AssessmentDate string `json:"assessment_date"`

	// AssessedAt is the session's last modification, i.e. the final answer
	AssessedAt time.Time `json:"assessed_at"`

	CompliancePct    float64         `json:"compliance_pct"`
	TotalScore       float64         `json:"total_score"`
	MaxScore         float64         `json:"max_score"`
	RiskCategory     string          `json:"risk_category"`
	Verdict          scoring.Verdict `json:"verdict"`
	CriticalFailures int             `json:"critical_failures"`
	Answered         int             `json:"answered"`
	TotalQuestions   int             `json:"total_questions"`

	// CategoryScores maps category name to compliance percentage
	CategoryScores map[string]float64 `json:"category_scores"`

	// Fingerprint identifies the exact answer set the report was built from
	Fingerprint string `json:"fingerprint"`

	// Version is the posture version used
	Version string `json:"version"`
}

// RecordFrom builds a history record from a final session and its score.
func RecordFrom(s *assessment.Session, res scoring.Result, fingerprint string) *Record {
	cats := make(map[string]float64, len(res.Categories))
	for _, c := range res.Categories {
		if c.Answered > 0 && c.Applicable {
			cats[c.Category] = c.CompliancePct
		}
	}
	return &Record{
		ID:               s.ID,
		Organization:     s.Organization,
		Assessor:         s.Assessor,
		AssessmentDate:   s.AssessmentDate,
		AssessedAt:       s.LastModifiedAt,
		CompliancePct:    res.CompliancePct,
		TotalScore:       res.TotalScore,
		MaxScore:         res.MaxScore,
		RiskCategory:     res.RiskCategory,
		Verdict:          res.Verdict,
		CriticalFailures: res.CriticalFailures,
		Answered:         res.Answered,
		TotalQuestions:   res.TotalQuestions,
		CategoryScores:   cats,
		Fingerprint:      fingerprint,
		Version:          defaults.Version,
	}
}

// TrendPoint represents a single data point for trend visualization.
type TrendPoint struct {
	AssessedAt    time.Time `json:"assessed_at"`
	CompliancePct float64   `json:"compliance_pct"`
	RiskCategory  string    `json:"risk_category"`
	TotalScore    float64   `json:"total_score"`
}

// ComparisonResult represents the difference between two assessments.
type ComparisonResult struct {
	BaseID                string             `json:"base_id"`
	CompareID             string             `json:"compare_id"`
	BaseAssessedAt        time.Time          `json:"base_assessed_at"`
	CompareAssessedAt     time.Time          `json:"compare_assessed_at"`
	ComplianceDelta       float64            `json:"compliance_delta"`
	TotalScoreDelta       float64            `json:"total_score_delta"`
	CriticalFailuresDelta int                `json:"critical_failures_delta"`
	RiskChange            int                `json:"risk_change"`
	CategoryDeltas        map[string]float64 `json:"category_deltas"`
	Improved              bool               `json:"improved"`
	Regressed             bool               `json:"regressed"`
}

// StoreStats contains storage statistics.
type StoreStats struct {
	TotalAssessments    int       `json:"total_assessments"`
	UniqueOrganizations int       `json:"unique_organizations"`
	Oldest              time.Time `json:"oldest"`
	Newest              time.Time `json:"newest"`
	StorageSizeBytes    int64     `json:"storage_size_bytes"`
}

// NewStore creates a new history store at the specified directory.
func NewStore(basePath string) (*Store, error) {
	if basePath == "" {
		basePath = defaults.HistoryDir
	}
	if err := os.MkdirAll(basePath, defaults.DirPermission); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}

	store := &Store{
		basePath: basePath,
		index: &storeIndex{
			Version:     defaults.FormatVersion,
			Assessments: make(map[string]*Record),
		},
	}

	// Load existing index if present
	if err := store.loadIndex(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	return store, nil
}

// indexPath returns the path to the store index file.
func (s *Store) indexPath() string {
	return filepath.Join(s.basePath, "index.json")
}

// loadIndex loads the store index from disk.
func (s *Store) loadIndex() error {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		return err
	}
	if err := jsonutil.Unmarshal(data, s.index); err != nil {
		return fmt.Errorf("history: read %s: %w", s.indexPath(), err)
	}
	if s.index.Assessments == nil {
		s.index.Assessments = make(map[string]*Record)
	}
	return nil
}

// saveIndex persists the store index to disk using atomic write.
// Writes to a temporary file first, then renames to prevent corruption.
func (s *Store) saveIndex() error {
	data, err := jsonutil.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := s.indexPath() + ".tmp"
	if err := os.WriteFile(tmpPath, data, defaults.FilePermission); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	rename := func() error { return os.Rename(tmpPath, s.indexPath()) }
	if err := retry.Do(context.Background(), retry.FileConfig(), rename); err != nil {
		os.Remove(tmpPath) // Clean up orphaned temp file
		return fmt.Errorf("history: %w", err)
	}
	return nil
}

// Save stores a record, replacing any record with the same id.
func (s *Store) Save(record *Record) error {
	if record == nil || record.ID == "" {
		return errors.New("history: record without id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.index.Assessments[record.ID]
	s.index.Assessments[record.ID] = copyRecord(record)
	if err := s.saveIndex(); err != nil {
		if had {
			s.index.Assessments[record.ID] = prev
		} else {
			delete(s.index.Assessments, record.ID)
		}
		return err
	}
	return nil
}

// copyRecord creates a deep copy of a Record.
func copyRecord(r *Record) *Record {
	c := *r
	if r.CategoryScores != nil {
		c.CategoryScores = make(map[string]float64, len(r.CategoryScores))
		for k, v := range r.CategoryScores {
			c.CategoryScores[k] = v
		}
	}
	return &c
}

// Get retrieves a record by id.
func (s *Store) Get(id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.index.Assessments[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return copyRecord(record), nil
}

// List returns records for an organization (all when org is empty), newest
// first. Organization matching ignores case.
func (s *Store) List(org string, limit int) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*Record
	for _, record := range s.index.Assessments {
		if org != "" && !strings.EqualFold(record.Organization, org) {
			continue
		}
		records = append(records, copyRecord(record))
	}

	// Sort by time descending, id for a stable order
	sort.Slice(records, func(i, j int) bool {
		if !records[i].AssessedAt.Equal(records[j].AssessedAt) {
			return records[i].AssessedAt.After(records[j].AssessedAt)
		}
		return records[i].ID < records[j].ID
	})

	// Apply limit
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	return records, nil
}

// Latest returns the most recent assessment of org.
func (s *Store) Latest(org string) (*Record, error) {
	records, err := s.List(org, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no assessments for %q", ErrNotFound, org)
	}
	return records[0], nil
}

// Trend returns compliance over time for org, oldest first.
func (s *Store) Trend(org string, maxPoints int) ([]TrendPoint, error) {
	records, err := s.List(org, 0)
	if err != nil {
		return nil, err
	}

	points := make([]TrendPoint, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		points = append(points, TrendPoint{
			AssessedAt:    r.AssessedAt,
			CompliancePct: r.CompliancePct,
			RiskCategory:  r.RiskCategory,
			TotalScore:    r.TotalScore,
		})
	}

	// Keep the most recent points
	if maxPoints > 0 && len(points) > maxPoints {
		points = points[len(points)-maxPoints:]
	}
	return points, nil
}

// Compare compares two records and returns the delta from base to compare.
func (s *Store) Compare(baseID, compareID string) (*ComparisonResult, error) {
	base, err := s.Get(baseID)
	if err != nil {
		return nil, err
	}

	compare, err := s.Get(compareID)
	if err != nil {
		return nil, err
	}

	result := &ComparisonResult{
		BaseID:                baseID,
		CompareID:             compareID,
		BaseAssessedAt:        base.AssessedAt,
		CompareAssessedAt:     compare.AssessedAt,
		ComplianceDelta:       compare.CompliancePct - base.CompliancePct,
		TotalScoreDelta:       compare.TotalScore - base.TotalScore,
		CriticalFailuresDelta: compare.CriticalFailures - base.CriticalFailures,
		RiskChange:            riskValue(compare.RiskCategory) - riskValue(base.RiskCategory),
		CategoryDeltas:        make(map[string]float64),
	}

	// Calculate category deltas
	for cat, baseRate := range base.CategoryScores {
		if compareRate, ok := compare.CategoryScores[cat]; ok {
			result.CategoryDeltas[cat] = compareRate - baseRate
		}
	}

	// Fewer risk points and no new critical failures is an improvement
	result.Improved = result.TotalScoreDelta < 0 && result.CriticalFailuresDelta <= 0
	result.Regressed = result.TotalScoreDelta > 0 || result.CriticalFailuresDelta > 0

	return result, nil
}

// riskValue orders the stock risk categories; custom names compare equal.
func riskValue(category string) int {
	values := map[string]int{
		defaults.RiskLow:    0,
		defaults.RiskMedium: 1,
		defaults.RiskHigh:   2,
	}
	if v, ok := values[category]; ok {
		return v
	}
	return 0
}

// Delete removes a record.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.index.Assessments[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	delete(s.index.Assessments, id)
	if err := s.saveIndex(); err != nil {
		s.index.Assessments[id] = record
		return err
	}
	return nil
}

// Prune removes records assessed before cutoff.
func (s *Store) Prune(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, record := range s.index.Assessments {
		if record.AssessedAt.Before(cutoff) {
			delete(s.index.Assessments, id)
			count++
		}
	}

	if count > 0 {
		if err := s.saveIndex(); err != nil {
			return count, err
		}
	}

	return count, nil
}

// Stats returns storage statistics.
func (s *Store) Stats() (*StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &StoreStats{
		TotalAssessments: len(s.index.Assessments),
	}

	orgs := make(map[string]bool)
	for _, record := range s.index.Assessments {
		orgs[strings.ToLower(record.Organization)] = true
		if stats.Oldest.IsZero() || record.AssessedAt.Before(stats.Oldest) {
			stats.Oldest = record.AssessedAt
		}
		if record.AssessedAt.After(stats.Newest) {
			stats.Newest = record.AssessedAt
		}
	}
	stats.UniqueOrganizations = len(orgs)

	// Get storage size
	info, err := os.Stat(s.indexPath())
	if err == nil {
		stats.StorageSizeBytes = info.Size()
	}

	return stats, nil
}
