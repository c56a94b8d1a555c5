// Package checkpoint persists in-progress assessment sessions so they can be
// resumed after the program exits.
//
// Each session is one indented JSON file, <dir>/<session_id>.json, written to
// a temporary file and renamed into place.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cyberph/posture/pkg/assessment"
	"github.com/cyberph/posture/pkg/defaults"
	"github.com/cyberph/posture/pkg/jsonutil"
	"github.com/cyberph/posture/pkg/retry"
)

const fileExt = ".json"

// Summary describes a stored session without its answers.
type Summary struct {
	ID             string            `json:"session_id"`
	Organization   string            `json:"organization"`
	Assessor       string            `json:"assessor"`
	AssessmentDate string            `json:"assessment_date"`
	Answered       int               `json:"answered"`
	Cursor         int               `json:"cursor"`
	Status         assessment.Status `json:"status"`
	LastModifiedAt time.Time         `json:"last_modified_at"`
}

// Store handles progress file operations.
type Store struct {
	// Dir is the directory holding progress files
	Dir string

	logger *slog.Logger
	mu     sync.Mutex
}

// NewStore creates a store rooted at dir. The directory is created lazily on
// first save.
func NewStore(dir string, logger *slog.Logger) *Store {
	if dir == "" {
		dir = defaults.ProgressDir
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{Dir: dir, logger: logger}
}

func (s *Store) path(id string) string {
	return filepath.Join(s.Dir, id+fileExt)
}

// validID guards file names: only canonical UUIDs reach the filesystem.
func validID(id string) bool {
	u, err := uuid.Parse(id)
	return err == nil && u.String() == id
}

// Save writes session. The session is not modified.
func (s *Store) Save(session *assessment.Session) error {
	if session == nil {
		return fmt.Errorf("%w: nil session", ErrStorageUnavailable)
	}
	if !validID(session.ID) {
		return fmt.Errorf("checkpoint: invalid session id %q", session.ID)
	}

	data, err := jsonutil.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: encode session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.Dir, defaults.DirPermission); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	// Write to temp file first, then rename (atomic)
	target := s.path(session.ID)
	tmp, err := os.CreateTemp(s.Dir, session.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write %s: %v", ErrStorageUnavailable, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close %s: %v", ErrStorageUnavailable, tmpName, err)
	}
	rename := func() error { return os.Rename(tmpName, target) }
	if err := retry.Do(context.Background(), retry.FileConfig(), rename); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: rename to %s: %v", ErrStorageUnavailable, target, err)
	}

	s.logger.Debug("progress saved", "session", session.ID, "answers", len(session.Answers), "path", target)
	return nil
}

// Load reads a session. Missing and unreadable-as-session files both yield
// ErrNotFound; the latter is logged so the user knows why they start over.
func (s *Store) Load(id string) (*assessment.Session, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: %q is not a session id", ErrNotFound, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	var session assessment.Session
	if err := jsonutil.Unmarshal(data, &session); err != nil {
		s.logger.Warn("progress file is corrupted, ignoring", "path", path, "error", err)
		return nil, fmt.Errorf("%w: %s is corrupted", ErrNotFound, id)
	}
	if err := session.Validate(); err != nil {
		s.logger.Warn("progress file is not usable, ignoring", "path", path, "error", err)
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, id, err)
	}
	if session.ID != id {
		s.logger.Warn("progress file id mismatch, ignoring", "path", path, "stored", session.ID)
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if session.Answers == nil {
		session.Answers = []assessment.Answer{}
	}
	return &session, nil
}

// Delete removes a session file. Deleting a missing session is not an error.
func (s *Store) Delete(id string) error {
	if !validID(id) {
		return fmt.Errorf("%w: %q is not a session id", ErrNotFound, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Exists checks if a progress file exists for id.
func (s *Store) Exists(id string) bool {
	if !validID(id) {
		return false
	}
	_, err := os.Stat(s.path(id))
	return err == nil
}

// List returns summaries of all loadable sessions, most recently modified
// first. Unusable files are skipped with a warning.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	var out []Summary
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		id := strings.TrimSuffix(name, fileExt)
		if !validID(id) {
			continue
		}
		session, err := s.Load(id)
		if err != nil {
			continue
		}
		out = append(out, Summary{
			ID:             session.ID,
			Organization:   session.Organization,
			Assessor:       session.Assessor,
			AssessmentDate: session.AssessmentDate,
			Answered:       len(session.Answers),
			Cursor:         session.Cursor,
			Status:         session.Status,
			LastModifiedAt: session.LastModifiedAt,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].LastModifiedAt.Equal(out[j].LastModifiedAt) {
			return out[i].LastModifiedAt.After(out[j].LastModifiedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Resolve expands a unique id prefix (as shown by List) into a full id.
func (s *Store) Resolve(prefix string) (string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if validID(prefix) {
		return prefix, nil
	}
	if prefix == "" {
		return "", fmt.Errorf("%w: empty session id", ErrNotFound)
	}
	list, err := s.List()
	if err != nil {
		return "", err
	}
	var match string
	for _, sum := range list {
		if strings.HasPrefix(sum.ID, prefix) {
			if match != "" {
				return "", fmt.Errorf("checkpoint: session id prefix %q is ambiguous", prefix)
			}
			match = sum.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: no session matches %q", ErrNotFound, prefix)
	}
	return match, nil
}
