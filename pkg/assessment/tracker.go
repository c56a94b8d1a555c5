package assessment

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Store persists sessions between runs.
type Store interface {
	Save(s *Session) error
}

// Observer is notified about answers and save attempts.
type Observer interface {
	ObserveAnswer(option string)
	ObserveSave(err error)
}

// Tracker applies changes to a session and saves it after every change.
//
// The in-memory session is authoritative: when saving fails the change is
// kept and the storage error is returned wrapped so the caller can warn and
// carry on.
type Tracker struct {
	mu       sync.Mutex
	session  *Session
	bank     QuestionSource
	total    int
	store    Store
	observer Observer
	logger   *slog.Logger
	now      func() time.Time
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithLogger sets a custom structured logger.
func WithLogger(l *slog.Logger) TrackerOption {
	return func(t *Tracker) { t.logger = l }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// WithObserver registers a metrics observer.
func WithObserver(o Observer) TrackerOption {
	return func(t *Tracker) { t.observer = o }
}

// NewTracker wraps session. total is the bank size used for cursor bounds.
// A nil store keeps the session in memory only.
func NewTracker(session *Session, bank QuestionSource, total int, store Store, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		session: session,
		bank:    bank,
		total:   total,
		store:   store,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	return t
}

// Record answers questionID and saves.
// Validation failures leave the session unchanged and are not saved.
func (t *Tracker) Record(questionID, label string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.session.Answer(t.bank, questionID, label, t.now()); err != nil {
		return err
	}
	if t.observer != nil {
		if a, ok := t.session.AnswerFor(questionID); ok {
			t.observer.ObserveAnswer(a.Option)
		}
	}
	t.logger.Debug("answer recorded", "session", t.session.ID, "question", questionID, "option", label)
	return t.saveLocked()
}

// Skip clears any answer for questionID and saves if something changed.
func (t *Tracker) Skip(questionID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed, err := t.session.Clear(questionID, t.now())
	if err != nil || !removed {
		return err
	}
	return t.saveLocked()
}

// Seek moves the resume cursor and saves.
func (t *Tracker) Seek(cursor int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	before := t.session.Cursor
	if err := t.session.Seek(cursor, t.total, t.now()); err != nil {
		return err
	}
	if before == t.session.Cursor {
		return nil
	}
	return t.saveLocked()
}

// Save persists the current session.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saveLocked()
}

func (t *Tracker) saveLocked() error {
	if t.store == nil {
		return nil
	}
	err := t.store.Save(t.session)
	if t.observer != nil {
		t.observer.ObserveSave(err)
	}
	if err != nil {
		t.logger.Warn("progress not saved, continuing in memory", "session", t.session.ID, "error", err)
		return fmt.Errorf("assessment: change kept in memory only: %w", err)
	}
	return nil
}

// Session returns a snapshot of the tracked session.
func (t *Tracker) Session() *Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session.Clone()
}

// Progress reports answered/total.
func (t *Tracker) Progress() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session.Progress(t.total)
}
