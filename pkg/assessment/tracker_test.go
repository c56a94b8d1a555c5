package assessment

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberph/posture/pkg/testutil"
)

var errDiskFull = errors.New("disk full")

type memStore struct {
	mu    sync.Mutex
	saved []*Session
	err   error
}

func (m *memStore) Save(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, s.Clone())
	return nil
}

func (m *memStore) last() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saved) == 0 {
		return nil
	}
	return m.saved[len(m.saved)-1]
}

type countingObserver struct {
	answers map[string]int
	saves   int
	fails   int
}

func (c *countingObserver) ObserveAnswer(option string) {
	if c.answers == nil {
		c.answers = map[string]int{}
	}
	c.answers[option]++
}

func (c *countingObserver) ObserveSave(err error) {
	if err != nil {
		c.fails++
		return
	}
	c.saves++
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTracker_RecordSavesEachChange(t *testing.T) {
	t.Parallel()

	bank := testBank(t, true)
	store := &memStore{}
	obs := &countingObserver{}
	tr := NewTracker(newTestSession(t), bank, bank.Len(), store,
		WithClock(fixedClock(t0.Add(time.Hour))), WithObserver(obs), WithLogger(quietLogger()))

	require.NoError(t, tr.Record("gov_dpo", "no"))
	require.NoError(t, tr.Record("gov_pmp", "Yes"))
	require.NoError(t, tr.Seek(2))

	require.Len(t, store.saved, 3)
	last := store.last()
	assert.Len(t, last.Answers, 2)
	assert.Equal(t, 2, last.Cursor)
	assert.Equal(t, t0.Add(time.Hour), last.LastModifiedAt)

	assert.Equal(t, map[string]int{"No": 1, "Yes": 1}, obs.answers)
	assert.Equal(t, 3, obs.saves)

	p := tr.Progress()
	assert.Equal(t, 2, p.Answered)
	assert.Equal(t, 17, p.Total)
}

func TestTracker_InvalidAnswerNotSaved(t *testing.T) {
	t.Parallel()

	bank := testBank(t, false)
	store := &memStore{}
	tr := NewTracker(newTestSession(t), bank, bank.Len(), store)

	err := tr.Record("gov_dpo", "N/A")
	assert.ErrorIs(t, err, ErrInvalidAnswer)
	assert.Empty(t, store.saved)
	assert.Empty(t, tr.Session().Answers)
}

func TestTracker_SaveFailureKeepsChange(t *testing.T) {
	t.Parallel()

	bank := testBank(t, true)
	store := &memStore{err: errDiskFull}
	obs := &countingObserver{}
	tr := NewTracker(newTestSession(t), bank, bank.Len(), store,
		WithObserver(obs), WithLogger(quietLogger()))

	err := tr.Record("gov_dpo", "Yes")
	require.Error(t, err)
	assert.ErrorIs(t, err, errDiskFull)
	assert.NotErrorIs(t, err, ErrInvalidAnswer)
	assert.Equal(t, 1, obs.fails)

	s := tr.Session()
	require.Len(t, s.Answers, 1, "in-memory session stays authoritative")

	store.mu.Lock()
	store.err = nil
	store.mu.Unlock()
	require.NoError(t, tr.Record("gov_pmp", "No"))
	assert.Len(t, store.last().Answers, 2)
}

func TestTracker_SkipAndSeekWithoutChange(t *testing.T) {
	t.Parallel()

	bank := testBank(t, true)
	store := &memStore{}
	tr := NewTracker(newTestSession(t), bank, bank.Len(), store)

	require.NoError(t, tr.Skip("gov_dpo"))
	require.NoError(t, tr.Seek(0))
	assert.Empty(t, store.saved, "no-op changes are not saved")

	require.NoError(t, tr.Record("gov_dpo", "Yes"))
	require.NoError(t, tr.Skip("gov_dpo"))
	assert.Len(t, store.saved, 2)
	assert.Empty(t, store.last().Answers)
}

func TestTracker_NilStoreAndSnapshot(t *testing.T) {
	t.Parallel()

	bank := testBank(t, true)
	tr := NewTracker(newTestSession(t), bank, bank.Len(), nil, WithLogger(nil))

	require.NoError(t, tr.Record("gov_dpo", "Yes"))
	require.NoError(t, tr.Save())

	snap := tr.Session()
	snap.Answers[0].Option = "mutated"
	assert.Equal(t, "Yes", tr.Session().Answers[0].Option)
}

func TestTracker_ConcurrentRecord(t *testing.T) {
	t.Parallel()

	bank := testBank(t, true)
	store := &memStore{}
	tr := NewTracker(newTestSession(t), bank, bank.Len(), store)

	questions := bank.ListQuestions()
	testutil.RunConcurrently(len(questions), func(i int) {
		_ = tr.Record(questions[i].ID, "Yes")
	})

	assert.Len(t, tr.Session().Answers, 17)
	assert.Len(t, store.saved, 17)
}
