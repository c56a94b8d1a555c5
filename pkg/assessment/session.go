// Package assessment holds the in-progress state of one self-assessment:
// who is being assessed, the answers given so far and where the
// questionnaire left off.
//
// A Session is plain data and safe to serialize. Mutations take the moment
// they happen as an argument so that callers own the clock.
package assessment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cyberph/posture/pkg/defaults"
	"github.com/cyberph/posture/pkg/questionbank"
)

// DateLayout is the assessment date format.
const DateLayout = "2006-01-02"

// Status is the lifecycle state of a session.
type Status string

const (
	StatusActive    Status = "active"
	StatusFinalized Status = "finalized"
	StatusDiscarded Status = "discarded"
)

// QuestionSource resolves question ids. *questionbank.Bank satisfies it.
type QuestionSource interface {
	Lookup(id string) (questionbank.Question, bool)
}

// Answer is the option selected for one question.
type Answer struct {
	QuestionID string    `json:"question_id"`
	Option     string    `json:"selected_option"`
	AnsweredAt time.Time `json:"answered_at"`
}

// Session is one assessment run. At most one Answer exists per question id,
// kept in the order questions were first answered.
type Session struct {
	ID             string    `json:"session_id"`
	Organization   string    `json:"organization"`
	Assessor       string    `json:"assessor"`
	AssessmentDate string    `json:"assessment_date"`
	Answers        []Answer  `json:"answers"`
	Cursor         int       `json:"cursor"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	LastModifiedAt time.Time `json:"last_modified_at"`
	Version        string    `json:"version"`
}

// Progress summarizes how far a session has come.
type Progress struct {
	Answered int     `json:"answered"`
	Total    int     `json:"total"`
	Percent  float64 `json:"percent"`
}

// NewSession starts an empty session. An empty date means the day of now.
func NewSession(organization, assessor, date string, now time.Time) (*Session, error) {
	organization = strings.TrimSpace(organization)
	if organization == "" {
		return nil, fmt.Errorf("%w: organization is required", ErrInvalidSession)
	}
	date = strings.TrimSpace(date)
	if date == "" {
		date = now.Format(DateLayout)
	} else if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: assessment date %q is not YYYY-MM-DD", ErrInvalidSession, date)
	}

	now = now.UTC()
	return &Session{
		ID:             uuid.NewString(),
		Organization:   organization,
		Assessor:       strings.TrimSpace(assessor),
		AssessmentDate: date,
		Answers:        []Answer{},
		Status:         StatusActive,
		CreatedAt:      now,
		LastModifiedAt: now,
		Version:        defaults.FormatVersion,
	}, nil
}

// Closed reports whether the session no longer accepts changes.
func (s *Session) Closed() bool {
	return s.Status == StatusFinalized || s.Status == StatusDiscarded
}

// Answer records label for questionID. Re-answering replaces the option in
// place. On error the session is left unchanged.
func (s *Session) Answer(bank QuestionSource, questionID, label string, at time.Time) error {
	if s.Closed() {
		return fmt.Errorf("%w: %s", ErrSessionClosed, s.Status)
	}
	q, ok := bank.Lookup(questionID)
	if !ok {
		return fmt.Errorf("%w: unknown question %q", ErrInvalidAnswer, questionID)
	}
	opt, ok := q.Option(label)
	if !ok {
		return fmt.Errorf("%w: %q is not an option of %s (allowed: %s)",
			ErrInvalidAnswer, label, questionID, strings.Join(q.Labels(), ", "))
	}

	at = at.UTC()
	for i := range s.Answers {
		if s.Answers[i].QuestionID == questionID {
			s.Answers[i].Option = opt.Label
			s.Answers[i].AnsweredAt = at
			s.LastModifiedAt = at
			return nil
		}
	}
	s.Answers = append(s.Answers, Answer{QuestionID: questionID, Option: opt.Label, AnsweredAt: at})
	s.LastModifiedAt = at
	return nil
}

// Clear removes the answer for questionID. It reports whether one existed.
func (s *Session) Clear(questionID string, at time.Time) (bool, error) {
	if s.Closed() {
		return false, fmt.Errorf("%w: %s", ErrSessionClosed, s.Status)
	}
	for i, a := range s.Answers {
		if a.QuestionID == questionID {
			s.Answers = append(s.Answers[:i:i], s.Answers[i+1:]...)
			s.LastModifiedAt = at.UTC()
			return true, nil
		}
	}
	return false, nil
}

// AnswerFor returns the answer recorded for questionID.
func (s *Session) AnswerFor(questionID string) (Answer, bool) {
	for _, a := range s.Answers {
		if a.QuestionID == questionID {
			return a, true
		}
	}
	return Answer{}, false
}

// Seek moves the resume cursor. Values are clamped to [0, total].
func (s *Session) Seek(cursor, total int, at time.Time) error {
	if s.Closed() {
		return fmt.Errorf("%w: %s", ErrSessionClosed, s.Status)
	}
	if cursor < 0 {
		cursor = 0
	}
	if cursor > total {
		cursor = total
	}
	if cursor != s.Cursor {
		s.Cursor = cursor
		s.LastModifiedAt = at.UTC()
	}
	return nil
}

// Progress reports answered/total for a bank of total questions.
func (s *Session) Progress(total int) Progress {
	p := Progress{Answered: len(s.Answers), Total: total}
	if total > 0 {
		p.Percent = 100 * float64(p.Answered) / float64(total)
	}
	return p
}

// Discard closes the session without a report.
func (s *Session) Discard(at time.Time) error {
	if s.Closed() {
		return fmt.Errorf("%w: %s", ErrSessionClosed, s.Status)
	}
	s.Status = StatusDiscarded
	s.LastModifiedAt = at.UTC()
	return nil
}

// Finalize closes the session after its final report was produced.
// It does not touch LastModifiedAt so the report stays reproducible.
func (s *Session) Finalize() error {
	if s.Closed() {
		return fmt.Errorf("%w: %s", ErrSessionClosed, s.Status)
	}
	s.Status = StatusFinalized
	return nil
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	c := *s
	c.Answers = append([]Answer(nil), s.Answers...)
	if c.Answers == nil {
		c.Answers = []Answer{}
	}
	return &c
}

// Validate checks a session read back from storage.
func (s *Session) Validate() error {
	if _, err := uuid.Parse(s.ID); err != nil {
		return fmt.Errorf("%w: bad session id %q", ErrInvalidSession, s.ID)
	}
	if s.Version != defaults.FormatVersion {
		return fmt.Errorf("%w: unsupported version %q", ErrInvalidSession, s.Version)
	}
	if strings.TrimSpace(s.Organization) == "" {
		return fmt.Errorf("%w: organization is required", ErrInvalidSession)
	}
	switch s.Status {
	case StatusActive, StatusFinalized, StatusDiscarded:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidSession, s.Status)
	}
	if s.Cursor < 0 {
		return fmt.Errorf("%w: negative cursor", ErrInvalidSession)
	}
	seen := make(map[string]bool, len(s.Answers))
	for _, a := range s.Answers {
		if a.QuestionID == "" {
			return fmt.Errorf("%w: answer without question id", ErrInvalidSession)
		}
		if seen[a.QuestionID] {
			return fmt.Errorf("%w: duplicate answer for %q", ErrInvalidSession, a.QuestionID)
		}
		seen[a.QuestionID] = true
	}
	return nil
}

// Prune drops answers the bank no longer knows, e.g. after a bank file
// was edited between sessions. It returns the dropped question ids.
func (s *Session) Prune(bank QuestionSource) []string {
	var dropped []string
	kept := s.Answers[:0:0]
	for _, a := range s.Answers {
		q, ok := bank.Lookup(a.QuestionID)
		if ok {
			_, ok = q.Option(a.Option)
		}
		if !ok {
			dropped = append(dropped, a.QuestionID)
			continue
		}
		kept = append(kept, a)
	}
	if dropped != nil {
		s.Answers = kept
	}
	return dropped
}
