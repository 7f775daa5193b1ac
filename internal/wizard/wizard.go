// Package wizard holds the three-step entry flow that assembles a
// core.Submission: trip details, participant names, then payer and amounts.
package wizard

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"tripledger/internal/core"
)

type Step int

const (
	StepDetails Step = iota + 1
	StepParticipants
	StepExpenses
)

func (s Step) String() string {
	switch s {
	case StepDetails:
		return "details"
	case StepParticipants:
		return "participants"
	case StepExpenses:
		return "expenses"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

var (
	ErrWrongStep         = errors.New("step submitted out of order")
	ErrInvalidYear       = errors.New("year must be the current or the previous year")
	ErrInvalidMonth      = errors.New("unknown month")
	ErrNegativeIncome    = errors.New("total income cannot be negative")
	ErrNoPersons         = errors.New("number of persons must be at least 1")
	ErrParticipantsCount = errors.New("participant names do not match number of persons")
)

type (
	Details struct {
		Year        int    `json:"year"`
		Month       string `json:"month"`
		TotalIncome int64  `json:"total_income"`
		NumPersons  int    `json:"num_persons"`
	}

	// Expenses is the last step. Amounts is keyed by participant then category
	// name; Extras holds each participant's uncategorized spend.
	Expenses struct {
		Payer   string                      `json:"payer"`
		Amounts map[string]map[string]int64 `json:"amounts"`
		Extras  map[string]int64            `json:"extras"`
		Comment string                      `json:"comment"`
	}

	// View is a read-only copy of a session's progress.
	View struct {
		ID           string      `json:"id"`
		Step         Step        `json:"step"`
		StepName     string      `json:"step_name"`
		Period       core.Period `json:"period,omitempty"`
		TotalIncome  int64       `json:"total_income"`
		NumPersons   int         `json:"num_persons"`
		Participants []string    `json:"participants"`
	}
)

// Session is one user's progress through the flow. It is safe for concurrent use.
type Session struct {
	mu           sync.Mutex
	id           string
	step         Step
	period       core.Period
	totalIncome  int64
	numPersons   int
	participants []string
}

func NewSession(id string) *Session {
	return &Session{id: id, step: StepDetails, numPersons: 1}
}

func (s *Session) ID() string {
	return s.id
}

// Years lists the selectable years relative to now: this year and last year.
func Years(now time.Time) []int {
	return []int{now.Year(), now.Year() - 1}
}

// SubmitDetails records step one and moves to participant names.
func (s *Session) SubmitDetails(d Details, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepDetails {
		return fmt.Errorf("%w: at %s, got details", ErrWrongStep, s.step)
	}
	if !validYear(d.Year, now) {
		return fmt.Errorf("%w: %d", ErrInvalidYear, d.Year)
	}
	month, ok := core.ParseMonth(d.Month)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidMonth, d.Month)
	}
	if d.TotalIncome < 0 {
		return ErrNegativeIncome
	}
	if d.NumPersons < 1 {
		return ErrNoPersons
	}

	s.period = core.NewPeriod(d.Year, month)
	s.totalIncome = d.TotalIncome
	s.numPersons = d.NumPersons
	s.participants = nil
	s.step = StepParticipants
	return nil
}

func validYear(year int, now time.Time) bool {
	for _, y := range Years(now) {
		if y == year {
			return true
		}
	}
	return false
}

// SubmitParticipants takes exactly as many names as declared in the details step.
func (s *Session) SubmitParticipants(names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepParticipants {
		return fmt.Errorf("%w: at %s, got participants", ErrWrongStep, s.step)
	}
	if len(names) != s.numPersons {
		return fmt.Errorf("%w: want %d, got %d", ErrParticipantsCount, s.numPersons, len(names))
	}

	cleaned := make([]string, len(names))
	seen := make(map[string]struct{}, len(names))
	for i, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			return core.ErrEmptyParticipant
		}
		if _, dup := seen[n]; dup {
			return fmt.Errorf("%w: %q", core.ErrDuplicateParticipant, n)
		}
		seen[n] = struct{}{}
		cleaned[i] = n
	}

	s.participants = cleaned
	s.step = StepExpenses
	return nil
}

// Submission assembles the final bundle without advancing the session, so a
// failed save can be retried. Call Reset once it is persisted.
func (s *Session) Submission(e Expenses) (core.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepExpenses {
		return core.Submission{}, fmt.Errorf("%w: at %s, got expenses", ErrWrongStep, s.step)
	}

	amounts := make(map[string]map[string]int64, len(s.participants))
	for _, p := range s.participants {
		amounts[p] = make(map[string]int64, len(core.Categories)+1)
	}
	for person, byCategory := range e.Amounts {
		if _, ok := amounts[person]; !ok {
			return core.Submission{}, fmt.Errorf("%w: %q", core.ErrUnknownParticipant, person)
		}
		for c, v := range byCategory {
			amounts[person][c] = v
		}
	}
	for person, v := range e.Extras {
		if _, ok := amounts[person]; !ok {
			return core.Submission{}, fmt.Errorf("%w: %q", core.ErrUnknownParticipant, person)
		}
		amounts[person][core.ExtraKey] = v
	}

	sub := core.Submission{
		Period:       s.period,
		TotalIncome:  s.totalIncome,
		Participants: append([]string(nil), s.participants...),
		Payer:        e.Payer,
		Amounts:      amounts,
		Comment:      e.Comment,
	}
	if err := sub.Validate(); err != nil {
		return core.Submission{}, err
	}
	return sub, nil
}

// Reset returns the session to the first step. Called after a successful save
// or to abandon an entry.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step = StepDetails
	s.period = ""
	s.totalIncome = 0
	s.numPersons = 1
	s.participants = nil
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		ID:           s.id,
		Step:         s.step,
		StepName:     s.step.String(),
		Period:       s.period,
		TotalIncome:  s.totalIncome,
		NumPersons:   s.numPersons,
		Participants: append([]string{}, s.participants...),
	}
}
