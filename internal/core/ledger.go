package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

type (
	// LedgerRow is one persisted record of a participant's contribution to a period.
	// TotalIncome, Payer and Comment are shared by every row of the same batch.
	LedgerRow struct {
		ID          int64
		Period      Period
		BatchID     string
		TotalIncome int64
		Name        string
		Payer       string
		Amounts     map[Category]int64
		Extra       int64
		Comment     string
		CreatedAt   time.Time
	}

	// Submission is the bundle collected by the entry flow for one period.
	// Amounts is keyed by participant, then by category name or ExtraKey.
	Submission struct {
		Period       Period                      `json:"period"`
		TotalIncome  int64                       `json:"total_income"`
		Participants []string                    `json:"participants"`
		Payer        string                      `json:"payer"`
		Amounts      map[string]map[string]int64 `json:"per_participant_category_amounts"`
		Comment      string                      `json:"comment"`
	}
)

var (
	ErrNegativeIncome       = errors.New("total income cannot be negative")
	ErrNoParticipants       = errors.New("at least one participant is required")
	ErrEmptyParticipant     = errors.New("participant name cannot be empty")
	ErrDuplicateParticipant = errors.New("duplicate participant name")
	ErrUnknownPayer         = errors.New("payer must be one of the participants")
	ErrUnknownParticipant   = errors.New("amounts given for unknown participant")
	ErrUnknownCategory      = errors.New("unknown category")
	ErrNegativeAmount       = errors.New("amounts cannot be negative")
	ErrAmountTooLarge       = errors.New("amounts add up to more than can be stored")
)

// Amount returns the row's amount for c, zero when absent.
func (r LedgerRow) Amount(c Category) int64 {
	return r.Amounts[c]
}

// Total is the participant's whole contribution: every category plus extra.
func (r LedgerRow) Total() int64 {
	total := r.Extra
	for _, v := range r.Amounts {
		total += v
	}
	return total
}

// Validate checks the submission invariants before anything is persisted.
func (s Submission) Validate() error {
	if err := s.Period.Validate(); err != nil {
		return err
	}
	if s.TotalIncome < 0 {
		return ErrNegativeIncome
	}
	if len(s.Participants) == 0 {
		return ErrNoParticipants
	}
	seen := make(map[string]struct{}, len(s.Participants))
	for _, name := range s.Participants {
		if strings.TrimSpace(name) == "" {
			return ErrEmptyParticipant
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateParticipant, name)
		}
		seen[name] = struct{}{}
	}
	if _, ok := seen[s.Payer]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPayer, s.Payer)
	}
	// Every amount is non-negative, so bounding the grand total bounds each
	// participant's total and the period's total expense as well.
	var sum int64
	for name, amounts := range s.Amounts {
		if _, ok := seen[name]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownParticipant, name)
		}
		for key, v := range amounts {
			if v < 0 {
				return fmt.Errorf("%w: %s/%s", ErrNegativeAmount, name, key)
			}
			if v > math.MaxInt64-sum {
				return fmt.Errorf("%w: %s/%s", ErrAmountTooLarge, name, key)
			}
			sum += v
			if strings.EqualFold(key, ExtraKey) {
				continue
			}
			if _, ok := ParseCategory(key); !ok {
				return fmt.Errorf("%w: %q", ErrUnknownCategory, key)
			}
		}
	}
	return nil
}

// Rows expands the submission into one row per participant, all stamped with
// the same batch ID and creation time. Missing categories default to zero.
func (s Submission) Rows(batchID string, createdAt time.Time) []LedgerRow {
	rows := make([]LedgerRow, 0, len(s.Participants))
	for _, name := range s.Participants {
		row := LedgerRow{
			Period:      s.Period.Canonical(),
			BatchID:     batchID,
			TotalIncome: s.TotalIncome,
			Name:        name,
			Payer:       s.Payer,
			Amounts:     make(map[Category]int64, len(Categories)),
			Comment:     s.Comment,
			CreatedAt:   createdAt,
		}
		for _, c := range Categories {
			row.Amounts[c] = 0
		}
		for key, v := range s.Amounts[name] {
			if strings.EqualFold(key, ExtraKey) {
				row.Extra += v
				continue
			}
			if c, ok := ParseCategory(key); ok {
				row.Amounts[c] += v
			}
		}
		rows = append(rows, row)
	}
	return rows
}
