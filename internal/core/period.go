package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period groups ledger rows of one trip, keyed as "<year>_<MonthName>" (e.g. "2024_March").
type Period string

var ErrInvalidPeriod = errors.New("invalid period")

// NewPeriod composes the period key for a year and month.
func NewPeriod(year int, month time.Month) Period {
	return Period(fmt.Sprintf("%d_%s", year, month.String()))
}

// ParsePeriod validates s and returns it in canonical form ("2024_march" becomes "2024_March").
func ParsePeriod(s string) (Period, error) {
	year, month, err := Period(strings.TrimSpace(s)).parts()
	if err != nil {
		return "", err
	}
	return NewPeriod(year, month), nil
}

// Canonical returns the key as ParsePeriod would, or p unchanged when it is malformed.
// Stores and caches key periods by their canonical form only.
func (p Period) Canonical() Period {
	c, err := ParsePeriod(string(p))
	if err != nil {
		return p
	}
	return c
}

// Validate checks the year and month name parts of the key.
func (p Period) Validate() error {
	_, _, err := p.parts()
	return err
}

// Year returns the year part, or 0 for a malformed key.
func (p Period) Year() int {
	y, _, _ := p.parts()
	return y
}

// Month returns the month part, or 0 for a malformed key.
func (p Period) Month() time.Month {
	_, m, _ := p.parts()
	return m
}

func (p Period) String() string {
	return string(p)
}

func (p Period) parts() (int, time.Month, error) {
	yearStr, monthStr, ok := strings.Cut(string(p), "_")
	if !ok {
		return 0, 0, fmt.Errorf("%w %q: expected <year>_<Month>", ErrInvalidPeriod, string(p))
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil || year < 1 || year > 9999 {
		return 0, 0, fmt.Errorf("%w %q: bad year", ErrInvalidPeriod, string(p))
	}
	month, ok := ParseMonth(monthStr)
	if !ok {
		return 0, 0, fmt.Errorf("%w %q: bad month name", ErrInvalidPeriod, string(p))
	}
	return year, month, nil
}

// ParseMonth resolves an English month name, case-insensitively.
func ParseMonth(name string) (time.Month, bool) {
	name = strings.TrimSpace(name)
	for m := time.January; m <= time.December; m++ {
		if strings.EqualFold(name, m.String()) {
			return m, true
		}
	}
	return 0, false
}

// MonthNames returns January..December.
func MonthNames() []string {
	names := make([]string, 0, 12)
	for m := time.January; m <= time.December; m++ {
		names = append(names, m.String())
	}
	return names
}
