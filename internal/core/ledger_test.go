package core

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestParsePeriod(t *testing.T) {
	cases := []struct {
		in   string
		want Period
		ok   bool
	}{
		{"2024_March", "2024_March", true},
		{"2024_march", "2024_March", true},
		{" 2023_December ", "2023_December", true},
		{"2024-March", "", false},
		{"2024_Marzo", "", false},
		{"abcd_March", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParsePeriod(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.want, got, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidPeriod) {
			t.Fatalf("%q expected ErrInvalidPeriod, got %v", tc.in, err)
		}
	}
}

func TestPeriodCanonical(t *testing.T) {
	cases := map[Period]Period{
		"2024_march":   "2024_March",
		"2024_MARCH":   "2024_March",
		"2024_March":   "2024_March",
		"not-a-period": "not-a-period",
		" 2023_july ":  "2023_July",
	}
	for in, want := range cases {
		if got := in.Canonical(); got != want {
			t.Errorf("%q.Canonical() = %q, want %q", in, got, want)
		}
	}
}

func TestSubmissionRowsUseCanonicalPeriod(t *testing.T) {
	s := validSubmission()
	s.Period = "2024_march"
	for _, r := range s.Rows("b", time.Now()) {
		if r.Period != "2024_March" {
			t.Fatalf("row period = %q, want 2024_March", r.Period)
		}
	}
}

func TestNewPeriodParts(t *testing.T) {
	p := NewPeriod(2024, time.March)
	if p != "2024_March" {
		t.Fatalf("unexpected period %q", p)
	}
	if p.Year() != 2024 || p.Month() != time.March {
		t.Fatalf("unexpected parts: %d %v", p.Year(), p.Month())
	}
}

func TestParseCategory(t *testing.T) {
	for _, in := range []string{"Food and Drinks", "food_drinks", "FOOD AND DRINKS"} {
		c, ok := ParseCategory(in)
		if !ok || c != FoodAndDrinks {
			t.Fatalf("%q expected FoodAndDrinks, got %q ok=%v", in, c, ok)
		}
	}
	if _, ok := ParseCategory("Fuel"); ok {
		t.Fatalf("expected unknown category")
	}
}

func validSubmission() Submission {
	return Submission{
		Period:       "2024_March",
		TotalIncome:  1000,
		Participants: []string{"A", "B"},
		Payer:        "A",
		Amounts: map[string]map[string]int64{
			"A": {"Food and Drinks": 100},
			"B": {"Food and Drinks": 50, "transport": 20},
		},
		Comment: "lake trip",
	}
}

func TestSubmissionValidate(t *testing.T) {
	if err := validSubmission().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Submission)
		want   error
	}{
		{"bad period", func(s *Submission) { s.Period = "March" }, ErrInvalidPeriod},
		{"negative income", func(s *Submission) { s.TotalIncome = -1 }, ErrNegativeIncome},
		{"no participants", func(s *Submission) { s.Participants = nil }, ErrNoParticipants},
		{"blank name", func(s *Submission) { s.Participants = []string{"A", " "} }, ErrEmptyParticipant},
		{"duplicate name", func(s *Submission) { s.Participants = []string{"A", "A"} }, ErrDuplicateParticipant},
		{"payer not participant", func(s *Submission) { s.Payer = "C" }, ErrUnknownPayer},
		{"amounts for stranger", func(s *Submission) { s.Amounts["C"] = map[string]int64{"Shopping": 1} }, ErrUnknownParticipant},
		{"unknown category", func(s *Submission) { s.Amounts["A"]["Fuel"] = 1 }, ErrUnknownCategory},
		{"negative amount", func(s *Submission) { s.Amounts["B"]["Shopping"] = -5 }, ErrNegativeAmount},
		{"total overflows", func(s *Submission) { s.Amounts["A"]["Shopping"] = math.MaxInt64 }, ErrAmountTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := validSubmission()
			tc.mutate(&s)
			if err := s.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestSubmissionRows(t *testing.T) {
	s := validSubmission()
	s.Amounts["B"]["extra"] = 7
	at := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	rows := s.Rows("batch-1", at)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	for _, r := range rows {
		if r.BatchID != "batch-1" || !r.CreatedAt.Equal(at) {
			t.Fatalf("row not stamped with batch: %+v", r)
		}
		if r.TotalIncome != 1000 || r.Payer != "A" || r.Comment != "lake trip" || r.Period != "2024_March" {
			t.Fatalf("shared fields not copied: %+v", r)
		}
		if len(r.Amounts) != len(Categories) {
			t.Fatalf("expected every category present, got %v", r.Amounts)
		}
	}
	a, b := rows[0], rows[1]
	if a.Name != "A" || a.Total() != 100 || a.Amount(Shopping) != 0 {
		t.Fatalf("unexpected row A: %+v", a)
	}
	if b.Name != "B" || b.Amount(Transport) != 20 || b.Extra != 7 || b.Total() != 77 {
		t.Fatalf("unexpected row B: %+v", b)
	}
}

func TestCoerceAmount(t *testing.T) {
	cases := []struct {
		in  any
		out int64
	}{
		{int64(120), 120},
		{42, 42},
		{"45", 45},
		{" 12.9 ", 12},
		{[]byte("30"), 30},
		{float64(9.99), 9},
		{"abc", 0},
		{"", 0},
		{nil, 0},
		{int64(-5), 0},
		{"-3", 0},
		{struct{}{}, 0},
	}
	for _, tc := range cases {
		if got := CoerceAmount(tc.in); got != tc.out {
			t.Fatalf("CoerceAmount(%#v) = %d, want %d", tc.in, got, tc.out)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount("", 12500); got != "RS 12,500" {
		t.Fatalf("unexpected format %q", got)
	}
	if got := FormatAmount("EUR", 830); got != "EUR 830" {
		t.Fatalf("unexpected format %q", got)
	}
}
