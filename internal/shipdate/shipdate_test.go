package shipdate

import (
	"testing"
	"time"
)

// All cases anchor on a fixed clock: June 15, 2025.
var testNow = time.Date(2025, time.June, 15, 10, 30, 0, 0, time.UTC)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		want          string
		wantDefaulted bool
	}{
		{name: "empty defaults to tomorrow", input: "", want: "06/16/2025", wantDefaulted: true},
		{name: "whitespace only", input: "   ", want: "06/16/2025", wantDefaulted: true},
		{name: "asap lowercase", input: "asap", want: "06/16/2025", wantDefaulted: true},
		{name: "asap mixed case", input: "AsAp", want: "06/16/2025", wantDefaulted: true},
		{name: "full date", input: "12/25/2025", want: "12/25/2025"},
		{name: "dash separators", input: "12-25-2025", want: "12/25/2025"},
		{name: "two digit year 2000s", input: "3/5/26", want: "03/05/2026"},
		{name: "two digit year 1900s", input: "3/5/99", want: "03/05/1999"},
		{name: "no year future", input: "12/25", want: "12/25/2025"},
		{name: "no year past rolls forward", input: "1/10", want: "01/10/2026"},
		{name: "no year today stays", input: "6/15", want: "06/15/2025"},
		{name: "date buried in text", input: "ship by 8/1 please", want: "08/01/2025"},
		{name: "invalid month", input: "13/45", want: "06/16/2025", wantDefaulted: true},
		{name: "invalid day for month", input: "2/30/2025", want: "06/16/2025", wantDefaulted: true},
		{name: "no pattern", input: "whenever works", want: "06/16/2025", wantDefaulted: true},
		{name: "single digit padding", input: "7/4/2025", want: "07/04/2025"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, defaulted := Normalize(tt.input, testNow)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if defaulted != tt.wantDefaulted {
				t.Errorf("Normalize(%q) defaulted = %v, want %v", tt.input, defaulted, tt.wantDefaulted)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	first, defaulted := Normalize("12/25", testNow)
	if defaulted {
		t.Fatalf("Normalize(12/25) unexpectedly defaulted")
	}
	second, defaulted := Normalize(first, testNow)
	if defaulted || second != first {
		t.Errorf("Normalize(%q) = %q defaulted=%v, want unchanged", first, second, defaulted)
	}
}

func TestNormalizeLeapDayRollForward(t *testing.T) {
	// Feb 29 has passed in a leap year; next year has no Feb 29, so
	// the roll-forward cannot produce a real date.
	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	got, defaulted := Normalize("2/29", now)
	if !defaulted || got != "06/02/2024" {
		t.Errorf("Normalize(2/29) = %q defaulted=%v, want tomorrow default", got, defaulted)
	}
}
