package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/aabhinavcode/privacy-expense-tracker/internal/models"
)

func TestMonthFromName(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Month
		ok       bool
	}{
		{"Jan", time.January, true},
		{"jan", time.January, true},
		{"DEC", time.December, true},
		{"December", time.December, true},
		{"september", time.September, true},
		{" Mar ", time.March, true},
		{"xyz", 0, false},
		{"ja", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := MonthFromName(tt.input)
			if ok != tt.ok {
				t.Fatalf("MonthFromName(%q): ok %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && got != tt.expected {
				t.Errorf("MonthFromName(%q): got %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		ref          Period
		expected     string
		wantRepaired bool
		wantErr      bool
	}{
		{
			name:     "plain date",
			raw:      "Jan 5",
			ref:      Period{Year: 2025},
			expected: "2025-01-05",
		},
		{
			name:     "lowercase month",
			raw:      "jan 5",
			ref:      Period{Year: 2025},
			expected: "2025-01-05",
		},
		{
			name:     "full month name",
			raw:      "September 1",
			ref:      Period{Year: 2025},
			expected: "2025-09-01",
		},
		{
			name:     "start month keeps the anchor year",
			raw:      "Dec 20",
			ref:      Period{StartMonth: time.December, Year: 2024},
			expected: "2024-12-20",
		},
		{
			name:     "month before the start month rolls into the next year",
			raw:      "Jan 3",
			ref:      Period{StartMonth: time.December, Year: 2024},
			expected: "2025-01-03",
		},
		{
			name:         "day past month end clamps to the last day",
			raw:          "Feb 30",
			ref:          Period{Year: 2025},
			expected:     "2025-02-28",
			wantRepaired: true,
		},
		{
			name:         "clamp respects leap years",
			raw:          "Feb 30",
			ref:          Period{Year: 2024},
			expected:     "2024-02-29",
			wantRepaired: true,
		},
		{
			name:         "thirty-one day claim on a thirty day month",
			raw:          "Apr 31",
			ref:          Period{Year: 2025},
			expected:     "2025-04-30",
			wantRepaired: true,
		},
		{name: "day zero", raw: "Jan 0", ref: Period{Year: 2025}, wantErr: true},
		{name: "unknown month", raw: "Foo 5", ref: Period{Year: 2025}, wantErr: true},
		{name: "missing day", raw: "Jan", ref: Period{Year: 2025}, wantErr: true},
		{name: "non-numeric day", raw: "Jan x", ref: Period{Year: 2025}, wantErr: true},
		{name: "empty", raw: "", ref: Period{Year: 2025}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, repaired, err := ParseDate(tt.raw, tt.ref)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				var dateErr *models.DateError
				if !errors.As(err, &dateErr) {
					t.Errorf("error type: got %T, want *models.DateError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.expected {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
			if repaired != tt.wantRepaired {
				t.Errorf("repaired: got %v, want %v", repaired, tt.wantRepaired)
			}
		})
	}
}
