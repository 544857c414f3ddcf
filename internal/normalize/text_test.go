package normalize

import (
	"testing"
)

func TestCleanDescription(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		input    string
		expected string
	}{
		{"  Tim   Hortons #1234 ", "TIM HORTONS #1234"},
		{"amazon.ca marketplace", "AMAZON.CA MARKETPLACE"},
		{"ALREADY CLEAN", "ALREADY CLEAN"},
		{"tabs\tand\nnewlines", "TABS AND NEWLINES"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := CleanDescription(tt.input, rules)
			if got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
			// Cleaning is idempotent.
			if again := CleanDescription(got, rules); again != got {
				t.Errorf("not idempotent: %q became %q", got, again)
			}
		})
	}
}

func TestCleanDescription_CleanupPatterns(t *testing.T) {
	rules := &Rules{CleanupPatterns: []string{`\s*#\d+$`}}
	if err := rules.compile(); err != nil {
		t.Fatalf("compile: %v", err)
	}

	got := CleanDescription("Tim Hortons #1234", rules)
	if got != "TIM HORTONS" {
		t.Errorf("got %q, want %q", got, "TIM HORTONS")
	}
	if again := CleanDescription(got, rules); again != got {
		t.Errorf("not idempotent: %q became %q", got, again)
	}
}

func TestSplitCategory(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		body         string
		wantDesc     string
		wantCategory string
	}{
		{
			body:         "TIM HORTONS #1234 OTTAWA ON Restaurants",
			wantDesc:     "TIM HORTONS #1234 OTTAWA ON",
			wantCategory: "Restaurants",
		},
		{
			body:         "CDN TIRE STORE #00329 Personal and Household Expenses",
			wantDesc:     "CDN TIRE STORE #00329",
			wantCategory: "Personal and Household Expenses",
		},
		{
			// Suffix match is case-insensitive; the canonical name is returned.
			body:         "PIZZA PIZZA OTTAWA ON RESTAURANTS",
			wantDesc:     "PIZZA PIZZA OTTAWA ON",
			wantCategory: "Restaurants",
		},
		{
			// Whitespace runs collapse before matching.
			body:         "A  B   Restaurants",
			wantDesc:     "A B",
			wantCategory: "Restaurants",
		},
		{
			body:         "PAYMENT THANK YOU/PAIEMENT MERCI",
			wantDesc:     "PAYMENT THANK YOU/PAIEMENT MERCI",
			wantCategory: "",
		},
		{
			body:         "Restaurants",
			wantDesc:     "",
			wantCategory: "Restaurants",
		},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			desc, category := SplitCategory(tt.body, rules)
			if desc != tt.wantDesc {
				t.Errorf("desc: got %q, want %q", desc, tt.wantDesc)
			}
			if category != tt.wantCategory {
				t.Errorf("category: got %q, want %q", category, tt.wantCategory)
			}
		})
	}
}
