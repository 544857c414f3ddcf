package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aabhinavcode/privacy-expense-tracker/internal/models"
	"github.com/aabhinavcode/privacy-expense-tracker/internal/normalize"
)

func TestAutoDetect(t *testing.T) {
	tests := []struct {
		name     string
		pages    []string
		expected models.Issuer
		wantErr  bool
	}{
		{
			name:     "detects CIBC by name",
			pages:    []string{"CIBC Dividend Visa Infinite Card\nTransactions from December 15 to January 14, 2025"},
			expected: models.IssuerCIBC,
		},
		{
			name:     "detects CIBC by website",
			pages:    []string{"Contact us at www.cibc.com or 1 800 465-4653"},
			expected: models.IssuerCIBC,
		},
		{
			name:     "detects CIBC by section banner",
			pages:    []string{"Your new charges and credits\nJan 3 Jan 5 TIM HORTONS OTTAWA ON 5.25"},
			expected: models.IssuerCIBC,
		},
		{
			name:    "unknown issuer returns error",
			pages:   []string{"Some Unknown Bank\nStatement"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AutoDetect(tt.pages)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		issuer   models.Issuer
		wantName string
		wantErr  bool
	}{
		{models.IssuerCIBC, "CIBC", false},
		{"unknown", "", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.issuer), func(t *testing.T) {
			p, err := New(tt.issuer)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.IssuerName() != tt.wantName {
				t.Errorf("got %q, want %q", p.IssuerName(), tt.wantName)
			}
		})
	}
}

func TestNew_WithRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := "categories:\n  - Groceries\ncities:\n  - SPRINGFIELD\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write rules file: %v", err)
	}
	rules, err := normalize.LoadRules(path)
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}

	p, err := New(models.IssuerCIBC,
		WithRules(rules),
		WithReferencePeriod(normalize.Period{Year: 2025}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stmt, err := p.Parse([]string{
		"Your new charges and credits\nJan 3 Jan 5 CORNER SHOP SPRINGFIELD ON Groceries 9.99",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stmt.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(stmt.Transactions))
	}
	txn := stmt.Transactions[0]
	if txn.Category != "Groceries" {
		t.Errorf("category: got %q, want Groceries", txn.Category)
	}
	if txn.City != "SPRINGFIELD" {
		t.Errorf("city: got %q, want SPRINGFIELD", txn.City)
	}
	if txn.Description != "CORNER SHOP" {
		t.Errorf("description: got %q, want CORNER SHOP", txn.Description)
	}
}
