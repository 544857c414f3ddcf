package extractor

import (
	"errors"
	"testing"

	"github.com/aabhinavcode/privacy-expense-tracker/internal/models"
)

func TestLooksLikeStatement(t *testing.T) {
	statementPage := `CIBC Dividend Visa Infinite Card
Transactions from December 15 to January 14, 2025
Your new charges and credits
Dec 18 Dec 19 TIM HORTONS #1234 OTTAWA ON Restaurants 5.25
Total for 4500 XXXX XXXX 1234 $128.70`

	tests := []struct {
		name  string
		pages []string
		want  bool
	}{
		{"real statement page", []string{statementPage}, true},
		{"empty", nil, false},
		{"too short", []string{"CIBC card"}, false},
		{
			"garbage from broken font decoding",
			[]string{"ÞÝàáâã äåæçèéêëìíîï ðñòóôõö ÷øùúûüýþÿ ÞÝàáâã äåæçèéêëìíîï ðñòóôõö"},
			false,
		},
		{
			"readable but no statement words",
			[]string{"the quick brown fox jumps over a lazy dog again and again and again"},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := looksLikeStatement(tt.pages); got != tt.want {
				t.Errorf("looksLikeStatement(%q) = %v, want %v", tt.pages, got, tt.want)
			}
		})
	}
}

func TestAsciiShare(t *testing.T) {
	if got := asciiShare([]string{"plain ascii text 123.45"}); got != 1.0 {
		t.Errorf("asciiShare(plain ascii) = %v, want 1.0", got)
	}
	if got := asciiShare(nil); got != 0 {
		t.Errorf("asciiShare(nil) = %v, want 0", got)
	}
	if got := asciiShare([]string{"ÞÝàáâãäåæç"}); got != 0 {
		t.Errorf("asciiShare(garbage) = %v, want 0", got)
	}
}

func TestExtractText_MissingFile(t *testing.T) {
	_, err := ExtractText("testdata/does-not-exist.pdf")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	var docErr *models.UnreadableDocumentError
	if !errors.As(err, &docErr) {
		t.Fatalf("error type: got %T, want *models.UnreadableDocumentError", err)
	}
	if docErr.Path != "testdata/does-not-exist.pdf" {
		t.Errorf("path: got %q", docErr.Path)
	}
}
