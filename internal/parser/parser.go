package parser

import (
	"fmt"
	"strings"

	"github.com/aabhinavcode/privacy-expense-tracker/internal/models"
	"github.com/aabhinavcode/privacy-expense-tracker/internal/normalize"
)

// Parser defines the interface for statement parsers.
type Parser interface {
	// Parse takes raw text from document pages and returns normalized records.
	Parse(pages []string) (*models.Statement, error)
	// IssuerName returns the human-readable issuer name.
	IssuerName() string
}

// Option configures a parser built by New.
type Option func(*options)

type options struct {
	rules      *normalize.Rules
	period     normalize.Period
	sourceFile string
}

// WithRules overrides the built-in category/city tables.
func WithRules(r *normalize.Rules) Option {
	return func(o *options) { o.rules = r }
}

// WithReferencePeriod pins the statement period instead of deriving it
// from the document text.
func WithReferencePeriod(p normalize.Period) Option {
	return func(o *options) { o.period = p }
}

// WithSourceFile records the originating file name on every output record.
func WithSourceFile(name string) Option {
	return func(o *options) { o.sourceFile = name }
}

// New returns the appropriate parser for the given issuer.
func New(issuer models.Issuer, opts ...Option) (Parser, error) {
	o := &options{rules: normalize.DefaultRules()}
	for _, opt := range opts {
		opt(o)
	}
	switch issuer {
	case models.IssuerCIBC:
		return &CIBCParser{rules: o.rules, period: o.period, sourceFile: o.sourceFile}, nil
	default:
		return nil, fmt.Errorf("unsupported issuer: %q", issuer)
	}
}

// AutoDetect tries to identify the issuer from the document text.
func AutoDetect(pages []string) (models.Issuer, error) {
	combined := strings.Join(pages, "\n")

	if containsAny(combined, []string{"CIBC", "cibc.com", chargesStart}) {
		return models.IssuerCIBC, nil
	}

	return "", fmt.Errorf("could not auto-detect issuer from statement content; please specify -issuer")
}

func containsAny(text string, needles []string) bool {
	lower := strings.ToLower(text)
	for _, needle := range needles {
		if strings.Contains(lower, strings.ToLower(needle)) {
			return true
		}
	}
	return false
}
