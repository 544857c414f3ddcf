package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Section identifies which statement grouping a record came from.
type Section string

const (
	SectionPayment Section = "payment"
	SectionCharge  Section = "charge"
)

// Issuer represents supported statement formats.
type Issuer string

const (
	IssuerCIBC Issuer = "cibc"
)

// Date is a calendar day with no time-of-day component.
// It marshals as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate builds a Date at UTC midnight.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// Transaction is one normalized statement record. Immutable once produced
// by the parser; the natural key is always populated.
type Transaction struct {
	TransDate     Date            `json:"transDate"`
	PostDate      Date            `json:"postDate"`
	Description   string          `json:"description"`
	Category      string          `json:"category,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	City          string          `json:"city,omitempty"`
	Province      string          `json:"province,omitempty"`
	Location      string          `json:"location,omitempty"` // display form, "City PROV"
	Section       Section         `json:"section"`
	Source        string          `json:"source"`
	StatementFile string          `json:"statementFile,omitempty"`
	NaturalKey    string          `json:"naturalKey"`
}

// SkippedRow records one input row the parser could not normalize.
type SkippedRow struct {
	Page   int    `json:"page"`
	Line   string `json:"line"`
	Reason string `json:"reason"`
}

// Skip reasons used in SkippedRow and diagnostics.
const (
	SkipMalformed      = "malformed-row"
	SkipBadDate        = "bad-date"
	SkipOutsideSection = "outside-section"
)

// ParseStats summarizes what happened to every candidate row of a document.
// RowsParsed + RowsSkipped equals the number of reconstructed rows.
type ParseStats struct {
	RowsParsed            int `json:"rowsParsed"`
	RowsSkipped           int `json:"rowsSkipped"`
	SkippedMalformed      int `json:"skippedMalformed"`
	SkippedBadDate        int `json:"skippedBadDate"`
	SkippedOutsideSection int `json:"skippedOutsideSection"`
	DatesRepaired         int `json:"datesRepaired"`
	LocationsInferred     int `json:"locationsInferred"`
}

// Statement holds everything extracted from one document.
type Statement struct {
	Issuer       Issuer        `json:"issuer"`
	SourceFile   string        `json:"sourceFile,omitempty"`
	Period       string        `json:"period,omitempty"`
	Year         int           `json:"year"`
	Transactions []Transaction `json:"transactions"`
	Stats        ParseStats    `json:"stats"`
	Skipped      []SkippedRow  `json:"skipped,omitempty"`
}

// SortTransactions orders records by (trans date, post date, description),
// keeping encounter order for ties. The parser itself emits records in
// document order; exports use this when a date-sorted view is wanted.
func SortTransactions(txns []Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		a, b := txns[i], txns[j]
		if !a.TransDate.Equal(b.TransDate.Time) {
			return a.TransDate.Before(b.TransDate.Time)
		}
		if !a.PostDate.Equal(b.PostDate.Time) {
			return a.PostDate.Before(b.PostDate.Time)
		}
		return a.Description < b.Description
	})
}
