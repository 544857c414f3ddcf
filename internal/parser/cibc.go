package parser

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aabhinavcode/privacy-expense-tracker/internal/models"
	"github.com/aabhinavcode/privacy-expense-tracker/internal/normalize"
)

// CIBCParser handles CIBC credit card statement PDFs.
//
// CIBC statements group rows under section banners:
//
//	Your payments
//	  Mon D  Mon D  PAYMENT THANK YOU/PAIEMENT MERCI        500.00
//	Your new charges and credits
//	  Mon D  Mon D  MERCHANT CITY PROV   Category            12.34
//
// Dates are printed without a year; the year comes from the
// "Transactions from ... <year>" banner. Long merchant descriptions wrap,
// leaving the amount on the following line.
type CIBCParser struct {
	rules      *normalize.Rules
	period     normalize.Period
	sourceFile string
}

func (p *CIBCParser) IssuerName() string {
	return "CIBC"
}

// sourceName tags every record with its originating institution.
const sourceName = "CIBC"

// Section banners and row furniture.
const (
	paymentsStart       = "Your payments"
	paymentsTotalPrefix = "Total payments $"
	chargesStart        = "Your new charges and credits"
	totalForPrefix      = "Total for"
	cardNumberPrefix    = "Card number"
)

const (
	monthAlt = `(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)`
	datePart = monthAlt + `\s+\d{1,2}`
)

// rowPattern matches a complete transaction row: transaction date, posting
// date, body, amount. The body is lazy so the final token becomes the amount.
var rowPattern = regexp.MustCompile(
	`^(` + datePart + `)\s+(` + datePart + `)\s+(.+?)\s+(` + amountPattern + `)$`,
)

// rowLeadPattern matches the head of a row that wrapped: both dates present
// but no amount at the end of the line.
var rowLeadPattern = regexp.MustCompile(`^` + datePart + `\s+` + datePart + `(?:\s+|$)`)

// periodPattern captures the full statement period banner, e.g.
// "Transactions from December 15 to January 14, 2025".
var periodPattern = regexp.MustCompile(
	`Transactions from\s+([A-Za-z]+)\s+\d{1,2}\s+to\s+([A-Za-z]+)\s+\d{1,2},?\s+(\d{4})`,
)

// yearPattern is the fallback when only the year of the banner survives
// text extraction.
var yearPattern = regexp.MustCompile(`Transactions from .*? (\d{4})`)

// Page furniture that must never absorb into a wrapped row.
var (
	pageFooterPattern   = regexp.MustCompile(`^Page \d+ of \d+$`)
	registrationPattern = regexp.MustCompile(`^\*\d{7,}\*$`)
	docControlPattern   = regexp.MustCompile(`^-?\d{3}-\d{6,}$`)
)

func isNoise(line string) bool {
	if line == "" {
		return true
	}
	if strings.HasPrefix(line, cardNumberPrefix) || strings.HasPrefix(line, totalForPrefix) {
		return true
	}
	return pageFooterPattern.MatchString(line) ||
		registrationPattern.MatchString(line) ||
		docControlPattern.MatchString(line)
}

type cibcSection int

const (
	sectionNone cibcSection = iota
	sectionPayments
	sectionCharges
)

// pendingRow buffers the head of a wrapped row until its amount arrives.
type pendingRow struct {
	page int
	text string
}

// cibcState carries scan state across pages: the active section persists,
// a pending wrapped row does not.
type cibcState struct {
	parser  *CIBCParser
	period  normalize.Period
	section cibcSection
	pending *pendingRow
	stmt    *models.Statement
}

func (p *CIBCParser) Parse(pages []string) (*models.Statement, error) {
	period, label := p.referencePeriod(pages)

	s := &cibcState{
		parser: p,
		period: period,
		stmt: &models.Statement{
			Issuer:     models.IssuerCIBC,
			SourceFile: p.sourceFile,
			Period:     label,
			Year:       period.Year,
		},
	}

	for i, page := range pages {
		for _, raw := range strings.Split(page, "\n") {
			s.handleLine(i+1, raw)
		}
		// A row head with no amount by end of page is unrecoverable.
		s.flushPending()
	}

	return s.stmt, nil
}

// referencePeriod resolves the year anchor for the statement's year-less
// dates. An explicit period from WithReferencePeriod wins; otherwise the
// first period banner in the document decides. When the banner straddles a
// year boundary (December start, January end) the printed year belongs to
// the end month, so the anchor year is the one before it.
func (p *CIBCParser) referencePeriod(pages []string) (normalize.Period, string) {
	if p.period != (normalize.Period{}) {
		return p.period, ""
	}
	for _, page := range pages {
		if m := periodPattern.FindStringSubmatch(page); m != nil {
			start, okStart := normalize.MonthFromName(m[1])
			end, okEnd := normalize.MonthFromName(m[2])
			year, err := strconv.Atoi(m[3])
			if okStart && okEnd && err == nil {
				if start > end {
					year--
				}
				label := strings.TrimSpace(strings.TrimPrefix(m[0], "Transactions from"))
				return normalize.Period{StartMonth: start, Year: year}, label
			}
		}
		if m := yearPattern.FindStringSubmatch(page); m != nil {
			year, err := strconv.Atoi(m[1])
			if err == nil {
				return normalize.Period{Year: year}, m[1]
			}
		}
	}
	return normalize.Period{Year: time.Now().Year()}, ""
}

func (s *cibcState) handleLine(page int, raw string) {
	line := collapseSpaces(raw)

	// Section banners end any wrapped row in progress.
	switch {
	case strings.HasPrefix(line, paymentsStart):
		s.flushPending()
		s.section = sectionPayments
		return
	case strings.HasPrefix(line, chargesStart):
		s.flushPending()
		s.section = sectionCharges
		return
	case s.section == sectionPayments && strings.HasPrefix(line, paymentsTotalPrefix):
		s.flushPending()
		s.section = sectionNone
		return
	}

	if isNoise(line) {
		s.flushPending()
		return
	}

	if m := rowPattern.FindStringSubmatch(line); m != nil {
		s.flushPending()
		s.emit(page, line, m)
		return
	}

	if rowLeadPattern.MatchString(line) {
		s.flushPending()
		s.pending = &pendingRow{page: page, text: line}
		return
	}

	if s.pending != nil {
		s.pending.text += " " + line
		if m := rowPattern.FindStringSubmatch(s.pending.text); m != nil {
			row := *s.pending
			s.pending = nil
			s.emit(row.page, row.text, m)
		}
		return
	}

	// Anything else is page furniture: headings, addresses, interest tables.
}

// flushPending abandons an incomplete wrapped row as malformed.
func (s *cibcState) flushPending() {
	if s.pending == nil {
		return
	}
	row := *s.pending
	s.pending = nil
	s.skipErr(row.page, row.text, &models.MalformedRowError{Line: row.text})
}

// emit normalizes one reconstructed row. m holds the rowPattern submatches:
// transaction date, posting date, body, amount.
func (s *cibcState) emit(page int, line string, m []string) {
	if s.section == sectionNone {
		s.skip(page, line, models.SkipOutsideSection)
		return
	}

	transDate, transRepaired, err := normalize.ParseDate(m[1], s.period)
	if err != nil {
		s.skipErr(page, line, err)
		return
	}
	postDate, postRepaired, err := normalize.ParseDate(m[2], s.period)
	if err != nil {
		s.skipErr(page, line, err)
		return
	}
	amount, err := parseAmount(m[4])
	if err != nil {
		s.skipErr(page, line, &models.MalformedRowError{Line: line})
		return
	}

	rules := s.parser.rules
	txn := models.Transaction{
		TransDate:     transDate,
		PostDate:      postDate,
		Source:        sourceName,
		StatementFile: s.parser.sourceFile,
	}

	switch s.section {
	case sectionPayments:
		// Payments reduce the balance owed, so they are recorded negative
		// regardless of how the statement prints them.
		txn.Section = models.SectionPayment
		txn.Description = normalize.CleanDescription(m[3], rules)
		txn.Amount = amount.Neg()
	case sectionCharges:
		txn.Section = models.SectionCharge
		desc, category := normalize.SplitCategory(m[3], rules)
		loc := normalize.ExtractLocation(desc, rules)
		desc = normalize.StripLocation(desc, loc)
		txn.Description = normalize.CleanDescription(desc, rules)
		txn.Category = category
		txn.Amount = amount
		txn.City = loc.City
		txn.Province = loc.Province
		txn.Location = loc.Display
		if loc.Province != "" {
			s.stmt.Stats.LocationsInferred++
		}
	}

	if transRepaired {
		s.stmt.Stats.DatesRepaired++
	}
	if postRepaired {
		s.stmt.Stats.DatesRepaired++
	}

	txn.NaturalKey = models.NaturalKey(txn)
	s.stmt.Transactions = append(s.stmt.Transactions, txn)
	s.stmt.Stats.RowsParsed++
}

// skipErr records a row-local failure under the reason matching its
// error type. Row-local errors never abort the document.
func (s *cibcState) skipErr(page int, line string, err error) {
	var dateErr *models.DateError
	if errors.As(err, &dateErr) {
		s.skip(page, line, models.SkipBadDate)
		return
	}
	s.skip(page, line, models.SkipMalformed)
}

func (s *cibcState) skip(page int, line, reason string) {
	stats := &s.stmt.Stats
	stats.RowsSkipped++
	switch reason {
	case models.SkipMalformed:
		stats.SkippedMalformed++
	case models.SkipBadDate:
		stats.SkippedBadDate++
	case models.SkipOutsideSection:
		stats.SkippedOutsideSection++
	}
	s.stmt.Skipped = append(s.stmt.Skipped, models.SkippedRow{
		Page:   page,
		Line:   line,
		Reason: reason,
	})
}
