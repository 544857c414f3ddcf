package extractor

import (
	"fmt"
	"io"
	"math"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/aabhinavcode/privacy-expense-tracker/internal/models"
)

// ExtractText opens a statement PDF and returns its text layer, one string
// per page in page order. Statement PDFs vary wildly in how their text is
// encoded, so extraction walks a fallback chain and accepts the first
// result that survives the readability gate:
//
//  1. ledongthuc/pdf, several access methods (see libraryPages)
//  2. raw content-stream decoding with ToUnicode CMaps (raw.go)
//  3. the external pdftotext command, when installed
//
// When no method yields readable text the error is a
// *models.UnreadableDocumentError: fatal for this document, no partial
// pages, not retried.
func ExtractText(path string) ([]string, error) {
	pages, libErr := libraryPages(path)
	if libErr == nil && looksLikeStatement(pages) {
		return pages, nil
	}

	if raw, err := ExtractTextRaw(path); err == nil && looksLikeStatement(raw) {
		return raw, nil
	}

	if popplerPages, err := popplerExtract(path); err == nil && looksLikeStatement(popplerPages) {
		return popplerPages, nil
	}

	// Garbage text must never reach the parser.
	if libErr != nil {
		return nil, &models.UnreadableDocumentError{Path: path, Err: libErr}
	}
	return nil, &models.UnreadableDocumentError{Path: path, Err: models.ErrNoTextLayer}
}

// libraryPages drives ledongthuc/pdf. The library panics on some malformed
// font tables, so the whole call is wrapped in a recover.
func libraryPages(path string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf library panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	n := r.NumPage()
	if n == 0 {
		return nil, fmt.Errorf("document has no pages")
	}

	// Ordered by how well each method preserves the tabular layout the
	// parser depends on.
	methods := []func(*pdf.Reader, int) []string{
		pagesByRow,
		pagesByContent,
		pagesByPlainText,
	}
	for _, m := range methods {
		pages = m(r, n)
		if looksLikeStatement(pages) {
			return pages, nil
		}
	}

	// Whole-document extraction as the library's last path.
	if text := wholeDocumentText(r); looksLikeStatement([]string{text}) {
		return []string{text}, nil
	}
	return pages, nil
}

// pagesByRow uses GetTextByRow, which already groups words into lines.
func pagesByRow(r *pdf.Reader, n int) []string {
	var pages []string
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			var words []string
			for _, w := range row.Content {
				words = append(words, w.S)
			}
			if line := strings.TrimSpace(strings.Join(words, " ")); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

// pagesByContent rebuilds lines from positioned text fragments: fragments
// sharing a rounded Y coordinate form one line, ordered left to right.
// PDF Y grows upward, so lines are emitted top-down by descending Y.
func pagesByContent(r *pdf.Reader, n int) []string {
	type fragment struct {
		x float64
		s string
	}

	var pages []string
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content := page.Content()
		if len(content.Text) == 0 {
			continue
		}

		byLine := make(map[int][]fragment)
		for _, t := range content.Text {
			if strings.TrimSpace(t.S) == "" {
				continue
			}
			y := int(math.Round(t.Y))
			byLine[y] = append(byLine[y], fragment{x: t.X, s: t.S})
		}

		ys := make([]int, 0, len(byLine))
		for y := range byLine {
			ys = append(ys, y)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(ys)))

		var lines []string
		for _, y := range ys {
			frags := byLine[y]
			sort.Slice(frags, func(a, b int) bool { return frags[a].x < frags[b].x })

			var b strings.Builder
			prevX := 0.0
			for j, f := range frags {
				// A wide horizontal gap is a column boundary.
				if j > 0 && f.x-prevX > 15 {
					b.WriteString("  ")
				}
				b.WriteString(f.s)
				prevX = f.x
			}
			if line := strings.TrimSpace(b.String()); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

// pagesByPlainText uses per-page GetPlainText with the page's font map.
func pagesByPlainText(r *pdf.Reader, n int) []string {
	var pages []string
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		for _, name := range page.Fonts() {
			f := page.Font(name)
			fonts[name] = &f
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	return pages
}

// wholeDocumentText uses the reader-level GetPlainText, which takes a
// different path through the library than the per-page variant.
func wholeDocumentText(r *pdf.Reader) string {
	reader, err := r.GetPlainText()
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// popplerExtract shells out to pdftotext (poppler-utils) when available.
// Page count comes from pdfinfo so page boundaries survive.
func popplerExtract(path string) ([]string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not available: %w", err)
	}

	numPages := 1
	if out, err := exec.Command("pdfinfo", path).Output(); err == nil {
		for _, line := range strings.Split(string(out), "\n") {
			if rest, found := strings.CutPrefix(line, "Pages:"); found {
				if n, err := strconv.Atoi(strings.TrimSpace(rest)); err == nil && n > 0 {
					numPages = n
				}
			}
		}
	}

	var pages []string
	for i := 1; i <= numPages; i++ {
		p := strconv.Itoa(i)
		out, err := exec.Command("pdftotext", "-layout", "-f", p, "-l", p, path, "-").Output()
		if err != nil {
			continue
		}
		if text := strings.TrimSpace(string(out)); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) > 0 {
		return pages, nil
	}

	// Per-page runs produced nothing: one shot at the whole document.
	out, err := exec.Command("pdftotext", "-layout", path, "-").Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}
	if text := strings.TrimSpace(string(out)); text != "" {
		return []string{text}, nil
	}
	return nil, fmt.Errorf("pdftotext produced no output")
}

// statementVocab are words found on essentially every credit card
// statement. Extracted text containing none of them is garbage, typically
// from an identity-encoded font decoded without its CMap.
var statementVocab = []string{
	"card", "account", "balance", "date", "payment", "statement",
	"total", "amount", "credit", "charges", "transaction", "interest",
	"minimum", "due", "cibc", "purchases", "limit",
	"number", "page", "period",
}

// looksLikeStatement gates every extraction result: enough text, a high
// enough share of plain ASCII, and at least one statement word.
func looksLikeStatement(pages []string) bool {
	total := 0
	for _, p := range pages {
		total += len(strings.TrimSpace(p))
	}
	if total <= 50 {
		return false
	}
	if asciiShare(pages) <= 0.6 {
		return false
	}
	combined := strings.ToLower(strings.Join(pages, " "))
	for _, word := range statementVocab {
		if strings.Contains(combined, word) {
			return true
		}
	}
	return false
}

// asciiShare is the fraction of characters that are plain ASCII letters,
// digits, whitespace or common statement punctuation. Deliberately strict:
// unicode.IsLetter would admit the accented junk that broken font
// decoding produces.
func asciiShare(pages []string) float64 {
	total, readable := 0, 0
	for _, page := range pages {
		for _, r := range page {
			total++
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
				readable++
			case unicode.IsSpace(r):
				readable++
			case strings.ContainsRune(`.,-/:;()'"$%&@#!?+=*`, r), r == '£', r == '€':
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}
