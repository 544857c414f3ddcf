package extractor

import (
	"bytes"
	"compress/zlib"
	"encoding/hex"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/aabhinavcode/privacy-expense-tracker/internal/models"
)

// ExtractTextRaw is a fallback PDF text extractor that works directly with
// the raw PDF byte stream. It does not rely on the ledongthuc/pdf library.
//
// Statement PDFs with custom font encodings (CIDFont/Type0) defeat the
// structured library; this path handles them by:
//  1. Finding all ToUnicode CMap streams and building character mappings
//  2. Finding content streams with text operators (Tj, TJ)
//  3. Decoding both literal strings (...) and hex strings <...>
//  4. Applying CMap translations to produce readable Unicode text
func ExtractTextRaw(filePath string) ([]string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	streams := contentStreams(data)
	if len(streams) == 0 {
		return nil, models.ErrNoTextLayer
	}

	var cmap *CMap
	if cmaps := FindCMaps(data); len(cmaps) > 0 {
		cmap = MergeCMaps(cmaps)
	}

	var texts []string
	for _, stream := range streams {
		text := streamText(inflate(stream), cmap)
		if text != "" {
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		return nil, models.ErrNoTextLayer
	}

	// Raw streams carry no page boundaries. Everything becomes one page;
	// the parser's section tracking does not depend on pagination.
	return []string{strings.Join(texts, "\n")}, nil
}

// contentStreams finds all stream...endstream blocks in the PDF.
func contentStreams(data []byte) [][]byte {
	var streams [][]byte
	streamMarker := []byte("stream")
	endMarker := []byte("endstream")

	offset := 0
	for offset < len(data) {
		idx := bytes.Index(data[offset:], streamMarker)
		if idx < 0 {
			break
		}
		start := offset + idx + len(streamMarker)

		// Skip \r\n or \n after "stream"
		if start < len(data) && data[start] == '\r' {
			start++
		}
		if start < len(data) && data[start] == '\n' {
			start++
		}

		endIdx := bytes.Index(data[start:], endMarker)
		if endIdx < 0 {
			break
		}

		if stream := data[start : start+endIdx]; len(stream) > 0 {
			streams = append(streams, stream)
		}
		offset = start + endIdx + len(endMarker)
	}
	return streams
}

// inflate attempts zlib decompression; returns original data if it fails.
func inflate(data []byte) []byte {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return data
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return data
	}
	return out
}

// Patterns for PDF text operators.
var (
	hexTjPattern   = regexp.MustCompile(`<([0-9A-Fa-f]+)>\s*Tj`)
	litTjPattern   = regexp.MustCompile(`\(([^)]*)\)\s*Tj`)
	tjArrayPattern = regexp.MustCompile(`\[([^\]]*)\]\s*TJ`)
	hexInArrayRe   = regexp.MustCompile(`<([0-9A-Fa-f]+)>`)
	litInArrayRe   = regexp.MustCompile(`\(([^)]*)\)`)
	tickPattern    = regexp.MustCompile(`\(([^)]*)\)\s*'`)
	// Td/TD text positioning; each one starts a new output line
	tdPattern = regexp.MustCompile(`([\d.\-]+)\s+([\d.\-]+)\s+T[dD]`)
)

// streamText parses a PDF content stream and extracts its text.
func streamText(data []byte, cmap *CMap) string {
	content := string(data)

	if !strings.Contains(content, "Tj") && !strings.Contains(content, "TJ") &&
		!strings.Contains(content, "BT") {
		return ""
	}

	var lines []string
	for _, block := range textBlocks(content) {
		lines = append(lines, blockLines(block, cmap)...)
	}

	// No BT blocks found: fall back to order-insensitive extraction
	if len(lines) == 0 {
		if text := looseText(content, cmap); text != "" {
			lines = append(lines, text)
		}
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// textBlocks extracts content between BT and ET operators.
func textBlocks(content string) []string {
	var blocks []string
	remaining := content
	for {
		btIdx := strings.Index(remaining, "BT")
		if btIdx < 0 {
			break
		}
		etIdx := strings.Index(remaining[btIdx:], "ET")
		if etIdx < 0 {
			break
		}
		blocks = append(blocks, remaining[btIdx:btIdx+etIdx+2])
		remaining = remaining[btIdx+etIdx+2:]
	}
	return blocks
}

// lineAssembler accumulates decoded fragments into output lines.
type lineAssembler struct {
	lines   []string
	current strings.Builder
}

func (a *lineAssembler) add(text string) {
	a.current.WriteString(text)
}

func (a *lineAssembler) breakLine() {
	if line := strings.TrimSpace(a.current.String()); line != "" {
		a.lines = append(a.lines, line)
	}
	a.current.Reset()
}

// blockLines extracts lines of text from a BT...ET block. Positioning
// operators (Td, TD, T*, ') mark line breaks.
func blockLines(block string, cmap *CMap) []string {
	var a lineAssembler

	for _, op := range strings.Split(block, "\n") {
		op = strings.TrimSpace(op)

		if tdPattern.MatchString(op) || op == "T*" {
			a.breakLine()
		}

		for _, m := range hexTjPattern.FindAllStringSubmatch(op, -1) {
			a.add(decodeHexString(m[1], cmap))
		}
		for _, m := range litTjPattern.FindAllStringSubmatch(op, -1) {
			a.add(decodeLiteralString(m[1], cmap))
		}
		for _, m := range tjArrayPattern.FindAllStringSubmatch(op, -1) {
			a.add(decodeTJArray(m[1], cmap))
		}
		for _, m := range tickPattern.FindAllStringSubmatch(op, -1) {
			a.breakLine()
			a.add(decodeLiteralString(m[1], cmap))
		}
	}

	a.breakLine()
	return a.lines
}

// looseText extracts all text from content without BT/ET block structure.
func looseText(content string, cmap *CMap) string {
	var parts []string

	for _, m := range hexTjPattern.FindAllStringSubmatch(content, -1) {
		if text := decodeHexString(m[1], cmap); text != "" {
			parts = append(parts, text)
		}
	}
	for _, m := range litTjPattern.FindAllStringSubmatch(content, -1) {
		if text := decodeLiteralString(m[1], cmap); text != "" {
			parts = append(parts, text)
		}
	}
	for _, m := range tjArrayPattern.FindAllStringSubmatch(content, -1) {
		if text := decodeTJArray(m[1], cmap); text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " ")
}

// decodeHexString decodes a hex-encoded PDF string using CMap if available.
func decodeHexString(hexStr string, cmap *CMap) string {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return ""
	}

	if cmap != nil && cmap.Len() > 0 {
		if result := cmap.Decode(raw); result != "" {
			return result
		}
	}

	// Fallback: try as direct UTF-16BE
	if len(raw)%2 == 0 && len(raw) >= 2 {
		var result strings.Builder
		for i := 0; i+1 < len(raw); i += 2 {
			cp := rune(raw[i])<<8 | rune(raw[i+1])
			if unicode.IsPrint(cp) || cp == ' ' {
				result.WriteRune(cp)
			}
		}
		if result.Len() > 0 {
			return result.String()
		}
	}

	// Last resort: treat as ASCII
	return cleanString(string(raw))
}

// decodeLiteralString decodes a literal PDF string using CMap if available.
func decodeLiteralString(s string, cmap *CMap) string {
	decoded := unescapeLiteral(s)

	if cmap != nil && cmap.Len() > 0 {
		if result := cmap.Decode([]byte(decoded)); result != "" && isPrintable(result) {
			return result
		}
	}

	return cleanString(decoded)
}

// decodeTJArray decodes a TJ array, which mixes strings with kerning numbers.
func decodeTJArray(arrayContent string, cmap *CMap) string {
	type fragment struct {
		pos   int
		isHex bool
		body  string
	}
	var frags []fragment

	for _, idx := range hexInArrayRe.FindAllStringSubmatchIndex(arrayContent, -1) {
		frags = append(frags, fragment{pos: idx[0], isHex: true, body: arrayContent[idx[2]:idx[3]]})
	}
	for _, idx := range litInArrayRe.FindAllStringSubmatchIndex(arrayContent, -1) {
		frags = append(frags, fragment{pos: idx[0], body: arrayContent[idx[2]:idx[3]]})
	}
	sort.Slice(frags, func(i, j int) bool { return frags[i].pos < frags[j].pos })

	var parts []string
	for _, f := range frags {
		var text string
		if f.isHex {
			text = decodeHexString(f.body, cmap)
		} else {
			text = decodeLiteralString(f.body, cmap)
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "")
}

// unescapeLiteral handles basic PDF string escape sequences.
func unescapeLiteral(s string) string {
	var buf strings.Builder
	i := 0
	for i < len(s) {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case '(':
				buf.WriteByte('(')
			case ')':
				buf.WriteByte(')')
			case '\\':
				buf.WriteByte('\\')
			default:
				if s[i] >= '0' && s[i] <= '7' {
					val := int(s[i] - '0')
					for j := 1; j < 3 && i+j < len(s) && s[i+j] >= '0' && s[i+j] <= '7'; j++ {
						val = val*8 + int(s[i+j]-'0')
						i++
					}
					if val >= 0 && val < 256 {
						buf.WriteByte(byte(val))
					}
				} else {
					buf.WriteByte(s[i])
				}
			}
		} else {
			buf.WriteByte(s[i])
		}
		i++
	}
	return buf.String()
}

// cleanString removes non-printable characters.
func cleanString(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		return -1
	}, s))
}

// isPrintable checks if a string contains mostly printable characters.
func isPrintable(s string) bool {
	if len(s) == 0 {
		return false
	}
	printable := 0
	for _, r := range s {
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' || r == ' ' {
			printable++
		}
	}
	return float64(printable)/float64(len([]rune(s))) > 0.5
}
