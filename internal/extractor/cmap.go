package extractor

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
)

// CMap maps font character codes to Unicode text. Statement PDFs commonly
// use CIDFont/Type0 fonts whose glyph codes mean nothing without the
// ToUnicode CMap stream; the raw extractor applies these mappings to turn
// content-stream bytes back into readable text.
type CMap struct {
	// codes is keyed by the uppercase hex form of a character code.
	codes map[string]string
}

// Len reports the number of code mappings.
func (cm *CMap) Len() int { return len(cm.codes) }

var (
	bfCharBlockRe  = regexp.MustCompile(`(?s)beginbfchar\s*(.*?)\s*endbfchar`)
	bfRangeBlockRe = regexp.MustCompile(`(?s)beginbfrange\s*(.*?)\s*endbfrange`)
	hexTokenRe     = regexp.MustCompile(`<([0-9A-Fa-f]+)>`)
)

// ParseCMap reads the bfchar and bfrange sections of a ToUnicode stream.
func ParseCMap(content string) *CMap {
	cm := &CMap{codes: make(map[string]string)}
	for _, block := range bfCharBlockRe.FindAllStringSubmatch(content, -1) {
		cm.addChars(block[1])
	}
	for _, block := range bfRangeBlockRe.FindAllStringSubmatch(content, -1) {
		cm.addRanges(block[1])
	}
	return cm
}

// addChars handles "<src> <dst>" pairs from a bfchar block.
func (cm *CMap) addChars(body string) {
	tokens := hexTokenRe.FindAllStringSubmatch(body, -1)
	for i := 0; i+1 < len(tokens); i += 2 {
		if uni := hexToText(tokens[i+1][1]); uni != "" {
			cm.codes[strings.ToUpper(tokens[i][1])] = uni
		}
	}
}

// addRanges handles bfrange lines, either "<start> <end> <dstStart>" or
// "<start> <end> [<dst> <dst> ...]" with per-code destinations.
func (cm *CMap) addRanges(body string) {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if bracket := strings.Index(line, "["); bracket >= 0 {
			cm.addArrayRange(line[:bracket], line[bracket:])
			continue
		}

		tokens := hexTokenRe.FindAllStringSubmatch(line, -1)
		if len(tokens) < 3 {
			continue
		}
		startHex, endHex, dstHex := tokens[0][1], tokens[1][1], tokens[2][1]
		start, end, dst := hexValue(startHex), hexValue(endHex), hexValue(dstHex)
		if start < 0 || end < 0 || dst < 0 {
			continue
		}
		for code := start; code <= end; code++ {
			uni := hexToText(paddedHex(dst+(code-start), len(dstHex)))
			if uni != "" {
				cm.codes[paddedHex(code, len(startHex))] = uni
			}
		}
	}
}

func (cm *CMap) addArrayRange(head, array string) {
	tokens := hexTokenRe.FindAllStringSubmatch(head, -1)
	if len(tokens) < 2 {
		return
	}
	startHex := tokens[0][1]
	start := hexValue(startHex)
	for i, dst := range hexTokenRe.FindAllStringSubmatch(array, -1) {
		if uni := hexToText(dst[1]); uni != "" {
			cm.codes[paddedHex(start+i, len(startHex))] = uni
		}
	}
}

// Decode translates raw content-stream bytes using the mappings. A merged
// map can hold codes of different byte widths, so every position tries
// the widest known width first and falls back to narrower ones; the
// result depends only on the mappings and the input, never on map
// iteration order. Unmapped printable ASCII passes through only when the
// map carries single-byte codes.
func (cm *CMap) Decode(raw []byte) string {
	widths := cm.codeWidths()
	if len(widths) == 0 {
		return ""
	}
	narrowest := widths[len(widths)-1]

	var out strings.Builder
	for i := 0; i < len(raw); {
		matched := false
		for _, w := range widths {
			if i+w > len(raw) {
				continue
			}
			if uni, ok := cm.codes[strings.ToUpper(hex.EncodeToString(raw[i:i+w]))]; ok {
				out.WriteString(uni)
				i += w
				matched = true
				break
			}
		}
		if !matched {
			if narrowest == 1 && raw[i] >= 32 && raw[i] < 127 {
				out.WriteByte(raw[i])
			}
			i += narrowest
		}
	}
	return out.String()
}

// codeWidths returns the distinct code byte widths present in the map,
// widest first.
func (cm *CMap) codeWidths() []int {
	seen := make(map[int]bool)
	for k := range cm.codes {
		if w := len(k) / 2; w > 0 {
			seen[w] = true
		}
	}
	widths := make([]int, 0, len(seen))
	for w := range seen {
		widths = append(widths, w)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(widths)))
	return widths
}

// FindCMaps scans the raw PDF for ToUnicode streams and parses each one.
func FindCMaps(data []byte) []*CMap {
	var cmaps []*CMap
	for _, stream := range contentStreams(data) {
		content := string(inflate(stream))
		if !strings.Contains(content, "beginbfchar") && !strings.Contains(content, "beginbfrange") {
			continue
		}
		if cm := ParseCMap(content); cm.Len() > 0 {
			cmaps = append(cmaps, cm)
		}
	}
	return cmaps
}

// MergeCMaps folds several CMaps into one; later maps win on collisions.
func MergeCMaps(cmaps []*CMap) *CMap {
	merged := &CMap{codes: make(map[string]string)}
	for _, cm := range cmaps {
		for k, v := range cm.codes {
			merged.codes[k] = v
		}
	}
	return merged
}

// hexValue parses a hex string, -1 when malformed.
func hexValue(h string) int {
	v, err := strconv.ParseInt(h, 16, 64)
	if err != nil {
		return -1
	}
	return int(v)
}

// paddedHex renders v as exactly width uppercase hex digits, keeping the
// low digits on overflow.
func paddedHex(v, width int) string {
	h := fmt.Sprintf("%0*X", width, v)
	if len(h) > width {
		h = h[len(h)-width:]
	}
	return h
}

// hexToText decodes a hex destination value as UTF-16BE text, handling
// surrogate pairs for characters outside the BMP.
func hexToText(h string) string {
	if len(h)%2 != 0 {
		h = "0" + h
	}
	data, err := hex.DecodeString(h)
	if err != nil {
		return ""
	}

	units := make([]uint16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		units = append(units, uint16(data[i])<<8|uint16(data[i+1]))
	}
	if len(units) == 0 {
		return ""
	}
	return string(utf16.Decode(units))
}
