package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Location is the outcome of city/province inference on a description.
// Empty fields mean "not confidently inferred"; the extractor never
// guesses. Ambiguity is not an error.
type Location struct {
	City     string // uppercase token(s), e.g. "NIAGARA FALLS"
	Province string // two-letter code, e.g. "ON"
	Display  string // "Niagara Falls ON"; empty without a city
	Mode     string // which detection mode matched
}

// Detection modes, in priority order.
const (
	ModeSpace     = "space"     // whitespace before the province code
	ModeHyphen    = "hyphen"    // hyphen-glued, e.g. MID-HNS
	ModeDomain    = "domain"    // URL/brand/phone tail; province-only
	ModeGluedCity = "gluedcity" // known city fused to the code, e.g. FALLSON
)

const provinceAlt = `(ON|QC|BC|AB|MB|SK|NB|NS|NL|PE|YT|NT|NU)`

var provinceCodes = []string{
	"ON", "QC", "BC", "AB", "MB", "SK", "NB", "NS", "NL", "PE", "YT", "NT", "NU",
}

var (
	provSpaceRe  = regexp.MustCompile(`\s` + provinceAlt + `\s*$`)
	provHyphenRe = regexp.MustCompile(`-` + provinceAlt + `\s*$`)
	provTailRe   = regexp.MustCompile(provinceAlt + `\s*$`)

	// Prefixes that stick to city names in flattened URL/brand tails.
	// The trailing capital is part of the city and gets reinserted.
	deglueRe = regexp.MustCompile(`(HTTPSWWW|HTTPS|HTTP|WWW|G\.?CO/HELPPAY|GCO/HELPPAY|ONLINE)([A-Z])`)

	nonAlphaRe = regexp.MustCompile(`[^A-Z\s]`)
	allCapsRe  = regexp.MustCompile(`^[A-Z]+$`)
	lettersRe  = regexp.MustCompile(`[^A-Z]`)
)

// domainHints mark URL/brand/phone tails where a bare trailing code is
// still a province but the preceding text is not a city.
var domainHints = []string{
	"WWW", "HTTP", "HTTPS", ".COM", ".CA", "/", "G.CO", "GOOGLE", "AMAZON", "UBER",
}

type provinceMatch struct {
	start int // byte offset in the uppercase copy where the matched suffix begins
	prov  string
	mode  string
}

// detectProvince finds a trailing province code, trying the safest
// interpretation first. Plain substrings inside words (ADJUSTMENT) never
// match: ModeSpace needs whitespace, ModeHyphen a hyphen, ModeDomain a
// URL-ish hint, ModeGluedCity a known city immediately before the code.
func detectProvince(u string, rules *Rules) (provinceMatch, bool) {
	if m := provSpaceRe.FindStringSubmatchIndex(u); m != nil {
		return provinceMatch{start: m[0], prov: u[m[2]:m[3]], mode: ModeSpace}, true
	}
	if m := provHyphenRe.FindStringSubmatchIndex(u); m != nil {
		return provinceMatch{start: m[0], prov: u[m[2]:m[3]], mode: ModeHyphen}, true
	}
	for _, h := range domainHints {
		if strings.Contains(u, h) {
			if m := provTailRe.FindStringSubmatchIndex(u); m != nil {
				return provinceMatch{start: m[0], prov: u[m[2]:m[3]], mode: ModeDomain}, true
			}
			break
		}
	}
	for _, prov := range provinceCodes {
		if !strings.HasSuffix(u, prov) {
			continue
		}
		before := strings.TrimRight(u[:len(u)-len(prov)], " ")
		beforeLetters := lettersRe.ReplaceAllString(before, "")
		for _, cityNS := range rules.citiesNoSpace {
			if strings.HasSuffix(beforeLetters, cityNS) {
				return provinceMatch{start: len(before), prov: prov, mode: ModeGluedCity}, true
			}
		}
	}
	return provinceMatch{}, false
}

// ExtractLocation infers city and province from the tail of a merchant
// description. Purely local lookup over the rules tables; when nothing
// matches with confidence both fields stay empty.
func ExtractLocation(desc string, rules *Rules) Location {
	u := strings.ToUpper(strings.TrimSpace(desc))

	pm, ok := detectProvince(u, rules)
	if !ok {
		return Location{}
	}

	tailRaw := strings.TrimRight(u[:pm.start], " ")
	// The replacement consumes the capital that may itself start another
	// glue prefix (WWWONLINEOTTAWA), so run to a fixpoint. Every pass
	// shortens the string; the loop always terminates.
	for {
		next := deglueRe.ReplaceAllString(tailRaw, " $2")
		if next == tailRaw {
			break
		}
		tailRaw = next
	}
	tailRaw = strings.ReplaceAll(tailRaw, "UBERCOM", "UBER COM")
	tailRaw = strings.ReplaceAll(tailRaw, "AMAZON.CA", "AMAZON CA")

	tailAlpha := collapseSpaces(nonAlphaRe.ReplaceAllString(tailRaw, " "))
	toks := strings.Fields(tailAlpha)

	city := ""
	if pm.mode != ModeDomain {
		city = pickCity(toks, rules)
	}

	// Still empty or noisy: scan anywhere in the alpha tail for a known
	// city (repairs glue and earlier-positioned cities).
	if city == "" || rules.stop[city] {
		for _, pat := range rules.citiesByLen {
			if strings.Contains(tailAlpha, pat) {
				city = pat
				break
			}
		}
	}

	if city == "" && pm.prov == "NS" && strings.Contains(tailAlpha, "HALIFAX") {
		city = "HALIFAX"
	}

	if city != "" && !rules.stop[city] {
		return Location{
			City:     city,
			Province: pm.prov,
			Display:  titleCase(city) + " " + pm.prov,
			Mode:     pm.mode,
		}
	}
	return Location{Province: pm.prov, Mode: pm.mode}
}

// pickCity chooses a city candidate from the trailing tokens.
func pickCity(toks []string, rules *Rules) string {
	// Two-word cities first: "... STONEY CREEK" joins on the trailing word.
	if len(toks) >= 2 && rules.joiners[toks[len(toks)-1]] && allCapsRe.MatchString(toks[len(toks)-2]) {
		return toks[len(toks)-2] + " " + toks[len(toks)-1]
	}
	if len(toks) == 0 {
		return ""
	}
	last := toks[len(toks)-1]
	if rules.stop[last] || !allCapsRe.MatchString(last) {
		return ""
	}
	// Too-short tails near domain/phone fragments ('E', 'CA') are noise.
	if len(last) < 3 {
		return ""
	}
	// Repair glued tokens like RESTAURBRAMPTON against the known cities.
	for i, pat := range rules.citiesByLen {
		if strings.HasSuffix(last, rules.citiesNoSpace[i]) || strings.Contains(last, pat) {
			return pat
		}
	}
	return last
}

// StripLocation removes a cleanly space-delimited trailing location from a
// description. Only ModeSpace suffixes are stripped: hyphen, domain and
// glued forms are fused into merchant text and cutting them would corrupt
// the description.
func StripLocation(desc string, loc Location) string {
	if loc.Mode != ModeSpace || loc.Province == "" {
		return desc
	}
	out := strings.TrimRight(desc, " ")
	if len(out) <= len(loc.Province) || !strings.HasSuffix(strings.ToUpper(out), loc.Province) {
		return desc
	}
	cut := len(out) - len(loc.Province)
	if out[cut-1] != ' ' {
		return desc
	}
	out = strings.TrimRight(out[:cut], " ")
	if loc.City != "" {
		if rest, ok := trimSuffixFold(out, loc.City); ok {
			out = rest
		}
	}
	if out == "" {
		return desc
	}
	return out
}

// trimSuffixFold removes a case-insensitive suffix when it sits on a word
// boundary, returning the trimmed text.
func trimSuffixFold(s, suffix string) (string, bool) {
	if len(s) < len(suffix) || !strings.EqualFold(s[len(s)-len(suffix):], suffix) {
		return s, false
	}
	rest := s[:len(s)-len(suffix)]
	if rest != "" && !strings.HasSuffix(rest, " ") {
		return s, false
	}
	return strings.TrimRight(rest, " "), true
}

func titleCase(s string) string {
	return cases.Title(language.English).String(strings.ToLower(s))
}
