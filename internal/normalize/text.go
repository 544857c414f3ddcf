package normalize

import "strings"

// CleanDescription canonicalizes a merchant description: trim, collapse
// whitespace runs, fold to uppercase, then strip the rules' cleanup
// patterns. The result is idempotent: cleaning an already-clean string
// returns it unchanged.
func CleanDescription(s string, rules *Rules) string {
	s = collapseSpaces(s)
	s = strings.ToUpper(s)
	for _, re := range rules.cleanup {
		s = re.ReplaceAllString(s, "")
	}
	return collapseSpaces(s)
}

// SplitCategory splits the spending-category trailer off a raw charge body.
// Statements append the category column directly after the description, so
// the longest known category that suffixes the body wins. Returns the body
// unchanged with an empty category when nothing matches.
func SplitCategory(body string, rules *Rules) (desc, category string) {
	b := collapseSpaces(body)
	for _, cat := range rules.categoriesByLen {
		if len(b) >= len(cat) && strings.EqualFold(b[len(b)-len(cat):], cat) {
			return strings.TrimRight(b[:len(b)-len(cat)], " "), cat
		}
	}
	return b, ""
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
