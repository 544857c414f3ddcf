package normalize

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules holds the lookup tables that drive category matching, location
// inference and description cleanup. Build one with DefaultRules or
// LoadRules; the zero value is not usable.
type Rules struct {
	// Categories are the spending-category names statements append to
	// charge descriptions. Matched as a suffix, longest first.
	Categories []string `yaml:"categories"`
	// Cities are known city names, uppercase. Matched longest first.
	Cities []string `yaml:"cities"`
	// StopTokens are brand/noise tokens that must never become a city.
	StopTokens []string `yaml:"stopTokens"`
	// Joiners are trailing words of two-word city names (CREEK, FALLS, HILL).
	Joiners []string `yaml:"joiners"`
	// CleanupPatterns are regexes stripped from descriptions after case
	// folding. They should be anchored suffix patterns so that cleanup
	// stays idempotent.
	CleanupPatterns []string `yaml:"cleanupPatterns"`

	categoriesByLen []string
	citiesByLen     []string
	citiesNoSpace   []string
	stop            map[string]bool
	joiners         map[string]bool
	cleanup         []*regexp.Regexp
}

// defaultCategories lists the category trailers CIBC prints on charge rows.
var defaultCategories = []string{
	"Personal and Household Expenses",
	"Professional and Financial Services",
	"Retail and Grocery",
	"Transportation",
	"Hotel, Entertainment and Recreation",
	"Restaurants",
	"Health and Education",
	"Foreign Currency Transactions",
	"Other Transactions",
}

var defaultCities = []string{
	"NIAGARA FALLS", "RICHMOND HILL", "STONEY CREEK",
	"MISSISSAUGA", "ETOBICOKE", "WOODBRIDGE", "DESERONTO",
	"BRAMPTON", "OTTAWA", "NEPEAN", "TORONTO", "MARKHAM", "KANATA", "ORLEANS",
	"SAINT GABRIEL", "MONTREAL", "WAKEFIELD",
	"CALGARY",
	"HALIFAX",
	"FREDERICTON",
}

var defaultStopTokens = []string{
	"STORE", "SUPERCENTER", "AMAZON", "AMAZONCA", "WWW", "HTTPS", "HTTP", "UBER", "UBERCOM",
	"GOOGLE", "YOUTUBE", "G", "CO", "HELPPAY", "AIRBNB", "WESTJET", "INC", "LTD", "COMP", "COM", "ONLINE",
	"SUPERCENTEROTTAWA", "SUPERCENTERNEPEAN", "COMPMONTREAL", "INCTORONTO", "CKANATA",
	"AMAZONCAON", "UBERON", "HTTPSWWW",
}

var defaultJoiners = []string{"CREEK", "FALLS", "HILL"}

// DefaultRules returns the built-in tables.
func DefaultRules() *Rules {
	r := &Rules{
		Categories: defaultCategories,
		Cities:     defaultCities,
		StopTokens: defaultStopTokens,
		Joiners:    defaultJoiners,
	}
	if err := r.compile(); err != nil {
		// built-in tables contain no patterns that can fail to compile
		panic(err)
	}
	return r
}

// LoadRules reads a YAML rules file layered over the defaults. A list
// present in the file replaces the corresponding default table wholesale.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	r := &Rules{
		Categories: defaultCategories,
		Cities:     defaultCities,
		StopTokens: defaultStopTokens,
		Joiners:    defaultJoiners,
	}
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	if err := r.compile(); err != nil {
		return nil, fmt.Errorf("rules file %s: %w", path, err)
	}
	return r, nil
}

func (r *Rules) compile() error {
	r.categoriesByLen = longestFirst(r.Categories)

	r.citiesByLen = make([]string, len(r.Cities))
	for i, c := range r.Cities {
		r.citiesByLen[i] = strings.ToUpper(strings.TrimSpace(c))
	}
	r.citiesByLen = longestFirst(r.citiesByLen)
	r.citiesNoSpace = make([]string, len(r.citiesByLen))
	for i, c := range r.citiesByLen {
		r.citiesNoSpace[i] = strings.ReplaceAll(c, " ", "")
	}

	r.stop = make(map[string]bool, len(r.StopTokens))
	for _, s := range r.StopTokens {
		r.stop[strings.ToUpper(s)] = true
	}
	r.joiners = make(map[string]bool, len(r.Joiners))
	for _, s := range r.Joiners {
		r.joiners[strings.ToUpper(s)] = true
	}

	r.cleanup = r.cleanup[:0]
	for _, p := range r.CleanupPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("cleanup pattern %q: %w", p, err)
		}
		r.cleanup = append(r.cleanup, re)
	}
	return nil
}

func longestFirst(items []string) []string {
	out := make([]string, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i]) > len(out[j])
	})
	return out
}
