package match

import (
	"unicode"

	"golang.org/x/text/language"

	"github.com/sydlexius/autotagger/internal/provider"
)

var scriptTables = []struct {
	code  string
	table *unicode.RangeTable
}{
	{"Latn", unicode.Latin},
	{"Cyrl", unicode.Cyrillic},
	{"Grek", unicode.Greek},
	{"Hani", unicode.Han},
	{"Hira", unicode.Hiragana},
	{"Kana", unicode.Katakana},
	{"Hang", unicode.Hangul},
	{"Arab", unicode.Arabic},
	{"Hebr", unicode.Hebrew},
	{"Thai", unicode.Thai},
	{"Deva", unicode.Devanagari},
}

// DetectScript returns the ISO 15924 code of the dominant script in s, or ""
// when s has no letters. Any kana makes the text Japanese ("Jpan").
func DetectScript(s string) string {
	counts := make(map[string]int)
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		for _, st := range scriptTables {
			if unicode.Is(st.table, r) {
				counts[st.code]++
				break
			}
		}
	}
	if counts["Hira"]+counts["Kana"] > 0 {
		return "Jpan"
	}

	best, bestN := "", 0
	for _, st := range scriptTables {
		if n := counts[st.code]; n > bestN {
			best, bestN = st.code, n
		}
	}
	return best
}

// CandidateScript returns the declared script of c in canonical form, falling
// back to detection over its titles and artist.
func CandidateScript(c *provider.RawCandidate) string {
	if c.Script != "" {
		if sc, err := language.ParseScript(c.Script); err == nil {
			return sc.String()
		}
	}
	text := provider.Deref(c.Title) + " " + provider.Deref(c.Artist)
	for _, t := range c.Tracks {
		text += " " + provider.Deref(t.Title)
	}
	return DetectScript(text)
}
