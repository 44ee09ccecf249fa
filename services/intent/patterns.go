package intent

import (
	"regexp"
	"strings"
)

// ---------- service patterns ----------

const needVerb = `(?:need|want|looking\s+for|find|get\s+me|hire|book)`

var (
	// "<need-verb> a/an <service> in/near/at/around <location>"
	serviceWithLocationRE = regexp.MustCompile(`(?i)\b(?:i\s+)?` + needVerb + `\s+(?:a|an)\s+(.+?)\s+(in|near|at|around)\s+(.+?)[\s.!?]*$`)
	// "<need-verb> a/an <service>"
	serviceOnlyRE = regexp.MustCompile(`(?i)\b(?:i\s+)?` + needVerb + `\s+(?:a|an)\s+(.+?)[\s.!?]*$`)

	needVerbRE = regexp.MustCompile(`(?i)\b` + needVerb + `\b`)

	// History fallback: a single noun after a narrower verb set.
	historyServiceRE = regexp.MustCompile(`(?i)\b(?:need|want|looking\s+for|find)\s+(?:a|an)\s+([a-z]+)`)

	noiseWordRE = regexp.MustCompile(`(?i)\b(?:local|some|good|best|reliable|professional)\b`)
)

// ---------- location patterns ----------

// locationPatterns is tried in order; the first match wins.
var locationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bnear\s+(.+?)[\s.!?]*$`),
	regexp.MustCompile(`(?i)\bclose\s+to\s+(.+?)[\s.!?]*$`),
	regexp.MustCompile(`(?i)\baround\s+(.+?)[\s.!?]*$`),
	regexp.MustCompile(`(?i)\bat\s+(.+?)[\s.!?]*$`),
	regexp.MustCompile(`(?i)\bin\s+(.+?)[\s.!?]*$`),
}

var selfReferenceRE = regexp.MustCompile(`(?i)\b(near\s+me|close\s+to\s+me|around\s+me|my\s+area|here)\b`)

const (
	// SelfNearMe and SelfMyArea are the self-reference sentinels substituted from memory.
	SelfNearMe = "near me"
	SelfMyArea = "my area"
)

// ---------- validator patterns ----------

var (
	barePrepositionRE = regexp.MustCompile(`(?i)^(in|near|at)\s+([a-z][a-z\s,]*)$`)
	bareWordsRE       = regexp.MustCompile(`(?i)^[a-z\s,]+$`)
	leadingInRE       = regexp.MustCompile(`(?i)^in\s+`)
	locationKeywordRE = regexp.MustCompile(`(?i)\b(?:near\s+me|nearby|in|at|around|close\s+to)\b`)
	greetingRE        = regexp.MustCompile(`(?i)\b(?:hello|hi|how\s+are\s+you|what|why|when|where|who)\b`)
	loadMoreRE        = regexp.MustCompile(`(?i)^(?:show|load|see)\s+more\b`)
	locationClauseRE  = regexp.MustCompile(`(?i)^(.+?)\s+(?:in|near|at|around|close\s+to)\s+`)
)

// askLocationFragments are substrings of assistant prompts that ask for the user's location.
var askLocationFragments = []string{
	"where are you located",
	"your location",
	"which area",
	"what area",
	"which city",
	"what city",
	"share your location",
	"where do you need",
}

// defaultServiceNouns is the gazetteer used by the history scanner.
var defaultServiceNouns = []string{
	"electrician", "plumber", "mechanic", "cleaner",
	"handyman", "carpenter", "painter", "locksmith",
}

// defaultCities spans the US and South-Asian cities used in example prompts.
var defaultCities = []string{
	"new york", "los angeles", "chicago", "houston", "phoenix", "philadelphia",
	"san antonio", "san diego", "dallas", "san francisco", "seattle", "boston", "miami",
	"karachi", "lahore", "islamabad", "rawalpindi", "peshawar", "faisalabad",
	"mumbai", "delhi", "bangalore", "hyderabad", "chennai", "kolkata", "pune",
	"dhaka", "chittagong", "colombo", "kathmandu",
}

// Library is the ordered set of gazetteers the resolver consults. The regex chains are
// package-level; only the word lists vary.
type Library struct {
	serviceRE *regexp.Regexp
	cityRE    *regexp.Regexp
}

// DefaultLibrary returns a library with the built-in gazetteers.
func DefaultLibrary() *Library {
	return NewLibrary(nil, nil)
}

// NewLibrary builds a library from the built-in gazetteers plus configured extras.
func NewLibrary(extraServices, extraCities []string) *Library {
	return &Library{
		serviceRE: wordAlternation(append(append([]string{}, defaultServiceNouns...), extraServices...), `s?`),
		cityRE:    wordAlternation(append(append([]string{}, defaultCities...), extraCities...), ``),
	}
}

// wordAlternation compiles a case-insensitive `\b(a|b|c)suffix\b` matcher.
func wordAlternation(words []string, suffix string) *regexp.Regexp {
	quoted := make([]string, 0, len(words))
	seen := make(map[string]bool, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		quoted = append(quoted, regexp.QuoteMeta(w))
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)` + suffix + `\b`)
}

// ServiceNoun returns the first gazetteer service noun found in text, singularised.
func (l *Library) ServiceNoun(text string) string {
	m := l.serviceRE.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

// MentionsCity reports whether text names a city from the gazetteer.
func (l *Library) MentionsCity(text string) bool {
	return l.cityRE.MatchString(text)
}
