// Package entitymatch matches company, person and property names across
// data sources using normalized fuzzy comparison. It underpins the
// cross-referencing of corporate registry entities against transfer-list
// parties and permit applicants.
package entitymatch

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Default score thresholds per entity kind.
const (
	CompanyThreshold = 0.80
	PersonThreshold  = 0.85
	AddressThreshold = 0.75
)

// Candidate is one entry from a source being matched against.
type Candidate struct {
	Name    string
	Address string
	Source  string
}

// Match is a candidate that cleared the threshold.
type Match struct {
	Candidate
	Score float64
}

var (
	punctRe = regexp.MustCompile(`[.,;:'"()\-]`)

	// Common suffixes carrying no identity information.
	companySuffixRe = regexp.MustCompile(`\b(?:inc|ltd|corp|corporation|co|llc|llp|lp|partnership|holdings?|group|properties|investments?|realty|trust|associates?|enterprises?|developments?|construction)\.?\b`)

	unitRe       = regexp.MustCompile(`#\d+|suite\s*\d+|unit\s*\d+`)
	postalCodeRe = regexp.MustCompile(`[a-z]\d[a-z]\s*\d[a-z]\d`)
	provinceRe   = regexp.MustCompile(`,?\s*(?:saskatchewan|sk|canada)\b`)
	commaDotRe   = regexp.MustCompile(`[,.]`)

	numberedCompanyRe = regexp.MustCompile(`^(\d{6,})`)
	streetNumberRe    = regexp.MustCompile(`^(\d+)\s+(.+)$`)

	addressAbbrevs = []struct {
		re   *regexp.Regexp
		abbr string
	}{
		{regexp.MustCompile(`\bavenue\b`), "ave"},
		{regexp.MustCompile(`\bstreet\b`), "st"},
		{regexp.MustCompile(`\bdrive\b`), "dr"},
		{regexp.MustCompile(`\broad\b`), "rd"},
		{regexp.MustCompile(`\bboulevard\b`), "blvd"},
		{regexp.MustCompile(`\bcrescent\b`), "cres"},
		{regexp.MustCompile(`\bplace\b`), "pl"},
		{regexp.MustCompile(`\bcourt\b`), "crt"},
		{regexp.MustCompile(`\blane\b`), "ln"},
		{regexp.MustCompile(`\bterrace\b`), "terr"},
		{regexp.MustCompile(`\bparkway\b`), "pkwy"},
		{regexp.MustCompile(`\bhighway\b`), "hwy"},
		{regexp.MustCompile(`\bcircle\b`), "cir"},
		{regexp.MustCompile(`\bnorth\b`), "n"},
		{regexp.MustCompile(`\bsouth\b`), "s"},
		{regexp.MustCompile(`\beast\b`), "e"},
		{regexp.MustCompile(`\bwest\b`), "w"},
	}

	diacriticFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// NormalizeCompanyName lowercases, strips punctuation and legal suffixes,
// and collapses whitespace.
func NormalizeCompanyName(name string) string {
	name = foldDiacritics(strings.ToLower(strings.TrimSpace(name)))
	name = punctRe.ReplaceAllString(name, " ")
	name = companySuffixRe.ReplaceAllString(name, "")
	return collapse(name)
}

// NormalizePersonName lowercases, strips punctuation, and sorts the name
// parts so "JOHN SMITH" and "SMITH JOHN" compare equal.
func NormalizePersonName(name string) string {
	name = foldDiacritics(strings.ToLower(strings.TrimSpace(name)))
	name = punctRe.ReplaceAllString(name, " ")
	parts := strings.Fields(name)
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

// NormalizeAddress lowercases, removes unit numbers, postal codes and
// province names, and folds street-type words to their abbreviations.
func NormalizeAddress(address string) string {
	address = foldDiacritics(strings.ToLower(strings.TrimSpace(address)))
	address = unitRe.ReplaceAllString(address, "")
	for _, sub := range addressAbbrevs {
		address = sub.re.ReplaceAllString(address, sub.abbr)
		address = strings.ReplaceAll(address, sub.abbr+".", sub.abbr)
	}
	address = postalCodeRe.ReplaceAllString(address, "")
	address = provinceRe.ReplaceAllString(address, "")
	address = commaDotRe.ReplaceAllString(address, " ")
	return collapse(address)
}

// Similarity is a Levenshtein-based ratio in [0, 1].
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	dist := fuzzy.LevenshteinDistance(a, b)
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	return 1 - float64(dist)/float64(longest)
}

// MatchCompanies scores name against each candidate's name and returns
// those at or above threshold, best first.
func MatchCompanies(name string, candidates []Candidate, threshold float64) []Match {
	normName := NormalizeCompanyName(name)
	if normName == "" {
		return nil
	}

	var matches []Match
	for _, cand := range candidates {
		normCand := NormalizeCompanyName(cand.Name)
		if normCand == "" {
			continue
		}

		score := Similarity(normName, normCand)
		if overlap := tokenOverlap(normName, normCand); overlap > score {
			score = overlap
		}

		// Numbered companies ("102118427 Saskatchewan Ltd.") are identified
		// by the number alone.
		numA := numberedCompanyRe.FindStringSubmatch(normName)
		numB := numberedCompanyRe.FindStringSubmatch(normCand)
		if numA != nil && numB != nil && numA[1] == numB[1] {
			score = 1.0
		}

		if score >= threshold {
			matches = append(matches, Match{Candidate: cand, Score: score})
		}
	}

	sortMatches(matches)
	return matches
}

// MatchPeople scores a person name against candidates on sorted name parts.
func MatchPeople(name string, candidates []Candidate, threshold float64) []Match {
	normName := NormalizePersonName(name)
	if normName == "" {
		return nil
	}

	var matches []Match
	for _, cand := range candidates {
		normCand := NormalizePersonName(cand.Name)
		if normCand == "" {
			continue
		}

		score := Similarity(normName, normCand)
		if normName == normCand {
			score = 1.0
		}

		if score >= threshold {
			matches = append(matches, Match{Candidate: cand, Score: score})
		}
	}

	sortMatches(matches)
	return matches
}

// MatchAddresses scores an address against each candidate's address.
func MatchAddresses(address string, candidates []Candidate, threshold float64) []Match {
	normAddr := NormalizeAddress(address)
	if normAddr == "" {
		return nil
	}

	var matches []Match
	for _, cand := range candidates {
		normCand := NormalizeAddress(cand.Address)
		if normCand == "" {
			continue
		}

		score := Similarity(normAddr, normCand)

		// Same street number: score the street name on its own.
		numA := streetNumberRe.FindStringSubmatch(normAddr)
		numB := streetNumberRe.FindStringSubmatch(normCand)
		if numA != nil && numB != nil && numA[1] == numB[1] {
			if streetScore := Similarity(numA[2], numB[2]) * 0.95; streetScore > score {
				score = streetScore
			}
		}

		if score >= threshold {
			matches = append(matches, Match{Candidate: cand, Score: score})
		}
	}

	sortMatches(matches)
	return matches
}

// tokenOverlap compares the distinct token sets of both names, so a
// repeated token counts once on either side.
func tokenOverlap(a, b string) float64 {
	aSet := tokenSet(a)
	bSet := tokenSet(b)
	if len(aSet) == 0 || len(bSet) == 0 {
		return 0
	}
	common := 0
	for tok := range bSet {
		if aSet[tok] {
			common++
		}
	}
	denom := len(aSet)
	if len(bSet) > denom {
		denom = len(bSet)
	}
	return float64(common) / float64(denom)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}

func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func foldDiacritics(s string) string {
	out, _, err := transform.String(diacriticFold, s)
	if err != nil {
		return s
	}
	return out
}
