// Package arxiv normalizes free-form text and URLs to canonical arXiv
// identifiers in the two-part dotted form (e.g. "2305.10403").
//
// Identifiers whose leading group falls in 2000-2006 are ambiguous between
// the legacy year-month scheme and an out-of-range modern id. Normalize
// accepts them when the middle digits form a valid month; Classify reports
// them as EraUncertain so callers can surface the ambiguity instead of
// silently guessing.
package arxiv

import (
	"regexp"
	"strconv"
	"strings"
)

// Era classifies which arXiv numbering scheme an identifier belongs to.
type Era int

const (
	// EraModern is the post-2007 YYMM scheme.
	EraModern Era = iota
	// EraLegacy is the pre-2007 year-month-encoded scheme.
	EraLegacy
	// EraUncertain marks the ambiguous 2000-2006 range, accepted
	// speculatively when the month digits are plausible.
	EraUncertain
	// EraInvalid marks an implausible leading group.
	EraInvalid
)

func (e Era) String() string {
	switch e {
	case EraModern:
		return "modern"
	case EraLegacy:
		return "legacy"
	case EraUncertain:
		return "uncertain"
	default:
		return "invalid"
	}
}

// idShape is the two-part dotted numeric form: 4 digits, dot, 4-5 digits.
const idShape = `\d{4}\.\d{4,5}`

// URL path prefixes that carry an arXiv id. Order matters: first match wins.
var urlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`arxiv\.org/abs/(` + idShape + `[^/\s?#]*)`),
	regexp.MustCompile(`arxiv\.org/pdf/(` + idShape + `[^/\s?#]*)`),
	regexp.MustCompile(`arxiv\.org/html/(` + idShape + `[^/\s?#]*)`),
	regexp.MustCompile(`arxiv\.org/e-print/(` + idShape + `[^/\s?#]*)`),
}

var (
	// prefixedPattern matches "arXiv:2305.10403" with optional trailing
	// version or category decoration.
	prefixedPattern = regexp.MustCompile(`(?i)arxiv:\s*(` + idShape + `)`)

	// barePattern matches the dotted shape anywhere in a string.
	barePattern = regexp.MustCompile(idShape)

	// exactPattern matches a fully cleaned candidate.
	exactPattern = regexp.MustCompile(`^` + idShape + `$`)

	// versionSuffix is a trailing "v2"-style revision marker.
	versionSuffix = regexp.MustCompile(`v\d+$`)

	// categorySuffix is a trailing bracketed category tag like "[cs.CL]".
	categorySuffix = regexp.MustCompile(`\[[^\]]*\]$`)

	// fileExtensions stripped from URL matches before validation.
	fileExtensions = []string{".pdf", ".html", ".txt", ".gz"}
)

// Normalize extracts a canonical arXiv identifier from free text or a URL.
// Returns the identifier and true, or "" and false when none is found.
func Normalize(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}

	// Stage 1: URL-shaped inputs for known arXiv path prefixes.
	for _, pat := range urlPatterns {
		if m := pat.FindStringSubmatch(text); m != nil {
			if id, ok := cleanCandidate(m[1]); ok {
				return id, true
			}
		}
	}

	// Stage 2: prefixed bare form ("arXiv:2305.10403v2[cs.CL]").
	if m := prefixedPattern.FindStringSubmatch(text); m != nil {
		if id, ok := cleanCandidate(m[1]); ok {
			return id, true
		}
	}

	// Stage 3: dotted shape anywhere, gated on era plausibility.
	if m := barePattern.FindString(text); m != "" {
		if id, ok := cleanCandidate(m); ok {
			return id, true
		}
	}

	// Stage 4: last-resort scan over every dotted-shape occurrence.
	for _, m := range barePattern.FindAllString(text, -1) {
		if id, ok := cleanCandidate(m); ok {
			return id, true
		}
	}

	return "", false
}

// NormalizeAny tries Normalize against each input in order and returns the
// first identifier found. Inputs are typically a citation's URL, title, and
// surrounding context text.
func NormalizeAny(texts ...string) (string, bool) {
	for _, t := range texts {
		if id, ok := Normalize(t); ok {
			return id, true
		}
	}
	return "", false
}

// cleanCandidate strips decoration from a raw match and validates the rest.
func cleanCandidate(raw string) (string, bool) {
	for _, ext := range fileExtensions {
		raw = strings.TrimSuffix(raw, ext)
	}
	raw = categorySuffix.ReplaceAllString(raw, "")
	raw = versionSuffix.ReplaceAllString(raw, "")

	if !exactPattern.MatchString(raw) {
		return "", false
	}
	if Classify(raw) == EraInvalid {
		return "", false
	}
	return raw, true
}

// Classify reports the numbering-scheme era of a dotted identifier based on
// its leading 4-digit group.
func Classify(id string) Era {
	dot := strings.IndexByte(id, '.')
	if dot != 4 {
		return EraInvalid
	}
	lead, err := strconv.Atoi(id[:4])
	if err != nil {
		return EraInvalid
	}
	month, err := strconv.Atoi(id[2:4])
	if err != nil {
		return EraInvalid
	}

	switch {
	case lead >= 2007:
		return EraModern
	case lead >= 2000:
		// Ambiguous between legacy and modern; accept only with a
		// plausible month and report the uncertainty.
		if month >= 1 && month <= 12 {
			return EraUncertain
		}
		return EraInvalid
	default:
		if month >= 1 && month <= 12 {
			return EraLegacy
		}
		return EraInvalid
	}
}

// AbsURL returns the abstract-page URL for a canonical identifier.
func AbsURL(id string) string {
	return "https://arxiv.org/abs/" + id
}
