package services

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MentionCandidate is one entry of a pre-normalized mention index. FullName
// and ShortName must already be in Normalize form; ShortName is the last
// name for persons, the acronym or short label for organizations.
type MentionCandidate struct {
	ID        string
	FullName  string
	ShortName string
}

// MentionMatch is a detected reference to a candidate. MatchedText is the
// matched span as it appears in the input text, accents and case intact.
type MentionMatch struct {
	ID          string
	MatchedText string
}

const (
	// personMinShortLen keeps short surnames ("Roux", "Bay") from matching
	// standalone; they still match as part of the full name.
	personMinShortLen = 5
	partyMinShortLen  = 3
)

// personStopWords are surnames that collide with common French words and
// must never match outside a full-name match.
var personStopWords = map[string]struct{}{
	"noir":   {},
	"blanc":  {},
	"petit":  {},
	"grand":  {},
	"jeune":  {},
	"berger": {},
	"moulin": {},
	"roche":  {},
	"france": {},
	"paris":  {},
}

// partyStopWords are acronyms and words too ambiguous to attribute alone.
var partyStopWords = map[string]struct{}{
	"les":        {},
	"pour":       {},
	"avec":       {},
	"union":      {},
	"parti":      {},
	"france":     {},
	"mouvement":  {},
	"generation": {},
}

// FindMentions finds person references in free text. At most one match per
// candidate is returned, full-name matches taking precedence over last-name
// matches. Never fails: candidates with unusable names are skipped.
func FindMentions(text string, index []MentionCandidate) []MentionMatch {
	return findMentions(text, index, personMinShortLen, personStopWords)
}

// FindPartyMentions finds organization references in free text, with the
// shorter minimum token length acronyms need.
func FindPartyMentions(text string, index []MentionCandidate) []MentionMatch {
	return findMentions(text, index, partyMinShortLen, partyStopWords)
}

func findMentions(text string, index []MentionCandidate, minShortLen int, stopWords map[string]struct{}) []MentionMatch {
	nt := normalizeWithOffsets(text)
	normalized := nt.text
	if normalized == "" || len(index) == 0 {
		return nil
	}

	// Longest full name first, so "Marion Marechal" wins its span before
	// "Christophe Marion" gets a chance to claim "marion" alone.
	candidates := make([]MentionCandidate, len(index))
	copy(candidates, index)
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i].FullName) > len(candidates[j].FullName)
	})

	matched := make(map[string]bool, len(candidates))
	var fullNameSpans [][]int
	var out []MentionMatch

	for _, cand := range candidates {
		if cand.ID == "" || matched[cand.ID] {
			continue
		}

		if cand.FullName != "" {
			if locs := findWholeWord(normalized, cand.FullName); len(locs) > 0 {
				matched[cand.ID] = true
				out = append(out, MentionMatch{
					ID:          cand.ID,
					MatchedText: nt.original(text, locs[0][0], locs[0][1]),
				})
				fullNameSpans = append(fullNameSpans, locs...)
				continue
			}
		}

		short := cand.ShortName
		if utf8.RuneCountInString(short) < minShortLen {
			continue
		}
		if _, stopped := stopWords[short]; stopped {
			continue
		}
		for _, loc := range findWholeWord(normalized, short) {
			// A token already consumed by another candidate's full-name
			// match is not evidence for this candidate.
			if coveredBySpan(fullNameSpans, loc) {
				continue
			}
			matched[cand.ID] = true
			out = append(out, MentionMatch{
				ID:          cand.ID,
				MatchedText: nt.original(text, loc[0], loc[1]),
			})
			break
		}
	}

	return out
}

// findWholeWord returns all whole-word occurrences of token in text.
func findWholeWord(text, token string) [][]int {
	re, err := regexp.Compile(`\b` + EscapeRegex(token) + `\b`)
	if err != nil {
		return nil
	}
	return re.FindAllStringIndex(text, -1)
}

// normalizedText is the Normalize form of an input together with, per
// output byte, the byte range of the input rune that produced it. Matching
// happens on the normalized form; the recorded ranges slice the matched
// span back out of the original text.
type normalizedText struct {
	text   string
	starts []int
	ends   []int
}

// original returns the input slice behind the normalized span [start, end).
func (n *normalizedText) original(input string, start, end int) string {
	if start < 0 || end > len(n.starts) || start >= end {
		return ""
	}
	return input[n.starts[start]:n.ends[end-1]]
}

// normalizeWithOffsets applies the same canonicalization as Normalize, one
// input rune at a time so provenance survives: lowercase, combining marks
// dropped after NFD decomposition, curly apostrophes straightened, hyphens
// and dashes turned into spaces, whitespace collapsed and trimmed.
func normalizeWithOffsets(input string) *normalizedText {
	var b strings.Builder
	var starts, ends []int
	pendingSpace := false

	for i, r := range input {
		runeEnd := i + utf8.RuneLen(r)
		switch r {
		case '’', '‘':
			r = '\''
		case '-', '–', '—':
			r = ' '
		}
		if unicode.IsSpace(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		for _, d := range norm.NFD.String(strings.ToLower(string(r))) {
			if unicode.Is(unicode.Mn, d) {
				continue
			}
			if pendingSpace {
				b.WriteByte(' ')
				starts = append(starts, i)
				ends = append(ends, i)
				pendingSpace = false
			}
			at := b.Len()
			b.WriteRune(d)
			for ; at < b.Len(); at++ {
				starts = append(starts, i)
				ends = append(ends, runeEnd)
			}
		}
	}
	return &normalizedText{text: b.String(), starts: starts, ends: ends}
}

func coveredBySpan(spans [][]int, loc []int) bool {
	for _, span := range spans {
		if loc[0] >= span[0] && loc[1] <= span[1] {
			return true
		}
	}
	return false
}
