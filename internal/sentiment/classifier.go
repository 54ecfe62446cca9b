// Package sentiment assigns a coarse polarity label to inbound replies.
// The keyword classifier is a best-effort heuristic, not an authoritative
// reading of the reply.
package sentiment

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"internflow-engine/internal/domain"
)

type Classifier interface {
	Classify(ctx context.Context, text string) (domain.Sentiment, error)
}

var (
	DefaultPositive = []string{
		"interested", "interview", "pleased", "love", "excited",
		"opportunity", "congratulations", "selected", "offer", "invite",
	}
	DefaultNegative = []string{
		"unfortunately", "sorry", "not", "cannot", "unable",
		"filled", "closed", "regret", "rejected",
	}
)

// KeywordClassifier counts distinct keyword hits per polarity,
// case-insensitively. A keyword matches any word it prefixes, so "invite"
// also covers "invited" and "regret" covers "regretfully". Keywords of
// three letters or fewer must match a whole word. Phrases match a run of
// consecutive words under the same rule.
type KeywordClassifier struct {
	positive [][]string
	negative [][]string
}

func NewKeywordClassifier(positive, negative []string) *KeywordClassifier {
	if len(positive) == 0 {
		positive = DefaultPositive
	}
	if len(negative) == 0 {
		negative = DefaultNegative
	}
	return &KeywordClassifier{
		positive: normalizeTerms(positive),
		negative: normalizeTerms(negative),
	}
}

func (k *KeywordClassifier) Classify(_ context.Context, text string) (domain.Sentiment, error) {
	return k.Label(text), nil
}

// Label is the pure form of Classify. The polarity with strictly more hits
// wins; ties, including no hits at all, are Neutral.
func (k *KeywordClassifier) Label(text string) domain.Sentiment {
	tokens := words(text)

	pos := hits(tokens, k.positive)
	neg := hits(tokens, k.negative)
	switch {
	case pos > neg:
		return domain.SentimentPositive
	case neg > pos:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}

func hits(tokens []string, terms [][]string) int {
	n := 0
	for _, t := range terms {
		if containsTerm(tokens, t) {
			n++
		}
	}
	return n
}

func containsTerm(tokens, term []string) bool {
	for i := 0; i+len(term) <= len(tokens); i++ {
		ok := true
		for j, w := range term {
			if !wordMatches(tokens[i+j], w) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

const minPrefixLen = 4

func wordMatches(token, keyword string) bool {
	if utf8.RuneCountInString(keyword) < minPrefixLen {
		return token == keyword
	}
	return strings.HasPrefix(token, keyword)
}

func normalizeTerms(in []string) [][]string {
	seen := map[string]bool{}
	out := make([][]string, 0, len(in))
	for _, t := range in {
		ws := words(t)
		key := strings.Join(ws, " ")
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ws)
	}
	return out
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}
