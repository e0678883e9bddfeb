package grading

import (
	"slices"
	"strings"
)

// Method records which rule accepted an answer
type Method string

const (
	MethodNone      Method = "none"
	MethodExact     Method = "exact"
	MethodWordOrder Method = "word_order"
	MethodKeywords  Method = "keywords"
)

// DefaultFuzzyDistance is the edit distance at which an answer counts as
// almost correct.
const DefaultFuzzyDistance = 2

// Verdict is the outcome of grading one answer
type Verdict struct {
	Correct bool   `json:"correct"`
	Almost  bool   `json:"almost,omitempty"` // feedback only, never changes Correct
	Method  Method `json:"method"`
}

// Matcher grades answers. The zero value grades without fuzzy feedback.
type Matcher struct {
	// FuzzyDistance enables the almost-correct hint when positive
	FuzzyDistance int
}

// NewMatcher returns a matcher with the default fuzzy distance
func NewMatcher() Matcher {
	return Matcher{FuzzyDistance: DefaultFuzzyDistance}
}

// IsCorrect reports whether answer is accepted by the acceptable answers or,
// failing that, by the keyword set.
func IsCorrect(answer string, acceptable, keywords []string) bool {
	return Matcher{}.Grade(answer, acceptable, keywords).Correct
}

// Grade applies exact match, word-order match and keyword coverage, in that
// order. An empty acceptable set is graded as incorrect unless keywords match.
func (m Matcher) Grade(answer string, acceptable, keywords []string) Verdict {
	got := Normalize(answer)
	if got == "" {
		return Verdict{Method: MethodNone}
	}

	gotTokens := sortedTokens(got)
	candidates := make([]string, 0, len(acceptable))
	for _, a := range acceptable {
		want := Normalize(a)
		if want == "" {
			continue
		}
		if want == got {
			return Verdict{Correct: true, Method: MethodExact}
		}
		if slices.Equal(sortedTokens(want), gotTokens) {
			return Verdict{Correct: true, Method: MethodWordOrder}
		}
		candidates = append(candidates, want)
	}

	if containsAll(got, keywords) {
		return Verdict{Correct: true, Method: MethodKeywords}
	}

	return Verdict{Almost: m.almost(got, candidates), Method: MethodNone}
}

func (m Matcher) almost(got string, candidates []string) bool {
	if m.FuzzyDistance <= 0 {
		return false
	}
	for _, want := range candidates {
		if d := Distance(got, want); d > 0 && d <= m.FuzzyDistance {
			return true
		}
	}
	return false
}

// containsAll reports whether every non-blank keyword is a substring of got.
// A set with no usable keywords never matches.
func containsAll(got string, keywords []string) bool {
	matched := 0
	for _, k := range keywords {
		k = Normalize(k)
		if k == "" {
			continue
		}
		if !strings.Contains(got, k) {
			return false
		}
		matched++
	}
	return matched > 0
}

func sortedTokens(normalized string) []string {
	tokens := strings.Fields(normalized)
	slices.Sort(tokens)
	return tokens
}
