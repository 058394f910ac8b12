// Package similarity scores how alike two strings are. It is used to reconcile
// device column headers that drift between firmware versions.
package similarity

import "github.com/pmezard/go-difflib/difflib"

// Result contains a similarity assessment between two strings.
type Result struct {
	Score float64 // 0.0 to 1.0 similarity score
	A     string
	B     string
}

// Similarity defines the contract for string comparison implementations.
type Similarity interface {
	Compare(a, b string) *Result
}

// SequenceMatcher scores strings with the Ratcliff/Obershelp gestalt pattern
// matching algorithm: twice the number of matched characters divided by the
// total number of characters in both strings.
type SequenceMatcher struct{}

// NewSequenceMatcher creates a matcher.
func NewSequenceMatcher() *SequenceMatcher {
	return &SequenceMatcher{}
}

// Compare implements Similarity.
func (m *SequenceMatcher) Compare(a, b string) *Result {
	return &Result{Score: Ratio(a, b), A: a, B: b}
}

// Ratio returns the gestalt similarity of a and b in [0, 1], comparing them
// character by character. Two empty strings are identical.
func Ratio(a, b string) float64 {
	return difflib.NewMatcher(chars(a), chars(b)).Ratio()
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// BestMatch returns the candidate most similar to name whose score is strictly
// greater than threshold. Ties keep the earliest candidate.
func BestMatch(name string, candidates []string, threshold float64) (string, float64, bool) {
	best, bestScore, found := "", 0.0, false
	for _, c := range candidates {
		score := Ratio(name, c)
		if score > threshold && score > bestScore {
			best, bestScore, found = c, score, true
		}
	}
	return best, bestScore, found
}
