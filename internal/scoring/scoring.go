// Package scoring turns free-text answers into comparable numeric scores.
//
// Every function here is pure: a score depends only on the expected answer,
// the actual answer, and the answer type, which keeps benchmark results
// reproducible across runs and machines.
package scoring

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/oolongbench/oolong-pairs/internal/models"
)

// numericPattern matches the first signed decimal number in a string,
// allowing thousands separators.
var numericPattern = regexp.MustCompile(`[-+]?[0-9][0-9,]*(?:\.[0-9]+)?`)

// markdownStripper removes emphasis markers left over from model output.
var markdownStripper = strings.NewReplacer("*", "", "_", "", "`", "")

// Comparison synonym buckets. Matching is by substring over the normalized
// answer, so "more common" lands in the more bucket via "more".
var (
	moreVariants = []string{"more", "greater", "higher", "larger", "more common"}
	lessVariants = []string{"less", "fewer", "smaller", "lower", "less common"}
	sameVariants = []string{"same", "equal", "tied", "same frequency"}
)

// detectComparisonWords is the keyword set used by auto-detection. It is
// broader than the scoring buckets ("common" alone counts) so that phrases
// like "most common" classify as comparisons before the numeric check runs.
var detectComparisonWords = []string{"more", "less", "same", "common", "greater", "fewer"}

// Normalize prepares an answer string for comparison: trims whitespace,
// lowercases, strips markdown emphasis markers and surrounding quotes.
func Normalize(answer string) string {
	normalized := strings.ToLower(strings.TrimSpace(answer))
	normalized = markdownStripper.Replace(normalized)
	return strings.Trim(normalized, `"'`)
}

// ParseNumeric extracts the first decimal number from a string. The second
// return is false when no number is present.
func ParseNumeric(answer string) (float64, bool) {
	match := numericPattern.FindString(Normalize(answer))
	if match == "" {
		return 0, false
	}
	match = strings.ReplaceAll(match, ",", "")
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// NumericScore scores a numeric answer as 0.75^|expected-actual|.
// A zero error yields exactly 1.0.
func NumericScore(expected, actual float64) float64 {
	diff := math.Abs(expected - actual)
	if diff == 0 {
		return 1.0
	}
	return math.Pow(0.75, diff)
}

// LabelScore is exact match after normalization: 1.0 or 0.0.
func LabelScore(expected, actual string) float64 {
	if Normalize(expected) == Normalize(actual) {
		return 1.0
	}
	return 0.0
}

// ComparisonScore maps both answers onto the more/less/same buckets and
// scores 1.0 when they agree. If either side maps to no bucket, it falls
// back to label scoring.
func ComparisonScore(expected, actual string) float64 {
	expectedBucket := comparisonBucket(Normalize(expected))
	actualBucket := comparisonBucket(Normalize(actual))

	if expectedBucket == "" || actualBucket == "" {
		return LabelScore(expected, actual)
	}
	if expectedBucket == actualBucket {
		return 1.0
	}
	return 0.0
}

func comparisonBucket(normalized string) string {
	if containsAny(normalized, moreVariants) {
		return "more"
	}
	if containsAny(normalized, lessVariants) {
		return "less"
	}
	if containsAny(normalized, sameVariants) {
		return "same"
	}
	return ""
}

func containsAny(text string, variants []string) bool {
	for _, v := range variants {
		if strings.Contains(text, v) {
			return true
		}
	}
	return false
}

// Detect classifies an expected answer when the corpus gives no type hint.
//
// The precedence is comparison, then numeric, then label. The ordering is
// deliberate: a phrase like "2 more" is both numeric-looking and
// comparison-looking and must score as a comparison. Do not reorder.
func Detect(expected string) models.AnswerType {
	normalized := Normalize(expected)

	if containsAny(normalized, detectComparisonWords) {
		return models.AnswerComparison
	}
	if _, ok := ParseNumeric(expected); ok {
		return models.AnswerNumeric
	}
	return models.AnswerLabel
}

// Score grades an actual answer against the expected one. It is total:
// unparseable input degrades to label scoring, an empty actual answer scores
// 0.0, and no input ever produces an error.
func Score(expected, actual string, answerType models.AnswerType) float64 {
	if strings.TrimSpace(actual) == "" {
		return 0.0
	}

	if answerType == models.AnswerUnknown || answerType == "" {
		answerType = Detect(expected)
	}

	switch answerType {
	case models.AnswerNumeric:
		return scoreNumeric(expected, actual)
	case models.AnswerComparison:
		return ComparisonScore(expected, actual)
	case models.AnswerDate:
		return LabelScore(expected, actual)
	default:
		return LabelScore(expected, actual)
	}
}

func scoreNumeric(expected, actual string) float64 {
	expectedVal, okE := ParseNumeric(expected)
	actualVal, okA := ParseNumeric(actual)
	if !okE || !okA {
		return LabelScore(expected, actual)
	}
	return NumericScore(expectedVal, actualVal)
}
