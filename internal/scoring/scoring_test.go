package scoring

import (
	"math"
	"testing"

	"github.com/oolongbench/oolong-pairs/internal/models"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"strips whitespace", "  hello  ", "hello"},
		{"lowercases", "HELLO", "hello"},
		{"removes bold markers", "**Cat**", "cat"},
		{"removes italic markers", "_italic_", "italic"},
		{"removes code markers", "`code`", "code"},
		{"removes double quotes", `"quoted"`, "quoted"},
		{"removes single quotes", "'quoted'", "quoted"},
		{"idempotent on plain text", "cat", "cat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
		ok    bool
	}{
		{"integer", "42", 42, true},
		{"float", "3.14", 3.14, true},
		{"thousands separator", "1,234", 1234, true},
		{"large with separators", "1,234,567", 1234567, true},
		{"negative", "-7", -7, true},
		{"embedded in text", "about 12 items", 12, true},
		{"non numeric", "hello", 0, false},
		{"empty", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseNumeric(tt.input)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				require.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestNumericScore(t *testing.T) {
	tests := []struct {
		name     string
		expected float64
		actual   float64
		want     float64
	}{
		{"exact match is exactly one", 10, 10, 1.0},
		{"off by one", 10, 11, 0.75},
		{"off by one below", 10, 9, 0.75},
		{"off by two", 10, 12, 0.5625},
		{"off by five", 10, 15, math.Pow(0.75, 5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.InDelta(t, tt.want, NumericScore(tt.expected, tt.actual), 1e-9)
		})
	}

	// Δ=0 must be exactly 1.0, not merely close.
	require.Equal(t, 1.0, NumericScore(42, 42))
}

func TestLabelScore(t *testing.T) {
	require.Equal(t, 1.0, LabelScore("cat", "cat"))
	require.Equal(t, 1.0, LabelScore("Cat", " cat "))
	require.Equal(t, 1.0, LabelScore("CAT", "cat"))
	require.Equal(t, 0.0, LabelScore("cat", "dog"))
}

func TestComparisonScore(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		actual   string
		want     float64
	}{
		{"identical", "more", "more", 1.0},
		{"more synonyms", "more", "greater", 1.0},
		{"more common phrasing", "more", "more common", 1.0},
		{"higher maps to more", "higher", "more", 1.0},
		{"less synonyms", "less", "fewer", 1.0},
		{"smaller maps to less", "smaller", "less", 1.0},
		{"lower maps to less", "lower", "less", 1.0},
		{"same synonyms", "same", "equal", 1.0},
		{"tied maps to same", "tied", "same", 1.0},
		{"same frequency phrasing", "same frequency", "same", 1.0},
		{"more vs less", "more", "less", 0.0},
		{"same vs more", "same", "more", 0.0},
		{"unmappable falls back to label match", "banana", "banana", 1.0},
		{"unmappable falls back to label mismatch", "banana", "apple", 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ComparisonScore(tt.expected, tt.actual))
		})
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  models.AnswerType
	}{
		{"comparison phrase", "more common", models.AnswerComparison},
		{"bare comparison word", "less", models.AnswerComparison},
		{"same", "same", models.AnswerComparison},
		{"integer", "42", models.AnswerNumeric},
		{"float", "3.14", models.AnswerNumeric},
		{"with separator", "1,234", models.AnswerNumeric},
		{"plain label", "Paris", models.AnswerLabel},
		{"multi word label", "hello world", models.AnswerLabel},
		// Comparison must win over numeric for mixed phrases.
		{"numeric looking comparison", "2 more", models.AnswerComparison},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Detect(tt.input))
		})
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name       string
		expected   string
		actual     string
		answerType models.AnswerType
		want       float64
	}{
		{"numeric exact", "42", "42", models.AnswerNumeric, 1.0},
		{"numeric close", "10", "11", models.AnswerNumeric, 0.75},
		{"numeric off by two", "42", "40", models.AnswerNumeric, 0.5625},
		{"numeric parse failure falls back to label", "42", "forty-two", models.AnswerNumeric, 0.0},
		{"label match", "cat", "Cat", models.AnswerLabel, 1.0},
		{"label mismatch", "cat", "dog", models.AnswerLabel, 0.0},
		{"comparison match", "more", "more common", models.AnswerComparison, 1.0},
		{"date exact match", "2021-03-04", "2021-03-04", models.AnswerDate, 1.0},
		{"date mismatch", "2021-03-04", "2021-03-05", models.AnswerDate, 0.0},
		{"unknown auto-detects numeric", "42", "42", models.AnswerUnknown, 1.0},
		{"unknown auto-detects comparison", "more common", "more", models.AnswerUnknown, 1.0},
		{"empty actual scores zero", "42", "", models.AnswerNumeric, 0.0},
		{"whitespace actual scores zero", "cat", "   ", models.AnswerLabel, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.InDelta(t, tt.want, Score(tt.expected, tt.actual, tt.answerType), 1e-9)
		})
	}
}

func TestScoreIsPure(t *testing.T) {
	// The same inputs must always produce the same score.
	for i := 0; i < 3; i++ {
		require.Equal(t, 0.5625, Score("42", "40", models.AnswerNumeric))
	}
}

func TestExtractAnswer(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"marker line", "thinking...\nANSWER: 40\ndone", "40"},
		{"marker with extra whitespace", "ANSWER:   more common  ", "more common"},
		{"case insensitive marker", "answer: Paris", "Paris"},
		{"marker mid output", "line one\nsome text\nANSWER: same\n", "same"},
		{"no marker returns empty", "no final answer here", ""},
		{"empty input", "", ""},
		{"marker with no payload", "ANSWER:", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ExtractAnswer(tt.raw))
		})
	}
}
