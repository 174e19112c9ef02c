package scoring

import "strings"

// answerMarker is the literal prefix an external session must emit on a
// single line of its final output.
const answerMarker = "ANSWER:"

// ExtractAnswer scans raw session output for a line beginning with the
// "ANSWER: " marker and returns the trimmed remainder of that line. The
// match is case-insensitive. When no marker line exists it returns "":
// a missing answer is scored normally, never raised as an error.
func ExtractAnswer(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < len(answerMarker) {
			continue
		}
		if strings.EqualFold(line[:len(answerMarker)], answerMarker) {
			return strings.TrimSpace(line[len(answerMarker):])
		}
	}
	return ""
}
