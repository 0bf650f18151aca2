package agentloop

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// TruncationMode specifies how output is truncated.
type TruncationMode string

const (
	TruncateHeadTail TruncationMode = "head_tail"
	TruncateTail     TruncationMode = "tail"
)

// TruncateOutput applies character-based truncation to output. Cut points
// never split a UTF-8 sequence.
func TruncateOutput(output string, maxChars int, mode TruncationMode) string {
	if maxChars <= 0 || len(output) <= maxChars {
		return output
	}

	removed := len(output) - maxChars
	switch mode {
	case TruncateTail:
		return fmt.Sprintf("[WARNING: Observation was truncated. First %d characters were removed.]\n\n", removed) +
			output[tailStart(output, maxChars):]

	default:
		half := maxChars / 2
		return output[:headEnd(output, half)] +
			fmt.Sprintf("\n\n[WARNING: Observation was truncated. %d characters were removed from the middle. "+
				"Print narrower slices of the data to see specific parts.]\n\n", removed) +
			output[tailStart(output, half):]
	}
}

// headEnd returns the largest rune boundary <= n.
func headEnd(s string, n int) int {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}

// tailStart returns the first rune boundary at or after len(s)-n.
func tailStart(s string, n int) int {
	i := len(s) - n
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return i
}

// TruncateLines applies line-based truncation using a head/tail split.
func TruncateLines(output string, maxLines int) string {
	if maxLines <= 0 {
		return output
	}
	lines := strings.Split(output, "\n")
	if len(lines) <= maxLines {
		return output
	}

	headCount := maxLines / 2
	tailCount := maxLines - headCount
	omitted := len(lines) - headCount - tailCount

	return strings.Join(lines[:headCount], "\n") +
		fmt.Sprintf("\n[... %d lines omitted ...]\n", omitted) +
		strings.Join(lines[len(lines)-tailCount:], "\n")
}

// TruncateObservation bounds an observation digest: characters first, to
// handle pathological single lines, then lines for readability.
func TruncateObservation(digest string, maxChars, maxLines int) string {
	return TruncateLines(TruncateOutput(digest, maxChars, TruncateHeadTail), maxLines)
}
