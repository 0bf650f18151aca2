package agentloop

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// codeSignature computes a deterministic signature for a snippet. Leading
// and trailing whitespace on each line is ignored.
func codeSignature(code string) string {
	lines := strings.Split(strings.TrimSpace(code), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	h := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return fmt.Sprintf("%x", h[:8])
}

// DetectLoop reports whether the last windowSize snippets follow a repeating
// pattern of length 1, 2, or 3.
func DetectLoop(codes []string, windowSize int) bool {
	if windowSize <= 0 || len(codes) < windowSize {
		return false
	}
	sigs := make([]string, windowSize)
	for i, code := range codes[len(codes)-windowSize:] {
		sigs[i] = codeSignature(code)
	}

	for patternLen := 1; patternLen <= 3; patternLen++ {
		if windowSize%patternLen != 0 || patternLen == windowSize {
			continue
		}
		pattern := sigs[:patternLen]
		allMatch := true
		for i := patternLen; i < windowSize && allMatch; i += patternLen {
			for j := 0; j < patternLen; j++ {
				if sigs[i+j] != pattern[j] {
					allMatch = false
					break
				}
			}
		}
		if allMatch {
			return true
		}
	}
	return false
}
