// Package verdict decides whether a finished run produced the expected output.
package verdict

import (
	"strings"

	"github.com/programme-lv/cprun/api"
)

// Classify compares the whole outputs with leading and trailing whitespace
// trimmed. Inner whitespace and line endings must match byte for byte.
func Classify(stdout, expected string) api.Verdict {
	if strings.TrimSpace(stdout) == strings.TrimSpace(expected) {
		return api.Accepted
	}
	return api.WrongAnswer
}
