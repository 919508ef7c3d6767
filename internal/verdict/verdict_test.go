package verdict_test

import (
	"testing"

	"github.com/programme-lv/cprun/api"
	"github.com/programme-lv/cprun/internal/verdict"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		stdout   string
		expected string
		want     api.Verdict
	}{
		{"exact", "3", "3", api.Accepted},
		{"trailing newline", "3\n", "3", api.Accepted},
		{"surrounding whitespace", "  \t3 \r\n", "\n3\n\n", api.Accepted},
		{"different value", "4\n", "3", api.WrongAnswer},
		{"empty vs empty", "", "\n", api.Accepted},
		{"empty output", "", "3", api.WrongAnswer},
		{"inner spaces are strict", "1  2", "1 2", api.WrongAnswer},
		{"per line trailing space is strict", "1 \n2", "1\n2", api.WrongAnswer},
		{"multiline", "1\n2\n", "1\n2", api.Accepted},
		{"crlf inside is strict", "1\r\n2", "1\n2", api.WrongAnswer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, verdict.Classify(tt.stdout, tt.expected))
		})
	}
}
