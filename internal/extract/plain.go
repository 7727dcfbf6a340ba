package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain handles txt, md, and rst CVs. Exports from legacy Windows
// tooling occasionally arrive with broken encodings, so invalid UTF-8 is
// replaced rather than rejected.
func extractPlain(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "�"), nil
	}
	return string(content), nil
}
