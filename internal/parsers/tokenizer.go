// Package parsers turns bank, card and wallet statement exports into
// canonical ledger transactions.
//
// A file goes through four steps:
//   - SplitLines and Tokenize break the text into fields
//   - ProfileSet.Resolve picks the format profile and column positions
//   - Normalizer converts each row into zero, one or two transactions
//   - Assembler numbers rows across files and collects per-file statistics
//
// Parsing is tolerant: malformed amounts read as zero, unparsable dates read
// as the zero date and short rows are skipped. None of these raise errors.
package parsers

import (
	"strings"
)

// Tokenize splits one line into trimmed fields. A double quote toggles quoted
// mode and is not emitted; inside quotes the delimiter is literal. There is no
// escape sequence, so "" simply toggles twice. Empty trailing fields are kept.
func Tokenize(line string, delimiter rune) []string {
	line = strings.TrimSuffix(line, "\r")

	var fields []string
	var current strings.Builder
	inQuotes := false

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == delimiter && !inQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	fields = append(fields, strings.TrimSpace(current.String()))

	return fields
}

// SplitLines splits file content into lines, dropping a UTF-8 byte order mark
// and the empty remainder after a final newline. Blank lines in the middle are
// kept so line indexes match the file.
func SplitLines(content string) []string {
	content = strings.TrimPrefix(content, "\ufeff")
	if content == "" {
		return nil
	}

	lines := strings.Split(content, "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}

	return lines
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}
