package parsers

import (
	"path/filepath"
	"strings"
)

// DetectDelimiter decides by the header line: a tab means tab, a comma means
// comma. Only a header with neither falls back to the extension, where .tsv
// and .txt mean tab.
func DetectDelimiter(fileName, firstLine string) rune {
	switch {
	case strings.ContainsRune(firstLine, '\t'):
		return '\t'
	case strings.ContainsRune(firstLine, ','):
		return ','
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == ".tsv" || ext == ".txt" {
		return '\t'
	}
	return ','
}

// Resolve picks the profile for a file and the column positions to read.
// Tab-delimited files are always wallet exports and resolve their columns by
// header name. Comma-delimited files are card statements when the base name
// starts with a card prefix and bank statements otherwise; both use fixed
// positions.
func (ps *ProfileSet) Resolve(fileName string, delimiter rune, header []string) (*FormatProfile, ColumnMap) {
	if delimiter == '\t' {
		return ps.Wallet, resolveByHeader(ps.Wallet, header)
	}

	if hasPrefix(filepath.Base(fileName), ps.Card.FilePrefixes) {
		return ps.Card, ps.Card.positional()
	}

	return ps.Bank, ps.Bank.positional()
}

func hasPrefix(name string, prefixes []string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range prefixes {
		prefix = strings.ToLower(strings.TrimSpace(prefix))
		if prefix != "" && strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// resolveByHeader tries each alias in order against every header cell; the
// first alias that matches wins. Columns without a match fall back to their
// fixed index.
func resolveByHeader(p *FormatProfile, header []string) ColumnMap {
	lowered := make([]string, len(header))
	for i, h := range header {
		lowered[i] = strings.ToLower(strings.TrimSpace(h))
	}

	cols := make(ColumnMap, len(p.Columns))
	for col, cs := range p.Columns {
		cols[col] = cs.Index
		if idx, ok := matchAlias(lowered, cs.Aliases); ok {
			cols[col] = idx
		}
	}
	return cols
}

func matchAlias(header []string, aliases []string) (int, bool) {
	for _, alias := range aliases {
		alias = strings.ToLower(strings.TrimSpace(alias))
		if alias == "" {
			continue
		}
		for i, h := range header {
			if strings.Contains(h, alias) {
				return i, true
			}
		}
	}
	return -1, false
}
