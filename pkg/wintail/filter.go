package wintail

import (
	"strings"

	"github.com/webzook/wintail/pkg/wintail/record"
)

// WinPrefix is the message that opens the tmsg field of a won game.
const WinPrefix = "escaped with the Orb"

// compiledFilter selects records whose message field starts with a prefix.
type compiledFilter struct {
	field  string
	prefix string
}

// newCompiledFilter returns a filter on the tmsg field.
// An empty prefix falls back to WinPrefix.
func newCompiledFilter(prefix string) *compiledFilter {
	if prefix == "" {
		prefix = WinPrefix
	}
	return &compiledFilter{field: record.FieldMessage, prefix: prefix}
}

// Allows reports whether r passes the filter. A nil filter uses WinPrefix.
func (f *compiledFilter) Allows(r Record) bool {
	if f == nil {
		return IsWin(r)
	}
	return strings.HasPrefix(r.Value(f.field), f.prefix)
}

// apply keeps matching records in their original order. No deduplication.
func (f *compiledFilter) apply(records []Record) []Record {
	var out []Record
	for _, r := range records {
		if f.Allows(r) {
			out = append(out, r)
		}
	}
	return out
}

// IsWin reports whether r records an escape with the Orb.
// Records without a tmsg field are never wins.
func IsWin(r Record) bool {
	return strings.HasPrefix(r.Value(record.FieldMessage), WinPrefix)
}

// FilterWins returns the wins among records, preserving order.
func FilterWins(records []Record) []Record {
	return newCompiledFilter(WinPrefix).apply(records)
}
