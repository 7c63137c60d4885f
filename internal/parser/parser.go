// Package parser turns raw logfile bytes into records.
//
// A logfile line is a sequence of key=value fields joined by ':'.
// A literal colon inside a value is written as "::".
package parser

import (
	"regexp"
	"strings"

	"github.com/webzook/wintail/pkg/wintail/record"
)

const (
	fieldSep = ':'
	kvSep    = "="
)

// headerPattern matches the version marker that opens every complete line,
// e.g. "v=0.30.0:" or "v=0.30-x".
var headerPattern = regexp.MustCompile(`^v=\d\.\d{2}(?:\D|$)`)

// IsHeader reports whether line starts with a version marker.
func IsHeader(line string) bool {
	return headerPattern.MatchString(line)
}

// Parse splits chunk into lines and parses each into a record, in log order.
//
// chunk is a byte-exact slice of the logfile. When startedAtZero is false the
// chunk may begin in the middle of a line; a first line without a version
// marker is treated as a leftover fragment and dropped.
func Parse(chunk []byte, startedAtZero bool) []record.Record {
	if len(chunk) == 0 {
		return nil
	}

	lines := strings.Split(string(chunk), "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	if len(lines) > 0 && !startedAtZero && !IsHeader(lines[0]) {
		lines = lines[1:]
	}

	records := make([]record.Record, 0, len(lines))
	for _, line := range lines {
		records = append(records, ParseLine(line))
	}
	return records
}

// ParseLine parses a single line. It never fails: a segment without '='
// becomes a field with an empty value, and empty segments are skipped.
func ParseLine(line string) record.Record {
	line = strings.TrimSuffix(line, "\r")

	var r record.Record
	for _, seg := range splitFields(line) {
		if seg == "" {
			continue
		}
		key, value, _ := strings.Cut(seg, kvSep)
		r.Set(key, value)
	}
	return r
}

// splitFields splits on single colons and unescapes "::" to ':'.
func splitFields(line string) []string {
	var (
		fields []string
		cur    strings.Builder
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c != fieldSep {
			cur.WriteByte(c)
			continue
		}
		if i+1 < len(line) && line[i+1] == fieldSep {
			cur.WriteByte(fieldSep)
			i++
			continue
		}
		fields = append(fields, cur.String())
		cur.Reset()
	}
	return append(fields, cur.String())
}
