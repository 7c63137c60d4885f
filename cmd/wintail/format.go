package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/webzook/wintail/pkg/wintail"
	"github.com/webzook/wintail/pkg/wintail/record"
)

// Output formats.
const (
	formatJSONL  = "jsonl"
	formatPretty = "pretty"
	formatAuto   = "auto"
)

// ValidFormats lists the accepted --format values.
var ValidFormats = map[string]bool{
	formatJSONL:  true,
	formatPretty: true,
	formatAuto:   true,
}

// resolveFormat validates format and turns "auto" into pretty on a terminal
// and jsonl otherwise.
func resolveFormat(format string, w io.Writer) (string, error) {
	if !ValidFormats[format] {
		return "", fmt.Errorf("invalid format %q: must be one of: auto, jsonl, pretty", format)
	}
	if format != formatAuto {
		return format, nil
	}
	if isTerminal(w) {
		return formatPretty, nil
	}
	return formatJSONL, nil
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// OutputJSON writes rec as a single JSON line, fields in log order.
func OutputJSON(rec wintail.Record, w io.Writer) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// OutputPretty writes rec in a human-readable one-line form.
func OutputPretty(rec wintail.Record, w io.Writer) error {
	var b strings.Builder

	if end := rec.Value(record.FieldEnd); end != "" {
		b.WriteString("[")
		b.WriteString(formatEnd(end))
		b.WriteString("] ")
	}

	marker := "-"
	if wintail.IsWin(rec) {
		marker = "*"
	}
	b.WriteString(marker)
	b.WriteString(" ")

	name := rec.Value(record.FieldName)
	if name == "" {
		name = "(unknown)"
	}
	b.WriteString(name)

	if char := character(rec); char != "" {
		b.WriteString(" (")
		b.WriteString(char)
		b.WriteString(")")
	}

	if msg := rec.Value(record.FieldMessage); msg != "" {
		b.WriteString(" ")
		b.WriteString(msg)
	}
	if sc := rec.Value(record.FieldScore); sc != "" {
		b.WriteString(", score ")
		b.WriteString(sc)
	}

	_, err := fmt.Fprintln(w, b.String())
	return err
}

// OutputEvent writes rec in the given resolved format.
func OutputEvent(format string, rec wintail.Record, w io.Writer) error {
	switch format {
	case formatJSONL:
		return OutputJSON(rec, w)
	case formatPretty:
		return OutputPretty(rec, w)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// character prefers the race/class pair, then the combo abbreviation.
func character(rec wintail.Record) string {
	race, cls := rec.Value(record.FieldRace), rec.Value(record.FieldClass)
	switch {
	case race != "" && cls != "":
		return race + " " + cls
	case rec.Value(record.FieldCombo) != "":
		return rec.Value(record.FieldCombo)
	default:
		return strings.TrimSpace(race + " " + cls)
	}
}

// formatEnd renders the logfile timestamp YYYYMMDDhhmmss[SD]. Months in the
// logfile are zero-based. Anything else is returned unchanged.
func formatEnd(end string) string {
	digits := strings.TrimRight(end, "SD")
	if len(digits) != 14 || strings.Trim(digits, "0123456789") != "" {
		return end
	}
	month := int(digits[4]-'0')*10 + int(digits[5]-'0') + 1
	return fmt.Sprintf("%s-%02d-%s %s:%s:%s", digits[0:4], month, digits[6:8], digits[8:10], digits[10:12], digits[12:14])
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}
