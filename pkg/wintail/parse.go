package wintail

import (
	"bufio"
	"context"
	"errors"
	"iter"
	"os"

	"github.com/webzook/wintail/internal/parser"
)

// ParseLine parses a single logfile line into a record. It never fails.
func ParseLine(line string) Record {
	return parser.ParseLine(line)
}

// ParseChunk parses a raw byte range of a logfile. See Tailer.Poll for how
// startedAtZero controls fragment handling.
func ParseChunk(chunk []byte, startedAtZero bool) []Record {
	return parser.Parse(chunk, startedAtZero)
}

// ParseFile reads a whole local logfile and returns an iterator over its wins
// (or all records with WithParseAllRecords). No offsets are stored.
// The file is opened lazily on first iteration.
//
// Example:
//
//	for rec, err := range wintail.ParseFile(ctx, "webzook-0.30.logfile") {
//	    if err != nil {
//	        log.Printf("error: %v", err)
//	        break
//	    }
//	    fmt.Println(rec.Value("name"))
//	}
func ParseFile(ctx context.Context, path string, opts ...ParseOption) iter.Seq2[Record, error] {
	if path == "" {
		return func(yield func(Record, error) bool) {
			yield(Record{}, errors.New("wintail: path required"))
		}
	}

	cfg := applyParseOptions(opts)

	return func(yield func(Record, error) bool) {
		file, err := os.Open(path)
		if err != nil {
			yield(Record{}, err)
			return
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		// Increase buffer size for long lines
		buf := make([]byte, 0, 64*1024)
		scanner.Buffer(buf, 512*1024)

		yielded := 0
		for scanner.Scan() {
			if err := ctx.Err(); err != nil {
				yield(Record{}, err)
				return
			}

			rec := parser.ParseLine(scanner.Text())
			if !cfg.allRecords && !cfg.filter.Allows(rec) {
				continue
			}
			if !yield(rec, nil) {
				return
			}
			yielded++
			if cfg.limit > 0 && yielded >= cfg.limit {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield(Record{}, err)
		}
	}
}

// ParseFileAll collects ParseFile results into a slice. Stops on first error
// and returns the records collected so far.
func ParseFileAll(ctx context.Context, path string, opts ...ParseOption) ([]Record, error) {
	records := make([]Record, 0, 16)
	for rec, err := range ParseFile(ctx, path, opts...) {
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
	return records, nil
}
