package engine

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strconv"
	"strings"

	"github.com/roach88/vql/internal/store"
)

// ReadBed streams the regions of a tab-separated BED file.
//
// Columns are chr, start, end and an optional name. Comment lines (#),
// track and browser lines, and rows with fewer than three columns are
// skipped. A row whose start or end is not an integer ends the sequence
// with an error.
//
// The file is opened when iteration starts and closed when it stops.
func ReadBed(path string) iter.Seq2[store.Region, error] {
	return func(yield func(store.Region, error) bool) {
		f, err := os.Open(path)
		if err != nil {
			yield(store.Region{}, fmt.Errorf("read bed: %w", err))
			return
		}
		defer f.Close()

		for r, err := range readBed(f) {
			if err != nil {
				err = fmt.Errorf("read bed %s: %w", path, err)
			}
			if !yield(r, err) || err != nil {
				return
			}
		}
	}
}

func readBed(src io.Reader) iter.Seq2[store.Region, error] {
	return func(yield func(store.Region, error) bool) {
		reader := csv.NewReader(src)
		reader.Comma = '\t'
		reader.Comment = '#'
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true
		reader.ReuseRecord = true

		for {
			row, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(store.Region{}, err)
				return
			}
			if len(row) < 3 || isBedHeader(row[0]) {
				continue
			}

			line, _ := reader.FieldPos(0)
			start, err := strconv.ParseInt(strings.TrimSpace(row[1]), 10, 64)
			if err != nil {
				yield(store.Region{}, fmt.Errorf("line %d: invalid start %q", line, row[1]))
				return
			}
			end, err := strconv.ParseInt(strings.TrimSpace(row[2]), 10, 64)
			if err != nil {
				yield(store.Region{}, fmt.Errorf("line %d: invalid end %q", line, row[2]))
				return
			}

			r := store.Region{Chr: row[0], Start: start, End: end}
			if len(row) > 3 {
				r.Name = row[3]
			}
			if !yield(r, nil) {
				return
			}
		}
	}
}

func isBedHeader(first string) bool {
	return strings.HasPrefix(first, "track") || strings.HasPrefix(first, "browser")
}
