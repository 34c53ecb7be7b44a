// Package csvio converts between delimited text and models.Dataset.
package csvio

import (
	"bufio"
	"bytes"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vitebski/csv-synth/pkg/models"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// DefaultNullValues are the cell contents read as missing when Options.NullValues is nil
var DefaultNullValues = []string{"", "NA", "N/A", "NaN", "nan", "null", "NULL", "None", "<NA>", "#N/A"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrEmptyInput is returned when the input has no header row
var ErrEmptyInput = errors.New("no header row in input")

// Options controls parsing and formatting
type Options struct {
	// Delimiter defaults to ','
	Delimiter rune

	// Encoding is a WHATWG encoding label such as "latin1" or "windows-1252".
	// Empty means UTF-8.
	Encoding string

	// NullValues are read as missing. Nil means DefaultNullValues.
	NullValues []string
}

func (o Options) delimiter() rune {
	if o.Delimiter == 0 {
		return ','
	}
	return o.Delimiter
}

func (o Options) encoding() (encoding.Encoding, error) {
	label := strings.ToLower(strings.TrimSpace(o.Encoding))
	if label == "" || label == "utf-8" || label == "utf8" {
		return nil, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", o.Encoding, err)
	}
	return enc, nil
}

// Read parses r into a dataset. The first record is the header; duplicate
// names get a ".N" suffix and blank names become "Unnamed: i". Short rows are
// padded with missing values; rows longer than the header are an error.
func Read(r io.Reader, opts Options) (*models.Dataset, error) {
	enc, err := opts.encoding()
	if err != nil {
		return nil, err
	}
	if enc != nil {
		r = transform.NewReader(r, enc.NewDecoder())
	}

	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.Comma = opts.delimiter()
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("could not read header: %w", err)
	}

	nulls := opts.NullValues
	if nulls == nil {
		nulls = DefaultNullValues
	}
	isNull := make(map[string]bool, len(nulls))
	for _, n := range nulls {
		isNull[n] = true
	}

	names := dedupeHeader(header)
	ds := &models.Dataset{Columns: make([]models.Column, len(names))}
	for i, name := range names {
		ds.Columns[i].Name = name
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("could not read record: %w", err)
		}
		if len(record) > len(names) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d has %d fields, header has %d", line, len(record), len(names))
		}

		for i := range ds.Columns {
			if i >= len(record) || isNull[record[i]] {
				ds.Columns[i].Values = append(ds.Columns[i].Values, sql.NullString{})
				continue
			}
			ds.Columns[i].Values = append(ds.Columns[i].Values, sql.NullString{String: record[i], Valid: true})
		}
	}

	return ds, nil
}

func dedupeHeader(header []string) []string {
	names := make([]string, len(header))
	used := make(map[string]bool, len(header))

	for i, h := range header {
		name := h
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		base := name
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("%s.%d", base, n)
		}
		used[name] = true
		names[i] = name
	}
	return names
}

// Write formats ds as delimited text with a header row. Missing values are
// written as empty cells.
func Write(w io.Writer, ds *models.Dataset, opts Options) error {
	enc, err := opts.encoding()
	if err != nil {
		return err
	}
	if enc == nil {
		return writeRecords(w, ds, opts.delimiter())
	}

	tw := transform.NewWriter(w, enc.NewEncoder())
	if err := writeRecords(tw, ds, opts.delimiter()); err != nil {
		tw.Close()
		return err
	}
	return tw.Close()
}

func writeRecords(w io.Writer, ds *models.Dataset, comma rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma

	if err := cw.Write(ds.ColumnNames()); err != nil {
		return fmt.Errorf("could not write header: %w", err)
	}

	record := make([]string, len(ds.Columns))
	for row := 0; row < ds.NumRows(); row++ {
		for i, col := range ds.Columns {
			record[i] = ""
			if row < len(col.Values) && col.Values[row].Valid {
				record[i] = col.Values[row].String
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("could not write row %d: %w", row, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
