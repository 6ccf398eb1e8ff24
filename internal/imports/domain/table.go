package domain

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

var (
	ErrEmptyFile       = errors.New("file has no header row")
	ErrUnsupportedFile = errors.New("unsupported file type; upload a .csv, .tsv or .txt file")
)

// SupportedExtensions lists the accepted upload extensions.
var SupportedExtensions = []string{".csv", ".tsv", ".txt"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var candidateDelimiters = []rune{',', ';', '\t', '|'}

// Supported reports whether fileName has an accepted extension.
func Supported(fileName string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Row is one data row. Number is 1-indexed and counts the header row, so the
// first data row is 2.
type Row struct {
	Number int
	Values []string
}

// Blank reports whether every cell is empty.
func (r Row) Blank() bool {
	for _, v := range r.Values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// TableReader streams a delimited file row by row.
type TableReader struct {
	csv       *csv.Reader
	headers   []string
	delimiter rune
	next      int
}

// NewTableReader strips a UTF-8 BOM, sniffs the delimiter from the header
// line and reads the header row.
func NewTableReader(r io.Reader) (*TableReader, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	line, err := peekLine(br)
	if err != nil {
		return nil, err
	}
	delimiter := SniffDelimiter(line)

	cr := csv.NewReader(br)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	headers := cleanHeaders(header)
	if len(headers) == 0 {
		return nil, ErrEmptyFile
	}
	return &TableReader{csv: cr, headers: headers, delimiter: delimiter, next: 2}, nil
}

// Headers returns the cleaned header row.
func (t *TableReader) Headers() []string {
	return t.headers
}

// Delimiter returns the sniffed delimiter.
func (t *TableReader) Delimiter() rune {
	return t.delimiter
}

// Next returns the next row, or io.EOF. Rows whose cells are all empty are
// skipped but still consume a row number. A row that cannot be parsed is
// returned with its number and a non-nil error; reading may continue.
func (t *TableReader) Next() (Row, error) {
	for {
		record, err := t.csv.Read()
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				row := Row{Number: t.next}
				t.next++
				return row, fmt.Errorf("row %d: %w", row.Number, err)
			}
			return Row{}, err
		}
		row := Row{Number: t.next, Values: trimCells(record)}
		t.next++
		if row.Blank() {
			continue
		}
		return row, nil
	}
}

// Table is a fully read file.
type Table struct {
	Headers   []string
	Rows      []Row
	Delimiter rune
}

// TooManyRowsError is returned by ReadTable when the file exceeds its row limit.
type TooManyRowsError struct {
	Limit int
}

func (e TooManyRowsError) Error() string {
	return fmt.Sprintf("file has more than %d rows", e.Limit)
}

// ReadTable reads a whole file. maxRows <= 0 disables the limit.
func ReadTable(r io.Reader, maxRows int) (Table, error) {
	tr, err := NewTableReader(r)
	if err != nil {
		return Table{}, err
	}
	table := Table{Headers: tr.Headers(), Delimiter: tr.Delimiter()}
	for {
		row, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return table, nil
		}
		if err != nil {
			return Table{}, err
		}
		if maxRows > 0 && len(table.Rows) >= maxRows {
			return Table{}, TooManyRowsError{Limit: maxRows}
		}
		table.Rows = append(table.Rows, row)
	}
}

// SniffDelimiter picks the candidate delimiter occurring most often outside
// quotes in line. Ties keep the earlier candidate; a line with none of them
// is comma separated.
func SniffDelimiter(line string) rune {
	counts := make(map[rune]int, len(candidateDelimiters))
	inQuotes := false
	for _, r := range line {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[r]++
		}
	}

	best, bestCount := ',', 0
	for _, d := range candidateDelimiters {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}

func peekLine(br *bufio.Reader) (string, error) {
	for size := 4096; ; size *= 2 {
		buf, err := br.Peek(size)
		if i := bytes.IndexByte(buf, '\n'); i >= 0 {
			return string(buf[:i]), nil
		}
		if err != nil {
			if len(buf) == 0 {
				return "", ErrEmptyFile
			}
			return string(buf), nil
		}
		if size >= br.Size() {
			return string(buf), nil
		}
	}
}

func cleanHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	blank := true
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h != "" {
			blank = false
		} else {
			h = fmt.Sprintf("column_%d", i+1)
		}
		seen[h]++
		if n := seen[h]; n > 1 {
			h = fmt.Sprintf("%s_%d", h, n)
		}
		headers[i] = h
	}
	if blank {
		return nil
	}
	return headers
}

func trimCells(record []string) []string {
	out := make([]string, len(record))
	for i, v := range record {
		out[i] = strings.TrimSpace(v)
	}
	return out
}
