package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"
)

// ErrSourceNotFound is returned when a table has no source file.
var ErrSourceNotFound = errors.New("source file not found")

// utf8BOM is prepended to CSV files by many Windows programs.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SourceTable is the full row set of one table as read from its source.
type SourceTable struct {
	Name    string
	File    string
	Columns []string
	Rows    []Row
}

// Source loads the rows of a table by name.
type Source interface {
	Load(table string) (*SourceTable, error)
}

// FSSource reads "<table>.csv" files from a file system.
type FSSource struct {
	FS fs.FS
}

// NewDirSource returns a Source reading CSV files from dir.
func NewDirSource(dir string) *FSSource {
	return &FSSource{FS: os.DirFS(dir)}
}

// Load reads and parses the CSV file for table.
func (s *FSSource) Load(table string) (*SourceTable, error) {
	name := table + ".csv"

	data, err := fs.ReadFile(s.FS, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("table %s: %w: %s", table, ErrSourceNotFound, name)
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	st, err := ParseCSV(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	st.Name = table
	st.File = name
	return st, nil
}

// ParseCSV reads a header row followed by data records.
//
// The UTF-8 BOM is removed and invalid UTF-8 is replaced before parsing.
// Records shorter than the header are padded with empty values; records
// that are entirely blank are skipped. Values are returned as read, with
// empty and padded cells marked null.
func ParseCSV(r io.Reader) (*SourceTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	data = sanitizeUTF8(data)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	st := &SourceTable{Columns: columns}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if isEmptyRow(record) {
			continue
		}

		line, _ := cr.FieldPos(0)

		values := record
		if len(values) < len(columns) {
			values = make([]string, len(columns))
			copy(values, record)
		}

		st.Rows = append(st.Rows, NewRow(line, columns, values))
	}

	return st, nil
}

func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('\uFFFD')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
