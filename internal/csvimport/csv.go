// Package csvimport parses the fiscal import CSV into records.
package csvimport

import (
	"encoding/csv"
	"errors"
	"strings"
)

const (
	ColumnEscuelaID = "escuela_id"
	ColumnDNI       = "dni"
)

var (
	// ErrTooFewLines is returned when the text has no header or no data row
	ErrTooFewLines = errors.New("csv must have a header and at least one data row")
	// ErrMissingColumns is returned when escuela_id or dni is not in the header
	ErrMissingColumns = errors.New("csv header must contain escuela_id and dni")
)

// candidate delimiters in tie-break order
var delimiters = []rune{',', ';', '\t', '|'}

// Record is one data row of the import CSV
type Record struct {
	Line      int               `validate:"-"`
	EscuelaID string            `validate:"required"`
	DNI       string            `validate:"required"`
	Fields    map[string]string `validate:"-"`
}

// HeaderIndex maps a normalised column name to its position
type HeaderIndex map[string]int

// Parse splits text into records keyed by the header row. Blank lines are
// skipped, header names are lower-cased, and quotes are stripped from values.
func Parse(text string) ([]Record, error) {
	lines := splitLines(text)
	if len(lines) < 2 {
		return nil, ErrTooFewLines
	}

	header := strings.TrimPrefix(lines[0].text, "\ufeff")
	delim := DetectDelimiter(header)

	idx := MakeHeaderIndex(splitRow(header, delim))
	if _, ok := idx[ColumnEscuelaID]; !ok {
		return nil, ErrMissingColumns
	}
	if _, ok := idx[ColumnDNI]; !ok {
		return nil, ErrMissingColumns
	}

	records := make([]Record, 0, len(lines)-1)
	for _, line := range lines[1:] {
		cells := splitRow(line.text, delim)
		fields := make(map[string]string, len(idx))
		for name, pos := range idx {
			if pos < len(cells) {
				fields[name] = CleanCell(cells[pos])
			} else {
				fields[name] = ""
			}
		}
		records = append(records, Record{
			Line:      line.number,
			EscuelaID: fields[ColumnEscuelaID],
			DNI:       fields[ColumnDNI],
			Fields:    fields,
		})
	}

	return records, nil
}

// MakeHeaderIndex builds a HeaderIndex; the first occurrence of a name wins
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if key == "" {
			continue
		}
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// DetectDelimiter picks the most frequent candidate delimiter in the header
// line. Ties and lines with none resolve to a comma.
func DetectDelimiter(header string) rune {
	best, bestCount := ',', 0
	for _, d := range delimiters {
		if n := strings.Count(header, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// CleanCell trims whitespace and removes double quotes
func CleanCell(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
}

type line struct {
	number int
	text   string
}

func splitLines(text string) []line {
	var out []line
	for i, l := range strings.Split(text, "\n") {
		l = strings.TrimSuffix(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, line{number: i + 1, text: l})
	}
	return out
}

// splitRow splits one line, honouring quoted cells. Lines the csv reader
// rejects fall back to a plain split.
func splitRow(s string, delim rune) []string {
	r := csv.NewReader(strings.NewReader(s))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	cells, err := r.Read()
	if err != nil {
		return strings.Split(s, string(delim))
	}
	return cells
}
