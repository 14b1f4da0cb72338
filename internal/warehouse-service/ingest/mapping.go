package ingest

import (
	"strings"
	"unicode/utf8"
)

// Mapping ties schema fields to the sheet columns they are read from.
type Mapping struct {
	schema  *Schema
	index   map[string]int
	headers map[string]string
}

// Map checks a header row against the schema. Headers are compared after
// trimming. A header that appears twice maps to its first column.
func (s *Schema) Map(headers []string) (*Mapping, error) {
	pos := make(map[string]int, len(headers))
	for i, h := range headers {
		h = normalizeHeader(h)
		if _, ok := pos[h]; !ok && h != "" {
			pos[h] = i
		}
	}

	m := &Mapping{
		schema:  s,
		index:   make(map[string]int, len(s.Columns)),
		headers: make(map[string]string, len(s.Columns)),
	}
	var missing []string
	for _, c := range s.Columns {
		i, ok := pos[c.Header]
		if !ok {
			if c.Required {
				missing = append(missing, c.Header)
			}
			continue
		}
		m.index[c.Field] = i
		m.headers[c.Field] = headers[i]
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}
	return m, nil
}

// Fields returns field name to source header for every mapped column.
func (m *Mapping) Fields() map[string]string {
	res := make(map[string]string, len(m.headers))
	for k, v := range m.headers {
		res[k] = v
	}
	return res
}

// Normalize converts one data row. line is reported in errors.
func (s *Schema) Normalize(m *Mapping, row []string, line int) (Record, error) {
	rec := make(Record, len(s.Columns))
	for _, c := range s.Columns {
		v := ""
		if i, ok := m.index[c.Field]; ok && i < len(row) {
			v = CleanCell(row[i])
		}
		if v == "" {
			if c.NotBlank {
				return nil, &IngestionError{Row: line, Column: c.Header, Err: ErrBlankValue}
			}
			rec[c.Field] = v
			continue
		}
		if c.Date {
			d, err := ParseDate(v)
			if err != nil {
				return nil, &IngestionError{Row: line, Column: c.Header, Err: err}
			}
			v = d.Format(DateLayout)
		}
		if c.MaxLen > 0 && utf8.RuneCountInString(v) > c.MaxLen {
			return nil, &IngestionError{Row: line, Column: c.Header, Err: ErrValueTooLong}
		}
		rec[c.Field] = v
	}
	return rec, nil
}

// IsBlank reports whether every cell of the row is empty after cleaning.
func IsBlank(row []string) bool {
	for _, v := range row {
		if CleanCell(v) != "" {
			return false
		}
	}
	return true
}

// CleanCell trims a cell and turns the "NaN"/"nan" placeholder into an empty
// value. Scanned values go through it too.
func CleanCell(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "nan") {
		return ""
	}
	return v
}
