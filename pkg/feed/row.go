package feed

import "strings"

// Row is one record of a header-first tabular source. Columns are reachable
// by header name and by position; the latter is needed when two columns share
// a header and only the first is reachable by name.
type Row struct {
	values []string
	index  map[string]int
	line   int
}

// Header builds the shared name index for rows of one source. The first
// column carrying a given header wins.
type Header struct {
	names []string
	index map[string]int
}

func NewHeader(names []string) *Header {
	idx := make(map[string]int, len(names))
	for i, name := range names {
		if _, exists := idx[name]; !exists {
			idx[name] = i
		}
	}
	return &Header{names: names, index: idx}
}

func (h *Header) Names() []string {
	return h.names
}

// Row binds values to the header. line is the 1-based source line, used in
// error messages only.
func (h *Header) Row(values []string, line int) Row {
	return Row{values: values, index: h.index, line: line}
}

// NewRow is a convenience for in-memory fixtures.
func NewRow(header []string, values []string) Row {
	return NewHeader(header).Row(values, 0)
}

// Get returns the value of the first column named name, or "" if the column
// is absent or the row is short.
func (r Row) Get(name string) string {
	i, ok := r.index[name]
	if !ok {
		return ""
	}
	return r.At(i)
}

// At returns the value at column position i (0-based), or "" when out of range.
func (r Row) At(i int) string {
	if i < 0 || i >= len(r.values) {
		return ""
	}
	return r.values[i]
}

func (r Row) Line() int {
	return r.line
}

// String renders the row as comma-separated values, matching the source line.
func (r Row) String() string {
	return strings.Join(r.values, ",")
}
