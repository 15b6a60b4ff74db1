// Package features turns a raw survey record into the engineered record the
// price model consumes: it builds the single ordered row, rejects impossible
// age/occupation combinations and derives the age bucket and the engineered
// scores.
package features

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
)

// RawInput is one survey response keyed by raw field name. Values are
// whatever the caller decoded: strings for categorical fields, a number for
// age, nil for a field left blank.
type RawInput map[string]any

// Kind tells which of a cell's fields is meaningful.
type Kind uint8

const (
	Null Kind = iota
	Text
	Number
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Number:
		return "number"
	default:
		return "null"
	}
}

// Cell is a single value of a row. A Null cell stands for a missing value and
// becomes NaN once the row is turned into numbers.
type Cell struct {
	Kind Kind
	Text string
	Num  float64
}

func NullCell() Cell { return Cell{Kind: Null} }
func TextCell(s string) Cell { return Cell{Kind: Text, Text: s} }
func NumberCell(f float64) Cell { return Cell{Kind: Number, Num: f} }
func (c Cell) IsNull() bool { return c.Kind == Null }
func (c Cell) Is(s string) bool { return c.Kind == Text && c.Text == s }

// Float returns the numeric value of the cell, NaN for null and text cells.
func (c Cell) Float() float64 {
	if c.Kind == Number {
		return c.Num
	}
	return math.NaN()
}

// String renders the cell the way a categorical column names its values.
func (c Cell) String() string {
	switch c.Kind {
	case Text:
		return c.Text
	case Number:
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	default:
		return ""
	}
}

func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case Text:
		return json.Marshal(c.Text)
	case Number:
		if math.IsNaN(c.Num) || math.IsInf(c.Num, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(c.Num)
	default:
		return []byte("null"), nil
	}
}

// Row is a single ordered record. Columns keep insertion order; setting an
// existing column replaces its value in place.
type Row struct {
	columns []string
	cells   map[string]Cell
}

func NewRow() *Row {
	return &Row{cells: make(map[string]Cell)}
}

// Set stores c under col, appending col if the row does not have it yet.
func (r *Row) Set(col string, c Cell) {
	if _, ok := r.cells[col]; !ok {
		r.columns = append(r.columns, col)
	}
	r.cells[col] = c
}

// Get returns the cell for col and whether the row has that column.
func (r *Row) Get(col string) (Cell, bool) {
	c, ok := r.cells[col]
	return c, ok
}

// Cell returns the cell for col, or a null cell if the column is absent.
func (r *Row) Cell(col string) Cell {
	return r.cells[col]
}

// Has reports whether the row contains col.
func (r *Row) Has(col string) bool {
	_, ok := r.cells[col]
	return ok
}

// Drop removes the given columns. Absent columns are ignored.
func (r *Row) Drop(cols ...string) {
	for _, col := range cols {
		if _, ok := r.cells[col]; !ok {
			continue
		}
		delete(r.cells, col)
		r.columns = slices.DeleteFunc(r.columns, func(c string) bool { return c == col })
	}
}

// Columns returns a copy of the column order.
func (r *Row) Columns() []string {
	return slices.Clone(r.columns)
}

func (r *Row) Len() int {
	return len(r.columns)
}

func (r *Row) Clone() *Row {
	out := &Row{
		columns: slices.Clone(r.columns),
		cells:   make(map[string]Cell, len(r.cells)),
	}
	for k, v := range r.cells {
		out.cells[k] = v
	}
	return out
}

// Map returns the row as column -> cell, for logging and explain output.
func (r *Row) Map() map[string]Cell {
	out := make(map[string]Cell, len(r.cells))
	for k, v := range r.cells {
		out[k] = v
	}
	return out
}

// BuildRow lays input out in the given column order. A column missing from
// input, or holding nil, becomes a null cell; keys of input outside columns
// are ignored.
func BuildRow(input RawInput, columns []string) *Row {
	row := NewRow()
	for _, col := range columns {
		row.Set(col, cellOf(input[col]))
	}
	return row
}

func cellOf(v any) Cell {
	switch val := v.(type) {
	case nil:
		return NullCell()
	case string:
		return TextCell(val)
	case float64:
		return NumberCell(val)
	case float32:
		return NumberCell(float64(val))
	case int:
		return NumberCell(float64(val))
	case int32:
		return NumberCell(float64(val))
	case int64:
		return NumberCell(float64(val))
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return NumberCell(f)
		}
		return TextCell(val.String())
	default:
		return TextCell(fmt.Sprint(val))
	}
}
