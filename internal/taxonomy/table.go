// Package taxonomy holds the SSIC and SSOC reference tables. A Table is built
// once and never mutated; accessors hand out copies.
package taxonomy

import (
	"fmt"
	"strings"
)

const (
	SSIC = "ssic"
	SSOC = "ssoc"
)

// Row is one taxonomy entry. The number of digits in Code gives its level in
// the hierarchy, 5 being the most detailed.
type Row struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

type Table struct {
	name   string
	rows   []Row
	byCode map[string]int
	byLen  map[int][]int
}

// NewTable indexes rows in the given order. Codes must be unique. An empty
// table is valid; matchers then fall back to their sentinels.
func NewTable(name string, rows []Row) (*Table, error) {
	t := &Table{
		name:   name,
		rows:   make([]Row, 0, len(rows)),
		byCode: make(map[string]int, len(rows)),
		byLen:  map[int][]int{},
	}
	for _, r := range rows {
		r.Code = strings.TrimSpace(r.Code)
		r.Title = strings.TrimSpace(r.Title)
		if r.Code == "" {
			return nil, fmt.Errorf("%s: empty code", name)
		}
		if _, dup := t.byCode[r.Code]; dup {
			return nil, fmt.Errorf("%s: duplicate code %s", name, r.Code)
		}
		idx := len(t.rows)
		t.rows = append(t.rows, r)
		t.byCode[r.Code] = idx
		t.byLen[len(r.Code)] = append(t.byLen[len(r.Code)], idx)
	}
	return t, nil
}

func (t *Table) Name() string { return t.name }

func (t *Table) Len() int { return len(t.rows) }

// Rows returns every row in table order.
func (t *Table) Rows() []Row {
	return append([]Row(nil), t.rows...)
}

// RowsOfLength returns the rows whose code has exactly n digits, in table order.
func (t *Table) RowsOfLength(n int) []Row {
	idx := t.byLen[n]
	out := make([]Row, len(idx))
	for i, j := range idx {
		out[i] = t.rows[j]
	}
	return out
}

func (t *Table) Lookup(code string) (Row, bool) {
	i, ok := t.byCode[strings.TrimSpace(code)]
	if !ok {
		return Row{}, false
	}
	return t.rows[i], true
}

// Has reports whether code is present in the table.
func (t *Table) Has(code string) bool {
	_, ok := t.byCode[strings.TrimSpace(code)]
	return ok
}

// Children returns rows one level below code whose code starts with it.
func (t *Table) Children(code string) []Row {
	code = strings.TrimSpace(code)
	var out []Row
	for _, j := range t.byLen[len(code)+1] {
		if strings.HasPrefix(t.rows[j].Code, code) {
			out = append(out, t.rows[j])
		}
	}
	return out
}

// Ancestors returns the rows for each proper prefix of code that is in the
// table, shortest first.
func (t *Table) Ancestors(code string) []Row {
	code = strings.TrimSpace(code)
	var out []Row
	for n := 1; n < len(code); n++ {
		if r, ok := t.Lookup(code[:n]); ok {
			out = append(out, r)
		}
	}
	return out
}
