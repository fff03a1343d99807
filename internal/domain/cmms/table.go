// Package cmms computes evidence metrics from CMMS exports: the
// reactive work ratio, PM schedule compliance and closure-note data
// quality. Calculators are pure functions over an in-memory table;
// loading and column aliasing live in the tabular adapter.
package cmms

// Row is one record keyed by canonical column name.
type Row map[string]string

// Table is a loaded CMMS export. Columns lists the canonical names
// present; every Row holds string cells under those names.
type Table struct {
	Columns []string
	Rows    []Row
}

// Has reports whether the table carries the named column.
func (t *Table) Has(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }
