// Package tabular reads CMMS CSV exports into the calculator table,
// resolving vendor-specific headers to canonical column names through a
// configurable alias map.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"

	"github.com/maintiq/rmi/internal/domain/cmms"
)

// AliasMap resolves canonical column names from the header variants
// different CMMS vendors export.
type AliasMap map[string][]string

// DefaultWorkOrderAliases covers the common work order export headers.
func DefaultWorkOrderAliases() AliasMap {
	return AliasMap{
		"work_order_number":     {"WO Number", "Work Order ID", "WO#"},
		cmms.ColWorkOrderType:   {"Type", "WO Type", "Work Type", "Order Type"},
		cmms.ColPriority:        {"Priority", "Priority Level"},
		"status":                {"Status", "WO Status"},
		"created_date":          {"Created", "Date Created", "Entry Date"},
		cmms.ColCompletedDate:   {"Completed", "Date Completed", "Finish Date"},
		cmms.ColCompletionNotes: {"Notes", "Resolution", "Closure Notes", "Comments"},
	}
}

// DefaultPMAliases covers the common PM schedule export headers.
func DefaultPMAliases() AliasMap {
	return AliasMap{
		"pm_number":           {"PM Number", "PM ID"},
		cmms.ColDueDate:       {"Due Date", "Scheduled Date"},
		cmms.ColCompletedDate: {"Completed Date", "Actual Date"},
		"status":              {"Status"},
	}
}

// DefaultIntegrityAliases extends the work order aliases with the
// reliability-data headers the ISO 14224 audit looks for.
func DefaultIntegrityAliases() AliasMap {
	m := DefaultWorkOrderAliases()
	m[cmms.ColFunctionalLocation] = []string{"Functional Location", "FLOC", "Func Location"}
	m[cmms.ColFailureMode] = []string{"Failure Mode", "Fail Mode"}
	m[cmms.ColFailureCause] = []string{"Failure Cause", "Root Cause", "Cause"}
	m[cmms.ColComponent] = []string{"Component", "Maintainable Item"}
	m[cmms.ColClosureCode] = []string{"Closure Code", "Completion Code"}
	m["asset_id"] = []string{"Asset ID", "Equipment Number", "Asset"}
	return m
}

// Option applies a configuration option to the Loader.
type Option func(*Loader)

// WithAliases sets the header alias map.
func WithAliases(aliases AliasMap) Option {
	return func(l *Loader) {
		if len(aliases) > 0 {
			l.aliases = aliases
		}
	}
}

// Loader reads CSV exports into cmms tables.
type Loader struct {
	aliases AliasMap
}

// New creates a Loader with configuration options. Without options the
// work order alias map applies.
func New(opts ...Option) *Loader {
	l := &Loader{aliases: DefaultWorkOrderAliases()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Read parses CSV from r. The first record is the header; each header
// is resolved through the alias map, falling back to a lowercased
// snake_case form of itself so already-canonical exports pass through.
func (l *Loader) Read(r io.Reader) (*cmms.Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = l.resolve(h)
	}

	table := &cmms.Table{Columns: columns}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		row := make(cmms.Row, len(columns))
		for i, cell := range record {
			if i < len(columns) {
				row[columns[i]] = cell
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// ReadFile parses the CSV file at path.
func (l *Loader) ReadFile(path string) (*cmms.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return l.Read(f)
}

func (l *Loader) resolve(header string) string {
	h := strings.TrimSpace(header)
	for canonical, variants := range l.aliases {
		if strings.EqualFold(h, canonical) {
			return canonical
		}
		for _, v := range variants {
			if strings.EqualFold(h, v) {
				return canonical
			}
		}
	}
	return strings.ReplaceAll(strings.ToLower(h), " ", "_")
}

// Sample returns up to n rows drawn without replacement, seeded for
// reproducible closure-note audits.
func Sample(t *cmms.Table, n int, seed int64) []cmms.Row {
	if n <= 0 || t == nil || len(t.Rows) == 0 {
		return nil
	}
	if n >= len(t.Rows) {
		out := make([]cmms.Row, len(t.Rows))
		copy(out, t.Rows)
		return out
	}
	rng := rand.New(rand.NewSource(seed))
	idx := rng.Perm(len(t.Rows))[:n]
	out := make([]cmms.Row, 0, n)
	for _, i := range idx {
		out = append(out, t.Rows[i])
	}
	return out
}
