package cmms

import (
	"fmt"
	"strings"

	"github.com/maintiq/rmi/internal/domain/band"
)

// Canonical column names for reliability-data integrity audits.
const (
	ColFunctionalLocation = "functional_location"
	ColFailureMode        = "failure_mode"
	ColFailureCause       = "failure_cause"
	ColComponent          = "component"
	ColClosureCode        = "closure_code"
)

// ISO 14224 standard failure mode categories. Alignment checking is a
// case-insensitive contains match against these.
var failureModeCategories = []string{
	"breakdown", "degraded", "external leakage", "internal leakage",
	"erratic output", "fail to start", "fail to stop",
	"spurious operation", "structural deficiency", "parameter deviation",
}

// Audit thresholds. The hierarchy minimum and the percentage floors
// follow ISO 14224 guidance on data collection structure.
const (
	minHierarchyLevels     = 4
	taxonomyAlignmentFloor = 70.0
	completenessFloor      = 90.0
	closureCodeFloor       = 80.0
	minAvgClosureNoteLen   = 20.0
	namingSampleSize       = 20
	namingConsistencyShare = 0.8
)

// functionalLocationDelimiters are the separators checked for
// consistent functional location naming.
var functionalLocationDelimiters = []string{"-", "_", ".", "/"}

// IntegrityCheck is one pass/fail audit item. Impact is the check's
// pull on the assessment score, positive when passed.
type IntegrityCheck struct {
	Item     string  `json:"item"`
	Category string  `json:"category"`
	Passed   bool    `json:"passed"`
	Notes    string  `json:"notes"`
	Impact   float64 `json:"impact"`
}

// CategoryTally counts checks per audit category.
type CategoryTally struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// IntegrityAudit is the full result of one ISO 14224 audit run.
type IntegrityAudit struct {
	TotalChecks     int                      `json:"total_checks"`
	PassedChecks    int                      `json:"passed_checks"`
	FailedChecks    int                      `json:"failed_checks"`
	PassRate        float64                  `json:"pass_rate"`
	ComplianceScore int                      `json:"compliance_score"`
	ComplianceLabel string                   `json:"compliance_label"`
	TotalImpact     float64                  `json:"total_impact"`
	Checks          []IntegrityCheck         `json:"checks"`
	ByCategory      map[string]CategoryTally `json:"by_category"`
}

// AuditOption applies a configuration option to AuditDataIntegrity.
type AuditOption func(*auditPolicy)

type auditPolicy struct {
	criticalFields []string
}

// WithCriticalFields overrides the fields whose completeness is
// audited.
func WithCriticalFields(fields ...string) AuditOption {
	return func(p *auditPolicy) {
		if len(fields) > 0 {
			p.criticalFields = fields
		}
	}
}

// AuditDataIntegrity validates a CMMS export against ISO 14224 data
// structure requirements: asset hierarchy depth, failure taxonomy,
// critical field completeness and closure quality. Checks that need a
// column the table lacks either fail (mandatory fields) or are skipped
// (optional structure), mirroring how a manual audit treats them.
func AuditDataIntegrity(t *Table, opts ...AuditOption) (IntegrityAudit, error) {
	if err := checkTable(t); err != nil {
		return IntegrityAudit{}, err
	}

	policy := auditPolicy{
		criticalFields: []string{ColWorkOrderType, ColCompletedDate, ColCompletionNotes},
	}
	for _, opt := range opts {
		opt(&policy)
	}

	var checks []IntegrityCheck
	checks = append(checks, hierarchyChecks(t)...)
	checks = append(checks, taxonomyChecks(t)...)
	checks = append(checks, completenessChecks(t, policy.criticalFields)...)
	checks = append(checks, closureChecks(t)...)

	return summarize(checks), nil
}

func hierarchyChecks(t *Table) []IntegrityCheck {
	var checks []IntegrityCheck

	depth := 0
	for _, col := range t.Columns {
		c := strings.ToLower(col)
		if strings.Contains(c, "level") || strings.Contains(c, "hierarchy") {
			depth++
		}
	}
	depthPassed := depth >= minHierarchyLevels
	checks = append(checks, IntegrityCheck{
		Item:     "Asset Hierarchy Depth",
		Category: "Hierarchy",
		Passed:   depthPassed,
		Notes:    fmt.Sprintf("found %d hierarchy levels, ISO 14224 recommends at least %d", depth, minHierarchyLevels),
		Impact:   impact(depthPassed, 1.0, -1.0),
	})

	if t.Has(ColFunctionalLocation) {
		consistent := namingConsistent(t)
		checks = append(checks, IntegrityCheck{
			Item:     "Functional Location Naming Consistency",
			Category: "Hierarchy",
			Passed:   consistent,
			Notes:    fmt.Sprintf("checked up to %d sample locations for a consistent delimiter", namingSampleSize),
			Impact:   impact(consistent, 0.5, -0.5),
		})
	}

	hasComponent := false
	for _, col := range t.Columns {
		if strings.Contains(strings.ToLower(col), "component") {
			hasComponent = true
			break
		}
	}
	checks = append(checks, IntegrityCheck{
		Item:     "Component-Level Tracking",
		Category: "Hierarchy",
		Passed:   hasComponent,
		Notes:    "component level is required for detailed root cause analysis",
		Impact:   impact(hasComponent, 1.0, -1.0),
	})

	return checks
}

func taxonomyChecks(t *Table) []IntegrityCheck {
	var checks []IntegrityCheck

	hasMode := t.Has(ColFailureMode)
	checks = append(checks, IntegrityCheck{
		Item:     "Failure Mode Field Exists",
		Category: "Failure Modes",
		Passed:   hasMode,
		Notes:    "failure mode classification is mandatory per ISO 14224",
		Impact:   impact(hasMode, 2.0, -2.0),
	})

	if hasMode {
		pct := modeAlignment(t)
		aligned := pct >= taxonomyAlignmentFloor
		checks = append(checks, IntegrityCheck{
			Item:     "Failure Mode Taxonomy Alignment",
			Category: "Failure Modes",
			Passed:   aligned,
			Notes:    fmt.Sprintf("%.1f%% of failure modes align with the standard categories", pct),
			Impact:   impact(aligned, 1.5, -1.0),
		})
	}

	hasCause := t.Has(ColFailureCause)
	checks = append(checks, IntegrityCheck{
		Item:     "Failure Cause Field Exists",
		Category: "Failure Causes",
		Passed:   hasCause,
		Notes:    "root cause tracking enables reliability improvement",
		Impact:   impact(hasCause, 1.0, -1.0),
	})

	fullTaxonomy := t.Has(ColComponent) && hasMode && hasCause
	checks = append(checks, IntegrityCheck{
		Item:     "Complete Failure Taxonomy (Component-Mode-Cause)",
		Category: "Taxonomy",
		Passed:   fullTaxonomy,
		Notes:    "ISO 14224 requires three-level failure classification",
		Impact:   impact(fullTaxonomy, 2.0, -2.0),
	})

	return checks
}

func completenessChecks(t *Table, fields []string) []IntegrityCheck {
	checks := make([]IntegrityCheck, 0, len(fields))
	for _, field := range fields {
		item := "Critical Field: " + field
		if !t.Has(field) {
			checks = append(checks, IntegrityCheck{
				Item:     item,
				Category: "Data Completeness",
				Passed:   false,
				Notes:    fmt.Sprintf("column %q not found in data", field),
				Impact:   -1.0,
			})
			continue
		}

		populated := 0
		for _, row := range t.Rows {
			if strings.TrimSpace(row[field]) != "" {
				populated++
			}
		}
		pct := 0.0
		if t.Len() > 0 {
			pct = float64(populated) / float64(t.Len()) * 100
		}
		passed := pct >= completenessFloor
		checks = append(checks, IntegrityCheck{
			Item:     item,
			Category: "Data Completeness",
			Passed:   passed,
			Notes:    fmt.Sprintf("%.1f%% populated (%d/%d records)", pct, populated, t.Len()),
			Impact:   impact(passed, 0.5, -0.5),
		})
	}
	return checks
}

func closureChecks(t *Table) []IntegrityCheck {
	var checks []IntegrityCheck

	if t.Has(ColClosureCode) {
		generic := 0
		for _, row := range t.Rows {
			if genericClosureNotes[strings.ToLower(strings.TrimSpace(row[ColClosureCode]))] {
				generic++
			}
		}
		pct := 0.0
		if t.Len() > 0 {
			pct = float64(t.Len()-generic) / float64(t.Len()) * 100
		}
		passed := pct >= closureCodeFloor
		checks = append(checks, IntegrityCheck{
			Item:     "Closure Code Quality",
			Category: "Data Quality",
			Passed:   passed,
			Notes:    fmt.Sprintf("%.1f%% have meaningful closure codes (%d records)", pct, t.Len()),
			Impact:   impact(passed, 1.5, -1.5),
		})
	}

	if t.Has(ColCompletionNotes) {
		total := 0
		for _, row := range t.Rows {
			total += len(strings.TrimSpace(row[ColCompletionNotes]))
		}
		avg := 0.0
		if t.Len() > 0 {
			avg = float64(total) / float64(t.Len())
		}
		passed := avg >= minAvgClosureNoteLen
		checks = append(checks, IntegrityCheck{
			Item:     "Closure Notes Detail",
			Category: "Data Quality",
			Passed:   passed,
			Notes:    fmt.Sprintf("average closure note length is %.0f characters", avg),
			Impact:   impact(passed, 1.0, -1.0),
		})
	}

	return checks
}

// namingConsistent reports whether one delimiter dominates the sampled
// functional locations.
func namingConsistent(t *Table) bool {
	sample := t.Rows
	if len(sample) > namingSampleSize {
		sample = sample[:namingSampleSize]
	}
	if len(sample) == 0 {
		return false
	}

	counts := map[string]int{}
	for _, row := range sample {
		loc := row[ColFunctionalLocation]
		for _, d := range functionalLocationDelimiters {
			if strings.Contains(loc, d) {
				counts[d]++
			}
		}
	}
	most := 0
	for _, n := range counts {
		if n > most {
			most = n
		}
	}
	return float64(most)/float64(len(sample)) >= namingConsistencyShare
}

// modeAlignment returns the share of distinct failure modes matching a
// standard ISO 14224 category.
func modeAlignment(t *Table) float64 {
	seen := map[string]bool{}
	for _, row := range t.Rows {
		mode := strings.ToLower(strings.TrimSpace(row[ColFailureMode]))
		if mode != "" {
			seen[mode] = true
		}
	}
	if len(seen) == 0 {
		return 0
	}

	aligned := 0
	for mode := range seen {
		for _, std := range failureModeCategories {
			if strings.Contains(mode, std) {
				aligned++
				break
			}
		}
	}
	return float64(aligned) / float64(len(seen)) * 100
}

func summarize(checks []IntegrityCheck) IntegrityAudit {
	audit := IntegrityAudit{
		TotalChecks: len(checks),
		Checks:      checks,
		ByCategory:  map[string]CategoryTally{},
	}
	for _, c := range checks {
		tally := audit.ByCategory[c.Category]
		tally.Total++
		if c.Passed {
			audit.PassedChecks++
			tally.Passed++
		} else {
			tally.Failed++
		}
		audit.TotalImpact += c.Impact
		audit.ByCategory[c.Category] = tally
	}
	audit.FailedChecks = audit.TotalChecks - audit.PassedChecks

	if audit.TotalChecks > 0 {
		rate := float64(audit.PassedChecks) / float64(audit.TotalChecks)
		audit.PassRate = round1(rate * 100)
		b := band.ISOCompliance.Grade(rate)
		audit.ComplianceScore = b.Score
		audit.ComplianceLabel = b.Label
	}

	return audit
}

func impact(passed bool, pass, fail float64) float64 {
	if passed {
		return pass
	}
	return fail
}
