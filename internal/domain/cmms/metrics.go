package cmms

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/maintiq/rmi/internal/domain/band"
)

// Canonical column names after alias resolution.
const (
	ColWorkOrderType   = "work_order_type"
	ColPriority        = "priority"
	ColCompletedDate   = "completed_date"
	ColDueDate         = "due_date"
	ColCompletionNotes = "completion_notes"
)

// DefaultGraceDays is the PM completion grace window.
const DefaultGraceDays = 7

// reactiveVocabulary marks a work order as reactive when its type
// contains any of these terms.
var reactiveVocabulary = []string{"emergency", "corrective", "breakdown", "urgent"}

// reactivePriorities is the fallback when no type column exists.
var reactivePriorities = map[string]bool{"1": true, "emergency": true, "urgent": true}

// genericClosureNotes are closure texts that carry no diagnostic value.
var genericClosureNotes = map[string]bool{
	"done": true, "fixed": true, "complete": true,
	"ok": true, "n/a": true, "closed": true, "": true,
}

// minMeaningfulNoteLen is the shortest closure note considered useful.
const minMeaningfulNoteLen = 10

// ReactiveResult reports the reactive-versus-planned work split.
type ReactiveResult struct {
	TotalWorkOrders    int     `json:"total_work_orders"`
	ReactiveCount      int     `json:"reactive_count"`
	PreventiveCount    int     `json:"preventive_count"`
	ReactivePercentage float64 `json:"reactive_percentage"`
	Severity           string  `json:"severity"`
	Score              int     `json:"score"`
	ReactiveSpiral     bool    `json:"reactive_spiral"`
}

// ReactiveRatio classifies each work order as reactive or planned and
// bands the ratio. Classification prefers the work order type column;
// without it the priority column decides.
func ReactiveRatio(t *Table) (ReactiveResult, error) {
	if err := checkTable(t); err != nil {
		return ReactiveResult{}, err
	}

	var classify func(Row) bool
	switch {
	case t.Has(ColWorkOrderType):
		classify = func(r Row) bool {
			v := strings.ToLower(strings.TrimSpace(r[ColWorkOrderType]))
			for _, term := range reactiveVocabulary {
				if strings.Contains(v, term) {
					return true
				}
			}
			return false
		}
	case t.Has(ColPriority):
		classify = func(r Row) bool {
			return reactivePriorities[strings.ToLower(strings.TrimSpace(r[ColPriority]))]
		}
	default:
		return ReactiveResult{}, fmt.Errorf("%w: need column %q or %q", ErrInvalidInput, ColWorkOrderType, ColPriority)
	}

	res := ReactiveResult{TotalWorkOrders: t.Len()}
	for _, row := range t.Rows {
		if classify(row) {
			res.ReactiveCount++
		}
	}
	res.PreventiveCount = res.TotalWorkOrders - res.ReactiveCount

	ratio := 0.0
	if res.TotalWorkOrders > 0 {
		ratio = float64(res.ReactiveCount) / float64(res.TotalWorkOrders)
	}
	res.ReactivePercentage = round1(ratio * 100)
	res.ReactiveSpiral = ratio > 0.5

	b := band.ReactiveRatio.Grade(ratio)
	res.Severity = b.Label
	res.Score = b.Score
	return res, nil
}

// PMOption applies a configuration option to PMCompliance.
type PMOption func(*pmPolicy)

type pmPolicy struct {
	graceDays int
}

// WithGraceDays overrides the on-time grace window.
func WithGraceDays(days int) PMOption {
	return func(p *pmPolicy) {
		if days >= 0 {
			p.graceDays = days
		}
	}
}

// PMResult reports preventive maintenance schedule compliance.
type PMResult struct {
	TotalPMs             int     `json:"total_pms"`
	OnTimeCount          int     `json:"on_time_count"`
	LateCount            int     `json:"late_count"`
	CompliancePercentage float64 `json:"compliance_percentage"`
	AverageDaysLate      float64 `json:"average_days_late"`
	GraceDays            int     `json:"grace_days"`
	Severity             string  `json:"severity"`
	Score                int     `json:"score"`
}

// PMCompliance measures how many PMs completed within the grace window
// of their due date. Rows missing either date are skipped; a present
// but unparseable date is an error, not a skip.
func PMCompliance(t *Table, opts ...PMOption) (PMResult, error) {
	if err := checkTable(t); err != nil {
		return PMResult{}, err
	}
	for _, col := range []string{ColCompletedDate, ColDueDate} {
		if !t.Has(col) {
			return PMResult{}, fmt.Errorf("%w: missing column %q", ErrInvalidInput, col)
		}
	}

	policy := pmPolicy{graceDays: DefaultGraceDays}
	for _, opt := range opts {
		opt(&policy)
	}

	res := PMResult{GraceDays: policy.graceDays}
	grace := time.Duration(policy.graceDays) * 24 * time.Hour
	var lateDays float64
	for i, row := range t.Rows {
		completedRaw := strings.TrimSpace(row[ColCompletedDate])
		dueRaw := strings.TrimSpace(row[ColDueDate])
		if completedRaw == "" || dueRaw == "" {
			continue
		}
		completed, err := parseDate(completedRaw)
		if err != nil {
			return PMResult{}, fmt.Errorf("%w: row %d column %q: %q", ErrInvalidInput, i+1, ColCompletedDate, completedRaw)
		}
		due, err := parseDate(dueRaw)
		if err != nil {
			return PMResult{}, fmt.Errorf("%w: row %d column %q: %q", ErrInvalidInput, i+1, ColDueDate, dueRaw)
		}

		res.TotalPMs++
		overdue := completed.Sub(due)
		if overdue <= grace {
			res.OnTimeCount++
			continue
		}
		res.LateCount++
		lateDays += overdue.Hours() / 24
	}

	rate := 0.0
	if res.TotalPMs > 0 {
		rate = float64(res.OnTimeCount) / float64(res.TotalPMs)
	}
	res.CompliancePercentage = round1(rate * 100)
	if res.LateCount > 0 {
		res.AverageDaysLate = round1(lateDays / float64(res.LateCount))
	}

	b := band.PMCompliance.Grade(rate)
	res.Severity = b.Label
	res.Score = b.Score
	return res, nil
}

// GraveyardResult reports closure-note data quality.
type GraveyardResult struct {
	TotalRecords          int     `json:"total_records"`
	PoorQualityCount      int     `json:"poor_quality_count"`
	PoorQualityPercentage float64 `json:"poor_quality_percentage"`
	Severity              string  `json:"severity"`
	Score                 int     `json:"score"`
}

// DataGraveyard measures the share of work orders closed with notes too
// thin to support root cause analysis.
func DataGraveyard(t *Table) (GraveyardResult, error) {
	if err := checkTable(t); err != nil {
		return GraveyardResult{}, err
	}
	if !t.Has(ColCompletionNotes) {
		return GraveyardResult{}, fmt.Errorf("%w: missing column %q", ErrInvalidInput, ColCompletionNotes)
	}

	res := GraveyardResult{TotalRecords: t.Len()}
	for _, row := range t.Rows {
		note := strings.TrimSpace(row[ColCompletionNotes])
		if genericClosureNotes[strings.ToLower(note)] || len(note) < minMeaningfulNoteLen {
			res.PoorQualityCount++
		}
	}

	ratio := 0.0
	if res.TotalRecords > 0 {
		ratio = float64(res.PoorQualityCount) / float64(res.TotalRecords)
	}
	res.PoorQualityPercentage = round1(ratio * 100)

	b := band.DataGraveyard.Grade(ratio)
	res.Severity = b.Label
	res.Score = b.Score
	return res, nil
}

// TypeShare is one work order type's slice of the total.
type TypeShare struct {
	Type       string  `json:"type"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// WorkTypeDistribution counts work orders per type, largest first.
func WorkTypeDistribution(t *Table) ([]TypeShare, error) {
	if err := checkTable(t); err != nil {
		return nil, err
	}
	if !t.Has(ColWorkOrderType) {
		return nil, fmt.Errorf("%w: missing column %q", ErrInvalidInput, ColWorkOrderType)
	}

	counts := map[string]int{}
	for _, row := range t.Rows {
		counts[strings.TrimSpace(row[ColWorkOrderType])]++
	}

	shares := make([]TypeShare, 0, len(counts))
	for typ, n := range counts {
		pct := 0.0
		if t.Len() > 0 {
			pct = round1(float64(n) / float64(t.Len()) * 100)
		}
		shares = append(shares, TypeShare{Type: typ, Count: n, Percentage: pct})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Count != shares[j].Count {
			return shares[i].Count > shares[j].Count
		}
		return shares[i].Type < shares[j].Type
	})
	return shares, nil
}

// assetColumns are the identifier columns recognized for bad actor
// detection, in preference order.
var assetColumns = []string{"asset_id", "equipment", "equipment_id", "asset"}

// badActorTypes marks a work order as a failure event. Without a type
// column every work order counts.
var badActorTypes = map[string]bool{"corrective": true, "emergency": true, "breakdown": true}

// DefaultBadActorLimit caps how many assets a ranking returns.
const DefaultBadActorLimit = 10

// BadActor is one repeat-failure asset and its failure count.
type BadActor struct {
	Asset        string `json:"asset"`
	FailureCount int    `json:"failure_count"`
}

// BadActors ranks assets by failure work order count, worst first.
// Requires an asset identifier column.
func BadActors(t *Table, limit int) ([]BadActor, error) {
	if err := checkTable(t); err != nil {
		return nil, err
	}
	col := assetColumn(t)
	if col == "" {
		return nil, fmt.Errorf("%w: no asset identifier column (one of %s)",
			ErrInvalidInput, strings.Join(assetColumns, ", "))
	}
	if limit <= 0 {
		limit = DefaultBadActorLimit
	}

	counts := map[string]int{}
	for _, row := range t.Rows {
		if t.Has(ColWorkOrderType) && !badActorTypes[strings.ToLower(strings.TrimSpace(row[ColWorkOrderType]))] {
			continue
		}
		asset := strings.TrimSpace(row[col])
		if asset == "" {
			continue
		}
		counts[asset]++
	}

	actors := make([]BadActor, 0, len(counts))
	for asset, n := range counts {
		actors = append(actors, BadActor{Asset: asset, FailureCount: n})
	}
	sort.Slice(actors, func(i, j int) bool {
		if actors[i].FailureCount != actors[j].FailureCount {
			return actors[i].FailureCount > actors[j].FailureCount
		}
		return actors[i].Asset < actors[j].Asset
	})
	if len(actors) > limit {
		actors = actors[:limit]
	}
	return actors, nil
}

func assetColumn(t *Table) string {
	for _, col := range assetColumns {
		if t.Has(col) {
			return col
		}
	}
	return ""
}

func checkTable(t *Table) error {
	if t == nil || len(t.Columns) == 0 {
		return ErrTypeMismatch
	}
	return nil
}

// dateLayouts covers the formats seen in real CMMS exports.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006",
	time.RFC3339,
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
