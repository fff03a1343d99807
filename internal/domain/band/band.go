// Package band implements the shared ordered-threshold lookup used by
// the maturity-level classifier and every CMMS metric calculator. A
// Scale is a list of (lower bound, label, score) entries sorted
// descending; grading a value walks the list and returns the first
// band whose lower bound the value clears.
package band

import "math"

// Band maps the half-open interval above Lower to a label and score.
type Band struct {
	Lower float64
	Label string
	Score int
}

// Scale is a descending ordered set of bands. Strict selects whether a
// value must exceed the lower bound (>) or merely reach it (>=).
type Scale struct {
	Bands  []Band
	Strict bool
}

// Grade returns the band for v. The last band acts as the catch-all;
// scales are expected to terminate with Lower == math.Inf(-1).
func (s Scale) Grade(v float64) Band {
	for _, b := range s.Bands {
		if s.Strict {
			if v > b.Lower {
				return b
			}
		} else if v >= b.Lower {
			return b
		}
	}
	if len(s.Bands) == 0 {
		return Band{}
	}
	return s.Bands[len(s.Bands)-1]
}

// Maturity classifies an overall RMI in [0,5] into a maturity level.
var Maturity = Scale{Bands: []Band{
	{Lower: 4.5, Label: "Level 5 - Prescriptive", Score: 5},
	{Lower: 4.0, Label: "Level 4 - Predictive", Score: 4},
	{Lower: 3.0, Label: "Level 3 - Preventive", Score: 3},
	{Lower: 2.0, Label: "Level 2 - Emerging Preventive", Score: 2},
	{Lower: math.Inf(-1), Label: "Level 1 - Reactive", Score: 1},
}}

// ReactiveRatio bands a reactive work-order ratio: higher is worse.
var ReactiveRatio = Scale{Strict: true, Bands: []Band{
	{Lower: 0.60, Label: "CRITICAL - REACTIVE SPIRAL", Score: 1},
	{Lower: 0.40, Label: "HIGH - Reactive Dominant", Score: 2},
	{Lower: 0.25, Label: "MEDIUM - Balanced but Reactive-Heavy", Score: 3},
	{Lower: 0.15, Label: "GOOD - Preventive Focus", Score: 4},
	{Lower: math.Inf(-1), Label: "EXCELLENT - Proactive Maintenance", Score: 5},
}}

// PMCompliance bands an on-time PM completion rate: higher is better.
var PMCompliance = Scale{Bands: []Band{
	{Lower: 0.95, Label: "EXCELLENT", Score: 5},
	{Lower: 0.85, Label: "GOOD", Score: 4},
	{Lower: 0.70, Label: "ACCEPTABLE", Score: 3},
	{Lower: 0.50, Label: "POOR", Score: 2},
	{Lower: math.Inf(-1), Label: "CRITICAL - PM Program Breaking Down", Score: 1},
}}

// ISOCompliance bands an ISO 14224 audit pass rate: higher is better.
var ISOCompliance = Scale{Bands: []Band{
	{Lower: 0.90, Label: "EXCELLENT", Score: 5},
	{Lower: 0.75, Label: "GOOD", Score: 4},
	{Lower: 0.60, Label: "ACCEPTABLE", Score: 3},
	{Lower: 0.40, Label: "POOR", Score: 2},
	{Lower: math.Inf(-1), Label: "CRITICAL - Data Structure Not Audit-Ready", Score: 1},
}}

// DataGraveyard bands the share of meaningless work-order closures.
var DataGraveyard = Scale{Strict: true, Bands: []Band{
	{Lower: 0.40, Label: "SEVERE DATA GRAVEYARD - Cannot perform RCA", Score: 1},
	{Lower: 0.20, Label: "POOR - Significant data quality issues", Score: 2},
	{Lower: 0.10, Label: "ACCEPTABLE - Some improvement needed", Score: 3},
	{Lower: 0.04, Label: "GOOD - Minor gaps", Score: 4},
	{Lower: math.Inf(-1), Label: "EXCELLENT - High data quality", Score: 5},
}}
