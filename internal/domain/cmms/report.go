package cmms

// WorkOrderReport bundles the calculators that run over one work order
// export. The reactive ratio is mandatory; note quality, the type
// distribution and the bad actor ranking are included only when their
// columns are present.
type WorkOrderReport struct {
	Reactive     ReactiveResult   `json:"reactive"`
	NoteQuality  *GraveyardResult `json:"note_quality,omitempty"`
	Distribution []TypeShare      `json:"distribution,omitempty"`
	BadActors    []BadActor       `json:"bad_actors,omitempty"`
}

// AnalyzeWorkOrders runs every applicable work order calculator over t.
func AnalyzeWorkOrders(t *Table) (WorkOrderReport, error) {
	reactive, err := ReactiveRatio(t)
	if err != nil {
		return WorkOrderReport{}, err
	}
	report := WorkOrderReport{Reactive: reactive}

	if t.Has(ColCompletionNotes) {
		quality, err := DataGraveyard(t)
		if err != nil {
			return WorkOrderReport{}, err
		}
		report.NoteQuality = &quality
	}

	if t.Has(ColWorkOrderType) {
		dist, err := WorkTypeDistribution(t)
		if err != nil {
			return WorkOrderReport{}, err
		}
		report.Distribution = dist
	}

	if assetColumn(t) != "" {
		actors, err := BadActors(t, DefaultBadActorLimit)
		if err != nil {
			return WorkOrderReport{}, err
		}
		report.BadActors = actors
	}

	return report, nil
}
