// api/analytics/totals.go
package analytics

import (
	"sort"

	"funnelscope/api/models"
)

// ReconcileTotals merges per-group rows into the synthetic "Totals" row.
//
// The four cohort counters are straight sums: grouping dimensions partition
// sessions, so rows do not overlap. Per-step conversion denominators are
// not the flat total, because different groups expose different steps: the
// base for a step is the sum of land bases of only the rows that have a
// nonzero-completion entry for that step key, falling back to the flat
// total when no row does.
func ReconcileTotals(rows []models.DrilldownRow) models.DrilldownRow {
	totals := models.DrilldownRow{GroupValue: "Totals", Steps: []models.StepData{}}

	type stepAccum struct {
		completions uint64
		withPrev    uint64
		base        uint64
	}
	accum := make(map[models.StepKey]*stepAccum)

	for i := range rows {
		row := &rows[i]
		totals.UniqueViews += row.UniqueViews
		totals.GrossViews += row.GrossViews
		totals.PageLands += row.PageLands
		totals.FormCompletions += row.FormCompletions

		for _, step := range row.Steps {
			key := models.StepKey{Number: step.StepNumber, Name: step.StepName}
			a := accum[key]
			if a == nil {
				a = &stepAccum{}
				accum[key] = a
			}
			a.completions += step.Completions
			a.withPrev += step.SessionsWithPrev
			if step.Completions > 0 {
				a.base += row.LandBase()
			}
		}
	}

	flatBase := totals.LandBase()

	keys := make([]models.StepKey, 0, len(accum))
	for key := range accum {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	var prevCount uint64
	for i, key := range keys {
		a := accum[key]
		base := a.base
		if base == 0 {
			base = flatBase
		}
		if i == 0 {
			prevCount = base
		}

		totals.Steps = append(totals.Steps, models.StepData{
			StepNumber:            key.Number,
			StepName:              key.Name,
			StepKey:               key.String(),
			Completions:           a.completions,
			SessionsWithPrev:      a.withPrev,
			ConversionFromPrev:    percentage(a.withPrev, prevCount),
			ConversionFromInitial: percentage(a.completions, base),
		})

		if a.completions > 0 {
			prevCount = a.completions
		}
	}

	return totals
}
