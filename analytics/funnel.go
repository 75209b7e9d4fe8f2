// api/analytics/funnel.go
package analytics

import (
	"math"
	"sort"

	"funnelscope/api/models"
)

// CohortCounts are the session-level counters for one cohort (the whole
// filtered population, or one drilldown group's subset).
type CohortCounts struct {
	UniqueViews     uint64
	GrossViews      uint64
	PageLands       uint64
	FormCompletions uint64
}

// LandBase prefers distinct page_land sessions as the conversion
// denominator, falling back to unique views for funnels that never emitted
// an explicit land event.
func (c CohortCounts) LandBase() uint64 {
	if c.PageLands > 0 {
		return c.PageLands
	}
	return c.UniqueViews
}

// AggregateCohort computes the per-step funnel for a single cohort of
// events. A cohort with no step-bearing events yields an empty step list.
func AggregateCohort(events []*models.FunnelEvent) (CohortCounts, []models.StepData) {
	var counts CohortCounts

	sessions := make(map[string]struct{})
	landSessions := make(map[string]struct{})
	formSessions := make(map[string]struct{})
	stepSessions := make(map[models.StepKey]map[string]struct{})
	// Sessions per bare step number, regardless of step name. Used for the
	// session-level join behind "conversion from previous step".
	numberSessions := make(map[int32]map[string]struct{})

	for _, e := range events {
		counts.GrossViews++
		sessions[e.SessionID] = struct{}{}

		switch {
		case e.EventType == models.EventTypePageLand:
			landSessions[e.SessionID] = struct{}{}
		case e.IsStepBearing():
			key := models.StepKey{Number: e.StepNumber, Name: e.StepName}
			if stepSessions[key] == nil {
				stepSessions[key] = make(map[string]struct{})
			}
			stepSessions[key][e.SessionID] = struct{}{}
			if numberSessions[e.StepNumber] == nil {
				numberSessions[e.StepNumber] = make(map[string]struct{})
			}
			numberSessions[e.StepNumber][e.SessionID] = struct{}{}
			if e.EventType == models.EventTypeFormComplete {
				formSessions[e.SessionID] = struct{}{}
			}
		}
	}

	counts.UniqueViews = uint64(len(sessions))
	counts.PageLands = uint64(len(landSessions))
	counts.FormCompletions = uint64(len(formSessions))

	keys := make([]models.StepKey, 0, len(stepSessions))
	for key := range stepSessions {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	landBase := counts.LandBase()
	steps := make([]models.StepData, 0, len(keys))
	prevCount := landBase
	for _, key := range keys {
		reached := stepSessions[key]
		completions := uint64(len(reached))

		// Session-level join against the immediately preceding step number.
		// When no event in the cohort carries that number, the step is an
		// entry step and every session that reached it counts.
		var withPrev uint64
		if prior, ok := numberSessions[key.Number-1]; ok {
			for sid := range reached {
				if _, hit := prior[sid]; hit {
					withPrev++
				}
			}
		} else {
			withPrev = completions
		}

		steps = append(steps, models.StepData{
			StepNumber:            key.Number,
			StepName:              key.Name,
			StepKey:               key.String(),
			Completions:           completions,
			SessionsWithPrev:      withPrev,
			ConversionFromPrev:    percentage(withPrev, prevCount),
			ConversionFromInitial: percentage(completions, landBase),
		})

		// The running denominator only advances on nonzero completions so a
		// single empty or renamed step cannot zero out the step after it.
		if completions > 0 {
			prevCount = completions
		}
	}

	return counts, steps
}

// percentage returns num/den as a percent with one decimal, clamped to
// [0, 100]. A zero denominator yields 0, never NaN or Inf.
func percentage(num, den uint64) float64 {
	if den == 0 {
		return 0
	}
	pct := float64(num) / float64(den) * 100
	if pct > 100 {
		pct = 100
	}
	return math.Round(pct*10) / 10
}
