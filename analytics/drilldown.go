// api/analytics/drilldown.go
package analytics

import (
	"sort"

	"funnelscope/api/models"
)

// buildRows partitions scoped events by the grouping dimension's value and
// runs the step aggregator over each partition.
func buildRows(events []*models.FunnelEvent, dim *Dimension) []models.DrilldownRow {
	partitions := make(map[string][]*models.FunnelEvent)
	for _, e := range events {
		value := dim.Value(e)
		partitions[value] = append(partitions[value], e)
	}

	rows := make([]models.DrilldownRow, 0, len(partitions))
	for value, partition := range partitions {
		counts, steps := AggregateCohort(partition)
		rows = append(rows, models.DrilldownRow{
			GroupValue:      value,
			UniqueViews:     counts.UniqueViews,
			GrossViews:      counts.GrossViews,
			PageLands:       counts.PageLands,
			FormCompletions: counts.FormCompletions,
			Steps:           steps,
		})
	}

	sortRows(rows, dim)
	return rows
}

// sortRows orders rows by unique views descending, except for ordinal
// dimensions (hour-of-day) which order by group key. Ties break on group
// value so re-fetches with unchanged filters return identical orderings.
func sortRows(rows []models.DrilldownRow, dim *Dimension) {
	sort.SliceStable(rows, func(i, j int) bool {
		if dim.Ordinal {
			return rows[i].GroupValue < rows[j].GroupValue
		}
		if rows[i].UniqueViews != rows[j].UniqueViews {
			return rows[i].UniqueViews > rows[j].UniqueViews
		}
		return rows[i].GroupValue < rows[j].GroupValue
	})
}
