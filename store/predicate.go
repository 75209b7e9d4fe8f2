// api/store/predicate.go
package store

import (
	"fmt"
	"sort"
	"strings"

	"funnelscope/api/analytics"
	"funnelscope/api/models"
)

// BuildPredicate translates an EventFilter into a single WHERE clause plus
// its arguments. An absent filter field imposes no constraint; a list is an
// inclusion constraint. Pure function of its input.
func BuildPredicate(filter models.EventFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if !filter.Start.IsZero() {
		conds = append(conds, "timestamp >= ?")
		args = append(args, filter.Start)
	}
	if !filter.End.IsZero() {
		conds = append(conds, "timestamp <= ?")
		args = append(args, filter.End)
	}
	if m, ok := minutesOfDay(filter.StartTime); ok {
		conds = append(conds, "(toHour(timestamp) * 60 + toMinute(timestamp)) >= ?")
		args = append(args, m)
	}
	if m, ok := minutesOfDay(filter.EndTime); ok {
		conds = append(conds, "(toHour(timestamp) * 60 + toMinute(timestamp)) <= ?")
		args = append(args, m)
	}

	addIn := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		if len(values) == 1 {
			conds = append(conds, column+" = ?")
			args = append(args, values[0])
			return
		}
		conds = append(conds, fmt.Sprintf("%s IN (%s)", column, placeholders(len(values))))
		for _, v := range values {
			args = append(args, v)
		}
	}

	addIn("domain", filter.Domains)
	addIn("page", filter.Pages)
	addIn("funnel_id", filter.FunnelIDs)
	addIn("device_type", filter.DeviceTypes)
	addIn("geo_state", filter.GeoStates)
	addIn("utm_source", filter.UTMSources)
	addIn("utm_medium", filter.UTMMediums)
	addIn("utm_campaign", filter.UTMCampaigns)

	if filter.ExcludeBots {
		conds = append(conds, "is_bot = 0")
	}

	// Parent drilldown filters, applied in dimension-name order so the
	// generated SQL is stable for identical inputs.
	parentNames := make([]string, 0, len(filter.Parent))
	for name := range filter.Parent {
		parentNames = append(parentNames, name)
	}
	sort.Strings(parentNames)
	for _, name := range parentNames {
		dim, ok := analytics.DimensionByName(name)
		if !ok {
			continue // rejected upstream before any query runs
		}
		value := filter.Parent[name]
		if dim.Column == "" {
			// hourOfDay is computed, not stored. Malformed values are
			// rejected upstream.
			if h, hok := analytics.ParseHour(value); hok {
				conds = append(conds, "toHour(timestamp) = ?")
				args = append(args, h)
			}
			continue
		}
		if value == dim.Sentinel {
			value = ""
		}
		conds = append(conds, dim.Column+" = ?")
		args = append(args, value)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// searchColumns are matched case-insensitively by the session-log free-text
// search.
var searchColumns = []string{
	"session_id", "step_name", "selected_value", "utm_campaign",
	"utm_source", "domain", "event_type", "referrer",
}

// BuildSearchClause returns an OR-of-substring-match condition for the
// free-text search term, or "" when the term is empty.
func BuildSearchClause(search string) (string, []interface{}) {
	if search == "" {
		return "", nil
	}
	parts := make([]string, 0, len(searchColumns))
	args := make([]interface{}, 0, len(searchColumns))
	for _, column := range searchColumns {
		parts = append(parts, fmt.Sprintf("positionCaseInsensitive(%s, ?) > 0", column))
		args = append(args, search)
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

// combineClauses merges a WHERE clause with an extra condition.
func combineClauses(where, extra string) string {
	switch {
	case extra == "":
		return where
	case where == "":
		return "WHERE " + extra
	default:
		return where + " AND " + extra
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// minutesOfDay parses HH:MM into minutes since midnight.
func minutesOfDay(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
