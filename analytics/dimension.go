// api/analytics/dimension.go
package analytics

import (
	"fmt"
	"strconv"

	"funnelscope/api/models"
)

// Sentinels substituted for absent dimension values so that grouping keys
// are always non-empty strings.
const (
	SentinelUnknown = "(unknown)"
	SentinelNone    = "(none)"
)

// Dimension is one enumerated grouping/drilldown axis over funnel events.
// Column is the funnel_events column backing the dimension (empty for
// computed dimensions such as hourOfDay). Ordinal dimensions sort drilldown
// rows by group key instead of by unique views.
type Dimension struct {
	Name     string
	Column   string
	Sentinel string
	Ordinal  bool
	Value    func(e *models.FunnelEvent) string
}

func coalesce(v, sentinel string) string {
	if v == "" {
		return sentinel
	}
	return v
}

var dimensions = []Dimension{
	{Name: "domain", Column: "domain", Sentinel: SentinelUnknown,
		Value: func(e *models.FunnelEvent) string { return coalesce(e.Domain, SentinelUnknown) }},
	{Name: "deviceType", Column: "device_type", Sentinel: SentinelUnknown,
		Value: func(e *models.FunnelEvent) string { return coalesce(e.DeviceType, SentinelUnknown) }},
	{Name: "page", Column: "page", Sentinel: SentinelUnknown,
		Value: func(e *models.FunnelEvent) string { return coalesce(e.Page, SentinelUnknown) }},
	{Name: "utmSource", Column: "utm_source", Sentinel: SentinelNone,
		Value: func(e *models.FunnelEvent) string { return coalesce(e.UTMSource, SentinelNone) }},
	{Name: "utmCampaign", Column: "utm_campaign", Sentinel: SentinelNone,
		Value: func(e *models.FunnelEvent) string { return coalesce(e.UTMCampaign, SentinelNone) }},
	{Name: "utmMedium", Column: "utm_medium", Sentinel: SentinelNone,
		Value: func(e *models.FunnelEvent) string { return coalesce(e.UTMMedium, SentinelNone) }},
	{Name: "geoState", Column: "geo_state", Sentinel: SentinelUnknown,
		Value: func(e *models.FunnelEvent) string { return coalesce(e.GeoState, SentinelUnknown) }},
	{Name: "selectedState", Column: "selected_state", Sentinel: SentinelNone,
		Value: func(e *models.FunnelEvent) string { return coalesce(e.SelectedState, SentinelNone) }},
	{Name: "hourOfDay", Ordinal: true,
		Value: func(e *models.FunnelEvent) string { return fmt.Sprintf("%02d", e.Timestamp.UTC().Hour()) }},
	{Name: "funnelId", Column: "funnel_id", Sentinel: SentinelNone,
		Value: func(e *models.FunnelEvent) string { return coalesce(e.FunnelID, SentinelNone) }},
}

var dimensionsByName = func() map[string]*Dimension {
	m := make(map[string]*Dimension, len(dimensions))
	for i := range dimensions {
		m[dimensions[i].Name] = &dimensions[i]
	}
	return m
}()

// ParseHour parses an hourOfDay group value into an hour in [0, 23].
func ParseHour(s string) (int, bool) {
	h, err := strconv.Atoi(s)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	return h, true
}

// DimensionByName resolves a groupBy/parent-filter dimension name. The
// second return is false for names outside the enumerated set.
func DimensionByName(name string) (*Dimension, bool) {
	d, ok := dimensionsByName[name]
	return d, ok
}

// DimensionNames lists the valid groupBy values, in registry order.
func DimensionNames() []string {
	names := make([]string, 0, len(dimensions))
	for i := range dimensions {
		names = append(names, dimensions[i].Name)
	}
	return names
}
