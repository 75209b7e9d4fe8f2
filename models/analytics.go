// api/models/analytics.go
package models

import (
	"fmt"
	"time"
)

// StepKey is the composite identity of a funnel step. The same step number
// can carry different names across legacy and current funnel versions, so
// identity is (number, name), ordered by number then name.
type StepKey struct {
	Number int32  `json:"stepNumber"`
	Name   string `json:"stepName"`
}

// Less orders keys by step number, tie-broken lexically by name.
func (k StepKey) Less(other StepKey) bool {
	if k.Number != other.Number {
		return k.Number < other.Number
	}
	return k.Name < other.Name
}

func (k StepKey) String() string {
	return fmt.Sprintf("%d:%s", k.Number, k.Name)
}

// StepData is one step within one group's funnel.
type StepData struct {
	StepNumber            int32   `json:"stepNumber"`
	StepName              string  `json:"stepName"`
	StepKey               string  `json:"stepKey"`
	Completions           uint64  `json:"completions"`
	SessionsWithPrev      uint64  `json:"sessionsWithPrev"`
	ConversionFromPrev    float64 `json:"conversionFromPrev"`
	ConversionFromInitial float64 `json:"conversionFromInitial"`
}

// DrilldownRow is one dimension-group's funnel. GroupLabel carries a
// human-readable name for the group value when one is known (funnelId rows
// labeled from funnel metadata); it is empty everywhere else.
type DrilldownRow struct {
	GroupValue      string     `json:"groupValue"`
	GroupLabel      string     `json:"groupLabel,omitempty"`
	UniqueViews     uint64     `json:"uniqueViews"`
	GrossViews      uint64     `json:"grossViews"`
	PageLands       uint64     `json:"pageLands"`
	FormCompletions uint64     `json:"formCompletions"`
	Steps           []StepData `json:"steps"`
}

// LandBase is the denominator for conversion-from-initial: distinct
// page_land sessions when the group has any, else unique views.
func (r *DrilldownRow) LandBase() uint64 {
	if r.PageLands > 0 {
		return r.PageLands
	}
	return r.UniqueViews
}

// DrilldownResult is the top-level drilldown envelope. Rows are sorted by
// uniqueViews descending (ordinal dimensions sort by group key) and Totals
// is a synthetic row with groupValue "Totals".
type DrilldownResult struct {
	GroupBy string         `json:"groupBy"`
	Rows    []DrilldownRow `json:"rows"`
	Totals  DrilldownRow   `json:"totals"`
}

// SessionSummary is a reconstructed session. It is derived fresh on every
// query and never persisted.
type SessionSummary struct {
	SessionID   string    `json:"sessionId"`
	EventCount  int       `json:"eventCount"`
	MaxStep     int32     `json:"maxStep"`
	MaxStepName string    `json:"maxStepName"`
	Terminal    string    `json:"terminal"`
	FirstSeen   time.Time `json:"firstSeen"`
	LastSeen    time.Time `json:"lastSeen"`

	Domain      string `json:"domain,omitempty"`
	Page        string `json:"page,omitempty"`
	FunnelID    string `json:"funnelId,omitempty"`
	DeviceType  string `json:"deviceType,omitempty"`
	OS          string `json:"os,omitempty"`
	Browser     string `json:"browser,omitempty"`
	GeoState    string `json:"geoState,omitempty"`
	UTMSource   string `json:"utmSource,omitempty"`
	UTMMedium   string `json:"utmMedium,omitempty"`
	UTMCampaign string `json:"utmCampaign,omitempty"`
	Referrer    string `json:"referrer,omitempty"`

	// Lead identity comes from the terminal form_complete event only.
	LeadName  string `json:"leadName,omitempty"`
	LeadEmail string `json:"leadEmail,omitempty"`
	LeadPhone string `json:"leadPhone,omitempty"`
	ClickID   string `json:"clickId,omitempty"`
}

// SessionLogResult is the paginated session-log envelope.
type SessionLogResult struct {
	Sessions   []SessionSummary `json:"sessions"`
	Total      uint64           `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"totalPages"`
}
