// api/models/event.go
package models

import "time"

// Event types recorded by the funnel tracker. Legacy rows carry an empty
// event_type and are treated as step completions.
const (
	EventTypePageLand     = "page_land"
	EventTypeStepComplete = "step_complete"
	EventTypeFormComplete = "form_complete"
)

// FunnelEvent is one interaction row in the funnel_events table.
// Dimension columns are plain strings where ” means the attribute was
// absent on the original event.
type FunnelEvent struct {
	EventID       string    `json:"eventId"`
	SessionID     string    `json:"sessionId"`
	EventType     string    `json:"eventType"`
	StepNumber    int32     `json:"stepNumber"`
	StepName      string    `json:"stepName"`
	SelectedValue string    `json:"selectedValue,omitempty"`
	Timestamp     time.Time `json:"timestamp"`

	Domain        string `json:"domain,omitempty"`
	Page          string `json:"page,omitempty"`
	FunnelID      string `json:"funnelId,omitempty"`
	DeviceType    string `json:"deviceType,omitempty"`
	OS            string `json:"os,omitempty"`
	Browser       string `json:"browser,omitempty"`
	GeoState      string `json:"geoState,omitempty"`
	SelectedState string `json:"selectedState,omitempty"`
	UTMSource     string `json:"utmSource,omitempty"`
	UTMMedium     string `json:"utmMedium,omitempty"`
	UTMCampaign   string `json:"utmCampaign,omitempty"`
	UTMTerm       string `json:"utmTerm,omitempty"`
	UTMContent    string `json:"utmContent,omitempty"`
	Referrer      string `json:"referrer,omitempty"`
	ClickID       string `json:"clickId,omitempty"`
	IPAddress     string `json:"ipAddress,omitempty"`
	UserAgent     string `json:"userAgent,omitempty"`
	IsBot         bool   `json:"isBot"`

	// Lead fields are only populated on the terminal form_complete event.
	LeadName  string `json:"leadName,omitempty"`
	LeadEmail string `json:"leadEmail,omitempty"`
	LeadPhone string `json:"leadPhone,omitempty"`
}

// IsStepBearing reports whether the event counts toward funnel step
// completion. Rows with an empty event_type predate the event_type column
// and count as step completions.
func (e *FunnelEvent) IsStepBearing() bool {
	switch e.EventType {
	case EventTypeStepComplete, EventTypeFormComplete, "":
		return true
	}
	return false
}

// EventFilter is the single filter specification consumed by every query
// path (drilldown, session log, funnel). A nil/empty field imposes no
// constraint; a list is an inclusion constraint.
type EventFilter struct {
	Start time.Time
	End   time.Time
	// Optional HH:MM narrowing of the time-of-day within [Start, End].
	StartTime string
	EndTime   string

	Domains      []string
	Pages        []string
	FunnelIDs    []string
	DeviceTypes  []string
	GeoStates    []string
	UTMSources   []string
	UTMMediums   []string
	UTMCampaigns []string
	ExcludeBots  bool

	// Parent carries dimension→value pairs accumulated from prior
	// drilldown levels (parent.<dimension>=value on the wire).
	Parent map[string]string
}
