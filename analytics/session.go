// api/analytics/session.go
package analytics

import (
	"sort"

	"funnelscope/api/models"
)

// SummarizeSessions reconstructs session summaries from raw events, emitting
// them in the order of sessionIDs (the page order chosen by the store).
// IDs with no fetched events are skipped.
func SummarizeSessions(sessionIDs []string, events []*models.FunnelEvent) []models.SessionSummary {
	bySession := make(map[string][]*models.FunnelEvent)
	for _, e := range events {
		bySession[e.SessionID] = append(bySession[e.SessionID], e)
	}

	summaries := make([]models.SessionSummary, 0, len(sessionIDs))
	for _, id := range sessionIDs {
		sessionEvents, ok := bySession[id]
		if !ok {
			continue
		}
		summaries = append(summaries, summarizeSession(id, sessionEvents))
	}
	return summaries
}

func summarizeSession(id string, events []*models.FunnelEvent) models.SessionSummary {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.Before(events[j].Timestamp)
		}
		return events[i].EventID < events[j].EventID
	})

	first := events[0]
	s := models.SessionSummary{
		SessionID:   id,
		EventCount:  len(events),
		FirstSeen:   first.Timestamp,
		LastSeen:    events[len(events)-1].Timestamp,
		Domain:      first.Domain,
		Page:        first.Page,
		FunnelID:    first.FunnelID,
		DeviceType:  first.DeviceType,
		OS:          first.OS,
		Browser:     first.Browser,
		GeoState:    first.GeoState,
		UTMSource:   first.UTMSource,
		UTMMedium:   first.UTMMedium,
		UTMCampaign: first.UTMCampaign,
		Referrer:    first.Referrer,
	}

	// Furthest step is a max, not a last-seen value: visitors revisit steps
	// and step numbers within a session are not monotonic.
	var maxStepEvent *models.FunnelEvent
	var terminalForm *models.FunnelEvent
	foundStep := false
	for _, e := range events {
		if e.IsStepBearing() {
			if !foundStep || e.StepNumber > s.MaxStep {
				foundStep = true
				s.MaxStep = e.StepNumber
				s.MaxStepName = e.StepName
			}
		}
		if maxStepEvent == nil || e.StepNumber > maxStepEvent.StepNumber {
			maxStepEvent = e
		}
		if e.EventType == models.EventTypeFormComplete {
			terminalForm = e
		}
	}

	switch {
	case terminalForm != nil:
		s.Terminal = models.EventTypeFormComplete
	case maxStepEvent.EventType != "":
		s.Terminal = maxStepEvent.EventType
	default:
		s.Terminal = models.EventTypeStepComplete
	}

	if terminalForm != nil {
		s.LeadName = terminalForm.LeadName
		s.LeadEmail = terminalForm.LeadEmail
		s.LeadPhone = terminalForm.LeadPhone
		s.ClickID = terminalForm.ClickID
	}

	return s
}
