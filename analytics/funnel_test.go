// api/analytics/funnel_test.go
package analytics

import (
	"testing"
	"time"

	"funnelscope/api/models"

	"github.com/stretchr/testify/assert"
)

var testBase = time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

func ev(session, eventType string, step int32, name string, offsetMin int) *models.FunnelEvent {
	return &models.FunnelEvent{
		EventID:    session + "-" + name + "-" + time.Duration(offsetMin).String(),
		SessionID:  session,
		EventType:  eventType,
		StepNumber: step,
		StepName:   name,
		Timestamp:  testBase.Add(time.Duration(offsetMin) * time.Minute),
	}
}

func land(session string, offsetMin int) *models.FunnelEvent {
	return ev(session, models.EventTypePageLand, 0, "land", offsetMin)
}

func TestAggregateCohortBasicFunnel(t *testing.T) {
	events := []*models.FunnelEvent{
		land("s1", 0), ev("s1", models.EventTypeStepComplete, 1, "intro", 1),
		ev("s1", models.EventTypeStepComplete, 2, "details", 2),
		ev("s1", models.EventTypeFormComplete, 3, "submit", 3),
		land("s2", 0), ev("s2", models.EventTypeStepComplete, 1, "intro", 1),
		land("s3", 0), ev("s3", models.EventTypeStepComplete, 1, "intro", 1),
		ev("s3", models.EventTypeStepComplete, 2, "details", 2),
		land("s4", 0),
	}

	counts, steps := AggregateCohort(events)

	assert.Equal(t, uint64(4), counts.UniqueViews)
	assert.Equal(t, uint64(10), counts.GrossViews)
	assert.Equal(t, uint64(4), counts.PageLands)
	assert.Equal(t, uint64(1), counts.FormCompletions)

	assert.Len(t, steps, 3)
	assert.Equal(t, "1:intro", steps[0].StepKey)
	assert.Equal(t, uint64(3), steps[0].Completions)
	assert.Equal(t, 75.0, steps[0].ConversionFromPrev) // 3 of 4 lands
	assert.Equal(t, 75.0, steps[0].ConversionFromInitial)

	assert.Equal(t, "2:details", steps[1].StepKey)
	assert.Equal(t, uint64(2), steps[1].Completions)
	assert.Equal(t, uint64(2), steps[1].SessionsWithPrev)
	assert.InDelta(t, 66.7, steps[1].ConversionFromPrev, 0.01)
	assert.Equal(t, 50.0, steps[1].ConversionFromInitial)

	assert.Equal(t, "3:submit", steps[2].StepKey)
	assert.Equal(t, uint64(1), steps[2].Completions)
	assert.Equal(t, 50.0, steps[2].ConversionFromPrev)
	assert.Equal(t, 25.0, steps[2].ConversionFromInitial)
}

func TestAggregateCohortConversionBounds(t *testing.T) {
	// Revisits and skipped steps must never push a rate outside [0, 100]
	// or produce NaN.
	events := []*models.FunnelEvent{
		ev("s1", models.EventTypeStepComplete, 1, "intro", 0),
		ev("s1", models.EventTypeStepComplete, 1, "intro", 1),
		ev("s1", models.EventTypeStepComplete, 3, "late", 2),
		ev("s2", models.EventTypeStepComplete, 3, "late", 2),
	}

	_, steps := AggregateCohort(events)
	for _, s := range steps {
		assert.GreaterOrEqual(t, s.ConversionFromPrev, 0.0, s.StepKey)
		assert.LessOrEqual(t, s.ConversionFromPrev, 100.0, s.StepKey)
		assert.GreaterOrEqual(t, s.ConversionFromInitial, 0.0, s.StepKey)
		assert.LessOrEqual(t, s.ConversionFromInitial, 100.0, s.StepKey)
	}
}

func TestAggregateCohortLandBaseFallback(t *testing.T) {
	// No page_land events at all: unique views become the land base and
	// rates stay finite.
	events := []*models.FunnelEvent{
		ev("s1", models.EventTypeStepComplete, 1, "intro", 0),
		ev("s2", models.EventTypeStepComplete, 1, "intro", 0),
		ev("s2", models.EventTypeStepComplete, 2, "details", 1),
	}

	counts, steps := AggregateCohort(events)
	assert.Equal(t, uint64(0), counts.PageLands)
	assert.Equal(t, uint64(2), counts.LandBase())
	assert.Equal(t, 100.0, steps[0].ConversionFromInitial)
	assert.Equal(t, 50.0, steps[1].ConversionFromInitial)
}

func TestAggregateCohortCompositeStepIdentity(t *testing.T) {
	// Same step number with different names across funnel versions must
	// stay distinct, ordered by number then name.
	events := []*models.FunnelEvent{
		ev("s1", models.EventTypeStepComplete, 2, "zip", 0),
		ev("s2", models.EventTypeStepComplete, 2, "address", 0),
		ev("s3", models.EventTypeStepComplete, 2, "zip", 0),
	}

	_, steps := AggregateCohort(events)
	assert.Len(t, steps, 2)
	assert.Equal(t, "2:address", steps[0].StepKey)
	assert.Equal(t, uint64(1), steps[0].Completions)
	assert.Equal(t, "2:zip", steps[1].StepKey)
	assert.Equal(t, uint64(2), steps[1].Completions)
}

func TestAggregateCohortLegacyEventsAreStepBearing(t *testing.T) {
	events := []*models.FunnelEvent{
		land("s1", 0),
		ev("s1", "", 1, "intro", 1), // legacy row, no event_type
	}

	_, steps := AggregateCohort(events)
	assert.Len(t, steps, 1)
	assert.Equal(t, uint64(1), steps[0].Completions)
}

func TestAggregateCohortEmpty(t *testing.T) {
	counts, steps := AggregateCohort(nil)
	assert.Equal(t, uint64(0), counts.UniqueViews)
	assert.Empty(t, steps)
}
