// api/analytics/engine.go

// Package analytics implements the session reconstruction and
// multi-dimension funnel drilldown core. It is pure computation over events
// supplied by an EventSource; the only I/O happens behind that interface.
package analytics

import (
	"context"
	"fmt"
	"math"

	"funnelscope/api/models"
)

// EventSource is the query capability the core requires from the event
// store. Implementations must be read-only and safe for concurrent use.
type EventSource interface {
	// FetchEvents returns every event matching the filter.
	FetchEvents(ctx context.Context, filter models.EventFilter) ([]*models.FunnelEvent, error)

	// CountSessions returns the number of distinct sessions matching the
	// filter and optional free-text search.
	CountSessions(ctx context.Context, filter models.EventFilter, search string) (uint64, error)

	// SessionIDPage returns one page of session ids ordered by each
	// session's most-recent event timestamp, descending.
	SessionIDPage(ctx context.Context, filter models.EventFilter, search string, page, limit int) ([]string, error)

	// FetchSessionEvents returns all events for the given sessions, not a
	// truncated slice, so per-session aggregates cover complete sessions.
	FetchSessionEvents(ctx context.Context, sessionIDs []string) ([]*models.FunnelEvent, error)
}

// ValidationError rejects a request before any event store query runs.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Engine answers drilldown and session-log queries. It holds no state
// beyond its source: every call is an independent, request-scoped
// computation.
type Engine struct {
	source EventSource
}

func NewEngine(source EventSource) *Engine {
	return &Engine{source: source}
}

// Drilldown computes one level of the funnel drilldown tree: grouped rows
// for the chosen dimension plus the reconciled totals row. Recursion is
// flat re-invocation: the caller expands a row by adding
// {groupBy: rowValue} to filter.Parent and calling again with a dimension
// not yet used on the path.
func (e *Engine) Drilldown(ctx context.Context, filter models.EventFilter, groupBy string) (*models.DrilldownResult, error) {
	dim, ok := DimensionByName(groupBy)
	if !ok {
		return nil, &ValidationError{Field: "groupBy", Message: fmt.Sprintf("unknown dimension %q", groupBy)}
	}
	for name := range filter.Parent {
		if _, ok := DimensionByName(name); !ok {
			return nil, &ValidationError{Field: "parent." + name, Message: fmt.Sprintf("unknown dimension %q", name)}
		}
	}

	events, err := e.source.FetchEvents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events for drilldown: %w", err)
	}

	rows := buildRows(events, dim)
	return &models.DrilldownResult{
		GroupBy: groupBy,
		Rows:    rows,
		Totals:  ReconcileTotals(rows),
	}, nil
}

// SessionLog returns one page of reconstructed session summaries, newest
// session first. An empty result is a valid state, not an error.
func (e *Engine) SessionLog(ctx context.Context, filter models.EventFilter, search string, page, limit int) (*models.SessionLogResult, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	total, err := e.source.CountSessions(ctx, filter, search)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}

	result := &models.SessionLogResult{
		Sessions:   []models.SessionSummary{},
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}
	if total == 0 {
		return result, nil
	}

	sessionIDs, err := e.source.SessionIDPage(ctx, filter, search, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch session id page: %w", err)
	}
	if len(sessionIDs) == 0 {
		return result, nil
	}

	events, err := e.source.FetchSessionEvents(ctx, sessionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch session events: %w", err)
	}

	result.Sessions = SummarizeSessions(sessionIDs, events)
	return result, nil
}
