// api/store/event_store.go
package store

import (
	"context"
	"fmt"

	"funnelscope/api/database"
	"funnelscope/api/models"

	log "github.com/sirupsen/logrus"
)

// AnalyticsStore reads and appends funnel events in ClickHouse. It is the
// concrete analytics.EventSource: read-only from the core's perspective,
// reentrant, no transactions held across calls.
type AnalyticsStore struct {
	DB *database.ClickHouseClient
}

func NewAnalyticsStore(chClient *database.ClickHouseClient) *AnalyticsStore {
	return &AnalyticsStore{
		DB: chClient,
	}
}

const eventColumns = `event_id, session_id, event_type, step_number, step_name, selected_value, timestamp,
		domain, page, funnel_id, device_type, os, browser, geo_state, selected_state,
		utm_source, utm_medium, utm_campaign, utm_term, utm_content, referrer, click_id,
		ip_address, user_agent, is_bot, lead_name, lead_email, lead_phone`

// InsertFunnelEvents appends a batch of events to the funnel_events table.
func (s *AnalyticsStore) InsertFunnelEvents(ctx context.Context, events []models.FunnelEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO funnel_events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for _, event := range events {
		err := batch.Append(
			event.EventID,
			event.SessionID,
			event.EventType,
			event.StepNumber,
			event.StepName,
			event.SelectedValue,
			event.Timestamp,
			event.Domain,
			event.Page,
			event.FunnelID,
			event.DeviceType,
			event.OS,
			event.Browser,
			event.GeoState,
			event.SelectedState,
			event.UTMSource,
			event.UTMMedium,
			event.UTMCampaign,
			event.UTMTerm,
			event.UTMContent,
			event.Referrer,
			event.ClickID,
			event.IPAddress,
			event.UserAgent,
			event.IsBot,
			event.LeadName,
			event.LeadEmail,
			event.LeadPhone,
		)
		if err != nil {
			log.WithError(err).WithField("eventId", event.EventID).Error("Error appending event to batch")
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.WithField("count", len(events)).Info("Inserted funnel events")
	return nil
}

// FetchEvents returns every event matching the filter, time-ordered.
func (s *AnalyticsStore) FetchEvents(ctx context.Context, filter models.EventFilter) ([]*models.FunnelEvent, error) {
	whereClause, args := BuildPredicate(filter)

	query := fmt.Sprintf(`
		SELECT %s
		FROM funnel_events
		%s
		ORDER BY timestamp ASC, event_id ASC
	`, eventColumns, whereClause)

	rows, err := s.DB.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query funnel events: %w", err)
	}
	defer rows.Close()

	var events []*models.FunnelEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			log.WithError(err).Error("Error scanning funnel event row")
			continue
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during funnel events query: %w", err)
	}

	return events, nil
}

// CountSessions returns the number of distinct sessions matching the filter
// and optional free-text search.
func (s *AnalyticsStore) CountSessions(ctx context.Context, filter models.EventFilter, search string) (uint64, error) {
	whereClause, args := BuildPredicate(filter)
	searchClause, searchArgs := BuildSearchClause(search)
	whereClause = combineClauses(whereClause, searchClause)
	args = append(args, searchArgs...)

	query := fmt.Sprintf(`SELECT uniqExact(session_id) FROM funnel_events %s`, whereClause)

	var total uint64
	if err := s.DB.Conn.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	return total, nil
}

// SessionIDPage returns one page of session ids ordered by most-recent
// event timestamp descending. The id tiebreak keeps consecutive calls with
// identical filters returning identical orderings.
func (s *AnalyticsStore) SessionIDPage(ctx context.Context, filter models.EventFilter, search string, page, limit int) ([]string, error) {
	whereClause, args := BuildPredicate(filter)
	searchClause, searchArgs := BuildSearchClause(search)
	whereClause = combineClauses(whereClause, searchClause)
	args = append(args, searchArgs...)

	query := fmt.Sprintf(`
		SELECT session_id
		FROM funnel_events
		%s
		GROUP BY session_id
		ORDER BY max(timestamp) DESC, session_id ASC
		LIMIT ? OFFSET ?
	`, whereClause)
	args = append(args, limit, (page-1)*limit)

	rows, err := s.DB.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query session id page: %w", err)
	}
	defer rows.Close()

	var sessionIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			log.WithError(err).Error("Error scanning session id row")
			continue
		}
		sessionIDs = append(sessionIDs, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during session id page query: %w", err)
	}

	return sessionIDs, nil
}

// FetchSessionEvents returns all events for exactly the given sessions so
// per-session aggregates are computed over complete sessions, not the
// filtered slice that selected them.
func (s *AnalyticsStore) FetchSessionEvents(ctx context.Context, sessionIDs []string) ([]*models.FunnelEvent, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}

	args := make([]interface{}, 0, len(sessionIDs))
	for _, id := range sessionIDs {
		args = append(args, id)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM funnel_events
		WHERE session_id IN (%s)
		ORDER BY timestamp ASC, event_id ASC
	`, eventColumns, placeholders(len(sessionIDs)))

	rows, err := s.DB.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query session events: %w", err)
	}
	defer rows.Close()

	var events []*models.FunnelEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			log.WithError(err).Error("Error scanning session event row")
			continue
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during session events query: %w", err)
	}

	return events, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(rows rowScanner) (*models.FunnelEvent, error) {
	e := &models.FunnelEvent{}
	err := rows.Scan(
		&e.EventID,
		&e.SessionID,
		&e.EventType,
		&e.StepNumber,
		&e.StepName,
		&e.SelectedValue,
		&e.Timestamp,
		&e.Domain,
		&e.Page,
		&e.FunnelID,
		&e.DeviceType,
		&e.OS,
		&e.Browser,
		&e.GeoState,
		&e.SelectedState,
		&e.UTMSource,
		&e.UTMMedium,
		&e.UTMCampaign,
		&e.UTMTerm,
		&e.UTMContent,
		&e.Referrer,
		&e.ClickID,
		&e.IPAddress,
		&e.UserAgent,
		&e.IsBot,
		&e.LeadName,
		&e.LeadEmail,
		&e.LeadPhone,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}
