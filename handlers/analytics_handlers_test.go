// api/handlers/analytics_handlers_test.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"funnelscope/api/analytics"
	"funnelscope/api/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubSource struct {
	events    []*models.FunnelEvent
	lastLimit int
}

func (s *stubSource) FetchEvents(_ context.Context, _ models.EventFilter) ([]*models.FunnelEvent, error) {
	return s.events, nil
}

func (s *stubSource) CountSessions(_ context.Context, _ models.EventFilter, _ string) (uint64, error) {
	seen := make(map[string]struct{})
	for _, e := range s.events {
		seen[e.SessionID] = struct{}{}
	}
	return uint64(len(seen)), nil
}

func (s *stubSource) SessionIDPage(_ context.Context, _ models.EventFilter, _ string, _, limit int) ([]string, error) {
	s.lastLimit = limit
	var ids []string
	seen := make(map[string]struct{})
	for _, e := range s.events {
		if _, ok := seen[e.SessionID]; !ok {
			seen[e.SessionID] = struct{}{}
			ids = append(ids, e.SessionID)
		}
	}
	return ids, nil
}

func (s *stubSource) FetchSessionEvents(_ context.Context, sessionIDs []string) ([]*models.FunnelEvent, error) {
	return s.events, nil
}

func testEvents() []*models.FunnelEvent {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return []*models.FunnelEvent{
		{EventID: "e1", SessionID: "s1", EventType: models.EventTypePageLand, Domain: "a.com", Timestamp: base},
		{EventID: "e2", SessionID: "s1", EventType: models.EventTypeStepComplete, StepNumber: 1, StepName: "intro", Domain: "a.com", Timestamp: base.Add(time.Minute)},
		{EventID: "e3", SessionID: "s2", EventType: models.EventTypePageLand, Domain: "b.com", Timestamp: base},
	}
}

type stubFunnels struct {
	funnels []models.Funnel
	err     error
	calls   int
}

func (s *stubFunnels) ListFunnels(_ context.Context) ([]models.Funnel, error) {
	s.calls++
	return s.funnels, s.err
}

func newTestRouter(source analytics.EventSource) *gin.Engine {
	return newTestRouterWithFunnels(source, nil)
}

func newTestRouterWithFunnels(source analytics.EventSource, funnels FunnelLister) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAnalyticsHandlers(analytics.NewEngine(source), nil, funnels)
	r := gin.New()
	r.GET("/api/analytics/drilldown", h.GetDrilldown)
	r.GET("/api/analytics/sessions", h.GetSessions)
	r.POST("/api/track", h.TrackEvent)
	return r
}

func doRequest(r *gin.Engine, method, url, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetDrilldownValidation(t *testing.T) {
	r := newTestRouter(&stubSource{events: testEvents()})

	t.Run("missing groupBy", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/api/analytics/drilldown", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "groupBy")
	})

	t.Run("unknown groupBy", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/api/analytics/drilldown?groupBy=favoriteColor", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "groupBy")
	})

	t.Run("malformed startDate", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/api/analytics/drilldown?groupBy=domain&startDate=08-01-2026", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "startDate")
	})

	t.Run("unknown parent dimension", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/api/analytics/drilldown?groupBy=domain&parent.nope=x", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "parent.nope")
	})

	t.Run("malformed parent hour", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/api/analytics/drilldown?groupBy=domain&parent.hourOfDay=abc", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "parent.hourOfDay")
	})

	t.Run("out of range parent hour", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/api/analytics/drilldown?groupBy=domain&parent.hourOfDay=24", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "parent.hourOfDay")
	})

	t.Run("valid parent hour", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/api/analytics/drilldown?groupBy=domain&parent.hourOfDay=08", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestGetDrilldownHappyPath(t *testing.T) {
	r := newTestRouter(&stubSource{events: testEvents()})

	w := doRequest(r, http.MethodGet, "/api/analytics/drilldown?groupBy=domain&startDate=2026-08-01&endDate=2026-08-02", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var result models.DrilldownResult
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "domain", result.GroupBy)
	assert.Len(t, result.Rows, 2)
	assert.Equal(t, "a.com", result.Rows[0].GroupValue)
	assert.Equal(t, "Totals", result.Totals.GroupValue)
	assert.Equal(t, uint64(2), result.Totals.UniqueViews)
}

func TestGetDrilldownLabelsFunnelRows(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	events := []*models.FunnelEvent{
		{EventID: "e1", SessionID: "s1", EventType: models.EventTypePageLand, FunnelID: "fun-1", Timestamp: base},
		{EventID: "e2", SessionID: "s2", EventType: models.EventTypePageLand, FunnelID: "fun-2", Timestamp: base},
		{EventID: "e3", SessionID: "s3", EventType: models.EventTypePageLand, Timestamp: base},
	}
	funnels := &stubFunnels{funnels: []models.Funnel{{ID: "fun-1", Name: "Solar Quote"}}}
	r := newTestRouterWithFunnels(&stubSource{events: events}, funnels)

	w := doRequest(r, http.MethodGet, "/api/analytics/drilldown?groupBy=funnelId", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, funnels.calls)

	var result models.DrilldownResult
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	labels := make(map[string]string)
	for _, row := range result.Rows {
		labels[row.GroupValue] = row.GroupLabel
	}
	assert.Equal(t, "Solar Quote", labels["fun-1"])
	assert.Equal(t, "", labels["fun-2"])
	assert.Equal(t, "", labels[analytics.SentinelNone])
	assert.Empty(t, result.Totals.GroupLabel)

	// Other dimensions never hit funnel metadata.
	w = doRequest(r, http.MethodGet, "/api/analytics/drilldown?groupBy=domain", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, funnels.calls)
}

func TestGetDrilldownFunnelLabelLookupFailureIsNonFatal(t *testing.T) {
	events := testEvents()
	funnels := &stubFunnels{err: errors.New("connection refused")}
	r := newTestRouterWithFunnels(&stubSource{events: events}, funnels)

	w := doRequest(r, http.MethodGet, "/api/analytics/drilldown?groupBy=funnelId", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var result models.DrilldownResult
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	for _, row := range result.Rows {
		assert.Empty(t, row.GroupLabel)
	}
}

func TestGetSessionsClampsLimit(t *testing.T) {
	source := &stubSource{events: testEvents()}
	r := newTestRouter(source)

	w := doRequest(r, http.MethodGet, "/api/analytics/sessions?limit=9999", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var result models.SessionLogResult
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 200, result.Limit)
	assert.Equal(t, 200, source.lastLimit)
	assert.Equal(t, uint64(2), result.Total)
}

func TestGetSessionsRejectsBadPage(t *testing.T) {
	r := newTestRouter(&stubSource{events: testEvents()})

	w := doRequest(r, http.MethodGet, "/api/analytics/sessions?page=zero", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "page")
}

func TestTrackEventRejectsBadBody(t *testing.T) {
	r := newTestRouter(&stubSource{})

	w := doRequest(r, http.MethodPost, "/api/track", `{"not":"an array"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
