// api/handlers/analytics_handlers.go
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"funnelscope/api/analytics"
	"funnelscope/api/models"
	"funnelscope/api/store"
	"funnelscope/api/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mssola/user_agent"
	log "github.com/sirupsen/logrus"
)

// FunnelLister supplies funnel metadata for labeling funnelId drilldown
// rows. Satisfied by store.FunnelStore.
type FunnelLister interface {
	ListFunnels(ctx context.Context) ([]models.Funnel, error)
}

type AnalyticsHandlers struct {
	Engine         *analytics.Engine
	AnalyticsStore *store.AnalyticsStore
	Funnels        FunnelLister
}

func NewAnalyticsHandlers(engine *analytics.Engine, s *store.AnalyticsStore, funnels FunnelLister) *AnalyticsHandlers {
	return &AnalyticsHandlers{
		Engine:         engine,
		AnalyticsStore: s,
		Funnels:        funnels,
	}
}

// TrackEvent ingests a batch of funnel events. Each event gets a generated
// id, the client IP, and user-agent-derived device/browser/bot attributes
// when the tracker did not supply them.
func (h *AnalyticsHandlers) TrackEvent(c *gin.Context) {
	var incomingEvents []models.FunnelEvent
	if err := c.ShouldBindJSON(&incomingEvents); err != nil {
		log.WithError(err).Warn("Error binding incoming events JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if len(incomingEvents) == 0 {
		c.Status(http.StatusOK)
		return
	}

	var eventsToInsert []models.FunnelEvent
	for _, event := range incomingEvents {
		event.EventID = uuid.New().String()
		event.IPAddress = c.ClientIP()
		if event.UserAgent == "" {
			event.UserAgent = c.Request.UserAgent()
		}
		if event.Timestamp.IsZero() {
			event.Timestamp = time.Now().UTC()
		}
		enrichFromUserAgent(&event)

		eventsToInsert = append(eventsToInsert, event)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	if err := h.AnalyticsStore.InsertFunnelEvents(ctx, eventsToInsert); err != nil {
		log.WithError(err).Error("Error inserting funnel events into ClickHouse")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record funnel events"})
		return
	}

	c.Status(http.StatusOK)
}

// enrichFromUserAgent fills device, OS, browser, and the bot flag from the
// raw user agent, leaving any tracker-supplied values alone.
func enrichFromUserAgent(event *models.FunnelEvent) {
	if event.UserAgent == "" {
		return
	}
	ua := user_agent.New(event.UserAgent)
	if event.DeviceType == "" {
		if ua.Mobile() {
			event.DeviceType = "mobile"
		} else {
			event.DeviceType = "desktop"
		}
	}
	if event.OS == "" {
		event.OS = ua.OS()
	}
	if event.Browser == "" {
		event.Browser, _ = ua.Browser()
	}
	if ua.Bot() {
		event.IsBot = true
	}
}

// GetDrilldown handles GET /api/analytics/drilldown. It validates groupBy
// and the filter set before any event store query runs.
func (h *AnalyticsHandlers) GetDrilldown(c *gin.Context) {
	groupBy := c.Query("groupBy")
	if groupBy == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "groupBy query parameter is required"})
		return
	}

	filter, err := parseEventFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	result, err := h.Engine.Drilldown(ctx, filter, groupBy)
	if err != nil {
		var verr *analytics.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
		log.WithError(err).WithField("groupBy", groupBy).Error("Error computing drilldown")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute drilldown"})
		return
	}

	if groupBy == "funnelId" {
		h.labelFunnelRows(ctx, result)
	}

	c.JSON(http.StatusOK, result)
}

// labelFunnelRows attaches funnel names to funnelId drilldown rows. A
// metadata lookup failure leaves the rows unlabeled rather than failing
// the whole drilldown.
func (h *AnalyticsHandlers) labelFunnelRows(ctx context.Context, result *models.DrilldownResult) {
	if h.Funnels == nil {
		return
	}
	funnels, err := h.Funnels.ListFunnels(ctx)
	if err != nil {
		log.WithError(err).Warn("Error listing funnels for drilldown row labels")
		return
	}
	names := make(map[string]string, len(funnels))
	for _, funnel := range funnels {
		names[funnel.ID] = funnel.Name
	}
	for i := range result.Rows {
		result.Rows[i].GroupLabel = names[result.Rows[i].GroupValue]
	}
}

// GetSessions handles GET /api/analytics/sessions: paginated reconstructed
// session summaries, newest first. The page size is clamped server-side.
func (h *AnalyticsHandlers) GetSessions(c *gin.Context) {
	filter, err := parseEventFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page := 1
	if raw := c.Query("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "page: must be a positive integer"})
			return
		}
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit: must be an integer"})
			return
		}
	}
	limit = utils.ClampLimit(limit, 50)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	result, err := h.Engine.SessionLog(ctx, filter, c.Query("search"), page, limit)
	if err != nil {
		log.WithError(err).Error("Error computing session log")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve sessions"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// parentFilterPrefix marks accumulated drilldown filters on the query
// string, e.g. parent.domain=example.com.
const parentFilterPrefix = "parent."

func parseEventFilter(c *gin.Context) (models.EventFilter, error) {
	var filter models.EventFilter
	var err error

	if raw := c.Query("startDate"); raw != "" {
		filter.Start, err = utils.ParseDateBound(raw, false)
		if err != nil {
			return filter, fmt.Errorf("startDate: %w", err)
		}
	}
	if raw := c.Query("endDate"); raw != "" {
		filter.End, err = utils.ParseDateBound(raw, true)
		if err != nil {
			return filter, fmt.Errorf("endDate: %w", err)
		}
	}
	if raw := c.Query("startTime"); raw != "" {
		if !utils.IsValidTimeOfDay(raw) {
			return filter, fmt.Errorf("startTime: invalid time %q, expected HH:MM", raw)
		}
		filter.StartTime = raw
	}
	if raw := c.Query("endTime"); raw != "" {
		if !utils.IsValidTimeOfDay(raw) {
			return filter, fmt.Errorf("endTime: invalid time %q, expected HH:MM", raw)
		}
		filter.EndTime = raw
	}

	filter.Domains = utils.SplitMulti(c.QueryArray("domain"))
	filter.Pages = utils.SplitMulti(c.QueryArray("page"))
	filter.FunnelIDs = utils.SplitMulti(c.QueryArray("funnelId"))
	filter.DeviceTypes = utils.SplitMulti(c.QueryArray("deviceType"))
	filter.GeoStates = utils.SplitMulti(c.QueryArray("geoState"))
	filter.UTMSources = utils.SplitMulti(c.QueryArray("utmSource"))
	filter.UTMMediums = utils.SplitMulti(c.QueryArray("utmMedium"))
	filter.UTMCampaigns = utils.SplitMulti(c.QueryArray("utmCampaign"))

	if raw := c.Query("excludeBots"); raw == "true" || raw == "1" {
		filter.ExcludeBots = true
	}

	for key, values := range c.Request.URL.Query() {
		if !strings.HasPrefix(key, parentFilterPrefix) || len(values) == 0 {
			continue
		}
		name := strings.TrimPrefix(key, parentFilterPrefix)
		dim, ok := analytics.DimensionByName(name)
		if !ok {
			return filter, fmt.Errorf("parent.%s: unknown dimension", name)
		}
		if dim.Column == "" {
			if _, hok := analytics.ParseHour(values[0]); !hok {
				return filter, fmt.Errorf("parent.%s: invalid hour %q", name, values[0])
			}
		}
		if filter.Parent == nil {
			filter.Parent = make(map[string]string)
		}
		filter.Parent[name] = values[0]
	}

	return filter, nil
}
