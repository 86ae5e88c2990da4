package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mr1hm/road-hazard-alerts/internal/models"
	"github.com/mr1hm/road-hazard-alerts/internal/observability"
	"github.com/mr1hm/road-hazard-alerts/internal/position"
	"github.com/mr1hm/road-hazard-alerts/internal/ranking"
	"github.com/mr1hm/road-hazard-alerts/internal/repository"
	"github.com/mr1hm/road-hazard-alerts/internal/stream"
	"github.com/mr1hm/road-hazard-alerts/internal/tracker"
)

// Tracker is the part of tracker.Tracker the HTTP layer drives.
type Tracker interface {
	Snapshot() *models.Snapshot
	SetFilter(ctx context.Context, f ranking.Filter) (*models.Snapshot, error)
	ToggleSimulation(ctx context.Context) (bool, error)
}

// PositionFeed accepts readings reported by the client device.
type PositionFeed interface {
	Push(fix models.PositionSample)
	Fail(err error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

var errPermissionDenied = errors.New("location permission denied")

type Handler struct {
	hazards     []models.Hazard
	tracker     Tracker
	feed        PositionFeed
	repo        repository.AlertRepository
	broadcaster *stream.Broadcaster
	metrics     *observability.Metrics
}

func NewHandler(hazards []models.Hazard, t Tracker, feed PositionFeed, repo repository.AlertRepository, broadcaster *stream.Broadcaster, metrics *observability.Metrics) *Handler {
	return &Handler{
		hazards:     hazards,
		tracker:     t,
		feed:        feed,
		repo:        repo,
		broadcaster: broadcaster,
		metrics:     metrics,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/api/hazards", h.getHazards)
	r.GET("/api/status", h.getStatus)
	r.POST("/api/position", h.postPosition)
	r.POST("/api/position/error", h.postPositionError)
	r.POST("/api/simulation/toggle", h.toggleSimulation)
	r.PUT("/api/filter", h.putFilter)
	r.GET("/api/stream", h.stream)
	r.GET("/api/alerts", h.getAlerts)
	r.GET("/api/alerts/counts", h.getAlertCounts)
	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// getHazards ranks against the tracker's last position. Without a severity
// parameter the tracker's current filter applies.
func (h *Handler) getHazards(c *gin.Context) {
	snap := h.tracker.Snapshot()

	f := ranking.ParseFilter(snap.Filter)
	if s := c.Query("severity"); s != "" {
		f = ranking.ParseFilter(s)
	}

	res := ranking.Rank(snap.Position, h.hazards, f)
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, toGeoJSON(res.Hazards))
}

func (h *Handler) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.Snapshot())
}

type positionRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
	// Timestamp is unix milliseconds. Zero means now.
	Timestamp int64 `json:"timestamp"`
}

func (h *Handler) postPosition(c *gin.Context) {
	if h.feed == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live location disabled"})
		return
	}

	var req positionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid position body"})
		return
	}
	lat, lng := *req.Latitude, *req.Longitude
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})
		return
	}
	ts := req.Timestamp
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}

	h.feed.Push(models.PositionSample{Latitude: lat, Longitude: lng, Timestamp: ts})
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

type positionErrorRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *Handler) postPositionError(c *gin.Context) {
	if h.feed == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live location disabled"})
		return
	}

	var req positionErrorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid error body"})
		return
	}

	var err error
	switch req.Reason {
	case "denied":
		err = errPermissionDenied
	case "unsupported":
		err = position.ErrUnsupported
	case "timeout":
		err = position.ErrTimeout
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown reason"})
		return
	}

	h.feed.Fail(err)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (h *Handler) toggleSimulation(c *gin.Context) {
	running, err := h.tracker.ToggleSimulation(c.Request.Context())
	if errors.Is(err, tracker.ErrNoSimulator) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		slog.Error("toggle simulation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to toggle simulation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"running": running})
}

type filterRequest struct {
	Severity string `json:"severity"`
}

func (h *Handler) putFilter(c *gin.Context) {
	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter body"})
		return
	}

	snap, err := h.tracker.SetFilter(c.Request.Context(), ranking.ParseFilter(req.Severity))
	if err != nil {
		slog.Error("set filter failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to set filter"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"filter":  snap.Filter,
		"hazards": toGeoJSON(snap.Hazards),
	})
}

// stream sends the current snapshot, then one event per update until the
// client goes away or the broadcaster closes.
func (h *Handler) stream(c *gin.Context) {
	id, ch := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(id)

	if h.metrics != nil {
		h.metrics.StreamSubscribers.Inc()
		defer h.metrics.StreamSubscribers.Dec()
	}
	slog.Debug("stream client connected", "subscriber", id, "client", c.ClientIP())

	c.SSEvent("snapshot", h.tracker.Snapshot())
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case snap, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("snapshot", snap)
			return true
		}
	})
	slog.Debug("stream client disconnected", "subscriber", id)
}

func (h *Handler) getAlerts(c *gin.Context) {
	filter := repository.Filter{
		Limit: 50,
	}

	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 && lim <= 500 {
			filter.Limit = lim
		}
	}
	if s := c.Query("since"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			filter.Since = &t
		} else if t, err := time.Parse("2006-01-02", s); err == nil {
			filter.Since = &t
		}
	}
	if ms := c.Query("min_severity"); ms != "" {
		if sev, err := models.ParseSeverity(ms); err == nil {
			filter.MinSeverity = &sev
		}
	}
	if hid := c.Query("hazard_id"); hid != "" {
		if id, err := strconv.Atoi(hid); err == nil {
			filter.HazardID = &id
		}
	}

	alerts, err := h.repo.ListAlerts(c.Request.Context(), filter)
	if err != nil {
		slog.Error("list alerts failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to fetch alerts",
		})
		return
	}
	if alerts == nil {
		alerts = []models.AlertEvent{}
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

func (h *Handler) getAlertCounts(c *gin.Context) {
	counts, err := h.repo.CountByHazard(c.Request.Context())
	if err != nil {
		slog.Error("count alerts failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to count alerts",
		})
		return
	}

	out := make(map[string]int64, len(counts))
	for id, n := range counts {
		out[strconv.Itoa(id)] = n
	}
	c.JSON(http.StatusOK, gin.H{"counts": out})
}

func (h *Handler) health(c *gin.Context) {
	if p, ok := h.repo.(pinger); ok {
		if err := p.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "database unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
