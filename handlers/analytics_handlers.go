// analytics/handlers/analytics_handlers.go
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"spaceclouds/analytics/store"
	"spaceclouds/analytics/tracking"

	"github.com/gin-gonic/gin"
)

type AnalyticsHandlers struct {
	EventLog *store.EventLog
	Pages    *tracking.Registry
	Logger   *slog.Logger
}

func NewAnalyticsHandlers(eventLog *store.EventLog, pages *tracking.Registry, logger *slog.Logger) *AnalyticsHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyticsHandlers{EventLog: eventLog, Pages: pages, Logger: logger}
}

// LogEventRequest is a custom event sent by a page script.
type LogEventRequest struct {
	Path string         `json:"path" binding:"required"`
	Type string         `json:"type" binding:"required"`
	Data map[string]any `json:"data"`
}

// TrackSignal forwards one raw page signal to the page trackers.
func (h *AnalyticsHandlers) TrackSignal(c *gin.Context) {
	var sig tracking.Signal
	if err := c.ShouldBindJSON(&sig); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.Pages.Handle(sig); err != nil {
		h.Logger.Warn("Rejected page signal", "path", sig.Path, "signal", sig.Name, "error", err)
		switch {
		case errors.Is(err, tracking.ErrUnknownSignal):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, tracking.ErrPageNotReady), errors.Is(err, tracking.ErrNoVideo):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to track signal"})
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// LogEvent records a custom event for the page at path.
func (h *AnalyticsHandlers) LogEvent(c *gin.Context) {
	var req LogEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	event := h.EventLog.ForLocation(req.Path).LogEvent(req.Type, req.Data)
	c.JSON(http.StatusCreated, event)
}

func (h *AnalyticsHandlers) GetData(c *gin.Context) {
	c.JSON(http.StatusOK, h.EventLog.Load())
}

// ExportData serves the store as a downloadable, indented JSON file.
func (h *AnalyticsHandlers) ExportData(c *gin.Context) {
	data, err := h.EventLog.Export()
	if err != nil {
		h.Logger.Error("Error exporting analytics", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export analytics data"})
		return
	}
	filename := "spaceclouds-analytics-" + time.Now().UTC().Format("2006-01-02") + ".json"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(data))
}

func (h *AnalyticsHandlers) ClearData(c *gin.Context) {
	h.EventLog.Clear()
	c.JSON(http.StatusOK, gin.H{"message": "Analytics data cleared"})
}

func (h *AnalyticsHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "openPages": h.Pages.Len()})
}
