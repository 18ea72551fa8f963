package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"solar_controller/internal/service"
)

const (
	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"

	errLoadLogs = "failed to load logs"
)

var errRangeOrder = errors.New("'from' must be <= 'to'")

// @Summary      List operational events
// @Description  Filter by time (RFC3339, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD') and type. A date-only 'to' covers that whole day.
// @Tags         logs
// @Produce      json
// @Param        from  query  string  false  "Start of range"  example(2025-08-01)
// @Param        to    query  string  false  "End of range, inclusive"  example(2025-08-31)
// @Param        type  query  string  false  "Event type"  Enums(COMMAND,MCU_RESET,CALIBRATION,PROTOCOL_ERROR,LINK_DOWN)
// @Success      200   {object}  map[string]interface{}  "count, events"
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /logs [get]
func (h *Handler) getLogs(c *gin.Context) {
	f, err := logFilterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events, err := h.services.EventLog.List(c.Request.Context(), f)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("logs_list_failed", "err", err, "from", f.From, "to", f.To, "type", f.Type)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": errLoadLogs})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(events),
		"events": events,
	})
}

func logFilterFromQuery(c *gin.Context) (service.LogFilter, error) {
	f := service.LogFilter{Type: strings.ToUpper(strings.TrimSpace(c.Query("type")))}

	if qs := c.Query("from"); qs != "" {
		t, err := parseQueryTime(qs)
		if err != nil {
			return f, fmt.Errorf("invalid 'from': %w", err)
		}
		f.From = t
	}
	if qs := c.Query("to"); qs != "" {
		t, err := parseQueryTime(qs)
		if err != nil {
			return f, fmt.Errorf("invalid 'to': %w", err)
		}
		if isDateOnly(qs) {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.To = t
	}

	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return f, errRangeOrder
	}
	return f, nil
}

// isDateOnly reports whether s carries no time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

// parseQueryTime accepts RFC3339, a date-time or a bare date, normalised to UTC.
func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q; use RFC3339 or YYYY-MM-DD", s)
}
