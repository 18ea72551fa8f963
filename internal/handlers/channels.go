package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"solar_controller/internal/models"
	"solar_controller/internal/service"
)

const (
	statusOK = "ok"

	errNotFound      = "not found"
	errRelayBody     = "invalid body: expected true or false"
	errPWMBody       = "invalid body: expected a finite number"
	errCommandFailed = "failed to queue command"
)

// wantDetail reports whether ?detail, ?detail=true or ?detail=1 was given.
func wantDetail(c *gin.Context) bool {
	v, ok := c.GetQuery("detail")
	if !ok {
		return false
	}
	switch strings.ToLower(v) {
	case "", "true", "1":
		return true
	}
	return false
}

// channelView maps channel name to either the value or the whole record.
// A repeated name resolves to the highest index.
func channelView[R any](records []R, name func(R) string, value func(R) any, detail bool) map[string]any {
	out := make(map[string]any, len(records))
	for _, r := range records {
		if detail {
			out[name(r)] = r
		} else {
			out[name(r)] = value(r)
		}
	}
	return out
}

// respondChannels writes the whole view, or one entry if the route carries a name.
func respondChannels(c *gin.Context, view map[string]any) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusOK, view)
		return
	}
	v, ok := view[name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errNotFound})
		return
	}
	c.JSON(http.StatusOK, v)
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// @Summary      Full snapshot
// @Description  Every channel list plus the health record.
// @Tags         channels
// @Produce      json
// @Success      200  {object}  models.Snapshot
// @Router       / [get]
func (h *Handler) snapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Monitoring.Snapshot())
}

// @Summary      Link and MCU status
// @Tags         system
// @Produce      json
// @Success      200  {object}  service.Status
// @Router       /status [get]
func (h *Handler) status(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Monitoring.Status())
}

// @Summary      Temperatures
// @Description  name -> value, or name -> probe record with ?detail
// @Tags         channels
// @Produce      json
// @Param        name    path   string  false  "Probe name"
// @Param        detail  query  string  false  "Return full records"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Router       /temperature/{name} [get]
func (h *Handler) getTemperatures(c *gin.Context) {
	snap := h.services.Monitoring.Snapshot()
	respondChannels(c, channelView(snap.Temperature,
		func(t models.Thermometer) string { return t.Name },
		func(t models.Thermometer) any { return t.Value },
		wantDetail(c)))
}

// @Summary      Relays
// @Description  name -> state, or name -> relay record with ?detail
// @Tags         channels
// @Produce      json
// @Param        name    path   string  false  "Relay name"
// @Param        detail  query  string  false  "Return full records"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Router       /relay/{name} [get]
func (h *Handler) getRelays(c *gin.Context) {
	snap := h.services.Monitoring.Snapshot()
	respondChannels(c, channelView(snap.Relay,
		func(r models.Relay) string { return r.Name },
		func(r models.Relay) any { return r.State },
		wantDetail(c)))
}

// @Summary      PWM outputs
// @Description  name -> percent, or name -> output record with ?detail
// @Tags         channels
// @Produce      json
// @Param        name    path   string  false  "Output name"
// @Param        detail  query  string  false  "Return full records"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Router       /pwm/{name} [get]
func (h *Handler) getPWMs(c *gin.Context) {
	snap := h.services.Monitoring.Snapshot()
	respondChannels(c, channelView(snap.PWM,
		func(p models.PWMOutput) string { return p.Name },
		func(p models.PWMOutput) any { return p.Value },
		wantDetail(c)))
}

// @Summary      Analog inputs
// @Description  name -> percent, or name -> input record with ?detail
// @Tags         channels
// @Produce      json
// @Param        name    path   string  false  "Input name"
// @Param        detail  query  string  false  "Return full records"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Router       /analog/{name} [get]
func (h *Handler) getAnalogs(c *gin.Context) {
	snap := h.services.Monitoring.Snapshot()
	respondChannels(c, channelView(snap.Analog,
		func(a models.AnalogInput) string { return a.Name },
		func(a models.AnalogInput) any { return a.Value },
		wantDetail(c)))
}

// @Summary      Switch a relay
// @Description  Queues the command for every relay with this name. No acknowledgment is awaited.
// @Tags         control
// @Accept       json
// @Produce      json
// @Param        name  path  string  true  "Relay name"
// @Param        body  body  bool    true  "Desired state"
// @Success      200  {object}  bool
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /relay/{name} [post]
// @Security     BearerAuth
func (h *Handler) setRelay(c *gin.Context) {
	var body any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errRelayBody})
		return
	}
	on, ok := body.(bool)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": errRelayBody})
		return
	}

	name := c.Param("name")
	if err := h.services.Control.SetRelay(c.Request.Context(), name, on); err != nil {
		h.commandError(c, err, "relay_command_failed", "name", name)
		return
	}
	c.JSON(http.StatusOK, on)
}

// @Summary      Set a PWM duty cycle
// @Description  Percent, clamped to 0..100 and converted to each output's device range.
// @Tags         control
// @Accept       json
// @Produce      json
// @Param        name  path  string   true  "Output name"
// @Param        body  body  number   true  "Duty cycle in percent"
// @Success      200  {object}  number
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /pwm/{name} [post]
// @Security     BearerAuth
func (h *Handler) setPWM(c *gin.Context) {
	var body any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errPWMBody})
		return
	}
	v, ok := body.(float64)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": errPWMBody})
		return
	}

	name := c.Param("name")
	if err := h.services.Control.SetPWM(c.Request.Context(), name, v); err != nil {
		h.commandError(c, err, "pwm_command_failed", "name", name)
		return
	}
	c.JSON(http.StatusOK, v)
}

// commandError maps controller errors onto HTTP statuses.
func (h *Handler) commandError(c *gin.Context, err error, logKey string, kv ...interface{}) {
	switch {
	case errors.Is(err, service.ErrUnknownChannel):
		c.JSON(http.StatusNotFound, gin.H{"error": errNotFound})
	case errors.Is(err, service.ErrInvalidValue):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		if h.log != nil {
			h.log.Errorw(logKey, append([]interface{}{"err", err}, kv...)...)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": errCommandFailed})
	}
}
