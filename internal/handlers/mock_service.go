package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"solar_controller/internal/config"
	"solar_controller/internal/models"
	"solar_controller/internal/service"
)

// ---- Service Mocks ----

type mockAuth struct {
	enabled        bool
	subject        string
	parseErr       error
	lastParseToken string
}

func (m *mockAuth) Enabled() bool { return m.enabled }

func (m *mockAuth) ParseToken(token string) (string, error) {
	m.lastParseToken = token
	return m.subject, m.parseErr
}

type relayCall struct {
	name string
	on   bool
}

type pwmCall struct {
	name  string
	value float64
}

type mockControl struct {
	relayErr   error
	pwmErr     error
	relayCalls []relayCall
	pwmCalls   []pwmCall
}

func (m *mockControl) SetRelay(ctx context.Context, name string, on bool) error {
	m.relayCalls = append(m.relayCalls, relayCall{name, on})
	return m.relayErr
}

func (m *mockControl) SetPWM(ctx context.Context, name string, v float64) error {
	m.pwmCalls = append(m.pwmCalls, pwmCall{name, v})
	return m.pwmErr
}

type mockMonitoring struct {
	mu     sync.Mutex
	snap   models.Snapshot
	status service.Status
}

func (m *mockMonitoring) Snapshot() models.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

func (m *mockMonitoring) Status() service.Status { return m.status }

// setSnapshot swaps the snapshot while a handler may be reading it.
func (m *mockMonitoring) setSnapshot(s models.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = s
}

type mockEventLog struct {
	resp     []models.ChannelEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.ChannelEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service, cfg config.HTTPConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewHandler(s, cfg, nil).InitRoutes()
}

// sampleSnapshot is a small rig with a duplicated relay name.
func sampleSnapshot() models.Snapshot {
	collector := models.NewThermometer("COLLECTOR", "")
	collector.SetValue(64.5, time.Time{})
	tank := models.NewThermometer("TANK", "Tank")
	tank.SetValue(41, time.Time{})

	pump := models.NewRelay("PUMP", "", nil)
	pump.Update(1, time.Time{})
	valve := models.NewRelay("VALVE", "", nil)

	fan := models.NewPWMOutput("FAN", "", 0, 255)
	fan.SetDeviceValue(127.5, time.Time{})

	sun := models.NewAnalogInput("SUN", "")
	sun.SetValue(60, time.Time{})

	return models.Snapshot{
		Temperature: []models.Thermometer{*collector, *tank},
		Relay:       []models.Relay{*pump, *valve},
		PWM:         []models.PWMOutput{*fan},
		Analog:      []models.AnalogInput{sun.Clone()},
		Health:      models.NewHealth(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
}
