package service

import (
	"context"

	"solar_controller/internal/config"
	"solar_controller/internal/models"
)

// Authorization verifies bearer tokens for remote writes.
type Authorization interface {
	Enabled() bool
	ParseToken(accessToken string) (string, error)
}

// Control exposes fire-and-forget writes to named channels.
type Control interface {
	SetRelay(ctx context.Context, name string, on bool) error
	SetPWM(ctx context.Context, name string, percent float64) error
}

// Monitoring exposes read-only rig state.
type Monitoring interface {
	Snapshot() models.Snapshot
	Status() Status
}

// EventLog exposes the append-only operational log with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.ChannelEvent, error)
}

// Service aggregates everything the HTTP and MQTT layers need.
type Service struct {
	Control
	Monitoring
	EventLog
	Authorization
}

func NewService(ctrl *Controller, cfg config.Config) *Service {
	return &Service{
		Control:       ctrl,
		Monitoring:    ctrl,
		EventLog:      ctrl.events,
		Authorization: NewAuthService(cfg.HTTP.TokenSecret),
	}
}
