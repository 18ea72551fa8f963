package repository

import (
	"context"
	"database/sql"
	"time"

	"solar_controller/internal/models"
)

// HealthRepo keeps the last reported MCU reset so it survives host restarts.
type HealthRepo interface {
	Save(ctx context.Context, h models.MCUHealth) error
	Load(ctx context.Context) (models.MCUHealth, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.ChannelEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.ChannelEvent, error)
}

type Repository struct {
	HealthRepo HealthRepo
	EventRepo  EventRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		HealthRepo: NewHealthSQLite(db),
		EventRepo:  NewEventSQLite(db),
	}
}
