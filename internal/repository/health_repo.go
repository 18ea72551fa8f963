package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"solar_controller/internal/models"
)

type HealthSQLite struct {
	db *sql.DB
}

func NewHealthSQLite(db *sql.DB) *HealthSQLite {
	return &HealthSQLite{db: db}
}

const (
	mcuHealthRowID = 1

	upsertHealthSQL = `
		INSERT INTO mcu_health (id, reset_sources, reset_time)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			reset_sources=excluded.reset_sources,
			reset_time=excluded.reset_time
	`

	selectHealthSQL = `
		SELECT reset_sources, reset_time
		FROM mcu_health WHERE id=?
	`
)

// Save upserts the mcu_health row (id always 1).
func (r *HealthSQLite) Save(ctx context.Context, h models.MCUHealth) error {
	sources := h.ResetSources
	if sources == nil {
		sources = []string{}
	}
	b, err := json.Marshal(sources)
	if err != nil {
		return err
	}

	ts := h.ResetTime
	if ts.IsZero() {
		ts = time.Now().UTC()
	} else {
		ts = ts.UTC()
	}

	_, err = r.db.ExecContext(ctx, upsertHealthSQL, mcuHealthRowID, string(b), ts)
	return err
}

// Load fetches the last persisted reset. It returns the zero value when the
// MCU has never reported one.
func (r *HealthSQLite) Load(ctx context.Context) (models.MCUHealth, error) {
	row := r.db.QueryRowContext(ctx, selectHealthSQL, mcuHealthRowID)

	var (
		h       models.MCUHealth
		sources string
	)
	if err := row.Scan(&sources, &h.ResetTime); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.MCUHealth{}, nil
		}
		return models.MCUHealth{}, err
	}
	if err := json.Unmarshal([]byte(sources), &h.ResetSources); err != nil {
		return models.MCUHealth{}, err
	}
	if h.ResetSources == nil {
		h.ResetSources = []string{}
	}
	h.ResetTime = h.ResetTime.UTC()
	return h, nil
}
