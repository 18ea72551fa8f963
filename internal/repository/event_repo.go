package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"solar_controller/internal/models"
)

// EventSQLite stores the operational log in channel_events.
type EventSQLite struct {
	db *sql.DB
}

func NewEventSQLite(db *sql.DB) *EventSQLite { return &EventSQLite{db: db} }

const (
	insertEventSQL = `
		INSERT INTO channel_events (id, occurred_at, type, message, meta)
		VALUES (?, ?, ?, ?, ?)
	`
	selectEventsSQL = `SELECT id, occurred_at, type, message, meta FROM channel_events`
	orderEventsSQL  = ` ORDER BY occurred_at ASC`
)

// Append inserts e. A missing EventID or OccurredAt is filled in; the type is
// stored upper-cased so filters match regardless of how callers spell it.
func (r *EventSQLite) Append(ctx context.Context, e models.ChannelEvent) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	at := e.OccurredAt.UTC()
	if e.OccurredAt.IsZero() {
		at = time.Now().UTC()
	}

	if _, err := r.db.ExecContext(ctx, insertEventSQL,
		e.EventID, at, eventType(e.Type), e.Description, encodeMeta(e.Metadata),
	); err != nil {
		return fmt.Errorf("append %s event: %w", eventType(e.Type), err)
	}
	return nil
}

// List returns events in [from, to] (inclusive, zero bounds are open) of the
// given type (empty means any), oldest first.
func (r *EventSQLite) List(ctx context.Context, from, to time.Time, typ string) ([]models.ChannelEvent, error) {
	q, args := eventQuery(from, to, typ)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.ChannelEvent, 0, 64)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func eventType(typ string) string { return strings.ToUpper(strings.TrimSpace(typ)) }

// eventQuery builds the filtered SELECT. Conditions appear in a fixed order:
// lower bound, upper bound, type.
func eventQuery(from, to time.Time, typ string) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		where = append(where, cond)
		args = append(args, arg)
	}

	if !from.IsZero() {
		add("occurred_at >= ?", from.UTC())
	}
	if !to.IsZero() {
		add("occurred_at <= ?", to.UTC())
	}
	if t := eventType(typ); t != "" {
		add("type = ?", t)
	}

	q := selectEventsSQL
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	return q + orderEventsSQL, args
}

func scanEvent(rows *sql.Rows) (models.ChannelEvent, error) {
	var (
		ev   models.ChannelEvent
		meta sql.NullString
	)
	if err := rows.Scan(&ev.EventID, &ev.OccurredAt, &ev.Type, &ev.Description, &meta); err != nil {
		return models.ChannelEvent{}, fmt.Errorf("scan event: %w", err)
	}
	ev.OccurredAt = ev.OccurredAt.UTC()
	ev.Metadata = decodeMeta(meta)
	return ev, nil
}

// encodeMeta returns the JSON text of meta, or nil (SQL NULL) when there is
// nothing to store or it cannot be encoded.
func encodeMeta(meta any) *string {
	if meta == nil {
		return nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}

// decodeMeta parses stored JSON. Text that is not JSON comes back verbatim.
func decodeMeta(meta sql.NullString) any {
	if !meta.Valid || meta.String == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(meta.String), &v); err != nil {
		return meta.String
	}
	return v
}
