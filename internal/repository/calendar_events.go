package repository

import (
	"context"
	"encoding/json"

	"github.com/qhrc-dev/team-calendar/backend/internal/domain"
)

// GetDocument 读取共享日历文档，没有记录时返回 sql.ErrNoRows
func (r *Repository) GetDocument(ctx context.Context, calendarID string) (domain.CalendarDocument, error) {
	query := `
		SELECT events FROM calendar_events WHERE calendar_id = $1
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var raw []byte
	if err := r.dbpool.QueryRowContext(ctx, query, calendarID).Scan(&raw); err != nil {
		return nil, err
	}

	return domain.DecodeCalendarDocument(raw)
}

func (r *Repository) UpsertDocument(ctx context.Context, calendarID string, doc domain.CalendarDocument) error {
	if doc == nil {
		doc = domain.CalendarDocument{}
	}
	events, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO calendar_events (calendar_id, events)
		VALUES ($1, $2)
		ON CONFLICT (calendar_id) DO UPDATE
		SET events = EXCLUDED.events, updated_at = NOW()
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query, calendarID, events); err != nil {
		return err
	}

	return nil
}
