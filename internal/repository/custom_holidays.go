package repository

import (
	"context"
	"database/sql"

	"github.com/qhrc-dev/team-calendar/backend/internal/domain"
)

func (r *Repository) ListCustomHolidays(ctx context.Context) ([]*domain.CustomHoliday, error) {
	query := `
		SELECT id, to_char(date, 'YYYY-MM-DD'), name, description, created_by, created_at
		FROM custom_holidays
		ORDER BY date, created_at
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	holidays := make([]*domain.CustomHoliday, 0)
	for rows.Next() {
		h := &domain.CustomHoliday{}
		h.Category = domain.HolidayCustom

		var createdBy sql.NullInt64
		dst := []any{&h.ID, &h.Date, &h.Name, &h.Description, &createdBy, &h.CreatedAt}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		h.CreatedBy = createdBy.Int64
		holidays = append(holidays, h)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return holidays, nil
}

func (r *Repository) InsertCustomHoliday(ctx context.Context, h *domain.CustomHoliday) error {
	query := `
		INSERT INTO custom_holidays (id, date, name, description, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	createdBy := sql.NullInt64{Int64: h.CreatedBy, Valid: h.CreatedBy != 0}
	args := []any{h.ID, h.Date, h.Name, h.Description, createdBy, h.CreatedAt}
	if _, err := r.dbpool.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	return nil
}

// DeleteCustomHoliday 没有删除任何记录时返回 sql.ErrNoRows
func (r *Repository) DeleteCustomHoliday(ctx context.Context, id string) (*domain.CustomHoliday, error) {
	query := `
		DELETE FROM custom_holidays WHERE id = $1
		RETURNING to_char(date, 'YYYY-MM-DD'), name, description
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	h := &domain.CustomHoliday{ID: id}
	h.Category = domain.HolidayCustom
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(&h.Date, &h.Name, &h.Description); err != nil {
		return nil, err
	}

	return h, nil
}
