package repository

import (
	"context"
	"database/sql"

	"github.com/qhrc-dev/team-calendar/backend/internal/domain"
)

// CreateOperationLog 写入一条操作日志。操作者已被删除时 user_id 置空后重新写入，保留用户名
func (r *Repository) CreateOperationLog(ctx context.Context, log *domain.OperationLog) error {
	err := r.insertOperationLog(ctx, log)
	if log.UserID != 0 && isForeignKeyViolation(err, "operation_logs_user_id_fkey") {
		log.UserID = 0
		err = r.insertOperationLog(ctx, log)
	}
	return err
}

func (r *Repository) insertOperationLog(ctx context.Context, log *domain.OperationLog) error {
	query := `
		INSERT INTO operation_logs (user_id, username, operation_type, details, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))
		RETURNING id, created_at
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	userID := sql.NullInt64{Int64: log.UserID, Valid: log.UserID != 0}
	createdAt := sql.NullTime{Time: log.CreatedAt, Valid: !log.CreatedAt.IsZero()}
	args := []any{userID, log.Username, log.OperationType, log.Details, createdAt}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&log.ID, &log.CreatedAt); err != nil {
		return err
	}

	return nil
}

// GetOperationLogs 按时间倒序分页返回操作日志以及总条数，page 从 1 开始
func (r *Repository) GetOperationLogs(ctx context.Context, page, pageSize int) ([]*domain.OperationLog, int, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	total := 0
	if err := r.dbpool.QueryRowContext(ctx, `SELECT COUNT(*) FROM operation_logs`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, user_id, username, operation_type, details, created_at
		FROM operation_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.dbpool.QueryContext(ctx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	logs := make([]*domain.OperationLog, 0)
	for rows.Next() {
		log := &domain.OperationLog{}
		var userID sql.NullInt64
		dst := []any{&log.ID, &userID, &log.Username, &log.OperationType, &log.Details, &log.CreatedAt}
		if err := rows.Scan(dst...); err != nil {
			return nil, 0, err
		}
		log.UserID = userID.Int64
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
