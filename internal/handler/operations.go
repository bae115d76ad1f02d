package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/qhrc-dev/team-calendar/backend/internal/domain"
)

const (
	EmailQueue        = "email_queue"
	OperationLogQueue = "operation_log_queue"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// publishJSON 将 v 序列化后发送到指定队列
func (h *Handler) publishJSON(ctx context.Context, queue string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	return h.publisher.PublishWithContext(
		ctx,
		"",
		queue,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func (h *Handler) sendMail(ctx context.Context, msg domain.MailMessage) error {
	return h.publishJSON(ctx, EmailQueue, msg)
}

// logOperation 记录操作日志，失败只打日志，不影响请求本身
func (h *Handler) logOperation(r *http.Request, id domain.Identity, op domain.OperationType, details string) {
	log := domain.OperationLog{
		UserID:        id.UserID,
		Username:      id.Username,
		OperationType: op,
		Details:       details,
		CreatedAt:     time.Now(),
	}

	// 请求可能已经结束，不能沿用请求的 context
	if err := h.publishJSON(context.WithoutCancel(r.Context()), OperationLogQueue, log); err != nil {
		slog.Warn("无法记录操作日志", "operation", op, "username", id.Username, "error", err)
	}
}

func parsePagination(r *http.Request) (int, int, bool) {
	page, pageSize := 1, defaultPageSize

	if s := r.URL.Query().Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return 0, 0, false
		}
		page = n
	}
	if s := r.URL.Query().Get("pageSize"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return 0, 0, false
		}
		pageSize = min(n, maxPageSize)
	}

	return page, pageSize, true
}

func (h *Handler) GetOperationLogs(w http.ResponseWriter, r *http.Request) {
	page, pageSize, ok := parsePagination(r)
	if !ok {
		h.errorResponse(w, r, "分页参数无效")
		return
	}

	logs, total, err := h.repository.GetOperationLogs(r.Context(), page, pageSize)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取操作日志成功", map[string]any{
		"logs":     logs,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}
