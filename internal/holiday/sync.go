package holiday

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const CustomHolidaysChannel = "team_calendar:custom_holidays_changed"

// Notifier 通过 redis 的发布订阅通知其他进程刷新自定义节假日
type Notifier struct {
	rdb            *redis.Client
	instanceID     string
	refreshTimeout time.Duration
}

func NewNotifier(rdb *redis.Client, refreshTimeout time.Duration) *Notifier {
	return &Notifier{
		rdb:            rdb,
		instanceID:     uuid.NewString(),
		refreshTimeout: refreshTimeout,
	}
}

func (n *Notifier) NotifyChanged(ctx context.Context) error {
	return n.rdb.Publish(ctx, CustomHolidaysChannel, n.instanceID).Err()
}

// Watch 阻塞直到 ctx 结束，每收到一条其他进程发出的通知就强制刷新 m 中的自定义节假日
func (n *Notifier) Watch(ctx context.Context, m *Manager) {
	sub := n.rdb.Subscribe(ctx, CustomHolidaysChannel)
	defer sub.Close()

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			// 本进程发出的通知，内存中的数据已经是最新的
			if msg.Payload == n.instanceID {
				continue
			}

			refreshCtx, cancel := context.WithTimeout(ctx, n.refreshTimeout)
			if err := m.RefreshCustomHolidays(refreshCtx, true); err != nil {
				slog.Error("刷新自定义节假日失败", "error", err)
			} else {
				slog.Info("已刷新自定义节假日", "from", msg.Payload)
			}
			cancel()
		}
	}
}
