package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/qhrc-dev/team-calendar/backend/internal/config"
	"github.com/qhrc-dev/team-calendar/backend/internal/domain"
	"github.com/qhrc-dev/team-calendar/backend/internal/repository"
	amqp "github.com/rabbitmq/amqp091-go"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type operationLogWriter interface {
	CreateOperationLog(ctx context.Context, log *domain.OperationLog) error
}

type outcome int

const (
	outcomeAck outcome = iota
	outcomeDrop
	outcomeRetry
)

// handleOperationLog 写入一条操作日志并决定如何确认消息。
// 无法解析的消息和违反约束的记录重试也不会成功，直接丢弃。
func handleOperationLog(ctx context.Context, writer operationLogWriter, body []byte) outcome {
	log := domain.OperationLog{}
	if err := json.Unmarshal(body, &log); err != nil {
		slog.Error("操作日志反序列化失败", slog.String("error", err.Error()))
		return outcomeDrop
	}

	if err := writer.CreateOperationLog(ctx, &log); err != nil {
		if repository.IsPermanentError(err) {
			slog.Error("操作日志无法写入，已丢弃", slog.String("error", err.Error()), "username", log.Username, "operation", log.OperationType)
			return outcomeDrop
		}
		slog.Error("无法写入操作日志", slog.String("error", err.Error()))
		return outcomeRetry
	}

	slog.Info("已记录操作日志", "id", log.ID, "username", log.Username, "operation", log.OperationType)
	return outcomeAck
}

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 读取配置文件
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 连接数据库
	 **********************************************/
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer pingCancel()
	if err := dbpool.PingContext(pingCtx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	/**********************************************
	 * 连接 RabbitMQ
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 RabbitMQ", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法创建通道", slog.String("error", err.Error()))
		return
	}
	defer ch.Close()

	q, err := ch.QueueDeclare("operation_log_queue", true, false, false, false, nil)
	if err != nil {
		logger.Error("无法声明队列", slog.String("error", err.Error()))
		return
	}

	// 每次只取一条，写入数据库后再确认
	if err := ch.Qos(1, 0, false); err != nil {
		logger.Error("无法设置预取数量", slog.String("error", err.Error()))
		return
	}

	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		logger.Error("无法消费消息", slog.String("error", err.Error()))
		return
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Error("消息通道已关闭")
					return
				}

				switch handleOperationLog(ctx, repo, msg.Body) {
				case outcomeAck:
					_ = msg.Ack(false)
				case outcomeDrop:
					_ = msg.Nack(false, false)
				case outcomeRetry:
					_ = msg.Nack(false, true)
					// 数据库暂时不可用时避免立即重试
					time.Sleep(time.Second)
				}
			}
		}
	}()

	logger.Info("等待操作日志...（按 CTRL+C 退出）")
	<-sigChan

	slog.Info("正在关闭 oplog worker...")
	cancel()
	wg.Wait()
	slog.Info("oplog worker 已成功关闭")
}
