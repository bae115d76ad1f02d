// Package cli implements calendarctl, the administration tool for the team
// calendar database.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/qhrc-dev/team-calendar/backend/internal/cache"
	"github.com/qhrc-dev/team-calendar/backend/internal/calendar"
	"github.com/qhrc-dev/team-calendar/backend/internal/config"
	"github.com/qhrc-dev/team-calendar/backend/internal/domain"
	"github.com/qhrc-dev/team-calendar/backend/internal/repository"
	"github.com/spf13/cobra"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "calendarctl",
	Short: "团队日历管理工具",
	Long:  `直接操作团队日历数据库的命令行工具：查询节假日、导入导出共享日历、生成测试数据以及创建用户。`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出调试日志")
}

// env 是需要访问数据库的子命令共用的依赖
type env struct {
	cfg   *config.Config
	db    *sql.DB
	repo  *repository.Repository
	store *calendar.Store
}

func (e *env) Close() {
	e.db.Close()
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("无法加载配置: %w", err)
	}

	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("无法创建数据库连接池: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("无法连接到数据库: %w", err)
	}

	repo := repository.NewRepository(cfg, db)
	store := calendar.NewStore(repo, cache.New[domain.CalendarDocument](), cfg.Calendar.SharedID, time.Duration(cfg.Calendar.CacheTTL)*time.Second)

	return &env{cfg: cfg, db: db, repo: repo, store: store}, nil
}
