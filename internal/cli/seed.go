package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/qhrc-dev/team-calendar/backend/internal/utils"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "生成随机用户和活动，用于开发环境",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().Int("users", 0, "要插入的用户数量")
	seedCmd.Flags().Int("activities", 0, "要插入的活动数量")
	seedCmd.Flags().String("password", "password", "随机用户的密码")
	seedCmd.Flags().String("email-domain", "example.com", "随机用户的邮箱域名")
	seedCmd.Flags().Int("days", 90, "活动分布在今天起的多少天内")
}

func runSeed(cmd *cobra.Command, args []string) error {
	users, _ := cmd.Flags().GetInt("users")
	activities, _ := cmd.Flags().GetInt("activities")
	password, _ := cmd.Flags().GetString("password")
	emailDomain, _ := cmd.Flags().GetString("email-domain")
	days, _ := cmd.Flags().GetInt("days")

	if users < 0 || activities < 0 || days <= 0 {
		return fmt.Errorf("请输入合法的数量")
	}

	e, err := openEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	created := 0
	for i := 0; i < users; i++ {
		user, err := utils.GenerateRandomUser(password, emailDomain)
		if err != nil {
			return err
		}

		if err := e.repo.CreateUser(cmd.Context(), user); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) {
				// 随机用户名可能重复，跳过即可
				slog.Debug("跳过重复的用户", "username", user.Username, "constraint", pgErr.ConstraintName)
				continue
			}
			return err
		}
		created++
	}
	if users > 0 {
		slog.Info("已插入随机用户", "count", created, "requested", users)
	}

	from := time.Now()
	for i := 0; i < activities; i++ {
		date, activity := utils.GenerateRandomActivity(from, days)
		if _, err := e.store.AddActivity(cmd.Context(), date, activity); err != nil {
			return err
		}
	}
	if activities > 0 {
		slog.Info("已插入随机活动", "count", activities)
	}

	return nil
}
