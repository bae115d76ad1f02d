package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/qhrc-dev/team-calendar/backend/internal/domain"
	"github.com/qhrc-dev/team-calendar/backend/internal/holiday"
	"github.com/spf13/cobra"
)

var holidaysCmd = &cobra.Command{
	Use:   "holidays",
	Short: "查询某天、某月或某年的节假日",
	Example: `  calendarctl holidays --date 2025-10-01
  calendarctl holidays --year 2025 --month 2
  calendarctl holidays --year 2030 --with-custom`,
	RunE: runHolidays,
}

func init() {
	rootCmd.AddCommand(holidaysCmd)

	holidaysCmd.Flags().String("date", "", "单个日期 (YYYY-MM-DD)")
	holidaysCmd.Flags().Int("year", time.Now().Year(), "年份")
	holidaysCmd.Flags().Int("month", 0, "月份 (1-12)，为 0 时输出整年")
	holidaysCmd.Flags().Bool("with-custom", false, "同时从数据库加载自定义节假日")
}

func runHolidays(cmd *cobra.Command, args []string) error {
	date, _ := cmd.Flags().GetString("date")
	year, _ := cmd.Flags().GetInt("year")
	month, _ := cmd.Flags().GetInt("month")
	withCustom, _ := cmd.Flags().GetBool("with-custom")

	if month < 0 || month > 12 {
		return fmt.Errorf("月份必须在 1 到 12 之间")
	}

	var source holiday.CustomHolidaySource
	if withCustom {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()
		source = e.repo
	}

	m := holiday.NewManager(source)
	if err := m.RefreshCustomHolidays(cmd.Context(), false); err != nil {
		return fmt.Errorf("无法加载自定义节假日: %w", err)
	}

	var dates []string
	switch {
	case date != "":
		d, ok := domain.CanonicalDate(date)
		if !ok {
			return fmt.Errorf("日期格式不正确: %s", date)
		}
		dates = []string{d}
	default:
		dates = holidayDates(m, year, month)
	}

	return writeHolidays(cmd.OutOrStdout(), m, dates)
}

// holidayDates 返回指定年月中有节假日的日期，按日期升序
func holidayDates(m *holiday.Manager, year, month int) []string {
	months := []int{month}
	if month == 0 {
		months = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	}

	var dates []string
	for _, mo := range months {
		for d := range m.MonthHolidays(year, mo) {
			dates = append(dates, d)
		}
	}
	slices.Sort(dates)
	return dates
}

func writeHolidays(w io.Writer, m *holiday.Manager, dates []string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "日期\t类型\t名称\t调休")

	for _, date := range dates {
		holidays := m.GetHolidays(date)
		if len(holidays) == 0 {
			fmt.Fprintf(tw, "%s\t-\t-\t\n", date)
			continue
		}
		for _, h := range holidays {
			workday := ""
			if h.IsAdjustedWorkday {
				workday = "上班"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", date, h.Category, strings.TrimSpace(h.Name), workday)
		}
	}

	return tw.Flush()
}
