package calendar

import (
	"github.com/qhrc-dev/team-calendar/backend/internal/domain"
)

type MonthCount struct {
	Month  string                      `json:"month"` // YYYY-MM
	Total  int                         `json:"total"`
	ByType map[domain.ActivityType]int `json:"byType"`
}

type Statistics struct {
	Start   string                      `json:"start,omitempty"`
	End     string                      `json:"end,omitempty"`
	Total   int                         `json:"total"`
	ByType  map[domain.ActivityType]int `json:"byType"`
	ByMonth []MonthCount                `json:"byMonth"`
}

func newTypeCounts() map[domain.ActivityType]int {
	counts := make(map[domain.ActivityType]int, len(domain.ActivityTypes))
	for _, t := range domain.ActivityTypes {
		counts[t] = 0
	}
	return counts
}

// Summarize 统计 [start, end] 范围内的活动，start 或 end 为空表示不限制。
// records 需要按日期倒序排列，ByMonth 按月份升序输出。
func Summarize(records []domain.ActivityRecord, start, end string) Statistics {
	stats := Statistics{
		Start:   start,
		End:     end,
		ByType:  newTypeCounts(),
		ByMonth: []MonthCount{},
	}

	months := map[string]*MonthCount{}
	order := []string{}
	for _, r := range records {
		if len(r.Date) < len("2006-01") {
			continue
		}
		if (start != "" && r.Date < start) || (end != "" && r.Date > end) {
			continue
		}

		stats.Total++
		stats.ByType[r.Type]++

		month := r.Date[:7]
		mc, ok := months[month]
		if !ok {
			mc = &MonthCount{Month: month, ByType: newTypeCounts()}
			months[month] = mc
			order = append(order, month)
		}
		mc.Total++
		mc.ByType[r.Type]++
	}

	for i := len(order) - 1; i >= 0; i-- {
		stats.ByMonth = append(stats.ByMonth, *months[order[i]])
	}

	return stats
}
