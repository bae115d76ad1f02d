package holiday

import (
	"slices"

	"github.com/qhrc-dev/team-calendar/backend/internal/domain"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

func mainland(date, name string) domain.Holiday {
	return domain.Holiday{Date: date, Name: name, Category: domain.HolidayMainland}
}

func regional(date, name string) domain.Holiday {
	return domain.Holiday{Date: date, Name: name, Category: domain.HolidayRegional}
}

func western(date, name string) domain.Holiday {
	return domain.Holiday{Date: date, Name: name, Category: domain.HolidayWestern}
}

func traditional(date, name string) domain.Holiday {
	return domain.Holiday{Date: date, Name: name, Category: domain.HolidayTraditional}
}

func adjustedWorkday(date, name string) domain.Holiday {
	return domain.Holiday{Date: date, Name: name, Category: domain.HolidayMainland, IsAdjustedWorkday: true}
}

var mainlandHolidays2025 = []domain.Holiday{
	mainland("2025-01-01", "元旦"),

	mainland("2025-01-28", "春节除夕"),
	mainland("2025-01-29", "春节初一"),
	mainland("2025-01-30", "春节初二"),
	mainland("2025-01-31", "春节初三"),
	mainland("2025-02-01", "春节初四"),
	mainland("2025-02-02", "春节初五"),
	mainland("2025-02-03", "春节初六"),

	mainland("2025-04-05", "清明节"),

	mainland("2025-05-01", "劳动节"),
	mainland("2025-05-02", "劳动节假期"),
	mainland("2025-05-03", "劳动节假期"),

	mainland("2025-05-31", "端午节"),

	mainland("2025-10-06", "中秋节"),

	mainland("2025-10-01", "国庆节"),
	mainland("2025-10-02", "国庆假期"),
	mainland("2025-10-03", "国庆假期"),
	mainland("2025-10-04", "国庆假期"),
	mainland("2025-10-05", "国庆假期"),
	mainland("2025-10-07", "国庆假期"),
	mainland("2025-10-08", "国庆假期"),
}

var regionalHolidays2025 = []domain.Holiday{
	regional("2025-01-01", "元旦"),
	regional("2025-01-29", "农历新年初一"),
	regional("2025-01-30", "农历新年初二"),
	regional("2025-01-31", "农历新年初三"),
	regional("2025-04-05", "清明节"),
	regional("2025-04-18", "耶稣受难节"),
	regional("2025-04-19", "耶稣受难节翌日"),
	regional("2025-04-21", "复活节星期一"),
	regional("2025-05-01", "劳动节"),
	regional("2025-05-13", "佛诞"),
	regional("2025-05-31", "端午节"),
	regional("2025-07-01", "香港特别行政区成立纪念日"),
	regional("2025-09-18", "中秋节翌日"),
	regional("2025-10-01", "国庆日"),
	regional("2025-10-07", "重阳节"),
	regional("2025-12-25", "圣诞节"),
	regional("2025-12-26", "节礼日"),
}

var westernHolidays2025 = []domain.Holiday{
	western("2025-01-01", "New Year's Day"),
	western("2025-02-14", "Valentine's Day"),
	western("2025-03-17", "St. Patrick's Day"),
	western("2025-04-20", "Easter Sunday"),
	western("2025-05-11", "Mother's Day"),
	western("2025-06-15", "Father's Day"),
	western("2025-07-04", "Independence Day (US)"),
	western("2025-10-31", "Halloween"),
	western("2025-11-27", "Thanksgiving (US)"),
	western("2025-12-24", "Christmas Eve"),
	western("2025-12-25", "Christmas Day"),
	western("2025-12-31", "New Year's Eve"),
}

var traditionalHolidays2025 = []domain.Holiday{
	traditional("2025-02-12", "元宵节"),
	traditional("2025-08-29", "七夕节"),
	traditional("2025-09-17", "中秋节"),
	traditional("2025-10-07", "重阳节"),
	traditional("2025-12-22", "冬至"),
}

var adjustedWorkdays2025 = []domain.Holiday{
	adjustedWorkday("2025-01-26", "春节调休"),
	adjustedWorkday("2025-02-08", "春节调休"),
	adjustedWorkday("2025-04-27", "劳动节调休"),
	adjustedWorkday("2025-09-28", "国庆节调休"),
	adjustedWorkday("2025-10-11", "国庆节调休"),
}

var mainlandHolidays2026 = []domain.Holiday{
	mainland("2026-01-01", "元旦"),
	mainland("2026-02-17", "春节除夕"),
	mainland("2026-02-18", "春节初一"),
	mainland("2026-02-19", "春节初二"),
	mainland("2026-02-20", "春节初三"),
	mainland("2026-02-21", "春节初四"),
	mainland("2026-02-22", "春节初五"),
	mainland("2026-02-23", "春节初六"),
	mainland("2026-04-05", "清明节"),
	mainland("2026-05-01", "劳动节"),
	mainland("2026-05-02", "劳动节假期"),
	mainland("2026-05-03", "劳动节假期"),
	mainland("2026-06-20", "端午节"),
	mainland("2026-09-27", "中秋节"),
	mainland("2026-10-01", "国庆节"),
	mainland("2026-10-02", "国庆假期"),
	mainland("2026-10-03", "国庆假期"),
	mainland("2026-10-04", "国庆假期"),
	mainland("2026-10-05", "国庆假期"),
	mainland("2026-10-06", "国庆假期"),
	mainland("2026-10-07", "国庆假期"),
	mainland("2026-10-08", "国庆假期"),
}

// 按年份组织的预设节假日数据
var curatedByYear = map[int][]domain.Holiday{
	2025: slices.Concat(
		mainlandHolidays2025,
		regionalHolidays2025,
		westernHolidays2025,
		traditionalHolidays2025,
		adjustedWorkdays2025,
	),
	2026: mainlandHolidays2026,
}

// 每年日期固定的西方节日，用于没有预设数据的年份
var fixedWesternHolidays = []*cal.Holiday{
	us.NewYear,
	{Name: "Valentine's Day", Type: cal.ObservanceOther, Month: 2, Day: 14, Func: cal.CalcDayOfMonth},
	{Name: "St. Patrick's Day", Type: cal.ObservanceOther, Month: 3, Day: 17, Func: cal.CalcDayOfMonth},
	us.IndependenceDay,
	{Name: "Halloween", Type: cal.ObservanceOther, Month: 10, Day: 31, Func: cal.CalcDayOfMonth},
	{Name: "Christmas Eve", Type: cal.ObservanceOther, Month: 12, Day: 24, Func: cal.CalcDayOfMonth},
	us.ChristmasDay,
	{Name: "New Year's Eve", Type: cal.ObservanceOther, Month: 12, Day: 31, Func: cal.CalcDayOfMonth},
}

// 英文名称沿用预设数据中的写法，而不是 rickar/cal 自带的名称
var fixedWesternNames = map[*cal.Holiday]string{
	us.NewYear:         "New Year's Day",
	us.IndependenceDay: "Independence Day (US)",
	us.ChristmasDay:    "Christmas Day",
}

func generateWesternHolidays(year int) []domain.Holiday {
	holidays := make([]domain.Holiday, 0, len(fixedWesternHolidays))
	for _, h := range fixedWesternHolidays {
		// 使用实际日期，不使用顺延后的观察日
		actual, _ := h.Calc(year)
		if actual.IsZero() {
			continue
		}

		name := h.Name
		if n, ok := fixedWesternNames[h]; ok {
			name = n
		}
		holidays = append(holidays, western(actual.Format(domain.DateLayout), name))
	}
	return holidays
}

// HasCuratedData 报告指定年份是否有预设的节假日数据
func HasCuratedData(year int) bool {
	return len(curatedByYear[year]) > 0
}

// HolidaysForYear 返回指定年份的固定节假日。没有预设数据的年份会生成一组基础的西方节日。
// 返回的切片由调用方持有。
func HolidaysForYear(year int) []domain.Holiday {
	if curated := curatedByYear[year]; len(curated) > 0 {
		return slices.Clone(curated)
	}

	return generateWesternHolidays(year)
}
