// Package holiday answers "which holidays apply on date D" by merging the
// code-defined catalog with custom holidays mirrored from the database.
package holiday

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qhrc-dev/team-calendar/backend/internal/domain"
)

// CustomHolidaySource 提供持久化的自定义节假日
type CustomHolidaySource interface {
	ListCustomHolidays(ctx context.Context) ([]*domain.CustomHoliday, error)
}

type Manager struct {
	mu            sync.RWMutex
	holidays      map[string][]domain.Holiday
	custom        map[string][]domain.CustomHoliday
	loadedYears   map[int]struct{}
	customLoaded  bool
	source        CustomHolidaySource
	now           func() time.Time
	catalogByYear func(year int) []domain.Holiday
}

// NewManager 创建节假日管理器，并预加载今年和明年的数据。source 可以为 nil，此时不会加载自定义节假日。
func NewManager(source CustomHolidaySource) *Manager {
	m := &Manager{
		holidays:      make(map[string][]domain.Holiday),
		custom:        make(map[string][]domain.CustomHoliday),
		loadedYears:   make(map[int]struct{}),
		source:        source,
		now:           time.Now,
		catalogByYear: HolidaysForYear,
	}

	currentYear := m.now().Year()
	m.mu.Lock()
	m.loadYearLocked(currentYear)
	m.loadYearLocked(currentYear + 1)
	m.mu.Unlock()

	return m
}

func (m *Manager) loadYearLocked(year int) {
	if _, ok := m.loadedYears[year]; ok {
		return
	}

	for _, h := range m.catalogByYear(year) {
		m.holidays[h.Date] = append(m.holidays[h.Date], h)
	}
	m.loadedYears[year] = struct{}{}
}

func (m *Manager) ensureYearLoaded(year int) {
	m.mu.RLock()
	_, ok := m.loadedYears[year]
	m.mu.RUnlock()
	if ok {
		return
	}

	m.mu.Lock()
	m.loadYearLocked(year)
	m.mu.Unlock()
}

// LoadedYears 返回已经加载到内存中的年份，按升序排列
func (m *Manager) LoadedYears() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	years := make([]int, 0, len(m.loadedYears))
	for y := range m.loadedYears {
		years = append(years, y)
	}
	slices.Sort(years)
	return years
}

// GetHolidays 返回指定日期（YYYY-MM-DD）的全部节假日：先是系统节假日，再是自定义节假日
func (m *Manager) GetHolidays(date string) []domain.Holiday {
	t, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return nil
	}
	m.ensureYearLoaded(t.Year())

	m.mu.RLock()
	defer m.mu.RUnlock()

	system := m.holidays[date]
	custom := m.custom[date]
	if len(system) == 0 && len(custom) == 0 {
		return nil
	}

	result := make([]domain.Holiday, 0, len(system)+len(custom))
	result = append(result, system...)
	for _, c := range custom {
		result = append(result, c.Holiday)
	}
	return result
}

func (m *Manager) IsHoliday(date string) bool {
	for _, h := range m.GetHolidays(date) {
		if !h.IsAdjustedWorkday {
			return true
		}
	}
	return false
}

func (m *Manager) IsAdjustedWorkday(date string) bool {
	for _, h := range m.GetHolidays(date) {
		if h.IsAdjustedWorkday {
			return true
		}
	}
	return false
}

// HolidayCategories 返回去重后的节假日类型，保持首次出现的顺序
func (m *Manager) HolidayCategories(date string) []domain.HolidayCategory {
	var categories []domain.HolidayCategory
	for _, h := range m.GetHolidays(date) {
		if !slices.Contains(categories, h.Category) {
			categories = append(categories, h.Category)
		}
	}
	return categories
}

// HolidayNames 返回节假日名称，不包括调休工作日
func (m *Manager) HolidayNames(date string) []string {
	var names []string
	for _, h := range m.GetHolidays(date) {
		if !h.IsAdjustedWorkday {
			names = append(names, h.Name)
		}
	}
	return names
}

// MonthHolidays 返回某月中至少有一个节假日的日期
func (m *Manager) MonthHolidays(year, month int) map[string][]domain.Holiday {
	m.ensureYearLoaded(year)

	result := make(map[string][]domain.Holiday)
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	for d := start; d.Month() == start.Month(); d = d.AddDate(0, 0, 1) {
		date := d.Format(domain.DateLayout)
		if holidays := m.GetHolidays(date); len(holidays) > 0 {
			result[date] = holidays
		}
	}
	return result
}

// NewCustomHoliday 生成带有新 ID 和创建时间的自定义节假日，但不加入管理器
func NewCustomHoliday(in domain.NewCustomHoliday, now time.Time) domain.CustomHoliday {
	return domain.CustomHoliday{
		Holiday: domain.Holiday{
			Date:        in.Date,
			Name:        in.Name,
			Category:    domain.HolidayCustom,
			Description: in.Description,
		},
		ID:        uuid.NewString(),
		CreatedBy: in.CreatedBy,
		CreatedAt: now,
	}
}

// AddCustomHoliday 只修改内存中的数据，持久化由调用方负责
func (m *Manager) AddCustomHoliday(in domain.NewCustomHoliday) domain.CustomHoliday {
	ch := NewCustomHoliday(in, m.now())
	m.PutCustomHoliday(ch)
	return ch
}

// PutCustomHoliday 把已经持久化的自定义节假日放入内存，ID 已存在时不重复添加
func (m *Manager) PutCustomHoliday(ch domain.CustomHoliday) {
	ch.Category = domain.HolidayCustom

	m.mu.Lock()
	defer m.mu.Unlock()

	if slices.ContainsFunc(m.custom[ch.Date], func(h domain.CustomHoliday) bool { return h.ID == ch.ID }) {
		return
	}
	m.custom[ch.Date] = append(m.custom[ch.Date], ch)
}

func (m *Manager) RemoveCustomHoliday(date, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.custom[date]
	filtered := slices.DeleteFunc(slices.Clone(existing), func(h domain.CustomHoliday) bool {
		return h.ID == id
	})
	if len(filtered) == len(existing) {
		return false
	}

	if len(filtered) == 0 {
		delete(m.custom, date)
	} else {
		m.custom[date] = filtered
	}
	return true
}

// CustomHolidays 返回所有自定义节假日，按日期排序
func (m *Manager) CustomHolidays() []domain.CustomHoliday {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]domain.CustomHoliday, 0)
	for _, holidays := range m.custom {
		all = append(all, holidays...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Date != all[j].Date {
			return all[i].Date < all[j].Date
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	return all
}

// RefreshCustomHolidays 从数据源重新加载自定义节假日。
// 已加载且 force 为 false 时不做任何事；加载失败时保留原有数据并返回错误。
func (m *Manager) RefreshCustomHolidays(ctx context.Context, force bool) error {
	m.mu.RLock()
	loaded := m.customLoaded
	m.mu.RUnlock()
	if (loaded && !force) || m.source == nil {
		return nil
	}

	holidays, err := m.source.ListCustomHolidays(ctx)
	if err != nil {
		return err
	}

	custom := make(map[string][]domain.CustomHoliday)
	for _, h := range holidays {
		ch := *h
		ch.Category = domain.HolidayCustom
		custom[ch.Date] = append(custom[ch.Date], ch)
	}

	m.mu.Lock()
	m.custom = custom
	m.customLoaded = true
	m.mu.Unlock()

	return nil
}
