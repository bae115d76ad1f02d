package calendar

import (
	"testing"

	"github.com/qhrc-dev/team-calendar/backend/internal/domain"
)

func TestSummarize(t *testing.T) {
	records := []domain.ActivityRecord{
		{Date: "2025-04-02", ActivityID: "5", Type: domain.ActivityMH},
		{Date: "2025-03-10", ActivityID: "4", Type: domain.ActivityQHRC},
		{Date: "2025-03-10", ActivityID: "3", Type: domain.ActivitySI},
		{Date: "2025-02-01", ActivityID: "2", Type: domain.ActivityQHRC},
		{Date: "2025-01-05", ActivityID: "1", Type: domain.ActivityDI},
	}

	stats := Summarize(records, "2025-02-01", "2025-03-31")

	if stats.Total != 3 {
		t.Errorf("Expected 3 activities in range, got %d", stats.Total)
	}
	if stats.ByType[domain.ActivityQHRC] != 2 || stats.ByType[domain.ActivitySI] != 1 {
		t.Errorf("Unexpected per-type counts %v", stats.ByType)
	}
	if n, ok := stats.ByType[domain.ActivityMH]; !ok || n != 0 {
		t.Errorf("Expected every type to be reported, got %v", stats.ByType)
	}

	if len(stats.ByMonth) != 2 {
		t.Fatalf("Expected 2 months, got %v", stats.ByMonth)
	}
	if stats.ByMonth[0].Month != "2025-02" || stats.ByMonth[1].Month != "2025-03" {
		t.Errorf("Expected ascending months, got %v", stats.ByMonth)
	}
	if stats.ByMonth[1].Total != 2 || stats.ByMonth[1].ByType[domain.ActivitySI] != 1 {
		t.Errorf("Unexpected March counts %+v", stats.ByMonth[1])
	}
}

func TestSummarizeWithoutBounds(t *testing.T) {
	records := []domain.ActivityRecord{
		{Date: "2025-04-02", Type: domain.ActivityMH},
		{Date: "bad", Type: domain.ActivityMH},
		{Date: "2024-12-31", Type: domain.ActivityQHRC},
	}

	stats := Summarize(records, "", "")
	if stats.Total != 2 {
		t.Errorf("Expected 2 activities, got %d", stats.Total)
	}
	if len(stats.ByMonth) != 2 || stats.ByMonth[0].Month != "2024-12" {
		t.Errorf("Unexpected months %v", stats.ByMonth)
	}

	empty := Summarize(nil, "", "")
	if empty.Total != 0 || empty.ByMonth == nil {
		t.Errorf("Expected zero statistics with empty month list, got %+v", empty)
	}
}
