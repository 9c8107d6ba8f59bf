package analytics

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"privacy-chatter/internal/storage"
)

func intPtr(v int) *int { return &v }

func TestAnalyzeDailyLogs(t *testing.T) {
	testDate := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	events := []storage.Event{
		{Timestamp: testDate.Add(2 * time.Hour), UserID: "u1", UserMessage: "Cześć", AssistantResponse: "Cześć!", Outcome: storage.OutcomeGreeting},
		{Timestamp: testDate.Add(4 * time.Hour), UserID: "u1", UserMessage: "Co to jest RODO?", AssistantResponse: "RODO to...", Outcome: storage.OutcomeAnswered, Confidence: intPtr(90)},
		{Timestamp: testDate.Add(6 * time.Hour), UserID: "u2", UserMessage: "Pogoda?", AssistantResponse: "Prompt spoza zakresu aplikacji.", Outcome: storage.OutcomeRejected, Confidence: intPtr(10)},
		// next day, not counted
		{Timestamp: testDate.AddDate(0, 0, 1), UserID: "u3", UserMessage: "Jutro", AssistantResponse: "x", Outcome: storage.OutcomeAnswered},
		// no user message, not counted
		{Timestamp: testDate.Add(8 * time.Hour), UserID: "u1", AssistantResponse: "[system]"},
	}

	stats := AnalyzeDailyLogs(events, testDate.Add(13*time.Hour))

	if stats.Date != "2024-01-15" {
		t.Errorf("Expected date '2024-01-15', got '%s'", stats.Date)
	}
	if stats.TotalMessages != 3 {
		t.Errorf("Expected 3 total messages, got %d", stats.TotalMessages)
	}
	if stats.UniqueUsers != 2 {
		t.Errorf("Expected 2 unique users, got %d", stats.UniqueUsers)
	}
	if stats.AvgConfidence != 50 {
		t.Errorf("Expected average confidence 50, got %v", stats.AvgConfidence)
	}
	for outcome, want := range map[storage.Outcome]int{
		storage.OutcomeGreeting: 1,
		storage.OutcomeAnswered: 1,
		storage.OutcomeRejected: 1,
	} {
		if got := stats.Outcomes[outcome]; got != want {
			t.Errorf("outcome %s: expected %d, got %d", outcome, want, got)
		}
	}
	if u := stats.UserStats["u1"]; u.Messages != 2 || u.Rejected != 0 {
		t.Errorf("unexpected u1 stats: %+v", u)
	}
	if u := stats.UserStats["u2"]; u.Messages != 1 || u.Rejected != 1 {
		t.Errorf("unexpected u2 stats: %+v", u)
	}
}

func TestAnalyzeDailyLogsEmpty(t *testing.T) {
	stats := AnalyzeDailyLogs(nil, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	if stats.TotalMessages != 0 || stats.UniqueUsers != 0 || stats.AvgConfidence != 0 {
		t.Errorf("expected zero stats, got %+v", stats)
	}
	if strings.Contains(stats.GenerateReportSummary(), "Wyniki") {
		t.Errorf("empty report should not list outcomes")
	}
}

func TestGenerateReportSummary(t *testing.T) {
	stats := &DailyStats{
		Date:          "2024-01-15",
		TotalMessages: 4,
		UniqueUsers:   2,
		AvgConfidence: 72.5,
		Outcomes:      map[storage.Outcome]int{storage.OutcomeAnswered: 3, storage.OutcomeRejected: 1},
	}
	summary := stats.GenerateReportSummary()
	for _, want := range []string{"2024-01-15", "Wszystkich wiadomości: 4", "Unikalnych użytkowników: 2", "72.5", "answered: 3", "rejected: 1"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
	// outcomes are listed in stable order
	if strings.Index(summary, "answered") > strings.Index(summary, "rejected") {
		t.Errorf("outcomes not sorted:\n%s", summary)
	}
}

func TestToJSON(t *testing.T) {
	stats := &DailyStats{Date: "2024-01-15", Outcomes: map[storage.Outcome]int{storage.OutcomeFailed: 2}}
	out, err := stats.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["date"] != "2024-01-15" {
		t.Errorf("unexpected date: %v", decoded["date"])
	}
}

func TestLoadDailyStats(t *testing.T) {
	rec := storage.NewMemoryRecorder()
	day := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	_ = rec.AppendInteraction(storage.Event{Timestamp: day, UserID: "a", UserMessage: "hej", Outcome: storage.OutcomeGreeting})
	_ = rec.AppendInteraction(storage.Event{Timestamp: day.AddDate(0, 0, -1), UserID: "b", UserMessage: "hej", Outcome: storage.OutcomeGreeting})

	stats, err := LoadDailyStats(rec, day)
	if err != nil {
		t.Fatalf("LoadDailyStats: %v", err)
	}
	if stats.TotalMessages != 1 || stats.UniqueUsers != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
