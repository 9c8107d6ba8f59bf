package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"privacy-chatter/internal/storage"
)

// DailyStats summarises one day of interactions.
type DailyStats struct {
	Date          string                  `json:"date"`
	TotalMessages int                     `json:"total_messages"`
	UniqueUsers   int                     `json:"unique_users"`
	Outcomes      map[storage.Outcome]int `json:"outcomes"`
	// AvgConfidence is the mean topic-check score over turns that had one.
	AvgConfidence float64              `json:"avg_confidence"`
	UserStats     map[string]UserStats `json:"user_stats"`
}

type UserStats struct {
	UserID   string `json:"user_id"`
	Messages int    `json:"messages"`
	Rejected int    `json:"rejected"`
}

// AnalyzeDailyLogs aggregates events that happened on targetDate (in its location).
func AnalyzeDailyLogs(events []storage.Event, targetDate time.Time) *DailyStats {
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	stats := &DailyStats{
		Date:      startOfDay.Format(time.DateOnly),
		Outcomes:  make(map[storage.Outcome]int),
		UserStats: make(map[string]UserStats),
	}

	var confSum, confN int
	for _, event := range events {
		if event.Timestamp.Before(startOfDay) || !event.Timestamp.Before(endOfDay) {
			continue
		}
		if event.UserMessage == "" {
			continue
		}
		stats.TotalMessages++
		stats.Outcomes[event.Outcome]++
		if event.Confidence != nil {
			confSum += *event.Confidence
			confN++
		}

		us := stats.UserStats[event.UserID]
		us.UserID = event.UserID
		us.Messages++
		if event.Outcome == storage.OutcomeRejected {
			us.Rejected++
		}
		stats.UserStats[event.UserID] = us
	}

	stats.UniqueUsers = len(stats.UserStats)
	if confN > 0 {
		stats.AvgConfidence = float64(confSum) / float64(confN)
	}
	return stats
}

// GenerateReportSummary renders the stats as a short plain-text report.
func (ds *DailyStats) GenerateReportSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Statystyki asystenta za %s:\n\n", ds.Date)
	fmt.Fprintf(&b, "- Wszystkich wiadomości: %d\n", ds.TotalMessages)
	fmt.Fprintf(&b, "- Unikalnych użytkowników: %d\n", ds.UniqueUsers)
	if ds.AvgConfidence > 0 {
		fmt.Fprintf(&b, "- Średnia pewność filtra: %.1f\n", ds.AvgConfidence)
	}

	if len(ds.Outcomes) > 0 {
		b.WriteString("\nWyniki:\n")
		keys := make([]string, 0, len(ds.Outcomes))
		for o := range ds.Outcomes {
			keys = append(keys, string(o))
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %d\n", k, ds.Outcomes[storage.Outcome(k)])
		}
	}
	return b.String()
}

// ToJSON serialises the stats for detailed inspection.
func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// LoadDailyStats reads the events of the given day and aggregates them.
func LoadDailyStats(rec storage.Recorder, day time.Time) (*DailyStats, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	events, err := rec.LoadRange(start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("load interactions: %w", err)
	}
	return AnalyzeDailyLogs(events, day), nil
}
