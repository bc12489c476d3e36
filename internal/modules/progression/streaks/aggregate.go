// Package streaks folds activity events from every source into day-level
// streak statistics. Everything here is pure: callers pass "now".
package streaks

import (
	"sort"
	"time"

	types "github.com/yungbote/progression-backend/internal/domain"
)

const (
	DateLayout   = "2006-01-02"
	RecentWindow = 7
)

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type StreakData struct {
	CurrentStreak   int        `json:"current_streak"`
	LongestStreak   int        `json:"longest_streak"`
	TotalActiveDays int        `json:"total_active_days"`
	RecentDays      []DayCount `json:"recent_days"`
}

// DayOf truncates t to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Aggregate merges events from any number of sources. Two events on the same
// UTC day count as one active day regardless of source.
func Aggregate(events []types.ActivityEvent, now time.Time) StreakData {
	perDay := map[string]int{}
	for _, e := range events {
		if e.Timestamp.IsZero() {
			continue
		}
		perDay[DayOf(e.Timestamp).Format(DateLayout)]++
	}

	today := DayOf(now)
	out := StreakData{
		TotalActiveDays: len(perDay),
		CurrentStreak:   currentStreak(perDay, today),
		RecentDays:      recentDays(perDay, today),
	}
	out.LongestStreak = longestStreak(perDay)
	if out.LongestStreak < out.CurrentStreak {
		out.LongestStreak = out.CurrentStreak
	}
	return out
}

// currentStreak is anchored at today, or yesterday when today has no
// activity yet. Anything older means the streak is already broken.
func currentStreak(perDay map[string]int, today time.Time) int {
	day := today
	if !active(perDay, day) {
		day = day.AddDate(0, 0, -1)
		if !active(perDay, day) {
			return 0
		}
	}
	n := 0
	for active(perDay, day) {
		n++
		day = day.AddDate(0, 0, -1)
	}
	return n
}

func longestStreak(perDay map[string]int) int {
	if len(perDay) == 0 {
		return 0
	}
	days := make([]time.Time, 0, len(perDay))
	for k := range perDay {
		d, err := time.Parse(DateLayout, k)
		if err != nil {
			continue
		}
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i-1].AddDate(0, 0, -1).Equal(days[i]) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

func recentDays(perDay map[string]int, today time.Time) []DayCount {
	out := make([]DayCount, 0, RecentWindow)
	for i := RecentWindow - 1; i >= 0; i-- {
		key := today.AddDate(0, 0, -i).Format(DateLayout)
		out = append(out, DayCount{Date: key, Count: perDay[key]})
	}
	return out
}

func active(perDay map[string]int, day time.Time) bool {
	return perDay[day.Format(DateLayout)] > 0
}
