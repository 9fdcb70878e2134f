package db

import (
	"time"

	"zenhabit/pkg/streak"
)

// 习惯频率
const (
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
	FrequencyCustom = "custom"
)

// Habit 表示 habits 表，Completions 由 habit_completions 表聚合而来
type Habit struct {
	ID          int           `json:"id"`
	UserID      int           `json:"user_id"`
	Name        string        `json:"name"`
	Frequency   string        `json:"frequency"`
	TargetCount int           `json:"target_count"`
	Color       string        `json:"color"`
	IsActive    bool          `json:"is_active"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Completions streak.Ledger `json:"completions"`
}

// ValidFrequency reports whether f is one of the known frequencies.
func ValidFrequency(f string) bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyCustom:
		return true
	}
	return false
}
