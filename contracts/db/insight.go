package db

import "time"

// Insight 表示 insights 表，每个用户只保留最新一条
type Insight struct {
	ID             int       `json:"id"`
	UserID         int       `json:"user_id"`
	Reflection     string    `json:"reflection"`
	ImprovementTip string    `json:"improvement_tip"`
	Motivation     string    `json:"motivation"`
	Fallback       bool      `json:"fallback"`
	CreatedAt      time.Time `json:"created_at"`
}
