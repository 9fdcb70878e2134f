package mq

import "time"

// Routing keys
const (
	RoutingHabitCreated      = "habit.created"
	RoutingCompletionToggled = "habit.completion.toggled"
	RoutingMilestoneCreated  = "milestone.created"
	RoutingInsightRequested  = "insight.requested"
)

type HabitCreatedPayload struct {
	HabitID   int    `json:"habit_id"`
	UserID    int    `json:"user_id"`
	Name      string `json:"name"`
	Frequency string `json:"frequency"`
	TraceID   string `json:"trace_id,omitempty"`
}

type CompletionToggledPayload struct {
	HabitID int    `json:"habit_id"`
	UserID  int    `json:"user_id"`
	Date    string `json:"date"` // YYYY-MM-DD
	Done    bool   `json:"done"`
	Streak  int    `json:"streak"`
	TraceID string `json:"trace_id,omitempty"`
}

type MilestoneCreatedPayload struct {
	MilestoneID int    `json:"milestone_id"`
	UserID      int    `json:"user_id"`
	Date        string `json:"date"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	TraceID     string `json:"trace_id,omitempty"`
}

// InsightRequestedPayload insight-worker 消费，RequestID 用于去重
type InsightRequestedPayload struct {
	RequestID   string    `json:"request_id"`
	UserID      int       `json:"user_id"`
	RequestedAt time.Time `json:"requested_at"`
	TraceID     string    `json:"trace_id,omitempty"`
}
