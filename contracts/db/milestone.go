package db

import "time"

// 里程碑类型
const (
	MilestoneExam     = "exam"
	MilestoneDeadline = "deadline"
	MilestoneEvent    = "event"
)

// Milestone 表示 milestones 表：当天暂停所有习惯打卡
type Milestone struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Title     string    `json:"title"`
	Notes     string    `json:"notes"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidMilestoneType reports whether t is one of the known milestone types.
func ValidMilestoneType(t string) bool {
	switch t {
	case MilestoneExam, MilestoneDeadline, MilestoneEvent:
		return true
	}
	return false
}
