package stats

import (
	"time"

	dbcontracts "zenhabit/contracts/db"
	"zenhabit/pkg/streak"
)

// YearDates lists every date key of the given calendar year.
func YearDates(year int) []string {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	var dates []string
	for d := start; d.Year() == year; d = d.AddDate(0, 0, 1) {
		dates = append(dates, streak.Key(d))
	}
	return dates
}

// WeekDates returns the Monday-first week containing today.
func WeekDates(today time.Time) []string {
	y, m, d := today.Date()
	offset := int(today.Weekday()) - 1
	if today.Weekday() == time.Sunday {
		offset = 6
	}
	monday := time.Date(y, m, d-offset, 0, 0, 0, 0, time.UTC)

	week := make([]string, 0, 7)
	for i := 0; i < 7; i++ {
		week = append(week, streak.Key(monday.AddDate(0, 0, i)))
	}
	return week
}

// Intensity is the share of habits done on date.
func Intensity(habits []dbcontracts.Habit, date string) float64 {
	if len(habits) == 0 {
		return 0
	}
	done := 0
	for _, h := range habits {
		if h.Completions[date] {
			done++
		}
	}
	return float64(done) / float64(len(habits))
}

// Level buckets an intensity into 0..4 heatmap levels.
func Level(intensity float64) int {
	switch {
	case intensity == 0:
		return 0
	case intensity < 0.25:
		return 1
	case intensity < 0.5:
		return 2
	case intensity < 0.75:
		return 3
	default:
		return 4
	}
}

// HeatmapCell 热力图单元格
type HeatmapCell struct {
	Date      string  `json:"date"`
	Intensity float64 `json:"intensity"`
	Level     int     `json:"level"`
}

// Heatmap computes one cell per day of year.
func Heatmap(habits []dbcontracts.Habit, year int) []HeatmapCell {
	dates := YearDates(year)
	cells := make([]HeatmapCell, 0, len(dates))
	for _, d := range dates {
		in := Intensity(habits, d)
		cells = append(cells, HeatmapCell{Date: d, Intensity: in, Level: Level(in)})
	}
	return cells
}

// DayProgress 某一天的完成情况
type DayProgress struct {
	Date      string `json:"date"`
	Completed int    `json:"completed"`
	Active    int    `json:"active"`
	Percent   int    `json:"percent"`
	Milestone string `json:"milestone,omitempty"`
	IsToday   bool   `json:"is_today"`
}

// ProgressOn counts completions on date against the active habit total.
// Completions of paused habits still count.
func ProgressOn(habits []dbcontracts.Habit, date string) DayProgress {
	p := DayProgress{Date: date}
	for _, h := range habits {
		if h.Completions[date] {
			p.Completed++
		}
		if h.IsActive {
			p.Active++
		}
	}
	if p.Active > 0 {
		p.Percent = Percent(float64(p.Completed) / float64(p.Active))
	}
	return p
}

// Week builds the progress strip for the current week, tagging milestone days.
func Week(habits []dbcontracts.Habit, milestones []dbcontracts.Milestone, today time.Time) []DayProgress {
	titles := make(map[string]string, len(milestones))
	for _, m := range milestones {
		if _, ok := titles[m.Date]; !ok {
			titles[m.Date] = m.Title
		}
	}
	todayKey := streak.Key(today)

	var week []DayProgress
	for _, d := range WeekDates(today) {
		p := ProgressOn(habits, d)
		p.Milestone = titles[d]
		p.IsToday = d == todayKey
		week = append(week, p)
	}
	return week
}
