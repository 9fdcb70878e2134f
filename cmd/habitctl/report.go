package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	dbcontracts "zenhabit/contracts/db"
	"zenhabit/pkg/stats"
	"zenhabit/pkg/streak"
)

type reportRow struct {
	HabitID     int    `json:"habit_id"`
	Name        string `json:"name"`
	Active      bool   `json:"active"`
	Streak      int    `json:"streak"`
	DoneCount   int    `json:"done_count"`
	Consistency int    `json:"consistency"`
}

func buildReport(habits []dbcontracts.Habit, milestones streak.MilestoneSet, today time.Time) []reportRow {
	rows := make([]reportRow, 0, len(habits))
	for _, h := range habits {
		s := stats.ForHabit(h, milestones, today)
		rows = append(rows, reportRow{
			HabitID:     s.HabitID,
			Name:        s.Name,
			Active:      s.IsActive,
			Streak:      s.Streak,
			DoneCount:   s.DoneCount,
			Consistency: s.Consistency,
		})
	}
	return rows
}

func writeReport(w io.Writer, date string, rows []reportRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintf(w, "no habits (as of %s)\n", date)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "as of %s\n", date)
	fmt.Fprintln(tw, "ID\tHABIT\tSTATUS\tSTREAK\tDONE\tCONSISTENCY")
	for _, r := range rows {
		status := "active"
		if !r.Active {
			status = "paused"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d%%\n", r.HabitID, r.Name, status, r.Streak, r.DoneCount, r.Consistency)
	}
	return tw.Flush()
}
