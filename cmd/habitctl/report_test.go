package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbcontracts "zenhabit/contracts/db"
	"zenhabit/pkg/outbox"
	"zenhabit/pkg/streak"
)

func TestBuildReport(t *testing.T) {
	today := time.Date(2024, time.June, 12, 0, 0, 0, 0, time.UTC)
	habits := []dbcontracts.Habit{
		{ID: 1, Name: "Read", IsActive: true, CreatedAt: today.AddDate(0, 0, -4),
			Completions: streak.Ledger{"2024-06-10": true, "2024-06-12": true}},
		{ID: 2, Name: "Run", IsActive: false, CreatedAt: today.AddDate(0, 0, -4),
			Completions: streak.Ledger{"2024-06-09": true}},
	}

	rows := buildReport(habits, streak.NewMilestoneSet("2024-06-11"), today)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Streak)
	assert.Equal(t, 50, rows[0].Consistency)
	assert.Equal(t, 0, rows[1].Streak)
	assert.False(t, rows[1].Active)
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, "2024-06-12", []reportRow{
		{HabitID: 1, Name: "Read", Active: true, Streak: 3, DoneCount: 5, Consistency: 71},
		{HabitID: 2, Name: "Run", Streak: 0},
	}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "as of 2024-06-12", strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], "STREAK")
	assert.Contains(t, lines[2], "active")
	assert.Contains(t, lines[2], "71%")
	assert.Contains(t, lines[3], "paused")
}

func TestWriteReport_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, "2024-06-12", nil))
	assert.Equal(t, "no habits (as of 2024-06-12)\n", buf.String())
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, Version+"\n", buf.String())
}

func TestStreakCommand_RequiresUser(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"streak"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--user")
}

func TestWriteEvents(t *testing.T) {
	var buf bytes.Buffer
	created := time.Date(2024, time.June, 12, 9, 0, 0, 0, time.UTC)
	require.NoError(t, writeEvents(&buf, []outbox.Event{
		{ID: 7, RoutingKey: "habit.completed", RetryCount: 5, CreatedAt: created, LastError: "channel closed"},
	}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "ROUTING KEY")
	assert.Contains(t, lines[1], "habit.completed")
	assert.Contains(t, lines[1], "2024-06-12 09:00:00")
	assert.Contains(t, lines[1], "channel closed")
}

func TestWriteEvents_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeEvents(&buf, nil))
	assert.Equal(t, "no failed events\n", buf.String())
}

func TestOutboxReplay_RequiresTarget(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"outbox", "replay"})
	assert.EqualError(t, cmd.Execute(), "exactly one of --id or --all is required")
}
