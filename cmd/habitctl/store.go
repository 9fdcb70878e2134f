package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	dbcontracts "zenhabit/contracts/db"
	"zenhabit/pkg/streak"
)

func queryHabits(ctx context.Context, pool *pgxpool.Pool, userID int) ([]dbcontracts.Habit, error) {
	rows, err := pool.Query(ctx, `
        SELECT id, name, is_active, created_at
        FROM habits
        WHERE user_id = $1
        ORDER BY created_at ASC, id ASC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query habits: %w", err)
	}
	habits, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (dbcontracts.Habit, error) {
		h := dbcontracts.Habit{UserID: userID, Completions: streak.Ledger{}}
		err := row.Scan(&h.ID, &h.Name, &h.IsActive, &h.CreatedAt)
		return h, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan habits: %w", err)
	}

	index := make(map[int]int, len(habits))
	for i, h := range habits {
		index[h.ID] = i
	}

	rows, err = pool.Query(ctx, `
        SELECT c.habit_id, to_char(c.day, 'YYYY-MM-DD'), c.done
        FROM habit_completions c
        JOIN habits h ON h.id = c.habit_id
        WHERE h.user_id = $1
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query completions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			habitID int
			day     string
			done    bool
		)
		if err := rows.Scan(&habitID, &day, &done); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		if i, ok := index[habitID]; ok {
			habits[i].Completions[day] = done
		}
	}
	return habits, rows.Err()
}

func queryMilestoneDates(ctx context.Context, pool *pgxpool.Pool, userID int) (streak.MilestoneSet, error) {
	rows, err := pool.Query(ctx, `SELECT to_char(day, 'YYYY-MM-DD') FROM milestones WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("query milestones: %w", err)
	}
	dates, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan milestones: %w", err)
	}
	return streak.NewMilestoneSet(dates...), nil
}
