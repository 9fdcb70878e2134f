package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	dbcontracts "zenhabit/contracts/db"
	"zenhabit/pkg/streak"
)

type HabitRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewHabitRepository(db *pgxpool.Pool, logger *zap.Logger) *HabitRepository {
	return &HabitRepository{db: db, logger: logger}
}

// ListByUser loads habits with their ledgers in one pass.
func (r *HabitRepository) ListByUser(ctx context.Context, userID int) ([]dbcontracts.Habit, error) {
	r.logger.Debug("Loading habits for coaching", zap.Int("user_id", userID))

	query := `
        SELECT h.id, h.name, h.frequency, h.is_active, h.created_at,
               to_char(c.day, 'YYYY-MM-DD'), c.done
        FROM habits h
        LEFT JOIN habit_completions c ON c.habit_id = h.id
        WHERE h.user_id = $1
        ORDER BY h.created_at ASC, h.id ASC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to load habits", zap.Int("user_id", userID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var habits []dbcontracts.Habit
	index := map[int]int{}
	for rows.Next() {
		var (
			h    dbcontracts.Habit
			day  *string
			done *bool
		)
		if err := rows.Scan(&h.ID, &h.Name, &h.Frequency, &h.IsActive, &h.CreatedAt, &day, &done); err != nil {
			r.logger.Error("Failed to scan habit row", zap.Error(err))
			return nil, err
		}

		i, seen := index[h.ID]
		if !seen {
			h.UserID = userID
			h.Completions = streak.Ledger{}
			habits = append(habits, h)
			i = len(habits) - 1
			index[h.ID] = i
		}
		if day != nil && done != nil {
			habits[i].Completions[*day] = *done
		}
	}

	return habits, rows.Err()
}
