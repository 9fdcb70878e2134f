package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
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
	return &HabitRepository{
		db:     db,
		logger: logger,
	}
}

const habitColumns = `id, user_id, name, frequency, target_count, color, is_active, created_at, updated_at`

func (r *HabitRepository) Insert(ctx context.Context, h *dbcontracts.Habit) (int, error) {
	r.logger.Debug("Inserting habit",
		zap.Int("user_id", h.UserID),
		zap.String("name", h.Name),
		zap.String("frequency", h.Frequency),
	)

	query := `
        INSERT INTO habits (user_id, name, frequency, target_count, color, is_active)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		h.UserID,
		h.Name,
		h.Frequency,
		h.TargetCount,
		h.Color,
		h.IsActive,
	).Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert habit", zap.Error(err))
		return 0, err
	}

	r.logger.Info("Habit inserted successfully",
		zap.Int("id", h.ID),
		zap.Int("user_id", h.UserID),
	)
	return h.ID, nil
}

// ListByUser returns the user's habits in creation order with their ledgers.
func (r *HabitRepository) ListByUser(ctx context.Context, userID int) ([]dbcontracts.Habit, error) {
	r.logger.Debug("Listing habits for user", zap.Int("user_id", userID))

	query := `SELECT ` + habitColumns + `
        FROM habits
        WHERE user_id = $1
        ORDER BY created_at ASC, id ASC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list habits", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var habits []dbcontracts.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			r.logger.Error("Failed to scan habit", zap.Error(err))
			return nil, err
		}
		habits = append(habits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachCompletions(ctx, habits); err != nil {
		return nil, err
	}

	r.logger.Debug("Listed habits",
		zap.Int("user_id", userID),
		zap.Int("count", len(habits)),
	)
	return habits, nil
}

// FindByID returns pgx.ErrNoRows when the habit does not belong to userID.
func (r *HabitRepository) FindByID(ctx context.Context, userID, habitID int) (*dbcontracts.Habit, error) {
	query := `SELECT ` + habitColumns + `
        FROM habits
        WHERE id = $1 AND user_id = $2
    `
	h, err := scanHabit(r.db.QueryRow(ctx, query, habitID, userID))
	if err != nil {
		if err != pgx.ErrNoRows {
			r.logger.Error("Failed to find habit", zap.Int("habit_id", habitID), zap.Error(err))
		}
		return nil, err
	}

	habits := []dbcontracts.Habit{h}
	if err := r.attachCompletions(ctx, habits); err != nil {
		return nil, err
	}
	return &habits[0], nil
}

func (r *HabitRepository) SetActive(ctx context.Context, userID, habitID int, active bool) error {
	query := `
        UPDATE habits SET is_active = $3, updated_at = NOW()
        WHERE id = $1 AND user_id = $2
    `
	tag, err := r.db.Exec(ctx, query, habitID, userID, active)
	if err != nil {
		r.logger.Error("Failed to update habit active flag", zap.Int("habit_id", habitID), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	r.logger.Info("Habit active flag updated",
		zap.Int("habit_id", habitID),
		zap.Bool("is_active", active),
	)
	return nil
}

// Delete removes the habit; its completions go with it (ON DELETE CASCADE).
func (r *HabitRepository) Delete(ctx context.Context, userID, habitID int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM habits WHERE id = $1 AND user_id = $2`, habitID, userID)
	if err != nil {
		r.logger.Error("Failed to delete habit", zap.Int("habit_id", habitID), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	r.logger.Info("Habit deleted", zap.Int("habit_id", habitID), zap.Int("user_id", userID))
	return nil
}

// ToggleCompletion flips the done flag for date; a missing row becomes done.
func (r *HabitRepository) ToggleCompletion(ctx context.Context, habitID int, date string) (bool, error) {
	query := `
        INSERT INTO habit_completions (habit_id, day, done)
        VALUES ($1, $2::date, TRUE)
        ON CONFLICT (habit_id, day) DO UPDATE SET done = NOT habit_completions.done
        RETURNING done
    `
	var done bool
	if err := r.db.QueryRow(ctx, query, habitID, date).Scan(&done); err != nil {
		r.logger.Error("Failed to toggle completion",
			zap.Int("habit_id", habitID),
			zap.String("date", date),
			zap.Error(err),
		)
		return false, err
	}

	r.logger.Debug("Completion toggled",
		zap.Int("habit_id", habitID),
		zap.String("date", date),
		zap.Bool("done", done),
	)
	return done, nil
}

// AnyCompletedOn reports whether any of the user's habits is done on date.
func (r *HabitRepository) AnyCompletedOn(ctx context.Context, userID int, date string) (bool, error) {
	query := `
        SELECT EXISTS (
            SELECT 1 FROM habit_completions c
            JOIN habits h ON h.id = c.habit_id
            WHERE h.user_id = $1 AND c.day = $2::date AND c.done
        )
    `
	var exists bool
	if err := r.db.QueryRow(ctx, query, userID, date).Scan(&exists); err != nil {
		r.logger.Error("Failed to check completions on date", zap.String("date", date), zap.Error(err))
		return false, err
	}
	return exists, nil
}

func (r *HabitRepository) attachCompletions(ctx context.Context, habits []dbcontracts.Habit) error {
	if len(habits) == 0 {
		return nil
	}

	ids := make([]int32, len(habits))
	index := make(map[int]int, len(habits))
	for i := range habits {
		habits[i].Completions = streak.Ledger{}
		ids[i] = int32(habits[i].ID)
		index[habits[i].ID] = i
	}

	query := `
        SELECT habit_id, to_char(day, 'YYYY-MM-DD'), done
        FROM habit_completions
        WHERE habit_id = ANY($1)
    `
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error("Failed to load completions", zap.Error(err))
		return fmt.Errorf("load completions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			habitID int
			day     string
			done    bool
		)
		if err := rows.Scan(&habitID, &day, &done); err != nil {
			return fmt.Errorf("scan completion: %w", err)
		}
		if i, ok := index[habitID]; ok {
			habits[i].Completions[day] = done
		}
	}
	return rows.Err()
}

func scanHabit(row pgx.Row) (dbcontracts.Habit, error) {
	var h dbcontracts.Habit
	err := row.Scan(
		&h.ID,
		&h.UserID,
		&h.Name,
		&h.Frequency,
		&h.TargetCount,
		&h.Color,
		&h.IsActive,
		&h.CreatedAt,
		&h.UpdatedAt,
	)
	return h, err
}
