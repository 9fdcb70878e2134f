package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	dbcontracts "zenhabit/contracts/db"
)

type MilestoneRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewMilestoneRepository(db *pgxpool.Pool, logger *zap.Logger) *MilestoneRepository {
	return &MilestoneRepository{
		db:     db,
		logger: logger,
	}
}

func (r *MilestoneRepository) Insert(ctx context.Context, m *dbcontracts.Milestone) (int, error) {
	r.logger.Debug("Inserting milestone",
		zap.Int("user_id", m.UserID),
		zap.String("title", m.Title),
		zap.String("date", m.Date),
	)

	query := `
        INSERT INTO milestones (user_id, day, title, notes, type)
        VALUES ($1, $2::date, $3, $4, $5)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query,
		m.UserID,
		m.Date,
		m.Title,
		m.Notes,
		m.Type,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert milestone", zap.Error(err))
		return 0, err
	}

	r.logger.Info("Milestone inserted successfully",
		zap.Int("id", m.ID),
		zap.Int("user_id", m.UserID),
	)
	return m.ID, nil
}

// ListByUser returns milestones ordered by date.
func (r *MilestoneRepository) ListByUser(ctx context.Context, userID int) ([]dbcontracts.Milestone, error) {
	query := `
        SELECT id, user_id, to_char(day, 'YYYY-MM-DD'), title, notes, type, created_at
        FROM milestones
        WHERE user_id = $1
        ORDER BY day ASC, id ASC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list milestones", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var milestones []dbcontracts.Milestone
	for rows.Next() {
		var m dbcontracts.Milestone
		if err := rows.Scan(
			&m.ID,
			&m.UserID,
			&m.Date,
			&m.Title,
			&m.Notes,
			&m.Type,
			&m.CreatedAt,
		); err != nil {
			r.logger.Error("Failed to scan milestone", zap.Error(err))
			return nil, err
		}
		milestones = append(milestones, m)
	}

	return milestones, rows.Err()
}

func (r *MilestoneRepository) ExistsOn(ctx context.Context, userID int, date string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM milestones WHERE user_id = $1 AND day = $2::date)`,
		userID, date,
	).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check milestone", zap.String("date", date), zap.Error(err))
		return false, err
	}
	return exists, nil
}

func (r *MilestoneRepository) Delete(ctx context.Context, userID, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM milestones WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		r.logger.Error("Failed to delete milestone", zap.Int("id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	r.logger.Info("Milestone deleted", zap.Int("id", id), zap.Int("user_id", userID))
	return nil
}
