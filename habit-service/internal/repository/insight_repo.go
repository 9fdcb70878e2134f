package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	dbcontracts "zenhabit/contracts/db"
)

type InsightRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewInsightRepository(db *pgxpool.Pool, logger *zap.Logger) *InsightRepository {
	return &InsightRepository{db: db, logger: logger}
}

// Latest returns pgx.ErrNoRows when the user has no insight yet.
func (r *InsightRepository) Latest(ctx context.Context, userID int) (*dbcontracts.Insight, error) {
	query := `
        SELECT id, user_id, reflection, improvement_tip, motivation, fallback, created_at
        FROM insights
        WHERE user_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT 1
    `
	var in dbcontracts.Insight
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&in.ID,
		&in.UserID,
		&in.Reflection,
		&in.ImprovementTip,
		&in.Motivation,
		&in.Fallback,
		&in.CreatedAt,
	)
	if err != nil {
		if err != pgx.ErrNoRows {
			r.logger.Error("Failed to load latest insight", zap.Int("user_id", userID), zap.Error(err))
		}
		return nil, err
	}
	return &in, nil
}

func (r *InsightRepository) DeleteByUser(ctx context.Context, userID int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM insights WHERE user_id = $1`, userID)
	if err != nil {
		r.logger.Error("Failed to clear insights", zap.Int("user_id", userID), zap.Error(err))
		return err
	}
	r.logger.Debug("Insights cleared",
		zap.Int("user_id", userID),
		zap.Int64("rows", tag.RowsAffected()),
	)
	return nil
}
