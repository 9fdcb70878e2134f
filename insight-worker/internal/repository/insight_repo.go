package repository

import (
	"context"
	"fmt"

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

// Replace stores in as the user's only insight.
func (r *InsightRepository) Replace(ctx context.Context, in *dbcontracts.Insight) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM insights WHERE user_id = $1`, in.UserID); err != nil {
		r.logger.Error("Failed to clear previous insight", zap.Int("user_id", in.UserID), zap.Error(err))
		return err
	}

	query := `
        INSERT INTO insights (user_id, reflection, improvement_tip, motivation, fallback)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at
    `
	err = tx.QueryRow(ctx, query,
		in.UserID,
		in.Reflection,
		in.ImprovementTip,
		in.Motivation,
		in.Fallback,
	).Scan(&in.ID, &in.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert insight", zap.Int("user_id", in.UserID), zap.Error(err))
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit insight: %w", err)
	}

	r.logger.Info("Insight stored",
		zap.Int("id", in.ID),
		zap.Int("user_id", in.UserID),
		zap.Bool("fallback", in.Fallback),
	)
	return nil
}
