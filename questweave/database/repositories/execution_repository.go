package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/questweave/questweave/questweave/database/models"
	"github.com/questweave/questweave/questweave/idgen"
	"github.com/uptrace/bun"
)

type ExecutionRepository interface {
	Create(ctx context.Context, execution *models.Execution) error
	GetForQuest(ctx context.Context, questID int64) ([]*models.Execution, error)
	SetTombstoneURL(ctx context.Context, executionID int64, url string) error
}

type executionRepository struct {
	db *bun.DB
}

func NewExecutionRepository(db *bun.DB) ExecutionRepository {
	return &executionRepository{db: db}
}

func (r *executionRepository) Create(ctx context.Context, execution *models.Execution) error {
	if execution.ID == 0 {
		execution.ID = idgen.Next()
	}
	if execution.EliminatedAt.IsZero() {
		execution.EliminatedAt = time.Now()
	}
	execution.CreatedAt = time.Now()

	_, err := r.db.NewInsert().Model(execution).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create execution: %w", err)
	}
	return nil
}

func (r *executionRepository) GetForQuest(ctx context.Context, questID int64) ([]*models.Execution, error) {
	var executions []*models.Execution
	err := r.db.NewSelect().
		Model(&executions).
		Where("quest_id = ?", questID).
		Order("eliminated_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get executions: %w", err)
	}
	return executions, nil
}

// SetTombstoneURL is write-once; re-rendering an already published tombstone
// is skipped.
func (r *executionRepository) SetTombstoneURL(ctx context.Context, executionID int64, url string) error {
	_, err := r.db.NewUpdate().
		Model((*models.Execution)(nil)).
		Set("tombstone_url = ?", url).
		Where("id = ?", executionID).
		Where("tombstone_url IS NULL OR tombstone_url = ''").
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to set tombstone url: %w", err)
	}
	return nil
}
