package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/questweave/questweave/questweave/database/models"
	"github.com/questweave/questweave/questweave/idgen"
	"github.com/uptrace/bun"
)

type QuestRepository interface {
	DB() *bun.DB
	Create(ctx context.Context, quest *models.Quest) error
	GetByID(ctx context.Context, id int64) (*models.Quest, error)
	GetByShortID(ctx context.Context, shortID string) (*models.Quest, error)
	GetActive(ctx context.Context) ([]*models.Quest, error)
	GetDue(ctx context.Context, now time.Time) ([]*models.Quest, error)
	Update(ctx context.Context, quest *models.Quest) error
	AdvanceChapter(ctx context.Context, quest *models.Quest, fromChapter int) error
	AcquireLease(ctx context.Context, questID int64, owner string, ttl time.Duration) (bool, error)
	ReleaseLease(ctx context.Context, questID int64, owner string) error
}

type questRepository struct {
	db *bun.DB
}

func NewQuestRepository(db *bun.DB) QuestRepository {
	return &questRepository{db: db}
}

func (r *questRepository) DB() *bun.DB {
	return r.db
}

func (r *questRepository) Create(ctx context.Context, quest *models.Quest) error {
	if quest.ID == 0 {
		quest.ID = idgen.Next()
	}
	if quest.ShortID == "" {
		shortID, err := idgen.NewShortID()
		if err != nil {
			return fmt.Errorf("failed to generate short id: %w", err)
		}
		quest.ShortID = shortID
	}
	quest.Status = models.QuestStatusActive
	quest.CreatedAt = time.Now()
	quest.UpdatedAt = time.Now()

	_, err := r.db.NewInsert().Model(quest).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create quest: %w", err)
	}
	return nil
}

func (r *questRepository) GetByID(ctx context.Context, id int64) (*models.Quest, error) {
	quest := new(models.Quest)
	err := r.db.NewSelect().
		Model(quest).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("quest not found: %d", id)
		}
		return nil, fmt.Errorf("failed to get quest: %w", err)
	}
	return quest, nil
}

func (r *questRepository) GetByShortID(ctx context.Context, shortID string) (*models.Quest, error) {
	quest := new(models.Quest)
	err := r.db.NewSelect().
		Model(quest).
		Where("short_id = ?", shortID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("quest not found: %s", shortID)
		}
		return nil, fmt.Errorf("failed to get quest: %w", err)
	}
	return quest, nil
}

func (r *questRepository) GetActive(ctx context.Context) ([]*models.Quest, error) {
	var quests []*models.Quest
	err := r.db.NewSelect().
		Model(&quests).
		Where("status = ?", models.QuestStatusActive).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get active quests: %w", err)
	}
	return quests, nil
}

// GetDue returns active quests whose chapter deadline has elapsed. Lease
// contention is resolved by AcquireLease, not here.
func (r *questRepository) GetDue(ctx context.Context, now time.Time) ([]*models.Quest, error) {
	var quests []*models.Quest
	err := r.db.NewSelect().
		Model(&quests).
		Where("status = ?", models.QuestStatusActive).
		Where("chapter_deadline IS NOT NULL").
		Where("chapter_deadline <= ?", now).
		Order("chapter_deadline ASC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get due quests: %w", err)
	}
	return quests, nil
}

func (r *questRepository) Update(ctx context.Context, quest *models.Quest) error {
	quest.UpdatedAt = time.Now()

	_, err := r.db.NewUpdate().
		Model(quest).
		WherePK().
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update quest: %w", err)
	}
	return nil
}

// AdvanceChapter commits the engine-owned quest fields guarded by the chapter
// pointer the caller read. Zero rows affected means another worker already
// advanced the quest past fromChapter.
func (r *questRepository) AdvanceChapter(ctx context.Context, quest *models.Quest, fromChapter int) error {
	quest.UpdatedAt = time.Now()

	result, err := r.db.NewUpdate().
		Model(quest).
		Column("status", "current_chapter", "chapter_deadline", "last_posted_tweet_id",
			"current_state", "timeline_data", "updated_at").
		Where("id = ?", quest.ID).
		Where("current_chapter = ?", fromChapter).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to advance quest: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("quest %d already advanced past chapter %d", quest.ID, fromChapter)
	}
	return nil
}

// AcquireLease takes the per-quest lease when it is free or expired. Returns
// false without error when another worker holds it.
func (r *questRepository) AcquireLease(ctx context.Context, questID int64, owner string, ttl time.Duration) (bool, error) {
	now := time.Now()
	expires := now.Add(ttl)

	result, err := r.db.NewUpdate().
		Model((*models.Quest)(nil)).
		Set("lease_owner = ?", owner).
		Set("lease_expires = ?", expires).
		Set("updated_at = ?", now).
		Where("id = ?", questID).
		Where("lease_owner IS NULL OR lease_owner = '' OR lease_expires < ? OR lease_owner = ?", now, owner).
		Exec(ctx)

	if err != nil {
		return false, fmt.Errorf("failed to acquire lease: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

func (r *questRepository) ReleaseLease(ctx context.Context, questID int64, owner string) error {
	result, err := r.db.NewUpdate().
		Model((*models.Quest)(nil)).
		Set("lease_owner = NULL").
		Set("lease_expires = NULL").
		Where("id = ?", questID).
		Where("lease_owner = ?", owner).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to release lease: %w", err)
	}

	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		// Expired and reclaimed by someone else; nothing to release.
		slog.Debug("Lease already taken over",
			slog.String("type", "db"),
			slog.Int64("quest_id", questID),
			slog.String("owner", owner))
	}
	return nil
}
