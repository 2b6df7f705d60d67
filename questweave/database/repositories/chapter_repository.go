package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/questweave/questweave/questweave/database/models"
	"github.com/questweave/questweave/questweave/idgen"
	"github.com/uptrace/bun"
)

type ChapterRepository interface {
	Create(ctx context.Context, chapter *models.Chapter) error
	GetByID(ctx context.Context, id int64) (*models.Chapter, error)
	GetByNumber(ctx context.Context, questID int64, number int) (*models.Chapter, error)
	GetAllForQuest(ctx context.Context, questID int64) ([]*models.Chapter, error)
	MarkPosted(ctx context.Context, chapterID int64, tweetID string) error
}

type chapterRepository struct {
	db *bun.DB
}

func NewChapterRepository(db *bun.DB) ChapterRepository {
	return &chapterRepository{db: db}
}

func (r *chapterRepository) Create(ctx context.Context, chapter *models.Chapter) error {
	if chapter.ID == 0 {
		chapter.ID = idgen.Next()
	}
	chapter.CreatedAt = time.Now()

	_, err := r.db.NewInsert().Model(chapter).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create chapter: %w", err)
	}
	return nil
}

func (r *chapterRepository) GetByID(ctx context.Context, id int64) (*models.Chapter, error) {
	chapter := new(models.Chapter)
	err := r.db.NewSelect().
		Model(chapter).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("chapter not found: %d", id)
		}
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}
	return chapter, nil
}

// GetByNumber returns nil, nil when no chapter exists yet for that number, so
// the publisher can tell "generate" apart from "reuse draft".
func (r *chapterRepository) GetByNumber(ctx context.Context, questID int64, number int) (*models.Chapter, error) {
	chapter := new(models.Chapter)
	err := r.db.NewSelect().
		Model(chapter).
		Where("quest_id = ? AND chapter_number = ?", questID, number).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}
	return chapter, nil
}

func (r *chapterRepository) GetAllForQuest(ctx context.Context, questID int64) ([]*models.Chapter, error) {
	var chapters []*models.Chapter
	err := r.db.NewSelect().
		Model(&chapters).
		Where("quest_id = ?", questID).
		Order("chapter_number ASC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get chapters: %w", err)
	}
	return chapters, nil
}

// MarkPosted records the remote tweet id exactly once. A second call for the
// same chapter is rejected by the empty-marker guard.
func (r *chapterRepository) MarkPosted(ctx context.Context, chapterID int64, tweetID string) error {
	result, err := r.db.NewUpdate().
		Model((*models.Chapter)(nil)).
		Set("posted_tweet_id = ?", tweetID).
		Where("id = ?", chapterID).
		Where("posted_tweet_id IS NULL OR posted_tweet_id = ''").
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to mark chapter posted: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("chapter %d already has a posted tweet id", chapterID)
	}
	return nil
}
