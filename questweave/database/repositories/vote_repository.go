package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/questweave/questweave/questweave/database/models"
	"github.com/questweave/questweave/questweave/idgen"
	"github.com/uptrace/bun"
)

type VoteRepository interface {
	CreateChapterVote(ctx context.Context, vote *models.ChapterVote) error
	GetVotesForChapter(ctx context.Context, chapterID int64, castBefore time.Time) ([]*models.ChapterVote, error)
	CountVotesForChapter(ctx context.Context, chapterID int64) (int, error)
	UpsertQuestVote(ctx context.Context, vote *models.QuestVote) error
	GetQuestVotes(ctx context.Context, questID int64) ([]*models.QuestVote, error)
}

type voteRepository struct {
	db *bun.DB
}

func NewVoteRepository(db *bun.DB) VoteRepository {
	return &voteRepository{db: db}
}

func (r *voteRepository) CreateChapterVote(ctx context.Context, vote *models.ChapterVote) error {
	if vote.ID == 0 {
		vote.ID = idgen.Next()
	}
	if vote.VotedAt.IsZero() {
		vote.VotedAt = time.Now()
	}
	vote.CreatedAt = time.Now()

	_, err := r.db.NewInsert().Model(vote).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create chapter vote: %w", err)
	}
	return nil
}

// GetVotesForChapter returns the ballot snapshot as of castBefore, ordered by
// cast time so the tally's tie-break is reproducible from persisted data.
func (r *voteRepository) GetVotesForChapter(ctx context.Context, chapterID int64, castBefore time.Time) ([]*models.ChapterVote, error) {
	var votes []*models.ChapterVote
	err := r.db.NewSelect().
		Model(&votes).
		Where("chapter_id = ?", chapterID).
		Where("voted_at <= ?", castBefore).
		Order("voted_at ASC", "id ASC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get chapter votes: %w", err)
	}
	return votes, nil
}

func (r *voteRepository) CountVotesForChapter(ctx context.Context, chapterID int64) (int, error) {
	count, err := r.db.NewSelect().
		Model((*models.ChapterVote)(nil)).
		Where("chapter_id = ?", chapterID).
		Count(ctx)

	if err != nil {
		return 0, fmt.Errorf("failed to count chapter votes: %w", err)
	}
	return count, nil
}

func (r *voteRepository) UpsertQuestVote(ctx context.Context, vote *models.QuestVote) error {
	if vote.ID == 0 {
		vote.ID = idgen.Next()
	}
	vote.CreatedAt = time.Now()
	vote.UpdatedAt = time.Now()

	_, err := r.db.NewInsert().
		Model(vote).
		On("CONFLICT (quest_id, user_id) DO UPDATE").
		Set("vote = EXCLUDED.vote").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to upsert quest vote: %w", err)
	}
	return nil
}

func (r *voteRepository) GetQuestVotes(ctx context.Context, questID int64) ([]*models.QuestVote, error) {
	var votes []*models.QuestVote
	err := r.db.NewSelect().
		Model(&votes).
		Where("quest_id = ?", questID).
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get quest votes: %w", err)
	}
	return votes, nil
}
