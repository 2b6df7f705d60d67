package repositories

import (
	"context"
	"time"

	"github.com/questweave/questweave/questweave/database/models"
	"github.com/questweave/questweave/questweave/engine"
	"github.com/uptrace/bun"
)

// EngineStore adapts the per-entity repositories to the narrow persistence
// surface the progression engine consumes.
type EngineStore struct {
	quests   QuestRepository
	chapters ChapterRepository
	votes    VoteRepository
}

var _ engine.Store = (*EngineStore)(nil)

func NewEngineStore(db *bun.DB) *EngineStore {
	return &EngineStore{
		quests:   NewQuestRepository(db),
		chapters: NewChapterRepository(db),
		votes:    NewVoteRepository(db),
	}
}

func (s *EngineStore) QuestByID(ctx context.Context, id int64) (*models.Quest, error) {
	return s.quests.GetByID(ctx, id)
}

func (s *EngineStore) ActiveQuests(ctx context.Context) ([]*models.Quest, error) {
	return s.quests.GetActive(ctx)
}

func (s *EngineStore) DueQuests(ctx context.Context, now time.Time) ([]*models.Quest, error) {
	return s.quests.GetDue(ctx, now)
}

func (s *EngineStore) ChapterByNumber(ctx context.Context, questID int64, number int) (*models.Chapter, error) {
	return s.chapters.GetByNumber(ctx, questID, number)
}

func (s *EngineStore) ChaptersForQuest(ctx context.Context, questID int64) ([]*models.Chapter, error) {
	return s.chapters.GetAllForQuest(ctx, questID)
}

func (s *EngineStore) VotesForChapter(ctx context.Context, chapterID int64, castBefore time.Time) ([]*models.ChapterVote, error) {
	return s.votes.GetVotesForChapter(ctx, chapterID, castBefore)
}

func (s *EngineStore) QuestVotes(ctx context.Context, questID int64) ([]*models.QuestVote, error) {
	return s.votes.GetQuestVotes(ctx, questID)
}

func (s *EngineStore) CreateChapter(ctx context.Context, chapter *models.Chapter) error {
	return s.chapters.Create(ctx, chapter)
}

func (s *EngineStore) MarkChapterPosted(ctx context.Context, chapterID int64, tweetID string) error {
	return s.chapters.MarkPosted(ctx, chapterID, tweetID)
}

func (s *EngineStore) UpdateQuest(ctx context.Context, quest *models.Quest) error {
	return s.quests.Update(ctx, quest)
}

func (s *EngineStore) AdvanceQuest(ctx context.Context, quest *models.Quest, fromChapter int) error {
	return s.quests.AdvanceChapter(ctx, quest, fromChapter)
}

func (s *EngineStore) AcquireLease(ctx context.Context, questID int64, owner string, ttl time.Duration) (bool, error) {
	return s.quests.AcquireLease(ctx, questID, owner, ttl)
}

func (s *EngineStore) ReleaseLease(ctx context.Context, questID int64, owner string) error {
	return s.quests.ReleaseLease(ctx, questID, owner)
}
