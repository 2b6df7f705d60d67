// Package engine owns quest progression: the state machine, vote tally,
// chapter publisher, deadline scheduler and the orchestrator gluing them
// together. Everything externally visible (posting, pointer bumps) is
// idempotent given persisted state, so any step can be re-run after a crash.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/questweave/questweave/questweave/database/models"
)

var (
	// ErrLeaseHeld means another worker is progressing the quest right now.
	// Expected under concurrency; callers skip the cycle.
	ErrLeaseHeld = errors.New("quest lease held by another worker")

	// ErrPermanent marks a collaborator failure that retrying cannot fix.
	ErrPermanent = errors.New("permanent collaborator failure")

	// ErrQuestTerminal and ErrNotDue are no-op guards, not failures.
	ErrQuestTerminal = errors.New("quest is terminal")
	ErrNotDue        = errors.New("chapter deadline has not elapsed")
	ErrQuestHeld     = errors.New("quest is held for operator review")
)

// Config carries every engine tunable. Defaults are applied at config load,
// not here.
type Config struct {
	VotingWindow     time.Duration
	MaxChapters      int
	DefaultOption    int
	IdleChapterLimit int
	AbandonThreshold float64
	AbandonMinVotes  int
	LeaseTTL         time.Duration
	ScanInterval     time.Duration
	MaxAttempts      int
	BackoffBase      time.Duration
	CallTimeout      time.Duration
}

// Store is the persistence surface the engine needs. Implemented by the
// repositories package; mocked in tests.
type Store interface {
	QuestByID(ctx context.Context, id int64) (*models.Quest, error)
	ActiveQuests(ctx context.Context) ([]*models.Quest, error)
	DueQuests(ctx context.Context, now time.Time) ([]*models.Quest, error)
	ChapterByNumber(ctx context.Context, questID int64, number int) (*models.Chapter, error)
	ChaptersForQuest(ctx context.Context, questID int64) ([]*models.Chapter, error)
	VotesForChapter(ctx context.Context, chapterID int64, castBefore time.Time) ([]*models.ChapterVote, error)
	QuestVotes(ctx context.Context, questID int64) ([]*models.QuestVote, error)
	CreateChapter(ctx context.Context, chapter *models.Chapter) error
	MarkChapterPosted(ctx context.Context, chapterID int64, tweetID string) error
	UpdateQuest(ctx context.Context, quest *models.Quest) error
	AdvanceQuest(ctx context.Context, quest *models.Quest, fromChapter int) error
	AcquireLease(ctx context.Context, questID int64, owner string, ttl time.Duration) (bool, error)
	ReleaseLease(ctx context.Context, questID int64, owner string) error
}

// Draft is generated chapter content before it becomes a persisted Chapter.
type Draft struct {
	Content string
	Options []string
	Sources []string
	IsFinal bool
}

// GenerateRequest is the full context the content generator needs: it must be
// a pure function of quest history plus the winning option.
type GenerateRequest struct {
	Quest         *models.Quest
	History       []*models.Chapter
	WinningOption int
	WinningLabel  string
	ChapterNumber int
	FinalChapter  bool
}

type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Draft, error)
}

// Poster publishes one tweet. The publisher enforces at-most-once via the
// persisted posted marker; the client itself is plain.
type Poster interface {
	Post(ctx context.Context, text string, inReplyTo string) (string, error)
}
