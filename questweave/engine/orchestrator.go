package engine

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/questweave/questweave/questweave/database/models"
)

// Orchestrator runs one progression cycle per deadline fire: lease, fresh
// reload, tally, publish or terminal transition, release. All quest state
// mutation funnels through here.
type Orchestrator struct {
	store     Store
	publisher *Publisher
	sm        *StateMachine
	cfg       Config
	workerID  string
	now       func() time.Time
}

func NewOrchestrator(store Store, generator Generator, poster Poster, cfg Config) *Orchestrator {
	sm := NewStateMachine(cfg)
	return &Orchestrator{
		store:     store,
		publisher: NewPublisher(store, generator, poster, sm, cfg),
		sm:        sm,
		cfg:       cfg,
		workerID:  newWorkerID(),
		now:       time.Now,
	}
}

// Advance progresses one quest past its elapsed deadline. Safe to call
// concurrently for the same quest: exactly one caller wins the lease, the
// rest get ErrLeaseHeld. Terminal quests and unelapsed deadlines are no-ops.
func (o *Orchestrator) Advance(ctx context.Context, questID int64) (models.QuestStatus, error) {
	acquired, err := o.store.AcquireLease(ctx, questID, o.workerID, o.cfg.LeaseTTL)
	if err != nil {
		return "", fmt.Errorf("failed to acquire lease: %w", err)
	}
	if !acquired {
		return "", ErrLeaseHeld
	}
	defer o.releaseLease(questID)

	// Fresh read under the lease; a concurrent run may have advanced or
	// terminated the quest between the due scan and now.
	quest, err := o.store.QuestByID(ctx, questID)
	if err != nil {
		return "", fmt.Errorf("failed to load quest: %w", err)
	}

	if err := o.sm.CheckRunnable(quest, o.now()); err != nil {
		slog.Debug("Progression no-op",
			slog.String("type", "engine"),
			slog.String("quest_short_id", quest.ShortID),
			slog.String("reason", err.Error()))
		return quest.Status, nil
	}
	deadline := *quest.ChapterDeadline

	chapter, err := o.store.ChapterByNumber(ctx, quest.ID, quest.CurrentChapter)
	if err != nil {
		return quest.Status, fmt.Errorf("failed to load current chapter: %w", err)
	}
	if chapter == nil {
		// Quest row points at a chapter that does not exist. Hold rather
		// than guess.
		o.sm.ApplyHold(quest, fmt.Sprintf("chapter %d missing", quest.CurrentChapter), o.now())
		if uerr := o.store.UpdateQuest(ctx, quest); uerr != nil {
			return quest.Status, fmt.Errorf("failed to hold quest with missing chapter: %w", uerr)
		}
		return quest.Status, fmt.Errorf("quest %s points at missing chapter %d", quest.ShortID, quest.CurrentChapter)
	}

	// Ballot snapshot bounded by the deadline instant: late arrivals count
	// toward the next chapter, never retroactively.
	votes, err := o.store.VotesForChapter(ctx, chapter.ID, deadline)
	if err != nil {
		return quest.Status, fmt.Errorf("failed to load votes: %w", err)
	}
	result := Tally(chapter.Options, votes, o.cfg.DefaultOption)

	questVotes, err := o.store.QuestVotes(ctx, quest.ID)
	if err != nil {
		return quest.Status, fmt.Errorf("failed to load quest votes: %w", err)
	}

	if archive, reason := o.sm.ShouldArchive(quest, questVotes, result.Participation); archive {
		o.sm.ApplyArchive(quest, reason, o.now())
		if err := o.store.UpdateQuest(ctx, quest); err != nil {
			return quest.Status, fmt.Errorf("failed to archive quest: %w", err)
		}
		slog.Info("Quest archived",
			slog.String("type", "engine"),
			slog.String("quest_short_id", quest.ShortID),
			slog.String("reason", reason))
		return quest.Status, nil
	}

	if _, err := o.publisher.Publish(ctx, quest, chapter, result); err != nil {
		return quest.Status, err
	}

	return quest.Status, nil
}

// Resume clears an operator hold and re-arms the deadline.
func (o *Orchestrator) Resume(ctx context.Context, questID int64) (*models.Quest, error) {
	acquired, err := o.store.AcquireLease(ctx, questID, o.workerID, o.cfg.LeaseTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lease: %w", err)
	}
	if !acquired {
		return nil, ErrLeaseHeld
	}
	defer o.releaseLease(questID)

	quest, err := o.store.QuestByID(ctx, questID)
	if err != nil {
		return nil, err
	}
	if err := o.sm.Resume(quest, o.now()); err != nil {
		if errors.Is(err, ErrQuestTerminal) {
			return quest, nil
		}
		return nil, err
	}
	if err := o.store.UpdateQuest(ctx, quest); err != nil {
		return nil, fmt.Errorf("failed to resume quest: %w", err)
	}
	return quest, nil
}

func (o *Orchestrator) WorkerID() string {
	return o.workerID
}

// releaseLease uses a fresh context so a cancelled progression still frees
// the quest instead of waiting out the lease TTL.
func (o *Orchestrator) releaseLease(questID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := o.store.ReleaseLease(ctx, questID, o.workerID); err != nil {
		slog.Error("Failed to release lease",
			slog.Int64("quest_id", questID),
			slog.Any("error", err))
	}
}

func newWorkerID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "worker"
	}
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", host, os.Getpid())
	}
	return fmt.Sprintf("%s-%d-%s", host, os.Getpid(), hex.EncodeToString(buf))
}
