package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/questweave/questweave/questweave/database/models"
)

// Publisher turns a tally result into exactly one new persisted Chapter plus
// one posted tweet. Recovery after a crash reuses the persisted draft and the
// posted marker, so re-running never regenerates content or double-posts.
type Publisher struct {
	store     Store
	generator Generator
	poster    Poster
	sm        *StateMachine
	cfg       Config
	now       func() time.Time
}

func NewPublisher(store Store, generator Generator, poster Poster, sm *StateMachine, cfg Config) *Publisher {
	return &Publisher{
		store:     store,
		generator: generator,
		poster:    poster,
		sm:        sm,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Publish materializes chapter current+1 for the quest. prevChapter is the
// chapter whose vote was just tallied. On permanent failure the quest is held
// (deadline cleared) and the error returned; transient failures are retried
// with backoff before that.
func (p *Publisher) Publish(ctx context.Context, quest *models.Quest, prevChapter *models.Chapter, result TallyResult) (*models.Chapter, error) {
	fromChapter := quest.CurrentChapter
	nextNumber := fromChapter + 1

	chapter, err := p.store.ChapterByNumber(ctx, quest.ID, nextNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to load draft chapter: %w", err)
	}

	winningLabel := ""
	if result.WinningOption >= 0 && result.WinningOption < len(prevChapter.Options) {
		winningLabel = prevChapter.Options[result.WinningOption]
	}

	if chapter == nil {
		chapter, err = p.generateDraft(ctx, quest, prevChapter, result, winningLabel, nextNumber)
		if err != nil {
			p.hold(ctx, quest, fmt.Sprintf("content generation failed: %v", err))
			return nil, fmt.Errorf("content generation for chapter %d: %w", nextNumber, err)
		}
	} else {
		slog.Info("Reusing persisted draft chapter",
			slog.String("type", "engine"),
			slog.String("quest_short_id", quest.ShortID),
			slog.Int("chapter", nextNumber))
	}

	if !chapter.Posted() {
		text := ComposeTweet(chapter)
		tweetID, err := retryCall(ctx, p.cfg, "post", func(ctx context.Context) (string, error) {
			return p.poster.Post(ctx, text, quest.LastPostedTweetID)
		})
		if err != nil {
			p.hold(ctx, quest, fmt.Sprintf("posting failed: %v", err))
			return nil, fmt.Errorf("posting chapter %d: %w", nextNumber, err)
		}

		if err := p.store.MarkChapterPosted(ctx, chapter.ID, tweetID); err != nil {
			return nil, fmt.Errorf("failed to persist tweet id: %w", err)
		}
		chapter.PostedTweetID = tweetID
	}

	now := p.now()
	if chapter.IsFinal {
		p.sm.ApplyComplete(quest, chapter, result, winningLabel, now)
	} else {
		p.sm.ApplyAdvance(quest, chapter, result, winningLabel, now)
	}

	if err := p.store.AdvanceQuest(ctx, quest, fromChapter); err != nil {
		return nil, fmt.Errorf("failed to commit advancement: %w", err)
	}

	slog.Info("Chapter published",
		slog.String("type", "engine"),
		slog.String("quest_short_id", quest.ShortID),
		slog.Int("chapter", chapter.ChapterNumber),
		slog.String("tweet_id", chapter.PostedTweetID),
		slog.Bool("final", chapter.IsFinal),
		slog.Int("participation", result.Participation))

	return chapter, nil
}

// generateDraft calls the content generator and persists the draft BEFORE any
// post attempt, so a crash between generation and posting never branches the
// timeline.
func (p *Publisher) generateDraft(ctx context.Context, quest *models.Quest, prevChapter *models.Chapter, result TallyResult, winningLabel string, nextNumber int) (*models.Chapter, error) {
	history, err := p.store.ChaptersForQuest(ctx, quest.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load quest history: %w", err)
	}

	req := GenerateRequest{
		Quest:         quest,
		History:       history,
		WinningOption: result.WinningOption,
		WinningLabel:  winningLabel,
		ChapterNumber: nextNumber,
		FinalChapter:  nextNumber >= p.cfg.MaxChapters,
	}

	draft, err := retryCall(ctx, p.cfg, "generate", func(ctx context.Context) (*Draft, error) {
		return p.generator.Generate(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	chapter := &models.Chapter{
		QuestID:       quest.ID,
		ChapterNumber: nextNumber,
		Content:       draft.Content,
		Options:       draft.Options,
		Sources:       draft.Sources,
		IsFinal:       draft.IsFinal || nextNumber >= p.cfg.MaxChapters,
	}

	if err := p.store.CreateChapter(ctx, chapter); err != nil {
		return nil, fmt.Errorf("failed to persist draft: %w", err)
	}
	return chapter, nil
}

func (p *Publisher) hold(ctx context.Context, quest *models.Quest, reason string) {
	p.sm.ApplyHold(quest, reason, p.now())
	if err := p.store.UpdateQuest(ctx, quest); err != nil {
		slog.Error("Failed to hold quest",
			slog.String("quest_short_id", quest.ShortID),
			slog.Any("error", err))
		return
	}
	slog.Warn("Quest held for operator review",
		slog.String("type", "engine"),
		slog.String("quest_short_id", quest.ShortID),
		slog.String("reason", reason))
}

// ComposeTweet renders chapter content plus numbered options within the
// platform limit. Non-final chapters end with a vote prompt.
func ComposeTweet(chapter *models.Chapter) string {
	var b strings.Builder
	b.WriteString(chapter.Content)

	if !chapter.IsFinal && len(chapter.Options) > 0 {
		b.WriteString("\n")
		for i, opt := range chapter.Options {
			b.WriteString(fmt.Sprintf("\n%d. %s", i+1, opt))
		}
		b.WriteString("\n\nReply to vote!")
	}

	return b.String()
}
