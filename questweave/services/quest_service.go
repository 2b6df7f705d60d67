package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/questweave/questweave/questweave/database/models"
	"github.com/questweave/questweave/questweave/database/repositories"
	"github.com/questweave/questweave/questweave/engine"
	"github.com/questweave/questweave/questweave/interpret"
	"github.com/questweave/questweave/questweave/twitter"
)

// ReplySource fetches the replies to a posted chapter. Implemented by the
// twitter client; faked in tests.
type ReplySource interface {
	Replies(ctx context.Context, tweetID string) ([]*twitter.Reply, error)
}

// QuestService owns the quest lifecycle outside the progression engine:
// creating quests, ingesting reply votes and recording eliminations.
type QuestService struct {
	quests     repositories.QuestRepository
	chapters   repositories.ChapterRepository
	votes      repositories.VoteRepository
	executions repositories.ExecutionRepository

	generator   engine.Generator
	poster      engine.Poster
	replies     ReplySource
	interpreter *interpret.Interpreter
	tombstones  *TombstoneService

	cfg    engine.Config
	logger *slog.Logger
}

func NewQuestService(
	quests repositories.QuestRepository,
	chapters repositories.ChapterRepository,
	votes repositories.VoteRepository,
	executions repositories.ExecutionRepository,
	generator engine.Generator,
	poster engine.Poster,
	replies ReplySource,
	interpreter *interpret.Interpreter,
	tombstones *TombstoneService,
	cfg engine.Config,
) *QuestService {
	return &QuestService{
		quests:      quests,
		chapters:    chapters,
		votes:       votes,
		executions:  executions,
		generator:   generator,
		poster:      poster,
		replies:     replies,
		interpreter: interpreter,
		tombstones:  tombstones,
		cfg:         cfg,
		logger:      slog.With(slog.String("service", "quest")),
	}
}

// CreateQuest generates and posts the opening chapter, then activates the
// quest with its first voting deadline.
func (s *QuestService) CreateQuest(ctx context.Context, title, premise string) (*models.Quest, error) {
	quest := &models.Quest{
		Title:   title,
		Premise: premise,
	}
	if err := s.quests.Create(ctx, quest); err != nil {
		return nil, err
	}

	draft, err := s.generator.Generate(ctx, engine.GenerateRequest{
		Quest:         quest,
		ChapterNumber: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("opening chapter generation: %w", err)
	}

	chapter := &models.Chapter{
		QuestID:       quest.ID,
		ChapterNumber: 1,
		Content:       draft.Content,
		Options:       draft.Options,
		Sources:       draft.Sources,
		IsFinal:       draft.IsFinal,
	}
	if err := s.chapters.Create(ctx, chapter); err != nil {
		return nil, err
	}

	tweetID, err := s.poster.Post(ctx, engine.ComposeTweet(chapter), "")
	if err != nil {
		return nil, fmt.Errorf("posting opening chapter: %w", err)
	}
	if err := s.chapters.MarkPosted(ctx, chapter.ID, tweetID); err != nil {
		return nil, err
	}

	now := time.Now()
	deadline := now.Add(s.cfg.VotingWindow)
	quest.CurrentChapter = 1
	quest.ChapterDeadline = &deadline
	quest.LastPostedTweetID = tweetID
	quest.TimelineData = append(quest.TimelineData, models.TimelineEntry{
		ChapterNumber: 1,
		TweetID:       tweetID,
		WinningOption: -1,
		PostedAt:      now,
	})
	if err := s.quests.Update(ctx, quest); err != nil {
		return nil, err
	}

	s.logger.Info("Quest created",
		slog.String("quest_short_id", quest.ShortID),
		slog.String("title", quest.Title),
		slog.String("tweet_id", tweetID))

	return quest, nil
}

// IngestReplies pulls the current chapter's replies and turns them into
// persisted ballots. Already-seen reply tweets are skipped, so the call is
// safe to repeat on any cadence. Returns the number of new ballots.
func (s *QuestService) IngestReplies(ctx context.Context, questID int64) (int, error) {
	quest, err := s.quests.GetByID(ctx, questID)
	if err != nil {
		return 0, err
	}
	if quest.Status.Terminal() {
		return 0, nil
	}

	chapter, err := s.chapters.GetByNumber(ctx, quest.ID, quest.CurrentChapter)
	if err != nil {
		return 0, err
	}
	if chapter == nil || !chapter.Posted() {
		return 0, nil
	}

	replies, err := s.replies.Replies(ctx, chapter.PostedTweetID)
	if err != nil {
		return 0, fmt.Errorf("fetching replies for chapter %d: %w", chapter.ChapterNumber, err)
	}

	seen, err := s.seenReplyIDs(ctx, chapter.ID)
	if err != nil {
		return 0, err
	}

	ingested := 0
	for _, reply := range replies {
		if _, done := seen[reply.TweetID]; done {
			continue
		}
		seen[reply.TweetID] = struct{}{}

		if vote, ok := detectQuestVote(reply.Text); ok {
			if err := s.votes.UpsertQuestVote(ctx, &models.QuestVote{
				QuestID: quest.ID,
				UserID:  reply.AuthorID,
				Vote:    vote,
			}); err != nil {
				return ingested, err
			}
			continue
		}

		in, ok := s.interpreter.Interpret(ctx, chapter.ID, reply.Text, chapter.Options)
		if !ok {
			continue
		}

		if err := s.votes.CreateChapterVote(ctx, &models.ChapterVote{
			QuestID:        quest.ID,
			ChapterID:      chapter.ID,
			UserID:         reply.AuthorID,
			SelectedOption: in.SelectedOption,
			ReplyText:      reply.Text,
			ReplyTweetID:   reply.TweetID,
			Interpretation: in.Label,
			Confidence:     in.Confidence,
			VotedAt:        reply.CreatedAt,
		}); err != nil {
			return ingested, err
		}
		ingested++
	}

	if ingested > 0 {
		s.logger.Info("Replies ingested",
			slog.String("quest_short_id", quest.ShortID),
			slog.Int("chapter", chapter.ChapterNumber),
			slog.Int("new_votes", ingested))
	}
	return ingested, nil
}

func (s *QuestService) seenReplyIDs(ctx context.Context, chapterID int64) (map[string]struct{}, error) {
	existing, err := s.votes.GetVotesForChapter(ctx, chapterID, time.Now())
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(existing))
	for _, v := range existing {
		if v.ReplyTweetID != "" {
			seen[v.ReplyTweetID] = struct{}{}
		}
	}
	return seen, nil
}

// RecordExecution persists an elimination and renders its tombstone when a
// renderer is wired.
func (s *QuestService) RecordExecution(ctx context.Context, execution *models.Execution) error {
	if err := s.executions.Create(ctx, execution); err != nil {
		return err
	}

	if s.tombstones != nil {
		if _, err := s.tombstones.Render(ctx, execution); err != nil {
			// The execution row stands; the tombstone can be re-rendered.
			s.logger.Warn("Tombstone rendering failed",
				slog.Int64("execution_id", execution.ID),
				slog.Any("error", err))
		}
	}
	return nil
}

// detectQuestVote recognizes explicit quest-level continuation signals.
func detectQuestVote(text string) (string, bool) {
	lowered := strings.ToLower(text)
	switch {
	case strings.Contains(lowered, "#endquest") || strings.Contains(lowered, "#stopquest"):
		return models.QuestVoteStop, true
	case strings.Contains(lowered, "#continuequest"):
		return models.QuestVoteContinue, true
	}
	return "", false
}
