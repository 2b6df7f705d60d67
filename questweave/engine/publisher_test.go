package engine_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/questweave/questweave/questweave/database/models"
	"github.com/questweave/questweave/questweave/engine"
	"github.com/questweave/questweave/questweave/engine/mock"
)

func publisherConfig() engine.Config {
	return engine.Config{
		VotingWindow:     24 * time.Hour,
		MaxChapters:      20,
		IdleChapterLimit: 3,
		AbandonThreshold: 0.66,
		AbandonMinVotes:  5,
		LeaseTTL:         2 * time.Minute,
		MaxAttempts:      3,
		BackoffBase:      time.Millisecond,
		CallTimeout:      time.Second,
	}
}

func publishQuest() *models.Quest {
	deadline := time.Now().Add(-time.Hour)
	return &models.Quest{
		ID:                42,
		ShortID:           "QW-TEST42",
		Title:             "The Hollow Citadel",
		Status:            models.QuestStatusActive,
		CurrentChapter:    3,
		ChapterDeadline:   &deadline,
		LastPostedTweetID: "tw-3",
	}
}

func prevChapter() *models.Chapter {
	return &models.Chapter{
		ID:            103,
		QuestID:       42,
		ChapterNumber: 3,
		Content:       "The gate creaks open.",
		Options:       []string{"Enter", "Retreat"},
		PostedTweetID: "tw-3",
	}
}

func newPublisher(t *testing.T) (*engine.Publisher, *mock.MockStore, *mock.MockGenerator, *mock.MockPoster) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockStore(ctrl)
	generator := mock.NewMockGenerator(ctrl)
	poster := mock.NewMockPoster(ctrl)

	cfg := publisherConfig()
	pub := engine.NewPublisher(store, generator, poster, engine.NewStateMachine(cfg), cfg)
	return pub, store, generator, poster
}

func TestPublishGeneratesAndPosts(t *testing.T) {
	pub, store, generator, poster := newPublisher(t)
	quest := publishQuest()
	result := engine.TallyResult{WinningOption: 0, VoteCounts: []int{3, 1}, Participation: 4}

	store.EXPECT().ChapterByNumber(gomock.Any(), int64(42), 4).Return(nil, nil)
	store.EXPECT().ChaptersForQuest(gomock.Any(), int64(42)).Return([]*models.Chapter{prevChapter()}, nil)

	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req engine.GenerateRequest) (*engine.Draft, error) {
			if req.ChapterNumber != 4 {
				t.Errorf("ChapterNumber = %d, want 4", req.ChapterNumber)
			}
			if req.WinningLabel != "Enter" {
				t.Errorf("WinningLabel = %q, want Enter", req.WinningLabel)
			}
			if req.FinalChapter {
				t.Error("chapter 4 of 20 must not be forced final")
			}
			return &engine.Draft{
				Content: "Inside, torches gutter.",
				Options: []string{"Left", "Right"},
			}, nil
		})

	store.EXPECT().
		CreateChapter(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, ch *models.Chapter) error {
			ch.ID = 104
			return nil
		})

	poster.EXPECT().
		Post(gomock.Any(), gomock.Any(), "tw-3").
		DoAndReturn(func(_ context.Context, text, _ string) (string, error) {
			if !strings.Contains(text, "1. Left") || !strings.Contains(text, "2. Right") {
				t.Errorf("tweet missing numbered options: %q", text)
			}
			return "tw-4", nil
		})

	store.EXPECT().MarkChapterPosted(gomock.Any(), int64(104), "tw-4").Return(nil)
	store.EXPECT().
		AdvanceQuest(gomock.Any(), gomock.Any(), 3).
		DoAndReturn(func(_ context.Context, q *models.Quest, _ int) error {
			if q.CurrentChapter != 4 {
				t.Errorf("CurrentChapter = %d, want 4", q.CurrentChapter)
			}
			if q.Status != models.QuestStatusActive {
				t.Errorf("Status = %q, want active", q.Status)
			}
			if q.ChapterDeadline == nil {
				t.Error("advanced quest must carry a new deadline")
			}
			return nil
		})

	chapter, err := pub.Publish(context.Background(), quest, prevChapter(), result)
	if err != nil {
		t.Fatalf("Publish() = %v", err)
	}
	if chapter.PostedTweetID != "tw-4" {
		t.Errorf("PostedTweetID = %q, want tw-4", chapter.PostedTweetID)
	}
}

func TestPublishReusesPersistedDraft(t *testing.T) {
	pub, store, _, poster := newPublisher(t)
	quest := publishQuest()

	// Draft exists from a crashed earlier run; no generation happens.
	draft := &models.Chapter{
		ID:            104,
		QuestID:       42,
		ChapterNumber: 4,
		Content:       "Inside, torches gutter.",
		Options:       []string{"Left", "Right"},
	}
	store.EXPECT().ChapterByNumber(gomock.Any(), int64(42), 4).Return(draft, nil)
	poster.EXPECT().Post(gomock.Any(), gomock.Any(), "tw-3").Return("tw-4", nil)
	store.EXPECT().MarkChapterPosted(gomock.Any(), int64(104), "tw-4").Return(nil)
	store.EXPECT().AdvanceQuest(gomock.Any(), gomock.Any(), 3).Return(nil)

	if _, err := pub.Publish(context.Background(), quest, prevChapter(), engine.TallyResult{}); err != nil {
		t.Fatalf("Publish() = %v", err)
	}
}

func TestPublishSkipsAlreadyPostedChapter(t *testing.T) {
	pub, store, _, _ := newPublisher(t)
	quest := publishQuest()

	// Crash happened after posting but before the pointer bump: recovery
	// must not post again.
	posted := &models.Chapter{
		ID:            104,
		QuestID:       42,
		ChapterNumber: 4,
		Content:       "Inside, torches gutter.",
		Options:       []string{"Left", "Right"},
		PostedTweetID: "tw-4",
	}
	store.EXPECT().ChapterByNumber(gomock.Any(), int64(42), 4).Return(posted, nil)
	store.EXPECT().AdvanceQuest(gomock.Any(), gomock.Any(), 3).Return(nil)

	if _, err := pub.Publish(context.Background(), quest, prevChapter(), engine.TallyResult{}); err != nil {
		t.Fatalf("Publish() = %v", err)
	}
}

func TestPublishRetriesTransientPostFailure(t *testing.T) {
	pub, store, _, poster := newPublisher(t)
	quest := publishQuest()

	draft := &models.Chapter{
		ID:            104,
		QuestID:       42,
		ChapterNumber: 4,
		Content:       "Inside, torches gutter.",
		Options:       []string{"Left", "Right"},
	}
	store.EXPECT().ChapterByNumber(gomock.Any(), int64(42), 4).Return(draft, nil)

	gomock.InOrder(
		poster.EXPECT().Post(gomock.Any(), gomock.Any(), "tw-3").Return("", errors.New("503")),
		poster.EXPECT().Post(gomock.Any(), gomock.Any(), "tw-3").Return("", errors.New("503")),
		poster.EXPECT().Post(gomock.Any(), gomock.Any(), "tw-3").Return("tw-4", nil),
	)
	store.EXPECT().MarkChapterPosted(gomock.Any(), int64(104), "tw-4").Return(nil)
	store.EXPECT().AdvanceQuest(gomock.Any(), gomock.Any(), 3).Return(nil)

	if _, err := pub.Publish(context.Background(), quest, prevChapter(), engine.TallyResult{}); err != nil {
		t.Fatalf("Publish() = %v", err)
	}
}

func TestPublishHoldsQuestOnPermanentGenerationFailure(t *testing.T) {
	pub, store, generator, _ := newPublisher(t)
	quest := publishQuest()

	store.EXPECT().ChapterByNumber(gomock.Any(), int64(42), 4).Return(nil, nil)
	store.EXPECT().ChaptersForQuest(gomock.Any(), int64(42)).Return([]*models.Chapter{prevChapter()}, nil)

	// A permanent rejection must not burn the remaining attempts.
	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("content rejected: %w", engine.ErrPermanent)).
		Times(1)

	store.EXPECT().
		UpdateQuest(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, q *models.Quest) error {
			if q.ChapterDeadline != nil {
				t.Error("held quest must not carry a deadline")
			}
			if q.CurrentState.HeldReason == "" {
				t.Error("hold must record a reason")
			}
			return nil
		})

	_, err := pub.Publish(context.Background(), quest, prevChapter(), engine.TallyResult{})
	if err == nil {
		t.Fatal("Publish() must fail on permanent generation error")
	}
	if quest.CurrentChapter != 3 {
		t.Errorf("CurrentChapter = %d, pointer must not move on failure", quest.CurrentChapter)
	}
}

func TestPublishCompletesOnFinalChapter(t *testing.T) {
	pub, store, generator, poster := newPublisher(t)
	quest := publishQuest()

	store.EXPECT().ChapterByNumber(gomock.Any(), int64(42), 4).Return(nil, nil)
	store.EXPECT().ChaptersForQuest(gomock.Any(), int64(42)).Return([]*models.Chapter{prevChapter()}, nil)
	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		Return(&engine.Draft{Content: "And so it ends.", IsFinal: true}, nil)
	store.EXPECT().
		CreateChapter(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, ch *models.Chapter) error {
			ch.ID = 104
			return nil
		})
	poster.EXPECT().
		Post(gomock.Any(), gomock.Any(), "tw-3").
		DoAndReturn(func(_ context.Context, text, _ string) (string, error) {
			if strings.Contains(text, "Reply to vote!") {
				t.Errorf("final chapter must not prompt for votes: %q", text)
			}
			return "tw-final", nil
		})
	store.EXPECT().MarkChapterPosted(gomock.Any(), int64(104), "tw-final").Return(nil)
	store.EXPECT().
		AdvanceQuest(gomock.Any(), gomock.Any(), 3).
		DoAndReturn(func(_ context.Context, q *models.Quest, _ int) error {
			if q.Status != models.QuestStatusCompleted {
				t.Errorf("Status = %q, want completed", q.Status)
			}
			if q.ChapterDeadline != nil {
				t.Error("completed quest must not carry a deadline")
			}
			return nil
		})

	chapter, err := pub.Publish(context.Background(), quest, prevChapter(), engine.TallyResult{})
	if err != nil {
		t.Fatalf("Publish() = %v", err)
	}
	if !chapter.IsFinal {
		t.Error("chapter must be final")
	}
}

func TestComposeTweet(t *testing.T) {
	chapter := &models.Chapter{
		Content: "The gate creaks open.",
		Options: []string{"Enter", "Retreat"},
	}

	text := engine.ComposeTweet(chapter)
	for _, want := range []string{"The gate creaks open.", "1. Enter", "2. Retreat", "Reply to vote!"} {
		if !strings.Contains(text, want) {
			t.Errorf("tweet %q missing %q", text, want)
		}
	}

	chapter.IsFinal = true
	if text := engine.ComposeTweet(chapter); strings.Contains(text, "Reply to vote!") {
		t.Errorf("final tweet must not prompt for votes: %q", text)
	}
}
