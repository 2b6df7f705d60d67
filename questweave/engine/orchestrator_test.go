package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/questweave/questweave/questweave/database/models"
	"github.com/questweave/questweave/questweave/engine"
	"github.com/questweave/questweave/questweave/engine/mock"
)

func newOrchestrator(t *testing.T) (*engine.Orchestrator, *mock.MockStore, *mock.MockGenerator, *mock.MockPoster) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockStore(ctrl)
	generator := mock.NewMockGenerator(ctrl)
	poster := mock.NewMockPoster(ctrl)

	return engine.NewOrchestrator(store, generator, poster, publisherConfig()), store, generator, poster
}

func TestAdvanceLeaseHeldElsewhere(t *testing.T) {
	orch, store, _, _ := newOrchestrator(t)

	store.EXPECT().
		AcquireLease(gomock.Any(), int64(42), orch.WorkerID(), 2*time.Minute).
		Return(false, nil)

	_, err := orch.Advance(context.Background(), 42)
	if !errors.Is(err, engine.ErrLeaseHeld) {
		t.Errorf("Advance() = %v, want ErrLeaseHeld", err)
	}
}

func TestAdvanceTerminalQuestIsNoOp(t *testing.T) {
	orch, store, _, _ := newOrchestrator(t)

	store.EXPECT().AcquireLease(gomock.Any(), int64(42), gomock.Any(), gomock.Any()).Return(true, nil)
	store.EXPECT().QuestByID(gomock.Any(), int64(42)).
		Return(&models.Quest{ID: 42, Status: models.QuestStatusCompleted}, nil)
	store.EXPECT().ReleaseLease(gomock.Any(), int64(42), gomock.Any()).Return(nil)

	status, err := orch.Advance(context.Background(), 42)
	if err != nil {
		t.Fatalf("Advance() = %v, want nil", err)
	}
	if status != models.QuestStatusCompleted {
		t.Errorf("status = %q, want completed", status)
	}
}

func TestAdvanceNotDueIsNoOp(t *testing.T) {
	orch, store, _, _ := newOrchestrator(t)
	future := time.Now().Add(time.Hour)

	store.EXPECT().AcquireLease(gomock.Any(), int64(42), gomock.Any(), gomock.Any()).Return(true, nil)
	store.EXPECT().QuestByID(gomock.Any(), int64(42)).
		Return(&models.Quest{ID: 42, Status: models.QuestStatusActive, ChapterDeadline: &future}, nil)
	store.EXPECT().ReleaseLease(gomock.Any(), int64(42), gomock.Any()).Return(nil)

	if _, err := orch.Advance(context.Background(), 42); err != nil {
		t.Fatalf("Advance() = %v, want nil", err)
	}
}

func TestAdvanceHoldsQuestWithMissingChapter(t *testing.T) {
	orch, store, _, _ := newOrchestrator(t)
	quest := publishQuest()

	store.EXPECT().AcquireLease(gomock.Any(), int64(42), gomock.Any(), gomock.Any()).Return(true, nil)
	store.EXPECT().QuestByID(gomock.Any(), int64(42)).Return(quest, nil)
	store.EXPECT().ChapterByNumber(gomock.Any(), int64(42), 3).Return(nil, nil)
	store.EXPECT().
		UpdateQuest(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, q *models.Quest) error {
			if q.ChapterDeadline != nil {
				t.Error("held quest must not carry a deadline")
			}
			return nil
		})
	store.EXPECT().ReleaseLease(gomock.Any(), int64(42), gomock.Any()).Return(nil)

	if _, err := orch.Advance(context.Background(), 42); err == nil {
		t.Fatal("Advance() must fail when the current chapter is missing")
	}
}

func TestAdvanceArchivesOnCommunityStopVote(t *testing.T) {
	orch, store, _, _ := newOrchestrator(t)
	quest := publishQuest()

	stopVotes := []*models.QuestVote{
		{Vote: models.QuestVoteStop},
		{Vote: models.QuestVoteStop},
		{Vote: models.QuestVoteStop},
		{Vote: models.QuestVoteStop},
		{Vote: models.QuestVoteStop},
		{Vote: models.QuestVoteContinue},
	}

	store.EXPECT().AcquireLease(gomock.Any(), int64(42), gomock.Any(), gomock.Any()).Return(true, nil)
	store.EXPECT().QuestByID(gomock.Any(), int64(42)).Return(quest, nil)
	store.EXPECT().ChapterByNumber(gomock.Any(), int64(42), 3).Return(prevChapter(), nil)
	store.EXPECT().VotesForChapter(gomock.Any(), int64(103), gomock.Any()).Return(nil, nil)
	store.EXPECT().QuestVotes(gomock.Any(), int64(42)).Return(stopVotes, nil)
	store.EXPECT().
		UpdateQuest(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, q *models.Quest) error {
			if q.Status != models.QuestStatusArchived {
				t.Errorf("Status = %q, want archived", q.Status)
			}
			if q.CurrentState.ArchiveReason == "" {
				t.Error("archive must record a reason")
			}
			return nil
		})
	store.EXPECT().ReleaseLease(gomock.Any(), int64(42), gomock.Any()).Return(nil)

	if _, err := orch.Advance(context.Background(), 42); err != nil {
		t.Fatalf("Advance() = %v", err)
	}
}

func TestAdvanceFullCycle(t *testing.T) {
	orch, store, generator, poster := newOrchestrator(t)
	quest := publishQuest()
	deadline := *quest.ChapterDeadline

	votes := []*models.ChapterVote{
		{ChapterID: 103, UserID: "u1", SelectedOption: 0, VotedAt: deadline.Add(-2 * time.Hour)},
		{ChapterID: 103, UserID: "u2", SelectedOption: 1, VotedAt: deadline.Add(-time.Hour)},
		{ChapterID: 103, UserID: "u3", SelectedOption: 1, VotedAt: deadline.Add(-time.Minute)},
	}

	store.EXPECT().AcquireLease(gomock.Any(), int64(42), gomock.Any(), gomock.Any()).Return(true, nil)
	store.EXPECT().QuestByID(gomock.Any(), int64(42)).Return(quest, nil)
	store.EXPECT().ChapterByNumber(gomock.Any(), int64(42), 3).Return(prevChapter(), nil)
	store.EXPECT().VotesForChapter(gomock.Any(), int64(103), deadline).Return(votes, nil)
	store.EXPECT().QuestVotes(gomock.Any(), int64(42)).Return(nil, nil)

	store.EXPECT().ChapterByNumber(gomock.Any(), int64(42), 4).Return(nil, nil)
	store.EXPECT().ChaptersForQuest(gomock.Any(), int64(42)).Return([]*models.Chapter{prevChapter()}, nil)
	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req engine.GenerateRequest) (*engine.Draft, error) {
			if req.WinningOption != 1 || req.WinningLabel != "Retreat" {
				t.Errorf("winning option = %d %q, want 1 Retreat", req.WinningOption, req.WinningLabel)
			}
			return &engine.Draft{Content: "You fall back.", Options: []string{"Regroup", "Flee"}}, nil
		})
	store.EXPECT().
		CreateChapter(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, ch *models.Chapter) error {
			ch.ID = 104
			return nil
		})
	poster.EXPECT().Post(gomock.Any(), gomock.Any(), "tw-3").Return("tw-4", nil)
	store.EXPECT().MarkChapterPosted(gomock.Any(), int64(104), "tw-4").Return(nil)
	store.EXPECT().AdvanceQuest(gomock.Any(), gomock.Any(), 3).Return(nil)
	store.EXPECT().ReleaseLease(gomock.Any(), int64(42), gomock.Any()).Return(nil)

	if _, err := orch.Advance(context.Background(), 42); err != nil {
		t.Fatalf("Advance() = %v", err)
	}
}

func TestResumeClearsHold(t *testing.T) {
	orch, store, _, _ := newOrchestrator(t)
	quest := &models.Quest{
		ID:     42,
		Status: models.QuestStatusActive,
		CurrentState: models.QuestState{
			HeldReason: "posting failed: 403",
			HeldAt:     "2025-06-01T12:00:00Z",
		},
	}

	store.EXPECT().AcquireLease(gomock.Any(), int64(42), gomock.Any(), gomock.Any()).Return(true, nil)
	store.EXPECT().QuestByID(gomock.Any(), int64(42)).Return(quest, nil)
	store.EXPECT().UpdateQuest(gomock.Any(), gomock.Any()).Return(nil)
	store.EXPECT().ReleaseLease(gomock.Any(), int64(42), gomock.Any()).Return(nil)

	resumed, err := orch.Resume(context.Background(), 42)
	if err != nil {
		t.Fatalf("Resume() = %v", err)
	}
	if resumed.ChapterDeadline == nil {
		t.Error("resumed quest must carry a deadline")
	}
	if resumed.CurrentState.HeldReason != "" {
		t.Error("resume must clear the hold reason")
	}
}
