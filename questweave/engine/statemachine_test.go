package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/questweave/questweave/questweave/database/models"
)

func testConfig() Config {
	return Config{
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

func activeQuest(deadline *time.Time) *models.Quest {
	return &models.Quest{
		ID:              42,
		ShortID:         "QW-TEST42",
		Title:           "The Hollow Citadel",
		Status:          models.QuestStatusActive,
		CurrentChapter:  3,
		ChapterDeadline: deadline,
	}
}

func TestCheckRunnable(t *testing.T) {
	sm := NewStateMachine(testConfig())
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name    string
		quest   *models.Quest
		wantErr error
	}{
		{"elapsed deadline runs", activeQuest(&past), nil},
		{"future deadline is not due", activeQuest(&future), ErrNotDue},
		{"nil deadline is held", activeQuest(nil), ErrQuestHeld},
		{
			"completed quest is terminal",
			&models.Quest{Status: models.QuestStatusCompleted},
			ErrQuestTerminal,
		},
		{
			"archived quest is terminal even with deadline",
			&models.Quest{Status: models.QuestStatusArchived, ChapterDeadline: &past},
			ErrQuestTerminal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sm.CheckRunnable(tt.quest, now)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckRunnable() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestShouldArchive(t *testing.T) {
	sm := NewStateMachine(testConfig())

	questVotes := func(stop, cont int) []*models.QuestVote {
		var votes []*models.QuestVote
		for i := 0; i < stop; i++ {
			votes = append(votes, &models.QuestVote{Vote: models.QuestVoteStop})
		}
		for i := 0; i < cont; i++ {
			votes = append(votes, &models.QuestVote{Vote: models.QuestVoteContinue})
		}
		return votes
	}

	tests := []struct {
		name          string
		stop, cont    int
		idleChapters  int
		participation int
		want          bool
	}{
		{"stop majority archives", 4, 1, 0, 3, true},
		{"stop share below threshold continues", 3, 2, 0, 3, false},
		{"too few poll votes never archives", 3, 0, 0, 3, false},
		{"idle limit reached on silent deadline", 0, 0, 2, 0, true},
		{"idle counter below limit continues", 0, 0, 1, 0, false},
		{"participation resets idle concern", 0, 0, 2, 4, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quest := activeQuest(nil)
			quest.CurrentState.IdleChapters = tt.idleChapters

			got, reason := sm.ShouldArchive(quest, questVotes(tt.stop, tt.cont), tt.participation)
			if got != tt.want {
				t.Errorf("ShouldArchive() = %v (%q), want %v", got, reason, tt.want)
			}
			if got && reason == "" {
				t.Error("archival must carry a reason")
			}
		})
	}
}

func TestApplyAdvance(t *testing.T) {
	sm := NewStateMachine(testConfig())
	now := time.Now()
	quest := activeQuest(nil)

	chapter := &models.Chapter{
		ChapterNumber: 4,
		PostedTweetID: "tw-4",
		Options:       []string{"a", "b"},
	}
	result := TallyResult{WinningOption: 1, VoteCounts: []int{1, 3}, Participation: 4}

	sm.ApplyAdvance(quest, chapter, result, "b", now)

	if quest.CurrentChapter != 4 {
		t.Errorf("CurrentChapter = %d, want 4", quest.CurrentChapter)
	}
	if quest.ChapterDeadline == nil || !quest.ChapterDeadline.Equal(now.Add(24*time.Hour)) {
		t.Errorf("ChapterDeadline = %v, want %v", quest.ChapterDeadline, now.Add(24*time.Hour))
	}
	if quest.LastPostedTweetID != "tw-4" {
		t.Errorf("LastPostedTweetID = %q, want tw-4", quest.LastPostedTweetID)
	}
	if quest.CurrentState.IdleChapters != 0 {
		t.Errorf("IdleChapters = %d, want 0", quest.CurrentState.IdleChapters)
	}
	if len(quest.TimelineData) != 1 {
		t.Fatalf("TimelineData has %d entries, want 1", len(quest.TimelineData))
	}
	entry := quest.TimelineData[0]
	if entry.ChapterNumber != 4 || entry.WinningOption != 1 || entry.WinningLabel != "b" {
		t.Errorf("unexpected timeline entry %+v", entry)
	}
}

func TestApplyAdvanceIdleCounter(t *testing.T) {
	sm := NewStateMachine(testConfig())
	quest := activeQuest(nil)
	chapter := &models.Chapter{ChapterNumber: 4, PostedTweetID: "tw"}

	sm.ApplyAdvance(quest, chapter, TallyResult{}, "", time.Now())
	if quest.CurrentState.IdleChapters != 1 {
		t.Errorf("IdleChapters after silent deadline = %d, want 1", quest.CurrentState.IdleChapters)
	}

	sm.ApplyAdvance(quest, chapter, TallyResult{Participation: 2}, "", time.Now())
	if quest.CurrentState.IdleChapters != 0 {
		t.Errorf("IdleChapters after participation = %d, want 0", quest.CurrentState.IdleChapters)
	}
}

func TestApplyComplete(t *testing.T) {
	sm := NewStateMachine(testConfig())
	quest := activeQuest(nil)
	chapter := &models.Chapter{ChapterNumber: 20, PostedTweetID: "tw-final", IsFinal: true}

	sm.ApplyComplete(quest, chapter, TallyResult{Participation: 2}, "", time.Now())

	if quest.Status != models.QuestStatusCompleted {
		t.Errorf("Status = %q, want completed", quest.Status)
	}
	if quest.ChapterDeadline != nil {
		t.Error("completed quest must not carry a deadline")
	}
}

func TestApplyHoldAndResume(t *testing.T) {
	sm := NewStateMachine(testConfig())
	now := time.Now()
	deadline := now.Add(time.Hour)
	quest := activeQuest(&deadline)

	sm.ApplyHold(quest, "posting failed: 403", now)
	if quest.ChapterDeadline != nil {
		t.Error("held quest must not carry a deadline")
	}
	if quest.Status != models.QuestStatusActive {
		t.Errorf("hold must not change status, got %q", quest.Status)
	}
	if quest.CurrentState.HeldReason == "" || quest.CurrentState.HeldAt == "" {
		t.Error("hold must record reason and time")
	}

	if err := sm.Resume(quest, now); err != nil {
		t.Fatalf("Resume() = %v", err)
	}
	if quest.ChapterDeadline == nil {
		t.Error("resume must re-arm the deadline")
	}
	if quest.CurrentState.HeldReason != "" || quest.CurrentState.HeldAt != "" {
		t.Error("resume must clear the hold record")
	}
}

func TestResumeTerminal(t *testing.T) {
	sm := NewStateMachine(testConfig())
	quest := &models.Quest{Status: models.QuestStatusArchived}

	if err := sm.Resume(quest, time.Now()); !errors.Is(err, ErrQuestTerminal) {
		t.Errorf("Resume() = %v, want ErrQuestTerminal", err)
	}
	if quest.ChapterDeadline != nil {
		t.Error("terminal quest must stay unscheduled")
	}
}

func TestApplyArchive(t *testing.T) {
	sm := NewStateMachine(testConfig())
	deadline := time.Now()
	quest := activeQuest(&deadline)

	sm.ApplyArchive(quest, "community stop vote (5 of 6)", time.Now())

	if quest.Status != models.QuestStatusArchived {
		t.Errorf("Status = %q, want archived", quest.Status)
	}
	if quest.ChapterDeadline != nil {
		t.Error("archived quest must not carry a deadline")
	}
	if quest.CurrentState.ArchiveReason == "" {
		t.Error("archive must record a reason")
	}
}
