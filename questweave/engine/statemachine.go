package engine

import (
	"fmt"
	"time"

	"github.com/questweave/questweave/questweave/database/models"
)

// StateMachine owns QuestStatus transitions and chapter-number advancement.
// It only mutates in-memory quest structs; the orchestrator persists them
// under the quest lease, making this the single logical writer of
// current_chapter, chapter_deadline and last_posted_tweet_id.
type StateMachine struct {
	cfg Config
}

func NewStateMachine(cfg Config) *StateMachine {
	return &StateMachine{cfg: cfg}
}

// CheckRunnable guards a progression attempt. The returned sentinels are
// expected no-op conditions, not failures.
func (sm *StateMachine) CheckRunnable(quest *models.Quest, now time.Time) error {
	if quest.Status.Terminal() {
		return ErrQuestTerminal
	}
	if quest.ChapterDeadline == nil {
		return ErrQuestHeld
	}
	if now.Before(*quest.ChapterDeadline) {
		return ErrNotDue
	}
	return nil
}

// ShouldArchive decides early archival from the continuation poll and the
// idle-deadline counter. participation is the current chapter's counted
// ballots.
func (sm *StateMachine) ShouldArchive(quest *models.Quest, questVotes []*models.QuestVote, participation int) (bool, string) {
	if len(questVotes) >= sm.cfg.AbandonMinVotes {
		stop := 0
		for _, v := range questVotes {
			if v.Vote == models.QuestVoteStop {
				stop++
			}
		}
		share := float64(stop) / float64(len(questVotes))
		if share >= sm.cfg.AbandonThreshold {
			return true, fmt.Sprintf("community stop vote (%d of %d)", stop, len(questVotes))
		}
	}

	if participation == 0 && quest.CurrentState.IdleChapters+1 >= sm.cfg.IdleChapterLimit {
		return true, fmt.Sprintf("no participation for %d consecutive deadlines", quest.CurrentState.IdleChapters+1)
	}

	return false, ""
}

// ApplyAdvance moves the quest pointer to a freshly published non-final
// chapter and re-arms the voting window.
func (sm *StateMachine) ApplyAdvance(quest *models.Quest, chapter *models.Chapter, result TallyResult, winningLabel string, now time.Time) {
	deadline := now.Add(sm.cfg.VotingWindow)
	quest.Status = models.QuestStatusActive
	quest.CurrentChapter = chapter.ChapterNumber
	quest.ChapterDeadline = &deadline
	quest.LastPostedTweetID = chapter.PostedTweetID
	sm.trackIdle(quest, result.Participation)
	sm.appendTimeline(quest, chapter, result, winningLabel, now)
}

// ApplyComplete finishes the quest on a terminal chapter. Terminal states
// never carry a deadline.
func (sm *StateMachine) ApplyComplete(quest *models.Quest, chapter *models.Chapter, result TallyResult, winningLabel string, now time.Time) {
	quest.Status = models.QuestStatusCompleted
	quest.CurrentChapter = chapter.ChapterNumber
	quest.ChapterDeadline = nil
	quest.LastPostedTweetID = chapter.PostedTweetID
	sm.trackIdle(quest, result.Participation)
	sm.appendTimeline(quest, chapter, result, winningLabel, now)
}

// ApplyArchive retires the quest without publishing anything further.
func (sm *StateMachine) ApplyArchive(quest *models.Quest, reason string, now time.Time) {
	quest.Status = models.QuestStatusArchived
	quest.ChapterDeadline = nil
	quest.CurrentState.ArchiveReason = reason
}

// ApplyHold pauses the quest at the current chapter for operator review:
// deadline cleared, status untouched, reason recorded.
func (sm *StateMachine) ApplyHold(quest *models.Quest, reason string, now time.Time) {
	quest.ChapterDeadline = nil
	quest.CurrentState.HeldReason = reason
	quest.CurrentState.HeldAt = now.UTC().Format(time.RFC3339)
}

// Resume clears a hold and re-arms the deadline. Operator entry point; no-op
// on terminal quests.
func (sm *StateMachine) Resume(quest *models.Quest, now time.Time) error {
	if quest.Status.Terminal() {
		return ErrQuestTerminal
	}
	deadline := now.Add(sm.cfg.VotingWindow)
	quest.ChapterDeadline = &deadline
	quest.CurrentState.HeldReason = ""
	quest.CurrentState.HeldAt = ""
	return nil
}

func (sm *StateMachine) trackIdle(quest *models.Quest, participation int) {
	if participation == 0 {
		quest.CurrentState.IdleChapters++
	} else {
		quest.CurrentState.IdleChapters = 0
	}
}

func (sm *StateMachine) appendTimeline(quest *models.Quest, chapter *models.Chapter, result TallyResult, winningLabel string, now time.Time) {
	quest.TimelineData = append(quest.TimelineData, models.TimelineEntry{
		ChapterNumber: chapter.ChapterNumber,
		TweetID:       chapter.PostedTweetID,
		WinningOption: result.WinningOption,
		WinningLabel:  winningLabel,
		VoteCounts:    result.VoteCounts,
		Participation: result.Participation,
		PostedAt:      now,
	})
}
