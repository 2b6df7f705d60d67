package migration

import (
	"strings"
	"time"

	"github.com/questweave/questweave/questweave/database/models"
	"github.com/questweave/questweave/questweave/idgen"
)

// legacy status strings differed from the current enum
func convertStatus(s string) models.QuestStatus {
	switch strings.ToLower(s) {
	case "done", "finished", "completed":
		return models.QuestStatusCompleted
	case "dead", "abandoned", "archived":
		return models.QuestStatusArchived
	default:
		return models.QuestStatusActive
	}
}

func (m *Migrator) convertQuest(mq MongoQuest) *models.Quest {
	now := time.Now()
	created := now
	if mq.Created != nil {
		created = *mq.Created
	}

	quest := &models.Quest{
		ID:                idgen.Next(),
		Title:             cleanseString(mq.Title),
		Premise:           cleanseString(mq.Premise),
		Status:            convertStatus(mq.Status),
		CurrentChapter:    mq.Chapter,
		LastPostedTweetID: mq.TweetID,
		CreatedAt:         created,
		UpdatedAt:         now,
	}

	// Migrated quests only carry a deadline while still active; terminal
	// quests must never re-enter the schedule.
	if quest.Status == models.QuestStatusActive && mq.Deadline != nil {
		d := *mq.Deadline
		quest.ChapterDeadline = &d
	}

	shortID, err := idgen.NewShortID()
	if err == nil {
		quest.ShortID = shortID
	}

	m.questIDs[mq.ID] = quest.ID
	return quest
}

func (m *Migrator) convertChapter(mc MongoChapter) *models.Chapter {
	questID, ok := m.questIDs[mc.QuestID]
	if !ok {
		return nil
	}

	return &models.Chapter{
		ID:            idgen.Next(),
		QuestID:       questID,
		ChapterNumber: mc.Number,
		Content:       cleanseString(mc.Text),
		Options:       mc.Options,
		IsFinal:       mc.Final,
		PostedTweetID: mc.TweetID,
		CreatedAt:     time.Now(),
	}
}

func (m *Migrator) convertVote(mv MongoVote) *models.ChapterVote {
	questID, ok := m.questIDs[mv.QuestID]
	if !ok {
		return nil
	}
	chapterID, ok := m.chapterIDs[chapterKey{mv.QuestID, mv.Chapter}]
	if !ok {
		return nil
	}

	votedAt := time.Now()
	if mv.VotedAt != nil {
		votedAt = *mv.VotedAt
	}

	return &models.ChapterVote{
		ID:             idgen.Next(),
		QuestID:        questID,
		ChapterID:      chapterID,
		UserID:         mv.UserID,
		SelectedOption: mv.Option,
		ReplyText:      cleanseString(mv.Text),
		VotedAt:        votedAt,
		CreatedAt:      time.Now(),
	}
}

// cleanseString strips null bytes that Postgres text columns reject.
func cleanseString(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\x00", "")
}
