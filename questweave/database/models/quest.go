package models

import (
	"time"

	"github.com/uptrace/bun"
)

type QuestStatus string

const (
	QuestStatusActive    QuestStatus = "active"
	QuestStatusCompleted QuestStatus = "completed"
	QuestStatusArchived  QuestStatus = "archived"
)

// Terminal reports whether the quest accepts no further transitions.
func (s QuestStatus) Terminal() bool {
	return s == QuestStatusCompleted || s == QuestStatusArchived
}

// QuestState is engine-side bookkeeping persisted alongside the quest row.
// It never drives presentation; timeline_data does.
type QuestState struct {
	IdleChapters  int    `json:"idle_chapters"`
	HeldReason    string `json:"held_reason,omitempty"`
	HeldAt        string `json:"held_at,omitempty"`
	ArchiveReason string `json:"archive_reason,omitempty"`
}

// TimelineEntry is one denormalized history record appended per publish.
type TimelineEntry struct {
	ChapterNumber int       `json:"chapter_number"`
	TweetID       string    `json:"tweet_id"`
	WinningOption int       `json:"winning_option"`
	WinningLabel  string    `json:"winning_label,omitempty"`
	VoteCounts    []int     `json:"vote_counts,omitempty"`
	Participation int       `json:"participation"`
	PostedAt      time.Time `json:"posted_at"`
}

type Quest struct {
	bun.BaseModel `bun:"table:quests,alias:q"`

	ID                int64           `bun:"id,pk"`
	ShortID           string          `bun:"short_id,notnull,unique"`
	Title             string          `bun:"title,notnull"`
	Premise           string          `bun:"premise"`
	Status            QuestStatus     `bun:"status,notnull"`
	CurrentChapter    int             `bun:"current_chapter,notnull"`
	ChapterDeadline   *time.Time      `bun:"chapter_deadline"`
	LastPostedTweetID string          `bun:"last_posted_tweet_id"`
	CurrentState      QuestState      `bun:"current_state,type:jsonb"`
	TimelineData      []TimelineEntry `bun:"timeline_data,type:jsonb"`

	// Per-quest lease; the owner is the only writer of engine state while
	// lease_expires is in the future.
	LeaseOwner   string     `bun:"lease_owner"`
	LeaseExpires *time.Time `bun:"lease_expires"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
