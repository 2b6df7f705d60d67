package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ChapterVote is one interpreted ballot. Rows are append-only; a user may
// reply more than once per chapter and the tally decides which ballot counts.
type ChapterVote struct {
	bun.BaseModel `bun:"table:chapter_votes,alias:cv"`

	ID             int64     `bun:"id,pk"`
	QuestID        int64     `bun:"quest_id,notnull"`
	ChapterID      int64     `bun:"chapter_id,notnull"`
	UserID         string    `bun:"user_id,notnull"`
	SelectedOption int       `bun:"selected_option,notnull"`
	ReplyText      string    `bun:"reply_text"`
	ReplyTweetID   string    `bun:"reply_tweet_id"`
	Interpretation string    `bun:"interpretation"`
	Confidence     float64   `bun:"confidence"`
	VotedAt        time.Time `bun:"voted_at,notnull"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

const (
	QuestVoteContinue = "continue"
	QuestVoteStop     = "stop"
)

// QuestVote is a quest-level continuation signal, one row per (quest, user).
type QuestVote struct {
	bun.BaseModel `bun:"table:quest_votes,alias:qv"`

	ID      int64  `bun:"id,pk"`
	QuestID int64  `bun:"quest_id,notnull"`
	UserID  string `bun:"user_id,notnull"`
	Vote    string `bun:"vote,notnull"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
