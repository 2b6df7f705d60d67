package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Chapter rows are append-only: one per advancement, never mutated after the
// posted tweet id is set.
type Chapter struct {
	bun.BaseModel `bun:"table:chapters,alias:c"`

	ID            int64    `bun:"id,pk"`
	QuestID       int64    `bun:"quest_id,notnull"`
	ChapterNumber int      `bun:"chapter_number,notnull"`
	Content       string   `bun:"content,notnull"`
	Options       []string `bun:"options,type:jsonb"`
	Sources       []string `bun:"sources,type:jsonb"`
	IsFinal       bool     `bun:"is_final,notnull,default:false"`
	PostedTweetID string   `bun:"posted_tweet_id"`
	MediaURL      string   `bun:"media_url"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Posted reports whether the chapter's external artifact exists.
func (c *Chapter) Posted() bool {
	return c.PostedTweetID != ""
}
