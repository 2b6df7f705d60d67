package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Execution records one elimination event of the duel side mechanic. The
// progression engine only reads these; adjacent mechanics write them.
type Execution struct {
	bun.BaseModel `bun:"table:executions,alias:e"`

	ID           int64     `bun:"id,pk"`
	QuestID      int64     `bun:"quest_id,notnull"`
	UserID       string    `bun:"user_id,notnull"`
	Side         string    `bun:"side"`
	RoastText    string    `bun:"roast_text"`
	TombstoneURL string    `bun:"tombstone_url"`
	EliminatedAt time.Time `bun:"eliminated_at,notnull"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
