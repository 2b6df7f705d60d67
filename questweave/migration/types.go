package migration

import "time"

// Legacy document shapes from the original Mongo-backed prototype. Field
// names mirror the old collections exactly; conversion happens in the
// converters, never here.
type MongoQuest struct {
	ID       string     `bson:"_id"`
	Title    string     `bson:"title"`
	Premise  string     `bson:"premise"`
	Status   string     `bson:"status"`
	Chapter  int        `bson:"chapter"`
	Deadline *time.Time `bson:"deadline"`
	TweetID  string     `bson:"tweet_id"`
	Created  *time.Time `bson:"created"`
}

type MongoChapter struct {
	ID      string   `bson:"_id"`
	QuestID string   `bson:"quest"`
	Number  int      `bson:"number"`
	Text    string   `bson:"text"`
	Options []string `bson:"options"`
	Final   bool     `bson:"final"`
	TweetID string   `bson:"tweet_id"`
}

type MongoVote struct {
	ID      string     `bson:"_id"`
	QuestID string     `bson:"quest"`
	Chapter int        `bson:"chapter"`
	UserID  string     `bson:"user"`
	Option  int        `bson:"option"`
	Text    string     `bson:"text"`
	VotedAt *time.Time `bson:"voted_at"`
}

type TableStats struct {
	Read     int
	Imported int
	Skipped  int
}

type MigrationStats struct {
	Tables    map[string]*TableStats
	StartTime time.Time
	EndTime   time.Time
}
