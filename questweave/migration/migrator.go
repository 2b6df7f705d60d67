// Package migration imports quest data from the legacy Mongo-backed
// prototype into Postgres. It reads either a live Mongo database or raw
// .bson dump files and preserves referential order: quests, then chapters,
// then votes.
package migration

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/questweave/questweave/questweave/database/models"
)

type chapterKey struct {
	questID string
	number  int
}

type Migrator struct {
	pgDB      *bun.DB
	dataDir   string
	batchSize int
	stats     MigrationStats

	// Optional direct Mongo access; dump files are the default path.
	mongoDB *mongo.Database

	// Legacy string ids mapped to the snowflake ids assigned on import.
	questIDs   map[string]int64
	chapterIDs map[chapterKey]int64
}

func NewMigrator(pgDB *bun.DB, dataDir string) *Migrator {
	return &Migrator{
		pgDB:      pgDB,
		dataDir:   dataDir,
		batchSize: 500,
		stats: MigrationStats{
			Tables:    make(map[string]*TableStats),
			StartTime: time.Now(),
		},
		questIDs:   make(map[string]int64),
		chapterIDs: make(map[chapterKey]int64),
	}
}

// UseMongo switches the migrator to read from a live database instead of
// dump files.
func (m *Migrator) UseMongo(client *mongo.Client, dbName string) {
	if client != nil && dbName != "" {
		m.mongoDB = client.Database(dbName)
	}
}

func (m *Migrator) SetBatchSize(size int) {
	if size > 0 {
		m.batchSize = size
	}
}

// MigrateAll runs every step in dependency order.
func (m *Migrator) MigrateAll(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"quests", m.migrateQuests},
		{"chapters", m.migrateChapters},
		{"votes", m.migrateVotes},
	}

	for _, step := range steps {
		slog.Info("Starting migration step", slog.String("step", step.name))
		if err := step.fn(ctx); err != nil {
			return fmt.Errorf("migration failed at step %s: %w", step.name, err)
		}
		slog.Info("Completed migration step", slog.String("step", step.name))
	}

	m.stats.EndTime = time.Now()
	m.logFinalStats()
	return nil
}

func (m *Migrator) migrateQuests(ctx context.Context) error {
	docs, err := loadDocs[MongoQuest](ctx, m, "quests")
	if err != nil {
		return err
	}

	stats := m.tableStats("quests")
	stats.Read = len(docs)

	var batch []*models.Quest
	for _, doc := range docs {
		if doc.Title == "" {
			stats.Skipped++
			continue
		}
		batch = append(batch, m.convertQuest(doc))
		if len(batch) >= m.batchSize {
			if err := batchInsert(ctx, m.pgDB, &batch); err != nil {
				return err
			}
			stats.Imported += len(batch)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := batchInsert(ctx, m.pgDB, &batch); err != nil {
			return err
		}
		stats.Imported += len(batch)
	}
	return nil
}

func (m *Migrator) migrateChapters(ctx context.Context) error {
	docs, err := loadDocs[MongoChapter](ctx, m, "chapters")
	if err != nil {
		return err
	}

	stats := m.tableStats("chapters")
	stats.Read = len(docs)

	var batch []*models.Chapter
	for _, doc := range docs {
		chapter := m.convertChapter(doc)
		if chapter == nil {
			stats.Skipped++
			continue
		}
		m.chapterIDs[chapterKey{doc.QuestID, doc.Number}] = chapter.ID
		batch = append(batch, chapter)
		if len(batch) >= m.batchSize {
			if err := batchInsert(ctx, m.pgDB, &batch); err != nil {
				return err
			}
			stats.Imported += len(batch)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := batchInsert(ctx, m.pgDB, &batch); err != nil {
			return err
		}
		stats.Imported += len(batch)
	}
	return nil
}

func (m *Migrator) migrateVotes(ctx context.Context) error {
	docs, err := loadDocs[MongoVote](ctx, m, "votes")
	if err != nil {
		return err
	}

	stats := m.tableStats("votes")
	stats.Read = len(docs)

	var batch []*models.ChapterVote
	for _, doc := range docs {
		vote := m.convertVote(doc)
		if vote == nil {
			stats.Skipped++
			continue
		}
		batch = append(batch, vote)
		if len(batch) >= m.batchSize {
			if err := batchInsert(ctx, m.pgDB, &batch); err != nil {
				return err
			}
			stats.Imported += len(batch)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := batchInsert(ctx, m.pgDB, &batch); err != nil {
			return err
		}
		stats.Imported += len(batch)
	}
	return nil
}

// loadDocs reads one legacy collection, either from live Mongo or from a
// <name>.bson dump in the data directory.
func loadDocs[T any](ctx context.Context, m *Migrator, name string) ([]T, error) {
	if m.mongoDB != nil {
		return loadFromMongo[T](ctx, m.mongoDB, name)
	}
	return loadFromDump[T](filepath.Join(m.dataDir, name+".bson"))
}

func loadFromMongo[T any](ctx context.Context, db *mongo.Database, name string) ([]T, error) {
	cur, err := db.Collection(name).Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", name, err)
	}
	defer cur.Close(ctx)

	var docs []T
	for cur.Next(ctx) {
		var doc T
		if err := cur.Decode(&doc); err != nil {
			slog.Warn("Skipping undecodable document",
				slog.String("collection", name),
				slog.Any("error", err))
			continue
		}
		docs = append(docs, doc)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// loadFromDump walks a raw mongodump .bson file: each document is a
// little-endian int32 length followed by the document body.
func loadFromDump[T any](path string) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("Dump file not found, skipping", slog.String("path", path))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open dump file: %w", err)
	}
	defer file.Close()

	var docs []T
	reader := bufio.NewReader(file)
	for {
		lengthBytes := make([]byte, 4)
		if _, err := io.ReadFull(reader, lengthBytes); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("failed to read document length: %w", err)
		}

		length := int32(binary.LittleEndian.Uint32(lengthBytes))
		if length <= 4 {
			return nil, fmt.Errorf("invalid document length: %d", length)
		}

		docBytes := make([]byte, length-4)
		if _, err := io.ReadFull(reader, docBytes); err != nil {
			return nil, fmt.Errorf("failed to read document bytes: %w", err)
		}

		var doc T
		if err := bson.Unmarshal(append(lengthBytes, docBytes...), &doc); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func batchInsert[T any](ctx context.Context, db *bun.DB, rows *[]T) error {
	_, err := db.NewInsert().
		Model(rows).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("batch insert failed: %w", err)
	}
	return nil
}

func (m *Migrator) tableStats(name string) *TableStats {
	if m.stats.Tables[name] == nil {
		m.stats.Tables[name] = &TableStats{}
	}
	return m.stats.Tables[name]
}

func (m *Migrator) logFinalStats() {
	for name, stats := range m.stats.Tables {
		slog.Info("Migration table summary",
			slog.String("table", name),
			slog.Int("read", stats.Read),
			slog.Int("imported", stats.Imported),
			slog.Int("skipped", stats.Skipped))
	}
	slog.Info("Migration finished",
		slog.Duration("took", m.stats.EndTime.Sub(m.stats.StartTime)))
}
