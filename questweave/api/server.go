// Package api exposes a read-only HTTP surface over quest state. All writes
// go through the engine and services; nothing here mutates.
package api

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/questweave/questweave/questweave/database"
	"github.com/questweave/questweave/questweave/database/models"
	"github.com/questweave/questweave/questweave/database/repositories"
)

type Server struct {
	app        *fiber.App
	db         *database.DB
	quests     repositories.QuestRepository
	chapters   repositories.ChapterRepository
	executions repositories.ExecutionRepository
}

func NewServer(db *database.DB) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "questweave",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(compress.New())
	app.Use(cors.New(cors.Config{
		AllowMethods: "GET",
	}))

	s := &Server{
		app:        app,
		db:         db,
		quests:     repositories.NewQuestRepository(db.BunDB()),
		chapters:   repositories.NewChapterRepository(db.BunDB()),
		executions: repositories.NewExecutionRepository(db.BunDB()),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/healthz", s.health)

	api := s.app.Group("/api")
	api.Get("/quests", s.listQuests)
	api.Get("/quests/:shortID", s.getQuest)
	api.Get("/quests/:shortID/timeline", s.getTimeline)
	api.Get("/quests/:shortID/chapters", s.getChapters)
	api.Get("/quests/:shortID/executions", s.getExecutions)
}

// Listen blocks serving requests until Shutdown.
func (s *Server) Listen(addr string) error {
	slog.Info("API server listening",
		slog.String("type", "api"),
		slog.String("addr", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) health(c *fiber.Ctx) error {
	if err := s.db.Ping(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "degraded",
			"error":  err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

type questSummary struct {
	ShortID        string             `json:"short_id"`
	Title          string             `json:"title"`
	Status         models.QuestStatus `json:"status"`
	CurrentChapter int                `json:"current_chapter"`
	Deadline       string             `json:"deadline,omitempty"`
}

func summarize(q *models.Quest) questSummary {
	out := questSummary{
		ShortID:        q.ShortID,
		Title:          q.Title,
		Status:         q.Status,
		CurrentChapter: q.CurrentChapter,
	}
	if q.ChapterDeadline != nil {
		out.Deadline = q.ChapterDeadline.UTC().Format("2006-01-02T15:04:05Z")
	}
	return out
}

func (s *Server) listQuests(c *fiber.Ctx) error {
	quests, err := s.quests.GetActive(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	out := make([]questSummary, 0, len(quests))
	for _, q := range quests {
		out = append(out, summarize(q))
	}
	return c.JSON(fiber.Map{"quests": out})
}

func (s *Server) getQuest(c *fiber.Ctx) error {
	quest := s.findQuest(c)
	if quest == nil {
		return nil
	}

	return c.JSON(fiber.Map{
		"quest":   summarize(quest),
		"premise": quest.Premise,
		"state":   quest.CurrentState,
	})
}

func (s *Server) getTimeline(c *fiber.Ctx) error {
	quest := s.findQuest(c)
	if quest == nil {
		return nil
	}

	timeline := quest.TimelineData
	if timeline == nil {
		timeline = []models.TimelineEntry{}
	}
	return c.JSON(fiber.Map{
		"short_id": quest.ShortID,
		"timeline": timeline,
	})
}

func (s *Server) getChapters(c *fiber.Ctx) error {
	quest := s.findQuest(c)
	if quest == nil {
		return nil
	}

	chapters, err := s.chapters.GetAllForQuest(c.Context(), quest.ID)
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(fiber.Map{
		"short_id": quest.ShortID,
		"chapters": chapters,
	})
}

func (s *Server) getExecutions(c *fiber.Ctx) error {
	quest := s.findQuest(c)
	if quest == nil {
		return nil
	}

	executions, err := s.executions.GetForQuest(c.Context(), quest.ID)
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(fiber.Map{
		"short_id":   quest.ShortID,
		"executions": executions,
	})
}

// findQuest resolves the short id or writes a 404 and returns nil.
func (s *Server) findQuest(c *fiber.Ctx) *models.Quest {
	shortID := strings.ToUpper(c.Params("shortID"))
	quest, err := s.quests.GetByShortID(c.Context(), shortID)
	if err != nil {
		_ = c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "quest not found",
		})
		return nil
	}
	return quest
}

func internalError(c *fiber.Ctx, err error) error {
	slog.Error("API request failed",
		slog.String("type", "api"),
		slog.String("path", c.Path()),
		slog.Any("error", err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal error",
	})
}
