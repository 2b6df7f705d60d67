package questweave

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/questweave/questweave/questweave/api"
	"github.com/questweave/questweave/questweave/database"
	"github.com/questweave/questweave/questweave/database/repositories"
	"github.com/questweave/questweave/questweave/engine"
	"github.com/questweave/questweave/questweave/generation"
	"github.com/questweave/questweave/questweave/interpret"
	"github.com/questweave/questweave/questweave/llm"
	"github.com/questweave/questweave/questweave/services"
	"github.com/questweave/questweave/questweave/twitter"
	"github.com/questweave/questweave/questweave/utils"
)

// App holds every wired component of the daemon.
type App struct {
	Cfg     *Config
	Version string
	Commit  string

	DB                  *database.DB
	QuestRepository     repositories.QuestRepository
	ChapterRepository   repositories.ChapterRepository
	VoteRepository      repositories.VoteRepository
	ExecutionRepository repositories.ExecutionRepository

	LLM          llm.Client
	Generator    *generation.Generator
	Twitter      *twitter.Client
	Interpreter  *interpret.Interpreter
	Spaces       *services.SpacesService
	Tombstones   *services.TombstoneService
	QuestService *services.QuestService

	Store        *repositories.EngineStore
	Orchestrator *engine.Orchestrator
	Scheduler    *engine.Scheduler
	API          *api.Server

	Processes *utils.BackgroundProcessManager
}

func New(cfg *Config, version, commit string) *App {
	return &App{
		Cfg:       cfg,
		Version:   version,
		Commit:    commit,
		Processes: utils.NewBackgroundProcessManager(),
	}
}

// EngineConfig maps the loaded config onto the engine's tunables.
func (a *App) EngineConfig() engine.Config {
	e := a.Cfg.Engine
	return engine.Config{
		VotingWindow:     e.VotingWindow,
		MaxChapters:      e.MaxChapters,
		DefaultOption:    e.DefaultOption,
		IdleChapterLimit: e.IdleChapterLimit,
		AbandonThreshold: e.AbandonThreshold,
		AbandonMinVotes:  e.AbandonMinVotes,
		LeaseTTL:         e.LeaseTTL,
		ScanInterval:     e.ScanInterval,
		MaxAttempts:      e.MaxAttempts,
		BackoffBase:      e.BackoffBase,
		CallTimeout:      e.CallTimeout,
	}
}

// Setup wires all components against the already-connected database.
func (a *App) Setup(db *database.DB) error {
	a.DB = db
	bunDB := db.BunDB()

	a.QuestRepository = repositories.NewQuestRepository(bunDB)
	a.ChapterRepository = repositories.NewChapterRepository(bunDB)
	a.VoteRepository = repositories.NewVoteRepository(bunDB)
	a.ExecutionRepository = repositories.NewExecutionRepository(bunDB)

	llmClient, err := llm.New(llm.Config{
		APIKey:  a.Cfg.OpenAI.APIKey,
		BaseURL: a.Cfg.OpenAI.BaseURL,
		Model:   a.Cfg.OpenAI.Model,
	})
	if err != nil {
		return fmt.Errorf("llm client: %w", err)
	}
	a.LLM = llmClient
	a.Generator = generation.New(llmClient)
	a.Interpreter = interpret.New(llmClient, 0)

	a.Twitter, err = twitter.New(twitter.Config{
		ConsumerKey:    a.Cfg.Twitter.ConsumerKey,
		ConsumerSecret: a.Cfg.Twitter.ConsumerSecret,
		AccessToken:    a.Cfg.Twitter.AccessToken,
		AccessSecret:   a.Cfg.Twitter.AccessSecret,
	})
	if err != nil {
		return fmt.Errorf("twitter client: %w", err)
	}

	if a.Cfg.Spaces.Key != "" {
		a.Spaces, err = services.NewSpacesService(
			a.Cfg.Spaces.Key,
			a.Cfg.Spaces.Secret,
			a.Cfg.Spaces.Region,
			a.Cfg.Spaces.Bucket,
			a.Cfg.Spaces.MediaRoot,
		)
		if err != nil {
			return fmt.Errorf("spaces service: %w", err)
		}
		a.Tombstones = services.NewTombstoneService(a.ExecutionRepository, a.Spaces)
	} else {
		slog.Warn("Spaces not configured, tombstone rendering disabled")
	}

	engineCfg := a.EngineConfig()
	a.Store = repositories.NewEngineStore(bunDB)
	a.Orchestrator = engine.NewOrchestrator(a.Store, a.Generator, a.Twitter, engineCfg)
	a.Scheduler = engine.NewScheduler(a.Store, a.Orchestrator, engineCfg)

	a.QuestService = services.NewQuestService(
		a.QuestRepository,
		a.ChapterRepository,
		a.VoteRepository,
		a.ExecutionRepository,
		a.Generator,
		a.Twitter,
		a.Twitter,
		a.Interpreter,
		a.Tombstones,
		engineCfg,
	)

	a.API = api.NewServer(db)
	return nil
}

// StartBackground launches the scheduler, the reply ingestion loop and the
// read API under the process manager.
func (a *App) StartBackground() {
	a.Processes.StartProcess("scheduler", func(ctx context.Context) {
		a.Scheduler.Start(ctx)
	})

	a.Processes.StartProcess("ingestion", func(ctx context.Context) {
		a.runIngestionLoop(ctx)
	})

	if a.Cfg.API.Addr != "" {
		a.Processes.StartProcess("api", func(ctx context.Context) {
			go func() {
				<-ctx.Done()
				if err := a.API.Shutdown(); err != nil {
					slog.Error("API shutdown failed", slog.Any("error", err))
				}
			}()
			if err := a.API.Listen(a.Cfg.API.Addr); err != nil {
				slog.Error("API server stopped", slog.Any("error", err))
			}
		})
	}
}

// runIngestionLoop periodically pulls replies for every active quest so
// ballots are already persisted when deadlines fire.
func (a *App) runIngestionLoop(ctx context.Context) {
	ticker := time.NewTicker(a.Cfg.Engine.IngestInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			quests, err := a.QuestRepository.GetActive(ctx)
			if err != nil {
				slog.Error("Failed to list active quests for ingestion",
					slog.Any("error", err))
				continue
			}
			for _, q := range quests {
				if _, err := a.QuestService.IngestReplies(ctx, q.ID); err != nil {
					slog.Error("Reply ingestion failed",
						slog.String("quest_short_id", q.ShortID),
						slog.Any("error", err))
				}
			}
		}
	}
}

// Shutdown stops background work and closes the database.
func (a *App) Shutdown(timeout time.Duration) {
	a.Scheduler.Shutdown()
	if err := a.Processes.Shutdown(timeout); err != nil {
		slog.Warn("Background shutdown incomplete", slog.Any("error", err))
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
