package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/questweave/questweave/questweave/logger"
)

const (
	progressionTimeout = 5 * time.Minute
	recoveryParallel   = 4
)

// Scheduler keeps one pending wake-up per active quest. In-memory timers give
// precision; the periodic due-scan and the startup sweep re-derive everything
// from persisted deadlines, so nothing depends on a timer surviving a
// restart.
type Scheduler struct {
	store        Store
	orchestrator *Orchestrator
	cfg          Config

	timers   sync.Map // questID -> *time.Timer
	inflight sync.Map // questID -> struct{}; at most one outstanding task per quest

	ticker   *time.Ticker
	shutdown chan struct{}
	wg       sync.WaitGroup
}

func NewScheduler(store Store, orchestrator *Orchestrator, cfg Config) *Scheduler {
	return &Scheduler{
		store:        store,
		orchestrator: orchestrator,
		cfg:          cfg,
		ticker:       time.NewTicker(cfg.ScanInterval),
		shutdown:     make(chan struct{}),
	}
}

// Start recovers pending deadlines from the database and begins the scan
// loop. Blocks until ctx is done or Shutdown is called.
func (s *Scheduler) Start(ctx context.Context) {
	if err := s.recover(ctx); err != nil {
		slog.Error("Deadline recovery failed", slog.Any("error", err))
	}

	defer s.ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			return
		case <-s.ticker.C:
			if err := s.scanOnce(ctx); err != nil {
				slog.Error("Due-quest scan failed", slog.Any("error", err))
			}
		}
	}
}

// recover re-derives all pending timers by scanning active quests: elapsed
// deadlines fire immediately (bounded parallelism), future ones get timers.
func (s *Scheduler) recover(ctx context.Context) error {
	quests, err := s.store.ActiveQuests(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(recoveryParallel)

	pending := 0
	for _, q := range quests {
		if q.ChapterDeadline == nil {
			continue
		}
		pending++
		if q.ChapterDeadline.After(now) {
			s.ArmQuest(q.ID, *q.ChapterDeadline)
			continue
		}
		questID := q.ID
		g.Go(func() error {
			s.run(questID)
			return nil
		})
	}

	slog.Info("Deadline recovery completed",
		slog.String("type", "engine"),
		slog.Int("active_quests", len(quests)),
		slog.Int("pending_deadlines", pending))

	return g.Wait()
}

// ArmQuest schedules a precise wake-up for one quest's deadline, replacing
// any existing timer for that quest.
func (s *Scheduler) ArmQuest(questID int64, deadline time.Time) {
	wait := time.Until(deadline)
	if wait < 0 {
		wait = 0
	}

	timer := time.NewTimer(wait)
	if prev, loaded := s.timers.Swap(questID, timer); loaded {
		prev.(*time.Timer).Stop()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.timers.CompareAndDelete(questID, timer)
			timer.Stop()
		}()

		select {
		case <-timer.C:
			s.run(questID)
		case <-s.shutdown:
		}
	}()
}

// scanOnce is the safety net for missed or replaced timers.
func (s *Scheduler) scanOnce(ctx context.Context) error {
	due, err := s.store.DueQuests(ctx, time.Now())
	if err != nil {
		return err
	}

	for _, q := range due {
		s.run(q.ID)
	}
	return nil
}

// run performs one progression attempt and re-arms from fresh state. The
// inflight guard keeps it to one outstanding task per quest; the lease covers
// other processes.
func (s *Scheduler) run(questID int64) {
	if _, loaded := s.inflight.LoadOrStore(questID, struct{}{}); loaded {
		return
	}
	defer s.inflight.Delete(questID)

	ctx, cancel := context.WithTimeout(context.Background(), progressionTimeout)
	defer cancel()

	start := time.Now()
	status, err := s.orchestrator.Advance(ctx, questID)
	if err != nil {
		if errors.Is(err, ErrLeaseHeld) {
			slog.Debug("Skipping progression, lease held elsewhere",
				slog.String("type", "engine"),
				slog.Int64("quest_id", questID))
			return
		}
		slog.Error("Progression attempt failed",
			slog.Int64("quest_id", questID),
			slog.Duration("took", time.Since(start)),
			slog.Any("error", err))
		return
	}

	// Re-arm only after the transition completes, never proactively.
	quest, err := s.store.QuestByID(ctx, questID)
	if err != nil {
		slog.Error("Failed to reload quest for re-arm",
			slog.Int64("quest_id", questID),
			slog.Any("error", err))
		return
	}
	logger.LogProgression(quest.ShortID, quest.CurrentChapter, time.Since(start), nil)
	if quest.Status.Terminal() || quest.ChapterDeadline == nil {
		slog.Info("Quest left the schedule",
			slog.String("type", "engine"),
			slog.String("quest_short_id", quest.ShortID),
			slog.String("status", string(status)))
		return
	}
	s.ArmQuest(questID, *quest.ChapterDeadline)
}

// Shutdown stops the scan loop and all pending timers.
func (s *Scheduler) Shutdown() {
	close(s.shutdown)
	s.ticker.Stop()

	s.timers.Range(func(key, value interface{}) bool {
		value.(*time.Timer).Stop()
		return true
	})

	s.wg.Wait()
	slog.Info("Scheduler shutdown completed", slog.String("type", "engine"))
}
