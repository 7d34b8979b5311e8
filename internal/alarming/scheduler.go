package alarming

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/parkops/alarmd/internal/datastore/entities"
	"github.com/parkops/alarmd/internal/datastore/repository"
	"go.uber.org/zap"
)

// ConditionEvaluator evaluates a definition's conditions and triggers an
// alarm when they are met.
type ConditionEvaluator interface {
	Evaluate(ctx context.Context, def *entities.AlarmDefinition) (bool, error)
}

// scheduleEntry is the cached scheduling state for one enabled definition.
type scheduleEntry struct {
	def     *entities.AlarmDefinition
	lastRun time.Time
	nextRun time.Time // zero when the cron expression is unusable
}

// EntryStatus reports the scheduling state of one definition.
type EntryStatus struct {
	DefinitionID uint       `json:"definition_id"`
	Name         string     `json:"name"`
	Type         string     `json:"type"`
	CronSchedule string     `json:"cron_schedule"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	NextRun      *time.Time `json:"next_run,omitempty"`
}

// Scheduler drives periodic evaluation of scheduled definitions. Definitions
// are cached in memory and refreshed explicitly after configuration changes.
type Scheduler struct {
	definitions repository.DefinitionRepository
	checker     ConditionEvaluator
	log         *zap.Logger
	interval    time.Duration

	mu      sync.Mutex
	entries map[uint]*scheduleEntry

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewScheduler creates a scheduler that wakes every interval to evaluate due
// definitions. Call Refresh to load definitions and Start to begin ticking.
func NewScheduler(definitions repository.DefinitionRepository, checker ConditionEvaluator, interval time.Duration, log *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		definitions: definitions,
		checker:     checker,
		log:         log,
		interval:    interval,
		entries:     make(map[uint]*scheduleEntry),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Refresh reloads the enabled scheduled definitions from the store and swaps
// the cached schedule, carrying forward last-run times for surviving entries.
// Definitions whose cron expression cannot produce a next run stay loaded but
// are never evaluated.
func (s *Scheduler) Refresh(ctx context.Context) error {
	defs, err := s.definitions.ListScheduled(ctx)
	if err != nil {
		return fmt.Errorf("failed to load scheduled definitions: %w", err)
	}

	now := time.Now()
	fresh := make(map[uint]*scheduleEntry, len(defs))

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range defs {
		def := &defs[i]
		entry := &scheduleEntry{def: def}
		if prev, ok := s.entries[def.ID]; ok {
			entry.lastRun = prev.lastRun
		}
		cron := ""
		if def.CronSchedule != nil {
			cron = *def.CronSchedule
		}
		next, ok := nextRun(cron, now)
		if !ok {
			s.log.Warn("definition has an unusable cron schedule, skipping",
				zap.Uint("definition_id", def.ID),
				zap.String("name", def.Name),
				zap.String("cron", cron))
		} else {
			entry.nextRun = next
		}
		fresh[def.ID] = entry
	}
	s.entries = fresh
	s.log.Info("schedule refreshed", zap.Int("definitions", len(fresh)))
	return nil
}

// Start launches the evaluation loop. It returns immediately; the loop runs
// until Stop is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Stop terminates the evaluation loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

// tick evaluates every entry whose next run has arrived. Entries are run
// sequentially; an evaluation error is logged and the entry's schedule still
// advances so a persistently failing check cannot run hot.
func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now()
	due := s.collectDue(now)
	for _, entry := range due {
		triggered, err := s.checker.Evaluate(ctx, entry.def)
		if err != nil {
			s.log.Error("scheduled evaluation failed",
				zap.Uint("definition_id", entry.def.ID),
				zap.String("name", entry.def.Name),
				zap.Error(err))
		} else if triggered {
			s.log.Info("scheduled evaluation triggered an alarm",
				zap.Uint("definition_id", entry.def.ID),
				zap.String("name", entry.def.Name))
		}
	}
}

// collectDue advances the schedule under the lock and returns the entries to
// evaluate this tick.
func (s *Scheduler) collectDue(now time.Time) []*scheduleEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []*scheduleEntry
	for _, entry := range s.entries {
		if entry.nextRun.IsZero() || entry.nextRun.After(now) {
			continue
		}
		entry.lastRun = now
		cron := ""
		if entry.def.CronSchedule != nil {
			cron = *entry.def.CronSchedule
		}
		if next, ok := nextRun(cron, now); ok {
			entry.nextRun = next
		} else {
			entry.nextRun = time.Time{}
		}
		due = append(due, entry)
	}
	return due
}

// ManualCheck evaluates one definition immediately, bypassing its schedule.
// The definition is fetched fresh so unsaved cache state cannot mask edits.
func (s *Scheduler) ManualCheck(ctx context.Context, definitionID uint) (bool, error) {
	def, err := s.definitions.Get(ctx, definitionID)
	if err != nil {
		return false, err
	}
	return s.checker.Evaluate(ctx, def)
}

// Status reports the cached schedule for inspection over the API.
func (s *Scheduler) Status() []EntryStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	statuses := make([]EntryStatus, 0, len(s.entries))
	for _, entry := range s.entries {
		status := EntryStatus{
			DefinitionID: entry.def.ID,
			Name:         entry.def.Name,
			Type:         entry.def.Type,
		}
		if entry.def.CronSchedule != nil {
			status.CronSchedule = *entry.def.CronSchedule
		}
		if !entry.lastRun.IsZero() {
			last := entry.lastRun
			status.LastRun = &last
		}
		if !entry.nextRun.IsZero() {
			next := entry.nextRun
			status.NextRun = &next
		}
		statuses = append(statuses, status)
	}
	return statuses
}
