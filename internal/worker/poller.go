// Package worker runs the server's background task poller: a ticking loop
// that claims and executes one queued task at a time.
package worker

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dullfig/claude-rlm/internal/catchup"
	"github.com/dullfig/claude-rlm/internal/distill"
	"github.com/dullfig/claude-rlm/internal/index"
	"github.com/dullfig/claude-rlm/internal/models"
	"github.com/dullfig/claude-rlm/internal/store"
	"github.com/dullfig/claude-rlm/internal/summarizer"
)

const tickInterval = 300 * time.Millisecond
const pruneInterval = time.Minute
const pruneMaxAgeSeconds = 7 * 24 * 60 * 60

// Poller ticks every 300ms, claims at most one pending task per tick, and
// runs it to completion before claiming another — "a blocking worker" per
// the concurrency model, not a pool. It also throttles task-table pruning
// to once a minute on the same ticker.
type Poller struct {
	db       *sql.DB
	provider summarizer.Provider
	logger   *slog.Logger

	lastPrune time.Time
}

// NewPoller constructs a poller. provider may be nil, in which case
// distill_session tasks run in heuristic-only mode.
func NewPoller(db *sql.DB, provider summarizer.Provider, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{db: db, provider: provider, logger: logger}
}

// Run blocks until ctx is cancelled, ticking the claim-dispatch-complete
// loop. Call RecoverStuckTasks once before Run, at server startup.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	task, err := store.ClaimNext(ctx, p.db)
	if err != nil {
		p.logger.Warn("task claim failed", "error", err)
	} else if task != nil {
		p.runTask(ctx, task)
	}

	if time.Since(p.lastPrune) >= pruneInterval {
		p.lastPrune = time.Now()
		if n, pruneErr := store.PruneOldTasks(ctx, p.db, pruneMaxAgeSeconds); pruneErr != nil {
			p.logger.Warn("task prune failed", "error", pruneErr)
		} else if n > 0 {
			p.logger.Debug("pruned old tasks", "count", n)
		}
		if err := store.CheckpointWAL(ctx, p.db, "TRUNCATE"); err != nil {
			p.logger.Warn("wal checkpoint failed", "error", err)
		}
	}
}

// runTask dispatches a claimed task and always resolves it to completed or
// failed — a panic is recovered and reported as a SchedulerError per §7,
// the poller itself keeps running.
func (p *Poller) runTask(ctx context.Context, task *models.BackgroundTask) {
	defer func() {
		if r := recover(); r != nil {
			schedErr := &models.SchedulerErr{TaskType: string(task.TaskType), Err: fmt.Errorf("panic: %v", r)}
			p.logger.Error("task panicked", "task_id", task.ID, "task_type", task.TaskType, "error", schedErr)
			_ = store.FailTask(ctx, p.db, task.ID, schedErr.Error())
		}
	}()

	var runErr error
	switch task.TaskType {
	case models.TaskTypeReindexStale:
		runErr = p.runReindexStale(ctx, task)
	case models.TaskTypeDistillSession:
		runErr = p.runDistillSession(ctx, task)
	case models.TaskTypeShutdown:
		runErr = nil // completed below, then runTask exits the process
	default:
		runErr = fmt.Errorf("unknown task type %q", task.TaskType)
	}

	if runErr != nil {
		p.logger.Warn("task failed", "task_id", task.ID, "task_type", task.TaskType, "error", runErr)
		_ = store.FailTask(ctx, p.db, task.ID, runErr.Error())
		return
	}
	if err := store.CompleteTask(ctx, p.db, task.ID); err != nil {
		p.logger.Warn("task complete failed", "task_id", task.ID, "error", err)
	}

	// §4.10/§5: the server responds to a shutdown task by exiting
	// immediately, with no grace window for the watcher/poller goroutines.
	if task.TaskType == models.TaskTypeShutdown {
		p.logger.Info("shutdown task complete, exiting")
		os.Exit(0)
	}
}

func (p *Poller) runReindexStale(ctx context.Context, task *models.BackgroundTask) error {
	if task.Payload != "" {
		return index.IndexFile(ctx, p.db, task.Payload)
	}
	_, err := index.ReindexStale(ctx, p.db, task.ProjectDir)
	return err
}

func (p *Poller) runDistillSession(ctx context.Context, task *models.BackgroundTask) error {
	_, err := distill.DistillSession(ctx, p.db, p.provider, task.Payload)
	return err
}

// RunVCSOrHashCatchup is a convenience used by the session-start hook: it
// runs the VCS catch-up when projectDir is a git work tree and the hash
// catch-up otherwise.
func RunVCSOrHashCatchup(ctx context.Context, db *sql.DB, sessionID, projectDir string) {
	if catchup.HasVCS(projectDir) {
		catchup.RunVCSCatchup(ctx, db, sessionID, projectDir)
		return
	}
	catchup.RunHashCatchup(ctx, db, sessionID, projectDir)
}
