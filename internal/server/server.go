// Package server implements the long-lived query process: it owns the task
// poller and file watcher, and serves JSON-RPC-over-stdio retrieval
// requests until standard input closes or a shutdown task is observed.
package server

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/dullfig/claude-rlm/internal/app"
	"github.com/dullfig/claude-rlm/internal/index"
	"github.com/dullfig/claude-rlm/internal/store"
	"github.com/dullfig/claude-rlm/internal/summarizer"
	"github.com/dullfig/claude-rlm/internal/watch"
	"github.com/dullfig/claude-rlm/internal/worker"
)

// Server owns the store handle and background workers for one project.
type Server struct {
	db         *sql.DB
	projectDir string
	poller     *worker.Poller
	watcher    *watch.Watcher
	logger     *slog.Logger

	in  io.Reader
	out io.Writer
}

// New constructs a Server for projectDir, opening and migrating its store.
func New(projectDir string, provider summarizer.Provider) (*Server, error) {
	dbPath, err := app.GetDBPath(projectDir)
	if err != nil {
		return nil, err
	}
	db, err := store.OpenDB(dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.MigrateDB(db, dbPath); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger := slog.Default()
	return &Server{
		db:         db,
		projectDir: projectDir,
		poller:     worker.NewPoller(db, provider, logger),
		logger:     logger,
		in:         os.Stdin,
		out:        os.Stdout,
	}, nil
}

func (s *Server) Close() error {
	if s.watcher != nil {
		s.watcher.Close()
	}
	return store.CloseDB(s.db)
}

// Run executes the startup sequence from §4.10 (drain stale shutdown
// tasks, recover stuck tasks, initial index if empty, start watcher, start
// poller, begin request loop) and blocks until stdin closes or a shutdown
// task completes.
func (s *Server) Run(ctx context.Context) error {
	if err := store.DrainStaleShutdownTasks(ctx, s.db); err != nil {
		s.logger.Warn("drain stale shutdown tasks failed", "error", err)
	}
	if n, err := store.RecoverStuckTasks(ctx, s.db); err != nil {
		s.logger.Warn("recover stuck tasks failed", "error", err)
	} else if n > 0 {
		s.logger.Info("recovered stuck tasks", "count", n)
	}
	if empty, err := store.SymbolTableEmpty(ctx, s.db); err == nil && empty {
		if report, err := index.IndexProject(ctx, s.db, s.projectDir); err != nil {
			s.logger.Warn("initial index failed", "error", err)
		} else {
			s.logger.Info("initial index complete", "indexed", report.Indexed, "failed", len(report.Failed))
		}
	}

	pollerCtx, cancelPoller := context.WithCancel(ctx)
	defer cancelPoller()
	go s.poller.Run(pollerCtx)

	w, err := watch.New(s.db, s.projectDir, s.logger)
	if err != nil {
		s.logger.Warn("file watcher unavailable", "error", err)
	} else {
		s.watcher = w
		go w.Run(pollerCtx)
	}

	return s.serveRequests(ctx)
}

// serveRequests reads one JSON-RPC request per line from stdin and writes
// one JSON-RPC response per line to stdout, exiting immediately (no
// graceful teardown of the poller/watcher goroutines) on EOF.
func (s *Server) serveRequests(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		resp := s.handleRequest(ctx, line)
		if resp == nil {
			continue
		}
		enc := json.NewEncoder(s.out)
		if err := enc.Encode(resp); err != nil {
			s.logger.Warn("response encode failed", "error", err)
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		s.logger.Warn("stdin scan failed", "error", err)
	}
	return nil
}
