// Package server exposes chart tables over HTTP for external renderers. It
// loads a data directory, optionally applies a saved group table, and
// reloads on a cron schedule.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/harrison/fedviz/internal/config"
	"github.com/harrison/fedviz/internal/groups"
	"github.com/harrison/fedviz/internal/logger"
	"github.com/harrison/fedviz/internal/record"
	"github.com/harrison/fedviz/internal/settings"
)

// reloadTimeout bounds one scheduled reload.
const reloadTimeout = 2 * time.Minute

// Server holds the loaded records shared by every request.
type Server struct {
	cfg      config.ServerConfig
	settings *settings.Settings
	log      *zap.Logger

	mu       sync.RWMutex
	records  []*record.Record
	loadedAt time.Time
	failed   int

	cron       *cron.Cron
	watchDelay time.Duration
}

// New creates a server. A nil logger discards output.
func New(cfg config.ServerConfig, s *settings.Settings, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if s == nil {
		s = settings.Default()
	}
	return &Server{cfg: cfg, settings: s, log: log}
}

// Reload rescans the data directory and swaps in the new records. The old
// records stay in place when the scan itself fails.
func (s *Server) Reload(ctx context.Context) error {
	if s.cfg.DataDir == "" {
		return errors.New("no data directory configured")
	}

	start := time.Now()
	batch, err := record.LoadDir(ctx, s.cfg.DataDir, true, record.LoadOptions{
		SkipDuplicates: s.settings.SkipDuplicates,
		Logger:         logger.NewZap(s.log.Named("loader")),
	})
	if err != nil {
		return fmt.Errorf("reload %s: %w", s.cfg.DataDir, err)
	}

	recs := batch.Records()
	if s.cfg.GroupsFile != "" {
		gt, err := groups.Load(s.cfg.GroupsFile)
		if err != nil {
			return fmt.Errorf("reload groups: %w", err)
		}
		n := gt.Apply(recs, s.settings.AbsoluteGroups)
		s.log.Info("groups applied", zap.String("file", s.cfg.GroupsFile), zap.Int("matched", n))
	}

	failed := 0
	if berr := batch.Err(); berr != nil {
		var be *record.BatchError
		if errors.As(berr, &be) {
			failed = len(be.Failures)
		}
		s.log.Warn("some files failed to load", zap.Error(berr))
	}

	s.setRecords(recs, failed)
	s.log.Info("records loaded",
		zap.Int("records", len(recs)),
		zap.Int("failed", failed),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// SetRecords replaces the served records.
func (s *Server) SetRecords(recs []*record.Record) {
	s.setRecords(recs, 0)
}

func (s *Server) setRecords(recs []*record.Record, failed int) {
	// Membership is created lazily; force it now so handlers only read.
	for _, r := range recs {
		r.Groups()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = recs
	s.loadedAt = time.Now()
	s.failed = failed
}

func (s *Server) snapshot() ([]*record.Record, time.Time, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records, s.loadedAt, s.failed
}

// StartSchedule registers the periodic reload. An empty schedule does nothing.
func (s *Server) StartSchedule() error {
	if s.cfg.ReloadSchedule == "" {
		return nil
	}
	c := cron.New()
	_, err := c.AddFunc(s.cfg.ReloadSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
		defer cancel()
		if err := s.Reload(ctx); err != nil {
			s.log.Error("scheduled reload failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reload schedule %q: %w", s.cfg.ReloadSchedule, err)
	}
	s.cron = c
	s.log.Info("starting reload schedule", zap.String("schedule", s.cfg.ReloadSchedule))
	c.Start()
	return nil
}

// Stop halts the schedule and waits for a running reload to finish.
func (s *Server) Stop() {
	if s.cron == nil {
		return
	}
	s.log.Info("stopping reload schedule")
	<-s.cron.Stop().Done()
}

// Run loads the data, starts the schedule and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Reload(ctx); err != nil {
		return err
	}
	if err := s.StartSchedule(); err != nil {
		return err
	}
	defer s.Stop()
	if s.cfg.Watch {
		if err := s.StartWatch(ctx); err != nil {
			return fmt.Errorf("watch %s: %w", s.cfg.DataDir, err)
		}
	}

	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	s.log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
