package server

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/harrison/fedviz/internal/fileutil"
)

// DefaultWatchDelay coalesces bursts of writes, such as a device file being
// copied in, into one reload.
const DefaultWatchDelay = 2 * time.Second

// dirWatcher calls onChange once changes to device files under a directory
// settle for delay.
type dirWatcher struct {
	fs       *fsnotify.Watcher
	delay    time.Duration
	onChange func()
	log      *zap.Logger

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

func newDirWatcher(root string, delay time.Duration, onChange func(), log *zap.Logger) (*dirWatcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &dirWatcher{fs: fs, delay: delay, onChange: onChange, log: log}
	if err := w.addRecursive(filepath.Clean(root)); err != nil {
		fs.Close()
		return nil, err
	}
	return w, nil
}

func (w *dirWatcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fs.Add(path); err != nil && !os.IsPermission(err) {
			return err
		}
		return nil
	})
}

func isDeviceFile(path string) bool {
	return slices.Contains(fileutil.DeviceFileExtensions, strings.ToLower(filepath.Ext(path)))
}

// run processes events until ctx is done, then closes the watcher.
func (w *dirWatcher) run(ctx context.Context) {
	defer w.close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *dirWatcher) handle(ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(ev.Name); err != nil {
				w.log.Warn("watch new directory", zap.String("dir", ev.Name), zap.Error(err))
			}
			w.schedule()
			return
		}
	}
	if ev.Op == fsnotify.Chmod || !isDeviceFile(ev.Name) {
		return
	}
	w.log.Debug("device file changed", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
	w.schedule()
}

func (w *dirWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.onChange)
}

func (w *dirWatcher) close() {
	w.mu.Lock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	_ = w.fs.Close()
}

// StartWatch reloads whenever device files under the data directory are
// created, written, renamed or removed, until ctx is done. It returns once
// the directory tree is being watched.
func (s *Server) StartWatch(ctx context.Context) error {
	delay := s.watchDelay
	if delay <= 0 {
		delay = DefaultWatchDelay
	}
	w, err := newDirWatcher(s.cfg.DataDir, delay, func() {
		rctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
		defer cancel()
		if err := s.Reload(rctx); err != nil {
			s.log.Error("reload after change failed", zap.Error(err))
		}
	}, s.log.Named("watch"))
	if err != nil {
		return err
	}
	s.log.Info("watching for device file changes", zap.String("dir", s.cfg.DataDir))
	go w.run(ctx)
	return nil
}
