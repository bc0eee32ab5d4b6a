package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrNoDirectory is returned by Watch when the source has no directory on disk
var ErrNoDirectory = errors.New("source has no template directory to watch")

type watcher struct {
	fsw    *fsnotify.Watcher
	stopCh chan struct{}
	doneCh chan struct{}
}

// Watch invalidates cached templates whenever their files change on disk. It
// returns once watching has started; watching ends when ctx is done or Close
// is called. Calling Watch on a source that is already watching is a no-op.
func (s *Source) Watch(ctx context.Context) error {
	if s.config.Dir == "" {
		return ErrNoDirectory
	}

	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.watch != nil {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	// fsnotify does not recurse, so every directory is added explicitly
	err = filepath.WalkDir(s.config.Dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(p)
		}
		return nil
	})
	if err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", s.config.Dir, err)
	}

	w := &watcher{
		fsw:    fsw,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	s.watch = w
	s.logger.Info("watching templates", zap.String("dir", s.config.Dir))

	go s.run(ctx, w)
	return nil
}

// Close stops watching. It is safe to call on a source that is not watching.
func (s *Source) Close() error {
	s.watchMu.Lock()
	w := s.watch
	s.watch = nil
	s.watchMu.Unlock()

	if w == nil {
		return nil
	}
	close(w.stopCh)
	<-w.doneCh
	if err := w.fsw.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

func (s *Source) run(ctx context.Context, w *watcher) {
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			s.handleEvent(w, event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			s.logger.Warn("template watcher error", zap.Error(err))
		}
	}
}

func (s *Source) handleEvent(w *watcher, event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.fsw.Add(event.Name); err != nil {
				s.logger.Warn("failed to watch new directory", zap.String("dir", event.Name), zap.Error(err))
			}
			return
		}
	}

	name, ok := s.templateName(event.Name)
	if !ok {
		return
	}
	s.logger.Debug("template changed", zap.String("template", name), zap.Stringer("op", event.Op))
	s.Invalidate(name)
	if s.onChange != nil {
		s.onChange(name)
	}
}

// templateName maps a file path reported by fsnotify back to a template name
func (s *Source) templateName(file string) (string, bool) {
	rel, err := filepath.Rel(s.config.Dir, file)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasSuffix(rel, s.config.Suffix) {
		return "", false
	}
	name := strings.TrimSuffix(rel, s.config.Suffix)
	return name, name != ""
}
