package codebook

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/aaaa47080/stock-agent-sub003/internal/logger"
)

// Watch starts reloading the store when the file changes on disk, so edits
// made outside the process show up without a restart. The store's own
// saves are not reloaded. Safe to call once; Close stops the watcher.
func (s *Store) Watch() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory: the file itself may not exist yet, and editors
	// often replace rather than rewrite it.
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		_ = w.Close()
		return err
	}

	s.watcher = w
	s.done = make(chan struct{})
	go s.watchLoop(w)
	return nil
}

func (s *Store) watchLoop(w *fsnotify.Watcher) {
	defer close(s.done)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			s.mu.Lock()
			if s.pendingWrites > 0 {
				s.pendingWrites--
				s.mu.Unlock()
				continue
			}
			s.mu.Unlock()

			if err := s.reload(); err != nil {
				logger.Log.Warnw("Codebook reload failed", "path", s.path, "error", err)
				continue
			}
			logger.Log.Infow("Codebook reloaded after external change", "path", s.path, "entries", s.Len())
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Log.Warnw("Codebook watcher error", "error", err)
		}
	}
}

// Close stops the watcher, if any, and waits for its goroutine to exit.
func (s *Store) Close() error {
	s.mu.Lock()
	w := s.watcher
	done := s.done
	s.watcher = nil
	s.done = nil
	s.mu.Unlock()

	if w == nil {
		return nil
	}
	err := w.Close()
	if done != nil {
		<-done
	}
	return err
}
