package watch

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher reports changes to a fixed set of data files. It watches their
// parent directories so atomic rename-into-place writes are seen too.
type Watcher struct {
	files    map[string]struct{}
	onChange func(path string)
}

func New(paths []string, onChange func(path string)) *Watcher {
	files := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			files[abs] = struct{}{}
		}
	}
	return &Watcher{files: files, onChange: onChange}
}

// Start begins watching until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dirs := map[string]struct{}{}
	for f := range w.files {
		dirs[filepath.Dir(f)] = struct{}{}
	}
	for d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			watcher.Close()
			return err
		}
		if err := watcher.Add(d); err != nil {
			watcher.Close()
			return err
		}
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				abs, err := filepath.Abs(evt.Name)
				if err != nil {
					continue
				}
				if _, tracked := w.files[abs]; tracked {
					log.Debug().Str("file", abs).Str("op", evt.Op.String()).Msg("data file changed")
					w.onChange(abs)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("watcher error")
			}
		}
	}()
	return nil
}
