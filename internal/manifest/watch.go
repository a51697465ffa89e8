package manifest

import (
	"bytes"
	"context"
	"crypto/sha1"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileDebounce is the default duration to wait for a manifest's contents to
// settle after a change event.
const FileDebounce = 50 * time.Millisecond

// Watch calls fn with the manifest at path each time its contents change,
// until ctx is cancelled. The containing directory is watched so that editors
// replacing the file are seen. Invalid manifests are logged and skipped. A
// debounce less than zero uses FileDebounce.
func Watch(ctx context.Context, path string, debounce time.Duration, log *slog.Logger, fn func(Manifest)) error {
	if debounce < 0 {
		debounce = FileDebounce
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	err = watcher.Add(filepath.Dir(path))
	if err != nil {
		return err
	}
	log = log.With(slog.String("component", "manifest_watcher"), slog.String("path", path))

	var last []byte
	if b, err := os.ReadFile(path); err == nil {
		sum := sha1.Sum(b)
		last = sum[:]
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("watch error", slog.String("error", err.Error()))
		case <-timer.C:
			b, err := os.ReadFile(path)
			if err != nil {
				log.Warn("read manifest", slog.String("error", err.Error()))
				continue
			}
			sum := sha1.Sum(b)
			if bytes.Equal(sum[:], last) {
				log.Debug("manifest unchanged")
				continue
			}
			m, err := Decode(bytes.NewReader(b))
			if err != nil {
				log.Warn("invalid manifest", slog.String("error", err.Error()))
				continue
			}
			last = sum[:]
			log.Info("manifest changed", slog.Int("frames", len(m.Images)))
			fn(m)
		}
	}
}
