package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/cfilipov/cachewise/internal/models"
)

// definitions is the shape of the scanners YAML file:
//
//	scanners:
//	  - id: npm
//	    name: npm cache
//	    path: ~/.npm
//	    min_size_mb: 50
type definitions struct {
	Scanners []struct {
		ID        string  `yaml:"id"`
		Name      string  `yaml:"name"`
		Path      string  `yaml:"path"`
		MinSizeMB *uint64 `yaml:"min_size_mb"`
	} `yaml:"scanners"`
}

// LoadFile parses scanner definitions from a YAML file.
func LoadFile(path string) ([]models.ScannerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scanners file: %w", err)
	}

	var defs definitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parse scanners file: %w", err)
	}

	configs := make([]models.ScannerConfig, 0, len(defs.Scanners))
	for _, d := range defs.Scanners {
		if d.ID == "" || d.Path == "" {
			slog.Warn("scanner definition missing id or path, skipped", "id", d.ID)
			continue
		}
		name := d.Name
		if name == "" {
			name = d.ID
		}
		configs = append(configs, models.ScannerConfig{
			ID:        d.ID,
			Name:      name,
			Path:      d.Path,
			MinSizeMB: d.MinSizeMB,
		})
	}
	return configs, nil
}

// StartWatcher loads the definitions file into the registry and reloads it
// whenever it changes, debounced. onReload (optional) fires after each load
// so the caller can broadcast.
func StartWatcher(ctx context.Context, path string, reg *Registry, onReload func()) error {
	load := func() {
		configs, err := LoadFile(path)
		if err != nil {
			slog.Warn("scanner definitions reload failed", "err", err)
			return
		}
		for _, err := range reg.ReplaceFileScanners(configs) {
			slog.Warn("scanner definition rejected", "err", err)
		}
		slog.Info("scanner definitions loaded", "path", path, "count", len(configs))
		if onReload != nil {
			onReload()
		}
	}
	load()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the parent directory — editors replace files via rename, which
	// drops a watch on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}

	go runWatcher(ctx, watcher, path, load)

	slog.Info("scanner definitions watcher started", "path", path)
	return nil
}

func runWatcher(ctx context.Context, watcher *fsnotify.Watcher, path string, load func()) {
	defer watcher.Close()

	// Coalesce bursts of events within 200ms.
	var mu sync.Mutex
	var pending *time.Timer

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if pending != nil {
			pending.Stop()
		}
		pending = time.AfterFunc(200*time.Millisecond, load)
	}

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			if pending != nil {
				pending.Stop()
			}
			mu.Unlock()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				trigger()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("scanner watcher error", "err", err)
		}
	}
}
