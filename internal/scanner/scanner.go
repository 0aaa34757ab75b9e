// Package scanner implements user-defined cache directory scanners: named
// paths that can be sized, counted, and cleaned out.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cfilipov/cachewise/internal/models"
)

// ScanResult is one scanner's inventory snapshot.
type ScanResult struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	SizeBytes uint64 `json:"size_bytes"`
	ItemCount int    `json:"item_count"`
	Exists    bool   `json:"exists"`
}

// CleanResult is the outcome of cleaning one scanner's path.
type CleanResult struct {
	ID           string `json:"id"`
	FreedBytes   uint64 `json:"freed_bytes"`
	ItemsRemoved int    `json:"items_removed"`
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	DryRun       bool   `json:"dry_run"`
}

// DirScanner sizes and cleans a single directory. Cleaning removes the
// directory's contents, never the directory itself.
type DirScanner struct {
	cfg  models.ScannerConfig
	path string
}

// NewDirScanner resolves the configured path ("~/" expands to the home
// directory) and returns a scanner for it.
func NewDirScanner(cfg models.ScannerConfig) (*DirScanner, error) {
	path, err := expandPath(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("scanner %q: %w", cfg.ID, err)
	}
	return &DirScanner{cfg: cfg, path: path}, nil
}

func (d *DirScanner) ID() string                   { return d.cfg.ID }
func (d *DirScanner) Config() models.ScannerConfig { return d.cfg }

// Scan walks the directory and reports its total size and top-level item
// count. A missing path is a valid result with Exists=false, not an error.
func (d *DirScanner) Scan(ctx context.Context) (ScanResult, error) {
	result := ScanResult{
		ID:   d.cfg.ID,
		Name: d.cfg.Name,
		Path: d.path,
	}

	if _, err := os.Stat(d.path); err != nil {
		return result, nil
	}
	result.Exists = true

	size, count, err := dirStats(ctx, d.path)
	if err != nil {
		return result, fmt.Errorf("scan %q: %w", d.cfg.ID, err)
	}
	result.SizeBytes = size
	result.ItemCount = count
	return result, nil
}

// Clean removes the directory's contents. With dryRun it reports what would
// be freed without touching anything.
func (d *DirScanner) Clean(ctx context.Context, dryRun bool) (CleanResult, error) {
	result := CleanResult{ID: d.cfg.ID, DryRun: dryRun}

	if _, err := os.Stat(d.path); err != nil {
		result.Success = true
		result.Message = "Path does not exist"
		return result, nil
	}

	size, count, err := dirStats(ctx, d.path)
	if err != nil {
		return result, fmt.Errorf("clean %q: %w", d.cfg.ID, err)
	}
	result.FreedBytes = size
	result.ItemsRemoved = count

	if dryRun {
		result.Success = true
		result.Message = fmt.Sprintf("Would free %d bytes", size)
		return result, nil
	}

	entries, err := os.ReadDir(d.path)
	if err != nil {
		return result, fmt.Errorf("clean %q: %w", d.cfg.ID, err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(d.path, entry.Name())); err != nil {
			return result, fmt.Errorf("clean %q: %w", d.cfg.ID, err)
		}
	}

	result.Success = true
	result.Message = "Cleaned successfully"
	return result, nil
}

// dirStats returns the recursive byte total and the number of top-level
// entries. Unreadable children are skipped rather than failing the walk.
func dirStats(ctx context.Context, root string) (uint64, int, error) {
	var size uint64

	entries, err := os.ReadDir(root)
	if err != nil {
		return 0, 0, err
	}
	count := len(entries)

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				size += uint64(info.Size())
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return size, count, nil
}

func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
