package scanner

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cfilipov/cachewise/internal/models"
)

// scanConcurrency bounds how many directory walks run at once during ScanAll.
const scanConcurrency = 8

// Registry holds the active scanners keyed by ID. Scanners come from two
// sources: a definitions file (replaced wholesale on reload) and user
// additions persisted in the store.
type Registry struct {
	mu       sync.RWMutex
	scanners map[string]*DirScanner
	fromFile map[string]bool
}

func NewRegistry() *Registry {
	return &Registry{
		scanners: make(map[string]*DirScanner),
		fromFile: make(map[string]bool),
	}
}

// Register adds or replaces a scanner for the given config.
func (r *Registry) Register(cfg models.ScannerConfig) error {
	s, err := NewDirScanner(cfg)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.scanners[cfg.ID] = s
	delete(r.fromFile, cfg.ID)
	r.mu.Unlock()
	return nil
}

// Unregister removes a scanner. Returns false when the ID is unknown.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.scanners[id]
	delete(r.scanners, id)
	delete(r.fromFile, id)
	return ok
}

// Get returns the scanner or nil.
func (r *Registry) Get(id string) *DirScanner {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scanners[id]
}

// List returns every registered config, sorted by ID for stable output.
func (r *Registry) List() []models.ScannerConfig {
	r.mu.RLock()
	configs := make([]models.ScannerConfig, 0, len(r.scanners))
	for _, s := range r.scanners {
		configs = append(configs, s.Config())
	}
	r.mu.RUnlock()

	sort.Slice(configs, func(i, j int) bool { return configs[i].ID < configs[j].ID })
	return configs
}

// ReplaceFileScanners swaps out every file-sourced scanner for the given
// configs. User-registered scanners are untouched. Invalid configs are
// skipped, not fatal — one bad definition must not empty the registry.
func (r *Registry) ReplaceFileScanners(configs []models.ScannerConfig) []error {
	var errs []error
	fresh := make(map[string]*DirScanner, len(configs))
	for _, cfg := range configs {
		s, err := NewDirScanner(cfg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fresh[cfg.ID] = s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.fromFile {
		delete(r.scanners, id)
		delete(r.fromFile, id)
	}
	for id, s := range fresh {
		r.scanners[id] = s
		r.fromFile[id] = true
	}
	return errs
}

// ScanAll runs every scanner with bounded concurrency and returns the
// results that exist, are non-empty, and clear the scanner's minimum size.
// Sorted by size descending.
func (r *Registry) ScanAll(ctx context.Context) []ScanResult {
	r.mu.RLock()
	scanners := make([]*DirScanner, 0, len(r.scanners))
	for _, s := range r.scanners {
		scanners = append(scanners, s)
	}
	r.mu.RUnlock()

	var (
		wg      sync.WaitGroup
		sem     = make(chan struct{}, scanConcurrency)
		mu      sync.Mutex
		results []ScanResult
	)
	for _, s := range scanners {
		wg.Add(1)
		sem <- struct{}{}
		go func(s *DirScanner) {
			defer wg.Done()
			defer func() { <-sem }()

			res, err := s.Scan(ctx)
			if err != nil || !res.Exists || res.SizeBytes == 0 {
				return
			}
			if min := s.Config().MinSizeMB; min != nil && res.SizeBytes < *min*1024*1024 {
				return
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}(s)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].SizeBytes > results[j].SizeBytes })
	return results
}

// Clean runs one scanner's cleanup.
func (r *Registry) Clean(ctx context.Context, id string, dryRun bool) (CleanResult, error) {
	s := r.Get(id)
	if s == nil {
		return CleanResult{}, fmt.Errorf("scanner not found: %s", id)
	}
	return s.Clean(ctx, dryRun)
}
