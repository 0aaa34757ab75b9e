package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cfilipov/cachewise/internal/models"
)

// seedDir creates a cache-like directory: two top-level entries, 300 bytes
// total.
func seedDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.bin"), make([]byte, 100), 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b.bin"), make([]byte, 200), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestDirScannerScan(t *testing.T) {
	t.Parallel()

	dir := seedDir(t)
	s, err := NewDirScanner(models.ScannerConfig{ID: "test", Name: "Test", Path: dir})
	if err != nil {
		t.Fatal(err)
	}

	res, err := s.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Exists {
		t.Fatal("path should exist")
	}
	if res.SizeBytes != 300 {
		t.Errorf("size = %d, want 300", res.SizeBytes)
	}
	if res.ItemCount != 2 {
		t.Errorf("item count = %d, want 2", res.ItemCount)
	}
}

func TestDirScannerScanMissingPath(t *testing.T) {
	t.Parallel()

	s, err := NewDirScanner(models.ScannerConfig{ID: "gone", Name: "Gone", Path: "/does/not/exist"})
	if err != nil {
		t.Fatal(err)
	}

	res, err := s.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Exists || res.SizeBytes != 0 || res.ItemCount != 0 {
		t.Errorf("missing path result: %+v", res)
	}
}

func TestDirScannerCleanDryRun(t *testing.T) {
	t.Parallel()

	dir := seedDir(t)
	s, _ := NewDirScanner(models.ScannerConfig{ID: "test", Name: "Test", Path: dir})

	res, err := s.Clean(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || !res.DryRun {
		t.Errorf("dry run result: %+v", res)
	}
	if res.FreedBytes != 300 || res.ItemsRemoved != 2 {
		t.Errorf("dry run stats: %+v", res)
	}

	// Nothing was touched
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("dry run removed files: %d entries left", len(entries))
	}
}

func TestDirScannerClean(t *testing.T) {
	t.Parallel()

	dir := seedDir(t)
	s, _ := NewDirScanner(models.ScannerConfig{ID: "test", Name: "Test", Path: dir})

	res, err := s.Clean(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.FreedBytes != 300 || res.ItemsRemoved != 2 {
		t.Errorf("clean result: %+v", res)
	}

	// Contents gone, directory itself preserved
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("directory itself was removed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("%d entries left after clean", len(entries))
	}
}

func TestDirScannerCleanMissingPath(t *testing.T) {
	t.Parallel()

	s, _ := NewDirScanner(models.ScannerConfig{ID: "gone", Name: "Gone", Path: "/does/not/exist"})
	res, err := s.Clean(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.FreedBytes != 0 {
		t.Errorf("missing path clean: %+v", res)
	}
}

func TestRegistryRegisterListUnregister(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if err := reg.Register(models.ScannerConfig{ID: "b", Name: "B", Path: t.TempDir()}); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(models.ScannerConfig{ID: "a", Name: "A", Path: t.TempDir()}); err != nil {
		t.Fatal(err)
	}

	list := reg.List()
	if len(list) != 2 || list[0].ID != "a" || list[1].ID != "b" {
		t.Errorf("list = %+v", list)
	}

	if !reg.Unregister("a") {
		t.Error("unregister known id should return true")
	}
	if reg.Unregister("a") {
		t.Error("unregister unknown id should return false")
	}
	if reg.Get("a") != nil {
		t.Error("scanner still present after unregister")
	}
}

func TestRegistryScanAllFiltering(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()

	big := seedDir(t) // 300 bytes
	empty := t.TempDir()
	min := uint64(1) // 1 MB — far above the 300-byte dir

	reg.Register(models.ScannerConfig{ID: "big", Name: "Big", Path: big})
	reg.Register(models.ScannerConfig{ID: "empty", Name: "Empty", Path: empty})
	reg.Register(models.ScannerConfig{ID: "missing", Name: "Missing", Path: "/does/not/exist"})
	reg.Register(models.ScannerConfig{ID: "belowmin", Name: "BelowMin", Path: seedDir(t), MinSizeMB: &min})

	results := reg.ScanAll(context.Background())
	if len(results) != 1 {
		t.Fatalf("results = %+v, want only the non-empty unfiltered dir", results)
	}
	if results[0].ID != "big" || results[0].SizeBytes != 300 {
		t.Errorf("result = %+v", results[0])
	}
}

func TestRegistryCleanUnknown(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if _, err := reg.Clean(context.Background(), "nope", false); err == nil {
		t.Error("expected error for unknown scanner")
	}
}

func TestReplaceFileScanners(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(models.ScannerConfig{ID: "user", Name: "User", Path: t.TempDir()})

	reg.ReplaceFileScanners([]models.ScannerConfig{
		{ID: "file1", Name: "F1", Path: t.TempDir()},
		{ID: "file2", Name: "F2", Path: t.TempDir()},
	})
	if len(reg.List()) != 3 {
		t.Fatalf("list = %+v", reg.List())
	}

	// Reload with one entry: file scanners replaced, user scanner kept.
	reg.ReplaceFileScanners([]models.ScannerConfig{
		{ID: "file3", Name: "F3", Path: t.TempDir()},
	})
	list := reg.List()
	if len(list) != 2 {
		t.Fatalf("after reload: %+v", list)
	}
	if reg.Get("user") == nil || reg.Get("file3") == nil {
		t.Error("wrong scanners survived the reload")
	}
	if reg.Get("file1") != nil || reg.Get("file2") != nil {
		t.Error("stale file scanners survived the reload")
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scanners.yaml")
	content := `scanners:
  - id: npm
    name: npm cache
    path: /tmp/npm
    min_size_mb: 50
  - id: pip
    path: /tmp/pip
  - name: no id, skipped
    path: /tmp/x
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	configs, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(configs) != 2 {
		t.Fatalf("configs = %+v", configs)
	}
	if configs[0].ID != "npm" || configs[0].MinSizeMB == nil || *configs[0].MinSizeMB != 50 {
		t.Errorf("npm config = %+v", configs[0])
	}
	// Missing name defaults to the id
	if configs[1].Name != "pip" {
		t.Errorf("pip name = %q", configs[1].Name)
	}
}

func TestLoadFileBadYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scanners.yaml")
	if err := os.WriteFile(path, []byte("scanners: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("expected parse error")
	}
}
