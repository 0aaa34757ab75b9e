package models

import (
	"path/filepath"
	"testing"

	bolt "go.etcd.io/bbolt"

	"github.com/cfilipov/cachewise/internal/db"
)

func openTestDatabase(t *testing.T) *bolt.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// --- UserStore ---

func TestUserStoreCreateAndFind(t *testing.T) {
	t.Parallel()
	store := NewUserStore(openTestDatabase(t))

	user, err := store.Create("alice", "password123")
	if err != nil {
		t.Fatal(err)
	}
	if user.Username != "alice" {
		t.Errorf("username = %q", user.Username)
	}
	if user.ID == 0 {
		t.Error("expected non-zero ID")
	}

	found, err := store.FindByUsername("alice")
	if err != nil {
		t.Fatal(err)
	}
	if found == nil || found.Username != "alice" {
		t.Fatalf("FindByUsername = %+v", found)
	}

	foundByID, err := store.FindByID(user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if foundByID == nil || foundByID.Username != "alice" {
		t.Fatalf("FindByID = %+v", foundByID)
	}

	notFound, err := store.FindByUsername("bob")
	if err != nil {
		t.Fatal(err)
	}
	if notFound != nil {
		t.Error("expected nil for nonexistent user")
	}
}

func TestUserStoreCount(t *testing.T) {
	t.Parallel()
	store := NewUserStore(openTestDatabase(t))

	count, err := store.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("initial count = %d, want 0", count)
	}

	store.Create("user1", "pass1")
	store.Create("user2", "pass2")

	count, err = store.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("count after 2 creates = %d, want 2", count)
	}
}

func TestUserStoreChangePassword(t *testing.T) {
	t.Parallel()
	store := NewUserStore(openTestDatabase(t))

	user, err := store.Create("admin", "oldpassword")
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyPassword("oldpassword", user.Password) {
		t.Fatal("old password should verify")
	}

	if err := store.ChangePassword(user.ID, "newpassword"); err != nil {
		t.Fatal(err)
	}

	updated, err := store.FindByUsername("admin")
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyPassword("newpassword", updated.Password) {
		t.Error("new password should verify")
	}
	if VerifyPassword("oldpassword", updated.Password) {
		t.Error("old password should no longer verify")
	}
}

// --- SettingStore ---

func TestSettingStoreGetSet(t *testing.T) {
	t.Parallel()
	store := NewSettingStore(openTestDatabase(t))

	val, err := store.Get("missing")
	if err != nil {
		t.Fatal(err)
	}
	if val != "" {
		t.Errorf("expected empty for missing key, got %q", val)
	}

	if err := store.Set("dockerBin", "podman"); err != nil {
		t.Fatal(err)
	}
	val, err = store.Get("dockerBin")
	if err != nil {
		t.Fatal(err)
	}
	if val != "podman" {
		t.Errorf("val = %q, want podman", val)
	}

	// Overwrite
	if err := store.Set("dockerBin", "docker"); err != nil {
		t.Fatal(err)
	}
	val, err = store.Get("dockerBin")
	if err != nil {
		t.Fatal(err)
	}
	if val != "docker" {
		t.Errorf("val = %q, want docker", val)
	}
}

func TestSettingStoreGetAll(t *testing.T) {
	t.Parallel()
	store := NewSettingStore(openTestDatabase(t))

	store.Set("key1", "val1")
	store.Set("key2", "val2")

	all, err := store.GetAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 settings, got %d", len(all))
	}
	if all["key1"] != "val1" {
		t.Errorf("key1 = %q", all["key1"])
	}
}

func TestSettingStoreEnsureJWTSecret(t *testing.T) {
	t.Parallel()
	store := NewSettingStore(openTestDatabase(t))

	secret1, err := store.EnsureJWTSecret()
	if err != nil {
		t.Fatal(err)
	}
	if secret1 == "" {
		t.Fatal("expected non-empty secret")
	}

	// Idempotent
	secret2, err := store.EnsureJWTSecret()
	if err != nil {
		t.Fatal(err)
	}
	if secret1 != secret2 {
		t.Error("EnsureJWTSecret is not idempotent")
	}
}

func TestSettingStoreInvalidateCache(t *testing.T) {
	t.Parallel()
	store := NewSettingStore(openTestDatabase(t))

	store.Set("key", "cached-value")
	store.Get("key") // populate cache

	store.InvalidateCache()

	val, err := store.Get("key")
	if err != nil {
		t.Fatal(err)
	}
	if val != "cached-value" {
		t.Errorf("val = %q after cache invalidation", val)
	}
}

// --- ScannerStore ---

func TestScannerStoreSaveGetDelete(t *testing.T) {
	t.Parallel()
	store := NewScannerStore(openTestDatabase(t))

	min := uint64(100)
	cfg := ScannerConfig{ID: "npm", Name: "npm cache", Path: "~/.npm", MinSizeMB: &min}
	if err := store.Save(cfg); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get("npm")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Name != "npm cache" || got.Path != "~/.npm" {
		t.Fatalf("Get = %+v", got)
	}
	if got.MinSizeMB == nil || *got.MinSizeMB != 100 {
		t.Errorf("MinSizeMB = %v", got.MinSizeMB)
	}

	if err := store.Delete("npm"); err != nil {
		t.Fatal(err)
	}
	got, err = store.Get("npm")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}

	// Deleting an unknown ID is not an error
	if err := store.Delete("nope"); err != nil {
		t.Errorf("delete unknown: %v", err)
	}
}

func TestScannerStoreSaveRequiresID(t *testing.T) {
	t.Parallel()
	store := NewScannerStore(openTestDatabase(t))

	if err := store.Save(ScannerConfig{Name: "no id"}); err == nil {
		t.Error("expected error for empty ID")
	}
}

func TestScannerStoreGetAll(t *testing.T) {
	t.Parallel()
	store := NewScannerStore(openTestDatabase(t))

	store.Save(ScannerConfig{ID: "a", Name: "A", Path: "/tmp/a"})
	store.Save(ScannerConfig{ID: "b", Name: "B", Path: "/tmp/b"})
	// Upsert overwrites, not duplicates
	store.Save(ScannerConfig{ID: "a", Name: "A2", Path: "/tmp/a"})

	all, err := store.GetAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 configs, got %d", len(all))
	}
}
