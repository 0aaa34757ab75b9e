package engine

import (
	"context"
	"testing"
)

// seedInventory loads a fakeRunner with a small but complete inventory:
// one running and one exited container, one used image, one dangling image,
// one used and one orphan volume, defaults plus one unused network, and a
// non-empty build cache.
func seedInventory(f *fakeRunner) {
	f.stdout["ps -a --no-trunc --format "+containerFormat] = "" +
		"c1\tweb\tnginx:latest\tUp 2 hours\trunning\t10MB\t2026-01-01\t80/tcp\n" +
		"c2\tworker\tredis:7\tExited (0) 2 weeks ago\texited\t100MB\t2026-01-02\t\n" +
		"short\tline\n"

	f.stdout["images -a --no-trunc --format {{.ID}}\t{{.Repository}}\t{{.Tag}}\t{{.Size}}\t{{.CreatedAt}}"] = "" +
		"img1\tnginx\tlatest\t200MB\t2026-01-01\n" +
		"img2\t<none>\t<none>\t50MB\t2026-01-02\n" +
		"img3\tredis\t7\t150MB\t2026-01-03\n"

	f.stdout["images -f dangling=true -q --no-trunc"] = "img2\n"

	f.stdout["ps -a --no-trunc --format {{.ID}}\t{{.Image}}"] = "" +
		"c1\tnginx:latest\nc2\tredis:7\n"
	f.stdout["ps -aq --no-trunc"] = "c1\nc2\n"
	f.stdout["inspect --format {{.Id}}\t{{.Image}} c1 c2"] = "" +
		"c1\tsha256:img1\nc2\tsha256:img3\n"

	f.stdout["volume ls --format {{.Name}}\t{{.Driver}}\t{{.Mountpoint}}"] = "" +
		"data\tlocal\t/var/lib/docker/volumes/data\n" +
		"stale\tlocal\t/var/lib/docker/volumes/stale\n"
	f.stdout["ps -a --no-trunc --format {{.ID}}\t{{.Mounts}}"] = "c1\tdata\n"

	f.stdout["network ls --no-trunc --format {{.ID}}\t{{.Name}}\t{{.Driver}}\t{{.Scope}}"] = "" +
		"n1\tbridge\tbridge\tlocal\n" +
		"n2\thost\thost\tlocal\n" +
		"n3\tnone\tnull\tlocal\n" +
		"n4\tappnet\tbridge\tlocal\n"
	f.stdout["ps -a --no-trunc --format {{.ID}}\t{{.Networks}}"] = "c1\tbridge\n"

	f.stdout["system df --format {{.Type}}\t{{.Size}}"] = "" +
		"Images\t400MB\nContainers\t110MB\nLocal Volumes\t20MB\nBuild Cache\t10MB\n"
}

func TestScanInventory(t *testing.T) {
	t.Parallel()

	f := newFakeRunner()
	seedInventory(f)
	svc := NewService(f)

	scan := svc.Scan(context.Background())

	if !scan.DaemonRunning {
		t.Fatal("daemon should be reported running")
	}
	if len(scan.Containers) != 2 {
		t.Fatalf("containers = %d, want 2 (malformed row must be dropped)", len(scan.Containers))
	}
	if scan.Containers[1].State != StateExited || scan.Containers[1].Size != 100*1024*1024 {
		t.Errorf("exited container parsed wrong: %+v", scan.Containers[1])
	}
	if len(scan.Images) != 3 || len(scan.Volumes) != 2 || len(scan.Networks) != 4 {
		t.Fatalf("resource counts = %d/%d/%d", len(scan.Images), len(scan.Volumes), len(scan.Networks))
	}
	if scan.BuildCacheSize != 10*1024*1024 {
		t.Errorf("build cache = %d", scan.BuildCacheSize)
	}

	// Usage annotations
	if got := scan.Images[0].UsedByContainers; len(got) == 0 {
		t.Error("nginx:latest should be used by c1")
	}
	if got := scan.Images[2].UsedByContainers; len(got) == 0 {
		t.Error("redis:7 should be used by c2")
	}
	if len(scan.Images[1].UsedByContainers) != 0 {
		t.Error("dangling image should be unused")
	}
	if len(scan.Volumes[0].UsedByContainers) != 1 || len(scan.Volumes[1].UsedByContainers) != 0 {
		t.Errorf("volume usage wrong: %+v", scan.Volumes)
	}

	// Derived counts
	if scan.StoppedContainersCount != 1 {
		t.Errorf("stopped containers = %d", scan.StoppedContainersCount)
	}
	if scan.DanglingImagesCount != 1 {
		t.Errorf("dangling images = %d", scan.DanglingImagesCount)
	}
	if scan.UnusedImagesCount != 1 {
		t.Errorf("unused images = %d", scan.UnusedImagesCount)
	}
	if scan.OrphanVolumesCount != 1 {
		t.Errorf("orphan volumes = %d", scan.OrphanVolumesCount)
	}
	// appnet is the only unused non-default network
	if scan.UnusedNetworksCount != 1 {
		t.Errorf("unused networks = %d", scan.UnusedNetworksCount)
	}

	// Volume sizes are unknown, never invented
	for _, v := range scan.Volumes {
		if v.Size != nil {
			t.Errorf("volume %s has invented size %d", v.Name, *v.Size)
		}
	}
}

func TestScanDaemonDown(t *testing.T) {
	t.Parallel()

	f := newFakeRunner()
	f.daemonDown = true
	svc := NewService(f)

	scan := svc.Scan(context.Background())

	if scan.DaemonRunning {
		t.Fatal("daemon should be down")
	}
	if scan.Containers == nil || scan.Images == nil || scan.Volumes == nil || scan.Networks == nil {
		t.Error("daemon-down result must be well-formed, not nil slices")
	}
	if scan.TotalReclaimable != 0 || scan.StoppedContainersCount != 0 {
		t.Error("daemon-down result must be empty")
	}
	// Only the info probe may run
	if f.callCount() != 1 {
		t.Errorf("expected 1 invocation, got %d: %v", f.callCount(), f.calledKeys())
	}
}

func TestScanToleratesFailedScanner(t *testing.T) {
	t.Parallel()

	f := newFakeRunner()
	seedInventory(f)
	f.failures["images -a --no-trunc --format {{.ID}}\t{{.Repository}}\t{{.Tag}}\t{{.Size}}\t{{.CreatedAt}}"] = "boom"
	svc := NewService(f)

	scan := svc.Scan(context.Background())

	if len(scan.Images) != 0 {
		t.Errorf("failed image scan should contribute an empty list, got %d", len(scan.Images))
	}
	if len(scan.Containers) != 2 || len(scan.Volumes) != 2 {
		t.Error("other scanners must be unaffected by one failure")
	}
}

func TestDanglingHeuristicORSemantics(t *testing.T) {
	t.Parallel()

	f := newFakeRunner()
	seedInventory(f)
	// Filter query returns nothing; img2 must still be dangling via <none>/<none>.
	f.stdout["images -f dangling=true -q --no-trunc"] = ""
	svc := NewService(f)

	scan := svc.Scan(context.Background())

	if !scan.Images[1].IsDangling {
		t.Error("<none>/<none> image must be dangling regardless of the filter query")
	}

	// And the reverse: tagged image reported by the filter is dangling too.
	f2 := newFakeRunner()
	seedInventory(f2)
	f2.stdout["images -f dangling=true -q --no-trunc"] = "img1\nimg2\n"
	scan2 := NewService(f2).Scan(context.Background())
	if !scan2.Images[0].IsDangling {
		t.Error("image reported by the dangling filter must be dangling despite repo/tag")
	}
}

func TestAggregateReclaimable(t *testing.T) {
	t.Parallel()

	volSize := uint64(50 * 1024 * 1024)
	r := ScanResult{
		DaemonRunning: true,
		Containers: []Container{
			{ID: "c1", State: StateExited, Size: 100 * 1024 * 1024},
			{ID: "c2", State: StateRunning, Size: 999 * 1024 * 1024},
		},
		Images: []Image{
			{ID: "i1", Size: 200 * 1024 * 1024, UsedByContainers: []string{}},
			{ID: "i2", Size: 300 * 1024 * 1024, UsedByContainers: []string{"c2"}},
		},
		Volumes: []Volume{
			{Name: "v1", Size: &volSize, UsedByContainers: []string{}},
			{Name: "v2", UsedByContainers: []string{}}, // size unknown
		},
		Networks:       []Network{{ID: "n1", Name: "bridge"}},
		BuildCacheSize: 10 * 1024 * 1024,
	}
	aggregate(&r)

	want := uint64(360 * 1024 * 1024)
	if r.TotalReclaimable != want {
		t.Errorf("total reclaimable = %d, want %d", r.TotalReclaimable, want)
	}
	if r.UnusedNetworksCount != 0 {
		t.Error("default network must not count as unused")
	}
	if r.OrphanVolumesCount != 2 {
		t.Errorf("orphan volumes = %d, want 2", r.OrphanVolumesCount)
	}
}

func TestAggregateCountsImageOnce(t *testing.T) {
	t.Parallel()

	// Dangling AND unused — summed once via the unused bucket.
	r := ScanResult{
		DaemonRunning: true,
		Images: []Image{
			{ID: "i1", Size: 100, IsDangling: true, UsedByContainers: []string{}},
		},
	}
	aggregate(&r)

	if r.TotalReclaimable != 100 {
		t.Errorf("total = %d, want 100 (no double counting)", r.TotalReclaimable)
	}
	if r.DanglingImagesCount != 1 || r.UnusedImagesCount != 1 {
		t.Errorf("counts = %d/%d", r.DanglingImagesCount, r.UnusedImagesCount)
	}
}

func TestScanFilters(t *testing.T) {
	t.Parallel()

	f := newFakeRunner()
	seedInventory(f)
	scan := NewService(f).Scan(context.Background())

	if got := scan.StoppedContainers(); len(got) != 1 || got[0].ID != "c2" {
		t.Errorf("StoppedContainers = %+v", got)
	}
	if got := scan.DanglingImages(); len(got) != 1 || got[0].ID != "img2" {
		t.Errorf("DanglingImages = %+v", got)
	}
	if got := scan.OrphanVolumes(); len(got) != 1 || got[0].Name != "stale" {
		t.Errorf("OrphanVolumes = %+v", got)
	}
	if got := scan.UnusedNetworks(); len(got) != 1 || got[0].Name != "appnet" {
		t.Errorf("UnusedNetworks = %+v", got)
	}
}
