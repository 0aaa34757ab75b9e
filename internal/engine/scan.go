package engine

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Scan performs one full inventory pass: the four resource scanners and the
// build-cache probe run concurrently, each failure-tolerant — a failed
// scanner contributes an empty list rather than failing the pass. A partial
// inventory is preferable to none.
func (s *Service) Scan(ctx context.Context) ScanResult {
	if !s.DaemonRunning(ctx) {
		return ScanResult{
			Containers: []Container{},
			Images:     []Image{},
			Volumes:    []Volume{},
			Networks:   []Network{},
		}
	}

	var (
		wg         sync.WaitGroup
		containers []Container
		images     []Image
		volumes    []Volume
		networks   []Network
		buildCache uint64
	)

	wg.Add(5)
	go func() { defer wg.Done(); containers = s.scanContainers(ctx) }()
	go func() { defer wg.Done(); images = s.scanImages(ctx) }()
	go func() { defer wg.Done(); volumes = s.scanVolumes(ctx) }()
	go func() { defer wg.Done(); networks = s.scanNetworks(ctx) }()
	go func() { defer wg.Done(); buildCache = s.buildCacheSize(ctx) }()
	wg.Wait()

	result := ScanResult{
		DaemonRunning:  true,
		Containers:     containers,
		Images:         images,
		Volumes:        volumes,
		Networks:       networks,
		BuildCacheSize: buildCache,
	}
	aggregate(&result)
	return result
}

// aggregate fills in the derived counts and total reclaimable bytes. An
// image can be both dangling and unused; it is summed once via the unused
// bucket.
func aggregate(r *ScanResult) {
	var containerBytes, imageBytes, volumeBytes uint64

	for _, c := range r.Containers {
		if c.State != StateRunning {
			r.StoppedContainersCount++
			containerBytes += c.Size
		}
	}
	for _, i := range r.Images {
		if i.IsDangling {
			r.DanglingImagesCount++
		}
		if len(i.UsedByContainers) == 0 {
			r.UnusedImagesCount++
			imageBytes += i.Size
		}
	}
	for _, v := range r.Volumes {
		if len(v.UsedByContainers) == 0 {
			r.OrphanVolumesCount++
			if v.Size != nil {
				volumeBytes += *v.Size
			}
		}
	}
	for _, n := range r.Networks {
		if len(n.UsedByContainers) == 0 && !IsDefaultNetwork(n.Name) {
			r.UnusedNetworksCount++
		}
	}

	r.TotalReclaimable = containerBytes + imageBytes + volumeBytes + r.BuildCacheSize
}

const containerFormat = "{{.ID}}\t{{.Names}}\t{{.Image}}\t{{.Status}}\t{{.State}}\t{{.Size}}\t{{.CreatedAt}}\t{{.Ports}}"

// scanContainers lists all containers. Rows with fewer than six columns are
// dropped; trailing columns default to empty.
func (s *Service) scanContainers(ctx context.Context) []Container {
	res := s.run.Run(ctx, "ps", "-a", "--no-trunc", "--format", containerFormat)
	if !res.OK() {
		slog.Warn("container scan failed", "stderr", strings.TrimSpace(res.Stderr))
		return []Container{}
	}

	containers := []Container{}
	for _, line := range splitLines(res.Stdout) {
		cols := strings.Split(line, "\t")
		if len(cols) < 6 {
			continue
		}
		containers = append(containers, Container{
			ID:      cols[0],
			Name:    cols[1],
			Image:   cols[2],
			Status:  cols[3],
			State:   ParseContainerState(cols[4]),
			Size:    ParseSize(cols[5]),
			Created: col(cols, 6),
			Ports:   col(cols, 7),
		})
	}
	return containers
}

// scanImages lists all images, ORing the repo/tag placeholder heuristic with
// the engine's own dangling filter, and annotates usage from the container
// cross-reference.
func (s *Service) scanImages(ctx context.Context) []Image {
	res := s.run.Run(ctx, "images", "-a", "--no-trunc", "--format",
		"{{.ID}}\t{{.Repository}}\t{{.Tag}}\t{{.Size}}\t{{.CreatedAt}}")
	if !res.OK() {
		slog.Warn("image scan failed", "stderr", strings.TrimSpace(res.Stderr))
		return []Image{}
	}

	danglingIDs := make(map[string]bool)
	if d := s.run.Run(ctx, "images", "-f", "dangling=true", "-q", "--no-trunc"); d.OK() {
		for _, id := range splitLines(d.Stdout) {
			danglingIDs[id] = true
		}
	}

	usage := s.containerImageUsage(ctx)

	images := []Image{}
	for _, line := range splitLines(res.Stdout) {
		cols := strings.Split(line, "\t")
		if len(cols) < 4 {
			continue
		}
		id, repo, tag := cols[0], cols[1], cols[2]

		// Usage may be recorded under the bare ID, the sha256-prefixed ID,
		// or the repo:tag reference a container was created from.
		usedBy := usage.usedBy(strings.TrimPrefix(id, "sha256:"))
		if len(usedBy) == 0 {
			usedBy = usage.usedBy(repo + ":" + tag)
		}
		if len(usedBy) == 0 && tag == "latest" {
			usedBy = usage.usedBy(repo)
		}

		images = append(images, Image{
			ID:               id,
			Repository:       repo,
			Tag:              tag,
			Size:             ParseSize(cols[3]),
			Created:          col(cols, 4),
			IsDangling:       danglingIDs[id] || (repo == "<none>" && tag == "<none>"),
			UsedByContainers: usedBy,
		})
	}
	return images
}

// scanVolumes lists named volumes with usage annotations. Per-volume size is
// left unknown — `system df` reports aggregates, not per-volume bytes, and
// inventing a number would corrupt the reclaimable total.
func (s *Service) scanVolumes(ctx context.Context) []Volume {
	res := s.run.Run(ctx, "volume", "ls", "--format", "{{.Name}}\t{{.Driver}}\t{{.Mountpoint}}")
	if !res.OK() {
		slog.Warn("volume scan failed", "stderr", strings.TrimSpace(res.Stderr))
		return []Volume{}
	}

	usage := s.containerFieldUsage(ctx, "{{.Mounts}}")

	volumes := []Volume{}
	for _, line := range splitLines(res.Stdout) {
		cols := strings.Split(line, "\t")
		if len(cols) < 2 {
			continue
		}
		volumes = append(volumes, Volume{
			Name:             cols[0],
			Driver:           cols[1],
			Mountpoint:       col(cols, 2),
			UsedByContainers: usage.usedBy(cols[0]),
		})
	}
	return volumes
}

// scanNetworks lists networks with usage annotations. Default networks are
// listed (the dashboard shows them) but excluded from unused counts and
// candidates elsewhere.
func (s *Service) scanNetworks(ctx context.Context) []Network {
	res := s.run.Run(ctx, "network", "ls", "--no-trunc", "--format",
		"{{.ID}}\t{{.Name}}\t{{.Driver}}\t{{.Scope}}")
	if !res.OK() {
		slog.Warn("network scan failed", "stderr", strings.TrimSpace(res.Stderr))
		return []Network{}
	}

	usage := s.containerFieldUsage(ctx, "{{.Networks}}")

	networks := []Network{}
	for _, line := range splitLines(res.Stdout) {
		cols := strings.Split(line, "\t")
		if len(cols) < 3 {
			continue
		}
		networks = append(networks, Network{
			ID:               cols[0],
			Name:             cols[1],
			Driver:           cols[2],
			Scope:            col(cols, 3),
			UsedByContainers: usage.usedBy(cols[1]),
		})
	}
	return networks
}

// buildCacheSize reads the build-cache row of `system df`.
func (s *Service) buildCacheSize(ctx context.Context) uint64 {
	res := s.run.Run(ctx, "system", "df", "--format", "{{.Type}}\t{{.Size}}")
	if !res.OK() {
		return 0
	}
	for _, line := range splitLines(res.Stdout) {
		kind, size, ok := strings.Cut(line, "\t")
		if ok && strings.Contains(strings.ToLower(kind), "build") {
			return ParseSize(size)
		}
	}
	return 0
}

// col returns cols[i] or "" when the row is short.
func col(cols []string, i int) string {
	if i < len(cols) {
		return cols[i]
	}
	return ""
}
