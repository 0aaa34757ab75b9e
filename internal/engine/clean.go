package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// daemonDownResult is returned by every cleanup operation when the engine's
// background service is unreachable.
func daemonDownResult() CleanResult {
	return CleanResult{Message: "Docker daemon is not running"}
}

func emptyInputResult(what string) CleanResult {
	return CleanResult{Success: true, Message: "No " + what + " to remove"}
}

// RemoveContainers deletes the given containers one at a time. Sizes are
// re-snapshotted before deletion because `rm` does not report freed bytes.
// Per-item failures are collected and do not stop the batch.
func (s *Service) RemoveContainers(ctx context.Context, ids []string, force bool) CleanResult {
	if len(ids) == 0 {
		return emptyInputResult("containers")
	}
	if !s.DaemonRunning(ctx) {
		return daemonDownResult()
	}

	sizes := make(map[string]uint64)
	for _, c := range s.scanContainers(ctx) {
		sizes[c.ID] = c.Size
	}

	var (
		removed int
		freed   uint64
		errs    []string
	)
	for _, id := range ids {
		args := []string{"rm"}
		if force {
			args = append(args, "-f")
		}
		args = append(args, id)

		if res := s.run.Run(ctx, args...); res.OK() {
			removed++
			freed += sizes[id]
		} else {
			errs = append(errs, fmt.Sprintf("%s: %s", id, strings.TrimSpace(res.Stderr)))
		}
	}

	return CleanResult{
		FreedBytes:        freed,
		ContainersRemoved: removed,
		Success:           len(errs) == 0,
		Message:           batchMessage("container", removed, errs),
	}
}

// RemoveImages deletes the given images one at a time, re-snapshotting sizes
// first.
func (s *Service) RemoveImages(ctx context.Context, ids []string, force bool) CleanResult {
	if len(ids) == 0 {
		return emptyInputResult("images")
	}
	if !s.DaemonRunning(ctx) {
		return daemonDownResult()
	}

	sizes := make(map[string]uint64)
	for _, i := range s.scanImages(ctx) {
		sizes[i.ID] = i.Size
	}

	var (
		removed int
		freed   uint64
		errs    []string
	)
	for _, id := range ids {
		args := []string{"rmi"}
		if force {
			args = append(args, "-f")
		}
		args = append(args, id)

		if res := s.run.Run(ctx, args...); res.OK() {
			removed++
			freed += sizes[id]
		} else {
			errs = append(errs, fmt.Sprintf("%s: %s", id, strings.TrimSpace(res.Stderr)))
		}
	}

	return CleanResult{
		FreedBytes:    freed,
		ImagesRemoved: removed,
		Success:       len(errs) == 0,
		Message:       batchMessage("image", removed, errs),
	}
}

// RemoveVolumes deletes the given named volumes. Freed bytes stay zero —
// per-volume sizes are unknown (see Volume.Size).
func (s *Service) RemoveVolumes(ctx context.Context, names []string) CleanResult {
	if len(names) == 0 {
		return emptyInputResult("volumes")
	}
	if !s.DaemonRunning(ctx) {
		return daemonDownResult()
	}

	var (
		removed int
		errs    []string
	)
	for _, name := range names {
		if res := s.run.Run(ctx, "volume", "rm", name); res.OK() {
			removed++
		} else {
			errs = append(errs, fmt.Sprintf("%s: %s", name, strings.TrimSpace(res.Stderr)))
		}
	}

	return CleanResult{
		VolumesRemoved: removed,
		Success:        len(errs) == 0,
		Message:        batchMessage("volume", removed, errs),
	}
}

// RemoveNetworks deletes the given networks. Default networks are filtered
// out before invocation, even when a caller supplies them explicitly — a
// protected network in the request is a no-op, not an error.
func (s *Service) RemoveNetworks(ctx context.Context, ids []string) CleanResult {
	filtered := make([]string, 0, len(ids))
	for _, id := range ids {
		if !IsDefaultNetwork(id) {
			filtered = append(filtered, id)
		}
	}
	if len(filtered) == 0 {
		return emptyInputResult("networks")
	}
	if !s.DaemonRunning(ctx) {
		return daemonDownResult()
	}

	var (
		removed int
		errs    []string
	)
	for _, id := range filtered {
		if res := s.run.Run(ctx, "network", "rm", id); res.OK() {
			removed++
		} else {
			errs = append(errs, fmt.Sprintf("%s: %s", id, strings.TrimSpace(res.Stderr)))
		}
	}

	return CleanResult{
		NetworksRemoved: removed,
		Success:         len(errs) == 0,
		Message:         batchMessage("network", removed, errs),
	}
}

// SystemPrune runs a broad prune. Freed bytes come from the tool's
// human-readable reclaimed-space line.
func (s *Service) SystemPrune(ctx context.Context, all, volumes bool) CleanResult {
	if !s.DaemonRunning(ctx) {
		return daemonDownResult()
	}

	args := []string{"system", "prune", "-f"}
	if all {
		args = append(args, "-a")
	}
	if volumes {
		args = append(args, "--volumes")
	}

	res := s.run.Run(ctx, args...)
	if !res.OK() {
		return CleanResult{Message: "System prune failed: " + strings.TrimSpace(res.Stderr)}
	}

	freed := parseReclaimedSpace(res.Stdout)
	return CleanResult{
		FreedBytes: freed,
		Success:    true,
		Message:    fmt.Sprintf("System prune completed. Reclaimed %s", FormatSize(freed)),
	}
}

// BuilderPrune clears the entire build cache.
func (s *Service) BuilderPrune(ctx context.Context) CleanResult {
	if !s.DaemonRunning(ctx) {
		return daemonDownResult()
	}

	res := s.run.Run(ctx, "builder", "prune", "-af")
	if !res.OK() {
		return CleanResult{Message: "Builder prune failed: " + strings.TrimSpace(res.Stderr)}
	}

	freed := parseReclaimedSpace(res.Stdout)
	return CleanResult{
		FreedBytes: freed,
		Success:    true,
		Message:    fmt.Sprintf("Builder cache pruned. Reclaimed %s", FormatSize(freed)),
	}
}

// PruneContainers removes all stopped containers.
func (s *Service) PruneContainers(ctx context.Context) CleanResult {
	if !s.DaemonRunning(ctx) {
		return daemonDownResult()
	}

	res := s.run.Run(ctx, "container", "prune", "-f")
	if !res.OK() {
		return CleanResult{Message: "Container prune failed: " + strings.TrimSpace(res.Stderr)}
	}
	return CleanResult{
		FreedBytes:        parseReclaimedSpace(res.Stdout),
		ContainersRemoved: countDeletedItems(res.Stdout),
		Success:           true,
		Message:           "Containers pruned successfully",
	}
}

// PruneImages removes dangling images, or all unused images when all is set.
func (s *Service) PruneImages(ctx context.Context, all bool) CleanResult {
	if !s.DaemonRunning(ctx) {
		return daemonDownResult()
	}

	args := []string{"image", "prune", "-f"}
	if all {
		args = append(args, "-a")
	}
	res := s.run.Run(ctx, args...)
	if !res.OK() {
		return CleanResult{Message: "Image prune failed: " + strings.TrimSpace(res.Stderr)}
	}
	return CleanResult{
		FreedBytes:    parseReclaimedSpace(res.Stdout),
		ImagesRemoved: countDeletedItems(res.Stdout),
		Success:       true,
		Message:       "Images pruned successfully",
	}
}

// PruneVolumes removes all unused volumes.
func (s *Service) PruneVolumes(ctx context.Context) CleanResult {
	if !s.DaemonRunning(ctx) {
		return daemonDownResult()
	}

	res := s.run.Run(ctx, "volume", "prune", "-f")
	if !res.OK() {
		return CleanResult{Message: "Volume prune failed: " + strings.TrimSpace(res.Stderr)}
	}
	return CleanResult{
		FreedBytes:     parseReclaimedSpace(res.Stdout),
		VolumesRemoved: countDeletedItems(res.Stdout),
		Success:        true,
		Message:        "Volumes pruned successfully",
	}
}

// PruneNetworks removes all unused networks. Networks occupy no disk space,
// so no freed bytes are reported.
func (s *Service) PruneNetworks(ctx context.Context) CleanResult {
	if !s.DaemonRunning(ctx) {
		return daemonDownResult()
	}

	res := s.run.Run(ctx, "network", "prune", "-f")
	if !res.OK() {
		return CleanResult{Message: "Network prune failed: " + strings.TrimSpace(res.Stderr)}
	}
	return CleanResult{
		NetworksRemoved: countDeletedItems(res.Stdout),
		Success:         true,
		Message:         "Networks pruned successfully",
	}
}

// CleanSuggestions partitions a suggestion list by resource type and removes
// everything in a fixed dependency order: containers first (images and
// volumes cannot be removed while a container references them), then images,
// volumes, networks, and finally the build cache. Batches run sequentially;
// a failing batch does not stop later ones.
func (s *Service) CleanSuggestions(ctx context.Context, suggestions []Suggestion) CleanResult {
	var (
		containerIDs  []string
		imageIDs      []string
		volumeNames   []string
		networkIDs    []string
		hasBuildCache bool
	)
	for _, sg := range suggestions {
		switch sg.ResourceType {
		case ResourceContainer:
			containerIDs = append(containerIDs, sg.ID)
		case ResourceImage:
			imageIDs = append(imageIDs, sg.ID)
		case ResourceVolume:
			volumeNames = append(volumeNames, sg.ID)
		case ResourceNetwork:
			networkIDs = append(networkIDs, sg.ID)
		case ResourceBuildCache:
			hasBuildCache = true
		}
	}

	var total CleanResult
	var errs []string

	collect := func(r CleanResult) {
		total.FreedBytes += r.FreedBytes
		total.ContainersRemoved += r.ContainersRemoved
		total.ImagesRemoved += r.ImagesRemoved
		total.VolumesRemoved += r.VolumesRemoved
		total.NetworksRemoved += r.NetworksRemoved
		if !r.Success {
			errs = append(errs, r.Message)
		}
	}

	if len(containerIDs) > 0 {
		collect(s.RemoveContainers(ctx, containerIDs, true))
	}
	if len(imageIDs) > 0 {
		collect(s.RemoveImages(ctx, imageIDs, true))
	}
	if len(volumeNames) > 0 {
		collect(s.RemoveVolumes(ctx, volumeNames))
	}
	if len(networkIDs) > 0 {
		collect(s.RemoveNetworks(ctx, networkIDs))
	}
	if hasBuildCache {
		collect(s.BuilderPrune(ctx))
	}

	total.Success = len(errs) == 0
	if total.Success {
		total.Message = fmt.Sprintf(
			"Cleanup complete: %d containers, %d images, %d volumes, %d networks removed. %s freed.",
			total.ContainersRemoved, total.ImagesRemoved, total.VolumesRemoved,
			total.NetworksRemoved, FormatSize(total.FreedBytes))
	} else {
		total.Message = fmt.Sprintf(
			"Partial cleanup: %d containers, %d images, %d volumes, %d networks. Errors: %s",
			total.ContainersRemoved, total.ImagesRemoved, total.VolumesRemoved,
			total.NetworksRemoved, strings.Join(errs, "; "))
		slog.Warn("suggestion cleanup finished with errors", "count", len(errs))
	}
	return total
}

// batchMessage builds the per-batch outcome message: plain on success,
// counts plus concatenated per-item errors otherwise.
func batchMessage(kind string, removed int, errs []string) string {
	if len(errs) == 0 {
		return fmt.Sprintf("Successfully removed %d %s(s)", removed, kind)
	}
	return fmt.Sprintf("Removed %d %s(s) with %d error(s): %s",
		removed, kind, len(errs), strings.Join(errs, "; "))
}
