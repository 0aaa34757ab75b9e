package engine

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Scoring weights. The three sub-scores are each in [0,1]; the weighted sum
// is clamped to [0,1].
const (
	sizeWeight  = 0.3
	ageWeight   = 0.3
	usageWeight = 0.4
)

// Suggestions scans and returns ranked cleanup candidates, highest score
// first. The scoring policy: things that are provably dead weight (dangling
// images, orphan volumes, dead containers) are auto-selected; things that
// cost nothing to keep but might be load-bearing (unused networks,
// non-dangling images) never are.
func (s *Service) Suggestions(ctx context.Context) []Suggestion {
	scan := s.Scan(ctx)
	if !scan.DaemonRunning {
		return []Suggestion{}
	}
	return SuggestionsFrom(scan)
}

// SuggestionsFrom derives ranked candidates from an existing scan. Pure —
// no CLI invocations.
func SuggestionsFrom(scan ScanResult) []Suggestion {
	suggestions := []Suggestion{}

	for _, c := range scan.StoppedContainers() {
		score, reasons, auto := scoreContainer(c)
		suggestions = append(suggestions, Suggestion{
			ResourceType: ResourceContainer,
			ID:           c.ID,
			Name:         c.Name,
			Size:         c.Size,
			Score:        score,
			Reasons:      reasons,
			AutoSelect:   auto,
		})
	}

	for _, i := range scan.Images {
		if !i.IsDangling && len(i.UsedByContainers) > 0 {
			continue
		}
		score, reasons, auto := scoreImage(i)
		suggestions = append(suggestions, Suggestion{
			ResourceType: ResourceImage,
			ID:           i.ID,
			Name:         imageDisplayName(i),
			Size:         i.Size,
			Score:        score,
			Reasons:      reasons,
			AutoSelect:   auto,
		})
	}

	for _, v := range scan.OrphanVolumes() {
		score, reasons, auto := scoreVolume(v)
		var size uint64
		if v.Size != nil {
			size = *v.Size
		}
		suggestions = append(suggestions, Suggestion{
			ResourceType: ResourceVolume,
			ID:           v.Name,
			Name:         v.Name,
			Size:         size,
			Score:        score,
			Reasons:      reasons,
			AutoSelect:   auto,
		})
	}

	for _, n := range scan.UnusedNetworks() {
		score, reasons := scoreNetwork(n)
		suggestions = append(suggestions, Suggestion{
			ResourceType: ResourceNetwork,
			ID:           n.ID,
			Name:         n.Name,
			Score:        score,
			Reasons:      reasons,
			// Networks take no disk space and may be pre-provisioned.
			AutoSelect: false,
		})
	}

	if scan.BuildCacheSize > 0 {
		suggestions = append(suggestions, Suggestion{
			ResourceType: ResourceBuildCache,
			ID:           "build_cache",
			Name:         "Docker Build Cache",
			Size:         scan.BuildCacheSize,
			Score:        0.8,
			Reasons: []string{
				"Build cache: " + FormatSize(scan.BuildCacheSize),
				"Can be safely removed",
			},
			AutoSelect: false,
		})
	}

	sort.SliceStable(suggestions, func(a, b int) bool {
		return suggestions[a].Score > suggestions[b].Score
	})
	return suggestions
}

func scoreContainer(c Container) (float64, []string, bool) {
	var reasons []string
	score := sizeScore(c.Size) * sizeWeight

	if c.Size >= sizeLarge {
		reasons = append(reasons, "Large size: "+FormatSize(c.Size))
	} else if c.Size >= sizeMedium {
		reasons = append(reasons, "Size: "+FormatSize(c.Size))
	}

	switch c.State {
	case StateExited:
		score += usageWeight
		reasons = append(reasons, "Container has exited")
	case StateDead:
		score += usageWeight
		reasons = append(reasons, "Container is dead")
	case StateCreated:
		score += usageWeight * 0.5
		reasons = append(reasons, "Container was created but never started")
	}

	age := ageScore(c.Status)
	score += age * ageWeight
	if age >= 0.8 {
		reasons = append(reasons, "Not used for a long time")
	}

	// Only dead containers are safe enough to pre-check.
	return clamp01(score), reasons, c.State == StateDead
}

func scoreImage(i Image) (float64, []string, bool) {
	var reasons []string
	var score float64
	auto := false

	if i.IsDangling {
		score = 1.0
		auto = true
		reasons = append(reasons, "Dangling image (untagged)")
	} else {
		if len(i.UsedByContainers) == 0 {
			score += usageWeight
			reasons = append(reasons, "Not used by any container")
		}
		score += sizeScore(i.Size) * sizeWeight
	}

	if i.Size >= sizeLarge {
		reasons = append(reasons, "Large size: "+FormatSize(i.Size))
	} else if i.Size >= sizeMedium {
		reasons = append(reasons, "Size: "+FormatSize(i.Size))
	}

	return clamp01(score), reasons, auto
}

func scoreVolume(v Volume) (float64, []string, bool) {
	var reasons []string
	var score float64

	orphan := len(v.UsedByContainers) == 0
	if orphan {
		score = 1.0
		reasons = append(reasons, "Orphan volume (not used by any container)")
	}

	if v.Size != nil {
		if *v.Size >= sizeLarge {
			reasons = append(reasons, "Large size: "+FormatSize(*v.Size))
		} else if *v.Size >= sizeMedium {
			reasons = append(reasons, "Size: "+FormatSize(*v.Size))
		}
	}

	return score, reasons, orphan
}

func scoreNetwork(n Network) (float64, []string) {
	if len(n.UsedByContainers) == 0 {
		return 0.9, []string{"Not used by any container"}
	}
	return 0.3, nil
}

// sizeScore maps bytes to [0,1]: 1.0 at ≥1 GiB, 0.7 at ≥500 MiB, 0.4 at
// ≥100 MiB, linear below that.
func sizeScore(size uint64) float64 {
	switch {
	case size >= sizeLarge:
		return 1.0
	case size >= sizeMedium:
		return 0.7
	case size >= sizeSmall:
		return 0.4
	default:
		return float64(size) / float64(sizeSmall) * 0.4
	}
}

// ageScore estimates how long a container has been idle from its free-text
// status ("Exited (0) 2 weeks ago").
func ageScore(status string) float64 {
	lower := strings.ToLower(status)
	switch {
	case strings.Contains(lower, "months") || strings.Contains(lower, "year"):
		return 1.0
	case strings.Contains(lower, "weeks"):
		switch weeks := numberBefore(lower, "weeks"); {
		case weeks >= 4:
			return 0.9
		case weeks >= 2:
			return 0.6
		default:
			return 0.3
		}
	case strings.Contains(lower, "days"):
		switch days := numberBefore(lower, "days"); {
		case days >= 30:
			return 0.8
		case days >= 7:
			return 0.5
		default:
			return 0.2
		}
	case strings.Contains(lower, "hours"):
		return 0.1
	default:
		return 0
	}
}

// numberBefore extracts the number immediately preceding unit in s
// ("2 weeks ago" → 2). Returns 1 when no number is found so bare unit
// mentions still count as one.
func numberBefore(s, unit string) int {
	idx := strings.Index(s, unit)
	if idx < 0 {
		return 1
	}
	fields := strings.Fields(s[:idx])
	if len(fields) == 0 {
		return 1
	}
	n, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return 1
	}
	return n
}

func imageDisplayName(i Image) string {
	if i.Repository == "<none>" {
		id := strings.TrimPrefix(i.ID, "sha256:")
		if len(id) > 12 {
			id = id[:12]
		}
		return id + "..."
	}
	return fmt.Sprintf("%s:%s", i.Repository, i.Tag)
}

func clamp01(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
