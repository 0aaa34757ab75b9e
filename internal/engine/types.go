package engine

import "strings"

// ContainerState is the engine-reported lifecycle state of a container.
type ContainerState string

const (
	StateRunning    ContainerState = "running"
	StateExited     ContainerState = "exited"
	StateCreated    ContainerState = "created"
	StatePaused     ContainerState = "paused"
	StateRestarting ContainerState = "restarting"
	StateDead       ContainerState = "dead"
	StateRemoving   ContainerState = "removing"
	StateUnknown    ContainerState = "unknown"
)

// ParseContainerState maps a CLI state string to a ContainerState.
// Unrecognized values become StateUnknown.
func ParseContainerState(s string) ContainerState {
	switch state := ContainerState(strings.ToLower(s)); state {
	case StateRunning, StateExited, StateCreated, StatePaused,
		StateRestarting, StateDead, StateRemoving:
		return state
	default:
		return StateUnknown
	}
}

// ResourceType tags a suggestion with the kind of resource it refers to.
type ResourceType string

const (
	ResourceContainer  ResourceType = "container"
	ResourceImage      ResourceType = "image"
	ResourceVolume     ResourceType = "volume"
	ResourceNetwork    ResourceType = "network"
	ResourceBuildCache ResourceType = "build_cache"
)

// Container is one engine container in any state. Immutable snapshot parsed
// from a single `ps -a` row; discarded after the scan cycle.
type Container struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Image   string         `json:"image"`
	Status  string         `json:"status"`
	State   ContainerState `json:"state"`
	Size    uint64         `json:"size"`
	Created string         `json:"created"`
	Ports   string         `json:"ports"`
}

// Image is one image layer set. Dangling means no repo/tag reference or
// explicitly reported by the engine's dangling filter.
type Image struct {
	ID               string   `json:"id"`
	Repository       string   `json:"repository"`
	Tag              string   `json:"tag"`
	Size             uint64   `json:"size"`
	Created          string   `json:"created"`
	IsDangling       bool     `json:"is_dangling"`
	UsedByContainers []string `json:"used_by_containers"`
}

// Volume is one named volume. Size is frequently unknown — the CLI does not
// report per-volume usage in a parseable form, so nil means "not known",
// never zero-by-assumption.
type Volume struct {
	Name             string   `json:"name"`
	Driver           string   `json:"driver"`
	Mountpoint       string   `json:"mountpoint"`
	Size             *uint64  `json:"size"`
	UsedByContainers []string `json:"used_by_containers"`
}

// Network is one network. The engine's built-in networks (bridge, host,
// none) are never cleanup candidates.
type Network struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Driver           string   `json:"driver"`
	Scope            string   `json:"scope"`
	UsedByContainers []string `json:"used_by_containers"`
}

// ScanResult is one full inventory pass over engine resources plus derived
// summary counts. Constructed fresh per Scan call, never mutated.
type ScanResult struct {
	DaemonRunning          bool        `json:"daemon_running"`
	Containers             []Container `json:"containers"`
	Images                 []Image     `json:"images"`
	Volumes                []Volume    `json:"volumes"`
	Networks               []Network   `json:"networks"`
	BuildCacheSize         uint64      `json:"build_cache_size"`
	TotalReclaimable       uint64      `json:"total_reclaimable"`
	StoppedContainersCount int         `json:"stopped_containers_count"`
	DanglingImagesCount    int         `json:"dangling_images_count"`
	UnusedImagesCount      int         `json:"unused_images_count"`
	OrphanVolumesCount     int         `json:"orphan_volumes_count"`
	UnusedNetworksCount    int         `json:"unused_networks_count"`
}

// CleanResult is the aggregated outcome of one or more removal operations.
// Success is true iff no per-item error occurred; Message enumerates counts
// and any collected error strings.
type CleanResult struct {
	FreedBytes        uint64 `json:"freed_bytes"`
	ContainersRemoved int    `json:"containers_removed"`
	ImagesRemoved     int    `json:"images_removed"`
	VolumesRemoved    int    `json:"volumes_removed"`
	NetworksRemoved   int    `json:"networks_removed"`
	Success           bool   `json:"success"`
	Message           string `json:"message"`
}

// Suggestion is one ranked cleanup candidate. Score is in [0,1]; AutoSelect
// marks candidates the UI may pre-check without per-item confirmation.
type Suggestion struct {
	ResourceType ResourceType `json:"resource_type"`
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Size         uint64       `json:"size"`
	Score        float64      `json:"score"`
	Reasons      []string     `json:"reasons"`
	AutoSelect   bool         `json:"auto_select"`
}

// DefaultNetworks are the engine's built-in networks that must never be
// removed, counted as unused, or suggested.
var DefaultNetworks = []string{"bridge", "host", "none"}

// IsDefaultNetwork reports whether name (or id used as a name) is one of the
// engine's built-in networks.
func IsDefaultNetwork(name string) bool {
	for _, n := range DefaultNetworks {
		if name == n {
			return true
		}
	}
	return false
}
