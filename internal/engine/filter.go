package engine

// Convenience filters over a scan snapshot. All pure; the snapshot is never
// mutated.

// StoppedContainers returns containers in any non-running state.
func (r ScanResult) StoppedContainers() []Container {
	var out []Container
	for _, c := range r.Containers {
		if c.State != StateRunning {
			out = append(out, c)
		}
	}
	return out
}

// DanglingImages returns images with no repo/tag reference.
func (r ScanResult) DanglingImages() []Image {
	var out []Image
	for _, i := range r.Images {
		if i.IsDangling {
			out = append(out, i)
		}
	}
	return out
}

// UnusedImages returns images not referenced by any container.
func (r ScanResult) UnusedImages() []Image {
	var out []Image
	for _, i := range r.Images {
		if len(i.UsedByContainers) == 0 {
			out = append(out, i)
		}
	}
	return out
}

// OrphanVolumes returns volumes not mounted by any container.
func (r ScanResult) OrphanVolumes() []Volume {
	var out []Volume
	for _, v := range r.Volumes {
		if len(v.UsedByContainers) == 0 {
			out = append(out, v)
		}
	}
	return out
}

// UnusedNetworks returns non-default networks with no attached containers.
func (r ScanResult) UnusedNetworks() []Network {
	var out []Network
	for _, n := range r.Networks {
		if len(n.UsedByContainers) == 0 && !IsDefaultNetwork(n.Name) {
			out = append(out, n)
		}
	}
	return out
}
