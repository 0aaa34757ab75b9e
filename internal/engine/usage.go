package engine

import (
	"context"
	"strings"
)

// usageGraph maps resource identifiers to the container IDs referencing
// them. It is a plain adjacency map built from auxiliary container listings;
// consumers only ever check whether an entry is empty, so duplicate edges
// from the two image-resolution paths are tolerated.
type usageGraph map[string][]string

func (g usageGraph) add(resource, containerID string) {
	g[resource] = append(g[resource], containerID)
}

func (g usageGraph) usedBy(resource string) []string {
	if ids := g[resource]; ids != nil {
		return ids
	}
	return []string{}
}

// containerImageUsage builds the image→containers graph. Usage is resolved
// two ways and merged: by the raw image reference each container was created
// from, and by the container's bound image ID from an inspect query (tags can
// move, IDs cannot).
func (s *Service) containerImageUsage(ctx context.Context) usageGraph {
	usage := make(usageGraph)

	res := s.run.Run(ctx, "ps", "-a", "--no-trunc", "--format", "{{.ID}}\t{{.Image}}")
	if !res.OK() {
		return usage
	}

	inspect := s.run.Run(ctx, "ps", "-aq", "--no-trunc")
	var inspectOut string
	if inspect.OK() && strings.TrimSpace(inspect.Stdout) != "" {
		args := append([]string{"inspect", "--format", "{{.Id}}\t{{.Image}}"},
			splitLines(inspect.Stdout)...)
		if r := s.run.Run(ctx, args...); r.OK() {
			inspectOut = r.Stdout
		}
	}

	for _, line := range splitLines(res.Stdout) {
		containerID, imageRef, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		usage.add(imageRef, containerID)
	}

	for _, line := range splitLines(inspectOut) {
		containerID, imageID, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		imageID = strings.TrimPrefix(imageID, "sha256:")
		usage.add(imageID, containerID)
	}

	return usage
}

// containerFieldUsage builds a resource→containers graph from one `ps -a`
// listing whose second column is a comma-separated multi-value field
// ({{.Mounts}} for volumes, {{.Networks}} for networks).
func (s *Service) containerFieldUsage(ctx context.Context, fieldTemplate string) usageGraph {
	usage := make(usageGraph)

	res := s.run.Run(ctx, "ps", "-a", "--no-trunc", "--format", "{{.ID}}\t"+fieldTemplate)
	if !res.OK() {
		return usage
	}

	for _, line := range splitLines(res.Stdout) {
		containerID, values, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		for _, v := range strings.Split(values, ",") {
			if v = strings.TrimSpace(v); v != "" {
				usage.add(v, containerID)
			}
		}
	}
	return usage
}

// splitLines splits CLI stdout into trimmed non-empty lines.
func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
