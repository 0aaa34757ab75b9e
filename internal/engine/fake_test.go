package engine

import (
	"context"
	"strings"
	"sync"

	"github.com/cfilipov/cachewise/internal/dockercli"
)

// fakeRunner is an in-memory Runner. Canned stdout and failures are keyed by
// the space-joined argument list; anything unmatched exits zero with empty
// output. Every invocation is recorded for call-order assertions.
type fakeRunner struct {
	mu         sync.Mutex
	calls      [][]string
	stdout     map[string]string
	failures   map[string]string // joined args -> stderr, exit 1
	daemonDown bool
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		stdout:   make(map[string]string),
		failures: make(map[string]string),
	}
}

func (f *fakeRunner) Run(_ context.Context, args ...string) dockercli.Result {
	f.mu.Lock()
	f.calls = append(f.calls, args)
	f.mu.Unlock()

	key := strings.Join(args, " ")
	if f.daemonDown && key == "info" {
		return dockercli.Result{Stderr: "Cannot connect to the Docker daemon", ExitCode: 1}
	}
	if stderr, ok := f.failures[key]; ok {
		return dockercli.Result{Stderr: stderr, ExitCode: 1}
	}
	return dockercli.Result{Stdout: f.stdout[key]}
}

// calledKeys returns every recorded invocation as a joined string.
func (f *fakeRunner) calledKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, len(f.calls))
	for i, c := range f.calls {
		keys[i] = strings.Join(c, " ")
	}
	return keys
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
