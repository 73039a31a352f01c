// Package scratch manages per-request ephemeral files.
//
// Every inbound request gets its own Workspace with collision-free naming.
// Artifacts staged in a workspace never outlive the request: ReleaseAll is
// expected to run on every exit path, and a failed deletion is logged but
// never surfaced to the caller.
package scratch

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Manager owns the scratch directory and hands out request workspaces.
type Manager struct {
	root string
}

// NewManager creates a manager rooted at dir, creating it if needed.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return nil, errors.Wrapf(err, "unable to create scratch dir %s", dir)
	}
	return &Manager{root: dir}, nil
}

// Root returns the scratch directory.
func (m *Manager) Root() string {
	return m.root
}

// NewWorkspace returns a workspace for a single request. All artifact names
// are prefixed with a fresh UUID, so concurrent workspaces never collide.
func (m *Manager) NewWorkspace() *Workspace {
	return &Workspace{
		root: m.root,
		uid:  uuid.New().String(),
	}
}

// Workspace stages ephemeral artifacts for one in-flight request.
// It is owned by that request and must not be shared.
type Workspace struct {
	root string
	uid  string

	mu     sync.Mutex
	staged []string
}

// UID returns the unique prefix for this workspace.
func (w *Workspace) UID() string {
	return w.uid
}

// Stage writes data to a new artifact and registers it for release.
// The returned path is unique to this workspace.
func (w *Workspace) Stage(name string, data []byte) (string, error) {
	path := w.Reserve(name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", errors.Wrapf(err, "failed to stage artifact %s", name)
	}
	return path, nil
}

// Reserve registers a workspace-unique path for release without writing it.
// Used for artifacts produced by external tools (e.g. the converted WAV).
func (w *Workspace) Reserve(name string) string {
	path := filepath.Join(w.root, w.uid+"_"+filepath.Base(name))
	w.mu.Lock()
	w.staged = append(w.staged, path)
	w.mu.Unlock()
	return path
}

// Release deletes a single artifact. It is idempotent: releasing a missing
// artifact is not an error, and any other deletion failure is only logged.
func (w *Workspace) Release(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not clean up scratch artifact", "path", path, "error", err)
	}
}

// ReleaseAll deletes every artifact staged or reserved in this workspace.
// Safe to call multiple times; typically deferred at request entry.
func (w *Workspace) ReleaseAll() {
	w.mu.Lock()
	staged := w.staged
	w.staged = nil
	w.mu.Unlock()

	for _, path := range staged {
		w.Release(path)
	}
}
