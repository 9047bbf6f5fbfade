package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/Ace1928/docforge/internal/logfields"
)

// EntryPoint is the zero-argument callable a loaded package exposes as its
// externally invocable behavior. The return value becomes the process exit code.
type EntryPoint func() int

// ErrEntryPointNotFound indicates that no runnable entry exists for a package.
var ErrEntryPointNotFound = errors.New("entry point not found")

// Registry holds in-process entry points, the static-linking analogue of a
// package that is already importable without touching the search path.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]EntryPoint
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]EntryPoint)}
}

// Register installs an entry point under the given package name, replacing
// any previous registration.
func (r *Registry) Register(name string, ep EntryPoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = ep
}

// Lookup returns the entry point registered under name, if any.
func (r *Registry) Lookup(name string) (EntryPoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ep, ok := r.entries[name]
	return ep, ok
}

// DefaultRegistry is the process-wide registry consulted by loaders that do
// not carry their own.
var DefaultRegistry = NewRegistry()

// Register installs an entry point in the default registry.
func Register(name string, ep EntryPoint) {
	DefaultRegistry.Register(name, ep)
}

// SearchPath is an explicit, ordered list of directories consulted when
// resolving a package name to a runnable entry. Prepended entries persist for
// the lifetime of the value; the bootstrap sequence runs once per process, so
// the accumulated mutation is acceptable.
type SearchPath struct {
	mu   sync.Mutex
	dirs []string
}

// Prepend inserts dir at the front of the search path.
func (p *SearchPath) Prepend(dir string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dirs = append([]string{dir}, p.dirs...)
}

// Dirs returns a copy of the current search path, front first.
func (p *SearchPath) Dirs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.dirs))
	copy(out, p.dirs)
	return out
}

// Loader resolves a package name to an EntryPoint using an ordered fallback
// chain: registry lookup, search-path resolution after prepending <root>/src,
// then a direct load from <root>/src/<package>.
type Loader struct {
	Package  string
	Registry *Registry   // DefaultRegistry when nil
	Path     *SearchPath // fresh path when nil
}

// NewLoader creates a loader for the given package name with an empty search path.
func NewLoader(pkg string) *Loader {
	if pkg == "" {
		pkg = DefaultPackage
	}
	return &Loader{Package: pkg, Registry: DefaultRegistry, Path: &SearchPath{}}
}

// Resolve returns the package's entry point, trying each resolution tier in
// order and stopping at the first success. The final tier is unguarded: if
// the package cannot be found even after both path insertions, the error
// propagates and the caller is expected to abort.
func (l *Loader) Resolve(root string) (EntryPoint, error) {
	reg := l.Registry
	if reg == nil {
		reg = DefaultRegistry
	}
	if l.Path == nil {
		l.Path = &SearchPath{}
	}

	if ep, ok := reg.Lookup(l.Package); ok {
		slog.Debug("Entry point resolved from registry", logfields.Package(l.Package))
		return ep, nil
	}

	l.Path.Prepend(filepath.Join(root, "src"))
	if ep, ok := l.resolveFromPath(); ok {
		return ep, nil
	}

	direct := filepath.Join(root, "src", l.Package)
	l.Path.Prepend(direct)
	ep, err := l.loadDirect(direct)
	if err != nil {
		return nil, fmt.Errorf("load %q from %s: %w", l.Package, direct, err)
	}
	return ep, nil
}

// resolveFromPath scans the search path for a well-formed package: a
// directory named after the package holding a canonical "main" entry.
func (l *Loader) resolveFromPath() (EntryPoint, bool) {
	for _, dir := range l.Path.Dirs() {
		candidate := filepath.Join(dir, l.Package)
		info, err := os.Stat(candidate)
		if err != nil || !info.IsDir() {
			continue
		}
		entry := filepath.Join(candidate, "main")
		if !isExecutable(entry) {
			slog.Debug("Package directory without canonical entry",
				logfields.Package(l.Package), logfields.Path(candidate))
			continue
		}
		slog.Debug("Entry point resolved from search path",
			logfields.Package(l.Package), logfields.Path(candidate))
		return execEntry(entry), true
	}
	return nil, false
}

// loadDirect resolves a runnable entry inside the package directory itself.
// The direct tier is more permissive than resolution by name: it also accepts
// an entry named after the package.
func (l *Loader) loadDirect(dir string) (EntryPoint, error) {
	for _, name := range []string{"main", l.Package} {
		path := filepath.Join(dir, name)
		if isExecutable(path) {
			return execEntry(path), nil
		}
	}
	return nil, fmt.Errorf("%w: no runnable entry under %s", ErrEntryPointNotFound, dir)
}

// isExecutable reports whether path is a regular file with an execute bit set.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}

// execEntry wraps an on-disk executable as an EntryPoint. The executable's
// exit code is passed through; failures to start at all report exit code 1.
func execEntry(path string) EntryPoint {
	return func() int {
		cmd := exec.Command(path)
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				return exitErr.ExitCode()
			}
			slog.Error("Entry point failed to start", logfields.Path(path), logfields.Error(err))
			return 1
		}
		return 0
	}
}
