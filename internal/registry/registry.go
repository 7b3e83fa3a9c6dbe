// Package registry persists the set of named knowledge bases.
//
// The registry is a YAML file holding an ordered list of knowledge bases.
// Every mutation is a read-modify-write of that file under an in-process
// mutex and a cross-process file lock, and is written atomically before the
// call returns.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	kberrors "github.com/Aman-CERP/kbsearch/internal/errors"
	"github.com/Aman-CERP/kbsearch/internal/lock"
)

// maxNameLength is the maximum allowed knowledge base name length.
const maxNameLength = 64

// validNamePattern matches alphanumeric, hyphen, and underscore.
var validNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateName validates a knowledge base name.
// Valid names contain only letters, numbers, hyphens, and underscores.
func ValidateName(name string) error {
	if name == "" {
		return kberrors.InvalidNameError(name, "name cannot be empty")
	}
	if len(name) > maxNameLength {
		return kberrors.InvalidNameError(name, fmt.Sprintf("name too long (max %d chars)", maxNameLength))
	}
	if !validNamePattern.MatchString(name) {
		return kberrors.InvalidNameError(name, "name can only contain letters, numbers, hyphens, and underscores")
	}
	return nil
}

// KnowledgeBase is one registered collection of documents.
type KnowledgeBase struct {
	Name        string `yaml:"name" json:"name"`
	Path        string `yaml:"path" json:"path"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Enabled     bool   `yaml:"enabled" json:"enabled"`

	// Extensions overrides the configured extension allow-list when set.
	Extensions []string `yaml:"extensions,omitempty" json:"extensions,omitempty"`

	CreatedAt     time.Time  `yaml:"created_at" json:"created_at"`
	LastIndexedAt *time.Time `yaml:"last_indexed_at,omitempty" json:"last_indexed_at,omitempty"`
	DocumentCount int        `yaml:"document_count" json:"document_count"`
}

// Indexed reports whether the knowledge base has been indexed at least once.
func (kb KnowledgeBase) Indexed() bool {
	return kb.LastIndexedAt != nil
}

// registryFile is the on-disk layout.
type registryFile struct {
	KnowledgeBases []KnowledgeBase `yaml:"knowledge_bases"`
}

func (f *registryFile) find(name string) int {
	return slices.IndexFunc(f.KnowledgeBases, func(kb KnowledgeBase) bool { return kb.Name == name })
}

// RemoveHook runs inside Remove before the registry is written. An error
// aborts the removal and leaves the registry unchanged.
type RemoveHook func(ctx context.Context, kb KnowledgeBase) error

// AddRequest describes a knowledge base to register.
type AddRequest struct {
	Name        string
	Path        string
	Description string
	Extensions  []string

	// Init creates the source directory with a README.md stub when it does
	// not exist.
	Init bool
}

// Registry is the persistent set of knowledge bases. It is safe for
// concurrent use.
type Registry struct {
	path   string
	logger *slog.Logger

	mu    sync.Mutex // guards the read-modify-write cycle and flock
	flock *lock.FileLock

	namesMu sync.Mutex
	names   map[string]*sync.Mutex

	onRemove RemoveHook
	now      func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRemoveHook sets the hook invoked for every removed knowledge base.
func WithRemoveHook(hook RemoveHook) Option {
	return func(r *Registry) {
		r.onRemove = hook
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// Open returns the registry stored at path. The file is created on the first
// mutation; a missing file is an empty registry.
func Open(path string, opts ...Option) (*Registry, error) {
	if path == "" {
		return nil, fmt.Errorf("registry path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve registry path: %w", err)
	}

	r := &Registry{
		path:   abs,
		logger: slog.Default(),
		flock:  lock.New(abs + ".lock"),
		names:  make(map[string]*sync.Mutex),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// SetRemoveHook replaces the removal hook.
func (r *Registry) SetRemoveHook(hook RemoveHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRemove = hook
}

// Path returns the registry file path.
func (r *Registry) Path() string {
	return r.path
}

// LockName serializes work on one knowledge base within this process. The
// returned function releases the lock.
func (r *Registry) LockName(name string) func() {
	r.namesMu.Lock()
	m, ok := r.names[name]
	if !ok {
		m = &sync.Mutex{}
		r.names[name] = m
	}
	r.namesMu.Unlock()

	m.Lock()
	return m.Unlock
}

// Add registers a new, enabled knowledge base with no index.
func (r *Registry) Add(ctx context.Context, req AddRequest) (*KnowledgeBase, error) {
	if err := ValidateName(req.Name); err != nil {
		return nil, err
	}

	unlock := r.LockName(req.Name)
	defer unlock()

	var added KnowledgeBase
	err := r.update(ctx, func(f *registryFile) error {
		if f.find(req.Name) >= 0 {
			return kberrors.DuplicateNameError(req.Name)
		}
		// Resolved after the duplicate check so a rejected add leaves no
		// directory behind.
		srcPath, err := resolveSource(req.Path, req.Init)
		if err != nil {
			return err
		}
		added = KnowledgeBase{
			Name:        req.Name,
			Path:        srcPath,
			Description: req.Description,
			Enabled:     true,
			Extensions:  slices.Clone(req.Extensions),
			CreatedAt:   r.now().UTC(),
		}
		f.KnowledgeBases = append(f.KnowledgeBases, added)
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("knowledge_base_added",
		slog.String("name", added.Name),
		slog.String("path", added.Path))
	return &added, nil
}

// Remove unregisters a knowledge base after running the removal hook.
func (r *Registry) Remove(ctx context.Context, name string) error {
	unlock := r.LockName(name)
	defer unlock()

	err := r.update(ctx, func(f *registryFile) error {
		i := f.find(name)
		if i < 0 {
			return kberrors.NotFoundError(name)
		}
		if r.onRemove != nil {
			if err := r.onRemove(ctx, f.KnowledgeBases[i]); err != nil {
				return fmt.Errorf("failed to remove data for %s: %w", name, err)
			}
		}
		f.KnowledgeBases = slices.Delete(f.KnowledgeBases, i, i+1)
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Info("knowledge_base_removed", slog.String("name", name))
	return nil
}

// Enable marks a knowledge base as searchable. Enabling an enabled base is a no-op.
func (r *Registry) Enable(ctx context.Context, name string) error {
	return r.setEnabled(ctx, name, true)
}

// Disable excludes a knowledge base from searches over all bases. Its index is kept.
func (r *Registry) Disable(ctx context.Context, name string) error {
	return r.setEnabled(ctx, name, false)
}

func (r *Registry) setEnabled(ctx context.Context, name string, enabled bool) error {
	unlock := r.LockName(name)
	defer unlock()

	return r.update(ctx, func(f *registryFile) error {
		i := f.find(name)
		if i < 0 {
			return kberrors.NotFoundError(name)
		}
		f.KnowledgeBases[i].Enabled = enabled
		return nil
	})
}

// RecordIndexed stores the outcome of a successful index build.
// Callers hold LockName(name) while building, so it is not taken here.
func (r *Registry) RecordIndexed(ctx context.Context, name string, at time.Time, documentCount int) error {
	return r.update(ctx, func(f *registryFile) error {
		i := f.find(name)
		if i < 0 {
			return kberrors.NotFoundError(name)
		}
		t := at.UTC()
		f.KnowledgeBases[i].LastIndexedAt = &t
		f.KnowledgeBases[i].DocumentCount = documentCount
		return nil
	})
}

// List returns every knowledge base in insertion order.
func (r *Registry) List(ctx context.Context) ([]KnowledgeBase, error) {
	f, err := r.read(ctx)
	if err != nil {
		return nil, err
	}
	return f.KnowledgeBases, nil
}

// Get returns the named knowledge base.
func (r *Registry) Get(ctx context.Context, name string) (*KnowledgeBase, error) {
	f, err := r.read(ctx)
	if err != nil {
		return nil, err
	}
	i := f.find(name)
	if i < 0 {
		return nil, kberrors.NotFoundError(name)
	}
	kb := f.KnowledgeBases[i]
	return &kb, nil
}

// read loads the file under a shared lock.
func (r *Registry) read(ctx context.Context) (*registryFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.flock.RLock(ctx); err != nil {
		return nil, err
	}
	defer func() { _ = r.flock.Unlock() }()

	return r.load()
}

// update runs fn on the current contents and persists the result when fn
// succeeds.
func (r *Registry) update(ctx context.Context, fn func(*registryFile) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.flock.Lock(ctx); err != nil {
		return err
	}
	defer func() { _ = r.flock.Unlock() }()

	f, err := r.load()
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		return err
	}
	return r.save(f)
}

func (r *Registry) load() (*registryFile, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return &registryFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}

	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, kberrors.New(kberrors.ErrCodeRegistryCorrupt,
			fmt.Sprintf("failed to parse registry %s", r.path), err).
			WithDetail("path", r.path)
	}

	seen := make(map[string]bool, len(f.KnowledgeBases))
	for _, kb := range f.KnowledgeBases {
		if seen[kb.Name] {
			return nil, kberrors.New(kberrors.ErrCodeRegistryCorrupt,
				fmt.Sprintf("registry %s lists %q twice", r.path, kb.Name), nil).
				WithDetail("path", r.path)
		}
		seen[kb.Name] = true
	}
	return &f, nil
}

// save writes the registry atomically: temp file, fsync, rename.
func (r *Registry) save(f *registryFile) error {
	if f.KnowledgeBases == nil {
		f.KnowledgeBases = []KnowledgeBase{}
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}

	tmpPath := r.path + ".tmp"
	if err := writeSynced(tmpPath, data); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save registry: %w", err)
	}
	return nil
}

func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

const readmeStub = `# %s

Documents in this directory are indexed by kbsearch.
`

// resolveSource returns the absolute source directory, creating it when init
// is set.
func resolveSource(path string, init bool) (string, error) {
	if path == "" {
		return "", kberrors.InvalidPathError(path, fmt.Errorf("path is required"))
	}
	abs, err := filepath.Abs(expandHome(path))
	if err != nil {
		return "", kberrors.InvalidPathError(path, err)
	}

	info, err := os.Stat(abs)
	switch {
	case os.IsNotExist(err) && init:
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return "", kberrors.InvalidPathError(path, err)
		}
		stub := fmt.Sprintf(readmeStub, filepath.Base(abs))
		if err := os.WriteFile(filepath.Join(abs, "README.md"), []byte(stub), 0o644); err != nil {
			return "", kberrors.InvalidPathError(path, err)
		}
		return abs, nil
	case err != nil:
		return "", kberrors.InvalidPathError(path, err)
	case !info.IsDir():
		return "", kberrors.InvalidPathError(path, fmt.Errorf("not a directory"))
	}
	return abs, nil
}

func expandHome(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
