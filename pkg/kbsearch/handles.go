package kbsearch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	kberrors "github.com/Aman-CERP/kbsearch/internal/errors"
	"github.com/Aman-CERP/kbsearch/internal/registry"
	"github.com/Aman-CERP/kbsearch/internal/store"
)

// snapshot is a loaded index together with the file state it was read from.
type snapshot struct {
	index   *store.InvertedIndex
	modTime time.Time
	size    int64
}

func (s *snapshot) current(fi fs.FileInfo) bool {
	return s.modTime.Equal(fi.ModTime()) && s.size == fi.Size()
}

// handle holds the published index of one knowledge base. Readers Load it,
// builds Store a new one; a published index is never mutated.
type handle struct {
	current atomic.Pointer[snapshot]
}

func (e *Engine) handle(name string) *handle {
	if h, ok := e.handles.Get(name); ok {
		return h
	}
	h := &handle{}
	if prev, ok, _ := e.handles.PeekOrAdd(name, h); ok {
		return prev
	}
	return h
}

// publish makes idx the index served for name.
func (e *Engine) publish(name string, idx *store.InvertedIndex) {
	s := &snapshot{index: idx}
	if fi, err := os.Stat(store.SnapshotPath(e.cfg.IndexDir(name))); err == nil {
		s.modTime, s.size = fi.ModTime(), fi.Size()
	}
	e.handle(name).current.Store(s)
}

// Snapshot implements search.Source. It serves the cached index while the
// file on disk is unchanged and reloads it once when another process has
// rebuilt it. Concurrent cold loads of one base share a single read.
func (e *Engine) Snapshot(ctx context.Context, kb registry.KnowledgeBase) (*store.InvertedIndex, error) {
	path, fi, err := e.snapshotInfo(kb.Name)
	if err != nil {
		if errors.Is(err, store.ErrNoSnapshot) {
			e.handles.Remove(kb.Name)
		}
		return nil, err
	}

	h := e.handle(kb.Name)
	if s := h.current.Load(); s != nil && s.current(fi) {
		return s.index, nil
	}

	v, err, _ := e.loads.Do(kb.Name, func() (any, error) {
		start := time.Now()
		idx, err := store.LoadSnapshot(ctx, path)
		if err != nil {
			if store.IsCorrupt(err) {
				e.logger.Warn("snapshot_corrupt",
					slog.String("name", kb.Name),
					slog.String("path", path),
					slog.String("error", err.Error()))
				return nil, kberrors.CorruptIndexError(path, err)
			}
			return nil, err
		}
		s := &snapshot{index: idx, modTime: fi.ModTime(), size: fi.Size()}
		h.current.Store(s)
		e.logger.Debug("snapshot_loaded",
			slog.String("name", kb.Name),
			slog.Int("documents", idx.TotalDocuments()),
			slog.Duration("duration", time.Since(start)))
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*store.InvertedIndex), nil
}
