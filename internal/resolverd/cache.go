package resolverd

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/inful/mdfp"

	lerrors "git.home.luguber.info/inful/lamd/internal/errors"
	"git.home.luguber.info/inful/lamd/internal/fields"
	"git.home.luguber.info/inful/lamd/internal/frontmatter"
	"git.home.luguber.info/inful/lamd/internal/logfields"
	"git.home.luguber.info/inful/lamd/internal/metrics"
	"git.home.luguber.info/inful/lamd/internal/util/sets"
)

type cacheEntry struct {
	fields      map[string]any
	modTime     time.Time
	size        int64
	fingerprint string
}

// Cache holds parsed documents and config files keyed by absolute path. It
// implements fields.Loader. Entries are revalidated by mtime and size and
// dropped when fsnotify reports a change.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*cacheEntry
	watcher  *fsnotify.Watcher
	watched  sets.Set[string]
	recorder metrics.Recorder
}

// NewCache returns an empty cache. Without a working file watcher the cache
// still revalidates every lookup by mtime.
func NewCache(rec metrics.Recorder) *Cache {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	c := &Cache{
		entries:  map[string]*cacheEntry{},
		watched:  sets.New[string](),
		recorder: rec,
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("File watcher unavailable, relying on mtime checks", logfields.Error(err))
		return c
	}
	c.watcher = w
	return c
}

// Document implements fields.Loader.
func (c *Cache) Document(path string) (map[string]any, error) {
	m, ok, err := c.load(path, true)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, lerrors.DocumentNotFound(path)
	}
	return m, nil
}

// Config implements fields.Loader.
func (c *Cache) Config(path string) (map[string]any, bool, error) {
	return c.load(path, false)
}

// Fingerprint returns the content fingerprint of a cached file.
func (c *Cache) Fingerprint(path string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key(path)]
	if !ok {
		return "", false
	}
	return e.fingerprint, true
}

// Len returns the number of cached files.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) load(path string, document bool) (map[string]any, bool, error) {
	k := key(path)
	info, err := os.Stat(k)
	if err != nil {
		c.evict(k)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		if document {
			return nil, false, lerrors.DocumentUnreadable(path, err)
		}
		return nil, false, lerrors.ConfigInvalid(path, err)
	}

	c.mu.Lock()
	e, ok := c.entries[k]
	c.mu.Unlock()
	if ok && e.modTime.Equal(info.ModTime()) && e.size == info.Size() {
		c.recorder.IncCacheLookup(true)
		return e.fields, true, nil
	}
	c.recorder.IncCacheLookup(false)

	content, err := os.ReadFile(k)
	if err != nil {
		if document {
			return nil, false, lerrors.DocumentUnreadable(path, err)
		}
		return nil, false, lerrors.ConfigInvalid(path, err)
	}

	var (
		m  map[string]any
		fp string
	)
	if document {
		m = fields.ParseDocument(path, content)
		header, body, _, splitErr := frontmatter.Split(content)
		if splitErr != nil {
			header, body = nil, content
		}
		fp = mdfp.CalculateFingerprintFromParts(string(header), string(body))
	} else {
		if m, err = fields.ParseConfig(path, content); err != nil {
			return nil, false, err
		}
		fp = mdfp.CalculateFingerprintFromParts("", string(content))
	}

	c.mu.Lock()
	if ok && e.fingerprint == fp {
		m = e.fields
	}
	c.entries[k] = &cacheEntry{fields: m, modTime: info.ModTime(), size: info.Size(), fingerprint: fp}
	n := len(c.entries)
	c.mu.Unlock()

	c.recorder.SetCachedFiles(n)
	c.watch(filepath.Dir(k))
	return m, true, nil
}

func (c *Cache) watch(dir string) {
	if c.watcher == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.watched.Add(dir) {
		return
	}
	if err := c.watcher.Add(dir); err != nil {
		slog.Debug("Cannot watch directory", logfields.Path(dir), logfields.Error(err))
	}
}

func (c *Cache) evict(k string) {
	c.mu.Lock()
	_, ok := c.entries[k]
	delete(c.entries, k)
	n := len(c.entries)
	c.mu.Unlock()
	if ok {
		c.recorder.IncCacheEviction()
		c.recorder.SetCachedFiles(n)
		slog.Debug("Evicted cached file", logfields.File(k))
	}
}

// Run drops entries as their files change until ctx is done.
func (c *Cache) Run(ctx context.Context) {
	if c.watcher == nil {
		<-ctx.Done()
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename|fsnotify.Create) != 0 {
				c.evict(key(ev.Name))
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("File watcher error", logfields.Error(err))
		}
	}
}

// Close stops the file watcher.
func (c *Cache) Close() error {
	if c.watcher == nil {
		return nil
	}
	return c.watcher.Close()
}

func key(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

var _ fields.Loader = (*Cache)(nil)
