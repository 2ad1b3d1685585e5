package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/segmentio/encoding/json"

	"github.com/reekid420/website-searcher/internal/searcherr"
)

// FilePersister is the default Persister: a single JSON document at path,
// written atomically via temp-file + rename, per spec.md §6's cache file
// layout (platform user cache dir, subdirectory website-searcher/cache.json).
type FilePersister struct {
	path string
}

// NewFilePersister builds a FilePersister rooted at path. Callers should
// resolve path with os.UserCacheDir()+"/website-searcher/cache.json".
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// DefaultCachePath resolves the platform user cache directory location
// spec.md §6 specifies.
func DefaultCachePath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "website-searcher", "cache.json"), nil
}

func (p *FilePersister) Load() ([]Entry, error) {
	raw, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", searcherr.ErrCacheIO, err)
	}

	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", searcherr.ErrCacheIO, err)
	}
	return entries, nil
}

func (p *FilePersister) Save(entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", searcherr.ErrCacheIO, err)
	}

	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("%w: %v", searcherr.ErrCacheIO, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p.path), ".cache-*.json")
	if err != nil {
		return fmt.Errorf("%w: %v", searcherr.ErrCacheIO, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", searcherr.ErrCacheIO, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", searcherr.ErrCacheIO, err)
	}

	if err := os.Rename(tmpPath, p.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", searcherr.ErrCacheIO, err)
	}

	return nil
}
