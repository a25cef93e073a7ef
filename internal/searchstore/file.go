package searchstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FileStore keeps state as JSON files under a directory:
//
//	last/<user>/<itemtype>.json
//	bookmarks/<user>/<name>.json
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a store rooted at dir. The directory is created on
// first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the store's root directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) lastPath(user, itemtype string) (string, error) {
	u, err := Slug(user)
	if err != nil {
		return "", fmt.Errorf("user %q: %w", user, err)
	}
	it, err := Slug(itemtype)
	if err != nil {
		return "", fmt.Errorf("itemtype %q: %w", itemtype, err)
	}
	return filepath.Join(s.dir, "last", u, it+".json"), nil
}

func (s *FileStore) bookmarkDir(user string) (string, error) {
	u, err := Slug(user)
	if err != nil {
		return "", fmt.Errorf("user %q: %w", user, err)
	}
	return filepath.Join(s.dir, "bookmarks", u), nil
}

// LastSearch returns the last search of user on itemtype.
func (s *FileStore) LastSearch(user, itemtype string) (*LastSearch, error) {
	path, err := s.lastPath(user, itemtype)
	if err != nil {
		return nil, err
	}
	var ls LastSearch
	if err := readJSON(path, &ls); err != nil {
		return nil, err
	}
	return &ls, nil
}

// SaveLastSearch replaces the last search of user on ls.Query.Itemtype.
func (s *FileStore) SaveLastSearch(user string, ls *LastSearch) error {
	path, err := s.lastPath(user, ls.Query.Itemtype)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(path, ls)
}

// Bookmark returns the bookmark of user with the given name.
func (s *FileStore) Bookmark(user, name string) (*Bookmark, error) {
	dir, err := s.bookmarkDir(user)
	if err != nil {
		return nil, err
	}
	key, err := Slug(name)
	if err != nil {
		return nil, fmt.Errorf("bookmark %q: %w", name, err)
	}
	var b Bookmark
	if err := readJSON(filepath.Join(dir, key+".json"), &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Bookmarks lists the bookmarks of user sorted by name.
func (s *FileStore) Bookmarks(user string) ([]*Bookmark, error) {
	dir, err := s.bookmarkDir(user)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}

	var out []*Bookmark
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		var b Bookmark
		if err := readJSON(filepath.Join(dir, e.Name()), &b); err != nil {
			return nil, err
		}
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// SaveBookmark writes b, replacing any bookmark with the same slug.
func (s *FileStore) SaveBookmark(user string, b *Bookmark) error {
	dir, err := s.bookmarkDir(user)
	if err != nil {
		return err
	}
	key, err := Slug(b.Name)
	if err != nil {
		return fmt.Errorf("bookmark %q: %w", b.Name, err)
	}
	b.Slug = key
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(filepath.Join(dir, key+".json"), b)
}

// DeleteBookmark removes a bookmark. Missing bookmarks are ErrNotFound.
func (s *FileStore) DeleteBookmark(user, name string) error {
	dir, err := s.bookmarkDir(user)
	if err != nil {
		return err
	}
	key, err := Slug(name)
	if err != nil {
		return fmt.Errorf("bookmark %q: %w", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(filepath.Join(dir, key+".json")); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	return writeFileAtomic(path, append(data, '\n'))
}

// writeFileAtomic writes to a temp file in the same directory and renames
// it into place, so readers never see a torn file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	// Windows refuses to rename over an existing file.
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(path)
		if err2 := os.Rename(tmpPath, path); err2 != nil {
			return fmt.Errorf("rename temp file: %w", err)
		}
	}
	committed = true
	return nil
}
