package searchstore

import (
	"fmt"
	"sort"
	"sync"
)

// MemoryStore keeps state in process memory. Values are copied on the way
// in and out.
type MemoryStore struct {
	mu        sync.RWMutex
	last      map[string]LastSearch
	bookmarks map[string]map[string]Bookmark
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		last:      make(map[string]LastSearch),
		bookmarks: make(map[string]map[string]Bookmark),
	}
}

func lastKey(user, itemtype string) (string, error) {
	u, err := Slug(user)
	if err != nil {
		return "", fmt.Errorf("user %q: %w", user, err)
	}
	it, err := Slug(itemtype)
	if err != nil {
		return "", fmt.Errorf("itemtype %q: %w", itemtype, err)
	}
	return u + "/" + it, nil
}

// LastSearch returns the last search of user on itemtype.
func (s *MemoryStore) LastSearch(user, itemtype string) (*LastSearch, error) {
	key, err := lastKey(user, itemtype)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ls, ok := s.last[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &ls, nil
}

// SaveLastSearch replaces the last search of user on ls.Query.Itemtype.
func (s *MemoryStore) SaveLastSearch(user string, ls *LastSearch) error {
	key, err := lastKey(user, ls.Query.Itemtype)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[key] = *ls
	return nil
}

// Bookmark returns the bookmark of user with the given name.
func (s *MemoryStore) Bookmark(user, name string) (*Bookmark, error) {
	u, key, err := bookmarkKey(user, name)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookmarks[u][key]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

// Bookmarks lists the bookmarks of user sorted by name.
func (s *MemoryStore) Bookmarks(user string) ([]*Bookmark, error) {
	u, err := Slug(user)
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", user, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Bookmark, 0, len(s.bookmarks[u]))
	for _, b := range s.bookmarks[u] {
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// SaveBookmark stores b, replacing any bookmark with the same slug.
func (s *MemoryStore) SaveBookmark(user string, b *Bookmark) error {
	u, key, err := bookmarkKey(user, b.Name)
	if err != nil {
		return err
	}
	b.Slug = key
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bookmarks[u] == nil {
		s.bookmarks[u] = make(map[string]Bookmark)
	}
	s.bookmarks[u][key] = *b
	return nil
}

// DeleteBookmark removes a bookmark. Missing bookmarks are ErrNotFound.
func (s *MemoryStore) DeleteBookmark(user, name string) error {
	u, key, err := bookmarkKey(user, name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookmarks[u][key]; !ok {
		return ErrNotFound
	}
	delete(s.bookmarks[u], key)
	return nil
}

func bookmarkKey(user, name string) (string, string, error) {
	u, err := Slug(user)
	if err != nil {
		return "", "", fmt.Errorf("user %q: %w", user, err)
	}
	key, err := Slug(name)
	if err != nil {
		return "", "", fmt.Errorf("bookmark %q: %w", name, err)
	}
	return u, key, nil
}
