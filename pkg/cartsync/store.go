package cartsync

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Snapshot is the anonymous session's cart and wishlist.
type Snapshot struct {
	Cart     []Item     `yaml:"cart"`
	Wishlist []WishItem `yaml:"wishlist"`
}

// LocalStore persists the anonymous session between runs.
type LocalStore interface {
	Load() (Snapshot, error)
	Save(Snapshot) error
}

// MemoryStore keeps the snapshot in memory.
type MemoryStore struct {
	mu   sync.Mutex
	snap Snapshot
}

func (s *MemoryStore) Load() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.clone(), nil
}

func (s *MemoryStore) Save(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap.clone()
	return nil
}

// FileStore keeps the snapshot in a YAML file. A missing file is an empty snapshot.
type FileStore struct {
	Path string
}

func (s FileStore) Load() (Snapshot, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{}, nil
		}
		return Snapshot{}, fmt.Errorf("cartsync: read %s: %w", s.Path, err)
	}
	var snap Snapshot
	if err := yaml.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("cartsync: parse %s: %w", s.Path, err)
	}
	return snap, nil
}

// Save writes to a temporary file and renames it into place.
func (s FileStore) Save(snap Snapshot) error {
	raw, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("cartsync: encode snapshot: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.Path), ".cartsync-*")
	if err != nil {
		return fmt.Errorf("cartsync: save %s: %w", s.Path, err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("cartsync: save %s: %w", s.Path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cartsync: save %s: %w", s.Path, err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cartsync: save %s: %w", s.Path, err)
	}
	return nil
}

func (s Snapshot) clone() Snapshot {
	return Snapshot{
		Cart:     append([]Item(nil), s.Cart...),
		Wishlist: append([]WishItem(nil), s.Wishlist...),
	}
}
