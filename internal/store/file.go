package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/zzstoatzz/slackbot/internal/models"
)

// FileStore persists the whole conversation mapping as one JSON document.
// This is the default backend: no external services, and history survives
// restarts.
//
// A single mutex serializes every read-modify-write. Whole-mapping saves
// mean an unsynchronized append could overwrite another writer's update
// with a stale copy of the map, so all mutation goes through the lock.
type FileStore struct {
	path string

	mu            sync.Mutex
	conversations map[string][]models.Message
}

// NewFileStore creates a file-backed store at path. Call Load before use.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:          path,
		conversations: make(map[string][]models.Message),
	}
}

// Load reads the persisted mapping. A missing or empty file yields an
// empty mapping.
func (s *FileStore) Load(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.conversations = make(map[string][]models.Message)
			return nil
		}
		return fmt.Errorf("read conversation cache: %w", err)
	}
	if len(data) == 0 {
		s.conversations = make(map[string][]models.Message)
		return nil
	}

	var m map[string][]models.Message
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parse conversation cache: %w", err)
	}
	s.conversations = m
	return nil
}

// Get returns a copy of the conversation's history, empty if unseen.
func (s *FileStore) Get(_ context.Context, conversationID string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.conversations[conversationID]
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Append extends a conversation and persists the full mapping before
// returning (write-through). Holding the lock across the save is what
// guarantees no concurrent append is lost.
func (s *FileStore) Append(_ context.Context, conversationID string, msgs []models.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations[conversationID] = append(s.conversations[conversationID], msgs...)
	return s.saveLocked()
}

// All returns a deep copy of the mapping.
func (s *FileStore) All(_ context.Context) (map[string][]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]models.Message, len(s.conversations))
	for id, msgs := range s.conversations {
		cp := make([]models.Message, len(msgs))
		copy(cp, msgs)
		out[id] = cp
	}
	return out, nil
}

// Save persists the current mapping. Append already saves; this exists for
// explicit flushes at shutdown.
func (s *FileStore) Save(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

// saveLocked writes to a temp file in the same directory and renames it
// over the target, so a crash mid-write leaves the previous file intact.
func (s *FileStore) saveLocked() error {
	data, err := json.MarshalIndent(s.conversations, "", "  ")
	if err != nil {
		return fmt.Errorf("encode conversation cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".cache-*.json")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write conversation cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp cache file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace conversation cache: %w", err)
	}
	return nil
}

// Ping checks that the cache location is usable.
func (s *FileStore) Ping(_ context.Context) error {
	_, err := os.Stat(filepath.Dir(s.path))
	return err
}

// Close flushes the mapping one last time.
func (s *FileStore) Close() error {
	return s.Save(context.Background())
}
