package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/forge-ai/forge-core/pkg/models"
)

// CheckpointStore persists WorkflowState atomically after every step
// transition, so a crashed or interrupted workflow can resume from its
// last durable checkpoint (§4.9 "Checkpoint and resume").
type CheckpointStore interface {
	Save(state *models.WorkflowState) error
	Load(workflowID string) (*models.WorkflowState, error)
	Delete(workflowID string) error
}

// FileCheckpointStore stores one JSON file per workflow run under a
// directory, written with the write-temp-then-rename idiom used
// throughout this repo's local artifact and registry stores (no partial
// checkpoint is ever observable).
type FileCheckpointStore struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileCheckpointStore creates a checkpoint store rooted at dir,
// creating the directory if it does not exist.
func NewFileCheckpointStore(dir string) (*FileCheckpointStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("workflow: create checkpoint dir: %w", err)
	}
	return &FileCheckpointStore{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

func (s *FileCheckpointStore) lockFor(workflowID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.locks[workflowID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[workflowID] = m
	}
	return m
}

func (s *FileCheckpointStore) path(workflowID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("step_%s.json", workflowID))
}

// Save writes state atomically: write to a .tmp file, fsync, rename over
// the target. A reader never observes a partially-written checkpoint.
func (s *FileCheckpointStore) Save(state *models.WorkflowState) error {
	if state.WorkflowID == "" {
		return fmt.Errorf("workflow: checkpoint requires a workflow id")
	}
	lock := s.lockFor(state.WorkflowID)
	lock.Lock()
	defer lock.Unlock()

	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("workflow: marshal checkpoint: %w", err)
	}

	target := s.path(state.WorkflowID)
	tmp := target + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("workflow: create checkpoint temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("workflow: write checkpoint: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("workflow: sync checkpoint: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("workflow: close checkpoint: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("workflow: rename checkpoint into place: %w", err)
	}
	return nil
}

// Load reads the latest checkpoint for workflowID.
func (s *FileCheckpointStore) Load(workflowID string) (*models.WorkflowState, error) {
	data, err := os.ReadFile(s.path(workflowID))
	if err != nil {
		return nil, fmt.Errorf("workflow: load checkpoint: %w", err)
	}
	var state models.WorkflowState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("workflow: parse checkpoint: %w", err)
	}
	return &state, nil
}

// Delete removes a workflow's checkpoint file, used once a workflow
// terminates and the operator explicitly discards its history.
func (s *FileCheckpointStore) Delete(workflowID string) error {
	if err := os.Remove(s.path(workflowID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("workflow: delete checkpoint: %w", err)
	}
	return nil
}

// List returns the workflow ids with a checkpoint on disk, sorted.
func (s *FileCheckpointStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("workflow: list checkpoints: %w", err)
	}
	var ids []string
	const prefix, suffix = "step_", ".json"
	for _, e := range entries {
		name := e.Name()
		if len(name) > len(prefix)+len(suffix) && name[:len(prefix)] == prefix && name[len(name)-len(suffix):] == suffix {
			ids = append(ids, name[len(prefix):len(name)-len(suffix)])
		}
	}
	sort.Strings(ids)
	return ids, nil
}
