package tasks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store, the default backend for single-node
// deployments that don't need CockroachStore's distributed locking.
// Locking is still modeled (LockedAt/LockedUntil) so the same Scheduler
// code path exercises both backends identically.
type MemoryStore struct {
	mu         sync.Mutex
	tasks      map[string]*ScheduledTask
	executions map[string]*TaskExecution
}

// NewMemoryStore creates an empty in-memory task store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:      make(map[string]*ScheduledTask),
		executions: make(map[string]*TaskExecution),
	}
}

func (s *MemoryStore) CreateTask(ctx context.Context, task *ScheduledTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if _, exists := s.tasks[task.ID]; exists {
		return fmt.Errorf("tasks: task %s already exists", task.ID)
	}
	cp := *task
	s.tasks[task.ID] = &cp
	return nil
}

func (s *MemoryStore) GetTask(ctx context.Context, id string) (*ScheduledTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("tasks: task %s not found", id)
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) UpdateTask(ctx context.Context, task *ScheduledTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.ID]; !ok {
		return fmt.Errorf("tasks: task %s not found", task.ID)
	}
	cp := *task
	s.tasks[task.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, id)
	return nil
}

func (s *MemoryStore) ListTasks(ctx context.Context, opts ListTasksOptions) ([]*ScheduledTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*ScheduledTask
	for _, t := range s.tasks {
		if opts.Status != nil && t.Status != *opts.Status {
			continue
		}
		if !opts.IncludeDisabled && t.Status == TaskStatusDisabled {
			continue
		}
		if opts.AgentID != "" && t.AgentID != opts.AgentID {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, opts.Offset, opts.Limit), nil
}

func (s *MemoryStore) CreateExecution(ctx context.Context, exec *TaskExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if exec.ID == "" {
		exec.ID = uuid.NewString()
	}
	cp := *exec
	s.executions[exec.ID] = &cp
	return nil
}

func (s *MemoryStore) GetExecution(ctx context.Context, id string) (*TaskExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.executions[id]
	if !ok {
		return nil, fmt.Errorf("tasks: execution %s not found", id)
	}
	cp := *e
	return &cp, nil
}

func (s *MemoryStore) UpdateExecution(ctx context.Context, exec *TaskExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.executions[exec.ID]; !ok {
		return fmt.Errorf("tasks: execution %s not found", exec.ID)
	}
	cp := *exec
	s.executions[exec.ID] = &cp
	return nil
}

func (s *MemoryStore) ListExecutions(ctx context.Context, taskID string, opts ListExecutionsOptions) ([]*TaskExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*TaskExecution
	for _, e := range s.executions {
		if e.TaskID != taskID {
			continue
		}
		if opts.Status != nil && e.Status != *opts.Status {
			continue
		}
		if opts.Since != nil && e.ScheduledAt.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && e.ScheduledAt.After(*opts.Until) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return paginate(out, opts.Offset, opts.Limit), nil
}

func (s *MemoryStore) GetDueTasks(ctx context.Context, now time.Time, limit int) ([]*ScheduledTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*ScheduledTask
	for _, t := range s.tasks {
		if t.Status != TaskStatusActive {
			continue
		}
		if t.NextRunAt.After(now) {
			continue
		}
		cp := *t
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) AcquireExecution(ctx context.Context, workerID string, lockDuration time.Duration) (*TaskExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, e := range s.executions {
		if e.Status != ExecutionStatusPending {
			continue
		}
		if e.LockedUntil != nil && e.LockedUntil.After(now) {
			continue
		}
		e.Status = ExecutionStatusRunning
		e.WorkerID = workerID
		started := now
		e.StartedAt = &started
		lockedUntil := now.Add(lockDuration)
		e.LockedAt = &now
		e.LockedUntil = &lockedUntil
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryStore) ReleaseExecution(ctx context.Context, executionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.executions[executionID]
	if !ok {
		return nil
	}
	e.LockedAt = nil
	e.LockedUntil = nil
	e.Status = ExecutionStatusPending
	return nil
}

func (s *MemoryStore) CompleteExecution(ctx context.Context, executionID string, status ExecutionStatus, response string, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.executions[executionID]
	if !ok {
		return fmt.Errorf("tasks: execution %s not found", executionID)
	}
	now := time.Now()
	e.Status = status
	e.Response = response
	e.Error = errMsg
	e.FinishedAt = &now
	if e.StartedAt != nil {
		e.Duration = now.Sub(*e.StartedAt)
	}
	return nil
}

func (s *MemoryStore) GetRunningExecutions(ctx context.Context, taskID string) ([]*TaskExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*TaskExecution
	for _, e := range s.executions {
		if e.TaskID == taskID && e.Status == ExecutionStatusRunning {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) CleanupStaleExecutions(ctx context.Context, timeout time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-timeout)
	count := 0
	for _, e := range s.executions {
		if e.Status != ExecutionStatusRunning || e.StartedAt == nil {
			continue
		}
		if e.StartedAt.Before(cutoff) {
			e.Status = ExecutionStatusTimedOut
			now := time.Now()
			e.FinishedAt = &now
			count++
		}
	}
	return count, nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

var _ Store = (*MemoryStore)(nil)
