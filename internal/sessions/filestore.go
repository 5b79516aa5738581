package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/forge-ai/forge-core/pkg/models"
)

// FileStore is the C6 Session Store's primary backend: one JSON file per
// session under dir, an index file for listing without reading every
// session, and a rotating backup directory that makes crash recovery
// possible. Every write goes through the atomic write protocol of §6:
// write a temp file in the same directory, fsync, rename over the
// target. A single session is guarded against cross-process races by an
// advisory flock on a per-session lock file, and against in-process
// races by a SessionLocker-backed mutex.
type FileStore struct {
	dir        string
	backupsDir string

	maxBackups int
	backupAge  time.Duration

	locker *SessionLocker

	idxMu sync.Mutex
	index fileIndex
}

// fileIndexEntry is one row of index.json: enough to list sessions
// without opening their files.
type fileIndexEntry struct {
	ID           string    `json:"id"`
	Key          string    `json:"key,omitempty"`
	AgentID      string    `json:"agent_id,omitempty"`
	Channel      string    `json:"channel,omitempty"`
	Title        string    `json:"title,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	TokensUsed   int       `json:"tokens_used"`
}

type fileIndex struct {
	Entries map[string]fileIndexEntry `json:"entries"`
}

// fileRecord is the on-disk shape of sessions/<id>.json: the session
// plus its full message history, matching §6's session file format.
type fileRecord struct {
	Session  *models.Session  `json:"session"`
	Messages []*models.Message `json:"messages"`
}

// NewFileStore creates a FileStore rooted at dir (typically
// $FORGE_CONFIG_DIR/sessions). It creates dir and dir/backups if they
// do not exist and loads (or initializes) the index.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("sessions: file store directory is required")
	}
	backupsDir := filepath.Join(dir, "backups")
	if err := os.MkdirAll(backupsDir, 0o755); err != nil {
		return nil, fmt.Errorf("sessions: create store dir: %w", err)
	}
	s := &FileStore{
		dir:        dir,
		backupsDir: backupsDir,
		maxBackups: 100,
		backupAge:  7 * 24 * time.Hour,
		locker:     NewSessionLocker(DefaultLockTimeout),
		index:      fileIndex{Entries: map[string]fileIndexEntry{}},
	}
	if err := s.loadIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) sessionPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *FileStore) indexPath() string {
	return filepath.Join(s.dir, "index.json")
}

func (s *FileStore) lockPath(id string) string {
	return filepath.Join(s.dir, "."+id+".lock")
}

// writeAtomic implements the §6 atomic write protocol: write <path>.tmp,
// fsync, rename <path>.tmp → <path>.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("sessions: open temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sessions: write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sessions: fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("sessions: close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("sessions: rename temp file: %w", err)
	}
	return nil
}

// withFileLock acquires a cross-process advisory flock on the
// session's lock file for the duration of fn, preventing two processes
// from racing on the same session file.
func (s *FileStore) withFileLock(id string, fn func() error) error {
	f, err := os.OpenFile(s.lockPath(id), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("sessions: open lock file: %w", err)
	}
	defer f.Close()
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("sessions: acquire lock: %w", err)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	return fn()
}

func (s *FileStore) loadIndex() error {
	data, err := os.ReadFile(s.indexPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("sessions: read index: %w", err)
	}
	var idx fileIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		// A corrupt index is rebuildable from the session files; do not
		// fail store construction over it.
		s.index = fileIndex{Entries: map[string]fileIndexEntry{}}
		return s.rebuildIndex()
	}
	if idx.Entries == nil {
		idx.Entries = map[string]fileIndexEntry{}
	}
	s.index = idx
	return nil
}

func (s *FileStore) rebuildIndex() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("sessions: rebuild index: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" || e.Name() == "index.json" {
			continue
		}
		id := e.Name()[:len(e.Name())-len(".json")]
		rec, _, err := s.readRecord(id)
		if err != nil {
			continue
		}
		s.index.Entries[id] = entryFor(rec)
	}
	return s.saveIndexLocked()
}

func entryFor(rec *fileRecord) fileIndexEntry {
	return fileIndexEntry{
		ID:           rec.Session.ID,
		Key:          rec.Session.Key,
		AgentID:      rec.Session.AgentID,
		Channel:      string(rec.Session.Channel),
		Title:        rec.Session.Title,
		UpdatedAt:    rec.Session.UpdatedAt,
		MessageCount: len(rec.Messages),
		TokensUsed:   rec.Session.TokenUsage.Total(),
	}
}

// saveIndexLocked writes the index file atomically. Caller must hold idxMu.
func (s *FileStore) saveIndexLocked() error {
	data, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return fmt.Errorf("sessions: marshal index: %w", err)
	}
	return writeAtomic(s.indexPath(), data)
}

// readRecord reads and parses a session file, falling back to the most
// recent valid backup on corruption. The boolean return reports whether
// the record was recovered from a backup.
func (s *FileStore) readRecord(id string) (*fileRecord, bool, error) {
	data, err := os.ReadFile(s.sessionPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, errors.New("session not found")
		}
		return nil, false, fmt.Errorf("sessions: read %s: %w", id, err)
	}
	rec, parseErr := parseRecord(data)
	if parseErr == nil {
		return rec, false, nil
	}
	rec, recoverErr := s.recoverFromBackup(id)
	if recoverErr != nil {
		return nil, false, fmt.Errorf("sessions: %s is corrupt and no backup recovered it: %w", id, parseErr)
	}
	return rec, true, nil
}

func parseRecord(data []byte) (*fileRecord, error) {
	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if rec.Session == nil || rec.Session.ID == "" {
		return nil, errors.New("sessions: record missing session")
	}
	return &rec, nil
}

// recoverFromBackup scans backupsDir for the most recent backup of id
// that parses cleanly, per §4.6's crash-recovery contract.
func (s *FileStore) recoverFromBackup(id string) (*fileRecord, error) {
	entries, err := os.ReadDir(s.backupsDir)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	prefix := id + "."
	var candidates []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if len(e.Name()) > len(prefix) && e.Name()[:len(prefix)] == prefix {
			candidates = append(candidates, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(candidates)))
	for _, name := range candidates {
		data, err := os.ReadFile(filepath.Join(s.backupsDir, name))
		if err != nil {
			continue
		}
		rec, err := parseRecord(data)
		if err != nil {
			continue
		}
		rec.Session.Recovered = true
		return rec, nil
	}
	return nil, errors.New("no recoverable backup found")
}

// backup moves the current on-disk copy of id aside before it is
// overwritten, then prunes old backups beyond the count/age caps.
func (s *FileStore) backup(id string) error {
	src := s.sessionPath(id)
	data, err := os.ReadFile(src)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("sessions: read for backup: %w", err)
	}
	dst := filepath.Join(s.backupsDir, fmt.Sprintf("%s.%d.json", id, time.Now().UnixNano()))
	if err := writeAtomic(dst, data); err != nil {
		return fmt.Errorf("sessions: write backup: %w", err)
	}
	return s.pruneBackups(id)
}

func (s *FileStore) pruneBackups(id string) error {
	entries, err := os.ReadDir(s.backupsDir)
	if err != nil {
		return fmt.Errorf("sessions: list backups: %w", err)
	}
	prefix := id + "."
	type backupFile struct {
		name    string
		modTime time.Time
	}
	var files []backupFile
	for _, e := range entries {
		if e.IsDir() || len(e.Name()) <= len(prefix) || e.Name()[:len(prefix)] != prefix {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, backupFile{name: e.Name(), modTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.After(files[j].modTime) })

	cutoff := time.Now().Add(-s.backupAge)
	for i, f := range files {
		if i < s.maxBackups && f.modTime.After(cutoff) {
			continue
		}
		os.Remove(filepath.Join(s.backupsDir, f.name))
	}
	return nil
}

func (s *FileStore) writeRecord(id string, rec *fileRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("sessions: marshal session %s: %w", id, err)
	}
	return s.withFileLock(id, func() error {
		if err := s.backup(id); err != nil {
			return err
		}
		if err := writeAtomic(s.sessionPath(id), data); err != nil {
			return err
		}
		s.idxMu.Lock()
		s.index.Entries[id] = entryFor(rec)
		err := s.saveIndexLocked()
		s.idxMu.Unlock()
		return err
	})
}

// --- Store interface ---

func (s *FileStore) Create(ctx context.Context, session *models.Session) error {
	if session == nil {
		return errors.New("session is required")
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = session.CreatedAt

	if err := s.locker.Lock(session.ID); err != nil {
		return err
	}
	defer s.locker.Unlock(session.ID)

	return s.writeRecord(session.ID, &fileRecord{Session: cloneSession(session)})
}

func (s *FileStore) Get(ctx context.Context, id string) (*models.Session, error) {
	if err := s.locker.Lock(id); err != nil {
		return nil, err
	}
	defer s.locker.Unlock(id)

	rec, recovered, err := s.readRecord(id)
	if err != nil {
		return nil, err
	}
	if recovered {
		// Heal the primary file so future reads don't pay the recovery
		// cost again; the recovered flag still reaches the caller.
		_ = s.writeRecord(id, rec)
	}
	return rec.Session, nil
}

func (s *FileStore) Update(ctx context.Context, session *models.Session) error {
	if session == nil {
		return errors.New("session is required")
	}
	if err := s.locker.Lock(session.ID); err != nil {
		return err
	}
	defer s.locker.Unlock(session.ID)

	rec, _, err := s.readRecord(session.ID)
	if err != nil {
		return err
	}
	updated := cloneSession(session)
	updated.CreatedAt = rec.Session.CreatedAt
	updated.UpdatedAt = time.Now()
	rec.Session = updated
	return s.writeRecord(session.ID, rec)
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := s.locker.Lock(id); err != nil {
		return err
	}
	defer s.locker.Unlock(id)

	if err := os.Remove(s.sessionPath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("sessions: delete %s: %w", id, err)
	}
	s.idxMu.Lock()
	delete(s.index.Entries, id)
	err := s.saveIndexLocked()
	s.idxMu.Unlock()
	return err
}

func (s *FileStore) GetByKey(ctx context.Context, key string) (*models.Session, error) {
	s.idxMu.Lock()
	var id string
	for _, e := range s.index.Entries {
		if e.Key == key {
			id = e.ID
			break
		}
	}
	s.idxMu.Unlock()
	if id == "" {
		return nil, errors.New("session not found")
	}
	return s.Get(ctx, id)
}

func (s *FileStore) GetOrCreate(ctx context.Context, key string, agentID string, channel models.ChannelType, channelID string) (*models.Session, error) {
	if existing, err := s.GetByKey(ctx, key); err == nil {
		return existing, nil
	}
	session := &models.Session{
		ID:        uuid.NewString(),
		AgentID:   agentID,
		Channel:   channel,
		ChannelID: channelID,
		Key:       key,
	}
	if err := s.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *FileStore) List(ctx context.Context, agentID string, opts ListOptions) ([]*models.Session, error) {
	s.idxMu.Lock()
	entries := make([]fileIndexEntry, 0, len(s.index.Entries))
	for _, e := range s.index.Entries {
		if agentID != "" && e.AgentID != agentID {
			continue
		}
		if opts.Channel != "" && e.Channel != string(opts.Channel) {
			continue
		}
		entries = append(entries, e)
	}
	s.idxMu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].UpdatedAt.After(entries[j].UpdatedAt) })

	start := opts.Offset
	if start < 0 {
		start = 0
	}
	if start > len(entries) {
		start = len(entries)
	}
	end := len(entries)
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}

	out := make([]*models.Session, 0, end-start)
	for _, e := range entries[start:end] {
		session, err := s.Get(ctx, e.ID)
		if err != nil {
			continue
		}
		out = append(out, session)
	}
	return out, nil
}

func (s *FileStore) AppendMessage(ctx context.Context, sessionID string, msg *models.Message) error {
	if msg == nil {
		return errors.New("message is required")
	}
	if err := s.locker.Lock(sessionID); err != nil {
		return err
	}
	defer s.locker.Unlock(sessionID)

	rec, _, err := s.readRecord(sessionID)
	if err != nil {
		return err
	}
	clone := cloneMessage(msg)
	if clone.ID == "" {
		clone.ID = uuid.NewString()
	}
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now()
	}
	rec.Messages = append(rec.Messages, clone)
	rec.Session.UpdatedAt = clone.CreatedAt
	return s.writeRecord(sessionID, rec)
}

func (s *FileStore) GetHistory(ctx context.Context, sessionID string, limit int) ([]*models.Message, error) {
	if err := s.locker.Lock(sessionID); err != nil {
		return nil, err
	}
	defer s.locker.Unlock(sessionID)

	rec, _, err := s.readRecord(sessionID)
	if err != nil {
		return nil, err
	}
	messages := rec.Messages
	start := 0
	if limit > 0 && len(messages) > limit {
		start = len(messages) - limit
	}
	out := make([]*models.Message, 0, len(messages)-start)
	for _, m := range messages[start:] {
		out = append(out, cloneMessage(m))
	}
	return out, nil
}

var _ Store = (*FileStore)(nil)
