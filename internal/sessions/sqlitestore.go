package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	// mattn/go-sqlite3 is a cgo driver registered under "sqlite3"; it is
	// the fast path when cgo is available. modernc.org/sqlite is a pure
	// Go driver registered under "sqlite" used when cross-compiling
	// without a C toolchain. SQLiteStore picks between them by Driver.
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/forge-ai/forge-core/pkg/models"
)

// SQLiteDriverCGO selects the cgo mattn/go-sqlite3 driver.
const SQLiteDriverCGO = "sqlite3"

// SQLiteDriverPure selects the pure-Go modernc.org/sqlite driver.
const SQLiteDriverPure = "sqlite"

// SQLiteConfig configures a SQLiteStore.
type SQLiteConfig struct {
	// Path is the database file path, or ":memory:" for an ephemeral store.
	Path string
	// Driver is SQLiteDriverCGO or SQLiteDriverPure. Defaults to the pure
	// Go driver so the binary stays cgo-free unless explicitly opted in.
	Driver string
}

func (c *SQLiteConfig) applyDefaults() {
	if c.Driver == "" {
		c.Driver = SQLiteDriverPure
	}
	if c.Path == "" {
		c.Path = "forge-sessions.db"
	}
}

// SQLiteStore is a single-process Store backend for local development and
// CLI-only runs, sharing its schema with CockroachStore's table layout but
// addressed with sqlite's placeholder and upsert dialect.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) a SQLite-backed Store and
// runs its schema migration.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	cfg.applyDefaults()

	db, err := sql.Open(cfg.Driver, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("sessions: open sqlite (%s): %w", cfg.Driver, err)
	}
	// A single writer connection avoids SQLITE_BUSY under the write
	// lock already enforced at the Store layer by the Agent Runtime.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sessions: ping sqlite: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	agent_id TEXT NOT NULL DEFAULT '',
	channel TEXT NOT NULL DEFAULT '',
	channel_id TEXT NOT NULL DEFAULT '',
	key TEXT UNIQUE,
	title TEXT NOT NULL DEFAULT '',
	metadata TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	channel TEXT NOT NULL DEFAULT '',
	channel_id TEXT NOT NULL DEFAULT '',
	direction TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL,
	content TEXT NOT NULL DEFAULT '',
	attachments TEXT,
	tool_calls TEXT,
	tool_results TEXT,
	metadata TEXT,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("sessions: migrate sqlite schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	metadata, err := json.Marshal(session.Metadata)
	if err != nil {
		return fmt.Errorf("sessions: marshal metadata: %w", err)
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	session.UpdatedAt = session.CreatedAt

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, agent_id, channel, channel_id, key, title, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.AgentID, session.Channel, session.ChannelID, nullableKey(session.Key),
		session.Title, metadata, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("sessions: create session: %w", err)
	}
	return nil
}

func nullableKey(key string) any {
	if key == "" {
		return nil
	}
	return key
}

func scanSession(row interface{ Scan(...any) error }) (*models.Session, error) {
	session := &models.Session{}
	var metadataJSON []byte
	var key sql.NullString
	err := row.Scan(&session.ID, &session.AgentID, &session.Channel, &session.ChannelID,
		&key, &session.Title, &metadataJSON, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return nil, err
	}
	session.Key = key.String
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &session.Metadata); err != nil {
			return nil, fmt.Errorf("sessions: unmarshal metadata: %w", err)
		}
	}
	return session, nil
}

const sessionColumns = `id, agent_id, channel, channel_id, key, title, metadata, created_at, updated_at`

func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sessions: get session: %w", err)
	}
	return session, nil
}

func (s *SQLiteStore) Update(ctx context.Context, session *models.Session) error {
	metadata, err := json.Marshal(session.Metadata)
	if err != nil {
		return fmt.Errorf("sessions: marshal metadata: %w", err)
	}
	session.UpdatedAt = time.Now()

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET title = ?, metadata = ?, updated_at = ? WHERE id = ?`,
		session.Title, metadata, session.UpdatedAt, session.ID)
	if err != nil {
		return fmt.Errorf("sessions: update session: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("session not found: %s", session.ID)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sessions: delete session: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("session not found: %s", id)
	}
	return nil
}

func (s *SQLiteStore) GetByKey(ctx context.Context, key string) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE key = ?`, key)
	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session not found with key: %s", key)
	}
	if err != nil {
		return nil, fmt.Errorf("sessions: get by key: %w", err)
	}
	return session, nil
}

func (s *SQLiteStore) GetOrCreate(ctx context.Context, key string, agentID string, channel models.ChannelType, channelID string) (*models.Session, error) {
	if existing, err := s.GetByKey(ctx, key); err == nil {
		return existing, nil
	}
	now := time.Now()
	session := &models.Session{
		ID: uuid.NewString(), AgentID: agentID, Channel: channel, ChannelID: channelID,
		Key: key, CreatedAt: now, UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, agent_id, channel, channel_id, key, title, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, '', '{}', ?, ?)
		ON CONFLICT(key) DO NOTHING`,
		session.ID, agentID, channel, channelID, key, now, now)
	if err != nil {
		return nil, fmt.Errorf("sessions: get or create: %w", err)
	}
	return s.GetByKey(ctx, key)
}

func (s *SQLiteStore) List(ctx context.Context, agentID string, opts ListOptions) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE 1=1`
	var args []any
	if agentID != "" {
		query += ` AND agent_id = ?`
		args = append(args, agentID)
	}
	if opts.Channel != "" {
		query += ` AND channel = ?`
		args = append(args, opts.Channel)
	}
	query += ` ORDER BY updated_at DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, opts.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sessions: list: %w", err)
	}
	defer rows.Close()

	var out []*models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("sessions: scan session: %w", err)
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, sessionID string, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	attachments, _ := json.Marshal(msg.Attachments)
	toolCalls, _ := json.Marshal(msg.ToolCalls)
	toolResults, _ := json.Marshal(msg.ToolResults)
	metadata, _ := json.Marshal(msg.Metadata)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, session_id, channel, channel_id, direction, role, content, attachments, tool_calls, tool_results, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, sessionID, msg.Channel, msg.ChannelID, msg.Direction, msg.Role, msg.Content,
		attachments, toolCalls, toolResults, metadata, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("sessions: append message: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `UPDATE sessions SET updated_at = ? WHERE id = ?`, msg.CreatedAt, sessionID)
	if err != nil {
		return fmt.Errorf("sessions: touch session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetHistory(ctx context.Context, sessionID string, limit int) ([]*models.Message, error) {
	const cols = `id, session_id, channel, channel_id, direction, role, content, attachments, tool_calls, tool_results, metadata, created_at`
	var query string
	var args []any
	if limit > 0 {
		query = `SELECT ` + cols + ` FROM (
			SELECT ` + cols + ` FROM messages WHERE session_id = ? ORDER BY created_at DESC LIMIT ?
		) ORDER BY created_at ASC`
		args = []any{sessionID, limit}
	} else {
		query = `SELECT ` + cols + ` FROM messages WHERE session_id = ? ORDER BY created_at ASC`
		args = []any{sessionID}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sessions: get history: %w", err)
	}
	defer rows.Close()

	var out []*models.Message
	for rows.Next() {
		msg := &models.Message{}
		var attachments, toolCalls, toolResults, metadata []byte
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Channel, &msg.ChannelID, &msg.Direction,
			&msg.Role, &msg.Content, &attachments, &toolCalls, &toolResults, &metadata, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("sessions: scan message: %w", err)
		}
		_ = json.Unmarshal(attachments, &msg.Attachments)
		_ = json.Unmarshal(toolCalls, &msg.ToolCalls)
		_ = json.Unmarshal(toolResults, &msg.ToolResults)
		_ = json.Unmarshal(metadata, &msg.Metadata)
		out = append(out, msg)
	}
	return out, rows.Err()
}

var _ Store = (*SQLiteStore)(nil)
