package sessions

import (
	"context"

	"github.com/forge-ai/forge-core/internal/observability"
	"github.com/forge-ai/forge-core/pkg/models"
)

// instrumentedStore wraps a Store and records forge_session_store_ops_total
// for every call, regardless of backend. The Dependencies Container (C11)
// builds the real backend from SessionConfig.Backend and layers this on
// top so file/SQLite/Cockroach all get the same observability for free.
type instrumentedStore struct {
	Store
	metrics *observability.Metrics
}

// Instrument wraps store so every operation is recorded against metrics.
// A nil metrics makes this a no-op passthrough.
func Instrument(store Store, metrics *observability.Metrics) Store {
	if metrics == nil {
		return store
	}
	return &instrumentedStore{Store: store, metrics: metrics}
}

func (s *instrumentedStore) record(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordSessionStoreOp(op, status)
}

func (s *instrumentedStore) Create(ctx context.Context, session *models.Session) error {
	err := s.Store.Create(ctx, session)
	s.record("create", err)
	return err
}

func (s *instrumentedStore) Get(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.Store.Get(ctx, id)
	s.record("get", err)
	return session, err
}

func (s *instrumentedStore) Update(ctx context.Context, session *models.Session) error {
	err := s.Store.Update(ctx, session)
	s.record("update", err)
	return err
}

func (s *instrumentedStore) Delete(ctx context.Context, id string) error {
	err := s.Store.Delete(ctx, id)
	s.record("delete", err)
	return err
}

func (s *instrumentedStore) GetByKey(ctx context.Context, key string) (*models.Session, error) {
	session, err := s.Store.GetByKey(ctx, key)
	s.record("get_by_key", err)
	return session, err
}

func (s *instrumentedStore) GetOrCreate(ctx context.Context, key string, agentID string, channel models.ChannelType, channelID string) (*models.Session, error) {
	session, err := s.Store.GetOrCreate(ctx, key, agentID, channel, channelID)
	s.record("get_or_create", err)
	return session, err
}

func (s *instrumentedStore) List(ctx context.Context, agentID string, opts ListOptions) ([]*models.Session, error) {
	sessions, err := s.Store.List(ctx, agentID, opts)
	s.record("list", err)
	return sessions, err
}

func (s *instrumentedStore) AppendMessage(ctx context.Context, sessionID string, msg *models.Message) error {
	err := s.Store.AppendMessage(ctx, sessionID, msg)
	s.record("append_message", err)
	return err
}

func (s *instrumentedStore) GetHistory(ctx context.Context, sessionID string, limit int) ([]*models.Message, error) {
	history, err := s.Store.GetHistory(ctx, sessionID, limit)
	s.record("get_history", err)
	return history, err
}
