package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/inkline/inkline-backend/internal/common"
	"github.com/inkline/inkline-backend/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SessionStore holds in-flight rebase sessions keyed by branch id. Put is
// exclusive: at most one active session per branch. Callers are expected to
// serialize requests per branch (single-flight); the store only enforces
// exclusivity, not ordering.
type SessionStore interface {
	Get(branchID uint64) (*domain.RebaseSession, error)
	// Put stores a new session; returns common.ErrRebaseInProgress if one
	// already exists for the branch.
	Put(session *domain.RebaseSession) error
	// Update overwrites an existing session.
	Update(session *domain.RebaseSession) error
	Delete(branchID uint64) error
}

// memorySessionStore is the single-instance default.
type memorySessionStore struct {
	mu       sync.RWMutex
	sessions map[uint64]*domain.RebaseSession
}

// NewMemorySessionStore creates an in-process session store
func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{sessions: make(map[uint64]*domain.RebaseSession)}
}

func (s *memorySessionStore) Get(branchID uint64) (*domain.RebaseSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[branchID]
	if !ok {
		return nil, common.ErrNoRebaseSession
	}
	copied := *session
	return &copied, nil
}

func (s *memorySessionStore) Put(session *domain.RebaseSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.BranchID]; ok {
		return common.ErrRebaseInProgress
	}
	s.sessions[session.BranchID] = session
	return nil
}

func (s *memorySessionStore) Update(session *domain.RebaseSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.BranchID]; !ok {
		return common.ErrNoRebaseSession
	}
	s.sessions[session.BranchID] = session
	return nil
}

func (s *memorySessionStore) Delete(branchID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, branchID)
	return nil
}

// redisSessionStore keeps sessions in Redis for multi-instance deployments.
// Sessions are JSON-encoded under one key per branch with a TTL so an
// abandoned rebase does not wedge the branch forever.
type redisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore creates a Redis-backed session store
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) SessionStore {
	return &redisSessionStore{client: client, ttl: ttl}
}

func sessionKey(branchID uint64) string {
	return fmt.Sprintf("rebase:session:%d", branchID)
}

func (s *redisSessionStore) Get(branchID uint64) (*domain.RebaseSession, error) {
	ctx := context.Background()
	data, err := s.client.Get(ctx, sessionKey(branchID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrNoRebaseSession
		}
		return nil, err
	}
	var session domain.RebaseSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *redisSessionStore) Put(session *domain.RebaseSession) error {
	ctx := context.Background()
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, sessionKey(session.BranchID), data, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrRebaseInProgress
	}
	return nil
}

func (s *redisSessionStore) Update(session *domain.RebaseSession) error {
	ctx := context.Background()
	key := sessionKey(session.BranchID)
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return common.ErrNoRebaseSession
	}
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, s.ttl).Err()
}

func (s *redisSessionStore) Delete(branchID uint64) error {
	return s.client.Del(context.Background(), sessionKey(branchID)).Err()
}
