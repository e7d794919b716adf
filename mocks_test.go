package identity_test

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/goliatone/go-identity"
)

// MockAccounts implements identity.AccountReader
type MockAccounts struct {
	mock.Mock
}

func (m *MockAccounts) FindAccountByID(ctx context.Context, id uuid.UUID) (*identity.Account, error) {
	args := m.Called(ctx, id)
	acc, _ := args.Get(0).(*identity.Account)
	return acc, args.Error(1)
}

// MockSessions implements identity.SessionReader
type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) FindSessionByID(ctx context.Context, id uuid.UUID) (*identity.Session, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*identity.Session)
	return s, args.Error(1)
}

type refreshCall struct {
	ctxErr    error
	token     string
	longLived bool
}

// recordingSink captures refresh calls and returns err.
type recordingSink struct {
	mu      sync.Mutex
	calls   []refreshCall
	err     error
	release chan struct{}
}

func (s *recordingSink) RefreshSession(ctx context.Context, token string, longLived bool) error {
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, refreshCall{ctxErr: ctx.Err(), token: token, longLived: longLived})
	return s.err
}

func (s *recordingSink) Calls() []refreshCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]refreshCall, len(s.calls))
	copy(out, s.calls)
	return out
}

// memStore is an in-memory identity.Store enforcing key uniqueness.
type memStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*identity.Account
	sessions map[uuid.UUID]*identity.Session
	// beforeCreate runs inside CreateAccount before the uniqueness check.
	beforeCreate func(*memStore)
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[uuid.UUID]*identity.Account{},
		sessions: map[uuid.UUID]*identity.Session{},
	}
}

func (s *memStore) put(a *identity.Account) *identity.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.SetUsername(a.Username).SetEmail(a.Email)
	s.accounts[a.ID] = a
	return a
}

func (s *memStore) FindAccountByID(_ context.Context, id uuid.UUID) (*identity.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[id]; ok {
		return a, nil
	}
	return nil, identity.ErrRecordNotFound
}

func (s *memStore) FindSessionByID(_ context.Context, id uuid.UUID) (*identity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ses, ok := s.sessions[id]; ok {
		return ses, nil
	}
	return nil, identity.ErrRecordNotFound
}

func (s *memStore) FindAccountByEmailKey(_ context.Context, key string) (*identity.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if key != "" && a.EmailKey == key {
			return a, nil
		}
	}
	return nil, identity.ErrRecordNotFound
}

func (s *memStore) FindAccountByUsernameKey(_ context.Context, key string) (*identity.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.UsernameKey == key {
			return a, nil
		}
	}
	return nil, identity.ErrRecordNotFound
}

func (s *memStore) CreateAccount(_ context.Context, account *identity.Account) (*identity.Account, error) {
	if s.beforeCreate != nil {
		hook := s.beforeCreate
		s.beforeCreate = nil
		hook(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.UsernameKey == account.UsernameKey || (account.EmailKey != "" && a.EmailKey == account.EmailKey) {
			return nil, identity.NewStorageConflict(nil, map[string]any{"table": "accounts"})
		}
	}
	s.accounts[account.ID] = account
	return account, nil
}

func (s *memStore) CreateSession(_ context.Context, session *identity.Session) (*identity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return session, nil
}

type recordingActivity struct {
	mu     sync.Mutex
	events []identity.ActivityEvent
}

func (r *recordingActivity) Record(_ context.Context, e identity.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingActivity) Types() []identity.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]identity.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

type recordingMetrics struct {
	mu          sync.Mutex
	validations []string
	refreshes   []error
}

func (m *recordingMetrics) ValidationOutcome(o string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validations = append(m.validations, o)
}

func (m *recordingMetrics) ResolutionOutcome(string) {}

func (m *recordingMetrics) SessionRefreshed(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes = append(m.refreshes, err)
}

type quietLogger struct{}

func (quietLogger) Debug(string, ...any) {}
func (quietLogger) Info(string, ...any)  {}
func (quietLogger) Warn(string, ...any)  {}
func (quietLogger) Error(string, ...any) {}
