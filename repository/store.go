package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-identity"
	"github.com/goliatone/go-identity/social"
)

// Store persists accounts, external identity links and sessions. It
// serves the authenticator, the social resolver and the session refresh sink.
type Store struct {
	db           *bun.DB
	sessionTTL   time.Duration
	longLivedTTL time.Duration
	now          func() time.Time
}

var (
	_ identity.Store       = (*Store)(nil)
	_ identity.SessionSink = (*Store)(nil)
	_ social.Store         = (*Store)(nil)
)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithSessionTTL sets the sliding window applied on refresh for short
// and long lived sessions.
func WithSessionTTL(short, long time.Duration) StoreOption {
	return func(s *Store) {
		if short > 0 {
			s.sessionTTL = short
		}
		if long > 0 {
			s.longLivedTTL = long
		}
	}
}

// WithConfig takes the refresh windows from the same settings the
// authenticator issues sessions with.
func WithConfig(cfg identity.Config) StoreOption {
	if cfg == nil {
		return nil
	}
	return WithSessionTTL(cfg.GetSessionTTL(), cfg.GetLongLivedSessionTTL())
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates a Store over db.
func NewStore(db *bun.DB, opts ...StoreOption) *Store {
	s := &Store{
		db:           db,
		sessionTTL:   identity.DefaultSessionTTL,
		longLivedTTL: identity.DefaultLongLivedSessionTTL,
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// RunInTx runs f inside a transaction unless ctx is already done.
func (s *Store) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return s.db.RunInTx(ctx, opts, f)
	}
}

func (s *Store) FindAccountByID(ctx context.Context, id uuid.UUID) (*identity.Account, error) {
	return s.findAccount(ctx, "id", id)
}

func (s *Store) FindAccountByEmailKey(ctx context.Context, key string) (*identity.Account, error) {
	return s.findAccount(ctx, "email_key", key)
}

func (s *Store) FindAccountByUsernameKey(ctx context.Context, key string) (*identity.Account, error) {
	return s.findAccount(ctx, "username_key", key)
}

func (s *Store) findAccount(ctx context.Context, column string, value any) (*identity.Account, error) {
	account := &identity.Account{}
	err := s.db.NewSelect().
		Model(account).
		Where("?TableAlias.? = ?", bun.Ident(column), value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapError(err, map[string]any{"entity": "account", column: value})
	}
	return account, nil
}

// CreateAccount inserts account, timestamping it when unset.
func (s *Store) CreateAccount(ctx context.Context, account *identity.Account) (*identity.Account, error) {
	if err := s.insertAccount(ctx, s.db, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *Store) insertAccount(ctx context.Context, db bun.IDB, account *identity.Account) error {
	now := s.now().UTC()
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = now
	}
	account.SetUsername(account.Username)
	if account.Email != "" && account.EmailKey == "" {
		account.SetEmail(account.Email)
	}

	if _, err := db.NewInsert().Model(account).Exec(ctx); err != nil {
		return mapError(err, map[string]any{"entity": "account", "username": account.Username})
	}
	return nil
}

func (s *Store) FindExternalLink(ctx context.Context, provider, providerAccountID string) (*identity.ExternalIdentityLink, error) {
	link := &identity.ExternalIdentityLink{}
	err := s.db.NewSelect().
		Model(link).
		Where("?TableAlias.provider = ?", provider).
		Where("?TableAlias.provider_account_id = ?", providerAccountID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapError(err, map[string]any{
			"entity":              "external_identity_link",
			"provider":            provider,
			"provider_account_id": providerAccountID,
		})
	}
	return link, nil
}

func (s *Store) CreateExternalLink(ctx context.Context, link *identity.ExternalIdentityLink) (*identity.ExternalIdentityLink, error) {
	if err := s.insertLink(ctx, s.db, link); err != nil {
		return nil, err
	}
	return link, nil
}

func (s *Store) insertLink(ctx context.Context, db bun.IDB, link *identity.ExternalIdentityLink) error {
	now := s.now().UTC()
	if link.ID == uuid.Nil {
		link.ID = uuid.New()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = now
	}
	if link.UpdatedAt.IsZero() {
		link.UpdatedAt = now
	}

	if _, err := db.NewInsert().Model(link).Exec(ctx); err != nil {
		return mapError(err, map[string]any{
			"entity":   "external_identity_link",
			"provider": link.Provider,
		})
	}
	return nil
}

// UpdateExternalLinkEmail stores the latest email reported by the provider.
func (s *Store) UpdateExternalLinkEmail(ctx context.Context, id uuid.UUID, email string) error {
	res, err := s.db.NewUpdate().
		Model((*identity.ExternalIdentityLink)(nil)).
		Set("email = ?", nullString(email)).
		Set("updated_at = ?", s.now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return mapError(err, map[string]any{"entity": "external_identity_link", "id": id})
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return identity.NewRecordNotFound(map[string]any{"entity": "external_identity_link", "id": id})
	}
	return nil
}

// CreateAccountWithLink inserts the account and its first link in one
// transaction. A uniqueness violation on either rolls back both.
func (s *Store) CreateAccountWithLink(ctx context.Context, account *identity.Account, link *identity.ExternalIdentityLink) (*identity.Account, error) {
	err := s.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.insertAccount(ctx, tx, account); err != nil {
			return err
		}
		link.AccountID = account.ID
		return s.insertLink(ctx, tx, link)
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *Store) FindSessionByID(ctx context.Context, id uuid.UUID) (*identity.Session, error) {
	session := &identity.Session{}
	err := s.db.NewSelect().
		Model(session).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapError(err, map[string]any{"entity": "session", "id": id})
	}
	return session, nil
}

func (s *Store) CreateSession(ctx context.Context, session *identity.Session) (*identity.Session, error) {
	if _, err := s.db.NewInsert().Model(session).Exec(ctx); err != nil {
		return nil, mapError(err, map[string]any{"entity": "session"})
	}
	return session, nil
}

// RefreshSession records use of the session and slides its expiry
// forward. Unknown and already expired sessions are left untouched and
// the expiry never moves backwards.
func (s *Store) RefreshSession(ctx context.Context, sessionToken string, extendLongLived bool) error {
	return s.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		session := &identity.Session{}
		err := tx.NewSelect().
			Model(session).
			Where("?TableAlias.token = ?", sessionToken).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		now := s.now().UTC()
		if session.Expired(now) {
			return nil
		}

		ttl := s.sessionTTL
		if extendLongLived {
			ttl = s.longLivedTTL
		}
		expiresAt := session.ExpiresAt
		if next := now.Add(ttl); next.After(expiresAt) {
			expiresAt = next
		}

		_, err = tx.NewUpdate().
			Model((*identity.Session)(nil)).
			Set("last_used_at = ?", now).
			Set("expires_at = ?", expiresAt.UTC()).
			Where("id = ?", session.ID).
			Exec(ctx)
		return err
	})
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
