package social

import (
	"context"

	"github.com/google/uuid"

	"github.com/goliatone/go-identity"
)

// Store is the storage collaborator consumed by the Resolver. Finders
// return a not found error recognized by identity.IsNotFound, creates
// return identity.ErrStorageConflict on uniqueness violations.
type Store interface {
	FindExternalLink(ctx context.Context, provider, providerAccountID string) (*identity.ExternalIdentityLink, error)
	CreateExternalLink(ctx context.Context, link *identity.ExternalIdentityLink) (*identity.ExternalIdentityLink, error)
	UpdateExternalLinkEmail(ctx context.Context, id uuid.UUID, email string) error

	FindAccountByID(ctx context.Context, id uuid.UUID) (*identity.Account, error)
	FindAccountByEmailKey(ctx context.Context, key string) (*identity.Account, error)
	FindAccountByUsernameKey(ctx context.Context, key string) (*identity.Account, error)

	// CreateAccountWithLink inserts both records atomically.
	CreateAccountWithLink(ctx context.Context, account *identity.Account, link *identity.ExternalIdentityLink) (*identity.Account, error)
}
