package identity_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/goliatone/go-identity"
)

func TestPrincipalContext(t *testing.T) {
	_, ok := identity.PrincipalFromContext(context.Background())
	assert.False(t, ok)

	p := &identity.Principal{AccountID: uuid.New(), Username: "jane"}
	ctx := identity.WithPrincipal(context.Background(), p)

	got, ok := identity.PrincipalFromContext(ctx)
	assert.True(t, ok)
	assert.Same(t, p, got)

	_, ok = identity.PrincipalFromContext(identity.WithPrincipal(context.Background(), nil))
	assert.False(t, ok)
}
