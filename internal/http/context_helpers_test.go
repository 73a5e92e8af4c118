package httpx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	domainauth "github.com/target/sessionauth/internal/domain/auth"
)

func TestUserContext(t *testing.T) {
	ctx := context.Background()

	_, ok := UserFromContext(ctx)
	assert.False(t, ok)

	assert.Equal(t, ctx, SetUserInContext(ctx, nil))

	u := &domainauth.User{ID: "u1"}
	got, ok := UserFromContext(SetUserInContext(ctx, u))
	assert.True(t, ok)
	assert.Same(t, u, got)
}
