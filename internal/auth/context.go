package auth

import (
	"context"

	"github.com/hiroki-koketsu/todo-workflow/internal/model"
)

type actorKey struct{}

// WithActor attaches the authenticated user to ctx.
func WithActor(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, actorKey{}, user)
}

// ActorFrom returns the authenticated user stored by WithActor.
func ActorFrom(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(actorKey{}).(*model.User)
	return user, ok && user != nil
}
