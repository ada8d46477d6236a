package hooks

import (
	"context"

	"github.com/tukey-analytics/tukey/internal/query"
	"github.com/tukey-analytics/tukey/internal/types"
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Authenticator interface {
	Login(ctx context.Context, email, password string) (*types.LoginResponse, error)
}

func Login(api Authenticator, cb Callbacks[*types.LoginResponse]) *query.Mutation[Credentials, *types.LoginResponse] {
	fn := func(ctx context.Context, c Credentials) (*types.LoginResponse, error) {
		return api.Login(ctx, c.Email, c.Password)
	}
	return query.NewMutation(mutationOptions(fn, cb))
}
