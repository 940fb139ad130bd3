//go:generate go run go.uber.org/mock/mockgen -source=authenticator.go -destination=../mocks/mock_authenticator.go -package=mocks
package auth

import (
	"context"
	goerrors "errors"
	"fmt"
	"strings"

	"synergy/domain"
	"synergy/errors"
	"synergy/repositories"
)

// IAuthenticator resolves a credential presented at connection time.
type IAuthenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Identity, error)
}

type Authenticator struct {
	tokens *Tokens
	users  repositories.IUserRepository
}

func NewAuthenticator(tokens *Tokens, users repositories.IUserRepository) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// Authenticate fails with ErrAuthenticationRequired, ErrInvalidCredential or ErrIdentityNotFound.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	if err := ctx.Err(); err != nil {
		return domain.Identity{}, err
	}
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return domain.Identity{}, errors.ErrAuthenticationRequired
	}

	claims, err := a.tokens.ValidateToken(token)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", errors.ErrInvalidCredential, err)
	}
	if claims.User.ID == "" {
		return domain.Identity{}, fmt.Errorf("%w: missing user id", errors.ErrInvalidCredential)
	}

	user, err := a.users.GetUserByID(claims.User.ID)
	if err != nil {
		if goerrors.Is(err, errors.ErrIdentityNotFound) {
			return domain.Identity{}, errors.ErrIdentityNotFound
		}
		return domain.Identity{}, fmt.Errorf("identity lookup failed: %w", err)
	}
	return user.Identity(), nil
}
