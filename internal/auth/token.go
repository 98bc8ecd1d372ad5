package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hiroki-koketsu/todo-workflow/internal/model"
)

// Claims is the access token payload issued by the accounts service.
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HS256 access tokens.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier creates a TokenVerifier for the shared signing secret.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify parses tokenString and returns the user id it was issued for.
func (v *TokenVerifier) Verify(tokenString string) (int64, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (interface{}, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrInvalidToken, err)
	}
	if !token.Valid || claims.ExpiresAt == nil || claims.UserID == 0 {
		return 0, model.ErrInvalidToken
	}
	return claims.UserID, nil
}

// UserLookup resolves a token subject to an account.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// Authenticate verifies the token and loads the acting user. Unknown,
// inactive and deleted accounts are rejected as invalid tokens.
func (v *TokenVerifier) Authenticate(ctx context.Context, users UserLookup, tokenString string) (*model.User, error) {
	userID, err := v.Verify(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, model.ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.Usable() {
		return nil, model.ErrInvalidToken
	}
	return user, nil
}
