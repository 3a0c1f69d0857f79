// Package auth provides bearer-token authentication and per-view
// authorization for search services.
package auth

import (
	"context"
	"errors"
)

var (
	// ErrUnauthenticated is returned when a token is missing or invalid.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrPermissionDenied is returned when an identity may not search a view.
	ErrPermissionDenied = errors.New("permission denied")
)

// Authenticator validates bearer tokens and returns user identity.
// Implementations MUST be goroutine-safe.
type Authenticator interface {
	// Authenticate validates a bearer token and returns the identity.
	// Returns error if the token is invalid or expired.
	Authenticate(ctx context.Context, token string) (identity string, err error)
}

// ViewAuthorizer decides which views an identity may search. An
// Authenticator may also implement it.
// Implementations MUST be goroutine-safe.
type ViewAuthorizer interface {
	// AuthorizeView returns nil if the identity in ctx may search view.
	AuthorizeView(ctx context.Context, view string) error
}

type noAuthenticator struct{}

// NoAuth returns an Authenticator that accepts every token as "anonymous".
// Useful for development/testing. DO NOT use in production.
func NoAuth() Authenticator { return noAuthenticator{} }

func (noAuthenticator) Authenticate(ctx context.Context, token string) (string, error) {
	return "anonymous", nil
}

type bearerAuthenticator struct {
	validate func(token string) (string, error)
}

// BearerAuth creates an Authenticator from a validation function.
//
// Example:
//
//	a := auth.BearerAuth(func(token string) (string, error) {
//	    user, err := lookupToken(token)
//	    if err != nil {
//	        return "", err
//	    }
//	    return user.ID, nil
//	})
func BearerAuth(validate func(token string) (identity string, err error)) Authenticator {
	return &bearerAuthenticator{validate: validate}
}

func (b *bearerAuthenticator) Authenticate(ctx context.Context, token string) (string, error) {
	return b.validate(token)
}

// ViewsByIdentity is a ViewAuthorizer backed by a static table of allowed
// views per identity. The "*" view allows every view.
type ViewsByIdentity map[string][]string

// AuthorizeView implements ViewAuthorizer.
func (m ViewsByIdentity) AuthorizeView(ctx context.Context, view string) error {
	identity := IdentityFromContext(ctx)
	for _, v := range m[identity] {
		if v == view || v == "*" {
			return nil
		}
	}
	return ErrPermissionDenied
}
