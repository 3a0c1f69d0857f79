package viewsearch

import (
	"context"

	"github.com/hugr-lab/viewsearch/auth"
)

// Authenticator validates bearer tokens and returns user identity.
// This is re-exported from the auth package for convenience.
type Authenticator = auth.Authenticator

// ViewAuthorizer decides whether an identity may search a view.
// This is re-exported from the auth package for convenience.
type ViewAuthorizer = auth.ViewAuthorizer

// BearerAuth creates an Authenticator from a validation function.
//
// Example:
//
//	auth := viewsearch.BearerAuth(func(token string) (string, error) {
//	    user, err := validateWithMyBackend(token)
//	    if err != nil {
//	        return "", err
//	    }
//	    return user.ID, nil
//	})
func BearerAuth(validateFunc func(token string) (identity string, err error)) Authenticator {
	return auth.BearerAuth(validateFunc)
}

// NoAuth returns an Authenticator that allows all requests without validation.
// Useful for development and testing. DO NOT use in production.
func NoAuth() Authenticator {
	return auth.NoAuth()
}

// ViewsByIdentity returns an authorizer granting each identity the listed
// views. The view name "*" grants every view.
func ViewsByIdentity(grants map[string][]string) ViewAuthorizer {
	return auth.ViewsByIdentity(grants)
}

// IdentityFromContext retrieves the authenticated user identity from context.
// Returns empty string if no identity is set (unauthenticated request).
func IdentityFromContext(ctx context.Context) string {
	return auth.IdentityFromContext(ctx)
}
