package gallery

import (
	"context"
	"errors"
)

// ErrNoToken is returned when a token source has no credential to offer.
var ErrNoToken = errors.New("no gallery token configured")

// TokenSource supplies the opaque bearer token attached to every exchange.
// The transport does not interpret or refresh tokens; sources wrapping a
// refreshing credential store can do that behind this interface.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed-string TokenSource.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", ErrNoToken
	}
	return string(t), nil
}

// TokenFunc adapts a function to the TokenSource interface.
type TokenFunc func(ctx context.Context) (string, error)

// Token implements TokenSource.
func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}
