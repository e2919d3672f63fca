// Package ctxkeys defines the typed context keys shared between middleware
// and handlers. A dedicated key type prevents collisions with string keys
// set by other packages.
package ctxkeys

import "context"

// Key is the context key type for values injected by API middleware.
type Key string

const (
	// Subject is the authenticated admin identity parsed from the JWT.
	Subject Key = "subject"
)

// WithValue returns a copy of ctx carrying val under the given typed key.
func WithValue(ctx context.Context, key Key, val any) context.Context {
	return context.WithValue(ctx, key, val)
}
