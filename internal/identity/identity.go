// Package identity holds the authenticated-user handle and the verifier
// boundary it is produced by. Core services consume Identity but never
// construct one; credential issuance lives outside this system.
package identity

import "context"

// Identity is an opaque authenticated-user handle. A nil *Identity means
// the request is anonymous.
type Identity struct {
	ID    string
	Email string
}

// Verifier turns a raw Authorization header value into an Identity.
// Implementations must return (nil, nil) for missing or unverifiable
// credentials; an error is reserved for verifier-internal failures.
type Verifier interface {
	Verify(ctx context.Context, rawAuthHeader string) (*Identity, error)
}
