// Package access decides, per request, whether a user may read or manage a
// tag's data. Verdicts are computed from the relationship store and never
// persisted.
package access

import (
	"context"

	"tagnet/backend/internal/identity"
	"tagnet/backend/internal/tag/domain"
)

// Capability is the action being authorized.
type Capability int

const (
	// Read is access to a tag's telemetry.
	Read Capability = iota
	// Write is creation of relationship metadata (a claim); granted only
	// while the tag has no ownership record.
	Write
	// Manage is granting/revoking shares and renaming; owner only.
	Manage
)

// Verdict is the per-request authorization outcome.
type Verdict int

const (
	// Denied means the caller may not perform the capability. Unknown tags
	// and inaccessible tags yield the same verdict so callers cannot probe
	// for tag existence.
	Denied Verdict = iota
	// Owner means the caller owns the tag.
	Owner
	// SharedReader means the caller holds a share grant, or the deployment
	// allows public reads and the caller is anonymous.
	SharedReader
)

// RelationshipReader is the minimal relationship-store surface the resolver needs.
type RelationshipReader interface {
	GetAccess(ctx context.Context, userID, tagID string) (domain.Access, error)
	GetOwnership(ctx context.Context, tagID string) (*domain.OwnershipRecord, error)
}

// Resolver computes authorization verdicts. It is side-effect-free and
// performs exactly one store lookup per call.
type Resolver struct {
	repo                RelationshipReader
	requireAuthForReads bool
}

// NewResolver returns a Resolver over the given relationship store.
// requireAuthForReads selects authenticated-read mode; when false, anonymous
// Read resolves to SharedReader without consulting the store.
func NewResolver(repo RelationshipReader, requireAuthForReads bool) *Resolver {
	return &Resolver{repo: repo, requireAuthForReads: requireAuthForReads}
}

// Resolve returns the caller's verdict for the capability on tagID.
// id may be nil for anonymous callers. Zero relationship rows is a Denied
// verdict, never an error.
func (r *Resolver) Resolve(ctx context.Context, id *identity.Identity, tagID string, capability Capability) (Verdict, error) {
	if id == nil {
		if capability == Read && !r.requireAuthForReads {
			return SharedReader, nil
		}
		// No store access for anonymous callers.
		return Denied, nil
	}

	if capability == Write {
		rec, err := r.repo.GetOwnership(ctx, tagID)
		if err != nil {
			return Denied, err
		}
		if rec == nil {
			return Owner, nil
		}
		return Denied, nil
	}

	acc, err := r.repo.GetAccess(ctx, id.ID, tagID)
	if err != nil {
		return Denied, err
	}

	switch capability {
	case Manage:
		if acc.Owner {
			return Owner, nil
		}
		return Denied, nil
	default: // Read
		if acc.Owner {
			return Owner, nil
		}
		if acc.Shared {
			return SharedReader, nil
		}
		return Denied, nil
	}
}
