package repository

import (
	"context"
	"errors"

	"tagnet/backend/internal/tag/domain"
)

// ErrDuplicateTag is returned by CreateOwnership when the tag already has an
// owner. Surfaced from the store's uniqueness constraint, never from a
// pre-check, so concurrent claims race safely.
var ErrDuplicateTag = errors.New("tag already claimed")

// Repository defines persistence for tag ownership and share grants.
type Repository interface {
	// CreateOwnership inserts the ownership record. Returns ErrDuplicateTag
	// if the tag is already claimed.
	CreateOwnership(ctx context.Context, rec *domain.OwnershipRecord) error
	// GetOwnership returns the ownership record for tag, or nil if unclaimed.
	GetOwnership(ctx context.Context, tagID string) (*domain.OwnershipRecord, error)
	// DeleteOwnership removes the ownership record and all of the tag's
	// share grants in one transaction.
	DeleteOwnership(ctx context.Context, tagID string) error
	// UpdateName sets the display name on the ownership record.
	UpdateName(ctx context.Context, tagID, name string) error

	// GetAccess reports whether user owns or holds a grant for tag, in a
	// single union lookup. Zero rows is a valid result, not an error.
	GetAccess(ctx context.Context, userID, tagID string) (domain.Access, error)

	// CreateShare inserts a grant. Granting an existing grant is a no-op.
	CreateShare(ctx context.Context, grant *domain.ShareGrant) error
	// DeleteShare removes the grantee's grant on tag. Removing a grant that
	// does not exist is a no-op.
	DeleteShare(ctx context.Context, tagID, granteeID string) error
	// ListSharesByGrantee returns tags shared with the given user.
	ListSharesByGrantee(ctx context.Context, granteeID string) ([]*domain.SharedTag, error)
	// ListSharesByTag returns the grants on the given tag.
	ListSharesByTag(ctx context.Context, tagID string) ([]*domain.ShareGrant, error)

	// ListTagsByUser returns the tags the user owns or has access to.
	ListTagsByUser(ctx context.Context, userID string) ([]*domain.TagListing, error)
}
