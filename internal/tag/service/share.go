package service

import (
	"context"
	"fmt"
	"time"

	"tagnet/backend/internal/access"
	"tagnet/backend/internal/events"
	"tagnet/backend/internal/identity"
	"tagnet/backend/internal/tag/domain"
)

// Share grants granteeID read access to tagID. The caller must be the tag's
// owner. Granting an existing grant succeeds as a no-op.
func (s *TagService) Share(ctx context.Context, id *identity.Identity, tagID, granteeID string) (*domain.ShareGrant, error) {
	if id == nil {
		return nil, ErrUnauthenticated
	}
	if tagID == "" {
		return nil, ErrMissingTag
	}
	if granteeID == "" {
		return nil, ErrMissingGrantee
	}

	verdict, err := s.resolver.Resolve(ctx, id, tagID, access.Manage)
	if err != nil {
		return nil, fmt.Errorf("share: %w", err)
	}
	if verdict != access.Owner {
		return nil, ErrNotOwner
	}
	if granteeID == id.ID {
		return nil, ErrSelfShare
	}

	grant := &domain.ShareGrant{TagID: tagID, GranteeID: granteeID, CreatedAt: time.Now().UTC()}
	if err := s.repo.CreateShare(ctx, grant); err != nil {
		return nil, fmt.Errorf("share: %w", err)
	}

	s.log.Info("tag shared", "tag", tagID, "owner", id.ID, "grantee", granteeID)
	events.EmitAsync(s.emitter, &events.Event{
		Type: events.TypeTagShared, TagID: tagID, UserID: id.ID, GranteeID: granteeID, At: grant.CreatedAt,
	}, s.log)
	return grant, nil
}

// Unshare removes a grant on tagID. The owner may name any grantee; a
// grantee may omit granteeID to revoke their own access, with no owner
// involvement. Removing a grant that does not exist is a no-op success,
// since the desired end state already holds. Any other caller gets
// ErrNotOwner.
func (s *TagService) Unshare(ctx context.Context, id *identity.Identity, tagID, granteeID string) error {
	if id == nil {
		return ErrUnauthenticated
	}
	if tagID == "" {
		return ErrMissingTag
	}

	if granteeID == "" || granteeID == id.ID {
		// Self-revocation: drop the caller's own grant, whether or not one
		// exists. No ownership check needed.
		if err := s.repo.DeleteShare(ctx, tagID, id.ID); err != nil {
			return fmt.Errorf("unshare: %w", err)
		}
		events.EmitAsync(s.emitter, &events.Event{
			Type: events.TypeTagUnshared, TagID: tagID, UserID: id.ID, GranteeID: id.ID, At: time.Now().UTC(),
		}, s.log)
		return nil
	}

	verdict, err := s.resolver.Resolve(ctx, id, tagID, access.Manage)
	if err != nil {
		return fmt.Errorf("unshare: %w", err)
	}
	if verdict != access.Owner {
		return ErrNotOwner
	}

	if err := s.repo.DeleteShare(ctx, tagID, granteeID); err != nil {
		return fmt.Errorf("unshare: %w", err)
	}

	s.log.Info("tag unshared", "tag", tagID, "owner", id.ID, "grantee", granteeID)
	events.EmitAsync(s.emitter, &events.Event{
		Type: events.TypeTagUnshared, TagID: tagID, UserID: id.ID, GranteeID: granteeID, At: time.Now().UTC(),
	}, s.log)
	return nil
}

// SharedWithMe lists grants where the caller is the grantee. Public is
// always false; public sharing is not supported.
func (s *TagService) SharedWithMe(ctx context.Context, id *identity.Identity) ([]*domain.SharedTag, error) {
	if id == nil {
		return nil, ErrUnauthenticated
	}
	list, err := s.repo.ListSharesByGrantee(ctx, id.ID)
	if err != nil {
		return nil, fmt.Errorf("shared: %w", err)
	}
	return list, nil
}

// SharesOf lists the grants on a tag the caller owns.
func (s *TagService) SharesOf(ctx context.Context, id *identity.Identity, tagID string) ([]*domain.ShareGrant, error) {
	if id == nil {
		return nil, ErrUnauthenticated
	}
	if tagID == "" {
		return nil, ErrMissingTag
	}

	verdict, err := s.resolver.Resolve(ctx, id, tagID, access.Manage)
	if err != nil {
		return nil, fmt.Errorf("shares: %w", err)
	}
	if verdict != access.Owner {
		return nil, ErrNotOwner
	}
	return s.repo.ListSharesByTag(ctx, tagID)
}
