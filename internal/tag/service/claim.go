// Package service implements tag ownership operations: claiming, renaming,
// unclaiming, and delegated sharing. Handlers map the sentinel errors here
// to transport status codes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tagnet/backend/internal/access"
	"tagnet/backend/internal/events"
	"tagnet/backend/internal/identity"
	"tagnet/backend/internal/tag/domain"
	"tagnet/backend/internal/tag/repository"
)

// Sentinel errors for tag services; the edge maps them to error codes.
var (
	ErrUnauthenticated   = errors.New("authentication required")
	ErrMissingTag        = errors.New("missing tag")
	ErrTagAlreadyClaimed = errors.New("tag already claimed")
	ErrNotOwner          = errors.New("caller is not the tag owner")
	ErrMissingGrantee    = errors.New("missing grantee")
	ErrSelfShare         = errors.New("cannot share a tag with its owner")
)

// Relationships is the relationship-store surface the tag services need.
type Relationships interface {
	CreateOwnership(ctx context.Context, rec *domain.OwnershipRecord) error
	DeleteOwnership(ctx context.Context, tagID string) error
	UpdateName(ctx context.Context, tagID, name string) error
	CreateShare(ctx context.Context, grant *domain.ShareGrant) error
	DeleteShare(ctx context.Context, tagID, granteeID string) error
	ListSharesByGrantee(ctx context.Context, granteeID string) ([]*domain.SharedTag, error)
	ListSharesByTag(ctx context.Context, tagID string) ([]*domain.ShareGrant, error)
	ListTagsByUser(ctx context.Context, userID string) ([]*domain.TagListing, error)
}

// TagService implements claim, unclaim, rename, and sharing.
type TagService struct {
	repo     Relationships
	resolver *access.Resolver
	emitter  events.Emitter
	log      *slog.Logger
}

// NewTagService returns a TagService with the given dependencies.
// emitter may be nil to disable event emission.
func NewTagService(repo Relationships, resolver *access.Resolver, emitter events.Emitter, log *slog.Logger) *TagService {
	return &TagService{repo: repo, resolver: resolver, emitter: emitter, log: log}
}

// Claim registers first ownership of tagID for the caller. name defaults to
// the empty string. The insert is attempted directly; the store's uniqueness
// constraint decides concurrent races, so exactly one claimant wins and the
// rest get ErrTagAlreadyClaimed.
func (s *TagService) Claim(ctx context.Context, id *identity.Identity, tagID, name string) (string, error) {
	if id == nil {
		return "", ErrUnauthenticated
	}
	if tagID == "" {
		return "", ErrMissingTag
	}

	rec := &domain.OwnershipRecord{
		TagID:     tagID,
		OwnerID:   id.ID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateOwnership(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrDuplicateTag) {
			return "", ErrTagAlreadyClaimed
		}
		return "", fmt.Errorf("claim: %w", err)
	}

	s.log.Info("tag claimed", "tag", tagID, "owner", id.ID)
	events.EmitAsync(s.emitter, &events.Event{
		Type: events.TypeTagClaimed, TagID: tagID, UserID: id.ID, At: rec.CreatedAt,
	}, s.log)
	return tagID, nil
}

// Unclaim removes the caller's ownership record and the tag's grants.
// Afterwards the tag is claimable again. Non-owners get ErrNotOwner whether
// or not the tag exists.
func (s *TagService) Unclaim(ctx context.Context, id *identity.Identity, tagID string) error {
	if id == nil {
		return ErrUnauthenticated
	}
	if tagID == "" {
		return ErrMissingTag
	}

	verdict, err := s.resolver.Resolve(ctx, id, tagID, access.Manage)
	if err != nil {
		return fmt.Errorf("unclaim: %w", err)
	}
	if verdict != access.Owner {
		return ErrNotOwner
	}

	if err := s.repo.DeleteOwnership(ctx, tagID); err != nil {
		return fmt.Errorf("unclaim: %w", err)
	}

	s.log.Info("tag unclaimed", "tag", tagID, "owner", id.ID)
	events.EmitAsync(s.emitter, &events.Event{
		Type: events.TypeTagUnclaimed, TagID: tagID, UserID: id.ID, At: time.Now().UTC(),
	}, s.log)
	return nil
}

// Rename sets the tag's display name. Owner only.
func (s *TagService) Rename(ctx context.Context, id *identity.Identity, tagID, name string) error {
	if id == nil {
		return ErrUnauthenticated
	}
	if tagID == "" {
		return ErrMissingTag
	}

	verdict, err := s.resolver.Resolve(ctx, id, tagID, access.Manage)
	if err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	if verdict != access.Owner {
		return ErrNotOwner
	}

	if err := s.repo.UpdateName(ctx, tagID, name); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// ListTags returns the tags the caller owns or has been granted access to.
func (s *TagService) ListTags(ctx context.Context, id *identity.Identity) ([]*domain.TagListing, error) {
	if id == nil {
		return nil, ErrUnauthenticated
	}
	list, err := s.repo.ListTagsByUser(ctx, id.ID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return list, nil
}
