// Package domain holds the ownership and sharing records for sensor tags.
package domain

import "time"

// OwnershipRecord registers exclusive ownership of a tag. At most one row
// exists per tag; uniqueness is enforced by the store.
type OwnershipRecord struct {
	TagID     string
	OwnerID   string
	Name      string
	CreatedAt time.Time
}

// ShareGrant is delegated, revocable read access to a tag's telemetry.
// The granting owner is implicit via the tag's current OwnershipRecord.
type ShareGrant struct {
	TagID     string
	GranteeID string
	CreatedAt time.Time
}

// TagListing is one row of a user's tag overview: a tag they own or that
// has been shared with them.
type TagListing struct {
	TagID string
	Name  string
	Owner bool
}

// SharedTag is one row of the "shared with me" view. Public is always false
// in this deployment; public sharing is not supported.
type SharedTag struct {
	TagID     string
	OwnerID   string
	OwnerName string
	Public    bool
}

// Access is the result of the combined ownership/share lookup for one
// (user, tag) pair.
type Access struct {
	Owner  bool
	Shared bool
}
