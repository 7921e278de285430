package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"tagnet/backend/internal/tag/domain"
)

// uniqueViolation is the SQLSTATE for a unique constraint rejection.
const uniqueViolation = "23505"

type PostgresRepository struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresRepository returns a tag repository that uses the given db for persistence.
// timeout bounds every store call. All queries use bound parameters;
// caller-supplied values are never interpolated.
func NewPostgresRepository(db *sql.DB, timeout time.Duration) *PostgresRepository {
	return &PostgresRepository{db: db, timeout: timeout}
}

// opCtx derives the bounded context every store call runs under.
func (r *PostgresRepository) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// duplicateKey reports whether err is a unique-constraint rejection.
func duplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// CreateOwnership inserts the ownership record. The claimed_tags primary key
// rejects a second insert for the same tag; that rejection is surfaced as
// ErrDuplicateTag so exactly one concurrent claimant wins.
func (r *PostgresRepository) CreateOwnership(ctx context.Context, rec *domain.OwnershipRecord) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO claimed_tags (tag_id, owner_id, name, created_at) VALUES ($1, $2, $3, $4)`,
		rec.TagID, rec.OwnerID, rec.Name, rec.CreatedAt,
	)
	if err != nil {
		if duplicateKey(err) {
			return ErrDuplicateTag
		}
		return err
	}
	return nil
}

// GetOwnership returns the ownership record for tagID, or nil if the tag is
// unclaimed. It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetOwnership(ctx context.Context, tagID string) (*domain.OwnershipRecord, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()
	var rec domain.OwnershipRecord
	err := r.db.QueryRowContext(ctx,
		`SELECT tag_id, owner_id, name, created_at FROM claimed_tags WHERE tag_id = $1`,
		tagID,
	).Scan(&rec.TagID, &rec.OwnerID, &rec.Name, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// DeleteOwnership removes the ownership record and the tag's grants in one
// transaction, so a later claimant does not inherit stale grantees.
func (r *PostgresRepository) DeleteOwnership(ctx context.Context, tagID string) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM shared_tags WHERE tag_id = $1`, tagID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM claimed_tags WHERE tag_id = $1`, tagID); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateName sets the display name on the ownership record for tagID.
func (r *PostgresRepository) UpdateName(ctx context.Context, tagID, name string) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()
	res, err := r.db.ExecContext(ctx,
		`UPDATE claimed_tags SET name = $2 WHERE tag_id = $1`, tagID, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("update name: tag %q has no ownership record", tagID)
	}
	return nil
}

// GetAccess reports ownership and share access for (userID, tagID) with one
// union query over both relationship tables.
func (r *PostgresRepository) GetAccess(ctx context.Context, userID, tagID string) (domain.Access, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()
	rows, err := r.db.QueryContext(ctx,
		`SELECT true AS owner FROM claimed_tags WHERE owner_id = $1 AND tag_id = $2
		 UNION
		 SELECT false AS owner FROM shared_tags WHERE grantee_id = $1 AND tag_id = $2`,
		userID, tagID,
	)
	if err != nil {
		return domain.Access{}, err
	}
	defer rows.Close()

	var access domain.Access
	for rows.Next() {
		var owner bool
		if err := rows.Scan(&owner); err != nil {
			return domain.Access{}, err
		}
		if owner {
			access.Owner = true
		} else {
			access.Shared = true
		}
	}
	return access, rows.Err()
}

// CreateShare inserts a grant; re-granting is a no-op.
func (r *PostgresRepository) CreateShare(ctx context.Context, grant *domain.ShareGrant) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO shared_tags (tag_id, grantee_id, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (tag_id, grantee_id) DO NOTHING`,
		grant.TagID, grant.GranteeID, grant.CreatedAt,
	)
	return err
}

// DeleteShare removes the grantee's grant on tagID. Missing grants are a no-op;
// the desired end state already holds.
func (r *PostgresRepository) DeleteShare(ctx context.Context, tagID, granteeID string) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM shared_tags WHERE tag_id = $1 AND grantee_id = $2`,
		tagID, granteeID,
	)
	return err
}

// ListSharesByGrantee returns the tags shared with granteeID, with the
// owner's display identity from the tag's ownership record.
func (r *PostgresRepository) ListSharesByGrantee(ctx context.Context, granteeID string) ([]*domain.SharedTag, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.tag_id, c.owner_id, c.name
		 FROM shared_tags s
		 JOIN claimed_tags c ON c.tag_id = s.tag_id
		 WHERE s.grantee_id = $1
		 ORDER BY s.created_at`,
		granteeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.SharedTag
	for rows.Next() {
		st := &domain.SharedTag{}
		if err := rows.Scan(&st.TagID, &st.OwnerID, &st.OwnerName); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// ListSharesByTag returns all grants on tagID.
func (r *PostgresRepository) ListSharesByTag(ctx context.Context, tagID string) ([]*domain.ShareGrant, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()
	rows, err := r.db.QueryContext(ctx,
		`SELECT tag_id, grantee_id, created_at FROM shared_tags WHERE tag_id = $1 ORDER BY created_at`,
		tagID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ShareGrant
	for rows.Next() {
		g := &domain.ShareGrant{}
		if err := rows.Scan(&g.TagID, &g.GranteeID, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// ListTagsByUser returns the union of tags userID owns and tags shared with them.
func (r *PostgresRepository) ListTagsByUser(ctx context.Context, userID string) ([]*domain.TagListing, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()
	rows, err := r.db.QueryContext(ctx,
		`SELECT tag_id, name, true AS owner FROM claimed_tags WHERE owner_id = $1
		 UNION
		 SELECT s.tag_id, c.name, false AS owner
		 FROM shared_tags s
		 JOIN claimed_tags c ON c.tag_id = s.tag_id
		 WHERE s.grantee_id = $1
		 ORDER BY tag_id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.TagListing
	for rows.Next() {
		l := &domain.TagListing{}
		if err := rows.Scan(&l.TagID, &l.Name, &l.Owner); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
