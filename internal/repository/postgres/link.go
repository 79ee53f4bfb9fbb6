package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/haw0k/mern-links/internal/domain"
	"github.com/haw0k/mern-links/internal/repository"
)

const linkColumns = `id, owner_id, code, target, clicks, created_at`

// CreateLink inserts a link. The links.code unique index guards against
// short-code collisions.
func (r *Repository) CreateLink(ctx context.Context, link *domain.Link) error {
	const query = `INSERT INTO links (id, owner_id, code, target, clicks, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query, link.ID, link.OwnerID, link.Code, link.Target, link.Clicks, link.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetLinkByID retrieves a link by identifier.
func (r *Repository) GetLinkByID(ctx context.Context, id string) (*domain.Link, error) {
	const query = `SELECT ` + linkColumns + ` FROM links WHERE id = $1`
	return r.scanLink(r.pool.QueryRow(ctx, query, id))
}

// GetLinkByCode retrieves a link by short code.
func (r *Repository) GetLinkByCode(ctx context.Context, code string) (*domain.Link, error) {
	const query = `SELECT ` + linkColumns + ` FROM links WHERE code = $1`
	return r.scanLink(r.pool.QueryRow(ctx, query, code))
}

// GetLinkByTarget retrieves an owner's link for a target URL.
func (r *Repository) GetLinkByTarget(ctx context.Context, ownerID, target string) (*domain.Link, error) {
	const query = `SELECT ` + linkColumns + ` FROM links WHERE owner_id = $1 AND target = $2`
	return r.scanLink(r.pool.QueryRow(ctx, query, ownerID, target))
}

// ListLinksByOwner returns all links owned by an account, newest first.
func (r *Repository) ListLinksByOwner(ctx context.Context, ownerID string) ([]domain.Link, error) {
	const query = `SELECT ` + linkColumns + ` FROM links WHERE owner_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []domain.Link
	for rows.Next() {
		var l domain.Link
		if err := rows.Scan(&l.ID, &l.OwnerID, &l.Code, &l.Target, &l.Clicks, &l.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// IncrementClicks atomically bumps the click counter for a code and returns
// the updated link.
func (r *Repository) IncrementClicks(ctx context.Context, code string) (*domain.Link, error) {
	const query = `UPDATE links SET clicks = clicks + 1 WHERE code = $1
		RETURNING ` + linkColumns
	return r.scanLink(r.pool.QueryRow(ctx, query, code))
}

func (r *Repository) scanLink(row pgx.Row) (*domain.Link, error) {
	var l domain.Link
	if err := row.Scan(&l.ID, &l.OwnerID, &l.Code, &l.Target, &l.Clicks, &l.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}
