package repository

import (
	"context"

	"github.com/haw0k/mern-links/internal/domain"
)

// AccountRepository persists accounts. CreateAccount must rely on a storage
// level uniqueness constraint for email and return ErrDuplicate when it is
// violated.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account *domain.Account) error
	GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetAccountByID(ctx context.Context, id string) (*domain.Account, error)
}

// LinkRepository persists shortened links.
type LinkRepository interface {
	CreateLink(ctx context.Context, link *domain.Link) error
	GetLinkByID(ctx context.Context, id string) (*domain.Link, error)
	GetLinkByCode(ctx context.Context, code string) (*domain.Link, error)
	GetLinkByTarget(ctx context.Context, ownerID, target string) (*domain.Link, error)
	ListLinksByOwner(ctx context.Context, ownerID string) ([]domain.Link, error)
	IncrementClicks(ctx context.Context, code string) (*domain.Link, error)
}
