// Package link implements authenticated link shortening and public
// redirect resolution.
package link

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/haw0k/mern-links/internal/domain"
	"github.com/haw0k/mern-links/internal/repository"
)

const (
	codeAlphabet  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength    = 8
	createRetries = 3
)

// ErrInvalidTarget indicates the submitted URL cannot be shortened.
var ErrInvalidTarget = errors.New("link: invalid target url")

// Service handles link workflows.
type Service struct {
	links         repository.LinkRepository
	logger        *slog.Logger
	publicBaseURL string
}

// New constructs a Service. publicBaseURL is the externally reachable base
// used to render short URLs.
func New(links repository.LinkRepository, logger *slog.Logger, publicBaseURL string) Service {
	return Service{links: links, logger: logger, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

// ShortURL renders the public redirect URL for a link.
func (s Service) ShortURL(l *domain.Link) string {
	return s.publicBaseURL + "/t/" + l.Code
}

// Shorten creates a short link for target owned by ownerID. Submitting the
// same target twice returns the existing link.
func (s Service) Shorten(ctx context.Context, ownerID, target string) (*domain.Link, error) {
	trimmed := strings.TrimSpace(target)
	parsed, err := url.Parse(trimmed)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, ErrInvalidTarget
	}

	existing, err := s.links.GetLinkByTarget(ctx, ownerID, trimmed)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	// Retry on short-code collisions; the links.code unique index reports
	// them as ErrDuplicate.
	for attempt := 0; attempt < createRetries; attempt++ {
		code, err := generateCode(codeLength)
		if err != nil {
			return nil, err
		}
		l := &domain.Link{
			ID:        uuid.NewString(),
			OwnerID:   ownerID,
			Code:      code,
			Target:    trimmed,
			CreatedAt: time.Now().UTC(),
		}
		err = s.links.CreateLink(ctx, l)
		if err == nil {
			s.logger.Info("link created", "link_id", l.ID, "owner_id", ownerID)
			return l, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("link: code collision persisted after %d attempts", createRetries)
}

// List returns all links owned by an account.
func (s Service) List(ctx context.Context, ownerID string) ([]domain.Link, error) {
	return s.links.ListLinksByOwner(ctx, ownerID)
}

// Get returns one of the owner's links by id. Links owned by other accounts
// are reported as not found.
func (s Service) Get(ctx context.Context, ownerID, id string) (*domain.Link, error) {
	l, err := s.links.GetLinkByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.OwnerID != ownerID {
		return nil, repository.ErrNotFound
	}
	return l, nil
}

// Resolve looks up a short code for redirecting and records the click.
func (s Service) Resolve(ctx context.Context, code string) (*domain.Link, error) {
	return s.links.IncrementClicks(ctx, code)
}

func generateCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
