package link

import (
	"context"
	"errors"
	"io"
	"testing"

	"log/slog"

	"github.com/haw0k/mern-links/internal/domain"
	"github.com/haw0k/mern-links/internal/repository"
)

type linkRepoMock struct {
	createFunc      func(ctx context.Context, link *domain.Link) error
	getByIDFunc     func(ctx context.Context, id string) (*domain.Link, error)
	getByCodeFunc   func(ctx context.Context, code string) (*domain.Link, error)
	getByTargetFunc func(ctx context.Context, ownerID, target string) (*domain.Link, error)
	listFunc        func(ctx context.Context, ownerID string) ([]domain.Link, error)
	incrementFunc   func(ctx context.Context, code string) (*domain.Link, error)
}

func (m *linkRepoMock) CreateLink(ctx context.Context, link *domain.Link) error {
	if m.createFunc == nil {
		return nil
	}
	return m.createFunc(ctx, link)
}

func (m *linkRepoMock) GetLinkByID(ctx context.Context, id string) (*domain.Link, error) {
	if m.getByIDFunc == nil {
		return nil, repository.ErrNotFound
	}
	return m.getByIDFunc(ctx, id)
}

func (m *linkRepoMock) GetLinkByCode(ctx context.Context, code string) (*domain.Link, error) {
	if m.getByCodeFunc == nil {
		return nil, repository.ErrNotFound
	}
	return m.getByCodeFunc(ctx, code)
}

func (m *linkRepoMock) GetLinkByTarget(ctx context.Context, ownerID, target string) (*domain.Link, error) {
	if m.getByTargetFunc == nil {
		return nil, repository.ErrNotFound
	}
	return m.getByTargetFunc(ctx, ownerID, target)
}

func (m *linkRepoMock) ListLinksByOwner(ctx context.Context, ownerID string) ([]domain.Link, error) {
	if m.listFunc == nil {
		return nil, nil
	}
	return m.listFunc(ctx, ownerID)
}

func (m *linkRepoMock) IncrementClicks(ctx context.Context, code string) (*domain.Link, error) {
	if m.incrementFunc == nil {
		return nil, repository.ErrNotFound
	}
	return m.incrementFunc(ctx, code)
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestShortenCreatesLinkWithCode(t *testing.T) {
	var created *domain.Link
	repo := &linkRepoMock{
		createFunc: func(_ context.Context, link *domain.Link) error {
			created = link
			return nil
		},
	}
	svc := New(repo, newLogger(), "http://localhost:5000/")

	l, err := svc.Shorten(context.Background(), "acc-1", " https://example.com/path ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created == nil {
		t.Fatalf("expected link to be persisted")
	}
	if len(l.Code) != codeLength {
		t.Fatalf("unexpected code %q", l.Code)
	}
	if l.Target != "https://example.com/path" {
		t.Fatalf("expected trimmed target, got %q", l.Target)
	}
	if got := svc.ShortURL(l); got != "http://localhost:5000/t/"+l.Code {
		t.Fatalf("unexpected short url %q", got)
	}
}

func TestShortenRejectsInvalidTarget(t *testing.T) {
	repo := &linkRepoMock{
		createFunc: func(context.Context, *domain.Link) error {
			t.Fatalf("store must not be written for invalid targets")
			return nil
		},
	}
	svc := New(repo, newLogger(), "http://localhost:5000")

	for _, target := range []string{"", "notaurl", "ftp://example.com/x", "http://"} {
		if _, err := svc.Shorten(context.Background(), "acc-1", target); !errors.Is(err, ErrInvalidTarget) {
			t.Fatalf("expected ErrInvalidTarget for %q, got %v", target, err)
		}
	}
}

func TestShortenReturnsExistingLink(t *testing.T) {
	existing := &domain.Link{ID: "link-1", OwnerID: "acc-1", Code: "abcd1234", Target: "https://example.com"}
	repo := &linkRepoMock{
		getByTargetFunc: func(_ context.Context, ownerID, target string) (*domain.Link, error) {
			if ownerID != "acc-1" || target != "https://example.com" {
				t.Fatalf("unexpected lookup: %s %s", ownerID, target)
			}
			return existing, nil
		},
		createFunc: func(context.Context, *domain.Link) error {
			t.Fatalf("create must not run for an existing target")
			return nil
		},
	}
	svc := New(repo, newLogger(), "http://localhost:5000")

	l, err := svc.Shorten(context.Background(), "acc-1", "https://example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l != existing {
		t.Fatalf("expected existing link to be returned")
	}
}

func TestShortenRetriesOnCodeCollision(t *testing.T) {
	attempts := 0
	codes := map[string]bool{}
	repo := &linkRepoMock{
		createFunc: func(_ context.Context, link *domain.Link) error {
			attempts++
			codes[link.Code] = true
			if attempts == 1 {
				return repository.ErrDuplicate
			}
			return nil
		},
	}
	svc := New(repo, newLogger(), "http://localhost:5000")

	if _, err := svc.Shorten(context.Background(), "acc-1", "https://example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected one retry, got %d attempts", attempts)
	}
	if len(codes) != 2 {
		t.Fatalf("expected a fresh code per attempt, got %v", codes)
	}
}

func TestShortenGivesUpAfterRepeatedCollisions(t *testing.T) {
	repo := &linkRepoMock{
		createFunc: func(context.Context, *domain.Link) error {
			return repository.ErrDuplicate
		},
	}
	svc := New(repo, newLogger(), "http://localhost:5000")

	if _, err := svc.Shorten(context.Background(), "acc-1", "https://example.com"); err == nil {
		t.Fatalf("expected error after persistent collisions")
	}
}

func TestGetHidesForeignLinks(t *testing.T) {
	repo := &linkRepoMock{
		getByIDFunc: func(_ context.Context, id string) (*domain.Link, error) {
			return &domain.Link{ID: id, OwnerID: "someone-else"}, nil
		},
	}
	svc := New(repo, newLogger(), "http://localhost:5000")

	if _, err := svc.Get(context.Background(), "acc-1", "link-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected foreign link to be reported as not found, got %v", err)
	}
}

func TestResolveCountsClick(t *testing.T) {
	repo := &linkRepoMock{
		incrementFunc: func(_ context.Context, code string) (*domain.Link, error) {
			if code != "abcd1234" {
				t.Fatalf("unexpected code: %q", code)
			}
			return &domain.Link{Code: code, Target: "https://example.com", Clicks: 3}, nil
		},
	}
	svc := New(repo, newLogger(), "http://localhost:5000")

	l, err := svc.Resolve(context.Background(), "abcd1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Clicks != 3 {
		t.Fatalf("unexpected click count: %d", l.Clicks)
	}
}
