package auth

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/haw0k/mern-links/internal/domain"
	"github.com/haw0k/mern-links/internal/repository"
	"github.com/haw0k/mern-links/pkg/crypto"
	jwtpkg "github.com/haw0k/mern-links/pkg/jwt"
)

type accountRepoMock struct {
	createFunc     func(ctx context.Context, account *domain.Account) error
	getByEmailFunc func(ctx context.Context, email string) (*domain.Account, error)
	getByIDFunc    func(ctx context.Context, id string) (*domain.Account, error)
}

func (m *accountRepoMock) CreateAccount(ctx context.Context, account *domain.Account) error {
	if m.createFunc == nil {
		return nil
	}
	return m.createFunc(ctx, account)
}

func (m *accountRepoMock) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	if m.getByEmailFunc == nil {
		return nil, repository.ErrNotFound
	}
	return m.getByEmailFunc(ctx, email)
}

func (m *accountRepoMock) GetAccountByID(ctx context.Context, id string) (*domain.Account, error) {
	if m.getByIDFunc == nil {
		return nil, repository.ErrNotFound
	}
	return m.getByIDFunc(ctx, id)
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(repo *accountRepoMock) Service {
	hasher := crypto.NewHasher(bcrypt.MinCost)
	issuer := jwtpkg.NewIssuer("test-secret", time.Hour)
	return New(repo, hasher, issuer, newLogger())
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	repo := &accountRepoMock{
		createFunc: func(context.Context, *domain.Account) error {
			t.Fatalf("store must not be written on validation failure")
			return nil
		},
		getByEmailFunc: func(context.Context, string) (*domain.Account, error) {
			t.Fatalf("store must not be read on validation failure")
			return nil, nil
		},
	}
	svc := newService(repo)

	_, err := svc.Register(context.Background(), "a@b.com", "pass1")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Fields) != 1 || verr.Fields[0].Field != "password" {
		t.Fatalf("unexpected failures: %+v", verr.Fields)
	}
}

func TestRegisterAccumulatesAllFailures(t *testing.T) {
	svc := newService(&accountRepoMock{})
	_, err := svc.Register(context.Background(), "not-an-email", "abc")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Fields) != 2 {
		t.Fatalf("expected both fields to fail, got %+v", verr.Fields)
	}
}

func TestRegisterStoresNormalizedEmail(t *testing.T) {
	var created *domain.Account
	repo := &accountRepoMock{
		createFunc: func(_ context.Context, account *domain.Account) error {
			created = account
			return nil
		},
	}
	svc := newService(repo)

	account, err := svc.Register(context.Background(), " New@Example.COM ", "secret1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created == nil {
		t.Fatalf("expected account to be persisted")
	}
	if created.Email != "new@example.com" {
		t.Fatalf("expected normalized email, got %q", created.Email)
	}
	if account.ID == "" {
		t.Fatalf("expected generated id")
	}
	hasher := crypto.NewHasher(bcrypt.MinCost)
	if err := hasher.Compare(created.PasswordHash, "secret1"); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}
}

func TestRegisterDuplicateFoundByLookup(t *testing.T) {
	repo := &accountRepoMock{
		getByEmailFunc: func(_ context.Context, email string) (*domain.Account, error) {
			return &domain.Account{ID: "acc-1", Email: email}, nil
		},
		createFunc: func(context.Context, *domain.Account) error {
			t.Fatalf("create must not run when lookup finds a duplicate")
			return nil
		},
	}
	svc := newService(repo)

	if _, err := svc.Register(context.Background(), "a@b.com", "secret1"); !errors.Is(err, ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}
}

func TestRegisterDuplicateRaceOnInsert(t *testing.T) {
	// Lookup misses, but a concurrent registration wins the insert; the
	// storage constraint is authoritative.
	repo := &accountRepoMock{
		createFunc: func(context.Context, *domain.Account) error {
			return repository.ErrDuplicate
		},
	}
	svc := newService(repo)

	if _, err := svc.Register(context.Background(), "a@b.com", "secret1"); !errors.Is(err, ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}
}

func TestRegisterStoreFailureIsInternal(t *testing.T) {
	storeErr := errors.New("connection refused")
	repo := &accountRepoMock{
		createFunc: func(context.Context, *domain.Account) error {
			return storeErr
		},
	}
	svc := newService(repo)

	_, err := svc.Register(context.Background(), "a@b.com", "secret1")
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error to propagate, got %v", err)
	}
	if errors.Is(err, ErrDuplicateAccount) {
		t.Fatalf("store failure must not masquerade as duplicate")
	}
}

func TestLoginRequiresPassword(t *testing.T) {
	repo := &accountRepoMock{
		getByEmailFunc: func(context.Context, string) (*domain.Account, error) {
			t.Fatalf("store must not be read on validation failure")
			return nil, nil
		},
	}
	svc := newService(repo)

	_, err := svc.Login(context.Background(), "a@b.com", "")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Fields) != 1 || verr.Fields[0].Field != "password" {
		t.Fatalf("unexpected failures: %+v", verr.Fields)
	}
}

func TestLoginUnknownEmailIsNotFound(t *testing.T) {
	svc := newService(&accountRepoMock{})
	if _, err := svc.Login(context.Background(), "missing@example.com", "secret1"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestLoginWrongPasswordIsMismatch(t *testing.T) {
	hasher := crypto.NewHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo := &accountRepoMock{
		getByEmailFunc: func(_ context.Context, email string) (*domain.Account, error) {
			return &domain.Account{ID: "acc-1", Email: email, PasswordHash: hash}, nil
		},
	}
	svc := newService(repo)

	_, err = svc.Login(context.Background(), "a@b.com", "wrong")
	if !errors.Is(err, ErrCredentialMismatch) {
		t.Fatalf("expected ErrCredentialMismatch, got %v", err)
	}
	if errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("mismatch must not be reported as not-found")
	}
}

func TestLoginNormalizesEmailAndIssuesToken(t *testing.T) {
	hasher := crypto.NewHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	var lookedUp string
	repo := &accountRepoMock{
		getByEmailFunc: func(_ context.Context, email string) (*domain.Account, error) {
			lookedUp = email
			if email != "a@b.com" {
				return nil, repository.ErrNotFound
			}
			return &domain.Account{ID: "acc-1", Email: email, PasswordHash: hash}, nil
		},
	}
	svc := newService(repo)

	session, err := svc.Login(context.Background(), " A@B.com ", "secret1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lookedUp != "a@b.com" {
		t.Fatalf("lookup used non-normalized email: %q", lookedUp)
	}
	if session.AccountID != "acc-1" {
		t.Fatalf("unexpected account id: %q", session.AccountID)
	}
	if session.ExpiresIn != time.Hour {
		t.Fatalf("unexpected validity window: %v", session.ExpiresIn)
	}

	claims, err := jwtpkg.NewIssuer("test-secret", time.Hour).Parse(session.Token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.AccountID != "acc-1" {
		t.Fatalf("token bound to wrong account: %q", claims.AccountID)
	}
	if got := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time); got != time.Hour {
		t.Fatalf("expected 1h expiry, got %v", got)
	}
}

func TestAuthorizeAcceptsIssuedToken(t *testing.T) {
	repo := &accountRepoMock{
		getByIDFunc: func(_ context.Context, id string) (*domain.Account, error) {
			return &domain.Account{ID: id, Email: "a@b.com"}, nil
		},
	}
	svc := newService(repo)
	token, err := jwtpkg.NewIssuer("test-secret", time.Hour).Issue("acc-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	account, claims, err := svc.Authorize(context.Background(), token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.ID != "acc-1" || claims.AccountID != "acc-1" {
		t.Fatalf("unexpected identity: %q / %q", account.ID, claims.AccountID)
	}
}

func TestAuthorizeRejectsForeignToken(t *testing.T) {
	svc := newService(&accountRepoMock{})
	token, err := jwtpkg.NewIssuer("other-secret", time.Hour).Issue("acc-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, _, err := svc.Authorize(context.Background(), token); err == nil {
		t.Fatalf("expected foreign token to be rejected")
	}
	if _, _, err := svc.Authorize(context.Background(), "  "); err == nil {
		t.Fatalf("expected empty token to be rejected")
	}
}
