// Package auth implements the registration and login flows.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/haw0k/mern-links/internal/domain"
	"github.com/haw0k/mern-links/internal/repository"
	"github.com/haw0k/mern-links/internal/validate"
	"github.com/haw0k/mern-links/pkg/crypto"
	jwtpkg "github.com/haw0k/mern-links/pkg/jwt"
)

const minPasswordLength = 6

// Service handles authentication workflows.
type Service struct {
	accounts repository.AccountRepository
	hasher   crypto.Hasher
	issuer   jwtpkg.Issuer
	logger   *slog.Logger
}

// New constructs a Service.
func New(accounts repository.AccountRepository, hasher crypto.Hasher, issuer jwtpkg.Issuer, logger *slog.Logger) Service {
	return Service{accounts: accounts, hasher: hasher, issuer: issuer, logger: logger}
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	AccountID string
	ExpiresIn time.Duration
}

// Register creates a new account. The repository's uniqueness constraint is
// authoritative: a duplicate insert that slipped past the lookup still
// reports ErrDuplicateAccount.
func (s Service) Register(ctx context.Context, email, password string) (*domain.Account, error) {
	var res validate.Result
	res.Field("email", email, validate.Email("invalid email"))
	res.Field("password", password, validate.MinLength(minPasswordLength, "password must be at least 6 characters"))
	if !res.OK() {
		return nil, &ValidationError{Fields: res.Errors()}
	}

	normalized := validate.NormalizeEmail(email)
	if _, err := s.accounts.GetAccountByEmail(ctx, normalized); err == nil {
		return nil, ErrDuplicateAccount
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	account := &domain.Account{
		ID:           uuid.NewString(),
		Email:        normalized,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateAccount
		}
		return nil, err
	}
	s.logger.Info("account registered", "account_id", account.ID)
	return account, nil
}

// Login authenticates an account and issues a bearer token.
func (s Service) Login(ctx context.Context, email, password string) (Session, error) {
	normalized := validate.NormalizeEmail(email)

	var res validate.Result
	res.Field("email", normalized, validate.Email("invalid email"))
	res.Field("password", password, validate.Required("password is required"))
	if !res.OK() {
		return Session{}, &ValidationError{Fields: res.Errors()}
	}

	account, err := s.accounts.GetAccountByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, ErrAccountNotFound
		}
		return Session{}, err
	}
	if err := s.hasher.Compare(account.PasswordHash, password); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return Session{}, ErrCredentialMismatch
		}
		return Session{}, err
	}

	token, err := s.issuer.Issue(account.ID)
	if err != nil {
		return Session{}, err
	}
	s.logger.Info("account logged in", "account_id", account.ID)
	return Session{Token: token, AccountID: account.ID, ExpiresIn: s.issuer.TTL()}, nil
}

// Authorize validates a bearer token and returns the associated account and
// claims. Downstream routes use this as the verification side of the token
// contract.
func (s Service) Authorize(ctx context.Context, token string) (*domain.Account, *jwtpkg.Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, nil, errors.New("token required")
	}
	claims, err := s.issuer.Parse(trimmed)
	if err != nil {
		return nil, nil, err
	}
	account, err := s.accounts.GetAccountByID(ctx, claims.AccountID)
	if err != nil {
		return nil, nil, err
	}
	return account, claims, nil
}
