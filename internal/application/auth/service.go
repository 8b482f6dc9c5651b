package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/credential-api/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// dummyHash is a fixed cost-10 bcrypt hash compared against when no account
// matches the identifier, so a miss costs the same wall-clock time as a wrong
// password. It never matches a real credential.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
	Device     domain.DeviceInfo
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	Account      domain.AccountSummary
}

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
}

type accountStore interface {
	GetByIdentifier(ctx context.Context, identifier string) (*domain.Account, error)
}

type sessionIssuer interface {
	Issue(ctx context.Context, account *domain.Account, device domain.DeviceInfo) (string, *domain.Session, error)
}

type tokenSigner interface {
	Sign(accountID, email, username string) (string, error)
	Expiry() time.Duration
}

type service struct {
	accounts accountStore
	sessions sessionIssuer
	signer   tokenSigner
}

type ServiceDeps struct {
	AccountRepo accountStore
	Sessions    sessionIssuer
	Signer      tokenSigner
}

func NewService(deps ServiceDeps) Service {
	return &service{accounts: deps.AccountRepo, sessions: deps.Sessions, signer: deps.Signer}
}

// Login authenticates an identifier/password pair and mints a session.
// The bcrypt comparison always runs to completion before any branch returns —
// missing account, wrong password and unverified email all pay the same hash
// cost, so response latency does not disclose which case occurred.
func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	account, lookupErr := s.accounts.GetByIdentifier(ctx, req.Identifier)

	hash := dummyHash
	if lookupErr == nil {
		hash = account.PasswordHash
	}
	pwErr := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password))

	// A storage failure is not a credential failure; it still pays the compare
	// cost above before propagating.
	if lookupErr != nil && !errors.Is(lookupErr, domain.ErrNotFound) {
		return nil, fmt.Errorf("account lookup: %w", lookupErr)
	}
	if lookupErr != nil || pwErr != nil {
		return nil, fmt.Errorf("login rejected: %w", domain.ErrInvalidCredentials)
	}
	if !account.Verified {
		return nil, fmt.Errorf("login rejected: %w", domain.ErrEmailNotVerified)
	}

	refreshToken, _, err := s.sessions.Issue(ctx, account, req.Device)
	if err != nil {
		return nil, err
	}
	accessToken, err := s.signer.Sign(account.AccountID, account.Email, account.Username)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.signer.Expiry().Seconds()),
		Account:      account.Summary(),
	}, nil
}
