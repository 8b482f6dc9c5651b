package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/credential-api/internal/domain"
	pkgtoken "github.com/credential-api/internal/pkg/token"
)

// RotateResult carries the fresh token pair returned by a successful rotation.
type RotateResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// Manager owns the refresh-token lifecycle: minting, rotation, revocation and
// the per-account session cap. Raw tokens are returned to the caller exactly
// once; only hashes reach storage.
type Manager interface {
	Issue(ctx context.Context, account *domain.Account, device domain.DeviceInfo) (string, *domain.Session, error)
	Rotate(ctx context.Context, rawToken string, device domain.DeviceInfo) (*RotateResult, error)
	Revoke(ctx context.Context, rawToken string) error
	RevokeAll(ctx context.Context, accountID string) error
}

type sessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	TakeByHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	DeleteByHash(ctx context.Context, tokenHash string) error
	Revoke(ctx context.Context, tokenHash string) error
	ListByAccount(ctx context.Context, accountID string) ([]domain.Session, error)
	DeleteAllByAccount(ctx context.Context, accountID string) error
}

type accountStore interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
}

type tokenSigner interface {
	Sign(accountID, email, username string) (string, error)
	Expiry() time.Duration
}

type manager struct {
	sessions    sessionStore
	accounts    accountStore
	signer      tokenSigner
	refreshTTL  time.Duration
	maxSessions int
}

type ManagerDeps struct {
	SessionRepo sessionStore
	AccountRepo accountStore
	Signer      tokenSigner
	RefreshTTL  time.Duration
	MaxSessions int
}

func NewManager(deps ManagerDeps) Manager {
	return &manager{
		sessions:    deps.SessionRepo,
		accounts:    deps.AccountRepo,
		signer:      deps.Signer,
		refreshTTL:  deps.RefreshTTL,
		maxSessions: deps.MaxSessions,
	}
}

// Issue purges dead sessions, enforces the cap (oldest evicted first), then
// mints and persists a new session. Returns the raw token and the stored row.
func (m *manager) Issue(ctx context.Context, account *domain.Account, device domain.DeviceInfo) (string, *domain.Session, error) {
	if err := m.enforceCap(ctx, account.AccountID); err != nil {
		return "", nil, err
	}
	raw, err := pkgtoken.NewOpaque()
	if err != nil {
		return "", nil, err
	}
	now := time.Now().UTC()
	sess := &domain.Session{
		TokenHash:  pkgtoken.Hash(raw),
		AccountID:  account.AccountID,
		Device:     device.Fingerprint,
		IP:         device.IP,
		CreatedAt:  now.UnixNano(),
		LastUsedAt: now.Unix(),
		ExpiresAt:  now.Add(m.refreshTTL).Unix(),
	}
	if err := m.sessions.Put(ctx, sess); err != nil {
		return "", nil, err
	}
	return raw, sess, nil
}

// Rotate exchanges a raw refresh token for a new pair. The matched session is
// atomically removed before the replacement is written, so the presented token
// is unusable the instant rotation succeeds — replaying it always fails.
func (m *manager) Rotate(ctx context.Context, rawToken string, device domain.DeviceInfo) (*RotateResult, error) {
	sess, err := m.sessions.TakeByHash(ctx, pkgtoken.Hash(rawToken))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("refresh token not recognized: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	now := time.Now().UTC()
	if sess.Revoked {
		return nil, fmt.Errorf("refresh token revoked: %w", domain.ErrTokenRevoked)
	}
	if sess.ExpiresAt < now.Unix() {
		// The take already removed the stale row.
		return nil, fmt.Errorf("refresh token expired: %w", domain.ErrTokenExpired)
	}

	account, err := m.accounts.Get(ctx, sess.AccountID)
	if err != nil {
		return nil, err
	}

	raw, err := pkgtoken.NewOpaque()
	if err != nil {
		return nil, err
	}
	replacement := &domain.Session{
		TokenHash:  pkgtoken.Hash(raw),
		AccountID:  sess.AccountID,
		Device:     pick(device.Fingerprint, sess.Device),
		IP:         pick(device.IP, sess.IP),
		CreatedAt:  sess.CreatedAt,
		LastUsedAt: now.Unix(),
		ExpiresAt:  now.Add(m.refreshTTL).Unix(),
	}
	if err := m.sessions.Put(ctx, replacement); err != nil {
		return nil, err
	}

	access, err := m.signer.Sign(account.AccountID, account.Email, account.Username)
	if err != nil {
		return nil, err
	}
	return &RotateResult{
		AccessToken:  access,
		RefreshToken: raw,
		ExpiresIn:    int(m.signer.Expiry().Seconds()),
	}, nil
}

// Revoke marks the session for the presented token revoked. Idempotent: an
// unknown or already-removed token is not an error.
func (m *manager) Revoke(ctx context.Context, rawToken string) error {
	err := m.sessions.Revoke(ctx, pkgtoken.Hash(rawToken))
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

// RevokeAll removes every session for the account (global sign-out).
func (m *manager) RevokeAll(ctx context.Context, accountID string) error {
	return m.sessions.DeleteAllByAccount(ctx, accountID)
}

// enforceCap lazily removes expired and revoked sessions, then evicts the
// oldest live sessions until one slot is free for the session about to be
// issued. Eviction is a conditional per-row delete, never a list rewrite.
func (m *manager) enforceCap(ctx context.Context, accountID string) error {
	sessions, err := m.sessions.ListByAccount(ctx, accountID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	var live []domain.Session
	for _, s := range sessions {
		if s.Live(now) {
			live = append(live, s)
			continue
		}
		if err := m.sessions.DeleteByHash(ctx, s.TokenHash); err != nil {
			slog.Warn("failed to purge dead session", "account_id", accountID, "err", err)
		}
	}
	// live is oldest-first (query is ordered by created_at).
	for len(live) >= m.maxSessions {
		if err := m.sessions.DeleteByHash(ctx, live[0].TokenHash); err != nil {
			return fmt.Errorf("evict oldest session: %w", err)
		}
		live = live[1:]
	}
	return nil
}

func pick(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}
