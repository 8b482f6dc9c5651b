package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/credential-api/internal/domain"
	"github.com/credential-api/internal/pkg/id"
	pkgtoken "github.com/credential-api/internal/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

// TemplateVerification is the notifier template for verification tickets.
const TemplateVerification = "verification"

const (
	deliveryAttempts = 3
	deliveryBackoff  = 200 * time.Millisecond
)

// Notifier is the delivery collaborator. Failures are retried with backoff;
// exhausting retries on a fresh registration rolls the account back.
type Notifier interface {
	Send(ctx context.Context, destination, templateID string, data map[string]string) error
}

type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (accountID string, err error)
	ResendVerification(ctx context.Context, email string) error
}

type accountStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	Create(ctx context.Context, a *domain.Account) error
	Update(ctx context.Context, accountID string, updates map[string]interface{}) error
	Delete(ctx context.Context, a *domain.Account) error
}

type ticketStore interface {
	Put(ctx context.Context, t *domain.VerificationTicket) error
	Delete(ctx context.Context, ticket string) error
}

type service struct {
	accounts  accountStore
	tickets   ticketStore
	notifier  Notifier
	ticketTTL time.Duration
}

type ServiceDeps struct {
	AccountRepo accountStore
	TicketRepo  ticketStore
	Notifier    Notifier
	TicketTTL   time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		accounts:  deps.AccountRepo,
		tickets:   deps.TicketRepo,
		notifier:  deps.Notifier,
		ticketTTL: deps.TicketTTL,
	}
}

// Register creates an unverified account and delivers its verification ticket.
// Conflict posture is explicit and uniform (see DESIGN.md): a verified email or
// taken username surfaces ErrConflict; which field collided is only logged.
func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (string, error) {
	return s.register(ctx, req, true)
}

func (s *service) register(ctx context.Context, req domain.RegisterRequest, retryOnRace bool) (string, error) {
	email := domain.CanonicalEmail(req.Email)

	if existing, err := s.accounts.GetByEmail(ctx, email); err == nil {
		if existing.Verified {
			slog.Info("registration conflict", "field", "email", "account_id", existing.AccountID)
			return "", fmt.Errorf("email taken: %w", domain.ErrConflict)
		}
		// Unverified holder of this email: reissue the ticket instead of
		// creating anything.
		if err := s.reissue(ctx, existing); err != nil {
			return "", err
		}
		return existing.AccountID, nil
	}

	if existing, err := s.accounts.GetByUsername(ctx, req.Username); err == nil {
		slog.Info("registration conflict", "field", "username", "account_id", existing.AccountID)
		return "", fmt.Errorf("username taken: %w", domain.ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	ticket, err := pkgtoken.NewOpaque()
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	account := &domain.Account{
		AccountID:     id.New(),
		Email:         email,
		Username:      req.Username,
		PasswordHash:  string(hash),
		Verified:      false,
		PendingTicket: ticket,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) && retryOnRace {
			// Lost a race after passing the pre-checks. Re-run the checks once
			// so the outcome is identical to a pre-check conflict.
			slog.Info("registration storage race, re-checking", "field", conflict.Field)
			return s.register(ctx, req, false)
		}
		if errors.As(err, &conflict) {
			return "", fmt.Errorf("%s taken: %w", conflict.Field, domain.ErrConflict)
		}
		return "", err
	}

	if err := s.tickets.Put(ctx, &domain.VerificationTicket{
		Ticket:    ticket,
		AccountID: account.AccountID,
		Email:     email,
		ExpiresAt: now.Add(s.ticketTTL).Unix(),
	}); err != nil {
		s.rollback(ctx, account, ticket)
		return "", err
	}

	if err := s.deliver(ctx, email, ticket); err != nil {
		// An account that cannot receive its verification ticket is useless;
		// remove it so the identifiers stay claimable.
		s.rollback(ctx, account, ticket)
		return "", fmt.Errorf("could not deliver verification: %w", domain.ErrDeliveryFailed)
	}
	return account.AccountID, nil
}

// ResendVerification reissues the ticket for an unverified account. Missing or
// already-verified accounts are acknowledged silently so the endpoint cannot
// be used to probe for registered addresses.
func (s *service) ResendVerification(ctx context.Context, email string) error {
	account, err := s.accounts.GetByEmail(ctx, domain.CanonicalEmail(email))
	if err != nil || account.Verified {
		return nil
	}
	return s.reissue(ctx, account)
}

// reissue replaces the account's pending ticket with a fresh one and delivers
// it. The prior ticket row is deleted first, so at most one ticket is live per
// account.
func (s *service) reissue(ctx context.Context, account *domain.Account) error {
	if account.PendingTicket != "" {
		if err := s.tickets.Delete(ctx, account.PendingTicket); err != nil {
			slog.Warn("failed to discard previous ticket", "account_id", account.AccountID, "err", err)
		}
	}
	ticket, err := pkgtoken.NewOpaque()
	if err != nil {
		return err
	}
	if err := s.tickets.Put(ctx, &domain.VerificationTicket{
		Ticket:    ticket,
		AccountID: account.AccountID,
		Email:     account.Email,
		ExpiresAt: time.Now().UTC().Add(s.ticketTTL).Unix(),
	}); err != nil {
		return err
	}
	if err := s.accounts.Update(ctx, account.AccountID, map[string]interface{}{
		"pending_ticket": ticket,
	}); err != nil {
		return err
	}
	if err := s.deliver(ctx, account.Email, ticket); err != nil {
		return fmt.Errorf("could not deliver verification: %w", domain.ErrDeliveryFailed)
	}
	return nil
}

// deliver attempts notifier delivery with bounded retries and doubling backoff.
func (s *service) deliver(ctx context.Context, destination, ticket string) error {
	data := map[string]string{"ticket": ticket}
	backoff := deliveryBackoff
	var lastErr error
	for attempt := 1; attempt <= deliveryAttempts; attempt++ {
		lastErr = s.notifier.Send(ctx, destination, TemplateVerification, data)
		if lastErr == nil {
			return nil
		}
		slog.Warn("verification delivery failed", "attempt", attempt, "err", lastErr)
		if attempt < deliveryAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return lastErr
}

func (s *service) rollback(ctx context.Context, account *domain.Account, ticket string) {
	if err := s.tickets.Delete(ctx, ticket); err != nil {
		slog.Warn("rollback: failed to delete ticket", "account_id", account.AccountID, "err", err)
	}
	if err := s.accounts.Delete(ctx, account); err != nil {
		slog.Error("rollback: failed to delete account", "account_id", account.AccountID, "err", err)
	}
}
