package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/credential-api/internal/domain"
)

type Service interface {
	Verify(ctx context.Context, ticket string) (*domain.Account, error)
}

type ticketStore interface {
	Take(ctx context.Context, ticket string) (*domain.VerificationTicket, error)
}

type accountStore interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	SetVerified(ctx context.Context, accountID string) error
}

type service struct {
	tickets  ticketStore
	accounts accountStore
}

func NewService(tickets ticketStore, accounts accountStore) Service {
	return &service{tickets: tickets, accounts: accounts}
}

// Verify consumes a ticket and flips its account to verified. The consume is
// an atomic take, so a second presentation of the same value always fails.
// Unknown and expired tickets are indistinguishable to the caller.
func (s *service) Verify(ctx context.Context, ticket string) (*domain.Account, error) {
	t, err := s.tickets.Take(ctx, ticket)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("ticket rejected: %w", domain.ErrTicketInvalid)
		}
		return nil, err
	}
	if t.ExpiresAt < time.Now().Unix() {
		// Already removed by the take; TTL would have collected it eventually.
		return nil, fmt.Errorf("ticket rejected: %w", domain.ErrTicketInvalid)
	}
	if err := s.accounts.SetVerified(ctx, t.AccountID); err != nil {
		return nil, err
	}
	return s.accounts.Get(ctx, t.AccountID)
}
