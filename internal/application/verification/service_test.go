package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/credential-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockTicketStore struct{ mock.Mock }

func (m *mockTicketStore) Take(ctx context.Context, ticket string) (*domain.VerificationTicket, error) {
	args := m.Called(ctx, ticket)
	if t, _ := args.Get(0).(*domain.VerificationTicket); t != nil {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockAccountStore struct{ mock.Mock }

func (m *mockAccountStore) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAccountStore) SetVerified(ctx context.Context, accountID string) error {
	return m.Called(ctx, accountID).Error(0)
}

// --- tests ---

func TestVerify_Success(t *testing.T) {
	ts, as := &mockTicketStore{}, &mockAccountStore{}

	ts.On("Take", mock.Anything, "tkt-1").Return(&domain.VerificationTicket{
		Ticket:    "tkt-1",
		AccountID: "acc-1",
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}, nil)
	as.On("SetVerified", mock.Anything, "acc-1").Return(nil)
	as.On("Get", mock.Anything, "acc-1").Return(&domain.Account{AccountID: "acc-1", Verified: true}, nil)

	account, err := NewService(ts, as).Verify(context.Background(), "tkt-1")

	require.NoError(t, err)
	assert.True(t, account.Verified)
}

// Consume-once: the take removes the row, so the second presentation misses.
func TestVerify_SecondConsumption_Fails(t *testing.T) {
	ts, as := &mockTicketStore{}, &mockAccountStore{}

	ts.On("Take", mock.Anything, "tkt-1").Return(&domain.VerificationTicket{
		Ticket:    "tkt-1",
		AccountID: "acc-1",
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}, nil).Once()
	ts.On("Take", mock.Anything, "tkt-1").Return(nil, domain.ErrNotFound)
	as.On("SetVerified", mock.Anything, "acc-1").Return(nil)
	as.On("Get", mock.Anything, "acc-1").Return(&domain.Account{AccountID: "acc-1", Verified: true}, nil)

	svc := NewService(ts, as)

	_, err := svc.Verify(context.Background(), "tkt-1")
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), "tkt-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTicketInvalid))
}

func TestVerify_UnknownTicket(t *testing.T) {
	ts, as := &mockTicketStore{}, &mockAccountStore{}

	ts.On("Take", mock.Anything, "bogus").Return(nil, domain.ErrNotFound)

	_, err := NewService(ts, as).Verify(context.Background(), "bogus")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTicketInvalid))
	as.AssertNotCalled(t, "SetVerified", mock.Anything, mock.Anything)
}

// Expired and unknown tickets are indistinguishable to the caller.
func TestVerify_ExpiredTicket_SameErrorAsUnknown(t *testing.T) {
	ts, as := &mockTicketStore{}, &mockAccountStore{}

	ts.On("Take", mock.Anything, "stale").Return(&domain.VerificationTicket{
		Ticket:    "stale",
		AccountID: "acc-1",
		ExpiresAt: time.Now().Add(-time.Minute).Unix(),
	}, nil)

	_, err := NewService(ts, as).Verify(context.Background(), "stale")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTicketInvalid))
	as.AssertNotCalled(t, "SetVerified", mock.Anything, mock.Anything)
}
