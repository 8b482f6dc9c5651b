package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/credential-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockAccountStore struct{ mock.Mock }

func (m *mockAccountStore) GetByIdentifier(ctx context.Context, identifier string) (*domain.Account, error) {
	args := m.Called(ctx, identifier)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSessionIssuer struct{ mock.Mock }

func (m *mockSessionIssuer) Issue(ctx context.Context, account *domain.Account, device domain.DeviceInfo) (string, *domain.Session, error) {
	args := m.Called(ctx, account, device)
	if s, _ := args.Get(1).(*domain.Session); s != nil {
		return args.String(0), s, args.Error(2)
	}
	return args.String(0), nil, args.Error(2)
}

type mockSigner struct{ mock.Mock }

func (m *mockSigner) Sign(accountID, email, username string) (string, error) {
	args := m.Called(accountID, email, username)
	return args.String(0), args.Error(1)
}
func (m *mockSigner) Expiry() time.Duration { return 15 * time.Minute }

// --- helpers ---

func newSvc(as *mockAccountStore, si *mockSessionIssuer, sig *mockSigner) Service {
	return NewService(ServiceDeps{AccountRepo: as, Sessions: si, Signer: sig})
}

func verifiedAccount(t *testing.T, password string) *domain.Account {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &domain.Account{
		AccountID:    "acc-1",
		Email:        "alice@example.com",
		Username:     "alice",
		PasswordHash: string(hash),
		Verified:     true,
	}
}

// --- tests ---

func TestLogin_Success(t *testing.T) {
	as, si, sig := &mockAccountStore{}, &mockSessionIssuer{}, &mockSigner{}

	account := verifiedAccount(t, "correct horse battery")
	as.On("GetByIdentifier", mock.Anything, "alice").Return(account, nil)
	si.On("Issue", mock.Anything, account, mock.Anything).Return("raw-refresh", &domain.Session{TokenHash: "h"}, nil)
	sig.On("Sign", "acc-1", "alice@example.com", "alice").Return("signed.jwt", nil)

	result, err := newSvc(as, si, sig).Login(context.Background(), LoginRequest{
		Identifier: "alice",
		Password:   "correct horse battery",
	})

	require.NoError(t, err)
	assert.Equal(t, "signed.jwt", result.AccessToken)
	assert.Equal(t, "raw-refresh", result.RefreshToken)
	assert.Equal(t, 900, result.ExpiresIn)
	assert.Equal(t, "acc-1", result.Account.AccountID)
}

func TestLogin_WrongPassword(t *testing.T) {
	as, si, sig := &mockAccountStore{}, &mockSessionIssuer{}, &mockSigner{}

	as.On("GetByIdentifier", mock.Anything, "alice").Return(verifiedAccount(t, "correct horse battery"), nil)

	_, err := newSvc(as, si, sig).Login(context.Background(), LoginRequest{
		Identifier: "alice",
		Password:   "wrong",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidCredentials))
	si.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_UnknownIdentifier_SameErrorAsWrongPassword(t *testing.T) {
	as, si, sig := &mockAccountStore{}, &mockSessionIssuer{}, &mockSigner{}

	as.On("GetByIdentifier", mock.Anything, "nobody").Return(nil, domain.ErrNotFound)

	_, err := newSvc(as, si, sig).Login(context.Background(), LoginRequest{
		Identifier: "nobody",
		Password:   "whatever",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidCredentials))
	si.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_UnverifiedAccount(t *testing.T) {
	as, si, sig := &mockAccountStore{}, &mockSessionIssuer{}, &mockSigner{}

	account := verifiedAccount(t, "correct horse battery")
	account.Verified = false
	as.On("GetByIdentifier", mock.Anything, "alice").Return(account, nil)

	_, err := newSvc(as, si, sig).Login(context.Background(), LoginRequest{
		Identifier: "alice",
		Password:   "correct horse battery",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEmailNotVerified))
	si.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything)
}

// Wrong password on an unverified account must report invalid credentials,
// not the verification state: the password check decides first.
func TestLogin_UnverifiedAndWrongPassword_ReportsInvalidCredentials(t *testing.T) {
	as, si, sig := &mockAccountStore{}, &mockSessionIssuer{}, &mockSigner{}

	account := verifiedAccount(t, "correct horse battery")
	account.Verified = false
	as.On("GetByIdentifier", mock.Anything, "alice").Return(account, nil)

	_, err := newSvc(as, si, sig).Login(context.Background(), LoginRequest{
		Identifier: "alice",
		Password:   "wrong",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidCredentials))
	assert.False(t, errors.Is(err, domain.ErrEmailNotVerified))
}

// A storage outage during lookup must propagate, never masquerade as a wrong
// password.
func TestLogin_LookupStorageFailure_Propagates(t *testing.T) {
	as, si, sig := &mockAccountStore{}, &mockSessionIssuer{}, &mockSigner{}

	as.On("GetByIdentifier", mock.Anything, "alice").Return(nil, errors.New("dynamo unavailable"))

	_, err := newSvc(as, si, sig).Login(context.Background(), LoginRequest{
		Identifier: "alice",
		Password:   "correct horse battery",
	})

	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrInvalidCredentials))
	assert.ErrorContains(t, err, "dynamo unavailable")
	si.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_SessionIssueFailure_Propagates(t *testing.T) {
	as, si, sig := &mockAccountStore{}, &mockSessionIssuer{}, &mockSigner{}

	account := verifiedAccount(t, "correct horse battery")
	as.On("GetByIdentifier", mock.Anything, "alice").Return(account, nil)
	si.On("Issue", mock.Anything, account, mock.Anything).Return("", nil, errors.New("dynamo down"))

	_, err := newSvc(as, si, sig).Login(context.Background(), LoginRequest{
		Identifier: "alice",
		Password:   "correct horse battery",
	})

	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrInvalidCredentials))
}
