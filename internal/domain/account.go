package domain

import (
	"strings"
	"time"
)

// Account is the identity aggregate. Email and username are globally unique;
// uniqueness is enforced at the storage layer, not here.
type Account struct {
	AccountID     string    `json:"id" dynamodbav:"account_id"`
	Email         string    `json:"email" dynamodbav:"email"`
	Username      string    `json:"username" dynamodbav:"username"`
	PasswordHash  string    `json:"-" dynamodbav:"password_hash"`
	Verified      bool      `json:"verified" dynamodbav:"verified"`
	PendingTicket string    `json:"-" dynamodbav:"pending_ticket"`
	CreatedAt     time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt     time.Time `json:"updated" dynamodbav:"updated_at"`
}

// AccountSummary is the caller-facing projection returned by login.
type AccountSummary struct {
	AccountID string `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Verified  bool   `json:"verified"`
}

func (a *Account) Summary() AccountSummary {
	return AccountSummary{
		AccountID: a.AccountID,
		Email:     a.Email,
		Username:  a.Username,
		Verified:  a.Verified,
	}
}

// CanonicalEmail lowercases an email address. Applied before every storage
// lookup and write so the uniqueness constraint is case-insensitive.
func CanonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,alphanum,min=3,max=32"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}
