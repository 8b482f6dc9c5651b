package domain

import "time"

// Session is the server-side record backing one outstanding refresh token.
// Only the SHA-256 hash of the token is ever stored; the raw value exists
// solely in the response that minted it.
type Session struct {
	TokenHash  string `json:"-" dynamodbav:"token_hash"`
	AccountID  string `json:"account_id" dynamodbav:"account_id"`
	Device     string `json:"device,omitempty" dynamodbav:"device"`
	IP         string `json:"ip,omitempty" dynamodbav:"ip"`
	Revoked    bool   `json:"revoked" dynamodbav:"revoked"`
	CreatedAt  int64  `json:"created" dynamodbav:"created_at"`     // Unix nanoseconds; GSI range key, must sort chronologically even for same-second sessions
	LastUsedAt int64  `json:"last_used" dynamodbav:"last_used_at"` // Unix seconds
	ExpiresAt  int64  `json:"expires_at" dynamodbav:"expires_at"`  // Unix seconds, doubles as DynamoDB TTL
}

// Live reports whether the session is still usable at the given instant.
func (s *Session) Live(now time.Time) bool {
	return !s.Revoked && s.ExpiresAt >= now.Unix()
}

// DeviceInfo carries the client metadata recorded on each session.
type DeviceInfo struct {
	Fingerprint string `json:"fingerprint,omitempty"`
	IP          string `json:"-"`
}
