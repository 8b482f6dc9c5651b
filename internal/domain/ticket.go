package domain

// VerificationTicket is a one-time token proving control of a registered
// email address. PK: ticket (the opaque value itself), so consumption is a
// single conditional delete. ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type VerificationTicket struct {
	Ticket    string `json:"-" dynamodbav:"ticket"`
	AccountID string `json:"account_id" dynamodbav:"account_id"`
	Email     string `json:"email" dynamodbav:"email"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
}
