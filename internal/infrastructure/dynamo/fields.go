package dynamo

// DynamoDB attribute names used in update expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldVerified      = "verified"
	fieldPendingTicket = "pending_ticket"
	fieldRevoked       = "revoked"
	fieldLastUsedAt    = "last_used_at"
)
