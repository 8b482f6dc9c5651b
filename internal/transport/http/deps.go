package http

import (
	"github.com/credential-api/internal/application/registration"
	"github.com/credential-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/credential-api/internal/infrastructure/jwt"
	"github.com/credential-api/internal/infrastructure/keys"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	AccountRepo *dynamo.AccountRepo
	SessionRepo *dynamo.SessionRepo
	TicketRepo  *dynamo.TicketRepo
	Notifier    registration.Notifier
	JWTProvider *jwtinfra.Provider
	KeyMaterial *keys.Material
}
