package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CustomerClaims is the identity provider's access token. The subject is the
// customer id.
type CustomerClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// CustomerID parses the subject claim.
func (c *CustomerClaims) CustomerID() (uuid.UUID, error) {
	if c == nil || c.Subject == "" {
		return uuid.Nil, fmt.Errorf("token has no subject")
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("subject is not a customer id: %w", err)
	}
	return id, nil
}
