package auth

import "time"

type Authenticator interface {
	GenerateToken(s Session) (string, time.Time, error)
	ValidateToken(token string) (*Claims, error)
}

// Session is the identity embedded in a token.
type Session struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
