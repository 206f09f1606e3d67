package uploader

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ConnectionStatus is the result of testSupabaseConnection: does the key
// parse as a well-formed, unexpired Supabase JWT, and what role does it
// claim (spec section 4.5's key-introspection addition).
type ConnectionStatus struct {
	Valid     bool      `json:"valid"`
	Role      string    `json:"role,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	Message   string    `json:"message"`
}

// inspectKey parses the endpoint key as a JWT without verifying its
// signature (we do not hold the Supabase project secret) and surfaces the
// role claim and expiry so a caller gets feedback before the first real
// upload attempt.
func inspectKey(key string) (ConnectionStatus, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(key, claims); err != nil {
		return ConnectionStatus{Valid: false, Message: "key does not parse as a JWT"}, nil
	}

	status := ConnectionStatus{Valid: true}
	if role, ok := claims["role"].(string); ok {
		status.Role = role
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		status.ExpiresAt = exp.Time
		if time.Now().After(exp.Time) {
			status.Valid = false
			status.Message = fmt.Sprintf("key expired at %s", exp.Time.Format(time.RFC3339))
			return status, nil
		}
	}
	status.Message = "key looks like a valid unexpired Supabase " + status.Role + " JWT"
	return status, nil
}
