package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims are the access token claims issued by the CRM identity service.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Actor is the acting user of a tracker mutation.
type Actor struct {
	ID    string
	Name  string
	Email string
	Role  UserRole
}

// ActorFromClaims maps token claims onto an actor.
func ActorFromClaims(c *JWTClaims) Actor {
	if c == nil {
		return Actor{}
	}
	return Actor{ID: c.UserID, Name: c.FullName, Email: c.Email, Role: c.Role}
}
