package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role scopes what an authenticated actor may do with allotment configs.
type Role string

const (
	// RoleAdmin may operate on any hotel.
	RoleAdmin Role = "admin"
	// RoleManager is bound to the hotel in its claims.
	RoleManager Role = "manager"
	// RoleService identifies machine actors such as channel managers.
	RoleService Role = "service"
)

var validRoles = []Role{RoleAdmin, RoleManager, RoleService}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	ActorID uuid.UUID
	HotelID *uuid.UUID
	Role    Role
	JTI     string
}

// AccessTokenClaims represents the typed JWT issued to clients. HotelID is
// absent for admin and service tokens.
type AccessTokenClaims struct {
	ActorID uuid.UUID  `json:"actor_id"`
	HotelID *uuid.UUID `json:"hotel_id,omitempty"`
	Role    Role       `json:"role"`
	jwt.RegisteredClaims
}
