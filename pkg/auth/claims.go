package auth

import (
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID  uuid.UUID
	Role    enums.MemberRole
	AgentID *uuid.UUID
	JTI     string
}

// AccessTokenClaims represents the typed JWT issued to back-office clients.
type AccessTokenClaims struct {
	UserID  uuid.UUID        `json:"user_id"`
	Role    enums.MemberRole `json:"role"`
	AgentID *uuid.UUID       `json:"agent_id,omitempty"`
	jwt.RegisteredClaims
}
