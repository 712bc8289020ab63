package presence

import (
	"outdoortracker/internal/utils"

	"github.com/google/uuid"
)

// JWTVerifier adapts the shared JWT manager to the hub's TokenVerifier.
// The same verifier backs the REST middleware, so a token accepted on one
// surface is accepted on the other.
type JWTVerifier struct {
	Manager *utils.JWTManager
}

func (v JWTVerifier) Verify(token string) (Identity, error) {
	claims, err := v.Manager.ParseAccessToken(token)
	if err != nil {
		return Identity{}, err
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return Identity{}, utils.ErrInvalidToken
	}
	return Identity{UserID: userID, Role: claims.Role}, nil
}
