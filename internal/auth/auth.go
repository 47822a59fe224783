package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Identity is what a verified connect token asserts.
type Identity struct {
	PlayerID      uuid.UUID
	WalletAddress string
	Username      string
}

// IssueToken signs a connect token for a player. Tokens are normally minted
// by the platform's account service; this is the same shape it produces.
func IssueToken(secret string, ident Identity, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"player_id":      ident.PlayerID.String(),
		"wallet_address": ident.WalletAddress,
		"exp":            time.Now().Add(ttl).Unix(),
	}
	if ident.Username != "" {
		claims["username"] = ident.Username
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// VerifyToken checks an HS256 connect token and extracts the identity.
func VerifyToken(secret, tokenString string) (*Identity, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims")
	}
	idStr, ok := claims["player_id"].(string)
	if !ok {
		return nil, fmt.Errorf("missing player_id claim")
	}
	playerID, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("bad player_id claim: %w", err)
	}
	ident := &Identity{PlayerID: playerID}
	if wallet, ok := claims["wallet_address"].(string); ok {
		ident.WalletAddress = wallet
	}
	if username, ok := claims["username"].(string); ok {
		ident.Username = username
	}
	return ident, nil
}
