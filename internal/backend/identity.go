package backend

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is what the console learns about the signed-in user from the
// access token. The token is not verified here; the backend does that.
type Identity struct {
	UserID      int64
	Name        string
	Permissions map[string]bool
	ExpiresAt   int64
}

// ParseIdentity reads the user id, display name and permission map from an
// access token. The user id comes from "userId" when present, else "sub".
func ParseIdentity(token string) (*Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	id := &Identity{Permissions: map[string]bool{}}
	switch v := claims["userId"].(type) {
	case float64:
		id.UserID = int64(v)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse userId claim: %w", err)
		}
		id.UserID = n
	default:
		sub, _ := claims.GetSubject()
		if sub == "" {
			return nil, errors.New("token has neither userId nor sub")
		}
		n, err := strconv.ParseInt(sub, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse sub claim: %w", err)
		}
		id.UserID = n
	}

	if name, ok := claims["name"].(string); ok {
		id.Name = name
	}
	if perms, ok := claims["permissions"].(map[string]any); ok {
		for k, v := range perms {
			if b, ok := v.(bool); ok {
				id.Permissions[k] = b
			}
		}
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Unix()
	}
	return id, nil
}
