package auth

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// Principal holds identity extracted from a validated token.
type Principal struct {
	UserID string
	Email  string
	Roles  []string
	Claims jwt.MapClaims
}

var (
	ErrNoToken         = errors.New("no token provided")
	ErrInvalidToken    = errors.New("invalid token")
	ErrInvalidIssuer   = errors.New("invalid issuer")
	ErrInvalidAudience = errors.New("invalid audience")
	ErrMissingSub      = errors.New("missing sub claim")
)

type Verifier struct {
	cfg  Config
	keys KeySource
}

func NewVerifier(cfg Config, keys KeySource) *Verifier {
	return &Verifier{cfg: cfg, keys: keys}
}

// ParseAndVerifyToken verifies an RS256 bearer token, validates issuer,
// audience and expiry and returns the Principal.
func (v *Verifier) ParseAndVerifyToken(tokenString string) (*Principal, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrNoToken
	}
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, ErrInvalidToken
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, ErrInvalidToken
		}
		return v.keys.Get(kid)
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if iss, _ := claims["iss"].(string); iss != v.cfg.Issuer {
		return nil, ErrInvalidIssuer
	}
	if v.cfg.Audience != "" && !claims.VerifyAudience(v.cfg.Audience, true) {
		return nil, ErrInvalidAudience
	}
	if !claims.VerifyExpiresAt(jwt.TimeFunc().Unix(), true) {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrMissingSub
	}
	email, _ := claims["email"].(string)

	return &Principal{
		UserID: sub,
		Email:  email,
		Roles:  realmRoles(claims),
		Claims: claims,
	}, nil
}

// realmRoles reads realm_access.roles, falling back to a flat "role" claim.
func realmRoles(claims jwt.MapClaims) []string {
	var roles []string
	if ra, ok := claims["realm_access"].(map[string]interface{}); ok {
		if rr, ok := ra["roles"].([]interface{}); ok {
			for _, r := range rr {
				if s, ok := r.(string); ok {
					roles = append(roles, s)
				}
			}
		}
	}
	if len(roles) == 0 {
		if role, ok := claims["role"].(string); ok && role != "" {
			roles = append(roles, role)
		}
	}
	return roles
}
