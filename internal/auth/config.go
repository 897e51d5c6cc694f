package auth

import "os"

// Config holds auth configuration
type Config struct {
	Issuer   string
	JWKSURL  string
	Audience string
}

var (
	DefaultIssuer  = "http://localhost:8180/realms/patient-management"
	DefaultJWKSURL = "http://localhost:8180/realms/patient-management/protocol/openid-connect/certs"
)

// LoadConfig reads config from env with local realm defaults.
// Override with AUTH_ISSUER, AUTH_JWKS_URL and AUTH_AUD.
func LoadConfig() Config {
	issuer := os.Getenv("AUTH_ISSUER")
	if issuer == "" {
		issuer = DefaultIssuer
	}
	jwks := os.Getenv("AUTH_JWKS_URL")
	if jwks == "" {
		jwks = DefaultJWKSURL
	}
	return Config{
		Issuer:   issuer,
		JWKSURL:  jwks,
		Audience: os.Getenv("AUTH_AUD"),
	}
}
