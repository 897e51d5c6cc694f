package testutil

import (
	"crypto/rsa"
	"testing"

	"github.com/WailSalutem-Health-Care/patient-service/internal/auth"
)

// CreateTestVerifier returns a verifier that accepts tokens signed with the
// returned private key.
func CreateTestVerifier(t *testing.T) (*auth.Verifier, *rsa.PrivateKey) {
	t.Helper()

	privateKey, publicKey := GenerateTestKeyPair(t)
	verifier := auth.NewVerifier(auth.Config{Issuer: TestIssuer}, auth.NewTestJWKS(TestKeyID, publicKey))

	return verifier, privateKey
}

// TestPermissions mirrors the role mapping in permissions.yml.
func TestPermissions() auth.Permissions {
	return auth.Permissions{
		"ADMIN":        {"patient:view", "patient:create", "patient:update", "patient:delete", "user:view"},
		"DOCTOR":       {"patient:view", "patient:create", "patient:update"},
		"RECEPTIONIST": {"patient:view", "patient:create"},
	}
}
