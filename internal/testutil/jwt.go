package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	TestIssuer = "https://auth.test/realms/patient-management"
	TestKeyID  = "test-key-id"
)

// GenerateTestKeyPair generates an RSA key pair for testing JWT tokens
func GenerateTestKeyPair(t *testing.T) (*rsa.PrivateKey, *rsa.PublicKey) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate RSA key: %v", err)
	}
	return privateKey, &privateKey.PublicKey
}

// GenerateTestJWT creates a signed token accepted by CreateTestVerifier
func GenerateTestJWT(t *testing.T, privateKey *rsa.PrivateKey, userID, email string, roles []string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub": userID,
		"iss": TestIssuer,
		"exp": time.Now().Add(1 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
		"realm_access": map[string]interface{}{
			"roles": interfaceSlice(roles),
		},
	}
	if email != "" {
		claims["email"] = email
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = TestKeyID

	tokenString, err := token.SignedString(privateKey)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	return tokenString
}

// GenerateAdminToken creates an ADMIN token for testing
func GenerateAdminToken(t *testing.T, privateKey *rsa.PrivateKey) string {
	t.Helper()
	return GenerateTestJWT(t, privateKey, "admin-123", "admin@clinic.test", []string{"ADMIN"})
}

// GenerateDoctorToken creates a DOCTOR token for testing
func GenerateDoctorToken(t *testing.T, privateKey *rsa.PrivateKey) string {
	t.Helper()
	return GenerateTestJWT(t, privateKey, "doctor-123", "doctor@clinic.test", []string{"DOCTOR"})
}

// GenerateReceptionistToken creates a RECEPTIONIST token for testing
func GenerateReceptionistToken(t *testing.T, privateKey *rsa.PrivateKey) string {
	t.Helper()
	return GenerateTestJWT(t, privateKey, "reception-123", "reception@clinic.test", []string{"RECEPTIONIST"})
}

// interfaceSlice converts []string to []interface{} for JWT claims
func interfaceSlice(strings []string) []interface{} {
	result := make([]interface{}, len(strings))
	for i, s := range strings {
		result[i] = s
	}
	return result
}
