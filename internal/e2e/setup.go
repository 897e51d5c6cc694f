package e2e

import (
	"crypto/rsa"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/WailSalutem-Health-Care/patient-service/internal/auth"
	"github.com/WailSalutem-Health-Care/patient-service/internal/billing"
	httpserver "github.com/WailSalutem-Health-Care/patient-service/internal/http"
	"github.com/WailSalutem-Health-Care/patient-service/internal/patient"
	"github.com/WailSalutem-Health-Care/patient-service/internal/testutil"
	"github.com/WailSalutem-Health-Care/patient-service/internal/users"
	"go.uber.org/zap/zaptest"
)

// TestServer represents a complete E2E test environment
type TestServer struct {
	Server        *httptest.Server
	Patients      *patient.Service
	Billing       *billing.Server
	MockPublisher *testutil.MockPublisher
	Verifier      *auth.Verifier
	PrivateKey    *rsa.PrivateKey
}

// Options selects the backing stores of a test server.
type Options struct {
	// Billing replaces the in-memory billing server, e.g. to inject failures.
	Billing billing.BillingServiceServer
	// PatientStore defaults to a MemoryStore.
	PatientStore patient.Store
	// UserRepo defaults to an empty MemoryRepository.
	UserRepo users.RepositoryInterface
}

// SetupE2ETest wires the full service: HTTP router with JWT auth, patient
// orchestrator, billing over an in-memory gRPC connection and a mock
// event publisher.
func SetupE2ETest(t *testing.T, opts Options) *TestServer {
	t.Helper()

	logger := zaptest.NewLogger(t)

	if opts.PatientStore == nil {
		opts.PatientStore = patient.NewMemoryStore()
	}
	if opts.UserRepo == nil {
		opts.UserRepo = users.NewMemoryRepository()
	}

	billingServer := billing.NewServer(logger)
	var billingImpl billing.BillingServiceServer = billingServer
	if opts.Billing != nil {
		billingImpl = opts.Billing
	}
	billingClient := billing.NewClient(
		testutil.StartBillingServer(t, billingImpl),
		billing.ClientConfig{Timeout: time.Second, MaxRetries: 1, InitialInterval: time.Millisecond},
		logger,
	)

	mockPublisher := testutil.NewMockPublisher()

	patientService := patient.NewService(
		opts.PatientStore,
		billingClient,
		patient.NewRabbitEventSender(mockPublisher),
		logger,
		nil,
		patient.ServiceConfig{CompensateBillingFailure: true},
	)

	perms, err := auth.LoadPermissions("../../permissions.yml")
	if err != nil {
		t.Fatalf("Failed to load permissions: %v", err)
	}

	verifier, privateKey := testutil.CreateTestVerifier(t)

	router := httpserver.SetupRouter(httpserver.Deps{
		Patients:    patientService,
		Users:       users.NewService(opts.UserRepo),
		Verifier:    verifier,
		Permissions: perms,
		Logger:      logger,
	})

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		patientService.Wait()
	})

	return &TestServer{
		Server:        server,
		Patients:      patientService,
		Billing:       billingServer,
		MockPublisher: mockPublisher,
		Verifier:      verifier,
		PrivateKey:    privateKey,
	}
}

// AdminClient returns a client authenticated as ADMIN
func (ts *TestServer) AdminClient(t *testing.T) *testutil.HTTPTestClient {
	t.Helper()
	return ts.NewClient(testutil.GenerateAdminToken(t, ts.PrivateKey))
}

// ReceptionistClient returns a client authenticated as RECEPTIONIST
func (ts *TestServer) ReceptionistClient(t *testing.T) *testutil.HTTPTestClient {
	t.Helper()
	return ts.NewClient(testutil.GenerateReceptionistToken(t, ts.PrivateKey))
}

// NewClient creates a new HTTP test client for this server with the given token
func (ts *TestServer) NewClient(token string) *testutil.HTTPTestClient {
	return testutil.NewHTTPTestClient(ts.Server.URL, token)
}
