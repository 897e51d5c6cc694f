package testutil

import (
	"context"
	"net"
	"testing"

	"github.com/WailSalutem-Health-Care/patient-service/internal/billing"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

// StartBillingServer serves srv over an in-memory listener and returns a
// client connection to it. Both are stopped when the test ends.
func StartBillingServer(t *testing.T, srv billing.BillingServiceServer) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	gs := grpc.NewServer()
	billing.RegisterBillingServiceServer(gs, srv)
	go gs.Serve(lis)
	t.Cleanup(gs.Stop)

	conn, err := billing.Dial(context.Background(), "bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	if err != nil {
		t.Fatalf("Failed to dial billing server: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}
