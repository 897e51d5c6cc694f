package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ClientConfig bounds each provisioning call.
type ClientConfig struct {
	// Timeout applies to every attempt.
	Timeout         time.Duration
	MaxRetries      uint64
	InitialInterval time.Duration
}

// DefaultClientConfig returns the settings used when none are configured.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:         3 * time.Second,
		MaxRetries:      2,
		InitialInterval: 200 * time.Millisecond,
	}
}

// Client provisions billing accounts over gRPC.
type Client struct {
	conn   grpc.ClientConnInterface
	cfg    ClientConfig
	logger *zap.Logger
}

// Dial opens an insecure connection to the billing service.
func Dial(ctx context.Context, addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.DialContext(ctx, addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial billing service at %s: %w", addr, err)
	}
	return conn, nil
}

func NewClient(conn grpc.ClientConnInterface, cfg ClientConfig, logger *zap.Logger) *Client {
	def := DefaultClientConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = def.InitialInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{conn: conn, cfg: cfg, logger: logger}
}

// CreateBillingAccount provisions the account for a patient. Transient
// failures are retried up to MaxRetries times; a timeout counts as a failure.
func (c *Client) CreateBillingAccount(ctx context.Context, patientID, name, email string) error {
	req, err := AccountRequest{PatientID: patientID, Name: name, Email: email}.toStruct()
	if err != nil {
		return fmt.Errorf("failed to encode billing request: %w", err)
	}

	attempt := 0
	op := func() error {
		attempt++
		actx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		resp := new(structpb.Struct)
		err := c.conn.Invoke(actx, createBillingAccountRoute, req, resp)
		if err == nil {
			account := accountResponseFromStruct(resp)
			c.logger.Info("billing account provisioned",
				zap.String("patient_id", patientID),
				zap.String("account_id", account.AccountID),
				zap.Int("attempt", attempt),
			)
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		c.logger.Warn("billing call failed, retrying",
			zap.String("patient_id", patientID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.InitialInterval
	policy.MaxElapsedTime = 0

	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, c.cfg.MaxRetries), ctx)); err != nil {
		return fmt.Errorf("failed to create billing account for patient %s: %w", patientID, err)
	}
	return nil
}

func retryable(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	}
	return false
}
