package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrKeyNotFound = errors.New("jwks: key not found")

// KeySource resolves a token's kid to the RSA key that signed it.
type KeySource interface {
	Get(kid string) (*rsa.PublicKey, error)
}

var _ KeySource = (*JWKS)(nil)

type jwkKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwksJSON struct {
	Keys []jwkKey `json:"keys"`
}

// JWKS caches RSA public keys by kid. A JWKS without a url only serves the
// keys it was built with.
type JWKS struct {
	url    string
	client *http.Client
	logger *zap.Logger

	mu   sync.RWMutex
	keys map[string]*rsa.PublicKey

	ticker *time.Ticker
	quit   chan struct{}
}

// NewJWKS loads the key set at url and refreshes it every refreshInterval
// (default 15m) until Close is called.
func NewJWKS(ctx context.Context, url string, refreshInterval time.Duration, logger *zap.Logger) (*JWKS, error) {
	if refreshInterval <= 0 {
		refreshInterval = 15 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	j := &JWKS{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
		keys:   map[string]*rsa.PublicKey{},
		ticker: time.NewTicker(refreshInterval),
		quit:   make(chan struct{}),
	}
	if err := j.refresh(ctx); err != nil {
		j.ticker.Stop()
		return nil, err
	}
	go j.loop()
	return j, nil
}

// NewStaticJWKS serves a fixed key set and never refreshes.
func NewStaticJWKS(keys map[string]*rsa.PublicKey) *JWKS {
	return &JWKS{keys: keys, logger: zap.NewNop()}
}

func (j *JWKS) loop() {
	for {
		select {
		case <-j.ticker.C:
			if err := j.refresh(context.Background()); err != nil {
				j.logger.Warn("jwks refresh failed", zap.Error(err))
			}
		case <-j.quit:
			return
		}
	}
}

// Close stops background refresh.
func (j *JWKS) Close() {
	if j.quit == nil {
		return
	}
	close(j.quit)
	j.ticker.Stop()
}

func (j *JWKS) refresh(ctx context.Context) error {
	if j.url == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.url, nil)
	if err != nil {
		return fmt.Errorf("jwks: build request: %w", err)
	}
	resp, err := j.client.Do(req)
	if err != nil {
		return fmt.Errorf("jwks: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks: unexpected status %d", resp.StatusCode)
	}

	var raw jwksJSON
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return fmt.Errorf("jwks: decode: %w", err)
	}

	newKeys := make(map[string]*rsa.PublicKey)
	for _, k := range raw.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := parseRSAKey(k)
		if err != nil {
			return err
		}
		newKeys[k.Kid] = pub
	}

	j.mu.Lock()
	j.keys = newKeys
	j.mu.Unlock()

	j.logger.Debug("jwks refreshed", zap.Int("keys", len(newKeys)))
	return nil
}

func parseRSAKey(k jwkKey) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("jwks: decode modulus of %q: %w", k.Kid, err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("jwks: decode exponent of %q: %w", k.Kid, err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: bytesToInt(eBytes),
	}, nil
}

// Get returns the key for kid, refreshing once on a miss.
func (j *JWKS) Get(kid string) (*rsa.PublicKey, error) {
	if p := j.lookup(kid); p != nil {
		return p, nil
	}
	if j.url == "" {
		return nil, ErrKeyNotFound
	}
	if err := j.refresh(context.Background()); err != nil {
		return nil, err
	}
	if p := j.lookup(kid); p != nil {
		return p, nil
	}
	return nil, ErrKeyNotFound
}

func (j *JWKS) lookup(kid string) *rsa.PublicKey {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.keys[kid]
}

func bytesToInt(b []byte) int {
	res := 0
	for _, v := range b {
		res = (res << 8) + int(v)
	}
	return res
}
