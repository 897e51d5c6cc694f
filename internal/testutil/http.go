package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
)

// HTTPTestClient sends requests to a test server, bearing Token when set.
type HTTPTestClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewHTTPTestClient(baseURL, token string) *HTTPTestClient {
	return &HTTPTestClient{BaseURL: baseURL, Token: token, Client: &http.Client{}}
}

// WithToken returns a copy of the client that sends token instead.
func (c *HTTPTestClient) WithToken(token string) *HTTPTestClient {
	return &HTTPTestClient{BaseURL: c.BaseURL, Token: token, Client: c.Client}
}

func (c *HTTPTestClient) GET(t *testing.T, path string) *http.Response {
	t.Helper()
	return c.Do(t, http.MethodGet, path, nil, nil)
}

func (c *HTTPTestClient) POST(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	return c.Do(t, http.MethodPost, path, mustJSON(t, body), nil)
}

func (c *HTTPTestClient) PUT(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	return c.Do(t, http.MethodPut, path, mustJSON(t, body), nil)
}

func (c *HTTPTestClient) DELETE(t *testing.T, path string) *http.Response {
	t.Helper()
	return c.Do(t, http.MethodDelete, path, nil, nil)
}

// PostRaw sends body verbatim, for malformed payload tests.
func (c *HTTPTestClient) PostRaw(t *testing.T, path, body string) *http.Response {
	t.Helper()
	return c.Do(t, http.MethodPost, path, []byte(body), nil)
}

// Preflight sends an unauthenticated CORS preflight for a POST from origin.
func (c *HTTPTestClient) Preflight(t *testing.T, path, origin string) *http.Response {
	t.Helper()
	return c.WithToken("").Do(t, http.MethodOptions, path, nil, http.Header{
		"Origin":                        {origin},
		"Access-Control-Request-Method": {http.MethodPost},
	})
}

// Do sends a request with an optional JSON body and extra headers, failing t on transport errors.
func (c *HTTPTestClient) Do(t *testing.T, method, path string, body []byte, header http.Header) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}
	return b
}

// DecodeJSON reads and closes the response body, decoding it into target.
func DecodeJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()

	body := readBody(t, resp)
	if err := json.Unmarshal([]byte(body), target); err != nil {
		t.Fatalf("Failed to decode response (body: %s): %v", body, err)
	}
}

// AssertStatusCode reports a mismatched status along with the response body.
// The body is only consumed on mismatch.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()

	if resp.StatusCode != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, resp.StatusCode, readBody(t, resp))
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	return string(b)
}
