//go:build functional

// Package functional runs the gallery server on a real port and drives it
// over HTTP and WebSocket.
package functional

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/catalog-gallery/internal/config"
	"github.com/vyrodovalexey/catalog-gallery/internal/gallery"
	"github.com/vyrodovalexey/catalog-gallery/internal/handler"
	"github.com/vyrodovalexey/catalog-gallery/internal/imaging"
	"github.com/vyrodovalexey/catalog-gallery/internal/model"
	"github.com/vyrodovalexey/catalog-gallery/internal/server"
	"github.com/vyrodovalexey/catalog-gallery/internal/store"
)

// Environment variable names for test configuration.
const (
	EnvTestServerHost    = "TEST_SERVER_HOST"
	EnvTestTimeout       = "TEST_TIMEOUT"
	EnvTestLogLevel      = "TEST_LOG_LEVEL"
	EnvTestMetricsEnable = "TEST_METRICS_ENABLED"
)

// Default test configuration values.
const (
	DefaultTestHost         = "localhost"
	DefaultTestTimeout      = 30 * time.Second
	DefaultRequestTimeout   = 5 * time.Second
	DefaultWebSocketTimeout = 10 * time.Second
	DefaultShutdownTimeout  = 5 * time.Second
	DefaultLogLevel         = "error"
)

// SeedCatalog is the document loaded into servers started with seeding.
const SeedCatalog = `{
  "a1b2c3d4": {
    "name": "Denim Jacket",
    "price": 89.99,
    "image": "https://example.com/jacket.jpg",
    "colors": ["Blue"],
    "sizes": ["M", "L"],
    "tags": ["outerwear"]
  },
  "e5f6a7b8": {
    "name": "Linen Shirt",
    "price": 45,
    "image": "https://example.com/shirt.jpg",
    "colors": ["White"],
    "sizes": ["S"],
    "tags": ["top"]
  },
  "c9d0e1f2": {
    "name": "Wool Coat",
    "price": 240,
    "image": "https://example.com/coat.jpg",
    "colors": ["Black"],
    "sizes": [],
    "tags": ["outerwear"]
  }
}`

// GIFImage is the smallest valid GIF, used for image uploads.
var GIFImage = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00,
	0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00,
	0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02,
	0x44, 0x01, 0x00, 0x3b,
}

// TestConfig holds test configuration loaded from environment.
type TestConfig struct {
	Host           string
	Timeout        time.Duration
	LogLevel       string
	MetricsEnabled bool
}

// LoadTestConfig loads test configuration from environment variables.
func LoadTestConfig() *TestConfig {
	cfg := &TestConfig{
		Host:     DefaultTestHost,
		Timeout:  DefaultTestTimeout,
		LogLevel: DefaultLogLevel,
	}

	if host := os.Getenv(EnvTestServerHost); host != "" {
		cfg.Host = host
	}

	if timeoutStr := os.Getenv(EnvTestTimeout); timeoutStr != "" {
		if timeout, err := time.ParseDuration(timeoutStr); err == nil {
			cfg.Timeout = timeout
		}
	}

	if logLevel := os.Getenv(EnvTestLogLevel); logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if metricsStr := os.Getenv(EnvTestMetricsEnable); metricsStr != "" {
		if enabled, err := strconv.ParseBool(metricsStr); err == nil {
			cfg.MetricsEnabled = enabled
		}
	}

	return cfg
}

// TestServer wraps a fully wired gallery server.
type TestServer struct {
	Server  *server.Server
	Store   *store.MemoryStore
	View    *gallery.View
	Hub     *handler.WebSocketHandler
	BaseURL string
	WSURL   string

	seed    string
	timeout time.Duration
	t       *testing.T
	mu      sync.Mutex
	started bool
}

// NewTestServer creates a server with an empty catalog.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	return newTestServer(t, "")
}

// NewSeededTestServer creates a server that loads SeedCatalog from a file
// before reporting ready.
func NewSeededTestServer(t *testing.T) *TestServer {
	t.Helper()

	path := filepath.Join(t.TempDir(), "items.json")
	if err := os.WriteFile(path, []byte(SeedCatalog), 0o600); err != nil {
		t.Fatalf("Failed to write seed catalog: %v", err)
	}
	return newTestServer(t, path)
}

func newTestServer(t *testing.T, seed string) *TestServer {
	t.Helper()

	testCfg := LoadTestConfig()

	// Find an available port
	listener, err := net.Listen("tcp", net.JoinHostPort(testCfg.Host, "0"))
	if err != nil {
		t.Fatalf("Failed to find available port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	_ = listener.Close()

	cfg := &config.Config{
		ServerPort:      port,
		LogLevel:        testCfg.LogLevel,
		ShutdownTimeout: DefaultShutdownTimeout,
		MetricsEnabled:  testCfg.MetricsEnabled,
		DataSource:      seed,
		DefaultMaxPrice: config.DefaultMaxPrice,
		PriceRangeMax:   config.DefaultPriceRangeMax,
		MaxImageBytes:   config.DefaultMaxImageBytes,
		RenderCacheSize: config.DefaultRenderCacheSize,
		FilterTags:      slices.Clone(config.DefaultFilterTags),
		ColorOptions:    slices.Clone(config.DefaultColorOptions),
		SizeOptions:     slices.Clone(config.DefaultSizeOptions),
	}

	logger := zap.NewNop()
	itemStore := store.NewMemoryStore()
	hub := handler.NewWebSocketHandler(logger)

	view, err := gallery.NewView(itemStore, imaging.NewEncoder(cfg.MaxImageBytes), hub, logger, server.GalleryOptions(cfg))
	if err != nil {
		t.Fatalf("Failed to create view: %v", err)
	}

	return &TestServer{
		Server:  server.New(cfg, logger, itemStore, view, hub),
		Store:   itemStore,
		View:    view,
		Hub:     hub,
		BaseURL: fmt.Sprintf("http://%s", net.JoinHostPort(testCfg.Host, strconv.Itoa(port))),
		WSURL:   fmt.Sprintf("ws://%s/ws", net.JoinHostPort(testCfg.Host, strconv.Itoa(port))),
		seed:    seed,
		timeout: testCfg.Timeout,
		t:       t,
	}
}

// Start runs the server, loads the seed catalog if any and waits until the
// readiness probe passes.
func (ts *TestServer) Start() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.started {
		return
	}

	go func() {
		if err := ts.Server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ts.t.Logf("Server error: %v", err)
		}
	}()

	if ts.seed != "" {
		catalog, err := store.NewLoader(nil).Load(context.Background(), ts.seed)
		if err != nil {
			ts.t.Fatalf("Failed to load seed catalog: %v", err)
		}
		if err := ts.View.Replace(context.Background(), catalog); err != nil {
			ts.t.Fatalf("Failed to install seed catalog: %v", err)
		}
	}
	ts.Server.MarkReady()

	ts.waitForReady()
	ts.started = true
}

// waitForReady polls /ready until it answers 200.
func (ts *TestServer) waitForReady() {
	ctx, cancel := context.WithTimeout(context.Background(), ts.timeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ts.t.Fatalf("Server did not become ready within timeout")
		case <-ticker.C:
			resp, err := http.Get(ts.BaseURL + "/ready")
			if err == nil {
				resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					return
				}
			}
		}
	}
}

// Stop shuts the server down.
func (ts *TestServer) Stop() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if !ts.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	if err := ts.Server.Shutdown(ctx); err != nil {
		ts.t.Logf("Server shutdown error: %v", err)
	}

	ts.started = false
}

// HTTPClient provides a configured HTTP client for tests. Redirects are
// returned to the caller instead of being followed.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// NewHTTPClient creates a new HTTP client for testing.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: DefaultRequestTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		baseURL: baseURL,
	}
}

// Response represents an HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Do executes a request with an optional body. Non-reader bodies are sent
// as JSON.
func (c *HTTPClient) Do(ctx context.Context, method, path string, body any, contentType string) (*Response, error) {
	var bodyReader io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		bodyReader = strings.NewReader(v)
	case io.Reader:
		bodyReader = v
	default:
		jsonBody, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Headers: resp.Header, Body: data}, nil
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil, "")
}

// PostJSON performs a POST request with a JSON body.
func (c *HTTPClient) PostJSON(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body, "")
}

// PutJSON performs a PUT request with a JSON body.
func (c *HTTPClient) PutJSON(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, body, "")
}

// Delete performs a DELETE request.
func (c *HTTPClient) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, "")
}

// PostForm submits the gallery edit form as multipart data. A nil image
// omits the file part.
func (c *HTTPClient) PostForm(ctx context.Context, path string, values url.Values, image []byte) (*Response, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for key, list := range values {
		for _, v := range list {
			if err := mw.WriteField(key, v); err != nil {
				return nil, fmt.Errorf("failed to write field %s: %w", key, err)
			}
		}
	}
	if image != nil {
		part, err := mw.CreateFormFile("image", "item.gif")
		if err != nil {
			return nil, fmt.Errorf("failed to create file part: %w", err)
		}
		if _, err := part.Write(image); err != nil {
			return nil, fmt.Errorf("failed to write file part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	return c.Do(ctx, http.MethodPost, path, &buf, mw.FormDataContentType())
}

// ItemForm returns the form values of a complete item submission.
func ItemForm(name, price string) url.Values {
	return url.Values{
		"name":   {name},
		"price":  {price},
		"colors": {"Red"},
		"sizes":  {"M"},
		"tags":   {"top"},
	}
}

// ParseData decodes a success envelope into T.
func ParseData[T any](t *testing.T, resp *Response) T {
	t.Helper()

	var envelope model.APIResponse[T]
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		t.Fatalf("Failed to parse response: %v. Body: %s", err, resp.Body)
	}
	if !envelope.Success {
		t.Fatalf("Expected success=true. Error: %s", envelope.Error)
	}
	return envelope.Data
}

// ParseError decodes an error body.
func ParseError(t *testing.T, resp *Response) model.ErrorResponse {
	t.Helper()

	var errResp model.ErrorResponse
	if err := json.Unmarshal(resp.Body, &errResp); err != nil {
		t.Fatalf("Failed to parse error response: %v. Body: %s", err, resp.Body)
	}
	return errResp
}

// AssertStatusCode asserts that the response has the expected status code.
func AssertStatusCode(t *testing.T, resp *Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d. Body: %s", expected, resp.StatusCode, string(resp.Body))
	}
}

// AssertHeader asserts that the response has the expected header value.
func AssertHeader(t *testing.T, resp *Response, key, expected string) {
	t.Helper()
	if actual := resp.Headers.Get(key); actual != expected {
		t.Errorf("Expected header %s to be %q, got %q", key, expected, actual)
	}
}

// AssertContains asserts that the response body contains substr.
func AssertContains(t *testing.T, resp *Response, substr string) {
	t.Helper()
	if !bytes.Contains(resp.Body, []byte(substr)) {
		t.Errorf("Expected body to contain %q", substr)
	}
}

// AssertNotContains asserts that the response body does not contain substr.
func AssertNotContains(t *testing.T, resp *Response, substr string) {
	t.Helper()
	if bytes.Contains(resp.Body, []byte(substr)) {
		t.Errorf("Expected body not to contain %q", substr)
	}
}

// LogTestStart logs the start of a test.
func LogTestStart(t *testing.T, testID, testName string) {
	t.Helper()
	t.Logf("Starting test %s: %s", testID, testName)
}

// LogTestEnd logs the end of a test.
func LogTestEnd(t *testing.T, testID string) {
	t.Helper()
	t.Logf("Completed test %s", testID)
}
