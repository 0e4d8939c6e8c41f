//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stratumhq/stratum/internal/api/handlers"
	"github.com/stratumhq/stratum/internal/repository"
	"github.com/stratumhq/stratum/internal/server"
	"github.com/stratumhq/stratum/internal/service"
	"github.com/stratumhq/stratum/internal/testutil"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	APIKeyToken  string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with a database container
// and a running HTTP server.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser := startServer(t, pool, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// Bootstrap creates an API key directly against the database. The HTTP
// key endpoints themselves require auth, matching production where the
// first key comes from the admin CLI or the bootstrap env vars.
func (e *E2ETestEnv) Bootstrap() {
	authSvc := service.NewAuthService(repository.NewAPIKeyRepository(e.Pool), &service.DefaultUUIDGenerator{})
	token, err := authSvc.CreateAPIKey(e.Ctx, "e2e-test-key")
	if err != nil {
		e.T.Fatalf("failed to create API key: %v", err)
	}
	e.APIKeyToken = token
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	body, status, err := e.doRequest("GET", path, nil, authToken)
	if err != nil {
		return nil, err
	}
	return parseEnvelope(body, status)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	respBody, status, err := e.doRequest("POST", path, body, authToken)
	if err != nil {
		return nil, err
	}
	return parseEnvelope(respBody, status)
}

// Put performs a PUT request
func (e *E2ETestEnv) Put(path string, body interface{}, authToken string) (*APIResponse, error) {
	respBody, status, err := e.doRequest("PUT", path, body, authToken)
	if err != nil {
		return nil, err
	}
	return parseEnvelope(respBody, status)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path, authToken string) (*APIResponse, error) {
	respBody, status, err := e.doRequest("DELETE", path, nil, authToken)
	if err != nil {
		return nil, err
	}
	return parseEnvelope(respBody, status)
}

// Query posts to the query endpoint, which returns its body unwrapped.
func (e *E2ETestEnv) Query(body interface{}, authToken string) (json.RawMessage, error) {
	respBody, status, err := e.doRequest("POST", "/query", body, authToken)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		var envelope APIResponse
		if err := json.Unmarshal(respBody, &envelope); err == nil && envelope.Error != "" {
			return nil, fmt.Errorf("HTTP %d: %s", status, envelope.Error)
		}
		return nil, fmt.Errorf("HTTP %d: %s", status, string(respBody))
	}
	return respBody, nil
}

func parseEnvelope(respBody []byte, status int) (*APIResponse, error) {
	if len(respBody) == 0 {
		if status >= 400 {
			return nil, fmt.Errorf("HTTP %d", status)
		}
		return &APIResponse{}, nil
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if status >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", status, string(respBody))
		}
		return nil, err
	}

	if status >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", status, apiResp.Error)
	}

	return &apiResp, nil
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) ([]byte, int, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, 0, err
	}

	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}

	return respBody, resp.StatusCode, nil
}

// startServer starts the HTTP server with all handlers
func startServer(t *testing.T, pool *pgxpool.Pool, port int) (string, func()) {
	entryRepo := repository.NewEntryRepository(pool)
	scopeRepo := repository.NewScopeRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	embeddingJobRepo := repository.NewEmbeddingJobRepository(pool)
	searchRepo := repository.NewSearchRepository(pool)
	versionRepo := repository.NewVersionRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(apiKeyRepo, uuidGen)
	querySvc := service.NewQueryService(scopeRepo, entryRepo, searchRepo, searchRepo, searchRepo, versionRepo, nil)
	entrySvc := service.NewEntryServiceWithTx(entryRepo, embeddingJobRepo, txRunner)
	scopeSvc := service.NewScopeService(scopeRepo)

	cfg := server.RouterConfig{
		AuthValidator: authSvc,
		QueryHandler:  handlers.NewQueryHandler(querySvc),
		EntryHandler:  handlers.NewEntryHandler(entrySvc, querySvc),
		ScopeHandler:  handlers.NewScopeHandler(scopeSvc),
		AuthHandler:   handlers.NewAuthHandler(authSvc),
	}

	router := server.NewRouter(cfg)
	addr := fmt.Sprintf(":%d", port)

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
