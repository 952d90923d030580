package ui

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linklens/adapters/ledger"
	"linklens/app"
	"linklens/internal/config"
	"linklens/internal/testkit"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		Server: config.Server{Port: "0", GinMode: "test"},
		Stats:  config.Stats{Tolerance: 1e-8, TweediePower: 1.5},
	}
	genCfg := testkit.DefaultClaimsConfig()
	genCfg.PolicyCount = 500
	frame := testkit.NewClaimsDataGenerator(genCfg).GenerateFrequencyFrame()

	store := ledger.NewInMemoryLedger()
	service := app.NewAnalysisService(store, cfg.Stats.Tolerance, 1)
	return NewServer(cfg, store, service, frame)
}

func TestHealthEndpoint(t *testing.T) {
	s := testServer(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestStartRunAndFetchArtifacts(t *testing.T) {
	s := testServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(`{"family":"poisson"}`))
	req.Header.Set("Content-Type", "application/json")
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		RunID string `json:"run_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.RunID)

	// All artifacts
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/runs/"+created.RunID+"/artifacts", nil)
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var listed struct {
		Artifacts []json.RawMessage `json:"artifacts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Len(t, listed.Artifacts, 6)

	// Filtered by reconstruction method
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/runs/"+created.RunID+"/artifacts?method=first_order", nil)
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Len(t, listed.Artifacts, 1)
}

func TestStartRun_UnknownFamily(t *testing.T) {
	s := testServer(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(`{"family":"weibull"}`))
	req.Header.Set("Content-Type", "application/json")
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunArtifacts_NotFound(t *testing.T) {
	s := testServer(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/runs/nonexistent/artifacts", nil)
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
