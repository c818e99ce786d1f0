package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcelens/audit-cli/internal/catalog"
	"github.com/sourcelens/audit-cli/internal/config"
	"github.com/sourcelens/audit-cli/internal/jobs"
	"github.com/sourcelens/audit-cli/internal/pipeline"
)

const testToken = "secret"

func newTestRoutes(t *testing.T) http.Handler {
	t.Helper()
	cfg = &config.Config{}
	cfg.Server.AuthToken = testToken
	cfg.Catalog.MaxQuestions = 5
	cfg.Catalog.MinKeywordFrequency = 3

	queue := jobs.NewMemoryQueue(1)
	t.Cleanup(queue.Close)

	audits := jobs.NewAuditService(queue, pipeline.New(cfg, nil, nil))
	return newServer(catalog.Default(), audits).routes()
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestServe_Health(t *testing.T) {
	h := newTestRoutes(t)

	w := doRequest(t, h, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, catalog.Version, body["catalog_version"])
}

func TestServe_BearerAuth(t *testing.T) {
	h := newTestRoutes(t)

	w := doRequest(t, h, http.MethodGet, "/questions/universal", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(t, h, http.MethodGet, "/questions/universal", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(t, h, http.MethodGet, "/questions/universal", testToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServe_ListQuestions(t *testing.T) {
	h := newTestRoutes(t)

	w := doRequest(t, h, http.MethodGet, "/questions/universal?category=identity", testToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	questions := body["questions"].([]any)
	assert.NotEmpty(t, questions)
	assert.EqualValues(t, len(questions), body["count"])
	for _, raw := range questions {
		q := raw.(map[string]any)
		assert.Equal(t, "identity", q["category"])
	}

	w = doRequest(t, h, http.MethodGet, "/questions/universal?category=bogus", testToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServe_GetQuestion(t *testing.T) {
	h := newTestRoutes(t)

	w := doRequest(t, h, http.MethodGet, "/questions/universal/u01", testToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u01", decodeBody(t, w)["id"])

	w = doRequest(t, h, http.MethodGet, "/questions/universal/u99", testToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServe_QuestionStats(t *testing.T) {
	h := newTestRoutes(t)

	w := doRequest(t, h, http.MethodGet, "/questions/stats", testToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, catalog.Version, decodeBody(t, w)["version"])
}

func TestServe_GenerateQuestions(t *testing.T) {
	h := newTestRoutes(t)

	w := doRequest(t, h, http.MethodPost, "/questions/generate", testToken, map[string]any{
		"company_name": "Acme",
		"page_texts":   []string{"Our pricing starts at $49 per month."},
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.NotEmpty(t, body["universal"])

	w = doRequest(t, h, http.MethodPost, "/questions/generate", testToken, map[string]any{
		"page_texts": []string{"no company"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServe_GenerateQuestions_QueryParams(t *testing.T) {
	h := newTestRoutes(t)

	// Query parameters alone form a complete request.
	w := doRequest(t, h, http.MethodPost,
		"/questions/generate?company_name=Acme&domain=acme.com", testToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decodeBody(t, w)["universal"])

	// include_derived=false strips the derived set.
	w = doRequest(t, h, http.MethodPost,
		"/questions/generate?company_name=Acme&include_derived=false", testToken,
		map[string]any{"page_texts": []string{"Our pricing starts at $49 per month."}})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.NotEmpty(t, body["universal"])
	assert.Empty(t, body["derived"])

	// Query values override the body.
	w = doRequest(t, h, http.MethodPost,
		"/questions/generate?company_name=Acme", testToken,
		map[string]any{"company_name": ""})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, h, http.MethodPost,
		"/questions/generate?company_name=Acme&include_derived=maybe", testToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServe_CreateAuditValidation(t *testing.T) {
	h := newTestRoutes(t)

	w := doRequest(t, h, http.MethodPost, "/audits", testToken, map[string]any{
		"domain": "acme.com",
		"pages":  []map[string]any{{"url": "https://acme.com/", "main_content": "Acme"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, h, http.MethodPost, "/audits", testToken, map[string]any{
		"company_name": "Acme",
		"domain":       "acme.com",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServe_AuditLifecycle(t *testing.T) {
	h := newTestRoutes(t)

	w := doRequest(t, h, http.MethodPost, "/audits", testToken, map[string]any{
		"company_name": "Acme",
		"domain":       "acme.com",
		"pages": []map[string]any{{
			"url":          "https://acme.com/",
			"title":        "Acme",
			"main_content": "Acme is a logistics platform for retailers. Pricing starts at $49 per month. Contact us at hello@acme.com.",
		}},
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	jobID := decodeBody(t, w)["job_id"].(string)
	require.NotEmpty(t, jobID)

	require.Eventually(t, func() bool {
		sw := doRequest(t, h, http.MethodGet, "/audits/"+jobID, testToken, nil)
		if sw.Code != http.StatusOK {
			return false
		}
		return decodeBody(t, sw)["status"] == string(jobs.StatusFinished)
	}, 15*time.Second, 50*time.Millisecond)

	// Finished jobs cannot be cancelled.
	w = doRequest(t, h, http.MethodDelete, "/audits/"+jobID, testToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(t, h, http.MethodGet, "/audits/no-such-job", testToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
