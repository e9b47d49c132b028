package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sociophysics/hk-engine/internal/runner"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return SetupRouter(nil, NewHub(), runner.NewSampleRunner(nil, nil))
}

func postJSON(r *gin.Engine, path, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCompareRejectsNegativeConfidence(t *testing.T) {
	// A posted agent with negative confidence would see no neighbor, not even
	// itself, and the resulting NaN opinion would poison the ordered index.
	// The handler must refuse the population before a simulator is built.
	r := newTestRouter(t)

	w := postJSON(r, "/api/v1/sweep/compare",
		`{"agents":[{"opinion":0.5,"confidence":-1},{"opinion":0.4,"confidence":0.2}],"sweeps":2}`, nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, http.StatusBadRequest, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "confidence") {
		t.Errorf("Error body does not name the offending field: %s", w.Body.String())
	}
}

func TestCompareAcceptsExplicitPopulation(t *testing.T) {
	r := newTestRouter(t)

	w := postJSON(r, "/api/v1/sweep/compare",
		`{"agents":[
			{"opinion":0.0,"confidence":0.6},
			{"opinion":0.5,"confidence":0.6},
			{"opinion":1.0,"confidence":0.6}],
		"sweeps":3}`, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, http.StatusOK, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"diverged":false`) {
		t.Errorf("Expected non-diverged report, got %s", w.Body.String())
	}
}

func TestCompareRejectsMissingPopulation(t *testing.T) {
	r := newTestRouter(t)

	w := postJSON(r, "/api/v1/sweep/compare", `{"sweeps":3}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestAuthMiddlewareEnforcesToken(t *testing.T) {
	t.Setenv("API_AUTH_TOKEN", "test-token")
	r := newTestRouter(t)
	body := `{"numAgents":10,"minConfidence":0.2,"maxConfidence":0.2,"seed":1,"sweeps":1}`

	w := postJSON(r, "/api/v1/sweep/compare", body, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no header: status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	wrong := http.Header{"Authorization": []string{"Bearer nope"}}
	if w := postJSON(r, "/api/v1/sweep/compare", body, wrong); w.Code != http.StatusForbidden {
		t.Errorf("wrong token: status = %d, want %d", w.Code, http.StatusForbidden)
	}

	right := http.Header{"Authorization": []string{"Bearer test-token"}}
	if w := postJSON(r, "/api/v1/sweep/compare", body, right); w.Code != http.StatusOK {
		t.Errorf("valid token: status = %d, want %d (body %s)", w.Code, http.StatusOK, w.Body.String())
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		token, ok := bearerToken(tt.header)
		if token != tt.token || ok != tt.ok {
			t.Errorf("bearerToken(%q) = (%q, %v), want (%q, %v)",
				tt.header, token, ok, tt.token, tt.ok)
		}
	}
}

func TestBroadcastJSON(t *testing.T) {
	h := NewHub()

	if err := h.BroadcastJSON(runner.ProgressFrame{Type: "progress"}); err != nil {
		t.Errorf("BroadcastJSON: %v", err)
	}
	if err := h.BroadcastJSON(func() {}); err == nil {
		t.Error("Expected a marshal error for an unencodable payload")
	}
}
