package cli

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mlateration/pkg/buildinfo"
	"github.com/matzehuels/mlateration/pkg/cache"
	"github.com/matzehuels/mlateration/pkg/errors"
	"github.com/matzehuels/mlateration/pkg/observability"
	"github.com/matzehuels/mlateration/pkg/pipeline"
)

func newTestServer(t *testing.T, c cache.Cache) *httptest.Server {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{})
	runner := pipeline.NewRunner(c, cache.NewScopedKeyer(nil, apiKeyPrefix), logger)
	server := httptest.NewServer(newRouter(newAPI(runner, pipeline.Options{}, logger)))
	t.Cleanup(server.Close)
	return server
}

func postSolve(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/v1/solve", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServeSolve(t *testing.T) {
	server := newTestServer(t, nil)

	resp := postSolve(t, server.URL, `{"graph": `+testGraphJSON+`, "options": {"workers": 2}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body solveResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.RunID == "" || resp.Header.Get(headerRunID) != body.RunID {
		t.Errorf("run id: body %q, header %q", body.RunID, resp.Header.Get(headerRunID))
	}
	if len(body.GraphHash) != 64 {
		t.Errorf("GraphHash = %q", body.GraphHash)
	}
	d, ok := body.Solution.Lookup("D")
	if !ok || d.Anchor {
		t.Errorf("D = %+v, %v", d, ok)
	}
	if len(body.Solution.Unsolved) != 1 {
		t.Errorf("Unsolved = %v", body.Solution.Unsolved)
	}
}

func TestServeSolveErrors(t *testing.T) {
	server := newTestServer(t, nil)

	tests := []struct {
		name   string
		body   string
		status int
		code   errors.Code
	}{
		{"malformed", `{"graph":`, http.StatusBadRequest, errors.ErrCodeInvalidFormat},
		{"unknown field", `{"grpah": {}}`, http.StatusBadRequest, errors.ErrCodeInvalidFormat},
		{"self-loop", `{"graph": {"edges": [{"from": "A", "to": "A", "distance": 1}]}}`, http.StatusBadRequest, errors.ErrCodeSelfLoop},
		{"negative distance", `{"graph": {"edges": [{"from": "A", "to": "B", "distance": -1}]}}`, http.StatusBadRequest, errors.ErrCodeInvalidDistance},
		{"too many workers", `{"graph": {}, "options": {"workers": 1000}}`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"too many iterations", `{"graph": {}, "options": {"iterations": 1099511627776}}`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"too many rounds", `{"graph": {}, "options": {"max_rounds": 100000000}}`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"overflowing anchors", `{"graph": {"anchors": [{"id": "A", "x": 1e160, "y": 0}, {"id": "B", "x": 0, "y": 1e160}, {"id": "C", "x": -1e160, "y": 0}], "edges": [{"from": "D", "to": "A", "distance": 1e160}]}}`, http.StatusBadRequest, errors.ErrCodeInvalidPoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postSolve(t, server.URL, tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var body errorBody
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Error.Code != tt.code || body.Error.Message == "" {
				t.Errorf("error = %+v, want code %s", body.Error, tt.code)
			}
		})
	}
}

func TestServeGraph(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	server := newTestServer(t, c)

	resp, err := http.Get(server.URL + "/v1/graphs/deadbeef")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown graph: status %d, want 404", resp.StatusCode)
	}

	var solved solveResponse
	if err := json.NewDecoder(postSolve(t, server.URL, `{"graph": `+testGraphJSON+`}`).Body).Decode(&solved); err != nil {
		t.Fatal(err)
	}

	resp, err = http.Get(server.URL + "/v1/graphs/" + solved.GraphHash)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var doc struct {
		Anchors []json.RawMessage `json:"anchors"`
		Edges   []json.RawMessage `json:"edges"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Anchors) != 3 || len(doc.Edges) != 4 {
		t.Errorf("graph has %d anchors, %d edges", len(doc.Anchors), len(doc.Edges))
	}
}

func TestServeHealthAndVersion(t *testing.T) {
	server := newTestServer(t, nil)

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/version")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var info buildinfo.Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info != buildinfo.Get() {
		t.Errorf("version = %+v, want %+v", info, buildinfo.Get())
	}
}

func TestServeHooks(t *testing.T) {
	observability.Reset()
	defer observability.Reset()
	hooks := &recordingHTTPHooks{}
	observability.SetHTTPHooks(hooks)

	server := newTestServer(t, nil)
	postSolve(t, server.URL, `{"graph": `+testGraphJSON+`}`)
	postSolve(t, server.URL, `not json`)

	// OnResponse runs after the body is flushed to the client.
	deadline := time.Now().Add(2 * time.Second)
	for hooks.responses() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	if hooks.requests != 2 {
		t.Errorf("requests = %d, want 2", hooks.requests)
	}
	if len(hooks.statuses) != 2 || hooks.statuses[0] != http.StatusOK || hooks.statuses[1] != http.StatusBadRequest {
		t.Errorf("statuses = %v", hooks.statuses)
	}
	if hooks.errors != 1 {
		t.Errorf("errors = %d, want 1", hooks.errors)
	}
}

func TestWriteJSONEncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"x": math.NaN()})

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("body is not an error document: %v", err)
	}
	if body.Error.Code != errors.ErrCodeInternal {
		t.Errorf("code = %s, want %s", body.Error.Code, errors.ErrCodeInternal)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.New(errors.ErrCodeTooFewAnchors, "x"), http.StatusBadRequest},
		{errors.New(errors.ErrCodeNotFound, "x"), http.StatusNotFound},
		{errors.New(errors.ErrCodeNetwork, "x"), http.StatusInternalServerError},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestMergeOptions(t *testing.T) {
	base := pipeline.Options{LearningRate: 0.02, Iterations: 100, Refresh: true}
	got := mergeOptions(base, pipeline.Options{Iterations: 50, Workers: 4})

	if got.LearningRate != 0.02 || got.Iterations != 50 || got.Workers != 4 || got.Refresh {
		t.Errorf("mergeOptions() = %+v", got)
	}
}

type recordingHTTPHooks struct {
	mu       sync.Mutex
	requests int
	errors   int
	statuses []int
}

func (h *recordingHTTPHooks) OnRequest(context.Context, string, string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requests++
}

func (h *recordingHTTPHooks) OnResponse(_ context.Context, _, _ string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses = append(h.statuses, status)
}

func (h *recordingHTTPHooks) OnError(context.Context, string, string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors++
}

func (h *recordingHTTPHooks) responses() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.statuses)
}
