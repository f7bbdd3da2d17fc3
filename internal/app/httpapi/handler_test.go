package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	app "github.com/R3E-Network/offline_gateway/internal/app"
	"github.com/R3E-Network/offline_gateway/internal/config"
	"github.com/R3E-Network/offline_gateway/internal/httputil"
)

type fakeUpstream struct {
	mu      sync.Mutex
	offline bool
	body    []byte
}

func (f *fakeUpstream) Do(ctx context.Context, method, path string, header http.Header, body []byte) (*httputil.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.offline {
		return nil, errors.New("connection refused")
	}
	respBody := f.body
	if respBody == nil {
		respBody = []byte(`{"ok":true}`)
	}
	return &httputil.Response{Status: http.StatusOK, Header: http.Header{}, Body: respBody}, nil
}

func newTestServer(t *testing.T, up *fakeUpstream) *httptest.Server {
	t.Helper()

	cfg := config.Default()
	application, err := app.New(cfg, app.Stores{}, up, nil)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	if err := application.Start(context.Background()); err != nil {
		t.Fatalf("start application: %v", err)
	}
	t.Cleanup(func() { _ = application.Stop(context.Background()) })

	srv := httptest.NewServer(NewHandler(application, nil))
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthReportsLifecycleState(t *testing.T) {
	srv := newTestServer(t, &fakeUpstream{})

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Status string `json:"status"`
		State  string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Status != "ok" || payload.State != "ACTIVE" {
		t.Fatalf("payload = %+v, want ok/ACTIVE", payload)
	}
}

func TestProxyForwardsToUpstream(t *testing.T) {
	srv := newTestServer(t, &fakeUpstream{body: []byte("origin data")})

	resp, err := http.Get(srv.URL + "/proxy/assets/app.js")
	if err != nil {
		t.Fatalf("GET proxy: %v", err)
	}
	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)
	if buf.String() != "origin data" {
		t.Fatalf("body = %q, want origin data", buf.String())
	}
}

func TestProxyOfflineMutationQueues(t *testing.T) {
	up := &fakeUpstream{offline: true}
	srv := newTestServer(t, up)

	resp, err := http.Post(srv.URL+"/proxy/api/orders", "application/json", strings.NewReader(`{"item":"x"}`))
	if err != nil {
		t.Fatalf("POST proxy: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	if resp.Header.Get("X-Gateway-Queued") != "true" {
		t.Fatal("missing X-Gateway-Queued header")
	}
}

func TestSkipWaitingEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeUpstream{})

	resp, err := http.Post(srv.URL+"/control/skip-waiting", "application/json", nil)
	if err != nil {
		t.Fatalf("POST skip-waiting: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestCacheRefreshEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeUpstream{})

	resp, err := http.Post(srv.URL+"/control/cache-refresh", "application/json", nil)
	if err != nil {
		t.Fatalf("POST cache-refresh: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
}

func TestPushEndpointBroadcasts(t *testing.T) {
	srv := newTestServer(t, &fakeUpstream{})

	resp, err := http.Post(srv.URL+"/push", "text/plain", strings.NewReader("new release available"))
	if err != nil {
		t.Fatalf("POST push: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
}

func TestProfileObserveAndPolicy(t *testing.T) {
	srv := newTestServer(t, &fakeUpstream{})

	signals := `{"width":390,"height":844,"effective_type":"2g","downlink":0.8}`
	resp, err := http.Post(srv.URL+"/profile/observe", "application/json", strings.NewReader(signals))
	if err != nil {
		t.Fatalf("POST observe: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("observe status = %d, want 200", resp.StatusCode)
	}

	var prof struct {
		DeviceClass string `json:"device_class"`
		NetworkTier string `json:"network_tier"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&prof); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if prof.DeviceClass != "mobile" || prof.NetworkTier != "2g" {
		t.Fatalf("profile = %+v, want mobile/2g", prof)
	}

	polResp, err := http.Get(srv.URL + "/policy")
	if err != nil {
		t.Fatalf("GET policy: %v", err)
	}
	defer polResp.Body.Close()

	var pol struct {
		Level string `json:"level"`
	}
	if err := json.NewDecoder(polResp.Body).Decode(&pol); err != nil {
		t.Fatalf("decode policy: %v", err)
	}
	if pol.Level != "aggressive" {
		t.Fatalf("level = %q, want aggressive", pol.Level)
	}
}

func TestProfileObserveRejectsBadSignals(t *testing.T) {
	srv := newTestServer(t, &fakeUpstream{})

	resp, err := http.Post(srv.URL+"/profile/observe", "application/json", strings.NewReader(`{"width":0,"height":100}`))
	if err != nil {
		t.Fatalf("POST observe: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGestureEventsEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeUpstream{})

	payload := `{"events":[
		{"type":"start","x":0,"y":0,"time":"2026-01-02T15:04:05Z"},
		{"type":"end","x":80,"y":0,"time":"2026-01-02T15:04:05.2Z"}
	]}`
	resp, err := http.Post(srv.URL+"/gesture/events", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("POST gesture events: %v", err)
	}
	defer resp.Body.Close()

	var out struct {
		Gestures []struct {
			Kind      string `json:"kind"`
			Direction string `json:"direction"`
		} `json:"gestures"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Gestures) != 1 || out.Gestures[0].Kind != "swipe" || out.Gestures[0].Direction != "right" {
		t.Fatalf("gestures = %+v, want single right swipe", out.Gestures)
	}
}

func TestGestureEventsRejectsEmpty(t *testing.T) {
	srv := newTestServer(t, &fakeUpstream{})

	resp, err := http.Post(srv.URL+"/gesture/events", "application/json", strings.NewReader(`{"events":[]}`))
	if err != nil {
		t.Fatalf("POST gesture events: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &fakeUpstream{})

	resp, err := http.Get(srv.URL + "/push")
	if err != nil {
		t.Fatalf("GET /push: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}
