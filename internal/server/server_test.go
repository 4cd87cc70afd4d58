package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/wnft/pkg/card"
	apperr "github.com/matzehuels/wnft/pkg/errors"
	"github.com/matzehuels/wnft/pkg/observability"
	"github.com/matzehuels/wnft/pkg/pipeline"
	"github.com/matzehuels/wnft/pkg/theme"
)

var fakePNG = []byte("\x89PNG\r\n\x1a\nfake")

type fakeGenerator struct {
	mu   sync.Mutex
	reqs []card.Request
	opts []card.RenderOptions
	err  error
}

func (f *fakeGenerator) Generate(_ context.Context, req card.Request, opts card.RenderOptions) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	return fakePNG, nil
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

func quietLogger() *log.Logger { return log.New(io.Discard) }

func newTestServer(t *testing.T, gen Generator) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(Options{Generator: gen, Logger: quietLogger()}).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func decodeError(t *testing.T, resp *http.Response) errorBody {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("error body is not JSON: %v", err)
	}
	return body
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{})
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("healthz = %d %q", resp.StatusCode, body)
	}
	if _, err := uuid.Parse(resp.Header.Get(HeaderRequestID)); err != nil {
		t.Errorf("request id %q is not a UUID", resp.Header.Get(HeaderRequestID))
	}
}

func TestRequestIDEcho(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{})
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	req.Header.Set(HeaderRequestID, "trace-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(HeaderRequestID); got != "trace-123" {
		t.Errorf("request id = %q, want echo", got)
	}
}

func TestCardFromQuery(t *testing.T) {
	gen := &fakeGenerator{}
	srv := newTestServer(t, gen)

	resp, err := http.Get(srv.URL + "/v1/card.png?title=gm&accent=Blue&theme=dark&address=0xabc&name=alice&avatar=https://x.example/a.png&size=512")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	if !bytes.Equal(body, fakePNG) {
		t.Error("body is not the generated PNG")
	}

	want := card.Request{
		Title: "gm", Accent: theme.AccentBlue, Theme: theme.Dark,
		Address: "0xabc", DisplayName: "alice", AvatarURL: "https://x.example/a.png",
	}
	if gen.reqs[0] != want {
		t.Errorf("request = %+v, want %+v", gen.reqs[0], want)
	}
	if gen.opts[0].Size != 512 {
		t.Errorf("size = %d", gen.opts[0].Size)
	}
}

func TestCardFromJSON(t *testing.T) {
	gen := &fakeGenerator{}
	srv := newTestServer(t, gen)

	payload := `{"title":"ETHDenver","accent":"purple","theme":"light","address":"0x1","display_name":"bob","featured_image_url":"https://x.example/f.png","size":256}`
	resp, err := http.Post(srv.URL+"/v1/cards", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got := gen.reqs[0]
	if got.Accent != theme.AccentPurple || got.Theme != theme.Light || got.FeaturedImageURL != "https://x.example/f.png" || got.DisplayName != "bob" {
		t.Errorf("request = %+v", got)
	}
}

func TestBadRequests(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"unknown accent", http.MethodGet, "/v1/card.png?accent=cyan&theme=dark", ""},
		{"unknown theme", http.MethodGet, "/v1/card.png?accent=blue&theme=sepia", ""},
		{"missing theme", http.MethodGet, "/v1/card.png?accent=blue", ""},
		{"size not a number", http.MethodGet, "/v1/card.png?accent=blue&theme=dark&size=big", ""},
		{"malformed json", http.MethodPost, "/v1/cards", `{"title":`},
		{"unknown field", http.MethodPost, "/v1/cards", `{"accent":"blue","theme":"dark","colour":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{}
			srv := newTestServer(t, gen)
			req, _ := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			if body := decodeError(t, resp); body.Code != apperr.ErrCodeInvalidInput || body.Message == "" {
				t.Errorf("error body = %+v", body)
			}
			if gen.calls() != 0 {
				t.Error("generator must not run for invalid input")
			}
		})
	}
}

func TestGeneratorErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   apperr.Code
	}{
		{"invalid", apperr.New(apperr.ErrCodeInvalidInput, "invalid size: 9999"), http.StatusBadRequest, apperr.ErrCodeInvalidInput},
		{"render", apperr.Wrap(apperr.ErrCodeRenderFailure, errors.New("boom"), "rasterize"), http.StatusInternalServerError, apperr.ErrCodeRenderFailure},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, apperr.ErrCodeTimeout},
		{"uncoded", errors.New("mystery"), http.StatusInternalServerError, apperr.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeGenerator{err: tt.err})
			resp, err := http.Get(srv.URL + "/v1/card.png?accent=red&theme=light")
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if body := decodeError(t, resp); body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
		})
	}
}

func TestClientGoneIsNotAnError(t *testing.T) {
	var logs bytes.Buffer
	logger := log.New(&logs)
	logger.SetLevel(log.InfoLevel)
	h := New(Options{Generator: &fakeGenerator{err: context.Canceled}, Logger: logger}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/card.png?accent=red&theme=light", nil))
	if rec.Code != statusClientClosed {
		t.Errorf("status = %d, want %d", rec.Code, statusClientClosed)
	}
	if strings.Contains(logs.String(), "card failed") || strings.Contains(logs.String(), "ERRO") {
		t.Errorf("cancellation logged as an error:\n%s", logs.String())
	}
}

func TestStats(t *testing.T) {
	stats := observability.NewStats()
	stats.OnImageRejected(context.Background(), "avatar", "undersized", nil)
	srv := httptest.NewServer(New(Options{Generator: &fakeGenerator{}, Stats: stats, Logger: quietLogger()}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var snap observability.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.Rejected["avatar/undersized"] != 1 {
		t.Errorf("rejected = %v", snap.Rejected)
	}
}

func TestEndToEnd(t *testing.T) {
	runner := pipeline.NewRunner(pipeline.WithLogger(quietLogger()))
	srv := newTestServer(t, runner)

	resp, err := http.Get(srv.URL + "/v1/card.png?title=gm+frens&accent=teal&theme=dark&address=0xabc&name=alice&size=64")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	cfg, err := png.DecodeConfig(resp.Body)
	if err != nil {
		t.Fatalf("body is not a PNG: %v", err)
	}
	if cfg.Width != 64 || cfg.Height != 64 {
		t.Errorf("png = %dx%d, want 64x64", cfg.Width, cfg.Height)
	}

	resp2, err := http.Get(srv.URL + "/v1/card.png?accent=teal&theme=dark&size=100000")
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Errorf("oversized card status = %d, want 400", resp2.StatusCode)
	}
}

func TestListenAndServeShutdown(t *testing.T) {
	s := New(Options{Generator: &fakeGenerator{}, Logger: quietLogger()})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.ListenAndServe(ctx, ListenOptions{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second})
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
