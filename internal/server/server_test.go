package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vsync/internal/server"
	"vsync/internal/store"
	"vsync/internal/testutil"
	"vsync/internal/vsync"
)

const token = "s3cret"

type fixture struct {
	store *store.MemoryStore
	clock *testutil.ManualClock
	srv   *httptest.Server
}

func newFixture(t *testing.T, opts server.Options) *fixture {
	t.Helper()
	if opts.AuthToken == "" {
		opts.AuthToken = token
	}
	mem := store.NewMemoryStore()
	clock := testutil.FixedClock()
	signer, err := server.NewHMACSigner("", []byte("signing-key"), clock)
	if err != nil {
		t.Fatalf("NewHMACSigner() error = %v", err)
	}
	s, err := server.New(mem, signer, opts, nil, clock)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &fixture{store: mem, clock: clock, srv: srv}
}

func (f *fixture) do(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := f.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	defer resp.Body.Close()
	body := map[string]any{}
	data, _ := io.ReadAll(resp.Body)
	json.Unmarshal(data, &body)
	return resp, body
}

func uploadRequest(t *testing.T, base, query, field string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, "vault.zip")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(data)
	}
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, base+"/upload"+query, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func get(t *testing.T, url string, auth bool) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestServer_Healthz(t *testing.T) {
	f := newFixture(t, server.Options{})
	resp, body := f.do(t, get(t, f.srv.URL+"/healthz", false))
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Errorf("healthz = %d %v", resp.StatusCode, body)
	}
}

func TestServer_Auth(t *testing.T) {
	f := newFixture(t, server.Options{})

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing", header: ""},
		{name: "wrong token", header: "Bearer nope"},
		{name: "wrong scheme", header: "Basic " + token},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := get(t, f.srv.URL+"/download/notes", false)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, body := f.do(t, req)
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", resp.StatusCode)
			}
			if body["error"] != "Unauthorized" {
				t.Errorf("error = %v, want Unauthorized", body["error"])
			}
		})
	}
}

func TestServer_Upload(t *testing.T) {
	f := newFixture(t, server.Options{})

	resp, body := f.do(t, uploadRequest(t, f.srv.URL, "?vaultName=notes", "vault", []byte("zipdata")))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %v", resp.StatusCode, body)
	}
	if body["message"] != "File uploaded successfully" {
		t.Errorf("message = %v", body["message"])
	}
	if url, _ := body["downloadUrl"].(string); !strings.HasPrefix(url, "/blob/notes?") {
		t.Errorf("downloadUrl = %q, want /blob/notes?...", url)
	}

	var got bytes.Buffer
	if err := f.store.Fetch(context.Background(), "notes", &got); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got.String() != "zipdata" {
		t.Errorf("stored = %q, want zipdata", got.String())
	}
}

func TestServer_UploadBadRequest(t *testing.T) {
	f := newFixture(t, server.Options{})

	tests := []struct {
		name  string
		query string
		field string
	}{
		{name: "missing vault name", query: "", field: "vault"},
		{name: "invalid vault name", query: "?vaultName=..%2Fetc", field: "vault"},
		{name: "missing file", query: "?vaultName=notes", field: ""},
		{name: "wrong field", query: "?vaultName=notes", field: "file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := f.do(t, uploadRequest(t, f.srv.URL, tt.query, tt.field, []byte("x")))
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (%v)", resp.StatusCode, body)
			}
		})
	}
}

func TestServer_UploadTooLarge(t *testing.T) {
	f := newFixture(t, server.Options{MaxUploadBytes: 64})

	resp, _ := f.do(t, uploadRequest(t, f.srv.URL, "?vaultName=notes", "vault", bytes.Repeat([]byte("a"), 4096)))
	if resp.StatusCode == http.StatusOK {
		t.Errorf("status = 200, want rejection")
	}
	if ok, _ := f.store.Exists(context.Background(), "notes"); ok {
		t.Error("oversized upload was stored")
	}
}

func TestServer_Download(t *testing.T) {
	f := newFixture(t, server.Options{})

	resp, body := f.do(t, get(t, f.srv.URL+"/download/notes", true))
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if body["error"] != "File not found or inaccessible" {
		t.Errorf("error = %v", body["error"])
	}

	f.store.Upload(context.Background(), "notes", strings.NewReader("zipdata"), 7)

	resp, body = f.do(t, get(t, f.srv.URL+"/download/notes", true))
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("download = %d %v", resp.StatusCode, body)
	}

	blobResp, err := f.srv.Client().Get(f.srv.URL + body["downloadUrl"].(string))
	if err != nil {
		t.Fatal(err)
	}
	defer blobResp.Body.Close()
	data, _ := io.ReadAll(blobResp.Body)
	if blobResp.StatusCode != http.StatusOK || string(data) != "zipdata" {
		t.Errorf("blob = %d %q, want 200 zipdata", blobResp.StatusCode, data)
	}
}

func TestServer_BlobSignature(t *testing.T) {
	f := newFixture(t, server.Options{URLTTL: time.Minute})
	f.store.Upload(context.Background(), "notes", strings.NewReader("zipdata"), 7)

	_, body := f.do(t, get(t, f.srv.URL+"/download/notes", true))
	url := f.srv.URL + body["downloadUrl"].(string)

	t.Run("tampered", func(t *testing.T) {
		resp, _ := f.do(t, get(t, strings.Replace(url, "/blob/notes", "/blob/other", 1), false))
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("status = %d, want 403", resp.StatusCode)
		}
	})

	t.Run("unsigned", func(t *testing.T) {
		resp, _ := f.do(t, get(t, f.srv.URL+"/blob/notes", false))
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("status = %d, want 403", resp.StatusCode)
		}
	})

	t.Run("expired", func(t *testing.T) {
		f.clock.Advance(2 * time.Minute)
		resp, _ := f.do(t, get(t, url, false))
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("status = %d, want 403", resp.StatusCode)
		}
	})
}

func TestServer_RateLimit(t *testing.T) {
	f := newFixture(t, server.Options{RateLimit: 2, RateWindow: time.Hour})

	for i := 0; i < 2; i++ {
		resp, _ := f.do(t, get(t, f.srv.URL+"/download/notes", true))
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("request %d status = %d, want 404", i, resp.StatusCode)
		}
	}
	resp, body := f.do(t, get(t, f.srv.URL+"/download/notes", true))
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", resp.StatusCode)
	}
	if body["status"] != float64(http.StatusTooManyRequests) {
		t.Errorf("body status = %v, want 429", body["status"])
	}
}

func TestServer_HTTPStoreRoundTrip(t *testing.T) {
	f := newFixture(t, server.Options{})
	ctx := context.Background()

	client, err := store.NewHTTPStore(f.srv.URL, token, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := client.ValidateSetup(ctx); err != nil {
		t.Fatalf("ValidateSetup() error = %v", err)
	}

	blob := []byte("PK\x03\x04 archive bytes")
	if err := client.Upload(ctx, "notes", bytes.NewReader(blob), int64(len(blob))); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	var got bytes.Buffer
	if err := client.Fetch(ctx, "notes", &got); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !bytes.Equal(got.Bytes(), blob) {
		t.Errorf("Fetch() = %q, want %q", got.Bytes(), blob)
	}

	err = client.Fetch(ctx, "missing", &bytes.Buffer{})
	if !errors.Is(err, vsync.ErrNotFound) {
		t.Errorf("Fetch(missing) error = %v, want ErrNotFound", err)
	}
}
