package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"vsync/internal/vsync"
)

// ErrUnauthorized means the snapshot server rejected the bearer token.
var ErrUnauthorized = errors.New("unauthorized")

// DefaultHTTPTimeout bounds each request to the snapshot server.
const DefaultHTTPTimeout = 5 * time.Minute

// downloadResponse is the body of GET /download/{vaultName} and POST /upload.
type downloadResponse struct {
	Status      any    `json:"status"`
	Message     string `json:"message,omitempty"`
	DownloadURL string `json:"downloadUrl"`
	Error       string `json:"error,omitempty"`
}

// HTTPStore talks to a vsync snapshot server (see internal/server).
// Uploads go to POST /upload; downloads resolve a signed URL through
// GET /download/{vaultName} and then fetch it without credentials.
type HTTPStore struct {
	client *resty.Client
	token  string
}

// NewHTTPStore creates a client for the server at baseURL.
func NewHTTPStore(baseURL, token string, timeout time.Duration) (*HTTPStore, error) {
	base, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot server url: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}

	client := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout)

	return &HTTPStore{client: client, token: strings.TrimSpace(token)}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}
	return strings.TrimRight(u.String(), "/"), nil
}

func (s *HTTPStore) authedRequest(ctx context.Context) *resty.Request {
	req := s.client.R().SetContext(ctx)
	if s.token != "" {
		req.SetAuthToken(s.token)
	}
	return req
}

// Upload sends the blob as the multipart field "vault".
func (s *HTTPStore) Upload(ctx context.Context, id vsync.VaultIdentity, r io.Reader, size int64) error {
	if err := id.Validate(); err != nil {
		return err
	}
	resp, err := s.authedRequest(ctx).
		SetQueryParam("vaultName", string(id)).
		SetFileReader("vault", string(id)+".zip", r).
		Post("/upload")
	if err != nil {
		return fmt.Errorf("upload request: %w", err)
	}
	return mapHTTPError(resp)
}

// Fetch resolves the download URL for id and streams the blob to w.
func (s *HTTPStore) Fetch(ctx context.Context, id vsync.VaultIdentity, w io.Writer) error {
	if err := id.Validate(); err != nil {
		return err
	}

	var dr downloadResponse
	resp, err := s.authedRequest(ctx).
		SetResult(&dr).
		SetPathParam("vaultName", string(id)).
		Get("/download/{vaultName}")
	if err != nil {
		return fmt.Errorf("download request: %w", err)
	}
	if err := mapHTTPError(resp); err != nil {
		return err
	}
	if dr.DownloadURL == "" {
		return fmt.Errorf("server returned no download url")
	}

	// The signed URL carries its own authorization; a bearer header would
	// make S3 reject the request.
	blob, err := s.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(dr.DownloadURL)
	if err != nil {
		return fmt.Errorf("fetching signed url: %w", err)
	}
	body := blob.RawBody()
	defer body.Close()

	if blob.StatusCode() != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(body, 512))
		if blob.StatusCode() == http.StatusNotFound {
			return fmt.Errorf("%w: %s", vsync.ErrNotFound, id)
		}
		return fmt.Errorf("signed url returned %s: %s", blob.Status(), strings.TrimSpace(string(msg)))
	}
	if _, err := io.Copy(w, body); err != nil {
		return fmt.Errorf("reading snapshot: %w", err)
	}
	return nil
}

// ValidateSetup checks that the server answers its health endpoint and a
// token is configured.
func (s *HTTPStore) ValidateSetup(ctx context.Context) error {
	if s.token == "" {
		return fmt.Errorf("no auth token configured for snapshot server")
	}
	resp, err := s.client.R().SetContext(ctx).Get("/healthz")
	if err != nil {
		return fmt.Errorf("snapshot server not reachable: %w", err)
	}
	return mapHTTPError(resp)
}

func mapHTTPError(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	switch resp.StatusCode() {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return vsync.ErrNotFound
	}
	return fmt.Errorf("server returned %s: %s", resp.Status(), strings.TrimSpace(resp.String()))
}

var _ vsync.SnapshotStore = (*HTTPStore)(nil)
