// Package server is the HTTP snapshot server used by store.HTTPStore.
// Authenticated clients upload blobs and receive time-limited download
// URLs; the blobs live in any vsync.SnapshotStore.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"vsync/internal/config"
	"vsync/internal/vsync"
)

// BlobStore is the storage the server fronts.
type BlobStore interface {
	vsync.SnapshotStore
	Exists(ctx context.Context, id vsync.VaultIdentity) (bool, error)
}

// Options tune request handling.
type Options struct {
	AuthToken      string
	URLTTL         time.Duration
	RateLimit      int // requests per RateWindow per client; 0 disables
	RateWindow     time.Duration
	MaxUploadBytes int64
}

// OptionsFromConfig converts the [server] config section.
func OptionsFromConfig(cfg config.ServerConfig) Options {
	return Options{
		AuthToken:      cfg.AuthToken,
		URLTTL:         time.Duration(cfg.URLTTLSeconds) * time.Second,
		RateLimit:      cfg.RateLimit,
		RateWindow:     time.Duration(cfg.RateWindowSeconds) * time.Second,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
}

type Server struct {
	store   BlobStore
	signer  URLSigner
	blobs   *HMACSigner // nil when the store presigns its own URLs
	opts    Options
	limiter *clientLimiter
	logger  vsync.Logger
	clock   vsync.Clock
}

// New creates a Server. When signer is an *HMACSigner the server also serves
// the /blob route its URLs point at.
func New(store BlobStore, signer URLSigner, opts Options, logger vsync.Logger, clock vsync.Clock) (*Server, error) {
	if opts.AuthToken == "" {
		return nil, fmt.Errorf("server auth token is required")
	}
	if signer == nil {
		return nil, fmt.Errorf("url signer is required")
	}
	if opts.URLTTL <= 0 {
		opts.URLTTL = time.Hour
	}
	if logger == nil {
		logger = vsync.NewNopLogger()
	}
	if clock == nil {
		clock = vsync.RealClock{}
	}

	s := &Server{
		store:  store,
		signer: signer,
		opts:   opts,
		logger: logger,
		clock:  clock,
	}
	if h, ok := signer.(*HMACSigner); ok {
		s.blobs = h
	}
	if opts.RateLimit > 0 && opts.RateWindow > 0 {
		s.limiter = newClientLimiter(opts.RateLimit, opts.RateWindow)
	}
	return s, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(s.withLogging)

	router.Get("/healthz", s.healthz)

	router.Group(func(r chi.Router) {
		r.Use(s.withRateLimit)
		r.Get("/blob/{vaultName}", s.blob)

		r.Group(func(r chi.Router) {
			r.Use(s.withAuth)
			r.Post("/upload", s.upload)
			r.Get("/download/{vaultName}", s.download)
		})
	})

	return router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}
