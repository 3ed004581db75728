package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vsync/internal/vsync"
)

type errorResponse struct {
	Status int    `json:"status,omitempty"`
	Error  string `json:"error"`
}

type uploadResponse struct {
	Status      int    `json:"status"`
	Message     string `json:"message"`
	DownloadURL string `json:"downloadUrl"`
}

type downloadResponse struct {
	Status      string `json:"status"`
	DownloadURL string `json:"downloadUrl"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	id := vsync.VaultIdentity(r.URL.Query().Get("vaultName"))
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Vault name is required"})
		return
	}
	if err := id.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if s.opts.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	}
	file, header, err := r.FormFile("vault")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "Upload too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No file uploaded"})
		return
	}
	defer file.Close()

	ctx := r.Context()
	if err := s.store.Upload(ctx, id, file, header.Size); err != nil {
		s.logger.Error("storing upload", "vault", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to store vault"})
		return
	}

	url, err := s.signer.SignedURL(ctx, id, s.opts.URLTTL)
	if err != nil {
		s.logger.Error("signing url", "vault", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to sign download url"})
		return
	}

	s.logger.Info("vault uploaded", "vault", id, "bytes", header.Size)
	writeJSON(w, http.StatusOK, uploadResponse{
		Status:      http.StatusOK,
		Message:     "File uploaded successfully",
		DownloadURL: url,
	})
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := vsync.VaultIdentity(chi.URLParam(r, "vaultName"))

	ok := id.Validate() == nil
	if ok {
		var err error
		ok, err = s.store.Exists(ctx, id)
		if err != nil {
			s.logger.Warn("checking vault", "vault", id, "error", err)
		}
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "File not found or inaccessible"})
		return
	}

	url, err := s.signer.SignedURL(ctx, id, s.opts.URLTTL)
	if err != nil {
		s.logger.Error("signing url", "vault", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to sign download url"})
		return
	}
	writeJSON(w, http.StatusOK, downloadResponse{Status: "ok", DownloadURL: url})
}

func (s *Server) blob(w http.ResponseWriter, r *http.Request) {
	if s.blobs == nil {
		http.NotFound(w, r)
		return
	}
	name := chi.URLParam(r, "vaultName")
	q := r.URL.Query()
	if err := s.blobs.Verify(name, q.Get("expires"), q.Get("signature")); err != nil {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
		return
	}

	id := vsync.VaultIdentity(name)
	w.Header().Set("Content-Type", "application/zip")
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(s.store.Fetch(r.Context(), id, pw))
	}()
	defer pr.Close()

	// Peek so a missing blob still gets a proper status code.
	var first [1]byte
	n, err := pr.Read(first[:])
	if err != nil && !errors.Is(err, io.EOF) {
		if errors.Is(err, vsync.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "File not found or inaccessible"})
			return
		}
		s.logger.Error("serving blob", "vault", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to read vault"})
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(first[:n])
	if _, err := io.Copy(w, pr); err != nil {
		s.logger.Warn("streaming blob", "vault", id, "error", err)
	}
}
