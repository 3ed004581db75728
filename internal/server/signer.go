package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vsync/internal/vsync"
)

// URLSigner produces time-limited download URLs for a snapshot.
type URLSigner interface {
	SignedURL(ctx context.Context, id vsync.VaultIdentity, ttl time.Duration) (string, error)
}

var (
	ErrSignatureExpired = errors.New("signature expired")
	ErrSignatureInvalid = errors.New("signature invalid")
)

// HMACSigner signs /blob URLs served by this server. It is used for stores
// that cannot presign URLs themselves.
type HMACSigner struct {
	baseURL string
	key     []byte
	clock   vsync.Clock
}

// NewHMACSigner creates a signer. baseURL is prepended to the /blob path; an
// empty baseURL yields server-relative URLs.
func NewHMACSigner(baseURL string, key []byte, clock vsync.Clock) (*HMACSigner, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("signing key is empty")
	}
	if clock == nil {
		clock = vsync.RealClock{}
	}
	return &HMACSigner{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		clock:   clock,
	}, nil
}

func (s *HMACSigner) SignedURL(_ context.Context, id vsync.VaultIdentity, ttl time.Duration) (string, error) {
	if err := id.Validate(); err != nil {
		return "", err
	}
	expires := strconv.FormatInt(s.clock.Now().Add(ttl).Unix(), 10)

	q := url.Values{}
	q.Set("expires", expires)
	q.Set("signature", s.sign(string(id), expires))
	return s.baseURL + "/blob/" + url.PathEscape(string(id)) + "?" + q.Encode(), nil
}

// Verify checks a signature produced by SignedURL.
func (s *HMACSigner) Verify(name, expires, signature string) error {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrSignatureInvalid
	}
	want := s.sign(name, expires)
	if !hmac.Equal([]byte(want), []byte(signature)) {
		return ErrSignatureInvalid
	}
	if s.clock.Now().Unix() > exp {
		return ErrSignatureExpired
	}
	return nil
}

func (s *HMACSigner) sign(name, expires string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(name + "\n" + expires))
	return hex.EncodeToString(mac.Sum(nil))
}
