// Package storage issues time-limited signed URLs for private storage objects.
package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrSignatureExpired = errors.New("signature expired")
	ErrEmptyPath        = errors.New("bucket and path are required")
)

// Signer creates and verifies HMAC-SHA256 signed URLs for objects in
// private buckets. URLs expire after the requested TTL.
type Signer struct {
	baseURL string
	secret  []byte
}

// NewSigner creates a Signer rooted at baseURL.
func NewSigner(baseURL, secret string) *Signer {
	return &Signer{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  []byte(secret),
	}
}

// CreateSignedURL returns a time-limited authorized link to a private object.
func (s *Signer) CreateSignedURL(bucket, path string, ttl time.Duration) (string, error) {
	bucket = strings.Trim(bucket, "/")
	path = strings.Trim(path, "/")
	if bucket == "" || path == "" {
		return "", ErrEmptyPath
	}

	expires := time.Now().Add(ttl).Unix()
	token := s.sign(bucket, path, expires)

	return fmt.Sprintf("%s/object/sign/%s/%s?token=%s&expires=%d",
		s.baseURL, bucket, escapePath(path), token, expires), nil
}

// Verify checks a token against the object it claims to authorize.
func (s *Signer) Verify(bucket, path, token string, expires int64) error {
	if time.Now().Unix() > expires {
		return ErrSignatureExpired
	}
	expected := s.sign(strings.Trim(bucket, "/"), strings.Trim(path, "/"), expires)
	if !hmac.Equal([]byte(expected), []byte(token)) {
		return ErrInvalidSignature
	}
	return nil
}

// sign computes the canonical payload signature.
// Format: bucket|path|expires
func (s *Signer) sign(bucket, path string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(bucket + "|" + path + "|" + strconv.FormatInt(expires, 10)))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func escapePath(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
