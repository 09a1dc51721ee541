package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrTokenInvalid covers malformed tokens and signature mismatches.
	ErrTokenInvalid = errors.New("invalid download token")
	// ErrTokenExpired is returned for well-formed tokens past their expiry.
	ErrTokenExpired = errors.New("download token expired")
)

// SignedURLSigner issues HMAC-signed tokens that bind an export job to the
// file it produced. The token is base64url(jobID "\n" unix-expiry "\n" path)
// followed by "." and the base64url HMAC-SHA256 of that payload.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer. A non-positive ttl means 24h.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL reports how long issued tokens stay valid.
func (s *SignedURLSigner) TTL() time.Duration {
	return s.ttl
}

// Generate signs a token for the job's export file.
func (s *SignedURLSigner) Generate(jobID, relPath string) (string, time.Time, error) {
	if jobID == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("job id and path are required")
	}
	if strings.ContainsRune(jobID, '\n') || strings.ContainsRune(relPath, '\n') {
		return "", time.Time{}, fmt.Errorf("job id and path must be single-line")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	payload := strings.Join([]string{jobID, strconv.FormatInt(expiresAt.Unix(), 10), relPath}, "\n")
	encoded := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return encoded + "." + s.sign(encoded), expiresAt, nil
}

// Parse verifies a token and returns what it was issued for. allowExpired
// skips the expiry check so cleanup can still resolve old tokens.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	encoded, signature, found := strings.Cut(token, ".")
	if !found || encoded == "" || signature == "" {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	if !hmac.Equal([]byte(s.sign(encoded)), []byte(signature)) {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	parts := strings.SplitN(string(raw), "\n", 3)
	if len(parts) != 3 {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	unix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	expiresAt = time.Unix(unix, 0)
	if !allowExpired && s.now().After(expiresAt) {
		return "", "", time.Time{}, ErrTokenExpired
	}
	return parts[0], parts[2], expiresAt, nil
}

func (s *SignedURLSigner) sign(encoded string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
