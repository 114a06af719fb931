package auth

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// TokenProvider supplies the bearer token attached to every backend request.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticProvider returns a fixed token, typically sourced from a flag or
// environment variable.
type StaticProvider struct {
	token string
}

var _ TokenProvider = &StaticProvider{}

func NewStaticProvider(token string) (*StaticProvider, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("auth: empty token")
	}
	return &StaticProvider{token: token}, nil
}

func (p *StaticProvider) Token(_ context.Context) (string, error) {
	if p == nil || p.token == "" {
		return "", errors.New("auth: no token configured")
	}
	return p.token, nil
}

// expirySkew is subtracted from a JWT's exp claim so a token is refreshed
// slightly before it actually lapses.
const expirySkew = 30 * time.Second

// FileProvider reads the token from a file written by an external login
// flow. When the token is a JWT its exp claim is honored and the file is
// re-read once the cached token is about to expire; opaque tokens are
// cached until Reload.
type FileProvider struct {
	path string
	now  func() time.Time

	mu        sync.Mutex
	cached    string
	expiresAt time.Time
}

var _ TokenProvider = &FileProvider{}

func NewFileProvider(path string) (*FileProvider, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("auth: empty token file path")
	}
	return &FileProvider{path: path, now: time.Now}, nil
}

func (p *FileProvider) Token(_ context.Context) (string, error) {
	if p == nil {
		return "", errors.New("auth: file provider is nil")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != "" && (p.expiresAt.IsZero() || p.now().Before(p.expiresAt)) {
		return p.cached, nil
	}
	return p.readLocked()
}

// Reload drops the cached token so the next Token call re-reads the file.
func (p *FileProvider) Reload() {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.cached = ""
	p.expiresAt = time.Time{}
	p.mu.Unlock()
}

func (p *FileProvider) readLocked() (string, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return "", errors.Wrap(err, "auth: read token file")
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", errors.Errorf("auth: token file %s is empty", p.path)
	}

	p.cached = token
	p.expiresAt = time.Time{}
	if exp, ok := jwtExpiry(token); ok {
		if !exp.After(p.now()) {
			log.Warn().Str("component", "auth").Time("exp", exp).Msg("token file holds an expired token")
		}
		p.expiresAt = exp.Add(-expirySkew)
	}
	return token, nil
}

// jwtExpiry extracts the exp claim without verifying the signature. The
// backend is the verifier; we only need the deadline for cache refresh.
func jwtExpiry(token string) (time.Time, bool) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
