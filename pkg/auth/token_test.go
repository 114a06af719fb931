package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signedJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func writeTokenFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestStaticProvider(t *testing.T) {
	_, err := NewStaticProvider("  ")
	require.Error(t, err)

	provider, err := NewStaticProvider("tok-123")
	require.NoError(t, err)
	token, err := provider.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok-123", token)
}

func TestFileProvider_ReadsAndTrims(t *testing.T) {
	path := writeTokenFile(t, "  opaque-token\n")
	provider, err := NewFileProvider(path)
	require.NoError(t, err)

	token, err := provider.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "opaque-token", token)
}

func TestFileProvider_Errors(t *testing.T) {
	_, err := NewFileProvider(" ")
	require.Error(t, err)

	provider, err := NewFileProvider(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	_, err = provider.Token(context.Background())
	require.Error(t, err)

	provider, err = NewFileProvider(writeTokenFile(t, "   \n"))
	require.NoError(t, err)
	_, err = provider.Token(context.Background())
	require.Error(t, err)
}

func TestFileProvider_CachesOpaqueTokenUntilReload(t *testing.T) {
	path := writeTokenFile(t, "first")
	provider, err := NewFileProvider(path)
	require.NoError(t, err)

	token, err := provider.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "first", token)

	require.NoError(t, os.WriteFile(path, []byte("second"), 0o600))
	token, err = provider.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "first", token)

	provider.Reload()
	token, err = provider.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "second", token)
}

func TestFileProvider_RereadsExpiredJWT(t *testing.T) {
	now := time.Now()
	path := writeTokenFile(t, signedJWT(t, now.Add(2*time.Minute)))
	provider, err := NewFileProvider(path)
	require.NoError(t, err)
	provider.now = func() time.Time { return now }

	first, err := provider.Token(context.Background())
	require.NoError(t, err)

	// within the expiry window (minus skew) the cached token is reused
	refreshed := signedJWT(t, now.Add(time.Hour))
	require.NoError(t, os.WriteFile(path, []byte(refreshed), 0o600))
	token, err := provider.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, token)

	// past exp minus the skew the file is read again
	provider.now = func() time.Time { return now.Add(2 * time.Minute) }
	token, err = provider.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, refreshed, token)
}

func TestJWTExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	got, ok := jwtExpiry(signedJWT(t, exp))
	require.True(t, ok)
	require.Equal(t, exp.Unix(), got.Unix())

	_, ok = jwtExpiry("opaque-token")
	require.False(t, ok)

	_, ok = jwtExpiry("a.b.c")
	require.False(t, ok)
}
