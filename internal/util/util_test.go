package util

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHumanBytes(t *testing.T) {
	tests := map[int64]string{
		0:       "0 B",
		512:     "512 B",
		1536:    "1.50 KB",
		2 << 20: "2.00 MB",
		1 << 30: "1.00 GB",
		3 << 40: "3.00 TB",
		1 << 50: "1024.00 TB",
	}

	for in, want := range tests {
		assert.Equal(t, want, HumanBytes(in), in)
	}
}

func TestClientInjectsHeaders(t *testing.T) {
	dir := t.TempDir()
	cookieFile := filepath.Join(dir, "cookies.txt")
	require.NoError(t, os.WriteFile(cookieFile, []byte("\n  session=abc \nignored=1\n"), 0644))

	var gotUA, gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotCookie = r.Header.Get("Cookie")
	}))
	defer srv.Close()

	c, err := NewHTTPClient(HTTPClientOptions{
		Timeout:    5 * time.Second,
		UserAgent:  "pagekit-test",
		Cookie:     "a=1",
		CookieFile: cookieFile,
	})
	require.NoError(t, err)

	resp, err := c.Get(srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "pagekit-test", gotUA)
	assert.Equal(t, "a=1; session=abc", gotCookie)
}

func TestClientMissingCookieFile(t *testing.T) {
	_, err := NewHTTPClient(HTTPClientOptions{CookieFile: filepath.Join(t.TempDir(), "nope")})
	assert.Error(t, err)
}

func TestCleanupPartialArchives(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.zip.part"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.zip"), nil, 0644))

	assert.Equal(t, 1, CleanupPartialArchives(dir))
	assert.NoFileExists(t, filepath.Join(dir, "a.zip.part"))
	assert.FileExists(t, filepath.Join(dir, "b.zip"))
}
