package server

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pustelto/sitepipe/builder/batch"
	"github.com/pustelto/sitepipe/builder/config"
)

func newTestServer(t *testing.T, builder Rebuilder) (*Server, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"_site/index.html":               "<html><body><h1>Home</h1></body></html>",
		"_site/404.html":                 "<html><body>Nothing here</body></html>",
		"_site/blog/hello/index.html":    "<html><body>Hello</body></html>",
		"_site/styles/main.css":          "body{color:red}",
		"_site/styles/blog.a1b2c3d4.css": "h1{}",
		"src/blog/hello/index.md":        "---\ntitle: Hello\n---\n",
	}
	for p, c := range files {
		require.NoError(t, afero.WriteFile(fs, p, []byte(c), 0644))
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(config.DefaultConfig(), fs, builder, logger), fs
}

func get(t *testing.T, h http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServeFiles(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	rec := get(t, h, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>Home</h1>")
	assert.Contains(t, rec.Body.String(), `new EventSource("/events")`)

	rec = get(t, h, "/blog/hello/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hello")

	rec = get(t, h, "/blog/hello")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/blog/hello/", rec.Header().Get("Location"))

	rec = get(t, h, "/styles/main.css")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "body{color:red}", rec.Body.String())
	assert.Equal(t, "public, max-age=60", rec.Header().Get("Cache-Control"))

	rec = get(t, h, "/styles/blog.a1b2c3d4.css")
	assert.Contains(t, rec.Header().Get("Cache-Control"), "immutable")
}

func TestServeNotFound(t *testing.T) {
	s, fs := newTestServer(t, nil)

	rec := get(t, s.Handler(), "/missing/page/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Nothing here")

	require.NoError(t, fs.Remove("_site/404.html"))
	rec = get(t, s.Handler(), "/missing/page/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "404 - Page Not Found", rec.Body.String())
}

func TestServeRejectsTraversal(t *testing.T) {
	s, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.URL.Path = "/../src/blog/hello/index.md"
	rec := httptest.NewRecorder()
	http.HandlerFunc(s.serveFile).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServeGzip(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/styles/main.css", "Accept-Encoding", "gzip")
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "body{color:red}", string(body))
}

func TestResolvePath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"/", "", false},
		{"/blog/hello/", "blog/hello", false},
		{"/a//b/./c.css", "a/b/c.css", false},
		{"/../etc/passwd", "", true},
		{"/blog/..\\..\\x", "", true},
	}
	for _, tt := range tests {
		got, err := resolvePath(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestInjectReload(t *testing.T) {
	out := string(injectReload([]byte("<html><BODY>x</BODY></html>")))
	assert.True(t, strings.HasSuffix(out, reloadScript+"</BODY></html>"))
	assert.Equal(t, "x"+reloadScript, string(injectReload([]byte("x"))))
}

type fakeBuilder struct {
	mu      sync.Mutex
	full    int
	changed []string
}

func (f *fakeBuilder) Build(context.Context) (*batch.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.full++
	return batch.NewReport("build"), nil
}

func (f *fakeBuilder) BuildChanged(_ context.Context, path string) (*batch.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changed = append(f.changed, path)
	return batch.NewReport("build"), nil
}

func TestRebuildTargetsSingleChange(t *testing.T) {
	fb := &fakeBuilder{}
	s, _ := newTestServer(t, fb)

	s.rebuild(context.Background(), []string{"src/_includes/css/index.css"})
	s.rebuild(context.Background(), []string{"src/a.md", "src/b.md"})

	assert.Equal(t, []string{"src/_includes/css/index.css"}, fb.changed)
	assert.Equal(t, 1, fb.full)
}

func TestRebuildNotifiesClients(t *testing.T) {
	s, _ := newTestServer(t, &fakeBuilder{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	defer s.hub.close()

	resp, err := http.Get(ts.URL + "/events")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewReader(resp.Body)
	line, err := lines.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "data: connected\n", line)

	require.Eventually(t, func() bool { return s.hub.count() == 1 }, time.Second, 10*time.Millisecond)
	s.rebuild(context.Background(), []string{"src/index.md"})

	for {
		line, err = lines.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data:") {
			break
		}
	}
	assert.Equal(t, "data: reload\n", line)
}
