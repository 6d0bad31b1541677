package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
)

var errTraversal = errors.New("path traversal attempt detected")

// resolvePath turns a request path into a slash-separated path relative to
// the output dir. Paths that would climb out of it are rejected.
func resolvePath(urlPath string) (string, error) {
	if strings.Contains(urlPath, "\x00") {
		return "", errTraversal
	}
	for _, seg := range strings.Split(strings.ReplaceAll(urlPath, "\\", "/"), "/") {
		if seg == ".." {
			return "", errTraversal
		}
	}
	rel := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	return rel, nil
}

// isHashedAsset checks if filename contains a content hash (e.g., blog.a1b2c3d4.css)
func isHashedAsset(filename string) bool {
	parts := strings.Split(filename, ".")
	if len(parts) < 3 {
		return false
	}
	hashPart := parts[len(parts)-2]
	if len(hashPart) < 8 || len(hashPart) > 12 {
		return false
	}
	for _, c := range hashPart {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

func setCacheHeaders(w http.ResponseWriter, filename string) {
	switch {
	case isHashedAsset(filename):
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	case strings.HasSuffix(filename, ".html"):
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
	default:
		w.Header().Set("Cache-Control", "public, max-age=60")
	}
}

const reloadScript = `<script>new EventSource("/events").onmessage=function(e){if(e.data==="reload")location.reload()}</script>`

// injectReload adds the live reload client before </body>, or at the end
// of documents without one.
func injectReload(doc []byte) []byte {
	i := bytes.LastIndex(bytes.ToLower(doc), []byte("</body>"))
	if i < 0 {
		return append(doc, reloadScript...)
	}
	out := make([]byte, 0, len(doc)+len(reloadScript))
	out = append(out, doc[:i]...)
	out = append(out, reloadScript...)
	return append(out, doc[i:]...)
}

// gzipResponseWriter wraps the underlying ResponseWriter to enable Gzip compression
type gzipResponseWriter struct {
	io.Writer
	http.ResponseWriter
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	return w.Writer.Write(b)
}

func (w *gzipResponseWriter) WriteHeader(code int) {
	w.Header().Del("Content-Length")
	w.ResponseWriter.WriteHeader(code)
}

func gzipHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Accept-Encoding")
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") || r.Header.Get("Range") != "" {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		defer func() { _ = gz.Close() }()
		next.ServeHTTP(&gzipResponseWriter{Writer: gz, ResponseWriter: w}, r)
	})
}
