// Package compress encodes responses with brotli for clients that accept it.
package compress

import (
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
)

// Config tunes the middleware.
type Config struct {
	// Level is the brotli quality, 0 to 11.
	Level int
	// SkipTypes are content type prefixes sent as is.
	SkipTypes []string
}

// DefaultConfig compresses everything except formats that are already
// compressed archives.
func DefaultConfig() Config {
	return Config{
		Level: brotli.DefaultCompression,
		SkipTypes: []string{
			"application/vnd.openxmlformats-officedocument",
			"application/zip",
			"image/",
		},
	}
}

// Middleware returns a handler wrapper that brotli-encodes responses.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	pool := sync.Pool{New: func() any { return brotli.NewWriterLevel(io.Discard, cfg.Level) }}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Accept-Encoding")
			if !acceptsBrotli(r.Header.Get("Accept-Encoding")) || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			bw := &brotliWriter{ResponseWriter: w, pool: &pool, skip: cfg.SkipTypes}
			defer bw.Close()
			next.ServeHTTP(bw, r)
		})
	}
}

func acceptsBrotli(header string) bool {
	for _, part := range strings.Split(header, ",") {
		enc, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if strings.TrimSpace(enc) != "br" {
			continue
		}
		return strings.ReplaceAll(strings.TrimSpace(params), " ", "") != "q=0"
	}
	return false
}

type brotliWriter struct {
	http.ResponseWriter
	pool *sync.Pool
	skip []string

	w           *brotli.Writer
	decided     bool
	passthrough bool
}

func (b *brotliWriter) decide() {
	if b.decided {
		return
	}
	b.decided = true

	h := b.Header()
	if h.Get("Content-Encoding") != "" {
		b.passthrough = true
		return
	}
	ct := h.Get("Content-Type")
	for _, prefix := range b.skip {
		if strings.HasPrefix(ct, prefix) {
			b.passthrough = true
			return
		}
	}
	h.Set("Content-Encoding", "br")
	h.Del("Content-Length")
	b.w = b.pool.Get().(*brotli.Writer)
	b.w.Reset(b.ResponseWriter)
}

func (b *brotliWriter) WriteHeader(code int) {
	if code == http.StatusNoContent || code == http.StatusNotModified {
		b.decided, b.passthrough = true, true
	}
	b.decide()
	b.ResponseWriter.WriteHeader(code)
}

func (b *brotliWriter) Write(p []byte) (int, error) {
	if !b.decided && b.Header().Get("Content-Type") == "" {
		b.Header().Set("Content-Type", http.DetectContentType(p))
	}
	b.decide()
	if b.passthrough {
		return b.ResponseWriter.Write(p)
	}
	return b.w.Write(p)
}

func (b *brotliWriter) Flush() {
	if b.w != nil {
		_ = b.w.Flush()
	}
	if f, ok := b.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Close finishes the brotli stream and returns the encoder to the pool.
func (b *brotliWriter) Close() error {
	if b.w == nil {
		return nil
	}
	err := b.w.Close()
	b.pool.Put(b.w)
	b.w = nil
	return err
}

func (b *brotliWriter) Unwrap() http.ResponseWriter {
	return b.ResponseWriter
}
