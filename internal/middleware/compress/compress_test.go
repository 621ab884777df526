package compress

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
)

const body = `{"success":true,"data":{"total":"-1500"}}`

func serve(t *testing.T, accept, contentType string, status int) *httptest.ResponseRecorder {
	t.Helper()
	h := Middleware(DefaultConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		if status != http.StatusNoContent {
			_, _ = io.WriteString(w, strings.Repeat(body, 20))
		}
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	if accept != "" {
		req.Header.Set("Accept-Encoding", accept)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestMiddleware_Brotli(t *testing.T) {
	rr := serve(t, "gzip, br", "application/json", http.StatusOK)
	if rr.Header().Get("Content-Encoding") != "br" {
		t.Fatalf("Content-Encoding = %q, want br", rr.Header().Get("Content-Encoding"))
	}
	if rr.Header().Get("Vary") != "Accept-Encoding" {
		t.Errorf("Vary = %q", rr.Header().Get("Vary"))
	}
	decoded, err := io.ReadAll(brotli.NewReader(rr.Body))
	if err != nil {
		t.Fatal(err)
	}
	if string(decoded) != strings.Repeat(body, 20) {
		t.Error("decoded body differs from original")
	}
}

func TestMiddleware_Passthrough(t *testing.T) {
	tests := []struct {
		name        string
		accept      string
		contentType string
		status      int
	}{
		{"no accept", "", "application/json", http.StatusOK},
		{"gzip only", "gzip", "application/json", http.StatusOK},
		{"br refused", "br;q=0", "application/json", http.StatusOK},
		{"xlsx", "br", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", http.StatusOK},
		{"no content", "br", "application/json", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(t, tt.accept, tt.contentType, tt.status)
			if rr.Header().Get("Content-Encoding") != "" {
				t.Errorf("Content-Encoding = %q, want none", rr.Header().Get("Content-Encoding"))
			}
			if tt.status == http.StatusOK && rr.Body.String() != strings.Repeat(body, 20) {
				t.Error("body should be sent unencoded")
			}
		})
	}
}

func TestAcceptsBrotli(t *testing.T) {
	for header, want := range map[string]bool{
		"br":                 true,
		"gzip, deflate":      false,
		"gzip;q=1, br;q=0.5": true,
		"br; q=0":            false,
		"":                   false,
	} {
		if got := acceptsBrotli(header); got != want {
			t.Errorf("acceptsBrotli(%q) = %v, want %v", header, got, want)
		}
	}
}
