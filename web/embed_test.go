package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSPAHandlerServesIndex(t *testing.T) {
	h := SPAHandler()

	for _, path := range []string{"/", "/courses/cs-61a"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "/ws/chat") {
			t.Errorf("%s: expected the chat client page", path)
		}
		if rec.Header().Get("Cache-Control") != "no-cache" {
			t.Errorf("%s: expected index to be served uncached", path)
		}
	}
}
