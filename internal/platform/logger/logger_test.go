package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func TestParseLevel(t *testing.T) {
	for _, test := range []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "WARN", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "", want: slog.LevelInfo},
		{in: "verbose", want: slog.LevelInfo},
	} {
		if got := ParseLevel(test.in); got != test.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", test.in, got, test.want)
		}
	}
}

func TestNew_text_format(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info", "text")
	log.Debug("hidden")
	log.Info("shown", "k", "v")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record written at info level: %s", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "k=v") {
		t.Errorf("unexpected text output: %s", out)
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info", "json")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(log))
	r.Get("/sequence", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("abc"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sequence", nil))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid log record %q: %v", buf.String(), err)
	}
	if rec["path"] != "/sequence" || rec["status"] != float64(http.StatusTeapot) || rec["size"] != float64(3) {
		t.Errorf("unexpected record: %v", rec)
	}
	if rec["request_id"] == nil {
		t.Errorf("expected request_id in record: %v", rec)
	}
}
