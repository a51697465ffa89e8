package sequence

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// stubFrames writes a fixed payload, or fails when none is set.
type stubFrames struct {
	data  []byte
	width int
}

func (s *stubFrames) WritePNG(w io.Writer, width int) error {
	if s.data == nil {
		return errors.New("no frame")
	}
	s.width = width
	_, err := w.Write(s.data)
	return err
}

func newTestHandler(t *testing.T, f Fetcher, frames FrameWriter) (*Handler, *testLoader) {
	t.Helper()
	l := startLoader(t, LoaderConfig{Fetcher: f})
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewHandler(l.Loader, frames, log, DefaultPlaybackConfig()), l
}

func newTestRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/sequence", func(r chi.Router) {
		r.Post("/", h.Load)
		r.Get("/", h.Status)
		r.Put("/config", h.Reconfigure)
		r.Post("/stop", h.Stop)
		r.Get("/frame.png", h.Frame)
	})
	return r
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Load(t *testing.T) {
	h, l := newTestHandler(t, &testFetcher{}, nil)
	r := newTestRouter(h)

	rec := do(r, http.MethodPost, "/sequence/", map[string]any{
		"images":          []string{"http://a/1.png", "http://a/2.png"},
		"framesPerSecond": 2,
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	var got map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil || got["generation"] != 1 {
		t.Errorf("unexpected body %s", rec.Body)
	}

	l.sink.waitFor(t, EventSequenceReady)
	st := l.status(t)
	if st.Config != (PlaybackConfig{FramesPerSecond: 2, Loop: true}) {
		t.Errorf("expected default loop with requested fps, got %+v", st.Config)
	}
}

func TestHandler_Load_bad_request(t *testing.T) {
	h, _ := newTestHandler(t, &testFetcher{}, nil)
	r := newTestRouter(h)

	for _, test := range []struct {
		name string
		body any
	}{
		{name: "not_json", body: "not json"},
		{name: "empty", body: map[string]any{"images": []string{}}},
		{name: "zero_fps", body: map[string]any{"images": []string{"a"}, "framesPerSecond": 0}},
	} {
		rec := do(r, http.MethodPost, "/sequence/", test.body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", test.name, rec.Code)
		}
	}
}

func TestHandler_Status(t *testing.T) {
	h, _ := newTestHandler(t, &testFetcher{}, nil)
	r := newTestRouter(h)

	rec := do(r, http.MethodGet, "/sequence/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var st map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st["player"] != "idle" || st["generation"] != float64(0) {
		t.Errorf("unexpected status %v", st)
	}
}

func TestHandler_Reconfigure(t *testing.T) {
	h, l := newTestHandler(t, &testFetcher{}, nil)
	r := newTestRouter(h)

	do(r, http.MethodPost, "/sequence/", map[string]any{"images": []string{"a", "b"}, "framesPerSecond": 2, "loop": true})
	l.sink.waitFor(t, EventSequenceReady)

	rec := do(r, http.MethodPut, "/sequence/config", map[string]any{"loop": false})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	st := l.status(t)
	if st.Config != (PlaybackConfig{FramesPerSecond: 2, Loop: false}) {
		t.Errorf("unexpected config %+v", st.Config)
	}

	rec = do(r, http.MethodPut, "/sequence/config", map[string]any{"framesPerSecond": -3})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_Reconfigure_concurrent_fields(t *testing.T) {
	h, l := newTestHandler(t, &testFetcher{}, nil)
	r := newTestRouter(h)

	do(r, http.MethodPost, "/sequence/", map[string]any{"images": []string{"a", "b"}, "framesPerSecond": 2, "loop": true})
	l.sink.waitFor(t, EventSequenceReady)

	var wg sync.WaitGroup
	for _, body := range []map[string]any{{"framesPerSecond": 5}, {"loop": false}} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rec := do(r, http.MethodPut, "/sequence/config", body); rec.Code != http.StatusOK {
				t.Errorf("expected 200, got %d", rec.Code)
			}
		}()
	}
	wg.Wait()

	if st := l.status(t); st.Config != (PlaybackConfig{FramesPerSecond: 5, Loop: false}) {
		t.Errorf("lost update: %+v", st.Config)
	}
}

func TestHandler_Stop(t *testing.T) {
	h, l := newTestHandler(t, &testFetcher{}, nil)
	r := newTestRouter(h)

	if rec := do(r, http.MethodPost, "/sequence/stop", nil); rec.Code != http.StatusConflict {
		t.Errorf("expected 409 before load, got %d", rec.Code)
	}

	do(r, http.MethodPost, "/sequence/", map[string]any{"images": []string{"a"}})
	l.sink.waitFor(t, EventSequenceReady)
	if rec := do(r, http.MethodPost, "/sequence/stop", nil); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if st := l.status(t); st.Player != Stopped {
		t.Errorf("expected stopped, got %v", st.Player)
	}
}

func TestHandler_Frame(t *testing.T) {
	frames := &stubFrames{}
	h, _ := newTestHandler(t, &testFetcher{}, frames)
	r := newTestRouter(h)

	if rec := do(r, http.MethodGet, "/sequence/frame.png", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without frame, got %d", rec.Code)
	}

	frames.data = []byte("png")
	rec := do(r, http.MethodGet, "/sequence/frame.png?width=32", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "image/png" || rec.Body.String() != "png" {
		t.Errorf("unexpected response %q %q", rec.Header().Get("Content-Type"), rec.Body)
	}
	if frames.width != 32 {
		t.Errorf("expected width 32, got %d", frames.width)
	}

	if rec := do(r, http.MethodGet, "/sequence/frame.png?width=wide", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid width, got %d", rec.Code)
	}
}
