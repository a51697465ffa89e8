package sequence

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
)

const maxBodyBytes = 1 << 20

// FrameWriter encodes the currently displayed frame as PNG.
type FrameWriter interface {
	WritePNG(w io.Writer, width int) error
}

// Handler exposes the loader over HTTP using go-chi.
type Handler struct {
	loader   *Loader
	frames   FrameWriter
	log      *slog.Logger
	defaults PlaybackConfig
}

// NewHandler returns a Handler. frames may be nil to disable frame
// rendering. defaults fill unset playback fields of load requests.
func NewHandler(loader *Loader, frames FrameWriter, log *slog.Logger, defaults PlaybackConfig) *Handler {
	return &Handler{loader: loader, frames: frames, log: log, defaults: defaults}
}

// loadBody is the payload of POST /sequence.
type loadBody struct {
	Images          []string `json:"images"`
	FramesPerSecond *int     `json:"framesPerSecond"`
	Loop            *bool    `json:"loop"`
}

// Load handles POST /sequence.
// Body: { "images": ["http://a/1.png", "file:///f/2.png", "spinner_3"], "framesPerSecond": 24, "loop": true }.
func (h *Handler) Load(w http.ResponseWriter, r *http.Request) {
	var body loadBody
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil {
		h.log.Debug("invalid load body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	cfg := ConfigPatch{FramesPerSecond: body.FramesPerSecond, Loop: body.Loop}.Apply(h.defaults)

	g, err := h.loader.Load(r.Context(), body.Images, cfg)
	if err != nil {
		h.writeError(w, "load", err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, map[string]Generation{"generation": g})
}

// Reconfigure handles PUT /sequence/config. Unset fields keep their current value.
func (h *Handler) Reconfigure(w http.ResponseWriter, r *http.Request) {
	var body ConfigPatch
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil {
		h.log.Debug("invalid config body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	cfg, err := h.loader.Update(r.Context(), body)
	if err != nil {
		h.writeError(w, "reconfigure", err)
		return
	}
	h.writeJSON(w, http.StatusOK, cfg)
}

// Stop handles POST /sequence/stop.
func (h *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	if err := h.loader.Stop(r.Context()); err != nil {
		h.writeError(w, "stop", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Status handles GET /sequence.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.loader.Status(r.Context())
	if err != nil {
		h.writeError(w, "status", err)
		return
	}
	h.writeJSON(w, http.StatusOK, st)
}

// Frame handles GET /sequence/frame.png?width=W.
func (h *Handler) Frame(w http.ResponseWriter, r *http.Request) {
	if h.frames == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	width := 0
	if s := r.URL.Query().Get("width"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		width = n
	}
	var buf bytes.Buffer
	if err := h.frames.WritePNG(&buf, width); err != nil {
		h.log.Debug("no frame", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrEmptySequence), errors.Is(err, ErrInvalidConfig):
		h.log.Debug(op+" rejected", slog.String("error", err.Error()))
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotLoaded):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.log.Error(op+" failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("write response", slog.String("error", err.Error()))
	}
}
