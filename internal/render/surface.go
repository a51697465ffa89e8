// Package render provides an in-process rendering surface that tracks which
// frame of a timeline is visible and encodes it on demand.
package render

import (
	"errors"
	"image"
	"image/png"
	"io"
	"sync"
	"time"

	"golang.org/x/image/draw"

	"image-sequence/internal/sequence"
)

// ErrNoFrame is returned when nothing has been shown yet.
var ErrNoFrame = errors.New("no frame to render")

// MaxWidth bounds the width a frame may be scaled to.
const MaxWidth = 4096

// Surface implements sequence.Surface. It is safe for concurrent use.
type Surface struct {
	now func() time.Time

	mu       sync.Mutex
	frame    image.Image
	timeline *sequence.Timeline
	playing  bool
	started  time.Time
	held     int
}

// NewSurface returns an empty Surface. A nil now uses time.Now.
func NewSurface(now func() time.Time) *Surface {
	if now == nil {
		now = time.Now
	}
	return &Surface{now: now}
}

// ShowFrame displays a single image, replacing any timeline.
func (s *Surface) ShowFrame(img image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = img
	s.timeline = nil
	s.playing = false
}

// Clear removes the visible frame or timeline.
func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = nil
	s.timeline = nil
	s.playing = false
	s.held = 0
}

// ShowTimeline displays tl. A playing timeline is stepped by wall clock time
// from this call. A paused timeline holds its currently visible frame, or its
// first frame if tl was not already shown.
func (s *Surface) ShowTimeline(tl *sequence.Timeline, playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if playing {
		s.timeline = tl
		s.playing = true
		s.started = s.now()
		return
	}
	held := 0
	if tl == s.timeline {
		held = s.indexLocked()
	}
	s.timeline = tl
	s.playing = false
	s.held = held
}

// Index returns the index of the visible timeline frame, or -1 when a single
// frame or nothing is shown.
func (s *Surface) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timeline == nil {
		return -1
	}
	return s.indexLocked()
}

func (s *Surface) indexLocked() int {
	if s.timeline.Len() == 0 {
		return -1
	}
	if !s.playing {
		return s.held
	}
	return s.timeline.FrameAt(s.now().Sub(s.started))
}

// Current returns the visible image or nil.
func (s *Surface) Current() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timeline == nil {
		return s.frame
	}
	idx := s.indexLocked()
	if idx < 0 {
		return nil
	}
	return s.timeline.Frames[idx].Image
}

// WritePNG encodes the visible frame to w. If width is positive and differs
// from the frame width, the frame is scaled preserving its aspect ratio.
func (s *Surface) WritePNG(w io.Writer, width int) error {
	img := s.Current()
	if img == nil {
		return ErrNoFrame
	}
	return png.Encode(w, Scale(img, width))
}

// Scale returns img resized to width, preserving aspect ratio. Non-positive
// widths or the image's own width return img unchanged.
func Scale(img image.Image, width int) image.Image {
	b := img.Bounds()
	if width <= 0 || width == b.Dx() || b.Dx() == 0 {
		return img
	}
	if width > MaxWidth {
		width = MaxWidth
	}
	height := b.Dy() * width / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
