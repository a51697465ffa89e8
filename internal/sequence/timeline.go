package sequence

import (
	"image"
	"time"
)

// TimelineFrame is one frame of a Timeline and how long it is shown.
type TimelineFrame struct {
	Image    image.Image
	Duration time.Duration
}

// Timeline is the ordered list of frames to animate.
type Timeline struct {
	Frames []TimelineFrame
	// OneShot timelines stop on their last frame instead of looping.
	OneShot bool
}

// NewTimeline builds a Timeline from index-ordered frames, giving every frame
// the uniform duration derived from cfg.
func NewTimeline(frames []image.Image, cfg PlaybackConfig) *Timeline {
	d := cfg.FrameDuration()
	tl := &Timeline{
		Frames:  make([]TimelineFrame, len(frames)),
		OneShot: !cfg.Loop,
	}
	for i, img := range frames {
		tl.Frames[i] = TimelineFrame{Image: img, Duration: d}
	}
	return tl
}

// Len returns the number of frames.
func (t *Timeline) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Frames)
}

// TotalDuration returns the sum of all frame durations.
func (t *Timeline) TotalDuration() time.Duration {
	if t == nil {
		return 0
	}
	var total time.Duration
	for _, f := range t.Frames {
		total += f.Duration
	}
	return total
}

// FrameAt returns the index of the frame visible at elapsed time into the
// animation. Looping timelines wrap; one-shot timelines hold the last frame.
func (t *Timeline) FrameAt(elapsed time.Duration) int {
	n := t.Len()
	if n == 0 {
		return -1
	}
	total := t.TotalDuration()
	if elapsed < 0 || total <= 0 {
		return 0
	}
	if elapsed >= total {
		if t.OneShot {
			return n - 1
		}
		elapsed %= total
	}
	for i, f := range t.Frames {
		if elapsed < f.Duration {
			return i
		}
		elapsed -= f.Duration
	}
	return n - 1
}
