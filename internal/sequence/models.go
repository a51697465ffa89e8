package sequence

import (
	"image"
	"time"
)

// Strategy classifies how the bytes for a frame URI are obtained.
type Strategy int

const (
	// Remote frames are fetched over HTTP(S).
	Remote Strategy = iota
	// LocalFile frames are read from the local filesystem.
	LocalFile
	// NamedResource frames are looked up by name in the bundled resources.
	NamedResource
)

func (s Strategy) String() string {
	switch s {
	case Remote:
		return "remote"
	case LocalFile:
		return "local-file"
	case NamedResource:
		return "named-resource"
	default:
		return "unknown"
	}
}

// Generation identifies the cohort of fetches belonging to one load request.
type Generation uint64

// Slot is one requested frame of a load request.
type Slot struct {
	Index      int
	URI        string
	Generation Generation
}

// Result is the outcome of fetching a single Slot.
type Result struct {
	Index      int
	Generation Generation
	Image      image.Image
	Err        error
}

// Default playback values used when a request does not set them.
const (
	DefaultFramesPerSecond = 24
	DefaultLoop            = true
)

// PlaybackConfig controls how a completed sequence is played.
type PlaybackConfig struct {
	FramesPerSecond int  `json:"framesPerSecond" yaml:"framesPerSecond"`
	Loop            bool `json:"loop" yaml:"loop"`
}

// DefaultPlaybackConfig returns the configuration applied when none is given.
func DefaultPlaybackConfig() PlaybackConfig {
	return PlaybackConfig{FramesPerSecond: DefaultFramesPerSecond, Loop: DefaultLoop}
}

// ConfigPatch is a partial PlaybackConfig. Nil fields keep their current value.
type ConfigPatch struct {
	FramesPerSecond *int  `json:"framesPerSecond"`
	Loop            *bool `json:"loop"`
}

// Apply returns cfg with the fields set in p replaced.
func (p ConfigPatch) Apply(cfg PlaybackConfig) PlaybackConfig {
	if p.FramesPerSecond != nil {
		cfg.FramesPerSecond = *p.FramesPerSecond
	}
	if p.Loop != nil {
		cfg.Loop = *p.Loop
	}
	return cfg
}

// Validate reports whether c can be used to build a Timeline.
func (c PlaybackConfig) Validate() error {
	if c.FramesPerSecond <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// FrameDuration returns the display duration shared by every frame,
// 1000/fps milliseconds rounded to the nearest millisecond.
func (c PlaybackConfig) FrameDuration() time.Duration {
	fps := c.FramesPerSecond
	if fps <= 0 {
		return 0
	}
	ms := (1000 + fps/2) / fps
	return time.Duration(ms) * time.Millisecond
}

// state holds the aggregate for the current generation. It is only ever
// touched by the Loader's coordinator goroutine.
type state struct {
	generation Generation
	total      int
	completed  map[int]image.Image
	pending    int

	// failures records the first error for each failed index.
	failures map[int]error
	// failed is the terminal failure reason once loadFailed was emitted.
	failed string
	ready  bool
	frames []image.Image

	cancel  func()
	timeout *time.Timer
}

func newState(g Generation, total int, cancel func()) *state {
	return &state{
		generation: g,
		total:      total,
		completed:  make(map[int]image.Image, total),
		pending:    total,
		failures:   make(map[int]error),
		cancel:     cancel,
	}
}

// settled reports whether no fetchers of the generation are outstanding.
func (s *state) settled() bool {
	return s.pending == 0
}

// orderedFrames returns the completed frames sorted by index. It must only be
// called once every index has completed.
func (s *state) orderedFrames() []image.Image {
	frames := make([]image.Image, s.total)
	for i := range frames {
		frames[i] = s.completed[i]
	}
	return frames
}

// firstFailure returns the failure with the lowest frame index.
func (s *state) firstFailure() error {
	idx := -1
	for i := range s.failures {
		if idx < 0 || i < idx {
			idx = i
		}
	}
	if idx < 0 {
		return nil
	}
	return s.failures[idx]
}

// retire cancels outstanding work and releases decoded frames.
func (s *state) retire() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.timeout != nil {
		s.timeout.Stop()
	}
	s.completed = nil
	s.frames = nil
}

// Status is a point-in-time snapshot of the loader and player.
type Status struct {
	Generation      Generation     `json:"generation"`
	Total           int            `json:"total"`
	Completed       int            `json:"completed"`
	Pending         int            `json:"pending"`
	Ready           bool           `json:"ready"`
	Failed          string         `json:"failed,omitempty"`
	Discarded       uint64         `json:"discarded"`
	Player          PlayerState    `json:"player"`
	Config          PlaybackConfig `json:"config"`
	TotalDurationMS int64          `json:"totalDurationMs"`
}
