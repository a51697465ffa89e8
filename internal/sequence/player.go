package sequence

import (
	"image"
	"time"
)

// PlayerState is the playback state of a Player.
type PlayerState int

const (
	Idle PlayerState = iota
	Playing
	Stopped
)

func (s PlayerState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s PlayerState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Scheduler arranges for fire to be called once after d. The returned stop
// function cancels the call if it has not happened yet.
type Scheduler func(d time.Duration, fire func()) (stop func() bool)

// Surface presents frames. Per-frame stepping through a playing timeline is
// the surface's job. Clear drops every reference to previously shown images.
type Surface interface {
	ShowFrame(img image.Image)
	ShowTimeline(tl *Timeline, playing bool)
	Clear()
}

// Player drives a Timeline and detects loop boundaries. A Player is not safe
// for concurrent use; the Loader only calls it from its coordinator.
type Player struct {
	schedule Scheduler
	surface  Surface
	onLoop   func()

	frames   []image.Image
	config   PlaybackConfig
	timeline *Timeline
	state    PlayerState

	stop  func() bool
	epoch uint64
}

// NewPlayer returns an idle Player. onLoop is called each time a looping
// timeline completes a cycle. surface may be nil.
func NewPlayer(schedule Scheduler, surface Surface, onLoop func()) *Player {
	return &Player{
		schedule: schedule,
		surface:  surface,
		onLoop:   onLoop,
		config:   DefaultPlaybackConfig(),
	}
}

// Build replaces any existing timeline with one built from frames and cfg
// and leaves the player Idle.
func (p *Player) Build(frames []image.Image, cfg PlaybackConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	p.teardown()
	p.frames = frames
	p.config = cfg
	p.timeline = NewTimeline(frames, cfg)
	p.state = Idle
	if p.surface != nil {
		p.surface.ShowTimeline(p.timeline, false)
	}
	return nil
}

// Start begins playback from Idle. It is a no-op in any other state.
func (p *Player) Start() error {
	if p.timeline == nil {
		return ErrNotLoaded
	}
	if p.state != Idle {
		return nil
	}
	p.arm()
	p.state = Playing
	if p.surface != nil {
		p.surface.ShowTimeline(p.timeline, true)
	}
	return nil
}

// Reconfigure applies cfg. If it differs from the current configuration and
// a timeline exists, the timeline is rebuilt from the frames already held and
// playback resumes if it was playing. It reports whether a rebuild happened.
func (p *Player) Reconfigure(cfg PlaybackConfig) (bool, error) {
	if err := cfg.Validate(); err != nil {
		return false, err
	}
	if cfg == p.config {
		return false, nil
	}
	if p.timeline == nil {
		p.config = cfg
		return false, nil
	}
	wasPlaying := p.state == Playing
	err := p.Build(p.frames, cfg)
	if err != nil {
		return false, err
	}
	if wasPlaying {
		err = p.Start()
	}
	return true, err
}

// Stop ends playback, leaving the current frame displayed.
func (p *Player) Stop() error {
	if p.timeline == nil {
		return ErrNotLoaded
	}
	if p.state != Playing {
		return nil
	}
	p.cancelTimer()
	p.state = Stopped
	if p.surface != nil {
		p.surface.ShowTimeline(p.timeline, false)
	}
	return nil
}

// Reset discards the timeline and its frames, clears the surface and
// returns to Idle.
func (p *Player) Reset() {
	p.teardown()
	p.frames = nil
	p.state = Idle
	if p.surface != nil {
		p.surface.Clear()
	}
}

// State returns the current playback state.
func (p *Player) State() PlayerState { return p.state }

// Config returns the current playback configuration.
func (p *Player) Config() PlaybackConfig { return p.config }

// Timeline returns the current timeline or nil.
func (p *Player) Timeline() *Timeline { return p.timeline }

func (p *Player) arm() {
	p.epoch++
	epoch := p.epoch
	p.stop = p.schedule(p.timeline.TotalDuration(), func() { p.fire(epoch) })
}

// fire handles a completion timer. Timers armed for an earlier timeline or
// run are ignored.
func (p *Player) fire(epoch uint64) {
	if epoch != p.epoch || p.state != Playing {
		return
	}
	p.stop = nil
	if !p.config.Loop {
		p.state = Stopped
		return
	}
	if p.onLoop != nil {
		p.onLoop()
	}
	p.arm()
}

func (p *Player) cancelTimer() {
	p.epoch++
	if p.stop != nil {
		p.stop()
		p.stop = nil
	}
}

func (p *Player) teardown() {
	p.cancelTimer()
	p.timeline = nil
}
