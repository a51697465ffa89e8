package sequence

import (
	"context"
	"image"
	"log/slog"
	"time"

	"image-sequence/internal/platform/metrics"
)

// LoaderConfig holds the collaborators of a Loader.
type LoaderConfig struct {
	Fetcher Fetcher
	Pool    *Pool
	Sink    Sink
	Surface Surface
	Log     *slog.Logger

	// Metrics may be nil to disable metric recording.
	Metrics *metrics.Metrics

	// LoadTimeout bounds how long a generation may take to become ready.
	// Zero disables the timeout.
	LoadTimeout time.Duration

	// Schedule overrides the timer used for playback loop boundaries.
	// Fired callbacks are always run on the coordinator.
	Schedule Scheduler
}

// Loader coordinates frame fetches for successive load requests and hands
// completed sequences to its Player. All sequence and player state is owned
// by the goroutine executing Run; every other method passes a message to it.
type Loader struct {
	fetcher Fetcher
	pool    *Pool
	sink    Sink
	surface Surface
	log     *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration

	inbox  chan any
	closed chan struct{}

	// Owned by the coordinator.
	runCtx context.Context
	gen    Generation
	cur    *state
	config PlaybackConfig
	player *Player

	// discarded counts results dropped because their generation was
	// superseded or had already finished.
	discarded uint64
}

type (
	loadRequest struct {
		uris   []string
		config PlaybackConfig
		reply  chan Generation
	}
	reconfigureRequest struct {
		patch ConfigPatch
		reply chan reconfigureReply
	}
	reconfigureReply struct {
		config PlaybackConfig
		err    error
	}
	stopRequest struct {
		reply chan error
	}
	statusRequest struct {
		reply chan Status
	}
	resultMessage struct {
		Result
	}
	timerMessage struct {
		fire func()
	}
	timeoutMessage struct {
		generation Generation
	}
)

// NewLoader returns a Loader. Run must be called for it to make progress.
func NewLoader(cfg LoaderConfig) *Loader {
	if cfg.Pool == nil {
		cfg.Pool = NewPool(DefaultWorkers, DefaultCapacity)
	}
	if cfg.Log == nil {
		cfg.Log = slog.New(slog.DiscardHandler)
	}
	l := &Loader{
		fetcher: cfg.Fetcher,
		pool:    cfg.Pool,
		sink:    cfg.Sink,
		surface: cfg.Surface,
		log:     cfg.Log.With(slog.String("component", "loader")),
		metrics: cfg.Metrics,
		timeout: cfg.LoadTimeout,
		inbox:   make(chan any, 64),
		closed:  make(chan struct{}),
		config:  DefaultPlaybackConfig(),
	}
	schedule := cfg.Schedule
	if schedule == nil {
		schedule = l.afterFunc
	}
	l.player = NewPlayer(l.onCoordinator(schedule), cfg.Surface, l.looped)
	return l
}

// Run processes requests and fetch results until ctx is cancelled. It must
// be called exactly once.
func (l *Loader) Run(ctx context.Context) error {
	l.runCtx = ctx
	defer func() {
		close(l.closed)
		if l.cur != nil {
			l.cur.retire()
		}
		l.player.Reset()
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m := <-l.inbox:
			l.handle(m)
		}
	}
}

// Load starts loading uris as a new generation, superseding any load in
// progress, and returns the new generation. Once every frame is fetched the
// sequence is played with cfg.
func (l *Loader) Load(ctx context.Context, uris []string, cfg PlaybackConfig) (Generation, error) {
	if len(uris) == 0 {
		return 0, ErrEmptySequence
	}
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	req := loadRequest{
		uris:   append([]string(nil), uris...),
		config: cfg,
		reply:  make(chan Generation, 1),
	}
	return roundTrip(ctx, l, req, req.reply)
}

// Reconfigure changes the playback configuration. A ready sequence is
// rebuilt from its already fetched frames.
func (l *Loader) Reconfigure(ctx context.Context, cfg PlaybackConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	_, err := l.Update(ctx, ConfigPatch{FramesPerSecond: &cfg.FramesPerSecond, Loop: &cfg.Loop})
	return err
}

// Update merges patch into the current playback configuration on the
// coordinator and applies the result as Reconfigure does. It returns the
// configuration in effect afterwards.
func (l *Loader) Update(ctx context.Context, patch ConfigPatch) (PlaybackConfig, error) {
	req := reconfigureRequest{patch: patch, reply: make(chan reconfigureReply, 1)}
	rep, err := roundTrip(ctx, l, req, req.reply)
	if err != nil {
		return PlaybackConfig{}, err
	}
	return rep.config, rep.err
}

// Stop stops playback of the current sequence.
func (l *Loader) Stop(ctx context.Context) error {
	req := stopRequest{reply: make(chan error, 1)}
	err, rtErr := roundTrip(ctx, l, req, req.reply)
	if rtErr != nil {
		return rtErr
	}
	return err
}

// Status returns a snapshot of the current generation and player.
func (l *Loader) Status(ctx context.Context) (Status, error) {
	req := statusRequest{reply: make(chan Status, 1)}
	return roundTrip(ctx, l, req, req.reply)
}

func roundTrip[T any](ctx context.Context, l *Loader, req any, reply <-chan T) (T, error) {
	var zero T
	select {
	case l.inbox <- req:
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-l.closed:
		return zero, ErrLoaderClosed
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-l.closed:
		return zero, ErrLoaderClosed
	}
}

// post delivers m to the coordinator unless the loader has closed.
func (l *Loader) post(m any) {
	select {
	case l.inbox <- m:
	case <-l.closed:
	}
}

func (l *Loader) handle(m any) {
	switch m := m.(type) {
	case loadRequest:
		m.reply <- l.load(m.uris, m.config)
	case reconfigureRequest:
		m.reply <- l.reconfigure(m.patch)
	case stopRequest:
		m.reply <- l.player.Stop()
	case statusRequest:
		m.reply <- l.status()
	case resultMessage:
		l.result(m.Result)
	case timerMessage:
		m.fire()
	case timeoutMessage:
		l.expire(m.generation)
	}
}

func (l *Loader) load(uris []string, cfg PlaybackConfig) Generation {
	l.gen++
	g := l.gen
	if l.cur != nil {
		l.log.Debug("generation superseded", slog.Uint64("generation", uint64(l.cur.generation)))
		l.cur.retire()
	}
	l.player.Reset()
	l.config = cfg

	ctx, cancel := context.WithCancel(l.runCtx)
	st := newState(g, len(uris), cancel)
	l.cur = st
	if l.metrics != nil {
		l.metrics.IncLoads()
	}
	l.log.Info("loading sequence",
		slog.Uint64("generation", uint64(g)),
		slog.Int("frames", len(uris)),
		slog.Int("fps", cfg.FramesPerSecond),
		slog.Bool("loop", cfg.Loop))

	if l.timeout > 0 {
		st.timeout = time.AfterFunc(l.timeout, func() { l.post(timeoutMessage{generation: g}) })
	}

	for i, uri := range uris {
		slot := Slot{Index: i, URI: uri, Generation: g}
		err := l.pool.Submit(ctx, func(ctx context.Context) {
			img, err := l.fetcher.Fetch(ctx, slot)
			l.post(resultMessage{Result{Index: slot.Index, Generation: slot.Generation, Image: img, Err: err}})
		})
		if err != nil {
			l.log.Error("frame submission rejected",
				slog.Uint64("generation", uint64(g)),
				slog.Int("index", i),
				slog.String("error", err.Error()))
			l.fail(st, err)
			break
		}
	}
	return g
}

// admit reports why r can no longer contribute to the current generation,
// or nil if it can.
func (l *Loader) admit(r Result) error {
	st := l.cur
	switch {
	case st == nil || r.Generation != st.generation:
		return ErrSuperseded
	case st.failed != "" || st.ready:
		return errSettled
	}
	return nil
}

func (l *Loader) result(r Result) {
	if err := l.admit(r); err != nil {
		l.log.Debug("discarding stale frame",
			slog.Uint64("generation", uint64(r.Generation)),
			slog.Int("index", r.Index),
			slog.String("reason", err.Error()))
		l.discarded++
		if l.metrics != nil {
			l.metrics.IncStaleResults()
		}
		return
	}
	st := l.cur
	if _, dup := st.completed[r.Index]; dup {
		return
	}
	if _, dup := st.failures[r.Index]; dup {
		return
	}

	st.pending--
	if r.Err != nil {
		st.failures[r.Index] = r.Err
		l.log.Warn("frame fetch failed",
			slog.Uint64("generation", uint64(r.Generation)),
			slog.Int("index", r.Index),
			slog.String("error", r.Err.Error()))
		if l.metrics != nil {
			l.metrics.IncFetchErrors(Kind(r.Err))
		}
	} else {
		st.completed[r.Index] = r.Image
		l.log.Debug("frame ready",
			slog.Uint64("generation", uint64(r.Generation)),
			slog.Int("index", r.Index))
		if l.metrics != nil {
			l.metrics.IncFramesFetched()
		}
		if r.Index == 0 {
			l.firstFrame(st, r.Image)
		}
	}

	switch {
	case len(st.completed) == st.total:
		l.ready(st)
	case st.settled():
		l.fail(st, st.firstFailure())
	}
}

func (l *Loader) firstFrame(st *state, img image.Image) {
	if l.surface != nil {
		l.surface.ShowFrame(img)
	}
	l.emit(Event{Name: EventFirstFrameReady, Generation: st.generation, Image: img})
}

func (l *Loader) ready(st *state) {
	st.ready = true
	if st.timeout != nil {
		st.timeout.Stop()
	}
	st.frames = st.orderedFrames()
	l.log.Info("sequence ready", slog.Uint64("generation", uint64(st.generation)), slog.Int("frames", st.total))
	if l.metrics != nil {
		l.metrics.IncSequencesReady()
	}
	l.emit(Event{Name: EventSequenceReady, Generation: st.generation, Frames: st.total})

	err := l.player.Build(st.frames, l.config)
	if err == nil {
		err = l.player.Start()
	}
	if err != nil {
		l.log.Error("start playback failed", slog.String("error", err.Error()))
	}
}

// fail marks st as terminally failed and emits loadFailed once.
func (l *Loader) fail(st *state, err error) {
	if st.failed != "" || st.ready {
		return
	}
	reason := Kind(err)
	st.failed = reason
	st.cancel()
	if st.timeout != nil {
		st.timeout.Stop()
	}
	l.log.Warn("sequence load failed",
		slog.Uint64("generation", uint64(st.generation)),
		slog.String("reason", reason),
		slog.Int("completed", len(st.completed)),
		slog.Int("total", st.total))
	if l.metrics != nil {
		l.metrics.IncLoadFailures(reason)
	}
	// Release the first frame if it was shown.
	l.player.Reset()
	l.emit(Event{Name: EventLoadFailed, Generation: st.generation, Reason: reason})
}

func (l *Loader) expire(g Generation) {
	st := l.cur
	if st == nil || st.generation != g {
		return
	}
	err := st.firstFailure()
	if err == nil {
		err = ErrTimeout
	}
	l.fail(st, err)
}

func (l *Loader) reconfigure(patch ConfigPatch) reconfigureReply {
	cfg := patch.Apply(l.config)
	if err := cfg.Validate(); err != nil {
		return reconfigureReply{config: l.config, err: err}
	}
	l.config = cfg
	rebuilt, err := l.player.Reconfigure(cfg)
	if err != nil {
		return reconfigureReply{config: cfg, err: err}
	}
	if rebuilt {
		l.log.Info("timeline rebuilt",
			slog.Int("fps", cfg.FramesPerSecond),
			slog.Bool("loop", cfg.Loop),
			slog.String("player", l.player.State().String()))
	}
	return reconfigureReply{config: cfg}
}

func (l *Loader) looped() {
	var g Generation
	if l.cur != nil {
		g = l.cur.generation
	}
	if l.metrics != nil {
		l.metrics.IncLoops()
	}
	l.emit(Event{Name: EventLooped, Generation: g, Data: loopedData})
}

func (l *Loader) status() Status {
	s := Status{
		Generation:      l.gen,
		Discarded:       l.discarded,
		Player:          l.player.State(),
		Config:          l.config,
		TotalDurationMS: l.player.Timeline().TotalDuration().Milliseconds(),
	}
	if st := l.cur; st != nil {
		s.Total = st.total
		s.Completed = len(st.completed)
		s.Pending = st.pending
		s.Ready = st.ready
		s.Failed = st.failed
	}
	return s
}

func (l *Loader) emit(ev Event) {
	if l.sink != nil {
		l.sink.Emit(ev)
	}
}

// afterFunc is the default Scheduler, backed by time.AfterFunc.
func (l *Loader) afterFunc(d time.Duration, fire func()) func() bool {
	return time.AfterFunc(d, fire).Stop
}

// onCoordinator wraps schedule so that fired callbacks are delivered to the
// coordinator goroutine instead of running on the timer's goroutine.
func (l *Loader) onCoordinator(schedule Scheduler) Scheduler {
	return func(d time.Duration, fire func()) func() bool {
		return schedule(d, func() { l.post(timerMessage{fire: fire}) })
	}
}
