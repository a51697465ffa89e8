package sequence

import "errors"

var (
	// ErrNotFound is returned when a frame source cannot be resolved:
	// a missing file, an HTTP 404 or an unknown resource name.
	ErrNotFound = errors.New("frame source not found")

	// ErrDecode is returned when fetched bytes are not a valid image.
	ErrDecode = errors.New("frame decode failed")

	// ErrPoolSaturated is returned when the fetch pool rejects a submission.
	ErrPoolSaturated = errors.New("fetch pool saturated")

	// ErrSuperseded marks a result from a generation that is no longer current.
	// Such results are dropped by the loader.
	ErrSuperseded = errors.New("generation superseded")

	// errSettled marks a result for a generation that already became ready
	// or failed.
	errSettled = errors.New("generation already settled")

	// ErrTimeout is returned when a generation did not complete in time.
	ErrTimeout = errors.New("load timed out")

	// ErrEmptySequence is returned when a load request has no frames.
	ErrEmptySequence = errors.New("empty image sequence")

	// ErrInvalidConfig is returned for a playback configuration with a
	// non-positive frame rate.
	ErrInvalidConfig = errors.New("frames per second must be positive")

	// ErrNotLoaded is returned by playback operations before a sequence
	// is ready.
	ErrNotLoaded = errors.New("no sequence loaded")
)

// Error kinds reported as loadFailed reasons.
const (
	KindNotFound      = "NotFound"
	KindDecode        = "DecodeError"
	KindPoolSaturated = "PoolSaturated"
	KindTimeout       = "Timeout"
	KindUnknown       = "Unknown"
)

// Kind returns the error kind name for err.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrDecode):
		return KindDecode
	case errors.Is(err, ErrPoolSaturated):
		return KindPoolSaturated
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	default:
		return KindUnknown
	}
}

// ErrLoaderClosed is returned by Loader methods once its Run loop has exited.
var ErrLoaderClosed = errors.New("loader closed")
