// Package manifest reads YAML image sequence manifests and watches them for
// changes.
package manifest

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v2"

	"image-sequence/internal/sequence"
)

// Manifest describes an image sequence and how to play it.
//
//	framesPerSecond: 12
//	loop: true
//	images:
//	  - https://example.com/frames/1.png
//	  - file:///var/lib/frames/2.png
//	  - spinner_03
type Manifest struct {
	FramesPerSecond int      `yaml:"framesPerSecond"`
	Loop            *bool    `yaml:"loop"`
	Images          []string `yaml:"images"`
}

// Decode reads a Manifest from r. Unknown fields are rejected.
func Decode(r io.Reader) (Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.SetStrict(true)
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return Manifest{}, sequence.ErrEmptySequence
		}
		return Manifest{}, err
	}
	if len(m.Images) == 0 {
		return Manifest{}, sequence.ErrEmptySequence
	}
	if m.FramesPerSecond < 0 {
		return Manifest{}, sequence.ErrInvalidConfig
	}
	return m, nil
}

// Read reads the Manifest in the named file.
func Read(path string) (Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Manifest{}, err
	}
	defer f.Close()
	m, err := Decode(f)
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// Config returns the playback configuration of m, taking unset values
// from def.
func (m Manifest) Config(def sequence.PlaybackConfig) sequence.PlaybackConfig {
	cfg := def
	if m.FramesPerSecond > 0 {
		cfg.FramesPerSecond = m.FramesPerSecond
	}
	if m.Loop != nil {
		cfg.Loop = *m.Loop
	}
	return cfg
}
