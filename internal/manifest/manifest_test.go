package manifest

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"image-sequence/internal/sequence"
)

func TestDecode(t *testing.T) {
	m, err := Decode(strings.NewReader(`
framesPerSecond: 12
loop: false
images:
  - http://a/1.png
  - file:///tmp/2.png
  - spinner_03
`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []string{"http://a/1.png", "file:///tmp/2.png", "spinner_03"}
	if !cmp.Equal(m.Images, want) {
		t.Errorf("unexpected images:\n%s", cmp.Diff(want, m.Images))
	}
	got := m.Config(sequence.DefaultPlaybackConfig())
	if got != (sequence.PlaybackConfig{FramesPerSecond: 12, Loop: false}) {
		t.Errorf("unexpected config %+v", got)
	}
}

func TestManifest_Config_defaults(t *testing.T) {
	m, err := Decode(strings.NewReader("images: [a]\n"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := m.Config(sequence.DefaultPlaybackConfig()); got != sequence.DefaultPlaybackConfig() {
		t.Errorf("expected defaults, got %+v", got)
	}
}

func TestDecode_errors(t *testing.T) {
	for _, test := range []struct {
		name string
		data string
		want error
	}{
		{name: "empty", data: "", want: sequence.ErrEmptySequence},
		{name: "no_images", data: "framesPerSecond: 3\n", want: sequence.ErrEmptySequence},
		{name: "negative_fps", data: "framesPerSecond: -1\nimages: [a]\n", want: sequence.ErrInvalidConfig},
	} {
		_, err := Decode(strings.NewReader(test.data))
		if !errors.Is(err, test.want) {
			t.Errorf("%s: expected %v, got %v", test.name, test.want, err)
		}
	}
	if _, err := Decode(strings.NewReader("unknown: 1\nimages: [a]\n")); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sequence.yaml")
	if err := os.WriteFile(path, []byte("images: [a]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan Manifest, 1)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 10*time.Millisecond, slog.New(slog.DiscardHandler), func(m Manifest) {
			got <- m
		})
	}()

	// Allow the watcher to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("images: [b, c]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case m := <-got:
		if !cmp.Equal(m.Images, []string{"b", "c"}) {
			t.Errorf("unexpected images %v", m.Images)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for manifest change")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
