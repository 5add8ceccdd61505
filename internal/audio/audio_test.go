package audio

import (
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crate/internal/models"
	tu "github.com/desertthunder/crate/internal/testing"
)

// id3v23 builds a minimal ID3v2.3 tag holding ISO-8859-1 text frames.
func id3v23(frames [][2]string) []byte {
	var body []byte
	for _, f := range frames {
		content := append([]byte{0}, f[1]...)
		header := make([]byte, 10)
		copy(header, f[0])
		binary.BigEndian.PutUint32(header[4:8], uint32(len(content)))
		body = append(body, header...)
		body = append(body, content...)
	}

	size := len(body)
	tag := []byte{'I', 'D', '3', 3, 0, 0,
		byte(size >> 21 & 0x7f), byte(size >> 14 & 0x7f), byte(size >> 7 & 0x7f), byte(size & 0x7f)}
	return append(tag, body...)
}

func TestProbe(t *testing.T) {
	dir := t.TempDir()

	t.Run("Tagged File", func(t *testing.T) {
		path := filepath.Join(dir, "tagged.mp3")
		data := id3v23([][2]string{{"TIT2", "Night Drive"}, {"TPE1", "Crate Digger"}, {"TALB", "Loops"}})
		tu.MustWriteFile(t, path, append(data, make([]byte, 64)...))

		info, err := Probe(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !info.HasTags {
			t.Fatal("expected tags to be read")
		}
		if info.Title != "Night Drive" || info.Artist != "Crate Digger" || info.Album != "Loops" {
			t.Errorf("unexpected tags %+v", info)
		}
		if info.Size != int64(len(data)+64) {
			t.Errorf("unexpected size %d", info.Size)
		}
	})

	t.Run("Untagged File Uses Name", func(t *testing.T) {
		path := filepath.Join(dir, "Sunset Loop.mp3")
		tu.MustWriteFile(t, path, []byte("definitely not audio"))

		info, err := Probe(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if info.HasTags {
			t.Error("expected no tags")
		}
		if info.Title != "Sunset Loop" {
			t.Errorf("expected title from file name, got %q", info.Title)
		}
		if info.Duration < 0 || info.Duration > time.Second {
			t.Errorf("expected a tiny estimated duration, got %s", info.Duration)
		}
	})

	t.Run("Missing File", func(t *testing.T) {
		if _, err := Probe(filepath.Join(dir, "missing.mp3")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("Directory", func(t *testing.T) {
		if _, err := Probe(dir); err == nil {
			t.Error("expected error for a directory")
		}
	})
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.mp3", "B.MP3", "notes.txt", "sub/c.mp3", ".hidden/d.mp3", "sub/.e.mp3"} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
		tu.MustWriteFile(t, path, []byte(name))
	}

	t.Run("Walks Directories", func(t *testing.T) {
		files, err := Collect([]string{dir}, ".mp3")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var names []string
		for _, f := range files {
			names = append(names, f.Name())
		}
		slices.Sort(names)
		if !slices.Equal(names, []string{"B.MP3", "a.mp3", "c.mp3"}) {
			t.Errorf("unexpected files %v", names)
		}
	})

	t.Run("Explicit Files Pass Through", func(t *testing.T) {
		files, err := Collect([]string{filepath.Join(dir, "notes.txt")}, ".mp3")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(files) != 1 || files[0].Size() != int64(len("notes.txt")) {
			t.Errorf("expected explicit file to be returned, got %v", files)
		}
	})

	t.Run("Missing Path", func(t *testing.T) {
		if _, err := Collect([]string{filepath.Join(dir, "nope")}, ".mp3"); err == nil {
			t.Error("expected error for missing path")
		}
	})
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, ".mp3", 20*time.Millisecond, log.New(io.Discard))
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	found := make(chan models.FileHandle, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, func(f models.FileHandle) { found <- f }) }()

	tu.MustWriteFile(t, filepath.Join(dir, "ignored.txt"), []byte("x"))
	tu.MustWriteFile(t, filepath.Join(dir, "new.mp3"), []byte("audio"))

	select {
	case f := <-found:
		if f.Name() != "new.mp3" {
			t.Errorf("expected new.mp3, got %s", f.Name())
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for watcher")
	}

	select {
	case f := <-found:
		t.Errorf("expected a single report, got extra %s", f.Name())
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcherWaitsForCallbacks(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, ".mp3", 10*time.Millisecond, log.New(io.Discard))
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	var finished atomic.Bool
	onFile := func(models.FileHandle) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		finished.Store(true)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, onFile) }()

	tu.MustWriteFile(t, filepath.Join(dir, "slow.mp3"), []byte("audio"))

	select {
	case <-entered:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for watcher")
	}

	cancel()
	select {
	case <-done:
		t.Fatal("Run returned while a callback was still running")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
		if !finished.Load() {
			t.Error("expected callback to finish before Run returned")
		}
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}
