package editor

import (
	"fmt"
	"math"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/desertthunder/crate/internal/models"
)

// Summary formats t's effective values as a single line:
//
//	BPM: 128 | Key: Am | Genres: house, techno | Moods: dark
func Summary(t models.Track) string {
	return fmt.Sprintf("BPM: %d | Key: %s | Genres: %s | Moods: %s",
		int(math.Round(EffectiveBPM(t))),
		EffectiveKey(t),
		strings.Join(EffectiveGenres(t), ", "),
		strings.Join(EffectiveMoods(t), ", "),
	)
}

// Clipboard receives copied text.
type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard writes to the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}

// Copy writes text to cb in the background. The returned channel receives exactly one
// result and is then closed.
func Copy(cb Clipboard, text string) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- cb.WriteAll(text)
	}()
	return done
}
