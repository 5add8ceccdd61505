// Package audio reads local audio files: embedded tags, duration, directory scans and
// watch folders. Nothing here is sent to the server; the remote analysis is authoritative.
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/tcolgate/mp3"
)

// fallbackBitrate is used to estimate duration when no MP3 frame can be decoded.
const fallbackBitrate = 192000

// Info is what can be learned about a file without uploading it.
type Info struct {
	Path     string
	Size     int64
	Title    string
	Artist   string
	Album    string
	Genre    string
	Year     int
	Format   string
	HasTags  bool
	Duration time.Duration
}

// Probe reads embedded tags and the duration of the file at path.
//
// Files without readable tags are not an error: Title falls back to the file name.
func Probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return Info{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if stat.IsDir() {
		return Info{}, fmt.Errorf("%s is a directory", path)
	}

	info := Info{
		Path:  path,
		Size:  stat.Size(),
		Title: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
	}

	if md, err := tag.ReadFrom(f); err == nil {
		info.HasTags = true
		info.Format = string(md.Format())
		info.Artist = md.Artist()
		info.Album = md.Album()
		info.Genre = md.Genre()
		info.Year = md.Year()
		if title := md.Title(); title != "" {
			info.Title = title
		}
	}

	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return info, fmt.Errorf("failed to rewind %s: %w", path, err)
		}
		info.Duration = mp3Duration(f, stat.Size())
	}
	return info, nil
}

// mp3Duration sums decoded frame durations. When no frame decodes at all the duration is
// estimated from the file size.
func mp3Duration(r io.Reader, size int64) time.Duration {
	dec := mp3.NewDecoder(r)

	var (
		total   time.Duration
		frame   mp3.Frame
		skipped int
		frames  int
	)
	for {
		if err := dec.Decode(&frame, &skipped); err != nil {
			if frames == 0 && !errors.Is(err, io.EOF) {
				return time.Duration(size*8) * time.Second / fallbackBitrate
			}
			break
		}
		total += frame.Duration()
		frames++
	}
	return total
}
