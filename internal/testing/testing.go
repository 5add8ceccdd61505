// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/crate/internal/models"
)

// MemFile is an in-memory [models.FileHandle].
type MemFile struct {
	name string
	data []byte
	size int64
}

// NewMemFile returns a handle whose reported size is len(data).
func NewMemFile(name string, data []byte) *MemFile {
	return &MemFile{name: name, data: data, size: int64(len(data))}
}

// NewSizedFile returns a handle reporting size bytes of zeros.
func NewSizedFile(name string, size int64) *MemFile {
	return &MemFile{name: name, data: make([]byte, size), size: size}
}

func (f *MemFile) Name() string                 { return f.name }
func (f *MemFile) Size() int64                  { return f.size }
func (f *MemFile) Open() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(f.data)), nil }

// FakeAnalyzer is a test double for services.Analyzer. Nil funcs fall back to simple defaults.
type FakeAnalyzer struct {
	UploadFunc      func(ctx context.Context, file models.FileHandle, onProgress func(int)) (*models.Track, error)
	GetTrackFunc    func(ctx context.Context, id string) (*models.Track, error)
	GetTracksFunc   func(ctx context.Context) ([]models.Track, error)
	UpdateEditsFunc func(ctx context.Context, id string, edits models.Edits) (*models.Track, error)
	ExportErr       error

	mu       sync.Mutex
	uploads  int
	polls    map[string]int
	exported [][]string
}

func (f *FakeAnalyzer) Upload(ctx context.Context, file models.FileHandle, onProgress func(int)) (*models.Track, error) {
	f.mu.Lock()
	f.uploads++
	f.mu.Unlock()

	if f.UploadFunc != nil {
		return f.UploadFunc(ctx, file, onProgress)
	}
	if onProgress != nil {
		onProgress(100)
	}
	return &models.Track{ID: "track-" + file.Name(), Filename: file.Name(), Status: models.TrackQueued}, nil
}

func (f *FakeAnalyzer) GetTrack(ctx context.Context, id string) (*models.Track, error) {
	f.mu.Lock()
	if f.polls == nil {
		f.polls = make(map[string]int)
	}
	f.polls[id]++
	f.mu.Unlock()

	if f.GetTrackFunc != nil {
		return f.GetTrackFunc(ctx, id)
	}
	return &models.Track{ID: id, Status: models.TrackComplete}, nil
}

func (f *FakeAnalyzer) GetTracks(ctx context.Context) ([]models.Track, error) {
	if f.GetTracksFunc != nil {
		return f.GetTracksFunc(ctx)
	}
	return []models.Track{}, nil
}

func (f *FakeAnalyzer) UpdateEdits(ctx context.Context, id string, edits models.Edits) (*models.Track, error) {
	if f.UpdateEditsFunc != nil {
		return f.UpdateEditsFunc(ctx, id, edits)
	}
	return &models.Track{ID: id, Status: models.TrackComplete, Edits: &edits}, nil
}

func (f *FakeAnalyzer) ExportBatch(ctx context.Context, ids []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ExportErr != nil {
		return "", f.ExportErr
	}
	f.exported = append(f.exported, append([]string(nil), ids...))
	return "export.csv", nil
}

// Uploads returns how many times Upload was called.
func (f *FakeAnalyzer) Uploads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads
}

// Polls returns how many times GetTrack was called for id.
func (f *FakeAnalyzer) Polls(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls[id]
}

// Exported returns every id batch passed to ExportBatch.
func (f *FakeAnalyzer) Exported() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exported
}

// StatusSequence returns a GetTrackFunc that reports each status in turn and then repeats the last one.
func StatusSequence(statuses ...models.TrackStatus) func(context.Context, string) (*models.Track, error) {
	var mu sync.Mutex
	calls := make(map[string]int)
	return func(_ context.Context, id string) (*models.Track, error) {
		mu.Lock()
		defer mu.Unlock()
		i := calls[id]
		calls[id]++
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		return &models.Track{ID: id, Status: statuses[i], FinalBPM: 120}, nil
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		req.Body.Close()
	}
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func MustWriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}
