package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
	tu "github.com/desertthunder/crate/internal/testing"
)

const trackJSON = `{
	"id": "t1",
	"filename": "song.mp3",
	"status": "complete",
	"final_bpm": 128,
	"final_key": "A minor",
	"suggested_genres": ["house"],
	"suggested_moods": ["happy"],
	"analysis": {"bpm": 127.6, "key_key": "A", "key_scale": "minor"}
}`

func newTestAnalyzer(t *testing.T, handler http.HandlerFunc) *AnalyzerService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewAnalyzerService(NewAPIService(server.URL, nil), AnalyzerOpts{OutputDir: t.TempDir()})
}

func TestAnalyzerService(t *testing.T) {
	t.Run("Upload", func(t *testing.T) {
		t.Run("Sends Multipart File And Reports Progress", func(t *testing.T) {
			payload := bytes.Repeat([]byte("a"), 64*1024)

			svc := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/upload" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				file, header, err := r.FormFile("file")
				if err != nil {
					t.Errorf("expected multipart field 'file': %v", err)
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				defer file.Close()

				data, _ := io.ReadAll(file)
				if header.Filename != "song.mp3" {
					t.Errorf("expected filename song.mp3, got %s", header.Filename)
				}
				if len(data) != len(payload) {
					t.Errorf("expected %d bytes, got %d", len(payload), len(data))
				}
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte(`{"id": "t1", "filename": "song.mp3", "status": "queued"}`))
			})

			var mu sync.Mutex
			var seen []int
			track, err := svc.Upload(context.Background(), tu.NewMemFile("song.mp3", payload), func(p int) {
				mu.Lock()
				seen = append(seen, p)
				mu.Unlock()
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if track.ID != "t1" || track.Status != models.TrackQueued {
				t.Errorf("unexpected track %+v", track)
			}

			mu.Lock()
			defer mu.Unlock()
			if len(seen) == 0 || seen[len(seen)-1] != 100 {
				t.Fatalf("expected progress to finish at 100, got %v", seen)
			}
			for i := 1; i < len(seen); i++ {
				if seen[i] <= seen[i-1] {
					t.Errorf("expected strictly increasing progress, got %v", seen)
					break
				}
			}
		})

		t.Run("Server Detail Becomes APIError", func(t *testing.T) {
			svc := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
				io.Copy(io.Discard, r.Body)
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"detail": "Only MP3 files are supported"}`))
			})

			_, err := svc.Upload(context.Background(), tu.NewMemFile("song.mp3", []byte("abc")), nil)

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Detail != "Only MP3 files are supported" {
				t.Errorf("unexpected detail %q", apiErr.Detail)
			}
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Error("expected APIError to unwrap to ErrAPIRequest")
			}
		})
	})

	t.Run("GetTrack", func(t *testing.T) {
		t.Run("Decodes Track", func(t *testing.T) {
			svc := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/tracks/t1" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.Write([]byte(trackJSON))
			})

			track, err := svc.GetTrack(context.Background(), "t1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if track.FinalBPM != 128 || track.Analysis == nil || track.Analysis.Key != "A" {
				t.Errorf("unexpected track %+v", track)
			}
		})

		t.Run("Not Found", func(t *testing.T) {
			svc := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"detail": "Track not found"}`))
			})

			_, err := svc.GetTrack(context.Background(), "missing")
			if !errors.Is(err, shared.ErrTrackNotFound) {
				t.Errorf("expected ErrTrackNotFound, got %v", err)
			}
		})

		t.Run("Empty ID", func(t *testing.T) {
			svc := NewAnalyzerService(nil, AnalyzerOpts{})
			if _, err := svc.GetTrack(context.Background(), ""); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})
	})

	t.Run("GetTracks", func(t *testing.T) {
		tests := []struct {
			name string
			body string
			want int
		}{
			{"Populated", `{"tracks": [` + trackJSON + `]}`, 1},
			{"Empty", `{"tracks": []}`, 0},
			{"Missing Key", `{}`, 0},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				svc := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
					w.Write([]byte(tt.body))
				})

				tracks, err := svc.GetTracks(context.Background())
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if tracks == nil {
					t.Fatal("expected non-nil slice")
				}
				if len(tracks) != tt.want {
					t.Errorf("expected %d tracks, got %d", tt.want, len(tracks))
				}
			})
		}
	})

	t.Run("UpdateEdits", func(t *testing.T) {
		t.Run("Sends Only Edits", func(t *testing.T) {
			svc := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPut || r.URL.Path != "/tracks/t1/edits" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				var body map[string]any
				if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
					t.Errorf("failed to decode body: %v", err)
				}
				if body["bpm"] != 100.0 {
					t.Errorf("expected bpm 100, got %v", body["bpm"])
				}
				if _, ok := body["final_bpm"]; ok {
					t.Error("expected track fields to be absent from edits payload")
				}
				w.Write([]byte(`{"id": "t1", "status": "complete", "edits": {"bpm": 100}}`))
			})

			bpm := 100.0
			track, err := svc.UpdateEdits(context.Background(), "t1", models.Edits{BPM: &bpm})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if track.Edits == nil || track.Edits.BPM == nil || *track.Edits.BPM != 100 {
				t.Errorf("expected edits to round trip, got %+v", track.Edits)
			}
		})

		t.Run("Validation Error Uses First Message", func(t *testing.T) {
			svc := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				w.Write([]byte(`{"detail": [{"msg": "bpm must be positive"}, {"msg": "other"}]}`))
			})

			_, err := svc.UpdateEdits(context.Background(), "t1", models.Edits{})
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.Detail != "bpm must be positive" {
				t.Errorf("expected first validation message, got %v", err)
			}
		})
	})

	t.Run("ExportBatch", func(t *testing.T) {
		t.Run("Writes File Named By Server", func(t *testing.T) {
			svc := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/export/csv" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if got := r.URL.Query().Get("track_ids"); got != "a,b" {
					t.Errorf("expected track_ids 'a,b', got %q", got)
				}
				w.Header().Set("Content-Disposition", `attachment; filename="../tracks_export.csv"`)
				w.Write([]byte("id,bpm\na,120\nb,90\n"))
			})

			path, err := svc.ExportBatch(context.Background(), []string{"a", "b"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if filepath.Base(path) != "tracks_export.csv" {
				t.Errorf("expected sanitized server file name, got %s", path)
			}
			if !strings.HasPrefix(tu.MustReadFile(t, path), "id,bpm") {
				t.Error("expected CSV content to be written")
			}
		})

		t.Run("Default Name", func(t *testing.T) {
			svc := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("id\n"))
			})

			path, err := svc.ExportBatch(context.Background(), []string{"a"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			tu.AssertFileExists(t, path)
			if filepath.Base(path) != "export.csv" {
				t.Errorf("expected export.csv, got %s", path)
			}
		})

		t.Run("Nothing Selected", func(t *testing.T) {
			svc := NewAnalyzerService(nil, AnalyzerOpts{OutputDir: t.TempDir()})
			if _, err := svc.ExportBatch(context.Background(), nil); !errors.Is(err, shared.ErrNothingSelected) {
				t.Errorf("expected ErrNothingSelected, got %v", err)
			}
		})

		t.Run("Server Failure", func(t *testing.T) {
			svc := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("boom"))
			})

			_, err := svc.ExportBatch(context.Background(), []string{"a"})
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})
	})
}

func TestProgressReader(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		total int64
		chunk int
		want  []int
	}{
		{"Quarters", bytes.Repeat([]byte("x"), 100), 100, 25, []int{25, 50, 75, 100}},
		{"Empty", nil, 0, 10, []int{100}},
		{"Unknown Size", []byte("abc"), 0, 10, []int{100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []int
			pr := newProgressReader(bytes.NewReader(tt.data), tt.total, func(p int) { got = append(got, p) })

			buf := make([]byte, tt.chunk)
			for {
				if _, err := pr.Read(buf); err != nil {
					break
				}
			}

			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("expected %v, got %v", tt.want, got)
					break
				}
			}
		})
	}
}

func TestExportFilename(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", "export.csv"},
		{"attachment", "export.csv"},
		{`attachment; filename="crate.csv"`, "crate.csv"},
		{`attachment; filename="/etc/passwd"`, "passwd"},
		{"not a header;;", "export.csv"},
	}

	for _, tt := range tests {
		if got := exportFilename(tt.header); got != tt.want {
			t.Errorf("exportFilename(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestAnalyzerRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})

	svc := NewAnalyzerService(NewAPIService(server.URL, nil), AnalyzerOpts{
		OutputDir:      t.TempDir(),
		RequestTimeout: 50 * time.Millisecond,
	})

	tc := map[string]func(ctx context.Context) error{
		"GetTracks": func(ctx context.Context) error {
			_, err := svc.GetTracks(ctx)
			return err
		},
		"UpdateEdits": func(ctx context.Context) error {
			_, err := svc.UpdateEdits(ctx, "t1", models.Edits{Notes: "late"})
			return err
		},
		"ExportBatch": func(ctx context.Context) error {
			_, err := svc.ExportBatch(ctx, []string{"t1"})
			return err
		},
	}

	for name, call := range tc {
		t.Run(name, func(t *testing.T) {
			start := time.Now()
			err := call(context.Background())
			if !errors.Is(err, shared.ErrTimeout) {
				t.Fatalf("expected ErrTimeout, got %v", err)
			}
			if elapsed := time.Since(start); elapsed > 5*time.Second {
				t.Errorf("request was not bounded, took %s", elapsed)
			}
		})
	}

	t.Run("Canceled Parent Is Not A Timeout", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := svc.GetTracks(ctx); errors.Is(err, shared.ErrTimeout) || err == nil {
			t.Errorf("expected a cancellation error, got %v", err)
		}
	})
}
