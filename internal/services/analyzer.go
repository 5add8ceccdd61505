package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

const defaultExportName = "export.csv"

// AnalyzerService implements [Analyzer] over the HTTP API.
type AnalyzerService struct {
	api            *APIService
	outputDir      string
	requestTimeout time.Duration
}

var _ Analyzer = (*AnalyzerService)(nil)

// AnalyzerOpts contains optional settings for [NewAnalyzerService].
type AnalyzerOpts struct {
	OutputDir string // Batch exports are written here (default ".")

	// RequestTimeout bounds GetTracks, UpdateEdits and ExportBatch. Upload and GetTrack are
	// left to the caller, which applies the upload and poll timeouts. Zero means no timeout.
	RequestTimeout time.Duration
}

// NewAnalyzerService wraps api.
func NewAnalyzerService(api *APIService, opts AnalyzerOpts) *AnalyzerService {
	if api == nil {
		api = NewAPIService("", nil)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	return &AnalyzerService{api: api, outputDir: opts.OutputDir, requestTimeout: opts.RequestTimeout}
}

// bounded runs fn under the request timeout and reports an expired deadline as [shared.ErrTimeout].
func (s *AnalyzerService) bounded(ctx context.Context, op string, fn func(context.Context) error) error {
	if s.requestTimeout <= 0 {
		return fn(ctx)
	}
	rctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	err := fn(rctx)
	if err != nil && ctx.Err() == nil && errors.Is(rctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %s: %w", shared.ErrTimeout, op, s.requestTimeout, err)
	}
	return err
}

// Upload streams file as multipart field "file" to POST /upload.
func (s *AnalyzerService) Upload(ctx context.Context, file models.FileHandle, onProgress func(int)) (*models.Track, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file.Name(), err)
	}

	pr, pw := io.Pipe()
	defer pr.Close()
	mw := multipart.NewWriter(pw)

	go func() {
		defer src.Close()
		part, err := mw.CreateFormFile("file", file.Name())
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, newProgressReader(src, file.Size(), onProgress)); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	resp, err := s.api.do(ctx, http.MethodPost, "/upload", mw.FormDataContentType(), pr)
	if err != nil {
		return nil, err
	}

	var track models.Track
	if err := decodeResponse(resp, &track); err != nil {
		return nil, err
	}
	return &track, nil
}

// GetTrack fetches GET /tracks/{id}.
func (s *AnalyzerService) GetTrack(ctx context.Context, id string) (*models.Track, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: track id is required", shared.ErrMissingArgument)
	}

	resp, err := s.api.Get(ctx, "/tracks/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	var track models.Track
	if err := decodeResponse(resp, &track); err != nil {
		return nil, err
	}
	return &track, nil
}

// GetTracks fetches GET /tracks.
func (s *AnalyzerService) GetTracks(ctx context.Context) ([]models.Track, error) {
	var resp *APIResponse
	err := s.bounded(ctx, "list tracks", func(ctx context.Context) (err error) {
		resp, err = s.api.Get(ctx, "/tracks")
		return err
	})
	if err != nil {
		return nil, err
	}

	var list struct {
		Tracks []models.Track `json:"tracks"`
	}
	if err := decodeResponse(resp, &list); err != nil {
		return nil, err
	}
	if list.Tracks == nil {
		list.Tracks = []models.Track{}
	}
	return list.Tracks, nil
}

// UpdateEdits sends edits to PUT /tracks/{id}/edits.
func (s *AnalyzerService) UpdateEdits(ctx context.Context, id string, edits models.Edits) (*models.Track, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: track id is required", shared.ErrMissingArgument)
	}

	body, err := json.Marshal(edits)
	if err != nil {
		return nil, fmt.Errorf("failed to encode edits: %w", err)
	}

	var resp *APIResponse
	err = s.bounded(ctx, "save edits", func(ctx context.Context) (err error) {
		resp, err = s.api.Put(ctx, "/tracks/"+url.PathEscape(id)+"/edits", body)
		return err
	})
	if err != nil {
		return nil, err
	}

	var track models.Track
	if err := decodeResponse(resp, &track); err != nil {
		return nil, err
	}
	return &track, nil
}

// ExportBatch downloads GET /export/csv?track_ids=a,b into the output directory.
//
// The file name comes from the Content-Disposition header when the server sends one.
func (s *AnalyzerService) ExportBatch(ctx context.Context, ids []string) (string, error) {
	if len(ids) == 0 {
		return "", shared.ErrNothingSelected
	}

	query := url.Values{"track_ids": {strings.Join(ids, ",")}}
	var resp *APIResponse
	err := s.bounded(ctx, "export", func(ctx context.Context) (err error) {
		resp, err = s.api.Get(ctx, "/export/csv?"+query.Encode())
		return err
	})
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", newAPIError(resp)
	}

	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(s.outputDir, exportFilename(resp.Headers.Get("Content-Disposition")))
	if err := os.WriteFile(path, resp.Body, 0644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}

// exportFilename extracts a safe base name from a Content-Disposition header.
func exportFilename(disposition string) string {
	if disposition == "" {
		return defaultExportName
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return defaultExportName
	}

	name := filepath.Base(params["filename"])
	if name == "" || name == "." || name == string(filepath.Separator) {
		return defaultExportName
	}
	return name
}

// decodeResponse returns an [*APIError] for non-2xx responses and otherwise decodes the JSON body into v.
func decodeResponse(resp *APIResponse, v any) error {
	if !resp.OK() {
		return newAPIError(resp)
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return nil
}
