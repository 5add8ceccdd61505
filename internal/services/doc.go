// Package services talks to the track analysis API.
//
// # Layers
//
// [APIService] is a thin HTTP client: it resolves paths against a base URL, buffers the body
// and never interprets status codes. [AnalyzerService] builds the typed operations of the
// [Analyzer] interface on top of it:
//
//   - Upload: POST /upload, multipart field "file", streamed with progress callbacks
//   - GetTrack: GET /tracks/{id}
//   - GetTracks: GET /tracks
//   - UpdateEdits: PUT /tracks/{id}/edits
//   - ExportBatch: GET /export/csv?track_ids=a,b
//
// # Error Handling
//
// Non-2xx responses become [*APIError], which carries the server's "detail" message and
// unwraps to a sentinel from the shared package:
//   - [shared.ErrTrackNotFound] : 404
//   - [shared.ErrAPIRequest] : any other failure
//
// Transport failures are returned wrapped as-is so callers can check for [context.DeadlineExceeded].
package services
