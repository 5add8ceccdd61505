package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/crate/internal/shared"
)

// APIError is a non-2xx response from the analysis API.
//
// Detail carries the server's structured message (`{"detail": "..."}`) when one was sent.
type APIError struct {
	StatusCode int
	Detail     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("status %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Unwrap maps 404s to [shared.ErrTrackNotFound] and everything else to [shared.ErrAPIRequest].
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return shared.ErrTrackNotFound
	}
	return shared.ErrAPIRequest
}

// newAPIError builds an [APIError] from a failed response, extracting "detail" when it is a string
// or the first validation message when it is a list.
func newAPIError(resp *APIResponse) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(resp.Body)}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil || len(payload.Detail) == 0 {
		return apiErr
	}

	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err == nil {
		apiErr.Detail = detail
		return apiErr
	}

	var issues []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &issues); err == nil && len(issues) > 0 {
		apiErr.Detail = issues[0].Msg
	}
	return apiErr
}
