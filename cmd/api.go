package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/crate/internal/services"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/urfave/cli/v3"
)

// APIGet makes a direct GET request to the analysis API
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path is required", shared.ErrMissingArgument)
	}

	r.logger.Info("GET request", "path", path)

	rctx, cancel := r.requestContext(ctx)
	defer cancel()

	resp, err := r.api.Get(rctx, path)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, r.timeoutError(ctx, rctx, err))
	}
	return r.writeResponse(resp, !cmd.Bool("json"))
}

// APIPut makes a direct PUT request with a JSON body
func (r *Runner) APIPut(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	data := cmd.String("data")

	if path == "" {
		return fmt.Errorf("%w: path is required", shared.ErrMissingArgument)
	}
	if data == "" {
		return fmt.Errorf("%w: --data flag is required", shared.ErrMissingArgument)
	}

	var jsonTest any
	if err := json.Unmarshal([]byte(data), &jsonTest); err != nil {
		return fmt.Errorf("%w: data is not valid JSON: %v", shared.ErrInvalidInput, err)
	}

	r.logger.Info("PUT request", "path", path)

	rctx, cancel := r.requestContext(ctx)
	defer cancel()

	resp, err := r.api.Put(rctx, path, []byte(data))
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, r.timeoutError(ctx, rctx, err))
	}
	return r.writeResponse(resp, true)
}

// Status checks that the track list endpoint answers and reports the local cache state.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	r.writePlainHeader("crate status")
	if r.configPath != "" {
		r.writePlain("Config:   %s\n", r.configPath)
	}
	r.writePlain("API:      %s\n", r.api.BaseURL())

	tracks, err := r.analyzer.GetTracks(ctx)
	if err != nil {
		r.writePlain("          ✗ unreachable: %v\n", err)
	} else {
		r.writePlain("          ✓ reachable, %d tracks\n", len(tracks))
	}

	r.writePlain("Database: %s\n", r.config.Database.Path)
	if _, uploads, dbErr := r.repos(); dbErr != nil {
		r.writePlain("          ✗ %v\n", dbErr)
	} else if history, listErr := uploads.List(ctx, 0); listErr == nil {
		r.writePlain("          ✓ %d uploads recorded\n", len(history))
	}

	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	return nil
}

func (r *Runner) writeResponse(resp *services.APIResponse, pretty bool) error {
	if !resp.OK() {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}
	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, pretty)
	}
	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}
