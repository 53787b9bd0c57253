// HTTP client for the external player process
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/spotiq/internal/models"
	"github.com/desertthunder/spotiq/internal/shared"
)

const defaultPlayerURL = "http://127.0.0.1:7878"

// PlayerClient implements [PlaybackController] by POSTing JSON commands to the player process.
//
// Every failure is wrapped with [shared.ErrPlaybackCommand].
type PlayerClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewPlayerClient creates a player client. An empty baseURL falls back to the default local address and a nil
// client to one with the given timeout.
func NewPlayerClient(baseURL string, client *http.Client, timeout time.Duration) *PlayerClient {
	if baseURL == "" {
		baseURL = defaultPlayerURL
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	return &PlayerClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: client,
	}
}

type loadTrackRequest struct {
	URI string `json:"uri"`
}

// LoadTrack asks the player to stage the track.
func (p *PlayerClient) LoadTrack(ctx context.Context, id models.ResourceID) error {
	return p.post(ctx, "/load_track", loadTrackRequest{URI: id.String()})
}

// Play asks the player to start the staged track.
func (p *PlayerClient) Play(ctx context.Context) error {
	return p.post(ctx, "/play", nil)
}

// Stop asks the player to stop playback.
func (p *PlayerClient) Stop(ctx context.Context) error {
	return p.post(ctx, "/stop", nil)
}

func (p *PlayerClient) post(ctx context.Context, path string, payload any) error {
	var body io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", shared.ErrPlaybackCommand, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrPlaybackCommand, path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrPlaybackCommand, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s: status %d: %s", shared.ErrPlaybackCommand, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return nil
}
