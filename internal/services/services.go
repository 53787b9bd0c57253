// package services defines the RPC ports consumed by the queue engine and their HTTP adapters
//
// Spotify Web API (metadata, collection expansion), external player process (playback control)
package services

import (
	"context"

	"github.com/desertthunder/spotiq/internal/models"
)

// MetadataFetcher resolves display metadata for a single track.
type MetadataFetcher interface {
	// FetchTrackMetadata returns artist, name, duration and availability for id.
	FetchTrackMetadata(ctx context.Context, id models.ResourceID) (models.TrackMetadata, error)
}

// CollectionExpander resolves a playlist or album into its child tracks, in playback order.
type CollectionExpander interface {
	ExpandCollection(ctx context.Context, id models.ResourceID) ([]models.ResourceID, error)
}

// PlaybackController drives the external player process.
type PlaybackController interface {
	// LoadTrack stages id in the player without starting playback.
	LoadTrack(ctx context.Context, id models.ResourceID) error
	Play(ctx context.Context) error
	Stop(ctx context.Context) error
}

// OAuthService is implemented by providers that support the authorization code flow.
type OAuthService interface {
	Authenticate(ctx context.Context, credentials map[string]string) error
	GetAuthURL(state string) string
	Name() string
}
