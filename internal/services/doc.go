// Package services defines the RPC ports the queue engine consumes and implements them over HTTP.
//
// # Ports
//
// The queue depends only on three interfaces:
//   - [MetadataFetcher] : track metadata (artist, name, duration, availability)
//   - [CollectionExpander] : child tracks of a playlist or album
//   - [PlaybackController] : load/play/stop commands for the external player
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 for authentication with automatic token refresh.
//
// The [oauth2.Client] automatically refreshes expired tokens using the refresh token; the refreshed token is
// handed to the callback registered with [SpotifyService.SetTokenRefreshCallback] so the CLI can persist it.
//
// Requests are throttled with a [rate.Limiter] when a rate limit is configured.
// Availability comes from the is_playable flag, which Spotify only reports when the request carries a market,
// so track lookups always send market=from_token.
//
// # Player Implementation
//
// [PlayerClient] posts JSON commands to the player process:
//   - POST /load_track {"uri": "spotify:track:..."}
//   - POST /play
//   - POST /stop
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : no token configured
//   - [shared.ErrTokenExpired] : OAuth token rejected, reauthorization needed
//   - [shared.ErrTrackNotFound] : resource does not exist
//   - [shared.ErrServiceUnavailable] : rate limited or server error
//   - [shared.ErrAPIRequest] : any other HTTP failure
//   - [shared.ErrPlaybackCommand] : player command failed
package services
