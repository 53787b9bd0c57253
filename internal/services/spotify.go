// Spotify Web API implementation of [MetadataFetcher] and [CollectionExpander]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/spotiq/internal/models"
	"github.com/desertthunder/spotiq/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// unknownArtist is shown when a track carries no artist credits.
	unknownArtist = "Unknown Artist"
	pageLimit     = 50

	// DefaultRequestTimeout bounds each API and token request.
	DefaultRequestTimeout = 15 * time.Second
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country"`
	Product     string `json:"product"` // premium, free, etc.
}

// SpotifyTrack represents a Spotify track.
//
// IsPlayable is only populated when the request carries a market parameter.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	DurationMS int             `json:"duration_ms"`
	IsPlayable *bool           `json:"is_playable"`
	IsLocal    bool            `json:"is_local"`
	URI        string          `json:"uri"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
//
// Track is nil when the item was removed from the catalog.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	IsLocal bool          `json:"is_local"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPlaylistTracksPage represents a page of /playlists/{id}/tracks.
type SpotifyPlaylistTracksPage struct {
	Items  []SpotifyPlaylistTrack `json:"items"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
	Next   *string                `json:"next"`
}

// SpotifyAlbumTracksPage represents a page of /albums/{id}/tracks.
type SpotifyAlbumTracksPage struct {
	Items  []SpotifyTrack `json:"items"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
	Next   *string        `json:"next"`
}

// SpotifyService implements [MetadataFetcher] and [CollectionExpander] against the Spotify Web API.
// Uses [oauth2] for authentication and a [rate.Limiter] to throttle outgoing requests.
type SpotifyService struct {
	config         *oauth2.Config
	token          *oauth2.Token
	httpClient     *http.Client
	credentials    map[string]string
	baseURL        string
	limiter        *rate.Limiter
	timeout        time.Duration
	onTokenRefresh func(*oauth2.Token)
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"playlist-read-private",
			"playlist-read-collaborative",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:      config,
		httpClient:  &http.Client{Timeout: DefaultRequestTimeout},
		credentials: credentials,
		baseURL:     spotifyBaseURL,
		timeout:     DefaultRequestTimeout,
	}, nil
}

// Authenticate performs OAuth2 authentication with Spotify. Expects either an "access_token" or "auth_code" in credentials.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken, ok := credentials["access_token"]; ok && accessToken != "" {
		s.UseToken(ctx, &oauth2.Token{AccessToken: accessToken, RefreshToken: credentials["refresh_token"]})
		return nil
	}

	if authCode, ok := credentials["auth_code"]; ok && authCode != "" {
		token, err := s.config.Exchange(ctx, authCode)
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		s.UseToken(ctx, token)
		return nil
	}

	return fmt.Errorf("%w: missing access_token or auth_code", shared.ErrMissingCredentials)
}

// UseToken authenticates with a previously saved token.
//
// Refreshed tokens are reported through the callback set with [SpotifyService.SetTokenRefreshCallback].
func (s *SpotifyService) UseToken(ctx context.Context, token *oauth2.Token) {
	s.token = token
	// Token refreshes go through a client with the same timeout as API calls.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: s.timeout})
	source := &refreshableTokenSource{
		source:   s.config.TokenSource(ctx, token),
		callback: s.onTokenRefresh,
		last:     token,
	}
	s.httpClient = oauth2.NewClient(ctx, source)
	s.httpClient.Timeout = s.timeout
}

// SetTokenRefreshCallback registers fn to be called whenever the token source yields a new token.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.onTokenRefresh = fn
}

// SetRateLimit throttles API requests to rps requests per second. Zero or negative disables throttling.
func (s *SpotifyService) SetRateLimit(rps float64) {
	if rps <= 0 {
		s.limiter = nil
		return
	}
	s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
}

// SetTimeout bounds every request, including token refreshes made after the next [SpotifyService.UseToken].
// Zero or negative restores [DefaultRequestTimeout].
func (s *SpotifyService) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultRequestTimeout
	}
	s.timeout = d
	s.httpClient.Timeout = d
}

// SetBaseURL points the service at a different API root.
func (s *SpotifyService) SetBaseURL(baseURL string) {
	s.baseURL = strings.TrimSuffix(baseURL, "/")
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Config returns the underlying OAuth2 config, used by the callback handler.
func (s *SpotifyService) Config() *oauth2.Config {
	return s.config
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// doRequest performs an authenticated GET request to the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	if s.token == nil {
		return shared.ErrNotAuthenticated
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return shared.ErrTokenExpired
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, endpoint)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, "/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Track retrieves a single track by ID, relinked to the user's market.
func (s *SpotifyService) Track(ctx context.Context, trackID string) (*SpotifyTrack, error) {
	var track SpotifyTrack
	endpoint := fmt.Sprintf("/tracks/%s?market=from_token", trackID)
	if err := s.doRequest(ctx, endpoint, &track); err != nil {
		return nil, err
	}
	return &track, nil
}

// PlaylistTracks retrieves one page of a playlist's items.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) (*SpotifyPlaylistTracksPage, error) {
	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", playlistID, clampLimit(limit), offset)

	var page SpotifyPlaylistTracksPage
	if err := s.doRequest(ctx, endpoint, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// AlbumTracks retrieves one page of an album's tracks.
func (s *SpotifyService) AlbumTracks(ctx context.Context, albumID string, limit, offset int) (*SpotifyAlbumTracksPage, error) {
	endpoint := fmt.Sprintf("/albums/%s/tracks?limit=%d&offset=%d", albumID, clampLimit(limit), offset)

	var page SpotifyAlbumTracksPage
	if err := s.doRequest(ctx, endpoint, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// FetchTrackMetadata implements [MetadataFetcher].
func (s *SpotifyService) FetchTrackMetadata(ctx context.Context, id models.ResourceID) (models.TrackMetadata, error) {
	if id.Kind != models.KindTrack {
		return models.TrackMetadata{}, fmt.Errorf("%w: %s is not a track", shared.ErrInvalidResourceID, id)
	}

	track, err := s.Track(ctx, id.ID)
	if err != nil {
		return models.TrackMetadata{}, err
	}

	return trackMetadata(id, track), nil
}

// ExpandCollection implements [CollectionExpander], paging through every item of a playlist or album.
//
// Local files and items removed from the catalog are skipped.
func (s *SpotifyService) ExpandCollection(ctx context.Context, id models.ResourceID) ([]models.ResourceID, error) {
	var children []models.ResourceID
	offset := 0

	for {
		var (
			uris []string
			next *string
		)

		switch id.Kind {
		case models.KindPlaylist:
			page, err := s.PlaylistTracks(ctx, id.ID, pageLimit, offset)
			if err != nil {
				return nil, err
			}
			for _, item := range page.Items {
				if item.IsLocal || item.Track == nil || item.Track.IsLocal {
					continue
				}
				uris = append(uris, item.Track.URI)
			}
			next = page.Next
		case models.KindAlbum:
			page, err := s.AlbumTracks(ctx, id.ID, pageLimit, offset)
			if err != nil {
				return nil, err
			}
			for _, item := range page.Items {
				uris = append(uris, item.URI)
			}
			next = page.Next
		default:
			return nil, fmt.Errorf("%w: %s is not a collection", shared.ErrInvalidResourceID, id)
		}

		for _, uri := range uris {
			child, err := models.ParseResourceID(uri)
			if err != nil || child.Kind != models.KindTrack {
				continue
			}
			children = append(children, child)
		}

		if next == nil {
			break
		}
		offset += pageLimit
	}

	return children, nil
}

func trackMetadata(id models.ResourceID, track *SpotifyTrack) models.TrackMetadata {
	artist := unknownArtist
	if len(track.Artists) > 0 && track.Artists[0].Name != "" {
		artist = track.Artists[0].Name
	}

	return models.TrackMetadata{
		Artist:      artist,
		Name:        track.Name,
		DurationMs:  max(track.DurationMS, 0),
		Resource:    id,
		Unavailable: track.IsPlayable != nil && !*track.IsPlayable,
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return min(limit, pageLimit)
}

// refreshableTokenSource wraps an [oauth2.TokenSource] and reports tokens that differ from the last one seen.
type refreshableTokenSource struct {
	mu       sync.Mutex
	source   oauth2.TokenSource
	callback func(*oauth2.Token)
	last     *oauth2.Token
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	if r.last == nil || r.last.AccessToken != token.AccessToken {
		r.last = token
		if r.callback != nil {
			r.callback(token)
		}
	}

	return token, nil
}
