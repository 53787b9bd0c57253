package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/spotiq/internal/models"
	"github.com/desertthunder/spotiq/internal/shared"
	"golang.org/x/oauth2"
)

const (
	testTrackID    = "4uLU6hMCjMI75M1A2tKUQC"
	testPlaylistID = "37i9dQZF1DXcBWIGoYBM5M"
	testAlbumID    = "1DFixLWuPkv3KT3TnV35m3"
)

func newTestService(t *testing.T, handler http.Handler) *SpotifyService {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	srv, err := NewSpotifyService(map[string]string{
		"client_id":     "test_client_id",
		"client_secret": "test_client_secret",
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	srv.SetBaseURL(server.URL)
	if err := srv.Authenticate(context.Background(), map[string]string{"access_token": "test_access_token"}); err != nil {
		t.Fatalf("failed to authenticate: %v", err)
	}
	return srv
}

func trackID(n int) string {
	return fmt.Sprintf("%022d", n)
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			credentials := map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
				"redirect_uri":  "http://127.0.0.1:4000/callback",
			}

			srv, err := NewSpotifyService(credentials)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
			if srv.Config().RedirectURL != "http://127.0.0.1:4000/callback" {
				t.Errorf("unexpected redirect URI %s", srv.Config().RedirectURL)
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_secret": "test_client_secret"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_id": "test_client_id"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Default Redirect URI", func(t *testing.T) {
			srv, err := NewSpotifyService(map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.config.RedirectURL != "http://127.0.0.1:3000/callback" {
				t.Errorf("expected default redirect URI, got %s", srv.config.RedirectURL)
			}
		})
	})

	t.Run("Get AuthURL", func(t *testing.T) {
		srv, err := NewSpotifyService(map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		authURL := srv.GetAuthURL("test_state")
		if !strings.Contains(authURL, "accounts.spotify.com") {
			t.Error("auth URL should contain Spotify domain")
		}
		if !strings.Contains(authURL, "test_client_id") {
			t.Error("auth URL should contain client_id")
		}
		if !strings.Contains(authURL, "test_state") {
			t.Error("auth URL should contain state")
		}
	})

	t.Run("Authenticate", func(t *testing.T) {
		srv, err := NewSpotifyService(map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		t.Run("Not Authenticated", func(t *testing.T) {
			_, err := srv.FetchTrackMetadata(context.Background(), models.ResourceID{Kind: models.KindTrack, ID: testTrackID})
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("With Access Token", func(t *testing.T) {
			err := srv.Authenticate(context.Background(), map[string]string{"access_token": "test_access_token"})
			if err != nil {
				t.Errorf("expected no error with access token, got %v", err)
			}
			if srv.token == nil || srv.token.AccessToken != "test_access_token" {
				t.Errorf("expected access token to be set, got %+v", srv.token)
			}
		})

		t.Run("Missing Credentials", func(t *testing.T) {
			err := srv.Authenticate(context.Background(), map[string]string{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("OAuth Service Interface", func(t *testing.T) {
		srv, _ := NewSpotifyService(map[string]string{"client_id": "id", "client_secret": "secret"})

		var _ OAuthService = srv
		var _ MetadataFetcher = srv
		var _ CollectionExpander = srv
	})

	t.Run("FetchTrackMetadata", func(t *testing.T) {
		id := models.ResourceID{Kind: models.KindTrack, ID: testTrackID}

		t.Run("Maps First Artist And Availability", func(t *testing.T) {
			srv := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/tracks/"+testTrackID {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if r.URL.Query().Get("market") != "from_token" {
					t.Errorf("expected market=from_token, got %q", r.URL.RawQuery)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer test_access_token" {
					t.Errorf("unexpected authorization header %q", got)
				}
				fmt.Fprintf(w, `{"id":%q,"name":"Digital Love","duration_ms":301000,"is_playable":false,
					"artists":[{"name":"Daft Punk"},{"name":"Someone Else"}],"uri":"spotify:track:%s"}`, testTrackID, testTrackID)
			}))

			meta, err := srv.FetchTrackMetadata(context.Background(), id)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			want := models.TrackMetadata{Artist: "Daft Punk", Name: "Digital Love", DurationMs: 301000, Resource: id, Unavailable: true}
			if meta != want {
				t.Errorf("expected %+v, got %+v", want, meta)
			}
		})

		t.Run("Missing Artist And Playable Flag", func(t *testing.T) {
			srv := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"name":"Untitled","duration_ms":1000,"artists":[]}`)
			}))

			meta, err := srv.FetchTrackMetadata(context.Background(), id)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if meta.Artist != unknownArtist {
				t.Errorf("expected %q, got %q", unknownArtist, meta.Artist)
			}
			if meta.Unavailable {
				t.Error("track without is_playable should be available")
			}
		})

		t.Run("Status Errors", func(t *testing.T) {
			tests := []struct {
				name   string
				status int
				want   error
			}{
				{"unauthorized", http.StatusUnauthorized, shared.ErrTokenExpired},
				{"not found", http.StatusNotFound, shared.ErrTrackNotFound},
				{"rate limited", http.StatusTooManyRequests, shared.ErrServiceUnavailable},
				{"server error", http.StatusBadGateway, shared.ErrServiceUnavailable},
				{"bad request", http.StatusBadRequest, shared.ErrAPIRequest},
			}

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					srv := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
						w.WriteHeader(tt.status)
					}))

					_, err := srv.FetchTrackMetadata(context.Background(), id)
					if !errors.Is(err, tt.want) {
						t.Errorf("expected %v, got %v", tt.want, err)
					}
				})
			}
		})

		t.Run("Rejects Collections", func(t *testing.T) {
			srv := newTestService(t, http.NotFoundHandler())
			_, err := srv.FetchTrackMetadata(context.Background(), models.ResourceID{Kind: models.KindAlbum, ID: testAlbumID})
			if !errors.Is(err, shared.ErrInvalidResourceID) {
				t.Errorf("expected ErrInvalidResourceID, got %v", err)
			}
		})

		t.Run("Stalled Response Times Out", func(t *testing.T) {
			srv := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				<-r.Context().Done()
			}))
			srv.SetTimeout(20 * time.Millisecond)

			start := time.Now()
			_, err := srv.FetchTrackMetadata(context.Background(), id)
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
			if elapsed := time.Since(start); elapsed > time.Second {
				t.Errorf("expected the request to be cut off, took %v", elapsed)
			}
		})
	})

	t.Run("ExpandCollection", func(t *testing.T) {
		t.Run("Pages Through Playlist And Skips Local Items", func(t *testing.T) {
			var requests atomic.Int32
			srv := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests.Add(1)
				if r.URL.Path != "/playlists/"+testPlaylistID+"/tracks" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}

				var page SpotifyPlaylistTracksPage
				switch r.URL.Query().Get("offset") {
				case "0":
					next := "more"
					page.Next = &next
					page.Items = []SpotifyPlaylistTrack{
						{Track: &SpotifyTrack{URI: "spotify:track:" + trackID(1)}},
						{IsLocal: true, Track: &SpotifyTrack{URI: "spotify:local:artist:album:name:1"}},
						{Track: nil},
					}
				case "50":
					page.Items = []SpotifyPlaylistTrack{
						{Track: &SpotifyTrack{URI: "spotify:episode:" + trackID(9)}},
						{Track: &SpotifyTrack{URI: "spotify:track:" + trackID(2)}},
					}
				default:
					t.Errorf("unexpected offset %s", r.URL.Query().Get("offset"))
				}
				json.NewEncoder(w).Encode(page)
			}))

			children, err := srv.ExpandCollection(context.Background(), models.ResourceID{Kind: models.KindPlaylist, ID: testPlaylistID})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(children) != 2 {
				t.Fatalf("expected 2 children, got %d: %v", len(children), children)
			}
			if children[0].ID != trackID(1) || children[1].ID != trackID(2) {
				t.Errorf("unexpected children order: %v", children)
			}
			if requests.Load() != 2 {
				t.Errorf("expected 2 requests, got %d", requests.Load())
			}
		})

		t.Run("Album", func(t *testing.T) {
			srv := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/albums/"+testAlbumID+"/tracks" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				json.NewEncoder(w).Encode(SpotifyAlbumTracksPage{Items: []SpotifyTrack{
					{URI: "spotify:track:" + trackID(3)},
					{URI: "spotify:track:" + trackID(4)},
				}})
			}))

			children, err := srv.ExpandCollection(context.Background(), models.ResourceID{Kind: models.KindAlbum, ID: testAlbumID})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(children) != 2 || children[0].ID != trackID(3) {
				t.Errorf("unexpected children: %v", children)
			}
		})

		t.Run("Propagates Errors", func(t *testing.T) {
			srv := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))

			_, err := srv.ExpandCollection(context.Background(), models.ResourceID{Kind: models.KindAlbum, ID: testAlbumID})
			if !errors.Is(err, shared.ErrTrackNotFound) {
				t.Errorf("expected ErrTrackNotFound, got %v", err)
			}
		})

		t.Run("Rejects Tracks", func(t *testing.T) {
			srv := newTestService(t, http.NotFoundHandler())
			_, err := srv.ExpandCollection(context.Background(), models.ResourceID{Kind: models.KindTrack, ID: testTrackID})
			if !errors.Is(err, shared.ErrInvalidResourceID) {
				t.Errorf("expected ErrInvalidResourceID, got %v", err)
			}
		})
	})

	t.Run("SetRateLimit", func(t *testing.T) {
		srv, _ := NewSpotifyService(map[string]string{"client_id": "id", "client_secret": "secret"})

		srv.SetRateLimit(5)
		if srv.limiter == nil {
			t.Fatal("expected limiter to be set")
		}
		srv.SetRateLimit(0)
		if srv.limiter != nil {
			t.Error("expected limiter to be cleared")
		}
	})

	t.Run("SetTimeout", func(t *testing.T) {
		srv, err := NewSpotifyService(map[string]string{"client_id": "id", "client_secret": "secret"})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}
		if srv.httpClient.Timeout != DefaultRequestTimeout {
			t.Errorf("expected default timeout %v, got %v", DefaultRequestTimeout, srv.httpClient.Timeout)
		}

		srv.SetTimeout(5 * time.Second)
		srv.UseToken(context.Background(), &oauth2.Token{AccessToken: "token"})
		if srv.httpClient.Timeout != 5*time.Second {
			t.Errorf("expected timeout to survive UseToken, got %v", srv.httpClient.Timeout)
		}

		srv.SetTimeout(0)
		if srv.httpClient.Timeout != DefaultRequestTimeout {
			t.Errorf("expected default timeout restored, got %v", srv.httpClient.Timeout)
		}
	})

	t.Run("SetTokenRefreshCallback", func(t *testing.T) {
		srv, err := NewSpotifyService(map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		t.Run("sets callback successfully", func(t *testing.T) {
			srv.SetTokenRefreshCallback(func(token *oauth2.Token) {})
			if srv.onTokenRefresh == nil {
				t.Error("expected callback to be set")
			}
		})

		t.Run("can set nil callback", func(t *testing.T) {
			srv.SetTokenRefreshCallback(nil)
			if srv.onTokenRefresh != nil {
				t.Error("expected callback to be nil")
			}
		})
	})

	t.Run("refreshableTokenSource", func(t *testing.T) {
		t.Run("calls callback on first token fetch", func(t *testing.T) {
			callbackCalled := false
			var capturedToken *oauth2.Token

			mockSource := &mockTokenSource{
				token: &oauth2.Token{AccessToken: "test_token"},
			}

			source := &refreshableTokenSource{
				source: mockSource,
				callback: func(token *oauth2.Token) {
					callbackCalled = true
					capturedToken = token
				},
			}

			token, err := source.Token()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if !callbackCalled {
				t.Error("expected callback to be called on first fetch")
			}
			if capturedToken == nil {
				t.Error("expected token to be captured")
			}
			if capturedToken.AccessToken != "test_token" {
				t.Errorf("expected captured token to be 'test_token', got %s", capturedToken.AccessToken)
			}
			if token.AccessToken != "test_token" {
				t.Errorf("expected returned token to be 'test_token', got %s", token.AccessToken)
			}
		})

		t.Run("calls callback when token changes", func(t *testing.T) {
			callCount := 0
			var capturedTokens []*oauth2.Token

			mockSource := &mockTokenSource{
				token: &oauth2.Token{AccessToken: "token1"},
			}

			source := &refreshableTokenSource{
				source: mockSource,
				callback: func(token *oauth2.Token) {
					callCount++
					capturedTokens = append(capturedTokens, token)
				},
			}

			_, _ = source.Token()
			if callCount != 1 {
				t.Errorf("expected callback called once, got %d", callCount)
			}

			mockSource.token = &oauth2.Token{AccessToken: "token2"}
			token2, _ := source.Token()

			if callCount != 2 {
				t.Errorf("expected callback called twice, got %d", callCount)
			}
			if len(capturedTokens) != 2 {
				t.Errorf("expected 2 captured tokens, got %d", len(capturedTokens))
			}
			if token2.AccessToken != "token2" {
				t.Errorf("expected new token, got %s", token2.AccessToken)
			}
		})

		t.Run("doesn't call callback when token unchanged", func(t *testing.T) {
			callCount := 0

			mockSource := &mockTokenSource{
				token: &oauth2.Token{AccessToken: "same_token"},
			}

			source := &refreshableTokenSource{
				source: mockSource,
				callback: func(token *oauth2.Token) {
					callCount++
				},
			}

			source.Token()
			source.Token()
			source.Token()

			if callCount != 1 {
				t.Errorf("expected callback called once, got %d", callCount)
			}
		})

		t.Run("handles nil callback gracefully", func(t *testing.T) {
			mockSource := &mockTokenSource{
				token: &oauth2.Token{AccessToken: "test_token"},
			}

			source := &refreshableTokenSource{
				source:   mockSource,
				callback: nil,
			}

			token, err := source.Token()
			if err != nil {
				t.Fatalf("expected no error with nil callback, got %v", err)
			}
			if token.AccessToken != "test_token" {
				t.Error("expected token to be returned despite nil callback")
			}
		})

		t.Run("propagates source errors", func(t *testing.T) {
			mockSource := &mockTokenSource{
				err: errors.New("token source error"),
			}

			source := &refreshableTokenSource{
				source: mockSource,
				callback: func(token *oauth2.Token) {
					t.Error("callback should not be called on error")
				},
			}

			token, err := source.Token()
			if err == nil {
				t.Fatal("expected error from source")
			}
			if !strings.Contains(err.Error(), "token source error") {
				t.Errorf("expected source error, got %v", err)
			}
			if token != nil {
				t.Error("expected nil token on error")
			}
		})

		t.Run("handles callback panic gracefully", func(t *testing.T) {
			defer func() {
				if r := recover(); r != nil {
					t.Error("expected panic to be contained within callback")
				}
			}()

			mockSource := &mockTokenSource{
				token: &oauth2.Token{AccessToken: "test_token"},
			}

			source := &refreshableTokenSource{
				source: mockSource,
				callback: func(token *oauth2.Token) {
					panic("callback panic")
				},
			}

			func() {
				defer func() {
					_ = recover()
				}()
				source.Token()
			}()
		})
	})
}

// mockTokenSource implements [oauth2.TokenSource] for testing
type mockTokenSource struct {
	token *oauth2.Token
	err   error
}

func (m *mockTokenSource) Token() (*oauth2.Token, error) {
	return m.token, m.err
}
